// Package pathutil provides manipulation helpers for slash-separated
// archive paths.
package pathutil

import "strings"

// Base returns the last element of a slash-separated path.
func Base(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Dir returns everything before the last element, without the trailing
// slash, or "" when path has a single element.
func Dir(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// TrimSuffixes removes the first matching suffix from s, trying each suffix
// in order.
func TrimSuffixes(s string, suffixes ...string) string {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return strings.TrimSuffix(s, suffix)
		}
	}
	return s
}

// SwapExt replaces a trailing oldExt with newExt. The path is returned
// unchanged when it does not end in oldExt.
func SwapExt(path, oldExt, newExt string) string {
	if !strings.HasSuffix(path, oldExt) {
		return path
	}
	return strings.TrimSuffix(path, oldExt) + newExt
}

// SplitExt splits a filename into stem and extension. The extension includes
// the leading dot and is empty when the name has none.
func SplitExt(name string) (stem, ext string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i:]
	}
	return name, ""
}
