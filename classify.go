package pak

import (
	"fmt"
	"strings"

	"github.com/mtmods/pak/internal/pathutil"
)

// Container-managed extensions of game assets.
const (
	// AssetExt is the primary asset file extension.
	AssetExt = ".uasset"

	// CompanionExt is the paired bulk-data extension sharing the asset's stem.
	CompanionExt = ".uexp"
)

// modifiedSuffix is the disambiguation suffix carried by edited loose files.
const modifiedSuffix = "_modified"

// ClassifyRule maps filename stems onto an archive directory. Rules are
// evaluated in order and the first match wins; a rule with no predicates
// matches everything.
type ClassifyRule struct {
	// Prefixes match stems beginning with any listed prefix.
	Prefixes []string

	// Names match stems exactly.
	Names []string

	// Dir is the archive directory entries matching this rule land in.
	Dir string
}

func (r ClassifyRule) matches(stem string) bool {
	if len(r.Prefixes) == 0 && len(r.Names) == 0 {
		return true
	}
	for _, prefix := range r.Prefixes {
		if strings.HasPrefix(stem, prefix) {
			return true
		}
	}
	for _, name := range r.Names {
		if stem == name {
			return true
		}
	}
	return false
}

// classifyRules is derived from observed layouts of shipped archives, not
// from a schema. It is a best-effort heuristic: content categories it does
// not know about fall through to the default data-asset rule rather than
// failing.
var classifyRules = []ClassifyRule{
	{
		// Delivery point objects.
		Prefixes: []string{"Factory_", "Farm_", "Mine_", "Sawmill_", "Port_", "Warehouse_", "Store_"},
		Dir:      "Objects/Mission/Delivery/DeliveryPoint",
	},
	{
		Prefixes: []string{"Vehicles"},
		Names:    []string{"Cargos"},
		Dir:      "DataAsset",
	},
	{
		// Default: everything else is a data asset.
		Dir: "DataAsset",
	},
}

// Classify maps a loose filename onto the canonical archive path it should
// occupy when repackaged, so the repacked entry overrides the right original.
//
// The disambiguation suffix ("_modified") is stripped before matching, so a
// suffixed file classifies identically to its unsuffixed original. Classify
// is deterministic and the default rule never fails.
func Classify(filename string) (string, error) {
	name := pathutil.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" {
		return "", fmt.Errorf("pak: cannot classify empty filename")
	}

	stem, ext := pathutil.SplitExt(name)
	stem = strings.ReplaceAll(stem, modifiedSuffix, "")
	if stem == "" {
		return "", fmt.Errorf("pak: cannot classify %q", filename)
	}

	for _, rule := range classifyRules {
		if rule.matches(stem) {
			return rule.Dir + "/" + stem + ext, nil
		}
	}
	// The trailing default rule matches everything.
	panic("pak: classify rule table has no default rule")
}

// CompanionPath maps an already-classified primary path onto its companion
// by swapping the extension, so primary and companion always land in the
// same directory.
func CompanionPath(primary string) string {
	return pathutil.SwapExt(primary, AssetExt, CompanionExt)
}
