package pak

import (
	"fmt"
	"os"

	"github.com/mtmods/pak/internal/pathutil"
)

// RepackEntry records one loose file added to a repacked archive and the
// archive path it was classified to.
type RepackEntry struct {
	Source  string
	PakPath string
}

// RepackResult summarizes a repackaging run.
type RepackResult struct {
	Added   []RepackEntry
	Skipped []string
}

// RepackProgressFunc receives one callback per processed input: the added
// file and its archive path, or skipped=true for a missing input.
type RepackProgressFunc func(entry RepackEntry, skipped bool)

// Repack builds a new archive from the given loose files.
//
// Each input is classified to its canonical archive path and written with
// compression enabled. A missing input is a warning, not an error: it is
// reported through progress and skipped. For each primary file, a same-stem
// companion next to it on disk is included as well, mapped by swapping the
// extension of the already-classified primary path so both land in the same
// directory. The Writer is finalized after all inputs are processed.
func Repack(w *Writer, inputs []string, progress RepackProgressFunc) (*RepackResult, error) {
	if progress == nil {
		progress = func(RepackEntry, bool) {}
	}

	result := &RepackResult{}
	for _, input := range inputs {
		if _, err := os.Stat(input); err != nil {
			result.Skipped = append(result.Skipped, input)
			progress(RepackEntry{Source: input}, true)
			continue
		}

		pakPath, err := Classify(input)
		if err != nil {
			return nil, err
		}
		if err := addFile(w, input, pakPath, result, progress); err != nil {
			return nil, err
		}

		companion := pathutil.SwapExt(input, AssetExt, CompanionExt)
		if companion == input {
			continue
		}
		if _, err := os.Stat(companion); err != nil {
			continue
		}
		if err := addFile(w, companion, CompanionPath(pakPath), result, progress); err != nil {
			return nil, err
		}
	}

	if err := w.WriteIndex(); err != nil {
		return nil, err
	}
	return result, nil
}

func addFile(w *Writer, source, pakPath string, result *RepackResult, progress RepackProgressFunc) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("pak: reading %s: %w", source, err)
	}
	if err := w.WriteFile(pakPath, true, data); err != nil {
		return err
	}
	entry := RepackEntry{Source: source, PakPath: pakPath}
	result.Added = append(result.Added, entry)
	progress(entry, false)
	return nil
}
