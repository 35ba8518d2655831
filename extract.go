package pak

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mtmods/pak/internal/pathutil"
)

// dataAssetMarker is the category substring List filters on.
const dataAssetMarker = "DataAsset"

// ExtractedAsset is one record of the extraction manifest, consumed by the
// downstream asset parser.
type ExtractedAsset struct {
	Name    string  `json:"name"`
	PakPath string  `json:"pak_path"`
	UAsset  string  `json:"uasset"`
	UExp    *string `json:"uexp"`
}

// Manifest describes what a batch extraction produced. It is appended to as
// each requested asset is resolved and serialized exactly once at the end of
// the run.
type Manifest struct {
	Extracted []ExtractedAsset `json:"extracted"`
}

// Save writes the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("pak: encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("pak: writing manifest: %w", err)
	}
	return nil
}

// BatchConfig is the external batch-extraction request: logical asset
// identifiers, each an archive path without extension.
type BatchConfig struct {
	Assets []string `json:"assets"`
}

// LoadBatchConfig reads a batch config JSON document.
func LoadBatchConfig(path string) (*BatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pak: reading config: %w", err)
	}
	var cfg BatchConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("pak: parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// ListDataAssets returns the data-asset entries of the archive: paths ending
// in the primary extension whose path carries the data-asset marker, with
// the extension trimmed.
func ListDataAssets(r *Reader) []string {
	var out []string
	for _, path := range r.List() {
		if strings.HasSuffix(path, AssetExt) && strings.Contains(path, dataAssetMarker) {
			out = append(out, strings.TrimSuffix(path, AssetExt))
		}
	}
	return out
}

// Search returns primary-extension entries whose path case-insensitively
// contains pattern, with the extension trimmed.
func Search(r *Reader, pattern string) []string {
	pattern = strings.ToLower(pattern)
	var out []string
	for _, path := range r.List() {
		if strings.HasSuffix(path, AssetExt) && strings.Contains(strings.ToLower(path), pattern) {
			out = append(out, strings.TrimSuffix(path, AssetExt))
		}
	}
	return out
}

// ExtractInfo reports what a single-asset extraction wrote.
type ExtractInfo struct {
	Name       string
	PakPath    string
	AssetBytes int
	ExpBytes   int
	HasExp     bool
}

// ExtractAsset extracts one asset's primary file, and its companion when
// present, into outDir keyed by the asset's logical name. A missing
// companion is not an error; a missing primary is.
func ExtractAsset(r *Reader, assetPath, outDir string) (*ExtractInfo, error) {
	assetPath = pathutil.TrimSuffixes(assetPath, AssetExt, CompanionExt)
	info := &ExtractInfo{
		Name:    pathutil.Base(assetPath),
		PakPath: assetPath,
	}

	data, err := r.Get(assetPath + AssetExt)
	if err != nil {
		return nil, err
	}
	info.AssetBytes = len(data)
	if err := os.WriteFile(filepath.Join(outDir, info.Name+AssetExt), data, 0o644); err != nil {
		return nil, err
	}

	if exp, err := r.Get(assetPath + CompanionExt); err == nil {
		info.ExpBytes = len(exp)
		info.HasExp = true
		if err := os.WriteFile(filepath.Join(outDir, info.Name+CompanionExt), exp, 0o644); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// ExtractProgressFunc receives one callback per batch item: the asset's
// logical name, the primary payload size on success, and the per-item error
// on failure.
type ExtractProgressFunc func(name string, size int, err error)

// ExtractBatch extracts every identifier in cfg into outDir and returns the
// manifest plus the number of failed items.
//
// The batch is partial-failure-tolerant: a failed item is reported through
// progress and skipped, and the batch continues. Only output I/O errors
// abort the run.
func ExtractBatch(r *Reader, cfg *BatchConfig, outDir string, progress ExtractProgressFunc) (*Manifest, int, error) {
	if progress == nil {
		progress = func(string, int, error) {}
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, 0, err
	}

	manifest := &Manifest{Extracted: []ExtractedAsset{}}
	failed := 0
	for _, asset := range cfg.Assets {
		info, err := ExtractAsset(r, asset, outDir)
		if err != nil {
			if isOutputError(err) {
				return nil, failed, err
			}
			failed++
			progress(pathutil.Base(pathutil.TrimSuffixes(asset, AssetExt, CompanionExt)), 0, err)
			continue
		}

		record := ExtractedAsset{
			Name:    info.Name,
			PakPath: info.PakPath,
			UAsset:  info.Name + AssetExt,
		}
		if info.HasExp {
			exp := info.Name + CompanionExt
			record.UExp = &exp
		}
		manifest.Extracted = append(manifest.Extracted, record)
		progress(info.Name, info.AssetBytes, nil)
	}
	return manifest, failed, nil
}

// isOutputError distinguishes fatal output I/O failures from recoverable
// per-entry archive failures.
func isOutputError(err error) bool {
	var pathErr *os.PathError
	return errors.As(err, &pathErr)
}
