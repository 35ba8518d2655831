package pak_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtmods/pak"
	"github.com/mtmods/pak/internal/testutil"
)

func contentReader(t *testing.T) *pak.Reader {
	t.Helper()
	archive := testutil.BuildArchive(t, []testutil.File{
		{Path: "MotorTown/Content/DataAsset/Cargos.uasset", Data: bytes.Repeat([]byte{0x01}, 100), Compress: true},
		{Path: "MotorTown/Content/DataAsset/Cargos.uexp", Data: bytes.Repeat([]byte{0x02}, 50), Compress: true},
		{Path: "MotorTown/Content/DataAsset/Vehicles.uasset", Data: []byte("vehicles"), Compress: true},
		{Path: "MotorTown/Content/Maps/Jeju.umap", Data: []byte("terrain")},
	})
	r, err := pak.OpenReader(testutil.Source(archive))
	require.NoError(t, err)
	return r
}

func TestListDataAssets(t *testing.T) {
	t.Parallel()

	r := contentReader(t)
	assert.ElementsMatch(t, []string{
		"MotorTown/Content/DataAsset/Cargos",
		"MotorTown/Content/DataAsset/Vehicles",
	}, pak.ListDataAssets(r))
}

func TestSearch(t *testing.T) {
	t.Parallel()

	r := contentReader(t)

	assert.Equal(t, []string{"MotorTown/Content/DataAsset/Cargos"}, pak.Search(r, "cargo"))
	assert.Equal(t, []string{"MotorTown/Content/DataAsset/Cargos"}, pak.Search(r, "CARGO"))
	assert.Empty(t, pak.Search(r, "nothing"))
}

func TestExtractAsset(t *testing.T) {
	t.Parallel()

	r := contentReader(t)
	outDir := t.TempDir()

	info, err := pak.ExtractAsset(r, "MotorTown/Content/DataAsset/Cargos", outDir)
	require.NoError(t, err)
	assert.Equal(t, "Cargos", info.Name)
	assert.Equal(t, 100, info.AssetBytes)
	assert.True(t, info.HasExp)
	assert.Equal(t, 50, info.ExpBytes)

	uasset, err := os.ReadFile(filepath.Join(outDir, "Cargos.uasset"))
	require.NoError(t, err)
	assert.Len(t, uasset, 100)
	uexp, err := os.ReadFile(filepath.Join(outDir, "Cargos.uexp"))
	require.NoError(t, err)
	assert.Len(t, uexp, 50)
}

func TestExtractAssetNoCompanion(t *testing.T) {
	t.Parallel()

	r := contentReader(t)
	outDir := t.TempDir()

	// The identifier may carry the extension; it is normalized away.
	info, err := pak.ExtractAsset(r, "MotorTown/Content/DataAsset/Vehicles.uasset", outDir)
	require.NoError(t, err)
	assert.Equal(t, "Vehicles", info.Name)
	assert.False(t, info.HasExp)

	_, err = os.Stat(filepath.Join(outDir, "Vehicles.uexp"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractAssetMissingPrimary(t *testing.T) {
	t.Parallel()

	r := contentReader(t)
	_, err := pak.ExtractAsset(r, "MotorTown/Content/DataAsset/Missing", t.TempDir())
	assert.ErrorIs(t, err, pak.ErrEntryNotFound)
}

func TestExtractBatch(t *testing.T) {
	t.Parallel()

	r := contentReader(t)
	outDir := t.TempDir()
	cfg := &pak.BatchConfig{Assets: []string{
		"MotorTown/Content/DataAsset/Cargos",
		"MotorTown/Content/DataAsset/Missing",
		"MotorTown/Content/DataAsset/Vehicles",
	}}

	var calls int
	manifest, failed, err := pak.ExtractBatch(r, cfg, outDir, func(name string, size int, err error) {
		calls++
		if name == "Missing" {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	})
	require.NoError(t, err)

	// One failed item does not abort the batch.
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, failed)
	require.Len(t, manifest.Extracted, 2)

	assert.Equal(t, "Cargos", manifest.Extracted[0].Name)
	assert.Equal(t, "MotorTown/Content/DataAsset/Cargos", manifest.Extracted[0].PakPath)
	assert.Equal(t, "Cargos.uasset", manifest.Extracted[0].UAsset)
	require.NotNil(t, manifest.Extracted[0].UExp)
	assert.Equal(t, "Cargos.uexp", *manifest.Extracted[0].UExp)

	assert.Equal(t, "Vehicles", manifest.Extracted[1].Name)
	assert.Nil(t, manifest.Extracted[1].UExp)
}

func TestManifestSave(t *testing.T) {
	t.Parallel()

	exp := "Cargos.uexp"
	manifest := &pak.Manifest{Extracted: []pak.ExtractedAsset{
		{Name: "Cargos", PakPath: "DataAsset/Cargos", UAsset: "Cargos.uasset", UExp: &exp},
		{Name: "Vehicles", PakPath: "DataAsset/Vehicles", UAsset: "Vehicles.uasset"},
	}}

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, manifest.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded pak.Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, manifest, &decoded)

	// A missing companion is serialized as an explicit null.
	assert.Contains(t, string(data), `"uexp": null`)
}

func TestLoadBatchConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "assets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"assets": ["DataAsset/Cargos", "DataAsset/Vehicles"]}`), 0o644))

	cfg, err := pak.LoadBatchConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"DataAsset/Cargos", "DataAsset/Vehicles"}, cfg.Assets)

	_, err = pak.LoadBatchConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
