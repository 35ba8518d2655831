// Command pakextract extracts assets from a pak archive: listing, searching,
// single-asset extraction, and batch extraction driven by a JSON config.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/mtmods/pak"
)

const (
	defaultPakFile = "MotorTown-WindowsServer.pak"
	defaultAsset   = "MotorTown/Content/DataAsset/Cargos"
	outDir         = "out"
	keyEnvVar      = "KEY"
)

var (
	app        = kingpin.New("pakextract", "Extract assets from a MotorTown pak archive.")
	pakFile    = app.Flag("pak", "Archive to open.").Default(defaultPakFile).String()
	listAssets = app.Flag("list", "Show all DataAsset files in the archive.").Bool()
	configPath = app.Flag("config", "Batch extract assets listed in a JSON config.").PlaceHolder("FILE").String()
	pattern    = app.Flag("search", "List assets whose path contains a pattern.").PlaceHolder("PATTERN").String()
	assetPath  = app.Arg("asset", "Asset path to extract.").Default(defaultAsset).String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Key material may live in a .env file next to the tool.
	_ = godotenv.Load()
	key, err := pak.KeyFromEnv(keyEnvVar)
	if err != nil {
		die(err)
	}

	fmt.Printf("Opening archive: %s\n", *pakFile)
	r, err := pak.OpenFile(*pakFile, pak.WithKey(key))
	if err != nil {
		die(err)
	}
	defer r.Close()

	switch {
	case *listAssets:
		err = runList(r)
	case *pattern != "":
		err = runSearch(r, *pattern)
	case *configPath != "":
		err = runBatch(r, *configPath)
	default:
		err = runSingle(r, *assetPath)
	}
	if err != nil {
		die(err)
	}
}

func runList(r *pak.Reader) error {
	fmt.Println("=== Available DataAsset files ===")
	assets := pak.ListDataAssets(r)
	for _, asset := range assets {
		fmt.Printf("  %s\n", asset)
	}
	fmt.Printf("Total: %d DataAsset files\n", len(assets))
	return nil
}

func runSearch(r *pak.Reader, pattern string) error {
	fmt.Printf("=== Searching for assets containing %q ===\n", pattern)
	matches := pak.Search(r, pattern)
	for _, asset := range matches {
		fmt.Printf("  %s\n", asset)
	}
	fmt.Printf("Total: %d matching assets\n", len(matches))
	return nil
}

func runBatch(r *pak.Reader, configPath string) error {
	fmt.Printf("Loading config: %s\n", configPath)
	cfg, err := pak.LoadBatchConfig(configPath)
	if err != nil {
		return err
	}

	fmt.Printf("Extracting %d assets to %s/\n", len(cfg.Assets), outDir)
	manifest, failed, err := pak.ExtractBatch(r, cfg, outDir, func(name string, size int, err error) {
		if err != nil {
			color.Red("  %s ... FAILED: %v", name, err)
			return
		}
		fmt.Printf("  %s ... OK (%d bytes)\n", name, size)
	})
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(outDir, "manifest.json")
	if err := manifest.Save(manifestPath); err != nil {
		return err
	}

	fmt.Printf("\n=== Extracted %d assets", len(manifest.Extracted))
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println(" ===")
	fmt.Printf("Manifest: %s\n", manifestPath)
	return nil
}

func runSingle(r *pak.Reader, asset string) error {
	fmt.Printf("Extracting: %s%s\n", asset, pak.AssetExt)
	info, err := pak.ExtractAsset(r, asset, ".")
	if err != nil {
		return err
	}

	fmt.Printf("  uasset: %d bytes\n", info.AssetBytes)
	if info.HasExp {
		fmt.Printf("  uexp: %d bytes\n", info.ExpBytes)
	} else {
		fmt.Println("  No .uexp file")
	}

	color.Green("Saved: %s%s", info.Name, pak.AssetExt)
	if info.HasExp {
		color.Green("Saved: %s%s", info.Name, pak.CompanionExt)
	}
	return nil
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "pakextract: %v\n", err)
	os.Exit(1)
}
