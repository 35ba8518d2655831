// Command pakrepack builds a mod archive from modified loose assets. Each
// input is classified to the archive path it should override; same-stem
// companion files are picked up automatically.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/mtmods/pak"
)

const keyEnvVar = "KEY"

var (
	app    = kingpin.New("pakrepack", "Create a mod pak archive from modified assets.")
	inputs = app.Flag("input", "Modified asset file to include.").Short('i').PlaceHolder("FILE").Strings()
	output = app.Flag("output", "Output archive path.").Short('o').Default("MotorTown-CustomContent.pak").String()
	args   = app.Arg("files", "Additional input files.").Strings()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	files := append(*inputs, *args...)
	if len(files) == 0 {
		fmt.Println("No input files specified.")
		app.Usage(nil)
		return
	}

	// The key is part of the tool's startup contract even though newly
	// authored archives are never encrypted.
	_ = godotenv.Load()
	if _, err := pak.KeyFromEnv(keyEnvVar); err != nil {
		die(err)
	}

	fmt.Printf("Creating mod archive: %s\n", *output)
	fmt.Println("  Version: 11")
	fmt.Println("  Encryption: none (mod files)")
	fmt.Println()

	out, err := os.Create(*output)
	if err != nil {
		die(err)
	}

	w := pak.NewWriter(out)
	result, err := pak.Repack(w, files, func(entry pak.RepackEntry, skipped bool) {
		if skipped {
			color.Yellow("  ! Skipping (not found): %s", entry.Source)
			return
		}
		color.Green("  + Added: %s -> %s", entry.Source, entry.PakPath)
	})
	if err != nil {
		out.Close()
		die(err)
	}
	if err := out.Close(); err != nil {
		die(err)
	}

	fmt.Println()
	color.Green("Created: %s (%d entries)", *output, len(result.Added))
	fmt.Println()
	fmt.Println("Installation:")
	fmt.Printf("  Copy %s to your game's Paks/ folder.\n", *output)
	fmt.Println("  The mod will override base game assets.")
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "pakrepack: %v\n", err)
	os.Exit(1)
}
