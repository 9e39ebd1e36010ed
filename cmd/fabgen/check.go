package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openfpga-tools/fabgen/internal/color"
	"github.com/openfpga-tools/fabgen/internal/configmem"
	"github.com/openfpga-tools/fabgen/internal/router"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a fabric description for problems",
	Long: `Runs diagnostic checks on the fabric description: per-tile capacity
against the frame grid, hand-edited ConfigMem mappings, and wire
offsets against the grid bounds.

Example:
  fabgen check --fabric fabric.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fab, err := loadFabric()
		if err != nil {
			return fmt.Errorf("%s", color.Failf("cannot load fabric: %v", err))
		}
		fmt.Printf("Checking fabric %s...\n\n", color.Bold(flagFabric))
		fmt.Println(color.Okf("Fabric loaded: %dx%d grid, %d tile types, %d frame bits x %d frames",
			fab.Cols(), fab.Rows(), len(fab.TileNames()), fab.FrameBitsPerRow(), fab.MaxFramesPerCol()))

		failed := 0

		fmt.Printf("\n%s\n", color.Header("Tile capacity"))
		capacity := fab.FrameBitsPerRow() * fab.MaxFramesPerCol()
		for _, name := range fab.TileNames() {
			t, _ := fab.Tile(name)
			bits := t.ConfigBits()
			if _, err := configmem.Allocate(name, fab.FrameBitsPerRow(), fab.MaxFramesPerCol(), bits); err != nil {
				fmt.Println(color.Failf("%s: %v", name, err))
				failed++
				continue
			}
			fmt.Println(color.Okf("%-12s %d of %d configuration bits (%d matrix)",
				name, bits, capacity, t.MatrixBits()))
		}

		fmt.Printf("\n%s\n", color.Header("ConfigMem mappings"))
		for _, name := range fab.TileNames() {
			t, _ := fab.Tile(name)
			path := t.ConfigMemPath()
			if _, err := os.Stat(path); err != nil {
				fmt.Println(color.Dim(name + ": no mapping file, will be allocated"))
				continue
			}
			if _, err := configmem.ParseCSV(path, fab.MaxFramesPerCol(), fab.FrameBitsPerRow(), t.ConfigBits()); err != nil {
				fmt.Println(color.Failf("%s: %v", name, err))
				failed++
				continue
			}
			fmt.Println(color.Okf("%s: %s valid", name, path))
		}

		fmt.Printf("\n%s\n", color.Header("Routing"))
		if m, err := router.Export(fab, nil); err != nil {
			fmt.Println(color.Failf("routing model: %v", err))
			failed++
		} else {
			fmt.Println(color.Okf("Routing model: %d pip records, %d IO constraints",
				len(m.Pips), len(m.Constraints)))
		}

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		fmt.Printf("\n%s\n", color.Header("Check complete"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
