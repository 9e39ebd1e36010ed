package main

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openfpga-tools/fabgen/internal/matrix"
)

var (
	bootstrapTile string
	bootstrapList bool
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create blank switch-matrix templates",
	Long: `Creates an all-zero switch-matrix CSV per tile type, with one column per
signal that can drive the matrix (arriving wires, BEL outputs) and one
row per signal the matrix drives (outgoing wires, BEL inputs).

Example:
  fabgen bootstrap --fabric fabric.csv
  fabgen bootstrap --tile CLB --list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fab, err := loadFabric()
		if err != nil {
			return err
		}
		out, err := outputDir()
		if err != nil {
			return err
		}

		names := fab.TileNames()
		if bootstrapTile != "" {
			if _, ok := fab.Tile(bootstrapTile); !ok {
				return fmt.Errorf("tile %q is not part of the fabric", bootstrapTile)
			}
			names = []string{bootstrapTile}
		}

		for _, name := range names {
			t, _ := fab.Tile(name)
			sources, sinks := t.SwitchMatrixAxes()
			m := matrix.NewBlank(name, sources, sinks)

			path := filepath.Join(out, name+"_switch_matrix.csv")
			if err := m.WriteCSV(path, false); err != nil {
				return err
			}
			log.Infof("wrote %s (%d sinks x %d sources)", path, len(m.Sinks()), len(m.Sources()))

			if bootstrapList {
				listPath := filepath.Join(out, name+"_switch_matrix.list")
				if err := m.WriteList(listPath); err != nil {
					return err
				}
				log.Infof("wrote %s", listPath)
			}
		}
		return nil
	},
}

func init() {
	bootstrapCmd.Flags().StringVar(&bootstrapTile, "tile", "", "bootstrap a single tile type")
	bootstrapCmd.Flags().BoolVar(&bootstrapList, "list", false, "also write the sparse list form")
	rootCmd.AddCommand(bootstrapCmd)
}
