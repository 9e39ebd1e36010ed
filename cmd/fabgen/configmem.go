package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openfpga-tools/fabgen/internal/configmem"
)

var configmemCmd = &cobra.Command{
	Use:   "configmem",
	Short: "Allocate configuration-memory mappings",
	Long: `Allocates each tile type's configuration bits onto its frame grid and
writes the mapping next to the tile CSV as <tile>_ConfigMem.csv. An
existing mapping file is overwritten; hand-edited mappings should be
kept under version control.

Example:
  fabgen configmem --fabric fabric.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fab, err := loadFabric()
		if err != nil {
			return err
		}

		for _, name := range fab.TileNames() {
			t, _ := fab.Tile(name)
			frames, err := configmem.Allocate(name, fab.FrameBitsPerRow(), fab.MaxFramesPerCol(), t.ConfigBits())
			if err != nil {
				return err
			}
			path := t.ConfigMemPath()
			if err := configmem.WriteCSV(path, frames); err != nil {
				return err
			}
			log.Infof("wrote %s (%d bits)", path, t.ConfigBits())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configmemCmd)
}
