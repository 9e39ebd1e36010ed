package main

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openfpga-tools/fabgen/internal/bitstream"
)

var specCSV bool

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Build the bitstream specification",
	Long: `Maps every configuration feature of every tile type to its physical
frame bit and writes the result as JSON. Tiles with a hand-edited
<tile>_ConfigMem.csv next to their tile CSV use that mapping after
validation; all others are allocated on the fly.

Example:
  fabgen spec --fabric fabric.csv --output out
  fabgen spec --csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fab, err := loadFabric()
		if err != nil {
			return err
		}
		out, err := outputDir()
		if err != nil {
			return err
		}

		spec, err := bitstream.Build(fab)
		if err != nil {
			return err
		}

		jsonPath := filepath.Join(out, "spec.json")
		if err := spec.SaveJSON(jsonPath); err != nil {
			return err
		}
		log.Infof("wrote %s (%d tile types)", jsonPath, len(spec.Tiles))

		if specCSV {
			csvPath := filepath.Join(out, "spec.csv")
			if err := spec.WriteCSV(csvPath); err != nil {
				return err
			}
			log.Infof("wrote %s", csvPath)
		}
		return nil
	},
}

func init() {
	specCmd.Flags().BoolVar(&specCSV, "csv", false, "also write the flattened CSV form")
	rootCmd.AddCommand(specCmd)
}
