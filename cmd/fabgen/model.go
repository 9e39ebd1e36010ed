package main

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openfpga-tools/fabgen/internal/config"
	"github.com/openfpga-tools/fabgen/internal/router"
)

// uniformDelay applies the configured pip delay to every pip.
type uniformDelay float64

func (d uniformDelay) PipDelay(tile, key, source, sink string) float64 {
	return float64(d)
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Export the routing model",
	Long: `Exports the fabric's routing resources for the place-and-route tool:
pip records (tile-internal from the switch matrices, tile-external from
the derived wires), BEL records in the legacy and the verbose form, and
IO constraint lines.

Example:
  fabgen model --fabric fabric.csv --output out`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fab, err := loadFabric()
		if err != nil {
			return err
		}
		out, err := outputDir()
		if err != nil {
			return err
		}

		m, err := router.Export(fab, uniformDelay(config.Get().PipDelay))
		if err != nil {
			return err
		}

		writers := []struct {
			name  string
			write func(string) error
		}{
			{"pips.txt", m.WritePips},
			{"bels.txt", m.WriteBels},
			{"bels_v2.txt", m.WriteBelsVerbose},
			{"constraints.txt", m.WriteConstraints},
		}
		for _, w := range writers {
			path := filepath.Join(out, w.name)
			if err := w.write(path); err != nil {
				return err
			}
			log.Infof("wrote %s", path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
}
