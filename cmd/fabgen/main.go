package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openfpga-tools/fabgen/internal/config"
	"github.com/openfpga-tools/fabgen/internal/fabric"
)

var (
	flagVerbose bool
	flagFabric  string
	flagOutput  string
)

var rootCmd = &cobra.Command{
	Use:   "fabgen",
	Short: "eFPGA fabric description compiler",
	Long: `Fabgen compiles a CSV fabric description into the artifacts an eFPGA
flow needs: switch-matrix templates, configuration-memory mappings, the
bitstream specification, the routing model for place-and-route, and the
final configuration bitstream.

The fabric is described by a fabric CSV (tile grid plus parameters),
per-tile CSVs (ports, BELs, switch matrix) and BEL descriptor CSVs.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	cfg := config.Get()
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagFabric, "fabric", orDefault(cfg.FabricCSV, "fabric.csv"), "fabric CSV file")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", orDefault(cfg.OutputDir, "fabgen_out"), "output directory")
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// loadFabric loads the fabric named by --fabric.
func loadFabric() (*fabric.Fabric, error) {
	return fabric.Load(flagFabric)
}

// outputDir ensures the --output directory exists and returns it.
func outputDir() (string, error) {
	if err := os.MkdirAll(flagOutput, 0755); err != nil {
		return "", fmt.Errorf("cannot create output directory: %w", err)
	}
	return flagOutput, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
