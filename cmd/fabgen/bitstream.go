package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openfpga-tools/fabgen/internal/bitstream"
	"github.com/openfpga-tools/fabgen/internal/util"
)

var (
	bitstreamSpec string
	bitstreamFASM string
	bitstreamBin  string
	bitstreamHex  bool
)

var bitstreamCmd = &cobra.Command{
	Use:   "bitstream",
	Short: "Compile a feature list into the configuration bitstream",
	Long: `Compiles a routed design's feature list against a previously built
bitstream specification and writes the binary configuration image.

Example:
  fabgen bitstream --features design.fasm
  fabgen bitstream --spec out/spec.json --features design.fasm --bin design.bin --hex`,
	RunE: func(cmd *cobra.Command, args []string) error {
		specPath := bitstreamSpec
		if specPath == "" {
			specPath = filepath.Join(flagOutput, "spec.json")
		}
		spec, err := bitstream.LoadSpec(specPath)
		if err != nil {
			return err
		}

		settings, err := bitstream.ParseFASM(bitstreamFASM)
		if err != nil {
			return err
		}

		image, err := bitstream.Compile(settings, spec)
		if err != nil {
			return err
		}

		binPath := bitstreamBin
		if binPath == "" {
			out, err := outputDir()
			if err != nil {
				return err
			}
			binPath = filepath.Join(out, "bitstream.bin")
		}
		if err := os.WriteFile(binPath, image, 0644); err != nil {
			return err
		}
		log.Infof("wrote %s (%d bytes, %d features)", binPath, len(image), len(settings))

		if bitstreamHex {
			fmt.Print(util.HexDump(image))
		}
		return nil
	},
}

func init() {
	bitstreamCmd.Flags().StringVar(&bitstreamSpec, "spec", "", "bitstream specification JSON (default <output>/spec.json)")
	bitstreamCmd.Flags().StringVar(&bitstreamFASM, "features", "", "feature list of the routed design (required)")
	bitstreamCmd.Flags().StringVar(&bitstreamBin, "bin", "", "binary image path (default <output>/bitstream.bin)")
	bitstreamCmd.Flags().BoolVar(&bitstreamHex, "hex", false, "print a hex dump of the image")
	_ = bitstreamCmd.MarkFlagRequired("features")
	rootCmd.AddCommand(bitstreamCmd)
}
