package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openfpga-tools/fabgen/internal/config"
	"github.com/openfpga-tools/fabgen/internal/pnr"
)

var pnrCommand string

var pnrCmd = &cobra.Command{
	Use:   "pnr [-- tool arguments]",
	Short: "Run the external place-and-route tool",
	Long: `Runs the place-and-route tool in the output directory, where the
exported routing model lives. Arguments after -- are passed through.

Example:
  fabgen pnr -- --json design.json --write routed.json
  fabgen pnr --command nextpnr-generic`,
	RunE: func(cmd *cobra.Command, args []string) error {
		command := pnrCommand
		if command == "" {
			command = config.Get().PnrCommand
		}
		tool, err := pnr.Find(command)
		if err != nil {
			return err
		}
		log.Infof("using %s at %s", tool.Name, tool.Path)

		out, err := outputDir()
		if err != nil {
			return err
		}
		return tool.Run(args, out, nil)
	},
}

func init() {
	pnrCmd.Flags().StringVar(&pnrCommand, "command", "", "place-and-route command (default from configuration, then PATH probe)")
	rootCmd.AddCommand(pnrCmd)
}
