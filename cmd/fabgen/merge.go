package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openfpga-tools/fabgen/internal/matrix"
)

var (
	mergeCSV    string
	mergeList   string
	mergeTile   string
	mergeCounts bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a connection list into a switch-matrix CSV",
	Long: `Sets the flags named by a sparse connection list (source,sink pairs with
macro expansion) in a dense switch-matrix CSV, in place. Connections
already set are warned about and kept; names not on the matrix axes
abort the merge.

Example:
  fabgen merge --csv CLB_switch_matrix.csv --list CLB_switch_matrix.list --tile CLB`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := matrix.ParseCSV(mergeCSV, mergeTile)
		if err != nil {
			return err
		}
		if err := matrix.Merge(mergeList, m); err != nil {
			return err
		}
		if err := m.WriteCSV(mergeCSV, mergeCounts); err != nil {
			return err
		}
		log.Infof("merged %s into %s (%d connections)", mergeList, mergeCSV, len(m.Pairs()))
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeCSV, "csv", "", "switch-matrix CSV to update (required)")
	mergeCmd.Flags().StringVar(&mergeList, "list", "", "connection list to merge (required)")
	mergeCmd.Flags().StringVar(&mergeTile, "tile", "", "tile type the matrix belongs to (required)")
	mergeCmd.Flags().BoolVar(&mergeCounts, "counts", true, "annotate rows and columns with connection counts")
	_ = mergeCmd.MarkFlagRequired("csv")
	_ = mergeCmd.MarkFlagRequired("list")
	_ = mergeCmd.MarkFlagRequired("tile")
	rootCmd.AddCommand(mergeCmd)
}
