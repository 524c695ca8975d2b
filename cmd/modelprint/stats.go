package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hypernym-ai/modelprint/pkg/config"
	"github.com/hypernym-ai/modelprint/pkg/ledger"
)

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-model result statistics from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := config.InitLogger(cfg.Log); err != nil {
				return err
			}

			records, err := ledger.Read(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			summaries := ledger.Summarize(records)
			if len(summaries) == 0 {
				fmt.Println("No results recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPROVIDER\tTOTAL\tSUCCESS\tFAILED\tMEAN SIMILARITY")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.4f\n",
					s.Model, s.Provider, s.Total, s.Success, s.Failed, s.MeanSimilarity)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modelprint.yaml", "path to config file")
	return cmd
}
