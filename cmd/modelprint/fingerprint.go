package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hypernym-ai/modelprint/pkg/config"
	"github.com/hypernym-ai/modelprint/pkg/fingerprint"
	"github.com/hypernym-ai/modelprint/pkg/ledger"
	"github.com/hypernym-ai/modelprint/pkg/models"
)

func newFingerprintCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Recompute model fingerprints from the result ledger",
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
			summaries := computeFingerprints(records)
			if len(summaries) == 0 {
				fmt.Println("No scorable results in the ledger.")
				return nil
			}
			if err := writeFingerprints(cfg.FingerprintsPath, summaries); err != nil {
				return err
			}
			fmt.Printf("Fingerprints written to %s\n\n", cfg.FingerprintsPath)
			return printFingerprints(summaries)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modelprint.yaml", "path to config file")
	return cmd
}

type seriesKey struct {
	Model string
	Class string
}

// computeFingerprints derives per-model fingerprints from ledger records.
// Fingerprints are always rebuilt from scratch; nothing incremental is kept.
// Only successful rows contribute, grouped into runs by run ID.
func computeFingerprints(records []models.ResultRecord) []models.FingerprintSummary {
	bySeries := make(map[seriesKey]map[string][]float64)
	var order []seriesKey
	for _, r := range records {
		if r.Status != models.StatusSuccess {
			continue
		}
		k := seriesKey{Model: r.Model, Class: r.TestClass}
		if bySeries[k] == nil {
			bySeries[k] = make(map[string][]float64)
			order = append(order, k)
		}
		bySeries[k][r.RunID] = append(bySeries[k][r.RunID], r.Similarity)
	}

	summaries := make([]models.FingerprintSummary, 0, len(order))
	for _, k := range order {
		byRun := bySeries[k]
		runIDs := make([]string, 0, len(byRun))
		for id := range byRun {
			runIDs = append(runIDs, id)
		}
		sort.Strings(runIDs)

		var runs []models.FingerprintMetrics
		for _, id := range runIDs {
			m, err := fingerprint.Compute(byRun[id])
			if err != nil {
				zap.L().Debug("skipping run with too few samples",
					zap.String("model", k.Model),
					zap.String("run_id", id),
				)
				continue
			}
			runs = append(runs, m)
		}
		summaries = append(summaries, fingerprint.Summarize(k.Model, k.Class, runs))
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Model != summaries[j].Model {
			return summaries[i].Model < summaries[j].Model
		}
		return summaries[i].TestClass < summaries[j].TestClass
	})
	return summaries
}

func writeFingerprints(path string, summaries []models.FingerprintSummary) error {
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fingerprints: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fingerprints: %w", err)
	}
	return nil
}

func printFingerprints(summaries []models.FingerprintSummary) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tCLASS\tRUNS\tCV\tRANGE\tCONSISTENCY")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f ± %.4f\t%.4f ± %.4f\t%.4f ± %.4f\n",
			s.Model, s.TestClass, s.RunsCompleted,
			s.CVMean, s.CVStd,
			s.RangeMean, s.RangeStd,
			s.ConsistencyMean, s.ConsistencyStd)
	}
	return w.Flush()
}
