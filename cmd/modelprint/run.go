package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hypernym-ai/modelprint/pkg/config"
	"github.com/hypernym-ai/modelprint/pkg/dispatch"
	"github.com/hypernym-ai/modelprint/pkg/embed"
	"github.com/hypernym-ai/modelprint/pkg/fingerprint"
	"github.com/hypernym-ai/modelprint/pkg/ledger"
	"github.com/hypernym-ai/modelprint/pkg/models"
	"github.com/hypernym-ai/modelprint/pkg/provider"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		setupSel   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a test setup and record fingerprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := config.InitLogger(cfg.Log); err != nil {
				return err
			}

			setup, err := cfg.Setup(setupSel)
			if err != nil {
				return err
			}
			if len(cfg.Providers) == 0 {
				return fmt.Errorf("no providers configured")
			}

			registry, err := provider.NewRegistry(cfg.Providers)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			embedder := embed.NewClient(cfg.Embedding.APIKey, cfg.Embedding.Model,
				embed.WithBaseURL(cfg.Embedding.URL))

			d := dispatch.New(store, registry, dispatch.Config{
				Workers:        cfg.Dispatch.Workers,
				MaxAttempts:    cfg.Dispatch.MaxAttempts,
				InitialBackoff: cfg.Dispatch.InitialBackoff,
				MaxBackoff:     cfg.Dispatch.MaxBackoff,
				Timeout:        cfg.Dispatch.Timeout,
				Params: provider.Params{
					Temperature: cfg.Generation.Temperature,
					MaxTokens:   cfg.Generation.MaxTokens,
				},
				OnProgress: func(done, total int) {
					fmt.Printf("\r  %d/%d requests", done, total)
					if done == total {
						fmt.Println()
					}
				},
			})

			runs := setup.Runs
			if runs <= 0 {
				runs = 1
			}
			perRun := setup.RequestsPerRun
			if perRun <= 0 {
				perRun = 5
			}

			ctx := cmd.Context()
			writer := ledger.NewWriter(cfg.Ledger.Path)
			var success, failed int

			for run := 0; run < runs; run++ {
				runID := uuid.NewString()
				fmt.Printf("Run %d/%d (%s)\n", run+1, runs, runID)

				for _, tc := range setup.Tests {
					specs := expandTest(tc, run, perRun)
					results := d.Run(ctx, setup.InputText, specs)
					sims := similarities(ctx, embedder, setup.ReferenceText, results)

					records := buildRecords(runID, setup, registry, results, sims)
					if err := writer.Append(records); err != nil {
						return fmt.Errorf("append results: %w", err)
					}
					for _, res := range results {
						if res.OK() {
							success++
						} else {
							failed++
						}
					}
				}
			}

			fmt.Printf("\nDispatched %d requests: %d succeeded, %d failed\n",
				success+failed, success, failed)

			records, err := ledger.Read(cfg.Ledger.Path)
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}
			summaries := computeFingerprints(records)
			if err := writeFingerprints(cfg.FingerprintsPath, summaries); err != nil {
				return err
			}
			fmt.Printf("Fingerprints written to %s\n\n", cfg.FingerprintsPath)
			return printFingerprints(summaries)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modelprint.yaml", "path to config file")
	cmd.Flags().StringVarP(&setupSel, "setup", "s", "0", "setup to run, by name or index")
	return cmd
}

// expandTest produces one spec per repetition. Indices are global across
// runs so each repetition resolves to a distinct cache entry.
func expandTest(tc config.TestConfig, run, perRun int) []models.TestSpec {
	specs := make([]models.TestSpec, 0, perRun)
	for j := 0; j < perRun; j++ {
		specs = append(specs, models.TestSpec{
			Model:    tc.Model,
			Provider: tc.Provider,
			Class:    tc.Class,
			Payload:  tc.Payload,
			Index:    run*perRun + j,
		})
	}
	return specs
}

// similarities scores the successful responses against the reference text.
// The returned slice is parallel to results; failed slots hold 0. An
// embedding failure degrades the run to unscored rather than aborting it.
func similarities(ctx context.Context, embedder *embed.Client, reference string, results []models.RawResponse) []float64 {
	sims := make([]float64, len(results))

	var texts []string
	var idx []int
	for i, res := range results {
		if res.OK() {
			texts = append(texts, res.Text)
			idx = append(idx, i)
		}
	}
	if len(texts) == 0 {
		return sims
	}

	scored, err := fingerprint.Similarities(ctx, embedder, reference, texts)
	if err != nil {
		zap.L().Warn("similarity scoring failed", zap.Error(err))
		return sims
	}
	for i, s := range scored {
		sims[idx[i]] = s
	}
	return sims
}

func buildRecords(runID string, setup config.Setup, registry *provider.Registry, results []models.RawResponse, sims []float64) []models.ResultRecord {
	records := make([]models.ResultRecord, 0, len(results))
	for i, res := range results {
		spec := res.Spec

		reasoning := false
		if adapter, err := registry.Get(spec.Provider); err == nil {
			reasoning = adapter.IsReasoning(spec.Model)
		}

		rec := models.ResultRecord{
			Timestamp:      time.Now().UTC(),
			RunID:          runID,
			Model:          spec.DisplayModel(),
			Provider:       spec.Provider,
			TestClass:      spec.Class,
			RequestIndex:   spec.Index,
			InputText:      setup.InputText,
			Payload:        spec.Payload,
			Response:       res.Text,
			Similarity:     sims[i],
			ResponseLength: len(res.Text),
			IsReasoning:    reasoning,
			Status:         models.StatusSuccess,
			Error:          res.Err,
		}
		if !res.OK() {
			rec.Status = models.StatusFailed
		}
		records = append(records, rec)
	}
	return records
}
