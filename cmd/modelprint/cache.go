package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hypernym-ai/modelprint/pkg/cache"
	"github.com/hypernym-ai/modelprint/pkg/config"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := config.InitLogger(cfg.Log); err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Entries: %d\nHits:    %d\nMisses:  %d\n", stats.Entries, stats.Hits, stats.Misses)
			return nil
		},
	}

	var providerName string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := config.InitLogger(cfg.Log); err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			scope := cache.ScopeAll
			if providerName != "" {
				scope = providerName
			}
			if err := store.Clear(cmd.Context(), scope); err != nil {
				return err
			}
			if providerName != "" {
				fmt.Printf("Cache entries for provider %q cleared.\n", providerName)
			} else {
				fmt.Println("All cache entries cleared.")
			}
			return nil
		},
	}
	clearCmd.Flags().StringVar(&providerName, "provider", "", "only clear entries for this provider")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "modelprint.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
