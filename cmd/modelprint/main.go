package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// A missing .env is fine; keys may come from the real environment.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "modelprint",
		Short:   "modelprint — behavioral fingerprinting for LLM inference endpoints",
		Version: version,
	}

	root.AddCommand(
		newRunCmd(),
		newFingerprintCmd(),
		newCacheCmd(),
		newStatsCmd(),
	)

	err := root.Execute()
	_ = zap.L().Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
