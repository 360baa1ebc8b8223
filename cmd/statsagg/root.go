package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "statsagg",
		Short:         "Ranked battle statistics aggregator",
		Long:          "Aggregate ranked battle logs into win rates, pair, trio and 3v3 statistics and publish them as JSON.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newInspectCmd())
	return root
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func defaultOutputRoot() string {
	if v := os.Getenv("OUTPUT_ROOT"); v != "" {
		return v
	}
	return "data/output"
}
