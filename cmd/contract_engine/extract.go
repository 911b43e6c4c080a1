package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gridline/contract-engine/internal/ingestion"
	"github.com/gridline/contract-engine/internal/observability"
)

var extractFlags struct {
	configPath string
	verbose    bool
}

var extractCmd = &cobra.Command{
	Use:   "extract <document>",
	Short: "Classify a contract document and extract structured data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(extractFlags.configPath)
		if err != nil {
			return err
		}
		cfg.Verbose = cfg.Verbose || extractFlags.verbose
		log := newLogger(cfg.Verbose)

		eng, cleanup, err := buildEngine(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer cleanup()

		doc, err := ingestion.LoadFile(args[0])
		if err != nil {
			return err
		}

		result, err := eng.ClassifyAndExtract(ctx, doc)
		if err != nil {
			return err
		}

		observability.NewPrinter(os.Stdout).PrintExtractionResult(result)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractFlags.configPath, "config", "", "Path to JSON config file")
	extractCmd.Flags().BoolVarP(&extractFlags.verbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.AddCommand(extractCmd)
}
