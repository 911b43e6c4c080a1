package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/gridline/contract-engine/internal/batch"
	"github.com/gridline/contract-engine/internal/ingestion"
	"github.com/gridline/contract-engine/internal/observability"
)

var batchFlags struct {
	configPath string
	dir        string
	verbose    bool
}

var batchCmd = &cobra.Command{
	Use:   "batch [documents...]",
	Short: "Run extraction across many contract documents",
	Long:  "Runs the extraction pipeline over every named document (or every file in --dir), isolating per-document failures and reporting progress as documents complete.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(batchFlags.configPath)
		if err != nil {
			return err
		}
		cfg.Verbose = cfg.Verbose || batchFlags.verbose
		log := newLogger(cfg.Verbose)

		baseDir, documentIDs, err := resolveDocuments(args)
		if err != nil {
			return err
		}

		eng, cleanup, err := buildEngine(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer cleanup()

		orchestrator, err := batch.New(eng, ingestion.DirectoryLoader{BaseDir: baseDir}, batch.Config{
			MaxConcurrency: cfg.MaxConcurrency,
			InterCallDelay: cfg.InterCallDelay(),
		}, log)
		if err != nil {
			return err
		}

		events := orchestrator.Subscribe()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range events {
				switch event.Kind {
				case batch.EventDocumentProcessed:
					if event.Outcome != nil && event.Outcome.Failed() {
						fmt.Printf("✗ %s: %s\n", event.DocumentID, event.Outcome.Failure.Cause)
					} else {
						fmt.Printf("✓ %s\n", event.DocumentID)
					}
				case batch.EventJobCompleted:
					fmt.Printf("Job finished: %s\n", event.Status)
				}
			}
		}()

		job, err := orchestrator.Run(ctx, documentIDs)
		wg.Wait()
		if err != nil {
			return err
		}

		observability.NewPrinter(os.Stdout).PrintBatchJob(job)
		return nil
	},
}

// resolveDocuments turns CLI arguments (or --dir) into a base directory and
// document IDs relative to it.
func resolveDocuments(args []string) (string, []string, error) {
	if batchFlags.dir != "" {
		entries, err := os.ReadDir(batchFlags.dir)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read directory %s: %w", batchFlags.dir, err)
		}
		var ids []string
		for _, entry := range entries {
			if !entry.IsDir() {
				ids = append(ids, entry.Name())
			}
		}
		if len(ids) == 0 {
			return "", nil, fmt.Errorf("no documents found in %s", batchFlags.dir)
		}
		return batchFlags.dir, ids, nil
	}

	if len(args) == 0 {
		return "", nil, fmt.Errorf("provide document paths or --dir")
	}
	ids := make([]string, len(args))
	for i, arg := range args {
		ids[i] = filepath.Base(arg)
	}
	return filepath.Dir(args[0]), ids, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchFlags.configPath, "config", "", "Path to JSON config file")
	batchCmd.Flags().StringVar(&batchFlags.dir, "dir", "", "Process every file in this directory")
	batchCmd.Flags().BoolVarP(&batchFlags.verbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.AddCommand(batchCmd)
}
