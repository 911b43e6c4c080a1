// Package main provides the contract extraction engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "contract_engine",
	Short: "Energy-service contract extraction engine",
	Long:  "Classifies energy-service contract documents, extracts structured field values with per-field confidence, and derives deduplicated business rules using pattern and AI extraction layers.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
