// Package main implements kgctl, the operator CLI for the knowledge
// engine (spec.md §6): ingest PDFs, run a search, evaluate accuracy,
// and rebuild relationships/communities.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "kgctl",
		Short: "Operate the knowledge graph retrieval engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults are used when omitted)")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newEvaluateCmd())
	root.AddCommand(newReindexCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
