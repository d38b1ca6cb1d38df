package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var docsDir string

var genDocsCmd = &cobra.Command{
	Use:    "gendocs",
	Short:  "Generate markdown documentation for every command",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := os.MkdirAll(docsDir, 0o755); err != nil {
			return fmt.Errorf("create docs directory: %w", err)
		}
		if err := doc.GenMarkdownTree(rootCmd, docsDir); err != nil {
			return fmt.Errorf("generate markdown docs: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Documentation generated in %s\n", docsDir)
		return nil
	},
}

func init() {
	genDocsCmd.Flags().StringVar(&docsDir, "dir", "./docs", "output directory")
	rootCmd.AddCommand(genDocsCmd)
}
