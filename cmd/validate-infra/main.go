package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrCheckFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// configPath is read before settings load; the other persistent flags
// are bound into config.Settings.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "validate-infra",
	Short: "Validate connectivity to managed infrastructure services",
	Long: "validate-infra checks that a deployed app can reach and use its databases, cache, " +
		"search, object storage, messaging and inference endpoints, and reports what to fix.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML settings file")
	pf.BoolP("verbose", "v", false, "show details of passing checks")
	pf.Bool("parallel", false, "run service validators concurrently")
	pf.String("log-level", "warn", "diagnostic log level (debug, info, warn, error)")
	pf.Duration("timeout", 5*time.Minute, "bound on the whole run")
}
