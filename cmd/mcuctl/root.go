package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/mcukit/cmd/mcuctl/logger"
	"github.com/joshuapare/mcukit/internal/report"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	lang    string
	logDir  string
)

var rootCmd = &cobra.Command{
	Use:   "mcuctl",
	Short: "Exercise the mcukit runtime on a simulated Cortex-M board",
	Long: `mcuctl drives the mcukit memory primitives (slab allocator, bitmap,
ring buffer, spin lock) on a host-side simulated Cortex-M board. It can show how
an allocator lays out a region and run a small concurrent workload against it.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		opts := logger.Options{Enabled: verbose || logDir != "", LogDir: logDir}
		if verbose {
			opts.Level = slog.LevelDebug
		}
		return logger.Init(opts)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "en", "Locale for number formatting (BCP 47)")
	rootCmd.PersistentFlags().
		StringVar(&logDir, "log-dir", "", "Write debug logs to a dated file in this directory")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printer returns the report printer for --lang.
func printer() (*report.Printer, error) {
	return report.ForLang(lang)
}
