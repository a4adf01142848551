// =============================================================================
// Invoice Automation - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (invoice)
//   ├── processCmd  (invoice process)
//   ├── validateCmd (invoice validate)
//   ├── renderCmd   (invoice render)
//   ├── inspectCmd  (invoice inspect headers|footer)
//   ├── cleanCmd    (invoice clean)
//   └── versionCmd  (invoice version)
//
// CONFIGURATION:
//   The root command owns the global flags and the helpers every subcommand
//   uses to load the .env file, the main configuration and the logger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/config"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to the .env file loaded before the configuration.
var envFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Invoice Automation - Summarize packing-list workbooks into invoice data",
	Long: `Invoice Automation reads packing-list spreadsheets (XLSX, XLSM or CSV),
finds every stacked table on the sheet, rebuilds per-row weights from grouped
values, aggregates quantities and amounts by PO, item and price, and produces
the compounded FOB summary used on invoices.

Key Features:
  - Per-supplier profiles (YAML or HJSON) with header synonym tables
  - Exact decimal arithmetic for weights, volumes and amounts
  - JSON, XML and formatted XLSX outputs
  - Concurrent processing with automatic archival

Example Usage:
  invoice process                        # Process every workbook in the input directory
  invoice process --file JF-0001.xlsx    # Process one workbook
  invoice validate                       # Check configuration without processing
  invoice render --input r.json --output r.xlsx`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file; defaults apply when it does not exist",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to a .env file with INVOICE_* overrides",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadMainConfig loads the .env file and then the main configuration.
func loadMainConfig() (*config.MainConfig, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	mainConfig, err := config.LoadMainConfigIfExists(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}
	return mainConfig, nil
}

// newLogger builds the slog logger described by the configuration.
//
// RETURNS:
//   - The logger, writing to stderr and, when log_file is set, to that file.
//   - A close function for the log file.
//   - An error if the log file cannot be opened.
func newLogger(mainConfig *config.MainConfig) (*slog.Logger, func(), error) {
	level := parseLevel(mainConfig.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closeFn := func() {}
	if mainConfig.LogFile != "" {
		f, err := os.OpenFile(mainConfig.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closeFn = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if mainConfig.LogFormat == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closeFn, nil
}

// parseLevel maps a log_level setting to a slog level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// quietLogger discards diagnostics for commands that print their own output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
