// =============================================================================
// Invoice Automation - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command of the tool. It
// runs the per-workbook pipeline over every input file.
//
// COMMAND USAGE:
//   invoice process [flags]
//
// FLAGS:
//   --dry-run      : Run the pipeline without writing outputs or archiving
//   --file         : Process a single file instead of scanning the input dir
//   --profile      : Force a profile code instead of matching by file name
//   --sheet        : Worksheet name, overriding the profile
//   --sheet-index  : 1-based worksheet index, overriding the profile
//
// PROCESSING PIPELINE:
//   1. Load configuration and profiles
//   2. Discover input workbooks
//   3. Match each workbook to a profile
//   4. Process workbooks concurrently, at most max_concurrency at a time
//   5. Write the run summary and error log
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/ginjaninja78/invoice-automation/internal/config"
	"github.com/ginjaninja78/invoice-automation/internal/converter"
	"github.com/ginjaninja78/invoice-automation/internal/xlsxparser"
	"github.com/ginjaninja78/invoice-automation/pkg/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun runs the pipeline without writing output files.
var dryRun bool

// filePath is the path to a specific file to process.
var filePath string

// profileCode forces a profile.
var profileCode string

// sheetName and sheetIndex override the profile's sheet selection.
var (
	sheetName  string
	sheetIndex int
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process packing-list workbooks into invoice summaries",
	Long: `The process command scans the input directory for XLSX, XLSM and CSV
workbooks, matches each one to a profile, and runs the summary pipeline on it.

Workbooks are processed concurrently, bounded by max_concurrency. Each workbook
is independent: with continue_on_error (the default) a failure in one does not
stop the others.

On successful processing:
  - The configured outputs (json, xml, xlsx) are written to the output directory
  - Data-quality issues are written to a per-workbook issue log
  - With archive_on_success, the workbook is moved to the input archive

On error:
  - The error is recorded in the run's error log
  - The workbook remains in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the pipeline without writing outputs or archiving")
	processCmd.Flags().StringVar(&filePath, "file", "", "Process only this file")
	processCmd.Flags().StringVar(&profileCode, "profile", "", "Use this profile code for every file")
	processCmd.Flags().StringVar(&sheetName, "sheet", "", "Worksheet name (overrides the profile)")
	processCmd.Flags().IntVar(&sheetIndex, "sheet-index", 0, "1-based worksheet index (overrides the profile)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess orchestrates a batch run.
func runProcess(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	startTime := time.Now()
	runID := uuid.New().String()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	mainConfig, err := loadMainConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(mainConfig)
	if err != nil {
		return err
	}
	defer closeLog()
	logger = logger.With("run_id", runID)

	profiles, err := config.LoadProfiles(mainConfig.ConfigsDir)
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	for _, p := range profiles {
		for _, c := range p.SynonymConflicts() {
			logger.Warn("synonym conflict", "profile", p.ProfileCode, "conflict", c.String())
		}
	}
	logger.Info("configuration loaded", "profiles", len(profiles), "dry_run", dryRun)

	if !dryRun {
		if err := config.EnsureDirectories(mainConfig); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if filePath != "" {
		if !utils.FileExists(filePath) {
			return fmt.Errorf("file not found: %s", filePath)
		}
		inputFiles = []string{filePath}
	} else {
		fm := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
		inputFiles, err = fm.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		fmt.Println("No workbooks found in the input directory.")
		return nil
	}
	fmt.Printf("Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 3 + 4: MATCH PROFILES AND PROCESS CONCURRENTLY
	// =========================================================================
	// A buffered channel acts as a semaphore bounding the number of workbooks
	// in flight. Without continue_on_error the first failure cancels the rest.

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	options := converter.Options{
		DryRun: dryRun,
		Sheet:  xlsxparser.SheetSelector{Name: sheetName, Index: sheetIndex},
		RunID:  runID,
	}

	results := processFiles(ctx, cancel, inputFiles, profiles, mainConfig, options, logger)

	// =========================================================================
	// STEP 5: SUMMARY
	// =========================================================================

	summary := utils.ProcessingSummary{
		RunID:      runID,
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}
	var errorEntries []utils.ErrorLogEntry

	for _, result := range results {
		name := filepath.Base(result.FilePath)
		if result.Success {
			summary.SuccessfulFiles++
			summary.TotalTables += result.Stats.Tables
			summary.TotalRows += result.Stats.Rows
			summary.AggregationKeys += result.Stats.AggregationKeys
			summary.ValidationIssues += result.Stats.ValidationIssues
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				Profile:     result.Profile,
				OutputFiles: result.OutputFiles,
				Tables:      result.Stats.Tables,
				Rows:        result.Stats.Rows,
				Keys:        result.Stats.AggregationKeys,
				ProcessTime: result.Stats.ProcessingTime,
			})
			fmt.Printf("  ✓ %s (%d table(s), %d key(s))\n", name, result.Stats.Tables, result.Stats.AggregationKeys)
			continue
		}

		summary.FailedFiles++
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: result.Error.Error(),
		})
		errorEntries = append(errorEntries, utils.ErrorLogEntry{
			Timestamp:    time.Now(),
			FileName:     name,
			ErrorType:    "processing",
			ErrorMessage: result.Error.Error(),
		})
		fmt.Printf("  ✗ %s: %v\n", name, result.Error)
	}
	summary.EndTime = time.Now()

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if !dryRun {
		if path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir); err != nil {
			logger.Warn("failed to write summary", "error", err)
		} else {
			logger.Info("wrote summary", "path", path)
		}
		if path, err := utils.WriteErrorLog(errorEntries, mainConfig.OutputDir); err != nil {
			logger.Warn("failed to write error log", "error", err)
		} else if path != "" {
			fmt.Printf("\nErrors have been logged to %s\n", path)
		}
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processFiles runs one converter per file, at most MaxConcurrency at a
// time, and returns the results in input order.
func processFiles(
	ctx context.Context,
	cancel context.CancelFunc,
	inputFiles []string,
	profiles map[string]*config.ProfileConfig,
	mainConfig *config.MainConfig,
	options converter.Options,
	logger *slog.Logger,
) []converter.Result {
	var wg sync.WaitGroup
	sem := make(chan struct{}, mainConfig.MaxConcurrency)
	results := make([]converter.Result, len(inputFiles))

	for i, file := range inputFiles {
		wg.Add(1)

		go func(i int, path string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = converter.Result{FilePath: path, Error: ctx.Err()}
				return
			}

			profile, err := config.SelectProfile(path, profiles, profileCode)
			if err != nil {
				results[i] = converter.Result{FilePath: path, Error: err}
			} else {
				results[i] = converter.New(path, profile, mainConfig, options, logger).Run(ctx)
			}

			if !results[i].Success && !mainConfig.ShouldContinueOnError() {
				cancel()
			}
		}(i, file)
	}

	wg.Wait()
	return results
}
