// =============================================================================
// Invoice Automation - Converter Module
// =============================================================================
//
// This module contains the per-workbook pipeline. It takes one packing-list
// workbook from grid reading to the finished summary report.
//
// CONVERSION PIPELINE:
//   1. Open the worksheet (XLSX/XLSM via excelize, CSV via encoding/csv)
//   2. Locate every header row (one per stacked table)
//   3. Map columns on the first header row and check required fields
//   4. Extract one table per header row
//   5. Per table: validate raw values, compute CBM, distribute group values,
//      aggregate by business key
//   6. Compound the FOB summary and assemble the report
//   7. Write the configured outputs (json / xml / xlsx)
//   8. Archive the processed workbook
//
// ERROR TIERS:
//   Cell-level problems are logged and recorded as validation issues; the
//   pipeline substitutes a safe value and carries on. Structural problems
//   (no header, missing required column, unreadable file) stop the workbook.
//
// CONCURRENCY:
//   A Converter owns all of its state, so workbooks can be processed in
//   separate goroutines. Nothing is shared between converters except the
//   read-only profile.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/invoice-automation/internal/aggregate"
	"github.com/ginjaninja78/invoice-automation/internal/config"
	"github.com/ginjaninja78/invoice-automation/internal/csvparser"
	"github.com/ginjaninja78/invoice-automation/internal/processor"
	"github.com/ginjaninja78/invoice-automation/internal/report"
	"github.com/ginjaninja78/invoice-automation/internal/sheet"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/ginjaninja78/invoice-automation/internal/validation"
	"github.com/ginjaninja78/invoice-automation/internal/xlsxparser"
	"github.com/ginjaninja78/invoice-automation/internal/xlsxwriter"
	"github.com/ginjaninja78/invoice-automation/internal/xmlwriter"
	"github.com/ginjaninja78/invoice-automation/pkg/utils"
	"github.com/google/uuid"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single workbook.
type Result struct {
	// FilePath is the path to the input workbook.
	FilePath string

	// Profile is the code of the profile used.
	Profile string

	// OutputFiles are the files written, in json, xml, xlsx order.
	// Empty on failure and in dry-run mode.
	OutputFiles []string

	// ArchivePath is where the input was moved, if archived.
	ArchivePath string

	// Report is the assembled summary. It is set whenever the pipeline got
	// as far as STEP 6, including dry runs.
	Report *report.Report

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Issues are the data-quality problems found.
	Issues []*validation.ValidationError

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// Tables is the number of header rows found.
	Tables int

	// TablesWithData is the number of tables with at least one data row.
	TablesWithData int

	// TablesAggregated is the number of tables folded into the aggregation.
	TablesAggregated int

	// Rows is the number of data rows across all tables.
	Rows int

	// AggregationKeys is the number of distinct business keys.
	AggregationKeys int

	// ValidationIssues is the number of data-quality issues.
	ValidationIssues int

	// ProcessingTime is the time taken to process the workbook.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options adjusts a single run.
type Options struct {
	// DryRun runs the pipeline without writing outputs or archiving.
	DryRun bool

	// Sheet overrides the profile's sheet selection when set.
	Sheet xlsxparser.SheetSelector

	// RunID identifies the batch in logs and report metadata. A new UUID is
	// generated when empty.
	RunID string
}

// Converter processes a single workbook.
type Converter struct {
	inputPath  string
	profile    *config.ProfileConfig
	mainConfig *config.MainConfig
	files      *utils.FileManager
	options    Options
	logger     *slog.Logger
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - inputPath: The workbook to process.
//   - profile: A prepared profile (see config.ProfileConfig.Prepare).
//   - mainConfig: The main application configuration.
//   - options: Run options.
//   - logger: The base logger; the converter adds file and run attributes.
func New(inputPath string, profile *config.ProfileConfig, mainConfig *config.MainConfig, options Options, logger *slog.Logger) *Converter {
	if options.RunID == "" {
		options.RunID = uuid.New().String()
	}

	files := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
	files.ArchiveOnSuccess = mainConfig.ArchiveOnSuccess
	files.UseDateSubdirs = mainConfig.DatedArchives

	return &Converter{
		inputPath:  inputPath,
		profile:    profile,
		mainConfig: mainConfig,
		files:      files,
		options:    options,
		logger: logger.With(
			"file", filepath.Base(inputPath),
			"profile", profile.ProfileCode,
			"run_id", options.RunID,
		),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline for the workbook. Cancellation is checked
// between steps.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{
		FilePath: c.inputPath,
		Profile:  c.profile.ProfileCode,
	}
	fail := func(err error) Result {
		result.Error = err
		result.Stats.ProcessingTime = time.Since(startTime)
		c.logger.Error("processing failed", "error", err)
		return result
	}

	c.logger.Info("processing workbook")

	// =========================================================================
	// STEP 1: OPEN WORKSHEET
	// =========================================================================

	grid, err := c.openGrid()
	if err != nil {
		return fail(fmt.Errorf("failed to read workbook: %w", err))
	}
	c.logger.Debug("opened worksheet", "sheet", grid.Name(), "rows", grid.MaxRow(), "cols", grid.MaxCol())

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 2: LOCATE HEADER ROWS
	// =========================================================================
	// Each match starts a stacked table. No match means the sheet is not a
	// packing list this profile understands.

	header := c.profile.Header
	headerRows := sheet.FindHeaderRows(grid, c.profile.HeaderPattern(), header.SearchRows, header.SearchCols)
	if len(headerRows) == 0 {
		return fail(fmt.Errorf("%w (searched %dx%d for %q)", sheet.ErrNoHeaderRows, header.SearchRows, header.SearchCols, header.Pattern))
	}
	result.Stats.Tables = len(headerRows)
	c.logger.Debug("located header rows", "rows", headerRows)

	// =========================================================================
	// STEP 3: MAP COLUMNS
	// =========================================================================
	// The first header row's layout is shared by every table on the sheet.

	mapping := sheet.MapColumns(grid, headerRows[0], header.SearchCols, c.profile.HeaderIndex(), c.expectedFields(), c.logger)
	if err := validation.ValidateMapping(mapping, c.profile.RequiredFields); err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 4: EXTRACT TABLES
	// =========================================================================

	tables := sheet.ExtractTables(grid, headerRows, mapping, sheet.ExtractOptions{
		StopField: c.profile.Extraction.StopField,
		MaxRows:   c.profile.Extraction.MaxRows,
	}, c.logger)

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 5: PROCESS AND AGGREGATE
	// =========================================================================

	validator := validation.NewValidatorWithOptions(c.validationOptions())
	mode := aggregate.SelectMode(c.inputPath, c.profile.Aggregation.CustomWorkbookPrefixes)
	agg := aggregate.New(mode, c.profile.AggregateOptions(), c.logger)
	c.logger.Debug("aggregation mode selected", "mode", mode)

	procOpts := processor.Options{
		CBMField: c.profile.CBMField,
		Targets:  c.profile.Distribution.Fields,
		Basis:    c.profile.Distribution.Basis,
	}

	for _, table := range tables {
		n := table.Len()
		result.Stats.Rows += n
		if n == 0 {
			c.logger.Warn("table has no data rows", "table", table.Index, "header_row", table.HeaderRow)
			continue
		}
		result.Stats.TablesWithData++

		validator.ValidateTable(table)

		if err := processor.Process(table, procOpts, c.logger); err != nil {
			c.logger.Warn("skipping table", "table", table.Index, "error", err)
			continue
		}
		validator.ValidateDistribution(table)

		if err := agg.Accumulate(table); err != nil {
			c.logger.Warn("table not aggregated", "table", table.Index, "error", err)
			continue
		}
		result.Stats.TablesAggregated++
	}

	vres := validator.Result()
	result.Issues = vres.Errors
	result.Stats.ValidationIssues = len(vres.Errors)
	result.Stats.AggregationKeys = agg.Len()
	for _, issue := range vres.Errors {
		c.logger.Warn("validation issue",
			"table", issue.Table,
			"row", issue.Row,
			"field", issue.Field,
			"value", issue.Value,
			"rule", issue.Rule,
			"message", issue.Message,
		)
	}

	// =========================================================================
	// STEP 6: COMPOUND FOB AND BUILD REPORT
	// =========================================================================

	fobOpts := c.profile.FOBOptions()
	fob := aggregate.Compound(agg.Records(), fobOpts)
	rep := report.Build(report.Metadata{
		RunID:            c.options.RunID,
		GeneratedAt:      time.Now().UTC(),
		Profile:          c.profile.ProfileCode,
		WorkbookFilename: filepath.Base(c.inputPath),
		WorksheetName:    grid.Name(),
	}, tables, agg, fobOpts, fob)
	result.Report = rep

	if !vres.IsValid {
		return fail(fmt.Errorf("validation failed with %d issue(s)", len(vres.Errors)))
	}

	if c.options.DryRun {
		c.logger.Info("dry run complete",
			"tables", result.Stats.Tables,
			"rows", result.Stats.Rows,
			"keys", result.Stats.AggregationKeys,
			"total_amount", rep.FOB.TotalAmount,
		)
		result.Success = true
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 7: WRITE OUTPUTS
	// =========================================================================

	outputs, err := c.writeOutputs(rep, vres.Errors)
	if err != nil {
		return fail(fmt.Errorf("failed to write output: %w", err))
	}
	result.OutputFiles = outputs
	c.logger.Info("wrote outputs", "files", outputs)

	// =========================================================================
	// STEP 8: ARCHIVE FILES
	// =========================================================================
	// Archival problems are logged; the outputs already exist.

	if c.mainConfig.ArchiveOnSuccess {
		archived, err := c.archiveFiles(outputs)
		if err != nil {
			c.logger.Warn("failed to archive files", "error", err)
		}
		result.ArchivePath = archived
	}

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)
	c.logger.Info("workbook processed",
		"tables", result.Stats.Tables,
		"rows", result.Stats.Rows,
		"keys", result.Stats.AggregationKeys,
		"issues", result.Stats.ValidationIssues,
		"duration", result.Stats.ProcessingTime,
	)

	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// openGrid reads the worksheet selected by the run options or the profile.
func (c *Converter) openGrid() (*types.RowGrid, error) {
	sel := c.profile.Sheet
	if c.options.Sheet != (xlsxparser.SheetSelector{}) {
		sel = c.options.Sheet
	}
	return OpenGrid(c.inputPath, c.profile, sel)
}

// OpenGrid reads one worksheet of an input file, by file extension. The
// selector is ignored for CSV files.
func OpenGrid(path string, profile *config.ProfileConfig, sel xlsxparser.SheetSelector) (*types.RowGrid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return csvparser.Parse(path, profile.CSVSettings)

	case ".xlsx", ".xlsm":
		wb, err := xlsxparser.Open(path)
		if err != nil {
			return nil, err
		}
		defer wb.Close()
		return wb.Sheet(sel)

	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// expectedFields lists the columns whose absence is worth a warning.
func (c *Converter) expectedFields() []types.Field {
	p := c.profile
	fields := []types.Field{
		types.FieldPO,
		p.Extraction.StopField,
		p.Aggregation.PriceField,
		p.Aggregation.SqftField,
		p.Aggregation.AmountField,
	}
	if p.Distribution.Basis != "" {
		fields = append(fields, p.Distribution.Basis)
	}
	fields = append(fields, p.Distribution.Fields...)
	if p.CBMField != "" {
		fields = append(fields, p.CBMField)
	}

	seen := make(map[types.Field]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// validationOptions derives the validator's options from the profile.
func (c *Converter) validationOptions() validation.ValidationOptions {
	p := c.profile
	opts := validation.DefaultValidationOptions()
	opts.CBMField = p.CBMField
	opts.DependentField = p.Extraction.StopField
	opts.TreatWarningsAsErrors = p.Validation.TreatWarningsAsErrors
	opts.NumericFields = []types.Field{p.Aggregation.SqftField, p.Aggregation.AmountField, p.Aggregation.PriceField}
	opts.NonNegativeFields = []types.Field{p.Aggregation.SqftField}
	if p.Distribution.Basis != "" {
		opts.NumericFields = append(opts.NumericFields, p.Distribution.Basis)
		opts.NonNegativeFields = append(opts.NonNegativeFields, p.Distribution.Basis)
	}
	opts.NumericFields = append(opts.NumericFields, p.Distribution.Fields...)
	opts.NonNegativeFields = append(opts.NonNegativeFields, p.Distribution.Fields...)
	return opts
}

// writeOutputs writes one file per configured format, plus an issue log when
// there are data-quality issues.
//
// FILE NAMING:
//   Every output shares one base name generated from the main config's
//   uuid_format, so the json, xml and xlsx of a workbook sort together.
func (c *Converter) writeOutputs(rep *report.Report, issues []*validation.ValidationError) ([]string, error) {
	original := strings.TrimSuffix(filepath.Base(c.inputPath), filepath.Ext(c.inputPath))
	base := utils.GenerateOutputBaseName(c.mainConfig.UUIDFormat, map[string]string{
		"profile":  c.profile.ProfileCode,
		"original": original,
	})
	path := func(ext string) string {
		return filepath.Join(c.mainConfig.OutputDir, base+ext)
	}

	var outputs []string

	if c.mainConfig.WantsFormat("json") {
		p := path(".json")
		if err := report.WriteJSON(rep, p); err != nil {
			return outputs, err
		}
		outputs = append(outputs, p)
	}

	if c.mainConfig.WantsFormat("xml") {
		p := path(".xml")
		if err := xmlwriter.WriteFile(rep, p, xmlwriter.DefaultGenerateOptions()); err != nil {
			return outputs, err
		}
		outputs = append(outputs, p)
	}

	if c.mainConfig.WantsFormat("xlsx") {
		p := path(".xlsx")
		if err := xlsxwriter.RenderReport(rep, c.profile.Render, p, c.logger); err != nil {
			return outputs, err
		}
		outputs = append(outputs, p)
	}

	if len(issues) > 0 {
		p := path("_issues.log")
		if err := validation.WriteErrorLog(issues, filepath.Base(c.inputPath), p); err != nil {
			return outputs, err
		}
		outputs = append(outputs, p)
	}

	return outputs, nil
}

// archiveFiles moves the input to the input archive and copies every output
// to the output archive.
func (c *Converter) archiveFiles(outputs []string) (string, error) {
	for _, out := range outputs {
		if _, err := c.files.ArchiveOutputFile(out); err != nil {
			return "", fmt.Errorf("failed to archive output %s: %w", filepath.Base(out), err)
		}
	}

	archived, err := c.files.ArchiveInputFile(c.inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to archive input: %w", err)
	}
	return archived, nil
}
