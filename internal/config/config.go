// =============================================================================
// Invoice Automation - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles both the main application configuration and the per-supplier
// sheet profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): Global application settings
//   2. Profiles (configs/*.yaml, *.yml, *.hjson): how one supplier lays out
//      its packing lists (header pattern, synonyms, distribution, FOB format)
//   3. .env / environment: INVOICE_* overrides applied on top of the main
//      config
//
// Every profile is validated and compiled on load: its header pattern is
// compiled and its synonym table turned into a read-only lookup index, so a
// broken profile fails at startup rather than halfway through a batch.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/ginjaninja78/invoice-automation/internal/aggregate"
	"github.com/ginjaninja78/invoice-automation/internal/sheet"
	"github.com/ginjaninja78/invoice-automation/internal/types"
	"github.com/ginjaninja78/invoice-automation/internal/xlsxparser"
	"github.com/ginjaninja78/invoice-automation/internal/xlsxwriter"
	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"
)

// ErrNoProfile is returned when no profile matches an input file.
var ErrNoProfile = errors.New("no profile matches file")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for workbooks.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives reports and rendered workbooks.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives processed workbooks when ArchiveOnSuccess is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives copies of generated outputs.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// ConfigsDir holds the sheet profiles.
	// Default: "./configs"
	ConfigsDir string `yaml:"configs_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile additionally receives every log line. Empty logs to stderr only.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the slog handler.
	// Valid values: "text", "json"
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// UUIDFormat defines the base name of output files; the extension is added
	// per output format.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYY-MM-DD)
	//   {profile}   - Profile code
	//   {original}  - Input file name without extension
	// Default: "output_{original}_{uuid}"
	UUIDFormat string `yaml:"uuid_format"`

	// OutputFormats lists what to write per workbook.
	// Valid values: "json", "xml", "xlsx"
	// Default: ["json"]
	OutputFormats []string `yaml:"output_formats"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of workbooks processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps processing the remaining workbooks after one
	// fails.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// ArchiveOnSuccess moves each successfully processed workbook to
	// InputArchiveDir and copies its outputs to OutputArchiveDir.
	// Default: false
	ArchiveOnSuccess bool `yaml:"archive_on_success"`

	// DatedArchives puts archived files in YYYY-MM-DD subdirectories.
	// Default: false
	DatedArchives bool `yaml:"dated_archives"`
}

// ShouldContinueOnError reports the effective ContinueOnError setting.
func (c *MainConfig) ShouldContinueOnError() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// WantsFormat reports whether an output format is enabled.
func (c *MainConfig) WantsFormat(format string) bool {
	return slices.Contains(c.OutputFormats, format)
}

// =============================================================================
// PROFILE CONFIGURATION STRUCTURE
// =============================================================================

// ProfileConfig describes one family of packing-list workbooks.
// Each profile can have its own header pattern, synonym table, distribution
// rules and FOB formatting.
type ProfileConfig struct {
	// ProfileName is a human-readable name.
	ProfileName string `yaml:"profile_name" json:"profile_name"`

	// ProfileCode is a short identifier used in output names and --profile.
	ProfileCode string `yaml:"profile_code" json:"profile_code"`

	// FileMatchingPatterns are glob patterns matched against the input file
	// name. Example: ["JF*.xlsx", "*packing*.csv"]
	FileMatchingPatterns []string `yaml:"file_matching_patterns" json:"file_matching_patterns"`

	// Sheet selects the worksheet; empty means the active sheet.
	Sheet xlsxparser.SheetSelector `yaml:"sheet" json:"sheet"`

	// CSVSettings applies when the input is a .csv file.
	CSVSettings CSVSettings `yaml:"csv_settings" json:"csv_settings"`

	// Header controls header row detection.
	Header HeaderSettings `yaml:"header" json:"header"`

	// HeaderMap is the ordered synonym table. Earlier entries win synonym
	// conflicts.
	HeaderMap []sheet.HeaderEntry `yaml:"header_map" json:"header_map"`

	// HeaderMapTemplate is an XLSX synonym template, relative to the profile
	// file. Its entries are appended after HeaderMap.
	HeaderMapTemplate string `yaml:"header_map_template" json:"header_map_template"`

	// StrictSynonyms rejects a synonym table in which two fields claim the
	// same header text. Otherwise the first field keeps the synonym and the
	// collision is logged.
	// Default: false
	StrictSynonyms bool `yaml:"strict_synonyms" json:"strict_synonyms"`

	// RequiredFields must be found in the first header row or the workbook
	// fails.
	// Default: [stop field, amount field]
	RequiredFields []types.Field `yaml:"required_fields" json:"required_fields"`

	// Extraction controls how far each table extends.
	Extraction ExtractionSettings `yaml:"extraction" json:"extraction"`

	// Distribution lists the columns whose group values are spread by basis.
	Distribution DistributionSettings `yaml:"distribution" json:"distribution"`

	// CBMField holds "L*W*H" dimension strings. Empty disables CBM parsing.
	// Default: "cbm"
	CBMField types.Field `yaml:"cbm_field" json:"cbm_field"`

	// Aggregation controls the business keys.
	Aggregation AggregationSettings `yaml:"aggregation" json:"aggregation"`

	// FOB controls the compounded summary strings.
	FOB FOBSettings `yaml:"fob" json:"fob"`

	// Validation controls data-quality checks.
	Validation ValidationSettings `yaml:"validation" json:"validation"`

	// Footer controls the footer scan of "inspect footer".
	Footer FooterSettings `yaml:"footer" json:"footer"`

	// Render is the table layout of the xlsx output.
	Render xlsxwriter.Layout `yaml:"render" json:"render"`

	// Source is the file the profile was loaded from.
	Source string `yaml:"-" json:"-"`

	headerPattern *regexp.Regexp
	headerIndex   *sheet.HeaderIndex
	conflicts     []sheet.Conflict
}

// CSVSettings defines how to read CSV inputs.
type CSVSettings struct {
	// Delimiter is the field separator: ",", "|", ";", "tab".
	// Default: ","
	Delimiter string `yaml:"delimiter" json:"delimiter"`

	// Encoding is a WHATWG encoding label: "utf-8", "gbk", "gb18030",
	// "big5", "windows-1252", ...
	// Default: "utf-8"
	Encoding string `yaml:"encoding" json:"encoding"`

	// Comment starts a line that is skipped. Empty disables comments.
	Comment string `yaml:"comment" json:"comment"`
}

// HeaderSettings controls header row detection.
type HeaderSettings struct {
	// Pattern is a regular expression matched case-insensitively against
	// every cell of the search window.
	Pattern string `yaml:"pattern" json:"pattern"`

	// SearchRows bounds the rows scanned. Stacked tables below this row are
	// not found.
	// Default: 25
	SearchRows int `yaml:"search_rows" json:"search_rows"`

	// SearchCols bounds the columns scanned.
	// Default: 25
	SearchCols int `yaml:"search_cols" json:"search_cols"`
}

// ExtractionSettings controls table extraction.
type ExtractionSettings struct {
	// StopField ends a table at its first blank cell.
	// Default: "item"
	StopField types.Field `yaml:"stop_field" json:"stop_field"`

	// MaxRows caps each table.
	// Default: 1000
	MaxRows int `yaml:"max_rows" json:"max_rows"`
}

// DistributionSettings controls value distribution.
type DistributionSettings struct {
	// Fields are the columns to distribute.
	// Default: ["net", "gross"]
	Fields []types.Field `yaml:"fields" json:"fields"`

	// Basis is the weight column.
	// Default: "pcs"
	Basis types.Field `yaml:"basis" json:"basis"`
}

// AggregationSettings controls aggregation keys.
type AggregationSettings struct {
	// CustomWorkbookPrefixes switch a workbook to custom mode (key without
	// price) when its file name starts with one of them. Case-sensitive.
	CustomWorkbookPrefixes []string `yaml:"custom_workbook_prefixes" json:"custom_workbook_prefixes"`

	// KeyIncludesDescription adds the description to the key.
	// Default: false
	KeyIncludesDescription bool `yaml:"key_includes_description" json:"key_includes_description"`

	// SqftField, AmountField and PriceField name the summed and keyed columns.
	// Defaults: "sqft", "amount", "unit"
	SqftField   types.Field `yaml:"sqft_field" json:"sqft_field"`
	AmountField types.Field `yaml:"amount_field" json:"amount_field"`
	PriceField  types.Field `yaml:"price_field" json:"price_field"`
}

// FOBSettings controls FOB string packing.
type FOBSettings struct {
	// ChunkSize is the number of values per line.
	// Default: 2
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// ItemSeparator joins values on a line.
	// Default: "\"
	ItemSeparator string `yaml:"item_separator" json:"item_separator"`

	// ChunkSeparator joins lines.
	// Default: "\n"
	ChunkSeparator string `yaml:"chunk_separator" json:"chunk_separator"`
}

// ValidationSettings controls data-quality checks.
type ValidationSettings struct {
	// TreatWarningsAsErrors fails a workbook with any data-quality issue.
	// Default: false
	TreatWarningsAsErrors bool `yaml:"treat_warnings_as_errors" json:"treat_warnings_as_errors"`
}

// FooterSettings controls the footer scan.
type FooterSettings struct {
	// Keywords identify a footer row (case-insensitive substring).
	// Default: ["total", "amount"]
	Keywords []string `yaml:"keywords" json:"keywords"`

	// StartRow is the first row scanned.
	// Default: 5
	StartRow int `yaml:"start_row" json:"start_row"`

	// SearchCols is the number of leading columns scanned.
	// Default: 6
	SearchCols int `yaml:"search_cols" json:"search_cols"`
}

// =============================================================================
// COMPILED PROFILE ACCESSORS
// =============================================================================

// HeaderPattern returns the compiled header pattern.
func (p *ProfileConfig) HeaderPattern() *regexp.Regexp { return p.headerPattern }

// HeaderIndex returns the synonym lookup.
func (p *ProfileConfig) HeaderIndex() *sheet.HeaderIndex { return p.headerIndex }

// SynonymConflicts returns the synonym collisions found while compiling.
func (p *ProfileConfig) SynonymConflicts() []sheet.Conflict { return p.conflicts }

// AggregateOptions returns the aggregator options of the profile.
func (p *ProfileConfig) AggregateOptions() aggregate.Options {
	opts := aggregate.DefaultOptions()
	opts.SqftField = p.Aggregation.SqftField
	opts.AmountField = p.Aggregation.AmountField
	opts.PriceField = p.Aggregation.PriceField
	opts.KeyIncludesDescription = p.Aggregation.KeyIncludesDescription
	return opts
}

// FOBOptions returns the FOB packing options of the profile.
func (p *ProfileConfig) FOBOptions() aggregate.FOBOptions {
	return aggregate.FOBOptions{
		ChunkSize:      p.FOB.ChunkSize,
		ItemSeparator:  p.FOB.ItemSeparator,
		ChunkSeparator: p.FOB.ChunkSeparator,
	}
}

// MatchesFile reports whether a file name matches one of the profile's
// patterns. Matching is case-insensitive.
func (p *ProfileConfig) MatchesFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, pattern := range p.FileMatchingPatterns {
		if ok, err := filepath.Match(strings.ToLower(pattern), name); err == nil && ok {
			return true
		}
	}
	return false
}

// =============================================================================
// MAIN CONFIG LOADING
// =============================================================================

// LoadMainConfig loads the main configuration file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct with defaults applied and INVOICE_*
//     environment overrides merged in.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ApplyEnvOverrides(&config); err != nil {
		return nil, err
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// DefaultMainConfig returns a configuration with every default applied, for
// runs without a config file.
func DefaultMainConfig() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfigIfExists loads the configuration file when it exists. When
// it does not, it returns the defaults with environment overrides applied.
func LoadMainConfigIfExists(configPath string) (*MainConfig, error) {
	if _, err := os.Stat(configPath); err == nil {
		return LoadMainConfig(configPath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	var config MainConfig
	if err := ApplyEnvOverrides(&config); err != nil {
		return nil, err
	}
	applyMainConfigDefaults(&config)
	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.ConfigsDir == "" {
		config.ConfigsDir = "./configs"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	if config.UUIDFormat == "" {
		config.UUIDFormat = "output_{original}_{uuid}"
	}
	if len(config.OutputFormats) == 0 {
		config.OutputFormats = []string{"json"}
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}

	switch config.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q", config.LogFormat)
	}

	for i, f := range config.OutputFormats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case "json", "xml", "xlsx":
			config.OutputFormats[i] = f
		default:
			return fmt.Errorf("unknown output format %q", f)
		}
	}

	return nil
}

// EnsureDirectories creates the working directories if they are missing.
func EnsureDirectories(config *MainConfig) error {
	dirs := []string{config.InputDir, config.OutputDir}
	if config.ArchiveOnSuccess {
		dirs = append(dirs, config.InputArchiveDir, config.OutputArchiveDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// PROFILE LOADING
// =============================================================================

// LoadProfiles loads every profile in a directory.
//
// PARAMETERS:
//   - configsDir: The directory containing .yaml, .yml and .hjson profiles.
//
// RETURNS:
//   - The profiles keyed by profile code (file name when no code is set).
//     An empty or missing directory yields the built-in default profile.
//   - An error if any file cannot be parsed or fails validation.
func LoadProfiles(configsDir string) (map[string]*ProfileConfig, error) {
	profiles := make(map[string]*ProfileConfig)

	var files []string
	for _, ext := range []string{"*.yaml", "*.yml", "*.hjson"} {
		matches, err := filepath.Glob(filepath.Join(configsDir, ext))
		if err != nil {
			return nil, fmt.Errorf("failed to list config files: %w", err)
		}
		files = append(files, matches...)
	}

	for _, file := range files {
		profile, err := LoadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		key := profile.ProfileCode
		if key == "" {
			key = filepath.Base(file)
		}
		if existing, ok := profiles[key]; ok {
			return nil, fmt.Errorf("profile code %q defined by both %s and %s", key, existing.Source, file)
		}
		profiles[key] = profile
	}

	if len(profiles) == 0 {
		def := DefaultProfile()
		profiles[def.ProfileCode] = def
	}

	return profiles, nil
}

// LoadProfile loads a single profile file. The format follows the file
// extension: .hjson is parsed as HJSON, anything else as YAML.
func LoadProfile(filePath string) (*ProfileConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile ProfileConfig
	if strings.EqualFold(filepath.Ext(filePath), ".hjson") {
		if err := hjson.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse HJSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	profile.Source = filePath

	if profile.HeaderMapTemplate != "" {
		path := profile.HeaderMapTemplate
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(filePath), path)
		}
		entries, err := xlsxparser.ParseHeaderTemplate(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load header template: %w", err)
		}
		profile.HeaderMap = append(profile.HeaderMap, entries...)
	}

	if err := profile.Prepare(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Prepare applies defaults, validates the profile and compiles its header
// pattern and synonym index. It must be called on profiles built in code.
func (p *ProfileConfig) Prepare() error {
	applyProfileDefaults(p)
	if err := validateProfile(p); err != nil {
		return fmt.Errorf("invalid profile %q: %w", p.ProfileCode, err)
	}
	return nil
}

// applyProfileDefaults sets default values for a profile.
func applyProfileDefaults(p *ProfileConfig) {
	def := defaultSettings()

	if p.ProfileCode == "" {
		p.ProfileCode = strings.TrimSuffix(filepath.Base(p.Source), filepath.Ext(p.Source))
	}
	if p.ProfileName == "" {
		p.ProfileName = p.ProfileCode
	}

	if p.CSVSettings.Delimiter == "" {
		p.CSVSettings.Delimiter = ","
	}
	if p.CSVSettings.Encoding == "" {
		p.CSVSettings.Encoding = "utf-8"
	}

	if p.Header.Pattern == "" {
		p.Header.Pattern = def.Header.Pattern
	}
	if p.Header.SearchRows <= 0 {
		p.Header.SearchRows = def.Header.SearchRows
	}
	if p.Header.SearchCols <= 0 {
		p.Header.SearchCols = def.Header.SearchCols
	}
	if len(p.HeaderMap) == 0 {
		p.HeaderMap = DefaultHeaderMap()
	}

	if p.Extraction.StopField == "" {
		p.Extraction.StopField = def.Extraction.StopField
	}
	if p.Extraction.MaxRows <= 0 {
		p.Extraction.MaxRows = def.Extraction.MaxRows
	}

	if p.Distribution.Fields == nil {
		p.Distribution.Fields = def.Distribution.Fields
	}
	if p.Distribution.Basis == "" {
		p.Distribution.Basis = def.Distribution.Basis
	}
	if p.CBMField == "" {
		p.CBMField = def.CBMField
	}

	if p.Aggregation.SqftField == "" {
		p.Aggregation.SqftField = types.FieldSqft
	}
	if p.Aggregation.AmountField == "" {
		p.Aggregation.AmountField = types.FieldAmount
	}
	if p.Aggregation.PriceField == "" {
		p.Aggregation.PriceField = types.FieldUnit
	}

	if p.FOB.ChunkSize == 0 {
		p.FOB.ChunkSize = def.FOB.ChunkSize
	}
	if p.FOB.ItemSeparator == "" {
		p.FOB.ItemSeparator = def.FOB.ItemSeparator
	}
	if p.FOB.ChunkSeparator == "" {
		p.FOB.ChunkSeparator = def.FOB.ChunkSeparator
	}

	if len(p.RequiredFields) == 0 {
		p.RequiredFields = []types.Field{p.Extraction.StopField, p.Aggregation.AmountField}
	}

	if len(p.Footer.Keywords) == 0 {
		p.Footer.Keywords = def.Footer.Keywords
	}
	if p.Footer.StartRow <= 0 {
		p.Footer.StartRow = def.Footer.StartRow
	}
	if p.Footer.SearchCols <= 0 {
		p.Footer.SearchCols = def.Footer.SearchCols
	}

	p.Render.ApplyDefaults()
}

// validateProfile checks a profile and compiles its lookup structures.
func validateProfile(p *ProfileConfig) error {
	pattern, err := sheet.CompilePattern(p.Header.Pattern)
	if err != nil {
		return fmt.Errorf("header pattern: %w", err)
	}
	p.headerPattern = pattern

	for _, entry := range p.HeaderMap {
		if entry.Field == "" {
			return fmt.Errorf("header_map entry without field (synonyms %v)", entry.Synonyms)
		}
	}

	index, conflicts := sheet.NewHeaderIndex(p.HeaderMap)
	if len(conflicts) > 0 && p.StrictSynonyms {
		msgs := make([]string, len(conflicts))
		for i, c := range conflicts {
			msgs[i] = c.String()
		}
		return fmt.Errorf("header_map has conflicting synonyms: %s", strings.Join(msgs, "; "))
	}
	p.headerIndex = index
	p.conflicts = conflicts

	if p.FOB.ChunkSize < 1 {
		return fmt.Errorf("fob.chunk_size must be at least 1, got %d", p.FOB.ChunkSize)
	}

	if slices.Contains(p.Distribution.Fields, p.Distribution.Basis) {
		return fmt.Errorf("distribution basis %q is also a distribution target", p.Distribution.Basis)
	}
	if len(p.Distribution.Fields) > 0 && p.Distribution.Basis == "" {
		return fmt.Errorf("distribution fields set without a basis")
	}

	for _, prefix := range p.Aggregation.CustomWorkbookPrefixes {
		if strings.TrimSpace(prefix) == "" {
			return fmt.Errorf("aggregation.custom_workbook_prefixes contains an empty prefix")
		}
	}

	for _, pattern := range p.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("bad file matching pattern %q: %w", pattern, err)
		}
	}

	return nil
}

// =============================================================================
// PROFILE SELECTION
// =============================================================================

// SelectProfile picks the profile for an input file.
//
// PARAMETERS:
//   - path: The input file.
//   - profiles: All loaded profiles.
//   - code: A profile code forced on the command line; empty to match by
//     file name.
//
// RETURNS:
//   - The forced profile, else the first matching profile in code order,
//     else the only profile when exactly one is loaded.
//   - ErrNoProfile otherwise.
func SelectProfile(path string, profiles map[string]*ProfileConfig, code string) (*ProfileConfig, error) {
	if code != "" {
		p, ok := profiles[code]
		if !ok {
			return nil, fmt.Errorf("%w: profile %q is not defined", ErrNoProfile, code)
		}
		return p, nil
	}

	codes := make([]string, 0, len(profiles))
	for c := range profiles {
		codes = append(codes, c)
	}
	slices.Sort(codes)

	for _, c := range codes {
		if profiles[c].MatchesFile(path) {
			return profiles[c], nil
		}
	}

	if len(profiles) == 1 {
		return profiles[codes[0]], nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoProfile, filepath.Base(path))
}
