package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/invoice-automation/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadMainConfigDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "input_dir: ./in\noutput_formats: [JSON, xlsx]\n")

	config, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.InputDir != "./in" {
		t.Errorf("expected input dir ./in, got %s", config.InputDir)
	}
	if config.OutputDir != "./output" || config.MaxConcurrency != 4 || config.LogLevel != "info" {
		t.Errorf("expected defaults, got %+v", config)
	}
	if !config.ShouldContinueOnError() {
		t.Error("expected continue_on_error to default to true")
	}
	if !config.WantsFormat("json") || !config.WantsFormat("xlsx") || config.WantsFormat("xml") {
		t.Errorf("unexpected output formats %v", config.OutputFormats)
	}
}

func TestLoadMainConfigRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", "output_formats: [pdf]\n")
	if _, err := LoadMainConfig(path); err == nil {
		t.Error("expected error for unknown output format")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvInputDir, "/data/in")
	t.Setenv(EnvMaxConcurrency, "9")

	path := writeFile(t, t.TempDir(), "config.yaml", "input_dir: ./in\nmax_concurrency: 2\n")
	config, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.InputDir != "/data/in" || config.MaxConcurrency != 9 {
		t.Errorf("expected env overrides, got %s / %d", config.InputDir, config.MaxConcurrency)
	}

	t.Setenv(EnvMaxConcurrency, "many")
	if _, err := LoadMainConfig(path); err == nil {
		t.Error("expected error for non-numeric concurrency")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("expected missing file to be ignored, got %v", err)
	}

	t.Setenv(EnvLogLevel, "")
	os.Unsetenv(EnvLogLevel)
	path := writeFile(t, dir, ".env", EnvLogLevel+"=debug\n")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv(EnvLogLevel); got != "debug" {
		t.Errorf("expected debug, got %q", got)
	}
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()

	if p.Header.SearchRows != 25 || p.Header.SearchCols != 25 {
		t.Errorf("expected 25x25 search window, got %dx%d", p.Header.SearchRows, p.Header.SearchCols)
	}
	if !p.HeaderPattern().MatchString("总张数") || !p.HeaderPattern().MatchString("净重(KG)") {
		t.Error("expected header pattern to match packing-list headers")
	}
	if field, ok := p.HeaderIndex().Lookup("  Net Weight "); !ok || field != types.FieldNet {
		t.Errorf("expected net, got %q (%v)", field, ok)
	}
	if len(p.SynonymConflicts()) != 0 {
		t.Errorf("expected no conflicts in built-in table, got %v", p.SynonymConflicts())
	}
	if len(p.RequiredFields) != 2 || p.RequiredFields[0] != types.FieldItem || p.RequiredFields[1] != types.FieldAmount {
		t.Errorf("unexpected required fields %v", p.RequiredFields)
	}

	fob := p.FOBOptions()
	if fob.ChunkSize != 2 || fob.ItemSeparator != "\\" || fob.ChunkSeparator != "\n" {
		t.Errorf("unexpected FOB options %+v", fob)
	}
	if p.Render.HSCodeText == "" {
		t.Error("expected default render layout")
	}
}

func TestLoadProfilesYAMLAndHJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "jf.yaml", `
profile_name: JF Leather
profile_code: JF
file_matching_patterns: ["JF*.xlsx"]
sheet:
  name: Packing
distribution:
  fields: [net]
  basis: pcs
aggregation:
  custom_workbook_prefixes: [JF]
fob:
  chunk_size: 3
  item_separator: " / "
`)
	writeFile(t, dir, "tt.hjson", `
{
  # comments and unquoted strings are fine in HJSON
  profile_code: TT
  file_matching_patterns: ["tt*.csv"]
  csv_settings: {
    delimiter: ";"
    encoding: gbk
  }
  header_map: [
    {
      field: item
      synonyms: ["article"]
    }
    {
      field: amount
      synonyms: ["total usd"]
    }
  ]
}
`)

	profiles, err := LoadProfiles(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}

	jf := profiles["JF"]
	if jf.Sheet.Name != "Packing" || jf.FOB.ChunkSize != 3 || jf.FOB.ChunkSeparator != "\n" {
		t.Errorf("unexpected JF profile %+v", jf)
	}
	if len(jf.Distribution.Fields) != 1 || jf.Extraction.MaxRows != 1000 {
		t.Errorf("expected defaults merged into JF profile, got %+v", jf.Extraction)
	}

	tt := profiles["TT"]
	if tt.CSVSettings.Delimiter != ";" || tt.CSVSettings.Encoding != "gbk" {
		t.Errorf("unexpected csv settings %+v", tt.CSVSettings)
	}
	if field, ok := tt.HeaderIndex().Lookup("Total USD"); !ok || field != types.FieldAmount {
		t.Errorf("expected amount from HJSON header map, got %q", field)
	}
	if _, ok := tt.HeaderIndex().Lookup("po"); ok {
		t.Error("expected custom header map to replace the built-in table")
	}
}

func TestLoadProfilesFallsBackToDefault(t *testing.T) {
	profiles, err := LoadProfiles(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := profiles["default"]; !ok || len(profiles) != 1 {
		t.Errorf("expected only the default profile, got %v", profiles)
	}
}

func TestProfileValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"bad pattern", "header:\n  pattern: \"([\"\n", "header pattern"},
		{"chunk size", "fob:\n  chunk_size: -1\n", "chunk_size"},
		{"basis in targets", "distribution:\n  fields: [net, pcs]\n  basis: pcs\n", "also a distribution target"},
		{"strict conflict", "strict_synonyms: true\nheader_map:\n  - {field: net, synonyms: [wt]}\n  - {field: gross, synonyms: [WT]}\n", "conflicting synonyms"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "p.yaml", tc.content)
			_, err := LoadProfile(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLenientSynonymConflict(t *testing.T) {
	path := writeFile(t, t.TempDir(), "p.yaml", "header_map:\n  - {field: net, synonyms: [wt]}\n  - {field: gross, synonyms: [WT]}\n")
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.SynonymConflicts()) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(p.SynonymConflicts()))
	}
	if field, _ := p.HeaderIndex().Lookup("wt"); field != types.FieldNet {
		t.Errorf("expected first registration to win, got %q", field)
	}
}

func TestSelectProfile(t *testing.T) {
	jf := &ProfileConfig{ProfileCode: "JF", FileMatchingPatterns: []string{"JF*.xlsx"}}
	tt := &ProfileConfig{ProfileCode: "TT", FileMatchingPatterns: []string{"*.csv"}}
	profiles := map[string]*ProfileConfig{"JF": jf, "TT": tt}

	if p, err := SelectProfile("/in/jf-0001.XLSX", profiles, ""); err != nil || p != jf {
		t.Errorf("expected JF profile, got %v (%v)", p, err)
	}
	if p, err := SelectProfile("/in/other.csv", profiles, ""); err != nil || p != tt {
		t.Errorf("expected TT profile, got %v (%v)", p, err)
	}
	if p, err := SelectProfile("/in/other.csv", profiles, "JF"); err != nil || p != jf {
		t.Errorf("expected forced JF profile, got %v (%v)", p, err)
	}
	if _, err := SelectProfile("/in/other.xlsx", profiles, ""); !errors.Is(err, ErrNoProfile) {
		t.Errorf("expected ErrNoProfile, got %v", err)
	}
	if _, err := SelectProfile("/in/other.xlsx", profiles, "XX"); !errors.Is(err, ErrNoProfile) {
		t.Errorf("expected ErrNoProfile for unknown code, got %v", err)
	}
}
