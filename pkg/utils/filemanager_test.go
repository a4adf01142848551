package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestDiscoverInputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.xlsx", "a.CSV", "~$b.xlsx", ".hidden.xlsx", "notes.txt", "c.xlsm"} {
		touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.xlsx"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	fm := NewFileManager(dir, "", "", "")
	files, err := fm.DiscoverInputFiles()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if got := strings.Join(names, ","); got != "a.CSV,b.xlsx,c.xlsm" {
		t.Errorf("expected a.CSV,b.xlsx,c.xlsm, got %s", got)
	}
}

func TestArchive(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	for _, d := range []string{in, out} {
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
	}
	input := filepath.Join(in, "JF-0001.xlsx")
	output := filepath.Join(out, "report.json")
	touch(t, input)
	touch(t, output)

	fm := NewFileManager(in, out, filepath.Join(root, "in_archive"), filepath.Join(root, "out_archive"))

	// Disabled archival leaves files alone.
	if p, err := fm.ArchiveInputFile(input); err != nil || p != input {
		t.Fatalf("expected no-op, got %s (%v)", p, err)
	}

	fm.ArchiveOnSuccess = true
	fm.UseDateSubdirs = true
	fm.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }

	archived, err := fm.ArchiveInputFile(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(root, "in_archive", "2024-01-15", "JF-0001.xlsx"); archived != want {
		t.Errorf("expected %s, got %s", want, archived)
	}
	if FileExists(input) {
		t.Error("expected input to be moved")
	}

	copied, err := fm.ArchiveOutputFile(output)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !FileExists(copied) || !FileExists(output) {
		t.Error("expected output to be copied")
	}
}

func TestGenerateOutputBaseName(t *testing.T) {
	name := GenerateOutputBaseName("{profile}_{original}_{uuid}", map[string]string{"profile": "JF", "original": "a/b"})

	if !strings.HasPrefix(name, "JF_a_b_") {
		t.Errorf("unexpected name %s", name)
	}
	if len(name) != len("JF_a_b_")+36 {
		t.Errorf("expected a UUID suffix, got %s", name)
	}

	a := GenerateOutputBaseName("{uuid}", nil)
	b := GenerateOutputBaseName("{uuid}", nil)
	if a == b {
		t.Error("expected unique names")
	}
}

func TestCleanOldArchives(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.xlsx")
	fresh := filepath.Join(dir, "fresh.xlsx")
	touch(t, old)
	touch(t, fresh)
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("failed to set times: %v", err)
	}

	removed, err := CleanOldArchives(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 1 || FileExists(old) || !FileExists(fresh) {
		t.Errorf("expected only old file removed, got %d", removed)
	}

	if n, err := CleanOldArchives(filepath.Join(dir, "missing"), time.Hour); err != nil || n != 0 {
		t.Errorf("expected missing directory to be ignored, got %d (%v)", n, err)
	}
}

func TestWriteLogs(t *testing.T) {
	dir := t.TempDir()

	if p, err := WriteErrorLog(nil, dir); err != nil || p != "" {
		t.Errorf("expected no log for no entries, got %q (%v)", p, err)
	}

	path, err := WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     "JF-0001.xlsx",
		ErrorType:    "processing",
		ErrorMessage: "no header rows",
	}}, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "no header rows") {
		t.Errorf("unexpected error log:\n%s", data)
	}

	path, err = WriteSummaryLog(ProcessingSummary{
		RunID:          "run-1",
		TotalFiles:     1,
		ProcessedFiles: []ProcessedFileInfo{{InputFile: "a.xlsx", OutputFiles: []string{"a.json", "a.xml"}}},
	}, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "Run ID:         run-1") || !strings.Contains(string(data), "Output:       a.xml") {
		t.Errorf("unexpected summary:\n%s", data)
	}
}
