package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/gradebook/internal/config"
)

const gradesCSV = `student_id,student_name,subject,grade,date
1,Anna Petrova,Math,4.5,2024-01-15
2,Boris Ivanov,Physics,3.0,2024-02-01
`

func TestRunReport(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "raw")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "grades.csv"), []byte(gradesCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := reportOptions{
		sourceDir: src,
		cacheDir:  filepath.Join(root, "processed"),
		output:    filepath.Join(root, "out", "report.html"),
	}
	path, err := runReport(context.Background(), opts, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("runReport() error = %v", err)
	}

	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Anna Petrova", "Boris Ivanov", "Physics"} {
		if !strings.Contains(string(html), want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRunReport_NoData(t *testing.T) {
	root := t.TempDir()
	opts := reportOptions{
		sourceDir: filepath.Join(root, "missing"),
		cacheDir:  filepath.Join(root, "processed"),
		output:    filepath.Join(root, "report.html"),
		noCache:   true,
	}
	if _, err := runReport(context.Background(), opts, time.Now()); err != nil {
		t.Fatalf("runReport() error = %v, want empty report", err)
	}
	if _, err := os.Stat(opts.output); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cfg := &config.Config{}
	cfg.Data.SourceDir = "data/raw"
	cfg.Data.CacheDir = "data/processed"

	cmd := newRootCmd(cfg)
	for name, want := range map[string]string{
		"source-dir": "data/raw",
		"cache-dir":  "data/processed",
		"output":     defaultOutput,
		"no-cache":   "false",
	} {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Errorf("flag --%s missing", name)
			continue
		}
		if f.DefValue != want {
			t.Errorf("--%s default = %q, want %q", name, f.DefValue, want)
		}
	}
}

func TestExecute_ReportsUserMessage(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "raw")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	noGrades := "student_id,student_name,subject,date\n1,Anna Petrova,Math,2024-01-15\n"
	if err := os.WriteFile(filepath.Join(src, "grades.csv"), []byte(noGrades), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd(&config.Config{})
	cmd.SetArgs([]string{
		"--source-dir", src,
		"--cache-dir", filepath.Join(root, "processed"),
		"--output", filepath.Join(root, "report.html"),
	})
	var stderr bytes.Buffer

	if code := execute(cmd, &stderr); code != 1 {
		t.Fatalf("execute() = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "(Code: VAL001)") {
		t.Errorf("stderr = %q, want the VAL001 user message", stderr.String())
	}
}
