package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foundry-zero/abigen/internal/compiler"
)

var (
	adderManifest  = filepath.Join("..", "..", "examples", "adder", "adder-metadata.json")
	ledgerManifest = filepath.Join("..", "..", "examples", "ledger", "ledger.abi.json")
)

func runCapture(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunGenerate(t *testing.T) {
	out := t.TempDir()
	code, stdout, stderr := runCapture(t, "--out-dir", out, adderManifest, ledgerManifest)
	if code != 0 {
		t.Fatalf("run = %d, want 0\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}
	for _, name := range []string{"adder-metadata.go", "ledger.abi.go"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
	if !strings.Contains(stdout, "wrote "+filepath.Join(out, "adder-metadata.go")+" (1 types, 1 methods)") {
		t.Errorf("text report missing output line:\n%s", stdout)
	}
}

func TestRunGenerateSubcommand(t *testing.T) {
	out := t.TempDir()
	code, _, stderr := runCapture(t, "generate", "--out-dir", out, "--package", "adder", "--quiet", adderManifest)
	if code != 0 {
		t.Fatalf("run = %d, want 0: %s", code, stderr)
	}
	src, err := os.ReadFile(filepath.Join(out, "adder-metadata.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(src), "package adder\n") {
		t.Error("--package not applied")
	}
}

func TestRunOutDirFromEnvironment(t *testing.T) {
	out := t.TempDir()
	t.Setenv("ABIGEN_OUT_DIR", "")
	t.Setenv("OUT_DIR", out)
	code, _, stderr := runCapture(t, "--quiet", adderManifest)
	if code != 0 {
		t.Fatalf("run = %d, want 0: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(out, "adder-metadata.go")); err != nil {
		t.Errorf("expected output in $OUT_DIR: %v", err)
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Setenv("OUT_DIR", "")
	t.Setenv("ABIGEN_OUT_DIR", "")
	dir := t.TempDir()
	out := filepath.Join(dir, "gen")
	abs, err := filepath.Abs(adderManifest)
	if err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "abigen.yaml")
	src := "out_dir: " + out + "\ncontainer: Adder\nmanifests:\n  - " + abs + "\n"
	if err := os.WriteFile(cfg, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := runCapture(t, "--config", cfg, "--quiet")
	if code != 0 {
		t.Fatalf("run = %d, want 0: %s", code, stderr)
	}
	data, err := os.ReadFile(filepath.Join(out, "adder-metadata.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "type Adder struct") {
		t.Error("container from config file not applied")
	}
}

func TestRunJSONReport(t *testing.T) {
	out := t.TempDir()
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"types": [], "methods": [{"name": "f", "args": [1], "is_view": true}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := runCapture(t, "--out-dir", out, "--report", "json", adderManifest, bad)
	if code != 1 {
		t.Errorf("run = %d, want 1", code)
	}
	var reports []struct {
		File   string `json:"file"`
		Output string `json:"output"`
		Errors []struct {
			Kind string `json:"kind"`
		} `json:"errors"`
	}
	if err := json.Unmarshal([]byte(stdout), &reports); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, stdout)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Output == "" || len(reports[0].Errors) != 0 {
		t.Errorf("adder should succeed: %+v", reports[0])
	}
	if len(reports[1].Errors) != 1 || reports[1].Errors[0].Kind != "UNKNOWN_TYPE_ID" {
		t.Errorf("bad manifest report: %+v", reports[1])
	}
	if _, err := os.Stat(filepath.Join(out, "bad.go")); !os.IsNotExist(err) {
		t.Error("nothing should be written for a failed manifest")
	}
}

func TestRunUsageErrors(t *testing.T) {
	out := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"no manifests", []string{"--out-dir", out}},
		{"no out dir", []string{adderManifest}},
		{"bad report format", []string{"--out-dir", out, "--report", "xml", adderManifest}},
		{"bad package", []string{"--out-dir", out, "--package", "my-pkg", adderManifest}},
		{"bad container", []string{"--out-dir", out, "--container", "client", adderManifest}},
		{"bad log level", []string{"--out-dir", out, "--log-level", "loud", adderManifest}},
		{"unknown flag", []string{"--bogus", adderManifest}},
		{"missing config file", []string{"--config", filepath.Join(out, "none.yaml"), adderManifest}},
		{"inspect without manifest", []string{"inspect"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OUT_DIR", "")
			t.Setenv("ABIGEN_OUT_DIR", "")
			code, _, stderr := runCapture(t, tt.args...)
			if code != 2 {
				t.Errorf("run = %d, want 2", code)
			}
			if !strings.HasPrefix(stderr, "Error: ") {
				t.Errorf("stderr = %q", stderr)
			}
		})
	}
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCapture(t, "--version")
	if code != 0 {
		t.Errorf("run(--version) = %d, want 0", code)
	}
	if stdout != "abigen "+version+"\n" {
		t.Errorf("version output = %q", stdout)
	}
}

func TestRunInspect(t *testing.T) {
	code, stdout, stderr := runCapture(t, "inspect", ledgerManifest)
	if code != 0 {
		t.Fatalf("run = %d, want 0: %s", code, stderr)
	}
	for _, want := range []string{"(root)", "*Account", "get_account", "GetAccount", "transaction", "arg0 string, arg1 U128", "Methods of ExtContract:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("inspect output lacks %q:\n%s", want, stdout)
		}
	}
}

func TestRunInspectFailure(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"types": [{"id": 0, "schema": {"type": "object", "properties": {"a": {}}}}], "methods": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	code, stdout, _ := runCapture(t, "inspect", bad)
	if code != 1 {
		t.Errorf("run = %d, want 1", code)
	}
	if !strings.Contains(stdout, "[MISSING_TYPE_NAME]") {
		t.Errorf("expected finding in output:\n%s", stdout)
	}
}

func TestRunFormatFailure(t *testing.T) {
	failing := compiler.WithFormatter(func(string, []byte) ([]byte, error) {
		return nil, errors.New("formatter unavailable")
	})
	tests := []struct {
		name    string
		strict  bool
		code    int
		written bool
	}{
		{"warning", false, 0, true},
		{"strict", true, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := t.TempDir()
			args := []string{"--out-dir", out, adderManifest}
			if tt.strict {
				args = append([]string{"--strict"}, args...)
			}
			var stdout, stderr bytes.Buffer
			c := &cli{stdout: &stdout, stderr: &stderr, compilerOpts: []compiler.Option{failing}}
			if code := c.run(args); code != tt.code {
				t.Fatalf("run = %d, want %d\nstdout: %s\nstderr: %s", code, tt.code, stdout.String(), stderr.String())
			}
			_, err := os.Stat(filepath.Join(out, "adder-metadata.go"))
			if written := err == nil; written != tt.written {
				t.Errorf("written = %v, want %v", written, tt.written)
			}
			if !strings.Contains(stdout.String(), "[FORMAT_FAILURE]") {
				t.Errorf("report lacks the format finding:\n%s", stdout.String())
			}
		})
	}
}
