package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const transferProgram = "x2 = x2 + 0; while x1 > 0 do x1 = x1 - 1; x2 = x2 + 1 end; echo x2; x0 = x2 + 0"

func writeProgram(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func execute(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	expectedFlags := []string{"dparse", "dopt", "dsymbols", "dscopes", "ewhile", "run",
		"O0", "no-reuse-temps", "bigint", "verbose", "step-limit", "config"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}
}

func TestNoArgsShowsHelp(t *testing.T) {
	out, _, err := execute()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out, "ralph-while") {
		t.Errorf("expected help output, got %q", out)
	}
}

func TestDefaultPrintsOptimized(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	out, _, err := execute(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "x2 = x2 + x1") {
		t.Errorf("expected rewritten transfer loop, got %q", out)
	}
	if strings.Contains(out, "while") {
		t.Errorf("expected loop to be gone, got %q", out)
	}
}

func TestO0KeepsLoops(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	out, _, err := execute("-O0", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "while x1 > 0 do") {
		t.Errorf("expected loop to survive -O0, got %q", out)
	}
}

func TestDParseCreatesOutputFile(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	expectedOutputFile := strings.TrimSuffix(file, ".while") + ".parsed.while"

	out, _, err := execute("-dparse", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fileContent, err := os.ReadFile(expectedOutputFile)
	if err != nil {
		t.Fatalf("failed to read output file: %v", err)
	}
	if out != string(fileContent) {
		t.Errorf("output file content doesn't match stdout\nStdout:\n%s\nFile:\n%s", out, fileContent)
	}
	if !strings.Contains(out, "while x1 > 0 do") {
		t.Errorf("expected parsed loop, got %q", out)
	}
}

func TestDOptReportsMatches(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	out, errOut, err := execute("--dopt", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "x1 = x1 - x1") {
		t.Errorf("expected drained register reset, got %q", out)
	}
	if !strings.Contains(errOut, "drain-add: 1 match(es)") {
		t.Errorf("expected match report, got %q", errOut)
	}
}

func TestDSymbols(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	out, _, err := execute("--dsymbols", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"// variables", "x2", "// constants", "constant_0", "constant_1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in symbol dump, got %q", want, out)
		}
	}
}

func TestRun(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	for _, opt := range [][]string{nil, {"-O0"}} {
		args := append(append([]string{}, opt...), "--run", "x1=4", file)
		out, _, err := execute(args...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out != "4\nx0 = 4\n" {
			t.Errorf("%v: got %q", opt, out)
		}
	}
}

func TestRunStepLimit(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	_, errOut, err := execute("-O0", "--step-limit", "3", "--run", "x1=10", file)
	if err == nil {
		t.Fatal("expected step limit error")
	}
	if !strings.Contains(errOut, "step limit") {
		t.Errorf("expected step limit message, got %q", errOut)
	}
}

func TestRunBadInput(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	for _, arg := range []string{"y=3", "x0=1", "x1", "x1=-2", "x1=abc"} {
		if _, _, err := execute("--run", arg, file); err == nil {
			t.Errorf("expected error for --run %s", arg)
		}
	}
}

func TestParseInputs(t *testing.T) {
	inputs, err := parseInputs([]string{"x3=7", "x1=2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := make([]string, len(inputs))
	for i, v := range inputs {
		got[i] = v.String()
	}
	if strings.Join(got, ",") != "2,0,7" {
		t.Errorf("got %v, want [2 0 7]", got)
	}
}

func TestSyntaxError(t *testing.T) {
	file := writeProgram(t, "bad.while", "x1 = x1 +")
	_, errOut, err := execute(file)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(errOut, "ralph-while: ") || !strings.Contains(errOut, "expected integer") {
		t.Errorf("unexpected error output %q", errOut)
	}
}

func TestFileNotFound(t *testing.T) {
	if _, _, err := execute("--dparse", "nonexistent.while"); err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

const scopedProgram = "let a, b; a = x1 * x2; if a > b then b = a else b = 0 end; echo b"

func TestExtendedDefaultPrintsResolved(t *testing.T) {
	file := writeProgram(t, "prog.ewhile", scopedProgram)
	out, _, err := execute(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "x3 = x1 * x2 /* temps x6 x7 x8 */") {
		t.Errorf("expected resolved program, got %q", out)
	}
}

func TestDScopes(t *testing.T) {
	file := writeProgram(t, "prog.txt", scopedProgram)
	out, _, err := execute("--ewhile", "-dscopes", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"scope 0 (global)", "a -> x3", "scope 1 @", "scope 2 @", "// zero x5"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in scope dump, got %q", want, out)
		}
	}
}

func TestNoReuseTemps(t *testing.T) {
	file := writeProgram(t, "prog.ewhile", scopedProgram)
	reuse, _, err := execute("--dscopes", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	noReuse, _, err := execute("--dscopes", "--no-reuse-temps", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reuse == noReuse {
		t.Errorf("expected --no-reuse-temps to change allocation")
	}
	if !strings.Contains(noReuse, "11 temporaries") {
		t.Errorf("expected 11 temporaries without reuse, got %q", noReuse)
	}
	if !strings.Contains(reuse, "8 temporaries") {
		t.Errorf("expected 8 temporaries with reuse, got %q", reuse)
	}
}

func TestNotApplicable(t *testing.T) {
	whileFile := writeProgram(t, "prog.while", transferProgram)
	ewhileFile := writeProgram(t, "prog.ewhile", scopedProgram)

	tests := [][]string{
		{"--dscopes", whileFile},
		{"--dopt", ewhileFile},
		{"--dsymbols", ewhileFile},
		{"--run", "x1=1", ewhileFile},
	}
	for _, args := range tests {
		_, errOut, err := execute(args...)
		if !errors.Is(err, ErrNotApplicable) {
			t.Errorf("%v: expected ErrNotApplicable, got %v", args, err)
		}
		if !strings.Contains(errOut, "applies to") {
			t.Errorf("%v: expected warning, got %q", args, errOut)
		}
	}
}

func TestConfigFile(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	cfg := writeProgram(t, "cfg.yaml", "optimize: false\n")

	out, _, err := execute("--config", cfg, file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "while x1 > 0 do") {
		t.Errorf("expected config to disable rewriting, got %q", out)
	}

	bad := writeProgram(t, "bad.yaml", "bigint: decimal\n")
	if _, _, err := execute("--config", bad, file); err == nil {
		t.Error("expected invalid config error")
	}
}

func TestVerboseLogging(t *testing.T) {
	file := writeProgram(t, "prog.while", transferProgram)
	out, _, err := execute("-v", "rewrite", file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "x2 = x2 + x1") {
		t.Errorf("logging should not change stdout, got %q", out)
	}
}

func TestDumpFilename(t *testing.T) {
	tests := []struct {
		input    string
		stage    string
		expected string
	}{
		{"test.while", "parsed", "test.parsed.while"},
		{"path/to/file.while", "opt", "path/to/file.opt.while"},
		{"prog.ewhile", "parsed", "prog.parsed.ewhile"},
		{"no_extension", "parsed", "no_extension.parsed.while"},
		{"multiple.dots.while", "opt", "multiple.dots.opt.while"},
	}

	for _, tc := range tests {
		result := dumpFilename(tc.input, tc.stage)
		if result != tc.expected {
			t.Errorf("dumpFilename(%q, %q) = %q, want %q", tc.input, tc.stage, result, tc.expected)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"single-dash dparse", []string{"-dparse", "a.while"}, []string{"--dparse", "a.while"}},
		{"double-dash unchanged", []string{"--dopt", "a.while"}, []string{"--dopt", "a.while"}},
		{"O0", []string{"-O0", "a.while"}, []string{"--O0", "a.while"}},
		{"mixed", []string{"a.while", "-dsymbols", "-dscopes"}, []string{"a.while", "--dsymbols", "--dscopes"}},
		{"other flags unchanged", []string{"-v", "rewrite", "a.while"}, []string{"-v", "rewrite", "a.while"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := normalizeFlags(tc.input)
			if strings.Join(result, " ") != strings.Join(tc.expected, " ") {
				t.Errorf("normalizeFlags(%v) = %v, want %v", tc.input, result, tc.expected)
			}
		})
	}
}
