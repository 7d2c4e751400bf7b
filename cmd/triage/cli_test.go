package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/kb"
	"github.com/hpungsan/triage/internal/store"
)

// setupTestEnv creates an environment over a temporary file repository.
func setupTestEnv(t *testing.T) *appEnv {
	t.Helper()
	repo, err := store.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test repository: %v", err)
	}
	return &appEnv{cfg: config.DefaultConfig(), kb: kb.Default(), repo: repo}
}

// runCLI runs the app with args and stdin, returning stdout.
func runCLI(t *testing.T, env *appEnv, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(env)
	var out, errOut bytes.Buffer
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"triage"}, args...))
	return out.String(), err
}

// seedCase chats one red-flag case to completion and returns its id.
func seedCase(t *testing.T, env *appEnv) string {
	t.Helper()
	if _, err := runCLI(t, env, "I have shortness of breath\n2 hours\nsevere\n", "chat", "--json", "--session=seed"); err != nil {
		t.Fatalf("seed chat failed: %v", err)
	}
	items, err := env.repo.ListCases(t.Context(), 1)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one seeded case, got %d (%v)", len(items), err)
	}
	return items[0].CaseID
}

func TestCLIChat_JSON(t *testing.T) {
	env := setupTestEnv(t)

	out, err := runCLI(t, env, "I have shortness of breath\n2 hours\nsevere\n", "chat", "--json", "--session=cli-1")
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 reply lines, got %d:\n%s", len(lines), out)
	}

	var last map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &last); err != nil {
		t.Fatalf("failed to parse reply: %v", err)
	}
	if last["locked"] != true || last["triageLevel"] != "911" {
		t.Errorf("last reply = %v, want locked 911", last)
	}
	if last["sessionId"] != "cli-1" {
		t.Errorf("sessionId = %v, want cli-1", last["sessionId"])
	}

	items, err := env.repo.ListCases(t.Context(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].SessionID != "cli-1" {
		t.Errorf("stored cases = %+v, want one for cli-1", items)
	}
}

func TestCLIChat_Text(t *testing.T) {
	env := setupTestEnv(t)

	out, err := runCLI(t, env, "I have a fever\n", "chat")
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !strings.HasPrefix(out, "triage> ") {
		t.Errorf("output = %q, want triage> prefix", out)
	}
	if !strings.Contains(out, "[30 minutes | 2 hours | 3 days | 2 weeks]") {
		t.Errorf("output = %q, want duration options", out)
	}
}

func TestCLIChat_EmptyInputStillFlushes(t *testing.T) {
	env := setupTestEnv(t)

	if _, err := runCLI(t, env, "", "chat"); err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	items, err := env.repo.ListCases(t.Context(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no stored cases, got %d", len(items))
	}
}

func TestCLICases(t *testing.T) {
	env := setupTestEnv(t)
	id := seedCase(t, env)

	out, err := runCLI(t, env, "", "cases")
	if err != nil {
		t.Fatalf("cases failed: %v", err)
	}
	var output struct {
		Cases []cases.Summary `json:"cases"`
		Count int             `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Count != 1 || output.Cases[0].CaseID != id {
		t.Errorf("cases = %+v, want %s", output.Cases, id)
	}

	if _, err := runCLI(t, env, "", "cases", "--limit=-1"); err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestCLICase(t *testing.T) {
	env := setupTestEnv(t)
	id := seedCase(t, env)

	t.Run("markdown", func(t *testing.T) {
		out, err := runCLI(t, env, "", "case", id)
		if err != nil {
			t.Fatalf("case failed: %v", err)
		}
		if !strings.HasPrefix(out, "# Case "+id) {
			t.Errorf("output = %q, want report header", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := runCLI(t, env, "", "case", "--json", id)
		if err != nil {
			t.Fatalf("case failed: %v", err)
		}
		var rec cases.Record
		if err := json.Unmarshal([]byte(out), &rec); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if rec.CaseID != id || rec.TriageLevel != "911" {
			t.Errorf("record = %+v", rec)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := runCLI(t, env, "", "case", "01ZZZZZZZZZZZZZZZZZZZZZZZZ")
		if err == nil || !strings.HasPrefix(err.Error(), "[NOT_FOUND]") {
			t.Errorf("err = %v, want [NOT_FOUND]", err)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := runCLI(t, env, "", "case")
		if err == nil || !strings.HasPrefix(err.Error(), "[INVALID_REQUEST]") {
			t.Errorf("err = %v, want [INVALID_REQUEST]", err)
		}
	})
}

func TestCLIExport(t *testing.T) {
	env := setupTestEnv(t)
	seedCase(t, env)

	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := runCLI(t, env, "", "export", "--path="+path)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var output store.ExportOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Count != 1 || output.Path != path {
		t.Errorf("output = %+v", output)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}

	if _, err := runCLI(t, env, "", "export", "--path="+filepath.Join(t.TempDir(), "out.txt")); err == nil {
		t.Error("expected error for non-jsonl path")
	}
}

func TestCLISymptoms(t *testing.T) {
	env := setupTestEnv(t)

	out, err := runCLI(t, env, "", "symptoms")
	if err != nil {
		t.Fatalf("symptoms failed: %v", err)
	}
	var output struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Count != kb.Default().Len() {
		t.Errorf("count = %d, want %d", output.Count, kb.Default().Len())
	}
}

func TestCLIKBCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "kb.yaml")
	if err := os.WriteFile(good, []byte("symptoms:\n  - code: RASH\n    label: Rash\n    aliases: [rash]\n"), 0600); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"symptoms": [{"code": "rash", "label": "", "aliases": []}]}`), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, nil, "", "kb", "check", good)
	if err != nil {
		t.Fatalf("kb check failed: %v", err)
	}
	if !strings.Contains(out, `"valid": true`) || !strings.Contains(out, `"symptoms": 1`) {
		t.Errorf("output = %s", out)
	}

	_, err = runCLI(t, nil, "", "kb", "check", bad)
	if err == nil || !strings.HasPrefix(err.Error(), "[KB_INVALID]") {
		t.Errorf("err = %v, want [KB_INVALID]", err)
	}
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.NewNotFound("abc"))
	if err.Error() != "[NOT_FOUND] case not found: abc" {
		t.Errorf("error = %q", err.Error())
	}

	err = outputError(os.ErrPermission)
	if err.Error() != os.ErrPermission.Error() {
		t.Errorf("error = %q", err.Error())
	}
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"no args", []string{"triage"}, false},
		{"serve", []string{"triage", "serve"}, true},
		{"case", []string{"triage", "case", "x"}, true},
		{"kb", []string{"triage", "kb", "check"}, true},
		{"help flag", []string{"triage", "--help"}, true},
		{"version flag", []string{"triage", "-v"}, true},
		{"unknown", []string{"triage", "bogus"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCLIMode(tt.args); got != tt.want {
				t.Errorf("isCLIMode(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"triage"}, false},
		{[]string{"triage", "help"}, true},
		{[]string{"triage", "-h"}, true},
		{[]string{"triage", "--version"}, true},
		{[]string{"triage", "serve"}, false},
	}

	for _, tt := range tests {
		if got := isHelpOrVersion(tt.args); got != tt.want {
			t.Errorf("isHelpOrVersion(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
