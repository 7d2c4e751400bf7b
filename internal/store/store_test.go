package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/config"
	"github.com/hpungsan/triage/internal/db"
	"github.com/hpungsan/triage/internal/errors"
	"github.com/hpungsan/triage/internal/slots"
)

func newCase(id string, startedMs int64, notes ...string) *cases.Case {
	c := cases.New(id, time.UnixMilli(startedMs))
	for _, n := range notes {
		c.AddNote(n)
	}
	return c
}

func backends(t *testing.T) map[string]Repository {
	t.Helper()

	file, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	sqlite := NewSQLRepository(database, db.SQLite)

	repos := map[string]Repository{"json": file, "sqlite": sqlite}
	for _, r := range repos {
		r := r
		t.Cleanup(func() { _ = r.Close() })
	}
	return repos
}

func TestRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := newCase("01AAA", 1000, "chest pain")
			c.Bump("CHEST_PAIN", 1)
			require.NoError(t, repo.SaveCase(ctx, c, "sess-1"))

			c.AddNote("2 hours")
			c.AddNote("severe")
			c.SetDuration(slots.Duration{Label: "2 hours", Minutes: 120})
			c.SetSeverity(slots.SeveritySevere)
			c.LastPrompt = cases.PromptAskSeverity
			c.Lock(cases.Result{Level: "911", Confidence: 0.92, Reasons: []string{"Chest pain (conf 100%)"}, RedFlags: []string{"Chest pain (conf 100%)"}})
			require.NoError(t, repo.SaveCase(ctx, c, "sess-1"))

			rec, err := repo.GetCase(ctx, "01AAA")
			require.NoError(t, err)
			require.Equal(t, "sess-1", rec.SessionID)
			require.Equal(t, int64(1000), rec.StartedEpochMs)
			require.True(t, rec.Locked)
			require.True(t, rec.TriageComplete)
			require.Equal(t, "911", rec.TriageLevel)
			require.Equal(t, []string{"chest pain", "2 hours", "severe"}, rec.Notes)
			require.Equal(t, "severe", rec.Severity)
			require.Equal(t, cases.PromptAskSeverity, rec.LastPrompt)
			require.Equal(t, []cases.CandidateScore{{Code: "CHEST_PAIN", Confidence: 1}}, rec.CandidateConfidence)

			list, err := repo.ListCases(ctx, 0)
			require.NoError(t, err)
			require.Len(t, list, 1)
			require.Equal(t, 3, list[0].NotesCount)
			require.Equal(t, 1, list[0].RedFlagCount)
		})
	}
}

func TestRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, repo.SaveCase(ctx, newCase("A", 100, "x"), "s"))
			require.NoError(t, repo.SaveCase(ctx, newCase("C", 300, "x"), "s"))
			require.NoError(t, repo.SaveCase(ctx, newCase("B", 200, "x"), "s"))

			list, err := repo.ListCases(ctx, 0)
			require.NoError(t, err)
			ids := make([]string, len(list))
			for i, s := range list {
				ids[i] = s.CaseID
			}
			require.Equal(t, []string{"C", "B", "A"}, ids)

			list, err = repo.ListCases(ctx, 2)
			require.NoError(t, err)
			require.Len(t, list, 2)
		})
	}
}

func TestRepository_NotFound(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetCase(context.Background(), "NOPE")
			require.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
		})
	}
}

func TestFileRepository_Layout(t *testing.T) {
	dataDir := t.TempDir()
	repo, err := NewFileRepository(dataDir)
	require.NoError(t, err)

	require.NoError(t, repo.SaveCase(context.Background(), newCase("01XYZ", 1, "hello"), "s"))
	require.FileExists(t, filepath.Join(dataDir, "cases", "case_01XYZ.json"))

	// no temp files left behind
	entries, err := os.ReadDir(repo.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileRepository_RejectsUnsafeIDs(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	_, err = repo.GetCase(context.Background(), "../etc/passwd")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	err = repo.SaveCase(context.Background(), newCase("a/b", 1, "x"), "s")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestFileRepository_SkipsCorruptFiles(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.SaveCase(context.Background(), newCase("GOOD", 1, "x"), "s"))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir(), "case_BAD.json"), []byte("{oops"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir(), "notes.txt"), []byte("ignored"), 0600))

	list, err := repo.ListCases(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "GOOD", list[0].CaseID)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	cfg := config.DefaultConfig()
	repo, err := Open(ctx, cfg, t.TempDir())
	require.NoError(t, err)
	require.IsType(t, &FileRepository{}, repo)
	require.NoError(t, repo.Close())

	cfg.Backend = config.BackendSQLite
	base := t.TempDir()
	repo, err = Open(ctx, cfg, base)
	require.NoError(t, err)
	require.IsType(t, &SQLRepository{}, repo)
	require.FileExists(t, filepath.Join(base, "data", db.FileName))
	require.NoError(t, repo.Close())

	cfg.Backend = "mongo"
	_, err = Open(ctx, cfg, t.TempDir())
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, repo.SaveCase(ctx, newCase("A", 100, "cough"), "s1"))
	require.NoError(t, repo.SaveCase(ctx, newCase("B", 200, "fever", "2 days"), "s2"))

	var buf strings.Builder
	n, err := Export(ctx, repo, &buf, 0, time.Unix(42, 0))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	sc := bufio.NewScanner(strings.NewReader(buf.String()))
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 3)

	var header ExportHeader
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &header))
	require.True(t, header.TriageExport)
	require.Equal(t, int64(42), header.ExportedAt)

	var first cases.Record
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &first))
	require.Equal(t, "B", first.CaseID)
	require.Equal(t, []string{"fever", "2 days"}, first.Notes)
}

func TestExportFile(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, repo.SaveCase(ctx, newCase("A", 100, "cough"), "s1"))

	path := filepath.Join(t.TempDir(), "out", "cases.jsonl")
	out, err := ExportFile(ctx, repo, path, 0)
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	require.FileExists(t, path)

	for _, bad := range []string{"", "cases.json", "../cases.jsonl"} {
		_, err := ExportFile(ctx, repo, bad, 0)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "path %q", bad)
	}
}
