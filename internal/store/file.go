package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/errors"
)

const (
	casesDir   = "cases"
	filePrefix = "case_"
	fileSuffix = ".json"
)

// caseIDPattern keeps case ids safe to use as file names.
var caseIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// FileRepository stores each case as <dataDir>/cases/case_<id>.json.
type FileRepository struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileRepository creates the cases directory under dataDir.
func NewFileRepository(dataDir string) (*FileRepository, error) {
	dir := filepath.Join(dataDir, casesDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewStorage("create cases directory", err)
	}
	return &FileRepository{dir: dir, now: time.Now}, nil
}

// Dir returns the directory holding case files.
func (r *FileRepository) Dir() string {
	return r.dir
}

func (r *FileRepository) path(caseID string) (string, error) {
	if !caseIDPattern.MatchString(caseID) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid case id %q", caseID))
	}
	return filepath.Join(r.dir, filePrefix+caseID+fileSuffix), nil
}

// SaveCase implements Repository.
func (r *FileRepository) SaveCase(ctx context.Context, c *cases.Case, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return errors.NewStorage("save case", err)
	}
	path, err := r.path(c.ID)
	if err != nil {
		return err
	}
	rec := c.Snapshot(sessionID, r.now())
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return errors.NewStorage("save case", err)
	}
	return nil
}

// GetCase implements Repository.
func (r *FileRepository) GetCase(_ context.Context, caseID string) (*cases.Record, error) {
	path, err := r.path(caseID)
	if err != nil {
		return nil, err
	}
	rec, err := readRecord(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewNotFound(caseID)
		}
		return nil, errors.NewStorage("get case", err)
	}
	return rec, nil
}

// ListCases implements Repository. Unreadable files are skipped with a warning.
func (r *FileRepository) ListCases(ctx context.Context, limit int) ([]cases.Summary, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, errors.NewStorage("list cases", err)
	}

	out := make([]cases.Summary, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.NewStorage("list cases", err)
		}
		rec, err := readRecord(filepath.Join(r.dir, name))
		if err != nil {
			slog.Warn("skipping unreadable case file", "file", name, "error", err)
			continue
		}
		out = append(out, rec.ToSummary())
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedEpochMs != out[j].StartedEpochMs {
			return out[i].StartedEpochMs > out[j].StartedEpochMs
		}
		return out[i].CaseID > out[j].CaseID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Repository.
func (r *FileRepository) Close() error {
	return nil
}

func readRecord(path string) (*cases.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec cases.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
