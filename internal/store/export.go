package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/triage/internal/errors"
)

// ExportSchemaVersion is written into every export header.
const ExportSchemaVersion = "1.0"

// ExportHeader is the first line of a JSONL export.
type ExportHeader struct {
	TriageExport  bool   `json:"_triage_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportOutput describes a finished export.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes a header line and then one full case record per line, newest
// first. limit <= 0 exports every case. It returns the number of records written.
func Export(ctx context.Context, repo Repository, w io.Writer, limit int, now time.Time) (int, error) {
	summaries, err := repo.ListCases(ctx, limit)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	header := ExportHeader{TriageExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: now.Unix()}
	if err := enc.Encode(header); err != nil {
		return 0, errors.NewInternal(err)
	}

	count := 0
	for _, s := range summaries {
		if err := ctx.Err(); err != nil {
			return count, errors.NewStorage("export", err)
		}
		rec, err := repo.GetCase(ctx, s.CaseID)
		if err != nil {
			return count, err
		}
		if err := enc.Encode(rec); err != nil {
			return count, errors.NewInternal(err)
		}
		count++
	}
	if err := bw.Flush(); err != nil {
		return count, errors.NewInternal(err)
	}
	return count, nil
}

// ExportFile writes an export to path (.jsonl) through a temp file, leaving
// any existing file intact on failure.
func ExportFile(ctx context.Context, repo Repository, path string, limit int) (*ExportOutput, error) {
	if err := validateExportPath(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	now := time.Now()
	var buf strings.Builder
	count, err := Export(ctx, repo, &buf, limit, now)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, []byte(buf.String())); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ExportOutput{Path: path, Count: count, ExportedAt: now.Unix()}, nil
}

func validateExportPath(path string) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return errors.NewInvalidRequest("path must not contain directory traversal (..)")
		}
	}
	if filepath.Ext(filepath.Clean(path)) != ".jsonl" {
		return errors.NewInvalidRequest("path must have .jsonl extension")
	}
	return nil
}
