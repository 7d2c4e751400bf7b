package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/hpungsan/triage/internal/cases"
	"github.com/hpungsan/triage/internal/errors"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// Rebind rewrites ? placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UpsertCase stores the record, replacing any earlier snapshot of the same case.
func UpsertCase(ctx context.Context, db *sql.DB, d Dialect, rec *cases.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO cases (
			case_id, session_id, started_at, updated_at,
			triage_level, triage_confidence, duration, severity,
			notes_count, red_flag_count, record_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(case_id) DO UPDATE SET
			session_id = excluded.session_id,
			updated_at = excluded.updated_at,
			triage_level = excluded.triage_level,
			triage_confidence = excluded.triage_confidence,
			duration = excluded.duration,
			severity = excluded.severity,
			notes_count = excluded.notes_count,
			red_flag_count = excluded.red_flag_count,
			record_json = excluded.record_json
	`

	_, err = db.ExecContext(ctx, d.Rebind(query),
		rec.CaseID, rec.SessionID, rec.StartedEpochMs, rec.UpdatedEpochMs,
		rec.TriageLevel, rec.TriageConfidence, rec.Duration, rec.Severity,
		len(rec.Notes), len(rec.TriageRedFlags), string(data),
	)
	if err != nil {
		return errors.NewStorage("save case", err)
	}
	return nil
}

// GetCase retrieves the latest snapshot of a case.
func GetCase(ctx context.Context, db *sql.DB, d Dialect, caseID string) (*cases.Record, error) {
	var data string
	err := db.QueryRowContext(ctx, d.Rebind(`SELECT record_json FROM cases WHERE case_id = ?`), caseID).Scan(&data)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(caseID)
		}
		return nil, errors.NewStorage("get case", err)
	}

	var rec cases.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, errors.NewStorage("decode case", err)
	}
	return &rec, nil
}

// ListCases returns case summaries, newest first. limit <= 0 returns all.
func ListCases(ctx context.Context, db *sql.DB, d Dialect, limit int) ([]cases.Summary, error) {
	query := `
		SELECT case_id, session_id, started_at, triage_level, triage_confidence,
			duration, severity, notes_count, red_flag_count
		FROM cases
		ORDER BY started_at DESC, case_id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return nil, errors.NewStorage("list cases", err)
	}
	defer rows.Close()

	out := make([]cases.Summary, 0)
	for rows.Next() {
		var s cases.Summary
		if err := rows.Scan(
			&s.CaseID, &s.SessionID, &s.StartedEpochMs, &s.TriageLevel, &s.TriageConfidence,
			&s.Duration, &s.Severity, &s.NotesCount, &s.RedFlagCount,
		); err != nil {
			return nil, errors.NewStorage("list cases", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("list cases", err)
	}
	return out, nil
}

// CountCases returns the number of stored cases.
func CountCases(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cases`).Scan(&n); err != nil {
		return 0, errors.NewStorage("count cases", err)
	}
	return n, nil
}
