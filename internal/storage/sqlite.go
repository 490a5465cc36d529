// Package storage keeps a history of diagnosis runs in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/mrzor/claude-diagnose/internal/model"
	"github.com/mrzor/claude-diagnose/internal/report"
)

const schemaVersion = 1

// Store is a report history backed by SQLite.
type Store struct {
	db *sql.DB
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID         string  `json:"run_id"`
	Timestamp     string  `json:"timestamp"`
	Hostname      string  `json:"hostname"`
	ProcessCount  int     `json:"process_count"`
	TotalCPU      float64 `json:"total_cpu"`
	CriticalCount int     `json:"critical_count"`
	WarningCount  int     `json:"warning_count"`
}

// StoredDiagnosis is one row of the diagnoses table.
type StoredDiagnosis struct {
	RunID  string `json:"run_id"`
	PID    int    `json:"pid"`
	Source string `json:"source"`
	model.Diagnosis
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) init() error {
	for _, st := range []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
	} {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	var userVersion int
	if err := s.db.QueryRow(`PRAGMA user_version;`).Scan(&userVersion); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if userVersion == 0 {
		if err := s.migrateToV1(); err != nil {
			return err
		}
		if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version=%d;`, schemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
		userVersion = schemaVersion
	}
	if userVersion != schemaVersion {
		return fmt.Errorf("unsupported sqlite schema version %d", userVersion)
	}
	return nil
}

func (s *Store) migrateToV1() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs(
			id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			hostname TEXT,
			os_version TEXT,
			process_count INTEGER,
			total_cpu REAL,
			total_mem REAL,
			total_rss_mb INTEGER,
			critical_count INTEGER,
			warning_count INTEGER,
			report_json TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS diagnoses(
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			pid INTEGER,
			source TEXT,
			issue TEXT,
			severity TEXT,
			description TEXT,
			remedy TEXT,
			PRIMARY KEY(run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_diagnoses_issue ON diagnoses(issue);`,
	}
	for _, st := range ddl {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveReport stores r and every diagnosis it carries in one transaction.
func (s *Store) SaveReport(ctx context.Context, r model.Report) error {
	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs(id, ts, hostname, os_version, process_count, total_cpu, total_mem, total_rss_mb, critical_count, warning_count, report_json)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Timestamp, r.Hostname, r.OSVersion, r.ProcessCount,
		r.Summary.TotalCPU, r.Summary.TotalMem, int64(r.Summary.TotalRSSMB), //nolint:gosec // MB fits int64
		len(r.Summary.CriticalIssues), len(r.Summary.Warnings), string(blob),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO diagnoses(run_id, seq, pid, source, issue, severity, description, remedy)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare diagnoses: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	seq := 0
	for _, p := range r.Processes {
		for _, f := range report.Findings(p) {
			if _, err := stmt.ExecContext(ctx, r.RunID, seq, p.PID, f.Source, f.Issue, string(f.Severity), f.Description, f.Remedy); err != nil {
				return fmt.Errorf("insert diagnosis: %w", err)
			}
			seq++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, hostname, process_count, total_cpu, critical_count, warning_count
		 FROM runs ORDER BY ts DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.RunID, &rs.Timestamp, &rs.Hostname, &rs.ProcessCount, &rs.TotalCPU, &rs.CriticalCount, &rs.WarningCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Diagnoses returns the diagnoses recorded for runID in insertion order.
func (s *Store) Diagnoses(ctx context.Context, runID string) ([]StoredDiagnosis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pid, source, issue, severity, description, remedy
		 FROM diagnoses WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query diagnoses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredDiagnosis
	for rows.Next() {
		d := StoredDiagnosis{RunID: runID}
		var sev string
		if err := rows.Scan(&d.PID, &d.Source, &d.Issue, &sev, &d.Description, &d.Remedy); err != nil {
			return nil, fmt.Errorf("scan diagnosis: %w", err)
		}
		d.Severity = model.Severity(sev)
		out = append(out, d)
	}
	return out, rows.Err()
}

// LoadReport returns the full report stored for runID.
func (s *Store) LoadReport(ctx context.Context, runID string) (model.Report, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, runID).Scan(&blob)
	if err != nil {
		return model.Report{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	var r model.Report
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		return model.Report{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return r, nil
}
