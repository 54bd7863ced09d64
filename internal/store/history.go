package store

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

var ErrRunNotFound = errors.New("run not found")

// HistoryStore keeps finished and in-flight runs with their log lines.
type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps in-memory databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			preset TEXT,
			status TEXT,
			error TEXT,
			loops INTEGER,
			started_at DATETIME,
			finished_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS run_logs (
			run_id TEXT,
			seq INTEGER,
			line TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

func (h *HistoryStore) StartRun(id, preset string, loops int) error {
	query := `INSERT INTO runs (id, preset, status, loops, started_at) VALUES (?, ?, ?, ?, ?)`
	_, err := h.DB.Exec(query, id, preset, string(RunRunning), loops, time.Now().UTC())
	return err
}

func (h *HistoryStore) AppendLog(runID string, seq int, line string) error {
	query := `INSERT INTO run_logs (run_id, seq, line) VALUES (?, ?, ?)`
	_, err := h.DB.Exec(query, runID, seq, line)
	return err
}

func (h *HistoryStore) FinishRun(id string, runErr error) error {
	status, msg := RunDone, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	query := `UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`
	_, err := h.DB.Exec(query, string(status), msg, time.Now().UTC(), id)
	return err
}

// ListRuns returns the most recent runs first.
func (h *HistoryStore) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, preset, status, error, loops, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`
	rows, err := h.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (h *HistoryStore) GetRun(id string) (Run, error) {
	row := h.DB.QueryRow(`SELECT id, preset, status, error, loops, started_at, finished_at FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

func (h *HistoryStore) RunLogs(id string) ([]string, error) {
	rows, err := h.DB.Query(`SELECT line FROM run_logs WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []string{}
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r        Run
		preset   sql.NullString
		status   string
		errMsg   sql.NullString
		finished sql.NullTime
	)
	if err := s.Scan(&r.ID, &preset, &status, &errMsg, &r.Loops, &r.StartedAt, &finished); err != nil {
		return Run{}, err
	}
	r.Preset = preset.String
	r.Status = RunStatus(status)
	r.Error = errMsg.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}
