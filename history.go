package parbreak

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// HistoryRecord is one terminal job's outcome as persisted to the history
// database. This supplements, but does not replace, the in-memory Store
// and the binary halt-save snapshot: it survives process restarts without
// requiring an explicit halt-save, at the cost of only ever growing.
type HistoryRecord struct {
	ID         JobID
	Command    string
	Status     JobStatus
	StdOut     string
	StdErr     string
	FinishedAt time.Time
}

// History is an append-only SQLite-backed log of terminal jobs. Grounded in
// the teacher's sqlite package (`sql.Open("sqlite3", path)` plus a WAL
// pragma for a small single-writer workload).
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if necessary) the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS job_history (
			id TEXT NOT NULL,
			command TEXT NOT NULL,
			status INTEGER NOT NULL,
			std_out TEXT NOT NULL,
			std_err TEXT NOT NULL,
			finished_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create job_history table: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}

// Record appends j's outcome to the history log. Only meaningful once j has
// reached a terminal status; callers (Store.Complete) only call it then.
func (h *History) Record(j *Job) {
	_, err := h.db.Exec(
		`INSERT INTO job_history (id, command, status, std_out, std_err, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(j.ID), j.Command, int(j.Status), j.StdOut, j.StdErr, time.Now(),
	)
	if err != nil {
		// History is a reporting convenience, not part of the dispatch
		// protocol's correctness; a write failure here must not stall job
		// completion, so it is only logged.
		log.Printf("history: failed to record %v: %v", j.ID, err)
	}
}

// Recent returns the n most recently finished history records, newest
// first, for the console `history` command.
func (h *History) Recent(n int) ([]HistoryRecord, error) {
	rows, err := h.db.Query(
		`SELECT id, command, status, std_out, std_err, finished_at FROM job_history ORDER BY finished_at DESC LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRecord
	for rows.Next() {
		var r HistoryRecord
		var id string
		var status int
		if err := rows.Scan(&id, &r.Command, &status, &r.StdOut, &r.StdErr, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.ID = JobID(id)
		r.Status = JobStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
