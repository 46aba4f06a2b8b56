// Package journal keeps a DuckDB log of every request the vault client dispatches.
package journal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
)

// Entry is one dispatched request and the code it came back with
type Entry struct {
	ID           string
	Operation    string
	URL          string
	APITimestamp int64
	Code         string
	Message      string
	Duration     time.Duration
	CreatedAt    time.Time
}

// Journal wraps a DuckDB connection holding the requests table
type Journal struct {
	conn *sql.DB
	mu   sync.Mutex // Serializes all database operations
}

// Open opens (or creates) the journal at path. An empty path keeps it in memory.
func Open(path string) (*Journal, error) {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	j := &Journal{conn: conn}
	if err := j.initializeSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initializeSchema() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, err := j.conn.Exec(requestsTableSQL); err != nil {
		return fmt.Errorf("failed to create %s table: %w", tableRequests, err)
	}
	for _, stmt := range requestsIndexesSQL {
		if _, err := j.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Record inserts e, assigning an id and creation time when they are unset
func (j *Journal) Record(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	query := `INSERT INTO ` + tableRequests + `
(id, operation, url, api_timestamp, code, message, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := j.conn.Exec(query,
		e.ID,
		e.Operation,
		e.URL,
		e.APITimestamp,
		e.Code,
		e.Message,
		e.Duration.Milliseconds(),
		e.CreatedAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to insert request %s: %w", e.ID, err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	query := `
SELECT id, operation, url, api_timestamp, code, message, duration_ms, created_at
FROM ` + tableRequests + `
ORDER BY created_at DESC, id
LIMIT ?`

	rows, err := j.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent requests: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var message sql.NullString
		var durationMS int64
		if err := rows.Scan(&e.ID, &e.Operation, &e.URL, &e.APITimestamp, &e.Code, &message, &durationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		e.Message = message.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}
	return entries, nil
}

// CountByCode returns how many requests came back with each envelope code
func (j *Journal) CountByCode() (map[string]int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.conn.Query(`SELECT code, COUNT(*) FROM ` + tableRequests + ` GROUP BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests by code: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[code] = n
	}
	return counts, rows.Err()
}

// Count returns the total number of recorded requests
func (j *Journal) Count() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var n int
	if err := j.conn.QueryRow(`SELECT COUNT(*) FROM ` + tableRequests).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count requests: %w", err)
	}
	return n, nil
}
