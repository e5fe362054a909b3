package memory

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// MaxFieldLength caps the stored size of tool input and response excerpts.
const MaxFieldLength = 2000

// Observation is one captured tool call.
type Observation struct {
	ID        int64     `json:"id" yaml:"id"`
	SessionID string    `json:"session_id" yaml:"session_id"`
	ToolName  string    `json:"tool_name" yaml:"tool_name"`
	Input     string    `json:"input,omitempty" yaml:"input,omitempty"`
	Response  string    `json:"response,omitempty" yaml:"response,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ObservationLog is the Layer-3 log, one SQLite file per session. Several
// hook processes may append at once; WAL plus busy_timeout serializes them.
type ObservationLog struct {
	db   *sql.DB
	path string
}

// OpenObservationLog opens (creating if needed) the log at path.
func OpenObservationLog(ctx context.Context, path string) (*ObservationLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("observations: create dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("observations: open database: %w", err)
	}
	// Pragmas are per connection; one connection keeps busy_timeout in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("observations: pragma %q: %w", p, err)
		}
	}

	log := &ObservationLog{db: db, path: path}
	if err := log.migrate(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("observations: migrate: %w", err)
	}
	return log, nil
}

func (l *ObservationLog) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS observations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			tool_name  TEXT NOT NULL,
			input      TEXT NOT NULL DEFAULT '',
			response   TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_observations_created ON observations(created_at);
	`
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

// Path returns the database file.
func (l *ObservationLog) Path() string {
	return l.path
}

// Close releases the database handle.
func (l *ObservationLog) Close() error {
	return l.db.Close()
}

// Append stores one observation. Input and Response are clipped to
// MaxFieldLength. A zero CreatedAt is set to now.
func (l *ObservationLog) Append(ctx context.Context, obs Observation) (int64, error) {
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = time.Now()
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO observations (session_id, tool_name, input, response, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		obs.SessionID, obs.ToolName,
		clip(obs.Input, MaxFieldLength), clip(obs.Response, MaxFieldLength),
		obs.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("observations: insert: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit observations, newest first.
func (l *ObservationLog) Recent(ctx context.Context, limit int) ([]Observation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, session_id, tool_name, input, response, created_at
		 FROM observations
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("observations: query: %w", err)
	}
	defer func() {
		_ = rows.Close() //nolint:errcheck // read-only query
	}()

	var out []Observation
	for rows.Next() {
		var o Observation
		var ms int64
		if err := rows.Scan(&o.ID, &o.SessionID, &o.ToolName, &o.Input, &o.Response, &ms); err != nil {
			return nil, fmt.Errorf("observations: scan: %w", err)
		}
		o.CreatedAt = time.UnixMilli(ms)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Count returns the number of stored observations.
func (l *ObservationLog) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("observations: count: %w", err)
	}
	return n, nil
}

// Capture appends one hook tool call to the log at path, opening and closing
// it around the write. input and response are raw hook JSON.
func Capture(ctx context.Context, path, sessionID, toolName string, input, response json.RawMessage) error {
	log, err := OpenObservationLog(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Close() //nolint:errcheck // write already committed
	}()

	_, err = log.Append(ctx, Observation{
		SessionID: sessionID,
		ToolName:  toolName,
		Input:     compactJSON(input),
		Response:  compactJSON(response),
	})
	return err
}

// compactJSON flattens raw JSON onto one line. A JSON string is unquoted so
// plain text responses read naturally.
func compactJSON(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// clip cuts s to at most n bytes on a rune boundary.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "... [truncated]"
}
