// Package store persists clearity entities in SQLite. Every write is a
// single-statement operation with a server-generated UUID id; there are no
// multi-statement transactions spanning a pipeline turn.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"clearity/internal/logging"
)

// LocalStore wraps the SQLite database. Safe for concurrent use; reads take
// the read lock, writes the write lock.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore opens (creating if needed) the SQLite database at path.
// Use ":memory:" for tests.
func NewLocalStore(path string) (*LocalStore, error) {
	logging.Store("Initializing LocalStore at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		logging.StoreDebug("Failed to enable sqlite foreign_keys: %v", err)
	}

	s := &LocalStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Store("LocalStore initialization complete")
	return s, nil
}

func (s *LocalStore) initialize() error {
	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL
	);
	`

	sessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
	`

	messagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
	`

	mindMapsTable := `
	CREATE TABLE IF NOT EXISTS mind_maps (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		map_name TEXT NOT NULL,
		central_theme TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mind_maps_session ON mind_maps(session_id);
	`

	// Projects and child nodes share one table; nodes carry a parent_id.
	// List-valued attributes (fields) are stored as JSON text.
	projectsTable := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		mind_map_id TEXT NOT NULL,
		parent_id TEXT,
		label TEXT NOT NULL,
		fields TEXT,
		emotion TEXT,
		clarity TEXT,
		issue_severity TEXT,
		status TEXT,
		importance_score REAL DEFAULT 0.5,
		is_core_issue BOOLEAN DEFAULT FALSE,
		is_visible BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_map ON projects(mind_map_id);
	CREATE INDEX IF NOT EXISTS idx_projects_parent ON projects(parent_id);
	`

	connectionsTable := `
	CREATE TABLE IF NOT EXISTS connections (
		id TEXT PRIMARY KEY,
		mind_map_id TEXT NOT NULL,
		connection_type TEXT NOT NULL,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		strength TEXT,
		root_cause_id TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_connections_map ON connections(mind_map_id);
	`

	issuesTable := `
	CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		mind_map_id TEXT NOT NULL,
		issue_type TEXT NOT NULL,
		description TEXT,
		severity TEXT,
		project_ids TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_issues_map ON issues(mind_map_id);
	`

	rootCausesTable := `
	CREATE TABLE IF NOT EXISTS root_causes (
		id TEXT PRIMARY KEY,
		mind_map_id TEXT NOT NULL,
		cause_id TEXT NOT NULL,
		short_explanation TEXT,
		linked_issue_ids TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_root_causes_map ON root_causes(mind_map_id);
	`

	plansTable := `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		issue_id TEXT NOT NULL,
		steps TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_plans_issue ON plans(issue_id);
	`

	tasksTable := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		mind_map_id TEXT NOT NULL,
		name TEXT NOT NULL,
		related_issue_id TEXT,
		related_project_ids TEXT,
		priority_score REAL DEFAULT 0,
		kpi TEXT,
		subtasks TEXT,
		estimated_time_min INTEGER,
		context_hint TEXT,
		status TEXT DEFAULT 'pending',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_map ON tasks(mind_map_id);
	`

	snapshotsTable := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		mind_map_id TEXT,
		snapshot_data TEXT,
		progress_notes TEXT,
		unresolved_issues TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_id);
	CREATE INDEX IF NOT EXISTS idx_snapshots_map ON snapshots(mind_map_id);
	`

	for _, table := range []string{
		usersTable,
		sessionsTable,
		messagesTable,
		mindMapsTable,
		projectsTable,
		connectionsTable,
		issuesTable,
		rootCausesTable,
		plansTable,
		tasksTable,
		snapshotsTable,
	} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *LocalStore) Close() error {
	logging.Store("Closing LocalStore database connection")
	return s.db.Close()
}

func newID() string {
	return uuid.NewString()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// marshalList encodes a string slice as JSON text, nil-safe.
func marshalList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// unmarshalList decodes a JSON text column into a string slice, tolerating
// NULL and malformed values.
func unmarshalList(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal([]byte(raw.String), &items); err != nil {
		logging.StoreDebug("Failed to parse JSON list column: %v", err)
		return []string{}
	}
	return items
}
