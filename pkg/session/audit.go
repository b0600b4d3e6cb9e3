package session

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"coact/pkg/statemonitor"
	"coact/pkg/types"
)

// Audit persists session and task history to SQLite. Audit failures are
// logged and never interrupt the control loop.
type Audit struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenAudit opens (and if needed initializes) the audit database at path.
func OpenAudit(path string, log *zap.Logger) (*Audit, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task TEXT,
			status TEXT,
			summary TEXT,
			process_count INTEGER,
			cpu_usage REAL,
			memory_usage REAL,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			description TEXT,
			assigned_role TEXT,
			status TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create audit tables: %w", err)
		}
	}
	return &Audit{db: db, log: log}, nil
}

// BeginSession records the session start with a host snapshot and returns
// the session row id.
func (a *Audit) BeginSession(task string, host *statemonitor.HostSnapshot) int64 {
	if a == nil {
		return 0
	}
	var pc int
	var cpu, mem float64
	if host != nil {
		pc, cpu, mem = host.ProcessCount, host.CPUUsage, host.MemoryUsage
	}
	res, err := a.db.Exec(
		`INSERT INTO sessions (task, status, process_count, cpu_usage, memory_usage) VALUES (?, ?, ?, ?, ?)`,
		task, string(types.StatusActive), pc, cpu, mem)
	if err != nil {
		a.log.Warn("failed to record session start", zap.Error(err))
		return 0
	}
	id, _ := res.LastInsertId()
	return id
}

// EndSession records the terminal outcome of a session.
func (a *Audit) EndSession(id int64, status types.TaskStatus, summary string) {
	if a == nil || id == 0 {
		return
	}
	if _, err := a.db.Exec(
		`UPDATE sessions SET status = ?, summary = ? WHERE id = ?`,
		string(status), summary, id); err != nil {
		a.log.Warn("failed to record session end", zap.Error(err))
	}
}

// RecordTask inserts or updates one task row.
func (a *Audit) RecordTask(task *types.Task) {
	if a == nil {
		return
	}
	if _, err := a.db.Exec(
		`INSERT INTO tasks (id, parent_id, description, assigned_role, status) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		task.ID, task.ParentID, task.Description, string(task.AssignedRole), string(task.Status)); err != nil {
		a.log.Warn("failed to record task", zap.Error(err), zap.String("task", task.ID))
	}
}

// Close releases the database handle.
func (a *Audit) Close() error {
	if a == nil {
		return nil
	}
	return a.db.Close()
}
