// Package export writes a materialized snapshot to a SQLite file so
// external tools can query memory with SQL. The export is one-way and
// disposable: the JSONL log stays the source of truth, and re-running
// the export rebuilds the database from scratch.
package export

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mnemo-hq/mnemo/internal/brain"
)

const schema = `
CREATE TABLE behaviors (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	text TEXT NOT NULL,
	created TIMESTAMP
);

CREATE TABLE facts (
	kind TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (kind, key)
);

CREATE TABLE learnings (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	source TEXT,
	created TIMESTAMP
);

CREATE TABLE preferences (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	text TEXT NOT NULL,
	created TIMESTAMP
);

CREATE TABLE contexts (
	id TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	path TEXT NOT NULL,
	content TEXT,
	created TIMESTAMP
);

CREATE TABLE tasks (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	due TIMESTAMP,
	completed_at TIMESTAMP,
	created TIMESTAMP
);

CREATE TABLE reminders (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	fire_at TIMESTAMP NOT NULL,
	fired INTEGER NOT NULL DEFAULT 0,
	created TIMESTAMP
);

CREATE INDEX idx_tasks_status ON tasks(status);
CREATE INDEX idx_reminders_fire_at ON reminders(fire_at);
`

// ToSQLite writes the snapshot to a fresh SQLite database at path,
// replacing any existing file.
func ToSQLite(b *brain.Brain, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old export: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open export database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create export schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin export transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range b.Behaviors {
		if _, err := tx.Exec(
			`INSERT INTO behaviors (id, category, text, created) VALUES (?, ?, ?, ?)`,
			e.ID, e.Category, e.Text, e.Created,
		); err != nil {
			return fmt.Errorf("export behavior %s: %w", e.ID, err)
		}
	}

	for key, value := range b.Identity {
		if _, err := tx.Exec(
			`INSERT INTO facts (kind, key, value) VALUES ('identity', ?, ?)`,
			key, value,
		); err != nil {
			return fmt.Errorf("export identity %s: %w", key, err)
		}
	}
	for key, value := range b.User {
		if _, err := tx.Exec(
			`INSERT INTO facts (kind, key, value) VALUES ('user', ?, ?)`,
			key, value,
		); err != nil {
			return fmt.Errorf("export user fact %s: %w", key, err)
		}
	}

	for _, e := range b.Learnings {
		if _, err := tx.Exec(
			`INSERT INTO learnings (id, text, source, created) VALUES (?, ?, ?, ?)`,
			e.ID, e.Text, e.Source, e.Created,
		); err != nil {
			return fmt.Errorf("export learning %s: %w", e.ID, err)
		}
	}

	for _, e := range b.Preferences {
		if _, err := tx.Exec(
			`INSERT INTO preferences (id, category, text, created) VALUES (?, ?, ?, ?)`,
			e.ID, e.Category, e.Text, e.Created,
		); err != nil {
			return fmt.Errorf("export preference %s: %w", e.ID, err)
		}
	}

	for _, e := range b.Contexts {
		if _, err := tx.Exec(
			`INSERT INTO contexts (id, project, path, content, created) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.Project, e.Path, e.Content, e.Created,
		); err != nil {
			return fmt.Errorf("export context %s: %w", e.ID, err)
		}
	}

	for _, e := range b.TasksByPriority() {
		if _, err := tx.Exec(
			`INSERT INTO tasks (id, description, status, priority, due, completed_at, created)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Description, string(e.Status), string(e.Priority),
			nullableTime(e.Due), nullableTime(e.CompletedAt), e.Created,
		); err != nil {
			return fmt.Errorf("export task %s: %w", e.ID, err)
		}
	}

	for _, e := range b.RemindersByTime() {
		if _, err := tx.Exec(
			`INSERT INTO reminders (id, description, fire_at, fired, created) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.Description, e.FireAt, boolToInt(e.Fired), e.Created,
		); err != nil {
			return fmt.Errorf("export reminder %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
