package export

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/mnemo-hq/mnemo/internal/brain"
	"github.com/mnemo-hq/mnemo/internal/core"
)

func TestToSQLite(t *testing.T) {
	fireAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	b := brain.Fold([]core.Entry{
		&core.Behavior{Header: core.Header{ID: "b1"}, Category: "tone", Text: "be brief"},
		&core.Identity{Header: core.Header{ID: "i1"}, Key: "name", Value: "Mnemo"},
		&core.User{Header: core.Header{ID: "u1"}, Key: "timezone", Value: "Europe/Berlin"},
		&core.Learning{Header: core.Header{ID: "l1"}, Text: "repo uses make"},
		&core.Task{Header: core.Header{ID: "t1"}, Description: "fix login bug", Status: core.TaskPending, Priority: core.PriorityUrgent},
		&core.Task{Header: core.Header{ID: "t2"}, Description: "done chore", Status: core.TaskDone, Priority: core.PriorityLow},
		&core.Reminder{Header: core.Header{ID: "r1"}, Description: "standup", FireAt: fireAt},
	})

	path := filepath.Join(t.TempDir(), "brain.db")
	if err := ToSQLite(b, path); err != nil {
		t.Fatalf("ToSQLite error: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	counts := map[string]int{
		"SELECT COUNT(*) FROM behaviors":                      1,
		"SELECT COUNT(*) FROM facts":                          2,
		"SELECT COUNT(*) FROM learnings":                      1,
		"SELECT COUNT(*) FROM tasks":                          2,
		"SELECT COUNT(*) FROM tasks WHERE status = 'pending'": 1,
		"SELECT COUNT(*) FROM reminders":                      1,
	}
	for query, want := range counts {
		var got int
		if err := db.QueryRow(query).Scan(&got); err != nil {
			t.Fatalf("%s: %v", query, err)
		}
		if got != want {
			t.Errorf("%s = %d, want %d", query, got, want)
		}
	}

	var value string
	if err := db.QueryRow(`SELECT value FROM facts WHERE kind = 'identity' AND key = 'name'`).Scan(&value); err != nil {
		t.Fatal(err)
	}
	if value != "Mnemo" {
		t.Errorf("identity value = %q, want Mnemo", value)
	}
}

func TestToSQLiteReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.db")

	b := brain.Fold([]core.Entry{
		&core.Learning{Header: core.Header{ID: "l1"}, Text: "first export"},
	})
	if err := ToSQLite(b, path); err != nil {
		t.Fatal(err)
	}

	b = brain.Fold([]core.Entry{
		&core.Learning{Header: core.Header{ID: "l2"}, Text: "second export"},
	})
	if err := ToSQLite(b, path); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var got int
	if err := db.QueryRow("SELECT COUNT(*) FROM learnings").Scan(&got); err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("learnings after re-export = %d, want 1 (fresh database)", got)
	}
}
