package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mnemo-hq/mnemo/internal/actions"
	"github.com/mnemo-hq/mnemo/internal/core"
	"github.com/mnemo-hq/mnemo/internal/store"
)

func TestCheckFiresDueReminderOnce(t *testing.T) {
	s := store.New(filepath.Join(t.TempDir(), "brain.jsonl"), time.Second)
	d := actions.New(s)

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	if _, err := d.AddReminder("standup", past); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddReminder("later", future); err != nil {
		t.Fatal(err)
	}

	var fired []string
	sched := New(d, time.Minute, func(r *core.Reminder) {
		fired = append(fired, r.Description)
	})

	if err := sched.Check(time.Now()); err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if len(fired) != 1 || fired[0] != "standup" {
		t.Fatalf("fired = %v, want [standup]", fired)
	}

	// A second check delivers nothing: the fired mark was persisted.
	if err := sched.Check(time.Now()); err != nil {
		t.Fatalf("second Check error: %v", err)
	}
	if len(fired) != 1 {
		t.Errorf("reminder fired %d times, want 1", len(fired))
	}

	b, err := d.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range b.RemindersByTime() {
		if r.Description == "standup" && !r.Fired {
			t.Error("fired mark not persisted")
		}
		if r.Description == "later" && r.Fired {
			t.Error("future reminder marked fired")
		}
	}
}

func TestCheckEmptyStore(t *testing.T) {
	s := store.New(filepath.Join(t.TempDir(), "brain.jsonl"), time.Second)
	sched := New(actions.New(s), time.Minute, nil)
	if err := sched.Check(time.Now()); err != nil {
		t.Fatalf("Check on empty store error: %v", err)
	}
}
