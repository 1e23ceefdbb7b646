// Package actions is the write-side surface callers use instead of
// touching the log directly. Each method validates its parameters,
// performs the fold+append it stands for, and returns a typed payload
// or a typed error.
package actions

import (
	"fmt"
	"time"

	"github.com/mnemo-hq/mnemo/internal/brain"
	"github.com/mnemo-hq/mnemo/internal/core"
	"github.com/mnemo-hq/mnemo/internal/logging"
	"github.com/mnemo-hq/mnemo/internal/migrate"
	"github.com/mnemo-hq/mnemo/internal/store"
)

// Dispatcher executes memory operations against one store.
type Dispatcher struct {
	store *store.Store
	log   *logging.Logger
}

// New returns a dispatcher over s.
func New(s *store.Store) *Dispatcher {
	return &Dispatcher{
		store: s,
		log:   logging.WithField("component", "actions"),
	}
}

// Snapshot folds the log into its current state.
func (d *Dispatcher) Snapshot() (*brain.Brain, error) {
	return d.store.Fold()
}

// AddBehavior records a standing rule. Re-adding the same rule is a
// no-op that returns the existing entry.
func (d *Dispatcher) AddBehavior(category, text string) (*core.Behavior, bool, error) {
	e, added, err := d.store.AppendWithDedup(&core.Behavior{Category: category, Text: text})
	if err != nil {
		return nil, false, err
	}
	return e.(*core.Behavior), added, nil
}

// SetIdentity records a fact about the agent. Writing an unchanged
// value is a no-op; a changed value appends a superseding entry under
// the same key-derived id.
func (d *Dispatcher) SetIdentity(key, value string) (*core.Identity, bool, error) {
	b, err := d.store.Fold()
	if err != nil {
		return nil, false, err
	}
	if current, ok := b.Identity[key]; ok && current == value {
		if e, found := b.ByID(store.DeterministicID(core.KindIdentity, key)); found {
			return e.(*core.Identity), false, nil
		}
		return nil, false, nil
	}
	e, err := d.store.Append(&core.Identity{Key: key, Value: value})
	if err != nil {
		return nil, false, err
	}
	return e.(*core.Identity), true, nil
}

// SetUser records a fact about the human, with the same update rule as
// SetIdentity.
func (d *Dispatcher) SetUser(key, value string) (*core.User, bool, error) {
	b, err := d.store.Fold()
	if err != nil {
		return nil, false, err
	}
	if current, ok := b.User[key]; ok && current == value {
		if e, found := b.ByID(store.DeterministicID(core.KindUser, key)); found {
			return e.(*core.User), false, nil
		}
		return nil, false, nil
	}
	e, err := d.store.Append(&core.User{Key: key, Value: value})
	if err != nil {
		return nil, false, err
	}
	return e.(*core.User), true, nil
}

// AddLearning records a lesson. Duplicates by normalized text are
// suppressed without writing.
func (d *Dispatcher) AddLearning(text, source string) (*core.Learning, bool, error) {
	b, err := d.store.Fold()
	if err != nil {
		return nil, false, err
	}
	if b.HasLearning(text) {
		return nil, false, nil
	}
	e, err := d.store.Append(&core.Learning{Text: text, Source: source})
	if err != nil {
		return nil, false, err
	}
	return e.(*core.Learning), true, nil
}

// AddPreference records a stated preference, suppressing duplicates by
// normalized text.
func (d *Dispatcher) AddPreference(text, category string) (*core.Preference, bool, error) {
	b, err := d.store.Fold()
	if err != nil {
		return nil, false, err
	}
	if b.HasPreference(text) {
		return nil, false, nil
	}
	e, err := d.store.Append(&core.Preference{Text: text, Category: category})
	if err != nil {
		return nil, false, err
	}
	return e.(*core.Preference), true, nil
}

// SaveContext records working context for a project path. A later save
// for the same path supersedes the earlier content; saving unchanged
// content is a no-op.
func (d *Dispatcher) SaveContext(project, path, content string) (*core.Context, bool, error) {
	b, err := d.store.Fold()
	if err != nil {
		return nil, false, err
	}
	if current, ok := b.ContextByPath(path); ok && current.Content == content {
		return current, false, nil
	}
	e, err := d.store.Append(&core.Context{Project: project, Path: path, Content: content})
	if err != nil {
		return nil, false, err
	}
	return e.(*core.Context), true, nil
}

// AddTask records a new pending task.
func (d *Dispatcher) AddTask(description string, priority core.TaskPriority, tags []string, due *time.Time) (*core.Task, error) {
	if priority == "" {
		priority = core.PriorityNormal
	}
	e, err := d.store.Append(&core.Task{
		Description: description,
		Status:      core.TaskPending,
		Priority:    priority,
		Tags:        tags,
		Due:         due,
	})
	if err != nil {
		return nil, err
	}
	return e.(*core.Task), nil
}

// CompleteTask marks a task done by appending a superseding entry under
// the same id. Unknown ids return core.ErrNotFound.
func (d *Dispatcher) CompleteTask(id string) (*core.Task, error) {
	b, err := d.store.Fold()
	if err != nil {
		return nil, err
	}
	current, ok := b.Tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	if current.Status == core.TaskDone {
		return current, nil
	}

	now := time.Now().UTC()
	done := *current
	done.Status = core.TaskDone
	done.CompletedAt = &now
	e, err := d.store.Append(&done)
	if err != nil {
		return nil, err
	}
	d.log.Debug("task completed: %s", id)
	return e.(*core.Task), nil
}

// ListTasks returns tasks in priority order, optionally pending only.
func (d *Dispatcher) ListTasks(pendingOnly bool) ([]*core.Task, error) {
	b, err := d.store.Fold()
	if err != nil {
		return nil, err
	}
	if pendingOnly {
		return b.PendingTasks(), nil
	}
	return b.TasksByPriority(), nil
}

// AddReminder schedules a timed nudge.
func (d *Dispatcher) AddReminder(description string, fireAt time.Time) (*core.Reminder, error) {
	e, err := d.store.Append(&core.Reminder{Description: description, FireAt: fireAt})
	if err != nil {
		return nil, err
	}
	return e.(*core.Reminder), nil
}

// MarkReminderFired rewrites a reminder with its fired flag set, so it
// never fires twice. Unknown ids return core.ErrNotFound.
func (d *Dispatcher) MarkReminderFired(id string) (*core.Reminder, error) {
	b, err := d.store.Fold()
	if err != nil {
		return nil, err
	}
	current, ok := b.Reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, core.ErrNotFound)
	}
	if current.Fired {
		return current, nil
	}

	fired := *current
	fired.Fired = true
	e, err := d.store.Append(&fired)
	if err != nil {
		return nil, err
	}
	return e.(*core.Reminder), nil
}

// RemoveEntry logically deletes a materialized entry by appending a
// tombstone. Unknown ids return core.ErrNotFound; the original line is
// never erased.
func (d *Dispatcher) RemoveEntry(id string) error {
	b, err := d.store.Fold()
	if err != nil {
		return err
	}
	if _, ok := b.ByID(id); !ok {
		return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	_, err = d.store.Append(&core.Tombstone{TargetID: id})
	return err
}

// StatusReport summarizes the store for the status surface.
type StatusReport struct {
	LogPath      string       `json:"log_path"`
	Entries      int          `json:"entries"`
	SkippedLines int          `json:"skipped_lines"`
	Counts       brain.Counts `json:"counts"`
	Migrated     bool         `json:"migrated"`
}

// Status reads the whole log once and reports entry and category counts.
func (d *Dispatcher) Status() (*StatusReport, error) {
	entries, skipped, err := d.store.Read()
	if err != nil {
		return nil, err
	}
	b := brain.Fold(entries)
	return &StatusReport{
		LogPath:      d.store.Path(),
		Entries:      len(entries),
		SkippedLines: skipped,
		Counts:       b.Count(),
		Migrated:     migrate.Done(b),
	}, nil
}
