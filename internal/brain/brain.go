// Package brain folds the unified log into the agent's current view of
// the world. Folding is a pure function of the entry sequence: the same
// entries always produce the same Brain.
package brain

import (
	"sort"
	"strings"
	"time"

	"github.com/mnemo-hq/mnemo/internal/core"
)

// Brain is the materialized snapshot derived from the log. It has no
// lifecycle of its own and is never persisted; consumers read it or
// render it, and all writes go back through the store.
type Brain struct {
	Behaviors   []*core.Behavior
	Identity    map[string]string
	User        map[string]string
	Learnings   []*core.Learning
	Preferences []*core.Preference
	Contexts    []*core.Context
	Tasks       map[string]*core.Task
	Reminders   map[string]*core.Reminder
	Meta        map[string]string

	// byID indexes every materialized entry so tombstones and
	// content-addressed dedup resolve in constant time.
	byID map[string]core.Entry

	// Natural-key indexes backing the folding rules.
	behaviorKeys  map[string]bool          // category+text already accumulated
	learningKeys  map[string]bool          // normalized text
	prefKeys      map[string]bool          // normalized text
	contextByPath map[string]*core.Context // current entry per path
	identityByKey map[string]*core.Identity
	userByKey     map[string]*core.User
	metaByKey     map[string]*core.Meta
}

// New returns an empty Brain with all containers initialized.
func New() *Brain {
	return &Brain{
		Identity:      make(map[string]string),
		User:          make(map[string]string),
		Tasks:         make(map[string]*core.Task),
		Reminders:     make(map[string]*core.Reminder),
		Meta:          make(map[string]string),
		byID:          make(map[string]core.Entry),
		behaviorKeys:  make(map[string]bool),
		learningKeys:  make(map[string]bool),
		prefKeys:      make(map[string]bool),
		contextByPath: make(map[string]*core.Context),
		identityByKey: make(map[string]*core.Identity),
		userByKey:     make(map[string]*core.User),
		metaByKey:     make(map[string]*core.Meta),
	}
}

// Fold reduces an entry sequence into its materialized state, applying
// each entry's effect strictly in log order. Single pass, O(n) in log
// length.
func Fold(entries []core.Entry) *Brain {
	b := New()
	for _, e := range entries {
		b.apply(e)
	}
	return b
}

// apply folds one entry into the snapshot.
func (b *Brain) apply(e core.Entry) {
	switch v := e.(type) {
	case *core.Behavior:
		key := behaviorKey(v.Category, v.Text)
		if b.behaviorKeys[key] {
			return
		}
		b.behaviorKeys[key] = true
		b.Behaviors = append(b.Behaviors, v)
		b.byID[v.ID] = v

	case *core.Identity:
		if prev, ok := b.identityByKey[v.Key]; ok && prev.ID != v.ID {
			delete(b.byID, prev.ID)
		}
		b.identityByKey[v.Key] = v
		b.Identity[v.Key] = v.Value
		b.byID[v.ID] = v

	case *core.User:
		if prev, ok := b.userByKey[v.Key]; ok && prev.ID != v.ID {
			delete(b.byID, prev.ID)
		}
		b.userByKey[v.Key] = v
		b.User[v.Key] = v.Value
		b.byID[v.ID] = v

	case *core.Learning:
		key := NormalizeText(v.Text)
		if b.learningKeys[key] {
			return
		}
		b.learningKeys[key] = true
		b.Learnings = append(b.Learnings, v)
		b.byID[v.ID] = v

	case *core.Preference:
		key := NormalizeText(v.Text)
		if b.prefKeys[key] {
			return
		}
		b.prefKeys[key] = true
		b.Preferences = append(b.Preferences, v)
		b.byID[v.ID] = v

	case *core.Context:
		if prev, ok := b.contextByPath[v.Path]; ok {
			// A later entry for a known path refreshes the content in
			// place, keeping the original list position.
			for i, c := range b.Contexts {
				if c.Path == v.Path {
					b.Contexts[i] = v
					break
				}
			}
			if prev.ID != v.ID {
				delete(b.byID, prev.ID)
			}
		} else {
			b.Contexts = append(b.Contexts, v)
		}
		b.contextByPath[v.Path] = v
		b.byID[v.ID] = v

	case *core.Task:
		b.Tasks[v.ID] = v
		b.byID[v.ID] = v

	case *core.Reminder:
		b.Reminders[v.ID] = v
		b.byID[v.ID] = v

	case *core.Meta:
		if prev, ok := b.metaByKey[v.Key]; ok && prev.ID != v.ID {
			delete(b.byID, prev.ID)
		}
		b.metaByKey[v.Key] = v
		b.Meta[v.Key] = v.Value
		b.byID[v.ID] = v

	case *core.Tombstone:
		target, ok := b.byID[v.TargetID]
		if !ok {
			return // targets only entries appended earlier
		}
		b.remove(target)
		delete(b.byID, v.TargetID)
	}
}

// remove undoes a materialized entry's contribution.
func (b *Brain) remove(e core.Entry) {
	switch v := e.(type) {
	case *core.Behavior:
		delete(b.behaviorKeys, behaviorKey(v.Category, v.Text))
		b.Behaviors = dropBehavior(b.Behaviors, v.ID)
	case *core.Identity:
		delete(b.Identity, v.Key)
		delete(b.identityByKey, v.Key)
	case *core.User:
		delete(b.User, v.Key)
		delete(b.userByKey, v.Key)
	case *core.Learning:
		delete(b.learningKeys, NormalizeText(v.Text))
		b.Learnings = dropLearning(b.Learnings, v.ID)
	case *core.Preference:
		delete(b.prefKeys, NormalizeText(v.Text))
		b.Preferences = dropPreference(b.Preferences, v.ID)
	case *core.Context:
		delete(b.contextByPath, v.Path)
		b.Contexts = dropContext(b.Contexts, v.ID)
	case *core.Task:
		delete(b.Tasks, v.ID)
	case *core.Reminder:
		delete(b.Reminders, v.ID)
	case *core.Meta:
		delete(b.Meta, v.Key)
		delete(b.metaByKey, v.Key)
	}
}

// ByID returns the materialized entry carrying the given id.
func (b *Brain) ByID(id string) (core.Entry, bool) {
	e, ok := b.byID[id]
	return e, ok
}

// HasBehavior reports whether a behavior with this category and exact
// text is materialized.
func (b *Brain) HasBehavior(category, text string) bool {
	return b.behaviorKeys[behaviorKey(category, text)]
}

// HasLearning reports whether a learning with this normalized text is
// materialized.
func (b *Brain) HasLearning(text string) bool {
	return b.learningKeys[NormalizeText(text)]
}

// HasPreference reports whether a preference with this normalized text
// is materialized.
func (b *Brain) HasPreference(text string) bool {
	return b.prefKeys[NormalizeText(text)]
}

// ContextByPath returns the current context entry for a path.
func (b *Brain) ContextByPath(path string) (*core.Context, bool) {
	c, ok := b.contextByPath[path]
	return c, ok
}

// HasTaskDescription reports whether any task with this description is
// materialized. Migration uses it to avoid re-importing legacy tasks.
func (b *Brain) HasTaskDescription(description string) bool {
	for _, t := range b.Tasks {
		if t.Description == description {
			return true
		}
	}
	return false
}

// TasksByPriority returns all tasks ordered urgent, high, normal, low,
// ties broken by creation time.
func (b *Brain) TasksByPriority() []*core.Task {
	tasks := make([]*core.Task, 0, len(b.Tasks))
	for _, t := range b.Tasks {
		tasks = append(tasks, t)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		if !tasks[i].Created.Equal(tasks[j].Created) {
			return tasks[i].Created.Before(tasks[j].Created)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// PendingTasks returns the open tasks in priority order.
func (b *Brain) PendingTasks() []*core.Task {
	var pending []*core.Task
	for _, t := range b.TasksByPriority() {
		if t.Status == core.TaskPending {
			pending = append(pending, t)
		}
	}
	return pending
}

// RemindersByTime returns all reminders ordered by fire time.
func (b *Brain) RemindersByTime() []*core.Reminder {
	reminders := make([]*core.Reminder, 0, len(b.Reminders))
	for _, r := range b.Reminders {
		reminders = append(reminders, r)
	}
	sort.SliceStable(reminders, func(i, j int) bool {
		if !reminders[i].FireAt.Equal(reminders[j].FireAt) {
			return reminders[i].FireAt.Before(reminders[j].FireAt)
		}
		return reminders[i].ID < reminders[j].ID
	})
	return reminders
}

// DueReminders returns unfired reminders whose fire time has passed.
func (b *Brain) DueReminders(now time.Time) []*core.Reminder {
	var due []*core.Reminder
	for _, r := range b.RemindersByTime() {
		if !r.Fired && !r.FireAt.After(now) {
			due = append(due, r)
		}
	}
	return due
}

// Counts summarizes the materialized state per category.
type Counts struct {
	Behaviors   int `json:"behaviors"`
	Identity    int `json:"identity"`
	User        int `json:"user"`
	Learnings   int `json:"learnings"`
	Preferences int `json:"preferences"`
	Contexts    int `json:"contexts"`
	Tasks       int `json:"tasks"`
	Reminders   int `json:"reminders"`
}

// Count tallies the snapshot's containers.
func (b *Brain) Count() Counts {
	return Counts{
		Behaviors:   len(b.Behaviors),
		Identity:    len(b.Identity),
		User:        len(b.User),
		Learnings:   len(b.Learnings),
		Preferences: len(b.Preferences),
		Contexts:    len(b.Contexts),
		Tasks:       len(b.Tasks),
		Reminders:   len(b.Reminders),
	}
}

// NormalizeText is the dedup key for free-form text: trimmed and
// case-folded so trivially re-worded duplicates collapse.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func behaviorKey(category, text string) string {
	return category + "\x00" + text
}

func dropBehavior(list []*core.Behavior, id string) []*core.Behavior {
	out := list[:0]
	for _, e := range list {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func dropLearning(list []*core.Learning, id string) []*core.Learning {
	out := list[:0]
	for _, e := range list {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func dropPreference(list []*core.Preference, id string) []*core.Preference {
	out := list[:0]
	for _, e := range list {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func dropContext(list []*core.Context, id string) []*core.Context {
	out := list[:0]
	for _, e := range list {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}
