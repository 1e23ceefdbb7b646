// Package core defines the fundamental types for Mnemo.
// Every fact the agent remembers is one of the entry variants below,
// stored as a single JSON line in the unified append-only log.
package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// KIND - The closed set of entry variants
// -----------------------------------------------------------------------------

// Kind discriminates the entry variants in the unified log.
type Kind string

const (
	KindBehavior   Kind = "behavior"   // A standing rule for how the agent acts
	KindIdentity   Kind = "identity"   // A fact about the agent itself
	KindUser       Kind = "user"       // A fact about the human
	KindLearning   Kind = "learning"   // Something learned along the way
	KindPreference Kind = "preference" // A stated preference of the human
	KindContext    Kind = "context"    // Working context for a project
	KindTask       Kind = "task"       // A tracked unit of work
	KindReminder   Kind = "reminder"   // A timed nudge
	KindTombstone  Kind = "tombstone"  // Logical delete of an earlier entry
	KindMeta       Kind = "meta"       // Store bookkeeping (schema/migration markers)
)

// Kinds lists every valid entry kind, in canonical order.
func Kinds() []Kind {
	return []Kind{
		KindBehavior, KindIdentity, KindUser, KindLearning, KindPreference,
		KindContext, KindTask, KindReminder, KindTombstone, KindMeta,
	}
}

// -----------------------------------------------------------------------------
// TASK ENUMS
// -----------------------------------------------------------------------------

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
)

// TaskPriority orders tasks for listing. Urgent sorts first, low last.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityNormal TaskPriority = "normal"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Rank returns the sort rank of a priority. Lower ranks list first.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// -----------------------------------------------------------------------------
// ENTRY - One line in the log
// -----------------------------------------------------------------------------

// Header carries the fields common to every log entry.
type Header struct {
	ID      string    `json:"id"`
	Type    Kind      `json:"type"`
	Created time.Time `json:"created"`
}

// EntryID returns the entry's log-wide identifier.
func (h *Header) EntryID() string { return h.ID }

// CreatedAt returns the timestamp of the entry's first appearance.
func (h *Header) CreatedAt() time.Time { return h.Created }

func (h *Header) header() *Header { return h }

// Entry is the closed set of records that may appear in the log.
// The set is sealed: only the variants in this package implement it,
// so folding can switch exhaustively and a new variant cannot fall
// through unhandled.
type Entry interface {
	Kind() Kind
	EntryID() string
	CreatedAt() time.Time
	header() *Header
}

// Behavior is a standing rule the agent follows, grouped by category.
type Behavior struct {
	Header
	Category string `json:"category"`
	Text     string `json:"text"`
}

func (*Behavior) Kind() Kind { return KindBehavior }

// Identity is a keyed fact about the agent (name, persona, voice).
// The materialized value for a key is the most recent write.
type Identity struct {
	Header
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (*Identity) Kind() Kind { return KindIdentity }

// User is a keyed fact about the human the agent serves.
type User struct {
	Header
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (*User) Kind() Kind { return KindUser }

// Learning is a free-form lesson picked up during a session.
type Learning struct {
	Header
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

func (*Learning) Kind() Kind { return KindLearning }

// Preference is a stated preference of the human, grouped by category.
type Preference struct {
	Header
	Text     string `json:"text"`
	Category string `json:"category"`
}

func (*Preference) Kind() Kind { return KindPreference }

// Context is working context for a project, keyed by filesystem path.
type Context struct {
	Header
	Project string `json:"project"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (*Context) Kind() Kind { return KindContext }

// Task is a tracked unit of work. A later Task entry with the same id
// replaces the prior state wholesale, which is how completion is recorded.
type Task struct {
	Header
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Tags        []string     `json:"tags,omitempty"`
	Due         *time.Time   `json:"due,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

func (*Task) Kind() Kind { return KindTask }

// Reminder is a timed nudge. Like Task it is keyed by id with
// last-write-wins, so firing is recorded by rewriting with Fired set.
type Reminder struct {
	Header
	Description string    `json:"description"`
	FireAt      time.Time `json:"fire_at"`
	Fired       bool      `json:"fired,omitempty"`
}

func (*Reminder) Kind() Kind { return KindReminder }

// Tombstone removes the effect of an earlier entry from the materialized
// view. The original line is never erased.
type Tombstone struct {
	Header
	TargetID string `json:"target_id"`
}

func (*Tombstone) Kind() Kind { return KindTombstone }

// Meta is store bookkeeping, such as the migration-completed marker.
type Meta struct {
	Header
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (*Meta) Kind() Kind { return KindMeta }

// -----------------------------------------------------------------------------
// CODEC - One JSON object per line
// -----------------------------------------------------------------------------

// ParseEntry decodes one log line into its typed variant.
// Lines that are not valid JSON, or that carry an unknown type
// discriminant, fail with a *ParseError.
func ParseEntry(data []byte) (Entry, error) {
	var env struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ParseError{Err: err}
	}

	var e Entry
	switch env.Type {
	case KindBehavior:
		e = &Behavior{}
	case KindIdentity:
		e = &Identity{}
	case KindUser:
		e = &User{}
	case KindLearning:
		e = &Learning{}
	case KindPreference:
		e = &Preference{}
	case KindContext:
		e = &Context{}
	case KindTask:
		e = &Task{}
	case KindReminder:
		e = &Reminder{}
	case KindTombstone:
		e = &Tombstone{}
	case KindMeta:
		e = &Meta{}
	default:
		return nil, &ParseError{Err: fmt.Errorf("unknown entry type %q", env.Type)}
	}

	if err := json.Unmarshal(data, e); err != nil {
		return nil, &ParseError{Err: err}
	}
	return e, nil
}

// MarshalEntry encodes an entry as a single JSON object with its type
// discriminant set. The result contains no newline; the store appends one.
func MarshalEntry(e Entry) ([]byte, error) {
	e.header().Type = e.Kind()
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s entry: %w", e.Kind(), err)
	}
	return data, nil
}
