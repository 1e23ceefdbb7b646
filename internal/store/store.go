// Package store owns the unified log file: one JSON object per line,
// append-only. Reads never lock; appends serialize through the advisory
// file lock so concurrent writers interleave whole lines, never bytes.
package store

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-hq/mnemo/internal/brain"
	"github.com/mnemo-hq/mnemo/internal/core"
	"github.com/mnemo-hq/mnemo/internal/lock"
)

// maxLineSize bounds a single log line. Context entries can carry whole
// file excerpts, so the scanner buffer is generous.
const maxLineSize = 4 * 1024 * 1024

// Store reads and appends the unified log at a fixed path.
type Store struct {
	path        string
	lockTimeout time.Duration
}

// New returns a store over the log at path.
func New(path string, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = lock.DefaultTimeout
	}
	return &Store{path: path, lockTimeout: lockTimeout}
}

// Path returns the log file path.
func (s *Store) Path() string { return s.path }

// Read loads every parseable entry in log order. Blank lines and lines
// that fail to parse are skipped and counted; a missing file is an empty
// log. Skipped lines are reported, not fatal.
func (s *Store) Read() ([]core.Entry, int, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	var entries []core.Entry
	skipped := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		e, perr := core.ParseEntry(line)
		if perr != nil {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan log: %w", err)
	}
	return entries, skipped, nil
}

// Fold reads the log and materializes it in one call.
func (s *Store) Fold() (*brain.Brain, error) {
	entries, _, err := s.Read()
	if err != nil {
		return nil, err
	}
	return brain.Fold(entries), nil
}

// Append validates the entry, fills in its id and timestamp if unset,
// and writes it to the log as a single line under the file lock. The
// returned entry is the one persisted, with all fields populated.
func (s *Store) Append(e core.Entry) (core.Entry, error) {
	if e.EntryID() == "" {
		if id, ok := NaturalID(e); ok {
			setID(e, id)
		} else {
			setID(e, uuid.NewString())
		}
	}
	if e.CreatedAt().IsZero() {
		setCreated(e, time.Now().UTC())
	}
	if err := core.Validate(e); err != nil {
		return nil, err
	}

	line, err := core.MarshalEntry(e)
	if err != nil {
		return nil, err
	}

	l, err := lock.Acquire(s.path, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer l.Release()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log for append: %w", err)
	}
	defer f.Close()

	// One Write call for the whole line keeps concurrent appends from
	// interleaving partial lines.
	if _, err := f.Write(append(line, '\n')); err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}
	return e, nil
}

// AppendWithDedup appends the entry unless an entry with the same
// content-derived id is already materialized, in which case the existing
// entry is returned and the log is untouched. Only entries with a
// natural key dedup this way; everything else appends unconditionally.
func (s *Store) AppendWithDedup(e core.Entry) (core.Entry, bool, error) {
	id, ok := NaturalID(e)
	if !ok {
		appended, err := s.Append(e)
		return appended, appended != nil, err
	}

	b, err := s.Fold()
	if err != nil {
		return nil, false, err
	}
	if existing, found := b.ByID(id); found {
		return existing, false, nil
	}

	setID(e, id)
	appended, err := s.Append(e)
	if err != nil {
		return nil, false, err
	}
	return appended, true, nil
}

// DeterministicID derives a stable id from an entry's identifying
// content. Equal content always yields the same id, which is what makes
// re-appending a duplicate a no-op.
func DeterministicID(kind core.Kind, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return fmt.Sprintf("%s-%x", kind, h.Sum(nil)[:8])
}

// NaturalID returns the content-derived id for the idempotent-fact
// kinds. Behavior hashes category+text; the keyed kinds hash the key
// alone, so a value update shares the id of the write it supersedes.
// Free-form kinds (Learning, Preference, Context, Task, Reminder) have
// legitimately varying content and keep random ids; duplicate
// suppression for those is a folding concern, not an id concern.
func NaturalID(e core.Entry) (string, bool) {
	switch v := e.(type) {
	case *core.Behavior:
		return DeterministicID(core.KindBehavior, v.Category, v.Text), true
	case *core.Identity:
		return DeterministicID(core.KindIdentity, v.Key), true
	case *core.User:
		return DeterministicID(core.KindUser, v.Key), true
	case *core.Meta:
		return DeterministicID(core.KindMeta, v.Key), true
	}
	return "", false
}

func setID(e core.Entry, id string) {
	switch v := e.(type) {
	case *core.Behavior:
		v.ID = id
	case *core.Identity:
		v.ID = id
	case *core.User:
		v.ID = id
	case *core.Learning:
		v.ID = id
	case *core.Preference:
		v.ID = id
	case *core.Context:
		v.ID = id
	case *core.Task:
		v.ID = id
	case *core.Reminder:
		v.ID = id
	case *core.Tombstone:
		v.ID = id
	case *core.Meta:
		v.ID = id
	}
}

func setCreated(e core.Entry, t time.Time) {
	switch v := e.(type) {
	case *core.Behavior:
		v.Created = t
	case *core.Identity:
		v.Created = t
	case *core.User:
		v.Created = t
	case *core.Learning:
		v.Created = t
	case *core.Preference:
		v.Created = t
	case *core.Context:
		v.Created = t
	case *core.Task:
		v.Created = t
	case *core.Reminder:
		v.Created = t
	case *core.Tombstone:
		v.Created = t
	case *core.Meta:
		v.Created = t
	}
}
