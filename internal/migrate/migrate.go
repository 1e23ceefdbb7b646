// Package migrate absorbs the legacy per-concern logs into the unified
// log, exactly once. The legacy files are read-only inputs; the only
// persisted evidence of a completed run is a Meta marker in the log
// itself, so a failed run is always retryable from scratch.
package migrate

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mnemo-hq/mnemo/internal/brain"
	"github.com/mnemo-hq/mnemo/internal/core"
	"github.com/mnemo-hq/mnemo/internal/store"
)

// MarkerKey is the Meta key recording migration completion. A value of
// "done" or "skip" means the unified log already absorbed (or was told
// to ignore) the legacy files.
const MarkerKey = "unified_migration"

// Paths locates the four legacy logs.
type Paths struct {
	Memory    string // behavior / identity / user facts
	Learnings string // learnings and preferences
	Projects  string // per-project working context
	Tasks     string // standalone task log
}

// DefaultPaths returns the legacy file locations under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		Memory:    filepath.Join(dir, "memory.jsonl"),
		Learnings: filepath.Join(dir, "learnings.jsonl"),
		Projects:  filepath.Join(dir, "projects.jsonl"),
		Tasks:     filepath.Join(dir, "tasks.jsonl"),
	}
}

// Result reports what a migration run did, per category.
type Result struct {
	Behaviors   int  `json:"behaviors"`
	Identity    int  `json:"identity"`
	User        int  `json:"user"`
	Learnings   int  `json:"learnings"`
	Preferences int  `json:"preferences"`
	Contexts    int  `json:"contexts"`
	Tasks       int  `json:"tasks"`
	Skipped     int  `json:"skipped"`
	AlreadyDone bool `json:"already_done"`
}

// Imported is the total number of entries written to the unified log.
func (r Result) Imported() int {
	return r.Behaviors + r.Identity + r.User + r.Learnings +
		r.Preferences + r.Contexts + r.Tasks
}

// HasLegacyData reports whether any legacy file exists with
// non-whitespace content.
func HasLegacyData(p Paths) bool {
	for _, path := range []string{p.Memory, p.Learnings, p.Projects, p.Tasks} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if len(bytes.TrimSpace(data)) > 0 {
			return true
		}
	}
	return false
}

// Done reports whether the materialized state already carries the
// completion marker.
func Done(b *brain.Brain) bool {
	v := b.Meta[MarkerKey]
	return v == "done" || v == "skip"
}

// Run migrates the legacy logs into the unified log behind s. Each
// legacy line is parsed independently; a line that does not parse is
// counted as skipped and the run continues. Candidates already present
// in the materialized state (or imported earlier in the same run) are
// skipped too. Running twice is a no-op: the first run ends by writing
// the completion marker.
func Run(s *store.Store, p Paths) (Result, error) {
	var res Result

	b, err := s.Fold()
	if err != nil {
		return res, fmt.Errorf("fold before migration: %w", err)
	}
	if Done(b) {
		res.AlreadyDone = true
		return res, nil
	}

	// dedup tracks what the current state already knows plus what this
	// run imports, so a duplicate later in the same legacy file is
	// skipped as well.
	d := newDedup(b)

	if err := migrateMemory(s, p.Memory, d, &res); err != nil {
		return res, err
	}
	if err := migrateLearnings(s, p.Learnings, d, &res); err != nil {
		return res, err
	}
	if err := migrateProjects(s, p.Projects, d, &res); err != nil {
		return res, err
	}
	if err := migrateTasks(s, p.Tasks, d, &res); err != nil {
		return res, err
	}

	marker := &core.Meta{Key: MarkerKey, Value: "done"}
	if _, err := s.Append(marker); err != nil {
		return res, fmt.Errorf("write migration marker: %w", err)
	}
	return res, nil
}

// -----------------------------------------------------------------------------
// DEDUP SET
// -----------------------------------------------------------------------------

type dedup struct {
	behaviors map[string]bool // category+text
	identity  map[string]bool // key
	user      map[string]bool // key
	learnings map[string]bool // normalized text
	prefs     map[string]bool // normalized text
	contexts  map[string]bool // path
	tasks     map[string]bool // description
}

func newDedup(b *brain.Brain) *dedup {
	d := &dedup{
		behaviors: make(map[string]bool),
		identity:  make(map[string]bool),
		user:      make(map[string]bool),
		learnings: make(map[string]bool),
		prefs:     make(map[string]bool),
		contexts:  make(map[string]bool),
		tasks:     make(map[string]bool),
	}
	for _, bh := range b.Behaviors {
		d.behaviors[bh.Category+"\x00"+bh.Text] = true
	}
	for k := range b.Identity {
		d.identity[k] = true
	}
	for k := range b.User {
		d.user[k] = true
	}
	for _, l := range b.Learnings {
		d.learnings[brain.NormalizeText(l.Text)] = true
	}
	for _, pr := range b.Preferences {
		d.prefs[brain.NormalizeText(pr.Text)] = true
	}
	for _, c := range b.Contexts {
		d.contexts[c.Path] = true
	}
	for _, t := range b.Tasks {
		d.tasks[t.Description] = true
	}
	return d
}

// -----------------------------------------------------------------------------
// LEGACY SHAPES
// -----------------------------------------------------------------------------
//
// Each legacy file was written by several historical versions, so every
// field is optional and each record is mapped field by field rather
// than decoded into the canonical type.

// legacyMemory covers the behavior/identity/user log.
type legacyMemory struct {
	Type      string    `json:"type"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// legacyLearning covers the learning/preference log. Older versions
// wrote the text under "content" and carried no type discriminant.
type legacyLearning struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// legacyProject covers the project-context log. Older versions wrote
// the body under "notes".
type legacyProject struct {
	Project   string    `json:"project"`
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	Notes     string    `json:"notes"`
	Timestamp time.Time `json:"timestamp"`
}

// legacyTask covers the standalone task log, which predates the type
// discriminant entirely. Older versions wrote the description under
// "task".
type legacyTask struct {
	Description string     `json:"description"`
	Task        string     `json:"task"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Tags        []string   `json:"tags"`
	Due         *time.Time `json:"due"`
	CompletedAt *time.Time `json:"completed_at"`
	Created     time.Time  `json:"created"`
}

// -----------------------------------------------------------------------------
// PER-FILE MIGRATION
// -----------------------------------------------------------------------------

func migrateMemory(s *store.Store, path string, d *dedup, res *Result) error {
	return eachLine(path, func(line []byte) {
		var rec legacyMemory
		if err := json.Unmarshal(line, &rec); err != nil {
			res.Skipped++
			return
		}
		switch rec.Type {
		case "behavior":
			if rec.Category == "" || rec.Text == "" || d.behaviors[rec.Category+"\x00"+rec.Text] {
				res.Skipped++
				return
			}
			e := &core.Behavior{Category: rec.Category, Text: rec.Text}
			e.Created = rec.Timestamp
			if _, err := s.Append(e); err == nil {
				d.behaviors[rec.Category+"\x00"+rec.Text] = true
				res.Behaviors++
			} else {
				res.Skipped++
			}
		case "identity":
			if rec.Key == "" || d.identity[rec.Key] {
				res.Skipped++
				return
			}
			e := &core.Identity{Key: rec.Key, Value: rec.Value}
			e.Created = rec.Timestamp
			if _, err := s.Append(e); err == nil {
				d.identity[rec.Key] = true
				res.Identity++
			} else {
				res.Skipped++
			}
		case "user":
			if rec.Key == "" || d.user[rec.Key] {
				res.Skipped++
				return
			}
			e := &core.User{Key: rec.Key, Value: rec.Value}
			e.Created = rec.Timestamp
			if _, err := s.Append(e); err == nil {
				d.user[rec.Key] = true
				res.User++
			} else {
				res.Skipped++
			}
		default:
			res.Skipped++
		}
	})
}

func migrateLearnings(s *store.Store, path string, d *dedup, res *Result) error {
	return eachLine(path, func(line []byte) {
		var rec legacyLearning
		if err := json.Unmarshal(line, &rec); err != nil {
			res.Skipped++
			return
		}
		text := rec.Text
		if text == "" {
			text = rec.Content
		}
		if text == "" {
			res.Skipped++
			return
		}
		norm := brain.NormalizeText(text)

		// Records without a discriminant predate preferences and are
		// learnings.
		if rec.Type == "preference" {
			if d.prefs[norm] {
				res.Skipped++
				return
			}
			category := rec.Category
			if category == "" {
				category = "general"
			}
			e := &core.Preference{Text: text, Category: category}
			e.Created = rec.Timestamp
			if _, err := s.Append(e); err == nil {
				d.prefs[norm] = true
				res.Preferences++
			} else {
				res.Skipped++
			}
			return
		}

		if d.learnings[norm] {
			res.Skipped++
			return
		}
		e := &core.Learning{Text: text, Source: rec.Source}
		e.Created = rec.Timestamp
		if _, err := s.Append(e); err == nil {
			d.learnings[norm] = true
			res.Learnings++
		} else {
			res.Skipped++
		}
	})
}

func migrateProjects(s *store.Store, path string, d *dedup, res *Result) error {
	return eachLine(path, func(line []byte) {
		var rec legacyProject
		if err := json.Unmarshal(line, &rec); err != nil {
			res.Skipped++
			return
		}
		content := rec.Content
		if content == "" {
			content = rec.Notes
		}
		project := rec.Project
		if project == "" && rec.Path != "" {
			project = filepath.Base(rec.Path)
		}
		if project == "" || rec.Path == "" || d.contexts[rec.Path] {
			res.Skipped++
			return
		}
		e := &core.Context{Project: project, Path: rec.Path, Content: content}
		e.Created = rec.Timestamp
		if _, err := s.Append(e); err == nil {
			d.contexts[rec.Path] = true
			res.Contexts++
		} else {
			res.Skipped++
		}
	})
}

func migrateTasks(s *store.Store, path string, d *dedup, res *Result) error {
	return eachLine(path, func(line []byte) {
		var rec legacyTask
		if err := json.Unmarshal(line, &rec); err != nil {
			res.Skipped++
			return
		}
		description := rec.Description
		if description == "" {
			description = rec.Task
		}
		if description == "" || d.tasks[description] {
			res.Skipped++
			return
		}
		status := core.TaskStatus(strings.ToLower(rec.Status))
		if status != core.TaskDone {
			status = core.TaskPending
		}
		priority := core.TaskPriority(strings.ToLower(rec.Priority))
		switch priority {
		case core.PriorityLow, core.PriorityNormal, core.PriorityHigh, core.PriorityUrgent:
		default:
			priority = core.PriorityNormal
		}
		e := &core.Task{
			Description: description,
			Status:      status,
			Priority:    priority,
			Tags:        rec.Tags,
			Due:         rec.Due,
			CompletedAt: rec.CompletedAt,
		}
		e.Created = rec.Created
		if _, err := s.Append(e); err == nil {
			d.tasks[description] = true
			res.Tasks++
		} else {
			res.Skipped++
		}
	})
}

// eachLine calls fn for every non-blank line of path. A missing file is
// an empty input, not an error.
func eachLine(path string, fn func(line []byte)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open legacy file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan legacy file %s: %w", path, err)
	}
	return nil
}
