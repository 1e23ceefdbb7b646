package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mnemo-hq/mnemo/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "brain.jsonl"), time.Second)
}

// -----------------------------------------------------------------------------
// READ / APPEND
// -----------------------------------------------------------------------------

func TestReadMissingFile(t *testing.T) {
	s := newTestStore(t)
	entries, skipped, err := s.Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(entries) != 0 || skipped != 0 {
		t.Errorf("got %d entries, %d skipped; want 0, 0", len(entries), skipped)
	}
}

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)

	e, err := s.Append(&core.Learning{Text: "always run the linter"})
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if e.EntryID() == "" {
		t.Error("appended entry has empty id")
	}
	if e.CreatedAt().IsZero() {
		t.Error("appended entry has zero timestamp")
	}

	entries, _, err := s.Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	got, ok := entries[0].(*core.Learning)
	if !ok {
		t.Fatalf("entry type = %T, want *core.Learning", entries[0])
	}
	if got.Text != "always run the linter" {
		t.Errorf("text = %q", got.Text)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Append(&core.Behavior{Category: "tone"}); err == nil {
		t.Fatal("expected validation error for behavior without text")
	}
	if entries, _, _ := s.Read(); len(entries) != 0 {
		t.Errorf("invalid entry reached the log: %d entries", len(entries))
	}
}

func TestReadSkipsCorruptLines(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Append(&core.Learning{Text: "first"}); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(s.Path(), os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{truncated json\n")
	f.WriteString(`{"id":"z","type":"telepathy"}` + "\n")
	f.Close()

	if _, err := s.Append(&core.Learning{Text: "second"}); err != nil {
		t.Fatal(err)
	}

	entries, skipped, err := s.Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestAppendAtomicUnderContention(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task := &core.Task{
				Description: "concurrent append",
				Status:      core.TaskPending,
				Priority:    core.PriorityNormal,
			}
			_, errs[i] = s.Append(task)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("log has %d lines, want 2", len(lines))
	}
	for _, line := range lines {
		if _, err := core.ParseEntry([]byte(line)); err != nil {
			t.Errorf("corrupt line after concurrent append: %q", line)
		}
	}
}

// -----------------------------------------------------------------------------
// DETERMINISTIC IDS / DEDUP
// -----------------------------------------------------------------------------

func TestDeterministicIDStable(t *testing.T) {
	a := DeterministicID(core.KindBehavior, "tone", "be brief")
	b := DeterministicID(core.KindBehavior, "tone", "be brief")
	if a != b {
		t.Errorf("same content produced different ids: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "behavior-") {
		t.Errorf("id %q lacks kind prefix", a)
	}

	c := DeterministicID(core.KindBehavior, "to", "nebe brief")
	if a == c {
		t.Error("field boundary not separated: shifted content collides")
	}
}

func TestNaturalIDCoverage(t *testing.T) {
	if _, ok := NaturalID(&core.Behavior{Category: "c", Text: "t"}); !ok {
		t.Error("behavior should have a natural id")
	}
	if _, ok := NaturalID(&core.Meta{Key: "k"}); !ok {
		t.Error("meta should have a natural id")
	}
	if _, ok := NaturalID(&core.Learning{Text: "t"}); ok {
		t.Error("learning should not have a natural id")
	}
	if _, ok := NaturalID(&core.Task{Description: "d"}); ok {
		t.Error("task should not have a natural id")
	}
}

func TestNaturalIDKeyedByKeyOnly(t *testing.T) {
	a, _ := NaturalID(&core.Identity{Key: "name", Value: "Mnemo"})
	b, _ := NaturalID(&core.Identity{Key: "name", Value: "Echo"})
	if a != b {
		t.Error("identity id should depend on the key alone")
	}
}

func TestAppendWithDedupIdempotent(t *testing.T) {
	s := newTestStore(t)

	first, added, err := s.AppendWithDedup(&core.Behavior{Category: "tone", Text: "be brief"})
	if err != nil {
		t.Fatalf("first append error: %v", err)
	}
	if !added {
		t.Fatal("first append reported as duplicate")
	}

	second, added, err := s.AppendWithDedup(&core.Behavior{Category: "tone", Text: "be brief"})
	if err != nil {
		t.Fatalf("second append error: %v", err)
	}
	if added {
		t.Error("duplicate append reported as new")
	}
	if second.EntryID() != first.EntryID() {
		t.Errorf("duplicate returned id %s, want existing %s", second.EntryID(), first.EntryID())
	}

	entries, _, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("log has %d entries after duplicate append, want 1", len(entries))
	}
}

func BenchmarkAppend(b *testing.B) {
	s := New(filepath.Join(b.TempDir(), "brain.jsonl"), time.Second)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Append(&core.Learning{Text: "benchmark entry"}); err != nil {
			b.Fatal(err)
		}
	}
}
