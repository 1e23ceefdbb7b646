package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// CODEC
// -----------------------------------------------------------------------------

func TestParseEntryRoundTrip(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		&Behavior{Header: Header{ID: "b1", Created: time.Now().UTC()}, Category: "tone", Text: "be brief"},
		&Identity{Header: Header{ID: "i1"}, Key: "name", Value: "Mnemo"},
		&User{Header: Header{ID: "u1"}, Key: "timezone", Value: "Europe/Berlin"},
		&Learning{Header: Header{ID: "l1"}, Text: "tabs beat spaces here", Source: "session"},
		&Preference{Header: Header{ID: "p1"}, Text: "dark mode", Category: "ui"},
		&Context{Header: Header{ID: "c1"}, Project: "api", Path: "/src/api", Content: "uses chi router"},
		&Task{Header: Header{ID: "t1"}, Description: "fix login bug", Status: TaskPending, Priority: PriorityHigh, Due: &due},
		&Reminder{Header: Header{ID: "r1"}, Description: "standup", FireAt: due},
		&Tombstone{Header: Header{ID: "x1"}, TargetID: "l1"},
		&Meta{Header: Header{ID: "m1"}, Key: "schema", Value: "1"},
	}

	for _, e := range entries {
		data, err := MarshalEntry(e)
		if err != nil {
			t.Fatalf("MarshalEntry(%s) error: %v", e.Kind(), err)
		}
		got, err := ParseEntry(data)
		if err != nil {
			t.Fatalf("ParseEntry(%s) error: %v", e.Kind(), err)
		}
		if got.Kind() != e.Kind() {
			t.Errorf("round trip kind = %s, want %s", got.Kind(), e.Kind())
		}
		if got.EntryID() != e.EntryID() {
			t.Errorf("round trip id = %s, want %s", got.EntryID(), e.EntryID())
		}
	}
}

func TestMarshalEntryStampsType(t *testing.T) {
	data, err := MarshalEntry(&Learning{Header: Header{ID: "l1"}, Text: "x"})
	if err != nil {
		t.Fatalf("MarshalEntry error: %v", err)
	}
	if !strings.Contains(string(data), `"type":"learning"`) {
		t.Errorf("marshaled line missing type discriminant: %s", data)
	}
	if strings.Contains(string(data), "\n") {
		t.Errorf("marshaled line contains newline: %q", data)
	}
}

func TestParseEntryBadInput(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"not json", "this is not json"},
		{"unknown type", `{"id":"z1","type":"telepathy"}`},
		{"wrong field type", `{"type":"task","description":123}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEntry([]byte(tc.line))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("error type = %T, want *ParseError", err)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// VALIDATION
// -----------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	fireAt := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{"valid behavior", &Behavior{Category: "tone", Text: "be brief"}, false},
		{"behavior missing category", &Behavior{Text: "be brief"}, true},
		{"behavior missing text", &Behavior{Category: "tone"}, true},
		{"identity missing key", &Identity{Value: "v"}, true},
		{"user missing key", &User{Value: "v"}, true},
		{"learning missing text", &Learning{}, true},
		{"preference missing category", &Preference{Text: "dark mode"}, true},
		{"context missing path", &Context{Project: "api"}, true},
		{"valid task", &Task{Description: "d", Status: TaskPending, Priority: PriorityNormal}, false},
		{"task bad status", &Task{Description: "d", Status: "paused", Priority: PriorityNormal}, true},
		{"task bad priority", &Task{Description: "d", Status: TaskPending, Priority: "medium"}, true},
		{"valid reminder", &Reminder{Description: "standup", FireAt: fireAt}, false},
		{"reminder zero time", &Reminder{Description: "standup"}, true},
		{"tombstone missing target", &Tombstone{}, true},
		{"meta missing key", &Meta{Value: "done"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.entry)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Errorf("error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

func TestPriorityRank(t *testing.T) {
	order := []TaskPriority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("Rank(%s)=%d not below Rank(%s)=%d",
				order[i-1], order[i-1].Rank(), order[i], order[i].Rank())
		}
	}
}
