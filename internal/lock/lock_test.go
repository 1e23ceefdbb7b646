package lock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.jsonl")

	l, err := Acquire(path, time.Second)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Fatalf("lock file missing after Acquire: %v", err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Fatal("lock file still present after Release")
	}
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.jsonl")

	l, err := Acquire(path, time.Second)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	defer l.Release()

	start := time.Now()
	_, err = Acquire(path, 150*time.Millisecond)
	if err == nil {
		t.Fatal("second Acquire succeeded while lock held")
	}
	if !IsTimeout(err) {
		t.Fatalf("error = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("returned after %v, before the timeout window elapsed", elapsed)
	}
}

func TestAcquireReclaimsStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.jsonl")
	lockPath := path + ".lock"

	// A PID beyond the kernel's pid range cannot belong to a live
	// process, so this lock is stale by construction.
	stale, err := json.Marshal(payload{PID: 1 << 30, AcquiredAt: time.Now().Add(-time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(lockPath, stale, 0600); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(path, time.Second)
	if err != nil {
		t.Fatalf("Acquire over stale lock error: %v", err)
	}
	defer l.Release()

	data, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("read reclaimed lock: %v", err)
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("parse reclaimed lock: %v", err)
	}
	if p.PID != os.Getpid() {
		t.Errorf("reclaimed lock pid = %d, want %d", p.PID, os.Getpid())
	}
}

func TestReleaseLeavesForeignLockAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.jsonl")
	lockPath := path + ".lock"

	l, err := Acquire(path, time.Second)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	// Simulate another process reclaiming the lock out from under us.
	foreign, _ := json.Marshal(payload{PID: os.Getpid() + 1, AcquiredAt: time.Now()})
	if err := os.WriteFile(lockPath, foreign, 0600); err != nil {
		t.Fatal(err)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Error("Release removed a lock it no longer owned")
	}
}

func TestHolderSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.jsonl")

	for i := 0; i < 3; i++ {
		l, err := Acquire(path, time.Second)
		if err != nil {
			t.Fatalf("Acquire #%d error: %v", i, err)
		}
		if err := l.Release(); err != nil {
			t.Fatalf("Release #%d error: %v", i, err)
		}
	}
}
