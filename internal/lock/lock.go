// Package lock provides advisory, PID-aware mutual exclusion for a single
// log file. Only the append path locks; readers never do.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// DefaultTimeout is how long Acquire waits for a live holder by default.
const DefaultTimeout = 5 * time.Second

// retryInterval is the poll interval while a live holder has the lock.
const retryInterval = 25 * time.Millisecond

// Lock is a held advisory lock. Release it when the append completes.
type Lock struct {
	path     string // the guarded file
	lockPath string // the lock file itself
}

// payload is what the lock file contains.
type payload struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// TimeoutError reports that a live process held the lock for the whole
// acquisition window. Safe to retry.
type TimeoutError struct {
	Path      string
	Timeout   time.Duration
	HolderPID int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("lock on %s held by pid %d after %s", e.Path, e.HolderPID, e.Timeout)
}

// IsTimeout reports whether err is a lock acquisition timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Acquire takes the advisory lock for path, creating <path>.lock
// exclusively. A lock held by a dead process is stale and reclaimed
// immediately; a lock held by a live process is retried until timeout.
func Acquire(path string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	lockPath := path + ".lock"
	deadline := time.Now().Add(timeout)
	holder := 0

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			data, merr := json.Marshal(payload{PID: os.Getpid(), AcquiredAt: time.Now().UTC()})
			if merr == nil {
				_, merr = f.Write(data)
			}
			f.Close()
			if merr != nil {
				os.Remove(lockPath)
				return nil, fmt.Errorf("write lock payload: %w", merr)
			}
			return &Lock{path: path, lockPath: lockPath}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		// Someone holds it. A holder whose process is gone left a stale
		// lock behind; reclaim it and try again. An unreadable payload
		// usually means the holder is still writing it, so keep waiting.
		if pid, ok := readHolder(lockPath); ok {
			holder = pid
			if !alive(pid) {
				os.Remove(lockPath)
				continue
			}
		}

		if time.Now().After(deadline) {
			return nil, &TimeoutError{Path: path, Timeout: timeout, HolderPID: holder}
		}
		time.Sleep(retryInterval)
	}
}

// Release removes the lock file if this process still owns it.
func (l *Lock) Release() error {
	if pid, ok := readHolder(l.lockPath); ok && pid != os.Getpid() {
		return nil // someone else reclaimed it; not ours to remove
	}
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// readHolder reads the owning PID out of the lock file.
func readHolder(lockPath string) (int, bool) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil || p.PID <= 0 {
		return 0, false
	}
	return p.PID, true
}

// alive reports whether a process with the given PID still exists.
// Signal 0 probes without delivering; EPERM means the process exists
// but belongs to someone else.
func alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
