package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long a live process may hold the publish lock
// before another run treats it as abandoned.
const DefaultLockTTL = time.Hour

// LockContentionError reports a concurrent publish against the same
// published location. The run aborts cleanly with no partial writes.
type LockContentionError struct {
	Path       string
	OwnerPID   int
	AcquiredAt time.Time
}

func (e *LockContentionError) Error() string {
	if e.OwnerPID == 0 {
		return fmt.Sprintf("publish lock %s held by another run", e.Path)
	}
	return fmt.Sprintf("publish lock %s held by pid %d since %s",
		e.Path, e.OwnerPID, e.AcquiredAt.Format(time.RFC3339))
}

// lockInfo is the JSON body of the lock file.
type lockInfo struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// fileLock guards the published location against concurrent swaps.
type fileLock struct {
	path string
}

// acquireLock takes the lock at path with O_EXCL semantics. A stale lock,
// one whose owning process is gone or whose age exceeds ttl, is reclaimed
// exactly once; live contention returns a *LockContentionError.
func acquireLock(path string, ttl time.Duration, logger *zap.Logger) (*fileLock, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	var last *LockContentionError
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			info := lockInfo{PID: os.Getpid(), AcquiredAt: time.Now().UTC()}
			if host, herr := os.Hostname(); herr == nil {
				info.Host = host
			}
			if err := json.NewEncoder(f).Encode(&info); err != nil {
				_ = f.Close()
				_ = os.Remove(path)
				return nil, fmt.Errorf("write lock %s: %w", path, err)
			}
			if err := f.Close(); err != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("close lock %s: %w", path, err)
			}
			return &fileLock{path: path}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("acquire lock %s: %w", path, err)
		}

		info, ok := readLock(path)
		last = &LockContentionError{Path: path, OwnerPID: info.PID, AcquiredAt: info.AcquiredAt}
		// An unreadable lock body has no identifiable owner and counts as
		// stale, as does a dead owner or one past the TTL.
		if ok && processAlive(info.PID) && time.Since(info.AcquiredAt) <= ttl {
			return nil, last
		}
		logger.Warn("reclaiming stale publish lock",
			zap.String("path", path),
			zap.Int("owner_pid", info.PID),
			zap.Time("acquired_at", info.AcquiredAt))
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock %s: %w", path, err)
		}
	}
	// Reclaimed once and lost the re-acquire race: someone else is
	// publishing right now.
	return nil, last
}

func readLock(path string) (lockInfo, bool) {
	var info lockInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, false
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, false
	}
	return info, info.PID > 0
}

// processAlive probes pid with signal 0. EPERM counts as alive: the
// process exists, it just belongs to someone else.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return false
	}
	return true
}

// Release removes the lock file. Safe to call after a successful swap.
func (l *fileLock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
