package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	lockRetries    = 10
	lockMinBackoff = 100 * time.Millisecond
	lockMaxBackoff = 2 * time.Second
	lockStaleAfter = 10 * time.Second
)

// fileLock is an advisory lock guarding the store document. Acquisition
// creates <path>.lock exclusively; a lock file older than the staleness
// timeout is treated as abandoned by a dead process and broken.
type fileLock struct {
	path string
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path + ".lock"}
}

// acquire takes the lock with bounded retry and exponential backoff.
func (l *fileLock) acquire() error {
	backoff := lockMinBackoff
	for attempt := 0; attempt <= lockRetries; attempt++ {
		ok, err := l.tryAcquire()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if stale, err := l.isStale(); err == nil && stale {
			_ = os.Remove(l.path)
			continue
		}
		if attempt == lockRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > lockMaxBackoff {
			backoff = lockMaxBackoff
		}
	}
	return fmt.Errorf("acquire lock %s: timed out", l.path)
}

func (l *fileLock) tryAcquire() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
	return true, f.Close()
}

func (l *fileLock) isStale() (bool, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return time.Since(info.ModTime()) > lockStaleAfter, nil
}

// release drops the lock. Safe to call once after a successful acquire.
func (l *fileLock) release() error {
	err := os.Remove(l.path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
