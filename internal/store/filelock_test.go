package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLockAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	l := newFileLock(path)

	if err := l.acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
	if err := l.release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed, got %v", err)
	}

	// Releasing twice is harmless.
	if err := l.release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestFileLockContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	holder := newFileLock(path)
	if err := holder.acquire(); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	contender := newFileLock(path)
	ok, err := contender.tryAcquire()
	if err != nil {
		t.Fatalf("tryAcquire: %v", err)
	}
	if ok {
		t.Fatal("expected tryAcquire to fail while held")
	}

	done := make(chan error, 1)
	go func() {
		done <- contender.acquire()
	}()

	time.Sleep(150 * time.Millisecond)
	if err := holder.release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("contender acquire: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("contender never acquired the lock")
	}
	if err := contender.release(); err != nil {
		t.Fatalf("contender release: %v", err)
	}
}

func TestFileLockBreaksStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	lockPath := path + ".lock"

	if err := os.WriteFile(lockPath, []byte("12345"), 0o644); err != nil {
		t.Fatalf("write lock file: %v", err)
	}
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatalf("age lock file: %v", err)
	}

	l := newFileLock(path)
	if err := l.acquire(); err != nil {
		t.Fatalf("acquire over stale lock: %v", err)
	}
	if err := l.release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}
