package store

import (
	"context"
	"path/filepath"
	"testing"

	"beehive/internal/models"
)

// testStore creates a temporary SQLite store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// testFileStore creates a temporary file-backed store for testing.
func testFileStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.json")
	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open test file store: %v", err)
	}
	return fs
}

// forEachStore runs the same behavior checks against both backends.
func forEachStore(t *testing.T, fn func(t *testing.T, s TaskStore)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) {
		fn(t, testStore(t))
	})
	t.Run("file", func(t *testing.T) {
		fn(t, testFileStore(t))
	})
}

func mustCreateTask(t *testing.T, s TaskStore, project string, spec models.TaskSpec) *models.Task {
	t.Helper()
	task, err := s.CreateTask(context.Background(), project, spec)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}
