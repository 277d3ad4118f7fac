package store

import (
	"context"
	"errors"
	"testing"

	"beehive/internal/models"
)

func TestAppendAndGetTaskLog(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "With history"})

		lines, err := s.GetTaskLog(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get empty log: %v", err)
		}
		if len(lines) != 0 {
			t.Fatalf("expected empty log, got %v", lines)
		}

		for _, entry := range []string{"attempt one", "attempt two", "attempt three"} {
			if err := s.AppendTaskLog(ctx, "hive", task.ID, entry); err != nil {
				t.Fatalf("append %q: %v", entry, err)
			}
		}

		lines, err = s.GetTaskLog(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get log: %v", err)
		}
		if len(lines) != 3 || lines[0] != "attempt one" || lines[2] != "attempt three" {
			t.Fatalf("unexpected log order: %v", lines)
		}
	})
}

func TestTaskLogUnknownTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		if err := s.AppendTaskLog(ctx, "hive", "hive-none", "orphan"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on append, got %v", err)
		}
		if _, err := s.GetTaskLog(ctx, "hive", "hive-none"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on read, got %v", err)
		}

		// A task in another project is invisible.
		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Scoped"})
		if err := s.AppendTaskLog(ctx, "other", task.ID, "cross"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound across projects, got %v", err)
		}
	})
}
