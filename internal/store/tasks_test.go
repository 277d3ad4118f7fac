package store

import (
	"context"
	"errors"
	"testing"

	"beehive/internal/models"
)

func TestCreateTaskDefaults(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Build the comb"})
		if task.State != "open" {
			t.Fatalf("expected state open, got %q", task.State)
		}
		if task.Priority != models.DefaultPriority {
			t.Fatalf("expected default priority %d, got %d", models.DefaultPriority, task.Priority)
		}
		if task.ID == "" {
			t.Fatal("expected generated id")
		}
		if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
			t.Fatal("expected timestamps to be set")
		}

		got, err := s.GetTask(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Description != "Build the comb" {
			t.Fatalf("expected description round-trip, got %q", got.Description)
		}
	})
}

func TestCreateTaskWithSpecFields(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		dep := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Prerequisite"})
		task := mustCreateTask(t, s, "hive", models.TaskSpec{
			Description:  "Dependent work",
			Role:         "builder",
			Priority:     intPtr(0),
			Dependencies: []string{dep.ID, "hive-gone"},
			TestCommand:  "make test",
		})

		got, err := s.GetTask(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Role != "builder" || got.Priority != 0 || got.TestCommand != "make test" {
			t.Fatalf("unexpected fields: %+v", got)
		}
		// Dangling dependency ids are recorded as-is.
		if len(got.Dependencies) != 2 {
			t.Fatalf("expected 2 dependencies, got %v", got.Dependencies)
		}
	})
}

func TestGetTaskNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		if _, err := s.GetTask(ctx, "hive", "hive-none"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		// A task is invisible outside its project.
		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Scoped"})
		if _, err := s.GetTask(ctx, "other", task.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound across projects, got %v", err)
		}
	})
}

func TestListTasksFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		first := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "First", Role: "builder"})
		second := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Second", Role: "scout"})
		mustCreateTask(t, s, "other", models.TaskSpec{Description: "Elsewhere"})

		if _, err := s.ClaimTask(ctx, "hive", second.ID, "worker-1"); err != nil {
			t.Fatalf("claim: %v", err)
		}

		all, err := s.ListTasks(ctx, "hive", ListFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("expected 2 tasks, got %d", len(all))
		}
		if all[0].ID != first.ID {
			t.Fatalf("expected oldest first, got %s", all[0].ID)
		}

		open, err := s.ListTasks(ctx, "hive", ListFilter{State: "open"})
		if err != nil {
			t.Fatalf("list open: %v", err)
		}
		if len(open) != 1 || open[0].ID != first.ID {
			t.Fatalf("expected only first open, got %+v", open)
		}

		scouts, err := s.ListTasks(ctx, "hive", ListFilter{Role: "scout"})
		if err != nil {
			t.Fatalf("list scouts: %v", err)
		}
		if len(scouts) != 1 || scouts[0].ID != second.ID {
			t.Fatalf("expected only scout task, got %+v", scouts)
		}
	})
}

func TestUpdateTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Before"})
		dep := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Dep"})

		updated, err := s.UpdateTask(ctx, "hive", task.ID, TaskUpdate{
			Description:  strPtr("After"),
			Priority:     intPtr(1),
			Status:       strPtr("halfway there"),
			Dependencies: &[]string{dep.ID},
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Description != "After" || updated.Priority != 1 || updated.Status != "halfway there" {
			t.Fatalf("unexpected update result: %+v", updated)
		}
		if len(updated.Dependencies) != 1 || updated.Dependencies[0] != dep.ID {
			t.Fatalf("expected dependency replace, got %v", updated.Dependencies)
		}

		// Untouched fields survive a partial update.
		again, err := s.UpdateTask(ctx, "hive", task.ID, TaskUpdate{Priority: intPtr(3)})
		if err != nil {
			t.Fatalf("second update: %v", err)
		}
		if again.Description != "After" {
			t.Fatalf("expected description preserved, got %q", again.Description)
		}

		if _, err := s.UpdateTask(ctx, "hive", "hive-none", TaskUpdate{Priority: intPtr(1)}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTaskExists(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Here"})

		ok, err := s.TaskExists(task.ID)
		if err != nil {
			t.Fatalf("exists: %v", err)
		}
		if !ok {
			t.Fatal("expected task to exist")
		}

		ok, err = s.TaskExists("hive-none")
		if err != nil {
			t.Fatalf("exists: %v", err)
		}
		if ok {
			t.Fatal("expected missing task")
		}
	})
}
