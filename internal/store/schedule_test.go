package store

import (
	"context"
	"sync"
	"testing"

	"beehive/internal/models"
)

func TestClaimNextOrdersByPriorityThenAge(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Low priority", Priority: intPtr(3)})
		urgent := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Urgent", Priority: intPtr(0)})
		alsoUrgent := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Also urgent", Priority: intPtr(0)})

		first, err := s.ClaimNextTask(ctx, "hive", ClaimCriteria{Bee: "worker-1"})
		if err != nil {
			t.Fatalf("claim next: %v", err)
		}
		if first == nil || first.ID != urgent.ID {
			t.Fatalf("expected %s first, got %+v", urgent.ID, first)
		}
		if first.State != "in_progress" || first.ClaimedBy != "worker-1" {
			t.Fatalf("expected claimed task, got %+v", first)
		}

		second, err := s.ClaimNextTask(ctx, "hive", ClaimCriteria{Bee: "worker-2"})
		if err != nil {
			t.Fatalf("claim next: %v", err)
		}
		if second == nil || second.ID != alsoUrgent.ID {
			t.Fatalf("expected %s second, got %+v", alsoUrgent.ID, second)
		}
	})
}

func TestClaimNextRoleFilter(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		mustCreateTask(t, s, "hive", models.TaskSpec{Description: "General work", Priority: intPtr(0)})
		docs := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Write docs", Role: "docs"})

		got, err := s.ClaimNextTask(ctx, "hive", ClaimCriteria{Bee: "writer", Roles: []string{"docs"}})
		if err != nil {
			t.Fatalf("claim next: %v", err)
		}
		if got == nil || got.ID != docs.ID {
			t.Fatalf("expected role-matched task %s, got %+v", docs.ID, got)
		}

		none, err := s.ClaimNextTask(ctx, "hive", ClaimCriteria{Bee: "writer", Roles: []string{"docs"}})
		if err != nil {
			t.Fatalf("claim next: %v", err)
		}
		if none != nil {
			t.Fatalf("expected no eligible task, got %+v", none)
		}
	})
}

func TestClaimNextSkipsBlockedDependencies(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		dep := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Prerequisite"})
		gated := mustCreateTask(t, s, "hive", models.TaskSpec{
			Description:  "Gated",
			Priority:     intPtr(0),
			Dependencies: []string{dep.ID},
		})

		// The gated task outranks its prerequisite but is not eligible
		// until the prerequisite closes.
		got, err := s.ClaimNextTask(ctx, "hive", ClaimCriteria{Bee: "worker-1"})
		if err != nil {
			t.Fatalf("claim next: %v", err)
		}
		if got == nil || got.ID != dep.ID {
			t.Fatalf("expected prerequisite %s, got %+v", dep.ID, got)
		}

		if _, err := s.SubmitTask(ctx, "hive", dep.ID, models.Submission{PRURL: "https://example.com/pr/1", Summary: "done"}); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if _, err := s.ApproveTask(ctx, "hive", dep.ID); err != nil {
			t.Fatalf("approve: %v", err)
		}

		got, err = s.ClaimNextTask(ctx, "hive", ClaimCriteria{Bee: "worker-1"})
		if err != nil {
			t.Fatalf("claim next: %v", err)
		}
		if got == nil || got.ID != gated.ID {
			t.Fatalf("expected gated task %s, got %+v", gated.ID, got)
		}
	})
}

func TestClaimNextDanglingDependencyBlocks(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		mustCreateTask(t, s, "hive", models.TaskSpec{
			Description:  "Waiting on a ghost",
			Dependencies: []string{"hive-gone"},
		})

		got, err := s.ClaimNextTask(ctx, "hive", ClaimCriteria{Bee: "worker-1"})
		if err != nil {
			t.Fatalf("claim next: %v", err)
		}
		if got != nil {
			t.Fatalf("expected no eligible task, got %+v", got)
		}
	})
}

func TestClaimNextEmptyPool(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		got, err := s.ClaimNextTask(context.Background(), "hive", ClaimCriteria{Bee: "worker-1"})
		if err != nil {
			t.Fatalf("claim next: %v", err)
		}
		if got != nil {
			t.Fatalf("expected nil task, got %+v", got)
		}
	})
}

func TestClaimRechecksDependenciesAtUpdate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	dep := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Prerequisite"})
	gated := mustCreateTask(t, s, "hive", models.TaskSpec{
		Description:  "Gated",
		Dependencies: []string{dep.ID},
	})

	// A candidate whose dependency is no longer closed must lose the
	// conditional claim, even if an earlier selection considered it
	// eligible.
	won, err := s.claimEligible(ctx, gated.ID, "worker-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if won {
		t.Fatal("claimed a task with an open dependency")
	}
	got, err := s.GetTask(ctx, "hive", gated.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != "open" || got.ClaimedBy != "" {
		t.Fatalf("expected untouched task, got %+v", got)
	}

	closed := "closed"
	if _, err := s.UpdateTask(ctx, "hive", dep.ID, TaskUpdate{State: &closed}); err != nil {
		t.Fatalf("close dependency: %v", err)
	}

	won, err = s.claimEligible(ctx, gated.ID, "worker-1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !won {
		t.Fatal("expected claim once the dependency closed")
	}
}

func TestClaimNextConcurrentWorkers(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		const total = 5
		for i := 0; i < total; i++ {
			mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Work item"})
		}

		const workers = 8
		var wg sync.WaitGroup
		claimedIDs := make(chan string, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				task, err := s.ClaimNextTask(ctx, "hive", ClaimCriteria{Bee: "worker"})
				if err != nil {
					t.Errorf("claim next: %v", err)
					return
				}
				if task != nil {
					claimedIDs <- task.ID
				}
			}(i)
		}
		wg.Wait()
		close(claimedIDs)

		seen := map[string]bool{}
		for id := range claimedIDs {
			if seen[id] {
				t.Fatalf("task %s claimed twice", id)
			}
			seen[id] = true
		}
		if len(seen) != total {
			t.Fatalf("expected %d distinct claims, got %d", total, len(seen))
		}
	})
}
