package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"beehive/internal/models"
)

func TestClaimTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Claim me"})

		claimed, err := s.ClaimTask(ctx, "hive", task.ID, "worker-1")
		if err != nil {
			t.Fatalf("claim: %v", err)
		}
		if claimed.State != "in_progress" || claimed.ClaimedBy != "worker-1" {
			t.Fatalf("unexpected claim result: %+v", claimed)
		}

		// A second claim loses: the task is no longer open.
		if _, err := s.ClaimTask(ctx, "hive", task.ID, "worker-2"); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		if _, err := s.ClaimTask(ctx, "hive", "hive-none", "worker-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()
		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Contended"})

		const workers = 8
		var wg sync.WaitGroup
		wins := make(chan string, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				bee := string(rune('a' + n))
				if _, err := s.ClaimTask(ctx, "hive", task.ID, bee); err == nil {
					wins <- bee
				}
			}(i)
		}
		wg.Wait()
		close(wins)

		var winners []string
		for w := range wins {
			winners = append(winners, w)
		}
		if len(winners) != 1 {
			t.Fatalf("expected exactly one winning claim, got %d (%v)", len(winners), winners)
		}

		got, err := s.GetTask(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ClaimedBy != winners[0] {
			t.Fatalf("claimed_by %q does not match winner %q", got.ClaimedBy, winners[0])
		}
	})
}

func TestSubmitSpawnsReviewTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{
			Description: "Implement feature\nwith details",
			Priority:    intPtr(1),
		})
		if _, err := s.ClaimTask(ctx, "hive", task.ID, "worker-1"); err != nil {
			t.Fatalf("claim: %v", err)
		}

		submitted, err := s.SubmitTask(ctx, "hive", task.ID, models.Submission{
			PRURL:   "https://example.com/pr/1",
			Summary: "Did the thing",
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if submitted.State != "pending_review" {
			t.Fatalf("expected pending_review, got %q", submitted.State)
		}

		reviews, err := s.ListTasks(ctx, "hive", ListFilter{Role: models.ReviewRole})
		if err != nil {
			t.Fatalf("list reviews: %v", err)
		}
		if len(reviews) != 1 {
			t.Fatalf("expected 1 review task, got %d", len(reviews))
		}
		review := reviews[0]
		if review.ReviewsTask != task.ID {
			t.Fatalf("expected reviews_task %s, got %q", task.ID, review.ReviewsTask)
		}
		if review.Priority != 1 {
			t.Fatalf("expected review to inherit priority 1, got %d", review.Priority)
		}
		if review.PRURL != "https://example.com/pr/1" {
			t.Fatalf("expected review to carry the pr url, got %q", review.PRURL)
		}
		if !strings.Contains(review.Description, "Implement feature") || strings.Contains(review.Description, "with details") {
			t.Fatalf("expected first-line description, got %q", review.Description)
		}

		sub, err := s.GetSubmission(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get submission: %v", err)
		}
		if sub == nil || sub.Summary != "Did the thing" {
			t.Fatalf("unexpected submission: %+v", sub)
		}
	})
}

func TestResubmitReplacesSubmission(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Iterate"})
		if _, err := s.ClaimTask(ctx, "hive", task.ID, "worker-1"); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if _, err := s.SubmitTask(ctx, "hive", task.ID, models.Submission{PRURL: "https://example.com/pr/1", Summary: "v1"}); err != nil {
			t.Fatalf("first submit: %v", err)
		}
		if _, err := s.SubmitTask(ctx, "hive", task.ID, models.Submission{PRURL: "https://example.com/pr/2", Summary: "v2"}); err != nil {
			t.Fatalf("second submit: %v", err)
		}

		sub, err := s.GetSubmission(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get submission: %v", err)
		}
		if sub.PRURL != "https://example.com/pr/2" || sub.Summary != "v2" {
			t.Fatalf("expected replacement submission, got %+v", sub)
		}
	})
}

func TestApproveClosesAndCreatesFollowUps(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Main work"})
		if _, err := s.ClaimTask(ctx, "hive", task.ID, "worker-1"); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if _, err := s.SubmitTask(ctx, "hive", task.ID, models.Submission{
			PRURL:   "https://example.com/pr/7",
			Summary: "All done",
			Details: "See the PR",
			FollowUps: []models.TaskSpec{
				{Description: "Clean up"},
				{Description: "Document", Priority: intPtr(4)},
			},
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}

		approved, err := s.ApproveTask(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		if approved.State != "closed" {
			t.Fatalf("expected closed, got %q", approved.State)
		}
		if approved.Summary != "All done" || approved.Details != "See the PR" || approved.PRURL != "https://example.com/pr/7" {
			t.Fatalf("expected submission copied onto task, got %+v", approved)
		}

		// The review task is closed too.
		reviews, err := s.ListTasks(ctx, "hive", ListFilter{Role: models.ReviewRole})
		if err != nil {
			t.Fatalf("list reviews: %v", err)
		}
		if len(reviews) != 1 || reviews[0].State != "closed" {
			t.Fatalf("expected closed review task, got %+v", reviews)
		}

		// Follow-ups exist, open, pointing back at the approved task.
		all, err := s.ListTasks(ctx, "hive", ListFilter{State: "open"})
		if err != nil {
			t.Fatalf("list open: %v", err)
		}
		var followUps []models.Task
		for _, item := range all {
			if item.ParentTask == task.ID {
				followUps = append(followUps, item)
			}
		}
		if len(followUps) != 2 {
			t.Fatalf("expected 2 follow-ups, got %d", len(followUps))
		}

		// The submission is gone.
		sub, err := s.GetSubmission(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get submission: %v", err)
		}
		if sub != nil {
			t.Fatalf("expected submission deleted, got %+v", sub)
		}
	})
}

func TestApproveWithoutSubmissionIsNoOp(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Never submitted"})
		got, err := s.ApproveTask(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		if got.State != "open" {
			t.Fatalf("expected state unchanged, got %q", got.State)
		}
	})
}

func TestRejectReopensTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Needs work"})
		if _, err := s.ClaimTask(ctx, "hive", task.ID, "worker-1"); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if _, err := s.SubmitTask(ctx, "hive", task.ID, models.Submission{PRURL: "https://example.com/pr/9", Summary: "Try"}); err != nil {
			t.Fatalf("submit: %v", err)
		}

		rejected, err := s.RejectTask(ctx, "hive", task.ID, "tests are missing")
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if rejected.State != "open" || rejected.ClaimedBy != "" {
			t.Fatalf("expected open unclaimed task, got %+v", rejected)
		}

		reviews, err := s.ListTasks(ctx, "hive", ListFilter{Role: models.ReviewRole})
		if err != nil {
			t.Fatalf("list reviews: %v", err)
		}
		if len(reviews) != 1 || reviews[0].State != "closed" {
			t.Fatalf("expected closed review task, got %+v", reviews)
		}
		if !strings.Contains(reviews[0].Summary, "tests are missing") {
			t.Fatalf("expected rejection reason on review task, got %q", reviews[0].Summary)
		}

		sub, err := s.GetSubmission(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get submission: %v", err)
		}
		if sub != nil {
			t.Fatalf("expected submission deleted, got %+v", sub)
		}
	})
}

func TestReleaseTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Claimed then dropped"})
		if _, err := s.ClaimTask(ctx, "hive", task.ID, "worker-1"); err != nil {
			t.Fatalf("claim: %v", err)
		}

		released, err := s.ReleaseTask(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("release: %v", err)
		}
		if released.State != "open" || released.ClaimedBy != "" {
			t.Fatalf("expected open unclaimed task, got %+v", released)
		}

		// Releasing an open task is a conflict.
		if _, err := s.ReleaseTask(ctx, "hive", task.ID); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})
}

func TestReleaseSubmittedTaskDiscardsSubmission(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Submitted then dropped"})
		if _, err := s.ClaimTask(ctx, "hive", task.ID, "worker-1"); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if _, err := s.SubmitTask(ctx, "hive", task.ID, models.Submission{PRURL: "https://example.com/pr/3", Summary: "Early"}); err != nil {
			t.Fatalf("submit: %v", err)
		}

		if _, err := s.ReleaseTask(ctx, "hive", task.ID); err != nil {
			t.Fatalf("release: %v", err)
		}

		sub, err := s.GetSubmission(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("get submission: %v", err)
		}
		if sub != nil {
			t.Fatalf("expected submission discarded, got %+v", sub)
		}

		reviews, err := s.ListTasks(ctx, "hive", ListFilter{Role: models.ReviewRole})
		if err != nil {
			t.Fatalf("list reviews: %v", err)
		}
		if len(reviews) != 1 || reviews[0].State != "closed" {
			t.Fatalf("expected closed review task, got %+v", reviews)
		}
	})
}

func TestReopenTask(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Done then not"})

		// Open tasks cannot be reopened.
		if _, err := s.ReopenTask(ctx, "hive", task.ID); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		if _, err := s.FailTask(ctx, "hive", task.ID, "broke", ""); err != nil {
			t.Fatalf("fail: %v", err)
		}
		reopened, err := s.ReopenTask(ctx, "hive", task.ID)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		if reopened.State != "open" {
			t.Fatalf("expected open, got %q", reopened.State)
		}

		if _, err := s.ReopenTask(ctx, "hive", "hive-none"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestFailAndBlock(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Fragile"})
		failed, err := s.FailTask(ctx, "hive", task.ID, "command exploded", "stack trace")
		if err != nil {
			t.Fatalf("fail: %v", err)
		}
		if failed.State != "failed" || failed.Summary != "command exploded" || failed.Details != "stack trace" {
			t.Fatalf("unexpected fail result: %+v", failed)
		}

		other := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Stuck"})
		blocked, err := s.BlockTask(ctx, "hive", other.ID, "waiting on credentials")
		if err != nil {
			t.Fatalf("block: %v", err)
		}
		if blocked.State != "blocked" || blocked.Status != "waiting on credentials" {
			t.Fatalf("unexpected block result: %+v", blocked)
		}
	})
}

func TestFindPendingByPRURL(t *testing.T) {
	forEachStore(t, func(t *testing.T, s TaskStore) {
		ctx := context.Background()

		task := mustCreateTask(t, s, "hive", models.TaskSpec{Description: "Merge target"})
		if _, err := s.ClaimTask(ctx, "hive", task.ID, "worker-1"); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if _, err := s.SubmitTask(ctx, "hive", task.ID, models.Submission{PRURL: "https://example.com/pr/42", Summary: "Ready"}); err != nil {
			t.Fatalf("submit: %v", err)
		}

		found, err := s.FindPendingByPRURL(ctx, "https://example.com/pr/42")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if found == nil || found.ID != task.ID {
			t.Fatalf("expected task %s, got %+v", task.ID, found)
		}

		none, err := s.FindPendingByPRURL(ctx, "https://example.com/pr/404")
		if err != nil {
			t.Fatalf("find miss: %v", err)
		}
		if none != nil {
			t.Fatalf("expected nil, got %+v", none)
		}
	})
}
