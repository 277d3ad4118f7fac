package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"beehive/internal/models"
)

// ClaimTask is the open -> in_progress compare-and-swap. The conditional
// update is the atomicity boundary: of any number of concurrent claims on
// the same task, exactly one affects a row.
func (s *Store) ClaimTask(ctx context.Context, project, id, bee string) (*models.Task, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET state = ?, claimed_by = ?, updated_at = ?
		WHERE id = ? AND project = ? AND state = ?
	`, models.StateInProgress, nullIfEmpty(bee), now, id, project, models.StateOpen)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, s.claimFailure(ctx, project, id)
	}
	return s.GetTask(ctx, project, id)
}

func (s *Store) claimFailure(ctx context.Context, project, id string) error {
	exists, err := s.taskInProject(ctx, project, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("task %s is not open: %w", id, ErrConflict)
}

func (s *Store) taskInProject(ctx context.Context, project, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM tasks WHERE id = ? AND project = ?", id, project).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseTask returns a claimed or submitted task to the pool. A pending
// submission is discarded and its review task closed so the store never
// holds a submission for a task that is not pending_review.
func (s *Store) ReleaseTask(ctx context.Context, project, id string) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := formatTime(time.Now().UTC())
	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET state = ?, claimed_by = NULL, updated_at = ?
		WHERE id = ? AND project = ? AND state IN (?, ?)
	`, models.StateOpen, now, id, project, models.StateInProgress, models.StatePendingReview)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		err = s.claimStateError(ctx, tx, project, id, "releasable")
		return nil, err
	}

	if err = closeReviewTasks(ctx, tx, id, "Released before review", now); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM submissions WHERE task_id = ?", id); err != nil {
		return nil, err
	}

	task, err := getTaskQ(ctx, tx, project, id)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

// ReopenTask moves a closed or failed task back to open.
func (s *Store) ReopenTask(ctx context.Context, project, id string) (*models.Task, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET state = ?, claimed_by = NULL, updated_at = ?
		WHERE id = ? AND project = ? AND state IN (?, ?)
	`, models.StateOpen, now, id, project, models.StateClosed, models.StateFailed)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, s.claimStateError(ctx, s.db, project, id, "reopenable")
	}
	return s.GetTask(ctx, project, id)
}

func (s *Store) claimStateError(ctx context.Context, q querier, project, id, want string) error {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM tasks WHERE id = ? AND project = ?", id, project).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("task %s is not %s: %w", id, want, ErrConflict)
}

// SubmitTask records a submission, moves the task to pending_review and
// auto-spawns a review task, all in one transaction. A resubmit replaces
// the previous submission and spawns a fresh review task.
func (s *Store) SubmitTask(ctx context.Context, project, id string, sub models.Submission) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	task, err := getTaskQ(ctx, tx, project, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx,
		"UPDATE tasks SET state = ?, updated_at = ? WHERE id = ?",
		models.StatePendingReview, formatTime(now), id,
	); err != nil {
		return nil, err
	}

	followUps, err := json.Marshal(sub.FollowUps)
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO submissions (task_id, pr_url, summary, details, follow_up_tasks, log, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, sub.PRURL, sub.Summary, nullIfEmpty(sub.Details), string(followUps), nullIfEmpty(sub.Log), formatTime(now)); err != nil {
		return nil, err
	}

	// The review goes through the same pool as ordinary work.
	reviewID, err := GenerateTaskID(project, func(candidate string) (bool, error) {
		return taskExistsQ(ctx, tx, candidate)
	})
	if err != nil {
		return nil, err
	}
	review := &models.Task{
		ID:          reviewID,
		Project:     project,
		Description: fmt.Sprintf("Review: %s (%s)", firstLine(task.Description), id),
		State:       string(models.StateOpen),
		Role:        models.ReviewRole,
		Priority:    task.Priority,
		PRURL:       sub.PRURL,
		ReviewsTask: id,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = insertTask(ctx, tx, review); err != nil {
		return nil, err
	}

	task, err = getTaskQ(ctx, tx, project, id)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

// ApproveTask closes a submitted task, closes its review task, creates
// the submission's follow-up tasks and deletes the submission as one
// atomic unit. Approving a task with no submission is a no-op returning
// the task unchanged, so a raced second approve stays harmless.
func (s *Store) ApproveTask(ctx context.Context, project, id string) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	task, err := getTaskQ(ctx, tx, project, id)
	if err != nil {
		return nil, err
	}

	sub, err := getSubmissionQ(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		if err = tx.Commit(); err != nil {
			return nil, err
		}
		return task, nil
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `
		UPDATE tasks SET state = ?, summary = ?, details = ?, pr_url = ?, updated_at = ?
		WHERE id = ?
	`, models.StateClosed, sub.Summary, nullIfEmpty(sub.Details), sub.PRURL, formatTime(now), id); err != nil {
		return nil, err
	}

	if err = closeReviewTasks(ctx, tx, id, "", formatTime(now)); err != nil {
		return nil, err
	}

	for _, spec := range sub.FollowUps {
		spec.ParentTask = id
		if _, err = createTaskTx(ctx, tx, project, spec, now); err != nil {
			return nil, err
		}
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM submissions WHERE task_id = ?", id); err != nil {
		return nil, err
	}

	task, err = getTaskQ(ctx, tx, project, id)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

// RejectTask reopens a submitted task, closes the review task with the
// rejection reason and discards the submission. The original work stays
// resumable.
func (s *Store) RejectTask(ctx context.Context, project, id, reason string) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = getTaskQ(ctx, tx, project, id); err != nil {
		return nil, err
	}

	now := formatTime(time.Now().UTC())
	if _, err = tx.ExecContext(ctx,
		"UPDATE tasks SET state = ?, claimed_by = NULL, updated_at = ? WHERE id = ?",
		models.StateOpen, now, id,
	); err != nil {
		return nil, err
	}

	if err = closeReviewTasks(ctx, tx, id, "Rejected: "+reason, now); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM submissions WHERE task_id = ?", id); err != nil {
		return nil, err
	}

	task, err := getTaskQ(ctx, tx, project, id)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

// FailTask marks a task failed from any state, recording the error.
func (s *Store) FailTask(ctx context.Context, project, id, errMsg, details string) (*models.Task, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET state = ?, summary = ?, details = ?, updated_at = ?
		WHERE id = ? AND project = ?
	`, models.StateFailed, errMsg, nullIfEmpty(details), now, id, project)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, project, id)
}

// BlockTask marks a task blocked from any state, recording the reason.
func (s *Store) BlockTask(ctx context.Context, project, id, reason string) (*models.Task, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET state = ?, status = ?, updated_at = ?
		WHERE id = ? AND project = ?
	`, models.StateBlocked, reason, now, id, project)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, project, id)
}

// GetSubmission returns the pending submission for a task, or nil when
// none exists. The task itself must exist.
func (s *Store) GetSubmission(ctx context.Context, project, id string) (*models.Submission, error) {
	exists, err := s.taskInProject(ctx, project, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return getSubmissionQ(ctx, s.db, id)
}

// FindPendingByPRURL locates the pending_review task whose submission
// references the given PR URL.
func (s *Store) FindPendingByPRURL(ctx context.Context, prURL string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+qualifiedTaskColumns("t")+`
		FROM tasks t JOIN submissions sub ON sub.task_id = t.id
		WHERE t.state = ? AND sub.pr_url = ?
		LIMIT 1
	`, models.StatePendingReview, prURL)
	task, err := scanTask(row)
	if err != nil || task == nil {
		return nil, err
	}
	task.Dependencies, err = listDepsQ(ctx, s.db, task.ID)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func closeReviewTasks(ctx context.Context, q querier, reviewedID, summary, now string) error {
	query := "UPDATE tasks SET state = ?, updated_at = ?"
	args := []any{models.StateClosed, now}
	if summary != "" {
		query += ", summary = ?"
		args = append(args, summary)
	}
	query += " WHERE reviews_task = ? AND state != ?"
	args = append(args, reviewedID, models.StateClosed)

	_, err := q.ExecContext(ctx, query, args...)
	return err
}

func getSubmissionQ(ctx context.Context, q querier, id string) (*models.Submission, error) {
	row := q.QueryRowContext(ctx, `
		SELECT task_id, pr_url, summary, details, follow_up_tasks, log, submitted_at
		FROM submissions WHERE task_id = ?
	`, id)

	var sub models.Submission
	var details, followUps, log sql.NullString
	var submittedAt string
	err := row.Scan(&sub.TaskID, &sub.PRURL, &sub.Summary, &details, &followUps, &log, &submittedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sub.Details = details.String
	sub.Log = log.String
	if followUps.Valid && followUps.String != "" {
		if err := json.Unmarshal([]byte(followUps.String), &sub.FollowUps); err != nil {
			return nil, fmt.Errorf("decode follow-ups for %s: %w", id, err)
		}
	}
	sub.SubmittedAt, err = parseTime(submittedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func qualifiedTaskColumns(alias string) string {
	cols := strings.Split(taskColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i])
	}
	return strings.TrimSpace(text)
}
