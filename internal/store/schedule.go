package store

import (
	"context"
	"fmt"
	"time"

	"beehive/internal/models"
)

// ClaimNextTask selects and claims the next eligible task for a worker.
//
// Candidates are open tasks in the project (optionally restricted to a
// role set) whose dependencies are all closed, ordered by priority then
// age then id so retries under an unchanged store pick the same task.
// Each candidate is claimed with the same conditional update as ClaimTask;
// losing that race moves on to the next candidate instead of failing, so
// a concurrent claim and an empty pool look identical to the caller.
func (s *Store) ClaimNextTask(ctx context.Context, project string, criteria ClaimCriteria) (*models.Task, error) {
	query := `
		SELECT t.id FROM tasks t
		WHERE t.project = ? AND t.state = ?
		AND NOT EXISTS (
			SELECT 1 FROM task_dependencies d
			LEFT JOIN tasks p ON p.id = d.depends_on
			WHERE d.task_id = t.id
			AND (p.id IS NULL OR p.state != ?)
		)
	`
	args := []any{project, models.StateOpen, models.StateClosed}

	if len(criteria.Roles) > 0 {
		query += fmt.Sprintf(" AND t.role IN (%s)", placeholders(len(criteria.Roles)))
		for _, role := range criteria.Roles {
			args = append(args, role)
		}
	}

	query += " ORDER BY t.priority ASC, t.created_at ASC, t.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range candidates {
		won, err := s.claimEligible(ctx, id, criteria.Bee)
		if err != nil {
			return nil, err
		}
		if !won {
			// Lost to a concurrent claim, or a dependency reopened
			// since the candidate query; try the next one.
			continue
		}
		return s.GetTask(ctx, project, id)
	}

	return nil, nil
}

// claimEligible performs the conditional claim for one candidate. The
// update re-verifies eligibility, state and dependency closure both, so
// a dependency reopened between candidate selection and the claim
// cannot hand out a gated task.
func (s *Store) claimEligible(ctx context.Context, id, bee string) (bool, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET state = ?, claimed_by = ?, updated_at = ?
		WHERE id = ? AND state = ?
		AND NOT EXISTS (
			SELECT 1 FROM task_dependencies d
			LEFT JOIN tasks p ON p.id = d.depends_on
			WHERE d.task_id = tasks.id
			AND (p.id IS NULL OR p.state != ?)
		)
	`, models.StateInProgress, nullIfEmpty(bee), now, id, models.StateOpen, models.StateClosed)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
