package store

import (
	"context"
	"fmt"
	"time"
)

// AppendTaskLog records one execution-log entry under the next attempt
// number for the task.
func (s *Store) AppendTaskLog(ctx context.Context, project, id, content string) error {
	exists, err := s.taskInProject(ctx, project, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_logs (task_id, attempt, content, created_at)
		VALUES (?, (SELECT COALESCE(MAX(attempt), 0) + 1 FROM task_logs WHERE task_id = ?), ?, ?)
	`, id, id, content, formatTime(time.Now().UTC()))
	return err
}

// GetTaskLog returns a task's execution-log entries in attempt order.
func (s *Store) GetTaskLog(ctx context.Context, project, id string) ([]string, error) {
	exists, err := s.taskInProject(ctx, project, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return taskLogQ(ctx, s.db, id)
}

func taskLogQ(ctx context.Context, q querier, id string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT content FROM task_logs WHERE task_id = ? ORDER BY attempt ASC", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []string{}
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		lines = append(lines, content)
	}
	return lines, rows.Err()
}
