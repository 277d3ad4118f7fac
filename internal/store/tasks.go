package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"beehive/internal/models"
)

const taskColumns = "id, project, description, state, role, priority, summary, details, status, pr_url, claimed_by, parent_task, reviews_task, test_command, session_id, created_at, updated_at"

// querier is satisfied by *sql.DB and *sql.Tx so task helpers can run
// both standalone and inside multi-statement transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateTask inserts a new open task with a freshly generated id.
func (s *Store) CreateTask(ctx context.Context, project string, spec models.TaskSpec) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	task, err := createTaskTx(ctx, tx, project, spec, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return task, nil
}

// createTaskTx generates an id and inserts the task plus its dependency
// rows. Dependencies are recorded as given; dangling ids are allowed and
// simply keep the task unclaimable until they exist and close.
func createTaskTx(ctx context.Context, q querier, project string, spec models.TaskSpec, now time.Time) (*models.Task, error) {
	id, err := GenerateTaskID(project, func(candidate string) (bool, error) {
		return taskExistsQ(ctx, q, candidate)
	})
	if err != nil {
		return nil, err
	}

	priority := models.DefaultPriority
	if spec.Priority != nil {
		priority = *spec.Priority
	}

	task := &models.Task{
		ID:           id,
		Project:      project,
		Description:  spec.Description,
		State:        string(models.StateOpen),
		Role:         spec.Role,
		Priority:     priority,
		Dependencies: append([]string{}, spec.Dependencies...),
		ParentTask:   spec.ParentTask,
		TestCommand:  spec.TestCommand,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := insertTask(ctx, q, task); err != nil {
		return nil, err
	}
	if err := insertDeps(ctx, q, task.ID, task.Dependencies); err != nil {
		return nil, err
	}

	return task, nil
}

func insertTask(ctx context.Context, q querier, task *models.Task) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID,
		task.Project,
		task.Description,
		task.State,
		nullIfEmpty(task.Role),
		task.Priority,
		nullIfEmpty(task.Summary),
		nullIfEmpty(task.Details),
		nullIfEmpty(task.Status),
		nullIfEmpty(task.PRURL),
		nullIfEmpty(task.ClaimedBy),
		nullIfEmpty(task.ParentTask),
		nullIfEmpty(task.ReviewsTask),
		nullIfEmpty(task.TestCommand),
		nullIfEmpty(task.SessionID),
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
	)
	return err
}

func insertDeps(ctx context.Context, q querier, id string, deps []string) error {
	for _, dep := range deps {
		if _, err := q.ExecContext(ctx,
			"INSERT OR IGNORE INTO task_dependencies (task_id, depends_on) VALUES (?, ?)",
			id, dep,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetTask returns a task by (project, id) or ErrNotFound.
func (s *Store) GetTask(ctx context.Context, project, id string) (*models.Task, error) {
	return getTaskQ(ctx, s.db, project, id)
}

func getTaskQ(ctx context.Context, q querier, project, id string) (*models.Task, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND project = ?",
		id, project,
	)
	task, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	task.Dependencies, err = listDepsQ(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns a project's tasks, oldest first, with dependencies
// attached.
func (s *Store) ListTasks(ctx context.Context, project string, filter ListFilter) ([]models.Task, error) {
	where := []string{"project = ?"}
	args := []any{project}

	if filter.State != "" {
		where = append(where, "state = ?")
		args = append(args, filter.State)
	}
	if filter.Role != "" {
		where = append(where, "role = ?")
		args = append(args, filter.Role)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM tasks WHERE %s ORDER BY created_at ASC, id ASC",
		taskColumns, strings.Join(where, " AND "),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return s.attachDeps(ctx, tasks)
}

func (s *Store) attachDeps(ctx context.Context, tasks []models.Task) ([]models.Task, error) {
	if len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]any, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	query := fmt.Sprintf(
		"SELECT task_id, depends_on FROM task_dependencies WHERE task_id IN (%s) ORDER BY depends_on",
		placeholders(len(ids)),
	)
	rows, err := s.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deps := make(map[string][]string)
	for rows.Next() {
		var taskID, dep string
		if err := rows.Scan(&taskID, &dep); err != nil {
			return nil, err
		}
		deps[taskID] = append(deps[taskID], dep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tasks {
		if list, ok := deps[tasks[i].ID]; ok {
			tasks[i].Dependencies = list
		} else {
			tasks[i].Dependencies = []string{}
		}
	}
	return tasks, nil
}

// UpdateTask patches mutable fields and returns the updated task.
func (s *Store) UpdateTask(ctx context.Context, project, id string, update TaskUpdate) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	set := []string{}
	args := []any{}

	if update.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Role != nil {
		set = append(set, "role = ?")
		args = append(args, nullIfEmpty(*update.Role))
	}
	if update.Priority != nil {
		set = append(set, "priority = ?")
		args = append(args, *update.Priority)
	}
	if update.State != nil {
		set = append(set, "state = ?")
		args = append(args, *update.State)
	}
	if update.Status != nil {
		set = append(set, "status = ?")
		args = append(args, nullIfEmpty(*update.Status))
	}
	if update.PRURL != nil {
		set = append(set, "pr_url = ?")
		args = append(args, nullIfEmpty(*update.PRURL))
	}
	if update.TestCommand != nil {
		set = append(set, "test_command = ?")
		args = append(args, nullIfEmpty(*update.TestCommand))
	}
	if update.SessionID != nil {
		set = append(set, "session_id = ?")
		args = append(args, nullIfEmpty(*update.SessionID))
	}

	set = append(set, "updated_at = ?")
	args = append(args, formatTime(time.Now().UTC()))
	args = append(args, id, project)

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = ? AND project = ?", strings.Join(set, ", "))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		err = fmt.Errorf("task %s: %w", id, ErrNotFound)
		return nil, err
	}

	if update.Dependencies != nil {
		if _, err = tx.ExecContext(ctx, "DELETE FROM task_dependencies WHERE task_id = ?", id); err != nil {
			return nil, err
		}
		if err = insertDeps(ctx, tx, id, *update.Dependencies); err != nil {
			return nil, err
		}
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

func taskExistsQ(ctx context.Context, q querier, id string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM tasks WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func listDepsQ(ctx context.Context, q querier, id string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT depends_on FROM task_dependencies WHERE task_id = ? ORDER BY depends_on", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deps := []string{}
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, rows.Err()
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*models.Task, error) {
	var task models.Task
	var role, summary, details, status, prURL, claimedBy, parentTask, reviewsTask, testCommand, sessionID sql.NullString
	var createdAt, updatedAt string

	if err := scanner.Scan(
		&task.ID,
		&task.Project,
		&task.Description,
		&task.State,
		&role,
		&task.Priority,
		&summary,
		&details,
		&status,
		&prURL,
		&claimedBy,
		&parentTask,
		&reviewsTask,
		&testCommand,
		&sessionID,
		&createdAt,
		&updatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	task.Role = role.String
	task.Summary = summary.String
	task.Details = details.String
	task.Status = status.String
	task.PRURL = prURL.String
	task.ClaimedBy = claimedBy.String
	task.ParentTask = parentTask.String
	task.ReviewsTask = reviewsTask.String
	task.TestCommand = testCommand.String
	task.SessionID = sessionID.String

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	parsedUpdated, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	task.CreatedAt = parsedCreated
	task.UpdatedAt = parsedUpdated

	return &task, nil
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
