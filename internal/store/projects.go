package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"beehive/internal/models"
)

// CreateProject inserts a project and its bootstrap admin key in one
// transaction: a project without a usable credential would be unreachable.
func (s *Store) CreateProject(ctx context.Context, project *models.Project, bootstrapKey *models.APIKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	if err = tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM projects WHERE name = ?)", project.Name).Scan(&exists); err != nil {
		return err
	}
	if exists {
		err = fmt.Errorf("project %s already exists: %w", project.Name, ErrConflict)
		return err
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO projects (name, repo, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, project.Name, nullIfEmpty(project.Repo), nullIfEmpty(project.Config),
		formatTime(now), formatTime(now)); err != nil {
		return err
	}

	if bootstrapKey != nil {
		bootstrapKey.CreatedAt = now
		if err = insertKey(ctx, tx, bootstrapKey); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetProject returns a project by name or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, name string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT name, repo, config, created_at, updated_at FROM projects WHERE name = ?", name)

	var p models.Project
	var repo, config sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&p.Name, &repo, &config, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	p.Repo = repo.String
	p.Config = config.String
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all project names.
func (s *Store) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM projects ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DumpProject exports a project's tasks, submissions and logs.
func (s *Store) DumpProject(ctx context.Context, name string) (*ProjectDump, error) {
	project, err := s.GetProject(ctx, name)
	if err != nil {
		return nil, err
	}

	tasks, err := s.ListTasks(ctx, name, ListFilter{})
	if err != nil {
		return nil, err
	}

	dump := &ProjectDump{
		Project:     *project,
		Tasks:       tasks,
		Submissions: []models.Submission{},
		Logs:        map[string][]string{},
	}

	for _, task := range tasks {
		sub, err := getSubmissionQ(ctx, s.db, task.ID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			dump.Submissions = append(dump.Submissions, *sub)
		}

		lines, err := taskLogQ(ctx, s.db, task.ID)
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			dump.Logs[task.ID] = lines
		}
	}

	return dump, nil
}

// LoadProject bulk-imports task data into an existing project. With
// replace set, the project's current tasks are dropped first. The whole
// load is one transaction.
func (s *Store) LoadProject(ctx context.Context, name string, dump ProjectDump, replace bool) error {
	if _, err := s.GetProject(ctx, name); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if replace {
		for _, stmt := range []string{
			"DELETE FROM task_dependencies WHERE task_id IN (SELECT id FROM tasks WHERE project = ?)",
			"DELETE FROM submissions WHERE task_id IN (SELECT id FROM tasks WHERE project = ?)",
			"DELETE FROM task_logs WHERE task_id IN (SELECT id FROM tasks WHERE project = ?)",
			"DELETE FROM tasks WHERE project = ?",
		} {
			if _, err = tx.ExecContext(ctx, stmt, name); err != nil {
				return err
			}
		}
	}

	for _, task := range dump.Tasks {
		task.Project = name
		if err = insertTask(ctx, tx, &task); err != nil {
			return err
		}
		if err = insertDeps(ctx, tx, task.ID, task.Dependencies); err != nil {
			return err
		}
	}

	for _, sub := range dump.Submissions {
		var followUps []byte
		followUps, err = json.Marshal(sub.FollowUps)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO submissions (task_id, pr_url, summary, details, follow_up_tasks, log, submitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, sub.TaskID, sub.PRURL, sub.Summary, nullIfEmpty(sub.Details),
			string(followUps), nullIfEmpty(sub.Log), formatTime(sub.SubmittedAt)); err != nil {
			return err
		}
	}

	now := formatTime(time.Now().UTC())
	for taskID, lines := range dump.Logs {
		for i, line := range lines {
			if _, err = tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO task_logs (task_id, attempt, content, created_at)
				VALUES (?, ?, ?, ?)
			`, taskID, i+1, line, now); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// CreateKey stores a new API key record.
func (s *Store) CreateKey(ctx context.Context, key *models.APIKey) error {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	return insertKey(ctx, s.db, key)
}

func insertKey(ctx context.Context, q querier, key *models.APIKey) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, project, role, label, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, NULL)
	`, key.KeyHash, key.Project, key.Role, nullIfEmpty(key.Label), formatTime(key.CreatedAt))
	return err
}

// GetAPIKey resolves a key hash to its record, bumping last_used_at.
func (s *Store) GetAPIKey(ctx context.Context, keyHash string) (*models.APIKey, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key_hash, project, role, label, created_at, last_used_at
		FROM api_keys WHERE key_hash = ?
	`, keyHash)

	key, err := scanKey(row)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("api key: %w", ErrNotFound)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET last_used_at = ? WHERE key_hash = ?",
		formatTime(time.Now().UTC()), keyHash); err != nil {
		return nil, err
	}
	return key, nil
}

// ListKeys returns a project's API key records.
func (s *Store) ListKeys(ctx context.Context, project string) ([]models.APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key_hash, project, role, label, created_at, last_used_at
		FROM api_keys WHERE project = ? ORDER BY created_at ASC
	`, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []models.APIKey{}
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *key)
	}
	return keys, rows.Err()
}

// RevokeKey deletes a key record by hash within a project.
func (s *Store) RevokeKey(ctx context.Context, project, keyHash string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM api_keys WHERE project = ? AND key_hash = ?", project, keyHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("api key: %w", ErrNotFound)
	}
	return nil
}

func scanKey(scanner interface {
	Scan(dest ...any) error
}) (*models.APIKey, error) {
	var key models.APIKey
	var label, lastUsed sql.NullString
	var role, createdAt string

	err := scanner.Scan(&key.KeyHash, &key.Project, &role, &label, &createdAt, &lastUsed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	key.Role = models.KeyRole(role)
	key.Label = label.String
	if key.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t, err := parseTime(lastUsed.String)
		if err != nil {
			return nil, err
		}
		key.LastUsedAt = &t
	}
	return &key, nil
}
