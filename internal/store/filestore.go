package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"beehive/internal/models"
)

// FileStore is the embedded TaskStore backend: one JSON document guarded
// by an advisory file lock. Every operation is a read-modify-write cycle
// under the lock, so each observes a consistent snapshot and writes back
// atomically; throughput is one operation at a time by construction.
type FileStore struct {
	path string
	lock *fileLock
}

// fileDoc is the persisted document layout.
type fileDoc struct {
	Projects    map[string]*models.Project    `json:"projects"`
	Tasks       map[string]*models.Task       `json:"tasks"`
	Submissions map[string]*models.Submission `json:"submissions"`
	APIKeys     []models.APIKey               `json:"apiKeys"`
	Logs        map[string][]string           `json:"logs"`
}

// OpenFile opens (or initializes) a file-backed store at path.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("data path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileStore{path: path, lock: newFileLock(path)}, nil
}

// withLock runs fn against the decoded document and persists any changes
// before releasing the lock.
func (f *FileStore) withLock(fn func(doc *fileDoc) error) error {
	if err := f.lock.acquire(); err != nil {
		return err
	}
	defer func() { _ = f.lock.release() }()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return f.write(doc)
}

func (f *FileStore) read() (*fileDoc, error) {
	doc := &fileDoc{
		Projects:    map[string]*models.Project{},
		Tasks:       map[string]*models.Task{},
		Submissions: map[string]*models.Submission{},
		APIKeys:     []models.APIKey{},
		Logs:        map[string][]string{},
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode store document %s: %w", f.path, err)
	}
	return doc, nil
}

// write persists via temp file and rename so a crash never leaves a
// half-written document.
func (f *FileStore) write(doc *fileDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// TaskExists checks whether a task exists by id, across all projects.
func (f *FileStore) TaskExists(id string) (bool, error) {
	var exists bool
	err := f.withLock(func(doc *fileDoc) error {
		_, exists = doc.Tasks[id]
		return nil
	})
	return exists, err
}

// CreateTask inserts a new open task with a freshly generated id.
func (f *FileStore) CreateTask(_ context.Context, project string, spec models.TaskSpec) (*models.Task, error) {
	var created *models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := newDocTask(doc, project, spec, time.Now().UTC())
		if err != nil {
			return err
		}
		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func newDocTask(doc *fileDoc, project string, spec models.TaskSpec, now time.Time) (*models.Task, error) {
	id, err := GenerateTaskID(project, func(candidate string) (bool, error) {
		_, ok := doc.Tasks[candidate]
		return ok, nil
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
	doc.Tasks[id] = task
	return task, nil
}

func docTask(doc *fileDoc, project, id string) (*models.Task, error) {
	task, ok := doc.Tasks[id]
	if !ok || task.Project != project {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task, nil
}

// GetTask returns a task by (project, id) or ErrNotFound.
func (f *FileStore) GetTask(_ context.Context, project, id string) (*models.Task, error) {
	var found models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}
		found = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// ListTasks returns a project's tasks, oldest first.
func (f *FileStore) ListTasks(_ context.Context, project string, filter ListFilter) ([]models.Task, error) {
	tasks := []models.Task{}
	err := f.withLock(func(doc *fileDoc) error {
		for _, task := range doc.Tasks {
			if task.Project != project {
				continue
			}
			if filter.State != "" && task.State != filter.State {
				continue
			}
			if filter.Role != "" && task.Role != filter.Role {
				continue
			}
			tasks = append(tasks, *task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

// UpdateTask patches mutable fields and returns the updated task.
func (f *FileStore) UpdateTask(_ context.Context, project, id string, update TaskUpdate) (*models.Task, error) {
	var updated models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}

		if update.Description != nil {
			task.Description = *update.Description
		}
		if update.Role != nil {
			task.Role = *update.Role
		}
		if update.Priority != nil {
			task.Priority = *update.Priority
		}
		if update.State != nil {
			task.State = *update.State
		}
		if update.Status != nil {
			task.Status = *update.Status
		}
		if update.PRURL != nil {
			task.PRURL = *update.PRURL
		}
		if update.TestCommand != nil {
			task.TestCommand = *update.TestCommand
		}
		if update.SessionID != nil {
			task.SessionID = *update.SessionID
		}
		if update.Dependencies != nil {
			task.Dependencies = append([]string{}, (*update.Dependencies)...)
		}
		task.UpdatedAt = time.Now().UTC()
		updated = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ClaimTask is the open -> in_progress transition. The whole-store lock
// serializes claims, so the state check and the write are one atomic
// unit; a non-open task yields ErrConflict.
func (f *FileStore) ClaimTask(_ context.Context, project, id, bee string) (*models.Task, error) {
	var claimed models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}
		if task.State != string(models.StateOpen) {
			return fmt.Errorf("task %s is not open: %w", id, ErrConflict)
		}
		task.State = string(models.StateInProgress)
		task.ClaimedBy = bee
		task.UpdatedAt = time.Now().UTC()
		claimed = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &claimed, nil
}

// ClaimNextTask selects and claims the next eligible task under the
// store lock: open, role-matched, dependencies all closed, ordered by
// priority then age then id.
func (f *FileStore) ClaimNextTask(_ context.Context, project string, criteria ClaimCriteria) (*models.Task, error) {
	var claimed *models.Task
	err := f.withLock(func(doc *fileDoc) error {
		candidates := []*models.Task{}
		for _, task := range doc.Tasks {
			if task.Project != project || task.State != string(models.StateOpen) {
				continue
			}
			if len(criteria.Roles) > 0 && !containsString(criteria.Roles, task.Role) {
				continue
			}
			candidates = append(candidates, task)
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority < candidates[j].Priority
			}
			if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
				return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
			}
			return candidates[i].ID < candidates[j].ID
		})

		for _, task := range candidates {
			if !depsClosed(doc, task.Dependencies) {
				continue
			}
			task.State = string(models.StateInProgress)
			task.ClaimedBy = criteria.Bee
			task.UpdatedAt = time.Now().UTC()
			copied := *task
			claimed = &copied
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func depsClosed(doc *fileDoc, deps []string) bool {
	for _, dep := range deps {
		task, ok := doc.Tasks[dep]
		if !ok || task.State != string(models.StateClosed) {
			return false
		}
	}
	return true
}

// ReleaseTask returns a claimed or submitted task to the pool.
func (f *FileStore) ReleaseTask(_ context.Context, project, id string) (*models.Task, error) {
	var released models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}
		if !models.TaskState(task.State).Releasable() {
			return fmt.Errorf("task %s is not releasable: %w", id, ErrConflict)
		}
		now := time.Now().UTC()
		task.State = string(models.StateOpen)
		task.ClaimedBy = ""
		task.UpdatedAt = now
		closeDocReviewTasks(doc, id, "Released before review", now)
		delete(doc.Submissions, id)
		released = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &released, nil
}

// ReopenTask moves a closed or failed task back to open.
func (f *FileStore) ReopenTask(_ context.Context, project, id string) (*models.Task, error) {
	var reopened models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}
		if !models.TaskState(task.State).Reopenable() {
			return fmt.Errorf("task %s is not reopenable: %w", id, ErrConflict)
		}
		task.State = string(models.StateOpen)
		task.ClaimedBy = ""
		task.UpdatedAt = time.Now().UTC()
		reopened = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reopened, nil
}

// SubmitTask records a submission, moves the task to pending_review and
// auto-spawns a review task in one locked cycle.
func (f *FileStore) SubmitTask(_ context.Context, project, id string, sub models.Submission) (*models.Task, error) {
	var submitted models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		task.State = string(models.StatePendingReview)
		task.UpdatedAt = now

		sub.TaskID = id
		sub.SubmittedAt = now
		doc.Submissions[id] = &sub

		reviewID, err := GenerateTaskID(project, func(candidate string) (bool, error) {
			_, ok := doc.Tasks[candidate]
			return ok, nil
		})
		if err != nil {
			return err
		}
		doc.Tasks[reviewID] = &models.Task{
			ID:           reviewID,
			Project:      project,
			Description:  fmt.Sprintf("Review: %s (%s)", firstLine(task.Description), id),
			State:        string(models.StateOpen),
			Role:         models.ReviewRole,
			Priority:     task.Priority,
			Dependencies: []string{},
			PRURL:        sub.PRURL,
			ReviewsTask:  id,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		submitted = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &submitted, nil
}

// ApproveTask closes a submitted task, closes its review task, creates
// follow-ups and deletes the submission, all under one lock cycle. With
// no submission present it is a no-op returning the task unchanged.
func (f *FileStore) ApproveTask(_ context.Context, project, id string) (*models.Task, error) {
	var approved models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}

		sub, ok := doc.Submissions[id]
		if !ok {
			approved = *task
			return nil
		}

		now := time.Now().UTC()
		task.State = string(models.StateClosed)
		task.Summary = sub.Summary
		task.Details = sub.Details
		task.PRURL = sub.PRURL
		task.UpdatedAt = now

		closeDocReviewTasks(doc, id, "", now)

		for _, spec := range sub.FollowUps {
			spec.ParentTask = id
			if _, err := newDocTask(doc, project, spec, now); err != nil {
				return err
			}
		}

		delete(doc.Submissions, id)
		approved = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &approved, nil
}

// RejectTask reopens a submitted task, closes the review task with the
// rejection reason and discards the submission.
func (f *FileStore) RejectTask(_ context.Context, project, id, reason string) (*models.Task, error) {
	var rejected models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		task.State = string(models.StateOpen)
		task.ClaimedBy = ""
		task.UpdatedAt = now

		closeDocReviewTasks(doc, id, "Rejected: "+reason, now)
		delete(doc.Submissions, id)
		rejected = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rejected, nil
}

// FailTask marks a task failed from any state.
func (f *FileStore) FailTask(_ context.Context, project, id, errMsg, details string) (*models.Task, error) {
	var failed models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}
		task.State = string(models.StateFailed)
		task.Summary = errMsg
		task.Details = details
		task.UpdatedAt = time.Now().UTC()
		failed = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &failed, nil
}

// BlockTask marks a task blocked from any state, recording the reason.
func (f *FileStore) BlockTask(_ context.Context, project, id, reason string) (*models.Task, error) {
	var blocked models.Task
	err := f.withLock(func(doc *fileDoc) error {
		task, err := docTask(doc, project, id)
		if err != nil {
			return err
		}
		task.State = string(models.StateBlocked)
		task.Status = reason
		task.UpdatedAt = time.Now().UTC()
		blocked = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &blocked, nil
}

// GetSubmission returns the pending submission for a task, or nil.
func (f *FileStore) GetSubmission(_ context.Context, project, id string) (*models.Submission, error) {
	var found *models.Submission
	err := f.withLock(func(doc *fileDoc) error {
		if _, err := docTask(doc, project, id); err != nil {
			return err
		}
		if sub, ok := doc.Submissions[id]; ok {
			copied := *sub
			found = &copied
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindPendingByPRURL locates the pending_review task whose submission
// references the given PR URL.
func (f *FileStore) FindPendingByPRURL(_ context.Context, prURL string) (*models.Task, error) {
	var found *models.Task
	err := f.withLock(func(doc *fileDoc) error {
		for id, sub := range doc.Submissions {
			if sub.PRURL != prURL {
				continue
			}
			task, ok := doc.Tasks[id]
			if ok && task.State == string(models.StatePendingReview) {
				copied := *task
				found = &copied
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// AppendTaskLog records one execution-log entry for the task.
func (f *FileStore) AppendTaskLog(_ context.Context, project, id, content string) error {
	return f.withLock(func(doc *fileDoc) error {
		if _, err := docTask(doc, project, id); err != nil {
			return err
		}
		doc.Logs[id] = append(doc.Logs[id], content)
		return nil
	})
}

// GetTaskLog returns a task's execution-log entries in order.
func (f *FileStore) GetTaskLog(_ context.Context, project, id string) ([]string, error) {
	lines := []string{}
	err := f.withLock(func(doc *fileDoc) error {
		if _, err := docTask(doc, project, id); err != nil {
			return err
		}
		lines = append(lines, doc.Logs[id]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// CreateProject inserts a project and its bootstrap key atomically.
func (f *FileStore) CreateProject(_ context.Context, project *models.Project, bootstrapKey *models.APIKey) error {
	return f.withLock(func(doc *fileDoc) error {
		if _, ok := doc.Projects[project.Name]; ok {
			return fmt.Errorf("project %s already exists: %w", project.Name, ErrConflict)
		}
		now := time.Now().UTC()
		project.CreatedAt = now
		project.UpdatedAt = now
		copied := *project
		doc.Projects[project.Name] = &copied
		if bootstrapKey != nil {
			bootstrapKey.CreatedAt = now
			doc.APIKeys = append(doc.APIKeys, *bootstrapKey)
		}
		return nil
	})
}

// GetProject returns a project by name or ErrNotFound.
func (f *FileStore) GetProject(_ context.Context, name string) (*models.Project, error) {
	var found models.Project
	err := f.withLock(func(doc *fileDoc) error {
		project, ok := doc.Projects[name]
		if !ok {
			return fmt.Errorf("project %s: %w", name, ErrNotFound)
		}
		found = *project
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// ListProjects returns all project names.
func (f *FileStore) ListProjects(_ context.Context) ([]string, error) {
	names := []string{}
	err := f.withLock(func(doc *fileDoc) error {
		for name := range doc.Projects {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// DumpProject exports a project's tasks, submissions and logs.
func (f *FileStore) DumpProject(ctx context.Context, name string) (*ProjectDump, error) {
	var dump *ProjectDump
	err := f.withLock(func(doc *fileDoc) error {
		project, ok := doc.Projects[name]
		if !ok {
			return fmt.Errorf("project %s: %w", name, ErrNotFound)
		}

		dump = &ProjectDump{
			Project:     *project,
			Tasks:       []models.Task{},
			Submissions: []models.Submission{},
			Logs:        map[string][]string{},
		}
		for id, task := range doc.Tasks {
			if task.Project != name {
				continue
			}
			dump.Tasks = append(dump.Tasks, *task)
			if sub, ok := doc.Submissions[id]; ok {
				dump.Submissions = append(dump.Submissions, *sub)
			}
			if lines, ok := doc.Logs[id]; ok {
				dump.Logs[id] = append([]string{}, lines...)
			}
		}
		sort.Slice(dump.Tasks, func(i, j int) bool { return dump.Tasks[i].ID < dump.Tasks[j].ID })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dump, nil
}

// LoadProject bulk-imports task data into an existing project.
func (f *FileStore) LoadProject(_ context.Context, name string, dump ProjectDump, replace bool) error {
	return f.withLock(func(doc *fileDoc) error {
		if _, ok := doc.Projects[name]; !ok {
			return fmt.Errorf("project %s: %w", name, ErrNotFound)
		}

		if replace {
			for id, task := range doc.Tasks {
				if task.Project != name {
					continue
				}
				delete(doc.Tasks, id)
				delete(doc.Submissions, id)
				delete(doc.Logs, id)
			}
		}

		for _, task := range dump.Tasks {
			task.Project = name
			copied := task
			doc.Tasks[task.ID] = &copied
		}
		for _, sub := range dump.Submissions {
			copied := sub
			doc.Submissions[sub.TaskID] = &copied
		}
		for id, lines := range dump.Logs {
			doc.Logs[id] = append([]string{}, lines...)
		}
		return nil
	})
}

// CreateKey stores a new API key record.
func (f *FileStore) CreateKey(_ context.Context, key *models.APIKey) error {
	return f.withLock(func(doc *fileDoc) error {
		if key.CreatedAt.IsZero() {
			key.CreatedAt = time.Now().UTC()
		}
		doc.APIKeys = append(doc.APIKeys, *key)
		return nil
	})
}

// GetAPIKey resolves a key hash to its record, bumping last_used_at.
func (f *FileStore) GetAPIKey(_ context.Context, keyHash string) (*models.APIKey, error) {
	var found *models.APIKey
	err := f.withLock(func(doc *fileDoc) error {
		for i := range doc.APIKeys {
			if doc.APIKeys[i].KeyHash == keyHash {
				now := time.Now().UTC()
				doc.APIKeys[i].LastUsedAt = &now
				copied := doc.APIKeys[i]
				found = &copied
				return nil
			}
		}
		return fmt.Errorf("api key: %w", ErrNotFound)
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListKeys returns a project's API key records.
func (f *FileStore) ListKeys(_ context.Context, project string) ([]models.APIKey, error) {
	keys := []models.APIKey{}
	err := f.withLock(func(doc *fileDoc) error {
		for _, key := range doc.APIKeys {
			if key.Project == project {
				keys = append(keys, key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// RevokeKey deletes a key record by hash within a project.
func (f *FileStore) RevokeKey(_ context.Context, project, keyHash string) error {
	return f.withLock(func(doc *fileDoc) error {
		for i, key := range doc.APIKeys {
			if key.Project == project && key.KeyHash == keyHash {
				doc.APIKeys = append(doc.APIKeys[:i], doc.APIKeys[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("api key: %w", ErrNotFound)
	})
}

func closeDocReviewTasks(doc *fileDoc, reviewedID, summary string, now time.Time) {
	for _, task := range doc.Tasks {
		if task.ReviewsTask != reviewedID || task.State == string(models.StateClosed) {
			continue
		}
		task.State = string(models.StateClosed)
		if summary != "" {
			task.Summary = summary
		}
		task.UpdatedAt = now
	}
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
