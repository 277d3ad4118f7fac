package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"beehive/internal/api"
	"beehive/internal/models"
	"beehive/internal/store"
)

const maxDescriptionLength = 10000

// TaskService validates requests and translates store sentinels into API
// errors. Handlers stay thin; everything between decode and store lives
// here.
type TaskService struct {
	store store.TaskStore
}

func NewTaskService(taskStore store.TaskStore) *TaskService {
	return &TaskService{store: taskStore}
}

func (ts *TaskService) Create(ctx context.Context, project string, req api.TaskCreateRequest) (*models.Task, error) {
	spec, err := validateTaskSpec(models.TaskSpec{
		Description:  req.Description,
		Role:         req.Role,
		Priority:     req.Priority,
		Dependencies: req.Dependencies,
		ParentTask:   req.ParentTask,
		TestCommand:  req.TestCommand,
	})
	if err != nil {
		return nil, err
	}

	task, err := ts.store.CreateTask(ctx, project, spec)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Get(ctx context.Context, project, id string) (*models.Task, error) {
	task, err := ts.store.GetTask(ctx, project, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) List(ctx context.Context, project string, filter store.ListFilter) ([]models.Task, error) {
	if filter.State != "" {
		state, err := models.ParseTaskState(filter.State)
		if err != nil {
			return nil, badRequestCode(err, ErrCodeInvalidState)
		}
		filter.State = string(state)
	}
	tasks, err := ts.store.ListTasks(ctx, project, filter)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return tasks, nil
}

func (ts *TaskService) Update(ctx context.Context, project, id string, req api.TaskUpdateRequest) (*models.Task, error) {
	update := store.TaskUpdate{
		Description:  req.Description,
		Role:         req.Role,
		Priority:     req.Priority,
		State:        req.State,
		Status:       req.Status,
		PRURL:        req.PRURL,
		TestCommand:  req.TestCommand,
		SessionID:    req.SessionID,
		Dependencies: req.Dependencies,
	}

	if update.Description != nil && strings.TrimSpace(*update.Description) == "" {
		return nil, badRequestCode(fmt.Errorf("description cannot be empty"), ErrCodeMissingRequired)
	}
	if update.Priority != nil && !models.IsValidPriority(*update.Priority) {
		return nil, badRequestCode(
			fmt.Errorf("priority must be between %d and %d", models.PriorityMin, models.PriorityMax),
			ErrCodeInvalidPriority)
	}
	if update.State != nil {
		state, err := models.ParseTaskState(*update.State)
		if err != nil {
			return nil, badRequestCode(err, ErrCodeInvalidState)
		}
		normalized := string(state)
		update.State = &normalized
	}

	task, err := ts.store.UpdateTask(ctx, project, id, update)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) UpdateStatus(ctx context.Context, project, id, status string) (*models.Task, error) {
	task, err := ts.store.UpdateTask(ctx, project, id, store.TaskUpdate{Status: &status})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Claim(ctx context.Context, project, id, bee string) (*models.Task, error) {
	task, err := ts.store.ClaimTask(ctx, project, id, bee)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, conflictCode(err, ErrCodeClaimLost)
		}
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) ClaimNext(ctx context.Context, project string, criteria store.ClaimCriteria) (*models.Task, error) {
	task, err := ts.store.ClaimNextTask(ctx, project, criteria)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Release(ctx context.Context, project, id string) (*models.Task, error) {
	task, err := ts.store.ReleaseTask(ctx, project, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Reopen(ctx context.Context, project, id string) (*models.Task, error) {
	task, err := ts.store.ReopenTask(ctx, project, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Submit(ctx context.Context, project, id string, req api.SubmitRequest) (*models.Task, error) {
	if strings.TrimSpace(req.PRURL) == "" {
		return nil, badRequestCode(fmt.Errorf("pr_url is required"), ErrCodeMissingRequired)
	}
	if strings.TrimSpace(req.Summary) == "" {
		return nil, badRequestCode(fmt.Errorf("summary is required"), ErrCodeMissingRequired)
	}
	followUps := make([]models.TaskSpec, 0, len(req.FollowUps))
	for _, spec := range req.FollowUps {
		validated, err := validateTaskSpec(spec)
		if err != nil {
			return nil, err
		}
		followUps = append(followUps, validated)
	}

	task, err := ts.store.SubmitTask(ctx, project, id, models.Submission{
		PRURL:     strings.TrimSpace(req.PRURL),
		Summary:   req.Summary,
		Details:   req.Details,
		FollowUps: followUps,
		Log:       req.Log,
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Approve(ctx context.Context, project, id string) (*models.Task, error) {
	task, err := ts.store.ApproveTask(ctx, project, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Reject(ctx context.Context, project, id, reason string) (*models.Task, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, badRequestCode(fmt.Errorf("reason is required"), ErrCodeMissingRequired)
	}
	task, err := ts.store.RejectTask(ctx, project, id, reason)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Fail(ctx context.Context, project, id, errMsg, details string) (*models.Task, error) {
	if strings.TrimSpace(errMsg) == "" {
		return nil, badRequestCode(fmt.Errorf("error is required"), ErrCodeMissingRequired)
	}
	task, err := ts.store.FailTask(ctx, project, id, errMsg, details)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Block(ctx context.Context, project, id, reason string) (*models.Task, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, badRequestCode(fmt.Errorf("reason is required"), ErrCodeMissingRequired)
	}
	task, err := ts.store.BlockTask(ctx, project, id, reason)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return task, nil
}

func (ts *TaskService) Submission(ctx context.Context, project, id string) (*models.Submission, error) {
	sub, err := ts.store.GetSubmission(ctx, project, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return sub, nil
}

func (ts *TaskService) AppendLog(ctx context.Context, project, id, content string) error {
	if content == "" {
		return badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired)
	}
	if err := ts.store.AppendTaskLog(ctx, project, id, content); err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (ts *TaskService) Log(ctx context.Context, project, id string) ([]string, error) {
	entries, err := ts.store.GetTaskLog(ctx, project, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return entries, nil
}

func validateTaskSpec(spec models.TaskSpec) (models.TaskSpec, error) {
	spec.Description = strings.TrimSpace(spec.Description)
	if spec.Description == "" {
		return spec, badRequestCode(fmt.Errorf("description is required"), ErrCodeMissingRequired)
	}
	if len(spec.Description) > maxDescriptionLength {
		return spec, badRequestCode(
			fmt.Errorf("description exceeds %d characters", maxDescriptionLength), ErrCodeInvalidArgument)
	}
	if spec.Priority != nil && !models.IsValidPriority(*spec.Priority) {
		return spec, badRequestCode(
			fmt.Errorf("priority must be between %d and %d", models.PriorityMin, models.PriorityMax),
			ErrCodeInvalidPriority)
	}
	spec.Role = strings.TrimSpace(spec.Role)

	deps := make([]string, 0, len(spec.Dependencies))
	for _, dep := range spec.Dependencies {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			return spec, badRequestCode(fmt.Errorf("invalid dependency id"), ErrCodeInvalidID)
		}
		deps = append(deps, dep)
	}
	spec.Dependencies = deps
	return spec, nil
}

// mapStoreError converts store sentinels into API errors with the right
// HTTP status; anything unrecognized is a 500.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFoundCode(err, ErrCodeTaskNotFound)
	case errors.Is(err, store.ErrConflict):
		return conflictCode(err, ErrCodeStateConflict)
	case errors.Is(err, store.ErrIDExhausted):
		return makeAPIError(500, "internal", ErrCodeIDExhausted, err)
	default:
		return storeFailure(err)
	}
}
