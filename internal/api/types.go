package api

import (
	"beehive/internal/models"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// ProjectCreateRequest bootstraps a project.
type ProjectCreateRequest struct {
	Name string `json:"name"`
	Repo string `json:"repo,omitempty"`
}

// ProjectCreateResponse carries the new project and its one-time admin
// key. The key is shown exactly once; only its hash is stored.
type ProjectCreateResponse struct {
	Project  models.Project `json:"project"`
	AdminKey string         `json:"adminKey"`
}

// TaskCreateRequest creates a task in the caller's project.
type TaskCreateRequest struct {
	Description  string   `json:"description"`
	Role         string   `json:"role,omitempty"`
	Priority     *int     `json:"priority,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	ParentTask   string   `json:"parentTask,omitempty"`
	TestCommand  string   `json:"testCommand,omitempty"`
}

// TaskUpdateRequest patches task fields; nil fields are left unchanged.
type TaskUpdateRequest struct {
	Description  *string   `json:"description,omitempty"`
	Role         *string   `json:"role,omitempty"`
	Priority     *int      `json:"priority,omitempty"`
	State        *string   `json:"state,omitempty"`
	Status       *string   `json:"status,omitempty"`
	PRURL        *string   `json:"prUrl,omitempty"`
	TestCommand  *string   `json:"testCommand,omitempty"`
	SessionID    *string   `json:"sessionId,omitempty"`
	Dependencies *[]string `json:"dependencies,omitempty"`
}

// StatusUpdateRequest is the bee progress-note path.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// ClaimRequest claims a specific task for a bee.
type ClaimRequest struct {
	Bee string `json:"bee,omitempty"`
}

// ClaimNextRequest asks the scheduler for the next eligible task.
type ClaimNextRequest struct {
	Bee   string   `json:"bee,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// SubmitRequest records a proposed result for review.
type SubmitRequest struct {
	PRURL     string            `json:"pr_url"`
	Summary   string            `json:"summary"`
	Details   string            `json:"details,omitempty"`
	FollowUps []models.TaskSpec `json:"follow_up_tasks,omitempty"`
	Log       string            `json:"log,omitempty"`
}

// RejectRequest sends a submitted task back with a reason.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// FailRequest marks a task failed.
type FailRequest struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// BlockRequest marks a task blocked.
type BlockRequest struct {
	Reason string `json:"reason"`
}

// LogAppendRequest appends one execution-log entry.
type LogAppendRequest struct {
	Content string `json:"content"`
}

// LogResponse returns a task's execution log in order.
type LogResponse struct {
	Entries []string `json:"entries"`
}

// KeyCreateRequest mints a new API key in the caller's project.
type KeyCreateRequest struct {
	Role  string `json:"role"`
	Label string `json:"label,omitempty"`
}

// KeyCreateResponse carries the one-time secret and its stored record.
type KeyCreateResponse struct {
	Key     string        `json:"key"`
	Details models.APIKey `json:"details"`
}

// MergeWebhookEvent is the subset of a pull-request event the merge
// webhook cares about.
type MergeWebhookEvent struct {
	Action      string `json:"action"`
	PullRequest struct {
		Merged  bool   `json:"merged"`
		HTMLURL string `json:"html_url"`
	} `json:"pull_request"`
}

// MergeWebhookResponse reports what the webhook did.
type MergeWebhookResponse struct {
	Approved bool   `json:"approved"`
	TaskID   string `json:"taskId,omitempty"`
}
