package store

import (
	"context"

	"beehive/internal/models"
)

// ListFilter narrows ListTasks results within a project.
type ListFilter struct {
	State string
	Role  string
}

// ClaimCriteria selects the next eligible task for a worker.
type ClaimCriteria struct {
	Bee   string
	Roles []string
}

// TaskUpdate describes mutable fields to patch. Nil means unchanged;
// Dependencies replaces the full set when non-nil.
type TaskUpdate struct {
	Description  *string
	Role         *string
	Priority     *int
	State        *string
	Status       *string
	PRURL        *string
	TestCommand  *string
	SessionID    *string
	Dependencies *[]string
}

// ProjectDump is a full export of one project's task data.
type ProjectDump struct {
	Project     models.Project      `json:"project" yaml:"project"`
	Tasks       []models.Task       `json:"tasks" yaml:"tasks"`
	Submissions []models.Submission `json:"submissions,omitempty" yaml:"submissions,omitempty"`
	Logs        map[string][]string `json:"logs,omitempty" yaml:"logs,omitempty"`
}

// TaskStore abstracts the task orchestration backends. Both the SQLite
// store and the locked-file store satisfy identical semantics: every
// multi-step operation is atomic, and for any task at most one concurrent
// claim transitions it out of open.
type TaskStore interface {
	TaskExists(id string) (bool, error)

	CreateTask(ctx context.Context, project string, spec models.TaskSpec) (*models.Task, error)
	GetTask(ctx context.Context, project, id string) (*models.Task, error)
	ListTasks(ctx context.Context, project string, filter ListFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, project, id string, update TaskUpdate) (*models.Task, error)

	// ClaimTask performs the open -> in_progress compare-and-swap. Exactly
	// one concurrent caller wins; losers get ErrConflict.
	ClaimTask(ctx context.Context, project, id, bee string) (*models.Task, error)

	// ClaimNextTask picks the highest-priority, oldest open task whose
	// dependencies are all closed and claims it. A nil task with nil error
	// means nothing is eligible.
	ClaimNextTask(ctx context.Context, project string, criteria ClaimCriteria) (*models.Task, error)

	ReleaseTask(ctx context.Context, project, id string) (*models.Task, error)
	ReopenTask(ctx context.Context, project, id string) (*models.Task, error)

	SubmitTask(ctx context.Context, project, id string, sub models.Submission) (*models.Task, error)
	ApproveTask(ctx context.Context, project, id string) (*models.Task, error)
	RejectTask(ctx context.Context, project, id, reason string) (*models.Task, error)
	FailTask(ctx context.Context, project, id, errMsg, details string) (*models.Task, error)
	BlockTask(ctx context.Context, project, id, reason string) (*models.Task, error)

	GetSubmission(ctx context.Context, project, id string) (*models.Submission, error)

	// FindPendingByPRURL locates the pending_review task whose submission
	// references the given PR. Used by the merge webhook.
	FindPendingByPRURL(ctx context.Context, prURL string) (*models.Task, error)

	AppendTaskLog(ctx context.Context, project, id, content string) error
	GetTaskLog(ctx context.Context, project, id string) ([]string, error)

	CreateProject(ctx context.Context, project *models.Project, bootstrapKey *models.APIKey) error
	GetProject(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]string, error)
	DumpProject(ctx context.Context, name string) (*ProjectDump, error)
	LoadProject(ctx context.Context, name string, dump ProjectDump, replace bool) error

	CreateKey(ctx context.Context, key *models.APIKey) error
	GetAPIKey(ctx context.Context, keyHash string) (*models.APIKey, error)
	ListKeys(ctx context.Context, project string) ([]models.APIKey, error)
	RevokeKey(ctx context.Context, project, keyHash string) error
}

var (
	_ TaskStore = (*Store)(nil)
	_ TaskStore = (*FileStore)(nil)
)
