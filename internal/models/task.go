package models

import "time"

// Task is a single unit of work pulled from the pool by a bee.
type Task struct {
	ID           string    `json:"id"`
	Project      string    `json:"project"`
	Description  string    `json:"description"`
	State        string    `json:"state"`
	Role         string    `json:"role,omitempty"`
	Priority     int       `json:"priority"`
	Dependencies []string  `json:"dependencies"`
	Summary      string    `json:"summary,omitempty"`
	Details      string    `json:"details,omitempty"`
	Status       string    `json:"status,omitempty"`
	PRURL        string    `json:"prUrl,omitempty"`
	ClaimedBy    string    `json:"claimedBy,omitempty"`
	ParentTask   string    `json:"parentTask,omitempty"`
	ReviewsTask  string    `json:"reviewsTask,omitempty"`
	TestCommand  string    `json:"testCommand,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TaskSpec describes a task to be created, either directly or as a
// follow-up attached to a submission.
type TaskSpec struct {
	Description  string   `json:"description" yaml:"description"`
	Role         string   `json:"role,omitempty" yaml:"role,omitempty"`
	Priority     *int     `json:"priority,omitempty" yaml:"priority,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	ParentTask   string   `json:"parentTask,omitempty" yaml:"parent_task,omitempty"`
	TestCommand  string   `json:"testCommand,omitempty" yaml:"test_command,omitempty"`
}

// Submission is the proposed result attached to a task while it awaits
// review. It lives exactly as long as the task is pending_review.
type Submission struct {
	TaskID      string     `json:"taskId"`
	PRURL       string     `json:"pr_url"`
	Summary     string     `json:"summary"`
	Details     string     `json:"details,omitempty"`
	FollowUps   []TaskSpec `json:"follow_up_tasks,omitempty"`
	Log         string     `json:"log,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
}
