package models

import "time"

// Project is a task namespace. Task ids are globally unique, but every
// task belongs to exactly one project.
type Project struct {
	Name      string    `json:"name"`
	Repo      string    `json:"repo,omitempty"`
	Config    string    `json:"config,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// APIKey is a stored credential record. The secret itself is never
// persisted; KeyHash is its SHA-256 hex digest and doubles as the
// lookup and revocation handle.
type APIKey struct {
	KeyHash    string     `json:"keyHash"`
	Project    string     `json:"project"`
	Role       KeyRole    `json:"role"`
	Label      string     `json:"label,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}
