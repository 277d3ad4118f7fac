package store

import "errors"

// Sentinel errors shared by every storage backend. Callers distinguish
// "target doesn't exist" from "lost a race" from "id space exhausted";
// everything else is a backend failure.
var (
	// ErrNotFound indicates the (project, id) pair does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a state transition lost to a concurrent
	// writer, e.g. a claim on a task that is no longer open. Retrying
	// against a different task is safe.
	ErrConflict = errors.New("conflict")

	// ErrIDExhausted indicates the id generator gave up after the
	// bounded number of collision retries.
	ErrIDExhausted = errors.New("id generation exhausted")
)
