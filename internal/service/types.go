// Package service defines the backend-agnostic remote contract for sync.
package service

import "time"

// RemoteTask is the normalized view of a task as the remote service knows it.
// All downstream code depends on this type, never on raw API responses.
type RemoteTask struct {
	// ID is the identifier assigned by the remote service.
	ID string

	Title string
	Notes string

	// Due is the due date at day granularity; zero means no due date.
	Due time.Time

	// Completed reports whether the remote task is done.
	Completed bool

	// Updated is the remote last-modified timestamp.
	Updated time.Time

	// Deleted marks a remote tombstone. Services that hide completed or
	// deleted tasks instead of removing them are normalized to this flag.
	Deleted bool
}
