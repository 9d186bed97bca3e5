// Package cache provides the write-invalidated read cache used by the
// synchronization layer. Entries are JSON blobs keyed by entity or list
// key; there is no time-based expiry, invalidation is purely write-driven.
package cache

import (
	"context"
	"fmt"
)

// Store is a blob cache. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached value for key, or ok=false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any previous entry.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// Close releases any backing resources.
	Close() error
}

// Key scheme shared by all backends. Matches the collections the server
// itself caches, so invalidation stays aligned with server behavior.
const (
	KeyProjects   = "projects"
	KeyUsers      = "users"
	TaskKeyPrefix = "tasks:"
)

// KeyProject is the cache key for a single project.
func KeyProject(id int64) string {
	return fmt.Sprintf("project:%d", id)
}

// KeyTasksForProject is the cache key for a project's task list.
func KeyTasksForProject(projectID int64) string {
	return fmt.Sprintf("tasks:project:%d", projectID)
}

// KeyTasksForAssignee is the cache key for one user's task list.
func KeyTasksForAssignee(userID int64) string {
	return fmt.Sprintf("tasks:assignee:%d", userID)
}
