package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/cache"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/metrics"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

// TaskService provides task reads and writes under the same conflict and
// cache contract as ProjectService.
type TaskService struct {
	c *Client
}

// CreateTaskParams creates a task in a project. Status starts as
// Not Started server-side; DueDate and AssigneeID are optional.
type CreateTaskParams struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=1000"`
	ProjectID   int64      `json:"project_id" validate:"required,gt=0"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
}

// UpdateTaskParams is a partial update: nil fields are left untouched by
// the server. Version is mandatory even for a status-only move between
// board columns.
type UpdateTaskParams struct {
	Version     int64              `json:"version" validate:"required,gt=0"`
	Title       *string            `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string            `json:"description,omitempty" validate:"omitempty,max=1000"`
	Status      *models.TaskStatus `json:"status,omitempty"`
	DueDate     *time.Time         `json:"due_date,omitempty"`
	AssigneeID  *int64             `json:"assignee_id,omitempty"`
}

// ListForProject fetches the tasks belonging to one project, used to
// populate the board columns.
func (s *TaskService) ListForProject(ctx context.Context, projectID int64) ([]models.Task, error) {
	key := cache.KeyTasksForProject(projectID)

	var tasks []models.Task
	if s.c.cacheGet(ctx, key, &tasks) {
		return tasks, nil
	}

	path := fmt.Sprintf("/tasks/project/%d", projectID)
	if err := s.c.do(ctx, "list_tasks", http.MethodGet, path, nil, &tasks, true); err != nil {
		return nil, err
	}
	s.c.cachePut(ctx, key, tasks)
	return tasks, nil
}

// ListForAssignee fetches the tasks assigned to one user across all
// projects. It shares the tasks: key prefix, so any task write
// invalidates it along with the per-project lists.
func (s *TaskService) ListForAssignee(ctx context.Context, userID int64) ([]models.Task, error) {
	key := cache.KeyTasksForAssignee(userID)

	var tasks []models.Task
	if s.c.cacheGet(ctx, key, &tasks) {
		return tasks, nil
	}

	path := fmt.Sprintf("/tasks/assignee/%d", userID)
	if err := s.c.do(ctx, "list_assignee_tasks", http.MethodGet, path, nil, &tasks, true); err != nil {
		return nil, err
	}
	s.c.cachePut(ctx, key, tasks)
	return tasks, nil
}

// Create creates a task and invalidates its project's task list, plus
// the assignee's list when the task starts out assigned.
func (s *TaskService) Create(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	if err := s.c.requireWriter(); err != nil {
		return nil, err
	}
	if err := checkParams(params); err != nil {
		return nil, err
	}

	var created models.Task
	if err := s.c.do(ctx, "create_task", http.MethodPost, "/tasks", params, &created, true); err != nil {
		return nil, err
	}
	keys := []string{cache.KeyTasksForProject(params.ProjectID)}
	if params.AssigneeID != nil {
		keys = append(keys, cache.KeyTasksForAssignee(*params.AssigneeID))
	}
	s.c.invalidate(ctx, keys...)
	return &created, nil
}

// Update submits a partial edit carrying the last observed version. The
// layer does not know which project the task belongs to, so success and
// conflict both invalidate every task list. Overdue is server-assigned
// and rejected here before any network traffic.
func (s *TaskService) Update(ctx context.Context, id int64, params UpdateTaskParams) error {
	if err := s.c.requireWriter(); err != nil {
		return err
	}
	if err := checkParams(params); err != nil {
		return err
	}
	if params.Status != nil && !params.Status.Assignable() {
		return newError(KindValidation, 0, fmt.Sprintf("status %q cannot be assigned by the client", *params.Status))
	}

	err := s.c.do(ctx, "update_task", http.MethodPut, fmt.Sprintf("/tasks/%d", id), params, nil, true)
	if err != nil {
		if IsConflict(err) {
			metrics.ConflictsTotal.WithLabelValues("task").Inc()
			s.c.invalidatePrefix(ctx, cache.TaskKeyPrefix)
		}
		return err
	}

	s.c.invalidatePrefix(ctx, cache.TaskKeyPrefix)
	return nil
}

// Move is the board drag operation: a status-only partial update that
// still must carry the current version.
func (s *TaskService) Move(ctx context.Context, id int64, status models.TaskStatus, version int64) error {
	return s.Update(ctx, id, UpdateTaskParams{Version: version, Status: &status})
}

// Delete removes a task. The layer is not told which project the task
// belonged to, so all task lists are invalidated for safety.
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if err := s.c.requireWriter(); err != nil {
		return err
	}

	if err := s.c.do(ctx, "delete_task", http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil, true); err != nil {
		return err
	}
	s.c.invalidatePrefix(ctx, cache.TaskKeyPrefix)
	return nil
}
