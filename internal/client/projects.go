package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/cache"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/metrics"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

// ProjectService provides project reads and writes with cache discipline:
// reads are served from cache when possible, successful writes invalidate
// exactly the entries that could be stale, and conflicts invalidate and
// surface distinctly so the caller refetches before retrying.
type ProjectService struct {
	c *Client
}

// CreateProjectParams creates a project. The server assigns id, owner,
// and the initial version.
type CreateProjectParams struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateProjectParams replaces a project's name and description. Version
// must be the value last fetched; the server rejects stale versions.
type UpdateProjectParams struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Version     int64  `json:"version" validate:"required,gt=0"`
}

// List fetches all projects visible to the current user, server-ordered.
func (s *ProjectService) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if s.c.cacheGet(ctx, cache.KeyProjects, &projects) {
		return projects, nil
	}

	if err := s.c.do(ctx, "list_projects", http.MethodGet, "/projects", nil, &projects, true); err != nil {
		return nil, err
	}
	s.c.cachePut(ctx, cache.KeyProjects, projects)
	return projects, nil
}

// Get fetches one project, NotFound when the id does not exist.
func (s *ProjectService) Get(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	if s.c.cacheGet(ctx, cache.KeyProject(id), &project) {
		return &project, nil
	}

	if err := s.c.do(ctx, "get_project", http.MethodGet, fmt.Sprintf("/projects/%d", id), nil, &project, true); err != nil {
		return nil, err
	}
	s.c.cachePut(ctx, cache.KeyProject(id), &project)
	return &project, nil
}

// Create creates a project and invalidates the project list.
func (s *ProjectService) Create(ctx context.Context, params CreateProjectParams) (*models.Project, error) {
	if err := s.c.requireWriter(); err != nil {
		return nil, err
	}
	if err := checkParams(params); err != nil {
		return nil, err
	}

	var created models.Project
	if err := s.c.do(ctx, "create_project", http.MethodPost, "/projects", params, &created, true); err != nil {
		return nil, err
	}
	s.c.invalidate(ctx, cache.KeyProjects)
	return &created, nil
}

// Update submits an edit carrying the last observed version. On success
// the entity and list caches are invalidated and the caller refetches; on
// Conflict the same caches are invalidated so the next read is
// authoritative, and the attempted change is never applied locally.
func (s *ProjectService) Update(ctx context.Context, id int64, params UpdateProjectParams) error {
	if err := s.c.requireWriter(); err != nil {
		return err
	}
	if err := checkParams(params); err != nil {
		return err
	}

	err := s.c.do(ctx, "update_project", http.MethodPut, fmt.Sprintf("/projects/%d", id), params, nil, true)
	if err != nil {
		if IsConflict(err) {
			metrics.ConflictsTotal.WithLabelValues("project").Inc()
			s.c.invalidate(ctx, cache.KeyProject(id), cache.KeyProjects)
		}
		return err
	}

	s.c.invalidate(ctx, cache.KeyProject(id), cache.KeyProjects)
	return nil
}

// Delete removes a project. NotFound surfaces as such; success
// invalidates the list and entity caches, and the project's task list.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	if err := s.c.requireWriter(); err != nil {
		return err
	}

	if err := s.c.do(ctx, "delete_project", http.MethodDelete, fmt.Sprintf("/projects/%d", id), nil, nil, true); err != nil {
		return err
	}
	s.c.invalidate(ctx, cache.KeyProject(id), cache.KeyProjects, cache.KeyTasksForProject(id))
	return nil
}
