package client

import (
	"context"
	"net/http"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/cache"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

// UserService lists the user directory, used to populate assignee pickers.
type UserService struct {
	c *Client
}

// List fetches all users. The directory only changes on registration, so
// the cached copy is kept until a write invalidates it elsewhere or the
// process restarts.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if s.c.cacheGet(ctx, cache.KeyUsers, &users) {
		return users, nil
	}

	if err := s.c.do(ctx, "list_users", http.MethodGet, "/auth/users", nil, &users, true); err != nil {
		return nil, err
	}
	s.c.cachePut(ctx, cache.KeyUsers, users)
	return users, nil
}
