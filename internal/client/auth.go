package client

import (
	"context"
	"net/http"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/session"
)

// AuthService handles login, registration, and the current user's profile.
type AuthService struct {
	c *Client
}

// LoginParams are client-validated credentials.
type LoginParams struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterParams creates a new account. The server assigns the role.
type RegisterParams struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// loginResponse is the fixed login payload shape.
type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a session. Bad credentials surface as
// Unauthorized. The caller binds the session with Client.WithSession.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (*session.Session, error) {
	if err := checkParams(params); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := s.c.do(ctx, "login", http.MethodPost, "/auth/login", params, &resp, false); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, newError(KindTransport, http.StatusOK, "login response missing token")
	}
	return session.New(resp.Token, resp.User), nil
}

// Register creates an account. The new user logs in separately.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) error {
	if err := checkParams(params); err != nil {
		return err
	}
	return s.c.do(ctx, "register", http.MethodPost, "/auth/register", params, nil, false)
}

// Profile fetches the authenticated user's record. Not cached: it is the
// cheap sanity check a surface runs to validate a restored credential.
func (s *AuthService) Profile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.c.do(ctx, "profile", http.MethodGet, "/auth/profile", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}
