// Package web assembles the qubicweb HTTP surface: the session-cookie
// frontend that renders the tracker pages from API data.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/session"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/web/handlers"
)

//go:embed static
var staticFS embed.FS

type Server struct {
	handler          *handlers.Handler
	sessions         *session.Store
	csrfKey          []byte
	useSecureCookies bool
}

// NewServer wires the web frontend around an API client. The client is
// the unauthenticated base; each request binds it to its browser session.
func NewServer(api *client.Client, csrfKey string, sessionTTL time.Duration, secureCookies bool, log zerolog.Logger) (*Server, error) {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	sessions := session.NewStore(sessionTTL)
	h, err := handlers.NewHandler(api, sessions, log)
	if err != nil {
		return nil, err
	}
	return &Server{
		handler:          h,
		sessions:         sessions,
		csrfKey:          []byte(csrfKey),
		useSecureCookies: secureCookies,
	}, nil
}

func (s *Server) StaticFS() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// Unrecoverable init error, the binary shipped without assets.
		panic(fmt.Sprintf("static assets missing: %v", err))
	}
	return http.FileServer(http.FS(sub))
}

func (s *Server) Sessions() *session.Store {
	return s.sessions
}

func (s *Server) Handler() *handlers.Handler {
	return s.handler
}

// Close stops the session sweeper.
func (s *Server) Close() {
	s.sessions.Close()
}
