package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/web/middleware"
)

func (s *Server) Routes(log zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(log))

	// Operational endpoints stay outside the CSRF wrapper.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", s.StaticFS()))

	r.Group(func(r chi.Router) {
		r.Use(csrf.Protect(
			s.csrfKey,
			csrf.Secure(s.useSecureCookies),
			csrf.Path("/"),
		))

		// Public routes
		r.Get("/login", s.handler.ShowLogin)
		r.Post("/login", s.handler.HandleLogin)
		r.Get("/register", s.handler.ShowRegister)
		r.Post("/register", s.handler.HandleRegister)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(s.sessions))

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
			})
			r.Post("/logout", s.handler.HandleLogout)

			r.Get("/dashboard", s.handler.ShowDashboard)
			r.Post("/projects", s.handler.HandleCreateProject)
			r.Get("/projects/{projectID}", s.handler.ShowBoard)
			r.Post("/projects/{projectID}", s.handler.HandleUpdateProject)
			r.Post("/projects/{projectID}/delete", s.handler.HandleDeleteProject)
			r.Post("/projects/{projectID}/tasks", s.handler.HandleCreateTask)

			r.Post("/tasks/{taskID}", s.handler.HandleUpdateTask)
			r.Post("/tasks/{taskID}/move", s.handler.HandleMoveTask)
			r.Post("/tasks/{taskID}/delete", s.handler.HandleDeleteTask)
		})
	})

	return r
}
