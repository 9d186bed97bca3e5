package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"golang.org/x/sync/errgroup"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

type dashboardPage struct {
	basePage
	CanWrite bool
	Projects []models.Project
	users    map[int64]models.User
}

// OwnerName resolves a user id to a display name for the listing.
func (p dashboardPage) OwnerName(id int64) string {
	if u, ok := p.users[id]; ok {
		return u.Name
	}
	return "Unknown"
}

func (h *Handler) ShowDashboard(w http.ResponseWriter, r *http.Request) {
	b := GetBrowser(r)
	if b == nil {
		h.redirectLogin(w, r)
		return
	}
	api := h.apiFor(b)

	// Projects and the user directory are independent reads.
	var (
		projects []models.Project
		users    []models.User
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		projects, err = api.Projects().List(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = api.Users().List(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.renderFetchError(w, r, "dashboard list", err)
		return
	}

	user := b.API.User()
	flash, errMsg := bannerFrom(r)
	h.render(w, "dashboard", dashboardPage{
		basePage: basePage{
			User:      &user,
			CSRFField: csrf.TemplateField(r),
			Flash:     flash,
			Error:     errMsg,
		},
		CanWrite: b.API.Role().CanWrite(),
		Projects: projects,
		users:    indexUsers(users),
	})
}

func (h *Handler) HandleCreateProject(w http.ResponseWriter, r *http.Request) {
	b := GetBrowser(r)
	if b == nil {
		h.redirectLogin(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectMessage(w, r, "/dashboard", "error", "Invalid form data")
		return
	}

	created, err := h.apiFor(b).Projects().Create(r.Context(), client.CreateProjectParams{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
	})
	if err != nil {
		h.failWrite(w, r, "/dashboard", err)
		return
	}

	h.log.Info().Int64("project_id", created.ID).Msg("project created")
	redirectMessage(w, r, "/dashboard", "flash", "Project created.")
}

func (h *Handler) HandleUpdateProject(w http.ResponseWriter, r *http.Request) {
	b := GetBrowser(r)
	if b == nil {
		h.redirectLogin(w, r)
		return
	}
	id, ok := pathID(r, "projectID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectMessage(w, r, "/dashboard", "error", "Invalid form data")
		return
	}

	version, _ := strconv.ParseInt(r.FormValue("version"), 10, 64)
	err := h.apiFor(b).Projects().Update(r.Context(), id, client.UpdateProjectParams{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Version:     version,
	})
	if err != nil {
		h.failWrite(w, r, "/dashboard", err)
		return
	}

	redirectMessage(w, r, "/dashboard", "flash", "Project updated.")
}

func (h *Handler) HandleDeleteProject(w http.ResponseWriter, r *http.Request) {
	b := GetBrowser(r)
	if b == nil {
		h.redirectLogin(w, r)
		return
	}
	id, ok := pathID(r, "projectID")
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := h.apiFor(b).Projects().Delete(r.Context(), id); err != nil {
		h.failWrite(w, r, "/dashboard", err)
		return
	}

	h.log.Info().Int64("project_id", id).Msg("project deleted")
	redirectMessage(w, r, "/dashboard", "flash", "Project deleted.")
}

// renderFetchError finishes a page GET whose API reads failed. Expired
// sessions go back to login; anything else gets the dashboard shell with
// the error banner and no stale data.
func (h *Handler) renderFetchError(w http.ResponseWriter, r *http.Request, what string, err error) {
	h.log.Warn().Err(err).Str("fetch", what).Msg("page fetch failed")
	if client.KindOf(err) == client.KindUnauthorized {
		h.redirectLogin(w, r)
		return
	}

	b := GetBrowser(r)
	user := b.API.User()
	w.WriteHeader(http.StatusBadGateway)
	h.render(w, "dashboard", dashboardPage{
		basePage: basePage{
			User:      &user,
			CSRFField: csrf.TemplateField(r),
			Error:     userMessage(err),
		},
		CanWrite: b.API.Role().CanWrite(),
	})
}

func pathID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func indexUsers(users []models.User) map[int64]models.User {
	m := make(map[int64]models.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}
