// Package handlers implements the qubicweb page and form handlers. Every
// handler renders server-side from data fetched through the API client
// bound to the browser session.
package handlers

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

type Handler struct {
	api      *client.Client
	sessions *session.Store
	pages    map[string]*template.Template
	log      zerolog.Logger
}

func NewHandler(api *client.Client, sessions *session.Store, log zerolog.Logger) (*Handler, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"login", "register", "dashboard", "board"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return &Handler{
		api:      api,
		sessions: sessions,
		pages:    pages,
		log:      log,
	}, nil
}

// Sessions exposes the browser session store for the middleware.
func (h *Handler) Sessions() *session.Store {
	return h.sessions
}

type contextKey string

const SessionContextKey contextKey = "session"

// GetBrowser returns the browser session the middleware attached to the
// request, or nil for unauthenticated requests.
func GetBrowser(r *http.Request) *session.Browser {
	if b, ok := r.Context().Value(SessionContextKey).(*session.Browser); ok {
		return b
	}
	return nil
}

// apiFor returns the API client bound to the request's session.
func (h *Handler) apiFor(b *session.Browser) *client.Client {
	return h.api.WithSession(b.API)
}

// basePage carries the fields the layout template reads on every page.
type basePage struct {
	User      *models.User
	CSRFField template.HTML
	Flash     string
	Error     string
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	t, ok := h.pages[name]
	if !ok {
		h.log.Error().Str("page", name).Msg("unknown template")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		h.log.Error().Err(err).Str("page", name).Msg("render failed")
	}
}

// userMessage maps a sync layer error to the sentence shown in the page
// banner. Conflicts get the refetch instruction rather than a generic
// failure, so the user knows their copy was stale, not lost to the network.
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	switch client.KindOf(err) {
	case client.KindConflict:
		return "Someone else changed this while you were editing. The latest version is shown below; please redo your change."
	case client.KindNotFound:
		return "That item no longer exists. It may have been deleted by someone else."
	case client.KindForbidden:
		return "Your role does not allow that action."
	case client.KindRateLimited:
		return "The server is busy. Please wait a moment and try again."
	case client.KindValidation:
		var ce *client.Error
		if errors.As(err, &ce) {
			return ce.Message
		}
		return "The submitted values were not valid."
	case client.KindUnauthorized:
		return "Your session has expired. Please sign in again."
	default:
		return "The server could not be reached. Please try again."
	}
}

// failWrite finishes a form POST that the API rejected. Session expiry
// goes back through login; everything else returns to the originating
// page with the error in the banner.
func (h *Handler) failWrite(w http.ResponseWriter, r *http.Request, backTo string, err error) {
	if errors.Is(err, client.ErrUnauthorized) {
		h.redirectLogin(w, r)
		return
	}
	redirectMessage(w, r, backTo, "error", userMessage(err))
}

func (h *Handler) redirectLogin(w http.ResponseWriter, r *http.Request) {
	if b := GetBrowser(r); b != nil {
		h.sessions.Delete(b.ID)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// redirectMessage redirects to a page with a one-shot banner message in
// the query string. kind is "flash" or "error".
func redirectMessage(w http.ResponseWriter, r *http.Request, to, kind, msg string) {
	u := fmt.Sprintf("%s?%s=%s", to, kind, template.URLQueryEscaper(msg))
	http.Redirect(w, r, u, http.StatusFound)
}

// bannerFrom reads the one-shot banner message out of the query string.
func bannerFrom(r *http.Request) (flash, errMsg string) {
	return r.URL.Query().Get("flash"), r.URL.Query().Get("error")
}
