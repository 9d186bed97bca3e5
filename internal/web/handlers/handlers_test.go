package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/apitest"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/session"
	"github.com/felixnatanaelbutarbutar/qubicball/pkg/logger"
)

func newTestHandler(t *testing.T, srv *apitest.Server) *Handler {
	t.Helper()

	api, err := client.New(client.Config{BaseURL: srv.URL()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	sessions := session.NewStore(time.Hour)
	t.Cleanup(sessions.Close)

	h, err := NewHandler(api, sessions, logger.Nop())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

// signIn seeds a user, creates their browser session, and returns a
// request decorator that attaches it the way the middleware would.
func signIn(t *testing.T, h *Handler, srv *apitest.Server, role models.Role) func(*http.Request) *http.Request {
	t.Helper()

	user := srv.SeedUser("Tester", string(role)+"@example.com", "secret123", role)
	b, err := h.sessions.Create(session.New(srv.Token(user.ID), user))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return func(r *http.Request) *http.Request {
		return r.WithContext(context.WithValue(r.Context(), SessionContextKey, b))
	}
}

// withURLParam attaches a chi route parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestShowLogin(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)

	rec := httptest.NewRecorder()
	h.ShowLogin(rec, httptest.NewRequest("GET", "/login", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "Sign in to QubicBall") {
		t.Error("response body missing login title")
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	srv.SeedUser("Ana", "ana@example.com", "secret123", models.RoleAdmin)

	rec := httptest.NewRecorder()
	h.HandleLogin(rec, formRequest("/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"wrong-pass"},
	}))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Invalid email or password") {
		t.Error("response missing error message")
	}
	if !strings.Contains(body, "Sign in to QubicBall") {
		t.Error("error response should rerender the full login page")
	}
	if !strings.Contains(body, `value="ana@example.com"`) {
		t.Error("email should be preserved in the rerendered form")
	}
}

func TestHandleLogin_Success(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	srv.SeedUser("Ana", "ana@example.com", "secret123", models.RoleAdmin)

	rec := httptest.NewRecorder()
	h.HandleLogin(rec, formRequest("/login", url.Values{
		"email":    {"ana@example.com"},
		"password": {"secret123"},
	}))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Errorf("redirect = %q, want /dashboard", loc)
	}

	var sessionID string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_id" {
			sessionID = c.Value
		}
	}
	if sessionID == "" {
		t.Fatal("no session cookie set")
	}
	b, ok := h.sessions.Get(sessionID)
	if !ok {
		t.Fatal("session cookie does not resolve to a stored session")
	}
	if b.API.User().Email != "ana@example.com" {
		t.Errorf("session user = %q", b.API.User().Email)
	}
}

func TestHandleLogout(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)

	user := srv.SeedUser("Ana", "ana@example.com", "secret123", models.RoleAdmin)
	b, err := h.sessions.Create(session.New(srv.Token(user.ID), user))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: b.ID})
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if _, ok := h.sessions.Get(b.ID); ok {
		t.Error("session should be gone after logout")
	}
	if b.API.Active() {
		t.Error("API credential should be cleared on logout")
	}
}

func TestShowDashboard(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleAdmin)

	srv.SeedProject("Apollo", "moonshot", 1)

	rec := httptest.NewRecorder()
	h.ShowDashboard(rec, bind(httptest.NewRequest("GET", "/dashboard", nil)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Apollo") {
		t.Error("dashboard missing seeded project")
	}
	if !strings.Contains(body, "New project") {
		t.Error("admin dashboard missing the create form")
	}
}

func TestShowDashboard_MemberHasNoWriteControls(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleMember)

	srv.SeedProject("Apollo", "", 1)

	rec := httptest.NewRecorder()
	h.ShowDashboard(rec, bind(httptest.NewRequest("GET", "/dashboard", nil)))

	body := rec.Body.String()
	if strings.Contains(body, "New project") {
		t.Error("member dashboard should not offer the create form")
	}
	if strings.Contains(body, "Delete") {
		t.Error("member dashboard should not offer delete buttons")
	}
	if !strings.Contains(body, "Apollo") {
		t.Error("member dashboard should still list projects")
	}
}

func TestHandleCreateProject(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleManager)

	rec := httptest.NewRecorder()
	h.HandleCreateProject(rec, bind(formRequest("/projects", url.Values{
		"name":        {"Apollo"},
		"description": {"moonshot"},
	})))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/dashboard") {
		t.Errorf("redirect = %q, want dashboard", loc)
	}
}

func TestHandleUpdateProject_ConflictShowsBanner(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleAdmin)

	p := srv.SeedProject("Apollo", "", 1)
	srv.BumpProject(p.ID)

	req := bind(formRequest(fmt.Sprintf("/projects/%d", p.ID), url.Values{
		"name":    {"Apollo 2"},
		"version": {"1"},
	}))
	req = withURLParam(req, "projectID", fmt.Sprint(p.ID))
	rec := httptest.NewRecorder()
	h.HandleUpdateProject(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "error=") || !strings.Contains(loc, "changed") {
		t.Errorf("redirect %q should carry the conflict banner", loc)
	}
}

func TestShowBoard(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleAdmin)

	p := srv.SeedProject("Apollo", "", 1)
	shield := srv.SeedTask("Design heat shield", p.ID, models.StatusInProgress)
	srv.SeedTask("Launch", p.ID, models.StatusNotStarted)

	req := withURLParam(bind(httptest.NewRequest("GET", fmt.Sprintf("/projects/%d", p.ID), nil)), "projectID", fmt.Sprint(p.ID))
	rec := httptest.NewRecorder()
	h.ShowBoard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{"Apollo", "Design heat shield", "Launch", "Not Started", "In Progress", "Completed", "Overdue"} {
		if !strings.Contains(body, want) {
			t.Errorf("board missing %q", want)
		}
	}
	// Write controls: the create form takes a description and each card
	// carries an edit form posting back the observed version.
	if !strings.Contains(body, `name="description"`) {
		t.Error("board missing description inputs")
	}
	if !strings.Contains(body, fmt.Sprintf(`action="/tasks/%d">`, shield.ID)) {
		t.Error("board missing the task edit form")
	}
}

func TestShowBoard_MissingProjectRedirects(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleAdmin)

	req := withURLParam(bind(httptest.NewRequest("GET", "/projects/42", nil)), "projectID", "42")
	rec := httptest.NewRecorder()
	h.ShowBoard(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, "/dashboard") {
		t.Errorf("redirect = %q, want dashboard", loc)
	}
}

func TestHandleUpdateTask_Success(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleManager)

	p := srv.SeedProject("Apollo", "", 1)
	seeded := srv.SeedTask("Launch", p.ID, models.StatusNotStarted)

	req := bind(formRequest(fmt.Sprintf("/tasks/%d", seeded.ID), url.Values{
		"title":       {"Launch rehearsal"},
		"description": {"Full dress run"},
		"due_date":    {"2026-09-15"},
		"version":     {"1"},
		"project_id":  {fmt.Sprint(p.ID)},
	}))
	req = withURLParam(req, "taskID", fmt.Sprint(seeded.ID))
	rec := httptest.NewRecorder()
	h.HandleUpdateTask(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.HasPrefix(loc, fmt.Sprintf("/projects/%d", p.ID)) {
		t.Errorf("redirect = %q, want back to the board", loc)
	}
	task, ok := srv.Task(seeded.ID)
	if !ok {
		t.Fatal("task disappeared")
	}
	if task.Title != "Launch rehearsal" || task.Description != "Full dress run" {
		t.Errorf("task after edit = %q / %q", task.Title, task.Description)
	}
	if task.DueDate == nil || task.DueDate.Format("2006-01-02") != "2026-09-15" {
		t.Errorf("due date after edit = %v, want 2026-09-15", task.DueDate)
	}
	if task.Version != 2 {
		t.Errorf("task version after edit = %d, want 2", task.Version)
	}
}

func TestHandleUpdateTask_StaleVersionConflict(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleAdmin)

	p := srv.SeedProject("Apollo", "", 1)
	task := srv.SeedTask("Launch", p.ID, models.StatusNotStarted)
	srv.BumpTask(task.ID)

	req := bind(formRequest(fmt.Sprintf("/tasks/%d", task.ID), url.Values{
		"title":      {"Renamed"},
		"version":    {"1"},
		"project_id": {fmt.Sprint(p.ID)},
	}))
	req = withURLParam(req, "taskID", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()
	h.HandleUpdateTask(rec, req)

	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, fmt.Sprintf("/projects/%d", p.ID)) {
		t.Errorf("redirect = %q, want back to the board", loc)
	}
	if !strings.Contains(loc, "error=") {
		t.Errorf("redirect %q should carry the conflict banner", loc)
	}
	got, _ := srv.Task(task.ID)
	if got.Title != "Launch" {
		t.Errorf("stale edit applied anyway, title = %q", got.Title)
	}
}

func TestHandleMoveTask_StaleVersionConflict(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleAdmin)

	p := srv.SeedProject("Apollo", "", 1)
	task := srv.SeedTask("Launch", p.ID, models.StatusNotStarted)
	srv.BumpTask(task.ID)

	req := bind(formRequest(fmt.Sprintf("/tasks/%d/move", task.ID), url.Values{
		"status":     {"In Progress"},
		"version":    {"1"},
		"project_id": {fmt.Sprint(p.ID)},
	}))
	req = withURLParam(req, "taskID", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()
	h.HandleMoveTask(rec, req)

	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, fmt.Sprintf("/projects/%d", p.ID)) {
		t.Errorf("redirect = %q, want back to the board", loc)
	}
	if !strings.Contains(loc, "error=") {
		t.Errorf("redirect %q should carry the conflict banner", loc)
	}
}

func TestHandleMoveTask_Success(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	h := newTestHandler(t, srv)
	bind := signIn(t, h, srv, models.RoleManager)

	p := srv.SeedProject("Apollo", "", 1)
	task := srv.SeedTask("Launch", p.ID, models.StatusNotStarted)

	req := bind(formRequest(fmt.Sprintf("/tasks/%d/move", task.ID), url.Values{
		"status":     {"Completed"},
		"version":    {"1"},
		"project_id": {fmt.Sprint(p.ID)},
	}))
	req = withURLParam(req, "taskID", fmt.Sprint(task.ID))
	rec := httptest.NewRecorder()
	h.HandleMoveTask(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want redirect", rec.Code)
	}
	if got := srv.TaskVersion(task.ID); got != 2 {
		t.Errorf("task version after move = %d, want 2", got)
	}
}
