package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"golang.org/x/sync/errgroup"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/client"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

type boardPage struct {
	basePage
	CanWrite bool
	Project  models.Project
	Board    models.Board
	Users    []models.User
	users    map[int64]models.User
}

type boardColumn struct {
	Title   string
	Tasks   []models.Task
	Overdue bool
}

func (p boardPage) Columns() []boardColumn {
	return []boardColumn{
		{Title: "Not Started", Tasks: p.Board.NotStarted},
		{Title: "In Progress", Tasks: p.Board.InProgress},
		{Title: "Completed", Tasks: p.Board.Completed},
		{Title: "Overdue", Tasks: p.Board.Overdue, Overdue: true},
	}
}

// Assigned reports whether the task is assigned to the given user, used
// to preselect the edit form's assignee option.
func (p boardPage) Assigned(t models.Task, userID int64) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// UserName resolves an assignee id to a display name for the card.
func (p boardPage) UserName(id *int64) string {
	if id == nil {
		return ""
	}
	if u, ok := p.users[*id]; ok {
		return u.Name
	}
	return "Unknown"
}

func (h *Handler) ShowBoard(w http.ResponseWriter, r *http.Request) {
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
	api := h.apiFor(b)

	var (
		project *models.Project
		tasks   []models.Task
		users   []models.User
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		project, err = api.Projects().Get(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = api.Tasks().ListForProject(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = api.Users().List(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		if client.IsNotFound(err) {
			redirectMessage(w, r, "/dashboard", "error", "That project no longer exists.")
			return
		}
		h.renderFetchError(w, r, "board", err)
		return
	}

	user := b.API.User()
	flash, errMsg := bannerFrom(r)
	h.render(w, "board", boardPage{
		basePage: basePage{
			User:      &user,
			CSRFField: csrf.TemplateField(r),
			Flash:     flash,
			Error:     errMsg,
		},
		CanWrite: b.API.Role().CanWrite(),
		Project:  *project,
		Board:    models.BuildBoard(tasks),
		Users:    users,
		users:    indexUsers(users),
	})
}

func (h *Handler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	b := GetBrowser(r)
	if b == nil {
		h.redirectLogin(w, r)
		return
	}
	projectID, ok := pathID(r, "projectID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := boardPath(projectID)
	if err := r.ParseForm(); err != nil {
		redirectMessage(w, r, back, "error", "Invalid form data")
		return
	}

	params := client.CreateTaskParams{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		ProjectID:   projectID,
	}
	if raw := r.FormValue("due_date"); raw != "" {
		due, err := time.Parse("2006-01-02", raw)
		if err != nil {
			redirectMessage(w, r, back, "error", "Due date must be in YYYY-MM-DD form.")
			return
		}
		params.DueDate = &due
	}
	if raw := r.FormValue("assignee_id"); raw != "" {
		assignee, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			redirectMessage(w, r, back, "error", "Unknown assignee.")
			return
		}
		params.AssigneeID = &assignee
	}

	created, err := h.apiFor(b).Tasks().Create(r.Context(), params)
	if err != nil {
		h.failWrite(w, r, back, err)
		return
	}

	h.log.Info().Int64("task_id", created.ID).Int64("project_id", projectID).Msg("task created")
	redirectMessage(w, r, back, "flash", "Task added.")
}

// HandleUpdateTask is the card's edit form: a full edit of title,
// description, due date, and assignee under the usual version check.
func (h *Handler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	b := GetBrowser(r)
	if b == nil {
		h.redirectLogin(w, r)
		return
	}
	taskID, ok := pathID(r, "taskID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectMessage(w, r, "/dashboard", "error", "Invalid form data")
		return
	}
	back := taskBackPath(r)

	version, _ := strconv.ParseInt(r.FormValue("version"), 10, 64)
	title := strings.TrimSpace(r.FormValue("title"))
	description := r.FormValue("description")
	params := client.UpdateTaskParams{
		Version:     version,
		Title:       &title,
		Description: &description,
	}
	if raw := r.FormValue("due_date"); raw != "" {
		due, err := time.Parse("2006-01-02", raw)
		if err != nil {
			redirectMessage(w, r, back, "error", "Due date must be in YYYY-MM-DD form.")
			return
		}
		params.DueDate = &due
	}
	if raw := r.FormValue("assignee_id"); raw != "" {
		assignee, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			redirectMessage(w, r, back, "error", "Unknown assignee.")
			return
		}
		params.AssigneeID = &assignee
	}

	if err := h.apiFor(b).Tasks().Update(r.Context(), taskID, params); err != nil {
		h.failWrite(w, r, back, err)
		return
	}
	redirectMessage(w, r, back, "flash", "Task updated.")
}

func (h *Handler) HandleMoveTask(w http.ResponseWriter, r *http.Request) {
	b := GetBrowser(r)
	if b == nil {
		h.redirectLogin(w, r)
		return
	}
	taskID, ok := pathID(r, "taskID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectMessage(w, r, "/dashboard", "error", "Invalid form data")
		return
	}
	back := taskBackPath(r)

	status, ok := models.ParseTaskStatus(r.FormValue("status"))
	if !ok {
		redirectMessage(w, r, back, "error", "Unknown column.")
		return
	}
	version, _ := strconv.ParseInt(r.FormValue("version"), 10, 64)

	if err := h.apiFor(b).Tasks().Move(r.Context(), taskID, status, version); err != nil {
		h.failWrite(w, r, back, err)
		return
	}
	http.Redirect(w, r, back, http.StatusFound)
}

func (h *Handler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	b := GetBrowser(r)
	if b == nil {
		h.redirectLogin(w, r)
		return
	}
	taskID, ok := pathID(r, "taskID")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectMessage(w, r, "/dashboard", "error", "Invalid form data")
		return
	}
	back := taskBackPath(r)

	if err := h.apiFor(b).Tasks().Delete(r.Context(), taskID); err != nil {
		h.failWrite(w, r, back, err)
		return
	}
	redirectMessage(w, r, back, "flash", "Task deleted.")
}

func boardPath(projectID int64) string {
	return fmt.Sprintf("/projects/%d", projectID)
}

// taskBackPath picks the page a task form returns to. The forms carry
// the project id so the user lands back on the same board.
func taskBackPath(r *http.Request) string {
	if raw := r.FormValue("project_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return boardPath(id)
		}
	}
	return "/dashboard"
}
