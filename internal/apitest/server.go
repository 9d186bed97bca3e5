// Package apitest provides an in-memory fake of the QubicBall API for
// tests. It implements the wire contract the client depends on: bearer
// auth, raw JSON payloads, {"error": msg} failures, and the server-side
// version check on every update.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
)

// Server is the fake API. All fields are protected by mu except the
// request counter, which tests read to prove a call never went out.
type Server struct {
	HTTP *httptest.Server

	mu        sync.Mutex
	users     map[int64]*account
	projects  map[int64]*models.Project
	tasks     map[int64]*models.Task
	tokens    map[string]int64 // token -> user id
	nextID    int64
	requests  atomic.Int64
	forced429 atomic.Bool
}

type account struct {
	user     models.User
	password string
}

// New starts the fake server. Callers must Close it.
func New() *Server {
	s := &Server{
		users:    make(map[int64]*account),
		projects: make(map[int64]*models.Project),
		tasks:    make(map[int64]*models.Task),
		tokens:   make(map[string]int64),
		nextID:   1,
	}
	s.HTTP = httptest.NewServer(http.HandlerFunc(s.route))
	return s
}

// Close shuts the server down.
func (s *Server) Close() { s.HTTP.Close() }

// URL returns the API base URL.
func (s *Server) URL() string { return s.HTTP.URL }

// Requests returns how many HTTP requests reached the server.
func (s *Server) Requests() int64 { return s.requests.Load() }

// ForceRateLimit makes every subsequent request answer 429.
func (s *Server) ForceRateLimit(on bool) { s.forced429.Store(on) }

// SeedUser registers a user with a known password and returns it.
func (s *Server) SeedUser(name, email, password string, role models.Role) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	u := models.User{ID: id, Email: email, Name: name, Role: role}
	s.users[id] = &account{user: u, password: password}
	return u
}

// SeedProject inserts a project at version 1 and returns it.
func (s *Server) SeedProject(name, description string, ownerID int64) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	now := time.Now().UTC()
	p := models.Project{
		ID: id, Name: name, Description: description,
		OwnerID: ownerID, Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	s.projects[id] = &p
	return p
}

// SeedTask inserts a task at version 1 and returns it.
func (s *Server) SeedTask(title string, projectID int64, status models.TaskStatus) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	now := time.Now().UTC()
	t := models.Task{
		ID: id, Title: title, Status: status,
		ProjectID: projectID, Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	s.tasks[id] = &t
	return t
}

// AssignTask sets a task's assignee directly, without a version bump.
func (s *Server) AssignTask(id, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		t.AssigneeID = &userID
	}
}

// Token mints a bearer token for an existing user, bypassing login.
func (s *Server) Token(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := fmt.Sprintf("token-%d-%d", userID, len(s.tokens))
	s.tokens[token] = userID
	return token
}

// ProjectVersion reports the stored version, 0 when absent. Lets tests
// assert the server state without going through the client.
func (s *Server) ProjectVersion(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[id]; ok {
		return p.Version
	}
	return 0
}

// TaskVersion reports the stored version, 0 when absent.
func (s *Server) TaskVersion(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		return t.Version
	}
	return 0
}

// Task returns a copy of the stored task.
func (s *Server) Task(id int64) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		return *t, true
	}
	return models.Task{}, false
}

// BumpProject simulates a concurrent edit by another user: it advances the
// stored version directly.
func (s *Server) BumpProject(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[id]; ok {
		p.Version++
		p.UpdatedAt = time.Now().UTC()
	}
}

// BumpTask simulates a concurrent edit to a task.
func (s *Server) BumpTask(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		t.Version++
		t.UpdatedAt = time.Now().UTC()
	}
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	if s.forced429.Load() {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodPost && path == "/auth/login":
		s.handleLogin(w, r)
	case r.Method == http.MethodPost && path == "/auth/register":
		s.handleRegister(w, r)
	case r.Method == http.MethodGet && path == "/auth/profile":
		s.withAuth(w, r, s.handleProfile)
	case r.Method == http.MethodGet && path == "/auth/users":
		s.withAuth(w, r, s.handleListUsers)
	case path == "/projects" || strings.HasPrefix(path, "/projects/"):
		s.withAuth(w, r, s.handleProjects)
	case path == "/tasks" || strings.HasPrefix(path, "/tasks/"):
		s.withAuth(w, r, s.handleTasks)
	default:
		writeError(w, http.StatusNotFound, "no such route")
	}
}

func (s *Server) withAuth(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request, models.User)) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "authorization header required")
		return
	}
	token := strings.TrimPrefix(header, "Bearer ")

	s.mu.Lock()
	userID, ok := s.tokens[token]
	var user models.User
	if ok {
		user = s.users[userID].user
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	next(w, r, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range s.users {
		if acct.user.Email == req.Email && acct.password == req.Password {
			token := fmt.Sprintf("token-%d-%d", acct.user.ID, len(s.tokens))
			s.tokens[token] = acct.user.ID
			writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": acct.user})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "invalid credentials")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acct := range s.users {
		if acct.user.Email == req.Email {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
	}

	id := s.nextID
	s.nextID++
	u := models.User{ID: id, Email: req.Email, Name: req.Name, Role: models.RoleMember}
	s.users[id] = &account{user: u, password: req.Password}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request, user models.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request, _ models.User) {
	s.mu.Lock()
	users := make([]models.User, 0, len(s.users))
	for _, acct := range s.users {
		users = append(users, acct.user)
	}
	s.mu.Unlock()

	sortByID(users, func(u models.User) int64 { return u.ID })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request, user models.User) {
	path := strings.TrimPrefix(strings.TrimSuffix(r.URL.Path, "/"), "/projects")

	switch {
	case path == "" && r.Method == http.MethodGet:
		s.mu.Lock()
		projects := make([]models.Project, 0, len(s.projects))
		for _, p := range s.projects {
			projects = append(projects, *p)
		}
		s.mu.Unlock()
		sortByID(projects, func(p models.Project) int64 { return p.ID })
		writeJSON(w, http.StatusOK, projects)

	case path == "" && r.Method == http.MethodPost:
		if !requireWriter(w, user) {
			return
		}
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		s.mu.Lock()
		id := s.nextID
		s.nextID++
		now := time.Now().UTC()
		p := models.Project{
			ID: id, Name: req.Name, Description: req.Description,
			OwnerID: user.ID, Version: 1, CreatedAt: now, UpdatedAt: now,
		}
		s.projects[id] = &p
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, p)

	default:
		id, ok := parseID(path)
		if !ok {
			writeError(w, http.StatusNotFound, "invalid project id")
			return
		}
		switch r.Method {
		case http.MethodGet:
			s.mu.Lock()
			p, ok := s.projects[id]
			var copyP models.Project
			if ok {
				copyP = *p
			}
			s.mu.Unlock()
			if !ok {
				writeError(w, http.StatusNotFound, "project not found")
				return
			}
			writeJSON(w, http.StatusOK, copyP)

		case http.MethodPut:
			if !requireWriter(w, user) {
				return
			}
			var req struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Version     int64  `json:"version"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid body")
				return
			}
			s.mu.Lock()
			p, ok := s.projects[id]
			if !ok {
				s.mu.Unlock()
				writeError(w, http.StatusNotFound, "project not found")
				return
			}
			if p.Version != req.Version {
				s.mu.Unlock()
				writeError(w, http.StatusConflict, "project modified by another user, please refresh and try again")
				return
			}
			p.Name = req.Name
			p.Description = req.Description
			p.Version++
			p.UpdatedAt = time.Now().UTC()
			copyP := *p
			s.mu.Unlock()
			writeJSON(w, http.StatusOK, copyP)

		case http.MethodDelete:
			if !requireWriter(w, user) {
				return
			}
			s.mu.Lock()
			_, ok := s.projects[id]
			delete(s.projects, id)
			s.mu.Unlock()
			if !ok {
				writeError(w, http.StatusNotFound, "project not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "project deleted"})

		default:
			writeError(w, http.StatusNotFound, "no such route")
		}
	}
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, user models.User) {
	path := strings.TrimPrefix(strings.TrimSuffix(r.URL.Path, "/"), "/tasks")

	switch {
	case path == "" && r.Method == http.MethodPost:
		if !requireWriter(w, user) {
			return
		}
		var req struct {
			Title       string     `json:"title"`
			Description string     `json:"description"`
			ProjectID   int64      `json:"project_id"`
			DueDate     *time.Time `json:"due_date"`
			AssigneeID  *int64     `json:"assignee_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}
		s.mu.Lock()
		id := s.nextID
		s.nextID++
		now := time.Now().UTC()
		t := models.Task{
			ID: id, Title: req.Title, Description: req.Description,
			Status: models.StatusNotStarted, DueDate: req.DueDate,
			ProjectID: req.ProjectID, AssigneeID: req.AssigneeID,
			Version: 1, CreatedAt: now, UpdatedAt: now,
		}
		s.tasks[id] = &t
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, t)

	case strings.HasPrefix(path, "/project/") && r.Method == http.MethodGet:
		projectID, ok := parseID(strings.TrimPrefix(path, "/project"))
		if !ok {
			writeError(w, http.StatusNotFound, "invalid project id")
			return
		}
		s.mu.Lock()
		tasks := make([]models.Task, 0)
		for _, t := range s.tasks {
			if t.ProjectID == projectID {
				tasks = append(tasks, *t)
			}
		}
		s.mu.Unlock()
		sortByID(tasks, func(t models.Task) int64 { return t.ID })
		writeJSON(w, http.StatusOK, tasks)

	case strings.HasPrefix(path, "/assignee/") && r.Method == http.MethodGet:
		userID, ok := parseID(strings.TrimPrefix(path, "/assignee"))
		if !ok {
			writeError(w, http.StatusNotFound, "invalid user id")
			return
		}
		s.mu.Lock()
		tasks := make([]models.Task, 0)
		for _, t := range s.tasks {
			if t.AssigneeID != nil && *t.AssigneeID == userID {
				tasks = append(tasks, *t)
			}
		}
		s.mu.Unlock()
		sortByID(tasks, func(t models.Task) int64 { return t.ID })
		writeJSON(w, http.StatusOK, tasks)

	default:
		id, ok := parseID(path)
		if !ok {
			writeError(w, http.StatusNotFound, "invalid task id")
			return
		}
		switch r.Method {
		case http.MethodPut:
			if !requireWriter(w, user) {
				return
			}
			var req struct {
				Version     int64              `json:"version"`
				Title       *string            `json:"title"`
				Description *string            `json:"description"`
				Status      *models.TaskStatus `json:"status"`
				DueDate     *time.Time         `json:"due_date"`
				AssigneeID  *int64             `json:"assignee_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid body")
				return
			}
			s.mu.Lock()
			t, ok := s.tasks[id]
			if !ok {
				s.mu.Unlock()
				writeError(w, http.StatusNotFound, "task not found")
				return
			}
			if t.Version != req.Version {
				s.mu.Unlock()
				writeError(w, http.StatusConflict, "task modified by another user, please refresh and try again")
				return
			}
			if req.Title != nil {
				t.Title = *req.Title
			}
			if req.Description != nil {
				t.Description = *req.Description
			}
			if req.Status != nil {
				t.Status = *req.Status
			}
			if req.DueDate != nil {
				t.DueDate = req.DueDate
			}
			if req.AssigneeID != nil {
				t.AssigneeID = req.AssigneeID
			}
			t.Version++
			t.UpdatedAt = time.Now().UTC()
			copyT := *t
			s.mu.Unlock()
			writeJSON(w, http.StatusOK, copyT)

		case http.MethodDelete:
			if !requireWriter(w, user) {
				return
			}
			s.mu.Lock()
			_, ok := s.tasks[id]
			delete(s.tasks, id)
			s.mu.Unlock()
			if !ok {
				writeError(w, http.StatusNotFound, "task not found")
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})

		default:
			writeError(w, http.StatusNotFound, "no such route")
		}
	}
}

func requireWriter(w http.ResponseWriter, user models.User) bool {
	if !user.Role.CanWrite() {
		writeError(w, http.StatusForbidden, "insufficient role")
		return false
	}
	return true
}

func parseID(path string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(path, "/"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func sortByID[T any](items []T, id func(T) int64) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && id(items[j]) < id(items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
