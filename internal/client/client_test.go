package client

import (
	"context"
	"errors"
	"testing"

	"github.com/felixnatanaelbutarbutar/qubicball/internal/apitest"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/cache"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/models"
	"github.com/felixnatanaelbutarbutar/qubicball/internal/session"
)

// newTestClient seeds a user on the fake server and returns a client
// bound to a session for them.
func newTestClient(t *testing.T, srv *apitest.Server, role models.Role) (*Client, models.User) {
	t.Helper()

	user := srv.SeedUser("Tester", string(role)+"@example.com", "secret123", role)
	token := srv.Token(user.ID)

	c, err := New(Config{BaseURL: srv.URL()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c.WithSession(session.New(token, user)), user
}

func TestCreateThenListContainsProjectOnce(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, _ := newTestClient(t, srv, models.RoleAdmin)
	ctx := context.Background()

	srv.SeedProject("Existing", "", 1)

	// Prime the list cache.
	first, err := c.Projects().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("list = %d projects, want 1", len(first))
	}

	// Second read is served from cache.
	before := srv.Requests()
	if _, err := c.Projects().List(ctx); err != nil {
		t.Fatalf("cached list: %v", err)
	}
	if srv.Requests() != before {
		t.Error("second list should not hit the server")
	}

	created, err := c.Projects().Create(ctx, CreateProjectParams{Name: "Alpha"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.Version != 1 {
		t.Errorf("created project = id %d version %d, want server-assigned id and version 1", created.ID, created.Version)
	}

	// The create invalidated the list; the next read refetches and
	// contains the new project exactly once.
	after, err := c.Projects().List(ctx)
	if err != nil {
		t.Fatalf("list after create: %v", err)
	}
	count := 0
	for _, p := range after {
		if p.ID == created.ID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("new project appears %d times in refetched list, want exactly 1", count)
	}
}

func TestUpdateVersionLifecycle(t *testing.T) {
	// The scenario from the contract: create at version 1, update with
	// version 1 succeeds and moves the server to 2, updating with the
	// stale version 1 again conflicts.
	srv := apitest.New()
	defer srv.Close()
	c, _ := newTestClient(t, srv, models.RoleAdmin)
	ctx := context.Background()

	created, err := c.Projects().Create(ctx, CreateProjectParams{Name: "Alpha"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("initial version = %d, want 1", created.Version)
	}

	err = c.Projects().Update(ctx, created.ID, UpdateProjectParams{Name: "Alpha2", Version: 1})
	if err != nil {
		t.Fatalf("update with current version: %v", err)
	}

	fresh, err := c.Projects().Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if fresh.Version <= created.Version {
		t.Errorf("version after update = %d, want strictly greater than %d", fresh.Version, created.Version)
	}
	if fresh.Name != "Alpha2" {
		t.Errorf("name after update = %q, want Alpha2", fresh.Name)
	}

	err = c.Projects().Update(ctx, created.ID, UpdateProjectParams{Name: "Alpha3", Version: 1})
	if !IsConflict(err) {
		t.Fatalf("stale update error = %v, want conflict", err)
	}

	// The conflict invalidated the entity cache; the next read is
	// authoritative and unchanged by the rejected write.
	again, err := c.Projects().Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("refetch after conflict: %v", err)
	}
	if again.Name != "Alpha2" || again.Version != 2 {
		t.Errorf("state after conflict = %q v%d, want Alpha2 v2 (no silent overwrite)", again.Name, again.Version)
	}
}

func TestConcurrentEditConflicts(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, user := newTestClient(t, srv, models.RoleManager)
	ctx := context.Background()

	p := srv.SeedProject("Shared", "", user.ID)

	got, err := c.Projects().Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Someone else edits the project behind our back.
	srv.BumpProject(p.ID)

	err = c.Projects().Update(ctx, p.ID, UpdateProjectParams{Name: "Mine", Version: got.Version})
	if !IsConflict(err) {
		t.Fatalf("update with stale version = %v, want conflict", err)
	}
	if KindOf(err) != KindConflict {
		t.Errorf("KindOf = %q, want conflict (distinct from transport failures)", KindOf(err))
	}
}

func TestDeleteNonexistentIsNotFound(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, _ := newTestClient(t, srv, models.RoleAdmin)
	ctx := context.Background()

	if err := c.Projects().Delete(ctx, 9999); !IsNotFound(err) {
		t.Errorf("delete missing project = %v, want not found", err)
	}
	if err := c.Tasks().Delete(ctx, 9999); !IsNotFound(err) {
		t.Errorf("delete missing task = %v, want not found", err)
	}
}

func TestListTasksScopedToProject(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, user := newTestClient(t, srv, models.RoleAdmin)
	ctx := context.Background()

	p1 := srv.SeedProject("One", "", user.ID)
	p2 := srv.SeedProject("Two", "", user.ID)
	srv.SeedTask("a", p1.ID, models.StatusNotStarted)
	srv.SeedTask("b", p1.ID, models.StatusInProgress)
	srv.SeedTask("c", p2.ID, models.StatusCompleted)

	tasks, err := c.Tasks().ListForProject(ctx, p1.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	for _, task := range tasks {
		if task.ProjectID != p1.ID {
			t.Errorf("task %d belongs to project %d, want %d", task.ID, task.ProjectID, p1.ID)
		}
	}
}

func TestListTasksForAssignee(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, user := newTestClient(t, srv, models.RoleAdmin)
	ctx := context.Background()

	p := srv.SeedProject("Apollo", "", user.ID)
	mine := srv.SeedTask("mine", p.ID, models.StatusNotStarted)
	other := srv.SeedTask("theirs", p.ID, models.StatusNotStarted)
	srv.SeedTask("unassigned", p.ID, models.StatusNotStarted)
	srv.AssignTask(mine.ID, user.ID)
	srv.AssignTask(other.ID, user.ID+1000)

	tasks, err := c.Tasks().ListForAssignee(ctx, user.ID)
	if err != nil {
		t.Fatalf("list for assignee: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != mine.ID {
		t.Fatalf("got %d tasks, want only the one assigned to user %d", len(tasks), user.ID)
	}

	// Second read is served from cache.
	before := srv.Requests()
	if _, err := c.Tasks().ListForAssignee(ctx, user.ID); err != nil {
		t.Fatalf("cached list: %v", err)
	}
	if srv.Requests() != before {
		t.Error("second assignee list should not hit the server")
	}

	// A task write invalidates assignee lists along with project lists.
	if err := c.Tasks().Move(ctx, mine.ID, models.StatusCompleted, mine.Version); err != nil {
		t.Fatalf("move: %v", err)
	}
	after := srv.Requests()
	refetched, err := c.Tasks().ListForAssignee(ctx, user.ID)
	if err != nil {
		t.Fatalf("list after move: %v", err)
	}
	if srv.Requests() == after {
		t.Error("assignee list should refetch after a task write")
	}
	if len(refetched) != 1 || refetched[0].Status != models.StatusCompleted {
		t.Errorf("refetched list = %+v, want the moved task", refetched)
	}
}

func TestMemberBlockedBeforeNetwork(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, _ := newTestClient(t, srv, models.RoleMember)
	ctx := context.Background()

	baseline := srv.Requests()

	writes := []struct {
		name string
		call func() error
	}{
		{"create project", func() error {
			_, err := c.Projects().Create(ctx, CreateProjectParams{Name: "x"})
			return err
		}},
		{"update project", func() error {
			return c.Projects().Update(ctx, 1, UpdateProjectParams{Name: "x", Version: 1})
		}},
		{"delete project", func() error { return c.Projects().Delete(ctx, 1) }},
		{"create task", func() error {
			_, err := c.Tasks().Create(ctx, CreateTaskParams{Title: "x", ProjectID: 1})
			return err
		}},
		{"update task", func() error {
			return c.Tasks().Update(ctx, 1, UpdateTaskParams{Version: 1})
		}},
		{"move task", func() error { return c.Tasks().Move(ctx, 1, models.StatusCompleted, 1) }},
		{"delete task", func() error { return c.Tasks().Delete(ctx, 1) }},
	}

	for _, w := range writes {
		if err := w.call(); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s as member = %v, want forbidden", w.name, err)
		}
	}
	if got := srv.Requests(); got != baseline {
		t.Errorf("member writes issued %d network calls, want 0", got-baseline)
	}

	// Reads still work for members.
	if _, err := c.Projects().List(ctx); err != nil {
		t.Errorf("member list: %v", err)
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	user := srv.SeedUser("Ghost", "ghost@example.com", "secret123", models.RoleAdmin)
	sess := session.New("no-such-token", user)

	c, err := New(Config{BaseURL: srv.URL()})
	if err != nil {
		t.Fatal(err)
	}
	c = c.WithSession(sess)

	_, err = c.Projects().List(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("list with bad token = %v, want unauthorized", err)
	}
	if sess.Active() {
		t.Error("session should be cleared after a 401")
	}
}

func TestRateLimitedIsDistinct(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, _ := newTestClient(t, srv, models.RoleAdmin)

	srv.ForceRateLimit(true)
	_, err := c.Projects().List(context.Background())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("list under rate limit = %v, want rate limited", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Error("rate limited must not read as a generic transport failure")
	}
}

func TestFractionalRateStillAdmitsRequests(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	user := srv.SeedUser("Tester", "slow@example.com", "secret123", models.RoleAdmin)
	c, err := New(Config{BaseURL: srv.URL(), RequestsPerSecond: 0.5})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c = c.WithSession(session.New(srv.Token(user.ID), user))

	// A rate under 1 rps must still leave room for one request, or Wait
	// rejects everything outright.
	if c.limiter.Burst() < 1 {
		t.Fatalf("burst = %d, no request can ever be admitted", c.limiter.Burst())
	}
	if _, err := c.Projects().List(context.Background()); err != nil {
		t.Fatalf("list under fractional rate: %v", err)
	}
}

func TestLoginFlow(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()

	seeded := srv.SeedUser("Ana", "ana@example.com", "secret123", models.RoleManager)

	c, err := New(Config{BaseURL: srv.URL()})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Auth().Login(context.Background(), LoginParams{Email: "ana@example.com", Password: "wrong-pass"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("login with bad password = %v, want unauthorized", err)
	}

	sess, err := c.Auth().Login(context.Background(), LoginParams{Email: "ana@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.User().ID != seeded.ID || sess.Role() != models.RoleManager {
		t.Errorf("session user = %+v, want seeded user", sess.User())
	}

	profile, err := c.WithSession(sess).Auth().Profile(context.Background())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Email != "ana@example.com" {
		t.Errorf("profile email = %q", profile.Email)
	}
}

func TestValidationFailsBeforeNetwork(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, _ := newTestClient(t, srv, models.RoleAdmin)
	ctx := context.Background()

	baseline := srv.Requests()
	overdue := models.StatusOverdue

	cases := []struct {
		name string
		call func() error
	}{
		{"empty project name", func() error {
			_, err := c.Projects().Create(ctx, CreateProjectParams{Name: ""})
			return err
		}},
		{"zero version", func() error {
			return c.Projects().Update(ctx, 1, UpdateProjectParams{Name: "x", Version: 0})
		}},
		{"empty task title", func() error {
			_, err := c.Tasks().Create(ctx, CreateTaskParams{Title: "", ProjectID: 1})
			return err
		}},
		{"client-assigned overdue", func() error {
			return c.Tasks().Update(ctx, 1, UpdateTaskParams{Version: 1, Status: &overdue})
		}},
		{"malformed login email", func() error {
			_, err := c.Auth().Login(ctx, LoginParams{Email: "not-an-email", Password: "x"})
			return err
		}},
		{"short register password", func() error {
			return c.Auth().Register(ctx, RegisterParams{Name: "x", Email: "x@example.com", Password: "short"})
		}},
	}

	for _, tc := range cases {
		if err := tc.call(); !errors.Is(err, ErrValidation) {
			t.Errorf("%s = %v, want validation failure", tc.name, err)
		}
	}
	if got := srv.Requests(); got != baseline {
		t.Errorf("validation failures issued %d network calls, want 0", got-baseline)
	}
}

func TestTaskMoveAndConflictInvalidation(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, user := newTestClient(t, srv, models.RoleAdmin)
	ctx := context.Background()

	p := srv.SeedProject("Board", "", user.ID)
	task := srv.SeedTask("Drag me", p.ID, models.StatusNotStarted)

	// Prime the task list cache.
	if _, err := c.Tasks().ListForProject(ctx, p.ID); err != nil {
		t.Fatalf("list: %v", err)
	}

	// Move with the current version.
	if err := c.Tasks().Move(ctx, task.ID, models.StatusInProgress, 1); err != nil {
		t.Fatalf("move: %v", err)
	}

	// The move invalidated the list; the refetch sees the new column
	// and the advanced version.
	tasks, err := c.Tasks().ListForProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if tasks[0].Status != models.StatusInProgress || tasks[0].Version != 2 {
		t.Fatalf("task after move = %q v%d, want In Progress v2", tasks[0].Status, tasks[0].Version)
	}

	// A second mover still holding version 1 loses.
	err = c.Tasks().Move(ctx, task.ID, models.StatusCompleted, 1)
	if !IsConflict(err) {
		t.Fatalf("stale move = %v, want conflict", err)
	}

	// And the conflict invalidated the cache too: the next list is a
	// fresh fetch, not the pre-conflict copy.
	before := srv.Requests()
	if _, err := c.Tasks().ListForProject(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if srv.Requests() == before {
		t.Error("list after conflict should refetch from the server")
	}
}

func TestDeleteTaskInvalidatesAllTaskLists(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, user := newTestClient(t, srv, models.RoleAdmin)
	ctx := context.Background()

	p1 := srv.SeedProject("One", "", user.ID)
	p2 := srv.SeedProject("Two", "", user.ID)
	doomed := srv.SeedTask("bye", p1.ID, models.StatusNotStarted)
	srv.SeedTask("stay", p2.ID, models.StatusNotStarted)

	// Prime both lists.
	if _, err := c.Tasks().ListForProject(ctx, p1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Tasks().ListForProject(ctx, p2.ID); err != nil {
		t.Fatal(err)
	}

	if err := c.Tasks().Delete(ctx, doomed.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// The layer does not know which project the task belonged to, so
	// both lists must refetch.
	before := srv.Requests()
	if _, err := c.Tasks().ListForProject(ctx, p1.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Tasks().ListForProject(ctx, p2.ID); err != nil {
		t.Fatal(err)
	}
	if srv.Requests() != before+2 {
		t.Errorf("expected both task lists to refetch after delete, got %d extra requests", srv.Requests()-before)
	}
}

func TestCanceledFetchDoesNotPopulateCache(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c, _ := newTestClient(t, srv, models.RoleAdmin)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// cachePut is the last step of every read; with a canceled context
	// the arriving result must be dropped, not written for other views.
	c.cachePut(ctx, cache.KeyProjects, []models.Project{{ID: 1}})

	var out []models.Project
	if c.cacheGet(context.Background(), cache.KeyProjects, &out) {
		t.Error("canceled fetch should not have populated the cache")
	}
}
