package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/migrate"
	"taskboard/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Admin  *domain.User
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	admin, err := eng.CreateUser(ctx, engine.UserCreateOptions{
		Name:  "Admin",
		Email: "admin@example.com",
		Role:  "admin",
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Admin: admin}
}

func (env testEnv) createUser(t *testing.T, name, email string) *domain.User {
	t.Helper()
	u, err := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{
		Name: name, Email: email, Role: "developer", ActorID: env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (env testEnv) createTeam(t *testing.T, name string) *domain.Team {
	t.Helper()
	team, err := env.Engine.CreateTeam(env.Ctx, name, "", env.Admin.ID)
	if err != nil {
		t.Fatalf("create team %s: %v", name, err)
	}
	return team
}

func (env testEnv) createProject(t *testing.T, teamID domain.TeamID, name string) *domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		Name: name, TeamID: teamID, ActorID: env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return p
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Dana", "dana@example.com")
	_, err := env.Engine.CreateUser(env.Ctx, engine.UserCreateOptions{
		Name: "Other Dana", Email: "Dana@Example.COM", Role: "viewer", ActorID: env.Admin.ID,
	})
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("expected DomainError for duplicate email, got %v", err)
	}
}

func TestUserLifecycleRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "Dana", "dana@example.com")
	u, err := env.Engine.SetUserStatus(env.Ctx, u.ID, "suspended", env.Admin.ID)
	if err != nil || u.Status != domain.UserSuspended {
		t.Fatalf("suspend: %v (status %s)", err, u.Status)
	}
	loaded, err := env.Engine.GetUser(env.Ctx, u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Status != domain.UserSuspended {
		t.Fatalf("status not persisted: %s", loaded.Status)
	}
	if loaded.Version != 2 {
		t.Fatalf("expected version bump, got %d", loaded.Version)
	}
}

func TestAddMemberRequiresActiveUser(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	u := env.createUser(t, "Dana", "dana@example.com")
	if _, err := env.Engine.SetUserStatus(env.Ctx, u.ID, "inactive", env.Admin.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := env.Engine.AddTeamMember(env.Ctx, team.ID, u.ID, "developer", env.Admin.ID)
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("expected DomainError for inactive member, got %v", err)
	}
}

func TestTeamMembershipPersists(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	u := env.createUser(t, "Dana", "dana@example.com")
	if _, err := env.Engine.AddTeamMember(env.Ctx, team.ID, u.ID, "developer", env.Admin.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	loaded, err := env.Engine.GetTeam(env.Ctx, team.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	m, ok := loaded.Member(u.ID)
	if !ok || m.Role != domain.TeamRoleDeveloper {
		t.Fatalf("membership not persisted: %+v", m)
	}
	if _, err := env.Engine.RemoveTeamMember(env.Ctx, team.ID, u.ID, env.Admin.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	loaded, _ = env.Engine.GetTeam(env.Ctx, team.ID)
	if loaded.MemberCount() != 0 {
		t.Fatalf("expected empty team after removal")
	}
}

func TestCreateProjectGates(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	env.createProject(t, team.ID, "Rollout")

	// duplicate name in the same team
	_, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		Name: "Rollout", TeamID: team.ID, ActorID: env.Admin.ID,
	})
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("expected DomainError for duplicate name, got %v", err)
	}

	// same name in another team is fine
	other := env.createTeam(t, "Platform")
	env.createProject(t, other.ID, "Rollout")

	// archived team cannot own new projects
	if _, err := env.Engine.ChangeTeamStatus(env.Ctx, other.ID, "archived", env.Admin.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	_, err = env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{
		Name: "Late", TeamID: other.ID, ActorID: env.Admin.ID,
	})
	if !errors.As(err, &domErr) {
		t.Fatalf("expected DomainError for archived team, got %v", err)
	}
}

func TestTerminalProjectRejectsTasks(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	p := env.createProject(t, team.ID, "Rollout")
	if _, err := env.Engine.CancelProject(env.Ctx, p.ID, env.Admin.ID); err != nil {
		t.Fatalf("cancel project: %v", err)
	}
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Spec: domain.TaskSpec{Title: "late"}, ProjectID: p.ID, ActorID: env.Admin.ID,
	})
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
}

func TestAssignTaskRequiresActiveUser(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	p := env.createProject(t, team.ID, "Rollout")
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Spec: domain.TaskSpec{Title: "feature"}, ProjectID: p.ID, ActorID: env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	u := env.createUser(t, "Dana", "dana@example.com")
	if _, err := env.Engine.SetUserStatus(env.Ctx, u.ID, "suspended", env.Admin.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	_, err = env.Engine.AssignTask(env.Ctx, task.ID, u.ID, env.Admin.ID)
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if _, err := env.Engine.SetUserStatus(env.Ctx, u.ID, "active", env.Admin.ID); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	got, err := env.Engine.AssignTask(env.Ctx, task.ID, u.ID, env.Admin.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.AssigneeID != u.ID {
		t.Fatalf("assignee not set")
	}
}

func TestCancelTaskCascadesThroughStorage(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	p := env.createProject(t, team.ID, "Rollout")
	root, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Spec: domain.TaskSpec{Title: "root"}, ProjectID: p.ID, ActorID: env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sub, err := env.Engine.CreateSubtask(env.Ctx, root.ID, domain.TaskSpec{Title: "child"}, env.Admin.ID)
	if err != nil {
		t.Fatalf("subtask: %v", err)
	}
	deep, err := env.Engine.CreateSubtask(env.Ctx, sub.ID, domain.TaskSpec{Title: "grandchild"}, env.Admin.ID)
	if err != nil {
		t.Fatalf("subtask: %v", err)
	}
	if _, err := env.Engine.CreateSubtask(env.Ctx, deep.ID, domain.TaskSpec{Title: "too deep"}, env.Admin.ID); err == nil {
		t.Fatalf("expected depth bound rejection")
	}

	if _, err := env.Engine.CancelTask(env.Ctx, root.ID, env.Admin.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	loaded, err := env.Engine.GetTask(env.Ctx, root.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	loaded.Walk(func(n *domain.Task) {
		if n.Status != domain.TaskCancelled {
			t.Errorf("task %s not cancelled after cascade", n.ID)
		}
	})
}

func TestTaskStatusPersistsAcrossLoads(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	p := env.createProject(t, team.ID, "Rollout")
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Spec: domain.TaskSpec{Title: "feature"}, ProjectID: p.ID, ActorID: env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, next := range []string{"in_progress", "in_review", "done"} {
		if task, err = env.Engine.ChangeTaskStatus(env.Ctx, task.ID, next, env.Admin.ID); err != nil {
			t.Fatalf("to %s: %v", next, err)
		}
	}
	loaded, err := env.Engine.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Status != domain.TaskDone || loaded.CompletedAt == nil {
		t.Fatalf("done state not persisted: %s", loaded.Status)
	}
	if _, err := env.Engine.ChangeTaskStatus(env.Ctx, task.ID, "todo", env.Admin.ID); err == nil {
		t.Fatalf("expected terminal lock")
	}
}

func TestEventAppendOnStateChanges(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	p := env.createProject(t, team.ID, "Rollout")
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Spec: domain.TaskSpec{Title: "evented"}, ProjectID: p.ID, ActorID: env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, next := range []string{"in_progress", "in_review", "done"} {
		if _, err := env.Engine.ChangeTaskStatus(env.Ctx, task.ID, next, env.Admin.ID); err != nil {
			t.Fatalf("to %s: %v", next, err)
		}
	}
	evts, err := env.Engine.ListEvents(env.Ctx, 50, 0, repo.EventFilters{EntityKind: "task", EntityID: task.ID.String()})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evts) != 4 {
		t.Fatalf("expected 4 events (created + 3 transitions), got %d", len(evts))
	}
	if evts[0].Type != "task.status_changed" || evts[len(evts)-1].Type != "task.created" {
		t.Fatalf("unexpected event ordering: first %s last %s", evts[0].Type, evts[len(evts)-1].Type)
	}
	for _, evt := range evts {
		if evt.ActorID != env.Admin.ID.String() {
			t.Fatalf("actor not recorded on %s", evt.Type)
		}
	}
}

func TestProjectStatusCounts(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	p := env.createProject(t, team.ID, "Rollout")
	for i := 0; i < 3; i++ {
		if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
			Spec: domain.TaskSpec{Title: "work"}, ProjectID: p.ID, ActorID: env.Admin.ID,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Spec: domain.TaskSpec{Title: "moving"}, ProjectID: p.ID, ActorID: env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.Engine.ChangeTaskStatus(env.Ctx, task.ID, "in_progress", env.Admin.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	counts, err := env.Engine.ProjectStatusCounts(env.Ctx, p.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["todo"] != 3 || counts["in_progress"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestVersionConflictOnStaleWrite(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	stale, err := env.Engine.GetTeam(env.Ctx, team.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := env.Engine.UpdateTeamInfo(env.Ctx, team.ID, "Renamed", "", env.Admin.ID); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// mutate the stale copy and push it through the repo directly
	if err := stale.UpdateInfo("Conflicting", "", env.Admin.ID, env.Engine.Now); err != nil {
		t.Fatalf("mutate stale: %v", err)
	}
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	err = env.Engine.Repo.UpdateTeam(env.Ctx, tx, stale)
	if !errors.Is(err, repo.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestCreateTaskWithoutDescriptionPersists(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	p := env.createProject(t, team.ID, "Rollout")
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Spec: domain.TaskSpec{Title: "No description"}, ProjectID: p.ID, ActorID: env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("create without description: %v", err)
	}
	loaded, err := env.Engine.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Description != "" {
		t.Fatalf("expected empty description, got %q", loaded.Description)
	}
}

func TestSubtaskCreationConflictsStaleParentWrite(t *testing.T) {
	env := newTestEnv(t)
	team := env.createTeam(t, "Core")
	p := env.createProject(t, team.ID, "Rollout")
	root, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Spec: domain.TaskSpec{Title: "epic"}, ProjectID: p.ID, ActorID: env.Admin.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Advance the parent so a stale copy can legally walk to done.
	for _, next := range []string{"in_progress", "in_review"} {
		if _, err := env.Engine.ChangeTaskStatus(env.Ctx, root.ID, next, env.Admin.ID); err != nil {
			t.Fatalf("to %s: %v", next, err)
		}
	}
	stale, err := env.Engine.GetTask(env.Ctx, root.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := env.Engine.CreateSubtask(env.Ctx, root.ID, domain.TaskSpec{Title: "child"}, env.Admin.ID); err != nil {
		t.Fatalf("subtask: %v", err)
	}

	reloaded, err := env.Engine.GetTask(env.Ctx, root.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Version != stale.Version+1 {
		t.Fatalf("expected subtask creation to bump parent version %d -> %d, got %d",
			stale.Version, stale.Version+1, reloaded.Version)
	}

	// The stale copy has no subtasks in memory, so done passes its own check;
	// the version guard must reject the write.
	if err := stale.ChangeStatus(domain.TaskDone, env.Admin.ID, env.Engine.Now); err != nil {
		t.Fatalf("in-memory transition: %v", err)
	}
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	err = env.Engine.Repo.SaveTaskTree(env.Ctx, tx, stale)
	if !errors.Is(err, repo.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for the pre-subtask copy, got %v", err)
	}
	// Release the write lock; SQLite is single-writer and the engine calls
	// below need their own transactions.
	tx.Rollback()

	// After reloading, the open subtask itself blocks completion.
	if _, err := env.Engine.ChangeTaskStatus(env.Ctx, root.ID, "done", env.Admin.ID); err == nil {
		t.Fatalf("expected open-subtask rejection on fresh state")
	}
	current, err := env.Engine.GetTask(env.Ctx, root.ID)
	if err != nil {
		t.Fatalf("final load: %v", err)
	}
	if current.Status == domain.TaskDone {
		t.Fatalf("parent must not be done while its subtask is open")
	}
}

func TestGetUserNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.GetUser(env.Ctx, domain.NewUserID())
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
