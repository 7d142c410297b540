package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/migrate"
)

type testServer struct {
	URL    string
	Admin  *domain.User
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn)
	admin, err := e.CreateUser(context.Background(), engine.UserCreateOptions{
		Name:  "Admin",
		Email: "admin@example.com",
		Role:  "admin",
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/api/v1",
		Auth: AuthConfig{
			JWTSecret:              "test-secret",
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Admin:  admin,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.Close)
	return testSrv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func (s *testServer) asAdmin() map[string]string {
	return map[string]string{"X-Actor-Id": s.Admin.ID.String()}
}

func (s *testServer) createTeam(t *testing.T, name string) TeamResponse {
	t.Helper()
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/api/v1/teams", map[string]any{
		"name": name,
	}, s.asAdmin())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create team status %d: %s", res.StatusCode, string(data))
	}
	var team TeamResponse
	if err := json.Unmarshal(data, &team); err != nil {
		t.Fatalf("unmarshal team: %v", err)
	}
	return team
}

func (s *testServer) createProject(t *testing.T, teamID, name string) ProjectResponse {
	t.Helper()
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/api/v1/projects", map[string]any{
		"name":    name,
		"team_id": teamID,
	}, s.asAdmin())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project status %d: %s", res.StatusCode, string(data))
	}
	var project ProjectResponse
	if err := json.Unmarshal(data, &project); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	return project
}

func (s *testServer) createTask(t *testing.T, projectID, title string) TaskResponse {
	t.Helper()
	res, data := doJSON(t, s.client, http.MethodPost, s.URL+"/api/v1/projects/"+projectID+"/tasks", map[string]any{
		"title": title,
	}, s.asAdmin())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var task TaskResponse
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	return task
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/teams", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("expected code unauthorized, got %q", envelope.Error.Code)
	}
}

func TestDevLoginAndJWTAuth(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/auth/dev/login", map[string]any{
		"actor_id": srv.Admin.ID.String(),
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", res.StatusCode, string(data))
	}
	var login DevLoginResponse
	if err := json.Unmarshal(data, &login); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if login.Token == "" {
		t.Fatal("expected a token")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/me", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var me struct {
		ActorID string `json:"actor_id"`
		Source  string `json:"source"`
	}
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.ActorID != srv.Admin.ID.String() {
		t.Fatalf("expected actor %s, got %s", srv.Admin.ID, me.ActorID)
	}
	if me.Source != "jwt" {
		t.Fatalf("expected source jwt, got %s", me.Source)
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/apikeys", map[string]any{
		"name":     "ci",
		"actor_id": srv.Admin.ID.String(),
	}, srv.asAdmin())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create key status %d: %s", res.StatusCode, string(data))
	}
	var key APIKeyResponse
	if err := json.Unmarshal(data, &key); err != nil {
		t.Fatalf("unmarshal key: %v", err)
	}
	if key.Key == "" {
		t.Fatal("expected the secret on creation")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/me", nil, map[string]string{
		"X-Api-Key": key.Key,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me via api key status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/api/v1/apikeys/"+key.ID, nil, srv.asAdmin())
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNoContent {
		t.Fatalf("revoke status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/me", nil, map[string]string{
		"X-Api-Key": key.Key,
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after revoke, got %d: %s", res.StatusCode, string(data))
	}
}

func TestTaskWorkflowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	team := srv.createTeam(t, "Platform")
	project := srv.createProject(t, team.ID, "Website")
	task := srv.createTask(t, project.ID, "Build landing page")

	res, data := doJSON(t, client, http.MethodPut, srv.URL+"/api/v1/tasks/"+task.ID+"/status", map[string]any{
		"status": "in_progress",
	}, srv.asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set in_progress status %d: %s", res.StatusCode, string(data))
	}
	var updated TaskResponse
	if err := json.Unmarshal(data, &updated); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if updated.Status != "in_progress" {
		t.Fatalf("expected in_progress, got %s", updated.Status)
	}
	if updated.StartedAt == nil {
		t.Fatal("expected started_at to be stamped")
	}

	// todo -> done skips the workflow and must be rejected as a rule violation.
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/api/v1/tasks/"+task.ID+"/status", map[string]any{
		"status": "todo",
	}, srv.asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("back to todo status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/api/v1/tasks/"+task.ID+"/status", map[string]any{
		"status": "done",
	}, srv.asAdmin())
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for illegal transition, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %q", envelope.Error.Code)
	}
}

func TestSubtaskTreeOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	team := srv.createTeam(t, "Core")
	project := srv.createProject(t, team.ID, "Backend")
	root := srv.createTask(t, project.ID, "Epic")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks/"+root.ID+"/subtasks", map[string]any{
		"title": "Child",
	}, srv.asAdmin())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create subtask status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/tasks/"+root.ID, nil, srv.asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get task status %d: %s", res.StatusCode, string(data))
	}
	var fetched TaskResponse
	if err := json.Unmarshal(data, &fetched); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if len(fetched.Subtasks) != 1 {
		t.Fatalf("expected 1 subtask, got %d", len(fetched.Subtasks))
	}
	if fetched.Subtasks[0].Title != "Child" {
		t.Fatalf("unexpected subtask title %q", fetched.Subtasks[0].Title)
	}
	if fetched.Subtasks[0].ParentID == nil || *fetched.Subtasks[0].ParentID != root.ID {
		t.Fatal("expected subtask to point at its parent")
	}
}

func TestProjectNameConflictIs422(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	team := srv.createTeam(t, "Dup")
	srv.createProject(t, team.ID, "Same")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/projects", map[string]any{
		"name":    "Same",
		"team_id": team.ID,
	}, srv.asAdmin())
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
}

func TestGetMissingTaskIs404(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/tasks/2b1f3c84-5d60-4f5a-9d56-51a013e2a3a4", nil, srv.asAdmin())
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
}

func TestEventsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	team := srv.createTeam(t, "Audit")
	project := srv.createProject(t, team.ID, "Trail")
	srv.createTask(t, project.ID, "Observed")

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/events?entity_kind=task", nil, srv.asAdmin())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(data))
	}
	var page paginatedEvents
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(page.Items) == 0 {
		t.Fatal("expected at least one task event")
	}
	if page.Items[0].Type != "task.created" {
		t.Fatalf("expected task.created first, got %s", page.Items[0].Type)
	}
	if page.Items[0].ActorID != srv.Admin.ID.String() {
		t.Fatalf("expected actor %s, got %s", srv.Admin.ID, page.Items[0].ActorID)
	}
}
