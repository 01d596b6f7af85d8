package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/frontedit/internal/index"
	"github.com/starford/frontedit/internal/notice"
	"github.com/starford/frontedit/internal/session"
	"github.com/starford/frontedit/internal/storage"
	"github.com/starford/frontedit/internal/testutil"
	"github.com/starford/frontedit/internal/validate"
)

var testFiles = map[string]string{
	"content/hello.md": "---\ntitle: Hello\ncount: 2\n---\n# Body\n",
	"data/menu.json":   `{"name":"Main","links":[{"label":"Home","url":"/"}]}`,
}

type testEnvOpts struct {
	token string
	sse   http.Handler
	rules session.Resolver
}

// testEnv sets up a temp project, SQLite DB, session manager and router.
func testEnv(t *testing.T, o testEnvOpts) (http.Handler, *storage.FS) {
	t.Helper()

	root, store := testutil.TestProject(t, testFiles)
	db := testutil.TestDB(t)
	if err := index.Sync(db, store, nil, slog.Default()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	n := notice.New(notice.WithTTL(time.Hour))
	t.Cleanup(n.Close)
	mgr := session.NewManager(store, session.WithNotifier(n), session.WithRules(o.rules))

	svc := NewService(db, mgr, index.Project{Root: root, ContentDir: "content", DataDir: "data"})
	return NewRouter(svc, o.token, o.sse), store
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		r = httptest.NewRequest(method, target, bytes.NewReader(b))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func openSession(t *testing.T, router http.Handler, path string) SessionView {
	t.Helper()
	w := do(t, router, http.MethodPost, "/sessions", map[string]string{"path": path})
	if w.Code != http.StatusCreated {
		t.Fatalf("open status = %d, body = %s", w.Code, w.Body.String())
	}
	var v SessionView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	return v
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) SessionView {
	t.Helper()
	var v SessionView
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, w.Body.String())
	}
	return v
}

func TestListFiles(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})

	w := do(t, router, http.MethodGet, "/files", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp FileListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}

	w = do(t, router, http.MethodGet, "/files?kind=json", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Files) != 1 || resp.Files[0].Path != "data/menu.json" {
		t.Errorf("json files = %+v", resp.Files)
	}
}

func TestSearchFiles(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})

	w := do(t, router, http.MethodGet, "/files?q=Main", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp FileListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Files) != 1 || resp.Files[0].Path != "data/menu.json" {
		t.Errorf("hits = %+v", resp.Files)
	}
}

func TestRecentProjects(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})

	if w := do(t, router, http.MethodPost, "/projects/recent", nil); w.Code != http.StatusOK {
		t.Fatalf("touch status = %d, body = %s", w.Code, w.Body.String())
	}
	w := do(t, router, http.MethodGet, "/projects/recent", nil)
	var resp ProjectListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Projects) != 1 || resp.Projects[0].ContentDir != "content" {
		t.Errorf("projects = %+v", resp.Projects)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})
	v := openSession(t, router, "content/hello.md")
	if len(v.Fields) != 3 || v.Title != "Hello" {
		t.Fatalf("view = %+v", v)
	}
	base := "/sessions/" + v.ID

	w := do(t, router, http.MethodPost, base+"/update", map[string]any{
		"field": map[string]any{"id": "title", "type": "text", "value": "Changed"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decodeView(t, w).Fields[0].Value; got != "Changed" {
		t.Errorf("title = %v", got)
	}

	w = do(t, router, http.MethodPost, base+"/undo", nil)
	if got := decodeView(t, w).Fields[0].Value; got != "Hello" {
		t.Errorf("after undo title = %v", got)
	}
	w = do(t, router, http.MethodPost, base+"/redo", nil)
	if got := decodeView(t, w).Fields[0].Value; got != "Changed" {
		t.Errorf("after redo title = %v", got)
	}
	if w := do(t, router, http.MethodPost, base+"/redo", nil); w.Code != http.StatusConflict {
		t.Errorf("redo past end = %d, want 409", w.Code)
	}

	if w := do(t, router, http.MethodGet, base, nil); w.Code != http.StatusOK {
		t.Errorf("get = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, base, nil); w.Code != http.StatusNoContent {
		t.Errorf("close = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, base, nil); w.Code != http.StatusNotFound {
		t.Errorf("get closed = %d, want 404", w.Code)
	}
}

func TestOpenSession_BadInput(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})

	tests := []struct {
		path string
		want int
	}{
		{"", http.StatusBadRequest},
		{"notes.txt", http.StatusBadRequest},
		{"content/missing.md", http.StatusNotFound},
		{"../escape.md", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := do(t, router, http.MethodPost, "/sessions", map[string]string{"path": tt.path})
		if w.Code != tt.want {
			t.Errorf("open %q = %d, want %d", tt.path, w.Code, tt.want)
		}
	}
}

func TestDeleteProtectedField(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})
	v := openSession(t, router, "content/hello.md")

	w := do(t, router, http.MethodPost, "/sessions/"+v.ID+"/delete", map[string]any{"index": 2})
	if w.Code != http.StatusForbidden {
		t.Fatalf("delete contents = %d, want 403", w.Code)
	}

	w = do(t, router, http.MethodGet, "/notices", nil)
	var list []notice.Notice
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 1 || list[0].Message != "This field cannot be deleted." {
		t.Errorf("notices = %+v", list)
	}
}

func TestDuplicateAndMoveNested(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})
	v := openSession(t, router, "data/menu.json")
	base := "/sessions/" + v.ID

	parent := []map[string]any{{"index": 1}}
	w := do(t, router, http.MethodPost, base+"/duplicate", map[string]any{"parent": parent, "index": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate = %d, body = %s", w.Code, w.Body.String())
	}
	if n := len(decodeView(t, w).Fields[1].Items); n != 2 {
		t.Fatalf("links = %d, want 2", n)
	}

	w = do(t, router, http.MethodPost, base+"/move", map[string]any{"parent": parent, "from": 0, "to": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("move = %d, body = %s", w.Code, w.Body.String())
	}
	items := decodeView(t, w).Fields[1].Items
	if !strings.Contains(items[0].Field.Name, "_copy_") {
		t.Errorf("first item after move = %q", items[0].Field.Name)
	}

	w = do(t, router, http.MethodPost, base+"/move", map[string]any{"parent": parent, "from": 0, "to": 9})
	if w.Code != http.StatusBadRequest {
		t.Errorf("move out of range = %d, want 400", w.Code)
	}
}

func TestSnapshots(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})
	v := openSession(t, router, "content/hello.md")
	base := "/sessions/" + v.ID

	w := do(t, router, http.MethodPost, base+"/snapshots", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("snapshot = %d", w.Code)
	}
	var info SnapshotInfo
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if !strings.HasPrefix(info.Name, "Snapshot 1 (") {
		t.Errorf("name = %q", info.Name)
	}

	do(t, router, http.MethodPost, base+"/update", map[string]any{
		"field": map[string]any{"name": "title", "value": "Changed"},
	})

	w = do(t, router, http.MethodPost, base+"/snapshots/0/restore", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restore = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decodeView(t, w).Fields[0].Value; got != "Hello" {
		t.Errorf("restored title = %v", got)
	}
	if w := do(t, router, http.MethodPost, base+"/snapshots/7/restore", nil); w.Code != http.StatusNotFound {
		t.Errorf("restore missing = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, base+"/snapshots/x/restore", nil); w.Code != http.StatusBadRequest {
		t.Errorf("restore bad index = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodGet, base+"/snapshots", nil)
	var list SnapshotListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Snapshots) != 1 {
		t.Errorf("snapshots = %+v", list.Snapshots)
	}
}

func TestSubmit(t *testing.T) {
	router, store := testEnv(t, testEnvOpts{})
	v := openSession(t, router, "content/hello.md")
	base := "/sessions/" + v.ID

	elements := []map[string]any{
		{"classes": []string{}, "name": "title", "type": "text", "value": "  Posted  "},
		{"classes": []string{"is-number"}, "name": "count", "type": "number", "value": "5"},
		{"classes": []string{}, "name": "contents", "type": "textarea", "value": "New body"},
	}
	w := do(t, router, http.MethodPost, base+"/submit", map[string]any{"elements": elements})
	if w.Code != http.StatusOK {
		t.Fatalf("submit = %d, body = %s", w.Code, w.Body.String())
	}
	got, _ := store.Read("content/hello.md")
	want := "---\ntitle: Posted\ncount: 5\n---\nNew body\n"
	if string(got) != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestSubmit_ValidationErrors(t *testing.T) {
	rules := session.Resolver{{
		Match: "content/**",
		Rules: session.Rules{Validation: &validate.Schema{Properties: map[string]*validate.Property{
			"count": {Type: validate.TypeNumber},
		}}},
	}}
	router, _ := testEnv(t, testEnvOpts{rules: rules})
	v := openSession(t, router, "content/hello.md")

	elements := []map[string]any{
		{"classes": []string{"is-number"}, "name": "count", "type": "number", "value": "many"},
	}
	w := do(t, router, http.MethodPost, "/sessions/"+v.ID+"/submit", map[string]any{"elements": elements})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("submit = %d, want 422", w.Code)
	}
	var resp ValidationErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Errors) != 1 || !strings.HasPrefix(resp.Errors[0], "count must be a number") {
		t.Errorf("errors = %v", resp.Errors)
	}
}

func TestSubmit_Unbalanced(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})
	v := openSession(t, router, "content/hello.md")

	elements := []map[string]any{{"classes": []string{"array-last"}}}
	w := do(t, router, http.MethodPost, "/sessions/"+v.ID+"/submit", map[string]any{"elements": elements})
	if w.Code != http.StatusBadRequest {
		t.Errorf("submit = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{token: "secret123"})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"valid", "Bearer secret123", "", http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "Bearer wrong", "", http.StatusUnauthorized},
		{"query token", "", "?token=secret123", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/files"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{})
	if w := do(t, router, http.MethodGet, "/files", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// Minimal SSE handler stub: writes headers and blocks until context done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{token: "secret", sse: sseStub})

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router, _ := testEnv(t, testEnvOpts{token: "tok", sse: sseStub})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
