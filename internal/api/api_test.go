package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mk12/zendown/internal/build"
	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/site"
	"github.com/mk12/zendown/internal/testutil"
)

var files = map[string]string{
	"content/intro.md":         "title: Intro\n---\nSee [install](install#setup).\n",
	"content/guide/install.md": "title: Install\n---\n## Setup\n\nBack to [intro](intro).\n",
	"content/x/dup.md":         "title: X\n---\n",
	"content/y/dup.md":         "title: Y\n---\n",
}

// testEnv sets up a temp project, SQLite index, service, and router for testing.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvWithSSE(t, authToken, nil)
}

func testEnvWithSSE(t *testing.T, authToken string, sseHandler http.Handler) http.Handler {
	t.Helper()
	root := testutil.WriteProject(t, files)
	p, err := project.Open(root, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	svc := site.NewService(p, build.Options{IgnoreErrors: true}, site.WithIndex(testutil.TestDB(t)))
	return NewRouter(svc, authToken, sseHandler)
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListArticles(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/articles")
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d, want 200", w.Code)
	}
	var resp ArticleListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 4 || len(resp.Articles) != 4 {
		t.Errorf("total = %d (%d items), want 4", resp.Total, len(resp.Articles))
	}
}

func TestGetArticle(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/articles/guide/install")
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d, want 200: %s", w.Code, w.Body.String())
	}
	var got ArticleDetail
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Ref != "/guide/install" || got.Title != "Install" {
		t.Errorf("got %q %q", got.Ref, got.Title)
	}
	if len(got.Backlinks) != 1 || got.Backlinks[0].Source != "/intro" {
		t.Errorf("backlinks = %+v", got.Backlinks)
	}

	// Encoded slash.
	if w := get(t, router, "/articles/guide%2Finstall"); w.Code != http.StatusOK {
		t.Errorf("encoded get = %d, want 200", w.Code)
	}
}

func TestGetArticle_Errors(t *testing.T) {
	router := testEnv(t, "")

	tests := []struct {
		target string
		want   int
	}{
		{"/articles/nope", http.StatusNotFound},
		{"/articles/dup", http.StatusNotFound},
		{"/articles/x/dup", http.StatusOK},
		{"/articles/bad//ref", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := get(t, router, tt.target); w.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.target, w.Code, tt.want)
		}
	}
}

func TestRenderArticle(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/render/intro")
	if w.Code != http.StatusOK {
		t.Fatalf("render = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `href="guide/install.html#setup"`) {
		t.Errorf("body = %q", w.Body.String())
	}

	w = get(t, router, "/render/intro?target=page")
	if !strings.Contains(w.Body.String(), `href="#install--setup"`) {
		t.Errorf("page body = %q", w.Body.String())
	}

	if w := get(t, router, "/render/intro?target=pdf"); w.Code != http.StatusBadRequest {
		t.Errorf("unknown target = %d, want 400", w.Code)
	}
}

func TestResolve(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/resolve?from=/intro&url=install%23setup")
	if w.Code != http.StatusOK {
		t.Fatalf("resolve = %d, want 200: %s", w.Code, w.Body.String())
	}
	var ref Reference
	if err := json.NewDecoder(w.Body).Decode(&ref); err != nil {
		t.Fatal(err)
	}
	if ref.Target != "/guide/install#setup" || ref.Section != "Setup" {
		t.Errorf("ref = %+v", ref)
	}

	if w := get(t, router, "/resolve?url=install%23nowhere"); w.Code != http.StatusBadRequest {
		t.Errorf("bad anchor = %d, want 400", w.Code)
	}
	if w := get(t, router, "/resolve?url=dup"); w.Code != http.StatusBadRequest {
		t.Errorf("ambiguous = %d, want 400", w.Code)
	}
	if w := get(t, router, "/resolve"); w.Code != http.StatusBadRequest {
		t.Errorf("missing url = %d, want 400", w.Code)
	}
}

func TestBacklinksEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/backlinks/intro")
	if w.Code != http.StatusOK {
		t.Fatalf("backlinks = %d, want 200", w.Code)
	}
	var resp BacklinksResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Backlinks) != 1 || resp.Backlinks[0].Source != "/guide/install" {
		t.Errorf("backlinks = %+v", resp.Backlinks)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := get(t, router, "/search?q=Back+to&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, want 200", w.Code)
	}
	var resp SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Ref != "/guide/install" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")

	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")

	if w := get(t, router, "/articles"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnv(t, "")

	if w := get(t, router, "/articles"); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, "secret", blockingSSE)

	if w := get(t, router, "/events"); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router := testEnvWithSSE(t, "", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE disabled auth = %d, want 200", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
