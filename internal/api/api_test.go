package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/theoria/internal/client"
	"github.com/starford/theoria/internal/index"
	"github.com/starford/theoria/internal/sse"
	"github.com/starford/theoria/internal/testutil"
	"github.com/starford/theoria/internal/theory"
	"github.com/starford/theoria/internal/theoryservice"
)

// testEnv builds a synced sample vault and the router over it. An empty
// token means auth is disabled.
func testEnv(t *testing.T, token string) (http.Handler, *testutil.Backend) {
	t.Helper()
	b := testutil.NewBackend(t, testutil.SampleVault, testutil.SampleIgnore)
	svc := theoryservice.NewService(b.Store, b.Catalog, b.Renderer, b.DB)
	return NewRouter(svc, token != "", token, nil, b.Dir), b
}

func do(t *testing.T, h http.Handler, method, target string, body []byte, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStructureEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/theory/structure", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var s theory.Structure
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := strings.Join(s.Keys(), ","); got != "intro,supervised,unsupervised" {
		t.Errorf("topics = %s", got)
	}
	sup := s.Topic("supervised")
	if len(sup.Files) != 1 || sup.Files[0].Path != "supervised/01-linear-regression.md" {
		t.Errorf("supervised files = %+v", sup.Files)
	}
	if _, ok := sup.Subcategories["trees"]; !ok {
		t.Error("nested category missing")
	}
	if err := s.Validate(); err != nil {
		t.Errorf("served structure invalid: %v", err)
	}
}

func TestContentEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	for _, target := range []string{
		"/theory/content/supervised/01-linear-regression",
		"/theory/content/supervised/01-linear-regression.md",
		"/theory/content/supervised%2F01-linear-regression",
	} {
		w := do(t, router, http.MethodGet, target, nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", target, w.Code, w.Body.String())
		}
		var c ContentResponse
		_ = json.Unmarshal(w.Body.Bytes(), &c)
		if c.Title != "Linear Regression" {
			t.Errorf("%s: title = %q", target, c.Title)
		}
	}
}

func TestContentEndpoint_LiteralPercent(t *testing.T) {
	b := testutil.NewBackend(t, map[string]string{
		"intro/a%41.md": "# Literal Percent\n",
		"intro/ab.md":   "# Plain\n",
	}, nil)
	svc := theoryservice.NewService(b.Store, b.Catalog, b.Renderer, b.DB)
	srv := httptest.NewServer(NewRouter(svc, false, "", nil, b.Dir))
	defer srv.Close()

	c := client.New(client.Session{BaseURL: srv.URL}, client.WithHTTPClient(srv.Client()))
	got, err := c.Content(context.Background(), "intro/a%41")
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if got.Title != "Literal Percent" {
		t.Errorf("title = %q", got.Title)
	}

	w := do(t, srv.Config.Handler, http.MethodGet, "/theory/content/intro%2Fa%2541", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("encoded slash: status = %d, body = %s", w.Code, w.Body.String())
	}
	var c2 ContentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &c2)
	if c2.Title != "Literal Percent" {
		t.Errorf("encoded slash: title = %q", c2.Title)
	}
}

func TestContentEndpoint_NotFound(t *testing.T) {
	router, _ := testEnv(t, "")
	for _, target := range []string{
		"/theory/content/nonexistent/00-missing",
		"/theory/content/unsupervised/drafts/wip",
		"/theory/content/README",
	} {
		w := do(t, router, http.MethodGet, target, nil, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", target, w.Code)
		}
	}

	w := do(t, router, http.MethodGet, "/theory/content/", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty path status = %d, want 400", w.Code)
	}
}

func TestTheoryEndpoints_PublicWithAuthEnabled(t *testing.T) {
	router, _ := testEnv(t, "s3cret")
	for _, target := range []string{"/theory/structure", "/theory/content/intro/01-what-is-machine-learning"} {
		if w := do(t, router, http.MethodGet, target, nil, nil); w.Code != http.StatusOK {
			t.Errorf("%s without token: status = %d", target, w.Code)
		}
		hdr := map[string]string{"Authorization": "Bearer s3cret"}
		if w := do(t, router, http.MethodGet, target, nil, hdr); w.Code != http.StatusOK {
			t.Errorf("%s with token: status = %d", target, w.Code)
		}
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/api/search?q=Clustering", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) == 0 || resp.Results[0].Path != "unsupervised/01-clustering.md" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = do(t, router, http.MethodGet, "/api/search?q=zzzznotfound", nil, nil)
	if !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("empty search should return an empty list, got %s", w.Body.String())
	}

	if w := do(t, router, http.MethodGet, "/api/search", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q: status = %d, want 400", w.Code)
	}
}

func TestRecordViewAndStats(t *testing.T) {
	router, _ := testEnv(t, "s3cret")
	auth := map[string]string{"Authorization": "Bearer s3cret"}

	body, _ := json.Marshal(ViewRequest{
		ContentID:    "supervised/01-linear-regression",
		ContentType:  index.ContentTypeTheory,
		ContentTitle: "Linear Regression",
	})
	for i := 0; i < 2; i++ {
		w := do(t, router, http.MethodPost, "/api/content/view", body, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("record status = %d, body = %s", w.Code, w.Body.String())
		}
	}

	w := do(t, router, http.MethodGet, "/api/admin/stats", nil, auth)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var st StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.TotalContent != 4 || st.WeeklyViews != 2 || st.AverageViews != 0.5 {
		t.Errorf("stats = %+v", st)
	}
	if len(st.TopContent) != 1 || st.TopContent[0].Views != 2 {
		t.Errorf("top content = %+v", st.TopContent)
	}
}

func TestRecordView_BadRequest(t *testing.T) {
	router, _ := testEnv(t, "")
	for name, body := range map[string]string{
		"not json":      `{`,
		"unknown field": `{"content_id":"a","content_type":"theory","content_title":"A","extra":1}`,
		"bad type":      `{"content_id":"a","content_type":"video","content_title":"A"}`,
		"missing title": `{"content_id":"a","content_type":"theory"}`,
	} {
		w := do(t, router, http.MethodPost, "/api/content/view", []byte(body), nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, w.Code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	router, _ := testEnv(t, "s3cret")
	tests := []struct {
		name string
		hdr  map[string]string
		want int
	}{
		{"valid", map[string]string{"Authorization": "Bearer s3cret"}, http.StatusOK},
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"basic", map[string]string{"Authorization": "Basic s3cret"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/api/admin/stats", nil, tt.hdr)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/api/admin/stats", nil, nil); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAttachments(t *testing.T) {
	router, b := testEnv(t, "")
	dir := filepath.Join(b.Dir, attachDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plot.png"), []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodGet, "/theory/attachments/plot.png", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}

	for target, want := range map[string]int{
		"/theory/attachments/missing.png":     http.StatusNotFound,
		"/theory/attachments/notes.txt":       http.StatusBadRequest,
		"/theory/attachments/..%2Fsecret.png": http.StatusBadRequest,
		"/theory/attachments/.hidden.png":     http.StatusBadRequest,
	} {
		if w := do(t, router, http.MethodGet, target, nil, nil); w.Code != want {
			t.Errorf("%s: status = %d, want %d", target, w.Code, want)
		}
	}
}

func TestEventsEndpoint(t *testing.T) {
	b := testutil.NewBackend(t, testutil.SampleVault, nil)
	svc := theoryservice.NewService(b.Store, b.Catalog, b.Renderer, b.DB)
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	router := NewRouter(svc, false, "", broker, b.Dir)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for broker.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if broker.ClientCount() != 1 {
		t.Fatal("events handler did not subscribe")
	}
	cancel()
	<-done
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestClientRoundTrip(t *testing.T) {
	router, _ := testEnv(t, "s3cret")
	srv := httptest.NewServer(router)
	defer srv.Close()

	c := client.New(client.Session{BaseURL: srv.URL, Token: "s3cret"}, client.WithHTTPClient(srv.Client()))
	ctx := context.Background()

	s, err := c.Structure(ctx)
	if err != nil {
		t.Fatalf("Structure: %v", err)
	}
	if s.Topic("unsupervised") == nil {
		t.Fatal("unsupervised topic missing")
	}

	item := s.Topic("unsupervised").Files[0]
	got, err := c.Content(ctx, theory.StripExt(item.Path))
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if got.Title != "Clustering Algorithms" {
		t.Errorf("title = %q", got.Title)
	}
}
