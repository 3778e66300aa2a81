package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/apiliability/site/internal/config"
	"github.com/apiliability/site/internal/layout"
	"github.com/apiliability/site/internal/notify"
	"github.com/apiliability/site/internal/paginate"
	"github.com/apiliability/site/internal/proposal"
	"github.com/apiliability/site/internal/source"
	"github.com/apiliability/site/internal/store"
)

const adminPassword = "correct horse"

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Submit(ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) Counts() notify.Counts {
	n.mu.Lock()
	defer n.mu.Unlock()
	return notify.Counts{Queued: len(n.events)}
}

type testEnv struct {
	srv      *Server
	store    *store.Store
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}

	surface := layout.Instrument(layout.BackendEstimate, layout.NewEstimator(), nil)
	doc := &source.Document{
		Title: "Human-Mapped Liability",
		Text:  "# Human-Mapped Liability\n\nA **short** proposal.\n\n1. First\n   a. Sub",
	}
	prop, err := proposal.New(doc, paginate.New(surface), 0, log)
	if err != nil {
		t.Fatalf("proposal: %v", err)
	}

	cfg := config.Config{AdminPassword: adminPassword, MaxBodyBytes: 4096}
	n := &recordingNotifier{}
	srv := NewServer(Deps{Store: st, Proposal: prop, Notifier: n, Layout: surface}, log, cfg)
	return &testEnv{srv: srv, store: st, notifier: n}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode response: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec, body := e.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", rec.Code, body)
	}
}

func TestSubscribe(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
	}{
		{"valid", `{"email":"Reader@Example.org"}`, http.StatusOK, "Successfully subscribed"},
		{"duplicate is fine", `{"email":"reader@example.org"}`, http.StatusOK, "Successfully subscribed"},
		{"missing", `{}`, http.StatusBadRequest, "Email is required"},
		{"malformed", `{"email":"not-an-email"}`, http.StatusBadRequest, "Invalid email format"},
		{"too long", `{"email":"` + strings.Repeat("a", 250) + `@example.org"}`, http.StatusBadRequest, "Email must be at most 255 characters"},
		{"wrong type", `{"email":42}`, http.StatusBadRequest, "Invalid request body"},
		{"empty body", ``, http.StatusBadRequest, "Request body is required"},
	}
	for _, tt := range tests {
		rec, body := e.do(t, http.MethodPost, "/api/subscribe", tt.body, "")
		if rec.Code != tt.wantCode {
			t.Errorf("%s: status %d, want %d (%v)", tt.name, rec.Code, tt.wantCode, body)
			continue
		}
		msg := body["message"]
		if rec.Code != http.StatusOK {
			msg = body["error"]
		}
		if msg != tt.wantMsg {
			t.Errorf("%s: message %q, want %q", tt.name, msg, tt.wantMsg)
		}
	}

	n, err := e.store.CountSubscribers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
}

func TestSubscribe_BodyTooLarge(t *testing.T) {
	e := newTestEnv(t)
	big := `{"email":"` + strings.Repeat("a", 5000) + `@example.org"}`
	rec, _ := e.do(t, http.MethodPost, "/api/subscribe", big, "")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestContact(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodPost, "/api/contact", `{"email":"a@b.co","body":"   short   "}`, "")
	if rec.Code != http.StatusBadRequest || body["error"] != "Message must be at least 10 characters" {
		t.Errorf("short body: %d %v", rec.Code, body)
	}

	rec, body = e.do(t, http.MethodPost, "/api/contact", `{"email":"bad","body":""}`, "")
	if rec.Code != http.StatusBadRequest || body["error"] != "Invalid email format" {
		t.Errorf("email should be reported first: %d %v", rec.Code, body)
	}

	rec, body = e.do(t, http.MethodPost, "/api/contact", `{"email":"a@b.co","body":"I would like to volunteer."}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("valid contact: %d %v", rec.Code, body)
	}
	ref, _ := body["reference"].(string)
	if ref == "" {
		t.Fatalf("expected a reference, got %v", body)
	}
	if len(e.notifier.events) != 1 || e.notifier.events[0].Reference != ref {
		t.Errorf("expected one notification for %s, got %+v", ref, e.notifier.events)
	}
}

func TestContact_NotifierFailureDoesNotFailRequest(t *testing.T) {
	e := newTestEnv(t)
	e.notifier.err = notify.ErrQueueFull
	rec, body := e.do(t, http.MethodPost, "/api/contact", `{"email":"a@b.co","body":"Ten chars or more."}`, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 despite notifier error, got %d %v", rec.Code, body)
	}
}

func TestAdminAuth(t *testing.T) {
	e := newTestEnv(t)
	for _, token := range []string{"", "wrong"} {
		rec, body := e.do(t, http.MethodGet, "/api/admin/scenarios", "", token)
		if rec.Code != http.StatusUnauthorized || body["error"] != "Unauthorized" {
			t.Errorf("token %q: got %d %v", token, rec.Code, body)
		}
	}
	rec, _ := e.do(t, http.MethodGet, "/api/admin/scenarios", "", adminPassword)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with the right password, got %d", rec.Code)
	}
}

func TestAdminAuth_EmptyPasswordRejectsAll(t *testing.T) {
	h := AuthMiddleware("", slog.New(slog.NewTextHandler(io.Discard, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with no admin password configured, got %d", rec.Code)
	}
}

const scenarioJSON = `{"title":"Automated Hiring","description":"A model rejects applicants.","today":"Nobody is **answerable**.","breakdown":"Vendors blame employers.","solution":"A named person signs off.","slug":"hiring"}`

func TestAdminScenarios(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodPost, "/api/admin/scenarios", `{"title":"Only a title"}`, adminPassword)
	if rec.Code != http.StatusBadRequest || body["error"] != "All fields are required" {
		t.Errorf("incomplete create: %d %v", rec.Code, body)
	}

	rec, body = e.do(t, http.MethodPost, "/api/admin/scenarios", scenarioJSON, adminPassword)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %v", rec.Code, body)
	}
	rec, _ = e.do(t, http.MethodPost, "/api/admin/scenarios", scenarioJSON, adminPassword)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create: expected 409, got %d", rec.Code)
	}

	updated := strings.Replace(scenarioJSON, "Automated Hiring", "Automated Hiring, Revised", 1)
	rec, _ = e.do(t, http.MethodPut, "/api/admin/scenarios", updated, adminPassword)
	if rec.Code != http.StatusOK {
		t.Errorf("update: expected 200, got %d", rec.Code)
	}
	missing := strings.Replace(scenarioJSON, `"slug":"hiring"`, `"slug":"nope"`, 1)
	rec, _ = e.do(t, http.MethodPut, "/api/admin/scenarios", missing, adminPassword)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing: expected 404, got %d", rec.Code)
	}

	rec, body = e.do(t, http.MethodGet, "/api/scenarios/hiring", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("public get: %d %v", rec.Code, body)
	}
	if body["title"] != "Automated Hiring, Revised" {
		t.Errorf("update not visible: %v", body["title"])
	}
	today, _ := body["today"].(map[string]any)
	if html, _ := today["html"].(string); !strings.Contains(html, "<strong>answerable</strong>") {
		t.Errorf("expected rendered section html, got %v", today)
	}

	rec, body = e.do(t, http.MethodDelete, "/api/admin/scenarios", "", adminPassword)
	if rec.Code != http.StatusBadRequest || body["error"] != "Slug is required" {
		t.Errorf("delete without slug: %d %v", rec.Code, body)
	}
	rec, _ = e.do(t, http.MethodDelete, "/api/admin/scenarios?slug=hiring", "", adminPassword)
	if rec.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", rec.Code)
	}
	rec, _ = e.do(t, http.MethodGet, "/api/scenarios/hiring", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestAdminNews(t *testing.T) {
	e := newTestEnv(t)

	bad := []struct {
		body string
		want string
	}{
		{`{"title":"x","summary":"y"}`, "Date is required"},
		{`{"date":"03/01/2025","title":"x","summary":"y"}`, "Date must be YYYY-MM-DD"},
		{`{"date":"2025-03-01","title":"x","summary":"y","type":"rumor"}`, "Type must be update, event or press"},
		{`{"date":"2025-03-01","title":"x","summary":"y","url":"ftp://host/file"}`, "URL must be an http or https address"},
	}
	for _, tt := range bad {
		rec, body := e.do(t, http.MethodPost, "/api/admin/news", tt.body, adminPassword)
		if rec.Code != http.StatusBadRequest || body["error"] != tt.want {
			t.Errorf("%s: got %d %v, want %q", tt.body, rec.Code, body, tt.want)
		}
	}

	rec, body := e.do(t, http.MethodPost, "/api/admin/news", `{"date":"2025-03-01","title":"Launch","summary":"We launched."}`, adminPassword)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create news: %d %v", rec.Code, body)
	}
	item, _ := body["news"].(map[string]any)
	if item["type"] != "update" || item["date"] != "2025-03-01" {
		t.Errorf("unexpected created item %v", item)
	}

	rec, body = e.do(t, http.MethodGet, "/api/news", "", "")
	list, _ := body["news"].([]any)
	if rec.Code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list news: %d %v", rec.Code, body)
	}

	id := int64(item["id"].(float64))
	path := "/api/admin/news/" + jsonNumber(id)
	rec, _ = e.do(t, http.MethodDelete, path, "", adminPassword)
	if rec.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", rec.Code)
	}
	rec, _ = e.do(t, http.MethodDelete, path, "", adminPassword)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete twice: expected 404, got %d", rec.Code)
	}
	rec, _ = e.do(t, http.MethodDelete, "/api/admin/news/abc", "", adminPassword)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delete bad id: expected 400, got %d", rec.Code)
	}
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestProposalEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodGet, "/api/proposal", "", "")
	if rec.Code != http.StatusOK || body["blocks"] != float64(3) {
		t.Fatalf("proposal: %d %v", rec.Code, body)
	}
	if m, _ := body["markup"].(string); !strings.Contains(m, "<strong>short</strong>") {
		t.Errorf("unexpected markup %q", m)
	}

	rec, body = e.do(t, http.MethodGet, "/api/proposal/pages", "", "")
	if rec.Code != http.StatusOK || body["total"] != float64(1) || body["width"] != float64(612) {
		t.Errorf("pages: %d %v", rec.Code, body)
	}

	rec, body = e.do(t, http.MethodGet, "/api/proposal/pages/9?width=612", "", "")
	if rec.Code != http.StatusOK || body["number"] != float64(1) || body["has_next"] != false {
		t.Errorf("clamped page: %d %v", rec.Code, body)
	}
	rec, body = e.do(t, http.MethodGet, "/api/proposal/pages/abc", "", "")
	if rec.Code != http.StatusOK || body["number"] != float64(1) {
		t.Errorf("non-numeric page: %d %v", rec.Code, body)
	}

	rec, _ = e.do(t, http.MethodGet, "/api/proposal/pages?width=wide", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric width: expected 400, got %d", rec.Code)
	}
	rec, _ = e.do(t, http.MethodGet, "/api/proposal/pages?width=10", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("tiny width: expected 400, got %d", rec.Code)
	}
}

func TestProposalExport(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/proposal/export.docx", nil)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != docxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".docx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	doc, err := (&source.DOCXLoader{}).Load(bytes.NewReader(rec.Body.Bytes()), "export.docx")
	if err != nil {
		t.Fatalf("exported file does not load: %v", err)
	}
	if !strings.Contains(doc.Text, "# Human-Mapped Liability") {
		t.Errorf("unexpected exported text %q", doc.Text)
	}
}

func TestLayoutStats(t *testing.T) {
	e := newTestEnv(t)
	if rec, _ := e.do(t, http.MethodGet, "/api/proposal/pages", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("pages: %d", rec.Code)
	}
	rec, body := e.do(t, http.MethodGet, "/api/stats/layout", "", "")
	if rec.Code != http.StatusOK || body["backend"] != "estimate" {
		t.Fatalf("stats: %d %v", rec.Code, body)
	}
	stats, _ := body["stats"].(map[string]any)
	if stats["count"] != float64(3) {
		t.Errorf("expected 3 measurements, got %v", stats["count"])
	}
	if _, ok := body["notify"]; !ok {
		t.Error("expected notify counts")
	}
}

func TestNewsFromRecord(t *testing.T) {
	item, err := NewsFromRecord(map[string]string{
		"date":    "2025-03-01",
		"title":   "  Launch  ",
		"summary": "We launched.",
		"type":    "press",
		"url":     "https://example.com/launch",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Title != "Launch" || item.Type != store.NewsPress || item.Date.Format(dateLayout) != "2025-03-01" {
		t.Errorf("unexpected item %+v", item)
	}

	tests := []struct {
		rec  map[string]string
		want string
	}{
		{map[string]string{"title": "t", "summary": "s"}, "Date is required"},
		{map[string]string{"date": "03/01/2025", "title": "t", "summary": "s"}, "Date must be YYYY-MM-DD"},
		{map[string]string{"date": "2025-03-01", "summary": "s"}, "Title is required"},
		{map[string]string{"date": "2025-03-01", "title": "t", "summary": "s", "type": "blog"}, "Type must be update, event or press"},
		{map[string]string{"date": "2025-03-01", "title": "t", "summary": "s", "url": "ftp://x"}, "URL must be an http or https address"},
	}
	for _, tt := range tests {
		if _, err := NewsFromRecord(tt.rec); err == nil || err.Error() != tt.want {
			t.Errorf("%v: got %v, want %q", tt.rec, err, tt.want)
		}
	}
}
