package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/hookgate"
	"github.com/xraph/hookgate/api"
	"github.com/xraph/hookgate/endpoint"
	"github.com/xraph/hookgate/id"
	"github.com/xraph/hookgate/observability"
	"github.com/xraph/hookgate/project"
	"github.com/xraph/hookgate/store/memory"
)

const adminToken = "test-admin-token"

type testEnv struct {
	srv *httptest.Server
	gw  *hookgate.Gateway
}

// testServer creates a Handler backed by a memory store and returns the test server.
func testServer(t *testing.T) *testEnv {
	t.Helper()

	reg := prometheus.NewRegistry()
	gw, err := hookgate.New(
		hookgate.WithStore(memory.New()),
		hookgate.WithMetrics(observability.NewMetrics(reg)),
	)
	if err != nil {
		t.Fatal(err)
	}

	h := api.NewHandler(gw, api.HandlerConfig{
		AdminToken: adminToken,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, nil)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, gw: gw}
}

func (e *testEnv) project(t *testing.T, in project.Input) *project.Project {
	t.Helper()
	if in.Name == "" {
		in.Name = "billing"
	}
	p, err := e.gw.Projects().Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (e *testEnv) endpoint(t *testing.T, p *project.Project, in endpoint.Input) *endpoint.Endpoint {
	t.Helper()
	in.ProjectID = p.ID
	if in.Name == "" {
		in.Name = "orders"
	}
	if len(in.Destinations) == 0 {
		in.Destinations = []string{"https://static.example.com/hook"}
	}
	ep, err := e.gw.Endpoints().Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	return ep
}

func do(t *testing.T, method, url string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

// doJSON sends body as JSON, authenticated with apiKey when set.
func doJSON(t *testing.T, method, url, apiKey string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	headers := map[string]string{}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
		headers["Content-Type"] = "application/json"
	}
	if apiKey != "" {
		headers[hookgate.HeaderAPIKey] = apiKey
	}
	return do(t, method, url, r, headers)
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("%s %s: expected %d, got %d: %s",
			resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, b)
	}
}

// --- Projects ---

func TestProjects_AdminToken(t *testing.T) {
	env := testServer(t)

	resp := doJSON(t, "POST", env.srv.URL+"/projects", "", map[string]any{"name": "billing"})
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = do(t, "POST", env.srv.URL+"/projects", strings.NewReader(`{"name":"billing"}`),
		map[string]string{api.HeaderAdminToken: adminToken})
	expectStatus(t, resp, http.StatusCreated)
	var created map[string]any
	decodeBody(t, resp, &created)
	key, _ := created["api_key"].(string)
	if !strings.HasPrefix(key, "hk_") {
		t.Fatalf("api_key = %q", key)
	}
	if created["signing_secret"] == "" {
		t.Fatal("expected signing secret in creation response")
	}

	resp = do(t, "GET", env.srv.URL+"/projects", nil, map[string]string{api.HeaderAdminToken: adminToken})
	expectStatus(t, resp, http.StatusOK)
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 project, got %d", len(list))
	}
	if _, leaked := list[0]["api_key"]; leaked {
		t.Fatal("project listing leaks api key")
	}

	// The new key authenticates management calls.
	resp = doJSON(t, "GET", env.srv.URL+"/endpoints", key, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestManagement_RequiresAPIKey(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"unknown", "hk_nope", http.StatusUnauthorized},
		{"valid", p.APIKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, "GET", env.srv.URL+"/events", tt.key, nil)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}

	if err := env.gw.Projects().SetActive(context.Background(), p.ID, false); err != nil {
		t.Fatal(err)
	}
	resp := doJSON(t, "GET", env.srv.URL+"/events", p.APIKey, nil)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

// --- Endpoints ---

func TestEndpoints_CRUD(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})
	base := env.srv.URL + "/endpoints"

	// Create
	resp := doJSON(t, "POST", base, p.APIKey, map[string]any{
		"name":         "orders",
		"destinations": []string{"https://a.example.com/hook"},
		"auth_method":  "hmac",
	})
	expectStatus(t, resp, http.StatusCreated)
	var created map[string]any
	decodeBody(t, resp, &created)
	epID, _ := created["id"].(string)
	if epID == "" {
		t.Fatal("expected endpoint id")
	}
	if created["auth_secret"] == "" || created["auth_secret"] == nil {
		t.Fatal("expected generated auth secret on creation")
	}
	if created["project_id"] != p.ID.String() {
		t.Fatalf("project_id = %v, want caller project", created["project_id"])
	}

	// Get
	resp = doJSON(t, "GET", base+"/"+epID, p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	var got map[string]any
	decodeBody(t, resp, &got)
	if _, leaked := got["auth_secret"]; leaked {
		t.Fatal("endpoint read leaks auth secret")
	}

	// Update
	resp = doJSON(t, "PUT", base+"/"+epID, p.APIKey, map[string]any{"name": "renamed"})
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &got)
	if got["name"] != "renamed" {
		t.Fatalf("name = %v", got["name"])
	}

	// Disable
	resp = doJSON(t, "PATCH", base+"/"+epID+"/disable", p.APIKey, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	// List
	resp = doJSON(t, "GET", base+"?active=false", p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 inactive endpoint, got %d", len(list))
	}

	// Delete
	resp = doJSON(t, "DELETE", base+"/"+epID, p.APIKey, nil)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = doJSON(t, "GET", base+"/"+epID, p.APIKey, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestEndpoints_ValidationError(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})

	resp := doJSON(t, "POST", env.srv.URL+"/endpoints", p.APIKey, map[string]any{"name": "orders"})
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = doJSON(t, "GET", env.srv.URL+"/endpoints/not-an-id", p.APIKey, nil)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestEndpoints_ForeignProjectHidden(t *testing.T) {
	env := testServer(t)
	owner := env.project(t, project.Input{Name: "owner"})
	other := env.project(t, project.Input{Name: "other"})
	ep := env.endpoint(t, owner, endpoint.Input{})

	for _, path := range []string{"/endpoints/" + ep.ID.String(), "/endpoints/" + ep.ID.String() + "/rules"} {
		resp := doJSON(t, "GET", env.srv.URL+path, other.APIKey, nil)
		expectStatus(t, resp, http.StatusNotFound)
		resp.Body.Close()
	}

	resp := doJSON(t, "DELETE", env.srv.URL+"/endpoints/"+ep.ID.String(), other.APIKey, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	if _, err := env.gw.Endpoints().Get(context.Background(), ep.ID); err != nil {
		t.Fatalf("endpoint removed by foreign project: %v", err)
	}
}

func TestPermissions(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{Permissions: []string{api.PermEventsRead}})

	resp := doJSON(t, "POST", env.srv.URL+"/endpoints", p.APIKey, map[string]any{
		"name":         "orders",
		"destinations": []string{"https://a.example.com/hook"},
	})
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = doJSON(t, "GET", env.srv.URL+"/events", p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = doJSON(t, "GET", env.srv.URL+"/dlq", p.APIKey, nil)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

// --- Ingestion ---

func postIngest(t *testing.T, env *testEnv, epID, body string, headers map[string]string) *http.Response {
	t.Helper()
	return do(t, "POST", env.srv.URL+"/ingest/"+epID, strings.NewReader(body), headers)
}

func TestIngest_AcceptedAndVisible(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})
	ep := env.endpoint(t, p, endpoint.Input{})

	resp := postIngest(t, env, ep.ID.String(), `{"type":"order.created","id":"ORD-1"}`, nil)
	expectStatus(t, resp, http.StatusAccepted)
	var accepted struct {
		EventID string `json:"event_id"`
		Status  string `json:"status"`
	}
	decodeBody(t, resp, &accepted)
	if accepted.EventID == "" || accepted.Status != "pending" {
		t.Fatalf("unexpected ingest response: %+v", accepted)
	}

	resp = doJSON(t, "GET", env.srv.URL+"/events/"+accepted.EventID, p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	var evt map[string]any
	decodeBody(t, resp, &evt)
	if evt["type"] != "order.created" {
		t.Fatalf("type = %v", evt["type"])
	}

	resp = doJSON(t, "GET", env.srv.URL+"/events?status=pending&type=order.created", p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 event, got %d", len(list))
	}

	resp = doJSON(t, "GET", env.srv.URL+"/events/"+accepted.EventID+"/deliveries", p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// Another project cannot see it.
	other := env.project(t, project.Input{Name: "other"})
	resp = doJSON(t, "GET", env.srv.URL+"/events/"+accepted.EventID, other.APIKey, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestIngest_ErrorMapping(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})
	open := env.endpoint(t, p, endpoint.Input{})
	guarded := env.endpoint(t, p, endpoint.Input{Name: "guarded", AuthMethod: endpoint.AuthSharedSecret, AuthSecret: "s3cret"})

	limited := env.project(t, project.Input{Name: "limited", RateLimit: project.RateLimit{Requests: 1, Window: time.Minute}})
	throttled := env.endpoint(t, limited, endpoint.Input{})
	resp := postIngest(t, env, throttled.ID.String(), `{}`, nil)
	expectStatus(t, resp, http.StatusAccepted)
	resp.Body.Close()

	tests := []struct {
		name    string
		epID    string
		body    string
		headers map[string]string
		want    int
	}{
		{"array body", open.ID.String(), `[1,2]`, nil, http.StatusBadRequest},
		{"invalid json", open.ID.String(), `{`, nil, http.StatusBadRequest},
		{"unknown endpoint", id.NewEndpointID().String(), `{}`, nil, http.StatusNotFound},
		{"malformed endpoint id", "nope", `{}`, nil, http.StatusNotFound},
		{"wrong secret", guarded.ID.String(), `{}`, map[string]string{hookgate.HeaderSecret: "wrong"}, http.StatusUnauthorized},
		{"right secret", guarded.ID.String(), `{}`, map[string]string{hookgate.HeaderSecret: "s3cret"}, http.StatusAccepted},
		{"rate limited", throttled.ID.String(), `{}`, nil, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postIngest(t, env, tt.epID, tt.body, tt.headers)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				b, _ := io.ReadAll(resp.Body)
				t.Fatalf("expected %d, got %d: %s", tt.want, resp.StatusCode, b)
			}
		})
	}
}

func TestIngest_BodyTooLarge(t *testing.T) {
	gw, err := hookgate.New(hookgate.WithStore(memory.New()))
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(api.NewHandler(gw, api.HandlerConfig{MaxBodyBytes: 16}, nil))
	defer srv.Close()
	env := &testEnv{srv: srv, gw: gw}
	ep := env.endpoint(t, env.project(t, project.Input{}), endpoint.Input{})

	resp := postIngest(t, env, ep.ID.String(), `{"padding":"`+strings.Repeat("x", 64)+`"}`, nil)
	expectStatus(t, resp, http.StatusRequestEntityTooLarge)
	resp.Body.Close()
}

func TestIngest_DropRule(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})
	ep := env.endpoint(t, p, endpoint.Input{})

	resp := doJSON(t, "POST", env.srv.URL+"/endpoints/"+ep.ID.String()+"/rules", p.APIKey, map[string]any{
		"name":     "drop pings",
		"action":   "drop",
		"priority": 10,
		"conditions": []map[string]any{
			{"field": "type", "operator": "equals", "value": "ping"},
		},
	})
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = postIngest(t, env, ep.ID.String(), `{"type":"ping"}`, nil)
	expectStatus(t, resp, http.StatusOK)
	var out map[string]any
	decodeBody(t, resp, &out)
	if out["dropped"] != true {
		t.Fatalf("expected dropped, got %v", out)
	}

	resp = doJSON(t, "GET", env.srv.URL+"/endpoints/"+ep.ID.String()+"/rules", p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	var rules []map[string]any
	decodeBody(t, resp, &rules)
	if len(rules) != 1 || rules[0]["match_count"] != 1.0 {
		t.Fatalf("expected one rule with one match, got %v", rules)
	}
}

// --- Transformations ---

func TestTransformations_Test(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})
	ep := env.endpoint(t, p, endpoint.Input{})

	resp := doJSON(t, "POST", env.srv.URL+"/endpoints/"+ep.ID.String()+"/transformations", p.APIKey, map[string]any{
		"name":   "wrap id",
		"kind":   "field_mapping",
		"active": true,
		"config": map[string]any{
			"mappings": []map[string]any{{"source": "id", "target": "order.id"}},
		},
		"fixtures": []map[string]any{{
			"name":     "basic",
			"input":    map[string]any{"id": "A1"},
			"expected": map[string]any{"order": map[string]any{"id": "A1"}},
		}},
	})
	expectStatus(t, resp, http.StatusCreated)
	var created map[string]any
	decodeBody(t, resp, &created)
	if created["active"] != true {
		t.Fatalf("expected transformation with passing fixtures to be active: %v", created)
	}

	resp = doJSON(t, "POST", env.srv.URL+"/transformations/"+created["id"].(string)+"/test", p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	var report struct {
		Passed  bool `json:"passed"`
		Results []struct {
			Name   string `json:"name"`
			Passed bool   `json:"passed"`
		} `json:"results"`
	}
	decodeBody(t, resp, &report)
	if !report.Passed || len(report.Results) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	resp = doJSON(t, "GET", env.srv.URL+"/endpoints/"+ep.ID.String()+"/transformations", p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	var list []map[string]any
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 transformation, got %d", len(list))
	}
}

// --- Replay and DLQ ---

func ingestEvent(t *testing.T, env *testEnv, ep *endpoint.Endpoint) string {
	t.Helper()
	res, err := env.gw.Ingest(context.Background(), hookgate.IngestRequest{
		EndpointID: ep.ID,
		Body:       []byte(`{"type":"order.created"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	return res.Event.ID.String()
}

func mustEventID(t *testing.T, s string) id.ID {
	t.Helper()
	evtID, err := id.ParseEventID(s)
	if err != nil {
		t.Fatal(err)
	}
	return evtID
}

func TestReplay_Routes(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})
	ep := env.endpoint(t, p, endpoint.Input{})
	evtID := ingestEvent(t, env, ep)

	resp := doJSON(t, "POST", env.srv.URL+"/events/"+evtID+"/replay", p.APIKey, nil)
	expectStatus(t, resp, http.StatusAccepted)
	var replayed map[string]any
	decodeBody(t, resp, &replayed)
	if replayed["replay_of"] != evtID || replayed["status"] != "pending" {
		t.Fatalf("unexpected replay: %v", replayed)
	}

	resp = doJSON(t, "POST", env.srv.URL+"/events/replay", p.APIKey, map[string]any{
		"event_ids": []string{evtID},
	})
	expectStatus(t, resp, http.StatusAccepted)
	var bulk struct {
		Replayed int `json:"replayed"`
	}
	decodeBody(t, resp, &bulk)
	if bulk.Replayed != 1 {
		t.Fatalf("replayed = %d, want 1", bulk.Replayed)
	}

	// Replaying another project's event is hidden.
	other := env.project(t, project.Input{Name: "other"})
	resp = doJSON(t, "POST", env.srv.URL+"/events/"+evtID+"/replay", other.APIKey, nil)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestDLQ_ListAndReplay(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})
	ep := env.endpoint(t, p, endpoint.Input{})
	evtID := ingestEvent(t, env, ep)

	evt, err := env.gw.Store().GetEvent(context.Background(), mustEventID(t, evtID))
	if err != nil {
		t.Fatal(err)
	}
	env.gw.DLQ().Escalate(context.Background(), evt, errors.New("destination returned 500"), 5)

	resp := doJSON(t, "GET", env.srv.URL+"/dlq?pending=true", p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	var entries []map[string]any
	decodeBody(t, resp, &entries)
	if len(entries) != 1 {
		t.Fatalf("expected 1 dlq entry, got %d", len(entries))
	}
	dlqID := entries[0]["id"].(string)

	resp = doJSON(t, "POST", env.srv.URL+"/dlq/"+dlqID+"/replay", p.APIKey, nil)
	expectStatus(t, resp, http.StatusAccepted)
	var replayed map[string]any
	decodeBody(t, resp, &replayed)
	if replayed["replay_of"] != evtID {
		t.Fatalf("replay_of = %v, want %s", replayed["replay_of"], evtID)
	}

	resp = doJSON(t, "GET", env.srv.URL+"/dlq?pending=true", p.APIKey, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeBody(t, resp, &entries)
	if len(entries) != 0 {
		t.Fatalf("expected no pending entries after replay, got %d", len(entries))
	}
}

// --- Stats and metrics ---

func TestStatsAndMetrics(t *testing.T) {
	env := testServer(t)
	p := env.project(t, project.Input{})
	ep := env.endpoint(t, p, endpoint.Input{})
	ingestEvent(t, env, ep)

	resp := do(t, "GET", env.srv.URL+"/stats", nil, map[string]string{api.HeaderAdminToken: adminToken})
	expectStatus(t, resp, http.StatusOK)
	var stats struct {
		Events  map[string]int64 `json:"events"`
		DLQSize int64            `json:"dlq_size"`
	}
	decodeBody(t, resp, &stats)
	if stats.Events["pending"] != 1 {
		t.Fatalf("pending = %d, want 1", stats.Events["pending"])
	}

	resp = do(t, "GET", env.srv.URL+"/metrics", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "hookgate_") {
		t.Fatal("expected hookgate metrics in exposition")
	}
}
