package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"routeopt/internal/config"
	"routeopt/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Port:     "8080",
		Auth:     config.AuthConfig{Mode: "dev"},
		Solver:   config.SolverConfig{Default: "exact", TimeBudgetMs: 2000},
		Webhooks: config.WebhookConfig{MaxAttempts: 3},
	}
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func sampleSolveBody() []byte {
	return []byte(`{
		"vehicles": [{"id": "v1", "start_index": 0}, {"id": "v2", "start_index": 0}],
		"jobs": [
			{"id": "j1", "location_index": 1, "delivery": 1, "service": 300},
			{"id": "j2", "location_index": 2, "delivery": 1, "service": 600},
			{"id": "j3", "location_index": 3, "delivery": 1, "service": 450}
		],
		"matrix": [
			[0, 600, 900, 1200],
			[600, 0, 300, 800],
			[900, 300, 0, 400],
			[1200, 800, 400, 0]
		]
	}`)
}

func postSolve(t *testing.T, s *Server, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.SolveHandler(rr, req)
	return rr
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestSolveEndToEnd(t *testing.T) {
	s := newTestServer(t)
	rr := postSolve(t, s, sampleSolveBody())
	if rr.Code != 200 {
		t.Fatalf("solve: got %d, body %s", rr.Code, rr.Body.String())
	}
	var resp model.SolveResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalDeliveryDuration != 2650 {
		t.Fatalf("total: got %d, want 2650", resp.TotalDeliveryDuration)
	}
	v1 := resp.Routes["v1"]
	if strings.Join(v1.Jobs, ",") != "j1,j2,j3" {
		t.Fatalf("v1 jobs: got %v", v1.Jobs)
	}
	if v1.DeliveryDuration != 2650 {
		t.Fatalf("v1 duration: got %d", v1.DeliveryDuration)
	}
	v2 := resp.Routes["v2"]
	if v2.Jobs == nil || len(v2.Jobs) != 0 {
		t.Fatalf("v2 jobs should be an empty list, got %v", v2.Jobs)
	}

	// record was persisted and is retrievable
	id := rr.Header().Get("X-Solve-Id")
	if id == "" {
		t.Fatal("missing X-Solve-Id header")
	}
	rr = httptest.NewRecorder()
	s.SolveByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solves/"+id, nil))
	if rr.Code != 200 {
		t.Fatalf("get solve: got %d", rr.Code)
	}
	var rec model.SolveRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Status != "ok" || rec.Total != 2650 || rec.Solver != "exact" {
		t.Fatalf("bad record: %+v", rec)
	}
}

func TestSolveDeterministicResponses(t *testing.T) {
	s := newTestServer(t)
	first := postSolve(t, s, sampleSolveBody())
	second := postSolve(t, s, sampleSolveBody())
	if first.Code != 200 || second.Code != 200 {
		t.Fatalf("codes: %d, %d", first.Code, second.Code)
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("responses differ:\n%s\n%s", first.Body.String(), second.Body.String())
	}
}

func TestSolveGreedyBackend(t *testing.T) {
	s := newTestServer(t)
	var req model.SolveRequest
	if err := json.Unmarshal(sampleSolveBody(), &req); err != nil {
		t.Fatal(err)
	}
	req.Solver = "greedy"
	b, _ := json.Marshal(req)
	rr := postSolve(t, s, b)
	if rr.Code != 200 {
		t.Fatalf("greedy solve: got %d, body %s", rr.Code, rr.Body.String())
	}
	var resp model.SolveResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.TotalDeliveryDuration < 2650 {
		t.Fatalf("greedy total %d below optimum", resp.TotalDeliveryDuration)
	}
}

func TestSolveRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"non-square matrix", `{"vehicles":[{"id":"v1"}],"jobs":[],"matrix":[[0,1],[1]]}`},
		{"negative entry", `{"vehicles":[{"id":"v1"}],"jobs":[],"matrix":[[0,-1],[1,0]]}`},
		{"empty matrix", `{"vehicles":[{"id":"v1"}],"jobs":[],"matrix":[]}`},
		{"duplicate job ids", `{"vehicles":[{"id":"v1"}],"jobs":[{"id":"j1","location_index":1},{"id":"j1","location_index":1}],"matrix":[[0,1],[1,0]]}`},
		{"unknown solver", `{"vehicles":[{"id":"v1"}],"jobs":[],"matrix":[[0]],"solver":"annealing"}`},
	}
	for _, tc := range cases {
		rr := postSolve(t, s, []byte(tc.body))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d, want 400", tc.name, rr.Code)
		}
	}
}

func TestSolveOutOfRangeIndex(t *testing.T) {
	s := newTestServer(t)
	body := `{"vehicles":[{"id":"v1","start_index":0}],"jobs":[{"id":"j1","location_index":9}],"matrix":[[0,1],[1,0]]}`
	rr := postSolve(t, s, []byte(body))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
	var pb Problem
	_ = json.Unmarshal(rr.Body.Bytes(), &pb)
	if !strings.Contains(pb.Detail, "j1") {
		t.Fatalf("detail should name the job: %s", pb.Detail)
	}
}

func TestSolveInfeasible(t *testing.T) {
	s := newTestServer(t)
	body := `{"vehicles":[{"id":"v1","start_index":0,"capacity":0.5}],"jobs":[{"id":"j1","location_index":1,"delivery":2}],"matrix":[[0,1],[1,0]]}`
	rr := postSolve(t, s, []byte(body))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", rr.Code)
	}
}

func TestSolveNoVehicles(t *testing.T) {
	s := newTestServer(t)
	body := `{"vehicles":[],"jobs":[{"id":"j1","location_index":1}],"matrix":[[0,1],[1,0]]}`
	rr := postSolve(t, s, []byte(body))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", rr.Code)
	}
}

func TestSolversList(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.SolversHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solvers", nil))
	if rr.Code != 200 {
		t.Fatalf("got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "exact") || !strings.Contains(body, "greedy") {
		t.Fatalf("backends missing from %s", body)
	}
}

func TestSolvesListAndStats(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		if rr := postSolve(t, s, sampleSolveBody()); rr.Code != 200 {
			t.Fatalf("solve %d: %d", i, rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	s.SolvesIndexHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solves?limit=2", nil))
	if rr.Code != 200 {
		t.Fatalf("list: %d", rr.Code)
	}
	var page struct {
		Items      []model.SolveRecord `json:"items"`
		NextCursor string              `json:"nextCursor"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("page: %d items, cursor %q", len(page.Items), page.NextCursor)
	}

	rr = httptest.NewRecorder()
	s.SolveStatsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/solve-stats", nil))
	if rr.Code != 200 {
		t.Fatalf("stats: %d", rr.Code)
	}
	var stats map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &stats)
	if len(stats) == 0 {
		t.Fatal("empty stats")
	}
}

func TestSolveNotFound(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.SolveByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solves/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestSubscriptionsLifecycle(t *testing.T) {
	s := newTestServer(t)

	// non-admin is rejected
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(`{"url":"http://example.com/hook","events":["solve.completed"]}`))
	req.Header.Set("X-Role", "viewer")
	s.SubscriptionsHandler(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("viewer create: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/subscriptions", strings.NewReader(`{"url":"http://example.com/hook","events":["solve.completed"],"secret":"s3cr3t"}`))
	s.SubscriptionsHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", rr.Code, rr.Body.String())
	}
	var sub model.Subscription
	if err := json.Unmarshal(rr.Body.Bytes(), &sub); err != nil {
		t.Fatal(err)
	}
	if sub.ID == "" {
		t.Fatal("missing subscription id")
	}
	if sub.Secret != "" {
		t.Fatal("secret must not echo back")
	}

	// a solve now enqueues a delivery
	if rr := postSolve(t, s, sampleSolveBody()); rr.Code != 200 {
		t.Fatalf("solve: %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.WebhookDeliveriesHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/webhook-deliveries?status=pending", nil))
	if rr.Code != 200 {
		t.Fatalf("deliveries: %d", rr.Code)
	}
	var page struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) == 0 {
		t.Fatal("expected a pending delivery after solve")
	}

	rr = httptest.NewRecorder()
	s.SubscriptionByIDHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.SubscriptionByIDHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("double delete: got %d", rr.Code)
	}
}

func TestSolveStreamHeartbeat(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/solves/stream", nil).WithContext(ctx)
	s.SolveByIDHandler(rr, req)
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %s", ct)
	}
	if !strings.Contains(rr.Body.String(), "heartbeat") {
		t.Fatalf("no heartbeat in %s", rr.Body.String())
	}
}

func TestDebugInfo(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.DebugInfoHandler(rr, httptest.NewRequest(http.MethodGet, "/debug/info", nil))
	if rr.Code != 200 {
		t.Fatalf("got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "goVersion") {
		t.Fatalf("missing build info: %s", rr.Body.String())
	}
}
