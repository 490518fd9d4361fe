package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sqewdb/sqew/internal/clock"
	"github.com/sqewdb/sqew/internal/config"
	"github.com/sqewdb/sqew/internal/engine"
	"github.com/sqewdb/sqew/internal/metrics"
	"github.com/sqewdb/sqew/internal/registry"
	"github.com/sqewdb/sqew/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqew.db")
	st, err := store.Open(path, 5000)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	c := clock.New()
	reg := registry.New(st, c)
	eng := engine.New(st, reg, c, metrics.New(false))
	cfg := &config.Config{RateLimitRPS: 1000, RateLimitBurst: 1000}
	return NewServer(reg, eng, cfg)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
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
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(""), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateAndGetQueue(t *testing.T) {
	s := newTestServer(t)
	router := s.Router("")

	rec := doJSON(t, router, http.MethodPost, "/queues", createQueueRequest{Name: "q1", MaxAttempts: 5, VisibilityMs: 30_000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/queues/q1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var q queueDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.Name != "q1" {
		t.Fatalf("Name = %q, want q1", q.Name)
	}
}

func TestGetMissingQueueReturns404(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s.Router(""), http.MethodGet, "/queues/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestEnqueuePollAckFlow(t *testing.T) {
	s := newTestServer(t)
	router := s.Router("")

	doJSON(t, router, http.MethodPost, "/queues", createQueueRequest{Name: "q1", MaxAttempts: 5, VisibilityMs: 30_000})

	rec := doJSON(t, router, http.MethodPost, "/queues/q1/messages", enqueueRequest{Payload: json.RawMessage(`{"n":1}`)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("enqueue status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var enq enqueueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &enq); err != nil {
		t.Fatalf("unmarshal enqueue: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/queues/q1/poll", pollRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("poll status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var poll pollResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &poll); err != nil {
		t.Fatalf("unmarshal poll: %v", err)
	}
	if len(poll.Messages) != 1 {
		t.Fatalf("len(poll.Messages) = %d, want 1", len(poll.Messages))
	}

	rec = doJSON(t, router, http.MethodPost, "/queues/q1/ack", ackRequest{
		Items: []ackNackItemRequest{{ID: poll.Messages[0].ID, Token: poll.Messages[0].Token}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ack status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ackRes resultsResponse[ackResultDTO]
	if err := json.Unmarshal(rec.Body.Bytes(), &ackRes); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	if ackRes.Results[0].Outcome != "acked" {
		t.Fatalf("outcome = %q, want acked", ackRes.Results[0].Outcome)
	}
}

func TestBearerAPIKeyGateRejectsMissingKey(t *testing.T) {
	s := newTestServer(t)
	router := s.Router("secret")

	rec := doJSON(t, router, http.MethodGet, "/queues", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/queues", nil)
	req.Header.Set("X-API-Key", "secret")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("status with correct key = %d, want 200", rec2.Code)
	}
}
