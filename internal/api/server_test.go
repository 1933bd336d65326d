package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quanta/internal/scheduler"
)

// newTestRouter builds the same route table Start wires up, without
// binding a real listener, so handlers can be exercised with httptest.
func newTestRouter(s *Server) *mux.Router {
	router := mux.NewRouter()
	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/clients", s.handleClients).Methods(http.MethodGet, http.MethodPost)
	v1.HandleFunc("/clients/{id}", s.handleClient).Methods(http.MethodGet)
	v1.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	v1.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return router
}

func TestHandleHealthz(t *testing.T) {
	s := New(scheduler.New(), nil)
	router := newTestRouter(s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleClientsGet(t *testing.T) {
	sched := scheduler.New()
	require.NoError(t, sched.RegisterClient("a", scheduler.WithWeight(2)))
	require.NoError(t, sched.RegisterClient("b"))
	s := New(sched, nil)
	router := newTestRouter(s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clients", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Clients []map[string]any `json:"clients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Clients, 2)
	assert.Equal(t, "a", body.Clients[0]["id"])
	assert.Equal(t, float64(2), body.Clients[0]["weight"])
	assert.Equal(t, "b", body.Clients[1]["id"])
}

func TestHandleClientsPostRegistersNewClient(t *testing.T) {
	sched := scheduler.New()
	s := New(sched, nil)
	router := newTestRouter(s)

	payload, _ := json.Marshal(map[string]any{"id": "team-a", "weight": 3})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/clients", bytes.NewReader(payload))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	m, err := sched.ClientMetrics("team-a")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Weight)
}

func TestHandleClientsPostConflictOnDuplicate(t *testing.T) {
	sched := scheduler.New()
	require.NoError(t, sched.RegisterClient("team-a"))
	s := New(sched, nil)
	router := newTestRouter(s)

	payload, _ := json.Marshal(map[string]any{"id": "team-a"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/clients", bytes.NewReader(payload))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleClientsPostBadRequestOnInvalidWeight(t *testing.T) {
	sched := scheduler.New()
	s := New(sched, nil)
	router := newTestRouter(s)

	payload, _ := json.Marshal(map[string]any{"id": "team-a", "weight": 0})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/clients", bytes.NewReader(payload))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClientNotFound(t *testing.T) {
	s := New(scheduler.New(), nil)
	router := newTestRouter(s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/clients/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleMetrics(t *testing.T) {
	sched := scheduler.New()
	require.NoError(t, sched.RegisterClient("a"))
	s := New(sched, nil)
	router := newTestRouter(s)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "scheduler")
	assert.Contains(t, body, "http")
}
