package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/cfp-search/internal/conference"
	"github.com/pfrederiksen/cfp-search/internal/logger"
	"github.com/pfrederiksen/cfp-search/internal/metrics"
)

type stubSearcher struct {
	mu       sync.Mutex
	keywords []string
	limits   []int
	result   conference.Result
}

func (s *stubSearcher) Search(_ context.Context, keywords string, limit int) conference.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keywords = append(s.keywords, keywords)
	s.limits = append(s.limits, limit)
	return s.result
}

func newStub() *stubSearcher {
	return &stubSearcher{
		result: conference.Success([]conference.Record{
			{Name: "ICML 2024", Title: "International Conference on Machine Learning"},
		}),
	}
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) conference.Result {
	t.Helper()
	var result conference.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestGetEvents_Query(t *testing.T) {
	stub := newStub()
	srv := New(stub, nil, logger.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tools/get_events?keywords=machine+learning&limit=3", nil)
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	result := decodeResult(t, rec)
	assert.Equal(t, conference.StatusSuccess, result.Status)
	require.NotNil(t, result.Count)
	assert.Equal(t, 1, *result.Count)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "ICML 2024", result.Events[0].Name)

	assert.Equal(t, []string{"machine learning"}, stub.keywords)
	assert.Equal(t, []int{3}, stub.limits)
}

func TestGetEvents_DefaultLimit(t *testing.T) {
	stub := newStub()
	srv := New(stub, nil, logger.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools/get_events?keywords=ai", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{DefaultLimit}, stub.limits)
}

func TestGetEvents_Post(t *testing.T) {
	stub := newStub()
	srv := New(stub, nil, logger.NewNop())

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"keywords": "  robotics ", "limit": 0}`)
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tools/get_events", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"robotics"}, stub.keywords)
	assert.Equal(t, []int{0}, stub.limits, "explicit zero limit means no limit")
}

func TestGetEvents_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		req  *http.Request
	}{
		{"missing keywords", httptest.NewRequest(http.MethodGet, "/tools/get_events", nil)},
		{"blank keywords", httptest.NewRequest(http.MethodGet, "/tools/get_events?keywords=%20%20", nil)},
		{"bad limit", httptest.NewRequest(http.MethodGet, "/tools/get_events?keywords=ai&limit=ten", nil)},
		{"bad body", httptest.NewRequest(http.MethodPost, "/tools/get_events", strings.NewReader("{"))},
		{"post without keywords", httptest.NewRequest(http.MethodPost, "/tools/get_events", strings.NewReader(`{"limit": 2}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStub()
			srv := New(stub, nil, logger.NewNop())

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, tt.req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			result := decodeResult(t, rec)
			assert.Equal(t, conference.StatusError, result.Status)
			assert.NotEmpty(t, result.Message)
			assert.NotNil(t, result.Events)
			assert.Empty(t, result.Events)
			assert.Empty(t, stub.keywords, "searcher must not be called")
		})
	}
}

func TestGetEvents_OversizedBody(t *testing.T) {
	stub := newStub()
	srv := New(stub, nil, logger.NewNop())

	body := `{"keywords": "` + strings.Repeat("a", maxRequestBytes) + `"}`
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tools/get_events", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	result := decodeResult(t, rec)
	assert.Equal(t, conference.StatusError, result.Status)
	assert.Empty(t, stub.keywords, "searcher must not be called")
}

func TestGetEvents_ErrorEnvelope(t *testing.T) {
	stub := &stubSearcher{result: conference.Failure(assert.AnError)}
	srv := New(stub, nil, logger.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools/get_events?keywords=ai", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	result := decodeResult(t, rec)
	assert.Equal(t, conference.StatusError, result.Status)
	assert.Equal(t, assert.AnError.Error(), result.Message)
}

func TestHealthz(t *testing.T) {
	srv := New(newStub(), nil, logger.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveSearch(conference.StatusSuccess)

	srv := New(newStub(), reg, logger.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cfp_searches_total")
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	srv := New(newStub(), nil, logger.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	// Reserve a free port, then release it for the server
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := New(newStub(), nil, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, addr)
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
