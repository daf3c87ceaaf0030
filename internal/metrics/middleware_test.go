package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsStatusAndRoute(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/jobs/{job_id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Post("/v1/reviews", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})

	beforeOK := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "200"))
	beforeMissing := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "404"))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/v1/reviews", nil),
		httptest.NewRequest(http.MethodGet, "/v1/jobs/abc", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.InDelta(t, beforeOK+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "200")), 0.001)
	require.InDelta(t, beforeMissing+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "404")), 0.001)
	require.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}
