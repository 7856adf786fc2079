package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := New()

	m.ObserveOperation("best_cities", 10*time.Millisecond, nil)
	m.ObserveOperation("best_cities", 20*time.Millisecond, errors.New("boom"))
	m.ObserveOperation("best_cities", 5*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationTotal.WithLabelValues("best_cities", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationTotal.WithLabelValues("best_cities", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
}

func TestObservePages(t *testing.T) {
	m := New()

	m.ObservePages("best_employers", 3)
	m.ObservePages("best_employers", 0)
	m.ObservePages("best_employers", 2)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.pagesFetched.WithLabelValues("best_employers")))
}

func TestObserveHTTPRequest(t *testing.T) {
	m := New()

	m.ObserveHTTPRequest(http.MethodGet, "/bestCities", http.StatusOK, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/bestCities", http.StatusBadGateway, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/bestCities", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/bestCities", "502")))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveUpstreamCall("FetchEmployers", "OK", 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `jobstats_dataaccess_call_duration_seconds_count{code="OK",method="FetchEmployers"} 1`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
