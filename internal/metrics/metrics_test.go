package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPathQuery(t *testing.T) {
	r := NewRegistry()

	r.RecordPathQuery("found", 2*time.Millisecond, 5, 9)
	r.RecordPathQuery("found", time.Millisecond, 3, 4)
	r.RecordPathQuery("no_path", time.Millisecond, 2, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.PathQueriesTotal.WithLabelValues("found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PathQueriesTotal.WithLabelValues("no_path")))
	assert.Equal(t, 3, testutil.CollectAndCount(r.PathQueryDuration))
}

func TestRecordDatasetLoad(t *testing.T) {
	r := NewRegistry()

	r.RecordDatasetLoad(nil, time.Second, 120, 200)
	r.RecordDatasetLoad(errors.New("malformed"), time.Second, 1, 1)

	assert.Equal(t, 120.0, testutil.ToFloat64(r.GraphVertices))
	assert.Equal(t, 200.0, testutil.ToFloat64(r.GraphEdges))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DatasetReloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.DatasetReloads.WithLabelValues("error")))
}

func TestSessionMetrics(t *testing.T) {
	r := NewRegistry()
	r.SetActiveSessions(4)
	r.RecordSelectionEvent("path_found")
	r.RecordSelectionEvent("path_found")

	assert.Equal(t, 4.0, testutil.ToFloat64(r.ActiveSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.SelectionEvents.WithLabelValues("path_found")))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.RecordHTTPRequest("GET", "/api/path", 200, time.Millisecond)
		r.RecordPathQuery("found", time.Millisecond, 1, 1)
		r.RecordDatasetLoad(nil, time.Millisecond, 1, 1)
		r.SetActiveSessions(1)
		r.RecordSelectionEvent("reset")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/api/path", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `mapnav_http_requests_total{method="GET",route="/api/path",status="200"} 1`))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
