package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("test")

	c.ReferenceStored("created")
	c.ReferenceStored("shared")
	c.ReferenceStored("shared")
	c.ReferenceRevoked("deleted")
	c.RevisionRecorded()
	c.RevisionsRemoved(3)
	c.RevisionsRemoved(0)
	c.HunksFailed(2)
	c.LookupDegraded()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ReferencesStored.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ReferencesStored.WithLabelValues("shared")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ReferencesRevoked.WithLabelValues("deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RevisionsRecorded))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.RevisionsTrimmed))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.PatchHunksFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LookupsDegraded))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ReferenceStored("created")
		c.ReferenceRevoked("deleted")
		c.RevisionRecorded()
		c.RevisionsRemoved(1)
		c.HunksFailed(1)
		c.LookupDegraded()
		c.ObserveRequest("GET", "/", 200, time.Millisecond)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("scriptorium")
	c.ObserveRequest("GET", "GET /api/references", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `scriptorium_http_requests_total{method="GET",route="GET /api/references",status="200"} 1`)
}
