package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFmtFixer(t *testing.T) {
	assert.Equal(t, "brain_ingest_upload_total", FmtFixer("brain-ingest.upload_total"))
}

func TestExportHandler(t *testing.T) {
	SetupMetricsManager("brain-ingest", "test", prometheus.NewRegistry())

	counter := NewCounterVec("upload_total", []string{"result"})
	counter.WithLabelValues("accepted").Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(counter.WithLabelValues("accepted")))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", DefaultExportHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "brain_ingest_test_upload_total"))
}

func TestNewCounterVecReusesRegisteredCollector(t *testing.T) {
	SetupMetricsManager("brain-ingest", "reuse", prometheus.NewRegistry())

	first := NewCounterVec("ingest_job_total", []string{"result"})
	first.WithLabelValues("success").Inc()

	second := NewCounterVec("ingest_job_total", []string{"result"})
	second.WithLabelValues("success").Inc()

	assert.Same(t, first, second)
	assert.Equal(t, float64(2), testutil.ToFloat64(first.WithLabelValues("success")))
}

func TestNewGaugeVec(t *testing.T) {
	SetupMetricsManager("brain-ingest", "gauge", prometheus.NewRegistry())

	g := NewGaugeVec("semaphore_in_use", nil)
	g.WithLabelValues().Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(g.WithLabelValues()))
}
