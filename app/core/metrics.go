package core

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/brainhub/brain-ingest/pkg/metrics"
)

const (
	METRIC_RESULT_SUCCESS = "success"
	METRIC_RESULT_FAILED  = "failed"
	METRIC_RESULT_SKIPPED = "skipped"
)

type Metrics struct {
	apiResponseTime  *prometheus.HistogramVec
	apiErrorCounter  *prometheus.CounterVec
	uploadCounter    *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobCounter       *prometheus.CounterVec
	chunkCounter     *prometheus.CounterVec
	uploadBytesTotal *prometheus.CounterVec
	jobsRunning      *prometheus.GaugeVec
}

func NewMetrics(ns, system string) *Metrics {
	// setup metric
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime:  metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:  metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		uploadCounter:    metrics.NewCounterVec("upload_total", []string{"result"}),
		uploadBytesTotal: metrics.NewCounterVec("upload_bytes_total", nil),
		jobDuration: metrics.NewHistogramVecWithBuckets("ingest_job_duration", []string{"path"},
			[]float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}),
		jobCounter:   metrics.NewCounterVec("ingest_job_total", []string{"result"}),
		chunkCounter: metrics.NewCounterVec("ingest_chunks_total", nil),
		jobsRunning:  metrics.NewGaugeVec("ingest_jobs_running", nil),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	if m == nil {
		return
	}
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	if m == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) UploadInc(result string, size int) {
	if m == nil {
		return
	}
	m.uploadCounter.WithLabelValues(result).Inc()
	if result == METRIC_RESULT_SUCCESS {
		m.uploadBytesTotal.WithLabelValues().Add(float64(size))
	}
}

// ObserveJob records one finished processing job. path is "audio" or the file extension.
func (m *Metrics) ObserveJob(path, result string, cost time.Duration, chunks int) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(path).Observe(cost.Seconds())
	m.jobCounter.WithLabelValues(result).Inc()
	if chunks > 0 {
		m.chunkCounter.WithLabelValues().Add(float64(chunks))
	}
}

// JobRunning tracks jobs currently executing on this worker.
func (m *Metrics) JobRunning(delta float64) {
	if m == nil {
		return
	}
	m.jobsRunning.WithLabelValues().Add(delta)
}
