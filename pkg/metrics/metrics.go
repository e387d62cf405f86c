package metrics

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type manager struct {
	namespace string
	system    string
	registry  *prometheus.Registry
}

var (
	mu      sync.RWMutex
	current = &manager{
		namespace: "brain_ingest",
		system:    "default",
		registry:  prometheus.NewRegistry(),
	}
)

// SetupMetricsManager 指定后续创建的指标所属的 namespace/subsystem 以及注册表
func SetupMetricsManager(ns, system string, registry *prometheus.Registry) {
	mu.Lock()
	current = &manager{
		namespace: FmtFixer(ns),
		system:    FmtFixer(system),
		registry:  registry,
	}
	mu.Unlock()

	// 重复注册会返回 AlreadyRegisteredError，忽略即可
	_ = registry.Register(collectors.NewGoCollector())
	_ = registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

func getManager() *manager {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Registry returns the registry metrics are currently registered on.
func Registry() *prometheus.Registry {
	return getManager().registry
}

// register 返回已注册的同名指标，保证多次初始化时计数落在同一个 collector 上
func register[T prometheus.Collector](m *manager, c T) T {
	if err := m.registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func emptyLabelValues(labels []string) []string {
	return make([]string, len(labels))
}

func NewCounterVec(name string, labels []string) *prometheus.CounterVec {
	m := getManager()
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.system,
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s count of /%s/%s", name, m.namespace, m.system),
		},
		labels,
	)
	vec = register(m, vec)
	vec.WithLabelValues(emptyLabelValues(labels)...).Add(0)
	return vec
}

func NewHistogramVec(name string, labels []string) *prometheus.HistogramVec {
	return NewHistogramVecWithBuckets(name, labels, prometheus.DefBuckets)
}

// NewHistogramVecWithBuckets is NewHistogramVec with explicit buckets, in seconds.
func NewHistogramVecWithBuckets(name string, labels []string, buckets []float64) *prometheus.HistogramVec {
	m := getManager()
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.system,
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s duration of /%s/%s", name, m.namespace, m.system),
			Buckets:   buckets,
		},
		labels,
	)
	return register(m, vec)
}

func NewGaugeVec(name string, labels []string) *prometheus.GaugeVec {
	m := getManager()
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.system,
			Name:      FmtFixer(name),
			Help:      fmt.Sprintf("%s gauge of /%s/%s", name, m.namespace, m.system),
		},
		labels,
	)
	vec = register(m, vec)
	vec.WithLabelValues(emptyLabelValues(labels)...).Set(0)
	return vec
}

func DefaultExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		registry := Registry()
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}).ServeHTTP(c.Writer, c.Request)
	}
}

func FmtFixer(in string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(in)
}
