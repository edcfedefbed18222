package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

const namespace = "fastroot"

// PrometheusHooks implements every hook interface with Prometheus collectors
// registered on a private registry. The CLI writes the registry to a
// node-exporter textfile with [PrometheusHooks.WriteTextfile].
type PrometheusHooks struct {
	registry *prometheus.Registry

	parseDuration  *prometheus.HistogramVec
	treesParsed    prometheus.Counter
	renderDuration *prometheus.HistogramVec

	rootDuration    *prometheus.HistogramVec
	rootRuns        *prometheus.CounterVec
	treeLeaves      prometheus.Histogram
	solverFallbacks *prometheus.CounterVec

	cacheLookups *prometheus.CounterVec
	cacheBytes   *prometheus.CounterVec
}

// NewPrometheusHooks creates the collectors on a fresh registry.
func NewPrometheusHooks() *PrometheusHooks {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusHooks{
		registry: reg,

		// parseDuration measures Newick parsing per input source.
		// Labels: status (ok, error)
		parseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing tree input",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"status"}),

		treesParsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "trees_parsed_total",
			Help:      "Total trees read from input",
		}),

		// renderDuration measures drawing time.
		// Labels: formats (comma separated), status
		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering trees",
			Buckets:   prometheus.DefBuckets,
		}, []string{"formats", "status"}),

		// rootDuration measures one rooting run.
		// Labels: method (MP, MV, OG, RTT), status
		rootDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rooting",
			Name:      "duration_seconds",
			Help:      "Time spent rooting one tree",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"method", "status"}),

		rootRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooting",
			Name:      "runs_total",
			Help:      "Total rooting runs started",
		}, []string{"method"}),

		treeLeaves: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rooting",
			Name:      "tree_leaves",
			Help:      "Distribution of leaf counts of rooted trees",
			Buckets:   prometheus.ExponentialBuckets(4, 4, 8),
		}),

		solverFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooting",
			Name:      "solver_fallbacks_total",
			Help:      "QP solver failures answered with the active-set solution",
		}, []string{"method"}),

		// cacheLookups counts cache lookups.
		// Labels: key_type, result (hit, miss)
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total cache lookups by result",
		}, []string{"key_type", "result"}),

		cacheBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Total bytes written to the cache",
		}, []string{"key_type"}),
	}
}

// Registry returns the registry holding the collectors.
func (h *PrometheusHooks) Registry() *prometheus.Registry { return h.registry }

// WriteTextfile writes the current metrics in the text exposition format.
func (h *PrometheusHooks) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, h.registry)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *PrometheusHooks) OnParseStart(context.Context, string) {}

func (h *PrometheusHooks) OnParseComplete(_ context.Context, _ string, trees int, d time.Duration, err error) {
	h.parseDuration.WithLabelValues(status(err)).Observe(d.Seconds())
	h.treesParsed.Add(float64(trees))
}

func (h *PrometheusHooks) OnRenderStart(context.Context, []string) {}

func (h *PrometheusHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	label := ""
	for i, f := range formats {
		if i > 0 {
			label += ","
		}
		label += f
	}
	h.renderDuration.WithLabelValues(label, status(err)).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnRootStart(_ context.Context, method string, leaves int) {
	h.rootRuns.WithLabelValues(method).Inc()
	h.treeLeaves.Observe(float64(leaves))
}

func (h *PrometheusHooks) OnRootComplete(_ context.Context, method string, d time.Duration, err error) {
	h.rootDuration.WithLabelValues(method, status(err)).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnSolverFallback(_ context.Context, method string, _ error) {
	h.solverFallbacks.WithLabelValues(method).Inc()
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheLookups.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheLookups.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

var (
	_ PipelineHooks = (*PrometheusHooks)(nil)
	_ RootingHooks  = (*PrometheusHooks)(nil)
	_ CacheHooks    = (*PrometheusHooks)(nil)
)
