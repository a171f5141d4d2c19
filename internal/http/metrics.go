package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"fl-status-panel/internal/settings"
)

const metricsNamespace = "fl_status_panel"

var (
	registry = prometheus.NewRegistry()

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests handled by this app.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests handled by this app.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "http_in_flight_requests",
		Help:      "In-flight HTTP requests currently served by this app.",
	})

	probeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "probe_duration_seconds",
		Help:      "Duration of requests against the monitored target.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "result"})

	probeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "probe_errors_total",
		Help:      "Failed requests against the monitored target.",
	}, []string{"operation"})

	settingsOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "settings_operations_total",
		Help:      "Settings store reads and writes.",
	}, []string{"backend", "operation", "result"})

	settingsOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "settings_operation_duration_seconds",
		Help:      "Duration of settings store reads and writes.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	appStartedAt = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "start_time_seconds",
		Help:      "Unix time the process started.",
	})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequestsTotal,
		httpRequestDuration,
		httpInFlight,
		probeDuration,
		probeErrorsTotal,
		settingsOpsTotal,
		settingsOpDuration,
		appStartedAt,
	)
	appStartedAt.SetToCurrentTime()
}

func metricsHandler() nethttp.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveProbe matches probe.Client.Observe.
func ObserveProbe(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, context.Canceled) {
			result = "canceled"
		} else {
			probeErrorsTotal.WithLabelValues(op).Inc()
		}
	}
	probeDuration.WithLabelValues(op, result).Observe(d.Seconds())
}

type instrumentedStore struct {
	settings.Store
}

// InstrumentStore wraps a settings store so its reads and writes are counted.
func InstrumentStore(s settings.Store) settings.Store {
	if s == nil {
		return nil
	}
	return instrumentedStore{Store: s}
}

func (s instrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, ok, err := s.Store.Get(ctx, key)
	recordSettingsOp(s.Backend(), "get", time.Since(start), err)
	return v, ok, err
}

func (s instrumentedStore) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.Store.Set(ctx, key, value)
	recordSettingsOp(s.Backend(), "set", time.Since(start), err)
	return err
}

func recordSettingsOp(backend, op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	settingsOpsTotal.WithLabelValues(backend, op, result).Inc()
	settingsOpDuration.WithLabelValues(backend, op).Observe(d.Seconds())
}

func appMetricsSummaryHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		type endpointRow struct {
			Method string  `json:"method"`
			Path   string  `json:"path"`
			Status string  `json:"status"`
			Count  uint64  `json:"count"`
			AvgMS  float64 `json:"avg_ms"`
		}
		type probeRow struct {
			Operation string  `json:"operation"`
			Result    string  `json:"result"`
			Count     uint64  `json:"count"`
			AvgMS     float64 `json:"avg_ms"`
		}

		families, err := registry.Gather()
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}

		httpRows := []endpointRow{}
		probeRows := []probeRow{}
		settingsErrors := uint64(0)
		for _, mf := range families {
			switch mf.GetName() {
			case metricsNamespace + "_http_request_duration_seconds":
				for _, m := range mf.GetMetric() {
					labels := labelMap(m)
					h := m.GetHistogram()
					httpRows = append(httpRows, endpointRow{
						Method: labels["method"],
						Path:   labels["path"],
						Status: labels["status"],
						Count:  h.GetSampleCount(),
						AvgMS:  avgMS(h),
					})
				}
			case metricsNamespace + "_probe_duration_seconds":
				for _, m := range mf.GetMetric() {
					labels := labelMap(m)
					h := m.GetHistogram()
					probeRows = append(probeRows, probeRow{
						Operation: labels["operation"],
						Result:    labels["result"],
						Count:     h.GetSampleCount(),
						AvgMS:     avgMS(h),
					})
				}
			case metricsNamespace + "_settings_operations_total":
				for _, m := range mf.GetMetric() {
					if labelMap(m)["result"] == "error" {
						settingsErrors += uint64(m.GetCounter().GetValue())
					}
				}
			}
		}

		sort.Slice(httpRows, func(i, j int) bool { return httpRows[i].AvgMS > httpRows[j].AvgMS })
		if len(httpRows) > 5 {
			httpRows = httpRows[:5]
		}
		sort.Slice(probeRows, func(i, j int) bool {
			if probeRows[i].Operation != probeRows[j].Operation {
				return probeRows[i].Operation < probeRows[j].Operation
			}
			return probeRows[i].Result < probeRows[j].Result
		})

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
			},
			"data": map[string]any{
				"top_http_slowest_avg_ms": httpRows,
				"probes":                  probeRows,
				"errors": map[string]any{
					"settings_total": settingsErrors,
				},
			},
		})
	}
}

func labelMap(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func avgMS(h *dto.Histogram) float64 {
	if h.GetSampleCount() == 0 {
		return 0
	}
	return h.GetSampleSum() / float64(h.GetSampleCount()) * 1000.0
}

type statusRecorder struct {
	nethttp.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over connections wrapped by the
// middleware chain.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(nethttp.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = nethttp.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(nethttp.Flusher); ok {
		f.Flush()
	}
}

func observabilityMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)

		route := normalizeMetricPath(r.URL.Path)
		status := strconv.Itoa(rec.status)
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

// normalizeMetricPath keeps label cardinality bounded; anything outside the
// known route table is folded into "other".
func normalizeMetricPath(path string) string {
	switch path {
	case "/api/v1/panel/":
		return "/api/v1/panel"
	case "/", "/favicon.ico", "/metrics", "/health", "/ready",
		"/api/v1/panel", "/api/v1/panel/init",
		"/api/v1/panel/port", "/api/v1/panel/port/input", "/api/v1/panel/refresh",
		"/api/v1/panel/ws", "/api/v1/panel/config", "/api/v1/status/services", "/api/v1/metrics/summary":
		return path
	default:
		return "other"
	}
}
