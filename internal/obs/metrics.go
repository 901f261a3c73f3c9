package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets, // [0.005..10]
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics
var (
	salesRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Sales appended to the ledger.",
	})

	salesRecordedCents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sales_recorded_amount_cents_total",
		Help: "Sum of recorded sale amounts in cents.",
	})

	reportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "report_duration_seconds",
			Help:    "Time spent computing reports.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report"},
	)

	messagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messages_sent_total",
		Help: "Messages delivered between accounts.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Sales evaluation API build information.",
	}, []string{"version", "commit"})
)

var initOnce sync.Once

// Init registers all metrics in the default registry. Safe to call repeatedly.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
			salesRecorded, salesRecordedCents, reportDuration, messagesSent, buildInfo)
	})
}

// SetBuildInfo publishes build_info{version,commit} 1. Earlier label pairs
// are reset so only the running build is exported.
func SetBuildInfo(version, commit string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit).Set(1)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests per canonical path.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

func SaleRecorded(cents int64) {
	salesRecorded.Inc()
	salesRecordedCents.Add(float64(cents))
}

func ObserveReport(report string, d time.Duration) {
	reportDuration.WithLabelValues(report).Observe(d.Seconds())
}

func MessageSent() { messagesSent.Inc() }

// resource describes a collection whose second segment may be an id.
type resource struct {
	reserved map[string]bool // literal children, never ids
	subs     map[string]bool // allowed children of an id
}

var resources = map[string]resource{
	"accounts": {subs: map[string]bool{}},
	"squads":   {subs: map[string]bool{"manager": true, "members": true}},
	"sales":    {reserved: map[string]bool{"me": true, "squad": true}, subs: map[string]bool{}},
	"messages": {reserved: map[string]bool{"inbox": true, "outbox": true}, subs: map[string]bool{"read": true}},
}

// CanonicalPath collapses ids so metric label cardinality stays bounded.
// Unknown shapes are returned unchanged.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" {
		return p
	}
	res, ok := resources[parts[1]]
	if !ok || res.reserved[parts[2]] {
		return p
	}
	switch {
	case len(parts) == 3:
		return "/v1/" + parts[1] + "/:id"
	case len(parts) == 4 && res.subs[parts[3]]:
		return "/v1/" + parts[1] + "/:id/" + parts[3]
	}
	return p
}

// statusWriter keeps the response code for the metrics labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers stream through the instrumented writer.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
