package metrics

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"code", "method", "path"},
	)
	httpRequestsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current Number of HTTP requests being processed.",
		},
	)

	// Storefront domain metrics.
	CartsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_carts_created_total",
			Help: "Carts created, by owner kind.",
		},
		[]string{"owner"},
	)

	CartRacesRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_races_recovered_total",
			Help: "Concurrent cart creations resolved by re-reading the winning cart.",
		},
	)

	CartMerges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_merges_total",
			Help: "Guest cart merges at sign-in, by outcome.",
		},
		[]string{"outcome"},
	)

	OrdersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders committed, by owner kind.",
		},
		[]string{"owner"},
	)

	CheckoutRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_rejections_total",
			Help: "Checkouts refused, by reason.",
		},
		[]string{"reason"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_notifications_total",
			Help: "Order emails by delivery status.",
		},
		[]string{"status"},
	)

	ExchangeRateUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_exchange_rate_updates_total",
			Help: "Exchange rate changes applied, by source.",
		},
		[]string{"source"},
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_live_connections",
			Help: "Open live update websocket connections.",
		},
	)
)

func init() {
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		slog.Debug("ProcessCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}

	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		slog.Debug("GoCollector registration skipped (likely already registered)",
			slog.String("error", err.Error()))
	}
}

// wrapper around http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}

	return hj.Hijack()
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		start := time.Now()
		httpRequestsInFlight.Inc()

		rw := newResponseWriter(w)

		pathPattern := r.URL.Path
		if p := r.PathValue("..."); p != "" {

			pathPattern = r.URL.Path[:len(r.URL.Path)-len(p)] + "{...}"

		} else if id := r.PathValue("id"); id != "" {

			pathPattern = r.URL.Path[:len(r.URL.Path)-len(id)] + "{id}"

		}

		defer func() {

			// the mux fills in the matched route once it has served r
			if r.Pattern != "" {
				pathPattern = r.Pattern
			}

			duration := time.Since(start)
			statusCodeStr := strconv.Itoa(rw.statusCode)

			httpRequestsTotal.WithLabelValues(statusCodeStr, r.Method, pathPattern).Inc()
			httpRequestsDuration.WithLabelValues(r.Method, pathPattern).Observe(duration.Seconds())
			httpRequestsInFlight.Dec()

		}()

		next.ServeHTTP(rw, r)

	})
}

// http.Handler for the Prometheus /metrics endpoint
func Handler() http.Handler {

	return promhttp.Handler()
}
