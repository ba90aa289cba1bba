package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hotel_bookings/internal/domain"
)

const namespace = "bookings"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Gateway HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "Gateway HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "backend_requests_total", Help: "Requests to the REST backend."},
		[]string{"resource", "op", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "backend_request_duration_seconds",
			Help:    "REST backend request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource", "op"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Entity cache hits/misses/sets/dels/reloads."},
		[]string{"cache", "event"},
	)
	Connectivity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: namespace, Name: "connectivity_down", Help: "1 while the flag is set."},
		[]string{"flag"}, // network|server
	)
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: namespace, Name: "pending_ops", Help: "Queued mutations awaiting replay."},
		[]string{"resource"},
	)
	OptimisticWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "optimistic_writes_total", Help: "Mutations applied locally and queued."},
		[]string{"resource", "op"},
	)
	ReplayOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "replay_ops_total", Help: "Replayed queued mutations."},
		[]string{"resource", "op", "result"},
	)
	Fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_fallbacks_total", Help: "Reads served from the local cache."},
		[]string{"resource", "op"},
	)
	SyncPasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "sync_passes_total", Help: "Sync coordinator passes."},
		[]string{"trigger"},
	)
	PushHints = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "push_hints_total", Help: "Push messages received."},
		[]string{"kind"},
	)
)

// Serve exposes reg on addr in the background. An empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		Connectivity, QueueDepth, OptimisticWrites, ReplayOps, Fallbacks, SyncPasses, PushHints,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveExternal records one backend call. status 0 means no response.
func ObserveExternal(resource, op string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(resource, op, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(resource, op).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del|page|reload
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func SetConnectivity(networkDown, serverDown bool) {
	Connectivity.WithLabelValues("network").Set(b2f(networkDown))
	Connectivity.WithLabelValues("server").Set(b2f(serverDown))
}

func SetQueueDepth(resource string, n int) {
	QueueDepth.WithLabelValues(resource).Set(float64(n))
}

func ObserveOptimistic(resource, op string) {
	OptimisticWrites.WithLabelValues(resource, op).Inc()
}

func ObserveReplay(resource, op, result string) {
	ReplayOps.WithLabelValues(resource, op, result).Inc()
}

func ObserveFallback(resource, op string) {
	Fallbacks.WithLabelValues(resource, op).Inc()
}

func ObserveSync(trigger string) {
	SyncPasses.WithLabelValues(trigger).Inc()
}

func ObservePush(kind string) {
	PushHints.WithLabelValues(kind).Inc()
}

// LabelErr maps an outcome to a bounded label value: ok, validation,
// not_found, canceled, server or other.
func LabelErr(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsValidation(err):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrServer):
		return "server"
	}
	return "other"
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
