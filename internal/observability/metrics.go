package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	roomAllocationsTotal  *prometheus.CounterVec
	roomCounterSkipsTotal *prometheus.CounterVec

	realtimeEventsTotal   *prometheus.CounterVec
	realtimeRejectedTotal *prometheus.CounterVec
	realtimeSubscribers   prometheus.Gauge

	dashboardDegradedTotal *prometheus.CounterVec
	avatarUploadsTotal     *prometheus.CounterVec
)

// MetricsHandler serves the scrape endpoint, registering the collectors first so counters
// that have not fired yet are still listed.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}

// RegisterMetrics initialises the Prometheus collectors used across the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roommate_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roommate_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roommate_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		roomAllocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roommate_room_allocations_total",
			Help: "Room allocation attempts by outcome.",
		}, []string{"outcome"})

		roomCounterSkipsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roommate_room_counter_skips_total",
			Help: "Occupancy counter updates skipped or failed after an assignment committed.",
		}, []string{"reason"})

		realtimeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roommate_realtime_events_total",
			Help: "Change events delivered to the local broker by table and transport.",
		}, []string{"table", "transport"})

		realtimeRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roommate_realtime_events_rejected_total",
			Help: "Remote change events dropped by schema validation.",
		}, []string{"transport"})

		realtimeSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roommate_realtime_subscribers",
			Help: "Currently connected change feed subscribers.",
		})

		dashboardDegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roommate_dashboard_degraded_total",
			Help: "Dashboard statistics replaced by defaults after a read failure.",
		}, []string{"stat"})

		avatarUploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roommate_avatar_uploads_total",
			Help: "Avatar uploads by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			roomAllocationsTotal, roomCounterSkipsTotal,
			realtimeEventsTotal, realtimeRejectedTotal, realtimeSubscribers,
			dashboardDegradedTotal, avatarUploadsTotal,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the request latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the error response counter.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// RoomAllocations counts allocation outcomes (allocated, noop, capacity_exceeded, failed).
func RoomAllocations() *prometheus.CounterVec {
	RegisterMetrics()
	return roomAllocationsTotal
}

// RoomCounterSkips counts occupancy counter writes that did not land.
func RoomCounterSkips() *prometheus.CounterVec {
	RegisterMetrics()
	return roomCounterSkipsTotal
}

// RealtimeEventsPublished counts change events handed to local subscribers.
func RealtimeEventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeEventsTotal
}

// RealtimeEventsRejected counts malformed remote events.
func RealtimeEventsRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeRejectedTotal
}

// RealtimeSubscribers tracks live subscriptions.
func RealtimeSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return realtimeSubscribers
}

// DashboardDegraded counts statistics that fell back to defaults.
func DashboardDegraded() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardDegradedTotal
}

// AvatarUploads counts avatar upload results.
func AvatarUploads() *prometheus.CounterVec {
	RegisterMetrics()
	return avatarUploadsTotal
}
