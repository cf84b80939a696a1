package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	TripsCreatedTotal      metric.Int64Counter
	TripSearchDuration     metric.Float64Histogram
	BookingsTotal          metric.Int64Counter
	BookingDurationSeconds metric.Float64Histogram
	AgentStepsTotal        metric.Int64Counter
	VirtualCardsIssued     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, from the
// globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("TravelBookingAgent")
		var err error
		m := &AppMetrics{}

		m.TripsCreatedTotal, err = meter.Int64Counter(
			"trips_created_total",
			metric.WithDescription("Total number of trip requests created"),
			metric.WithUnit("{trip}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create trips_created_total: %v", err)
		}

		m.TripSearchDuration, err = meter.Float64Histogram(
			"trip_search_duration_seconds",
			metric.WithDescription("Duration of the parse+search+build phase in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create trip_search_duration_seconds: %v", err)
		}

		m.BookingsTotal, err = meter.Int64Counter(
			"bookings_total",
			metric.WithDescription("Booking executions by outcome (attribute: status)"),
			metric.WithUnit("{booking}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create bookings_total: %v", err)
		}

		m.BookingDurationSeconds, err = meter.Float64Histogram(
			"booking_duration_seconds",
			metric.WithDescription("Duration of a single booking execution in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create booking_duration_seconds: %v", err)
		}

		m.AgentStepsTotal, err = meter.Int64Counter(
			"agent_steps_total",
			metric.WithDescription("Total booking agent steps executed"),
			metric.WithUnit("{step}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create agent_steps_total: %v", err)
		}

		m.VirtualCardsIssued, err = meter.Int64Counter(
			"virtual_cards_issued_total",
			metric.WithDescription("Single-use virtual cards issued"),
			metric.WithUnit("{card}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create virtual_cards_issued_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global metrics instance. InitAppMetrics must run first.
func Get() *AppMetrics {
	return appMetrics
}
