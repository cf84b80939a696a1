package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-booking-agent/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

// TripStore is the slice of the trip repository the engine needs. Kept
// narrow so the engine never depends on the HTTP-facing trip package.
type TripStore interface {
	GetForBooking(ctx context.Context, tripID uuid.UUID) (*types.Trip, error)
	UpdateStatus(ctx context.Context, tripID uuid.UUID, status types.TripStatus) error
	ListIDsByStatus(ctx context.Context, status types.TripStatus) ([]uuid.UUID, error)
}

// TravelerSource builds the decrypted passenger context for a user.
type TravelerSource interface {
	TravelerForUser(ctx context.Context, userID uuid.UUID) (*types.Traveler, error)
}

// Engine executes approved trips asynchronously: a buffered queue feeds a
// fixed pool of workers, each running one trip's bookings sequentially.
type Engine struct {
	logger     *slog.Logger
	trips      TripStore
	bookings   Repository
	travelers  TravelerSource
	cards      CardIssuer
	agent      Agent
	mailer     Mailer
	queue      chan uuid.UUID
	workers    int
	retryDelay time.Duration
	wg         sync.WaitGroup
}

func NewEngine(
	trips TripStore,
	bookings Repository,
	travelers TravelerSource,
	cards CardIssuer,
	agent Agent,
	mailer Mailer,
	workers, queueSize int,
	retryDelay time.Duration,
	logger *slog.Logger,
) *Engine {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Engine{
		logger:     logger,
		trips:      trips,
		bookings:   bookings,
		travelers:  travelers,
		cards:      cards,
		agent:      agent,
		mailer:     mailer,
		queue:      make(chan uuid.UUID, queueSize),
		workers:    workers,
		retryDelay: retryDelay,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled; a
// trip interrupted mid-booking is picked up by Recover on the next boot.
func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx, i)
	}
	e.logger.Info("Booking engine started", slog.Int("workers", e.workers))
}

// Shutdown blocks until every worker has returned. Cancel the Start context
// first.
func (e *Engine) Shutdown() {
	e.wg.Wait()
	e.logger.Info("Booking engine stopped")
}

// Enqueue hands a trip to the worker pool without blocking the caller.
func (e *Engine) Enqueue(tripID uuid.UUID) error {
	select {
	case e.queue <- tripID:
		return nil
	default:
		return fmt.Errorf("booking queue is full")
	}
}

// Recover re-enqueues trips that were left in "booking" by a previous
// process. Their pending bookings resume; already-terminal bookings are
// left untouched.
func (e *Engine) Recover(ctx context.Context) error {
	ids, err := e.trips.ListIDsByStatus(ctx, types.TripStatusBooking)
	if err != nil {
		return fmt.Errorf("failed to list interrupted trips: %w", err)
	}
	for _, id := range ids {
		if err := e.Enqueue(id); err != nil {
			return fmt.Errorf("failed to re-enqueue trip %s: %w", id, err)
		}
	}
	if len(ids) > 0 {
		e.logger.Info("Re-enqueued interrupted trips", slog.Int("count", len(ids)))
	}
	return nil
}

func (e *Engine) worker(ctx context.Context, id int) {
	defer e.wg.Done()
	l := e.logger.With(slog.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		case tripID := <-e.queue:
			if err := e.executeTrip(ctx, tripID); err != nil {
				l.ErrorContext(ctx, "Trip booking run failed, retrying once",
					slog.String("trip_id", tripID.String()), slog.Any("error", err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(e.retryDelay):
				}
				if err := e.executeTrip(ctx, tripID); err != nil {
					l.ErrorContext(ctx, "Trip booking run failed after retry, giving up",
						slog.String("trip_id", tripID.String()), slog.Any("error", err))
					e.markTripFailed(ctx, tripID)
				}
			}
		}
	}
}

// executeTrip runs every pending booking of one trip in sequence. Booking
// outcomes (confirmed/unsupported/failed) are terminal and never retried;
// the returned error covers infrastructure failures only.
func (e *Engine) executeTrip(ctx context.Context, tripID uuid.UUID) error {
	ctx, span := otel.Tracer("BookingEngine").Start(ctx, "ExecuteTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()
	l := e.logger.With(slog.String("trip_id", tripID.String()))

	trip, err := e.trips.GetForBooking(ctx, tripID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Enqueued trip no longer exists")
			return nil
		}
		return err
	}

	traveler, err := e.travelers.TravelerForUser(ctx, trip.UserID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to build traveler context", slog.Any("error", err))
		e.markTripFailed(ctx, tripID)
		return nil
	}

	all, err := e.bookings.ListByTrip(ctx, tripID)
	if err != nil {
		return err
	}
	var pending []types.Booking
	activityCount := 0
	for _, b := range all {
		if b.Status == types.BookingStatusPending {
			pending = append(pending, b)
			if b.Type == types.BookingTypeActivity {
				activityCount++
			}
		}
	}
	if len(pending) == 0 {
		l.InfoContext(ctx, "No pending bookings for trip")
		return nil
	}

	approved := trip.ApprovedItinerary
	if approved == nil {
		l.ErrorContext(ctx, "Trip in booking state has no approved itinerary")
		e.markTripFailed(ctx, tripID)
		return nil
	}

	allConfirmed := true
	for _, b := range pending {
		if !e.executeBooking(ctx, trip, &b, approved, traveler, activityCount) {
			allConfirmed = false
		}
	}

	finalStatus := types.TripStatusConfirmed
	if !allConfirmed {
		finalStatus = types.TripStatusBookingFailed
	}
	if err := e.trips.UpdateStatus(ctx, tripID, finalStatus); err != nil {
		return err
	}
	span.SetAttributes(attribute.String("trip.final_status", string(finalStatus)))

	if allConfirmed {
		e.sendConfirmation(ctx, trip, traveler)
	}
	return nil
}

// executeBooking runs one booking to a terminal status. Returns true when
// confirmed.
func (e *Engine) executeBooking(
	ctx context.Context,
	trip *types.Trip,
	b *types.Booking,
	approved *types.ItineraryOption,
	traveler *types.Traveler,
	activityCount int,
) bool {
	ctx, span := otel.Tracer("BookingEngine").Start(ctx, "ExecuteBooking", trace.WithAttributes(
		attribute.String("booking.id", b.ID.String()),
		attribute.String("booking.type", string(b.Type)),
	))
	defer span.End()
	l := e.logger.With(slog.String("booking_id", b.ID.String()), slog.String("type", string(b.Type)))
	start := time.Now()

	outcome := func(status types.BookingStatus) bool {
		if m := metrics.Get(); m != nil {
			m.BookingsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
			m.BookingDurationSeconds.Record(ctx, time.Since(start).Seconds())
		}
		span.SetAttributes(attribute.String("booking.status", string(status)))
		return status == types.BookingStatusConfirmed
	}

	if err := e.bookings.UpdateStatus(ctx, b.ID, types.BookingStatusInProgress); err != nil {
		l.ErrorContext(ctx, "Failed to mark booking in progress", slog.Any("error", err))
		return outcome(types.BookingStatusFailed)
	}

	amount := cardAmount(b.Type, approved, activityCount)
	card, err := e.cards.Create(ctx, amount, fmt.Sprintf("Trip %s, %s", trip.ID, b.Type), traveler.Email)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue virtual card", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Card issue failed")
		e.failBooking(ctx, b.ID, types.BookingStatusFailed, err.Error())
		return outcome(types.BookingStatusFailed)
	}
	if err := e.bookings.SetVirtualCard(ctx, b.ID, card.CardID); err != nil {
		l.ErrorContext(ctx, "Failed to record virtual card", slog.Any("error", err))
	}

	req := AgentRequest{
		BookingID: b.ID,
		Type:      b.Type,
		Itinerary: approved,
		Traveler:  traveler,
		Card:      card,
	}
	if b.Type == types.BookingTypeActivity {
		var payload struct {
			Activity types.ActivityOption `json:"activity"`
		}
		decodeDetails(b.Details, &payload)
		req.Activity = &payload.Activity
	}

	confirmation, err := e.agent.Run(ctx, req)
	if err != nil {
		span.RecordError(err)
		status := types.BookingStatusFailed
		if errors.Is(err, ErrNotSupported) {
			status = types.BookingStatusUnsupported
			l.WarnContext(ctx, "Booking not supported", slog.Any("error", err))
		} else {
			l.ErrorContext(ctx, "Booking agent failed", slog.Any("error", err))
			span.SetStatus(codes.Error, "Agent failed")
		}
		e.failBooking(ctx, b.ID, status, err.Error())
		e.voidCard(ctx, card.CardID)
		return outcome(status)
	}

	if err := e.bookings.MarkConfirmed(ctx, b.ID, confirmation); err != nil {
		l.ErrorContext(ctx, "Failed to record confirmation", slog.Any("error", err))
		e.voidCard(ctx, card.CardID)
		return outcome(types.BookingStatusFailed)
	}

	l.InfoContext(ctx, "Booking confirmed", slog.String("confirmation", confirmation))
	return outcome(types.BookingStatusConfirmed)
}

// cardAmount caps the virtual card at what this component should cost.
func cardAmount(bookingType types.BookingType, approved *types.ItineraryOption, activityCount int) float64 {
	switch bookingType {
	case types.BookingTypeFlight:
		if approved.Flight != nil {
			return approved.Flight.PriceUSD
		}
	case types.BookingTypeHotel:
		if approved.Hotel != nil {
			return approved.Hotel.PriceTotalUSD
		}
	case types.BookingTypeActivity:
		if activityCount > 0 {
			return approved.ActivitiesTotalUSD / float64(activityCount)
		}
		return 0
	}
	return approved.TotalUSD
}

func (e *Engine) failBooking(ctx context.Context, bookingID uuid.UUID, status types.BookingStatus, reason string) {
	if err := e.bookings.MarkFailed(ctx, bookingID, status, reason); err != nil {
		e.logger.ErrorContext(ctx, "Failed to record booking failure",
			slog.String("booking_id", bookingID.String()), slog.Any("error", err))
	}
}

func (e *Engine) voidCard(ctx context.Context, cardID string) {
	if err := e.cards.Void(ctx, cardID); err != nil {
		e.logger.ErrorContext(ctx, "Failed to void virtual card",
			slog.String("card_id", cardID), slog.Any("error", err))
	}
}

func (e *Engine) markTripFailed(ctx context.Context, tripID uuid.UUID) {
	if err := e.trips.UpdateStatus(ctx, tripID, types.TripStatusBookingFailed); err != nil {
		e.logger.ErrorContext(ctx, "Failed to mark trip booking_failed",
			slog.String("trip_id", tripID.String()), slog.Any("error", err))
	}
}

func (e *Engine) sendConfirmation(ctx context.Context, trip *types.Trip, traveler *types.Traveler) {
	bookings, err := e.bookings.ListByTrip(ctx, trip.ID)
	if err != nil {
		e.logger.WarnContext(ctx, "Skipping confirmation email, failed to load bookings",
			slog.Any("error", err))
		return
	}

	confirmation := BuildConfirmation(trip, bookings)
	userName := strings.TrimSpace(traveler.FirstName + " " + traveler.LastName)
	if userName == "" {
		userName = traveler.Email
	}
	e.mailer.SendBookingConfirmation(ctx, traveler.Email, userName, confirmation)
}
