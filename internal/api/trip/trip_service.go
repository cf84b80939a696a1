package trip

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-travel-booking-agent/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api/planner"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api/profile"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api/search"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/booking"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service owns the trip lifecycle from free-text request to booking kickoff.
type Service interface {
	CreateTrip(ctx context.Context, email, rawRequest string) (*types.Trip, error)
	ListTrips(ctx context.Context, email string) ([]types.Trip, error)
	GetTrip(ctx context.Context, email string, tripID uuid.UUID) (*types.Trip, error)
	ApproveTrip(ctx context.Context, email string, tripID uuid.UUID, optionIndex int) (*types.Trip, error)
	BookTrip(ctx context.Context, email string, tripID uuid.UUID) (*types.BookTripResponse, error)
	ListBookings(ctx context.Context, email string, tripID uuid.UUID) ([]types.Booking, error)
}

// BookingQueue hands approved trips to the booking engine.
type BookingQueue interface {
	Enqueue(tripID uuid.UUID) error
}

type ServiceImpl struct {
	logger      *slog.Logger
	repo        Repository
	bookingRepo booking.Repository
	profiles    profile.Service
	parser      *planner.Parser
	searcher    search.Service
	queue       BookingQueue
}

func NewService(
	repo Repository,
	bookingRepo booking.Repository,
	profiles profile.Service,
	parser *planner.Parser,
	searcher search.Service,
	queue BookingQueue,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		repo:        repo,
		bookingRepo: bookingRepo,
		profiles:    profiles,
		parser:      parser,
		searcher:    searcher,
		queue:       queue,
	}
}

// CreateTrip runs the synchronous half of the pipeline: parse the request,
// search flights/hotels/activities concurrently, build options. Search
// failures degrade to empty results; only parse or persistence failures
// fail the trip.
func (s *ServiceImpl) CreateTrip(ctx context.Context, email, rawRequest string) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "CreateTrip")
	defer span.End()
	start := time.Now()

	user, err := s.profiles.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}

	trip, err := s.repo.Create(ctx, user.ID, rawRequest)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("trip.id", trip.ID.String()))

	spec, err := s.parser.Parse(ctx, rawRequest)
	if err != nil {
		s.failTrip(ctx, trip.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Parse failed")
		return nil, fmt.Errorf("failed to parse trip request: %w", err)
	}
	if err := s.repo.SaveParsedSpec(ctx, trip.ID, spec, types.TripStatusSearching); err != nil {
		s.failTrip(ctx, trip.ID)
		return nil, err
	}

	flights, hotels, activities := s.runSearches(ctx, spec)

	options := planner.BuildItineraryOptions(flights, hotels, spec.BudgetTotal, activities)
	status := types.TripStatusOptionsReady
	if len(options) == 0 {
		status = types.TripStatusSearchFailed
	}
	if err := s.repo.SaveItineraryOptions(ctx, trip.ID, options, status); err != nil {
		s.failTrip(ctx, trip.ID)
		return nil, err
	}

	if m := metrics.Get(); m != nil {
		m.TripsCreatedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
		m.TripSearchDuration.Record(ctx, time.Since(start).Seconds())
	}

	trip.ParsedSpec = spec
	trip.ItineraryOptions = options
	trip.Status = status
	return trip, nil
}

// runSearches fans out the three searches. Failures are logged and degrade
// to empty slices so one flaky supplier does not kill the trip.
func (s *ServiceImpl) runSearches(ctx context.Context, spec *types.TripSpec) ([]types.FlightOffer, []types.HotelOfferData, []types.ActivityOption) {
	var (
		flights    []types.FlightOffer
		hotels     []types.HotelOfferData
		activities []types.ActivityOption
	)

	g, gctx := errgroup.WithContext(ctx)

	if spec.Origin != "" && spec.Destination != "" && spec.DepartDate != "" {
		g.Go(func() error {
			result, err := s.searcher.SearchFlights(gctx, search.FlightSearchParams{
				Origin:      spec.Origin,
				Destination: spec.Destination,
				DepartDate:  spec.DepartDate,
				ReturnDate:  spec.ReturnDate,
				Adults:      spec.NumTravelers,
				TravelClass: spec.CabinClass,
			})
			if err != nil {
				s.logger.WarnContext(gctx, "Flight search failed", slog.Any("error", err))
				return nil
			}
			flights = result
			return nil
		})
	}

	if spec.Destination != "" && spec.DepartDate != "" && spec.ReturnDate != "" {
		g.Go(func() error {
			result, err := s.searcher.SearchHotels(gctx, search.HotelSearchParams{
				CityCode: spec.Destination,
				CheckIn:  spec.DepartDate,
				CheckOut: spec.ReturnDate,
				Adults:   spec.NumTravelers,
			})
			if err != nil {
				s.logger.WarnContext(gctx, "Hotel search failed", slog.Any("error", err))
				return nil
			}
			hotels = result
			return nil
		})
	}

	if spec.IncludeActivities && spec.Destination != "" && spec.DepartDate != "" {
		g.Go(func() error {
			result, err := s.searcher.SearchActivities(gctx, spec.Destination, spec.DepartDate, spec.ReturnDate)
			if err != nil {
				s.logger.WarnContext(gctx, "Activity search failed", slog.Any("error", err))
				return nil
			}
			activities = result
			return nil
		})
	}

	// Workers only return nil; Wait is for synchronization.
	_ = g.Wait()
	return flights, hotels, activities
}

func (s *ServiceImpl) failTrip(ctx context.Context, tripID uuid.UUID) {
	if err := s.repo.UpdateStatus(ctx, tripID, types.TripStatusFailed); err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark trip failed",
			slog.String("trip_id", tripID.String()), slog.Any("error", err))
	}
}

func (s *ServiceImpl) ListTrips(ctx context.Context, email string) ([]types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ListTrips")
	defer span.End()

	user, err := s.profiles.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, user.ID)
}

func (s *ServiceImpl) GetTrip(ctx context.Context, email string, tripID uuid.UUID) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "GetTrip")
	defer span.End()

	user, err := s.profiles.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, tripID, user.ID)
}

func (s *ServiceImpl) ApproveTrip(ctx context.Context, email string, tripID uuid.UUID, optionIndex int) (*types.Trip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ApproveTrip", trace.WithAttributes(
		attribute.Int("trip.option_index", optionIndex),
	))
	defer span.End()

	user, err := s.profiles.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}
	trip, err := s.repo.GetByID(ctx, tripID, user.ID)
	if err != nil {
		return nil, err
	}

	if trip.Status != types.TripStatusOptionsReady {
		return nil, fmt.Errorf("trip is not in options_ready state (current: %s): %w",
			trip.Status, types.ErrInvalidTransition)
	}
	if optionIndex < 0 || optionIndex >= len(trip.ItineraryOptions) {
		return nil, fmt.Errorf("invalid option_index %d (only %d options available): %w",
			optionIndex, len(trip.ItineraryOptions), types.ErrInvalidTransition)
	}

	approved := trip.ItineraryOptions[optionIndex]
	if err := s.repo.SaveApprovedItinerary(ctx, trip.ID, &approved); err != nil {
		return nil, err
	}

	trip.ApprovedItinerary = &approved
	trip.Status = types.TripStatusApproved
	return trip, nil
}

// BookTrip creates one pending booking per itinerary component, flips the
// trip to booking and hands it to the engine. Responds before any booking
// work happens; the caller polls ListBookings for progress.
func (s *ServiceImpl) BookTrip(ctx context.Context, email string, tripID uuid.UUID) (*types.BookTripResponse, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "BookTrip")
	defer span.End()

	user, err := s.profiles.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}
	trip, err := s.repo.GetByID(ctx, tripID, user.ID)
	if err != nil {
		return nil, err
	}

	if trip.Status != types.TripStatusApproved {
		return nil, fmt.Errorf("trip must be approved before booking (current: %s): %w",
			trip.Status, types.ErrInvalidTransition)
	}
	if user.FirstName == nil || *user.FirstName == "" || user.LastName == nil || *user.LastName == "" {
		return nil, fmt.Errorf("first and last name required before booking: %w", types.ErrProfileIncomplete)
	}

	approved := trip.ApprovedItinerary
	if approved == nil {
		return nil, fmt.Errorf("approved trip has no itinerary: %w", types.ErrInvalidTransition)
	}

	var stubs []types.BookingStub
	if approved.Flight != nil {
		b, err := s.bookingRepo.Create(ctx, trip.ID, types.BookingTypeFlight, map[string]any{"flight": approved.Flight})
		if err != nil {
			return nil, err
		}
		stubs = append(stubs, types.BookingStub{ID: b.ID, Type: b.Type, Status: b.Status})
	}
	if approved.Hotel != nil {
		b, err := s.bookingRepo.Create(ctx, trip.ID, types.BookingTypeHotel, map[string]any{"hotel": approved.Hotel})
		if err != nil {
			return nil, err
		}
		stubs = append(stubs, types.BookingStub{ID: b.ID, Type: b.Type, Status: b.Status})
	}
	for _, activity := range approved.Activities {
		b, err := s.bookingRepo.Create(ctx, trip.ID, types.BookingTypeActivity, map[string]any{"activity": activity})
		if err != nil {
			return nil, err
		}
		stubs = append(stubs, types.BookingStub{ID: b.ID, Type: b.Type, Status: b.Status})
	}

	if err := s.repo.UpdateStatus(ctx, trip.ID, types.TripStatusBooking); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(trip.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue trip for booking",
			slog.String("trip_id", trip.ID.String()), slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to start booking: %w", err)
	}

	return &types.BookTripResponse{
		TripID:   trip.ID,
		Status:   types.TripStatusBooking,
		Bookings: stubs,
	}, nil
}

func (s *ServiceImpl) ListBookings(ctx context.Context, email string, tripID uuid.UUID) ([]types.Booking, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ListBookings")
	defer span.End()

	user, err := s.profiles.GetOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}
	// Ownership check before exposing logs.
	if _, err := s.repo.GetByID(ctx, tripID, user.ID); err != nil {
		return nil, err
	}
	return s.bookingRepo.ListByTripWithLogs(ctx, tripID)
}
