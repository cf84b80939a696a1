package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

type MockTripStore struct{ mock.Mock }

func (m *MockTripStore) GetForBooking(ctx context.Context, tripID uuid.UUID) (*types.Trip, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripStore) UpdateStatus(ctx context.Context, tripID uuid.UUID, status types.TripStatus) error {
	return m.Called(ctx, tripID, status).Error(0)
}

func (m *MockTripStore) ListIDsByStatus(ctx context.Context, status types.TripStatus) ([]uuid.UUID, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockBookingRepo struct{ mock.Mock }

func (m *MockBookingRepo) Create(ctx context.Context, tripID uuid.UUID, t types.BookingType, details map[string]any) (*types.Booking, error) {
	args := m.Called(ctx, tripID, t, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]types.Booking, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListByTripWithLogs(ctx context.Context, tripID uuid.UUID) ([]types.Booking, error) {
	args := m.Called(ctx, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Booking), args.Error(1)
}

func (m *MockBookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status types.BookingStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockBookingRepo) SetVirtualCard(ctx context.Context, id uuid.UUID, cardID string) error {
	return m.Called(ctx, id, cardID).Error(0)
}

func (m *MockBookingRepo) MarkConfirmed(ctx context.Context, id uuid.UUID, confirmation string) error {
	return m.Called(ctx, id, confirmation).Error(0)
}

func (m *MockBookingRepo) MarkFailed(ctx context.Context, id uuid.UUID, status types.BookingStatus, reason string) error {
	return m.Called(ctx, id, status, reason).Error(0)
}

func (m *MockBookingRepo) AppendLog(ctx context.Context, log *types.AgentLog) error {
	return m.Called(ctx, log).Error(0)
}

type MockTravelerSource struct{ mock.Mock }

func (m *MockTravelerSource) TravelerForUser(ctx context.Context, userID uuid.UUID) (*types.Traveler, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Traveler), args.Error(1)
}

type MockCardIssuer struct{ mock.Mock }

func (m *MockCardIssuer) Create(ctx context.Context, amountUSD float64, description, userEmail string) (*types.VirtualCard, error) {
	args := m.Called(ctx, amountUSD, description, userEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.VirtualCard), args.Error(1)
}

func (m *MockCardIssuer) Void(ctx context.Context, cardID string) error {
	return m.Called(ctx, cardID).Error(0)
}

type MockAgent struct{ mock.Mock }

func (m *MockAgent) Run(ctx context.Context, req AgentRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockMailer struct{ mock.Mock }

func (m *MockMailer) SendBookingConfirmation(ctx context.Context, userEmail, userName string, confirmation *types.Confirmation) {
	m.Called(ctx, userEmail, userName, confirmation)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type engineFixture struct {
	engine    *Engine
	trips     *MockTripStore
	bookings  *MockBookingRepo
	travelers *MockTravelerSource
	cards     *MockCardIssuer
	agent     *MockAgent
	mailer    *MockMailer
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		trips:     new(MockTripStore),
		bookings:  new(MockBookingRepo),
		travelers: new(MockTravelerSource),
		cards:     new(MockCardIssuer),
		agent:     new(MockAgent),
		mailer:    new(MockMailer),
	}
	f.engine = NewEngine(f.trips, f.bookings, f.travelers, f.cards, f.agent, f.mailer,
		1, 8, time.Millisecond, discardLogger())
	return f
}

func approvedTrip(tripID, userID uuid.UUID) *types.Trip {
	price := 780.0
	hotelPrice := 620.0
	return &types.Trip{
		ID:     tripID,
		UserID: userID,
		Status: types.TripStatusBooking,
		ParsedSpec: &types.TripSpec{
			Destination:     "NRT",
			DestinationCity: "Tokyo",
			DepartDate:      "2026-10-10",
			ReturnDate:      "2026-10-17",
		},
		ApprovedItinerary: &types.ItineraryOption{
			Label:    "Budget",
			Flight:   &types.FlightOption{ID: "f1", PriceUSD: price, Carrier: "UA"},
			Hotel:    &types.HotelOption{HotelID: "h1", Name: "Dormy Inn", PriceTotalUSD: hotelPrice},
			TotalUSD: price + hotelPrice,
		},
	}
}

func TestExecuteTrip_AllConfirmedSendsEmail(t *testing.T) {
	f := newEngineFixture()
	tripID, userID := uuid.New(), uuid.New()
	flightBooking := types.Booking{ID: uuid.New(), TripID: tripID, Type: types.BookingTypeFlight, Status: types.BookingStatusPending}
	hotelBooking := types.Booking{ID: uuid.New(), TripID: tripID, Type: types.BookingTypeHotel, Status: types.BookingStatusPending}
	trip := approvedTrip(tripID, userID)
	traveler := &types.Traveler{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	card := &types.VirtualCard{CardID: "mock_card_abc", Number: "4111111111111111", Mock: true}

	f.trips.On("GetForBooking", mock.Anything, tripID).Return(trip, nil)
	f.travelers.On("TravelerForUser", mock.Anything, userID).Return(traveler, nil)
	f.bookings.On("ListByTrip", mock.Anything, tripID).Return([]types.Booking{flightBooking, hotelBooking}, nil)

	f.bookings.On("UpdateStatus", mock.Anything, flightBooking.ID, types.BookingStatusInProgress).Return(nil)
	f.bookings.On("UpdateStatus", mock.Anything, hotelBooking.ID, types.BookingStatusInProgress).Return(nil)
	f.cards.On("Create", mock.Anything, 780.0, mock.Anything, "ada@example.com").Return(card, nil)
	f.cards.On("Create", mock.Anything, 620.0, mock.Anything, "ada@example.com").Return(card, nil)
	f.bookings.On("SetVirtualCard", mock.Anything, mock.Anything, "mock_card_abc").Return(nil)
	f.agent.On("Run", mock.Anything, mock.MatchedBy(func(r AgentRequest) bool { return r.Type == types.BookingTypeFlight })).
		Return("ABC123", nil)
	f.agent.On("Run", mock.Anything, mock.MatchedBy(func(r AgentRequest) bool { return r.Type == types.BookingTypeHotel })).
		Return("XYZ789", nil)
	f.bookings.On("MarkConfirmed", mock.Anything, flightBooking.ID, "ABC123").Return(nil)
	f.bookings.On("MarkConfirmed", mock.Anything, hotelBooking.ID, "XYZ789").Return(nil)
	f.trips.On("UpdateStatus", mock.Anything, tripID, types.TripStatusConfirmed).Return(nil)
	f.mailer.On("SendBookingConfirmation", mock.Anything, "ada@example.com", "Ada Lovelace", mock.Anything).Return()

	err := f.engine.executeTrip(context.Background(), tripID)
	require.NoError(t, err)

	f.trips.AssertExpectations(t)
	f.bookings.AssertExpectations(t)
	f.mailer.AssertExpectations(t)
}

func TestExecuteTrip_UnsupportedCarrierMarksUnsupported(t *testing.T) {
	f := newEngineFixture()
	tripID, userID := uuid.New(), uuid.New()
	flightBooking := types.Booking{ID: uuid.New(), TripID: tripID, Type: types.BookingTypeFlight, Status: types.BookingStatusPending}
	trip := approvedTrip(tripID, userID)
	traveler := &types.Traveler{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	card := &types.VirtualCard{CardID: "mock_card_abc", Mock: true}

	f.trips.On("GetForBooking", mock.Anything, tripID).Return(trip, nil)
	f.travelers.On("TravelerForUser", mock.Anything, userID).Return(traveler, nil)
	f.bookings.On("ListByTrip", mock.Anything, tripID).Return([]types.Booking{flightBooking}, nil)
	f.bookings.On("UpdateStatus", mock.Anything, flightBooking.ID, types.BookingStatusInProgress).Return(nil)
	f.cards.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(card, nil)
	f.bookings.On("SetVirtualCard", mock.Anything, flightBooking.ID, "mock_card_abc").Return(nil)
	f.agent.On("Run", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("carrier JL is not supported: %w", ErrNotSupported))
	f.bookings.On("MarkFailed", mock.Anything, flightBooking.ID, types.BookingStatusUnsupported, mock.Anything).Return(nil)
	f.cards.On("Void", mock.Anything, "mock_card_abc").Return(nil)
	f.trips.On("UpdateStatus", mock.Anything, tripID, types.TripStatusBookingFailed).Return(nil)

	err := f.engine.executeTrip(context.Background(), tripID)
	require.NoError(t, err)

	f.bookings.AssertExpectations(t)
	f.cards.AssertCalled(t, "Void", mock.Anything, "mock_card_abc")
	f.mailer.AssertNotCalled(t, "SendBookingConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteTrip_AgentErrorVoidsCardAndFailsTrip(t *testing.T) {
	f := newEngineFixture()
	tripID, userID := uuid.New(), uuid.New()
	flightBooking := types.Booking{ID: uuid.New(), TripID: tripID, Type: types.BookingTypeFlight, Status: types.BookingStatusPending}
	trip := approvedTrip(tripID, userID)
	traveler := &types.Traveler{Email: "ada@example.com"}
	card := &types.VirtualCard{CardID: "mock_card_xyz", Mock: true}

	f.trips.On("GetForBooking", mock.Anything, tripID).Return(trip, nil)
	f.travelers.On("TravelerForUser", mock.Anything, userID).Return(traveler, nil)
	f.bookings.On("ListByTrip", mock.Anything, tripID).Return([]types.Booking{flightBooking}, nil)
	f.bookings.On("UpdateStatus", mock.Anything, flightBooking.ID, types.BookingStatusInProgress).Return(nil)
	f.cards.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(card, nil)
	f.bookings.On("SetVirtualCard", mock.Anything, flightBooking.ID, "mock_card_xyz").Return(nil)
	f.agent.On("Run", mock.Anything, mock.Anything).Return("", errors.New("card declined"))
	f.bookings.On("MarkFailed", mock.Anything, flightBooking.ID, types.BookingStatusFailed, "card declined").Return(nil)
	f.cards.On("Void", mock.Anything, "mock_card_xyz").Return(nil)
	f.trips.On("UpdateStatus", mock.Anything, tripID, types.TripStatusBookingFailed).Return(nil)

	err := f.engine.executeTrip(context.Background(), tripID)
	require.NoError(t, err)
	f.bookings.AssertExpectations(t)
}

func TestExecuteTrip_MissingTripIsNotAnError(t *testing.T) {
	f := newEngineFixture()
	tripID := uuid.New()
	f.trips.On("GetForBooking", mock.Anything, tripID).Return(nil, types.ErrNotFound)

	err := f.engine.executeTrip(context.Background(), tripID)
	assert.NoError(t, err)
}

func TestExecuteTrip_StoreErrorPropagatesForRetry(t *testing.T) {
	f := newEngineFixture()
	tripID := uuid.New()
	f.trips.On("GetForBooking", mock.Anything, tripID).Return(nil, errors.New("connection refused"))

	err := f.engine.executeTrip(context.Background(), tripID)
	assert.Error(t, err)
}

func TestEnqueue_FullQueue(t *testing.T) {
	f := newEngineFixture()
	// Queue size is 8 and no workers are running.
	for i := 0; i < 8; i++ {
		require.NoError(t, f.engine.Enqueue(uuid.New()))
	}
	assert.Error(t, f.engine.Enqueue(uuid.New()))
}

func TestRecover_ReenqueuesBookingTrips(t *testing.T) {
	f := newEngineFixture()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	f.trips.On("ListIDsByStatus", mock.Anything, types.TripStatusBooking).Return(ids, nil)

	require.NoError(t, f.engine.Recover(context.Background()))
	assert.Len(t, f.engine.queue, 2)
}

func TestCardAmount_PerComponent(t *testing.T) {
	approved := &types.ItineraryOption{
		Flight:             &types.FlightOption{PriceUSD: 780},
		Hotel:              &types.HotelOption{PriceTotalUSD: 620},
		ActivitiesTotalUSD: 165,
		TotalUSD:           1565,
	}

	assert.Equal(t, 780.0, cardAmount(types.BookingTypeFlight, approved, 0))
	assert.Equal(t, 620.0, cardAmount(types.BookingTypeHotel, approved, 0))
	assert.Equal(t, 55.0, cardAmount(types.BookingTypeActivity, approved, 3))
	assert.Equal(t, 0.0, cardAmount(types.BookingTypeActivity, approved, 0))

	bare := &types.ItineraryOption{TotalUSD: 999}
	assert.Equal(t, 999.0, cardAmount(types.BookingTypeFlight, bare, 0))
}
