package trip

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appMiddleware "github.com/FACorreiaa/go-travel-booking-agent/app/middleware"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

type MockTripService struct{ mock.Mock }

func (m *MockTripService) CreateTrip(ctx context.Context, email, rawRequest string) (*types.Trip, error) {
	args := m.Called(ctx, email, rawRequest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) ListTrips(ctx context.Context, email string) ([]types.Trip, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Trip), args.Error(1)
}

func (m *MockTripService) GetTrip(ctx context.Context, email string, tripID uuid.UUID) (*types.Trip, error) {
	args := m.Called(ctx, email, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) ApproveTrip(ctx context.Context, email string, tripID uuid.UUID, optionIndex int) (*types.Trip, error) {
	args := m.Called(ctx, email, tripID, optionIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Trip), args.Error(1)
}

func (m *MockTripService) BookTrip(ctx context.Context, email string, tripID uuid.UUID) (*types.BookTripResponse, error) {
	args := m.Called(ctx, email, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BookTripResponse), args.Error(1)
}

func (m *MockTripService) ListBookings(ctx context.Context, email string, tripID uuid.UUID) ([]types.Booking, error) {
	args := m.Called(ctx, email, tripID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Booking), args.Error(1)
}

const testEmail = "ada@example.com"

func newTestRouter(service Service) chi.Router {
	h := NewHandler(service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/trips", func(r chi.Router) {
		r.Post("/", h.CreateTripHandler)
		r.Get("/", h.ListTripsHandler)
		r.Route("/{tripID}", func(r chi.Router) {
			r.Get("/", h.GetTripHandler)
			r.Post("/approve", h.ApproveTripHandler)
			r.Post("/book", h.BookTripHandler)
			r.Get("/bookings", h.ListBookingsHandler)
		})
	})
	return r
}

func authedRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := context.WithValue(req.Context(), appMiddleware.UserEmailKey, testEmail)
	return req.WithContext(ctx)
}

func TestCreateTripHandler(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	trip := &types.Trip{ID: uuid.New(), Status: types.TripStatusOptionsReady, RawRequest: "Plan me a trip"}
	service.On("CreateTrip", mock.Anything, testEmail, "Plan me a trip").Return(trip, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/trips", `{"raw_request": "Plan me a trip"}`))

	require.Equal(t, http.StatusCreated, rr.Code)
	var got types.Trip
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, trip.ID, got.ID)
	assert.Equal(t, types.TripStatusOptionsReady, got.Status)
	service.AssertExpectations(t)
}

func TestCreateTripHandler_EmptyRawRequest(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/trips", `{"raw_request": ""}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	service.AssertNotCalled(t, "CreateTrip", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTripHandler_Unauthenticated(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/trips", strings.NewReader(`{"raw_request": "x"}`))
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetTripHandler_NotFound(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	tripID := uuid.New()
	service.On("GetTrip", mock.Anything, testEmail, tripID).Return(nil, types.ErrNotFound)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/trips/"+tripID.String(), ""))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetTripHandler_InvalidID(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/trips/not-a-uuid", ""))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	service.AssertNotCalled(t, "GetTrip", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveTripHandler(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	tripID := uuid.New()
	approved := &types.Trip{ID: tripID, Status: types.TripStatusApproved}
	service.On("ApproveTrip", mock.Anything, testEmail, tripID, 1).Return(approved, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/trips/"+tripID.String()+"/approve", `{"option_index": 1}`))

	require.Equal(t, http.StatusOK, rr.Code)
	var got types.Trip
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, types.TripStatusApproved, got.Status)
}

func TestApproveTripHandler_InvalidTransition(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	tripID := uuid.New()
	service.On("ApproveTrip", mock.Anything, testEmail, tripID, 0).Return(nil, types.ErrInvalidTransition)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/trips/"+tripID.String()+"/approve", `{"option_index": 0}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBookTripHandler_Accepted(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	tripID := uuid.New()
	resp := &types.BookTripResponse{
		TripID: tripID,
		Status: types.TripStatusBooking,
		Bookings: []types.BookingStub{
			{ID: uuid.New(), Type: types.BookingTypeFlight, Status: types.BookingStatusPending},
			{ID: uuid.New(), Type: types.BookingTypeHotel, Status: types.BookingStatusPending},
		},
	}
	service.On("BookTrip", mock.Anything, testEmail, tripID).Return(resp, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/trips/"+tripID.String()+"/book", ""))

	require.Equal(t, http.StatusAccepted, rr.Code)
	var got types.BookTripResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, types.TripStatusBooking, got.Status)
	assert.Len(t, got.Bookings, 2)
}

func TestBookTripHandler_ProfileIncomplete(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	tripID := uuid.New()
	service.On("BookTrip", mock.Anything, testEmail, tripID).Return(nil, types.ErrProfileIncomplete)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/trips/"+tripID.String()+"/book", ""))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListBookingsHandler(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	tripID := uuid.New()
	confirmation := "ABC123"
	bookings := []types.Booking{
		{
			ID:                 uuid.New(),
			Type:               types.BookingTypeFlight,
			Status:             types.BookingStatusConfirmed,
			ConfirmationNumber: &confirmation,
			Logs: []types.AgentLog{
				{Step: "navigate", Action: "Navigating to united.com", Result: "success"},
			},
		},
	}
	service.On("ListBookings", mock.Anything, testEmail, tripID).Return(bookings, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/trips/"+tripID.String()+"/bookings", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []types.Booking
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ABC123", *got[0].ConfirmationNumber)
	require.Len(t, got[0].Logs, 1)
	assert.Equal(t, "navigate", got[0].Logs[0].Step)
}

func TestListTripsHandler(t *testing.T) {
	service := new(MockTripService)
	router := newTestRouter(service)

	service.On("ListTrips", mock.Anything, testEmail).Return([]types.Trip{
		{ID: uuid.New(), Status: types.TripStatusConfirmed},
		{ID: uuid.New(), Status: types.TripStatusOptionsReady},
	}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/trips", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []types.Trip
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}
