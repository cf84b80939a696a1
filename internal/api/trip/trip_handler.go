package trip

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	appMiddleware "github.com/FACorreiaa/go-travel-booking-agent/app/middleware"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CreateTripHandler(w http.ResponseWriter, r *http.Request)
	ListTripsHandler(w http.ResponseWriter, r *http.Request)
	GetTripHandler(w http.ResponseWriter, r *http.Request)
	ApproveTripHandler(w http.ResponseWriter, r *http.Request)
	BookTripHandler(w http.ResponseWriter, r *http.Request)
	ListBookingsHandler(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
}

func NewHandler(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger:  logger,
		service: service,
	}
}

func (h *HandlerImpl) callerEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := appMiddleware.GetUserEmailFromContext(r.Context())
	if !ok || email == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return email, true
}

func (h *HandlerImpl) tripID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "tripID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid trip ID")
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps domain sentinels onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Trip not found")
	case errors.Is(err, types.ErrInvalidTransition), errors.Is(err, types.ErrProfileIncomplete):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// CreateTripHandler godoc
// @Summary      Create Trip
// @Description  Parses a plain-English trip request, searches for flights and hotels, and returns curated itinerary options
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        request body types.CreateTripRequest true "Trip request"
// @Success      201 {object} types.Trip
// @Failure      400 {object} map[string]interface{}
// @Router       /trips [post]
func (h *HandlerImpl) CreateTripHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "CreateTrip")
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateTripHandler"))

	email, ok := h.callerEmail(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("user.email", email))

	var req types.CreateTripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.RawRequest == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "raw_request is required")
		return
	}

	trip, err := h.service.CreateTrip(ctx, email, req.RawRequest)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Trip creation failed")
		writeServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, trip)
}

// ListTripsHandler godoc
// @Summary      List Trips
// @Description  Returns the caller's trips, newest first
// @Tags         trips
// @Produce      json
// @Success      200 {array} types.Trip
// @Router       /trips [get]
func (h *HandlerImpl) ListTripsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ListTrips")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListTripsHandler"))

	email, ok := h.callerEmail(w, r)
	if !ok {
		return
	}

	trips, err := h.service.ListTrips(ctx, email)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list trips", slog.Any("error", err))
		span.RecordError(err)
		writeServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, trips)
}

// GetTripHandler godoc
// @Summary      Get Trip
// @Tags         trips
// @Produce      json
// @Param        tripID path string true "Trip ID"
// @Success      200 {object} types.Trip
// @Failure      404 {object} map[string]interface{}
// @Router       /trips/{tripID} [get]
func (h *HandlerImpl) GetTripHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "GetTrip")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetTripHandler"))

	email, ok := h.callerEmail(w, r)
	if !ok {
		return
	}
	tripID, ok := h.tripID(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("trip.id", tripID.String()))

	trip, err := h.service.GetTrip(ctx, email, tripID)
	if err != nil {
		l.WarnContext(ctx, "Failed to get trip", slog.String("trip_id", tripID.String()), slog.Any("error", err))
		writeServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, trip)
}

// ApproveTripHandler godoc
// @Summary      Approve Itinerary Option
// @Description  Locks in one of the trip's itinerary options
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        tripID path string true "Trip ID"
// @Param        request body types.ApproveTripRequest true "Option selection"
// @Success      200 {object} types.Trip
// @Failure      400 {object} map[string]interface{}
// @Router       /trips/{tripID}/approve [post]
func (h *HandlerImpl) ApproveTripHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ApproveTrip")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ApproveTripHandler"))

	email, ok := h.callerEmail(w, r)
	if !ok {
		return
	}
	tripID, ok := h.tripID(w, r)
	if !ok {
		return
	}

	var req types.ApproveTripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	trip, err := h.service.ApproveTrip(ctx, email, tripID, req.OptionIndex)
	if err != nil {
		l.WarnContext(ctx, "Failed to approve trip", slog.String("trip_id", tripID.String()), slog.Any("error", err))
		span.RecordError(err)
		writeServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, trip)
}

// BookTripHandler godoc
// @Summary      Book Trip
// @Description  Starts asynchronous booking for an approved trip; poll the bookings endpoint for progress
// @Tags         trips
// @Produce      json
// @Param        tripID path string true "Trip ID"
// @Success      202 {object} types.BookTripResponse
// @Failure      400 {object} map[string]interface{}
// @Router       /trips/{tripID}/book [post]
func (h *HandlerImpl) BookTripHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "BookTrip")
	defer span.End()
	l := h.logger.With(slog.String("handler", "BookTripHandler"))

	email, ok := h.callerEmail(w, r)
	if !ok {
		return
	}
	tripID, ok := h.tripID(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("trip.id", tripID.String()))

	resp, err := h.service.BookTrip(ctx, email, tripID)
	if err != nil {
		l.WarnContext(ctx, "Failed to start booking", slog.String("trip_id", tripID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Booking start failed")
		writeServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusAccepted, resp)
}

// ListBookingsHandler godoc
// @Summary      List Trip Bookings
// @Description  Returns all bookings for a trip with their agent logs; polled during booking
// @Tags         trips
// @Produce      json
// @Param        tripID path string true "Trip ID"
// @Success      200 {array} types.Booking
// @Failure      404 {object} map[string]interface{}
// @Router       /trips/{tripID}/bookings [get]
func (h *HandlerImpl) ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ListBookings")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListBookingsHandler"))

	email, ok := h.callerEmail(w, r)
	if !ok {
		return
	}
	tripID, ok := h.tripID(w, r)
	if !ok {
		return
	}

	bookings, err := h.service.ListBookings(ctx, email, tripID)
	if err != nil {
		l.WarnContext(ctx, "Failed to list bookings", slog.String("trip_id", tripID.String()), slog.Any("error", err))
		writeServiceError(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, bookings)
}
