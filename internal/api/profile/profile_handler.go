package profile

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	appMiddleware "github.com/FACorreiaa/go-travel-booking-agent/app/middleware"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/api"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetProfileHandler(w http.ResponseWriter, r *http.Request)
	UpsertProfileHandler(w http.ResponseWriter, r *http.Request)
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

// GetProfileHandler godoc
// @Summary      Get Traveler Profile
// @Description  Returns the caller's traveler profile with masked secrets
// @Tags         profile
// @Produce      json
// @Success      200 {object} types.ProfileResponse
// @Failure      404 {object} map[string]interface{}
// @Router       /profile [get]
func (h *HandlerImpl) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProfileHandler").Start(r.Context(), "GetProfile")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetProfileHandler"))

	email, ok := appMiddleware.GetUserEmailFromContext(ctx)
	if !ok || email == "" {
		l.ErrorContext(ctx, "User email not found in context")
		span.SetStatus(codes.Error, "Unauthorized - user email missing")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	span.SetAttributes(attribute.String("user.email", email))

	resp, err := h.service.GetProfile(ctx, email)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Error, "Profile not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Profile not found")
			return
		}
		l.ErrorContext(ctx, "Service failed to get profile", slog.Any("error", err))
		span.SetStatus(codes.Error, "Failed to get profile")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	span.SetStatus(codes.Ok, "Profile fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// UpsertProfileHandler godoc
// @Summary      Update Traveler Profile
// @Description  Creates or partially updates the caller's traveler profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Success      200 {object} types.ProfileResponse
// @Failure      400 {object} map[string]interface{}
// @Router       /profile [post]
func (h *HandlerImpl) UpsertProfileHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProfileHandler").Start(r.Context(), "UpsertProfile")
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpsertProfileHandler"))

	email, ok := appMiddleware.GetUserEmailFromContext(ctx)
	if !ok || email == "" {
		l.ErrorContext(ctx, "User email not found in context")
		span.SetStatus(codes.Error, "Unauthorized - user email missing")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	span.SetAttributes(attribute.String("user.email", email))

	var req types.UpdateProfileRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.UpsertProfile(ctx, email, req)
	if err != nil {
		l.ErrorContext(ctx, "Service failed to upsert profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upsert profile")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	l.InfoContext(ctx, "Profile upserted")
	span.SetStatus(codes.Ok, "Profile updated")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
