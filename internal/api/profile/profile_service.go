package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service manages traveler profiles and builds the decrypted passenger
// context consumed by the booking engine.
type Service interface {
	GetProfile(ctx context.Context, email string) (*types.ProfileResponse, error)
	UpsertProfile(ctx context.Context, email string, req types.UpdateProfileRequest) (*types.ProfileResponse, error)
	GetOrCreateUser(ctx context.Context, email string) (*types.User, error)
	TravelerForUser(ctx context.Context, userID uuid.UUID) (*types.Traveler, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	cipher *Cipher
}

func NewService(repo Repository, cipher *Cipher, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cipher: cipher,
	}
}

// mask keeps only the last 4 characters visible.
func mask(value string) *string {
	if value == "" {
		return nil
	}
	masked := "••••"
	if len(value) > 4 {
		masked = "••••" + value[len(value)-4:]
	}
	return &masked
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *ServiceImpl) toResponse(ctx context.Context, user *types.User) (*types.ProfileResponse, error) {
	passport, err := s.cipher.Decrypt(deref(user.PassportNumberEnc))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt passport number: %w", err)
	}
	tsa, err := s.cipher.Decrypt(deref(user.TSAKnownTravelerEnc))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt TSA number: %w", err)
	}

	loyalty := user.LoyaltyNumbers
	if loyalty == nil {
		loyalty = []types.LoyaltyProgram{}
	}

	return &types.ProfileResponse{
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		DateOfBirth:      user.DateOfBirth,
		Phone:            user.Phone,
		PassportNumber:   mask(passport),
		TSAKnownTraveler: mask(tsa),
		SeatPreference:   user.SeatPreference,
		MealPreference:   user.MealPreference,
		LoyaltyNumbers:   loyalty,
	}, nil
}

func (s *ServiceImpl) GetProfile(ctx context.Context, email string) (*types.ProfileResponse, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "GetProfile", trace.WithAttributes(
		attribute.String("user.email", email),
	))
	defer span.End()

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch profile")
		return nil, err
	}
	return s.toResponse(ctx, user)
}

// UpsertProfile applies a partial update. Nil fields are untouched; secret
// fields are only overwritten when a non-empty value was submitted, so a
// round-tripped masked value never clobbers the stored secret.
func (s *ServiceImpl) UpsertProfile(ctx context.Context, email string, req types.UpdateProfileRequest) (*types.ProfileResponse, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "UpsertProfile", trace.WithAttributes(
		attribute.String("user.email", email),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpsertProfile"), slog.String("email", email))

	user, err := s.GetOrCreateUser(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load user")
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = req.FirstName
	}
	if req.LastName != nil {
		user.LastName = req.LastName
	}
	if req.DateOfBirth != nil {
		user.DateOfBirth = req.DateOfBirth
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.SeatPreference != nil {
		user.SeatPreference = req.SeatPreference
	}
	if req.MealPreference != nil {
		user.MealPreference = req.MealPreference
	}
	if req.LoyaltyNumbers != nil {
		user.LoyaltyNumbers = req.LoyaltyNumbers
	}

	if req.PassportNumber != nil && strings.TrimSpace(*req.PassportNumber) != "" {
		enc, err := s.cipher.Encrypt(*req.PassportNumber)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to encrypt passport number: %w", err)
		}
		user.PassportNumberEnc = &enc
	}
	if req.TSAKnownTraveler != nil && strings.TrimSpace(*req.TSAKnownTraveler) != "" {
		enc, err := s.cipher.Encrypt(*req.TSAKnownTraveler)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to encrypt TSA number: %w", err)
		}
		user.TSAKnownTravelerEnc = &enc
	}

	if err := s.repo.Update(ctx, user); err != nil {
		l.ErrorContext(ctx, "Failed to persist profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist profile")
		return nil, err
	}

	l.InfoContext(ctx, "Profile updated")
	return s.toResponse(ctx, user)
}

// GetOrCreateUser returns the user row for an email, creating it on first
// contact.
func (s *ServiceImpl) GetOrCreateUser(ctx context.Context, email string) (*types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	return s.repo.Create(ctx, email)
}

// TravelerForUser builds the decrypted passenger context for the booking
// engine. Secrets leave this method only in memory.
func (s *ServiceImpl) TravelerForUser(ctx context.Context, userID uuid.UUID) (*types.Traveler, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "TravelerForUser")
	defer span.End()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	passport, err := s.cipher.Decrypt(deref(user.PassportNumberEnc))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt passport number: %w", err)
	}
	tsa, err := s.cipher.Decrypt(deref(user.TSAKnownTravelerEnc))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt TSA number: %w", err)
	}

	seat := deref(user.SeatPreference)
	if seat == "" {
		seat = "No preference"
	}
	meal := deref(user.MealPreference)
	if meal == "" {
		meal = "No preference"
	}

	loyalty := user.LoyaltyNumbers
	if loyalty == nil {
		loyalty = []types.LoyaltyProgram{}
	}

	return &types.Traveler{
		FirstName:      deref(user.FirstName),
		LastName:       deref(user.LastName),
		DateOfBirth:    deref(user.DateOfBirth),
		Phone:          deref(user.Phone),
		Email:          user.Email,
		SeatPreference: seat,
		MealPreference: meal,
		LoyaltyNumbers: loyalty,
		PassportNumber: passport,
		TSANumber:      tsa,
	}, nil
}
