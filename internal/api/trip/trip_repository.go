package trip

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/api"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository defines persistence for trips.
type Repository interface {
	Create(ctx context.Context, userID uuid.UUID, rawRequest string) (*types.Trip, error)
	GetByID(ctx context.Context, tripID, userID uuid.UUID) (*types.Trip, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Trip, error)
	UpdateStatus(ctx context.Context, tripID uuid.UUID, status types.TripStatus) error
	SaveParsedSpec(ctx context.Context, tripID uuid.UUID, spec *types.TripSpec, status types.TripStatus) error
	SaveItineraryOptions(ctx context.Context, tripID uuid.UUID, options []types.ItineraryOption, status types.TripStatus) error
	SaveApprovedItinerary(ctx context.Context, tripID uuid.UUID, option *types.ItineraryOption) error
	ListIDsByStatus(ctx context.Context, status types.TripStatus) ([]uuid.UUID, error)
	GetForBooking(ctx context.Context, tripID uuid.UUID) (*types.Trip, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     api.PGXQuerier
}

func NewRepository(db api.PGXQuerier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

const tripColumns = `
        id, user_id, status, raw_request,
        parsed_spec, itinerary_options, approved_itinerary,
        created_at, updated_at`

func (r *RepositoryImpl) scanTrip(row pgx.Row) (*types.Trip, error) {
	var trip types.Trip
	var parsedSpec, options, approved []byte
	err := row.Scan(
		&trip.ID, &trip.UserID, &trip.Status, &trip.RawRequest,
		&parsedSpec, &options, &approved,
		&trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(parsedSpec) > 0 {
		if err := json.Unmarshal(parsedSpec, &trip.ParsedSpec); err != nil {
			return nil, fmt.Errorf("failed to decode parsed spec: %w", err)
		}
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &trip.ItineraryOptions); err != nil {
			return nil, fmt.Errorf("failed to decode itinerary options: %w", err)
		}
	}
	if len(approved) > 0 {
		if err := json.Unmarshal(approved, &trip.ApprovedItinerary); err != nil {
			return nil, fmt.Errorf("failed to decode approved itinerary: %w", err)
		}
	}
	return &trip, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, userID uuid.UUID, rawRequest string) (*types.Trip, error) {
	query := `
        INSERT INTO trips (user_id, raw_request, status)
        VALUES ($1, $2, $3)
        RETURNING` + tripColumns
	trip, err := r.scanTrip(r.db.QueryRow(ctx, query, userID, rawRequest, types.TripStatusParsing))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create trip", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}
	return trip, nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, tripID, userID uuid.UUID) (*types.Trip, error) {
	query := `SELECT` + tripColumns + ` FROM trips WHERE id = $1 AND user_id = $2`
	trip, err := r.scanTrip(r.db.QueryRow(ctx, query, tripID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("trip %s: %w", tripID, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to get trip", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

// GetForBooking loads a trip by id without a user filter. The booking engine
// already holds a trusted trip id.
func (r *RepositoryImpl) GetForBooking(ctx context.Context, tripID uuid.UUID) (*types.Trip, error) {
	query := `SELECT` + tripColumns + ` FROM trips WHERE id = $1`
	trip, err := r.scanTrip(r.db.QueryRow(ctx, query, tripID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("trip %s: %w", tripID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return trip, nil
}

func (r *RepositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Trip, error) {
	query := `SELECT` + tripColumns + ` FROM trips WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list trips", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	trips := make([]types.Trip, 0)
	for rows.Next() {
		trip, err := r.scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading trip rows: %w", err)
	}
	return trips, nil
}

func (r *RepositoryImpl) UpdateStatus(ctx context.Context, tripID uuid.UUID, status types.TripStatus) error {
	query := `UPDATE trips SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, tripID, status)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update trip status", slog.Any("error", err))
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %s: %w", tripID, types.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) SaveParsedSpec(ctx context.Context, tripID uuid.UUID, spec *types.TripSpec, status types.TripStatus) error {
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to encode parsed spec: %w", err)
	}
	query := `UPDATE trips SET parsed_spec = $2, status = $3, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, tripID, payload, status); err != nil {
		return fmt.Errorf("failed to save parsed spec: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) SaveItineraryOptions(ctx context.Context, tripID uuid.UUID, options []types.ItineraryOption, status types.TripStatus) error {
	payload, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to encode itinerary options: %w", err)
	}
	query := `UPDATE trips SET itinerary_options = $2, status = $3, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, tripID, payload, status); err != nil {
		return fmt.Errorf("failed to save itinerary options: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) SaveApprovedItinerary(ctx context.Context, tripID uuid.UUID, option *types.ItineraryOption) error {
	payload, err := json.Marshal(option)
	if err != nil {
		return fmt.Errorf("failed to encode approved itinerary: %w", err)
	}
	query := `UPDATE trips SET approved_itinerary = $2, status = $3, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, tripID, payload, types.TripStatusApproved); err != nil {
		return fmt.Errorf("failed to save approved itinerary: %w", err)
	}
	return nil
}

// ListIDsByStatus powers startup recovery of trips left mid-booking.
func (r *RepositoryImpl) ListIDsByStatus(ctx context.Context, status types.TripStatus) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM trips WHERE status = $1`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips by status: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trip id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
