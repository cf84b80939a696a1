package booking

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

// Repository defines persistence for bookings and their append-only agent
// logs.
type Repository interface {
	Create(ctx context.Context, tripID uuid.UUID, bookingType types.BookingType, details map[string]any) (*types.Booking, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]types.Booking, error)
	ListByTripWithLogs(ctx context.Context, tripID uuid.UUID) ([]types.Booking, error)
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, status types.BookingStatus) error
	SetVirtualCard(ctx context.Context, bookingID uuid.UUID, cardID string) error
	MarkConfirmed(ctx context.Context, bookingID uuid.UUID, confirmationNumber string) error
	MarkFailed(ctx context.Context, bookingID uuid.UUID, status types.BookingStatus, reason string) error
	AppendLog(ctx context.Context, log *types.AgentLog) error
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

const bookingColumns = `
        id, trip_id, type, status, confirmation_number, virtual_card_id,
        details, created_at, updated_at`

func scanBooking(row pgx.Row) (*types.Booking, error) {
	var b types.Booking
	var details []byte
	err := row.Scan(
		&b.ID, &b.TripID, &b.Type, &b.Status, &b.ConfirmationNumber, &b.VirtualCardID,
		&details, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &b.Details); err != nil {
			return nil, fmt.Errorf("failed to decode booking details: %w", err)
		}
	}
	return &b, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, tripID uuid.UUID, bookingType types.BookingType, details map[string]any) (*types.Booking, error) {
	payload, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode booking details: %w", err)
	}
	query := `
        INSERT INTO bookings (trip_id, type, status, details)
        VALUES ($1, $2, $3, $4)
        RETURNING` + bookingColumns
	b, err := scanBooking(r.db.QueryRow(ctx, query, tripID, bookingType, types.BookingStatusPending, payload))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create booking", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return b, nil
}

func (r *RepositoryImpl) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]types.Booking, error) {
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE trip_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]types.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ListByTripWithLogs loads bookings and attaches their agent logs. Two
// queries keep the scan simple; the polled payloads are small.
func (r *RepositoryImpl) ListByTripWithLogs(ctx context.Context, tripID uuid.UUID) ([]types.Booking, error) {
	bookings, err := r.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return bookings, nil
	}

	query := `
        SELECT l.id, l.booking_id, l.step, l.action, l.result, l.screenshot_b64, l.error_message, l.created_at
        FROM agent_logs l
        JOIN bookings b ON b.id = l.booking_id
        WHERE b.trip_id = $1
        ORDER BY l.id`
	rows, err := r.db.Query(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent logs: %w", err)
	}
	defer rows.Close()

	logsByBooking := make(map[uuid.UUID][]types.AgentLog)
	for rows.Next() {
		var l types.AgentLog
		if err := rows.Scan(&l.ID, &l.BookingID, &l.Step, &l.Action, &l.Result, &l.ScreenshotB64, &l.ErrorMessage, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent log: %w", err)
		}
		logsByBooking[l.BookingID] = append(logsByBooking[l.BookingID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading agent log rows: %w", err)
	}

	for i := range bookings {
		bookings[i].Logs = logsByBooking[bookings[i].ID]
	}
	return bookings, nil
}

func (r *RepositoryImpl) UpdateStatus(ctx context.Context, bookingID uuid.UUID, status types.BookingStatus) error {
	query := `UPDATE bookings SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, bookingID, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", bookingID, types.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) SetVirtualCard(ctx context.Context, bookingID uuid.UUID, cardID string) error {
	query := `UPDATE bookings SET virtual_card_id = $2, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, bookingID, cardID); err != nil {
		return fmt.Errorf("failed to set virtual card: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) MarkConfirmed(ctx context.Context, bookingID uuid.UUID, confirmationNumber string) error {
	query := `UPDATE bookings SET status = $2, confirmation_number = $3, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, bookingID, types.BookingStatusConfirmed, confirmationNumber); err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}
	return nil
}

// MarkFailed records the terminal failure reason inside the details document
// so the polled endpoint can surface it.
func (r *RepositoryImpl) MarkFailed(ctx context.Context, bookingID uuid.UUID, status types.BookingStatus, reason string) error {
	query := `
        UPDATE bookings
        SET status = $2,
            details = COALESCE(details, '{}'::jsonb) || jsonb_build_object('error', $3::text),
            updated_at = now()
        WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, bookingID, status, reason); err != nil {
		return fmt.Errorf("failed to mark booking failed: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) AppendLog(ctx context.Context, log *types.AgentLog) error {
	query := `
        INSERT INTO agent_logs (booking_id, step, action, result, screenshot_b64, error_message)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.Exec(ctx, query, log.BookingID, log.Step, log.Action, log.Result, log.ScreenshotB64, log.ErrorMessage); err != nil {
		r.logger.ErrorContext(ctx, "Failed to append agent log", slog.Any("error", err))
		return fmt.Errorf("failed to append agent log: %w", err)
	}
	return nil
}
