package profile

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

// Repository defines persistence for traveler records.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	Create(ctx context.Context, email string) (*types.User, error)
	Update(ctx context.Context, user *types.User) error
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

const userColumns = `
        id, email, first_name, last_name, date_of_birth, phone,
        passport_number_enc, tsa_known_traveler_enc,
        seat_preference, meal_preference, loyalty_numbers,
        created_at, updated_at`

func (r *RepositoryImpl) scanUser(row pgx.Row) (*types.User, error) {
	var user types.User
	var loyalty []byte
	err := row.Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.DateOfBirth, &user.Phone,
		&user.PassportNumberEnc, &user.TSAKnownTravelerEnc,
		&user.SeatPreference, &user.MealPreference, &loyalty,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(loyalty) > 0 {
		if err := json.Unmarshal(loyalty, &user.LoyaltyNumbers); err != nil {
			return nil, fmt.Errorf("failed to decode loyalty numbers: %w", err)
		}
	}
	return &user, nil
}

func (r *RepositoryImpl) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`
	user, err := r.scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", email, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to get user by email", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	user, err := r.scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to get user by id", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Create inserts a bare user row for a first-contact email.
func (r *RepositoryImpl) Create(ctx context.Context, email string) (*types.User, error) {
	query := `
        INSERT INTO users (id, email)
        VALUES ($1, $2)
        RETURNING` + userColumns
	user, err := r.scanUser(r.db.QueryRow(ctx, query, uuid.New(), email))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, user *types.User) error {
	loyalty, err := json.Marshal(user.LoyaltyNumbers)
	if err != nil {
		return fmt.Errorf("failed to encode loyalty numbers: %w", err)
	}
	if user.LoyaltyNumbers == nil {
		loyalty = []byte("[]")
	}

	query := `
        UPDATE users SET
            first_name = $2, last_name = $3, date_of_birth = $4, phone = $5,
            passport_number_enc = $6, tsa_known_traveler_enc = $7,
            seat_preference = $8, meal_preference = $9, loyalty_numbers = $10,
            updated_at = now()
        WHERE id = $1
    `
	_, err = r.db.Exec(ctx, query,
		user.ID, user.FirstName, user.LastName, user.DateOfBirth, user.Phone,
		user.PassportNumberEnc, user.TSAKnownTravelerEnc,
		user.SeatPreference, user.MealPreference, loyalty,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update user", slog.Any("error", err))
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
