package types

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyProgram is one frequent-flyer / hotel loyalty membership.
type LoyaltyProgram struct {
	Program string `json:"program"`
	Number  string `json:"number"`
}

// User is the traveler record as stored. Passport and TSA numbers are held
// encrypted; only the profile service sees them decrypted.
type User struct {
	ID                  uuid.UUID
	Email               string
	FirstName           *string
	LastName            *string
	DateOfBirth         *string // YYYY-MM-DD
	Phone               *string
	PassportNumberEnc   *string
	TSAKnownTravelerEnc *string
	SeatPreference      *string
	MealPreference      *string
	LoyaltyNumbers      []LoyaltyProgram
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UpdateProfileRequest carries a partial profile update. Nil fields are left
// untouched; secret fields are only overwritten when non-empty.
type UpdateProfileRequest struct {
	FirstName        *string          `json:"first_name,omitempty"`
	LastName         *string          `json:"last_name,omitempty"`
	DateOfBirth      *string          `json:"date_of_birth,omitempty"`
	Phone            *string          `json:"phone,omitempty"`
	PassportNumber   *string          `json:"passport_number,omitempty"`
	TSAKnownTraveler *string          `json:"tsa_known_traveler,omitempty"`
	SeatPreference   *string          `json:"seat_preference,omitempty"`
	MealPreference   *string          `json:"meal_preference,omitempty"`
	LoyaltyNumbers   []LoyaltyProgram `json:"loyalty_numbers,omitempty"`
}

// ProfileResponse is the outward profile view. Secret fields are masked to
// their last four characters.
type ProfileResponse struct {
	FirstName        *string          `json:"first_name,omitempty"`
	LastName         *string          `json:"last_name,omitempty"`
	DateOfBirth      *string          `json:"date_of_birth,omitempty"`
	Phone            *string          `json:"phone,omitempty"`
	PassportNumber   *string          `json:"passport_number,omitempty"`
	TSAKnownTraveler *string          `json:"tsa_known_traveler,omitempty"`
	SeatPreference   *string          `json:"seat_preference,omitempty"`
	MealPreference   *string          `json:"meal_preference,omitempty"`
	LoyaltyNumbers   []LoyaltyProgram `json:"loyalty_numbers"`
}
