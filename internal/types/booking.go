package types

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Domain sentinels shared between the HTTP layer and the booking engine.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrProfileIncomplete = errors.New("traveler profile incomplete")
)

type BookingType string

const (
	BookingTypeFlight   BookingType = "flight"
	BookingTypeHotel    BookingType = "hotel"
	BookingTypeActivity BookingType = "activity"
)

type BookingStatus string

const (
	BookingStatusPending     BookingStatus = "pending"
	BookingStatusInProgress  BookingStatus = "in_progress"
	BookingStatusConfirmed   BookingStatus = "confirmed"
	BookingStatusFailed      BookingStatus = "failed"
	BookingStatusUnsupported BookingStatus = "unsupported"
)

// Booking is one independent sub-booking of a trip (flight, hotel or
// activity). Sub-bookings fail independently of each other.
type Booking struct {
	ID                 uuid.UUID      `json:"id"`
	TripID             uuid.UUID      `json:"-"`
	Type               BookingType    `json:"type"`
	Status             BookingStatus  `json:"status"`
	ConfirmationNumber *string        `json:"confirmation_number,omitempty"`
	VirtualCardID      *string        `json:"-"`
	Details            map[string]any `json:"details,omitempty"`
	Logs               []AgentLog     `json:"logs,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"-"`
}

// AgentLog is one append-only step record written by the booking agent.
type AgentLog struct {
	ID            int64     `json:"-"`
	BookingID     uuid.UUID `json:"-"`
	Step          string    `json:"step"`
	Action        string    `json:"action"`
	Result        string    `json:"result"`
	ScreenshotB64 *string   `json:"screenshot_b64,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// VirtualCard is a single-use, amount-capped payment credential issued for
// exactly one booking.
type VirtualCard struct {
	CardID      string  `json:"card_id"`
	Number      string  `json:"number"`
	ExpMonth    string  `json:"exp_month"`
	ExpYear     string  `json:"exp_year"`
	CVC         string  `json:"cvc"`
	AmountUSD   float64 `json:"amount_usd"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	Mock        bool    `json:"mock"`
}

// Traveler is the decrypted passenger context handed to the booking agent.
// It never touches the database in this form.
type Traveler struct {
	FirstName      string           `json:"first_name"`
	LastName       string           `json:"last_name"`
	DateOfBirth    string           `json:"date_of_birth"`
	Phone          string           `json:"phone"`
	Email          string           `json:"email"`
	SeatPreference string           `json:"seat_preference"`
	MealPreference string           `json:"meal_preference"`
	LoyaltyNumbers []LoyaltyProgram `json:"loyalty_numbers"`
	PassportNumber string           `json:"passport_number,omitempty"`
	TSANumber      string           `json:"tsa_number,omitempty"`
}

// BookTripResponse is the 202 body returned when booking starts.
type BookTripResponse struct {
	TripID   uuid.UUID     `json:"trip_id"`
	Status   TripStatus    `json:"status"`
	Bookings []BookingStub `json:"bookings"`
}

// BookingStub identifies a freshly created booking for the 202 response.
type BookingStub struct {
	ID     uuid.UUID     `json:"id"`
	Type   BookingType   `json:"type"`
	Status BookingStatus `json:"status"`
}

// Confirmation is the consolidated record of a fully booked trip, used for
// the confirmation email and for display.
type Confirmation struct {
	TripID          string             `json:"trip_id"`
	Destination     string             `json:"destination"`
	TravelDates     TravelDates        `json:"travel_dates"`
	Bookings        []ConfirmationItem `json:"bookings"`
	TotalChargedUSD float64            `json:"total_charged_usd"`
}

type TravelDates struct {
	Depart string `json:"depart"`
	Return string `json:"return,omitempty"`
}

// ConfirmationItem is one booked component in a confirmation.
type ConfirmationItem struct {
	Type               BookingType `json:"type"`
	ConfirmationNumber string      `json:"confirmation_number"`
	Carrier            string      `json:"carrier,omitempty"`
	FlightNumber       string      `json:"flight_number,omitempty"`
	Origin             string      `json:"origin,omitempty"`
	Destination        string      `json:"destination,omitempty"`
	DepartDateTime     string      `json:"depart_datetime,omitempty"`
	Cabin              string      `json:"cabin,omitempty"`
	HotelName          string      `json:"hotel_name,omitempty"`
	CheckIn            string      `json:"check_in,omitempty"`
	CheckOut           string      `json:"check_out,omitempty"`
	RoomType           string      `json:"room_type,omitempty"`
	ActivityName       string      `json:"activity_name,omitempty"`
	Date               string      `json:"date,omitempty"`
	Category           string      `json:"category,omitempty"`
	DurationHours      int         `json:"duration_hours,omitempty"`
}
