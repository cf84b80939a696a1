package types

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus tracks a trip through the planning and booking pipeline.
type TripStatus string

const (
	TripStatusParsing       TripStatus = "parsing"
	TripStatusSearching     TripStatus = "searching"
	TripStatusOptionsReady  TripStatus = "options_ready"
	TripStatusSearchFailed  TripStatus = "search_failed"
	TripStatusFailed        TripStatus = "failed"
	TripStatusApproved      TripStatus = "approved"
	TripStatusBooking       TripStatus = "booking"
	TripStatusConfirmed     TripStatus = "confirmed"
	TripStatusBookingFailed TripStatus = "booking_failed"
)

// Trip is one plain-English travel request and everything derived from it.
type Trip struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"-"`
	Status            TripStatus        `json:"status"`
	RawRequest        string            `json:"raw_request"`
	ParsedSpec        *TripSpec         `json:"parsed_spec,omitempty"`
	ItineraryOptions  []ItineraryOption `json:"itinerary_options,omitempty"`
	ApprovedItinerary *ItineraryOption  `json:"approved_itinerary,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// TripSpec is the structured form of a free-text trip request.
type TripSpec struct {
	Origin            string   `json:"origin"`
	Destination       string   `json:"destination"`
	DestinationCity   string   `json:"destination_city,omitempty"`
	DepartDate        string   `json:"depart_date"`
	ReturnDate        string   `json:"return_date,omitempty"`
	NumTravelers      int      `json:"num_travelers"`
	CabinClass        string   `json:"cabin_class"`
	BudgetTotal       *float64 `json:"budget_total,omitempty"`
	IncludeActivities bool     `json:"include_activities,omitempty"`
}

// FlightSegment is one leg of a flight itinerary.
type FlightSegment struct {
	From     string `json:"from"`
	Departs  string `json:"departs"`
	To       string `json:"to"`
	Arrives  string `json:"arrives"`
	Flight   string `json:"flight"`
	Carrier  string `json:"carrier"`
	Duration string `json:"duration,omitempty"`
}

// FlightOption is a flattened flight offer inside an itinerary package.
type FlightOption struct {
	ID               string          `json:"id"`
	PriceUSD         float64         `json:"price_usd"`
	Cabin            string          `json:"cabin"`
	OutboundStops    int             `json:"outbound_stops"`
	OutboundDuration string          `json:"outbound_duration,omitempty"`
	Carrier          string          `json:"carrier"`
	Segments         []FlightSegment `json:"segments"`
}

// HotelOption is a flattened hotel offer inside an itinerary package.
type HotelOption struct {
	HotelID       string  `json:"hotel_id"`
	Name          string  `json:"name"`
	Rating        string  `json:"rating,omitempty"`
	CityCode      string  `json:"city_code,omitempty"`
	PriceTotalUSD float64 `json:"price_total_usd"`
	CheckIn       string  `json:"check_in"`
	CheckOut      string  `json:"check_out"`
	RoomType      string  `json:"room_type,omitempty"`
	Beds          int     `json:"beds,omitempty"`
}

// ActivityOption is a bookable activity attached to an itinerary package.
type ActivityOption struct {
	ActivityID    string  `json:"activity_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	DurationHours int     `json:"duration_hours,omitempty"`
	PriceUSD      float64 `json:"price_usd"`
	Category      string  `json:"category,omitempty"`
	Date          string  `json:"date,omitempty"`
}

// ItineraryOption is one curated flight+hotel package presented to the user.
type ItineraryOption struct {
	Label              string           `json:"label"`
	Description        string           `json:"description"`
	Flight             *FlightOption    `json:"flight,omitempty"`
	Hotel              *HotelOption     `json:"hotel,omitempty"`
	Activities         []ActivityOption `json:"activities,omitempty"`
	ActivitiesTotalUSD float64          `json:"activities_total_usd"`
	TotalUSD           float64          `json:"total_usd"`
	WithinBudget       bool             `json:"within_budget"`
}

// CreateTripRequest is the body of POST /trips.
type CreateTripRequest struct {
	RawRequest string `json:"raw_request"`
}

// ApproveTripRequest selects one of the presented itinerary options.
type ApproveTripRequest struct {
	OptionIndex int `json:"option_index"`
}
