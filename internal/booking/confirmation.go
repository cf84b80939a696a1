package booking

import (
	"encoding/json"
	"math"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

// BuildConfirmation consolidates a booked trip and its bookings into one
// structured record for display and for the confirmation email. Total
// charged counts confirmed bookings only.
func BuildConfirmation(trip *types.Trip, bookings []types.Booking) *types.Confirmation {
	conf := &types.Confirmation{
		TripID: trip.ID.String(),
	}
	if trip.ParsedSpec != nil {
		conf.Destination = trip.ParsedSpec.DestinationCity
		if conf.Destination == "" {
			conf.Destination = trip.ParsedSpec.Destination
		}
		conf.TravelDates = types.TravelDates{
			Depart: trip.ParsedSpec.DepartDate,
			Return: trip.ParsedSpec.ReturnDate,
		}
	}

	var totalCharged float64
	for _, b := range bookings {
		item := types.ConfirmationItem{Type: b.Type}
		if b.ConfirmationNumber != nil {
			item.ConfirmationNumber = *b.ConfirmationNumber
		}

		switch b.Type {
		case types.BookingTypeFlight:
			var payload struct {
				Flight types.FlightOption `json:"flight"`
			}
			decodeDetails(b.Details, &payload)
			flight := payload.Flight
			if len(flight.Segments) > 0 {
				first := flight.Segments[0]
				item.FlightNumber = first.Flight
				item.Origin = first.From
				item.Destination = first.To
				item.DepartDateTime = first.Departs
			}
			item.Carrier = flight.Carrier
			item.Cabin = flight.Cabin
			if b.Status == types.BookingStatusConfirmed {
				totalCharged += flight.PriceUSD
			}

		case types.BookingTypeHotel:
			var payload struct {
				Hotel types.HotelOption `json:"hotel"`
			}
			decodeDetails(b.Details, &payload)
			item.HotelName = payload.Hotel.Name
			item.CheckIn = payload.Hotel.CheckIn
			item.CheckOut = payload.Hotel.CheckOut
			item.RoomType = payload.Hotel.RoomType
			if b.Status == types.BookingStatusConfirmed {
				totalCharged += payload.Hotel.PriceTotalUSD
			}

		case types.BookingTypeActivity:
			var payload struct {
				Activity types.ActivityOption `json:"activity"`
			}
			decodeDetails(b.Details, &payload)
			item.ActivityName = payload.Activity.Name
			item.Date = payload.Activity.Date
			item.Category = payload.Activity.Category
			item.DurationHours = payload.Activity.DurationHours
			if b.Status == types.BookingStatusConfirmed {
				totalCharged += payload.Activity.PriceUSD
			}
		}

		conf.Bookings = append(conf.Bookings, item)
	}

	conf.TotalChargedUSD = math.Round(totalCharged*100) / 100
	return conf
}

// decodeDetails round-trips the loosely typed jsonb document into the typed
// payload. Malformed documents leave the payload zeroed.
func decodeDetails(details map[string]any, out interface{}) {
	if details == nil {
		return
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return
	}
	_ = json.Unmarshal(raw, out)
}
