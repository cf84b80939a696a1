package search

import (
	"fmt"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

// Mock offers returned when no Amadeus credentials are configured. The
// shapes mirror real API responses so the itinerary builder treats both
// paths identically.

func mockFlights(origin, destination, departDate, returnDate string) []types.FlightOffer {
	economy := []types.TravelerPricing{{FareDetailsBySegment: []types.FareDetail{{Cabin: "ECONOMY"}}}}

	nonstopUA := types.FlightOffer{
		ID: "1",
		Itineraries: []types.FlightItinerary{{
			Duration: "PT14H30M",
			Segments: []types.RawSegment{{
				Departure:   types.SegmentEndpoint{IataCode: origin, At: departDate + "T10:00:00"},
				Arrival:     types.SegmentEndpoint{IataCode: destination, At: departDate + "T14:30:00"},
				CarrierCode: "UA",
				Number:      "837",
				Duration:    "PT14H30M",
			}},
		}},
		Price:                  types.OfferPrice{GrandTotal: "780.00", Currency: "USD"},
		ValidatingAirlineCodes: []string{"UA"},
		TravelerPricings:       economy,
	}
	if returnDate != "" {
		nonstopUA.Itineraries = append(nonstopUA.Itineraries, types.FlightItinerary{
			Duration: "PT13H55M",
			Segments: []types.RawSegment{{
				Departure:   types.SegmentEndpoint{IataCode: destination, At: returnDate + "T16:00:00"},
				Arrival:     types.SegmentEndpoint{IataCode: origin, At: returnDate + "T11:55:00"},
				CarrierCode: "UA",
				Number:      "838",
				Duration:    "PT13H55M",
			}},
		})
	}

	oneStopAA := types.FlightOffer{
		ID: "2",
		Itineraries: []types.FlightItinerary{{
			Duration: "PT15H20M",
			Segments: []types.RawSegment{
				{
					Departure:   types.SegmentEndpoint{IataCode: origin, At: departDate + "T13:00:00"},
					Arrival:     types.SegmentEndpoint{IataCode: "ORD", At: departDate + "T15:00:00"},
					CarrierCode: "AA",
					Number:      "101",
					Duration:    "PT2H00M",
				},
				{
					Departure:   types.SegmentEndpoint{IataCode: "ORD", At: departDate + "T17:00:00"},
					Arrival:     types.SegmentEndpoint{IataCode: destination, At: departDate + "T20:20:00"},
					CarrierCode: "AA",
					Number:      "169",
					Duration:    "PT13H20M",
				},
			},
		}},
		Price:                  types.OfferPrice{GrandTotal: "850.00", Currency: "USD"},
		ValidatingAirlineCodes: []string{"AA"},
		TravelerPricings:       economy,
	}
	if returnDate != "" {
		oneStopAA.Itineraries = append(oneStopAA.Itineraries, types.FlightItinerary{
			Duration: "PT14H10M",
			Segments: []types.RawSegment{{
				Departure:   types.SegmentEndpoint{IataCode: destination, At: returnDate + "T18:00:00"},
				Arrival:     types.SegmentEndpoint{IataCode: origin, At: returnDate + "T18:10:00"},
				CarrierCode: "AA",
				Number:      "170",
				Duration:    "PT14H10M",
			}},
		})
	}

	nonstopJL := types.FlightOffer{
		ID: "3",
		Itineraries: []types.FlightItinerary{{
			Duration: "PT13H50M",
			Segments: []types.RawSegment{{
				Departure:   types.SegmentEndpoint{IataCode: origin, At: departDate + "T17:00:00"},
				Arrival:     types.SegmentEndpoint{IataCode: destination, At: departDate + "T20:50:00"},
				CarrierCode: "JL",
				Number:      "006",
				Duration:    "PT13H50M",
			}},
		}},
		Price:                  types.OfferPrice{GrandTotal: "1120.00", Currency: "USD"},
		ValidatingAirlineCodes: []string{"JL"},
		TravelerPricings:       economy,
	}
	if returnDate != "" {
		nonstopJL.Itineraries = append(nonstopJL.Itineraries, types.FlightItinerary{
			Duration: "PT14H00M",
			Segments: []types.RawSegment{{
				Departure:   types.SegmentEndpoint{IataCode: destination, At: returnDate + "T11:30:00"},
				Arrival:     types.SegmentEndpoint{IataCode: origin, At: returnDate + "T11:30:00"},
				CarrierCode: "JL",
				Number:      "007",
				Duration:    "PT14H00M",
			}},
		})
	}

	return []types.FlightOffer{nonstopUA, oneStopAA, nonstopJL}
}

func mockHotels(cityCode, checkIn, checkOut string) []types.HotelOfferData {
	return []types.HotelOfferData{
		{
			Hotel: types.HotelInfo{HotelID: "MOCK001", Name: "Dormy Inn Shinjuku", Rating: "3", CityCode: cityCode},
			Offers: []types.HotelOffer{{
				CheckInDate:  checkIn,
				CheckOutDate: checkOut,
				Price:        types.OfferPrice{Total: "620.00", Currency: "USD"},
				Room:         types.HotelRoom{TypeEstimated: types.RoomTypeEstimated{Category: "STANDARD_ROOM", Beds: 1}},
			}},
		},
		{
			Hotel: types.HotelInfo{HotelID: "MOCK002", Name: "Shinjuku Granbell Hotel", Rating: "4", CityCode: cityCode},
			Offers: []types.HotelOffer{{
				CheckInDate:  checkIn,
				CheckOutDate: checkOut,
				Price:        types.OfferPrice{Total: "1050.00", Currency: "USD"},
				Room:         types.HotelRoom{TypeEstimated: types.RoomTypeEstimated{Category: "DELUXE_ROOM", Beds: 1}},
			}},
		},
		{
			Hotel: types.HotelInfo{HotelID: "MOCK003", Name: "Park Hyatt Tokyo", Rating: "5", CityCode: cityCode},
			Offers: []types.HotelOffer{{
				CheckInDate:  checkIn,
				CheckOutDate: checkOut,
				Price:        types.OfferPrice{Total: "2850.00", Currency: "USD"},
				Room:         types.HotelRoom{TypeEstimated: types.RoomTypeEstimated{Category: "PARK_DELUXE_ROOM", Beds: 1}},
			}},
		},
	}
}

func mockActivities(cityCode, startDate string) []types.ActivityOption {
	return []types.ActivityOption{
		{
			ActivityID: fmt.Sprintf("ACT-%s-001", cityCode),
			Name:       fmt.Sprintf("%s City Walking Tour", cityCode),
			Description: "Explore the city's top landmarks and hidden gems on a guided walking tour. " +
				"Covers historic districts, local markets, and photo-worthy spots.",
			DurationHours: 3,
			PriceUSD:      45.0,
			Category:      "Tours & Sightseeing",
			Date:          startDate,
		},
		{
			ActivityID: fmt.Sprintf("ACT-%s-002", cityCode),
			Name:       "Skip-the-Line Museum Entry",
			Description: "Priority access to the city's premier museum with a knowledgeable guide. " +
				"No waiting in long queues, head straight to the highlights.",
			DurationHours: 2,
			PriceUSD:      65.0,
			Category:      "Museums & Attractions",
			Date:          startDate,
		},
		{
			ActivityID: fmt.Sprintf("ACT-%s-003", cityCode),
			Name:       "Local Food & Night Market Tour",
			Description: "Sample authentic local cuisine at street stalls and night markets. " +
				"A culinary journey through the flavors of the destination.",
			DurationHours: 3,
			PriceUSD:      55.0,
			Category:      "Food & Drink",
			Date:          startDate,
		},
	}
}
