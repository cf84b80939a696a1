package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

func flightOffer(id, carrier, price string, stops int) types.FlightOffer {
	segments := []types.RawSegment{{
		Departure:   types.SegmentEndpoint{IataCode: "SFO", At: "2026-10-10T10:00:00"},
		Arrival:     types.SegmentEndpoint{IataCode: "NRT", At: "2026-10-10T14:30:00"},
		CarrierCode: carrier,
		Number:      "100",
	}}
	for i := 0; i < stops; i++ {
		segments = append(segments, types.RawSegment{
			Departure:   types.SegmentEndpoint{IataCode: "ORD", At: "2026-10-10T17:00:00"},
			Arrival:     types.SegmentEndpoint{IataCode: "NRT", At: "2026-10-10T20:20:00"},
			CarrierCode: carrier,
			Number:      "200",
		})
	}
	return types.FlightOffer{
		ID:                     id,
		Itineraries:            []types.FlightItinerary{{Segments: segments}},
		Price:                  types.OfferPrice{GrandTotal: price, Currency: "USD"},
		ValidatingAirlineCodes: []string{carrier},
	}
}

func hotelOffer(id, name, price string) types.HotelOfferData {
	return types.HotelOfferData{
		Hotel: types.HotelInfo{HotelID: id, Name: name, CityCode: "TYO"},
		Offers: []types.HotelOffer{{
			CheckInDate:  "2026-10-10",
			CheckOutDate: "2026-10-17",
			Price:        types.OfferPrice{Total: price},
			Room:         types.HotelRoom{TypeEstimated: types.RoomTypeEstimated{Category: "STANDARD_ROOM", Beds: 1}},
		}},
	}
}

func TestBuildItineraryOptions_ThreeTiers(t *testing.T) {
	flights := []types.FlightOffer{
		flightOffer("f-mid", "AA", "850.00", 1),
		flightOffer("f-cheap", "UA", "780.00", 1),
		flightOffer("f-direct", "JL", "1120.00", 0),
	}
	hotels := []types.HotelOfferData{
		hotelOffer("h-mid", "Granbell", "1050.00"),
		hotelOffer("h-cheap", "Dormy Inn", "620.00"),
		hotelOffer("h-best", "Park Hyatt", "2850.00"),
	}

	budget := 2000.0
	options := BuildItineraryOptions(flights, hotels, &budget, nil)
	require.Len(t, options, 3)

	assert.Equal(t, "Budget", options[0].Label)
	assert.Equal(t, "f-cheap", options[0].Flight.ID)
	assert.Equal(t, "h-cheap", options[0].Hotel.HotelID)
	assert.Equal(t, 1400.0, options[0].TotalUSD)
	assert.True(t, options[0].WithinBudget)

	assert.Equal(t, "Best Value", options[1].Label)
	assert.Equal(t, "f-mid", options[1].Flight.ID)
	assert.Equal(t, "h-mid", options[1].Hotel.HotelID)

	assert.Equal(t, "Premium", options[2].Label)
	assert.Equal(t, "f-direct", options[2].Flight.ID, "nonstop flight preferred for Premium")
	assert.Equal(t, "h-best", options[2].Hotel.HotelID)
	assert.False(t, options[2].WithinBudget)
}

func TestBuildItineraryOptions_ActivitiesCappedAtThree(t *testing.T) {
	activities := []types.ActivityOption{
		{ActivityID: "a1", PriceUSD: 45},
		{ActivityID: "a2", PriceUSD: 65},
		{ActivityID: "a3", PriceUSD: 55},
		{ActivityID: "a4", PriceUSD: 100},
	}

	options := BuildItineraryOptions(
		[]types.FlightOffer{flightOffer("f1", "UA", "780.00", 0)},
		[]types.HotelOfferData{hotelOffer("h1", "Dormy Inn", "620.00")},
		nil,
		activities,
	)
	require.NotEmpty(t, options)

	opt := options[0]
	assert.Len(t, opt.Activities, 3)
	assert.Equal(t, 165.0, opt.ActivitiesTotalUSD)
	assert.Equal(t, 1565.0, opt.TotalUSD)
	assert.True(t, opt.WithinBudget, "no budget means every option qualifies")
}

func TestBuildItineraryOptions_SingleOfferCollapsesToOneOption(t *testing.T) {
	options := BuildItineraryOptions(
		[]types.FlightOffer{flightOffer("f1", "UA", "780.00", 0)},
		[]types.HotelOfferData{hotelOffer("h1", "Dormy Inn", "620.00")},
		nil, nil,
	)
	// Best Value needs two of each and Premium duplicates Budget here.
	require.Len(t, options, 1)
	assert.Equal(t, "Budget", options[0].Label)
}

func TestBuildItineraryOptions_EmptyInputs(t *testing.T) {
	assert.Empty(t, BuildItineraryOptions(nil, []types.HotelOfferData{hotelOffer("h1", "H", "100.00")}, nil, nil))
	assert.Empty(t, BuildItineraryOptions([]types.FlightOffer{flightOffer("f1", "UA", "100.00", 0)}, nil, nil, nil))
}

func TestBuildItineraryOptions_SkipsMalformedOffers(t *testing.T) {
	bad := types.FlightOffer{ID: "bad", Price: types.OfferPrice{GrandTotal: "not-a-number"}}
	options := BuildItineraryOptions(
		[]types.FlightOffer{bad, flightOffer("ok", "UA", "780.00", 0)},
		[]types.HotelOfferData{hotelOffer("h1", "Dormy Inn", "620.00")},
		nil, nil,
	)
	require.Len(t, options, 1)
	assert.Equal(t, "ok", options[0].Flight.ID)
}

func TestExtractFlight_SegmentsAndStops(t *testing.T) {
	offer := flightOffer("f2", "AA", "850.00", 1)
	f := extractFlight(offer)
	require.NotNil(t, f)

	assert.Equal(t, 1, f.OutboundStops)
	assert.Equal(t, "AA", f.Carrier)
	assert.Len(t, f.Segments, 2)
	assert.Equal(t, "AA100", f.Segments[0].Flight)
	assert.Equal(t, "ECONOMY", f.Cabin)
}

func TestExtractHotel_FirstOfferWins(t *testing.T) {
	data := hotelOffer("h9", "Park Hyatt Tokyo", "2850.00")
	h := extractHotel(data)
	require.NotNil(t, h)

	assert.Equal(t, "Park Hyatt Tokyo", h.Name)
	assert.Equal(t, 2850.0, h.PriceTotalUSD)
	assert.Equal(t, "STANDARD_ROOM", h.RoomType)
	assert.Equal(t, 1, h.Beds)

	assert.Nil(t, extractHotel(types.HotelOfferData{Hotel: types.HotelInfo{HotelID: "empty"}}))
}
