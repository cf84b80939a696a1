package planner

import (
	"math"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

const maxActivitiesPerOption = 3

// BuildItineraryOptions packages raw search results into up to three curated
// options: Budget, Best Value and Premium. Returns empty when either flight
// or hotel offers are missing.
func BuildItineraryOptions(
	flightOffers []types.FlightOffer,
	hotelOffers []types.HotelOfferData,
	budgetTotal *float64,
	activityOffers []types.ActivityOption,
) []types.ItineraryOption {
	flights := lo.FilterMap(flightOffers, func(o types.FlightOffer, _ int) (types.FlightOption, bool) {
		f := extractFlight(o)
		return lo.FromPtr(f), f != nil
	})
	hotels := lo.FilterMap(hotelOffers, func(o types.HotelOfferData, _ int) (types.HotelOption, bool) {
		h := extractHotel(o)
		return lo.FromPtr(h), h != nil
	})

	if len(flights) == 0 || len(hotels) == 0 {
		return nil
	}

	sort.Slice(flights, func(i, j int) bool { return flights[i].PriceUSD < flights[j].PriceUSD })
	sort.Slice(hotels, func(i, j int) bool { return hotels[i].PriceTotalUSD < hotels[j].PriceTotalUSD })

	selected := activityOffers
	if len(selected) > maxActivitiesPerOption {
		selected = selected[:maxActivitiesPerOption]
	}

	makeOption := func(label, description string, flight types.FlightOption, hotel types.HotelOption) types.ItineraryOption {
		activitiesTotal := round2(lo.SumBy(selected, func(a types.ActivityOption) float64 { return a.PriceUSD }))
		total := round2(flight.PriceUSD + hotel.PriceTotalUSD + activitiesTotal)
		return types.ItineraryOption{
			Label:              label,
			Description:        description,
			Flight:             &flight,
			Hotel:              &hotel,
			Activities:         selected,
			ActivitiesTotalUSD: activitiesTotal,
			TotalUSD:           total,
			WithinBudget:       budgetTotal == nil || total <= *budgetTotal,
		}
	}

	options := []types.ItineraryOption{
		makeOption("Budget", "Lowest cost combination", flights[0], hotels[0]),
	}

	if len(flights) >= 2 && len(hotels) >= 2 {
		midFlight := flights[len(flights)/2]
		midHotel := hotels[len(hotels)/2]
		if midFlight.ID != flights[0].ID || midHotel.HotelID != hotels[0].HotelID {
			options = append(options, makeOption("Best Value", "Balanced price and quality", midFlight, midHotel))
		}
	}

	nonstop, found := lo.Find(flights, func(f types.FlightOption) bool { return f.OutboundStops == 0 })
	bestFlight := lo.Ternary(found, nonstop, flights[len(flights)-1])
	premium := makeOption("Premium", "Best flight and hotel combination", bestFlight, hotels[len(hotels)-1])

	duplicate := lo.SomeBy(options, func(o types.ItineraryOption) bool {
		return o.Flight.ID == premium.Flight.ID && o.Hotel.HotelID == premium.Hotel.HotelID
	})
	if !duplicate {
		options = append(options, premium)
	}

	if len(options) > 3 {
		options = options[:3]
	}
	return options
}

// extractFlight flattens an Amadeus offer. nil when required fields are
// missing or unparseable.
func extractFlight(offer types.FlightOffer) *types.FlightOption {
	price, err := strconv.ParseFloat(offer.Price.GrandTotal, 64)
	if err != nil {
		if price, err = strconv.ParseFloat(offer.Price.Total, 64); err != nil {
			return nil
		}
	}
	if len(offer.Itineraries) == 0 || len(offer.Itineraries[0].Segments) == 0 {
		return nil
	}

	var segments []types.FlightSegment
	for _, itin := range offer.Itineraries {
		for _, seg := range itin.Segments {
			segments = append(segments, types.FlightSegment{
				From:     seg.Departure.IataCode,
				Departs:  seg.Departure.At,
				To:       seg.Arrival.IataCode,
				Arrives:  seg.Arrival.At,
				Flight:   seg.CarrierCode + seg.Number,
				Carrier:  seg.CarrierCode,
				Duration: seg.Duration,
			})
		}
	}

	cabin := "ECONOMY"
	if len(offer.TravelerPricings) > 0 && len(offer.TravelerPricings[0].FareDetailsBySegment) > 0 {
		if c := offer.TravelerPricings[0].FareDetailsBySegment[0].Cabin; c != "" {
			cabin = c
		}
	}

	carrier := ""
	if len(offer.ValidatingAirlineCodes) > 0 {
		carrier = offer.ValidatingAirlineCodes[0]
	}

	return &types.FlightOption{
		ID:               offer.ID,
		PriceUSD:         price,
		Cabin:            cabin,
		OutboundStops:    len(offer.Itineraries[0].Segments) - 1,
		OutboundDuration: offer.Itineraries[0].Duration,
		Carrier:          carrier,
		Segments:         segments,
	}
}

// extractHotel flattens a hotel offer block using its first (best) rate.
func extractHotel(data types.HotelOfferData) *types.HotelOption {
	if len(data.Offers) == 0 {
		return nil
	}
	best := data.Offers[0]
	price, err := strconv.ParseFloat(best.Price.Total, 64)
	if err != nil {
		if price, err = strconv.ParseFloat(best.Price.GrandTotal, 64); err != nil {
			return nil
		}
	}

	beds := best.Room.TypeEstimated.Beds
	if beds == 0 {
		beds = 1
	}

	return &types.HotelOption{
		HotelID:       data.Hotel.HotelID,
		Name:          data.Hotel.Name,
		Rating:        data.Hotel.Rating,
		CityCode:      data.Hotel.CityCode,
		PriceTotalUSD: price,
		CheckIn:       best.CheckInDate,
		CheckOut:      best.CheckOutDate,
		RoomType:      best.Room.TypeEstimated.Category,
		Beds:          beds,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
