package types

// Wire shapes for the Amadeus self-service APIs. Only the fields the
// itinerary builder reads are mapped.

type FlightOffer struct {
	ID                     string            `json:"id"`
	Itineraries            []FlightItinerary `json:"itineraries"`
	Price                  OfferPrice        `json:"price"`
	ValidatingAirlineCodes []string          `json:"validatingAirlineCodes"`
	TravelerPricings       []TravelerPricing `json:"travelerPricings,omitempty"`
}

type FlightItinerary struct {
	Duration string       `json:"duration,omitempty"`
	Segments []RawSegment `json:"segments"`
}

type RawSegment struct {
	Departure   SegmentEndpoint `json:"departure"`
	Arrival     SegmentEndpoint `json:"arrival"`
	CarrierCode string          `json:"carrierCode"`
	Number      string          `json:"number"`
	Duration    string          `json:"duration,omitempty"`
}

type SegmentEndpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type OfferPrice struct {
	GrandTotal string `json:"grandTotal,omitempty"`
	Total      string `json:"total,omitempty"`
	Currency   string `json:"currency,omitempty"`
}

type TravelerPricing struct {
	FareDetailsBySegment []FareDetail `json:"fareDetailsBySegment"`
}

type FareDetail struct {
	Cabin string `json:"cabin"`
}

// HotelOfferData is one element of the v3 hotel-offers "data" array.
type HotelOfferData struct {
	Hotel  HotelInfo    `json:"hotel"`
	Offers []HotelOffer `json:"offers"`
}

type HotelInfo struct {
	HotelID  string `json:"hotelId"`
	Name     string `json:"name"`
	Rating   string `json:"rating,omitempty"`
	CityCode string `json:"cityCode,omitempty"`
}

type HotelOffer struct {
	CheckInDate  string     `json:"checkInDate"`
	CheckOutDate string     `json:"checkOutDate"`
	Price        OfferPrice `json:"price"`
	Room         HotelRoom  `json:"room,omitempty"`
}

type HotelRoom struct {
	TypeEstimated RoomTypeEstimated `json:"typeEstimated,omitempty"`
}

type RoomTypeEstimated struct {
	Category string `json:"category,omitempty"`
	Beds     int    `json:"beds,omitempty"`
}
