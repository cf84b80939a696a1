package booking

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

func simAgentRequest(bookingType types.BookingType) AgentRequest {
	return AgentRequest{
		BookingID: uuid.New(),
		Type:      bookingType,
		Itinerary: &types.ItineraryOption{
			Flight: &types.FlightOption{
				Carrier: "UA",
				Segments: []types.FlightSegment{
					{From: "SFO", To: "NRT", Flight: "UA 837", Carrier: "UA"},
				},
			},
			Hotel: &types.HotelOption{Name: "Dormy Inn Premium Shinjuku"},
		},
		Traveler: &types.Traveler{FirstName: "Ada", LastName: "Lovelace", SeatPreference: "aisle"},
		Card:     &types.VirtualCard{Number: "4111111111111111"},
	}
}

func TestSimAgent_RunWritesEveryStep(t *testing.T) {
	repo := new(MockBookingRepo)
	var steps []string
	repo.On("AppendLog", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		steps = append(steps, args.Get(1).(*types.AgentLog).Step)
	}).Return(nil)

	agent := NewSimAgent(repo, 0, discardLogger())
	confirmation, err := agent.Run(context.Background(), simAgentRequest(types.BookingTypeFlight))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), confirmation)
	assert.Equal(t, []string{
		"navigate", "search", "select", "passenger_info", "seat_selection",
		"loyalty_number", "payment", "review", "confirm", "done",
	}, steps)
}

func TestSimAgent_CancelledContext(t *testing.T) {
	repo := new(MockBookingRepo)
	repo.On("AppendLog", mock.Anything, mock.Anything).Return(nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agent := NewSimAgent(repo, 0, discardLogger())
	_, err := agent.Run(ctx, simAgentRequest(types.BookingTypeFlight))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimAgent_SiteAndTarget(t *testing.T) {
	agent := NewSimAgent(new(MockBookingRepo), 0, discardLogger())

	flightReq := simAgentRequest(types.BookingTypeFlight)
	site, target := agent.siteAndTarget(flightReq)
	assert.Equal(t, "united.com", site)
	assert.Contains(t, target, "SFO")
	assert.Contains(t, target, "NRT")

	hotelReq := simAgentRequest(types.BookingTypeHotel)
	site, target = agent.siteAndTarget(hotelReq)
	assert.Equal(t, "expedia.com", site)
	assert.Equal(t, "Dormy Inn Premium Shinjuku", target)

	hotelReq.Itinerary.Hotel.Name = "Courtyard by Marriott Ginza"
	site, _ = agent.siteAndTarget(hotelReq)
	assert.Equal(t, "marriott.com", site)

	activityReq := simAgentRequest(types.BookingTypeActivity)
	activityReq.Activity = &types.ActivityOption{Name: "City Highlights Walking Tour"}
	site, target = agent.siteAndTarget(activityReq)
	assert.Equal(t, "viator.com", site)
	assert.Equal(t, "City Highlights Walking Tour", target)
}

func TestSimAgent_UnknownCarrierFallsBackToCarrierSite(t *testing.T) {
	agent := NewSimAgent(new(MockBookingRepo), 0, discardLogger())

	req := simAgentRequest(types.BookingTypeFlight)
	req.Itinerary.Flight.Carrier = "JL"
	site, _ := agent.siteAndTarget(req)
	assert.Equal(t, "jl.com", site)
}
