package booking

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

var _ Agent = (*SimAgent)(nil)

// SimAgent walks a realistic booking flow without a browser. The full
// pipeline, approve through polling to confirmation, works against it.
type SimAgent struct {
	steps     *stepWriter
	stepDelay time.Duration
	rng       *rand.Rand
}

func NewSimAgent(repo Repository, stepDelay time.Duration, logger *slog.Logger) *SimAgent {
	return &SimAgent{
		steps:     &stepWriter{repo: repo, logger: logger},
		stepDelay: stepDelay,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var carrierSites = map[string]string{
	"UA": "united.com",
	"DL": "delta.com",
	"AA": "aa.com",
	"WN": "southwest.com",
}

func (a *SimAgent) Run(ctx context.Context, req AgentRequest) (string, error) {
	site, target := a.siteAndTarget(req)

	steps := []struct {
		name string
		desc string
	}{
		{"navigate", fmt.Sprintf("Navigating to %s", site)},
		{"search", fmt.Sprintf("Searching for %s", target)},
		{"select", "Selecting the option from search results"},
		{"passenger_info", fmt.Sprintf("Filling in passenger: %s %s", req.Traveler.FirstName, req.Traveler.LastName)},
		{"seat_selection", fmt.Sprintf("Selecting seat preference: %s", req.Traveler.SeatPreference)},
		{"loyalty_number", "Entering loyalty program number"},
		{"payment", "Entering virtual card details"},
		{"review", "Reviewing booking summary"},
		{"confirm", "Submitting booking"},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.stepDelay):
		}
		a.steps.write(ctx, req.BookingID, step.name, step.desc, "success", nil, nil)
	}

	confirmation := a.confirmationNumber()
	a.steps.write(ctx, req.BookingID, "done",
		fmt.Sprintf("Booking confirmed, confirmation number: %s", confirmation), "success", nil, nil)
	return confirmation, nil
}

func (a *SimAgent) siteAndTarget(req AgentRequest) (site, target string) {
	switch req.Type {
	case types.BookingTypeFlight:
		flight := req.Itinerary.Flight
		carrier := "UA"
		if flight != nil && flight.Carrier != "" {
			carrier = flight.Carrier
		}
		site = carrierSites[carrier]
		if site == "" {
			site = strings.ToLower(carrier) + ".com"
		}
		target = "??? → ???"
		if flight != nil && len(flight.Segments) > 0 {
			target = fmt.Sprintf("%s → %s", flight.Segments[0].From, flight.Segments[0].To)
		}
	case types.BookingTypeActivity:
		site = "viator.com"
		target = "activity"
		if req.Activity != nil {
			target = req.Activity.Name
		}
	default:
		hotel := req.Itinerary.Hotel
		site = "expedia.com"
		target = "hotel"
		if hotel != nil {
			target = hotel.Name
			if isMarriottBrand(hotel.Name) {
				site = "marriott.com"
			}
		}
	}
	return site, target
}

const confirmationAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (a *SimAgent) confirmationNumber() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = confirmationAlphabet[a.rng.Intn(len(confirmationAlphabet))]
	}
	return string(b)
}
