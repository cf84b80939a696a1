package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

// ErrNotSupported marks bookings the automated agent cannot execute. The
// engine maps it to the "unsupported" status instead of "failed".
var ErrNotSupported = errors.New("booking not supported")

// supportedCarriers maps airline codes to their live booking entry pages.
var supportedCarriers = map[string]string{
	"UA": "https://www.united.com/en/us/book/flights",
	"DL": "https://www.delta.com/us/en/flight-search/book-a-flight",
	"AA": "https://www.aa.com/booking/find-flights",
	"WN": "https://www.southwest.com/air/booking/",
}

var carrierNames = map[string]string{
	"UA": "United Airlines",
	"DL": "Delta Air Lines",
	"AA": "American Airlines",
	"WN": "Southwest Airlines",
}

var marriottBrands = []string{
	"marriott", "westin", "sheraton", "w hotel", "st. regis",
	"ritz-carlton", "courtyard", "residence inn",
}

func isMarriottBrand(hotelName string) bool {
	name := strings.ToLower(hotelName)
	for _, brand := range marriottBrands {
		if strings.Contains(name, brand) {
			return true
		}
	}
	return false
}

func hasMarriottLoyalty(traveler *types.Traveler) bool {
	for _, ln := range traveler.LoyaltyNumbers {
		switch strings.ToLower(ln.Program) {
		case "marriott bonvoy", "marriott":
			return true
		}
	}
	return false
}

// AgentRequest carries everything one booking execution needs.
type AgentRequest struct {
	BookingID uuid.UUID
	Type      types.BookingType
	Itinerary *types.ItineraryOption
	// Activity is set for activity bookings so the agent knows which one
	// of the option's activities this booking covers.
	Activity *types.ActivityOption
	Traveler *types.Traveler
	Card     *types.VirtualCard
}

// Agent executes a single booking end to end and returns a confirmation
// number. ErrNotSupported signals an unbookable component; any other error
// is a failure.
type Agent interface {
	Run(ctx context.Context, req AgentRequest) (string, error)
}

// stepWriter appends agent steps to the booking's log. Log write failures
// must never abort a booking in flight, so they are swallowed after logging.
type stepWriter struct {
	repo   Repository
	logger *slog.Logger
}

func (w *stepWriter) write(ctx context.Context, bookingID uuid.UUID, step, action, result string, screenshotB64, errorMessage *string) {
	entry := &types.AgentLog{
		BookingID:     bookingID,
		Step:          step,
		Action:        action,
		Result:        result,
		ScreenshotB64: screenshotB64,
		ErrorMessage:  errorMessage,
	}
	if err := w.repo.AppendLog(ctx, entry); err != nil {
		w.logger.WarnContext(ctx, "Agent log write failed",
			slog.String("booking_id", bookingID.String()), slog.Any("error", err))
	}
}
