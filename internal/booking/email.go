package booking

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

var _ Mailer = (*SendGridMailer)(nil)

// Mailer delivers the consolidated confirmation email. Best effort: a
// missing key or delivery failure is logged and never surfaces to the
// booking pipeline.
type Mailer interface {
	SendBookingConfirmation(ctx context.Context, userEmail, userName string, confirmation *types.Confirmation)
}

type SendGridMailer struct {
	logger      *slog.Logger
	apiKey      string
	fromAddress string
	fromName    string
}

func NewSendGridMailer(fromAddress, fromName string, logger *slog.Logger) *SendGridMailer {
	return &SendGridMailer{
		logger:      logger,
		apiKey:      os.Getenv("SENDGRID_API_KEY"),
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

func (m *SendGridMailer) SendBookingConfirmation(ctx context.Context, userEmail, userName string, confirmation *types.Confirmation) {
	if m.apiKey == "" {
		m.logger.WarnContext(ctx, "SENDGRID_API_KEY not configured, skipping confirmation email",
			slog.String("trip_id", confirmation.TripID))
		return
	}

	destination := confirmation.Destination
	if destination == "" {
		destination = "your destination"
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(m.fromName, m.fromAddress),
		fmt.Sprintf("Your trip to %s is confirmed!", destination),
		mail.NewEmail(userName, userEmail),
		"",
		buildConfirmationHTML(userName, confirmation),
	)

	client := sendgrid.NewSendClient(m.apiKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to send confirmation email", slog.Any("error", err))
		return
	}
	m.logger.InfoContext(ctx, "Confirmation email sent",
		slog.String("to", userEmail), slog.Int("status", resp.StatusCode))
}

func buildConfirmationHTML(userName string, confirmation *types.Confirmation) string {
	destination := confirmation.Destination
	if destination == "" {
		destination = "your destination"
	}

	var rows strings.Builder
	for _, b := range confirmation.Bookings {
		confNum := b.ConfirmationNumber
		if confNum == "" {
			confNum = "&mdash;"
		}

		var detail string
		switch b.Type {
		case types.BookingTypeFlight:
			departs := strings.ReplaceAll(truncate(b.DepartDateTime, 16), "T", " ")
			detail = fmt.Sprintf("%s %s &mdash; %s &rarr; %s departing %s (%s)",
				b.Carrier, b.FlightNumber, b.Origin, b.Destination, departs, b.Cabin)
		case types.BookingTypeHotel:
			detail = fmt.Sprintf("%s &mdash; Check-in: %s &bull; Check-out: %s (%s)",
				b.HotelName, b.CheckIn, b.CheckOut, b.RoomType)
		default:
			detail = fmt.Sprintf("%s &mdash; %s (%dh, %s)",
				b.ActivityName, b.Date, b.DurationHours, b.Category)
		}

		rows.WriteString(fmt.Sprintf(
			"<tr><td style='padding:8px;text-transform:capitalize'>%s</td>"+
				"<td style='padding:8px;font-family:monospace'>%s</td>"+
				"<td style='padding:8px'>%s</td></tr>\n",
			b.Type, confNum, detail))
	}

	dateRange := confirmation.TravelDates.Depart
	if confirmation.TravelDates.Return != "" {
		dateRange += " &ndash; " + confirmation.TravelDates.Return
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family:Arial,sans-serif;max-width:640px;margin:auto;color:#222">
  <h2 style="color:#1a56a0">Your trip to %s is confirmed</h2>
  <p>Hi %s,</p>
  <p>All bookings for your trip to <strong>%s</strong>
     (%s) have been confirmed. Details below:</p>

  <table style="width:100%%;border-collapse:collapse;margin:16px 0">
    <thead>
      <tr style="background:#f0f4fb">
        <th style="padding:8px;text-align:left">Type</th>
        <th style="padding:8px;text-align:left">Confirmation #</th>
        <th style="padding:8px;text-align:left">Details</th>
      </tr>
    </thead>
    <tbody>
      %s
    </tbody>
  </table>

  <p><strong>Total charged: $%.2f USD</strong></p>
  <hr style="border:none;border-top:1px solid #ddd;margin:24px 0">
  <p style="font-size:12px;color:#888">
    This email was sent by Travel Planner. Please keep this for your records.
  </p>
</body>
</html>`, destination, userName, destination, dateRange, rows.String(), confirmation.TotalChargedUSD)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
