package booking

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/issuing/card"
	"github.com/stripe/stripe-go/v79/issuing/cardholder"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-booking-agent/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

const mockCardPrefix = "mock_card_"

var _ CardIssuer = (*StripeCardIssuer)(nil)

// CardIssuer creates single-use virtual cards capped at a booking amount and
// voids them when a booking fails.
type CardIssuer interface {
	Create(ctx context.Context, amountUSD float64, description, userEmail string) (*types.VirtualCard, error)
	Void(ctx context.Context, cardID string) error
}

// StripeCardIssuer wraps Stripe Issuing. One cardholder per user email,
// created lazily; one virtual card per booking with a per-authorization
// spending limit. Without STRIPE_SECRET_KEY it hands out deterministic
// test-Visa mock cards so the pipeline runs end to end.
type StripeCardIssuer struct {
	logger *slog.Logger
	apiKey string
}

func NewStripeCardIssuer(logger *slog.Logger) *StripeCardIssuer {
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	if apiKey != "" {
		stripe.Key = apiKey
	}
	return &StripeCardIssuer{logger: logger, apiKey: apiKey}
}

func (s *StripeCardIssuer) Create(ctx context.Context, amountUSD float64, description, userEmail string) (*types.VirtualCard, error) {
	ctx, span := otel.Tracer("CardIssuer").Start(ctx, "CreateVirtualCard", trace.WithAttributes(
		attribute.Float64("card.amount_usd", amountUSD),
	))
	defer span.End()

	if s.apiKey == "" {
		span.SetAttributes(attribute.Bool("card.mock", true))
		c := mockCard(amountUSD, description)
		s.recordIssued(ctx, true)
		return c, nil
	}

	cardholderID, err := s.findOrCreateCardholder(userEmail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cardholder lookup failed")
		return nil, err
	}

	amountCents := int64(amountUSD * 100)
	cardParams := &stripe.IssuingCardParams{
		Cardholder: stripe.String(cardholderID),
		Currency:   stripe.String("usd"),
		Type:       stripe.String(string(stripe.IssuingCardTypeVirtual)),
		SpendingControls: &stripe.IssuingCardSpendingControlsParams{
			SpendingLimits: []*stripe.IssuingCardSpendingControlsSpendingLimitParams{{
				Amount:   stripe.Int64(amountCents),
				Interval: stripe.String(string(stripe.IssuingCardSpendingControlsSpendingLimitIntervalPerAuthorization)),
			}},
		},
	}
	cardParams.AddMetadata("description", description)

	created, err := card.New(cardParams)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Card creation failed")
		return nil, fmt.Errorf("failed to create virtual card: %w", err)
	}

	// Sensitive details need an expanded retrieve and the
	// issuing_card_number:read permission on the key.
	getParams := &stripe.IssuingCardParams{}
	getParams.AddExpand("number")
	getParams.AddExpand("cvc")
	full, err := card.Get(created.ID, getParams)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve card details: %w", err)
	}

	s.recordIssued(ctx, false)
	return &types.VirtualCard{
		CardID:      created.ID,
		Number:      full.Number,
		ExpMonth:    fmt.Sprintf("%02d", created.ExpMonth),
		ExpYear:     fmt.Sprintf("%d", created.ExpYear),
		CVC:         full.CVC,
		AmountUSD:   amountUSD,
		Currency:    "usd",
		Description: description,
	}, nil
}

func (s *StripeCardIssuer) findOrCreateCardholder(email string) (string, error) {
	listParams := &stripe.IssuingCardholderListParams{Email: stripe.String(email)}
	listParams.Limit = stripe.Int64(1)
	iter := cardholder.List(listParams)
	if iter.Next() {
		return iter.IssuingCardholder().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("failed to list cardholders: %w", err)
	}

	ch, err := cardholder.New(&stripe.IssuingCardholderParams{
		Name:  stripe.String(email),
		Email: stripe.String(email),
		Type:  stripe.String(string(stripe.IssuingCardholderTypeIndividual)),
		Billing: &stripe.IssuingCardholderBillingParams{
			Address: &stripe.AddressParams{
				Line1:      stripe.String("123 Travel St"),
				City:       stripe.String("San Francisco"),
				State:      stripe.String("CA"),
				PostalCode: stripe.String("94105"),
				Country:    stripe.String("US"),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create cardholder: %w", err)
	}
	return ch.ID, nil
}

// Void cancels a card after a failed booking. Mock cards have nothing to
// cancel.
func (s *StripeCardIssuer) Void(ctx context.Context, cardID string) error {
	if s.apiKey == "" || strings.HasPrefix(cardID, mockCardPrefix) {
		return nil
	}

	_, err := card.Update(cardID, &stripe.IssuingCardParams{
		Status: stripe.String(string(stripe.IssuingCardStatusCanceled)),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to void virtual card",
			slog.String("card_id", cardID), slog.Any("error", err))
		return fmt.Errorf("failed to void card %s: %w", cardID, err)
	}
	return nil
}

func (s *StripeCardIssuer) recordIssued(ctx context.Context, mock bool) {
	if m := metrics.Get(); m != nil {
		m.VirtualCardsIssued.Add(ctx, 1, metric.WithAttributes(attribute.Bool("mock", mock)))
	}
}

const mockIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func mockCard(amountUSD float64, description string) *types.VirtualCard {
	suffix := make([]byte, 8)
	for i := range suffix {
		suffix[i] = mockIDAlphabet[rand.Intn(len(mockIDAlphabet))]
	}
	return &types.VirtualCard{
		CardID:      mockCardPrefix + string(suffix),
		Number:      "4111111111111111",
		ExpMonth:    "12",
		ExpYear:     "2027",
		CVC:         "123",
		AmountUSD:   amountUSD,
		Currency:    "usd",
		Description: description,
		Mock:        true,
	}
}
