package planner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type MockAIClient struct {
	mock.Mock
}

func (m *MockAIClient) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	args := m.Called(ctx, prompt, config)
	return args.String(0), args.Error(1)
}

func newTestParser(ai AIClient) *Parser {
	p := NewParser(ai, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestParse_ModelOutputWithMarkdownFences(t *testing.T) {
	ai := new(MockAIClient)
	ai.On("GenerateContent", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return("```json\n{\"origin\": \"sfo\", \"destination\": \"nrt\", \"destination_city\": \"Tokyo\", \"depart_date\": \"2026-10-10\", \"return_date\": \"2026-10-17\", \"num_travelers\": 2, \"cabin_class\": \"economy\", \"budget_total\": 5000}\n```", nil)

	spec, err := newTestParser(ai).Parse(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, "SFO", spec.Origin)
	assert.Equal(t, "NRT", spec.Destination)
	assert.Equal(t, "Tokyo", spec.DestinationCity)
	assert.Equal(t, "2026-10-10", spec.DepartDate)
	assert.Equal(t, 2, spec.NumTravelers)
	assert.Equal(t, "ECONOMY", spec.CabinClass)
	require.NotNil(t, spec.BudgetTotal)
	assert.Equal(t, 5000.0, *spec.BudgetTotal)
	ai.AssertExpectations(t)
}

func TestParse_UnparseableModelOutputFallsBackToRules(t *testing.T) {
	ai := new(MockAIClient)
	ai.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return("I'm sorry, I can't help with that.", nil)

	spec, err := newTestParser(ai).Parse(context.Background(),
		"Flight from SFO to NRT on 2026-10-10, back 2026-10-17, 2 travelers, $5000 budget")
	require.NoError(t, err)

	assert.Equal(t, "SFO", spec.Origin)
	assert.Equal(t, "NRT", spec.Destination)
	assert.Equal(t, 2, spec.NumTravelers)
}

func TestParse_ModelErrorFallsBackToRules(t *testing.T) {
	ai := new(MockAIClient)
	ai.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("quota exceeded"))

	spec, err := newTestParser(ai).Parse(context.Background(), "Trip to Tokyo from San Francisco")
	require.NoError(t, err)
	assert.Equal(t, "NRT", spec.Destination)
}

func TestParseWithRules_CityNamesAndDefaults(t *testing.T) {
	p := newTestParser(nil)
	spec, err := p.Parse(context.Background(), "I want to go from San Francisco to Tokyo")
	require.NoError(t, err)

	assert.Equal(t, "SFO", spec.Origin)
	assert.Equal(t, "NRT", spec.Destination)
	assert.Equal(t, "Tokyo", spec.DestinationCity)
	assert.Equal(t, 1, spec.NumTravelers)
	assert.Equal(t, "ECONOMY", spec.CabinClass)
	assert.Nil(t, spec.BudgetTotal)
}

func TestParseWithRules_FullRequest(t *testing.T) {
	p := newTestParser(nil)
	spec, err := p.Parse(context.Background(),
		"Book a business class trip for two from New York to London, October 10 to October 17, budget $8,000. Include some tours please.")
	require.NoError(t, err)

	assert.Equal(t, "JFK", spec.Origin)
	assert.Equal(t, "LHR", spec.Destination)
	assert.Equal(t, 2, spec.NumTravelers)
	assert.Equal(t, "BUSINESS", spec.CabinClass)
	assert.Equal(t, "2026-10-10", spec.DepartDate)
	assert.Equal(t, "2026-10-17", spec.ReturnDate)
	require.NotNil(t, spec.BudgetTotal)
	assert.Equal(t, 8000.0, *spec.BudgetTotal)
	assert.True(t, spec.IncludeActivities)
}

func TestParseWithRules_USDateFormatRollsForward(t *testing.T) {
	p := newTestParser(nil)
	// 1/15 is before the fixed "today" (2026-03-01) so it rolls to 2027.
	spec, err := p.Parse(context.Background(), "SEA to LAX on 1/15 returning 1/22")
	require.NoError(t, err)

	assert.Equal(t, "2027-01-15", spec.DepartDate)
	assert.Equal(t, "2027-01-22", spec.ReturnDate)
}

func TestParseWithRules_ExplicitTravelerCount(t *testing.T) {
	p := newTestParser(nil)
	spec, err := p.Parse(context.Background(), "BOS to MIA for 4 people on 2026-06-01")
	require.NoError(t, err)
	assert.Equal(t, 4, spec.NumTravelers)
}

func TestDecodeSpec_RejectsMissingAirports(t *testing.T) {
	_, err := decodeSpec(`{"origin": "", "destination": "NRT"}`)
	assert.Error(t, err)

	_, err = decodeSpec("no json here at all")
	assert.Error(t, err)
}
