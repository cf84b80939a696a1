package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

// AIClient is the subset of the Gemini client the parser needs. Satisfied by
// *genai.Client wrappers and by test mocks.
type AIClient interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
}

type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient returns nil without error when GOOGLE_GEMINI_API_KEY is not
// set, which puts the parser in rule-based mode.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("genai generate content failed: %w", err)
	}
	return result.Text(), nil
}

const parsePromptTemplate = `Extract a structured trip specification from this travel request.
Respond with ONLY a JSON object, no markdown, no explanation, with these fields:
  origin: IATA airport code of the departure city (string)
  destination: IATA airport code of the destination city (string)
  destination_city: destination city name (string)
  depart_date: departure date as YYYY-MM-DD (string, empty if unknown)
  return_date: return date as YYYY-MM-DD (string, empty if one-way or unknown)
  num_travelers: number of travelers (integer, default 1)
  cabin_class: one of ECONOMY, PREMIUM_ECONOMY, BUSINESS, FIRST (default ECONOMY)
  budget_total: total budget in USD (number, null if not mentioned)
  include_activities: true if the request mentions tours, activities, or things to do

Today's date is %s.

Request: %s`

// Parser turns a free-text trip request into a TripSpec. Gemini is the
// primary path; a rule-based extractor covers missing credentials and
// unparseable model output.
type Parser struct {
	ai     AIClient
	logger *slog.Logger
	now    func() time.Time
}

func NewParser(ai AIClient, logger *slog.Logger) *Parser {
	return &Parser{ai: ai, logger: logger, now: time.Now}
}

func (p *Parser) Parse(ctx context.Context, rawRequest string) (*types.TripSpec, error) {
	ctx, span := otel.Tracer("Planner").Start(ctx, "Parse")
	defer span.End()

	if p.ai != nil {
		prompt := fmt.Sprintf(parsePromptTemplate, p.now().Format("2006-01-02"), rawRequest)
		text, err := p.ai.GenerateContent(ctx, prompt, &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0.1),
		})
		if err == nil {
			if spec, perr := decodeSpec(text); perr == nil {
				normalizeSpec(spec)
				span.SetAttributes(attribute.String("parser.path", "gemini"))
				return spec, nil
			} else {
				p.logger.WarnContext(ctx, "Model output not parseable, falling back to rules",
					slog.Any("error", perr))
			}
		} else {
			p.logger.WarnContext(ctx, "Gemini parse failed, falling back to rules",
				slog.Any("error", err))
			span.RecordError(err)
		}
	}

	span.SetAttributes(attribute.String("parser.path", "rules"))
	spec := p.parseWithRules(rawRequest)
	return spec, nil
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// decodeSpec strips markdown fences the model sometimes adds and unmarshals
// the remaining JSON object.
func decodeSpec(text string) (*types.TripSpec, error) {
	cleaned := strings.TrimSpace(text)
	if m := fencedJSON.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model output")
	}
	var spec types.TripSpec
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trip spec: %w", err)
	}
	if spec.Origin == "" || spec.Destination == "" {
		return nil, fmt.Errorf("model output missing origin or destination")
	}
	return &spec, nil
}

func normalizeSpec(spec *types.TripSpec) {
	spec.Origin = strings.ToUpper(strings.TrimSpace(spec.Origin))
	spec.Destination = strings.ToUpper(strings.TrimSpace(spec.Destination))
	if spec.NumTravelers <= 0 {
		spec.NumTravelers = 1
	}
	switch strings.ToUpper(spec.CabinClass) {
	case "ECONOMY", "PREMIUM_ECONOMY", "BUSINESS", "FIRST":
		spec.CabinClass = strings.ToUpper(spec.CabinClass)
	default:
		spec.CabinClass = "ECONOMY"
	}
}

// cityCodes maps common city and airport names to IATA codes. Enough for the
// rule fallback; the model path handles everything else.
var cityCodes = map[string]string{
	"san francisco": "SFO",
	"sf":            "SFO",
	"los angeles":   "LAX",
	"la":            "LAX",
	"new york":      "JFK",
	"nyc":           "JFK",
	"chicago":       "ORD",
	"seattle":       "SEA",
	"boston":        "BOS",
	"miami":         "MIA",
	"denver":        "DEN",
	"austin":        "AUS",
	"atlanta":       "ATL",
	"dallas":        "DFW",
	"tokyo":         "NRT",
	"osaka":         "KIX",
	"london":        "LHR",
	"paris":         "CDG",
	"rome":          "FCO",
	"madrid":        "MAD",
	"barcelona":     "BCN",
	"lisbon":        "LIS",
	"amsterdam":     "AMS",
	"berlin":        "BER",
	"dublin":        "DUB",
	"sydney":        "SYD",
	"singapore":     "SIN",
	"hong kong":     "HKG",
	"seoul":         "ICN",
	"bangkok":       "BKK",
	"mexico city":   "MEX",
	"cancun":        "CUN",
	"honolulu":      "HNL",
	"vancouver":     "YVR",
	"toronto":       "YYZ",
}

var (
	iataRe      = regexp.MustCompile(`\b([A-Z]{3})\b`)
	travelersRe = regexp.MustCompile(`(?i)\b(\d+)\s*(?:travelers?|people|persons?|adults?|passengers?)\b`)
	forTwoRe    = regexp.MustCompile(`(?i)\bfor\s+(two|three|four|five|six)\b`)
	budgetRe    = regexp.MustCompile(`(?i)[\$](\d[\d,]*(?:\.\d+)?)\s*k?|\b(\d[\d,]*(?:\.\d+)?)\s*(?:usd|dollars)\b`)
	isoDateRe   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	usDateRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	monthDayRe  = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
)

var wordNumbers = map[string]int{"two": 2, "three": 3, "four": 4, "five": 5, "six": 6}

var monthNumbers = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var activityWords = []string{"activities", "activity", "tours", "tour", "things to do", "sightseeing", "excursion"}

// parseWithRules is the no-credentials fallback. Best effort: a spec with
// missing origin or dates produces a search_failed trip downstream rather
// than an error here.
func (p *Parser) parseWithRules(raw string) *types.TripSpec {
	spec := &types.TripSpec{NumTravelers: 1, CabinClass: "ECONOMY"}
	lower := strings.ToLower(raw)

	// City names first, in order of appearance.
	var hits []cityHit
	for name, code := range cityCodes {
		if idx := indexWord(lower, name); idx >= 0 {
			hits = append(hits, cityHit{pos: idx, code: code, name: name})
		}
	}
	// Two-letter shorthands like "la" and "sf" collide with ordinary words
	// too easily when a longer name already matched the same code.
	hits = dedupeByCode(hits)
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	// "to X" marks the destination; otherwise second mention wins.
	switch len(hits) {
	case 1:
		if toIdx := indexWord(lower, "to "+hits[0].name); toIdx >= 0 ||
			strings.Contains(lower, "in "+hits[0].name) {
			spec.Destination = hits[0].code
			spec.DestinationCity = titleCase(hits[0].name)
		} else {
			spec.Origin = hits[0].code
		}
	default:
		if len(hits) >= 2 {
			spec.Origin = hits[0].code
			spec.Destination = hits[1].code
			spec.DestinationCity = titleCase(hits[1].name)
			if toIdx := indexWord(lower, "to "+hits[0].name); toIdx >= 0 {
				spec.Origin, spec.Destination = spec.Destination, spec.Origin
				spec.DestinationCity = titleCase(hits[0].name)
			}
		}
	}

	// Bare IATA codes override city-name guesses.
	if codes := iataRe.FindAllString(raw, -1); len(codes) > 0 {
		valid := codes[:0]
		for _, c := range codes {
			if c != "USD" {
				valid = append(valid, c)
			}
		}
		if len(valid) >= 2 {
			spec.Origin, spec.Destination = valid[0], valid[1]
		} else if len(valid) == 1 && spec.Destination == "" {
			spec.Destination = valid[0]
		}
	}

	if m := travelersRe.FindStringSubmatch(raw); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			spec.NumTravelers = n
		}
	} else if m := forTwoRe.FindStringSubmatch(raw); m != nil {
		spec.NumTravelers = wordNumbers[strings.ToLower(m[1])]
	}

	if m := budgetRe.FindStringSubmatch(raw); m != nil {
		numText := m[1]
		if numText == "" {
			numText = m[2]
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(numText, ",", ""), 64); err == nil {
			if strings.Contains(strings.ToLower(m[0]), "k") {
				v *= 1000
			}
			spec.BudgetTotal = &v
		}
	}

	switch {
	case strings.Contains(lower, "first class"):
		spec.CabinClass = "FIRST"
	case strings.Contains(lower, "business"):
		spec.CabinClass = "BUSINESS"
	case strings.Contains(lower, "premium economy"):
		spec.CabinClass = "PREMIUM_ECONOMY"
	}

	for _, w := range activityWords {
		if strings.Contains(lower, w) {
			spec.IncludeActivities = true
			break
		}
	}

	spec.DepartDate, spec.ReturnDate = p.extractDates(raw)
	return spec
}

// extractDates pulls up to two dates in order of appearance. ISO wins over
// US-style over "Month day"; missing years roll forward from today.
func (p *Parser) extractDates(raw string) (depart, ret string) {
	now := p.now()
	var dates []string

	for _, m := range isoDateRe.FindAllStringSubmatch(raw, -1) {
		dates = append(dates, m[1])
	}

	if len(dates) < 2 {
		for _, m := range usDateRe.FindAllStringSubmatch(raw, -1) {
			month, _ := strconv.Atoi(m[1])
			day, _ := strconv.Atoi(m[2])
			if month < 1 || month > 12 || day < 1 || day > 31 {
				continue
			}
			year := now.Year()
			if m[3] != "" {
				y, _ := strconv.Atoi(m[3])
				if y < 100 {
					y += 2000
				}
				year = y
			}
			d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			if m[3] == "" && d.Before(now) {
				d = d.AddDate(1, 0, 0)
			}
			dates = append(dates, d.Format("2006-01-02"))
		}
	}

	if len(dates) < 2 {
		for _, m := range monthDayRe.FindAllStringSubmatch(raw, -1) {
			month := monthNumbers[strings.ToLower(m[1])]
			day, _ := strconv.Atoi(m[2])
			if day < 1 || day > 31 {
				continue
			}
			year := now.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
			}
			d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if m[3] == "" && d.Before(now) {
				d = d.AddDate(1, 0, 0)
			}
			dates = append(dates, d.Format("2006-01-02"))
		}
	}

	if len(dates) > 0 {
		depart = dates[0]
	}
	if len(dates) > 1 {
		ret = dates[1]
	}
	return depart, ret
}

func indexWord(haystack, word string) int {
	idx := strings.Index(haystack, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(haystack[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(haystack) || !isLetter(haystack[afterIdx])
		if before && after {
			return idx
		}
		next := strings.Index(haystack[idx+1:], word)
		if next < 0 {
			return -1
		}
		idx = idx + 1 + next
	}
	return -1
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

type cityHit struct {
	pos  int
	code string
	name string
}

func dedupeByCode(hits []cityHit) []cityHit {
	seen := make(map[string]int)
	out := hits[:0]
	for _, h := range hits {
		if i, ok := seen[h.code]; ok {
			// Keep the longer name for the same code.
			if len(h.name) > len(out[i].name) {
				out[i] = h
			}
			continue
		}
		seen[h.code] = len(out)
		out = append(out, h)
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
