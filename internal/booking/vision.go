package booking

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-travel-booking-agent/app/observability/metrics"
	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

var _ Agent = (*VisionAgent)(nil)

// VisionModel decides the next browser action from a screenshot. Satisfied
// by GeminiVisionModel and by test mocks.
type VisionModel interface {
	DecideAction(ctx context.Context, screenshotPNG []byte, prompt string) (string, error)
}

type GeminiVisionModel struct {
	client *genai.Client
	model  string
}

func NewGeminiVisionModel(ctx context.Context, model string) (*GeminiVisionModel, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY is required for live booking mode")
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
	return &GeminiVisionModel{client: client, model: model}, nil
}

func (g *GeminiVisionModel) DecideAction(ctx context.Context, screenshotPNG []byte, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(screenshotPNG, "image/png"),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.1),
	})
	if err != nil {
		return "", fmt.Errorf("vision model call failed: %w", err)
	}
	return result.Text(), nil
}

// agentAction is the model's single-step decision.
type agentAction struct {
	Thought            string `json:"thought"`
	Action             string `json:"action"`
	X                  int    `json:"x"`
	Y                  int    `json:"y"`
	Text               string `json:"text"`
	ConfirmationNumber string `json:"confirmation_number"`
	ErrorMessage       string `json:"error_message"`
}

// VisionAgent drives a headless Chrome through real booking sites: at each
// step it screenshots the page, asks the model for one action and executes
// it. Max maxSteps iterations per booking.
type VisionAgent struct {
	steps          *stepWriter
	model          VisionModel
	logger         *slog.Logger
	maxSteps       int
	browserlessURL string
}

func NewVisionAgent(repo Repository, model VisionModel, maxSteps int, browserlessURL string, logger *slog.Logger) *VisionAgent {
	if maxSteps <= 0 {
		maxSteps = 30
	}
	return &VisionAgent{
		steps:          &stepWriter{repo: repo, logger: logger},
		model:          model,
		logger:         logger,
		maxSteps:       maxSteps,
		browserlessURL: browserlessURL,
	}
}

func (a *VisionAgent) Run(ctx context.Context, req AgentRequest) (string, error) {
	ctx, span := otel.Tracer("VisionAgent").Start(ctx, "Run", trace.WithAttributes(
		attribute.String("booking.type", string(req.Type)),
	))
	defer span.End()

	switch req.Type {
	case types.BookingTypeFlight:
		return a.bookFlight(ctx, req)
	case types.BookingTypeHotel:
		return a.bookHotel(ctx, req)
	case types.BookingTypeActivity:
		return "", fmt.Errorf("activity booking via Viator is not yet supported in live mode, "+
			"enable mock mode to simulate activity bookings: %w", ErrNotSupported)
	default:
		return "", fmt.Errorf("unknown booking type %q", req.Type)
	}
}

func (a *VisionAgent) bookFlight(ctx context.Context, req AgentRequest) (string, error) {
	flight := req.Itinerary.Flight
	if flight == nil || len(flight.Segments) == 0 {
		return "", fmt.Errorf("flight has no segments")
	}

	entryURL, ok := supportedCarriers[flight.Carrier]
	if !ok {
		return "", fmt.Errorf("carrier %q is not supported for automated flight booking "+
			"(supported: %s), enable mock mode to simulate any carrier: %w",
			flight.Carrier, strings.Join(carrierCodes(), ", "), ErrNotSupported)
	}

	site := hostOf(entryURL)
	outbound := flight.Segments[0]
	departDate := outbound.Departs
	if len(departDate) > 10 {
		departDate = departDate[:10]
	}

	task := fmt.Sprintf(`Book a %s flight on %s:
  Flight: %s departing %s
  Route: %s -> %s
  Cabin: %s
  Passenger: %s
  Payment: Visa virtual card ending %s exp %s/%s`,
		carrierName(flight.Carrier), site,
		outbound.Flight, departDate,
		outbound.From, outbound.To,
		flight.Cabin,
		passengerJSON(req.Traveler, true),
		last4(req.Card.Number), req.Card.ExpMonth, req.Card.ExpYear)

	return a.drive(ctx, req, site, entryURL, task)
}

func (a *VisionAgent) bookHotel(ctx context.Context, req AgentRequest) (string, error) {
	hotel := req.Itinerary.Hotel
	if hotel == nil {
		return "", fmt.Errorf("itinerary has no hotel")
	}

	site := "www.expedia.com"
	entryURL := "https://www.expedia.com/Hotel-Search"
	if isMarriottBrand(hotel.Name) && hasMarriottLoyalty(req.Traveler) {
		site = "www.marriott.com"
		entryURL = "https://www.marriott.com/reservation/availabilitySearch.mi"
	}

	task := fmt.Sprintf(`Book a hotel room at %s on %s:
  Check-in: %s   Check-out: %s
  Room type: %s
  Guest: %s
  Payment: Visa virtual card ending %s exp %s/%s`,
		hotel.Name, site,
		hotel.CheckIn, hotel.CheckOut,
		hotel.RoomType,
		passengerJSON(req.Traveler, false),
		last4(req.Card.Number), req.Card.ExpMonth, req.Card.ExpYear)

	return a.drive(ctx, req, site, entryURL, task)
}

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// drive opens the browser, navigates to the entry page and hands control to
// the agent loop.
func (a *VisionAgent) drive(ctx context.Context, req AgentRequest, site, entryURL, task string) (string, error) {
	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if a.browserlessURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, a.browserlessURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.UserAgent(browserUserAgent),
		)
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	a.steps.write(ctx, req.BookingID, "navigate", fmt.Sprintf("Navigating to %s", site), "in_progress", nil, nil)

	navCtx, cancelNav := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancelNav()
	if err := chromedp.Run(navCtx,
		chromedp.EmulateViewport(1280, 800),
		chromedp.Navigate(entryURL),
	); err != nil {
		return "", fmt.Errorf("failed to open %s: %w", entryURL, err)
	}

	return a.agentLoop(browserCtx, req, task)
}

// agentLoop is the screenshot -> decide -> execute cycle. Screenshots are
// persisted only on done/error steps to keep the log table small.
func (a *VisionAgent) agentLoop(browserCtx context.Context, req AgentRequest, task string) (string, error) {
	for stepNum := 0; stepNum < a.maxSteps; stepNum++ {
		var screenshot []byte
		if err := chromedp.Run(browserCtx, chromedp.CaptureScreenshot(&screenshot)); err != nil {
			return "", fmt.Errorf("screenshot failed at step %d: %w", stepNum, err)
		}

		raw, err := a.model.DecideAction(browserCtx, screenshot, a.buildPrompt(task, stepNum))
		if err != nil {
			return "", err
		}
		action, err := decodeAction(raw)
		if err != nil {
			return "", fmt.Errorf("unparseable model action at step %d: %w", stepNum, err)
		}

		if m := metrics.Get(); m != nil {
			m.AgentStepsTotal.Add(browserCtx, 1, metric.WithAttributes(
				attribute.String("action", action.Action)))
		}

		result := "in_progress"
		var shot *string
		if action.Action == "done" || action.Action == "error" {
			result = action.Action
			encoded := encodeScreenshot(screenshot)
			shot = &encoded
		}
		a.steps.write(browserCtx, req.BookingID,
			fmt.Sprintf("step_%d", stepNum),
			fmt.Sprintf("[%s] %s", action.Action, action.Thought),
			result, shot, nil)

		switch action.Action {
		case "done":
			if action.ConfirmationNumber == "" {
				return "", fmt.Errorf("agent signalled done without a confirmation number")
			}
			a.steps.write(browserCtx, req.BookingID, "done",
				fmt.Sprintf("Booking confirmed: %s", action.ConfirmationNumber), "success", nil, nil)
			return action.ConfirmationNumber, nil
		case "error":
			msg := action.ErrorMessage
			if msg == "" {
				msg = "Agent reported an error"
			}
			encoded := encodeScreenshot(screenshot)
			a.steps.write(browserCtx, req.BookingID, "error", msg, "error", &encoded, &msg)
			return "", fmt.Errorf("booking agent error: %s", msg)
		}

		if err := a.executeAction(browserCtx, action); err != nil {
			return "", fmt.Errorf("failed to execute %s at step %d: %w", action.Action, stepNum, err)
		}
	}

	return "", fmt.Errorf("agent reached %d steps without completing the booking", a.maxSteps)
}

func (a *VisionAgent) buildPrompt(task string, stepNum int) string {
	return fmt.Sprintf(`You are controlling a web browser to complete a booking. Step %d of max %d.

Task:
%s

Look at the screenshot and decide the SINGLE next action. Return ONLY a JSON object, no markdown, no explanation:

{
  "thought": "what you see and why you're taking this action",
  "action": "click" | "type" | "select" | "scroll_down" | "scroll_up" | "wait" | "done" | "error",
  "x": <integer pixel x for click/type>,
  "y": <integer pixel y for click/type>,
  "text": "<text to type>",
  "confirmation_number": "<PNR or record locator, for done action only>",
  "error_message": "<reason, for error action only>"
}

Rules:
- One action per response. Click a field first, then type in the next step.
- Use "done" ONLY after seeing a booking confirmation page with a record locator / PNR.
- Use "error" if booking is impossible (sold out, card declined, unsupported flow).
- If a cookie banner or popup appears, dismiss it before doing anything else.
- Do not re-enter information already submitted in a previous step.
- Prefer clicking visible button labels and input labels over guessing coordinates.`,
		stepNum+1, a.maxSteps, task)
}

func (a *VisionAgent) executeAction(browserCtx context.Context, action *agentAction) error {
	switch action.Action {
	case "click":
		return chromedp.Run(browserCtx,
			chromedp.MouseClickXY(float64(action.X), float64(action.Y)),
			chromedp.Sleep(800*time.Millisecond),
		)
	case "type":
		tasks := chromedp.Tasks{}
		if action.X != 0 || action.Y != 0 {
			tasks = append(tasks,
				chromedp.MouseClickXY(float64(action.X), float64(action.Y)),
				chromedp.Sleep(300*time.Millisecond),
			)
		}
		tasks = append(tasks, chromedp.KeyEvent(action.Text))
		return chromedp.Run(browserCtx, tasks)
	case "select":
		// The model clicks the dropdown and then the option on the next
		// step; at this level a select is just a click.
		return chromedp.Run(browserCtx,
			chromedp.MouseClickXY(float64(action.X), float64(action.Y)),
			chromedp.Sleep(600*time.Millisecond),
		)
	case "scroll_down":
		return chromedp.Run(browserCtx,
			chromedp.Evaluate("window.scrollBy(0, 600)", nil),
			chromedp.Sleep(400*time.Millisecond),
		)
	case "scroll_up":
		return chromedp.Run(browserCtx,
			chromedp.Evaluate("window.scrollBy(0, -600)", nil),
			chromedp.Sleep(400*time.Millisecond),
		)
	case "wait":
		return chromedp.Run(browserCtx, chromedp.Sleep(2*time.Second))
	default:
		a.logger.Warn("Unknown agent action, treating as wait", slog.String("action", action.Action))
		return chromedp.Run(browserCtx, chromedp.Sleep(2*time.Second))
	}
}

var actionFences = regexp.MustCompile("(?s)^```(?:json)?\\s*|\\s*```$")

func decodeAction(raw string) (*agentAction, error) {
	cleaned := actionFences.ReplaceAllString(strings.TrimSpace(raw), "")
	var action agentAction
	if err := json.Unmarshal([]byte(cleaned), &action); err != nil {
		return nil, err
	}
	if action.Action == "" {
		action.Action = "wait"
	}
	return &action, nil
}

func encodeScreenshot(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}

func passengerJSON(t *types.Traveler, includeTravelDocs bool) string {
	passenger := map[string]any{
		"first_name":      t.FirstName,
		"last_name":       t.LastName,
		"email":           t.Email,
		"phone":           t.Phone,
		"loyalty_numbers": t.LoyaltyNumbers,
	}
	if includeTravelDocs {
		passenger["date_of_birth"] = t.DateOfBirth
		passenger["seat_preference"] = t.SeatPreference
		passenger["tsa_number"] = t.TSANumber
	}
	encoded, _ := json.Marshal(passenger)
	return string(encoded)
}

func carrierCodes() []string {
	codes := make([]string, 0, len(supportedCarriers))
	for code := range supportedCarriers {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func carrierName(code string) string {
	if name, ok := carrierNames[code]; ok {
		return name
	}
	return code
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

func last4(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}
