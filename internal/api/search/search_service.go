package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travel-booking-agent/internal/types"
)

var amadeusHosts = map[string]string{
	"test":       "https://test.api.amadeus.com",
	"production": "https://api.amadeus.com",
}

const (
	tokenCacheKey    = "amadeus_token"
	defaultResultTTL = 5 * time.Minute
	maxFlightResults = 5
	maxHotelResults  = 5
)

var _ Service = (*ServiceImpl)(nil)

// Service aggregates flight, hotel and activity offers. Without Amadeus
// credentials every search returns realistic mock data so the full pipeline
// works offline.
type Service interface {
	SearchFlights(ctx context.Context, p FlightSearchParams) ([]types.FlightOffer, error)
	SearchHotels(ctx context.Context, p HotelSearchParams) ([]types.HotelOfferData, error)
	SearchActivities(ctx context.Context, cityCode, startDate, endDate string) ([]types.ActivityOption, error)
}

type FlightSearchParams struct {
	Origin      string
	Destination string
	DepartDate  string
	ReturnDate  string
	Adults      int
	TravelClass string
}

type HotelSearchParams struct {
	CityCode string
	CheckIn  string
	CheckOut string
	Adults   int
}

type ServiceImpl struct {
	logger       *slog.Logger
	httpClient   *http.Client
	cache        *gocache.Cache
	baseURL      string
	clientID     string
	clientSecret string
	resultTTL    time.Duration
}

// NewService reads Amadeus credentials from AMADEUS_CLIENT_ID and
// AMADEUS_CLIENT_SECRET. An empty client ID means mock mode.
func NewService(env string, resultTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	base, ok := amadeusHosts[env]
	if !ok {
		base = amadeusHosts["test"]
	}
	if resultTTL <= 0 {
		resultTTL = defaultResultTTL
	}
	return &ServiceImpl{
		logger:       logger,
		httpClient:   &http.Client{Timeout: 25 * time.Second},
		cache:        gocache.New(resultTTL, 10*time.Minute),
		baseURL:      base,
		clientID:     os.Getenv("AMADEUS_CLIENT_ID"),
		clientSecret: os.Getenv("AMADEUS_CLIENT_SECRET"),
		resultTTL:    resultTTL,
	}
}

// SetBaseURL overrides the API host. Used by tests.
func (s *ServiceImpl) SetBaseURL(u string) { s.baseURL = u }

// SetCredentials overrides the env credentials. Used by tests.
func (s *ServiceImpl) SetCredentials(id, secret string) {
	s.clientID = id
	s.clientSecret = secret
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *ServiceImpl) token(ctx context.Context) (string, error) {
	if tok, found := s.cache.Get(tokenCacheKey); found {
		return tok.(string), nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("amadeus token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("amadeus token request returned %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	// Refresh a minute before expiry.
	ttl := time.Duration(tr.ExpiresIn)*time.Second - time.Minute
	if ttl <= 0 {
		ttl = time.Minute
	}
	s.cache.Set(tokenCacheKey, tr.AccessToken, ttl)
	return tr.AccessToken, nil
}

func (s *ServiceImpl) getJSON(ctx context.Context, path string, params url.Values, out interface{}) (int, error) {
	token, err := s.token(ctx)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("amadeus request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("amadeus %s returned %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode amadeus response: %w", err)
	}
	return resp.StatusCode, nil
}

// SearchFlights returns Amadeus flight offers, or mock offers when
// credentials are absent.
func (s *ServiceImpl) SearchFlights(ctx context.Context, p FlightSearchParams) ([]types.FlightOffer, error) {
	ctx, span := otel.Tracer("SearchService").Start(ctx, "SearchFlights", trace.WithAttributes(
		attribute.String("flight.origin", p.Origin),
		attribute.String("flight.destination", p.Destination),
	))
	defer span.End()

	if s.clientID == "" {
		span.SetAttributes(attribute.Bool("search.mock", true))
		return mockFlights(p.Origin, p.Destination, p.DepartDate, p.ReturnDate), nil
	}

	cacheKey := fmt.Sprintf("flights|%s|%s|%s|%s|%d|%s",
		p.Origin, p.Destination, p.DepartDate, p.ReturnDate, p.Adults, p.TravelClass)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]types.FlightOffer), nil
	}

	if p.Adults <= 0 {
		p.Adults = 1
	}
	if p.TravelClass == "" {
		p.TravelClass = "ECONOMY"
	}

	params := url.Values{}
	params.Set("originLocationCode", p.Origin)
	params.Set("destinationLocationCode", p.Destination)
	params.Set("departureDate", p.DepartDate)
	params.Set("adults", strconv.Itoa(p.Adults))
	params.Set("travelClass", p.TravelClass)
	params.Set("max", strconv.Itoa(maxFlightResults))
	params.Set("currencyCode", "USD")
	if p.ReturnDate != "" {
		params.Set("returnDate", p.ReturnDate)
	}

	var payload struct {
		Data []types.FlightOffer `json:"data"`
	}
	if _, err := s.getJSON(ctx, "/v2/shopping/flight-offers", params, &payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Flight search failed")
		return nil, err
	}

	s.cache.Set(cacheKey, payload.Data, s.resultTTL)
	span.SetAttributes(attribute.Int("flight.offers", len(payload.Data)))
	return payload.Data, nil
}

// SearchHotels is a two-step lookup: hotel ids by city, then availability
// and pricing for those ids.
func (s *ServiceImpl) SearchHotels(ctx context.Context, p HotelSearchParams) ([]types.HotelOfferData, error) {
	ctx, span := otel.Tracer("SearchService").Start(ctx, "SearchHotels", trace.WithAttributes(
		attribute.String("hotel.city_code", p.CityCode),
	))
	defer span.End()

	if s.clientID == "" {
		span.SetAttributes(attribute.Bool("search.mock", true))
		return mockHotels(p.CityCode, p.CheckIn, p.CheckOut), nil
	}

	cacheKey := fmt.Sprintf("hotels|%s|%s|%s|%d", p.CityCode, p.CheckIn, p.CheckOut, p.Adults)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]types.HotelOfferData), nil
	}

	if p.Adults <= 0 {
		p.Adults = 1
	}

	listParams := url.Values{}
	listParams.Set("cityCode", p.CityCode)
	listParams.Set("radius", "10")
	listParams.Set("radiusUnit", "KM")
	listParams.Set("hotelSource", "ALL")

	var hotelList struct {
		Data []struct {
			HotelID string `json:"hotelId"`
		} `json:"data"`
	}
	if _, err := s.getJSON(ctx, "/v1/reference-data/locations/hotels/by-city", listParams, &hotelList); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hotel list failed")
		return nil, err
	}
	if len(hotelList.Data) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, 20)
	for _, h := range hotelList.Data {
		ids = append(ids, h.HotelID)
		if len(ids) == 20 {
			break
		}
	}

	offerParams := url.Values{}
	offerParams.Set("hotelIds", strings.Join(ids, ","))
	offerParams.Set("checkInDate", p.CheckIn)
	offerParams.Set("checkOutDate", p.CheckOut)
	offerParams.Set("adults", strconv.Itoa(p.Adults))
	offerParams.Set("currency", "USD")
	offerParams.Set("bestRateOnly", "true")

	var payload struct {
		Data []types.HotelOfferData `json:"data"`
	}
	status, err := s.getJSON(ctx, "/v3/shopping/hotel-offers", offerParams, &payload)
	if err != nil {
		// A non-200 here usually means no availability for the id batch.
		if status != 0 && status != http.StatusOK {
			s.logger.WarnContext(ctx, "Hotel offers lookup degraded to empty",
				slog.Int("status", status), slog.Any("error", err))
			return nil, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hotel offers failed")
		return nil, err
	}

	offers := payload.Data
	if len(offers) > maxHotelResults {
		offers = offers[:maxHotelResults]
	}
	s.cache.Set(cacheKey, offers, s.resultTTL)
	span.SetAttributes(attribute.Int("hotel.offers", len(offers)))
	return offers, nil
}

// SearchActivities returns activity offers for a city. Mock-only: the
// activity supplier integration never went live.
func (s *ServiceImpl) SearchActivities(ctx context.Context, cityCode, startDate, endDate string) ([]types.ActivityOption, error) {
	_, span := otel.Tracer("SearchService").Start(ctx, "SearchActivities", trace.WithAttributes(
		attribute.String("activity.city_code", cityCode),
	))
	defer span.End()

	return mockActivities(cityCode, startDate), nil
}
