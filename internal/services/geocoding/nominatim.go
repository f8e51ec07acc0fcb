package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/killallgit/route-planner-api/pkg/errors"
	"golang.org/x/time/rate"
)

const serviceName = "nominatim"

// NominatimClient queries an OpenStreetMap Nominatim /search endpoint
type NominatimClient struct {
	httpClient   *http.Client
	baseURL      string
	userAgent    string
	limit        int
	language     string
	countryCodes []string
	limiter      *rate.Limiter
	log          *slog.Logger
}

// Config holds configuration for the Nominatim client
type Config struct {
	BaseURL      string
	UserAgent    string
	Timeout      time.Duration
	RateLimit    float64 // requests per second, <= 0 disables limiting
	Burst        int
	Limit        int
	Language     string
	CountryCodes []string
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// NewNominatimClient creates a new Nominatim client
func NewNominatimClient(cfg Config) *NominatimClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "RoutePlannerAPI/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, cfg.Burst)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &NominatimClient{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:    cfg.UserAgent,
		limit:        cfg.Limit,
		language:     cfg.Language,
		countryCodes: cfg.CountryCodes,
		limiter:      limiter,
		log:          log.With("component", serviceName),
	}
}

type nominatimPlace struct {
	PlaceID     int64   `json:"place_id"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Geocode searches Nominatim for text. Cancellation of ctx aborts both the
// rate-limiter wait and the HTTP request.
func (c *NominatimClient) Geocode(ctx context.Context, text string) ([]Place, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Place{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classify(ctx, err)
	}

	params := url.Values{}
	params.Set("q", text)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(c.limit))
	if c.language != "" {
		params.Set("accept-language", c.language)
	}
	if len(c.countryCodes) > 0 {
		params.Set("countrycodes", strings.Join(c.countryCodes, ","))
	}

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = classify(ctx, err)
		if !errors.Is(err, context.Canceled) {
			c.log.Error("nominatim request failed", "error", err)
		}
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.RateLimitError(serviceName, fmt.Errorf("upstream returned status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		c.log.Error("nominatim upstream error", "status", resp.StatusCode)
		return nil, apperrors.ExternalServiceError(serviceName, fmt.Errorf("upstream returned status %d", resp.StatusCode)).
			WithDetail("status", resp.StatusCode)
	}

	var raw []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.log.Error("failed to decode nominatim payload", "error", err)
		return nil, apperrors.ExternalServiceError(serviceName, fmt.Errorf("decoding response: %w", err))
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		place, ok := toPlace(r)
		if !ok {
			continue
		}
		places = append(places, place)
	}

	c.log.Debug("geocoded", "query", text, "results", len(places), "duration", time.Since(start))
	return places, nil
}

// classify maps transport failures onto application errors. A cancelled
// context is returned untouched so callers can tell supersession from failure.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.TimeoutError("geocode", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return apperrors.TimeoutError("geocode", err)
	case ctx.Err() == nil && strings.HasPrefix(err.Error(), "rate:"):
		// limiter refused because the wait would outlive the deadline
		return apperrors.TimeoutError("geocode", err)
	default:
		return apperrors.ExternalServiceError(serviceName, err)
	}
}

func toPlace(r nominatimPlace) (Place, bool) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return Place{}, false
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return Place{}, false
	}

	center := Coordinates{Lat: lat, Lon: lon}
	if !center.Valid() || r.DisplayName == "" {
		return Place{}, false
	}

	kind := r.Type
	if r.Category != "" && r.Type != "" {
		kind = r.Category + ":" + r.Type
	}

	return Place{
		Name:   r.DisplayName,
		Center: center,
		Properties: Properties{
			PlaceID: strconv.FormatInt(r.PlaceID, 10),
			Kind:    kind,
		},
	}, true
}
