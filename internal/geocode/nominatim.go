package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// nominatimPlace is one entry of the /search response
type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Hamlet      string `json:"hamlet"`
		State       string `json:"state"`
		Postcode    string `json:"postcode"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
}

func (p nominatimPlace) components() components {
	city := p.Address.City
	for _, alt := range []string{p.Address.Town, p.Address.Village, p.Address.Hamlet} {
		if city == "" {
			city = alt
		}
	}
	return components{
		houseNumber: p.Address.HouseNumber,
		road:        p.Address.Road,
		city:        city,
		state:       p.Address.State,
		postcode:    p.Address.Postcode,
	}
}

// Nominatim standardizes addresses with the OpenStreetMap search API. Requests
// are rate limited and identical addresses are answered from a cache.
type Nominatim struct {
	baseURL    string
	userAgent  string
	email      string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger

	mu    sync.Mutex
	cache map[string]string
}

// NewNominatim creates a client. The public instance allows one request per
// second, which is the default rate.
func NewNominatim(opts Options, logger *zap.Logger) *Nominatim {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "referral-labels/1.0"
	}
	return &Nominatim{
		baseURL:    baseURL,
		userAgent:  userAgent,
		email:      opts.Email,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: 3,
		backoff:    2 * time.Second,
		logger:     logger,
		cache:      make(map[string]string),
	}
}

func (n *Nominatim) Standardize(ctx context.Context, address string) (string, error) {
	key := strings.ToLower(strings.Join(strings.Fields(address), " "))
	if key == "" {
		return "", ErrNoMatch
	}

	n.mu.Lock()
	cached, ok := n.cache[key]
	n.mu.Unlock()
	if ok {
		if cached == "" {
			return "", ErrNoMatch
		}
		return cached, nil
	}

	place, err := n.search(ctx, address)
	if err != nil {
		return "", err
	}

	result := ""
	if place != nil {
		if formatted, ferr := place.components().format(address); ferr == nil {
			result = formatted
		}
	}

	n.mu.Lock()
	n.cache[key] = result
	n.mu.Unlock()

	if result == "" {
		return "", ErrNoMatch
	}
	return result, nil
}

func (n *Nominatim) search(ctx context.Context, address string) (*nominatimPlace, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("countrycodes", "us")
	params.Set("limit", "1")
	if n.email != "" {
		params.Set("email", n.email)
	}
	reqURL := fmt.Sprintf("%s/search?%s", n.baseURL, params.Encode())

	var lastErr error
	for attempt := 0; attempt < n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		places, retry, err := n.do(ctx, reqURL)
		if err == nil {
			if len(places) == 0 {
				return nil, nil
			}
			return &places[0], nil
		}
		lastErr = err
		if !retry {
			break
		}
		n.logger.Debug("nominatim retry", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, lastErr
}

func (n *Nominatim) do(ctx context.Context, reqURL string) (places []nominatimPlace, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := n.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("nominatim returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, false, fmt.Errorf("%w: nominatim returned status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, fmt.Errorf("nominatim returned status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, true, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	return places, false, nil
}
