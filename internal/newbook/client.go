package newbook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultEndpoint is the production REST endpoint.
	DefaultEndpoint = "https://api.newbook.cloud/rest/"

	// ActionAvailabilityPricing is the request_action for availability pricing.
	ActionAvailabilityPricing = "bookings_availability_pricing"

	// Region is the API region every request is routed to.
	Region = "eu"

	maxBodySize = 4 << 20
	maxSnippet  = 256
)

var (
	// ErrTransport is returned when the request could not be completed or the
	// API answered with a non-2xx status.
	ErrTransport = errors.New("upstream transport failure")

	// ErrAPI is returned when the API answered with an error envelope.
	ErrAPI = errors.New("upstream api error")

	// ErrMalformedResponse is returned when the body is not JSON.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// Credentials authenticate one property against the API.
type Credentials struct {
	Username string
	Password string
	APIKey   string
}

// Complete reports whether all credential parts are present.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != "" && c.APIKey != ""
}

// AvailabilityRequest holds the query parameters of one pricing call.
// Dates are DD-MM-YYYY.
type AvailabilityRequest struct {
	PeriodFrom string
	PeriodTo   string
	Adults     int
	Children   int
	PromoCode  string
}

type requestBody struct {
	APIKey        string `json:"api_key"`
	PeriodFrom    string `json:"period_from"`
	PeriodTo      string `json:"period_to"`
	Adults        int    `json:"adults"`
	Children      int    `json:"children"`
	PromoCode     string `json:"promo_code,omitempty"`
	RequestAction string `json:"request_action"`
	Region        string `json:"region"`
}

// Client calls the availability pricing endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new Client. An empty endpoint selects DefaultEndpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Availability posts one availability pricing request.
// On an error envelope the decoded response is returned together with an
// error wrapping ErrAPI.
func (c *Client) Availability(ctx context.Context, creds Credentials, ar AvailabilityRequest) (*Response, error) {
	payload, err := json.Marshal(requestBody{
		APIKey:        creds.APIKey,
		PeriodFrom:    ar.PeriodFrom,
		PeriodTo:      ar.PeriodTo,
		Adults:        ar.Adults,
		Children:      ar.Children,
		PromoCode:     ar.PromoCode,
		RequestAction: ActionAvailabilityPricing,
		Region:        Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(creds.Username, creds.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close() // Explicitly ignore close error
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrTransport, resp.StatusCode, snippet(body))
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, snippet(body))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if out.Error != "" {
		return &out, fmt.Errorf("%w: %s", ErrAPI, out.Error)
	}

	return &out, nil
}

// snippet trims a body for error messages, cutting on a rune boundary.
func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= maxSnippet {
		return s
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
