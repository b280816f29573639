package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// MockOptions configure the mock API.
type MockOptions struct {
	Username   string
	Password   string
	FailRate   float64
	MaxLatency time.Duration
}

// MockAPI answers availability pricing requests with generated categories.
// Free-text fields deliberately vary in shape across tariffs.
type MockAPI struct {
	opts   MockOptions
	mu     sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

// NewMockAPI creates a new MockAPI.
func NewMockAPI(opts MockOptions, logger *slog.Logger) *MockAPI {
	return &MockAPI{
		opts:   opts,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

type pricingRequest struct {
	APIKey        string `json:"api_key"`
	PeriodFrom    string `json:"period_from"`
	PeriodTo      string `json:"period_to"`
	Adults        int    `json:"adults"`
	Children      int    `json:"children"`
	PromoCode     string `json:"promo_code"`
	RequestAction string `json:"request_action"`
	Region        string `json:"region"`
}

type category struct {
	Name           string   `json:"category_name"`
	SitesAvailable any      `json:"sites_available"`
	Tariffs        []tariff `json:"tariffs_available"`
}

type tariff struct {
	Label            string `json:"tariff_label"`
	Total            any    `json:"tariff_total"`
	Success          any    `json:"tariff_success"`
	Message          any    `json:"tariff_message,omitempty"`
	MinNights        int    `json:"tariff_min_nights,omitempty"`
	ShortDescription any    `json:"tariff_short_description,omitempty"`
	Inclusions       any    `json:"tariff_inclusions,omitempty"`
}

const dateLayout = "02-01-2006"

// promoMarkup is applied to channel (promo code) prices.
const promoMarkup = 1.12

func (m *MockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != m.opts.Username || pass != m.opts.Password {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req pricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if req.APIKey == "" {
		m.writeJSON(w, map[string]any{"error": map[string]string{"message": "Invalid API key"}})
		return
	}
	if req.RequestAction != "bookings_availability_pricing" || req.Region != "eu" {
		m.writeJSON(w, map[string]any{"error": "Unsupported request"})
		return
	}

	from, errFrom := time.Parse(dateLayout, req.PeriodFrom)
	to, errTo := time.Parse(dateLayout, req.PeriodTo)
	if errFrom != nil || errTo != nil || !to.After(from) {
		m.writeJSON(w, map[string]any{"error": "Invalid period"})
		return
	}

	latency, fail := m.roll()
	select {
	case <-time.After(latency):
	case <-r.Context().Done():
		return
	}
	if fail {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
		return
	}

	nights := int(to.Sub(from).Hours() / 24)
	markup := 1.0
	if req.PromoCode != "" {
		markup = promoMarkup
	}

	m.logger.Info("pricing request",
		"api_key", req.APIKey,
		"period_from", req.PeriodFrom,
		"nights", nights,
		"promo", req.PromoCode != "",
	)
	m.writeJSON(w, map[string]any{"data": generate(nights, req.Adults, req.Children, markup)})
}

func (m *MockAPI) roll() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latency time.Duration
	if m.opts.MaxLatency > 0 {
		latency = time.Duration(m.rng.Int63n(int64(m.opts.MaxLatency)))
	}
	return latency, m.rng.Float64() < m.opts.FailRate
}

func (m *MockAPI) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Error("failed to encode response", "error", err)
	}
}

// generate builds the category list. Guests above two add a surcharge per
// night; stays shorter than three nights fail the lodge's saver tariff.
func generate(nights, adults, children int, markup float64) []category {
	extra := max(adults+children-2, 0)
	price := func(perNight float64) string {
		total := (perNight + float64(extra)*12.5) * float64(nights) * markup
		return fmt.Sprintf("%.2f", math.Round(total*100)/100)
	}

	saver := tariff{
		Label:     "Saver",
		Total:     price(78),
		Success:   "true",
		Message:   "Non refundable",
		MinNights: 3,
	}
	if nights < 3 {
		saver.Total = 0
		saver.Success = "false"
		saver.Message = "Sorry, 3 nights minimum stay for this tariff"
	}

	return []category{
		{
			Name:           "Standard Pitch",
			SitesAvailable: 6,
			Tariffs: []tariff{
				{
					Label:            "Flexible",
					Total:            price(32),
					Success:          "true",
					Message:          "Free cancellation until 7 days before arrival",
					ShortDescription: "Grass pitch with electric hook-up",
					Inclusions:       []any{"Electric hook-up", "Showers", map[string]any{"name": "Wi-Fi"}},
				},
			},
		},
		{
			Name:           "Lakeside Lodge",
			SitesAvailable: "2",
			Tariffs: []tariff{
				{
					Label:   "Flexible",
					Total:   price(95),
					Success: "true",
					Message: "Available Friday 13 June",
					Inclusions: map[string]any{
						"amenities": []string{"Hot tub", "Lake view"},
						"linen":     "Bed linen included",
					},
				},
				saver,
			},
		},
		{
			Name:           "Glamping Pod",
			SitesAvailable: 0,
			Tariffs: []tariff{
				{
					Label:     "Weekend",
					Total:     0,
					Success:   false,
					Message:   "2 nights minimum",
					MinNights: 2,
				},
			},
		},
	}
}
