package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/alex-user-go/pricecheck/internal/middleware"
	"github.com/alex-user-go/pricecheck/internal/obs"
	"github.com/alex-user-go/pricecheck/internal/pricing"
	"github.com/alex-user-go/pricecheck/internal/ratelimit"
	"github.com/alex-user-go/pricecheck/internal/sites"
)

const (
	msgRateLimited       = "Too many requests. Please wait a moment."
	msgSiteNotFound      = "Site not configured"
	msgSiteNotConfigured = "Site not configured properly"
	msgUpstreamFailed    = "API request failed"
	msgWidgetNotFound    = "Price checker not configured"
	msgInternal          = "Something went wrong"
)

// Handler handles HTTP requests.
type Handler struct {
	pricing *pricing.Service
	catalog *sites.Catalog
	limiter ratelimit.Limiter
	flight  singleflight.Group
	metrics *obs.Metrics
	logger  *slog.Logger

	trustProxy bool
}

// New creates a new Handler.
func New(
	svc *pricing.Service,
	catalog *sites.Catalog,
	limiter ratelimit.Limiter,
	metrics *obs.Metrics,
	logger *slog.Logger,
	trustProxy bool,
) *Handler {
	return &Handler{
		pricing:    svc,
		catalog:    catalog,
		limiter:    limiter,
		metrics:    metrics,
		logger:     logger,
		trustProxy: trustProxy,
	}
}

// PriceCheckResponse is a comparison plus the prefilled booking link.
type PriceCheckResponse struct {
	*pricing.ComparisonResult
	BookingURL string `json:"booking_url"`
}

// FallbackResponse lists alternative properties with availability.
type FallbackResponse struct {
	Sites []pricing.FallbackSite `json:"sites"`
}

// WidgetResponse carries what a widget needs to render for one site.
type WidgetResponse struct {
	SiteCode     string         `json:"site_code"`
	SiteName     string         `json:"site_name"`
	BookingURL   string         `json:"booking_url"`
	ShowFallback bool           `json:"show_fallback"`
	Title        string         `json:"title"`
	Currency     string         `json:"currency"`
	Defaults     WidgetDefaults `json:"defaults"`
}

// WidgetDefaults are the guest selector defaults and limits.
type WidgetDefaults struct {
	Adults      int `json:"adults"`
	Children    int `json:"children"`
	MaxAdults   int `json:"max_adults"`
	MaxChildren int `json:"max_children"`
}

// allow applies the per-IP rate limit and writes the rejection.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request) bool {
	ip := ExtractIP(r, h.trustProxy)
	if h.limiter.Allow(r.Context(), ip) {
		return true
	}
	h.metrics.IncRateLimited()
	h.logger.Warn("rate limit exceeded",
		"request_id", middleware.RequestID(r.Context()),
		"ip", ip,
		"path", r.URL.Path,
	)
	writeError(w, http.StatusTooManyRequests, msgRateLimited)
	return false
}

// PriceCheck handles /api/price-check requests.
func (h *Handler) PriceCheck(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()
	requestID := middleware.RequestID(r.Context())

	if !h.allow(w, r) {
		return
	}

	params, err := ParseCheckParams(r, "site", h.catalog.Options())
	if err != nil {
		h.logger.Debug("invalid request parameters", "request_id", requestID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	site, err := h.catalog.Lookup(params.Site)
	if err != nil {
		h.logger.Debug("unknown site", "request_id", requestID, "site", params.Site)
		writeError(w, http.StatusNotFound, msgSiteNotFound)
		return
	}

	result, err := h.compare(r.Context(), site, params.Query)
	if err != nil {
		status, message := compareFailure(err)
		h.logger.Error("price check failed",
			"request_id", requestID,
			"site", site.Code,
			"error", err,
		)
		writeError(w, status, message)
		return
	}

	h.metrics.IncPriceChecks()
	writeSuccess(w, PriceCheckResponse{
		ComparisonResult: result,
		BookingURL:       pricing.BookingURL(site.BookingURL, params.Query),
	})
}

// compare collapses identical in-flight comparisons into one pair of
// upstream calls. The shared call is detached from the caller's
// cancellation; the upstream client timeout bounds it.
func (h *Handler) compare(ctx context.Context, site sites.Site, q pricing.Query) (*pricing.ComparisonResult, error) {
	key := fmt.Sprintf("%s|%s|%s|%d|%d", site.Code, q.PeriodFrom(), q.PeriodTo(), q.Adults, q.Children)

	v, err, shared := h.flight.Do(key, func() (any, error) {
		return h.pricing.Compare(context.WithoutCancel(ctx), site, q)
	})
	if shared {
		h.logger.Debug("price check shared", "key", key)
	}
	if err != nil {
		return nil, err
	}
	return v.(*pricing.ComparisonResult), nil
}

func compareFailure(err error) (int, string) {
	switch {
	case errors.Is(err, pricing.ErrNotConfigured):
		return http.StatusServiceUnavailable, msgSiteNotConfigured
	case errors.Is(err, pricing.ErrUpstreamUnavailable):
		return http.StatusBadGateway, msgUpstreamFailed
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// FallbackCheck handles /api/fallback-check requests.
func (h *Handler) FallbackCheck(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()
	requestID := middleware.RequestID(r.Context())

	if !h.allow(w, r) {
		return
	}

	params, err := ParseCheckParams(r, "exclude_site", h.catalog.Options())
	if err != nil {
		h.logger.Debug("invalid request parameters", "request_id", requestID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.metrics.IncFallbackChecks()
	found := h.pricing.Fallbacks(r.Context(), params.Site, params.Query)

	h.logger.Info("fallback check",
		"request_id", requestID,
		"exclude_site", params.Site,
		"found", len(found),
	)
	writeSuccess(w, FallbackResponse{Sites: found})
}

// Widget handles /api/widget requests. Parameters: site (default primary),
// show_fallback (anything but "false" enables it when the global option
// allows), booking_url (overrides the site's) and title.
func (h *Handler) Widget(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncRequests()

	query := r.URL.Query()
	site, err := h.catalog.Lookup(strings.TrimSpace(query.Get("site")))
	if err != nil {
		writeError(w, http.StatusNotFound, msgWidgetNotFound)
		return
	}

	opts := h.catalog.Options()

	bookingURL := strings.TrimSpace(query.Get("booking_url"))
	if bookingURL == "" {
		bookingURL = site.BookingURL
	}

	writeSuccess(w, WidgetResponse{
		SiteCode:     site.Code,
		SiteName:     site.Name,
		BookingURL:   bookingURL,
		ShowFallback: query.Get("show_fallback") != "false" && opts.EnableFallback,
		Title:        strings.TrimSpace(query.Get("title")),
		Currency:     opts.CurrencySymbol,
		Defaults: WidgetDefaults{
			Adults:      opts.DefaultAdults,
			Children:    opts.DefaultChildren,
			MaxAdults:   opts.MaxAdults,
			MaxChildren: opts.MaxChildren,
		},
	})
}
