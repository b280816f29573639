// Package pricing runs the direct and channel availability lookups for a
// property and assembles the comparison returned to the widget.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alex-user-go/pricecheck/internal/newbook"
	"github.com/alex-user-go/pricecheck/internal/obs"
	"github.com/alex-user-go/pricecheck/internal/rates"
	"github.com/alex-user-go/pricecheck/internal/sites"
)

var (
	// ErrNotConfigured is returned when a site lacks API credentials.
	ErrNotConfigured = errors.New("site not configured properly")

	// ErrUpstreamUnavailable is returned when both the direct and the channel
	// lookup failed at transport level.
	ErrUpstreamUnavailable = errors.New("pricing api unavailable")
)

// DefaultFallbackConcurrency bounds parallel fallback lookups.
const DefaultFallbackConcurrency = 4

// Fetcher performs one availability pricing call.
type Fetcher interface {
	Availability(ctx context.Context, creds newbook.Credentials, ar newbook.AvailabilityRequest) (*newbook.Response, error)
}

// Catalog lists the fallback-eligible sites.
type Catalog interface {
	Fallbacks(exclude string) []sites.Site
}

// SiteSummary identifies the property a comparison belongs to.
type SiteSummary struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	BookingURL string `json:"booking_url"`
}

// ComparisonResult compares direct and channel prices of one property.
type ComparisonResult struct {
	Site     SiteSummary           `json:"site"`
	Online   rates.CheapestRate    `json:"online"`
	Channels rates.CheapestRate    `json:"channels"`
	AllRates []rates.RoomRateGroup `json:"all_rates"`
}

// FallbackSite is an alternative property with availability.
type FallbackSite struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	CheapestPrice float64 `json:"cheapest_price"`
	BookingURL    string  `json:"booking_url"`
}

// Service compares direct and channel prices.
type Service struct {
	fetcher     Fetcher
	catalog     Catalog
	concurrency int
	metrics     *obs.Metrics
	logger      *slog.Logger
}

// NewService creates a new Service. A concurrency below 1 selects
// DefaultFallbackConcurrency.
func NewService(fetcher Fetcher, catalog Catalog, concurrency int, metrics *obs.Metrics, logger *slog.Logger) *Service {
	if concurrency < 1 {
		concurrency = DefaultFallbackConcurrency
	}
	return &Service{
		fetcher:     fetcher,
		catalog:     catalog,
		concurrency: concurrency,
		metrics:     metrics,
		logger:      logger,
	}
}

// Compare fetches direct and channel availability for site concurrently and
// reduces both to their cheapest rate. A failed lookup counts as unavailable;
// only when both fail at transport level is ErrUpstreamUnavailable returned.
func (s *Service) Compare(ctx context.Context, site sites.Site, q Query) (*ComparisonResult, error) {
	if !site.Configured() {
		return nil, ErrNotConfigured
	}

	promo := site.PromoCode
	if promo == "" {
		promo = sites.DefaultPromoCode
	}

	var (
		g                     errgroup.Group
		direct, channel       *newbook.Response
		directErr, channelErr error
	)

	g.Go(func() error {
		direct, directErr = s.fetch(ctx, site, q.request(""))
		return nil
	})
	g.Go(func() error {
		channel, channelErr = s.fetch(ctx, site, q.request(promo))
		return nil
	})
	_ = g.Wait()

	if transportFailure(directErr) && transportFailure(channelErr) {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, directErr)
	}

	result := &ComparisonResult{
		Site: SiteSummary{
			Code:       site.Code,
			Name:       site.Name,
			BookingURL: site.BookingURL,
		},
		Online:   rates.Cheapest(direct),
		Channels: rates.Cheapest(channel),
		AllRates: rates.Grouped(direct),
	}

	s.logger.Debug("price comparison",
		"site", site.Code,
		"period_from", q.PeriodFrom(),
		"period_to", q.PeriodTo(),
		"online_available", result.Online.Available,
		"online_price", result.Online.Price,
		"channel_available", result.Channels.Available,
		"channel_price", result.Channels.Price,
		"online_messages", result.Online.Diagnostics.Messages,
		"channel_messages", result.Channels.Diagnostics.Messages,
	)

	return result, nil
}

// Fallbacks checks every fallback-eligible site except excludeCode and
// returns those with direct availability, in configured order. Sites whose
// lookup fails are left out.
func (s *Service) Fallbacks(ctx context.Context, excludeCode string, q Query) []FallbackSite {
	candidates := s.catalog.Fallbacks(excludeCode)
	if len(candidates) == 0 {
		return []FallbackSite{}
	}

	found := make([]*FallbackSite, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, site := range candidates {
		g.Go(func() error {
			res, err := s.Compare(ctx, site, q)
			if err != nil {
				s.logger.Warn("fallback site skipped", "site", site.Code, "error", err)
				return nil
			}
			if !res.Online.Available {
				return nil
			}
			found[i] = &FallbackSite{
				Code:          site.Code,
				Name:          site.Name,
				CheapestPrice: res.Online.Price,
				BookingURL:    BookingURL(site.BookingURL, q),
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]FallbackSite, 0, len(found))
	for _, f := range found {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func (s *Service) fetch(ctx context.Context, site sites.Site, ar newbook.AvailabilityRequest) (*newbook.Response, error) {
	resp, err := s.fetcher.Availability(ctx, site.Credentials(), ar)
	if err != nil {
		s.metrics.IncUpstreamErrors()
		s.logger.Warn("availability lookup failed",
			"site", site.Code,
			"promo", ar.PromoCode != "",
			"error", err,
		)
		return nil, err
	}
	return resp, nil
}

// transportFailure reports whether err means the call did not produce a
// usable answer: network errors, non-2xx statuses and API error envelopes.
// Malformed bodies are not included; they degrade to "unavailable".
func transportFailure(err error) bool {
	return errors.Is(err, newbook.ErrTransport) || errors.Is(err, newbook.ErrAPI)
}
