// Package sites holds the configured properties and the global widget
// options. The catalog is read-only for request handling; it is replaced
// wholesale when the configuration is reloaded.
package sites

import (
	"errors"
	"strings"

	"github.com/alex-user-go/pricecheck/internal/newbook"
)

// DefaultPromoCode is used for channel-rate lookups when a site has none.
const DefaultPromoCode = "PriceCheckCode"

// ErrNotFound is returned when no site matches a lookup.
var ErrNotFound = errors.New("site not found")

// Site is one bookable property.
type Site struct {
	Code           string `yaml:"code" db:"code"`
	Name           string `yaml:"name" db:"name"`
	APIUsername    string `yaml:"api_username" db:"api_username"`
	APIPassword    string `yaml:"api_password" db:"api_password"`
	APIKey         string `yaml:"api_key" db:"api_key"`
	BookingURL     string `yaml:"booking_url" db:"booking_url"`
	PromoCode      string `yaml:"promo_code" db:"promo_code"`
	IsPrimary      bool   `yaml:"is_primary" db:"is_primary"`
	ShowAsFallback bool   `yaml:"show_as_fallback" db:"show_as_fallback"`
}

// Credentials returns the API credentials of the site.
func (s Site) Credentials() newbook.Credentials {
	return newbook.Credentials{
		Username: s.APIUsername,
		Password: s.APIPassword,
		APIKey:   s.APIKey,
	}
}

// Configured reports whether the site can be queried upstream.
func (s Site) Configured() bool {
	return s.Credentials().Complete()
}

// Options are the global widget options.
type Options struct {
	CurrencySymbol  string `yaml:"currency_symbol" json:"currency"`
	DefaultAdults   int    `yaml:"default_adults" json:"default_adults"`
	DefaultChildren int    `yaml:"default_children" json:"default_children"`
	MaxAdults       int    `yaml:"max_adults" json:"max_adults"`
	MaxChildren     int    `yaml:"max_children" json:"max_children"`
	EnableFallback  bool   `yaml:"enable_fallback" json:"enable_fallback"`
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		CurrencySymbol:  "£",
		DefaultAdults:   2,
		DefaultChildren: 0,
		MaxAdults:       6,
		MaxChildren:     4,
		EnableFallback:  false,
	}
}

// Sanitize cleans a raw site list: sites without a code are dropped, text
// fields are trimmed, an empty promo code gets the default and only the first
// site flagged primary keeps the flag.
func Sanitize(in []Site) []Site {
	out := make([]Site, 0, len(in))
	hasPrimary := false

	for _, s := range in {
		s.Code = strings.TrimSpace(s.Code)
		if s.Code == "" {
			continue
		}
		s.Name = strings.TrimSpace(s.Name)
		s.APIUsername = strings.TrimSpace(s.APIUsername)
		s.APIKey = strings.TrimSpace(s.APIKey)
		s.BookingURL = strings.TrimSpace(s.BookingURL)
		s.PromoCode = strings.TrimSpace(s.PromoCode)
		if s.PromoCode == "" {
			s.PromoCode = DefaultPromoCode
		}

		if s.IsPrimary {
			if hasPrimary {
				s.IsPrimary = false
			}
			hasPrimary = true
		}

		out = append(out, s)
	}

	return out
}

// SanitizeOptions replaces negative counts with defaults and fills in an
// empty currency symbol.
func SanitizeOptions(o Options) Options {
	d := DefaultOptions()
	o.CurrencySymbol = strings.TrimSpace(o.CurrencySymbol)
	if o.CurrencySymbol == "" {
		o.CurrencySymbol = d.CurrencySymbol
	}
	if o.DefaultAdults < 0 {
		o.DefaultAdults = d.DefaultAdults
	}
	if o.DefaultChildren < 0 {
		o.DefaultChildren = d.DefaultChildren
	}
	if o.MaxAdults <= 0 {
		o.MaxAdults = d.MaxAdults
	}
	if o.MaxChildren < 0 {
		o.MaxChildren = d.MaxChildren
	}
	return o
}
