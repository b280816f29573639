package handler

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/alex-user-go/pricecheck/internal/pricing"
	"github.com/alex-user-go/pricecheck/internal/sites"
)

// User-facing validation messages.
const (
	msgDatesRequired = "Please select arrival and departure dates"
	msgInvalidDate   = "Invalid date format"
	msgInvalidRange  = "Departure date must be after arrival date"
)

var errDatesRequired = errors.New(msgDatesRequired)

// CheckParams holds validated price and fallback check parameters.
type CheckParams struct {
	Site  string
	Query pricing.Query
}

// ParseCheckParams reads site, available_from, available_to (or nights),
// adults and children from the query string or a POST form. siteField names
// the parameter carrying the site code. Missing guest counts take the
// configured defaults.
func ParseCheckParams(r *http.Request, siteField string, opts sites.Options) (*CheckParams, error) {
	from := strings.TrimSpace(r.FormValue("available_from"))
	to := strings.TrimSpace(r.FormValue("available_to"))
	nightsStr := strings.TrimSpace(r.FormValue("nights"))

	if from == "" || (to == "" && nightsStr == "") {
		return nil, errDatesRequired
	}

	arrival, err := pricing.ParseDate(from)
	if err != nil {
		return nil, errors.New(msgInvalidDate)
	}

	departure := arrival
	if to != "" {
		departure, err = pricing.ParseDate(to)
		if err != nil {
			return nil, errors.New(msgInvalidDate)
		}
	} else {
		nights, err := strconv.Atoi(nightsStr)
		if err != nil || nights <= 0 {
			return nil, fmt.Errorf("nights must be a positive integer")
		}
		departure = arrival.AddDate(0, 0, nights)
	}

	adults, err := guestCount(r, "adults", opts.DefaultAdults)
	if err != nil {
		return nil, err
	}
	children, err := guestCount(r, "children", opts.DefaultChildren)
	if err != nil {
		return nil, err
	}

	q, err := pricing.NewQuery(arrival, departure, adults, children)
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidRange) {
			return nil, errors.New(msgInvalidRange)
		}
		return nil, err
	}

	return &CheckParams{
		Site:  strings.TrimSpace(r.FormValue(siteField)),
		Query: q,
	}, nil
}

func guestCount(r *http.Request, field string, def int) (int, error) {
	s := strings.TrimSpace(r.FormValue(field))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", field)
	}
	return n, nil
}

// ExtractIP extracts the client IP from the request. With trustProxy it
// checks Client-IP, X-Forwarded-For and X-Real-IP before RemoteAddr;
// otherwise only RemoteAddr is used.
func ExtractIP(r *http.Request, trustProxy bool) string {
	if !trustProxy {
		return remoteIP(r)
	}

	if ip := strings.TrimSpace(r.Header.Get("Client-IP")); ip != "" {
		return ip
	}

	// First hop of X-Forwarded-For
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return remoteIP(r)
}

func remoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
