package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alex-user-go/pricecheck/internal/newbook"
)

// UpstreamDateLayout is the date format the pricing API expects (DD-MM-YYYY).
const UpstreamDateLayout = "02-01-2006"

const isoDateLayout = "2006-01-02"

var (
	// ErrInvalidDate is returned for dates in neither accepted format.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidRange is returned when departure is not after arrival.
	ErrInvalidRange = errors.New("departure must be after arrival")

	// ErrInvalidGuests is returned for negative guest counts.
	ErrInvalidGuests = errors.New("guest counts must not be negative")
)

// Query is one availability query over a single date range.
type Query struct {
	From     time.Time
	To       time.Time
	Adults   int
	Children int
}

// ParseDate parses a calendar date given as DD-MM-YYYY or YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{UpstreamDateLayout, isoDateLayout} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// NewQuery builds a validated Query. Times are truncated to calendar dates.
func NewQuery(from, to time.Time, adults, children int) (Query, error) {
	q := Query{
		From:     dateOnly(from),
		To:       dateOnly(to),
		Adults:   adults,
		Children: children,
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Validate checks the date range and guest counts.
func (q Query) Validate() error {
	if q.From.IsZero() || q.To.IsZero() {
		return ErrInvalidDate
	}
	if !q.To.After(q.From) {
		return ErrInvalidRange
	}
	if q.Adults < 0 || q.Children < 0 {
		return ErrInvalidGuests
	}
	return nil
}

// PeriodFrom returns the arrival date in upstream format.
func (q Query) PeriodFrom() string {
	return q.From.Format(UpstreamDateLayout)
}

// PeriodTo returns the departure date in upstream format.
func (q Query) PeriodTo() string {
	return q.To.Format(UpstreamDateLayout)
}

// Nights returns the number of nights in the range.
func (q Query) Nights() int {
	return int(q.To.Sub(q.From).Hours() / 24)
}

func (q Query) request(promo string) newbook.AvailabilityRequest {
	return newbook.AvailabilityRequest{
		PeriodFrom: q.PeriodFrom(),
		PeriodTo:   q.PeriodTo(),
		Adults:     q.Adults,
		Children:   q.Children,
		PromoCode:  promo,
	}
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
