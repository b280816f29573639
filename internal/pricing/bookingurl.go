package pricing

import (
	"strconv"
	"strings"
)

// BookingURL returns base without its query string or fragment, followed by
// the query's dates and guest counts. Parameters keep a fixed order:
// available_from, available_to, adults, children. An empty base yields "".
func BookingURL(base string, q Query) string {
	base = strings.TrimSpace(base)
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	if base == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("?available_from=")
	b.WriteString(q.PeriodFrom())
	b.WriteString("&available_to=")
	b.WriteString(q.PeriodTo())
	b.WriteString("&adults=")
	b.WriteString(strconv.Itoa(q.Adults))
	b.WriteString("&children=")
	b.WriteString(strconv.Itoa(q.Children))
	return b.String()
}
