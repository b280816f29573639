// Package rates reduces availability pricing responses to comparison data.
// All functions are pure and never fail: malformed input degrades to
// "unavailable" or empty results.
package rates

import (
	"regexp"
	"strconv"

	"github.com/alex-user-go/pricecheck/internal/newbook"
)

// minNightsPattern matches upstream prose such as "3 nights minimum".
// It is a heuristic over free text and may miss rephrased messages.
var minNightsPattern = regexp.MustCompile(`(?i)(\d+)\s*nights?\s*minimum`)

// Cheapest returns the cheapest qualifying offer in resp together with the
// minimum stay inferred from failed offers.
func Cheapest(resp *newbook.Response) CheapestRate {
	var out CheapestRate
	if resp == nil || !resp.HasData {
		return out
	}

	for _, cat := range resp.Categories {
		if len(cat.Tariffs) == 0 {
			continue
		}

		for _, t := range cat.Tariffs {
			message := t.Message.Plain()
			if message != "" {
				out.Diagnostics.Messages = append(out.Diagnostics.Messages, TariffMessage{
					Category:  cat.Name,
					Tariff:    t.Label,
					Success:   t.Success.OK(),
					Message:   message,
					MinNights: t.MinNights,
				})
			}

			if !t.Success.OK() {
				// Failed offers still carry minimum-stay hints, even in
				// categories without free units.
				out.MinNights = lowerBound(out.MinNights, t.MinNights)
				out.MinNights = lowerBound(out.MinNights, minNightsFromText(message))
				continue
			}

			if cat.SitesAvailable <= 0 {
				continue
			}

			price := t.Total.Value
			if price <= 0 {
				continue
			}

			if !out.Available || price < out.Price {
				out.Available = true
				out.Price = price
				out.RoomType = cat.Name
				out.TariffName = t.Label
				out.Message = message
			}
		}
	}

	return out
}

// Grouped returns every qualifying offer grouped by room category, in
// upstream order. Categories without qualifying offers are omitted.
func Grouped(resp *newbook.Response) []RoomRateGroup {
	groups := []RoomRateGroup{}
	if resp == nil || !resp.HasData {
		return groups
	}

	for _, cat := range resp.Categories {
		if cat.SitesAvailable <= 0 || len(cat.Tariffs) == 0 {
			continue
		}

		var list []Rate
		for _, t := range cat.Tariffs {
			if !t.Success.OK() {
				continue
			}
			if t.Total.Value <= 0 {
				continue
			}

			description := Flatten(t.ShortDescription)
			if description == "" {
				description = Flatten(t.Message)
			}

			list = append(list, Rate{
				TariffName:  t.Label,
				Price:       t.Total.Value,
				Description: description,
				Inclusions:  Flatten(t.Inclusions),
			})
		}

		if len(list) == 0 {
			continue
		}
		groups = append(groups, RoomRateGroup{
			RoomType:       cat.Name,
			AvailableCount: cat.SitesAvailable,
			Rates:          list,
		})
	}

	return groups
}

func minNightsFromText(s string) int {
	best := 0
	for _, m := range minNightsPattern.FindAllStringSubmatch(s, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		best = lowerBound(best, n)
	}
	return best
}

// lowerBound folds candidate into the running minimum current, where 0 means
// "no bound yet" and non-positive candidates are ignored.
func lowerBound(current, candidate int) int {
	if candidate <= 0 {
		return current
	}
	if current == 0 || candidate < current {
		return candidate
	}
	return current
}
