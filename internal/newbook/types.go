package newbook

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Response is a decoded availability pricing response.
// Decoding never fails on field-level shape problems: wrong types degrade to zero values.
type Response struct {
	// HasData reports whether the envelope carried a recognizable category list.
	HasData    bool
	Categories []Category
	// Error holds the upstream error message when the body is an error envelope.
	Error string
}

// Category is one room category with its tariff offers.
type Category struct {
	Name           string
	SitesAvailable int
	Tariffs        []Tariff
}

// Tariff is one priced rate plan offered for a category.
type Tariff struct {
	Label            string
	Success          Marker
	Total            Number
	MinNights        int
	Message          FreeText
	ShortDescription FreeText
	Inclusions       FreeText
}

// UnmarshalJSON decodes the response envelope leniently.
func (r *Response) UnmarshalJSON(b []byte) error {
	*r = Response{}

	fields := objectFields(b)
	if fields == nil {
		return nil
	}

	if raw, ok := fields["error"]; ok && !isNull(raw) {
		r.Error = FreeTextFrom(raw).Plain()
		if r.Error == "" {
			r.Error = "upstream error"
		}
	}

	raw, ok := fields["data"]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil
	}

	r.HasData = true
	r.Categories = make([]Category, 0, len(items))
	for _, item := range items {
		var c Category
		_ = c.UnmarshalJSON(item)
		r.Categories = append(r.Categories, c)
	}
	return nil
}

// UnmarshalJSON decodes a category leniently. A missing name becomes "Unknown".
func (c *Category) UnmarshalJSON(b []byte) error {
	*c = Category{Name: "Unknown"}

	fields := objectFields(b)
	if fields == nil {
		return nil
	}

	if name := FreeTextFrom(fields["category_name"]).Plain(); name != "" {
		c.Name = name
	}
	c.SitesAvailable = asInt(fields["sites_available"])

	var items []json.RawMessage
	if err := json.Unmarshal(fields["tariffs_available"], &items); err != nil {
		return nil
	}
	for _, item := range items {
		var t Tariff
		_ = t.UnmarshalJSON(item)
		c.Tariffs = append(c.Tariffs, t)
	}
	return nil
}

// UnmarshalJSON decodes a tariff offer leniently.
func (t *Tariff) UnmarshalJSON(b []byte) error {
	*t = Tariff{}

	fields := objectFields(b)
	if fields == nil {
		return nil
	}

	t.Label = FreeTextFrom(fields["tariff_label"]).Plain()
	t.Success = MarkerFrom(fields["tariff_success"])
	t.Total = NumberFrom(fields["tariff_total"])
	t.MinNights = asInt(fields["tariff_min_nights"])
	t.Message = FreeTextFrom(fields["tariff_message"])
	t.ShortDescription = FreeTextFrom(fields["tariff_short_description"])
	t.Inclusions = FreeTextFrom(fields["tariff_inclusions"])
	return nil
}

// Marker is the upstream success flag. Upstream sends the string "true" on
// success; booleans, other strings and absence are all distinct from it.
type Marker struct {
	Kind  MarkerKind
	Value string
}

// MarkerKind classifies the JSON shape a Marker was decoded from.
type MarkerKind int

const (
	MarkerAbsent MarkerKind = iota
	MarkerString
	MarkerOther
)

// MarkerFrom classifies a raw JSON value.
func MarkerFrom(raw json.RawMessage) Marker {
	if len(raw) == 0 || isNull(raw) {
		return Marker{Kind: MarkerAbsent}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Marker{Kind: MarkerString, Value: s}
	}
	return Marker{Kind: MarkerOther, Value: string(bytes.TrimSpace(raw))}
}

// OK reports whether the marker is exactly the string "true".
func (m Marker) OK() bool {
	return m.Kind == MarkerString && m.Value == "true"
}

// Number is a leniently parsed numeric field. Upstream sends totals as JSON
// numbers or as numeric strings.
type Number struct {
	Value float64
	Valid bool
}

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)

// NumberFrom parses a JSON number or a string with a leading number.
func NumberFrom(raw json.RawMessage) Number {
	if len(raw) == 0 || isNull(raw) {
		return Number{}
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return Number{Value: f, Valid: true}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Number{}
	}
	return parseNumberString(s)
}

func parseNumberString(s string) Number {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return Number{}
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return Number{}
	}
	return Number{Value: f, Valid: true}
}

func asInt(raw json.RawMessage) int {
	n := NumberFrom(raw)
	if !n.Valid {
		return 0
	}
	return int(n.Value)
}

func objectFields(b []byte) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil
	}
	return fields
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
