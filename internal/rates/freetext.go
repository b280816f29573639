package rates

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/alex-user-go/pricecheck/internal/newbook"
)

const (
	dayNames   = `(?:mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)(?:day|sday|nesday|rsday|urday)?`
	monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	numericDay = `\d{1,2}[-/.]\d{1,2}[-/.]\d{4}|\d{4}[-/.]\d{1,2}[-/.]\d{1,2}`
	monthDay   = `\b` + monthNames + `\.?\s+\d{1,2}(?:st|nd|rd|th)?\b(?:,?\s+\d{4}\b)?`
	dayMonth   = `\b\d{1,2}(?:st|nd|rd|th)?\s+` + monthNames + `\b\.?(?:,?\s+\d{4}\b)?`
)

var (
	// datePattern matches calendar dates, optionally led by a day name.
	datePattern = regexp.MustCompile(`(?i)(?:\b` + dayNames + `\b\.?,?\s*)?(?:` + numericDay + `|` + monthDay + `|` + dayMonth + `)`)

	// fullDayName matches spelled-out day names anywhere in a fragment.
	fullDayName = regexp.MustCompile(`(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

	// bareDayName matches a fragment that is nothing but an abbreviated day name.
	bareDayName = regexp.MustCompile(`(?i)^` + dayNames + `\.?$`)

	spaces     = regexp.MustCompile(`\s+`)
	loosePunct = regexp.MustCompile(`\s+([,;:.])`)
)

// inclusionHints mark object keys whose content is preferred.
var inclusionHints = []string{"inclusion", "amenit", "feature"}

// textKeys are conventional keys holding human-readable text, by priority.
var textKeys = []string{"name", "label", "text", "description", "title", "value"}

// Flatten renders a free-text field as a single display string. Date-like
// substrings are dropped, object fields are chosen by key hints and the
// remaining fragments are joined with ", " in source order without duplicates.
func Flatten(ft newbook.FreeText) string {
	return join(fragments(ft))
}

func fragments(ft newbook.FreeText) []string {
	switch ft.Kind {
	case newbook.TextString, newbook.TextNumber:
		if s := clean(ft.Text); s != "" {
			return []string{s}
		}
	case newbook.TextList:
		var out []string
		for _, item := range ft.Items {
			out = append(out, fragments(item)...)
		}
		return out
	case newbook.TextObject:
		return objectFragments(ft.Fields)
	}
	return nil
}

func objectFragments(fields []newbook.Field) []string {
	var hinted []string
	for _, f := range fields {
		if hasHint(f.Key) {
			hinted = append(hinted, fragments(f.Value)...)
		}
	}
	if len(hinted) > 0 {
		return hinted
	}

	for _, key := range textKeys {
		for _, f := range fields {
			if !strings.EqualFold(strings.TrimSpace(f.Key), key) {
				continue
			}
			if out := fragments(f.Value); len(out) > 0 {
				return out
			}
		}
	}

	var out []string
	for _, f := range fields {
		out = append(out, fragments(f.Value)...)
	}
	return out
}

func hasHint(key string) bool {
	key = strings.ToLower(key)
	for _, h := range inclusionHints {
		if strings.Contains(key, h) {
			return true
		}
	}
	return false
}

// clean strips date-like substrings and surrounding punctuation. It returns
// "" when nothing readable is left.
func clean(s string) string {
	s = datePattern.ReplaceAllString(s, " ")
	s = fullDayName.ReplaceAllString(s, " ")
	s = spaces.ReplaceAllString(s, " ")
	s = loosePunct.ReplaceAllString(s, "$1")
	s = strings.Trim(s, " ,;:-|/")
	if bareDayName.MatchString(s) {
		return ""
	}
	if !strings.ContainsFunc(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
		return ""
	}
	return s
}

func join(parts []string) string {
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}
