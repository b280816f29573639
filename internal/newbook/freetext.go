package newbook

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// TextKind is the JSON shape of a free-text field.
type TextKind int

const (
	TextEmpty TextKind = iota
	TextString
	TextNumber
	TextObject
	TextList
)

// Field is one key/value pair of an object-shaped free-text field.
type Field struct {
	Key   string
	Value FreeText
}

// FreeText holds a free-text field whose shape varies per offer: a string,
// a number, an object (fields kept in source order) or a list.
type FreeText struct {
	Kind   TextKind
	Text   string
	Fields []Field
	Items  []FreeText
}

// maxTextDepth bounds nesting. Deeper values are skipped without recursing.
const maxTextDepth = 16

// FreeTextFrom decodes a raw JSON value. Booleans, null and invalid JSON
// yield an empty value.
func FreeTextFrom(raw json.RawMessage) FreeText {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return FreeText{}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	ft, err := decodeText(dec, 0)
	if err != nil {
		return FreeText{}
	}
	return ft
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FreeText) UnmarshalJSON(b []byte) error {
	*f = FreeTextFrom(b)
	return nil
}

// IsEmpty reports whether the value carries no content.
func (f FreeText) IsEmpty() bool {
	switch f.Kind {
	case TextString, TextNumber:
		return strings.TrimSpace(f.Text) == ""
	case TextObject:
		return len(f.Fields) == 0
	case TextList:
		return len(f.Items) == 0
	default:
		return true
	}
}

// Plain concatenates every string and number in source order, space separated.
func (f FreeText) Plain() string {
	var parts []string
	f.walk(func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	})
	return strings.Join(parts, " ")
}

func (f FreeText) walk(fn func(string)) {
	switch f.Kind {
	case TextString, TextNumber:
		fn(f.Text)
	case TextObject:
		for _, fld := range f.Fields {
			fld.Value.walk(fn)
		}
	case TextList:
		for _, it := range f.Items {
			it.walk(fn)
		}
	}
}

func decodeText(dec *json.Decoder, depth int) (FreeText, error) {
	tok, err := dec.Token()
	if err != nil {
		return FreeText{}, err
	}

	switch v := tok.(type) {
	case string:
		return FreeText{Kind: TextString, Text: v}, nil
	case json.Number:
		return FreeText{Kind: TextNumber, Text: v.String()}, nil
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec, depth)
		case '[':
			return decodeList(dec, depth)
		}
		return FreeText{}, io.ErrUnexpectedEOF
	default:
		// bool, nil
		return FreeText{}, nil
	}
}

func decodeObject(dec *json.Decoder, depth int) (FreeText, error) {
	out := FreeText{Kind: TextObject}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return FreeText{}, err
		}
		key, _ := tok.(string)
		val, keep, err := decodeChild(dec, depth)
		if err != nil {
			return FreeText{}, err
		}
		if keep {
			out.Fields = append(out.Fields, Field{Key: key, Value: val})
		}
	}
	if _, err := dec.Token(); err != nil {
		return FreeText{}, err
	}
	return out, nil
}

func decodeList(dec *json.Decoder, depth int) (FreeText, error) {
	out := FreeText{Kind: TextList}
	for dec.More() {
		val, keep, err := decodeChild(dec, depth)
		if err != nil {
			return FreeText{}, err
		}
		if keep {
			out.Items = append(out.Items, val)
		}
	}
	if _, err := dec.Token(); err != nil {
		return FreeText{}, err
	}
	return out, nil
}

// decodeChild reads the next value inside a container at depth. Past
// maxTextDepth the value is consumed whole and dropped.
func decodeChild(dec *json.Decoder, depth int) (FreeText, bool, error) {
	if depth >= maxTextDepth {
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return FreeText{}, false, err
		}
		return FreeText{}, false, nil
	}
	val, err := decodeText(dec, depth+1)
	return val, err == nil, err
}
