// Package report turns raw validator answers into normalized report rows and
// exports them as CSV.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ParseResult is either Parsed or Fallback.
type ParseResult interface {
	// Text is the answer after wrapper clean-up.
	Text() string
	isParseResult()
}

// Parsed is an answer that decoded to a JSON object.
type Parsed struct {
	Cleaned string
	Fields  map[string]any
}

func (p Parsed) Text() string { return p.Cleaned }
func (Parsed) isParseResult() {}

// Get returns the first non-empty field among keys, matched
// case-insensitively. Non-string scalars are formatted.
func (p Parsed) Get(keys ...string) string {
	for _, want := range keys {
		for k, v := range p.Fields {
			if !strings.EqualFold(k, want) {
				continue
			}
			if s := scalar(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Fallback is an answer that could not be decoded.
type Fallback struct {
	Cleaned string
	Err     error
}

func (f Fallback) Text() string { return f.Cleaned }
func (Fallback) isParseResult() {}

var (
	errEmptyAnswer = errors.New("empty answer")
	errNotObject   = errors.New("answer is not a JSON object")

	leadingQuote = regexp.MustCompile(`(?i)^"(?:json)?\s*`)
	leadingFence = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	trailingWrap = regexp.MustCompile("\\s*(?:```|\")$")
)

// Clean strips the quote and code fence wrappers the model tends to put
// around its JSON, repeating until nothing changes. Text that does not start
// with a quote or a fence is only trimmed.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		prev := s
		if inner, ok := unquote(s); ok {
			s = strings.TrimSpace(inner)
		}
		if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "```") {
			s = leadingQuote.ReplaceAllString(s, "")
			s = leadingFence.ReplaceAllString(s, "")
			for t := trailingWrap.ReplaceAllString(s, ""); t != s; t = trailingWrap.ReplaceAllString(s, "") {
				s = t
			}
		}
		s = strings.TrimSpace(s)
		if s == prev {
			return s
		}
	}
}

// unquote decodes a JSON string literal such as "{\"Answer\":\"YES\"}".
func unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	var out string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return "", false
	}
	return out, true
}

// Parse cleans raw and decodes it as a JSON object. When the cleaned text is
// not an object on its own, the outermost {...} span is tried. Parse never
// panics.
func Parse(raw string) ParseResult {
	cleaned := Clean(raw)
	if cleaned == "" {
		return Fallback{Err: errEmptyAnswer}
	}

	fields, err := decodeObject(cleaned)
	if err == nil {
		return Parsed{Cleaned: cleaned, Fields: fields}
	}
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		if inner, innerErr := decodeObject(cleaned[start : end+1]); innerErr == nil {
			return Parsed{Cleaned: cleaned, Fields: inner}
		}
	}
	return Fallback{Cleaned: cleaned, Err: err}
}

func decodeObject(s string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return obj, nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
