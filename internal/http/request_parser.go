// Package http provides the JSON API server and its handlers.
//
// This file implements request body and query parsing. Bodies may be JSON
// objects or form-encoded; field readers record problems into a
// core.ValidationError instead of failing on the first one.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

const maxBodyBytes = 1 << 20

const (
	msgRequired     = "This field is required."
	msgNull         = "This field may not be null."
	msgInvalidStr   = "Not a valid string."
	msgInvalidInt   = "A valid integer is required."
	msgInvalidNum   = "A valid number is required."
	msgInvalidTime  = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
	msgNotAnObject  = "Invalid data. Expected a dictionary, but got %s."
	msgReportParams = "year, month, and user_id are required integers."
)

// errMalformedBody carries a message fit for the client.
type errMalformedBody struct{ msg string }

func (e errMalformedBody) Error() string { return e.msg }

// RequestBodyParser reads a request body once and exposes its fields
// regardless of content type.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes from the request.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as a JSON object or, failing the leading brace,
// as form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(p.err, &tooLarge) {
			p.err = errMalformedBody{msg: "Request body too large."}
		}
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	switch trimmed[0] {
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = errMalformedBody{msg: "JSON parse error - " + err.Error()}
		}
	case '[':
		p.err = errMalformedBody{msg: fmt.Sprintf(msgNotAnObject, "list")}
	default:
		p.formData, p.err = url.ParseQuery(string(trimmed))
		if p.err != nil {
			p.err = errMalformedBody{msg: "Malformed form data."}
		}
	}
	return p.err
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// lookup returns the raw value of key. A JSON null is present with a nil
// value.
func (p *RequestBodyParser) lookup(key string) (any, bool) {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return v, ok
	}
	if p.formData != nil {
		if _, ok := p.formData[key]; ok {
			return p.formData.Get(key), true
		}
	}
	return nil, false
}

// String reads a text field. Missing or null optional fields yield "".
func (p *RequestBodyParser) String(verr core.ValidationError, key string, required bool) string {
	v, ok := p.lookup(key)
	if !ok || v == nil {
		if required {
			verr.Add(key, missingMessage(ok))
		}
		return ""
	}
	s, valid := stringValue(v)
	if !valid {
		verr.Add(key, msgInvalidStr)
		return ""
	}
	return sanitizeInput(s)
}

// Int reads a required integer field given as a number or numeric string.
func (p *RequestBodyParser) Int(verr core.ValidationError, key string) int64 {
	v, ok := p.lookup(key)
	if !ok || v == nil {
		verr.Add(key, missingMessage(ok))
		return 0
	}
	s, valid := stringValue(v)
	if !valid {
		verr.Add(key, msgInvalidInt)
		return 0
	}
	n, err := parseInteger(s)
	if err != nil {
		verr.Add(key, msgInvalidInt)
		return 0
	}
	return n
}

// Amount reads a required monetary field given as a number or string. At
// most two decimal places are accepted.
func (p *RequestBodyParser) Amount(verr core.ValidationError, key string) core.Money {
	v, ok := p.lookup(key)
	if !ok || v == nil {
		verr.Add(key, missingMessage(ok))
		return core.Money{}
	}
	s, valid := stringValue(v)
	if !valid {
		verr.Add(key, msgInvalidNum)
		return core.Money{}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		verr.Add(key, msgInvalidNum)
		return core.Money{}
	}
	m, err := core.AmountFromDecimal(d)
	if err != nil {
		verr.Add(key, core.AmountMessage(err))
	}
	return m
}

// Time reads an optional ISO 8601 timestamp. Missing, null and blank values
// yield the zero time.
func (p *RequestBodyParser) Time(verr core.ValidationError, key string) time.Time {
	v, ok := p.lookup(key)
	if !ok || v == nil {
		return time.Time{}
	}
	s, valid := stringValue(v)
	if !valid {
		verr.Add(key, msgInvalidTime)
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := parseDateTime(s)
	if err != nil {
		verr.Add(key, msgInvalidTime)
		return time.Time{}
	}
	return t
}

func missingMessage(present bool) string {
	if present {
		return msgNull
	}
	return msgRequired
}

// stringValue renders scalar JSON values as text. Objects, arrays and
// booleans are not valid scalars here.
func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	default:
		return "", false
	}
}

// parseInteger accepts "12", " 12 " and "12.0".
func parseInteger(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if whole, frac, ok := strings.Cut(s, "."); ok {
		if strings.Trim(frac, "0") != "" {
			return 0, fmt.Errorf("not an integer: %q", s)
		}
		s = whole
	}
	return strconv.ParseInt(s, 10, 64)
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseDateTime parses ISO 8601 timestamps. Values without an offset are
// taken as UTC.
func parseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// queryInt parses a required integer query parameter.
func queryInt(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	return strconv.Atoi(v)
}

// sanitizeInput drops control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// mergeMissing copies messages from extra for fields verr has no opinion on.
func mergeMissing(verr core.ValidationError, extra error) {
	var more core.ValidationError
	if !errors.As(extra, &more) {
		return
	}
	for field, msgs := range more {
		if _, ok := verr[field]; !ok {
			verr[field] = msgs
		}
	}
}
