// Package http provides HTTP server and handler implementations.
//
// This file implements request body parsing. Clients may send JSON objects or
// form-encoded bodies; numbers and strings are both accepted for numeric
// fields.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spendsmart/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser reads the body once and exposes its fields regardless of
// encoding.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of r's body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. Failures are reported as core.ErrInvalidPayload.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", core.ErrInvalidPayload, p.err)
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		data := make(map[string]any)
		if err := dec.Decode(&data); err != nil {
			p.err = fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
			return p.err
		}
		p.jsonData = data
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns the trimmed value of key, or "" when absent.
func (p *RequestBodyParser) Get(key string) string {
	if v := p.Lookup(key); v != nil {
		return *v
	}
	return ""
}

// Lookup returns the trimmed value of key and nil when the key is absent.
// A JSON null counts as absent.
func (p *RequestBodyParser) Lookup(key string) *string {
	if p.jsonData != nil {
		val, ok := p.jsonData[key]
		if !ok || val == nil {
			return nil
		}
		s := sanitizeInput(stringValue(val))
		return &s
	}
	if p.formData != nil {
		if _, ok := p.formData[key]; !ok {
			return nil
		}
		s := sanitizeInput(p.formData.Get(key))
		return &s
	}
	return nil
}

// Raw returns the untrimmed value of key. Passwords are read with it.
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok && val != nil {
			return stringValue(val)
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		// Objects and arrays never match a scalar field.
		return ""
	}
}
