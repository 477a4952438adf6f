// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"detetive/internal/core"
	"detetive/internal/ports"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests (400), as opposed to well-formed
// requests carrying invalid values (422).
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decodeJSON reads a single JSON object into dst. Syntax and type errors are
// bad requests; invalid amounts or dates become field validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var (
			syntaxErr *json.SyntaxError
			typeErr   *json.UnmarshalTypeError
			maxErr    *http.MaxBytesError
		)
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return badRequest("malformed JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return badRequest("field %s has the wrong type", typeErr.Field)
			}
			return badRequest("body must be a JSON object")
		case errors.As(err, &maxErr):
			return badRequest("request body too large")
		case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrNegativeAmount):
			return &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
		case errors.Is(err, core.ErrInvalidDate):
			return &core.ValidationError{Field: "date", Err: core.ErrInvalidDate}
		default:
			return badRequest("malformed JSON")
		}
	}
	if dec.More() {
		return badRequest("body must contain a single JSON object")
	}
	return nil
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using the
// month of now as defaults. Non-numeric values are bad requests.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, badRequest("invalid year %q", v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, badRequest("invalid month %q", v)
		}
		params.Month = m
	}
	return params, nil
}

// parseDateParam parses an optional YYYY-MM-DD query parameter.
func parseDateParam(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequest("invalid %s %q: want YYYY-MM-DD", key, v)
	}
	return d, nil
}

// parseBoolParam parses an optional boolean query parameter.
func parseBoolParam(query url.Values, key string) (bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("invalid %s %q", key, v)
	}
	return b, nil
}

// ParseTransactionFilter builds the list filter from query parameters.
func ParseTransactionFilter(query url.Values) (ports.TransactionFilter, error) {
	f := ports.TransactionFilter{
		AccountID:  sanitizeInput(query.Get("account_id")),
		CardID:     sanitizeInput(query.Get("card_id")),
		CategoryID: sanitizeInput(query.Get("category_id")),
		Type:       core.TransactionType(sanitizeInput(query.Get("type"))),
	}
	if f.Type != "" && !f.Type.IsValid() {
		return ports.TransactionFilter{}, &core.ValidationError{Field: "type", Err: core.ErrInvalidEnum}
	}
	var err error
	if f.From, err = parseDateParam(query, "from"); err != nil {
		return ports.TransactionFilter{}, err
	}
	if f.To, err = parseDateParam(query, "to"); err != nil {
		return ports.TransactionFilter{}, err
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return ports.TransactionFilter{}, &core.ValidationError{Field: "to", Err: core.ErrInvalidDate}
	}
	if f.IncludeInactive, err = parseBoolParam(query, "include_inactive"); err != nil {
		return ports.TransactionFilter{}, err
	}
	return f, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
