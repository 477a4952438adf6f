package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"detetive/internal/core"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/accounts/1").
		JSON(map[string]string{"id": "1"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if loc := w.Header().Get("Location"); loc != "/api/accounts/1" {
		t.Errorf("Location = %q", loc)
	}
	if got := w.Body.String(); got != "{\"id\":\"1\"}\n" {
		t.Errorf("Body = %q", got)
	}
}

func TestResponseBuilder_NoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).JSON(map[string]string{"ignored": "yes"}).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"bad": make(chan int)}).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantField  string
	}{
		{
			name:       "validation",
			err:        fmt.Errorf("create: %w", &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "invalid amount",
			wantField:  "amount",
		},
		{
			name:       "bad request",
			err:        badRequest("invalid month %q", "x"),
			wantStatus: http.StatusBadRequest,
			wantError:  `bad request: invalid month "x"`,
		},
		{
			name:       "unauthorized",
			err:        core.ErrUnauthorized,
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:       "invalid credentials hide the reason",
			err:        core.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("get account: %w", core.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantError:  "not found",
		},
		{
			name:       "conflict keeps message",
			err:        fmt.Errorf("bill 2025-04 already paid: %w", core.ErrConflict),
			wantStatus: http.StatusConflict,
			wantError:  "bill 2025-04 already paid: conflict",
		},
		{
			name:       "unknown errors do not leak",
			err:        errors.New("pq: connection refused to 10.0.0.5"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			FromError(tt.err).Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
			if body.Field != tt.wantField {
				t.Errorf("field = %q, want %q", body.Field, tt.wantField)
			}
			if tt.wantField == "" && strings.Contains(w.Body.String(), `"field"`) {
				t.Error("field must be omitted when empty")
			}
		})
	}
}
