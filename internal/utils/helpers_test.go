package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/senyabanana/assignment-desk/internal/assignment"
	"github.com/senyabanana/assignment-desk/internal/marketplace"
	"github.com/senyabanana/assignment-desk/internal/models"
)

func TestParseLimitOffset(t *testing.T) {
	tests := []struct {
		limit, offset      string
		wantLimit, wantOff int
		wantErr            bool
	}{
		{"", "", 50, 0, false},
		{"10", "20", 10, 20, false},
		{"0", "", 0, 0, true},
		{"101", "", 0, 0, true},
		{"abc", "", 0, 0, true},
		{"5", "-1", 0, 0, true},
	}
	for _, tt := range tests {
		limit, offset, err := ParseLimitOffset(tt.limit, tt.offset)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLimitOffset(%q, %q) error = %v", tt.limit, tt.offset, err)
			continue
		}
		if limit != tt.wantLimit || offset != tt.wantOff {
			t.Errorf("ParseLimitOffset(%q, %q) = %d, %d", tt.limit, tt.offset, limit, offset)
		}
	}
}

func TestToErrorResponse(t *testing.T) {
	type request struct {
		Action string `validate:"required"`
	}
	fieldErr := validator.New().Struct(request{})

	tests := []struct {
		name   string
		err    error
		status int
		reason string
	}{
		{"validation", &assignment.ValidationError{Action: models.Accept, Reason: "nope"}, http.StatusUnprocessableEntity, "nope"},
		{"step", fmt.Errorf("next: %w", &assignment.StepError{Step: models.ReviewStep, Warning: "no bids"}), http.StatusUnprocessableEntity, "no bids"},
		{"in flight", assignment.ErrActionInFlight, http.StatusConflict, assignment.ErrActionInFlight.Error()},
		{"shortlist full", assignment.ErrShortlistFull, http.StatusConflict, assignment.ErrShortlistFull.Error()},
		{"backend 4xx", &marketplace.BackendError{StatusCode: 404, Message: "Bid not found"}, http.StatusNotFound, "Bid not found"},
		{"backend 5xx", &marketplace.BackendError{StatusCode: 500, Message: marketplace.GenericFailure}, http.StatusBadGateway, marketplace.GenericFailure},
		{"unavailable", fmt.Errorf("get project: %w", marketplace.ErrUnavailable), http.StatusServiceUnavailable, marketplace.GenericFailure},
		{"fields", fieldErr, http.StatusBadRequest, "field Action is required"},
		{"passthrough", models.NewErrorResponse(http.StatusBadRequest, "bad"), http.StatusBadRequest, "bad"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToErrorResponse(tt.err, "failed")
			if got.StatusCode != tt.status || got.Message != tt.reason {
				t.Errorf("ToErrorResponse() = %d %q, want %d %q", got.StatusCode, got.Message, tt.status, tt.reason)
			}
		})
	}
}

func TestSendErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	SendErrorResponse(rec, models.NewErrorResponse(http.StatusConflict, "busy").WithCode("action_in_flight"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["reason"] != "busy" || body["code"] != "action_in_flight" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestInFlight(t *testing.T) {
	f := NewInFlight()

	var acquired int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.TryAcquire("b1") {
				atomic.AddInt32(&acquired, 1)
			}
		}()
	}
	wg.Wait()

	if acquired != 1 {
		t.Fatalf("acquired %d times, want 1", acquired)
	}
	if !f.Busy("b1") || f.Busy("b2") {
		t.Error("unexpected busy state")
	}
	f.Release("b1")
	if !f.TryAcquire("b1") {
		t.Error("key should be free after release")
	}
}
