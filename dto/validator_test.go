package dto

import (
	"testing"
	"time"

	"github.com/Calstins/teensha/model"
)

func TestValidationErrorsUseWireNames(t *testing.T) {
	goLive := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	req := ChallengeRequest{
		Title:     "Budget Like a Boss",
		Year:      2025,
		Month:     13,
		GoLiveAt:  goLive,
		ClosingAt: goLive.Add(-time.Hour),
	}

	errs := FormatValidationErrors(req.Validate())
	got := map[string]string{}
	for _, e := range errs {
		got[e.Field] = e.Message
	}

	if got["month"] != "month must be at most 12" {
		t.Errorf("month message = %q", got["month"])
	}
	if _, ok := got["closing_at"]; !ok {
		t.Errorf("closing_at not reported: %v", got)
	}
	if len(got) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(got), got)
	}
}

func TestTaskTypeValidation(t *testing.T) {
	tests := []struct {
		taskType string
		valid    bool
	}{
		{"TEXT", true},
		{"PICK_ONE", true},
		{"CHECKLIST", true},
		{"text", false},
		{"ESSAY", false},
	}

	for _, tt := range tests {
		req := TaskRequest{Title: "Track your spending", Type: model.TaskType(tt.taskType)}
		err := req.Validate()
		if (err == nil) != tt.valid {
			t.Errorf("%s: valid = %v, want %v (%v)", tt.taskType, err == nil, tt.valid, err)
		}
	}
}

func TestStrongPassword(t *testing.T) {
	tests := map[string]bool{
		"SecurePass123!": true,
		"securepass123!": false,
		"SecurePass!!!!": false,
		"Sh0rt!":         false,
	}
	for password, want := range tests {
		req := RegisterTeenRequest{Email: "ayo@example.com", Name: "Ayo", Password: password, Age: 15}
		if got := req.Validate() == nil; got != want {
			t.Errorf("%q: valid = %v, want %v", password, got, want)
		}
	}
}
