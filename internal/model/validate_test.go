package model

import (
	"errors"
	"strings"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestValidateItemInput(t *testing.T) {
	tests := []struct {
		name      string
		input     ItemInput
		wantField string
	}{
		{"valid", ItemInput{Name: "Projector", Quantity: intPtr(2)}, ""},
		{"zero quantity", ItemInput{Name: "Projector", Quantity: intPtr(0)}, ""},
		{"empty name", ItemInput{Name: "", Quantity: intPtr(1)}, "name"},
		{"long name", ItemInput{Name: strings.Repeat("a", 256), Quantity: intPtr(1)}, "name"},
		{"max name", ItemInput{Name: strings.Repeat("č", 255), Quantity: intPtr(1)}, ""},
		{"missing quantity", ItemInput{Name: "Projector"}, "quantity"},
		{"negative quantity", ItemInput{Name: "Projector", Quantity: intPtr(-1)}, "quantity"},
	}

	for _, tt := range tests {
		err := Validate(tt.input)
		if tt.wantField == "" {
			if err != nil {
				t.Errorf("%s: unexpected error: %v", tt.name, err)
			}
			continue
		}

		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", tt.name, err)
			continue
		}
		if len(ve.Fields) != 1 || ve.Fields[0].Field != tt.wantField {
			t.Errorf("%s: expected error on %q, got %+v", tt.name, tt.wantField, ve.Fields)
		}
	}
}

func TestValidateSubmissionInput(t *testing.T) {
	err := Validate(SubmissionInput{ItemID: 1, Email: "not-an-email"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Fields[0].Field != "email" {
		t.Errorf("expected email field error, got %+v", ve.Fields)
	}

	if err := Validate(SubmissionInput{ItemID: 1, Email: "ana@example.com"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	ve := NewValidationError("name", "is required")
	ve.Add("quantity", "must not be negative")

	want := "validation failed: name is required; quantity must not be negative"
	if ve.Error() != want {
		t.Errorf("got %q, want %q", ve.Error(), want)
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw     string
		want    *int
		wantErr bool
	}{
		{"3", intPtr(3), false},
		{" 0 ", intPtr(0), false},
		{"-1", intPtr(-1), false},
		{"", nil, false},
		{"null", nil, false},
		{"1.5", nil, true},
		{"two", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseQuantity(tt.raw)
		if tt.wantErr {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("ParseQuantity(%q): expected ValidationError, got %v", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseQuantity(%q): %v", tt.raw, err)
			continue
		}
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("ParseQuantity(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
