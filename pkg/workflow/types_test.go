package workflow

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewResourceID(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		input   string
		wantErr error
		wantVal string
	}{
		{name: "valid", input: " SKU123 ", wantVal: "SKU123"},
		{name: "empty", input: "   ", wantErr: ErrInvalidResourceID},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result, err := NewResourceID(tc.input)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.String() != tc.wantVal {
				t.Fatalf("expected %q, got %q", tc.wantVal, result.String())
			}
		})
	}
}

func TestScopedResourceID(t *testing.T) {
	t.Parallel()
	member := mustResourceID(t, "alice")
	if BorrowedKey(member).String() != "borrowed:alice" {
		t.Fatalf("unexpected borrowed key %q", BorrowedKey(member).String())
	}
}

func TestParseQuantity(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		input   string
		wantErr error
		wantVal string
	}{
		{name: "integer", input: "5", wantVal: "5"},
		{name: "money", input: "100.00", wantVal: "100"},
		{name: "fraction", input: "34.50", wantVal: "34.5"},
		{name: "zero", input: "0", wantVal: "0"},
		{name: "negative", input: "-1", wantErr: ErrInvalidQuantity},
		{name: "garbage", input: "five", wantErr: ErrInvalidQuantity},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			result, err := ParseQuantity(tc.input)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.String() != tc.wantVal {
				t.Fatalf("expected %q, got %q", tc.wantVal, result.String())
			}
		})
	}
}

func TestNewCount(t *testing.T) {
	t.Parallel()
	if _, err := NewCount(mustDecimal(t, "0")); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity for zero, got %v", err)
	}
	if _, err := NewCount(mustDecimal(t, "1.5")); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity for fraction, got %v", err)
	}
	count, err := NewCount(mustDecimal(t, "3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count.String() != "3" {
		t.Fatalf("expected 3, got %s", count)
	}
}

func TestQuantitySubRefusesNegative(t *testing.T) {
	t.Parallel()
	_, err := mustQuantity(t, "1").Sub(mustQuantity(t, "2"))
	if !errors.Is(err, ErrNegativeQuantity) {
		t.Fatalf("expected ErrNegativeQuantity, got %v", err)
	}
}

func TestQuantityJSON(t *testing.T) {
	t.Parallel()
	var payload struct {
		Amount Quantity `json:"amount"`
	}
	if err := json.Unmarshal([]byte(`{"amount": 90.50}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Amount.String() != "90.5" {
		t.Fatalf("expected 90.5, got %s", payload.Amount)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `{"amount":90.5}` {
		t.Fatalf("unexpected encoding %s", encoded)
	}
	if err := json.Unmarshal([]byte(`{"amount": -1}`), &payload); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}
