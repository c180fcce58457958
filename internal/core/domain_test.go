package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewPeriod(t *testing.T) {
	cases := []struct {
		year, month int
		wantErr     error
	}{
		{2022, 1, nil},
		{2022, 12, nil},
		{2022, 0, ErrInvalidMonth},
		{2022, 13, ErrInvalidMonth},
		{0, 6, ErrInvalidYear},
		{10000, 6, ErrInvalidYear},
	}
	for i, tc := range cases {
		p, err := NewPeriod(tc.year, tc.month)
		if tc.wantErr == nil {
			if err != nil {
				t.Fatalf("case %d: unexpected error %v", i, err)
			}
			if p.Year() != tc.year || p.Month() != tc.month {
				t.Fatalf("case %d: got %d-%d", i, p.Year(), p.Month())
			}
			continue
		}
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.wantErr)
		}
	}
}

func TestCurrentPeriod(t *testing.T) {
	now := time.Date(2022, time.July, 15, 10, 0, 0, 0, time.UTC)
	p := CurrentPeriod(now)
	if p.Year() != 2022 || p.Month() != 7 {
		t.Fatalf("got %d-%d, want 2022-7", p.Year(), p.Month())
	}
}

func TestNewDate(t *testing.T) {
	cases := []struct {
		year, month, day int
		wantErr          error
	}{
		{2022, 7, 15, nil},
		{2022, 7, 31, nil},
		{2022, 2, 28, nil},
		{2022, 2, 29, ErrInvalidDay}, // not a leap year
		{2024, 2, 29, nil},
		{2022, 4, 31, ErrInvalidDay},
		{2022, 7, 0, ErrInvalidDay},
		{2022, 13, 1, ErrInvalidMonth},
	}
	for i, tc := range cases {
		d, err := NewDate(tc.year, tc.month, tc.day)
		if tc.wantErr == nil {
			if err != nil {
				t.Fatalf("case %d: unexpected error %v", i, err)
			}
			if d.Day() != tc.day || d.Month() != tc.month || d.Year() != tc.year {
				t.Fatalf("case %d: got %s", i, d)
			}
			continue
		}
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("case %d: got %v, want %v", i, err, tc.wantErr)
		}
	}
}

func TestDateString(t *testing.T) {
	d, err := NewDate(2022, 7, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.String(); got != "2022-07-05" {
		t.Errorf("String() = %q", got)
	}
}

func TestFieldErrorsError(t *testing.T) {
	fe := FieldErrors{
		"name": {Kind: FieldRequired, Message: "fill in the field"},
	}
	if fe.Error() != "name: fill in the field" {
		t.Errorf("Error() = %q", fe.Error())
	}
}

func TestStockInputNormalized(t *testing.T) {
	in := StockInput{Name: "  Shutter ", PseudoName: " Шаттер "}.Normalized()
	if in.Name != "Shutter" || in.PseudoName != "Шаттер" {
		t.Errorf("Normalized() = %+v", in)
	}
}
