package core

import "testing"

func TestIsLeapYear(t *testing.T) {
	cases := []struct {
		year int
		leap bool
	}{
		{2020, true},
		{2022, false},
		{2024, true},
		{1900, false}, // century, not divisible by 400
		{2000, true},  // divisible by 400
		{2100, false},
	}
	for _, tc := range cases {
		if got := IsLeapYear(tc.year); got != tc.leap {
			t.Errorf("IsLeapYear(%d) = %v, want %v", tc.year, got, tc.leap)
		}
	}
}

func TestDaysIn(t *testing.T) {
	cases := []struct {
		year, month, want int
	}{
		{2022, 1, 31},
		{2022, 2, 28},
		{2020, 2, 29},
		{2000, 2, 29},
		{1900, 2, 28},
		{2022, 4, 30},
		{2022, 7, 31},
		{2022, 12, 31},
		{2022, 0, 0},
		{2022, 13, 0},
	}
	for _, tc := range cases {
		if got := DaysIn(tc.year, tc.month); got != tc.want {
			t.Errorf("DaysIn(%d, %d) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestDayNumbers(t *testing.T) {
	days := DayNumbers(2022, 7)
	if len(days) != 31 {
		t.Fatalf("expected 31 days, got %d", len(days))
	}
	for i, d := range days {
		if d != i+1 {
			t.Fatalf("position %d holds %d, want %d", i, d, i+1)
		}
	}

	if got := len(DayNumbers(2024, 2)); got != 29 {
		t.Errorf("leap February length = %d, want 29", got)
	}
}

func TestMonthName(t *testing.T) {
	if got := MonthName(1); got != "January" {
		t.Errorf("MonthName(1) = %q", got)
	}
	if got := MonthName(12); got != "December" {
		t.Errorf("MonthName(12) = %q", got)
	}
	if got := MonthName(0); got != "" {
		t.Errorf("MonthName(0) = %q, want empty", got)
	}
	if names := MonthNames(); len(names) != 12 || names[6] != "July" {
		t.Errorf("MonthNames() = %v", names)
	}
}
