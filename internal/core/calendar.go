package core

// monthNames in calendar order, used as labels in yearly reports.
var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name for a month number 1-12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// MonthNames returns the twelve month names in calendar order.
func MonthNames() []string {
	out := make([]string, 12)
	copy(out, monthNames[:])
	return out
}

// IsLeapYear implements the proleptic Gregorian rule: divisible by 4,
// except centuries not divisible by 400.
func IsLeapYear(year int) bool {
	switch {
	case year%400 == 0:
		return true
	case year%100 == 0:
		return false
	default:
		return year%4 == 0
	}
}

var daysPerMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysIn returns the number of days in the given month (28-31).
// month must be 1-12; out-of-range input returns 0.
func DaysIn(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return daysPerMonth[month-1]
}

// DayNumbers returns the full calendar grid 1..N for the given month,
// in calendar order.
func DayNumbers(year, month int) []int {
	n := DaysIn(year, month)
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
