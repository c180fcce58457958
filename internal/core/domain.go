package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// SyncPending marks a count that has not been archived yet.
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"

	MaxStockNameLen = 32
)

type (
	SyncStatus string

	// User is the owning identity for months and stocks. Authentication
	// lives outside this application; users are resolved by name.
	User struct {
		ID   int64
		Name string
	}

	// Month is one calendar month of one user's records.
	Month struct {
		ID     int64
		UserID int64
		Year   int
		Month  int // 1-12
	}

	// Day is one calendar date within a Month. Photo and Video hold the
	// raw per-day upload totals entered directly on the month grid; they
	// are independent of the per-stock counts.
	Day struct {
		ID      int64
		MonthID int64
		Date    int // 1..31
		Photo   int
		Video   int
	}

	// Stock is an income source the user contributes to. Name is the
	// canonical agency name, PseudoName the display alias.
	Stock struct {
		ID         int64
		UserID     int64
		Name       string
		PseudoName string
	}

	// Count is the accumulated activity of one stock on one day.
	// Repeated submissions for the same (stock, day) add to the stored
	// values, they never overwrite them.
	Count struct {
		ID         int64
		StockID    int64
		DayID      int64
		Photo      int
		Video      int
		Income     float64
		SyncStatus SyncStatus
	}

	// Entry is the denormalized view of a recorded count, used when
	// archiving to the external spreadsheet.
	Entry struct {
		CountID int64
		User    string
		Stock   string
		Date    Date
		Photo   int
		Video   int
		Income  float64
	}
)

var (
	ErrInvalidYear  = errors.New("invalid year")
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidDay   = errors.New("invalid day of month")

	ErrUserNotFound  = errors.New("user not found")
	ErrMonthNotFound = errors.New("month not found")
	ErrDayNotFound   = errors.New("day not found")
	ErrStockNotFound = errors.New("stock not found")
	ErrCountNotFound = errors.New("count not found")
)

// Period is a validated (year, month) selector. Construct it with
// NewPeriod or CurrentPeriod; a zero Period is not valid.
type Period struct {
	year  int
	month int
}

// NewPeriod validates the calendar range once, at the boundary.
// Downstream code may assume any Period it receives is in range.
func NewPeriod(year, month int) (Period, error) {
	if year < 1 || year > 9999 {
		return Period{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return Period{year: year, month: month}, nil
}

// CurrentPeriod returns the period containing now. It is computed per
// call; nothing caches the current month at process scope.
func CurrentPeriod(now time.Time) Period {
	return Period{year: now.Year(), month: int(now.Month())}
}

func (p Period) Year() int  { return p.year }
func (p Period) Month() int { return p.month }

func (p Period) String() string {
	return fmt.Sprintf("%s %d", MonthName(p.month), p.year)
}

// Date is a validated calendar date. The day is checked against the
// real length of its month, leap years included.
type Date struct {
	period Period
	day    int
}

func NewDate(year, month, day int) (Date, error) {
	p, err := NewPeriod(year, month)
	if err != nil {
		return Date{}, err
	}
	if day < 1 || day > DaysIn(year, month) {
		return Date{}, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	return Date{period: p, day: day}, nil
}

func (d Date) Period() Period { return d.period }
func (d Date) Year() int      { return d.period.year }
func (d Date) Month() int     { return d.period.month }
func (d Date) Day() int       { return d.day }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.period.year, d.period.month, d.day)
}

// Field error kinds for stock creation. Both fields are validated
// independently, so a single rejection can carry one error per field.
type FieldErrorKind string

const (
	FieldRequired  FieldErrorKind = "required"
	FieldDuplicate FieldErrorKind = "duplicate"
)

type FieldError struct {
	Kind    FieldErrorKind
	Message string
}

// FieldErrors maps a field name ("name", "pseudo_name") to its error.
type FieldErrors map[string]FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, e := range fe {
		parts = append(parts, field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

// StockInput is the submitted stock-creation form. The duplicate checks
// need storage and live in the service layer; Normalized only trims.
type StockInput struct {
	Name       string
	PseudoName string
}

func (in StockInput) Normalized() StockInput {
	return StockInput{
		Name:       strings.TrimSpace(in.Name),
		PseudoName: strings.TrimSpace(in.PseudoName),
	}
}
