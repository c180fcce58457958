package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stocktrack/internal/amqp"
	"stocktrack/internal/core"
	"stocktrack/internal/storage"
)

// Messages attached to stock-creation field errors.
const (
	msgFieldRequired = "Fill in the field"
	msgNameExists    = "Stock already exists"
	msgPseudoExists  = "Alias already exists"
)

// TrackerService orchestrates the period registry, day materializer,
// stock ledger and count accumulator on top of SQLite, and publishes
// archive messages over AMQP after each recorded entry.
type TrackerService struct {
	store *storage.SQLiteRepository
	amqp  *amqp.Client // nil when AMQP is disabled

	// globalNames switches the stock duplicate check from the user's own
	// stocks to every stock in the system.
	globalNames bool
}

func NewTrackerService(store *storage.SQLiteRepository, amqpClient *amqp.Client, globalNames bool) *TrackerService {
	return &TrackerService{
		store:       store,
		amqp:        amqpClient,
		globalNames: globalNames,
	}
}

// ResolveUser resolves the acting user by name, creating it on first
// sight. Authentication happens outside this application.
func (s *TrackerService) ResolveUser(ctx context.Context, name string) (core.User, error) {
	return s.store.GetOrCreateUser(ctx, name)
}

func (s *TrackerService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

// ResolveMonth is the period registry: it returns the user's month row
// for the period, creating it on first access. Safe to repeat.
func (s *TrackerService) ResolveMonth(ctx context.Context, userID int64, p core.Period) (core.Month, error) {
	m, err := s.store.GetOrCreateMonth(ctx, userID, p)
	if err != nil {
		return core.Month{}, fmt.Errorf("resolve month %s: %w", p, err)
	}
	return m, nil
}

// EnsureDays materializes the month's full calendar grid on first
// access and returns the days in calendar order. Existing days are
// returned unchanged; the grid is never partially created.
func (s *TrackerService) EnsureDays(ctx context.Context, m core.Month) ([]core.Day, error) {
	days, err := s.store.ListDays(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	if len(days) > 0 {
		return days, nil
	}

	if err := s.store.CreateDays(ctx, m.ID, core.DayNumbers(m.Year, m.Month)); err != nil {
		return nil, fmt.Errorf("materialize days for %d-%02d: %w", m.Year, m.Month, err)
	}

	days, err = s.store.ListDays(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list days after materialization: %w", err)
	}

	slog.InfoContext(ctx, "Month days materialized",
		"user_id", m.UserID, "year", m.Year, "month", m.Month, "days", len(days))
	return days, nil
}

// CreateStock validates and persists a new stock. Validation errors
// come back as core.FieldErrors with one entry per offending field;
// both fields are checked independently so a single rejection can name
// both.
func (s *TrackerService) CreateStock(ctx context.Context, userID int64, in core.StockInput) (core.Stock, error) {
	in = in.Normalized()
	fieldErrs := core.FieldErrors{}

	if in.Name == "" {
		fieldErrs["name"] = core.FieldError{Kind: core.FieldRequired, Message: msgFieldRequired}
	} else {
		inUse, err := s.store.StockNameInUse(ctx, userID, in.Name, s.globalNames)
		if err != nil {
			return core.Stock{}, fmt.Errorf("check stock name: %w", err)
		}
		if inUse {
			fieldErrs["name"] = core.FieldError{Kind: core.FieldDuplicate, Message: msgNameExists}
		}
	}

	if in.PseudoName == "" {
		fieldErrs["pseudo_name"] = core.FieldError{Kind: core.FieldRequired, Message: msgFieldRequired}
	} else {
		inUse, err := s.store.PseudoNameInUse(ctx, userID, in.PseudoName, s.globalNames)
		if err != nil {
			return core.Stock{}, fmt.Errorf("check stock alias: %w", err)
		}
		if inUse {
			fieldErrs["pseudo_name"] = core.FieldError{Kind: core.FieldDuplicate, Message: msgPseudoExists}
		}
	}

	if len(fieldErrs) > 0 {
		return core.Stock{}, fieldErrs
	}

	stock, err := s.store.CreateStock(ctx, userID, in.Name, in.PseudoName)
	if err != nil {
		return core.Stock{}, fmt.Errorf("create stock: %w", err)
	}

	slog.InfoContext(ctx, "Stock created",
		"user_id", userID, "stock", stock.Name, "alias", stock.PseudoName)
	return stock, nil
}

// ListStocks returns the user's stocks in storage order.
func (s *TrackerService) ListStocks(ctx context.Context, userID int64) ([]core.Stock, error) {
	return s.store.ListStocks(ctx, userID)
}

func (s *TrackerService) GetStock(ctx context.Context, userID int64, name string) (core.Stock, error) {
	return s.store.GetStockByName(ctx, userID, name)
}

// RecordEntry is the count accumulator: it resolves and materializes
// the calendar bucket for date, then adds the submitted deltas to the
// (stock, day) count. Submitting the same entry twice doubles the
// stored totals. Unknown stock names fail with core.ErrStockNotFound.
func (s *TrackerService) RecordEntry(ctx context.Context, userID int64, stockName string, date core.Date, photoDelta, videoDelta int, incomeDelta float64) (core.Count, error) {
	stock, err := s.store.GetStockByName(ctx, userID, stockName)
	if err != nil {
		return core.Count{}, fmt.Errorf("locate stock %q: %w", stockName, err)
	}

	month, err := s.ResolveMonth(ctx, userID, date.Period())
	if err != nil {
		return core.Count{}, err
	}
	if _, err := s.EnsureDays(ctx, month); err != nil {
		return core.Count{}, err
	}

	day, err := s.store.GetDay(ctx, month.ID, date.Day())
	if err != nil {
		return core.Count{}, fmt.Errorf("locate day %s: %w", date, err)
	}

	count, err := s.store.AccumulateCount(ctx, stock.ID, day.ID, photoDelta, videoDelta, incomeDelta)
	if err != nil {
		return core.Count{}, fmt.Errorf("accumulate entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry recorded",
		"user_id", userID, "stock", stock.Name, "date", date.String(),
		"photo", count.Photo, "video", count.Video, "income", count.Income)

	// Archive asynchronously; the entry is already stored, so a publish
	// failure must not fail the request.
	if s.amqp != nil {
		if err := s.amqp.PublishEntrySync(ctx, count.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish entry sync message",
				"count_id", count.ID, "error", err)
		}
	}

	return count, nil
}

// RecordDayInput stores the raw per-day totals entered on the month
// grid. Unlike stock counts this overwrites the previous values.
func (s *TrackerService) RecordDayInput(ctx context.Context, userID int64, date core.Date, photo, video int) (core.Day, error) {
	month, err := s.ResolveMonth(ctx, userID, date.Period())
	if err != nil {
		return core.Day{}, err
	}
	if _, err := s.EnsureDays(ctx, month); err != nil {
		return core.Day{}, err
	}

	day, err := s.store.GetDay(ctx, month.ID, date.Day())
	if err != nil {
		return core.Day{}, fmt.Errorf("locate day %s: %w", date, err)
	}

	if err := s.store.UpdateDayTotals(ctx, day.ID, photo, video); err != nil {
		return core.Day{}, fmt.Errorf("store day input: %w", err)
	}

	day.Photo, day.Video = photo, video
	return day, nil
}

// EnsureCounts guarantees one count row per given day for the stock and
// returns them in calendar order. Only the missing subset is filled, so
// report projections always see a full-length, positionally complete
// range even when some days already carry data.
func (s *TrackerService) EnsureCounts(ctx context.Context, days []core.Day, stock core.Stock) ([]core.Count, error) {
	if len(days) == 0 {
		return nil, nil
	}

	dayIDs := make([]int64, len(days))
	for i, d := range days {
		dayIDs[i] = d.ID
	}

	existing, err := s.store.ListCountsForDays(ctx, stock.ID, dayIDs)
	if err != nil {
		return nil, fmt.Errorf("list counts: %w", err)
	}
	if len(existing) == len(days) {
		return existing, nil
	}

	have := make(map[int64]bool, len(existing))
	for _, c := range existing {
		have[c.DayID] = true
	}
	missing := make([]int64, 0, len(days)-len(existing))
	for _, id := range dayIDs {
		if !have[id] {
			missing = append(missing, id)
		}
	}

	if err := s.store.CreateZeroCounts(ctx, stock.ID, missing); err != nil {
		return nil, fmt.Errorf("fill missing counts: %w", err)
	}

	counts, err := s.store.ListCountsForDays(ctx, stock.ID, dayIDs)
	if err != nil {
		return nil, fmt.Errorf("list counts after fill: %w", err)
	}
	return counts, nil
}

// IsNotFound reports whether err is one of the domain missing-resource
// conditions.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrStockNotFound) ||
		errors.Is(err, core.ErrDayNotFound) ||
		errors.Is(err, core.ErrMonthNotFound) ||
		errors.Is(err, core.ErrUserNotFound) ||
		errors.Is(err, core.ErrCountNotFound)
}
