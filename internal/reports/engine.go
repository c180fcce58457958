// Package reports projects materialized day/count data into the four
// report shapes: daily series, yearly series, cross-stock diagram and
// cross-stock totals table.
package reports

import (
	"context"
	"fmt"
	"strconv"

	"stocktrack/internal/core"
	"stocktrack/internal/services"
)

type Engine struct {
	tracker *services.TrackerService
}

func NewEngine(tracker *services.TrackerService) *Engine {
	return &Engine{tracker: tracker}
}

// MonthReport emits one element per calendar day of the month for one
// stock, in calendar order, labeled by date number.
func (e *Engine) MonthReport(ctx context.Context, month core.Month, stock core.Stock) (core.Series, error) {
	days, err := e.tracker.EnsureDays(ctx, month)
	if err != nil {
		return core.Series{}, fmt.Errorf("month report days: %w", err)
	}
	counts, err := e.tracker.EnsureCounts(ctx, days, stock)
	if err != nil {
		return core.Series{}, fmt.Errorf("month report counts: %w", err)
	}

	dateByDay := make(map[int64]int, len(days))
	for _, d := range days {
		dateByDay[d.ID] = d.Date
	}

	s := newSeries(len(counts))
	for _, c := range counts {
		s.Photo = append(s.Photo, c.Photo)
		s.Video = append(s.Video, c.Video)
		s.Income = append(s.Income, c.Income)
		s.Labels = append(s.Labels, strconv.Itoa(dateByDay[c.DayID]))
	}
	return s, nil
}

// YearReport emits twelve elements, one per calendar month, each the
// sum of the stock's counts across that month, labeled by month name.
func (e *Engine) YearReport(ctx context.Context, userID int64, year int, stock core.Stock) (core.Series, error) {
	s := newSeries(12)
	for monthNum := 1; monthNum <= 12; monthNum++ {
		p, err := core.NewPeriod(year, monthNum)
		if err != nil {
			return core.Series{}, err
		}
		month, err := e.tracker.ResolveMonth(ctx, userID, p)
		if err != nil {
			return core.Series{}, fmt.Errorf("year report month %d: %w", monthNum, err)
		}
		photo, video, income, err := e.stockMonthSums(ctx, month, stock)
		if err != nil {
			return core.Series{}, fmt.Errorf("year report sums %d: %w", monthNum, err)
		}
		s.Photo = append(s.Photo, photo)
		s.Video = append(s.Video, video)
		s.Income = append(s.Income, income)
	}
	s.Labels = core.MonthNames()
	return s, nil
}

// MonthDiagram emits one element per stock of the user, each the sum of
// that stock's counts across the month, labeled by stock alias. Stock
// order is storage order, matching the totals table.
func (e *Engine) MonthDiagram(ctx context.Context, userID int64, month core.Month) (core.Series, error) {
	totals, err := e.TotalsReport(ctx, userID, month)
	if err != nil {
		return core.Series{}, err
	}
	return totals.Series, nil
}

// TotalsReport is the diagram aggregation assembled into table rows of
// (alias, photoSum, videoSum, incomeSum) plus the same flat arrays for
// charting.
func (e *Engine) TotalsReport(ctx context.Context, userID int64, month core.Month) (core.Totals, error) {
	stocks, err := e.tracker.ListStocks(ctx, userID)
	if err != nil {
		return core.Totals{}, fmt.Errorf("totals report stocks: %w", err)
	}

	totals := core.Totals{
		Rows:   make([]core.TotalsRow, 0, len(stocks)),
		Series: newSeries(len(stocks)),
	}
	for _, stock := range stocks {
		photo, video, income, err := e.stockMonthSums(ctx, month, stock)
		if err != nil {
			return core.Totals{}, fmt.Errorf("totals report %q: %w", stock.Name, err)
		}
		totals.Rows = append(totals.Rows, core.TotalsRow{
			Alias:  stock.PseudoName,
			Photo:  photo,
			Video:  video,
			Income: income,
		})
		totals.Photo = append(totals.Photo, photo)
		totals.Video = append(totals.Video, video)
		totals.Income = append(totals.Income, income)
		totals.Labels = append(totals.Labels, stock.PseudoName)
	}
	return totals, nil
}

// stockMonthSums folds one stock's counts over a full month. The range
// is materialized first, so the fold always runs over the complete
// calendar in deterministic order.
func (e *Engine) stockMonthSums(ctx context.Context, month core.Month, stock core.Stock) (photo, video int, income float64, err error) {
	days, err := e.tracker.EnsureDays(ctx, month)
	if err != nil {
		return 0, 0, 0, err
	}
	counts, err := e.tracker.EnsureCounts(ctx, days, stock)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, c := range counts {
		photo += c.Photo
		video += c.Video
		income += c.Income
	}
	return photo, video, income, nil
}

func newSeries(capacity int) core.Series {
	return core.Series{
		Photo:  make([]int, 0, capacity),
		Video:  make([]int, 0, capacity),
		Income: make([]float64, 0, capacity),
		Labels: make([]string, 0, capacity),
	}
}
