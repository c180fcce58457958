package http

import (
	"log/slog"
	"net/http"
	"strings"

	"stocktrack/internal/core"
	"stocktrack/internal/services"
)

// handleDailyReport returns the per-day series of one stock for one
// month: /reports/daily?year=&month=&stock=.
func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	user, period, stockName, ok := s.reportParams(w, r, true)
	if !ok {
		return
	}

	key := s.reportCacheKey(cacheKindDaily, user.ID, period.Year(), period.Month(), stockName)
	if series, found := s.seriesCache.Get(key); found {
		slog.DebugContext(r.Context(), "Daily report cache hit", "key", key)
		writeJSON(w, http.StatusOK, series)
		return
	}

	stock, err := s.tracker.GetStock(r.Context(), user.ID, stockName)
	if err != nil {
		s.reportError(w, r, err, "daily")
		return
	}
	month, err := s.tracker.ResolveMonth(r.Context(), user.ID, period)
	if err != nil {
		s.reportError(w, r, err, "daily")
		return
	}

	series, err := s.engine.MonthReport(r.Context(), month, stock)
	if err != nil {
		s.reportError(w, r, err, "daily")
		return
	}

	s.seriesCache.Set(key, series)
	writeJSON(w, http.StatusOK, series)
}

// handleYearlyReport returns one stock's totals by month for a year:
// /reports/yearly?year=&stock=.
func (s *Server) handleYearlyReport(w http.ResponseWriter, r *http.Request) {
	user, period, stockName, ok := s.reportParams(w, r, true)
	if !ok {
		return
	}

	key := s.reportCacheKey(cacheKindYearly, user.ID, period.Year(), 0, stockName)
	if series, found := s.seriesCache.Get(key); found {
		slog.DebugContext(r.Context(), "Yearly report cache hit", "key", key)
		writeJSON(w, http.StatusOK, series)
		return
	}

	stock, err := s.tracker.GetStock(r.Context(), user.ID, stockName)
	if err != nil {
		s.reportError(w, r, err, "yearly")
		return
	}

	series, err := s.engine.YearReport(r.Context(), user.ID, period.Year(), stock)
	if err != nil {
		s.reportError(w, r, err, "yearly")
		return
	}

	s.seriesCache.Set(key, series)
	writeJSON(w, http.StatusOK, series)
}

// handleDiagramReport returns the month's per-stock series, one value
// per stock: /reports/diagram?year=&month=.
func (s *Server) handleDiagramReport(w http.ResponseWriter, r *http.Request) {
	user, period, _, ok := s.reportParams(w, r, false)
	if !ok {
		return
	}

	key := s.reportCacheKey(cacheKindDiagram, user.ID, period.Year(), period.Month(), "")
	if series, found := s.seriesCache.Get(key); found {
		slog.DebugContext(r.Context(), "Diagram report cache hit", "key", key)
		writeJSON(w, http.StatusOK, series)
		return
	}

	month, err := s.tracker.ResolveMonth(r.Context(), user.ID, period)
	if err != nil {
		s.reportError(w, r, err, "diagram")
		return
	}

	series, err := s.engine.MonthDiagram(r.Context(), user.ID, month)
	if err != nil {
		s.reportError(w, r, err, "diagram")
		return
	}

	s.seriesCache.Set(key, series)
	writeJSON(w, http.StatusOK, series)
}

// handleTotalsReport returns the month's totals table plus its flat
// series: /reports/totals?year=&month=.
func (s *Server) handleTotalsReport(w http.ResponseWriter, r *http.Request) {
	user, period, _, ok := s.reportParams(w, r, false)
	if !ok {
		return
	}

	key := s.reportCacheKey(cacheKindTotals, user.ID, period.Year(), period.Month(), "")
	if totals, found := s.totalsCache.Get(key); found {
		slog.DebugContext(r.Context(), "Totals report cache hit", "key", key)
		s.writeTotals(w, totals)
		return
	}

	month, err := s.tracker.ResolveMonth(r.Context(), user.ID, period)
	if err != nil {
		s.reportError(w, r, err, "totals")
		return
	}

	totals, err := s.engine.TotalsReport(r.Context(), user.ID, month)
	if err != nil {
		s.reportError(w, r, err, "totals")
		return
	}

	s.totalsCache.Set(key, totals)
	s.writeTotals(w, totals)
}

func (s *Server) writeTotals(w http.ResponseWriter, totals core.Totals) {
	writeJSON(w, http.StatusOK, struct {
		Header []string `json:"header"`
		core.Totals
	}{
		Header: core.TotalsHeader,
		Totals: totals,
	})
}

// reportParams resolves the acting user and validates the query's year
// and month. When needStock is set, an absent stock parameter is a 422.
// On failure the response has already been written and ok is false.
func (s *Server) reportParams(w http.ResponseWriter, r *http.Request, needStock bool) (core.User, core.Period, string, bool) {
	user, err := s.actingUser(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "User resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cannot resolve user"})
		return core.User{}, core.Period{}, "", false
	}

	year, monthNum := parseYearMonth(r)
	period, err := core.NewPeriod(year, monthNum)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return core.User{}, core.Period{}, "", false
	}

	stockName := strings.TrimSpace(r.URL.Query().Get("stock"))
	if needStock && stockName == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "missing stock parameter"})
		return core.User{}, core.Period{}, "", false
	}

	return user, period, stockName, true
}

func (s *Server) reportError(w http.ResponseWriter, r *http.Request, err error, kind string) {
	if services.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	slog.ErrorContext(r.Context(), "Report error", "kind", kind, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "report failed"})
}
