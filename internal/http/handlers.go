package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"stocktrack/internal/core"
	"stocktrack/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tracker.ListUsers(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime_seconds":    int64(time.Since(s.startedAt).Seconds()),
		"series_cache_size": s.seriesCache.Size(),
		"totals_cache_size": s.totalsCache.Size(),
	})
}

// actingUser resolves the request's user from the X-User header, falling
// back to the configured default. Users are created on first sight.
func (s *Server) actingUser(r *http.Request) (core.User, error) {
	name := sanitizeInput(r.Header.Get("X-User"))
	if name == "" {
		name = s.defaultUser
	}
	return s.tracker.ResolveUser(r.Context(), name)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	user, err := s.actingUser(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "User resolution failed", "error", err)
		http.Error(w, "cannot resolve user", http.StatusInternalServerError)
		return
	}

	period := core.CurrentPeriod(time.Now())
	stocks, err := s.tracker.ListStocks(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Stock list error", "error", err)
	}

	type monthLink struct {
		Num  int
		Name string
	}
	months := make([]monthLink, 0, 12)
	for i, name := range core.MonthNames() {
		months = append(months, monthLink{Num: i + 1, Name: name})
	}

	data := struct {
		User      string
		Year      int
		Month     int
		MonthName string
		Months    []monthLink
		Stocks    []core.Stock
	}{
		User:      user.Name,
		Year:      period.Year(),
		Month:     period.Month(),
		MonthName: core.MonthName(period.Month()),
		Months:    months,
		Stocks:    stocks,
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed",
			log.FieldError, err,
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleMonthPage renders the day grid for one month, materializing the
// month's days on first visit.
func (s *Server) handleMonthPage(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	year, errY := strconv.Atoi(r.PathValue("year"))
	monthNum, errM := strconv.Atoi(r.PathValue("month"))
	if errY != nil || errM != nil {
		http.Error(w, "invalid month path", http.StatusBadRequest)
		return
	}

	period, err := core.NewPeriod(year, monthNum)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := s.actingUser(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "User resolution failed", "error", err)
		http.Error(w, "cannot resolve user", http.StatusInternalServerError)
		return
	}

	month, err := s.tracker.ResolveMonth(r.Context(), user.ID, period)
	if err != nil {
		slog.ErrorContext(r.Context(), "Month resolution failed", "error", err, "year", year, "month", monthNum)
		http.Error(w, "cannot resolve month", http.StatusInternalServerError)
		return
	}

	days, err := s.tracker.EnsureDays(r.Context(), month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Day materialization failed", "error", err, "year", year, "month", monthNum)
		http.Error(w, "cannot materialize days", http.StatusInternalServerError)
		return
	}

	stocks, err := s.tracker.ListStocks(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Stock list error", "error", err)
	}

	data := struct {
		User      string
		Year      int
		Month     int
		MonthName string
		Days      []core.Day
		Stocks    []core.Stock
	}{
		User:      user.Name,
		Year:      period.Year(),
		Month:     period.Month(),
		MonthName: core.MonthName(period.Month()),
		Days:      days,
		Stocks:    stocks,
	}

	if err := s.templates.ExecuteTemplate(w, "month.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Month template execution failed",
			log.FieldError, err,
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
