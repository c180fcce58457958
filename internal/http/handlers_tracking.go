package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"stocktrack/internal/core"
	"stocktrack/internal/services"
)

// handleDayInput stores the raw per-day upload totals entered on the
// month grid. Repeated submissions overwrite the stored values.
func (s *Server) handleDayInput(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	user, err := s.actingUser(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "User resolution failed", "error", err)
		InternalServerError("Cannot resolve user").Write(w)
		return
	}

	params := ParseDateParams(r.Form)
	date, err := core.NewDate(params.Year, params.Month, params.Day)
	if err != nil {
		UnprocessableEntityError("Invalid date: " + err.Error()).Write(w)
		return
	}

	photo, _ := strconv.Atoi(r.Form.Get("photo"))
	video, _ := strconv.Atoi(r.Form.Get("video"))

	day, err := s.tracker.RecordDayInput(r.Context(), user.ID, date, photo, video)
	if err != nil {
		slog.ErrorContext(r.Context(), "Day input error", "error", err, "date", date.String())
		InternalServerError("Failed to store day totals").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerDayUpdated(date.Year(), date.Month()).
		BodyHTML(`<div class="success">Saved ` + date.String() +
			`: ` + strconv.Itoa(day.Photo) + ` photo / ` + strconv.Itoa(day.Video) + ` video</div>`).
		Write(w)
}

// handleRecordEntry adds an income entry for one stock on one date.
// Deltas accumulate on top of whatever the (stock, day) pair already
// holds.
func (s *Server) handleRecordEntry(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	user, err := s.actingUser(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "User resolution failed", "error", err)
		InternalServerError("Cannot resolve user").Write(w)
		return
	}

	params := ParseDateParams(r.Form)
	date, err := core.NewDate(params.Year, params.Month, params.Day)
	if err != nil {
		UnprocessableEntityError("Invalid date: " + err.Error()).Write(w)
		return
	}

	stockName := sanitizeInput(r.Form.Get("stock"))
	if stockName == "" {
		UnprocessableEntityError("Stock is required").Write(w)
		return
	}

	photo, _ := strconv.Atoi(r.Form.Get("photo"))
	video, _ := strconv.Atoi(r.Form.Get("video"))
	income, _ := strconv.ParseFloat(r.Form.Get("income"), 64)

	count, err := s.tracker.RecordEntry(r.Context(), user.ID, stockName, date, photo, video, income)
	if err != nil {
		if services.IsNotFound(err) {
			UnprocessableEntityError("Unknown stock: " + stockName).Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Entry record error", "error", err, "stock", stockName, "date", date.String())
		InternalServerError("Failed to record entry").Write(w)
		return
	}

	s.slogger.LogEntryRecorded(r.Context(), stockName, photo, video, income)
	s.invalidateReports(user.ID, date.Year(), date.Month(), stockName)

	NewHTMXResponse().
		TriggerEntryRecorded(date.Year(), date.Month()).
		TriggerFormReset().
		BodyHTML(`<div class="success">Recorded ` + template.HTMLEscapeString(stockName) +
			` on ` + date.String() +
			`: totals ` + strconv.Itoa(count.Photo) + ` photo / ` + strconv.Itoa(count.Video) +
			` video / ` + strconv.FormatFloat(count.Income, 'f', 2, 64) + ` income</div>`).
		Write(w)
}

// handleListStocks returns the acting user's stock ledger as JSON.
func (s *Server) handleListStocks(w http.ResponseWriter, r *http.Request) {
	user, err := s.actingUser(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "User resolution failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cannot resolve user"})
		return
	}

	stocks, err := s.tracker.ListStocks(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Stock list error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cannot list stocks"})
		return
	}

	type stockJSON struct {
		Name       string `json:"name"`
		PseudoName string `json:"pseudo_name"`
	}
	out := make([]stockJSON, 0, len(stocks))
	for _, st := range stocks {
		out = append(out, stockJSON{Name: st.Name, PseudoName: st.PseudoName})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateStock registers a new stock. Validation failures come back
// as 422 with one message per offending field.
func (s *Server) handleCreateStock(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	user, err := s.actingUser(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "User resolution failed", "error", err)
		InternalServerError("Cannot resolve user").Write(w)
		return
	}

	in := core.StockInput{
		Name:       sanitizeInput(r.Form.Get("name")),
		PseudoName: sanitizeInput(r.Form.Get("pseudo_name")),
	}

	stock, err := s.tracker.CreateStock(r.Context(), user.ID, in)
	if err != nil {
		var fieldErrs core.FieldErrors
		if errors.As(err, &fieldErrs) {
			writeFieldErrors(w, fieldErrs)
			return
		}
		slog.ErrorContext(r.Context(), "Stock create error", "error", err, "stock", in.Name)
		InternalServerError("Failed to create stock").Write(w)
		return
	}

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerStockCreated(stock.Name).
		TriggerFormReset().
		BodyHTML(`<div class="success">Stock ` + template.HTMLEscapeString(stock.Name) +
			` (` + template.HTMLEscapeString(stock.PseudoName) + `) created</div>`).
		Write(w)
}

// writeFieldErrors renders per-field validation messages as a 422
// fragment, one line per field.
func writeFieldErrors(w http.ResponseWriter, fieldErrs core.FieldErrors) {
	html := ``
	for _, field := range []string{"name", "pseudo_name"} {
		if fe, ok := fieldErrs[field]; ok {
			html += `<div class="error" data-field="` + field + `">` +
				template.HTMLEscapeString(fe.Message) + `</div>`
		}
	}

	NewHTMXResponse().
		Status(http.StatusUnprocessableEntity).
		BodyHTML(html).
		Write(w)
}
