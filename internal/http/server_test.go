package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"stocktrack/internal/core"
	"stocktrack/internal/reports"
	"stocktrack/internal/services"
	"stocktrack/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	tracker := services.NewTrackerService(repo, nil, false)
	engine := reports.NewEngine(tracker)

	srv := NewServer(":0", tracker, engine, "tester")
	t.Cleanup(func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return srv
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func createStock(t *testing.T, srv *Server, name, pseudo string) {
	t.Helper()
	rr := postForm(t, srv, "/stocks", url.Values{"name": {name}, "pseudo_name": {pseudo}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create stock %s: status=%d body=%s", name, rr.Code, rr.Body.String())
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := get(t, srv, path)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}

	rr := get(t, srv, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	var metrics map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("metrics not JSON: %v", err)
	}
	if _, ok := metrics["uptime_seconds"]; !ok {
		t.Error("metrics missing uptime_seconds")
	}
}

func TestServer_Index(t *testing.T) {
	srv := newTestServer(t)

	rr := get(t, srv, "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Stocktrack") {
		t.Error("index body missing heading")
	}
	// Security headers from the middleware chain.
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options header")
	}
}

func TestServer_MonthPage(t *testing.T) {
	srv := newTestServer(t)

	rr := get(t, srv, "/months/2022/7")
	if rr.Code != http.StatusOK {
		t.Fatalf("month page status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Month 13 never materializes.
	rr = get(t, srv, "/months/2022/13")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid month status=%d, want 400", rr.Code)
	}

	rr = get(t, srv, "/months/abc/7")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-numeric year status=%d, want 400", rr.Code)
	}
}

func TestServer_CreateStock(t *testing.T) {
	srv := newTestServer(t)

	createStock(t, srv, "Shutterstock", "shutter")

	// Duplicate name for the same user fails validation.
	rr := postForm(t, srv, "/stocks", url.Values{"name": {"Shutterstock"}, "pseudo_name": {"other"}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("duplicate stock status=%d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `data-field="name"`) {
		t.Errorf("duplicate stock body missing field error: %s", rr.Body.String())
	}

	// Missing fields come back per-field.
	rr = postForm(t, srv, "/stocks", url.Values{"name": {""}, "pseudo_name": {""}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty stock status=%d, want 422", rr.Code)
	}

	rr = get(t, srv, "/stocks")
	if rr.Code != http.StatusOK {
		t.Fatalf("list stocks status=%d", rr.Code)
	}
	var stocks []struct {
		Name       string `json:"name"`
		PseudoName string `json:"pseudo_name"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &stocks); err != nil {
		t.Fatalf("stocks not JSON: %v", err)
	}
	if len(stocks) != 1 || stocks[0].Name != "Shutterstock" || stocks[0].PseudoName != "shutter" {
		t.Errorf("unexpected stock list: %+v", stocks)
	}
}

func TestServer_RecordEntry(t *testing.T) {
	srv := newTestServer(t)
	createStock(t, srv, "Shutterstock", "shutter")

	entry := url.Values{
		"stock": {"Shutterstock"},
		"year":  {"2022"}, "month": {"7"}, "day": {"15"},
		"photo": {"4"}, "video": {"2"}, "income": {"6.50"},
	}
	rr := postForm(t, srv, "/entries", entry)
	if rr.Code != http.StatusOK {
		t.Fatalf("record entry status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"entry:recorded"`) {
		t.Error("missing entry:recorded trigger")
	}

	// Same entry again accumulates on top.
	rr = postForm(t, srv, "/entries", entry)
	if rr.Code != http.StatusOK {
		t.Fatalf("second entry status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "8 photo") {
		t.Errorf("expected accumulated photo total in body: %s", rr.Body.String())
	}

	// Unknown stock is a client error, not a 500.
	rr = postForm(t, srv, "/entries", url.Values{
		"stock": {"nope"},
		"year":  {"2022"}, "month": {"7"}, "day": {"15"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown stock status=%d, want 422", rr.Code)
	}

	// Day 31 does not exist in a 30-day month.
	rr = postForm(t, srv, "/entries", url.Values{
		"stock": {"Shutterstock"},
		"year":  {"2022"}, "month": {"6"}, "day": {"31"},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid day status=%d, want 422", rr.Code)
	}
}

func TestServer_DayInput(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{
		"year": {"2022"}, "month": {"7"}, "day": {"15"},
		"photo": {"12"}, "video": {"3"},
	}
	rr := postForm(t, srv, "/days", form)
	if rr.Code != http.StatusOK {
		t.Fatalf("day input status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Overwrites, not accumulates.
	form.Set("photo", "5")
	rr = postForm(t, srv, "/days", form)
	if rr.Code != http.StatusOK {
		t.Fatalf("second day input status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "5 photo") {
		t.Errorf("expected overwritten photo total: %s", rr.Body.String())
	}
}

func TestServer_DailyReport(t *testing.T) {
	srv := newTestServer(t)
	createStock(t, srv, "Shutterstock", "shutter")

	rr := postForm(t, srv, "/entries", url.Values{
		"stock": {"Shutterstock"},
		"year":  {"2022"}, "month": {"7"}, "day": {"15"},
		"photo": {"4"}, "video": {"2"}, "income": {"6.50"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("record entry status=%d", rr.Code)
	}

	rr = get(t, srv, "/reports/daily?year=2022&month=7&stock=Shutterstock")
	if rr.Code != http.StatusOK {
		t.Fatalf("daily report status=%d body=%s", rr.Code, rr.Body.String())
	}

	var series core.Series
	if err := json.Unmarshal(rr.Body.Bytes(), &series); err != nil {
		t.Fatalf("daily report not JSON: %v", err)
	}
	if len(series.Photo) != 31 {
		t.Fatalf("july series length = %d, want 31", len(series.Photo))
	}
	if series.Photo[14] != 4 || series.Video[14] != 2 || series.Income[14] != 6.50 {
		t.Errorf("day 15 = (%d, %d, %v), want (4, 2, 6.5)",
			series.Photo[14], series.Video[14], series.Income[14])
	}
	if series.Labels[14] != "15" {
		t.Errorf("day 15 label = %q", series.Labels[14])
	}

	// Missing stock parameter.
	rr = get(t, srv, "/reports/daily?year=2022&month=7")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing stock status=%d, want 422", rr.Code)
	}

	// Unknown stock.
	rr = get(t, srv, "/reports/daily?year=2022&month=7&stock=nope")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown stock status=%d, want 404", rr.Code)
	}
}

func TestServer_DailyReport_CacheInvalidation(t *testing.T) {
	srv := newTestServer(t)
	createStock(t, srv, "Adobe", "adobe")

	entry := url.Values{
		"stock": {"Adobe"},
		"year":  {"2022"}, "month": {"3"}, "day": {"10"},
		"photo": {"1"}, "video": {"0"}, "income": {"0.50"},
	}
	if rr := postForm(t, srv, "/entries", entry); rr.Code != http.StatusOK {
		t.Fatalf("record entry status=%d", rr.Code)
	}

	// Prime the cache.
	rr := get(t, srv, "/reports/daily?year=2022&month=3&stock=Adobe")
	if rr.Code != http.StatusOK {
		t.Fatalf("daily report status=%d", rr.Code)
	}

	// Write again: the cached projection must be dropped.
	if rr := postForm(t, srv, "/entries", entry); rr.Code != http.StatusOK {
		t.Fatalf("second entry status=%d", rr.Code)
	}

	rr = get(t, srv, "/reports/daily?year=2022&month=3&stock=Adobe")
	var series core.Series
	if err := json.Unmarshal(rr.Body.Bytes(), &series); err != nil {
		t.Fatalf("daily report not JSON: %v", err)
	}
	if series.Photo[9] != 2 {
		t.Errorf("day 10 photo = %d after second entry, want 2", series.Photo[9])
	}
}

func TestServer_YearlyReport(t *testing.T) {
	srv := newTestServer(t)
	createStock(t, srv, "Shutterstock", "shutter")

	for _, month := range []string{"2", "9"} {
		rr := postForm(t, srv, "/entries", url.Values{
			"stock": {"Shutterstock"},
			"year":  {"2022"}, "month": {month}, "day": {"1"},
			"photo": {"3"}, "video": {"1"}, "income": {"2.00"},
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("record entry month %s: status=%d", month, rr.Code)
		}
	}

	rr := get(t, srv, "/reports/yearly?year=2022&stock=Shutterstock")
	if rr.Code != http.StatusOK {
		t.Fatalf("yearly report status=%d body=%s", rr.Code, rr.Body.String())
	}

	var series core.Series
	if err := json.Unmarshal(rr.Body.Bytes(), &series); err != nil {
		t.Fatalf("yearly report not JSON: %v", err)
	}
	if len(series.Photo) != 12 {
		t.Fatalf("yearly series length = %d, want 12", len(series.Photo))
	}
	if series.Photo[1] != 3 || series.Photo[8] != 3 {
		t.Errorf("month sums = %v, want 3 in positions 1 and 8", series.Photo)
	}
	if series.Photo[0] != 0 {
		t.Errorf("january sum = %d, want 0", series.Photo[0])
	}
}

func TestServer_TotalsReport(t *testing.T) {
	srv := newTestServer(t)
	createStock(t, srv, "Shutterstock", "shutter")
	createStock(t, srv, "Adobe", "adobe")

	rr := postForm(t, srv, "/entries", url.Values{
		"stock": {"Shutterstock"},
		"year":  {"2022"}, "month": {"7"}, "day": {"15"},
		"photo": {"4"}, "video": {"2"}, "income": {"6.50"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("record entry status=%d", rr.Code)
	}

	rr = get(t, srv, "/reports/totals?year=2022&month=7")
	if rr.Code != http.StatusOK {
		t.Fatalf("totals report status=%d body=%s", rr.Code, rr.Body.String())
	}

	var totals struct {
		Header []string `json:"header"`
		core.Totals
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &totals); err != nil {
		t.Fatalf("totals report not JSON: %v", err)
	}
	if len(totals.Header) != 4 || totals.Header[0] != "Stock" {
		t.Errorf("unexpected header: %v", totals.Header)
	}
	if len(totals.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(totals.Rows))
	}
	// Rows are labeled by pseudo name, not the real stock name.
	if totals.Rows[0].Alias != "shutter" || totals.Rows[0].Photo != 4 {
		t.Errorf("first row = %+v", totals.Rows[0])
	}
	if totals.Rows[1].Alias != "adobe" || totals.Rows[1].Photo != 0 {
		t.Errorf("second row = %+v", totals.Rows[1])
	}
}

func TestServer_DiagramReport(t *testing.T) {
	srv := newTestServer(t)
	createStock(t, srv, "Shutterstock", "shutter")

	rr := get(t, srv, "/reports/diagram?year=2022&month=7")
	if rr.Code != http.StatusOK {
		t.Fatalf("diagram report status=%d body=%s", rr.Code, rr.Body.String())
	}

	var series core.Series
	if err := json.Unmarshal(rr.Body.Bytes(), &series); err != nil {
		t.Fatalf("diagram report not JSON: %v", err)
	}
	if len(series.Labels) != 1 || series.Labels[0] != "shutter" {
		t.Errorf("diagram labels = %v", series.Labels)
	}
}

func TestServer_ActingUserHeader(t *testing.T) {
	srv := newTestServer(t)

	// Stocks are scoped per user: alice's stock is invisible to bob.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stocks",
		strings.NewReader(url.Values{"name": {"Shutterstock"}, "pseudo_name": {"shutter"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-User", "alice")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create stock as alice: status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/stocks", nil)
	req.Header.Set("X-User", "bob")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list stocks as bob: status=%d", rr.Code)
	}
	var stocks []any
	if err := json.Unmarshal(rr.Body.Bytes(), &stocks); err != nil {
		t.Fatalf("stocks not JSON: %v", err)
	}
	if len(stocks) != 0 {
		t.Errorf("bob sees %d stocks, want 0", len(stocks))
	}
}

func TestServer_RateLimitsWrites(t *testing.T) {
	srv := newTestServer(t)

	var last int
	for i := 0; i < 65; i++ {
		rr := postForm(t, srv, "/days", url.Values{
			"year": {"2022"}, "month": {"7"}, "day": {"1"},
			"photo": {"1"}, "video": {"0"},
		})
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", last)
	}
}
