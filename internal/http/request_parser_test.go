package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParseDateParams(t *testing.T) {
	tests := []struct {
		name      string
		formData  url.Values
		wantYear  bool // if true, check that year is non-zero
		wantMonth int
		wantDay   int
	}{
		{
			name:      "all values provided",
			formData:  url.Values{"year": {"2022"}, "month": {"6"}, "day": {"15"}},
			wantYear:  true,
			wantMonth: 6,
			wantDay:   15,
		},
		{
			name:      "only month and day",
			formData:  url.Values{"month": {"3"}, "day": {"20"}},
			wantYear:  true, // should use current year
			wantMonth: 3,
			wantDay:   20,
		},
		{
			name:      "empty form uses defaults",
			formData:  url.Values{},
			wantYear:  true,
			wantMonth: 0, // 0 means check it's current month
			wantDay:   0, // 0 means check it's current day
		},
		{
			name:      "invalid values are ignored",
			formData:  url.Values{"month": {"abc"}, "day": {"xyz"}},
			wantYear:  true,
			wantMonth: 0,
			wantDay:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseDateParams(tt.formData)

			if tt.wantYear && result.Year == 0 {
				t.Error("Year should not be zero")
			}

			if tt.wantMonth != 0 && result.Month != tt.wantMonth {
				t.Errorf("Month = %d, want %d", result.Month, tt.wantMonth)
			}

			if tt.wantDay != 0 && result.Day != tt.wantDay {
				t.Errorf("Day = %d, want %d", result.Day, tt.wantDay)
			}
		})
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	body := "stock=shutterstock&photo=4&video=2&income=6.50"
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if p.IsJSON() {
		t.Error("form body misdetected as JSON")
	}
	if got := p.Get("stock"); got != "shutterstock" {
		t.Errorf("Get(stock) = %q", got)
	}
	if got := p.GetInt("photo", 0); got != 4 {
		t.Errorf("GetInt(photo) = %d, want 4", got)
	}
	if got := p.GetFloat("income", 0); got != 6.50 {
		t.Errorf("GetFloat(income) = %v, want 6.50", got)
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"stock":"adobe","photo":3,"income":1.25}`
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !p.IsJSON() {
		t.Error("JSON body not detected")
	}
	if got := p.Get("stock"); got != "adobe" {
		t.Errorf("Get(stock) = %q", got)
	}
	if got := p.GetInt("photo", 0); got != 3 {
		t.Errorf("GetInt(photo) = %d, want 3", got)
	}
	if got := p.GetFloat("income", 0); got != 1.25 {
		t.Errorf("GetFloat(income) = %v, want 1.25", got)
	}
}

func TestRequestBodyParser_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(""))

	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := p.GetInt("photo", 7); got != 7 {
		t.Errorf("GetInt default = %d, want 7", got)
	}
	if got := p.GetFloat("income", 2.5); got != 2.5 {
		t.Errorf("GetFloat default = %v, want 2.5", got)
	}
}

func TestRequireMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stocks", nil)

	if resp := RequireMethod(req, http.MethodGet); resp != nil {
		t.Error("expected nil for matching method")
	}
	if resp := RequirePOST(req); resp == nil {
		t.Error("expected error response for wrong method")
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"with\x00control\x1fchars", "withcontrolchars"},
		{"keeps\ttabs and\nnewlines\r", "keeps\ttabs and\nnewlines\r"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
