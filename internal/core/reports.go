package core

// Series is a positionally aligned report projection: element i of
// every slice describes the same day, month, or stock, depending on
// which report produced it.
type Series struct {
	Photo  []int     `json:"photo"`
	Video  []int     `json:"video"`
	Income []float64 `json:"income"`
	Labels []string  `json:"labels"`
}

// TotalsRow is one line of the cross-stock totals table.
type TotalsRow struct {
	Alias  string  `json:"alias"`
	Photo  int     `json:"photo"`
	Video  int     `json:"video"`
	Income float64 `json:"income"`
}

// Totals is the totals table plus the same sums as flat arrays for
// charting.
type Totals struct {
	Rows []TotalsRow `json:"rows"`
	Series
}

// TotalsHeader is the fixed header row of the totals table.
var TotalsHeader = []string{"Stock", "Photo", "Video", "Income"}
