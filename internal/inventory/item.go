package inventory

import "time"

// Item is one inventory record, keyed by its canonical name. Quantity counts
// physical units; Confidence is the arithmetic mean of the confidences that
// contributed to the most recent accepted merge batch, not a running average.
type Item struct {
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	Category     string    `json:"category"`
	Confidence   float64   `json:"confidence"`
	LastDetected time.Time `json:"last_detected"`
	PurchaseDate string    `json:"purchase_date"`         // YYYY-MM-DD
	ExpiryDate   string    `json:"expiry_date,omitempty"` // YYYY-MM-DD, empty when unknown
	Weight       string    `json:"weight,omitempty"`      // e.g. "500g", empty when unknown
}

// Summary is the read model the UI consumes: the live records plus totals
// and a per-category unit count.
type Summary struct {
	Items       map[string]*Item `json:"items"`
	TotalUnits  int              `json:"total_items"`
	UniqueItems int              `json:"unique_items"`
	Categories  map[string]int   `json:"categories"`
}

// HistoryEntry records one accepted merge for the detection history feed.
type HistoryEntry struct {
	Item       string    `json:"item"`
	Count      int       `json:"count"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}
