package inventory

import (
	"time"

	"pantryscan/internal/recognition"
)

// DefaultCooldown is the minimum time between accepted merges of one
// identity. A single physical scan can yield the same identity from both the
// localization and label passes across rapid repeated calls, and must not be
// double-counted.
const DefaultCooldown = 2 * time.Second

// historyLimit caps the detection history feed.
const historyLimit = 100

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Merger applies detection batches to an inventory collection, gating each
// identity behind a cooldown window. It holds only transient state (cooldown
// timestamps and the history feed); the records themselves live in the
// collection passed to Merge.
type Merger struct {
	clock    TimeSource
	cooldown time.Duration

	lastAccepted map[string]time.Time
	history      []HistoryEntry
}

// NewMerger creates a Merger with the given cooldown window.
func NewMerger(clock TimeSource, cooldown time.Duration) *Merger {
	if clock == nil {
		clock = &defaultTimeSource{}
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Merger{
		clock:        clock,
		cooldown:     cooldown,
		lastAccepted: make(map[string]time.Time),
	}
}

// MergeResult is the staged outcome of one batch. Cooldown refreshes and
// history entries are not visible until Commit, so a failed persist leaves
// the merger ready to accept the same batch again.
type MergeResult struct {
	Added    int
	accepted map[string]time.Time
	entries  []HistoryEntry
}

// Merge applies a batch of detections to the collection in place and returns
// the staged result. Detections for the same identity are grouped first:
// their counts sum and their confidences average, so the stored confidence is
// the fresh per-batch mean, replacing any prior value. Identities inside the
// cooldown window are skipped entirely, updating neither quantity nor
// confidence.
func (m *Merger) Merge(items map[string]*Item, detections []recognition.Detection) *MergeResult {
	now := m.clock.Now()
	result := &MergeResult{
		accepted: make(map[string]time.Time),
	}

	// Group per identity before gating; the aggregator already de-duplicates
	// within one response, but merge callers may batch several responses.
	type group struct {
		count       int
		confidences []float64
		category    string
	}
	groups := make(map[string]*group)
	order := make([]string, 0, len(detections))
	for _, d := range detections {
		g, ok := groups[d.Name]
		if !ok {
			g = &group{category: d.Category}
			groups[d.Name] = g
			order = append(order, d.Name)
		}
		g.count += d.Count
		g.confidences = append(g.confidences, d.Confidence)
	}

	for _, name := range order {
		g := groups[name]
		if last, ok := m.lastAccepted[name]; ok && now.Sub(last) < m.cooldown {
			continue
		}

		var sum float64
		for _, c := range g.confidences {
			sum += c
		}
		avgConfidence := sum / float64(len(g.confidences))

		item, exists := items[name]
		if !exists {
			item = &Item{
				Name:         name,
				Category:     g.category,
				PurchaseDate: now.Format("2006-01-02"),
			}
			items[name] = item
		}
		item.Quantity += g.count
		item.Confidence = avgConfidence
		item.LastDetected = now

		result.Added += g.count
		result.accepted[name] = now
		result.entries = append(result.entries, HistoryEntry{
			Item:       name,
			Count:      g.count,
			Confidence: avgConfidence,
			Timestamp:  now,
		})
	}

	return result
}

// Commit makes a merge result's cooldown refreshes and history entries
// effective. Call it only after the mutated collection has been persisted.
func (m *Merger) Commit(result *MergeResult) {
	for name, at := range result.accepted {
		m.lastAccepted[name] = at
	}
	m.history = append(m.history, result.entries...)
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
}

// History returns the recent accepted merges, oldest first.
func (m *Merger) History() []HistoryEntry {
	out := make([]HistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}

// Reset clears the cooldown table and history, used when the inventory is
// cleared.
func (m *Merger) Reset() {
	m.lastAccepted = make(map[string]time.Time)
	m.history = nil
}
