package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"pantryscan/internal/recognition"
)

var (
	// ErrNotFound is returned for operations on an item that is not in the
	// inventory.
	ErrNotFound = errors.New("item not found")
	// ErrInsufficient is returned when a consume request exceeds the stored
	// quantity.
	ErrInsufficient = errors.New("insufficient quantity")
	// ErrInvalidDate is returned for expiry dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid expiry date")
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ScanResult is what one image scan produced.
type ScanResult struct {
	ItemsAdded int                     `json:"items_added"`
	Detections []recognition.Detection `json:"detections"`
	Message    string                  `json:"message"`
}

// Service owns the inventory collection. All mutations go through it and are
// serialized behind one mutex: the merge path is read-modify-write and an
// enrichment application must not interleave with it.
type Service struct {
	mu         sync.Mutex
	db         DB
	recognizer recognition.Recognizer
	merger     *Merger
}

// NewService creates a Service with the default clock and cooldown window.
func NewService(db DB, recognizer recognition.Recognizer) *Service {
	return NewServiceWithDeps(db, recognizer, nil, DefaultCooldown)
}

// NewServiceWithDeps creates a Service with a custom clock and cooldown for
// testing; a nil clock means wall time.
func NewServiceWithDeps(db DB, recognizer recognition.Recognizer, clock TimeSource, cooldown time.Duration) *Service {
	return &Service{
		db:         db,
		recognizer: recognizer,
		merger:     NewMerger(clock, cooldown),
	}
}

// ScanImage runs one image through recognition, aggregation and the
// cooldown-gated merge, persists the collection, and reports what was added.
// An image in which nothing was recognized is a successful scan with zero
// items, not an error; a recognition transport failure surfaces as an error
// wrapping recognition.ErrServiceUnavailable and mutates nothing.
func (s *Service) ScanImage(ctx context.Context, imageData []byte, contentType string) (*ScanResult, error) {
	resp, err := s.recognizer.Annotate(ctx, imageData, contentType)
	if err != nil {
		return nil, fmt.Errorf("annotating image: %w", err)
	}

	detections := recognition.Aggregate(resp)
	if len(detections) == 0 {
		return &ScanResult{
			Detections: []recognition.Detection{},
			Message:    "No items detected.",
		}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.db.Load()
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}

	result := s.merger.Merge(items, detections)
	if result.Added > 0 {
		if err := s.db.Save(items); err != nil {
			// The mutated collection is discarded; the stored state and
			// the cooldown table are unchanged.
			return nil, fmt.Errorf("saving inventory: %w", err)
		}
		s.merger.Commit(result)
	}

	slog.Info("Image scan merged",
		"detections", len(detections),
		"units_added", result.Added,
	)

	return &ScanResult{
		ItemsAdded: result.Added,
		Detections: detections,
		Message:    fmt.Sprintf("Processed image. Detected %d item(s), added %d unit(s).", len(detections), result.Added),
	}, nil
}

// Inventory returns the live records with totals and per-category counts.
func (s *Service) Inventory() (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.db.Load()
	if err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}

	summary := &Summary{
		Items:      make(map[string]*Item),
		Categories: make(map[string]int),
	}
	for name, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		summary.Items[name] = item
		summary.TotalUnits += item.Quantity
		summary.UniqueItems++
		summary.Categories[item.Category] += item.Quantity
	}
	return summary, nil
}

// History returns the recent accepted merges.
func (s *Service) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merger.History()
}

// HasItem reports whether a record exists for the given canonical name.
func (s *Service) HasItem(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.db.Load()
	if err != nil {
		return false, fmt.Errorf("loading inventory: %w", err)
	}
	item, ok := items[name]
	return ok && item.Quantity > 0, nil
}

// Consume removes count units of an item; the record is deleted when its
// quantity reaches zero.
func (s *Service) Consume(name string, count int) error {
	if count < 1 {
		count = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.db.Load()
	if err != nil {
		return fmt.Errorf("loading inventory: %w", err)
	}

	item, ok := items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if item.Quantity < count {
		return fmt.Errorf("%w: %s has %d", ErrInsufficient, name, item.Quantity)
	}

	item.Quantity -= count
	if item.Quantity == 0 {
		delete(items, name)
	}
	if err := s.db.Save(items); err != nil {
		return fmt.Errorf("saving inventory: %w", err)
	}
	return nil
}

// SetExpiry records an expiry date for an item. The voice enrichment session
// and the manual entry endpoint are the only callers; the image pipeline
// never sets expiry dates.
func (s *Service) SetExpiry(name string, expiryDate string) error {
	if !datePattern.MatchString(expiryDate) {
		return fmt.Errorf("%w: %q", ErrInvalidDate, expiryDate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.db.Load()
	if err != nil {
		return fmt.Errorf("loading inventory: %w", err)
	}

	item, ok := items[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	item.ExpiryDate = expiryDate
	if err := s.db.Save(items); err != nil {
		return fmt.Errorf("saving inventory: %w", err)
	}

	slog.Info("Expiry date applied", "item", name, "expiry_date", expiryDate)
	return nil
}

// Clear removes every record and resets the cooldown table and history.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Save(make(map[string]*Item)); err != nil {
		return fmt.Errorf("saving inventory: %w", err)
	}
	s.merger.Reset()
	return nil
}
