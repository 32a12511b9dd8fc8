package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of an enrichment session.
type State string

const (
	StateIdle         State = "idle"
	StateCapturing    State = "capturing"
	StateTranscribing State = "transcribing"
	StateExtracting   State = "extracting"
	StateApplying     State = "applying"
	StateFailed       State = "failed"
)

// Outcome classifies how a completed session ended, so the UI can render
// "applied", "could not understand" and "processing failed" differently.
type Outcome string

const (
	// OutcomeApplied means a date was extracted and written to the store.
	OutcomeApplied Outcome = "applied"
	// OutcomeNoDate means a transcript was obtained but no date was found
	// in it; the store is untouched.
	OutcomeNoDate Outcome = "no-date"
	// OutcomeNoTranscript means the service answered but produced an empty
	// or whitespace-only transcript; the store is untouched.
	OutcomeNoTranscript Outcome = "no-transcript"
	// OutcomeCancelled means the session was stopped before applying.
	OutcomeCancelled Outcome = "cancelled"
)

// ErrCancelled is returned when a session is stopped while its pipeline is
// in flight.
var ErrCancelled = errors.New("enrichment session cancelled")

// transcriptionAttempts bounds the whole-pipeline retries for transport
// failures: one initial attempt plus two more.
const transcriptionAttempts = 3

// Store is the slice of the inventory the session needs: existence checks
// and the expiry write.
type Store interface {
	HasItem(name string) (bool, error)
	SetExpiry(name string, expiryDate string) error
}

// TimeSource provides the current time, used as the extraction reference
// date.
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Session is one voice-capture-to-expiry-update workflow bound to a single
// inventory record.
type Session struct {
	ID     string
	Target string

	state  State
	ctx    context.Context
	cancel context.CancelFunc
}

// Result is what a finished session produced.
type Result struct {
	SessionID  string  `json:"session_id"`
	Target     string  `json:"target"`
	Transcript string  `json:"transcript,omitempty"`
	ExpiryDate string  `json:"expiry_date,omitempty"`
	Outcome    Outcome `json:"outcome"`
}

// Manager runs enrichment sessions. At most one session is active at a time
// system-wide; starting a new one force-stops the prior one so two sessions
// can never write through shared transient state.
type Manager struct {
	transcriber Transcriber
	extractor   DateExtractor
	store       Store
	clock       TimeSource

	mu     sync.Mutex
	active *Session
}

// NewManager creates a Manager with the default clock.
func NewManager(transcriber Transcriber, extractor DateExtractor, store Store) *Manager {
	return NewManagerWithDeps(transcriber, extractor, store, &defaultTimeSource{})
}

// NewManagerWithDeps creates a Manager with a custom clock for testing.
func NewManagerWithDeps(transcriber Transcriber, extractor DateExtractor, store Store, clock TimeSource) *Manager {
	return &Manager{
		transcriber: transcriber,
		extractor:   extractor,
		store:       store,
		clock:       clock,
	}
}

// Start begins a capturing session for one inventory record. Any session
// already active is stopped first.
func (m *Manager) Start(target string) (*Session, error) {
	found, err := m.store.HasItem(target)
	if err != nil {
		return nil, fmt.Errorf("checking target record: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("no inventory record for %q", target)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		slog.Info("Force-stopping prior enrichment session",
			"session_id", m.active.ID,
			"target", m.active.Target,
		)
		m.stopLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	session := &Session{
		ID:     uuid.NewString(),
		Target: target,
		state:  StateCapturing,
		ctx:    ctx,
		cancel: cancel,
	}
	m.active = session

	slog.Info("Enrichment session started", "session_id", session.ID, "target", target)
	return session, nil
}

// Stop cancels the active session, releasing the capture and leaving the
// store unchanged. Stopping with no active session is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.active == nil {
		return
	}
	m.active.cancel()
	m.active.state = StateIdle
	m.active = nil
}

// Active returns the state of the active session, or StateIdle.
func (m *Manager) Active() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return StateIdle
	}
	return m.active.state
}

// Process runs the captured audio through transcription, date extraction and
// application. Errors are transport or persistence failures; every other
// non-success path is reported through the Result's Outcome with the store
// untouched.
//
// Transcription transport failures retry the pipeline as a unit up to two
// additional times, each attempt falling back once to the raw-bytes request
// shape. An obtained-but-unusable transcript is terminal and is not retried.
func (m *Manager) Process(session *Session, audioData []byte, contentType string) (*Result, error) {
	result := &Result{
		SessionID: session.ID,
		Target:    session.Target,
	}

	var transcript string
	var err error
	for attempt := 1; attempt <= transcriptionAttempts; attempt++ {
		m.setState(session, StateTranscribing)
		transcript, err = m.transcribeWithFallback(session.ctx, audioData, contentType)
		if err == nil {
			break
		}
		if session.ctx.Err() != nil {
			result.Outcome = OutcomeCancelled
			return result, ErrCancelled
		}
		if !errors.Is(err, ErrServiceUnavailable) || attempt == transcriptionAttempts {
			m.finish(session, StateFailed)
			return nil, fmt.Errorf("transcribing audio: %w", err)
		}
		slog.Warn("Transcription attempt failed, retrying",
			"session_id", session.ID,
			"attempt", attempt,
			"error", err,
		)
	}

	transcript = strings.TrimSpace(transcript)
	result.Transcript = transcript
	if transcript == "" {
		m.finish(session, StateFailed)
		result.Outcome = OutcomeNoTranscript
		return result, nil
	}

	m.setState(session, StateExtracting)
	expiryDate, err := m.extractor.ExtractDate(session.ctx, transcript, m.clock.Now())
	if err != nil {
		if session.ctx.Err() != nil {
			result.Outcome = OutcomeCancelled
			return result, ErrCancelled
		}
		m.finish(session, StateFailed)
		return nil, fmt.Errorf("extracting date: %w", err)
	}
	if expiryDate == "" {
		m.finish(session, StateFailed)
		result.Outcome = OutcomeNoDate
		return result, nil
	}

	if session.ctx.Err() != nil {
		result.Outcome = OutcomeCancelled
		return result, ErrCancelled
	}

	m.setState(session, StateApplying)
	if err := m.store.SetExpiry(session.Target, expiryDate); err != nil {
		m.finish(session, StateFailed)
		return nil, fmt.Errorf("applying expiry date: %w", err)
	}

	result.ExpiryDate = expiryDate
	result.Outcome = OutcomeApplied
	m.finish(session, StateIdle)

	slog.Info("Enrichment session applied",
		"session_id", session.ID,
		"target", session.Target,
		"expiry_date", expiryDate,
	)
	return result, nil
}

// transcribeWithFallback tries the primary request shape and falls back once
// to the raw-bytes upload against the same service.
func (m *Manager) transcribeWithFallback(ctx context.Context, audioData []byte, contentType string) (string, error) {
	transcript, err := m.transcriber.Transcribe(ctx, audioData, contentType)
	if err == nil {
		return transcript, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	slog.Warn("Primary transcription request failed, trying raw upload", "error", err)
	return m.transcriber.TranscribeRaw(ctx, audioData, contentType)
}

func (m *Manager) setState(session *Session, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.state = state
}

// finish records the terminal state and releases the active slot if this
// session still holds it.
func (m *Manager) finish(session *Session, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.state = state
	session.cancel()
	if m.active == session {
		m.active = nil
	}
}
