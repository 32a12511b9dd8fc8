package enrichment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrServiceUnavailable wraps transport-level transcription failures
// (unreachable host, timeout, non-2xx status). Only these are retried; a
// transcript the service produced but that turns out unusable is terminal.
var ErrServiceUnavailable = errors.New("transcription service unavailable")

// Transcriber defines the interface for speech-to-text providers.
// Transcribe is the primary request shape; TranscribeRaw is the secondary
// raw-bytes upload the session falls back to once when the primary fails.
type Transcriber interface {
	Transcribe(ctx context.Context, audioData []byte, contentType string) (string, error)
	TranscribeRaw(ctx context.Context, audioData []byte, contentType string) (string, error)
	// Close closes the transcriber and releases resources.
	Close() error
}

// SpeechHTTP implements the Transcriber interface against a speech
// recognition HTTP service. The primary shape is a JSON envelope with
// base64 audio; the fallback posts the audio bytes directly.
type SpeechHTTP struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewSpeechHTTP creates a new SpeechHTTP transcriber.
func NewSpeechHTTP(baseURL string, model string) (*SpeechHTTP, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("speech service url is required")
	}

	return &SpeechHTTP{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type speechRequest struct {
	Model       string `json:"model,omitempty"`
	Audio       string `json:"audio"`
	ContentType string `json:"content_type"`
}

type speechResponse struct {
	Transcript string `json:"transcript"`
}

// Transcribe sends the audio as a base64 JSON envelope.
func (s *SpeechHTTP) Transcribe(ctx context.Context, audioData []byte, contentType string) (string, error) {
	reqBody := speechRequest{
		Model:       s.model,
		Audio:       base64.StdEncoding.EncodeToString(audioData),
		ContentType: contentType,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/recognize", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return s.doRecognize(req)
}

// TranscribeRaw uploads the audio bytes directly, for services that reject
// the JSON envelope or when the primary request fails in transit.
func (s *SpeechHTTP) TranscribeRaw(ctx context.Context, audioData []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/v1/recognize/raw", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(audioData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	return s.doRecognize(req)
}

func (s *SpeechHTTP) doRecognize(req *http.Request) (string, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, string(body))
	}

	var speechResp speechResponse
	if err := json.NewDecoder(resp.Body).Decode(&speechResp); err != nil {
		// A malformed body is "no transcript", which the session treats
		// as a failed recognition rather than a transport error.
		return "", nil
	}
	return speechResp.Transcript, nil
}

// Close closes the transcriber (no-op for HTTP client).
func (s *SpeechHTTP) Close() error {
	return nil
}
