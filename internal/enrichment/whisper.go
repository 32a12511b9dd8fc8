package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultWhisperBaseURL = "https://api.openai.com/v1"

// Whisper implements the Transcriber interface using the OpenAI audio
// transcription API.
type Whisper struct {
	client     openai.Client
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewWhisper creates a new Whisper transcriber. baseURL is overridable for
// OpenAI-compatible services and for tests.
func NewWhisper(apiKey string, baseURL string) (*Whisper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if baseURL == "" {
		baseURL = defaultWhisperBaseURL
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)

	return &Whisper{
		client:  client,
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Transcribe runs the audio through the SDK's multipart upload.
func (w *Whisper) Transcribe(ctx context.Context, audioData []byte, contentType string) (string, error) {
	resp, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  openai.File(bytes.NewReader(audioData), audioFilename(contentType), contentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return resp.Text, nil
}

// TranscribeRaw bypasses the SDK and posts the multipart request itself, as
// a second chance when the SDK path fails in transit.
func (w *Whisper) TranscribeRaw(ctx context.Context, audioData []byte, contentType string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", string(openai.AudioModelWhisper1)); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	part, err := mw.CreateFormFile("file", audioFilename(contentType))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	url := fmt.Sprintf("%s/audio/transcriptions", w.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, string(respBody))
	}

	var transcription struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&transcription); err != nil {
		return "", nil
	}
	return transcription.Text, nil
}

// Close closes the transcriber (no-op for HTTP client).
func (w *Whisper) Close() error {
	return nil
}

func audioFilename(contentType string) string {
	switch contentType {
	case "audio/mpeg", "audio/mp3":
		return "audio.mp3"
	case "audio/mp4", "audio/m4a":
		return "audio.m4a"
	case "audio/ogg":
		return "audio.ogg"
	case "audio/webm":
		return "audio.webm"
	default:
		return "audio.wav"
	}
}
