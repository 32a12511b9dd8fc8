package recognition

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

// ErrServiceUnavailable wraps transport-level failures (unreachable host,
// timeout, non-2xx status) so callers can distinguish them from an image in
// which nothing was recognized.
var ErrServiceUnavailable = errors.New("recognition service unavailable")

// GoogleVision implements the Recognizer interface against the Google Cloud
// Vision images:annotate REST endpoint.
type GoogleVision struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGoogleVision creates a new GoogleVision recognizer. baseURL is
// overridable for tests; the default is the public endpoint.
func NewGoogleVision(apiKey string, baseURL string) (*GoogleVision, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision api key is required")
	}
	if baseURL == "" {
		baseURL = "https://vision.googleapis.com/v1/images:annotate"
	}

	return &GoogleVision{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 45 * time.Second,
		},
	}, nil
}

type visionFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type visionImage struct {
	Content string `json:"content"`
}

type annotateRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionRequest struct {
	Requests []annotateRequest `json:"requests"`
}

type visionResponse struct {
	Responses []struct {
		LabelAnnotations           []LabelAnnotation  `json:"labelAnnotations"`
		LocalizedObjectAnnotations []ObjectAnnotation `json:"localizedObjectAnnotations"`
	} `json:"responses"`
}

// Annotate sends an image for label detection and object localization.
// The image is normalized to PNG first so HEIC photos and PDF receipts work.
// A response the service answered but with an unexpected or empty shape
// yields a zero Response, not an error.
func (g *GoogleVision) Annotate(ctx context.Context, imageData []byte, contentType string) (Response, error) {
	pngData, err := normalizeImage(imageData, contentType)
	if err != nil {
		return Response{}, err
	}

	reqBody := visionRequest{
		Requests: []annotateRequest{{
			Image: visionImage{Content: base64.StdEncoding.EncodeToString(pngData)},
			Features: []visionFeature{
				{Type: "LABEL_DETECTION", MaxResults: 15},
				{Type: "OBJECT_LOCALIZATION", MaxResults: 10},
			},
		}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", g.baseURL, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("%w: status %d: %s", ErrServiceUnavailable, resp.StatusCode, string(body))
	}

	var visionResp visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		// Malformed body from a 200 is treated as "nothing detected".
		return Response{}, nil
	}

	var result Response
	for _, r := range visionResp.Responses {
		result.Objects = append(result.Objects, r.LocalizedObjectAnnotations...)
		result.Labels = append(result.Labels, r.LabelAnnotations...)
	}
	return result, nil
}

// Close closes the recognizer (no-op for HTTP client).
func (g *GoogleVision) Close() error {
	return nil
}
