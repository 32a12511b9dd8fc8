package enrichment

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// dateExtractPrompt is the constrained instruction sent with each transcript.
// The format string takes the reference date and the transcript.
const dateExtractPrompt = `You are extracting a food expiry date from a spoken phrase.

The phrase was transcribed from speech and may contain recognition noise. It describes when a food item expires, either as an explicit date ("expires May 15th 2025") or relative to today ("best before six months from now").

Today's date is %s.

Reply with EXACTLY ONE token and nothing else:
- the expiry date in YYYY-MM-DD format, or
- the literal word null if the phrase contains no usable date.

Do not explain. Do not use markdown.

Phrase: %q`

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DateExtractor defines the interface for turning a transcript into a
// calendar date. An empty result with a nil error means "no date found",
// which is a valid outcome, not a failure.
type DateExtractor interface {
	ExtractDate(ctx context.Context, transcript string, referenceDate time.Time) (string, error)
	// Close closes the extractor and releases resources.
	Close() error
}

// Gemini implements the DateExtractor interface using Google Gemini.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini DateExtractor instance.
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// ExtractDate asks the model for a single date token and validates the reply.
func (g *Gemini) ExtractDate(ctx context.Context, transcript string, referenceDate time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(dateExtractPrompt, referenceDate.Format("2006-01-02"), transcript)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return parseDateReply(responseText.String()), nil
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// parseDateReply validates a model reply against the strict date pattern.
// Anything that is not a bare YYYY-MM-DD token, including the literal "null",
// yields an empty string meaning "no date found".
func parseDateReply(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	fields := strings.Fields(text)
	if len(fields) != 1 {
		return ""
	}
	token := strings.Trim(fields[0], `"'.`)
	if !datePattern.MatchString(token) {
		return ""
	}
	if _, err := time.Parse("2006-01-02", token); err != nil {
		return ""
	}
	return token
}
