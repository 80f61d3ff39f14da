// Package genai talks to the generative backend and turns its free-form
// output into the structured pair of video prompts the rest of the system
// works with.
//
// This file implements the HTTP client for Google's Gemini generateContent
// API. The client performs exactly one bounded attempt per call: admission
// control upstream has already decided the request deserves a (billed)
// backend call, so retrying here would multiply cost without consent. A
// stalled upstream is cut off by the configured deadline.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the generative-backend contract consumed by the service layer.
// Implementations must be safe for concurrent use.
type Client interface {
	// Generate sends one instruction (plus an optional inline JPEG) to the
	// backend and returns its raw free-form text. The call is bounded by the
	// client's deadline; callers may tighten it further via ctx.
	Generate(ctx context.Context, instruction string, imageJPEG []byte) (string, error)
}

// HTTPError carries a non-2xx backend response. The body is retained for
// logging; handlers must never forward it to clients.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

// GeminiClient calls the Gemini REST API over net/http.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewGeminiClient constructs a client for the given endpoint and model.
// timeout bounds a single Generate call end to end.
func NewGeminiClient(apiKey, baseURL, model string, timeout time.Duration) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &GeminiClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// --- wire types (request) ---

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

// --- wire types (response) ---

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate implements Client. It issues a single POST to
// {base}/v1beta/models/{model}:generateContent and concatenates the text
// parts of the first candidate. An empty concatenation is treated as a
// failure: the backend answered, but with nothing usable.
func (c *GeminiClient) Generate(ctx context.Context, instruction string, imageJPEG []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := []part{{Text: instruction}}
	if len(imageJPEG) > 0 {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: "image/jpeg",
			Data:     base64.StdEncoding.EncodeToString(imageJPEG),
		}})
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(generateContentRequest{
		Contents: []content{{Parts: parts}},
	}); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out generateContentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("gemini decode response: %w", err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini response contained no candidates")
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini response contained no text")
	}
	return text, nil
}
