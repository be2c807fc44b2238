package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/tidwall/gjson"

	"github.com/asha/dude/internal/errors"
	"github.com/asha/dude/internal/models"
)

const (
	defaultAPIBase = "https://generativelanguage.googleapis.com/v1beta"
	chatModel      = "gemini-2.5-flash"
	imageModel     = "imagen-3.0-generate-002"

	toolCreateMindMap = "createMindMap"
	toolScheduleEvent = "scheduleEvent"
)

// systemPersona is the assistant's standing instruction for every chat turn.
const systemPersona = "You are 'Dude', a personal assistant for Asha. " +
	"You are warm, witty, and helpful. Keep your answers concise and friendly. " +
	"Use Google Search to ground answers about recent events. " +
	"When Asha asks you to brainstorm or organize ideas, call createMindMap. " +
	"When Asha asks you to plan or schedule something, call scheduleEvent."

// GeminiUpstream talks to the Google generative language REST API.
type GeminiUpstream struct {
	httpClient tls_client.HttpClient
	apiBase    string
	apiKey     string
}

// UpstreamOption configures the GeminiUpstream.
type UpstreamOption func(*GeminiUpstream)

// WithAPIBase overrides the API base URL, mainly for tests.
func WithAPIBase(base string) UpstreamOption {
	return func(u *GeminiUpstream) {
		u.apiBase = base
	}
}

// NewGeminiUpstream creates an upstream client authenticated with the given
// API key.
func NewGeminiUpstream(apiKey string, opts ...UpstreamOption) (*GeminiUpstream, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	clientOpts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(300),
		tls_client.WithClientProfile(profiles.Chrome_120),
	}
	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	up := &GeminiUpstream{
		httpClient: httpClient,
		apiBase:    defaultAPIBase,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(up)
	}
	return up, nil
}

// StreamGenerate opens the SSE stream for one chat turn.
func (u *GeminiUpstream) StreamGenerate(ctx context.Context, message string, hist []models.Message, attachments []models.Attachment) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", u.apiBase, chatModel, u.apiKey)

	resp, err := u.post(ctx, url, chatPayload(message, hist, attachments))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// GenerateText runs a single non-streaming prompt, without tools.
func (u *GeminiUpstream) GenerateText(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", u.apiBase, chatModel, u.apiKey)

	payload := map[string]any{
		"contents": []any{
			map[string]any{
				"role":  "user",
				"parts": []any{map[string]any{"text": prompt}},
			},
		},
	}
	body, err := u.postAndRead(ctx, url, payload)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "candidates.0.content.parts.0.text").String(), nil
}

// GenerateImage produces one image and returns its base64 payload.
func (u *GeminiUpstream) GenerateImage(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:predict?key=%s", u.apiBase, imageModel, u.apiKey)

	payload := map[string]any{
		"instances":  []any{map[string]any{"prompt": prompt}},
		"parameters": map[string]any{"sampleCount": 1, "aspectRatio": "1:1"},
	}
	body, err := u.postAndRead(ctx, url, payload)
	if err != nil {
		return "", err
	}
	image := gjson.GetBytes(body, "predictions.0.bytesBase64Encoded").String()
	if image == "" {
		return "", fmt.Errorf("upstream returned no image data")
	}
	return image, nil
}

func (u *GeminiUpstream) post(ctx context.Context, url string, payload any) (*fhttp.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := fhttp.NewRequestWithContext(ctx, fhttp.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError("upstream request", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.NewTransportError(resp.StatusCode, url, string(body))
	}
	return resp, nil
}

func (u *GeminiUpstream) postAndRead(ctx context.Context, url string, payload any) ([]byte, error) {
	resp, err := u.post(ctx, url, payload)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// chatPayload assembles the upstream request for one turn: prior history,
// the new message with its attachments, the persona, and the tool surface.
func chatPayload(message string, hist []models.Message, attachments []models.Attachment) map[string]any {
	contents := make([]any, 0, len(hist)+1)
	for _, msg := range hist {
		role := "user"
		if msg.Sender == models.SenderAssistant {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []any{map[string]any{"text": msg.Text}},
		})
	}

	parts := make([]any, 0, len(attachments)+1)
	for _, att := range attachments {
		parts = append(parts, map[string]any{
			"inlineData": map[string]any{
				"mimeType": att.MimeType,
				"data":     att.Data,
			},
		})
	}
	if message != "" {
		parts = append(parts, map[string]any{"text": message})
	}
	contents = append(contents, map[string]any{"role": "user", "parts": parts})

	return map[string]any{
		"contents": contents,
		"systemInstruction": map[string]any{
			"parts": []any{map[string]any{"text": systemPersona}},
		},
		"tools": []any{
			map[string]any{"googleSearch": map[string]any{}},
			map[string]any{"functionDeclarations": toolDeclarations()},
		},
	}
}

func toolDeclarations() []any {
	mindMapNode := map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"title": map[string]any{"type": "STRING"},
			"children": map[string]any{
				"type":  "ARRAY",
				"items": map[string]any{"type": "OBJECT"},
			},
		},
		"required": []string{"title"},
	}

	return []any{
		map[string]any{
			"name":        toolCreateMindMap,
			"description": "Create a mind map that organizes ideas around a central topic.",
			"parameters": map[string]any{
				"type":       "OBJECT",
				"properties": map[string]any{"root": mindMapNode},
				"required":   []string{"root"},
			},
		},
		map[string]any{
			"name":        toolScheduleEvent,
			"description": "Schedule a calendar event at a specific time.",
			"parameters": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"title":           map[string]any{"type": "STRING"},
					"startTime":       map[string]any{"type": "STRING", "description": "ISO 8601 start time"},
					"durationMinutes": map[string]any{"type": "NUMBER"},
				},
				"required": []string{"title", "startTime", "durationMinutes"},
			},
		},
	}
}

// parseEventTime accepts the ISO 8601 timestamps the model emits.
func parseEventTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
