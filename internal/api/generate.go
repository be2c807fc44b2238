package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	http "github.com/bogdanfinn/fhttp"

	apierrors "github.com/asha/dude/internal/errors"
	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/stream"
)

// generateRequest is the body of a POST to /api/generateContent.
type generateRequest struct {
	Message     string              `json:"message"`
	History     []models.Message    `json:"history"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// GenerateContentStream opens the chunked response stream for one turn.
// The caller drains the returned source; its exhaustion marks end of turn.
//
// A non-success status or missing body fails immediately with a
// TransportError carrying the status and any response body text, before a
// single fragment is yielded.
func (c *Client) GenerateContentStream(ctx context.Context, message string, hist []models.Message, attachments []models.Attachment) (stream.Source, error) {
	if c.IsClosed() {
		return nil, fmt.Errorf("client is closed")
	}

	payload, err := json.Marshal(generateRequest{
		Message:     message,
		History:     hist,
		Attachments: attachments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request payload: %w", err)
	}

	endpoint := c.endpoint(models.PathGenerateContent)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.NewNetworkError("generate content", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := readErrorBody(resp.Body)
		_ = resp.Body.Close()
		return nil, apierrors.NewTransportError(resp.StatusCode, endpoint, body)
	}

	if resp.Body == nil {
		return nil, apierrors.NewTransportError(resp.StatusCode, endpoint, "missing response body")
	}

	return stream.NewDecoder(resp.Body), nil
}

// readErrorBody reads up to 4KB of a failed response for diagnostics.
func readErrorBody(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	return string(data)
}
