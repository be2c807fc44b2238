package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	http "github.com/bogdanfinn/fhttp"

	apierrors "github.com/asha/dude/internal/errors"
	"github.com/asha/dude/internal/models"
)

// GenerateTitle asks the proxy for a short conversation title. Callers
// treat any failure as recoverable and fall back to the default title.
func (c *Client) GenerateTitle(ctx context.Context, message string) (string, error) {
	var out struct {
		Title string `json:"title"`
	}
	if err := c.postJSON(ctx, models.PathGenerateTitle, map[string]string{"message": message}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Title) == "" {
		return models.DefaultTitle, nil
	}
	return out.Title, nil
}

// GenerateAvatar asks the proxy for a fresh avatar and returns it as a data
// URL.
func (c *Client) GenerateAvatar(ctx context.Context) (string, error) {
	var out struct {
		ImageDataURL string `json:"imageDataUrl"`
	}
	if err := c.postJSON(ctx, models.PathGenerateAvatar, nil, &out); err != nil {
		return "", apierrors.NewAvatarError(err.Error())
	}
	if out.ImageDataURL == "" {
		return "", apierrors.NewAvatarError("no image was generated")
	}
	return out.ImageDataURL, nil
}

// postJSON posts a JSON body and decodes a JSON response.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	if c.IsClosed() {
		return fmt.Errorf("client is closed")
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	endpoint := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierrors.NewNetworkError("post "+path, endpoint, err)
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierrors.NewTransportError(resp.StatusCode, endpoint, readErrorBody(resp.Body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
