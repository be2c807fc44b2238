// Package server implements the thin proxy that fronts the generative API:
// it accepts chat requests from the client and streams newline-delimited
// JSON fragments back.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/asha/dude/internal/logging"
	"github.com/asha/dude/internal/models"
)

// Upstream is the generative backend the proxy forwards to.
type Upstream interface {
	// StreamGenerate opens the upstream stream for one turn and returns its
	// raw SSE body.
	StreamGenerate(ctx context.Context, message string, hist []models.Message, attachments []models.Attachment) (io.ReadCloser, error)
	// GenerateText runs a single non-streaming prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateImage produces one image and returns it base64-encoded.
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Server wraps the HTTP handlers for the proxy API.
type Server struct {
	upstream Upstream
}

// New creates a new Server instance.
func New(upstream Upstream) *Server {
	return &Server{upstream: upstream}
}

// Register wires the API routes onto the supplied mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc(models.PathGenerateContent, s.withCORS(s.handleGenerateContent))
	mux.HandleFunc(models.PathGenerateTitle, s.withCORS(s.handleGenerateTitle))
	mux.HandleFunc(models.PathGenerateAvatar, s.withCORS(s.handleGenerateAvatar))
}

// withCORS answers preflight requests and stamps CORS headers.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

type generateContentRequest struct {
	Message     string              `json:"message"`
	History     []models.Message    `json:"history"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// handleGenerateContent forwards one turn upstream and relays the reply as
// one JSON fragment per line. Once streaming has begun, upstream failures
// can only end the stream; the status line is already on the wire.
func (s *Server) handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	var req generateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		http.Error(w, "message or attachments required", http.StatusBadRequest)
		return
	}

	body, err := s.upstream.StreamGenerate(r.Context(), req.Message, req.History, req.Attachments)
	if err != nil {
		logging.Get().Error("upstream stream failed: %v", err)
		writeJSONError(w, http.StatusBadGateway, "Apologies, I encountered an issue.")
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Transfer-Encoding", "chunked")

	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)

	relay := newUpstreamReader(body)
	for {
		frag, err := relay.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			logging.Get().Error("upstream read failed mid-stream: %v", err)
			return
		}
		if frag.IsEmpty() {
			continue
		}
		if err := encoder.Encode(frag); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (s *Server) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	prompt := fmt.Sprintf("Generate a short, concise title (4 words max) for the following user query: %q", req.Message)
	title, err := s.upstream.GenerateText(r.Context(), prompt)
	if err != nil {
		// Title failures are recovered with the default; the client never
		// sees them as errors.
		logging.Get().Error("title generation failed: %v", err)
		writeJSON(w, map[string]string{"title": models.DefaultTitle})
		return
	}

	title = strings.TrimSpace(strings.ReplaceAll(title, `"`, ""))
	if title == "" {
		title = models.DefaultTitle
	}
	writeJSON(w, map[string]string{"title": title})
}

const avatarPrompt = "A minimalist and friendly abstract logo for an AI assistant. " +
	"Geometric shapes, calming blue and purple gradient, clean lines, vector art, on a pure white background."

func (s *Server) handleGenerateAvatar(w http.ResponseWriter, r *http.Request) {
	image, err := s.upstream.GenerateImage(r.Context(), avatarPrompt)
	if err != nil {
		logging.Get().Error("avatar generation failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "Could not generate a new avatar at the moment.")
		return
	}
	writeJSON(w, map[string]string{"imageDataUrl": "data:image/png;base64," + image})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
