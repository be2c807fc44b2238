package chat

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/asha/dude/internal/history"
	"github.com/asha/dude/internal/logging"
	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/stream"
	"github.com/asha/dude/internal/voice"

	apierrors "github.com/asha/dude/internal/errors"
)

// Generator is the backend surface the pipeline drives.
type Generator interface {
	// GenerateContentStream opens the response stream for one user turn.
	GenerateContentStream(ctx context.Context, message string, hist []models.Message, attachments []models.Attachment) (stream.Source, error)
	// GenerateTitle produces a short title for a first message.
	GenerateTitle(ctx context.Context, message string) (string, error)
}

// Pipeline orchestrates one user turn: request construction, stream
// decoding, fragment folding and conversation persistence. Only one send
// may be in flight; while sending, new-chat, select and delete are
// rejected.
type Pipeline struct {
	client  Generator
	store   *history.Store
	drafts  *history.Drafts
	speaker voice.Speaker

	// VoiceOutput controls whether a completed reply is spoken.
	VoiceOutput bool
	// OnSpeechEnd runs after voice output finishes, e.g. to re-arm capture.
	OnSpeechEnd func()

	mu      sync.Mutex
	sending bool
	lastErr error
}

// NewPipeline wires a pipeline. speaker may be nil.
func NewPipeline(client Generator, store *history.Store, drafts *history.Drafts, speaker voice.Speaker) *Pipeline {
	return &Pipeline{
		client:  client,
		store:   store,
		drafts:  drafts,
		speaker: speaker,
	}
}

// Sending reports whether a send is in flight.
func (p *Pipeline) Sending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sending
}

// LastError returns the error from the most recent send, or nil.
func (p *Pipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// NewChat creates and activates a fresh conversation. Rejected while a send
// is in flight.
func (p *Pipeline) NewChat() (*models.Conversation, error) {
	if p.Sending() {
		return nil, apierrors.ErrSendInFlight
	}
	return p.store.Create()
}

// Select activates a conversation. Rejected (silently, like unknown ids)
// while a send is in flight.
func (p *Pipeline) Select(id string) bool {
	if p.Sending() {
		return false
	}
	return p.store.Select(id)
}

// Delete removes a conversation and its draft. Rejected while a send is in
// flight.
func (p *Pipeline) Delete(id string) error {
	if p.Sending() {
		return apierrors.ErrSendInFlight
	}
	return p.store.Delete(id)
}

// Send runs one user turn to completion. onUpdate, if non-nil, fires after
// every persisted snapshot so observers can re-render incrementally.
//
// Submissions with empty trimmed text and no attachments are rejected with
// no state change. On any mid-stream failure the placeholder message is
// finalized with the user-facing apology text and the sending flag is
// cleared; Send never leaves the pipeline stuck in the sending state.
func (p *Pipeline) Send(ctx context.Context, text string, attachments []models.Attachment, onUpdate func()) error {
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return apierrors.ErrEmptySubmit
	}

	p.mu.Lock()
	if p.sending {
		p.mu.Unlock()
		return apierrors.ErrSendInFlight
	}
	p.sending = true
	p.lastErr = nil
	p.mu.Unlock()

	err := p.send(ctx, text, attachments, onUpdate)

	p.mu.Lock()
	p.sending = false
	p.lastErr = err
	p.mu.Unlock()

	return err
}

func (p *Pipeline) send(ctx context.Context, text string, attachments []models.Attachment, onUpdate func()) error {
	notify := func() {
		if onUpdate != nil {
			onUpdate()
		}
	}

	convo := p.store.Active()
	if convo == nil {
		created, err := p.store.Create()
		if err != nil {
			return err
		}
		convo = created
	}
	convoID := convo.ID

	// History for the request excludes the seed greeting and is captured
	// before this turn's messages are appended.
	hist := requestHistory(convo.Messages)
	firstExchange := !convo.HasRealExchange()

	userMsg := models.Message{
		ID:          models.NewMessageID(),
		Sender:      models.SenderUser,
		Text:        text,
		Attachments: attachments,
	}
	placeholder := models.Message{
		ID:     models.NewMessageID(),
		Sender: models.SenderAssistant,
	}

	if err := p.store.AppendMessages(convoID, userMsg, placeholder); err != nil {
		return p.finalize(convoID, placeholder, err)
	}
	notify()

	// The draft is spent the moment the turn is committed.
	if p.drafts != nil {
		_ = p.drafts.Clear(convoID)
	}

	if firstExchange {
		go p.generateTitle(convoID, text, notify)
	}

	source, err := p.client.GenerateContentStream(ctx, text, hist, attachments)
	if err != nil {
		return p.finalize(convoID, placeholder, err)
	}

	snapshot := placeholder
	for {
		frag, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.finalize(convoID, snapshot, err)
		}
		if frag.IsEmpty() {
			continue
		}

		snapshot = Fold(snapshot, *frag)
		if err := p.store.UpdateMessage(convoID, snapshot); err != nil {
			return p.finalize(convoID, snapshot, err)
		}
		notify()
	}

	p.speakReply(snapshot.Text)
	return nil
}

// requestHistory strips the seed greeting from the outgoing history.
func requestHistory(messages []models.Message) []models.Message {
	hist := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if m.ID == models.SeedMessageID {
			continue
		}
		hist = append(hist, m)
	}
	return hist
}

// finalize stamps the placeholder with the apology text and reports err.
// A failure to persist the finalized message is logged, not returned, so
// the original error is what surfaces.
func (p *Pipeline) finalize(convoID string, snapshot models.Message, err error) error {
	snapshot.Text = models.ErrorReplyText
	if updateErr := p.store.UpdateMessage(convoID, snapshot); updateErr != nil {
		logging.Get().Error("failed to finalize placeholder: %v", updateErr)
	}
	return err
}

// generateTitle asks the backend for a short title and patches it in; it
// runs off the send path and falls back to the default title on failure.
func (p *Pipeline) generateTitle(convoID, text string, notify func()) {
	prompt := text
	if strings.TrimSpace(prompt) == "" {
		prompt = "Image Analysis"
	}

	title, err := p.client.GenerateTitle(context.Background(), prompt)
	if err != nil || strings.TrimSpace(title) == "" {
		title = models.DefaultTitle
	}

	if err := p.store.Rename(convoID, title); err != nil {
		logging.Get().Error("failed to set generated title: %v", err)
		return
	}
	notify()
}

func (p *Pipeline) speakReply(text string) {
	if !p.VoiceOutput || p.speaker == nil || !p.speaker.Supported() || text == "" {
		return
	}
	p.speaker.Speak(text, p.OnSpeechEnd)
}
