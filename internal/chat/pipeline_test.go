package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/asha/dude/internal/api"
	apierrors "github.com/asha/dude/internal/errors"
	"github.com/asha/dude/internal/history"
	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/storage"
	"github.com/asha/dude/internal/stream"
)

func newTestPipeline(t *testing.T, mock *api.MockClient) (*Pipeline, *history.Store, *storage.MemStore) {
	t.Helper()

	kv := storage.NewMemStore()
	store, err := history.NewStore(kv)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	drafts := history.NewDrafts(kv)
	return NewPipeline(mock, store, drafts, nil), store, kv
}

func textFragments(texts ...string) []models.Fragment {
	frags := make([]models.Fragment, len(texts))
	for i, text := range texts {
		frags[i] = models.Fragment{Text: text}
	}
	return frags
}

func TestSendRejectsEmptySubmission(t *testing.T) {
	mock := &api.MockClient{}
	p, store, kv := newTestPipeline(t, mock)

	before, _ := kv.Get(models.KeyConversations)

	for _, input := range []string{"", "   ", "\n\t"} {
		if err := p.Send(context.Background(), input, nil, nil); !errors.Is(err, apierrors.ErrEmptySubmit) {
			t.Errorf("Send(%q) = %v, want ErrEmptySubmit", input, err)
		}
	}

	if mock.GenerateCalled {
		t.Error("empty submission reached the backend")
	}
	after, _ := kv.Get(models.KeyConversations)
	if before != after {
		t.Error("empty submission changed persisted state")
	}
	if n := len(store.Active().Messages); n != 1 {
		t.Errorf("expected only the seed message, got %d messages", n)
	}
}

func TestSendAllowsAttachmentsWithoutText(t *testing.T) {
	mock := &api.MockClient{
		Fragments: textFragments("Nice photo."),
		TitleVal:  "Image Analysis",
	}
	p, _, _ := newTestPipeline(t, mock)

	att := []models.Attachment{{MimeType: "image/png", Data: "aGk="}}
	if err := p.Send(context.Background(), "  ", att, nil); err != nil {
		t.Fatalf("Send with attachments failed: %v", err)
	}
	if len(mock.LastAttachments) != 1 {
		t.Errorf("attachments not forwarded: %+v", mock.LastAttachments)
	}
}

func TestSendFoldsStreamIntoReply(t *testing.T) {
	mock := &api.MockClient{
		Fragments: []models.Fragment{
			{Text: "The answer"},
			{Text: " is 42.", Sources: []models.Source{{URI: "https://deepthought.example", Title: "Deep Thought"}}},
		},
		TitleVal: "Life Questions",
	}
	p, store, _ := newTestPipeline(t, mock)

	var updates int
	err := p.Send(context.Background(), "What is the answer?", nil, func() { updates++ })
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	convo := store.Active()
	// seed + user + assistant
	if len(convo.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(convo.Messages))
	}

	user := convo.Messages[1]
	if user.Sender != models.SenderUser || user.Text != "What is the answer?" {
		t.Errorf("unexpected user message: %+v", user)
	}

	reply := convo.Messages[2]
	if reply.Sender != models.SenderAssistant {
		t.Errorf("unexpected reply sender: %s", reply.Sender)
	}
	if reply.Text != "The answer is 42." {
		t.Errorf("unexpected folded text: %q", reply.Text)
	}
	if len(reply.Sources) != 1 || reply.Sources[0].Title != "Deep Thought" {
		t.Errorf("unexpected sources: %+v", reply.Sources)
	}

	// One update for the append plus one per non-empty fragment.
	if updates < 3 {
		t.Errorf("expected at least 3 update notifications, got %d", updates)
	}

	if p.Sending() {
		t.Error("pipeline still marked sending after completion")
	}
}

func TestSendExcludesSeedFromRequestHistory(t *testing.T) {
	mock := &api.MockClient{Fragments: textFragments("ok"), TitleVal: "T"}
	p, store, _ := newTestPipeline(t, mock)

	if err := p.Send(context.Background(), "first", nil, nil); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if len(mock.LastHistory) != 0 {
		t.Errorf("first turn should carry empty history, got %+v", mock.LastHistory)
	}

	if err := p.Send(context.Background(), "second", nil, nil); err != nil {
		t.Fatalf("second send failed: %v", err)
	}

	// Previous user + assistant turn, still without the seed greeting.
	if len(mock.LastHistory) != 2 {
		t.Fatalf("expected 2 history messages, got %d", len(mock.LastHistory))
	}
	for _, msg := range mock.LastHistory {
		if msg.ID == models.SeedMessageID {
			t.Error("seed message leaked into request history")
		}
	}
	_ = store
}

func TestSendFinalizesPlaceholderOnStreamError(t *testing.T) {
	mock := &api.MockClient{
		Fragments:    textFragments("partial"),
		MidStreamErr: errors.New("connection reset"),
		TitleVal:     "T",
	}
	p, store, _ := newTestPipeline(t, mock)

	err := p.Send(context.Background(), "hello", nil, nil)
	if err == nil {
		t.Fatal("expected mid-stream error to surface")
	}

	reply := store.Active().LastMessage()
	if reply.Text != models.ErrorReplyText {
		t.Errorf("placeholder not finalized with apology, got %q", reply.Text)
	}
	if p.Sending() {
		t.Error("sending flag stuck after stream error")
	}
	if p.LastError() == nil {
		t.Error("LastError not recorded")
	}
}

func TestSendFinalizesPlaceholderOnOpenError(t *testing.T) {
	mock := &api.MockClient{
		StreamErr: apierrors.NewTransportError(502, "/api/generateContent", "bad gateway"),
		TitleVal:  "T",
	}
	p, store, _ := newTestPipeline(t, mock)

	err := p.Send(context.Background(), "hello", nil, nil)
	if !apierrors.IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}

	convo := store.Active()
	if len(convo.Messages) != 3 {
		t.Fatalf("user message and placeholder should both exist, got %d messages", len(convo.Messages))
	}
	if convo.LastMessage().Text != models.ErrorReplyText {
		t.Errorf("placeholder text = %q", convo.LastMessage().Text)
	}
}

// blockingGenerator parks the stream until released, to hold a send in
// flight.
type blockingGenerator struct {
	release chan struct{}
	started chan struct{}
}

type blockingSource struct {
	release <-chan struct{}
	served  bool
}

func (g *blockingGenerator) GenerateContentStream(context.Context, string, []models.Message, []models.Attachment) (stream.Source, error) {
	close(g.started)
	return &blockingSource{release: g.release}, nil
}

func (g *blockingGenerator) GenerateTitle(context.Context, string) (string, error) {
	return "T", nil
}

func (s *blockingSource) Next() (*models.Fragment, error) {
	if !s.served {
		<-s.release
		s.served = true
		return &models.Fragment{Text: "done"}, nil
	}
	return nil, io.EOF
}

func TestSendRejectsConcurrentSend(t *testing.T) {
	gen := &blockingGenerator{
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	kv := storage.NewMemStore()
	store, err := history.NewStore(kv)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	p := NewPipeline(gen, store, history.NewDrafts(kv), nil)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- p.Send(context.Background(), "slow question", nil, nil)
	}()

	<-gen.started
	if !p.Sending() {
		t.Error("Sending() should report true while a turn is in flight")
	}

	if err := p.Send(context.Background(), "eager question", nil, nil); !errors.Is(err, apierrors.ErrSendInFlight) {
		t.Errorf("concurrent Send = %v, want ErrSendInFlight", err)
	}
	if _, err := p.NewChat(); !errors.Is(err, apierrors.ErrSendInFlight) {
		t.Errorf("NewChat during send = %v, want ErrSendInFlight", err)
	}
	if p.Select("anything") {
		t.Error("Select should be refused while sending")
	}

	close(gen.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("blocked send failed after release: %v", err)
	}
	if p.Sending() {
		t.Error("sending flag stuck after release")
	}
}

func TestSendClearsDraftOnCommit(t *testing.T) {
	mock := &api.MockClient{Fragments: textFragments("ok"), TitleVal: "T"}
	p, store, kv := newTestPipeline(t, mock)
	drafts := history.NewDrafts(kv)

	convoID := store.ActiveID()
	if err := drafts.Save(convoID, "half-typed thou"); err != nil {
		t.Fatalf("failed to save draft: %v", err)
	}

	if err := p.Send(context.Background(), "half-typed thought", nil, nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if draft := drafts.Load(convoID); draft != "" {
		t.Errorf("draft not cleared after send, still %q", draft)
	}
}

func TestFirstExchangeGeneratesTitle(t *testing.T) {
	mock := &api.MockClient{
		Fragments: textFragments("sure"),
		TitleVal:  "Weekend Plans",
	}
	p, store, _ := newTestPipeline(t, mock)
	convoID := store.ActiveID()

	if err := p.Send(context.Background(), "plan my weekend", nil, nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Title generation runs off the send path; wait for it to land.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		convo, err := store.Get(convoID)
		if err != nil {
			t.Fatalf("conversation vanished: %v", err)
		}
		if convo.Title == "Weekend Plans" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("title never updated, still %q", store.Active().Title)
}

func TestTitleFailureFallsBackToDefault(t *testing.T) {
	mock := &api.MockClient{
		Fragments: textFragments("sure"),
		TitleErr:  errors.New("backend down"),
	}
	p, store, _ := newTestPipeline(t, mock)
	convoID := store.ActiveID()

	if err := p.Send(context.Background(), "hello", nil, nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mock.TitleCalled {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	convo, _ := store.Get(convoID)
	if convo.Title != models.DefaultTitle {
		t.Errorf("title = %q, want default on failure", convo.Title)
	}
}

func TestSecondExchangeDoesNotRetitle(t *testing.T) {
	mock := &api.MockClient{Fragments: textFragments("ok"), TitleVal: "First Title"}
	p, store, _ := newTestPipeline(t, mock)
	convoID := store.ActiveID()

	if err := p.Send(context.Background(), "first", nil, nil); err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		convo, _ := store.Get(convoID)
		if convo.Title == "First Title" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mock.TitleCalled = false
	if err := p.Send(context.Background(), "second", nil, nil); err != nil {
		t.Fatalf("second send failed: %v", err)
	}
	if mock.TitleCalled {
		t.Error("title regenerated on a non-first exchange")
	}
}

func TestPersistedCollectionIsValidJSON(t *testing.T) {
	mock := &api.MockClient{Fragments: textFragments("ok"), TitleVal: "T"}
	p, _, kv := newTestPipeline(t, mock)

	if err := p.Send(context.Background(), "hello", nil, nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	raw, ok := kv.Get(models.KeyConversations)
	if !ok {
		t.Fatal("collection not persisted")
	}
	var convos []models.Conversation
	if err := json.Unmarshal([]byte(raw), &convos); err != nil {
		t.Fatalf("persisted collection is not valid JSON: %v", err)
	}
	if len(convos) != 1 {
		t.Errorf("expected 1 persisted conversation, got %d", len(convos))
	}
}
