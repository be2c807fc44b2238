package api

import (
	"context"
	"io"

	"github.com/asha/dude/internal/models"
	"github.com/asha/dude/internal/stream"
)

// MockClient is a hand-rolled ClientInterface implementation for tests.
type MockClient struct {
	// Mock return values
	Fragments []models.Fragment
	StreamErr error
	TitleVal  string
	TitleErr  error
	AvatarVal string
	AvatarErr error

	// MidStreamErr, if set, is returned after Fragments are exhausted
	// instead of a clean end of stream.
	MidStreamErr error

	// Call recorders
	GenerateCalled  bool
	TitleCalled     bool
	LastMessage     string
	LastHistory     []models.Message
	LastAttachments []models.Attachment
}

var _ ClientInterface = (*MockClient)(nil)

func (m *MockClient) GenerateContentStream(_ context.Context, message string, hist []models.Message, attachments []models.Attachment) (stream.Source, error) {
	m.GenerateCalled = true
	m.LastMessage = message
	m.LastHistory = hist
	m.LastAttachments = attachments
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	return &sliceSource{fragments: m.Fragments, finalErr: m.MidStreamErr}, nil
}

func (m *MockClient) GenerateTitle(_ context.Context, message string) (string, error) {
	m.TitleCalled = true
	return m.TitleVal, m.TitleErr
}

func (m *MockClient) GenerateAvatar(context.Context) (string, error) {
	return m.AvatarVal, m.AvatarErr
}

// sliceSource replays a fixed fragment sequence.
type sliceSource struct {
	fragments []models.Fragment
	finalErr  error
	pos       int
}

func (s *sliceSource) Next() (*models.Fragment, error) {
	if s.pos >= len(s.fragments) {
		if s.finalErr != nil {
			return nil, s.finalErr
		}
		return nil, io.EOF
	}
	frag := s.fragments[s.pos]
	s.pos++
	return &frag, nil
}
