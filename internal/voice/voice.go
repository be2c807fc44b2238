// Package voice wraps best-effort speech capabilities. When a capability is
// unavailable the corresponding affordance is simply absent; no error ever
// reaches the send pipeline.
package voice

import (
	"os/exec"
	"sync"
)

// Speaker speaks text out loud.
type Speaker interface {
	// Supported reports whether speech output is available.
	Supported() bool
	// Speak voices text and invokes onEnd when playback finishes. onEnd may
	// be nil.
	Speak(text string, onEnd func())
	// Cancel stops any active or queued speech.
	Cancel()
}

// Recognizer captures speech and reports incremental transcripts.
type Recognizer interface {
	// Supported reports whether speech capture is available.
	Supported() bool
	// Start begins capture; the callback receives incremental transcripts.
	Start(onTranscript func(text string, final bool)) error
	// Stop ends capture.
	Stop()
}

// CommandSpeaker shells out to a local text-to-speech binary (say on macOS,
// espeak elsewhere).
type CommandSpeaker struct {
	binary string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommandSpeaker probes for a usable text-to-speech binary.
func NewCommandSpeaker() *CommandSpeaker {
	for _, candidate := range []string{"say", "espeak", "espeak-ng"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return &CommandSpeaker{binary: path}
		}
	}
	return &CommandSpeaker{}
}

func (s *CommandSpeaker) Supported() bool {
	return s.binary != ""
}

func (s *CommandSpeaker) Speak(text string, onEnd func()) {
	if s.binary == "" || text == "" {
		if onEnd != nil {
			onEnd()
		}
		return
	}

	s.Cancel()

	s.mu.Lock()
	cmd := exec.Command(s.binary, text)
	s.cmd = cmd
	s.mu.Unlock()

	go func() {
		_ = cmd.Run()
		s.mu.Lock()
		if s.cmd == cmd {
			s.cmd = nil
		}
		s.mu.Unlock()
		if onEnd != nil {
			onEnd()
		}
	}()
}

func (s *CommandSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
}

// NullRecognizer is the unsupported speech-capture capability.
type NullRecognizer struct{}

func (NullRecognizer) Supported() bool { return false }

func (NullRecognizer) Start(func(text string, final bool)) error { return nil }

func (NullRecognizer) Stop() {}
