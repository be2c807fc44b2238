package stream

import (
	"io"
	"strings"
	"testing"
)

// chunkedReader yields its input in fixed-size chunks to exercise partial
// line buffering.
type chunkedReader struct {
	data  string
	chunk int
	pos   int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.chunk
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

// closeRecorder wraps a reader and records Close calls.
type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func collect(t *testing.T, d *Decoder) []string {
	t.Helper()
	var texts []string
	for {
		frag, err := d.Next()
		if err == io.EOF {
			return texts
		}
		if err != nil {
			t.Fatalf("unexpected decode error: %v", err)
		}
		texts = append(texts, frag.Text)
	}
}

func TestDecoderReadsLineDelimitedFragments(t *testing.T) {
	input := `{"text":"Hello"}` + "\n" + `{"text":" world"}` + "\n"

	texts := collect(t, NewDecoder(strings.NewReader(input)))

	if len(texts) != 2 || texts[0] != "Hello" || texts[1] != " world" {
		t.Errorf("unexpected fragments: %v", texts)
	}
}

func TestDecoderBuffersPartialLines(t *testing.T) {
	input := `{"text":"a long delta that spans reads"}` + "\n" + `{"text":"second"}` + "\n"

	// 7-byte reads force every line to arrive in pieces.
	texts := collect(t, NewDecoder(&chunkedReader{data: input, chunk: 7}))

	if len(texts) != 2 {
		t.Fatalf("expected 2 fragments, got %d: %v", len(texts), texts)
	}
	if texts[0] != "a long delta that spans reads" {
		t.Errorf("partial line was parsed early: %q", texts[0])
	}
}

func TestDecoderFlushesFinalUnterminatedLine(t *testing.T) {
	input := `{"text":"first"}` + "\n" + `{"text":"last"}` // no trailing newline

	texts := collect(t, NewDecoder(strings.NewReader(input)))

	if len(texts) != 2 || texts[1] != "last" {
		t.Errorf("final unterminated line was not flushed: %v", texts)
	}
}

func TestDecoderDropsMalformedLines(t *testing.T) {
	input := `{"text":"good"}` + "\n" +
		`{"text": truncated` + "\n" +
		"not json at all\n" +
		`{"text":"also good"}` + "\n"

	texts := collect(t, NewDecoder(strings.NewReader(input)))

	if len(texts) != 2 || texts[0] != "good" || texts[1] != "also good" {
		t.Errorf("malformed lines should be skipped, got %v", texts)
	}
}

func TestDecoderSkipsBlankLines(t *testing.T) {
	input := "\n\n" + `{"text":"x"}` + "\n\n"

	texts := collect(t, NewDecoder(strings.NewReader(input)))

	if len(texts) != 1 || texts[0] != "x" {
		t.Errorf("unexpected fragments: %v", texts)
	}
}

func TestDecoderEmptyStream(t *testing.T) {
	d := NewDecoder(strings.NewReader(""))

	if _, err := d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF on empty stream, got %v", err)
	}
	// Exhaustion is sticky.
	if _, err := d.Next(); err != io.EOF {
		t.Errorf("expected io.EOF on repeated Next, got %v", err)
	}
}

func TestDecoderClosesBodyOnExhaustion(t *testing.T) {
	body := &closeRecorder{Reader: strings.NewReader(`{"text":"x"}` + "\n")}
	d := NewDecoder(body)

	collect(t, d)

	if !body.closed {
		t.Error("decoder did not close the body at end of stream")
	}
}

func TestDecoderParsesRichFragments(t *testing.T) {
	input := `{"text":"t","sources":[{"uri":"https://a.example","title":"A"}],"mindMapData":{"title":"root","children":[{"title":"leaf"}]}}` + "\n"

	d := NewDecoder(strings.NewReader(input))
	frag, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if frag.Text != "t" {
		t.Errorf("text = %q", frag.Text)
	}
	if len(frag.Sources) != 1 || frag.Sources[0].URI != "https://a.example" {
		t.Errorf("sources = %+v", frag.Sources)
	}
	if frag.MindMap == nil || len(frag.MindMap.Children) != 1 {
		t.Errorf("mind map = %+v", frag.MindMap)
	}
}
