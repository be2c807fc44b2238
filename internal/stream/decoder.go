// Package stream decodes the proxy's newline-delimited JSON response stream
// into fragments.
package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/asha/dude/internal/logging"
	"github.com/asha/dude/internal/models"
)

// Source is a lazy sequence of fragments ending with io.EOF.
type Source interface {
	Next() (*models.Fragment, error)
}

// Decoder turns a raw byte stream into a lazy, finite, non-restartable
// sequence of parsed fragments.
//
// Bytes are consumed incrementally and split on newline boundaries. A
// trailing incomplete line is buffered and only parsed once terminated by a
// later read or by end of stream. A line that fails to parse is dropped with
// a logged diagnostic; one malformed fragment never aborts the remainder.
type Decoder struct {
	r      *bufio.Reader
	closer io.Closer
	done   bool
}

// NewDecoder wraps a response body. If the body is also an io.Closer it is
// closed when the stream is exhausted.
func NewDecoder(body io.Reader) *Decoder {
	d := &Decoder{r: bufio.NewReader(body)}
	if c, ok := body.(io.Closer); ok {
		d.closer = c
	}
	return d
}

// Next returns the next fragment, or io.EOF when the stream is exhausted.
// Sequence exhaustion is the only end-of-turn signal; no fragment is
// synthesized to mark it.
func (d *Decoder) Next() (*models.Fragment, error) {
	if d.done {
		return nil, io.EOF
	}

	for {
		line, err := d.r.ReadString('\n')
		if err != nil && err != io.EOF {
			d.finish()
			return nil, err
		}

		atEOF := err == io.EOF

		if frag := parseLine(line); frag != nil {
			if atEOF {
				// The final flush: this fragment is the last one.
				d.done = true
				d.close()
			}
			return frag, nil
		}

		if atEOF {
			d.finish()
			return nil, io.EOF
		}
	}
}

// parseLine parses one stream line into a fragment, returning nil for blank
// or malformed lines.
func parseLine(line string) *models.Fragment {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if !gjson.Valid(line) {
		logging.Get().Stream("drop", line)
		return nil
	}

	var frag models.Fragment
	if err := json.Unmarshal([]byte(line), &frag); err != nil {
		logging.Get().Stream("drop", line)
		return nil
	}
	return &frag
}

func (d *Decoder) finish() {
	d.done = true
	d.close()
}

func (d *Decoder) close() {
	if d.closer != nil {
		_ = d.closer.Close()
		d.closer = nil
	}
}
