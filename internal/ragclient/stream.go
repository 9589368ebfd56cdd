package ragclient

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/xxxsen/pdfchat/internal/sse"
)

type Stream struct {
	body    io.ReadCloser
	decoder *sse.Decoder
	format  Format
	cancel  context.CancelFunc
	once    sync.Once
}

func newStream(body io.ReadCloser, format Format, cancel context.CancelFunc) *Stream {
	return &Stream{body: body, decoder: sse.NewDecoder(body), format: format, cancel: cancel}
}

// NewStreamFromReader decodes an already open event stream body.
func NewStreamFromReader(body io.ReadCloser, format Format) *Stream {
	return newStream(body, format, func() {})
}

// Next returns the next envelope. Events with unknown names are skipped. A stream that
// ends without an end event yields io.ErrUnexpectedEOF.
func (s *Stream) Next() (Envelope, error) {
	for {
		ev, err := s.decoder.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Envelope{}, io.ErrUnexpectedEOF
			}
			return Envelope{}, err
		}
		env, err := Translate(s.format, ev)
		if errors.Is(err, errSkipEvent) {
			continue
		}
		return env, err
	}
}

// Close aborts the underlying request. It is safe to call more than once and from
// another goroutine than the one blocked in Next.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}
