// Package sse reads text/event-stream bodies.
package sse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

const DefaultEventName = "message"

// MaxLineSize bounds a single field line. Longer lines fail the stream.
const MaxLineSize = 1 << 20

var ErrLineTooLong = errors.New("sse line too long")

type Event struct {
	ID   string
	Name string
	Data string
}

type Decoder struct {
	scanner *bufio.Scanner
	maxLine int
	lastID  string
}

func NewDecoder(r io.Reader) *Decoder {
	return newDecoderSize(r, MaxLineSize)
}

func newDecoderSize(r io.Reader, maxLine int) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(4096, maxLine)), maxLine)
	return &Decoder{scanner: scanner, maxLine: maxLine}
}

// Next blocks until a complete event is dispatched. It returns io.EOF once the stream
// ends; a partially received trailing event is discarded.
func (d *Decoder) Next() (Event, error) {
	var (
		name    string
		data    strings.Builder
		hasData bool
	)
	for d.scanner.Scan() {
		line := d.scanner.Text()
		if line == "" {
			if !hasData {
				name = ""
				continue
			}
			if name == "" {
				name = DefaultEventName
			}
			return Event{ID: d.lastID, Name: name, Data: data.String()}, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			if !strings.Contains(value, "\x00") {
				d.lastID = value
			}
		}
	}
	if err := d.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Event{}, fmt.Errorf("%w: limit %d bytes", ErrLineTooLong, d.maxLine)
		}
		return Event{}, err
	}
	return Event{}, io.EOF
}
