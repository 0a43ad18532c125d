package chat

import (
	"bufio"
	"bytes"
	"io"
)

// eventReader parses a text/event-stream body into raw data payloads. Only
// the "data:" field is used; the backend sends one JSON object per event
// and never uses event ids or named event types.
type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	scanner := bufio.NewScanner(r)
	// Events carry whole reply chunks; allow generous lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventReader{scanner: scanner}
}

// next returns the data payload of the next event, or io.EOF when the
// stream is exhausted.
func (e *eventReader) next() ([]byte, error) {
	var data []byte
	for e.scanner.Scan() {
		line := e.scanner.Bytes()

		// A blank line terminates the current event.
		if len(bytes.TrimSpace(line)) == 0 {
			if data != nil {
				return data, nil
			}
			continue
		}

		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			rest = bytes.TrimPrefix(rest, []byte(" "))
			if data != nil {
				// Multi-line data fields join with newlines.
				data = append(data, '\n')
			}
			data = append(data, rest...)
		}
		// Comment and other fields are ignored.
	}
	if err := e.scanner.Err(); err != nil {
		return nil, err
	}
	if data != nil {
		return data, nil
	}
	return nil, io.EOF
}
