package notify

import (
	"bytes"
	"fmt"
	"strings"
)

// Minimal STOMP 1.2 framing, enough to connect and consume broker topics.
// Frames are COMMAND, header lines, a blank line, then a NUL-terminated body.

const (
	cmdConnect   = "CONNECT"
	cmdConnected = "CONNECTED"
	cmdSubscribe = "SUBSCRIBE"
	cmdMessage   = "MESSAGE"
	cmdError     = "ERROR"
)

type frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

func newFrame(command string, headers map[string]string) *frame {
	return &frame{Command: command, Headers: headers}
}

// Marshal encodes the frame in wire format.
func (f *frame) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')
	for k, v := range f.Headers {
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// parseFrame decodes a single frame. Heartbeat frames (bare newlines) yield
// a nil frame and no error. Lines may end in LF or CRLF, in any mix.
func parseFrame(data []byte) (*frame, error) {
	data = bytes.TrimLeft(data, "\r\n")
	if len(data) == 0 {
		return nil, nil
	}

	head, body, found := cutHead(data)
	if !found {
		return nil, fmt.Errorf("malformed stomp frame: missing header terminator")
	}
	body = bytes.TrimSuffix(body, []byte{0})

	lines := strings.Split(string(head), "\n")
	f := &frame{
		Command: strings.TrimSuffix(lines[0], "\r"),
		Headers: make(map[string]string, len(lines)-1),
		Body:    body,
	}
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed stomp header %q", line)
		}
		if _, exists := f.Headers[key]; !exists {
			f.Headers[key] = value
		}
	}
	return f, nil
}

// cutHead splits a frame at the blank line terminating the header block,
// matching the terminator whichever EOL convention each of its two line
// breaks uses.
func cutHead(data []byte) (head, body []byte, found bool) {
	for i := 0; i < len(data); i++ {
		if data[i] != '\n' {
			continue
		}
		j := i + 1
		if j < len(data) && data[j] == '\r' {
			j++
		}
		if j < len(data) && data[j] == '\n' {
			return data[:i], data[j+1:], true
		}
	}
	return nil, nil, false
}
