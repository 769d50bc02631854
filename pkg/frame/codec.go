// Copyright 2025 The stomp-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package frame

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// MaxFrameSize bounds how many bytes the decoder buffers while waiting for a
// frame terminator. A peer that streams more than this without a NUL byte is
// considered malformed.
const MaxFrameSize = 1024 * 1024

// terminator marks the end of every frame on the wire.
const terminator = byte(0)

var (
	// ErrFrameTooLarge is returned when the decoder's buffer exceeds
	// MaxFrameSize without yielding a complete frame.
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")

	// ErrMalformedFrame is returned when a terminated chunk cannot be parsed
	// as a frame.
	ErrMalformedFrame = errors.New("malformed frame")
)

// Decoder converts an append-only byte stream into discrete frames. The
// transport may deliver a frame split across arbitrarily many reads, or many
// frames in one read; the decoder retains any trailing partial frame between
// calls. A Decoder is not safe for concurrent use; each connection owns one.
type Decoder struct {
	buf []byte
	max int
}

// NewDecoder returns a decoder enforcing MaxFrameSize.
func NewDecoder() *Decoder {
	return &Decoder{max: MaxFrameSize}
}

// Write appends raw bytes from the transport to the decoder's buffer. It
// returns ErrFrameTooLarge when the buffered prefix grows past the limit
// without containing a terminator.
func (d *Decoder) Write(p []byte) error {
	d.buf = append(d.buf, p...)
	if bytes.IndexByte(d.buf, terminator) < 0 && len(d.buf) > d.max {
		return ErrFrameTooLarge
	}
	return nil
}

// Next pops the next complete frame from the buffer. It returns (nil, nil)
// when no complete frame is buffered yet.
func (d *Decoder) Next() (*Frame, error) {
	for {
		idx := bytes.IndexByte(d.buf, terminator)
		if idx < 0 {
			return nil, nil
		}
		// Detach the frame's bytes before compacting: the parsed frame (and
		// its body) must not alias the buffer that the next Write refills.
		raw := append([]byte(nil), d.buf[:idx]...)
		d.buf = append(d.buf[:0], d.buf[idx+1:]...)

		// Peers may emit an EOL after the NUL of the previous frame.
		raw = bytes.TrimLeft(raw, "\r\n")
		if len(raw) == 0 {
			continue
		}
		return parse(raw)
	}
}

// parse decodes one terminator-stripped frame. The first line is the command,
// lines up to a blank line are headers, and everything after the blank line
// is the body. Header values are trimmed; a single trailing newline is
// stripped from the body so frames produced by Encode decode to the same
// logical frame.
func parse(raw []byte) (*Frame, error) {
	head := raw
	var body []byte
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		head = raw[:i]
		body = raw[i+2:]
	}

	lines := strings.Split(string(head), "\n")
	cmd := strings.TrimSpace(lines[0])
	if cmd == "" {
		return nil, fmt.Errorf("%w: empty command line", ErrMalformedFrame)
	}

	var headers []Header
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header line %q has no separator", ErrMalformedFrame, line)
		}
		headers = append(headers, Header{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}

	body = bytes.TrimSuffix(body, []byte("\n"))
	if len(body) == 0 {
		body = nil
	}
	return New(Command(cmd), body, headers...), nil
}

// Encode serializes a frame to its wire form: the command line, one line per
// header, a blank line, the body followed by a newline when non-empty, and
// the NUL terminator.
func Encode(f *Frame) []byte {
	var b bytes.Buffer
	b.WriteString(string(f.command))
	b.WriteByte('\n')
	for _, h := range f.headers {
		b.WriteString(h.Name)
		b.WriteByte(':')
		b.WriteString(h.Value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if len(f.body) > 0 {
		b.Write(f.body)
		b.WriteByte('\n')
	}
	b.WriteByte(terminator)
	return b.Bytes()
}
