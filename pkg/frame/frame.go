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

// Package frame implements the STOMP 1.2 frame model and the streaming codec
// that converts between raw bytes and discrete frames. A frame is a command
// line, a set of name:value header lines, a blank line, an optional body, and
// a single NUL terminator.
package frame

// Command identifies the kind of a STOMP frame.
type Command string

// The commands understood by the broker. Client frames are CONNECT,
// SUBSCRIBE, UNSUBSCRIBE, SEND and DISCONNECT; the rest are server replies.
const (
	CmdConnect     Command = "CONNECT"
	CmdConnected   Command = "CONNECTED"
	CmdSubscribe   Command = "SUBSCRIBE"
	CmdUnsubscribe Command = "UNSUBSCRIBE"
	CmdSend        Command = "SEND"
	CmdMessage     Command = "MESSAGE"
	CmdReceipt     Command = "RECEIPT"
	CmdError       Command = "ERROR"
	CmdDisconnect  Command = "DISCONNECT"
)

// Version is the single protocol version the broker speaks and accepts.
const Version = "1.2"

// Common header names.
const (
	HdrAcceptVersion = "accept-version"
	HdrVersion       = "version"
	HdrHost          = "host"
	HdrLogin         = "login"
	HdrPasscode      = "passcode"
	HdrDestination   = "destination"
	HdrID            = "id"
	HdrSubscription  = "subscription"
	HdrMessageID     = "message-id"
	HdrReceipt       = "receipt"
	HdrReceiptID     = "receipt-id"
	HdrMessage       = "message"
	HdrFilename      = "filename"
)

// Header is a single name:value pair. Names are case-sensitive.
type Header struct {
	Name  string
	Value string
}

// H is a convenience constructor for a Header.
func H(name, value string) Header {
	return Header{Name: name, Value: value}
}

// Frame is one protocol message. Frames are immutable once constructed;
// derive modified copies with WithLeadingHeader.
type Frame struct {
	command Command
	headers []Header
	body    []byte
}

// New constructs a frame from a command, an optional body and an ordered list
// of headers. The header slice is copied so callers may reuse theirs.
func New(cmd Command, body []byte, headers ...Header) *Frame {
	f := &Frame{
		command: cmd,
		headers: make([]Header, len(headers)),
		body:    body,
	}
	copy(f.headers, headers)
	return f
}

// Command returns the frame's command token.
func (f *Frame) Command() Command {
	return f.command
}

// Header looks up a header by exact name. When a name repeats, the first
// occurrence wins. The second return value reports whether the header exists.
func (f *Frame) Header(name string) (string, bool) {
	for _, h := range f.headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

// Headers returns a copy of the frame's headers in wire order.
func (f *Frame) Headers() []Header {
	hs := make([]Header, len(f.headers))
	copy(hs, f.headers)
	return hs
}

// Body returns the frame body. Callers must not modify the returned slice.
func (f *Frame) Body() []byte {
	return f.body
}

// WithLeadingHeader returns a copy of the frame with the given header
// prepended. The registry uses this to rewrite the subscription header
// per recipient when fanning out a MESSAGE frame.
func (f *Frame) WithLeadingHeader(name, value string) *Frame {
	headers := make([]Header, 0, len(f.headers)+1)
	headers = append(headers, Header{Name: name, Value: value})
	headers = append(headers, f.headers...)
	return &Frame{
		command: f.command,
		headers: headers,
		body:    f.body,
	}
}
