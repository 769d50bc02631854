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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, d *Decoder) []*Frame {
	t.Helper()
	var frames []*Frame
	for {
		f, err := d.Next()
		require.NoError(t, err)
		if f == nil {
			return frames
		}
		frames = append(frames, f)
	}
}

func TestDecodeSingleFrame(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.Write([]byte("CONNECT\naccept-version:1.2\nhost:stomp.cs.bgu.ac.il\nlogin:alice\npasscode:secret\n\n\x00")))

	frames := decodeAll(t, d)
	require.Len(t, frames, 1)

	f := frames[0]
	assert.Equal(t, CmdConnect, f.Command())
	v, ok := f.Header(HdrAcceptVersion)
	assert.True(t, ok)
	assert.Equal(t, "1.2", v)
	login, _ := f.Header(HdrLogin)
	assert.Equal(t, "alice", login)
	assert.Empty(t, f.Body())
}

func TestDecodeBody(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.Write([]byte("SEND\ndestination:/topic/news\n\nhello world\x00")))

	frames := decodeAll(t, d)
	require.Len(t, frames, 1)
	assert.Equal(t, CmdSend, frames[0].Command())
	assert.Equal(t, "hello world", string(frames[0].Body()))
}

func TestDecodeSplitAcrossReads(t *testing.T) {
	wire := []byte("SUBSCRIBE\ndestination:/topic/news\nid:17\n\n\x00SEND\ndestination:/topic/news\n\nhi\x00")

	// Any split of the stream must yield the same frame sequence as one read.
	for chunk := 1; chunk <= len(wire); chunk++ {
		d := NewDecoder()
		var frames []*Frame
		for off := 0; off < len(wire); off += chunk {
			end := off + chunk
			if end > len(wire) {
				end = len(wire)
			}
			require.NoError(t, d.Write(wire[off:end]))
			frames = append(frames, decodeAll(t, d)...)
		}
		require.Len(t, frames, 2, "chunk size %d", chunk)
		assert.Equal(t, CmdSubscribe, frames[0].Command())
		id, _ := frames[0].Header(HdrID)
		assert.Equal(t, "17", id)
		assert.Equal(t, CmdSend, frames[1].Command())
		assert.Equal(t, "hi", string(frames[1].Body()))
	}
}

func TestDecodePipelinedFramesInOneWrite(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.Write([]byte("SUBSCRIBE\ndestination:/topic/news\nid:17\n\n\x00SEND\ndestination:/topic/news\n\nhi\x00")))

	// The first frame must come back intact even though the second frame's
	// bytes were already buffered behind it.
	first, err := d.Next()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, CmdSubscribe, first.Command())
	id, ok := first.Header(HdrID)
	assert.True(t, ok)
	assert.Equal(t, "17", id)
	assert.Empty(t, first.Body())

	second, err := d.Next()
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, CmdSend, second.Command())
	assert.Equal(t, "hi", string(second.Body()))
}

func TestDecodedFrameSurvivesLaterWrites(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.Write([]byte("SEND\ndestination:/topic/news\n\nfirst body\x00")))
	f, err := d.Next()
	require.NoError(t, err)
	require.NotNil(t, f)

	// Refilling the decoder must not mutate the frame handed out earlier.
	require.NoError(t, d.Write([]byte("SEND\ndestination:/topic/news\n\nXXXXXXXXXXXXXXXXXXXX\x00")))
	assert.Equal(t, "first body", string(f.Body()))
	dest, _ := f.Header(HdrDestination)
	assert.Equal(t, "/topic/news", dest)
}

func TestDecodeRetainsPartialFrame(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.Write([]byte("DISCONNECT\nreceipt:77")))
	assert.Empty(t, decodeAll(t, d))

	require.NoError(t, d.Write([]byte("\n\n\x00")))
	frames := decodeAll(t, d)
	require.Len(t, frames, 1)
	r, _ := frames[0].Header(HdrReceipt)
	assert.Equal(t, "77", r)
}

func TestDecodeTrimsHeaderValues(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.Write([]byte("SUBSCRIBE\ndestination:  /topic/x \nid: 0\n\n\x00")))
	frames := decodeAll(t, d)
	require.Len(t, frames, 1)
	dest, _ := frames[0].Header(HdrDestination)
	assert.Equal(t, "/topic/x", dest)
}

func TestDecodeFirstHeaderOccurrenceWins(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.Write([]byte("SEND\ndestination:/a\ndestination:/b\n\n\x00")))
	frames := decodeAll(t, d)
	require.Len(t, frames, 1)
	dest, _ := frames[0].Header(HdrDestination)
	assert.Equal(t, "/a", dest)
}

func TestDecodeEOLBetweenFrames(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.Write([]byte("DISCONNECT\n\n\x00\nDISCONNECT\n\n\x00")))
	frames := decodeAll(t, d)
	assert.Len(t, frames, 2)
}

func TestDecodeMalformedHeaderLine(t *testing.T) {
	d := NewDecoder()
	require.NoError(t, d.Write([]byte("SEND\nnoseparator\n\n\x00")))
	_, err := d.Next()
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeFrameTooLarge(t *testing.T) {
	d := &Decoder{max: 64}
	assert.NoError(t, d.Write(make([]byte, 64)))
	assert.ErrorIs(t, d.Write([]byte("x")), ErrFrameTooLarge)
}

func TestEncodeMatchesWireTemplates(t *testing.T) {
	connected := New(CmdConnected, nil, H(HdrVersion, Version))
	assert.Equal(t, "CONNECTED\nversion:1.2\n\n\x00", string(Encode(connected)))

	receipt := New(CmdReceipt, nil, H(HdrReceiptID, "42"))
	assert.Equal(t, "RECEIPT\nreceipt-id:42\n\n\x00", string(Encode(receipt)))

	msg := New(CmdMessage, []byte("hello"),
		H(HdrSubscription, "0"),
		H(HdrMessageID, "7"),
		H(HdrDestination, "/topic/news"))
	assert.Equal(t, "MESSAGE\nsubscription:0\nmessage-id:7\ndestination:/topic/news\n\nhello\n\x00", string(Encode(msg)))
}

func TestRoundTrip(t *testing.T) {
	orig := New(CmdMessage, []byte("payload"),
		H(HdrSubscription, "3"),
		H(HdrMessageID, "12"),
		H(HdrDestination, "/queue/a"))

	d := NewDecoder()
	require.NoError(t, d.Write(Encode(orig)))
	decoded, err := d.Next()
	require.NoError(t, err)
	require.NotNil(t, decoded)

	assert.Equal(t, orig.Command(), decoded.Command())
	assert.Equal(t, orig.Headers(), decoded.Headers())
	assert.Equal(t, orig.Body(), decoded.Body())

	// Re-encoding reproduces the original bytes.
	assert.Equal(t, Encode(orig), Encode(decoded))
}
