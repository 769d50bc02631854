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

package server

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/stomp-go/pkg/frame"
)

// wsClient speaks the wire protocol over a websocket, one frame per message.
type wsClient struct {
	t   *testing.T
	ws  *websocket.Conn
	dec *frame.Decoder
}

func dialWS(t *testing.T, url string) *wsClient {
	t.Helper()
	dialer := websocket.Dialer{
		Subprotocols:     []string{"v12.stomp"},
		HandshakeTimeout: 2 * time.Second,
	}
	ws, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = ws.Close() })
	return &wsClient{t: t, ws: ws, dec: frame.NewDecoder()}
}

func (c *wsClient) send(f *frame.Frame) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteMessage(websocket.BinaryMessage, frame.Encode(f)))
}

func (c *wsClient) recv() *frame.Frame {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if f, err := c.dec.Next(); err != nil {
			c.t.Fatalf("failed to decode server frame: %v", err)
		} else if f != nil {
			return f
		}
		_, data, err := c.ws.ReadMessage()
		require.NoError(c.t, err, "waiting for a server frame")
		require.NoError(c.t, c.dec.Write(data))
	}
}
