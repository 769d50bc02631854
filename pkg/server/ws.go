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
	"fmt"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  readBufferSize,
	WriteBufferSize: readBufferSize,
	Subprotocols:    []string{"v12.stomp"},
	CheckOrigin:     func(*http.Request) bool { return true },
}

// httpWSServer owns the optional WebSocket listener. Upgraded connections
// are adapted to the byte-stream interface and served by the same strategy
// as TCP connections.
type httpWSServer struct {
	srv *http.Server
}

func (s *Server) startWS() error {
	ln, err := net.Listen("tcp", s.opts.WSAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s for websocket: %w", s.opts.WSAddr, err)
	}
	s.wsLn = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}
		s.handleTransport(&wsTransport{ws: ws})
	})
	s.wsrv = &httpWSServer{srv: &http.Server{Handler: mux}}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.wsrv.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("WebSocket server stopped: %v", err)
		}
	}()
	log.Printf("WebSocket listener on %s", ln.Addr())
	return nil
}

func (h *httpWSServer) stop() {
	_ = h.srv.Close()
}

// wsTransport adapts one WebSocket connection to io.ReadWriteCloser so the
// codec, engine and strategies drive it like a TCP stream. Frames may span
// WebSocket messages or share one.
type wsTransport struct {
	ws     *websocket.Conn
	reader io.Reader
}

func (t *wsTransport) Read(p []byte) (int, error) {
	for {
		if t.reader == nil {
			_, r, err := t.ws.NextReader()
			if err != nil {
				return 0, err
			}
			t.reader = r
		}
		n, err := t.reader.Read(p)
		if err == io.EOF {
			// This message is exhausted; move on to the next one.
			t.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (t *wsTransport) Write(p []byte) (int, error) {
	if err := t.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *wsTransport) Close() error {
	return t.ws.Close()
}
