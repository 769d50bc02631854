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
	"io"
	"sync"

	"github.com/turtacn/stomp-go/pkg/actor"
	"github.com/turtacn/stomp-go/pkg/frame"
	"github.com/turtacn/stomp-go/pkg/metrics"
	"github.com/turtacn/stomp-go/pkg/protocol"
)

// conn is one live connection: the transport, its outbound mailbox, the
// streaming decoder, and the protocol engine. The strategy guarantees that
// processChunk runs on one goroutine at a time; the mailbox decouples
// outbound delivery so any connection's engine may send here concurrently.
type conn struct {
	id        uint64
	srv       *Server
	transport io.ReadWriteCloser
	mb        *actor.Mailbox
	dec       *frame.Decoder
	engine    *protocol.Engine
	closeOnce sync.Once
}

func (s *Server) newConn(t io.ReadWriteCloser) *conn {
	id := s.nextConnID.Add(1)
	c := &conn{
		id:        id,
		srv:       s,
		transport: t,
		mb:        actor.NewMailbox(outboundQueueSize),
		dec:       frame.NewDecoder(),
		engine:    protocol.NewEngine(id, s.opts.Registry, s.opts.Audit, s.opts.Host),
	}
	// The mailbox is the connection's send capability: it satisfies
	// registry.Sender and tolerates sends racing the close.
	s.opts.Registry.Register(id, c.mb)
	s.conns.Store(id, c)
	return c
}

// processChunk feeds one chunk of inbound bytes to the decoder and runs the
// engine on every complete frame, in arrival order. It reports true when the
// connection is finished and has been closed.
func (c *conn) processChunk(p []byte) bool {
	if err := c.dec.Write(p); err != nil {
		c.engine.Malformed(err.Error())
		c.close()
		return true
	}
	for {
		f, err := c.dec.Next()
		if err != nil {
			c.engine.Malformed(err.Error())
			c.close()
			return true
		}
		if f == nil {
			return false
		}
		c.engine.Process(f)
		if c.engine.ShouldTerminate() {
			c.close()
			return true
		}
	}
}

// close deregisters the connection exactly once. The registry entry goes
// first, so no subsequently-issued broadcast targets this connection; the
// writer then drains already-queued frames and closes the transport.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.srv.opts.Registry.Disconnect(c.id)
		c.srv.conns.Delete(c.id)
		c.mb.Close()
		metrics.ConnectionsActive.Dec()
	})
}

// writeLoop is the connection's writer goroutine: it encodes and writes
// every frame queued on the mailbox. After the mailbox closes it drains
// whatever is still buffered, then closes the transport, which also unblocks
// the reader.
func (c *conn) writeLoop() {
	defer c.srv.wg.Done()
	defer c.transport.Close()
	for {
		select {
		case f := <-c.mb.Chan():
			if _, err := c.transport.Write(frame.Encode(f)); err != nil {
				c.close()
				return
			}
		case <-c.mb.Done():
			for {
				select {
				case f := <-c.mb.Chan():
					if _, err := c.transport.Write(frame.Encode(f)); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}
