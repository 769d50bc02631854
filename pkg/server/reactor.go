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

import "sync"

// reactorStrategy serves all connections with a fixed pool of workers. A
// thin per-connection producer performs the blocking wait for inbound bytes
// and queues each chunk as one readiness event; the pool services events.
// The scheduled flag guarantees each connection has at most one outstanding
// submission, so a single connection is never touched by two workers
// concurrently and its events are serviced strictly in arrival order.
type reactorStrategy struct {
	srv   *Server
	size  int
	tasks chan *reactorConn
}

func newReactorStrategy(size int) *reactorStrategy {
	return &reactorStrategy{
		size:  size,
		tasks: make(chan *reactorConn, 256),
	}
}

func (st *reactorStrategy) start(s *Server) {
	st.srv = s
	for i := 0; i < st.size; i++ {
		s.wg.Add(1)
		go st.worker()
	}
}

func (st *reactorStrategy) worker() {
	defer st.srv.wg.Done()
	for {
		select {
		case rc := <-st.tasks:
			rc.runOne(st)
		case <-st.srv.quit:
			return
		}
	}
}

func (st *reactorStrategy) serve(c *conn) {
	rc := &reactorConn{c: c}
	st.srv.wg.Add(1)
	go func() {
		defer st.srv.wg.Done()
		buf := make([]byte, readBufferSize)
		for {
			n, err := c.transport.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !rc.enqueue(st, chunk) {
					return
				}
			}
			if err != nil {
				// A nil chunk signals that the transport is gone; the pool
				// performs the deregistration so it stays serialized with
				// any processing still pending for this connection.
				rc.enqueue(st, nil)
				return
			}
		}
	}()
}

// reactorConn is one connection's event queue plus its scheduling state.
type reactorConn struct {
	c         *conn
	mu        sync.Mutex
	pending   [][]byte
	scheduled bool
}

// enqueue queues one readiness event and submits the connection to the pool
// unless it is already scheduled. Returns false when the server is shutting
// down.
func (rc *reactorConn) enqueue(st *reactorStrategy, chunk []byte) bool {
	rc.mu.Lock()
	rc.pending = append(rc.pending, chunk)
	already := rc.scheduled
	rc.scheduled = true
	rc.mu.Unlock()

	if already {
		return true
	}
	select {
	case st.tasks <- rc:
		return true
	case <-st.srv.quit:
		return false
	}
}

// runOne services exactly one readiness event, then yields the worker back
// to the pool, rescheduling the connection if more events are pending.
func (rc *reactorConn) runOne(st *reactorStrategy) {
	rc.mu.Lock()
	chunk := rc.pending[0]
	rc.pending = rc.pending[1:]
	rc.mu.Unlock()

	var done bool
	if chunk == nil {
		rc.c.close()
		done = true
	} else {
		done = rc.c.processChunk(chunk)
	}

	rc.mu.Lock()
	if done {
		rc.pending = nil
	}
	if len(rc.pending) == 0 {
		rc.scheduled = false
		rc.mu.Unlock()
		return
	}
	rc.mu.Unlock()

	// Never let a worker block on resubmission: a full task queue with every
	// worker resubmitting would deadlock the pool.
	select {
	case st.tasks <- rc:
	default:
		st.srv.wg.Add(1)
		go func() {
			defer st.srv.wg.Done()
			select {
			case st.tasks <- rc:
			case <-st.srv.quit:
			}
		}()
	}
}
