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

// Package server accepts connections and drives each connection's
// read/decode/process/write cycle under one of two interchangeable
// concurrency strategies: a dedicated goroutine per connection, or a bounded
// reactor pool multiplexing many connections. Both guarantee that frames of
// a single connection are processed strictly in arrival order by one
// goroutine at a time.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/turtacn/stomp-go/pkg/audit"
	"github.com/turtacn/stomp-go/pkg/metrics"
	"github.com/turtacn/stomp-go/pkg/registry"
)

// Mode selects the execution strategy.
type Mode string

const (
	// ModeThreadPerConnection serves each connection with one dedicated
	// goroutine.
	ModeThreadPerConnection Mode = "tpc"
	// ModeReactor serves all connections with a bounded worker pool.
	ModeReactor Mode = "reactor"
)

const (
	readBufferSize    = 4096
	outboundQueueSize = 64
)

// Options configures a Server.
type Options struct {
	// Addr is the TCP listen address, e.g. ":7777".
	Addr string
	// Mode selects the execution strategy.
	Mode Mode
	// Host is the domain literal CONNECT frames must present.
	Host string
	// PoolSize bounds the reactor worker pool; 0 means one worker per CPU.
	// Ignored in thread-per-connection mode.
	PoolSize int
	// WSAddr, when non-empty, adds a WebSocket listener feeding the same
	// engine and strategy.
	WSAddr string
	// Registry is the shared connection registry.
	Registry *registry.Registry
	// Audit receives login and upload events.
	Audit audit.Recorder
}

// strategy drives prepared connections under one concurrency policy.
type strategy interface {
	start(s *Server)
	serve(c *conn)
}

// Server listens for connections and hands each one to its strategy.
type Server struct {
	opts     Options
	strategy strategy

	ln   net.Listener
	wsLn net.Listener
	wsrv *httpWSServer

	conns      sync.Map // uint64 -> *conn
	nextConnID atomic.Uint64

	wg        sync.WaitGroup
	ready     chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
}

// New validates the options and builds a server. No listener is opened until
// Serve.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("server: registry is required")
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewMemoryRecorder()
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = runtime.NumCPU()
	}

	s := &Server{
		opts:  opts,
		ready: make(chan struct{}),
		quit:  make(chan struct{}),
	}
	switch opts.Mode {
	case ModeThreadPerConnection:
		s.strategy = &tpcStrategy{}
	case ModeReactor:
		s.strategy = newReactorStrategy(opts.PoolSize)
	default:
		return nil, fmt.Errorf("server: unknown mode %q", opts.Mode)
	}
	return s, nil
}

// Serve listens and accepts connections until the context is canceled or
// Close is called, then tears everything down and returns.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}
	s.ln = ln

	s.strategy.start(s)

	s.wg.Add(1)
	go s.acceptLoop()

	if s.opts.WSAddr != "" {
		if err := s.startWS(); err != nil {
			s.Close()
			s.shutdown()
			s.wg.Wait()
			return err
		}
	}
	close(s.ready)
	log.Printf("STOMP broker listening on %s (%s mode)", ln.Addr(), s.opts.Mode)

	select {
	case <-ctx.Done():
	case <-s.quit:
	}
	s.Close()
	s.shutdown()
	s.wg.Wait()
	log.Println("STOMP broker stopped")
	return nil
}

// Close initiates shutdown. Idempotent and safe from any goroutine; Serve
// returns once teardown completes.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
}

// Addr returns the TCP listen address, or nil until Serve has opened it.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
	default:
		return nil
	}
	return s.ln.Addr()
}

// WSAddr returns the WebSocket listen address, or nil until Serve has opened
// it (always nil when no WebSocket listener is configured).
func (s *Server) WSAddr() net.Addr {
	select {
	case <-s.ready:
	default:
		return nil
	}
	if s.wsLn == nil {
		return nil
	}
	return s.wsLn.Addr()
}

func (s *Server) shutdown() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
	if s.wsrv != nil {
		s.wsrv.stop()
	}
	s.conns.Range(func(_, v any) bool {
		v.(*conn).close()
		return true
	})
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Failed to accept connection: %v", err)
			continue
		}
		s.handleTransport(c)
	}
}

// handleTransport wires up a freshly accepted byte stream: connection id,
// engine, outbound writer, registry entry, and hands it to the strategy.
func (s *Server) handleTransport(t io.ReadWriteCloser) {
	c := s.newConn(t)
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()

	s.wg.Add(1)
	go c.writeLoop()
	s.strategy.serve(c)
}
