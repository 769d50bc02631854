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

// Package actor provides the outbound mailbox of a connection: a buffered
// frame queue consumed by that connection's writer goroutine. Senders and
// the closer may race freely; a send against a closed mailbox reports
// failure instead of panicking.
package actor

import (
	"sync"

	"github.com/turtacn/stomp-go/pkg/frame"
)

// Mailbox is a channel-based frame queue with close semantics. Any number of
// goroutines may Send concurrently; exactly one consumer drains Chan.
type Mailbox struct {
	frames    chan *frame.Frame
	done      chan struct{}
	closeOnce sync.Once
}

// NewMailbox creates a mailbox with the given buffer size. A larger size
// absorbs bursts toward a slow consumer at the cost of memory.
func NewMailbox(size int) *Mailbox {
	return &Mailbox{
		frames: make(chan *frame.Frame, size),
		done:   make(chan struct{}),
	}
}

// Send enqueues a frame. It blocks while the buffer is full and returns
// false once the mailbox is closed, so sends racing a close are tolerated.
func (mb *Mailbox) Send(f *frame.Frame) bool {
	select {
	case <-mb.done:
		return false
	case mb.frames <- f:
		return true
	}
}

// Chan returns the queue for the consumer to drain. The channel is never
// closed; consumers watch Done to learn when to stop.
func (mb *Mailbox) Chan() <-chan *frame.Frame {
	return mb.frames
}

// Done is closed when the mailbox is closed. Frames still buffered at that
// point remain readable from Chan.
func (mb *Mailbox) Done() <-chan struct{} {
	return mb.done
}

// Close marks the mailbox closed. Idempotent.
func (mb *Mailbox) Close() {
	mb.closeOnce.Do(func() {
		close(mb.done)
	})
}
