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

// Package protocol implements the per-connection STOMP state machine. One
// Engine instance exists per connection; the driving execution strategy
// guarantees it is touched by exactly one goroutine at a time, so the
// session state needs no locking of its own. All cross-connection effects go
// through the shared registry.
package protocol

import (
	"fmt"
	"strconv"

	"github.com/turtacn/stomp-go/pkg/audit"
	"github.com/turtacn/stomp-go/pkg/frame"
	"github.com/turtacn/stomp-go/pkg/metrics"
	"github.com/turtacn/stomp-go/pkg/registry"
)

type state int

const (
	stateUnauthenticated state = iota
	stateAuthenticated
	stateTerminated
)

// Engine executes the five client commands for a single connection. The
// state machine only moves forward: unauthenticated, authenticated,
// terminated.
type Engine struct {
	connID   uint64
	reg      *registry.Registry
	audit    audit.Recorder
	host     string
	state    state
	username string
	subs     map[string]string // subscription id -> destination
}

// NewEngine creates the engine for one connection. host is the configured
// domain literal that CONNECT frames must present.
func NewEngine(connID uint64, reg *registry.Registry, rec audit.Recorder, host string) *Engine {
	return &Engine{
		connID: connID,
		reg:    reg,
		audit:  rec,
		host:   host,
		subs:   make(map[string]string),
	}
}

// ShouldTerminate reports whether the engine reached its terminal state; the
// driving strategy then closes the transport and deregisters the connection.
func (e *Engine) ShouldTerminate() bool {
	return e.state == stateTerminated
}

// Process validates and executes one frame. Frames arriving after
// termination are ignored. Replies are delivered through the registry's send
// capability for this connection.
func (e *Engine) Process(f *frame.Frame) {
	if e.state == stateTerminated {
		return
	}
	metrics.FramesReceivedTotal.WithLabelValues(string(f.Command())).Inc()

	switch f.Command() {
	case frame.CmdConnect:
		e.handleConnect(f)
	case frame.CmdSubscribe:
		e.handleSubscribe(f)
	case frame.CmdUnsubscribe:
		e.handleUnsubscribe(f)
	case frame.CmdSend:
		e.handleSend(f)
	case frame.CmdDisconnect:
		e.handleDisconnect(f)
	default:
		receipt, _ := f.Header(frame.HdrReceipt)
		e.fail(errUnknownCommand,
			fmt.Sprintf("The command %s is not recognized", f.Command()), receipt)
	}
}

// Malformed reports a stream-level framing failure (for example an oversized
// or unparsable chunk) as a malformed-frame error and terminates.
func (e *Engine) Malformed(description string) {
	if e.state == stateTerminated {
		return
	}
	e.fail(errMalformedFrame, description, "")
}

func (e *Engine) handleConnect(f *frame.Frame) {
	receipt, _ := f.Header(frame.HdrReceipt)

	if e.state != stateUnauthenticated {
		e.fail(errMalformedFrame, "Connection is already authenticated", receipt)
		return
	}

	version, okVersion := f.Header(frame.HdrAcceptVersion)
	host, okHost := f.Header(frame.HdrHost)
	login, okLogin := f.Header(frame.HdrLogin)
	passcode, okPasscode := f.Header(frame.HdrPasscode)
	if !okVersion || !okHost || !okLogin || !okPasscode {
		e.fail(errMalformedFrame, "Missing headers", receipt)
		return
	}
	if version != frame.Version {
		e.fail(errMalformedFrame, "Invalid version: "+version, receipt)
		return
	}
	if host != e.host {
		e.fail(errMalformedFrame, "Invalid host: "+host, receipt)
		return
	}

	switch e.reg.TryLogin(login, passcode, e.connID) {
	case registry.LoginWrongPassword:
		e.fail(errWrongPassword, "Password does not match", receipt)
		return
	case registry.LoginAlreadyLoggedIn:
		e.fail(errAlreadyLoggedIn, fmt.Sprintf("User %s is already active", login), receipt)
		return
	}

	e.username = login
	e.state = stateAuthenticated
	e.audit.RecordLogin(login)
	e.reply(frame.New(frame.CmdConnected, nil, frame.H(frame.HdrVersion, frame.Version)))
	e.receipt(receipt)
}

func (e *Engine) handleSubscribe(f *frame.Frame) {
	receipt, _ := f.Header(frame.HdrReceipt)

	dest, okDest := f.Header(frame.HdrDestination)
	id, okID := f.Header(frame.HdrID)
	if !okDest || !okID {
		e.fail(errMalformedFrame, "Missing destination or id", receipt)
		return
	}
	if _, exists := e.subs[id]; exists {
		e.fail(errDuplicateSubscription,
			fmt.Sprintf("Subscription id %s is already in use on this connection", id), receipt)
		return
	}

	e.subs[id] = dest
	e.reg.Subscribe(dest, e.connID, id)
	e.receipt(receipt)
}

func (e *Engine) handleUnsubscribe(f *frame.Frame) {
	receipt, _ := f.Header(frame.HdrReceipt)

	id, ok := f.Header(frame.HdrID)
	if !ok {
		e.fail(errMalformedFrame, "Missing id", receipt)
		return
	}

	// Removing an unknown id is a no-op, not an error.
	if dest, exists := e.subs[id]; exists {
		delete(e.subs, id)
		e.reg.Unsubscribe(dest, e.connID)
	}
	e.receipt(receipt)
}

func (e *Engine) handleSend(f *frame.Frame) {
	receipt, _ := f.Header(frame.HdrReceipt)

	dest, ok := f.Header(frame.HdrDestination)
	if !ok {
		e.fail(errMalformedFrame, "Missing destination", receipt)
		return
	}
	if !e.subscribedTo(dest) {
		e.fail(errAccessDenied, "Not subscribed to destination "+dest, receipt)
		return
	}

	if filename, ok := f.Header(frame.HdrFilename); ok {
		e.audit.RecordUpload(e.username, filename, dest)
	}

	msgID := e.reg.NextMessageID()
	msg := frame.New(frame.CmdMessage, f.Body(),
		frame.H(frame.HdrMessageID, strconv.FormatUint(msgID, 10)),
		frame.H(frame.HdrDestination, dest))
	delivered := e.reg.Broadcast(dest, msg)
	metrics.MessagesDeliveredTotal.Add(float64(delivered))

	e.receipt(receipt)
}

func (e *Engine) handleDisconnect(f *frame.Frame) {
	receipt, _ := f.Header(frame.HdrReceipt)

	// The receipt goes out first; the writer drains queued frames before the
	// transport closes.
	e.receipt(receipt)
	e.release()
	e.state = stateTerminated
}

// subscribedTo reports whether the session holds any subscription to dest.
func (e *Engine) subscribedTo(dest string) bool {
	for _, d := range e.subs {
		if d == dest {
			return true
		}
	}
	return false
}

// fail sends the single ERROR frame the peer will see, releases everything
// this session holds, and terminates.
func (e *Engine) fail(summary, description, receipt string) {
	metrics.ProtocolErrorsTotal.WithLabelValues(summary).Inc()

	headers := make([]frame.Header, 0, 2)
	if receipt != "" {
		headers = append(headers, frame.H(frame.HdrReceiptID, receipt))
	}
	headers = append(headers, frame.H(frame.HdrMessage, summary))
	e.reply(frame.New(frame.CmdError, []byte(description), headers...))

	e.release()
	e.state = stateTerminated
}

// release drops the session's registry state: subscriptions, the connection
// table entry and the login slot. Safe to call more than once.
func (e *Engine) release() {
	e.subs = make(map[string]string)
	e.reg.Disconnect(e.connID)
}

func (e *Engine) reply(f *frame.Frame) {
	e.reg.Unicast(e.connID, f)
}

func (e *Engine) receipt(id string) {
	if id == "" {
		return
	}
	e.reply(frame.New(frame.CmdReceipt, nil, frame.H(frame.HdrReceiptID, id)))
}
