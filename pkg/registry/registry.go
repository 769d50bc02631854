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

// Package registry tracks the process-wide shared state of the broker: live
// connections and their send capability, channel subscriber sets, and the
// one-active-connection-per-username login slots. All operations are safe
// under arbitrary interleavings from every connection's protocol engine.
//
// Locking is per key: each channel's subscriber set and each username's
// login slot carries its own mutex, so operations on different channels or
// usernames never serialize against each other.
package registry

import (
	"sync"
	"sync/atomic"

	"github.com/turtacn/stomp-go/pkg/auth"
	"github.com/turtacn/stomp-go/pkg/frame"
)

// Sender is the send capability of a live connection. Send returns false
// once the connection is gone and never panics, so sends racing a
// disconnect are tolerated. Send applies backpressure: it may block while
// the recipient's outbound queue is full, until the consumer drains it or
// the connection closes.
type Sender interface {
	Send(f *frame.Frame) bool
}

// LoginResult is the outcome of TryLogin.
type LoginResult int

const (
	// LoginOK means the username is now bound to the connection.
	LoginOK LoginResult = iota
	// LoginWrongPassword means the username is known with a different passcode.
	LoginWrongPassword
	// LoginAlreadyLoggedIn means another live connection holds the username.
	LoginAlreadyLoggedIn
)

// channelEntry is one channel's subscriber set: connection id to that
// connection's subscription id.
type channelEntry struct {
	mu   sync.RWMutex
	subs map[uint64]string
}

// userSlot is one username's login slot. connID 0 means free; real
// connection ids start at 1.
type userSlot struct {
	mu     sync.Mutex
	connID uint64
}

// subscriber is one (connection, subscription) pair in a broadcast snapshot.
type subscriber struct {
	connID uint64
	subID  string
}

// Registry is the connection/subscription registry. Construct one per broker
// with New and share it by reference with every protocol engine instance.
type Registry struct {
	creds *auth.Store

	conns    sync.Map // uint64 -> Sender
	channels sync.Map // string -> *channelEntry
	users    sync.Map // string -> *userSlot
	logins   sync.Map // uint64 -> string (reverse index for Logout)

	msgID atomic.Uint64
}

// New creates a registry whose TryLogin verifies passcodes against creds.
func New(creds *auth.Store) *Registry {
	return &Registry{creds: creds}
}

// Register makes a connection's send capability available for unicast and
// broadcast delivery.
func (r *Registry) Register(connID uint64, s Sender) {
	r.conns.Store(connID, s)
}

// Unicast delivers a frame to one connection. It returns false, silently,
// when the target no longer exists.
func (r *Registry) Unicast(connID uint64, f *frame.Frame) bool {
	v, ok := r.conns.Load(connID)
	if !ok {
		return false
	}
	return v.(Sender).Send(f)
}

// Broadcast delivers a personalized copy of a frame to every subscriber of a
// channel: the subscription header is rewritten per recipient. The subscriber
// set is snapshotted once at call time; a removal that completes before the
// snapshot is a barrier for this broadcast, while sends already in flight may
// still reach a just-removed connection. Returns the number of deliveries.
func (r *Registry) Broadcast(channel string, f *frame.Frame) int {
	v, ok := r.channels.Load(channel)
	if !ok {
		return 0
	}
	entry := v.(*channelEntry)

	entry.mu.RLock()
	snapshot := make([]subscriber, 0, len(entry.subs))
	for connID, subID := range entry.subs {
		snapshot = append(snapshot, subscriber{connID: connID, subID: subID})
	}
	entry.mu.RUnlock()

	delivered := 0
	for _, sub := range snapshot {
		if r.Unicast(sub.connID, f.WithLeadingHeader(frame.HdrSubscription, sub.subID)) {
			delivered++
		}
	}
	return delivered
}

// Subscribe records (connID, subID) under a channel, creating the channel
// entry on first use.
func (r *Registry) Subscribe(channel string, connID uint64, subID string) {
	entry := r.channel(channel)
	entry.mu.Lock()
	entry.subs[connID] = subID
	entry.mu.Unlock()
}

// Unsubscribe removes a connection from a channel's subscriber set. Removing
// an absent subscription is a no-op.
func (r *Registry) Unsubscribe(channel string, connID uint64) {
	v, ok := r.channels.Load(channel)
	if !ok {
		return
	}
	entry := v.(*channelEntry)
	entry.mu.Lock()
	delete(entry.subs, connID)
	entry.mu.Unlock()
}

// Subscribers returns the channel's current (connID -> subID) set.
func (r *Registry) Subscribers(channel string) map[uint64]string {
	v, ok := r.channels.Load(channel)
	if !ok {
		return nil
	}
	entry := v.(*channelEntry)
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	out := make(map[uint64]string, len(entry.subs))
	for connID, subID := range entry.subs {
		out[connID] = subID
	}
	return out
}

// TryLogin attempts to bind a username to a connection. It is atomic per
// username: of N racing attempts for the same free username at most one
// returns LoginOK. The passcode is verified before the already-logged-in
// check, so a wrong passcode reports LoginWrongPassword even when the
// username is currently bound.
func (r *Registry) TryLogin(username, passcode string, connID uint64) LoginResult {
	slot := r.userSlot(username)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if err := r.creds.Check(username, passcode); err != nil {
		return LoginWrongPassword
	}
	if slot.connID != 0 {
		return LoginAlreadyLoggedIn
	}
	slot.connID = connID
	r.logins.Store(connID, username)
	return LoginOK
}

// Logout frees the username slot held by a connection, if any. Idempotent.
func (r *Registry) Logout(connID uint64) {
	v, ok := r.logins.LoadAndDelete(connID)
	if !ok {
		return
	}
	slot := r.userSlot(v.(string))
	slot.mu.Lock()
	if slot.connID == connID {
		slot.connID = 0
	}
	slot.mu.Unlock()
}

// Disconnect removes a connection from the connection table, from every
// channel's subscriber set, and from the username map if logged in.
// Idempotent; once it returns, no subsequently-issued broadcast targets the
// connection.
func (r *Registry) Disconnect(connID uint64) {
	r.conns.Delete(connID)
	r.channels.Range(func(_, v any) bool {
		entry := v.(*channelEntry)
		entry.mu.Lock()
		delete(entry.subs, connID)
		entry.mu.Unlock()
		return true
	})
	r.Logout(connID)
}

// NextMessageID returns the next globally unique, strictly increasing
// message identifier. Identifiers are never reused.
func (r *Registry) NextMessageID() uint64 {
	return r.msgID.Add(1)
}

// channel returns the entry for a channel, creating it on first use.
// Entries persist once created; an empty subscriber set just stops
// receiving broadcasts.
func (r *Registry) channel(name string) *channelEntry {
	if v, ok := r.channels.Load(name); ok {
		return v.(*channelEntry)
	}
	v, _ := r.channels.LoadOrStore(name, &channelEntry{subs: make(map[uint64]string)})
	return v.(*channelEntry)
}

// userSlot returns the login slot for a username, creating it on first use.
func (r *Registry) userSlot(username string) *userSlot {
	if v, ok := r.users.Load(username); ok {
		return v.(*userSlot)
	}
	v, _ := r.users.LoadOrStore(username, &userSlot{})
	return v.(*userSlot)
}
