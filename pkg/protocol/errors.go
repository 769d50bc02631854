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

package protocol

// Error summaries carried in the message header of ERROR frames. Every one
// of them is terminal for the connection: the peer sees exactly one ERROR
// frame and then the transport closes.
const (
	errMalformedFrame        = "Malformed Frame"
	errAccessDenied          = "Access Denied"
	errAlreadyLoggedIn       = "User already logged in"
	errWrongPassword         = "Wrong password"
	errDuplicateSubscription = "Duplicate subscription"
	errUnknownCommand        = "Unknown command"
)
