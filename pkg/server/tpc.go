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

// tpcStrategy serves each connection with one dedicated, long-lived
// goroutine looping over blocking reads. Connections are fully independent;
// the registry is the only shared mutable state.
type tpcStrategy struct {
	srv *Server
}

func (st *tpcStrategy) start(s *Server) {
	st.srv = s
}

func (st *tpcStrategy) serve(c *conn) {
	st.srv.wg.Add(1)
	go func() {
		defer st.srv.wg.Done()
		buf := make([]byte, readBufferSize)
		for {
			n, err := c.transport.Read(buf)
			if n > 0 && c.processChunk(buf[:n]) {
				return
			}
			if err != nil {
				c.close()
				return
			}
		}
	}()
}
