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

// package metrics provides Prometheus metrics for the broker.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsTotal counts every accepted connection.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stomp_go_connections_total",
		Help: "The total number of connections accepted by the broker.",
	})

	// ConnectionsActive tracks the number of currently open connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stomp_go_connections_active",
		Help: "The number of currently open connections.",
	})

	// FramesReceivedTotal counts processed frames by command.
	FramesReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stomp_go_frames_received_total",
		Help: "The total number of frames processed, labeled by command.",
	},
		[]string{"command"},
	)

	// MessagesDeliveredTotal counts MESSAGE frames delivered to subscribers.
	MessagesDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stomp_go_messages_delivered_total",
		Help: "The total number of MESSAGE frames delivered to subscribers.",
	})

	// ProtocolErrorsTotal counts terminal protocol errors by kind.
	ProtocolErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stomp_go_protocol_errors_total",
		Help: "The total number of protocol errors, labeled by kind.",
	},
		[]string{"kind"},
	)
)

// Serve starts an HTTP server to expose the Prometheus metrics.
func Serve(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	log.Printf("Metrics server listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logFatalf("Metrics server failed: %v", err)
	}
}

// logFatalf can be replaced by tests to prevent process exit.
var logFatalf = log.Fatalf
