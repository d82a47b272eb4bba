// Copyright 2025 Athos
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

package guardian

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics
var (
	promDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athos_guardian_decisions_total",
			Help: "Total number of access and download decisions",
		},
		[]string{"resolver", "verdict", "tier"},
	)
	promDecisionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "athos_guardian_decision_duration_milliseconds",
			Help:    "Decision latency in milliseconds, repository call included",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"resolver"},
	)
	promRegistryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "athos_guardian_prohibited_entries",
			Help: "Enforced entries in the current prohibited-registry snapshot",
		},
	)
	promEventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athos_guardian_events_recorded_total",
			Help: "Navigation events accepted by the recorder",
		},
		[]string{"event_type"},
	)
	promRecorderDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "athos_guardian_recorder_dropped_total",
			Help: "Events dropped because the recorder queue was full",
		},
	)
)

func init() {
	// Register Prometheus metrics
	prometheus.MustRegister(promDecisionsTotal)
	prometheus.MustRegister(promDecisionDuration)
	prometheus.MustRegister(promRegistryEntries)
	prometheus.MustRegister(promEventsRecorded)
	prometheus.MustRegister(promRecorderDropped)
}
