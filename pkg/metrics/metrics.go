/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics records calls made towards remote stores and trust services.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/secretfed/secretfed/pkg/constants"
)

const (
	Subsystem = "secretfed"

	providerAPICalls    = "provider_api_calls_count"
	providerAPIDuration = "provider_api_call_duration_seconds"
)

var (
	apiCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: Subsystem,
		Name:      providerAPICalls,
		Help:      "Number of API calls towards the secret provider or trust service",
	}, []string{"provider", "call", "status"})

	apiCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: Subsystem,
		Name:      providerAPIDuration,
		Help:      "Latency of API calls towards the secret provider or trust service",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"provider", "call"})
)

// ObserveAPICall records the outcome of a single remote call.
func ObserveAPICall(provider, call string, err error) {
	apiCallsTotal.WithLabelValues(provider, call, deriveStatus(err)).Inc()
}

// ObserveAPICallSince records the outcome and latency of a remote call started at start.
func ObserveAPICallSince(provider, call string, start time.Time, err error) {
	ObserveAPICall(provider, call, err)
	apiCallDuration.WithLabelValues(provider, call).Observe(time.Since(start).Seconds())
}

func deriveStatus(err error) string {
	if err != nil {
		return constants.StatusError
	}
	return constants.StatusSuccess
}

func init() {
	metrics.Registry.MustRegister(apiCallsTotal, apiCallDuration)
}
