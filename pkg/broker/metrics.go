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

package broker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/reason"
)

const subsystem = "secretfed_broker"

var (
	exchangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "exchanges_total",
		Help:      "Number of credential exchanges with a trust service",
	}, []string{"kind", "reason"})

	exchangeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "exchange_duration_seconds",
		Help:      "Duration of credential exchanges including retries",
	}, []string{"kind"})

	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "cache_hits_total",
		Help:      "Number of credential requests served from the cache",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "cache_misses_total",
		Help:      "Number of credential requests that needed an exchange",
	})

	refreshFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "refresh_failures_total",
		Help:      "Number of failed proactive credential refreshes",
	}, []string{"kind"})

	cachedCredentials = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "cached_credentials",
		Help:      "Number of credentials currently cached",
	})
)

func observeExchange(kind sfv1alpha1.RoleKind, start, end time.Time, err error) {
	code := "Success"
	if err != nil {
		code = string(reason.Of(err))
	}
	exchangesTotal.WithLabelValues(string(kind), code).Inc()
	exchangeDuration.WithLabelValues(string(kind)).Observe(end.Sub(start).Seconds())
}

func init() {
	metrics.Registry.MustRegister(exchangesTotal, exchangeDuration, cacheHits, cacheMisses, refreshFailures, cachedCredentials)
}
