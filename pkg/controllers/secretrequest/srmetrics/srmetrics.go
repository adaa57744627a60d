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


package srmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	ctrlmetrics "github.com/secretfed/secretfed/pkg/controllers/metrics"
)

const (
	SecretRequestSubsystem = "secretrequest"
	SyncCallsKey           = "sync_calls_total"
	SyncCallsErrorKey      = "sync_calls_error"
	SyncInFlightKey        = "sync_in_flight"
)

var (
	counterVecMetrics = map[string]*prometheus.CounterVec{}
	gaugeVecMetrics   = map[string]*prometheus.GaugeVec{}
	inFlight          prometheus.Gauge
)

// SetUpMetrics is called at the root to set-up the metric logic using the
// config flags provided. ctrlmetrics.SetUpLabelNames must run first.
func SetUpMetrics() {
	syncCallsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: SecretRequestSubsystem,
		Name:      SyncCallsKey,
		Help:      "Total number of SecretRequest sync attempts",
	}, ctrlmetrics.NonConditionMetricLabelNames)

	syncCallsError := prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: SecretRequestSubsystem,
		Name:      SyncCallsErrorKey,
		Help:      "Total number of failed SecretRequest sync attempts by reason",
	}, append(append([]string{}, ctrlmetrics.NonConditionMetricLabelNames...), "reason"))

	condition := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: SecretRequestSubsystem,
		Name:      ctrlmetrics.StatusConditionKey,
		Help:      "The status condition of a specific SecretRequest",
	}, ctrlmetrics.ConditionMetricLabelNames)

	duration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: SecretRequestSubsystem,
		Name:      ctrlmetrics.ReconcileDurationKey,
		Help:      "The duration time to reconcile the SecretRequest",
	}, ctrlmetrics.NonConditionMetricLabelNames)

	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: SecretRequestSubsystem,
		Name:      SyncInFlightKey,
		Help:      "Number of syncs currently running",
	})

	metrics.Registry.MustRegister(syncCallsTotal, syncCallsError, condition, duration, inFlight)

	counterVecMetrics = map[string]*prometheus.CounterVec{
		SyncCallsKey:      syncCallsTotal,
		SyncCallsErrorKey: syncCallsError,
	}
	gaugeVecMetrics = map[string]*prometheus.GaugeVec{
		ctrlmetrics.StatusConditionKey:   condition,
		ctrlmetrics.ReconcileDurationKey: duration,
	}
}

func GetCounterVec(key string) *prometheus.CounterVec {
	return counterVecMetrics[key]
}

func GetGaugeVec(key string) *prometheus.GaugeVec {
	return gaugeVecMetrics[key]
}

// SyncStarted and SyncFinished track running syncs.
func SyncStarted() {
	if inFlight != nil {
		inFlight.Inc()
	}
}

func SyncFinished() {
	if inFlight != nil {
		inFlight.Dec()
	}
}

// ObserveError counts a failed sync.
func ObserveError(sr *sfv1alpha1.SecretRequest, reason string) {
	vec := GetCounterVec(SyncCallsErrorKey)
	if vec == nil {
		return
	}
	l := ctrlmetrics.ObjectLabels(sr)
	l["reason"] = reason
	vec.With(l).Inc()
}

// UpdateCondition publishes condition and zeroes the opposite status so a
// dashboard never shows both.
func UpdateCondition(sr *sfv1alpha1.SecretRequest, condition *sfv1alpha1.SecretRequestStatusCondition, value float64) {
	vec := GetGaugeVec(ctrlmetrics.StatusConditionKey)
	if vec == nil {
		return
	}
	if value > 0 {
		switch condition.Status {
		case corev1.ConditionTrue:
			vec.With(ctrlmetrics.ConditionLabels(sr, string(condition.Type), string(corev1.ConditionFalse))).Set(0)
		case corev1.ConditionFalse:
			vec.With(ctrlmetrics.ConditionLabels(sr, string(condition.Type), string(corev1.ConditionTrue))).Set(0)
		default:
		}
	}
	vec.With(ctrlmetrics.ConditionLabels(sr, string(condition.Type), string(condition.Status))).Set(value)
}

// RemoveMetrics deletes all metrics published by the resource.
func RemoveMetrics(namespace, name string) {
	match := map[string]string{"namespace": namespace, "name": name}
	for _, vec := range gaugeVecMetrics {
		vec.DeletePartialMatch(match)
	}
	for _, vec := range counterVecMetrics {
		vec.DeletePartialMatch(match)
	}
}
