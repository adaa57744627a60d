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


package secretstorebinding

import (
	"github.com/prometheus/client_golang/prometheus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	ctrlmetrics "github.com/secretfed/secretfed/pkg/controllers/metrics"
)

const (
	// BindingSubsystem is the subsystem name for SecretStoreBinding metrics.
	BindingSubsystem = "secretstorebinding"
	// ReferencedByKey is the key for the number of referencing requests.
	ReferencedByKey = "referenced_by"
)

var gaugeVecMetrics = map[string]*prometheus.GaugeVec{}

// SetUpMetrics initializes the metrics for the SecretStoreBinding controller.
func SetUpMetrics() {
	duration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: BindingSubsystem,
		Name:      ctrlmetrics.ReconcileDurationKey,
		Help:      "The duration time to reconcile the SecretStoreBinding",
	}, ctrlmetrics.NonConditionMetricLabelNames)

	condition := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: BindingSubsystem,
		Name:      ctrlmetrics.StatusConditionKey,
		Help:      "The status condition of a specific SecretStoreBinding",
	}, ctrlmetrics.ConditionMetricLabelNames)

	referencedBy := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: BindingSubsystem,
		Name:      ReferencedByKey,
		Help:      "The number of SecretRequests using a SecretStoreBinding",
	}, ctrlmetrics.NonConditionMetricLabelNames)

	metrics.Registry.MustRegister(duration, condition, referencedBy)

	gaugeVecMetrics = map[string]*prometheus.GaugeVec{
		ctrlmetrics.ReconcileDurationKey: duration,
		ctrlmetrics.StatusConditionKey:   condition,
		ReferencedByKey:                  referencedBy,
	}
}

// GetGaugeVec returns the GaugeVec for the given key.
func GetGaugeVec(key string) *prometheus.GaugeVec {
	return gaugeVecMetrics[key]
}

// RemoveMetrics deletes all metrics published by the resource.
func RemoveMetrics(namespace, name string) {
	for _, vec := range gaugeVecMetrics {
		vec.DeletePartialMatch(map[string]string{
			"namespace": namespace,
			"name":      name,
		})
	}
}

func updateStatusCondition(b *sfv1alpha1.SecretStoreBinding, condition sfv1alpha1.SecretStoreBindingStatusCondition) {
	vec := GetGaugeVec(ctrlmetrics.StatusConditionKey)
	if vec == nil {
		return
	}
	opposite := corev1.ConditionTrue
	if condition.Status == corev1.ConditionTrue {
		opposite = corev1.ConditionFalse
	}
	vec.With(ctrlmetrics.ConditionLabels(b, string(condition.Type), string(opposite))).Set(0)
	vec.With(ctrlmetrics.ConditionLabels(b, string(condition.Type), string(condition.Status))).Set(1)
}

func observe(b *sfv1alpha1.SecretStoreBinding, key string, value float64) {
	if vec := GetGaugeVec(key); vec != nil {
		vec.With(ctrlmetrics.ObjectLabels(b)).Set(value)
	}
}

// NewSecretStoreBindingCondition a set of default options for creating a binding condition.
func NewSecretStoreBindingCondition(condType sfv1alpha1.SecretStoreBindingConditionType, status corev1.ConditionStatus, reason, message string) *sfv1alpha1.SecretStoreBindingStatusCondition {
	return &sfv1alpha1.SecretStoreBindingStatusCondition{
		Type:               condType,
		Status:             status,
		LastTransitionTime: metav1.Now(),
		Reason:             reason,
		Message:            message,
	}
}

// GetSecretStoreBindingCondition returns the condition with the provided type.
func GetSecretStoreBindingCondition(status sfv1alpha1.SecretStoreBindingStatus, condType sfv1alpha1.SecretStoreBindingConditionType) *sfv1alpha1.SecretStoreBindingStatusCondition {
	for i := range status.Conditions {
		if status.Conditions[i].Type == condType {
			c := status.Conditions[i]
			return &c
		}
	}
	return nil
}

// SetSecretStoreBindingCondition updates the binding to include the provided condition.
func SetSecretStoreBindingCondition(b *sfv1alpha1.SecretStoreBinding, condition sfv1alpha1.SecretStoreBindingStatusCondition) {
	updateStatusCondition(b, condition)

	current := GetSecretStoreBindingCondition(b.Status, condition.Type)
	if current != nil && current.Status == condition.Status &&
		current.Reason == condition.Reason && current.Message == condition.Message {
		return
	}
	if current != nil && current.Status == condition.Status {
		condition.LastTransitionTime = current.LastTransitionTime
	}
	conditions := make([]sfv1alpha1.SecretStoreBindingStatusCondition, 0, len(b.Status.Conditions)+1)
	for _, c := range b.Status.Conditions {
		if c.Type != condition.Type {
			conditions = append(conditions, c)
		}
	}
	b.Status.Conditions = append(conditions, condition)
}
