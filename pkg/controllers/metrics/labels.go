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


// Package metrics holds the label handling shared by the controllers' collectors.
package metrics

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	StatusConditionKey   = "status_condition"
	ReconcileDurationKey = "reconcile_duration"
)

var (
	// NonConditionMetricLabelNames label series that describe an object.
	NonConditionMetricLabelNames = []string{"name", "namespace"}
	// ConditionMetricLabelNames label series that describe a condition of an object.
	ConditionMetricLabelNames = []string{"name", "namespace", "condition", "status"}

	kubeStandardLabelNames = []string{
		"app_kubernetes_io_name", "app_kubernetes_io_instance",
		"app_kubernetes_io_version", "app_kubernetes_io_component",
		"app_kubernetes_io_part_of", "app_kubernetes_io_managed_by",
	}

	invalidLabelChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)
)

// SetUpLabelNames must run before any collector is created.
// With addKubeStandardLabels the app.kubernetes.io labels of an object are
// copied onto its series.
func SetUpLabelNames(addKubeStandardLabels bool) {
	NonConditionMetricLabelNames = []string{"name", "namespace"}
	ConditionMetricLabelNames = []string{"name", "namespace", "condition", "status"}
	if addKubeStandardLabels {
		NonConditionMetricLabelNames = append(NonConditionMetricLabelNames, kubeStandardLabelNames...)
		ConditionMetricLabelNames = append(ConditionMetricLabelNames, kubeStandardLabelNames...)
	}
}

// RefineLabels returns a copy of base where every key also present in
// overrides is replaced. Keys unknown to base are ignored so a series never
// gets a label its collector was not declared with.
func RefineLabels(base prometheus.Labels, overrides map[string]string) prometheus.Labels {
	out := make(prometheus.Labels, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		clean := invalidLabelChars.ReplaceAllString(k, "_")
		if _, ok := out[clean]; ok {
			out[clean] = v
		}
	}
	return out
}

// ObjectLabels returns the non condition labels of obj.
func ObjectLabels(obj client.Object) prometheus.Labels {
	return NamedLabels(obj.GetNamespace(), obj.GetName(), obj.GetLabels())
}

// NamedLabels returns the non condition labels for an object that may no
// longer exist.
func NamedLabels(namespace, name string, objLabels map[string]string) prometheus.Labels {
	base := emptyLabels(NonConditionMetricLabelNames)
	refined := RefineLabels(base, objLabels)
	refined["name"] = name
	refined["namespace"] = namespace
	return refined
}

// ConditionLabels returns the condition labels of obj.
func ConditionLabels(obj client.Object, condition, status string) prometheus.Labels {
	refined := RefineLabels(emptyLabels(ConditionMetricLabelNames), obj.GetLabels())
	refined["name"] = obj.GetName()
	refined["namespace"] = obj.GetNamespace()
	refined["condition"] = condition
	refined["status"] = status
	return refined
}

func emptyLabels(names []string) prometheus.Labels {
	l := make(prometheus.Labels, len(names))
	for _, n := range names {
		l[n] = ""
	}
	return l
}
