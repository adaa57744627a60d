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


package secretrequest

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/controllers/secretrequest/srmetrics"
)

// NewSecretRequestCondition a set of default options for creating a SecretRequest Condition.
func NewSecretRequestCondition(condType sfv1alpha1.SecretRequestConditionType, status corev1.ConditionStatus, reason, message string) *sfv1alpha1.SecretRequestStatusCondition {
	return &sfv1alpha1.SecretRequestStatusCondition{
		Type:               condType,
		Status:             status,
		LastTransitionTime: metav1.Now(),
		Reason:             reason,
		Message:            message,
	}
}

// GetSecretRequestCondition returns the condition with the provided type.
func GetSecretRequestCondition(status sfv1alpha1.SecretRequestStatus, condType sfv1alpha1.SecretRequestConditionType) *sfv1alpha1.SecretRequestStatusCondition {
	for i := range status.Conditions {
		c := status.Conditions[i]
		if c.Type == condType {
			return &c
		}
	}
	return nil
}

// SetSecretRequestCondition updates the request to include the provided condition.
// LastTransitionTime only moves when the status flips.
func SetSecretRequestCondition(sr *sfv1alpha1.SecretRequest, condition sfv1alpha1.SecretRequestStatusCondition) {
	current := GetSecretRequestCondition(sr.Status, condition.Type)
	if current != nil && current.Status == condition.Status {
		condition.LastTransitionTime = current.LastTransitionTime
	}

	conditions := make([]sfv1alpha1.SecretRequestStatusCondition, 0, len(sr.Status.Conditions)+1)
	for _, c := range sr.Status.Conditions {
		if c.Type != condition.Type {
			conditions = append(conditions, c)
		}
	}
	sr.Status.Conditions = append(conditions, condition)

	srmetrics.UpdateCondition(sr, &condition, 1.0)
}
