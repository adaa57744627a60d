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

package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ProviderTag selects the remote store implementation.
// +kubebuilder:validation:Enum=aws-secretsmanager;aws-parameterstore;gcp-secretmanager;azure-keyvault;fake
type ProviderTag string

const (
	ProviderAWSSecretsManager ProviderTag = "aws-secretsmanager"
	ProviderAWSParameterStore ProviderTag = "aws-parameterstore"
	ProviderGCPSecretManager  ProviderTag = "gcp-secretmanager"
	ProviderAzureKeyVault     ProviderTag = "azure-keyvault"
	ProviderFake              ProviderTag = "fake"
)

// SecretKeySelector selects a key of a Secret in the binding's namespace.
type SecretKeySelector struct {
	// +kubebuilder:validation:MinLength:=1
	Name string `json:"name"`
}

// IdentityRef references explicit (non-federated) credentials.
// The referenced Secret carries provider specific keys, e.g.
// access-key-id/secret-access-key for AWS or token for bearer based stores.
type IdentityRef struct {
	SecretRef SecretKeySelector `json:"secretRef"`
}

// RateLimit configures the token bucket shared by all requests using a binding.
type RateLimit struct {
	// +kubebuilder:validation:Minimum=1
	QPS int32 `json:"qps"`

	// +kubebuilder:validation:Minimum=1
	Burst int32 `json:"burst"`
}

// SecretStoreBindingSpec defines the desired state of SecretStoreBinding.
type SecretStoreBindingSpec struct {
	Provider ProviderTag `json:"provider"`

	// +optional
	Region string `json:"region,omitempty"`

	// Endpoint overrides the provider endpoint. For azure-keyvault this is the vault URL,
	// for gcp-secretmanager it is the project ID.
	// +optional
	Endpoint string `json:"endpoint,omitempty"`

	// IdentityRef disables federation and uses explicit credentials instead.
	// +optional
	IdentityRef *IdentityRef `json:"identityRef,omitempty"`

	// +optional
	RateLimit *RateLimit `json:"rateLimit,omitempty"`
}

// SecretStoreBindingConditionType is the type of a binding condition.
type SecretStoreBindingConditionType string

const (
	SecretStoreBindingReady SecretStoreBindingConditionType = "Ready"

	ReasonInvalidProvider = "InvalidProviderConfig"
	ReasonStoreValid      = "Valid"
	ReasonStoreInUse      = "StoreInUse"
)

// SecretStoreBindingStatusCondition is a condition on a SecretStoreBinding.
type SecretStoreBindingStatusCondition struct {
	Type   SecretStoreBindingConditionType `json:"type"`
	Status corev1.ConditionStatus          `json:"status"`

	// +optional
	Reason string `json:"reason,omitempty"`

	// +optional
	Message string `json:"message,omitempty"`

	// +optional
	LastTransitionTime metav1.Time `json:"lastTransitionTime,omitempty"`
}

// SecretStoreBindingStatus defines the observed state of SecretStoreBinding.
type SecretStoreBindingStatus struct {
	// +optional
	Conditions []SecretStoreBindingStatusCondition `json:"conditions,omitempty"`

	// ReferencedBy is the number of SecretRequests using this binding.
	// +optional
	ReferencedBy int32 `json:"referencedBy,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,categories={secretfed},shortName=ssb
// +kubebuilder:printcolumn:name="Provider",type=string,JSONPath=`.spec.provider`
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`
// +kubebuilder:printcolumn:name="Used By",type=integer,JSONPath=`.status.referencedBy`

// SecretStoreBinding names a remote store and how to reach it.
type SecretStoreBinding struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   SecretStoreBindingSpec   `json:"spec,omitempty"`
	Status SecretStoreBindingStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// SecretStoreBindingList contains a list of SecretStoreBinding resources.
type SecretStoreBindingList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []SecretStoreBinding `json:"items"`
}

// Federated reports whether the binding relies on the credential broker.
func (b *SecretStoreBinding) Federated() bool {
	return b.Spec.IdentityRef == nil
}
