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

// SecretStoreBindingRef points to a SecretStoreBinding in the same namespace.
type SecretStoreBindingRef struct {
	// Name of the SecretStoreBinding resource
	// +kubebuilder:validation:MinLength:=1
	// +kubebuilder:validation:MaxLength:=253
	Name string `json:"name"`
}

// RemoteRef identifies the secret in the remote store.
type RemoteRef struct {
	// Key is the name or path of the remote secret.
	// +kubebuilder:validation:MinLength:=1
	Key string `json:"key"`

	// Version of the remote secret. Empty means the latest version.
	// +optional
	Version string `json:"version,omitempty"`
}

// CreationPolicy defines how the controller treats the target Secret.
// +kubebuilder:validation:Enum=Owner;Merge
type CreationPolicy string

const (
	// CreatePolicyOwner creates the Secret, sets .metadata.ownerReferences to the
	// SecretRequest and deletes the Secret when the SecretRequest is deleted.
	CreatePolicyOwner CreationPolicy = "Owner"

	// CreatePolicyMerge only upserts the declared keys into the Secret.
	// The Secret itself is never deleted.
	CreatePolicyMerge CreationPolicy = "Merge"
)

// SecretRequestTarget describes the Secret the controller writes to.
type SecretRequestTarget struct {
	// Name of the Secret. Defaults to the SecretRequest name.
	// +optional
	Name string `json:"name,omitempty"`

	// +optional
	// +kubebuilder:default="Owner"
	CreationPolicy CreationPolicy `json:"creationPolicy,omitempty"`
}

// SecretRequestData maps one property of the remote payload to one Secret key.
type SecretRequestData struct {
	// TargetKey is the key in the target Secret. Must be unique within the request.
	// +kubebuilder:validation:MinLength:=1
	// +kubebuilder:validation:Pattern:=^[-._a-zA-Z0-9]+$
	TargetKey string `json:"targetKey"`

	// RemoteProperty is a gjson path into the remote payload.
	// Empty means the whole payload.
	// +optional
	RemoteProperty string `json:"remoteProperty,omitempty"`
}

// SecretRequestSpec defines the desired state of SecretRequest.
type SecretRequestSpec struct {
	SourceStoreRef SecretStoreBindingRef `json:"sourceStoreRef"`

	RemoteRef RemoteRef `json:"remoteRef"`

	// RefreshInterval is the amount of time before the values are read again from the remote store.
	// May be set to zero to fetch the value once per spec change.
	// +kubebuilder:default="1h"
	// +optional
	RefreshInterval *metav1.Duration `json:"refreshInterval,omitempty"`

	// ServiceAccountName is the workload identity used for credential federation.
	// +kubebuilder:default="default"
	// +optional
	ServiceAccountName string `json:"serviceAccountName,omitempty"`

	// +optional
	Target SecretRequestTarget `json:"target,omitempty"`

	// +listType=map
	// +listMapKey=targetKey
	// +kubebuilder:validation:MinItems:=1
	Data []SecretRequestData `json:"data"`
}

// SecretRequestPhase is the coarse lifecycle state of a SecretRequest.
type SecretRequestPhase string

const (
	PhasePending SecretRequestPhase = "Pending"
	PhaseSyncing SecretRequestPhase = "Syncing"
	PhaseSynced  SecretRequestPhase = "Synced"
	PhaseFailed  SecretRequestPhase = "Failed"
)

// SecretRequestConditionType is the type of a SecretRequest condition.
type SecretRequestConditionType string

const (
	SecretRequestReady SecretRequestConditionType = "Ready"
)

const (
	// ConditionReasonSecretSynced indicates that the secret was synced.
	ConditionReasonSecretSynced = "SecretSynced"
	// ConditionReasonSecretSyncedError indicates that there was an error syncing the secret.
	ConditionReasonSecretSyncedError = "SecretSyncedError"
	// ConditionReasonSecretDeleted indicates that the target secret was deleted.
	ConditionReasonSecretDeleted = "SecretDeleted"

	ReasonCreated           = "Created"
	ReasonUpdated           = "Updated"
	ReasonDeleted           = "Deleted"
	ReasonOwnershipConflict = "OwnershipConflict"
	ReasonSyncFailed        = "SyncFailed"
)

// SecretRequestStatusCondition is a condition on a SecretRequest.
type SecretRequestStatusCondition struct {
	Type   SecretRequestConditionType `json:"type"`
	Status corev1.ConditionStatus     `json:"status"`

	// +optional
	Reason string `json:"reason,omitempty"`

	// +optional
	Message string `json:"message,omitempty"`

	// +optional
	LastTransitionTime metav1.Time `json:"lastTransitionTime,omitempty"`
}

// SyncError is the last error observed while syncing.
type SyncError struct {
	// Reason is a stable, machine readable code such as AccessDenied or MappingNotFound.
	Reason string `json:"reason"`

	// +optional
	Message string `json:"message,omitempty"`
}

// SecretRequestStatus defines the observed state of SecretRequest.
type SecretRequestStatus struct {
	// +optional
	Phase SecretRequestPhase `json:"phase,omitempty"`

	// +nullable
	// +optional
	LastSyncTime *metav1.Time `json:"lastSyncTime,omitempty"`

	// +nullable
	// +optional
	NextSyncTime *metav1.Time `json:"nextSyncTime,omitempty"`

	// +optional
	LastError *SyncError `json:"lastError,omitempty"`

	// SyncedResourceVersion keeps track of the last synced version.
	// +optional
	SyncedResourceVersion string `json:"syncedResourceVersion,omitempty"`

	// ObservedBindingGeneration is the generation of the SecretStoreBinding used for the last sync.
	// +optional
	ObservedBindingGeneration int64 `json:"observedBindingGeneration,omitempty"`

	// FailureCount is the number of consecutive transient failures in the current cycle.
	// +optional
	FailureCount int32 `json:"failureCount,omitempty"`

	// +optional
	Conditions []SecretRequestStatusCondition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,categories={secretfed},shortName=sreq
// +kubebuilder:printcolumn:name="Store",type=string,JSONPath=`.spec.sourceStoreRef.name`
// +kubebuilder:printcolumn:name="Refresh Interval",type=string,JSONPath=`.spec.refreshInterval`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Reason",type=string,JSONPath=`.status.lastError.reason`

// SecretRequest mirrors one remote secret into a Kubernetes Secret.
type SecretRequest struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   SecretRequestSpec   `json:"spec,omitempty"`
	Status SecretRequestStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// SecretRequestList contains a list of SecretRequest resources.
type SecretRequestList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []SecretRequest `json:"items"`
}

const (
	// AnnotationForceSync retriggers a sync when its value changes.
	AnnotationForceSync = "secretfed.io/force-sync"

	// AnnotationDataHash is the hash of the data the controller last wrote to a Secret.
	AnnotationDataHash = "secretfed.io/data-hash"

	// AnnotationKeyOwners records which SecretRequest owns each key of a Secret.
	AnnotationKeyOwners = "secretfed.io/key-owners"

	// LabelManaged marks Secrets written by the controller.
	LabelManaged      = "secretfed.io/managed"
	LabelManagedValue = "true"

	// DefaultServiceAccountName is used when spec.serviceAccountName is empty.
	DefaultServiceAccountName = "default"
)

// TargetName returns the name of the Secret this request writes to.
func (r *SecretRequest) TargetName() string {
	if r.Spec.Target.Name != "" {
		return r.Spec.Target.Name
	}
	return r.Name
}

// CreationPolicy returns the effective creation policy.
func (r *SecretRequest) CreationPolicy() CreationPolicy {
	if r.Spec.Target.CreationPolicy == "" {
		return CreatePolicyOwner
	}
	return r.Spec.Target.CreationPolicy
}

// ServiceAccount returns the effective workload service account.
func (r *SecretRequest) ServiceAccount() string {
	if r.Spec.ServiceAccountName == "" {
		return DefaultServiceAccountName
	}
	return r.Spec.ServiceAccountName
}

// OwnerKey identifies the request in ownership records.
func (r *SecretRequest) OwnerKey() string {
	return r.Namespace + "/" + r.Name
}
