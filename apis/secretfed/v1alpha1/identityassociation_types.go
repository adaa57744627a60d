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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// RoleKind is the trust service a role lives in.
// +kubebuilder:validation:Enum=aws;gcp;azure;fake
type RoleKind string

const (
	RoleKindAWS   RoleKind = "aws"
	RoleKindGCP   RoleKind = "gcp"
	RoleKindAzure RoleKind = "azure"
	RoleKindFake  RoleKind = "fake"
)

const (
	// ReasonSuperseded is emitted on an association a newer one replaced.
	ReasonSuperseded = "Superseded"
	// ReasonActivated is emitted when an association becomes the active one.
	ReasonActivated = "Activated"
)

// RoleRef identifies a target credential role.
type RoleRef struct {
	Kind RoleKind `json:"kind"`

	// Name is the role ARN for aws, the workload identity provider audience for gcp
	// or "tenantID/clientID" for azure.
	// +kubebuilder:validation:MinLength:=1
	Name string `json:"name"`
}

// IdentityAssociationSpec maps a workload identity to a role.
type IdentityAssociationSpec struct {
	// +kubebuilder:validation:MinLength:=1
	Namespace string `json:"namespace"`

	// +kubebuilder:validation:MinLength:=1
	ServiceAccount string `json:"serviceAccount"`

	RoleRef RoleRef `json:"roleRef"`
}

// IdentityAssociationStatus defines the observed state of IdentityAssociation.
type IdentityAssociationStatus struct {
	// Active is false when a newer association for the same workload identity exists.
	// +optional
	Active bool `json:"active"`

	// +optional
	SupersededBy string `json:"supersededBy,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Cluster,categories={secretfed},shortName=ia
// +kubebuilder:printcolumn:name="Namespace",type=string,JSONPath=`.spec.namespace`
// +kubebuilder:printcolumn:name="ServiceAccount",type=string,JSONPath=`.spec.serviceAccount`
// +kubebuilder:printcolumn:name="Role",type=string,JSONPath=`.spec.roleRef.name`
// +kubebuilder:printcolumn:name="Active",type=boolean,JSONPath=`.status.active`

// IdentityAssociation maps a workload identity to a target credential role.
type IdentityAssociation struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   IdentityAssociationSpec   `json:"spec,omitempty"`
	Status IdentityAssociationStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// IdentityAssociationList contains a list of IdentityAssociation resources.
type IdentityAssociationList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []IdentityAssociation `json:"items"`
}

// WorkloadKey returns the namespace/serviceAccount the association applies to.
func (a *IdentityAssociation) WorkloadKey() string {
	return a.Spec.Namespace + "/" + a.Spec.ServiceAccount
}

// Newer reports whether a wins over b under last-write-wins.
// Ties on creation time are broken by name so the outcome is stable.
func (a *IdentityAssociation) Newer(b *IdentityAssociation) bool {
	if !a.CreationTimestamp.Equal(&b.CreationTimestamp) {
		return b.CreationTimestamp.Before(&a.CreationTimestamp)
	}
	return a.Name > b.Name
}
