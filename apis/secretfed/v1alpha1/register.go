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

// Package v1alpha1 contains the secretfed.io/v1alpha1 API types.
// +kubebuilder:object:generate=true
// +groupName=secretfed.io
package v1alpha1

import (
	"reflect"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/scheme"
)

// Package type metadata.
const (
	Group   = "secretfed.io"
	Version = "v1alpha1"
)

var (
	// SchemeGroupVersion is group version used to register these objects.
	SchemeGroupVersion = schema.GroupVersion{Group: Group, Version: Version}

	// SchemeBuilder is used to add go types to the GroupVersionKind scheme.
	SchemeBuilder = &scheme.Builder{GroupVersion: SchemeGroupVersion}
	// AddToScheme adds the types in this group-version to the given scheme.
	AddToScheme = SchemeBuilder.AddToScheme
)

var (
	// SecretRequestKind is the kind name for SecretRequest resources.
	SecretRequestKind = reflect.TypeOf(SecretRequest{}).Name()
	// SecretRequestGroupKind is the group kind for SecretRequest resources.
	SecretRequestGroupKind = schema.GroupKind{Group: Group, Kind: SecretRequestKind}.String()
	// SecretRequestGroupVersionKind is the group version kind for SecretRequest resources.
	SecretRequestGroupVersionKind = SchemeGroupVersion.WithKind(SecretRequestKind)

	// SecretStoreBindingKind is the kind name for SecretStoreBinding resources.
	SecretStoreBindingKind = reflect.TypeOf(SecretStoreBinding{}).Name()
	// SecretStoreBindingGroupVersionKind is the group version kind for SecretStoreBinding resources.
	SecretStoreBindingGroupVersionKind = SchemeGroupVersion.WithKind(SecretStoreBindingKind)

	// IdentityAssociationKind is the kind name for IdentityAssociation resources.
	IdentityAssociationKind = reflect.TypeOf(IdentityAssociation{}).Name()
	// IdentityAssociationGroupVersionKind is the group version kind for IdentityAssociation resources.
	IdentityAssociationGroupVersionKind = SchemeGroupVersion.WithKind(IdentityAssociationKind)
)

func init() {
	SchemeBuilder.Register(&SecretRequest{}, &SecretRequestList{})
	SchemeBuilder.Register(&SecretStoreBinding{}, &SecretStoreBindingList{})
	SchemeBuilder.Register(&IdentityAssociation{}, &IdentityAssociationList{})
}
