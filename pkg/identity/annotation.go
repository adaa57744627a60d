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

package identity

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
)

const (
	// AnnotationAWSRoleARN is the IRSA role annotation on a ServiceAccount.
	AnnotationAWSRoleARN = "eks.amazonaws.com/role-arn"
	// AnnotationAzureClientID is the Azure workload identity client ID annotation.
	AnnotationAzureClientID = "azure.workload.identity/client-id"
	// AnnotationAzureTenantID is the Azure workload identity tenant ID annotation.
	AnnotationAzureTenantID = "azure.workload.identity/tenant-id"
)

// AnnotationStore resolves identities from well known ServiceAccount annotations.
type AnnotationStore struct {
	Reader client.Reader
}

// NewAnnotationStore returns a store reading ServiceAccounts through r.
func NewAnnotationStore(r client.Reader) *AnnotationStore {
	return &AnnotationStore{Reader: r}
}

func (a *AnnotationStore) Resolve(ctx context.Context, id WorkloadIdentity) (RoleRef, error) {
	var sa corev1.ServiceAccount
	err := a.Reader.Get(ctx, types.NamespacedName{Namespace: id.Namespace, Name: id.ServiceAccount}, &sa)
	if apierrors.IsNotFound(err) {
		return RoleRef{}, notMapped(id)
	}
	if err != nil {
		return RoleRef{}, fmt.Errorf("getting service account %s: %w", id, err)
	}
	if arn, ok := sa.Annotations[AnnotationAWSRoleARN]; ok && arn != "" {
		return RoleRef{Kind: sfv1alpha1.RoleKindAWS, Name: arn}, nil
	}
	clientID := sa.Annotations[AnnotationAzureClientID]
	tenantID := sa.Annotations[AnnotationAzureTenantID]
	if clientID != "" && tenantID != "" {
		return RoleRef{Kind: sfv1alpha1.RoleKindAzure, Name: tenantID + "/" + clientID}, nil
	}
	return RoleRef{}, notMapped(id)
}
