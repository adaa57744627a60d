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

	"sigs.k8s.io/controller-runtime/pkg/client"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
)

// IndexWorkload indexes IdentityAssociations by namespace/serviceAccount.
const IndexWorkload = ".spec.workload"

// WorkloadIndexer extracts the IndexWorkload value of an IdentityAssociation.
func WorkloadIndexer(obj client.Object) []string {
	ia, ok := obj.(*sfv1alpha1.IdentityAssociation)
	if !ok {
		return nil
	}
	return []string{ia.WorkloadKey()}
}

// SetupIndex registers IndexWorkload with the manager's field indexer.
func SetupIndex(ctx context.Context, indexer client.FieldIndexer) error {
	return indexer.IndexField(ctx, &sfv1alpha1.IdentityAssociation{}, IndexWorkload, WorkloadIndexer)
}

// KubeStore resolves identities from IdentityAssociation objects.
// The reader is expected to be informer backed so changes are pushed
// into the store as soon as the API server sees them.
type KubeStore struct {
	Reader client.Reader
}

// NewKubeStore returns a store reading IdentityAssociations through r.
func NewKubeStore(r client.Reader) *KubeStore {
	return &KubeStore{Reader: r}
}

func (k *KubeStore) Resolve(ctx context.Context, id WorkloadIdentity) (RoleRef, error) {
	var list sfv1alpha1.IdentityAssociationList
	if err := k.Reader.List(ctx, &list, client.MatchingFields{IndexWorkload: id.String()}); err != nil {
		return RoleRef{}, fmt.Errorf("listing identity associations: %w", err)
	}
	active := Active(list.Items)
	if active == nil {
		return RoleRef{}, notMapped(id)
	}
	if len(list.Items) > 1 {
		log.V(1).Info("multiple identity associations, using the newest", "identity", id.String(), "association", active.Name, "count", len(list.Items))
	}
	return active.Spec.RoleRef, nil
}

// Active picks the association that wins under last-write-wins.
// Associations being deleted never win.
func Active(items []sfv1alpha1.IdentityAssociation) *sfv1alpha1.IdentityAssociation {
	var winner *sfv1alpha1.IdentityAssociation
	for i := range items {
		ia := &items[i]
		if !ia.DeletionTimestamp.IsZero() {
			continue
		}
		if winner == nil || ia.Newer(winner) {
			winner = ia
		}
	}
	return winner
}
