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
	"context"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/materialize"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/secretstore"
)

const (
	errBindingNotFound = "SecretStoreBinding %q not found"
	errInvalidRequest  = "invalid SecretRequest"
)

// Fetcher reads one remote secret. *secretstore.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, binding *sfv1alpha1.SecretStoreBinding, ref secretstore.Ref, cred *broker.Credential) (*secretstore.Payload, error)
}

// Syncer computes the Secret a SecretRequest should produce. It never
// writes to the API server.
type Syncer struct {
	// Reader reads explicit credentials referenced by bindings.
	Reader      client.Reader
	Credentials broker.Provider
	Store       Fetcher

	// OnEnter, if set, runs once a sync holds the in-flight slot for key
	// and before any remote call is made.
	OnEnter func(key types.NamespacedName)

	inflight *inFlight
}

func NewSyncer(reader client.Reader, credentials broker.Provider, store Fetcher) *Syncer {
	return &Syncer{
		Reader:      reader,
		Credentials: credentials,
		Store:       store,
		inflight:    newInFlight(),
	}
}

// enter claims the in-flight slot for key.
func (s *Syncer) enter(ctx context.Context, key types.NamespacedName) (context.Context, func(), bool) {
	syncCtx, release, ok := s.inflight.enter(ctx, key)
	if ok && s.OnEnter != nil {
		s.OnEnter(key)
	}
	return syncCtx, release, ok
}

// cancel aborts the running sync for key, if any.
func (s *Syncer) cancel(key types.NamespacedName) bool {
	return s.inflight.cancel(key)
}

// Sync runs credential, fetch and materialize. existing may be nil. A nil
// binding means the referenced binding does not exist.
func (s *Syncer) Sync(ctx context.Context, sr *sfv1alpha1.SecretRequest, binding *sfv1alpha1.SecretStoreBinding, existing *corev1.Secret) (*corev1.Secret, error) {
	if err := sfv1alpha1.ValidateSecretRequest(sr); err != nil {
		return nil, reason.Wrapf(reason.InvalidSpec, err, errInvalidRequest)
	}
	if binding == nil {
		return nil, reason.New(reason.StoreNotFound, errBindingNotFound, sr.Spec.SourceStoreRef.Name)
	}
	cred, err := s.credential(ctx, sr, binding)
	if err != nil {
		return nil, err
	}
	payload, err := s.Store.Fetch(ctx, binding, secretstore.Ref{
		Key:     sr.Spec.RemoteRef.Key,
		Version: sr.Spec.RemoteRef.Version,
	}, cred)
	if err != nil {
		if reason.Of(err) == reason.AccessDenied && binding.Federated() {
			s.invalidate(cred.Role)
		}
		return nil, err
	}
	return materialize.Materialize(existing, materialize.FromSecretRequest(sr), payload.Raw)
}

// invalidate drops a credential the store refused so the next sync exchanges again.
func (s *Syncer) invalidate(role identity.RoleRef) {
	if inv, ok := s.Credentials.(broker.Invalidator); ok {
		inv.Invalidate(role)
	}
}

func (s *Syncer) credential(ctx context.Context, sr *sfv1alpha1.SecretRequest, binding *sfv1alpha1.SecretStoreBinding) (*broker.Credential, error) {
	if !binding.Federated() {
		return secretstore.StaticCredential(ctx, s.Reader, binding)
	}
	return s.Credentials.GetCredential(ctx, identity.WorkloadIdentity{
		Namespace:      sr.Namespace,
		ServiceAccount: sr.ServiceAccount(),
	})
}
