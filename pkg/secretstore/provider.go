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


// Package secretstore fetches secret payloads from remote stores on behalf
// of SecretRequests. Provider implementations register by tag and are
// reached through a shared, rate limited Client.
package secretstore

import (
	"context"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
)

// Ref addresses one secret in a remote store.
type Ref struct {
	Key string
	// Version is provider specific. Empty means latest.
	Version string
}

// Payload is the raw secret value and the version the store returned.
type Payload struct {
	Raw     []byte
	Version string
}

// Description describes a provider.
type Description struct {
	Tag sfv1alpha1.ProviderTag
	// RoleKind is the federated credential kind the provider consumes.
	RoleKind sfv1alpha1.RoleKind
}

// Provider builds clients for one store type.
type Provider interface {
	Describe() Description
	// NewClient returns a client authenticated with cred. cred is never nil.
	NewClient(ctx context.Context, binding *sfv1alpha1.SecretStoreBinding, cred *broker.Credential) (SecretsClient, error)
}

// SecretsClient reads secrets from a store. Errors must be tagged with
// reason.NotFound, reason.AccessDenied, reason.Throttled or reason.Unavailable.
type SecretsClient interface {
	Fetch(ctx context.Context, ref Ref) (*Payload, error)
	Close(ctx context.Context) error
}
