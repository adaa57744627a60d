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

package broker

import (
	"context"
	"time"

	"github.com/secretfed/secretfed/pkg/identity"
)

// Credential is short-lived credential material for one role.
// AWS roles fill the access key triple, token based trust services fill Token.
type Credential struct {
	Role identity.RoleRef

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	Token string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Lifetime is the total validity window of the credential.
func (c *Credential) Lifetime() time.Duration {
	return c.ExpiresAt.Sub(c.IssuedAt)
}

// Static reports whether the credential never expires.
func (c *Credential) Static() bool {
	return c.ExpiresAt.IsZero()
}

// skew is the lesser of maxSkew and fraction of the credential lifetime.
func (c *Credential) skew(maxSkew time.Duration, fraction float64) time.Duration {
	return min(maxSkew, time.Duration(float64(c.Lifetime())*fraction))
}

// TokenSource issues workload tokens that are presented to a trust service.
type TokenSource interface {
	Token(ctx context.Context, id identity.WorkloadIdentity, audiences []string) (string, error)
}

// ExchangeRequest is what an Exchanger receives: the workload, the role
// it resolved to and a fresh workload token.
type ExchangeRequest struct {
	Identity identity.WorkloadIdentity
	Role     identity.RoleRef
	Token    string
}

// Exchanger trades a workload token for a credential with one trust service.
// Errors must be tagged with reason.ExchangeDenied or reason.ExchangeUnavailable.
type Exchanger interface {
	// Audiences returns the token audiences the trust service accepts for role.
	Audiences(role identity.RoleRef) []string
	Exchange(ctx context.Context, req ExchangeRequest) (*Credential, error)
}

// Provider hands out credentials for workload identities.
type Provider interface {
	GetCredential(ctx context.Context, id identity.WorkloadIdentity) (*Credential, error)
}

// Invalidator is implemented by providers that cache credentials.
type Invalidator interface {
	Invalidate(role identity.RoleRef)
}
