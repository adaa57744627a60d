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


// Package fake implements an in-memory Exchanger and TokenSource for tests
// and for the fake role kind.
package fake

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/metrics"
)

const DefaultLifetime = time.Hour

// Exchanger issues opaque tokens. It counts exchanges so tests can assert
// how often the trust service was contacted.
type Exchanger struct {
	Clock    clock.PassiveClock
	Lifetime time.Duration
	// ExchangeFn replaces the default behaviour when set.
	ExchangeFn func(ctx context.Context, req broker.ExchangeRequest) (*broker.Credential, error)

	mu    sync.Mutex
	calls int
}

// New returns an Exchanger issuing credentials valid for lifetime.
func New(c clock.PassiveClock, lifetime time.Duration) *Exchanger {
	return &Exchanger{Clock: c, Lifetime: lifetime}
}

func (e *Exchanger) Audiences(identity.RoleRef) []string {
	return []string{"fake"}
}

func (e *Exchanger) Exchange(ctx context.Context, req broker.ExchangeRequest) (*broker.Credential, error) {
	e.mu.Lock()
	e.calls++
	fn := e.ExchangeFn
	e.mu.Unlock()
	if fn != nil {
		cred, err := fn(ctx, req)
		metrics.ObserveAPICall(constants.ProviderFake, constants.CallFakeExchange, err)
		return cred, err
	}
	metrics.ObserveAPICall(constants.ProviderFake, constants.CallFakeExchange, nil)
	return e.Issue(req), nil
}

// Issue builds the credential Exchange returns by default.
func (e *Exchanger) Issue(req broker.ExchangeRequest) *broker.Credential {
	c := e.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	lifetime := e.Lifetime
	if lifetime == 0 {
		lifetime = DefaultLifetime
	}
	now := c.Now()
	return &broker.Credential{
		Role:      req.Role,
		Token:     "fake:" + req.Role.Name + ":" + now.Format(time.RFC3339Nano),
		IssuedAt:  now,
		ExpiresAt: now.Add(lifetime),
	}
}

// SetExchangeFn swaps the exchange behaviour while the exchanger is in use.
func (e *Exchanger) SetExchangeFn(fn func(ctx context.Context, req broker.ExchangeRequest) (*broker.Credential, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ExchangeFn = fn
}

// Calls returns the number of Exchange invocations.
func (e *Exchanger) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// TokenSource returns a deterministic token per identity.
type TokenSource struct {
	Err error
}

func (t *TokenSource) Token(_ context.Context, id identity.WorkloadIdentity, _ []string) (string, error) {
	if t.Err != nil {
		return "", t.Err
	}
	return "token:" + id.String(), nil
}
