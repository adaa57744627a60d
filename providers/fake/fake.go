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


// Package fake is an in-memory secret store used by tests and demos.
package fake

import (
	"context"
	"sync"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/secretstore"
)

const (
	errNotFound        = "secret %q not found"
	errVersionNotFound = "version %q of secret %q not found"
)

type Data struct {
	Value   string
	Version string
}

// Provider keeps secrets in memory. Every version of a key is retained,
// the last one written is the latest.
type Provider struct {
	mu       sync.Mutex
	database map[string][]Data
	failures map[string][]error
	calls    int
	clients  int
	closed   int
	lastCred *broker.Credential

	// FetchHook runs before every fetch. A non-nil error is returned as is.
	FetchHook func(ctx context.Context, ref secretstore.Ref) error
}

func New() *Provider {
	return &Provider{
		database: make(map[string][]Data),
		failures: make(map[string][]error),
	}
}

func (p *Provider) Describe() secretstore.Description {
	return secretstore.Description{Tag: sfv1alpha1.ProviderFake, RoleKind: sfv1alpha1.RoleKindFake}
}

func (p *Provider) NewClient(_ context.Context, _ *sfv1alpha1.SecretStoreBinding, cred *broker.Credential) (secretstore.SecretsClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients++
	c := *cred
	p.lastCred = &c
	return &client{provider: p}, nil
}

// SetSecret adds a version of key.
func (p *Provider) SetSecret(key, version, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.database[key] = append(p.database[key], Data{Value: value, Version: version})
}

// DeleteSecret removes every version of key.
func (p *Provider) DeleteSecret(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.database, key)
}

// FailNext makes the next len(errs) fetches of key fail with errs in order.
func (p *Provider) FailNext(key string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[key] = append(p.failures[key], errs...)
}

// Calls returns the number of fetches.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Clients returns the number of clients created.
func (p *Provider) Clients() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clients
}

// Closed returns the number of clients closed.
func (p *Provider) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// LastCredential returns the credential of the most recently created client.
func (p *Provider) LastCredential() *broker.Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCred
}

func (p *Provider) fetch(ctx context.Context, ref secretstore.Ref) (*secretstore.Payload, error) {
	if hook := p.FetchHook; hook != nil {
		if err := hook(ctx, ref); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if errs := p.failures[ref.Key]; len(errs) > 0 {
		p.failures[ref.Key] = errs[1:]
		return nil, errs[0]
	}
	versions, ok := p.database[ref.Key]
	if !ok || len(versions) == 0 {
		return nil, reason.New(reason.NotFound, errNotFound, ref.Key)
	}
	if ref.Version == "" {
		d := versions[len(versions)-1]
		return &secretstore.Payload{Raw: []byte(d.Value), Version: d.Version}, nil
	}
	for _, d := range versions {
		if d.Version == ref.Version {
			return &secretstore.Payload{Raw: []byte(d.Value), Version: d.Version}, nil
		}
	}
	return nil, reason.New(reason.NotFound, errVersionNotFound, ref.Version, ref.Key)
}

type client struct {
	provider *Provider
}

func (c *client) Fetch(ctx context.Context, ref secretstore.Ref) (*secretstore.Payload, error) {
	payload, err := c.provider.fetch(ctx, ref)
	metrics.ObserveAPICall(constants.ProviderFake, constants.CallFakeGetSecret, err)
	return payload, err
}

func (c *client) Close(context.Context) error {
	c.provider.mu.Lock()
	defer c.provider.mu.Unlock()
	c.provider.closed++
	return nil
}
