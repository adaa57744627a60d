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


package secretstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/cache"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/utils"
)

const (
	errUnknownProvider = "provider %q is not registered"
	errNewClient       = "unable to create %s client for %s/%s"
	errCallTimeout     = "call to %s timed out after %s"
	errRateLimited     = "rate limit of binding %s/%s exceeded"
)

var log = ctrl.Log.WithName("secretstore")

// Options tune a Client.
type Options struct {
	// CallTimeout bounds every single provider call.
	CallTimeout time.Duration
	// Backoff between retries of Unavailable and Throttled. Steps bounds attempts.
	Backoff wait.Backoff
	// QPS and Burst apply to bindings without spec.rateLimit.
	QPS   float64
	Burst int
	// CacheSize bounds the number of cached provider clients.
	CacheSize int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		CallTimeout: 15 * time.Second,
		Backoff: wait.Backoff{
			Duration: 200 * time.Millisecond,
			Factor:   2,
			Jitter:   0.2,
			Steps:    4,
			Cap:      5 * time.Second,
		},
		QPS:       10,
		Burst:     20,
		CacheSize: 256,
	}
}

// Client fetches secrets through registered providers. Rate limiters are
// shared by all requests using the same binding.
type Client struct {
	registry *Registry
	opts     Options
	clock    clock.Clock
	clients  *cache.Cache[SecretsClient]

	mu       sync.Mutex
	limiters map[cache.Key]*rate.Limiter
}

// NewClient creates a Client. A nil registry means the global registry.
func NewClient(registry *Registry, opts Options, clk clock.Clock) *Client {
	if registry == nil {
		registry = globalRegistry
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	defaults := DefaultOptions()
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaults.CacheSize
	}
	if opts.QPS <= 0 || opts.Burst <= 0 {
		opts.QPS, opts.Burst = defaults.QPS, defaults.Burst
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaults.CallTimeout
	}
	return &Client{
		registry: registry,
		opts:     opts,
		clock:    clk,
		clients: cache.Must(opts.CacheSize, func(c SecretsClient) {
			ctx, cancel := context.WithTimeout(context.Background(), opts.CallTimeout)
			defer cancel()
			if err := c.Close(ctx); err != nil {
				log.Error(err, "unable to close provider client")
			}
		}),
		limiters: make(map[cache.Key]*rate.Limiter),
	}
}

// Fetch reads ref from the store bound by binding, authenticated with cred.
// Unavailable and Throttled are retried with backoff, everything else is returned as is.
func (c *Client) Fetch(ctx context.Context, binding *sfv1alpha1.SecretStoreBinding, ref Ref, cred *broker.Credential) (*Payload, error) {
	provider, ok := c.registry.Fetch(binding.Spec.Provider)
	if !ok {
		return nil, reason.New(reason.InvalidSpec, errUnknownProvider, binding.Spec.Provider)
	}
	key := cacheKey(binding, cred)
	limiter := c.limiter(bindingKey(binding), binding.Spec.RateLimit)

	backoff := c.opts.Backoff
	maxAttempts := max(backoff.Steps, 1)
	for attempt := 1; ; attempt++ {
		payload, err := c.fetchOnce(ctx, provider, binding, key, limiter, ref, cred)
		if err == nil {
			return payload, nil
		}
		code := reason.Of(err)
		if code == reason.AccessDenied {
			// the cached client may hold a revoked session
			c.clients.Remove(key)
		}
		if code != reason.Unavailable && code != reason.Throttled {
			return nil, err
		}
		if attempt >= maxAttempts || ctx.Err() != nil {
			return nil, err
		}
		log.V(1).Info("retrying fetch", "binding", key.String(), "key", ref.Key, "attempt", attempt, "reason", code)
		if d := backoff.Step(); d > 0 {
			select {
			case <-c.clock.After(d):
			case <-ctx.Done():
				return nil, reason.Wrap(reason.Unavailable, errors.Join(err, ctx.Err()))
			}
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, provider Provider, binding *sfv1alpha1.SecretStoreBinding, key cache.Key, limiter *rate.Limiter, ref Ref, cred *broker.Credential) (*Payload, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	if err := limiter.Wait(callCtx); err != nil {
		return nil, reason.Wrapf(reason.Throttled, err, errRateLimited, binding.Namespace, binding.Name)
	}

	sc, err := c.secretsClient(callCtx, provider, binding, key, cred)
	if err != nil {
		return nil, c.timeout(callCtx, ctx, err, "NewClient")
	}
	payload, err := sc.Fetch(callCtx, ref)
	if err != nil {
		return nil, c.timeout(callCtx, ctx, err, "Fetch")
	}
	return payload, nil
}

// timeout turns an expired per-call deadline into Unavailable.
func (c *Client) timeout(callCtx, parent context.Context, err error, call string) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return reason.Wrapf(reason.Unavailable, err, errCallTimeout, call, c.opts.CallTimeout)
	}
	if reason.Of(err) == reason.Unknown {
		return reason.Wrap(reason.Unavailable, err)
	}
	return err
}

func (c *Client) secretsClient(ctx context.Context, provider Provider, binding *sfv1alpha1.SecretStoreBinding, key cache.Key, cred *broker.Credential) (SecretsClient, error) {
	version := clientVersion(binding, cred)
	if sc, ok := c.clients.Get(version, key); ok {
		return sc, nil
	}
	sc, err := provider.NewClient(ctx, binding, cred)
	if err != nil {
		if reason.Of(err) == reason.Unknown {
			return nil, reason.Wrapf(reason.Unavailable, err, errNewClient, binding.Spec.Provider, binding.Namespace, binding.Name)
		}
		return nil, err
	}
	return c.clients.Add(version, key, sc), nil
}

// limiter returns the shared limiter of a binding, replacing it when the
// configured rate changed.
func (c *Client) limiter(key cache.Key, rl *sfv1alpha1.RateLimit) *rate.Limiter {
	limit, burst := rate.Limit(c.opts.QPS), c.opts.Burst
	if rl != nil {
		limit, burst = rate.Limit(rl.QPS), int(rl.Burst)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[key]
	if !ok || l.Limit() != limit || l.Burst() != burst {
		l = rate.NewLimiter(limit, burst)
		c.limiters[key] = l
	}
	return l
}

// Forget drops the cached clients and the limiter of a deleted binding.
func (c *Client) Forget(binding *sfv1alpha1.SecretStoreBinding) {
	key := bindingKey(binding)
	c.clients.RemoveFunc(func(k cache.Key) bool {
		return k.Namespace == key.Namespace && k.Name == key.Name
	})
	c.mu.Lock()
	delete(c.limiters, key)
	c.mu.Unlock()
}

func bindingKey(binding *sfv1alpha1.SecretStoreBinding) cache.Key {
	return cache.Key{Namespace: binding.Namespace, Name: binding.Name, Provider: string(binding.Spec.Provider)}
}

// cacheKey holds one client per role a binding is used with.
func cacheKey(binding *sfv1alpha1.SecretStoreBinding, cred *broker.Credential) cache.Key {
	key := bindingKey(binding)
	if cred != nil {
		key.Identity = fmt.Sprintf("%s/%s", cred.Role.Kind, cred.Role.Name)
	}
	return key
}

// clientVersion changes whenever the binding or the credential of a role changes.
// The credential is hashed so no secret material ends up in the key.
func clientVersion(binding *sfv1alpha1.SecretStoreBinding, cred *broker.Credential) string {
	return fmt.Sprintf("%s/%d/%s", binding.UID, binding.Generation, utils.ObjectHash(cred))
}
