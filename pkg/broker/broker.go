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

// Package broker exchanges workload identities for short-lived credentials
// and caches them per role until shortly before they expire.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/reason"
)

const (
	errNoExchanger   = "no exchanger registered for role kind %q"
	errWorkloadToken = "unable to issue workload token for %s: %w"
	errExpired       = "credential for %s expired before it could be used"
)

var log = ctrl.Log.WithName("broker")

// Config tunes caching and retry behaviour.
type Config struct {
	// MaxSkew caps how long before expiry a credential stops being handed out.
	MaxSkew time.Duration
	// SkewFraction of the lifetime is used as skew when it is smaller than MaxSkew.
	SkewFraction float64
	// ExchangeTimeout bounds one exchange including its retries.
	ExchangeTimeout time.Duration
	// DeniedAttempts bounds how often a denied exchange is tried.
	DeniedAttempts int
	// Backoff is used between attempts. Steps bounds attempts for unavailable trust services.
	Backoff wait.Backoff
	// IdleTTL evicts credentials nobody asked for in this long instead of refreshing them.
	IdleTTL time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxSkew:         5 * time.Minute,
		SkewFraction:    0.2,
		ExchangeTimeout: time.Minute,
		DeniedAttempts:  3,
		Backoff: wait.Backoff{
			Duration: 500 * time.Millisecond,
			Factor:   2,
			Jitter:   0.2,
			Steps:    5,
			Cap:      10 * time.Second,
		},
		IdleTTL: time.Hour,
	}
}

type entry struct {
	cred *Credential
	// requester is the identity used for the last exchange, reused for background refresh.
	requester identity.WorkloadIdentity
	lastUsed  time.Time
}

// Broker is safe for concurrent use. Each instance owns its own cache.
type Broker struct {
	identities identity.Store
	tokens     TokenSource
	exchangers map[sfv1alpha1.RoleKind]Exchanger
	clock      clock.Clock
	cfg        Config

	mu    sync.RWMutex
	cache map[identity.RoleRef]*entry
	group singleflight.Group
}

// Option configures a Broker.
type Option func(*Broker)

// WithClock overrides the clock, used by tests.
func WithClock(c clock.Clock) Option {
	return func(b *Broker) { b.clock = c }
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(b *Broker) { b.cfg = cfg }
}

// New creates a Broker resolving roles through identities and exchanging
// tokens issued by tokens with the exchanger registered for each role kind.
func New(identities identity.Store, tokens TokenSource, exchangers map[sfv1alpha1.RoleKind]Exchanger, opts ...Option) *Broker {
	b := &Broker{
		identities: identities,
		tokens:     tokens,
		exchangers: exchangers,
		clock:      clock.RealClock{},
		cfg:        DefaultConfig(),
		cache:      make(map[identity.RoleRef]*entry),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// GetCredential returns a credential for the role id is associated with.
// A returned credential always satisfies ExpiresAt > now + skew.
// Concurrent callers for the same role share one exchange.
func (b *Broker) GetCredential(ctx context.Context, id identity.WorkloadIdentity) (*Credential, error) {
	role, err := b.identities.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	now := b.clock.Now()
	if cred, refresh := b.lookup(role, now); cred != nil {
		cacheHits.Inc()
		if refresh {
			b.refreshAsync(role, id)
		}
		return cred, nil
	}
	cacheMisses.Inc()

	ch := b.group.DoChan(groupKey(role), func() (any, error) {
		return b.exchange(ctx, role, id)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cred := *res.Val.(*Credential)
		if !b.usable(&cred, b.clock.Now()) {
			return nil, reason.New(reason.ExchangeUnavailable, errExpired, role.Name)
		}
		return &cred, nil
	case <-ctx.Done():
		return nil, reason.Wrap(reason.ExchangeUnavailable, ctx.Err())
	}
}

// lookup returns a copy of the cached credential if it may be handed out,
// and whether it is due for a proactive refresh.
func (b *Broker) lookup(role identity.RoleRef, now time.Time) (*Credential, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.cache[role]
	if !ok || !b.usable(e.cred, now) {
		return nil, false
	}
	e.lastUsed = now
	cred := *e.cred
	return &cred, b.dueForRefresh(e.cred, now)
}

// usable reports whether now is still before ExpiresAt - skew.
func (b *Broker) usable(c *Credential, now time.Time) bool {
	if c.Static() {
		return true
	}
	return now.Add(c.skew(b.cfg.MaxSkew, b.cfg.SkewFraction)).Before(c.ExpiresAt)
}

// dueForRefresh starts refreshing at twice the skew so a refreshed
// credential is normally in place before the old one stops being usable.
func (b *Broker) dueForRefresh(c *Credential, now time.Time) bool {
	if c.Static() {
		return false
	}
	return c.ExpiresAt.Sub(now) < 2*c.skew(b.cfg.MaxSkew, b.cfg.SkewFraction)
}

// refreshAsync starts a shared exchange for role without waiting for it.
// On failure the cached credential stays in place.
func (b *Broker) refreshAsync(role identity.RoleRef, id identity.WorkloadIdentity) {
	b.group.DoChan(groupKey(role), func() (any, error) {
		cred, err := b.exchange(context.Background(), role, id)
		if err != nil {
			refreshFailures.WithLabelValues(string(role.Kind)).Inc()
			log.Error(err, "background credential refresh failed", "role", role.Name)
		}
		return cred, err
	})
}

// exchange runs detached from the caller's cancellation because other
// callers may be waiting on the same flight.
func (b *Broker) exchange(parent context.Context, role identity.RoleRef, id identity.WorkloadIdentity) (*Credential, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), b.cfg.ExchangeTimeout)
	defer cancel()

	ex, ok := b.exchangers[role.Kind]
	if !ok {
		return nil, reason.New(reason.ExchangeDenied, errNoExchanger, role.Kind)
	}

	start := b.clock.Now()
	cred, err := b.exchangeWithRetry(ctx, ex, role, id)
	observeExchange(role.Kind, start, b.clock.Now(), err)
	if err != nil {
		return nil, err
	}
	cred.Role = role
	if cred.IssuedAt.IsZero() {
		cred.IssuedAt = start
	}

	b.mu.Lock()
	b.cache[role] = &entry{cred: cred, requester: id, lastUsed: b.clock.Now()}
	cachedCredentials.Set(float64(len(b.cache)))
	b.mu.Unlock()

	log.V(1).Info("exchanged credential", "role", role.Name, "identity", id.String(), "expiresAt", cred.ExpiresAt)
	out := *cred
	return &out, nil
}

func (b *Broker) exchangeWithRetry(ctx context.Context, ex Exchanger, role identity.RoleRef, id identity.WorkloadIdentity) (*Credential, error) {
	backoff := b.cfg.Backoff
	maxAttempts := max(backoff.Steps, 1)
	denied := 0
	for attempt := 1; ; attempt++ {
		cred, err := b.exchangeOnce(ctx, ex, role, id)
		if err == nil {
			return cred, nil
		}
		switch reason.Of(err) {
		case reason.ExchangeDenied:
			denied++
			if denied >= b.cfg.DeniedAttempts {
				return nil, err
			}
		case reason.ExchangeUnavailable, reason.Unavailable, reason.Unknown:
			if attempt >= maxAttempts {
				return nil, reason.Wrap(reason.ExchangeUnavailable, err)
			}
		default:
			return nil, err
		}
		log.V(1).Info("retrying credential exchange", "role", role.Name, "attempt", attempt, "error", err.Error())
		if d := backoff.Step(); d > 0 {
			select {
			case <-b.clock.After(d):
			case <-ctx.Done():
				return nil, reason.Wrap(reason.ExchangeUnavailable, errors.Join(err, ctx.Err()))
			}
		}
	}
}

func (b *Broker) exchangeOnce(ctx context.Context, ex Exchanger, role identity.RoleRef, id identity.WorkloadIdentity) (*Credential, error) {
	token, err := b.tokens.Token(ctx, id, ex.Audiences(role))
	if err != nil {
		return nil, fmt.Errorf(errWorkloadToken, id, err)
	}
	return ex.Exchange(ctx, ExchangeRequest{Identity: id, Role: role, Token: token})
}

// Invalidate drops the cached credential for role.
func (b *Broker) Invalidate(role identity.RoleRef) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cache, role)
	cachedCredentials.Set(float64(len(b.cache)))
}

// Len returns the number of cached credentials.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.cache)
}

func groupKey(role identity.RoleRef) string {
	return string(role.Kind) + "/" + role.Name
}
