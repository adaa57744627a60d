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


package broker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/wait"
	testingclock "k8s.io/utils/clock/testing"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/broker/exchanger/fake"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/reason"
)

var (
	workload = identity.WorkloadIdentity{Namespace: "apps", ServiceAccount: "api"}
	role     = identity.RoleRef{Kind: sfv1alpha1.RoleKindFake, Name: "reader"}
)

type fixture struct {
	clock     *testingclock.FakeClock
	exchanger *fake.Exchanger
	store     *identity.MemoryStore
	broker    *broker.Broker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := testingclock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ex := fake.New(clk, time.Hour)
	store := identity.NewMemoryStore()
	store.Put(workload, role)

	cfg := broker.DefaultConfig()
	cfg.Backoff = wait.Backoff{Steps: 5}
	b := broker.New(store, &fake.TokenSource{}, map[sfv1alpha1.RoleKind]broker.Exchanger{
		sfv1alpha1.RoleKindFake: ex,
	}, broker.WithClock(clk), broker.WithConfig(cfg))
	return &fixture{clock: clk, exchanger: ex, store: store, broker: b}
}

func TestGetCredentialCachesPerRole(t *testing.T) {
	f := newFixture(t)
	other := identity.WorkloadIdentity{Namespace: "apps", ServiceAccount: "worker"}
	f.store.Put(other, role)

	first, err := f.broker.GetCredential(context.Background(), workload)
	require.NoError(t, err)
	second, err := f.broker.GetCredential(context.Background(), other)
	require.NoError(t, err)

	assert.Equal(t, 1, f.exchanger.Calls())
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, role, first.Role)
	assert.Equal(t, 1, f.broker.Len())

	// callers receive copies
	first.Token = "mutated"
	third, err := f.broker.GetCredential(context.Background(), workload)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", third.Token)
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t)
	_, err := f.broker.GetCredential(context.Background(), workload)
	require.NoError(t, err)

	f.broker.Invalidate(role)
	assert.Equal(t, 0, f.broker.Len())
	_, err = f.broker.GetCredential(context.Background(), workload)
	require.NoError(t, err)
	assert.Equal(t, 2, f.exchanger.Calls())
}

func TestConcurrentCallersShareOneExchange(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	f.exchanger.SetExchangeFn(func(_ context.Context, req broker.ExchangeRequest) (*broker.Credential, error) {
		<-release
		return f.exchanger.Issue(req), nil
	})

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.broker.GetCredential(context.Background(), workload)
			errs <- err
		}()
	}
	assert.Eventually(t, func() bool { return f.exchanger.Calls() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, f.exchanger.Calls())
}

func TestCredentialIsNeverReturnedWithinSkew(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cred, err := f.broker.GetCredential(ctx, workload)
	require.NoError(t, err)
	expiry := cred.ExpiresAt

	// one hour lifetime gives a five minute skew, so nothing may be
	// handed out after 55 minutes without a new exchange
	f.exchanger.SetExchangeFn(func(context.Context, broker.ExchangeRequest) (*broker.Credential, error) {
		return nil, reason.New(reason.ExchangeUnavailable, "sts down")
	})
	f.clock.Step(55*time.Minute + time.Second)

	_, err = f.broker.GetCredential(ctx, workload)
	require.Error(t, err)
	assert.Equal(t, reason.ExchangeUnavailable, reason.Of(err))

	f.exchanger.SetExchangeFn(nil)
	cred, err = f.broker.GetCredential(ctx, workload)
	require.NoError(t, err)
	assert.True(t, cred.ExpiresAt.After(expiry))
	assert.True(t, f.clock.Now().Add(5*time.Minute).Before(cred.ExpiresAt))
}

func TestCacheHitTriggersBackgroundRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cred, err := f.broker.GetCredential(ctx, workload)
	require.NoError(t, err)
	expiry := cred.ExpiresAt

	f.clock.Step(49 * time.Minute)
	_, err = f.broker.GetCredential(ctx, workload)
	require.NoError(t, err)
	assert.Equal(t, 1, f.exchanger.Calls())

	f.clock.Step(2 * time.Minute)
	cred, err = f.broker.GetCredential(ctx, workload)
	require.NoError(t, err)
	assert.Equal(t, expiry, cred.ExpiresAt, "the cached credential is returned while the refresh runs")

	assert.Eventually(t, func() bool {
		c, err := f.broker.GetCredential(ctx, workload)
		return err == nil && c.ExpiresAt.After(expiry)
	}, time.Second, time.Millisecond)
}

func TestRefreshFailureKeepsCachedCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cred, err := f.broker.GetCredential(ctx, workload)
	require.NoError(t, err)

	f.exchanger.SetExchangeFn(func(context.Context, broker.ExchangeRequest) (*broker.Credential, error) {
		return nil, reason.New(reason.ExchangeDenied, "role trust policy changed")
	})
	f.clock.Step(52 * time.Minute)
	f.broker.Refresh(ctx, logr.Discard())

	assert.Equal(t, 1+3, f.exchanger.Calls(), "denied exchanges are retried a bounded number of times")
	got, err := f.broker.GetCredential(ctx, workload)
	require.NoError(t, err)
	assert.Equal(t, cred.Token, got.Token)
}

func TestSlowRefreshDoesNotBlockOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := identity.WorkloadIdentity{Namespace: "apps", ServiceAccount: "worker"}
	writer := identity.RoleRef{Kind: sfv1alpha1.RoleKindFake, Name: "writer"}
	f.store.Put(other, writer)
	_, err := f.broker.GetCredential(ctx, workload)
	require.NoError(t, err)
	_, err = f.broker.GetCredential(ctx, other)
	require.NoError(t, err)

	release := make(chan struct{})
	readerRefreshed := make(chan struct{})
	f.exchanger.SetExchangeFn(func(_ context.Context, req broker.ExchangeRequest) (*broker.Credential, error) {
		if req.Role == writer {
			<-release
		} else {
			close(readerRefreshed)
		}
		return f.exchanger.Issue(req), nil
	})
	f.clock.Step(52 * time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.broker.Refresh(ctx, logr.Discard())
	}()

	select {
	case <-readerRefreshed:
	case <-time.After(5 * time.Second):
		t.Fatal("reader was not refreshed while the writer exchange was blocked")
	}
	close(release)
	<-done
	assert.Equal(t, 4, f.exchanger.Calls())
}

func TestRefreshEvictsIdleAndExpired(t *testing.T) {
	f := newFixture(t)
	_, err := f.broker.GetCredential(context.Background(), workload)
	require.NoError(t, err)
	require.Equal(t, 1, f.broker.Len())

	f.clock.Step(2 * time.Hour)
	f.broker.Refresh(context.Background(), logr.Discard())
	assert.Equal(t, 0, f.broker.Len())
	assert.Equal(t, 1, f.exchanger.Calls())
}

func TestExchangeRetries(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
		wantCode  reason.Code
	}{
		{
			name:      "denied is retried a bounded number of times",
			err:       reason.New(reason.ExchangeDenied, "denied"),
			wantCalls: 3,
			wantCode:  reason.ExchangeDenied,
		},
		{
			name:      "unavailable is retried with backoff",
			err:       reason.New(reason.ExchangeUnavailable, "timeout"),
			wantCalls: 5,
			wantCode:  reason.ExchangeUnavailable,
		},
		{
			name:      "untagged errors count as unavailable",
			err:       errors.New("connection reset"),
			wantCalls: 5,
			wantCode:  reason.ExchangeUnavailable,
		},
		{
			name:      "other codes are not retried",
			err:       reason.New(reason.InvalidSpec, "bad role name"),
			wantCalls: 1,
			wantCode:  reason.InvalidSpec,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.exchanger.SetExchangeFn(func(context.Context, broker.ExchangeRequest) (*broker.Credential, error) {
				return nil, tt.err
			})
			_, err := f.broker.GetCredential(context.Background(), workload)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, reason.Of(err))
			assert.Equal(t, tt.wantCalls, f.exchanger.Calls())
			assert.Equal(t, 0, f.broker.Len())
		})
	}
}

func TestUnmappedIdentity(t *testing.T) {
	f := newFixture(t)
	_, err := f.broker.GetCredential(context.Background(), identity.WorkloadIdentity{Namespace: "apps", ServiceAccount: "nobody"})
	assert.True(t, identity.IsNotMapped(err))
	assert.Equal(t, 0, f.exchanger.Calls())
}

func TestUnknownRoleKind(t *testing.T) {
	f := newFixture(t)
	f.store.Put(workload, identity.RoleRef{Kind: sfv1alpha1.RoleKindAWS, Name: "arn:aws:iam::123456789012:role/reader"})
	_, err := f.broker.GetCredential(context.Background(), workload)
	assert.Equal(t, reason.ExchangeDenied, reason.Of(err))
}

func TestWorkloadTokenFailure(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	store := identity.NewMemoryStore()
	store.Put(workload, role)
	cfg := broker.DefaultConfig()
	cfg.Backoff = wait.Backoff{Steps: 2}
	b := broker.New(store, &fake.TokenSource{Err: reason.New(reason.ExchangeDenied, "service account not found")},
		map[sfv1alpha1.RoleKind]broker.Exchanger{sfv1alpha1.RoleKindFake: fake.New(clk, time.Hour)},
		broker.WithClock(clk), broker.WithConfig(cfg))

	_, err := b.GetCredential(context.Background(), workload)
	assert.Equal(t, reason.ExchangeDenied, reason.Of(err))
	assert.ErrorContains(t, err, "apps/api")
}
