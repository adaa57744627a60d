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


package secretstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/secretstore"
	fakestore "github.com/secretfed/secretfed/providers/fake"
)

func binding() *sfv1alpha1.SecretStoreBinding {
	return &sfv1alpha1.SecretStoreBinding{
		ObjectMeta: metav1.ObjectMeta{Name: "store", Namespace: "apps", UID: "uid-1", Generation: 1},
		Spec:       sfv1alpha1.SecretStoreBindingSpec{Provider: sfv1alpha1.ProviderFake},
	}
}

func credential(token string) *broker.Credential {
	return &broker.Credential{Role: sfv1alpha1.RoleRef{Kind: sfv1alpha1.RoleKindFake, Name: "reader"}, Token: token}
}

func newClient(t *testing.T, mutate ...func(*secretstore.Options)) (*secretstore.Client, *fakestore.Provider) {
	t.Helper()
	provider := fakestore.New()
	registry := secretstore.NewRegistry()
	require.NoError(t, registry.Add(provider))

	opts := secretstore.DefaultOptions()
	opts.Backoff = wait.Backoff{Steps: 4}
	for _, m := range mutate {
		m(&opts)
	}
	return secretstore.NewClient(registry, opts, nil), provider
}

func TestFetch(t *testing.T) {
	c, provider := newClient(t)
	provider.SetSecret("prod/db", "v1", `{"password":"old"}`)
	provider.SetSecret("prod/db", "v2", `{"password":"new"}`)

	payload, err := c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db"}, credential("a"))
	require.NoError(t, err)
	assert.Equal(t, `{"password":"new"}`, string(payload.Raw))
	assert.Equal(t, "v2", payload.Version)

	payload, err = c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db", Version: "v1"}, credential("a"))
	require.NoError(t, err)
	assert.Equal(t, `{"password":"old"}`, string(payload.Raw))
	assert.Equal(t, 1, provider.Clients(), "clients are reused while binding and credential are unchanged")

	_, err = c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db"}, credential("b"))
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Clients())
	assert.Equal(t, "b", provider.LastCredential().Token)

	b := binding()
	b.Generation = 2
	_, err = c.Fetch(context.Background(), b, secretstore.Ref{Key: "prod/db"}, credential("b"))
	require.NoError(t, err)
	assert.Equal(t, 3, provider.Clients())
}

func TestFetchKeepsOneClientPerRole(t *testing.T) {
	c, provider := newClient(t)
	provider.SetSecret("prod/db", "v1", "value")

	writer := credential("w")
	writer.Role.Name = "writer"
	for range 3 {
		_, err := c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db"}, credential("r"))
		require.NoError(t, err)
		_, err = c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db"}, writer)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, provider.Clients())
	assert.Equal(t, 0, provider.Closed())

	// a refreshed credential of one role replaces only that role's client
	_, err := c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db"}, credential("r2"))
	require.NoError(t, err)
	assert.Equal(t, 3, provider.Clients())
	assert.Equal(t, 1, provider.Closed())

	c.Forget(binding())
	assert.Equal(t, 3, provider.Closed())
}

func TestFetchRetries(t *testing.T) {
	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantCode  reason.Code
	}{
		{
			name:      "unavailable then success",
			failures:  []error{reason.New(reason.Unavailable, "503"), reason.New(reason.Unavailable, "503")},
			wantCalls: 3,
		},
		{
			name: "throttled until attempts are exhausted",
			failures: []error{
				reason.New(reason.Throttled, "429"), reason.New(reason.Throttled, "429"),
				reason.New(reason.Throttled, "429"), reason.New(reason.Throttled, "429"),
			},
			wantCalls: 4,
			wantCode:  reason.Throttled,
		},
		{
			name:      "access denied is not retried",
			failures:  []error{reason.New(reason.AccessDenied, "403")},
			wantCalls: 1,
			wantCode:  reason.AccessDenied,
		},
		{
			name:      "not found is not retried",
			failures:  []error{reason.New(reason.NotFound, "404")},
			wantCalls: 1,
			wantCode:  reason.NotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, provider := newClient(t)
			provider.SetSecret("prod/db", "v1", "value")
			provider.FailNext("prod/db", tt.failures...)

			payload, err := c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db"}, credential("a"))
			assert.Equal(t, tt.wantCalls, provider.Calls())
			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, "value", string(payload.Raw))
				return
			}
			assert.Equal(t, tt.wantCode, reason.Of(err))
		})
	}
}

func TestAccessDeniedDropsCachedClient(t *testing.T) {
	c, provider := newClient(t)
	provider.SetSecret("prod/db", "v1", "value")
	provider.FailNext("prod/db", reason.New(reason.AccessDenied, "session revoked"))

	_, err := c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db"}, credential("a"))
	require.Error(t, err)
	_, err = c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db"}, credential("a"))
	require.NoError(t, err)
	assert.Equal(t, 2, provider.Clients())
}

func TestFetchTimeoutIsUnavailable(t *testing.T) {
	c, provider := newClient(t, func(o *secretstore.Options) {
		o.CallTimeout = 20 * time.Millisecond
		o.Backoff = wait.Backoff{Steps: 2}
	})
	provider.FetchHook = func(ctx context.Context, _ secretstore.Ref) error {
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := c.Fetch(context.Background(), binding(), secretstore.Ref{Key: "prod/db"}, credential("a"))
	require.Error(t, err)
	assert.Equal(t, reason.Unavailable, reason.Of(err))
	assert.ErrorContains(t, err, "timed out")
}

func TestFetchRateLimit(t *testing.T) {
	c, provider := newClient(t, func(o *secretstore.Options) {
		o.CallTimeout = 50 * time.Millisecond
		o.Backoff = wait.Backoff{Steps: 1}
	})
	provider.SetSecret("prod/db", "v1", "value")
	b := binding()
	b.Spec.RateLimit = &sfv1alpha1.RateLimit{QPS: 1, Burst: 1}

	_, err := c.Fetch(context.Background(), b, secretstore.Ref{Key: "prod/db"}, credential("a"))
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), b, secretstore.Ref{Key: "prod/db"}, credential("a"))
	assert.Equal(t, reason.Throttled, reason.Of(err))
	assert.Equal(t, 1, provider.Calls())

	// a different binding has its own bucket
	other := binding()
	other.Name = "other"
	other.Spec.RateLimit = b.Spec.RateLimit
	_, err = c.Fetch(context.Background(), other, secretstore.Ref{Key: "prod/db"}, credential("a"))
	assert.NoError(t, err)
}

func TestFetchUnknownProvider(t *testing.T) {
	c, _ := newClient(t)
	b := binding()
	b.Spec.Provider = sfv1alpha1.ProviderAzureKeyVault
	_, err := c.Fetch(context.Background(), b, secretstore.Ref{Key: "prod/db"}, credential("a"))
	assert.Equal(t, reason.InvalidSpec, reason.Of(err))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := secretstore.NewRegistry()
	require.NoError(t, registry.Add(fakestore.New()))
	assert.Error(t, registry.Add(fakestore.New()))
	_, ok := registry.Fetch(sfv1alpha1.ProviderFake)
	assert.True(t, ok)
	assert.Len(t, registry.List(), 1)
}

func TestStaticCredential(t *testing.T) {
	b := binding()
	b.Spec.IdentityRef = &sfv1alpha1.IdentityRef{SecretRef: sfv1alpha1.SecretKeySelector{Name: "aws-creds"}}

	kube := fake.NewClientBuilder().WithObjects(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "aws-creds", Namespace: "apps"},
		Data: map[string][]byte{
			secretstore.KeyAccessKeyID:     []byte("AKIA"),
			secretstore.KeySecretAccessKey: []byte("secret"),
		},
	}).Build()
	cred, err := secretstore.StaticCredential(context.Background(), kube, b)
	require.NoError(t, err)
	assert.Equal(t, "AKIA", cred.AccessKeyID)
	assert.Equal(t, "secret", cred.SecretAccessKey)
	assert.True(t, cred.Static())

	b.Spec.IdentityRef.SecretRef.Name = "missing"
	_, err = secretstore.StaticCredential(context.Background(), kube, b)
	assert.Equal(t, reason.AccessDenied, reason.Of(err))
}
