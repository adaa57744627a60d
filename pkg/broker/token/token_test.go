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


package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authv1 "k8s.io/api/authentication/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/reason"
)

func TestToken(t *testing.T) {
	client := fake.NewSimpleClientset()
	var got *authv1.TokenRequest
	client.PrependReactor("create", "serviceaccounts", func(action k8stesting.Action) (bool, runtime.Object, error) {
		create := action.(k8stesting.CreateAction)
		if create.GetSubresource() != "token" {
			return false, nil, nil
		}
		got = create.GetObject().(*authv1.TokenRequest)
		return true, &authv1.TokenRequest{Status: authv1.TokenRequestStatus{Token: "jwt"}}, nil
	})

	src := New(client.CoreV1())
	tok, err := src.Token(context.Background(), identity.WorkloadIdentity{Namespace: "apps", ServiceAccount: "api"}, []string{"sts.amazonaws.com"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", tok)
	require.NotNil(t, got)
	assert.Equal(t, []string{"sts.amazonaws.com"}, got.Spec.Audiences)
	assert.Equal(t, int64(DefaultTokenTTL), *got.Spec.ExpirationSeconds)
	assert.Equal(t, "apps", got.Namespace)
}

func TestTokenErrors(t *testing.T) {
	gr := schema.GroupResource{Resource: "serviceaccounts"}
	tests := []struct {
		name string
		err  error
		want reason.Code
	}{
		{name: "not found", err: apierrors.NewNotFound(gr, "api"), want: reason.ExchangeDenied},
		{name: "forbidden", err: apierrors.NewForbidden(gr, "api", assert.AnError), want: reason.ExchangeDenied},
		{name: "server error", err: apierrors.NewInternalError(assert.AnError), want: reason.ExchangeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := fake.NewSimpleClientset()
			client.PrependReactor("create", "serviceaccounts", func(k8stesting.Action) (bool, runtime.Object, error) {
				return true, nil, tt.err
			})
			_, err := New(client.CoreV1()).Token(context.Background(), identity.WorkloadIdentity{Namespace: "apps", ServiceAccount: "api"}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.want, reason.Of(err))
			assert.ErrorContains(t, err, "apps/api")
		})
	}
}
