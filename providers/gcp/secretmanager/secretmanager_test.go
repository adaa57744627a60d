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


package secretmanager

import (
	"context"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/secretstore"
)

type fakeSM struct {
	req    *secretmanagerpb.AccessSecretVersionRequest
	resp   *secretmanagerpb.AccessSecretVersionResponse
	err    error
	closed bool
}

func (f *fakeSM) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeSM) Close() error {
	f.closed = true
	return nil
}

func TestFetch(t *testing.T) {
	sm := &fakeSM{resp: &secretmanagerpb.AccessSecretVersionResponse{
		Name:    "projects/123/secrets/db/versions/7",
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(`{"password":"s3cr3t"}`)},
	}}
	c := New(sm, "my-project")

	payload, err := c.Fetch(context.Background(), secretstore.Ref{Key: "db"})
	require.NoError(t, err)
	assert.Equal(t, `{"password":"s3cr3t"}`, string(payload.Raw))
	assert.Equal(t, "7", payload.Version)
	assert.Equal(t, "projects/my-project/secrets/db/versions/latest", sm.req.Name)

	_, err = c.Fetch(context.Background(), secretstore.Ref{Key: "projects/other/secrets/db", Version: "3"})
	require.NoError(t, err)
	assert.Equal(t, "projects/other/secrets/db/versions/3", sm.req.Name)

	require.NoError(t, c.Close(context.Background()))
	assert.True(t, sm.closed)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		code codes.Code
		want reason.Code
	}{
		{code: codes.NotFound, want: reason.NotFound},
		{code: codes.PermissionDenied, want: reason.AccessDenied},
		{code: codes.Unauthenticated, want: reason.AccessDenied},
		{code: codes.ResourceExhausted, want: reason.Throttled},
		{code: codes.Unavailable, want: reason.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			c := New(&fakeSM{err: status.Error(tt.code, "boom")}, "my-project")
			_, err := c.Fetch(context.Background(), secretstore.Ref{Key: "db"})
			assert.Equal(t, tt.want, reason.Of(err))
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	p := &Provider{}
	b := &sfv1alpha1.SecretStoreBinding{Spec: sfv1alpha1.SecretStoreBindingSpec{Provider: sfv1alpha1.ProviderGCPSecretManager}}
	_, err := p.NewClient(context.Background(), b, &broker.Credential{Token: "ya29"})
	assert.Equal(t, reason.InvalidSpec, reason.Of(err))

	b.Spec.Endpoint = "my-project"
	_, err = p.NewClient(context.Background(), b, &broker.Credential{})
	assert.Equal(t, reason.AccessDenied, reason.Of(err))
}
