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


package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/reason"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want reason.Code
	}{
		{err: &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, want: reason.NotFound},
		{err: &smithy.GenericAPIError{Code: "ParameterNotFound"}, want: reason.NotFound},
		{err: &smithy.GenericAPIError{Code: "AccessDeniedException"}, want: reason.AccessDenied},
		{err: &smithy.GenericAPIError{Code: "ExpiredTokenException"}, want: reason.AccessDenied},
		{err: &smithy.GenericAPIError{Code: "ThrottlingException"}, want: reason.Throttled},
		{err: &smithy.GenericAPIError{Code: "InternalServiceError"}, want: reason.Unavailable},
		{err: errors.New("dial tcp: connection refused"), want: reason.Unavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reason.Of(Classify(tt.err)), tt.err.Error())
	}
	assert.NoError(t, Classify(nil))
}

func TestNewConfig(t *testing.T) {
	b := &sfv1alpha1.SecretStoreBinding{Spec: sfv1alpha1.SecretStoreBindingSpec{Region: "eu-central-1"}}
	cfg, err := NewConfig(context.Background(), b, &broker.Credential{AccessKeyID: "AKIA", SecretAccessKey: "secret", SessionToken: "session"})
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIA", creds.AccessKeyID)
	assert.Equal(t, "session", creds.SessionToken)

	_, err = NewConfig(context.Background(), b, &broker.Credential{Token: "bearer"})
	assert.Equal(t, reason.AccessDenied, reason.Of(err))
}

func TestNewConfigEndpointOverride(t *testing.T) {
	endpointURL = "http://localhost:4566"
	t.Cleanup(func() { endpointURL = "" })

	b := &sfv1alpha1.SecretStoreBinding{Spec: sfv1alpha1.SecretStoreBindingSpec{Region: "eu-central-1"}}
	cfg, err := NewConfig(context.Background(), b, &broker.Credential{AccessKeyID: "AKIA", SecretAccessKey: "secret"})
	require.NoError(t, err)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)
}
