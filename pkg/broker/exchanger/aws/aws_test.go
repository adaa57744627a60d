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


package aws

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/reason"
)

type fakeSTS struct {
	input *sts.AssumeRoleWithWebIdentityInput
	out   *sts.AssumeRoleWithWebIdentityOutput
	err   error
}

func (f *fakeSTS) AssumeRoleWithWebIdentity(_ context.Context, in *sts.AssumeRoleWithWebIdentityInput, _ ...func(*sts.Options)) (*sts.AssumeRoleWithWebIdentityOutput, error) {
	f.input = in
	return f.out, f.err
}

const roleARN = "arn:aws:iam::123456789012:role/db-reader"

func request() broker.ExchangeRequest {
	return broker.ExchangeRequest{
		Identity: identity.WorkloadIdentity{Namespace: "apps", ServiceAccount: "api"},
		Role:     identity.RoleRef{Kind: sfv1alpha1.RoleKindAWS, Name: roleARN},
		Token:    "jwt",
	}
}

func TestExchange(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	fake := &fakeSTS{out: &sts.AssumeRoleWithWebIdentityOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("AKIA"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("session"),
			Expiration:      aws.Time(expiry),
		},
	}}
	ex := &Exchanger{STS: fake, SessionDuration: 30 * time.Minute}

	cred, err := ex.Exchange(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "AKIA", cred.AccessKeyID)
	assert.Equal(t, "secret", cred.SecretAccessKey)
	assert.Equal(t, "session", cred.SessionToken)
	assert.Equal(t, expiry, cred.ExpiresAt)

	assert.Equal(t, roleARN, aws.ToString(fake.input.RoleArn))
	assert.Equal(t, "jwt", aws.ToString(fake.input.WebIdentityToken))
	assert.Equal(t, int32(1800), aws.ToInt32(fake.input.DurationSeconds))
	name := aws.ToString(fake.input.RoleSessionName)
	assert.True(t, strings.HasPrefix(name, sessionNamePrefix))
	assert.LessOrEqual(t, len(name), 64)

	assert.Equal(t, []string{DefaultTokenAudience}, ex.Audiences(request().Role))
}

func TestExchangeErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want reason.Code
	}{
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: reason.ExchangeDenied},
		{name: "invalid token", err: &smithy.GenericAPIError{Code: "InvalidIdentityToken"}, want: reason.ExchangeDenied},
		{name: "idp unreachable", err: &smithy.GenericAPIError{Code: "IDPCommunicationError"}, want: reason.ExchangeUnavailable},
		{name: "network", err: errors.New("dial tcp: i/o timeout"), want: reason.ExchangeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &Exchanger{STS: &fakeSTS{err: tt.err}}
			_, err := ex.Exchange(context.Background(), request())
			assert.Equal(t, tt.want, reason.Of(err))
		})
	}
}

func TestExchangeWithoutCredentials(t *testing.T) {
	ex := &Exchanger{STS: &fakeSTS{out: &sts.AssumeRoleWithWebIdentityOutput{}}}
	_, err := ex.Exchange(context.Background(), request())
	assert.Equal(t, reason.ExchangeUnavailable, reason.Of(err))
}

func TestEndpointResolver(t *testing.T) {
	t.Setenv(STSEndpointEnv, "http://localhost:4566")
	ep, err := customEndpointResolver{}.ResolveEndpoint(context.Background(), sts.EndpointParameters{Region: aws.String("eu-west-1")})
	require.NoError(t, err)
	assert.Equal(t, "localhost:4566", ep.URI.Host)
}
