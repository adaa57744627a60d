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


// Package aws exchanges workload tokens for IAM role credentials
// with AssumeRoleWithWebIdentity.
package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
)

const (
	// DefaultTokenAudience is the audience STS expects on web identity tokens.
	DefaultTokenAudience = "sts.amazonaws.com"

	sessionNamePrefix = "secretfed-"
	appID             = "secretfed"

	errLoadConfig   = "unable to load aws config: %w"
	errNoCredential = "sts returned no credentials for %s"
)

// deniedCodes are STS error codes meaning the trust relationship rejects the workload.
var deniedCodes = map[string]bool{
	"AccessDenied":            true,
	"InvalidIdentityToken":    true,
	"ExpiredTokenException":   true,
	"IDPRejectedClaim":        true,
	"MalformedPolicyDocument": true,
	"PackedPolicyTooLarge":    true,
	"RegionDisabledException": true,
	"ValidationError":         true,
}

// STSAPI is the subset of the STS client the exchanger uses.
type STSAPI interface {
	AssumeRoleWithWebIdentity(ctx context.Context, params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithWebIdentityOutput, error)
}

// Exchanger assumes IAM roles. RoleRef.Name is the role ARN.
type Exchanger struct {
	STS             STSAPI
	Audience        string
	SessionDuration time.Duration
}

// New builds an Exchanger against the regional STS endpoint. AWS_STS_ENDPOINT
// takes precedence over the default endpoint resolution.
func New(ctx context.Context, region string) (*Exchanger, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithAppID(appID),
		config.WithRegion(region),
		config.WithSharedConfigFiles([]string{}),
		config.WithSharedCredentialsFiles([]string{}),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf(errLoadConfig, err)
	}
	client := sts.NewFromConfig(cfg, func(o *sts.Options) {
		o.EndpointResolverV2 = customEndpointResolver{}
	})
	return &Exchanger{STS: client, Audience: DefaultTokenAudience}, nil
}

func (e *Exchanger) Audiences(identity.RoleRef) []string {
	if e.Audience == "" {
		return []string{DefaultTokenAudience}
	}
	return []string{e.Audience}
}

func (e *Exchanger) Exchange(ctx context.Context, req broker.ExchangeRequest) (*broker.Credential, error) {
	input := &sts.AssumeRoleWithWebIdentityInput{
		RoleArn:          aws.String(req.Role.Name),
		RoleSessionName:  aws.String(sessionName()),
		WebIdentityToken: aws.String(req.Token),
	}
	if e.SessionDuration > 0 {
		input.DurationSeconds = aws.Int32(int32(e.SessionDuration.Seconds()))
	}

	out, err := e.STS.AssumeRoleWithWebIdentity(ctx, input)
	metrics.ObserveAPICall(constants.ProviderAWSSTS, constants.CallAWSSTSAssumeRoleWithWebIdentity, err)
	if err != nil {
		return nil, classify(err)
	}
	if out.Credentials == nil {
		return nil, reason.New(reason.ExchangeUnavailable, errNoCredential, req.Role.Name)
	}
	return &broker.Credential{
		Role:            req.Role,
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		ExpiresAt:       aws.ToTime(out.Credentials.Expiration),
	}, nil
}

func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && deniedCodes[apiErr.ErrorCode()] {
		return reason.Wrap(reason.ExchangeDenied, err)
	}
	return reason.Wrap(reason.ExchangeUnavailable, err)
}

// sessionName must be unique per exchange and at most 64 characters.
func sessionName() string {
	return sessionNamePrefix + uuid.NewString()
}
