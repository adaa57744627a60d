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


// Package secretsmanager reads secrets from AWS Secrets Manager.
package secretsmanager

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/secretstore"
	"github.com/secretfed/secretfed/providers/aws/auth"
)

const (
	// CurrentStage is read when no version is requested.
	CurrentStage = "AWSCURRENT"
	// VersionIDPrefix selects a version by id instead of by stage, e.g. uuid/0d9e...
	VersionIDPrefix = "uuid/"

	errEmptySecret = "secret %q has neither a string nor a binary value"
)

// SMInterface is the subset of the Secrets Manager API used here.
type SMInterface interface {
	GetSecretValue(ctx context.Context, params *awssm.GetSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.GetSecretValueOutput, error)
}

// Provider creates Secrets Manager clients.
type Provider struct{}

func (p *Provider) Describe() secretstore.Description {
	return secretstore.Description{Tag: sfv1alpha1.ProviderAWSSecretsManager, RoleKind: sfv1alpha1.RoleKindAWS}
}

func (p *Provider) NewClient(ctx context.Context, binding *sfv1alpha1.SecretStoreBinding, cred *broker.Credential) (secretstore.SecretsClient, error) {
	cfg, err := auth.NewConfig(ctx, binding, cred)
	if err != nil {
		return nil, err
	}
	return &SecretsManager{
		client: awssm.NewFromConfig(cfg, func(o *awssm.Options) {
			o.EndpointResolverV2 = customEndpointResolver{}
			if binding.Spec.Endpoint != "" {
				o.BaseEndpoint = aws.String(binding.Spec.Endpoint)
			}
		}),
	}, nil
}

// SecretsManager is a client for one binding.
type SecretsManager struct {
	client SMInterface
}

// New wraps an existing API client.
func New(client SMInterface) *SecretsManager {
	return &SecretsManager{client: client}
}

func (sm *SecretsManager) Fetch(ctx context.Context, ref secretstore.Ref) (*secretstore.Payload, error) {
	input := &awssm.GetSecretValueInput{SecretId: aws.String(ref.Key)}
	switch {
	case strings.HasPrefix(ref.Version, VersionIDPrefix):
		input.VersionId = aws.String(strings.TrimPrefix(ref.Version, VersionIDPrefix))
	case ref.Version != "":
		input.VersionStage = aws.String(ref.Version)
	default:
		input.VersionStage = aws.String(CurrentStage)
	}

	out, err := sm.client.GetSecretValue(ctx, input)
	metrics.ObserveAPICall(constants.ProviderAWSSM, constants.CallAWSSMGetSecretValue, err)
	if err != nil {
		return nil, auth.Classify(err)
	}

	payload := &secretstore.Payload{Version: aws.ToString(out.VersionId)}
	switch {
	case out.SecretString != nil:
		payload.Raw = []byte(*out.SecretString)
	case out.SecretBinary != nil:
		payload.Raw = out.SecretBinary
	default:
		return nil, reason.New(reason.NotFound, errEmptySecret, ref.Key)
	}
	return payload, nil
}

func (sm *SecretsManager) Close(context.Context) error {
	return nil
}
