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


// Package parameterstore reads parameters from AWS Systems Manager Parameter Store.
package parameterstore

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/secretstore"
	"github.com/secretfed/secretfed/providers/aws/auth"
)

const errNoParameter = "parameter %q returned no value"

// PMInterface is the subset of the SSM API used here.
type PMInterface interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Provider creates Parameter Store clients.
type Provider struct{}

func (p *Provider) Describe() secretstore.Description {
	return secretstore.Description{Tag: sfv1alpha1.ProviderAWSParameterStore, RoleKind: sfv1alpha1.RoleKindAWS}
}

func (p *Provider) NewClient(ctx context.Context, binding *sfv1alpha1.SecretStoreBinding, cred *broker.Credential) (secretstore.SecretsClient, error) {
	cfg, err := auth.NewConfig(ctx, binding, cred)
	if err != nil {
		return nil, err
	}
	return &ParameterStore{
		client: ssm.NewFromConfig(cfg, func(o *ssm.Options) {
			o.EndpointResolverV2 = customEndpointResolver{}
			if binding.Spec.Endpoint != "" {
				o.BaseEndpoint = aws.String(binding.Spec.Endpoint)
			}
		}),
	}, nil
}

// ParameterStore is a client for one binding.
type ParameterStore struct {
	client PMInterface
}

func New(client PMInterface) *ParameterStore {
	return &ParameterStore{client: client}
}

// Fetch reads a parameter with decryption. A version selects name:version.
func (pm *ParameterStore) Fetch(ctx context.Context, ref secretstore.Ref) (*secretstore.Payload, error) {
	name := ref.Key
	if ref.Version != "" {
		name += ":" + ref.Version
	}
	out, err := pm.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	metrics.ObserveAPICall(constants.ProviderAWSPS, constants.CallAWSPSGetParameter, err)
	if err != nil {
		return nil, auth.Classify(err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, reason.New(reason.NotFound, errNoParameter, ref.Key)
	}
	return &secretstore.Payload{
		Raw:     []byte(*out.Parameter.Value),
		Version: strconv.FormatInt(out.Parameter.Version, 10),
	}, nil
}

func (pm *ParameterStore) Close(context.Context) error {
	return nil
}
