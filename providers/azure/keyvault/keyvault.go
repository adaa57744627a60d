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


// Package keyvault reads secrets from Azure Key Vault.
package keyvault

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/secretstore"
)

const (
	errNoVault   = "binding %s/%s needs spec.endpoint set to the vault url"
	errNoToken   = "credential for %s carries no access token"
	errNewClient = "unable to create key vault client: %w"
	errNoValue   = "secret %q has no value"
)

// SecretClient is the subset of the azsecrets client used here.
type SecretClient interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// Provider creates Key Vault clients. spec.endpoint is the vault URL.
type Provider struct{}

func (p *Provider) Describe() secretstore.Description {
	return secretstore.Description{Tag: sfv1alpha1.ProviderAzureKeyVault, RoleKind: sfv1alpha1.RoleKindAzure}
}

func (p *Provider) NewClient(_ context.Context, binding *sfv1alpha1.SecretStoreBinding, cred *broker.Credential) (secretstore.SecretsClient, error) {
	if binding.Spec.Endpoint == "" {
		return nil, reason.New(reason.InvalidSpec, errNoVault, binding.Namespace, binding.Name)
	}
	if cred.Token == "" {
		return nil, reason.New(reason.AccessDenied, errNoToken, cred.Role.Name)
	}
	client, err := azsecrets.NewClient(binding.Spec.Endpoint, staticCredential{cred: cred}, &azsecrets.ClientOptions{})
	if err != nil {
		return nil, reason.Wrap(reason.InvalidSpec, fmt.Errorf(errNewClient, err))
	}
	return New(client), nil
}

// staticCredential hands the broker issued token to the SDK.
type staticCredential struct {
	cred *broker.Credential
}

func (s staticCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: s.cred.Token, ExpiresOn: s.cred.ExpiresAt}, nil
}

// KeyVault is a client for one vault.
type KeyVault struct {
	client SecretClient
}

func New(client SecretClient) *KeyVault {
	return &KeyVault{client: client}
}

// Fetch reads a secret. An empty version reads the latest one.
func (kv *KeyVault) Fetch(ctx context.Context, ref secretstore.Ref) (*secretstore.Payload, error) {
	resp, err := kv.client.GetSecret(ctx, ref.Key, ref.Version, nil)
	metrics.ObserveAPICall(constants.ProviderAzureKV, constants.CallAzureKVGetSecret, err)
	if err != nil {
		return nil, parseError(err)
	}
	if resp.Value == nil {
		return nil, reason.New(reason.NotFound, errNoValue, ref.Key)
	}
	payload := &secretstore.Payload{Raw: []byte(*resp.Value)}
	if resp.ID != nil {
		payload.Version = resp.ID.Version()
	}
	return payload, nil
}

func (kv *KeyVault) Close(context.Context) error {
	return nil
}

func parseError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return reason.Wrap(reason.NotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return reason.Wrap(reason.AccessDenied, err)
		case http.StatusTooManyRequests:
			return reason.Wrap(reason.Throttled, err)
		}
	}
	return reason.Wrap(reason.Unavailable, err)
}
