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


// Package azure exchanges workload tokens for Entra ID access tokens
// using the client assertion flow of workload identity federation.
package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
)

const (
	// DefaultTokenAudience is the audience Entra ID expects on federated assertions.
	DefaultTokenAudience = "api://AzureADTokenExchange"
	// KeyVaultScope is requested unless Scope overrides it.
	KeyVaultScope = "https://vault.azure.net/.default"

	errRoleName = "azure role %q must be of the form tenantID/clientID"
)

// CredentialFunc builds a credential that presents getAssertion to Entra ID.
type CredentialFunc func(tenantID, clientID string, getAssertion func(context.Context) (string, error)) (azcore.TokenCredential, error)

// Exchanger obtains tokens for app registrations. RoleRef.Name is "tenantID/clientID".
type Exchanger struct {
	Scope         string
	NewCredential CredentialFunc
}

func New() *Exchanger {
	return &Exchanger{Scope: KeyVaultScope, NewCredential: newClientAssertionCredential}
}

func newClientAssertionCredential(tenantID, clientID string, getAssertion func(context.Context) (string, error)) (azcore.TokenCredential, error) {
	return azidentity.NewClientAssertionCredential(tenantID, clientID, getAssertion, &azidentity.ClientAssertionCredentialOptions{})
}

func (e *Exchanger) Audiences(identity.RoleRef) []string {
	return []string{DefaultTokenAudience}
}

func (e *Exchanger) Exchange(ctx context.Context, req broker.ExchangeRequest) (*broker.Credential, error) {
	tenantID, clientID, err := ParseRoleName(req.Role.Name)
	if err != nil {
		return nil, reason.Wrap(reason.ExchangeDenied, err)
	}
	newCred := e.NewCredential
	if newCred == nil {
		newCred = newClientAssertionCredential
	}
	cred, err := newCred(tenantID, clientID, func(context.Context) (string, error) {
		return req.Token, nil
	})
	if err != nil {
		return nil, reason.Wrap(reason.ExchangeDenied, err)
	}

	scope := e.Scope
	if scope == "" {
		scope = KeyVaultScope
	}
	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{scope}})
	metrics.ObserveAPICall(constants.ProviderAzureAD, constants.CallAzureADClientAssertion, err)
	if err != nil {
		return nil, classify(err)
	}
	return &broker.Credential{
		Role:      req.Role,
		Token:     tok.Token,
		ExpiresAt: tok.ExpiresOn,
	}, nil
}

// ParseRoleName splits "tenantID/clientID".
func ParseRoleName(name string) (tenantID, clientID string, err error) {
	tenantID, clientID, ok := strings.Cut(name, "/")
	if !ok || tenantID == "" || clientID == "" || strings.Contains(clientID, "/") {
		return "", "", fmt.Errorf(errRoleName, name)
	}
	return tenantID, clientID, nil
}

func classify(err error) error {
	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) && authErr.RawResponse != nil {
		switch authErr.RawResponse.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return reason.Wrap(reason.ExchangeDenied, err)
		}
	}
	return reason.Wrap(reason.ExchangeUnavailable, err)
}
