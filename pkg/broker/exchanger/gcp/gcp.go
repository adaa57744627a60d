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


// Package gcp exchanges workload tokens for Google access tokens through
// workload identity federation.
package gcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
)

const (
	// DefaultTokenURL is the security token service endpoint.
	DefaultTokenURL = "https://sts.googleapis.com/v1/token"
	// CloudPlatformScope is requested for every exchanged token.
	CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

	grantType          = "urn:ietf:params:oauth:grant-type:token-exchange"
	subjectTokenType   = "urn:ietf:params:oauth:token-type:jwt"
	requestedTokenType = "urn:ietf:params:oauth:token-type:access_token"

	errStatus  = "token exchange for %s failed, status: %v: %s"
	errNoToken = "token exchange for %s returned no access token"
)

// Exchanger trades tokens with the Google STS. RoleRef.Name is the full
// workload identity provider resource, e.g.
// //iam.googleapis.com/projects/123/locations/global/workloadIdentityPools/pool/providers/k8s.
type Exchanger struct {
	HTTPClient *http.Client
	TokenURL   string
}

func New() *Exchanger {
	return &Exchanger{HTTPClient: &http.Client{Timeout: 30 * time.Second}, TokenURL: DefaultTokenURL}
}

// Audiences returns the default allowed audience of a workload identity provider.
func (e *Exchanger) Audiences(role identity.RoleRef) []string {
	if strings.HasPrefix(role.Name, "//") {
		return []string{"https:" + role.Name}
	}
	return []string{role.Name}
}

func (e *Exchanger) Exchange(ctx context.Context, req broker.ExchangeRequest) (*broker.Credential, error) {
	issued := time.Now()
	tok, err := e.exchange(ctx, req)
	metrics.ObserveAPICall(constants.ProviderGCPSTS, constants.CallGCPSTSTokenExchange, err)
	if err != nil {
		return nil, err
	}
	expiry := tok.Expiry
	if expiry.IsZero() && tok.ExpiresIn > 0 {
		expiry = issued.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return &broker.Credential{
		Role:      req.Role,
		Token:     tok.AccessToken,
		IssuedAt:  issued,
		ExpiresAt: expiry,
	}, nil
}

func (e *Exchanger) exchange(ctx context.Context, req broker.ExchangeRequest) (*oauth2.Token, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":           grantType,
		"subject_token_type":   subjectTokenType,
		"requested_token_type": requestedTokenType,
		"subject_token":        req.Token,
		"audience":             req.Role.Name,
		"scope":                CloudPlatformScope,
	})
	if err != nil {
		return nil, reason.Wrap(reason.ExchangeDenied, err)
	}

	url := e.TokenURL
	if url == "" {
		url = DefaultTokenURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, reason.Wrap(reason.ExchangeUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, reason.Wrap(reason.ExchangeUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, reason.Wrap(reason.ExchangeUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, reason.New(reason.ExchangeUnavailable, errStatus, req.Role.Name, resp.StatusCode, respBody)
	default:
		return nil, reason.New(reason.ExchangeDenied, errStatus, req.Role.Name, resp.StatusCode, respBody)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(respBody, tok); err != nil {
		return nil, reason.Wrap(reason.ExchangeUnavailable, fmt.Errorf("unable to decode token response: %w", err))
	}
	if tok.AccessToken == "" {
		return nil, reason.New(reason.ExchangeUnavailable, errNoToken, req.Role.Name)
	}
	return tok, nil
}
