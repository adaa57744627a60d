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


// Package secretmanager reads secret versions from Google Secret Manager.
package secretmanager

import (
	"context"
	"fmt"
	"path"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/secretstore"
)

const (
	latestVersion = "latest"

	errNoProject = "binding %s/%s needs spec.endpoint set to the gcp project id"
	errNoToken   = "credential for %s carries no access token"
	errNewClient = "unable to create secret manager client: %w"
	errNoPayload = "secret version %q has no payload"
)

// GoogleSecretManagerClient is the subset of the Secret Manager API used here.
type GoogleSecretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Provider creates Secret Manager clients. spec.endpoint is the project id,
// spec.region selects a regional endpoint.
type Provider struct{}

func (p *Provider) Describe() secretstore.Description {
	return secretstore.Description{Tag: sfv1alpha1.ProviderGCPSecretManager, RoleKind: sfv1alpha1.RoleKindGCP}
}

func (p *Provider) NewClient(ctx context.Context, binding *sfv1alpha1.SecretStoreBinding, cred *broker.Credential) (secretstore.SecretsClient, error) {
	if binding.Spec.Endpoint == "" {
		return nil, reason.New(reason.InvalidSpec, errNoProject, binding.Namespace, binding.Name)
	}
	if cred.Token == "" {
		return nil, reason.New(reason.AccessDenied, errNoToken, cred.Role.Name)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cred.Token,
		TokenType:   "Bearer",
		Expiry:      cred.ExpiresAt,
	})
	sm, err := newSMClient(ctx, ts, binding.Spec.Region)
	if err != nil {
		return nil, reason.Wrap(reason.Unavailable, fmt.Errorf(errNewClient, err))
	}
	return New(sm, binding.Spec.Endpoint), nil
}

func newSMClient(ctx context.Context, ts oauth2.TokenSource, location string) (*secretmanager.Client, error) {
	if location != "" {
		ep := fmt.Sprintf("secretmanager.%s.rep.googleapis.com:443", location)
		return secretmanager.NewClient(ctx, option.WithTokenSource(ts), option.WithEndpoint(ep))
	}
	return secretmanager.NewClient(ctx, option.WithTokenSource(ts))
}

// Client reads secrets of one project.
type Client struct {
	smClient  GoogleSecretManagerClient
	projectID string
}

func New(sm GoogleSecretManagerClient, projectID string) *Client {
	return &Client{smClient: sm, projectID: projectID}
}

// Fetch accepts a plain secret name or a full projects/.../secrets/... name.
func (c *Client) Fetch(ctx context.Context, ref secretstore.Ref) (*secretstore.Payload, error) {
	version := ref.Version
	if version == "" {
		version = latestVersion
	}
	name := ref.Key
	if !strings.HasPrefix(name, "projects/") {
		name = fmt.Sprintf("projects/%s/secrets/%s", c.projectID, ref.Key)
	}
	name = fmt.Sprintf("%s/versions/%s", name, version)

	resp, err := c.smClient.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	metrics.ObserveAPICall(constants.ProviderGCPSM, constants.CallGCPSMAccessSecretVersion, err)
	if err != nil {
		return nil, classify(err)
	}
	if resp.GetPayload() == nil {
		return nil, reason.New(reason.NotFound, errNoPayload, name)
	}
	return &secretstore.Payload{
		Raw:     resp.GetPayload().GetData(),
		Version: path.Base(resp.GetName()),
	}, nil
}

func (c *Client) Close(context.Context) error {
	return c.smClient.Close()
}

func classify(err error) error {
	switch status.Code(err) {
	case codes.NotFound, codes.FailedPrecondition, codes.InvalidArgument:
		return reason.Wrap(reason.NotFound, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return reason.Wrap(reason.AccessDenied, err)
	case codes.ResourceExhausted:
		return reason.Wrap(reason.Throttled, err)
	default:
		return reason.Wrap(reason.Unavailable, err)
	}
}
