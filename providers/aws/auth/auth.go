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


// Package auth builds AWS configs from broker credentials and maps AWS
// API errors to failure reasons.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/spf13/pflag"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/feature"
	"github.com/secretfed/secretfed/pkg/reason"
)

const (
	appID = "secretfed"

	errNoAccessKey = "credential for %s carries no aws access key"
	errLoadConfig  = "unable to load aws config: %w"
)

// endpointURL overrides the endpoint of every AWS service client.
var endpointURL string

func init() {
	fs := pflag.NewFlagSet("aws-auth", pflag.ExitOnError)
	fs.StringVar(&endpointURL, "aws-endpoint-url", "", "Override the endpoint of all AWS API calls, e.g. for a local emulator.")
	feature.Register(feature.Feature{Flags: fs})
}

var (
	notFoundCodes = map[string]bool{
		"ResourceNotFoundException": true,
		"ParameterNotFound":         true,
		"ParameterVersionNotFound":  true,
		"InvalidRequestException":   true,
	}
	accessDeniedCodes = map[string]bool{
		"AccessDeniedException":       true,
		"AccessDenied":                true,
		"UnrecognizedClientException": true,
		"ExpiredTokenException":       true,
		"InvalidSignatureException":   true,
		"DecryptionFailure":           true,
		"InvalidKeyId":                true,
	}
	throttledCodes = map[string]bool{
		"ThrottlingException":      true,
		"Throttling":               true,
		"TooManyRequestsException": true,
		"RequestLimitExceeded":     true,
	}
)

// NewConfig returns an aws.Config for the binding's region that signs
// requests with cred. Shared config and credential files are ignored.
func NewConfig(ctx context.Context, binding *sfv1alpha1.SecretStoreBinding, cred *broker.Credential) (aws.Config, error) {
	if cred.AccessKeyID == "" {
		return aws.Config{}, reason.New(reason.AccessDenied, errNoAccessKey, cred.Role.Name)
	}
	opts := []func(*config.LoadOptions) error{
		config.WithAppID(appID),
		config.WithRegion(binding.Spec.Region),
		config.WithSharedConfigFiles([]string{}),
		config.WithSharedCredentialsFiles([]string{}),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cred.AccessKeyID, cred.SecretAccessKey, cred.SessionToken)),
	}
	if endpointURL != "" {
		opts = append(opts, config.WithBaseEndpoint(endpointURL))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, reason.Wrap(reason.Unavailable, fmt.Errorf(errLoadConfig, err))
	}
	return cfg, nil
}

// Classify tags an AWS API error with a failure reason.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case notFoundCodes[code]:
			return reason.Wrap(reason.NotFound, err)
		case accessDeniedCodes[code]:
			return reason.Wrap(reason.AccessDenied, err)
		case throttledCodes[code]:
			return reason.Wrap(reason.Throttled, err)
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusForbidden, http.StatusUnauthorized:
			return reason.Wrap(reason.AccessDenied, err)
		case http.StatusNotFound:
			return reason.Wrap(reason.NotFound, err)
		case http.StatusTooManyRequests:
			return reason.Wrap(reason.Throttled, err)
		}
	}
	return reason.Wrap(reason.Unavailable, err)
}
