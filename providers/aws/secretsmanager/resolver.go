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


package secretsmanager

import (
	"context"
	"fmt"
	"net/url"
	"os"

	awssm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smithyendpoints "github.com/aws/smithy-go/endpoints"
)

// SMEndpointEnv overrides the Secrets Manager endpoint.
const SMEndpointEnv = "AWS_SECRETSMANAGER_ENDPOINT"

type customEndpointResolver struct{}

func (c customEndpointResolver) ResolveEndpoint(ctx context.Context, params awssm.EndpointParameters) (smithyendpoints.Endpoint, error) {
	endpoint := smithyendpoints.Endpoint{}
	if v := os.Getenv(SMEndpointEnv); v != "" {
		u, err := url.Parse(v)
		if err != nil {
			return endpoint, fmt.Errorf("failed to parse secrets manager endpoint %s: %w", v, err)
		}
		endpoint.URI = *u
		return endpoint, nil
	}
	return awssm.NewDefaultEndpointResolverV2().ResolveEndpoint(ctx, params)
}
