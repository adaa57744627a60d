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


// Package token issues projected service account tokens through the
// TokenRequest API for use as web identity tokens.
package token

import (
	"context"
	"fmt"
	"time"

	authv1 "k8s.io/api/authentication/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	typedcorev1 "k8s.io/client-go/kubernetes/typed/core/v1"

	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
)

// DefaultTokenTTL is the requested token lifetime in seconds.
const DefaultTokenTTL = 600

const errCreateToken = "failed to create token for service account %s: %w"

// ServiceAccountTokenSource requests short-lived tokens for the workload's
// own service account.
type ServiceAccountTokenSource struct {
	Corev1            typedcorev1.CoreV1Interface
	ExpirationSeconds int64
}

func New(corev1 typedcorev1.CoreV1Interface) *ServiceAccountTokenSource {
	return &ServiceAccountTokenSource{Corev1: corev1, ExpirationSeconds: DefaultTokenTTL}
}

// Token issues a token bound to audiences. A missing service account or a
// forbidden request is reported as ExchangeDenied, anything else as ExchangeUnavailable.
func (s *ServiceAccountTokenSource) Token(ctx context.Context, id identity.WorkloadIdentity, audiences []string) (string, error) {
	expirationSeconds := s.ExpirationSeconds
	if expirationSeconds <= 0 {
		expirationSeconds = DefaultTokenTTL
	}
	tokenRequest := &authv1.TokenRequest{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: id.Namespace,
		},
		Spec: authv1.TokenRequestSpec{
			Audiences:         audiences,
			ExpirationSeconds: &expirationSeconds,
		},
	}

	start := time.Now()
	resp, err := s.Corev1.ServiceAccounts(id.Namespace).CreateToken(ctx, id.ServiceAccount, tokenRequest, metav1.CreateOptions{})
	metrics.ObserveAPICallSince(constants.ProviderKubernetes, constants.CallKubernetesCreateToken, start, err)
	if err != nil {
		code := reason.ExchangeUnavailable
		if apierrors.IsNotFound(err) || apierrors.IsForbidden(err) {
			code = reason.ExchangeDenied
		}
		return "", reason.Wrap(code, fmt.Errorf(errCreateToken, id, err))
	}
	return resp.Status.Token, nil
}
