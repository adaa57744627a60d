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


package secretstore

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/reason"
)

// Keys read from the Secret referenced by spec.identityRef.secretRef.
const (
	KeyAccessKeyID     = "access-key-id"
	KeySecretAccessKey = "secret-access-key"
	KeySessionToken    = "session-token"
	KeyToken           = "token"

	errGetIdentitySecret = "unable to read identity secret %s/%s"
	errEmptyIdentity     = "identity secret %s/%s contains neither %s nor %s"
)

// StaticCredential loads the explicit credentials of a non-federated binding.
// The result never expires. A missing or empty Secret is AccessDenied so it is
// retried on the regular cadence once somebody creates it.
func StaticCredential(ctx context.Context, c client.Reader, binding *sfv1alpha1.SecretStoreBinding) (*broker.Credential, error) {
	ref := binding.Spec.IdentityRef
	if ref == nil {
		return nil, reason.New(reason.InvalidSpec, "binding %s/%s has no identityRef", binding.Namespace, binding.Name)
	}
	var secret corev1.Secret
	key := client.ObjectKey{Namespace: binding.Namespace, Name: ref.SecretRef.Name}
	if err := c.Get(ctx, key, &secret); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, reason.Wrapf(reason.AccessDenied, err, errGetIdentitySecret, key.Namespace, key.Name)
		}
		return nil, reason.Wrapf(reason.Unavailable, err, errGetIdentitySecret, key.Namespace, key.Name)
	}

	cred := &broker.Credential{
		Role: sfv1alpha1.RoleRef{
			Name: "secret:" + key.String(),
		},
		AccessKeyID:     string(secret.Data[KeyAccessKeyID]),
		SecretAccessKey: string(secret.Data[KeySecretAccessKey]),
		SessionToken:    string(secret.Data[KeySessionToken]),
		Token:           string(secret.Data[KeyToken]),
	}
	if cred.AccessKeyID == "" && cred.Token == "" {
		return nil, reason.New(reason.AccessDenied, errEmptyIdentity, key.Namespace, key.Name, KeyAccessKeyID, KeyToken)
	}
	return cred, nil
}
