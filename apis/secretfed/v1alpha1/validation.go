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

package v1alpha1

import (
	"errors"
	"fmt"
)

const (
	errNoData            = "spec.data must not be empty"
	errEmptyTargetKey    = "spec.data[%d].targetKey must not be empty"
	errDuplicateKey      = "spec.data[%d].targetKey %q duplicates spec.data[%d]"
	errNoStoreRef        = "spec.sourceStoreRef.name must not be empty"
	errNoRemoteKey       = "spec.remoteRef.key must not be empty"
	errNegativeInterval  = "spec.refreshInterval must not be negative"
	errUnknownPolicy     = "spec.target.creationPolicy %q is not supported"
	errUnknownProvider   = "spec.provider %q is not supported"
	errRateLimit         = "spec.rateLimit qps and burst must be positive"
	errEmptyIdentityName = "spec.identityRef.secretRef.name must not be empty"
)

// ValidateSecretRequest checks the invariants the CRD schema cannot express.
func ValidateSecretRequest(r *SecretRequest) error {
	var errs []error
	if r.Spec.SourceStoreRef.Name == "" {
		errs = append(errs, errors.New(errNoStoreRef))
	}
	if r.Spec.RemoteRef.Key == "" {
		errs = append(errs, errors.New(errNoRemoteKey))
	}
	if r.Spec.RefreshInterval != nil && r.Spec.RefreshInterval.Duration < 0 {
		errs = append(errs, errors.New(errNegativeInterval))
	}
	switch r.Spec.Target.CreationPolicy {
	case "", CreatePolicyOwner, CreatePolicyMerge:
	default:
		errs = append(errs, fmt.Errorf(errUnknownPolicy, r.Spec.Target.CreationPolicy))
	}
	if len(r.Spec.Data) == 0 {
		errs = append(errs, errors.New(errNoData))
	}
	seen := make(map[string]int, len(r.Spec.Data))
	for i, d := range r.Spec.Data {
		if d.TargetKey == "" {
			errs = append(errs, fmt.Errorf(errEmptyTargetKey, i))
			continue
		}
		if j, ok := seen[d.TargetKey]; ok {
			errs = append(errs, fmt.Errorf(errDuplicateKey, i, d.TargetKey, j))
			continue
		}
		seen[d.TargetKey] = i
	}
	return errors.Join(errs...)
}

// ValidateSecretStoreBinding checks a binding for obvious misconfiguration.
func ValidateSecretStoreBinding(b *SecretStoreBinding) error {
	var errs []error
	switch b.Spec.Provider {
	case ProviderAWSSecretsManager, ProviderAWSParameterStore, ProviderGCPSecretManager, ProviderAzureKeyVault, ProviderFake:
	default:
		errs = append(errs, fmt.Errorf(errUnknownProvider, b.Spec.Provider))
	}
	if rl := b.Spec.RateLimit; rl != nil && (rl.QPS <= 0 || rl.Burst <= 0) {
		errs = append(errs, errors.New(errRateLimit))
	}
	if b.Spec.IdentityRef != nil && b.Spec.IdentityRef.SecretRef.Name == "" {
		errs = append(errs, errors.New(errEmptyIdentityName))
	}
	return errors.Join(errs...)
}
