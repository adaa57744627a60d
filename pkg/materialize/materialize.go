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


// Package materialize turns a fetched secret payload into the key layout of
// a target Secret, tracking which SecretRequest owns which key.
package materialize

import (
	"crypto/sha3"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/utils"
)

const (
	errMappingNotFound = "property %q of remote secret %q does not exist"
	errNotJSON         = "remote secret %q is not a JSON object, property %q cannot be extracted"
	errKeyOwned        = "key %q of secret %s/%s is owned by %s"
	errSecretOwned     = "secret %s/%s is controlled by %s %s"
	errBadOwners       = "annotation %s of secret %s/%s is not valid: %v"
)

// Request is the part of a SecretRequest the materializer needs.
type Request struct {
	// Owner is namespace/name of the SecretRequest.
	Owner     string
	OwnerRef  metav1.OwnerReference
	Namespace string
	Name      string
	RemoteKey string
	Policy    sfv1alpha1.CreationPolicy
	Mappings  []sfv1alpha1.SecretRequestData
}

// FromSecretRequest builds a Request.
func FromSecretRequest(r *sfv1alpha1.SecretRequest) Request {
	return Request{
		Owner: r.OwnerKey(),
		OwnerRef: metav1.OwnerReference{
			APIVersion:         sfv1alpha1.SchemeGroupVersion.String(),
			Kind:               sfv1alpha1.SecretRequestKind,
			Name:               r.Name,
			UID:                r.UID,
			Controller:         utils.Ptr(true),
			BlockOwnerDeletion: utils.Ptr(true),
		},
		Namespace: r.Namespace,
		Name:      r.TargetName(),
		RemoteKey: r.Spec.RemoteRef.Key,
		Policy:    r.CreationPolicy(),
		Mappings:  r.Spec.Data,
	}
}

// Materialize returns the Secret that results from applying payload to
// existing, which may be nil. existing is not modified. On error nothing
// should be written: a partial result is never returned.
func Materialize(existing *corev1.Secret, req Request, payload []byte) (*corev1.Secret, error) {
	values, err := extract(req, payload)
	if err != nil {
		return nil, err
	}

	out := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Namespace: req.Namespace, Name: req.Name},
		Type:       corev1.SecretTypeOpaque,
	}
	if existing != nil {
		out = existing.DeepCopy()
	}
	owners, err := KeyOwners(out)
	if err != nil {
		return nil, err
	}
	if err := checkOwnership(out, owners, req); err != nil {
		return nil, err
	}

	data := make(map[string][]byte, len(out.Data)+len(values))
	for k, v := range out.Data {
		owner, owned := owners[k]
		switch {
		case owner == req.Owner:
			// own keys are rewritten below, stale ones dropped
		case !owned && req.Policy == sfv1alpha1.CreatePolicyOwner:
			// unmanaged keys do not survive under Owner
		default:
			data[k] = v
		}
	}
	for k := range owners {
		if owners[k] == req.Owner {
			delete(owners, k)
		}
	}
	for k, v := range values {
		data[k] = v
		owners[k] = req.Owner
	}
	out.Data = data

	if out.Labels == nil {
		out.Labels = map[string]string{}
	}
	out.Labels[sfv1alpha1.LabelManaged] = sfv1alpha1.LabelManagedValue
	if out.Annotations == nil {
		out.Annotations = map[string]string{}
	}
	ownersJSON, err := json.Marshal(owners)
	if err != nil {
		return nil, err
	}
	out.Annotations[sfv1alpha1.AnnotationKeyOwners] = string(ownersJSON)
	out.Annotations[sfv1alpha1.AnnotationDataHash] = DataHash(out.Data)

	if req.Policy == sfv1alpha1.CreatePolicyOwner && controllerOf(out) == nil {
		out.OwnerReferences = append(out.OwnerReferences, req.OwnerRef)
	}
	return out, nil
}

// Release removes every key owned by owner from secret and reports whether
// any key owned by someone else remains.
func Release(secret *corev1.Secret, owner string) (*corev1.Secret, bool, error) {
	owners, err := KeyOwners(secret)
	if err != nil {
		return nil, false, err
	}
	out := secret.DeepCopy()
	for k, o := range owners {
		if o == owner {
			delete(out.Data, k)
			delete(owners, k)
		}
	}
	ownersJSON, err := json.Marshal(owners)
	if err != nil {
		return nil, false, err
	}
	if out.Annotations == nil {
		out.Annotations = map[string]string{}
	}
	out.Annotations[sfv1alpha1.AnnotationKeyOwners] = string(ownersJSON)
	out.Annotations[sfv1alpha1.AnnotationDataHash] = DataHash(out.Data)
	return out, len(owners) > 0, nil
}

// KeyOwners returns the key to owner mapping recorded on secret.
func KeyOwners(secret *corev1.Secret) (map[string]string, error) {
	owners := map[string]string{}
	raw, ok := secret.Annotations[sfv1alpha1.AnnotationKeyOwners]
	if !ok || raw == "" {
		return owners, nil
	}
	if err := json.Unmarshal([]byte(raw), &owners); err != nil {
		return nil, reason.New(reason.OwnershipConflict, errBadOwners, sfv1alpha1.AnnotationKeyOwners, secret.Namespace, secret.Name, err)
	}
	return owners, nil
}

// DataHash is the value of the data-hash annotation for data.
// The JSON encoding sorts keys and base64 encodes values, so distinct data
// never share an encoding. nil and empty data hash alike.
func DataHash(data map[string][]byte) string {
	if data == nil {
		data = map[string][]byte{}
	}
	raw, _ := json.Marshal(data)
	return fmt.Sprintf("%x", sha3.Sum224(raw))
}

func checkOwnership(secret *corev1.Secret, owners map[string]string, req Request) error {
	ref := controllerOf(secret)
	if req.Policy == sfv1alpha1.CreatePolicyOwner && ref != nil && ref.UID != req.OwnerRef.UID {
		return reason.New(reason.OwnershipConflict, errSecretOwned, secret.Namespace, secret.Name, ref.Kind, ref.Name)
	}
	for _, m := range req.Mappings {
		if owner, ok := owners[m.TargetKey]; ok && owner != req.Owner {
			return reason.New(reason.OwnershipConflict, errKeyOwned, m.TargetKey, secret.Namespace, secret.Name, owner)
		}
	}
	return nil
}

func controllerOf(secret *corev1.Secret) *metav1.OwnerReference {
	return metav1.GetControllerOfNoCopy(secret)
}

func extract(req Request, payload []byte) (map[string][]byte, error) {
	values := make(map[string][]byte, len(req.Mappings))
	for _, m := range req.Mappings {
		if m.RemoteProperty == "" {
			values[m.TargetKey] = payload
			continue
		}
		if !gjson.ValidBytes(payload) {
			return nil, reason.New(reason.MappingNotFound, errNotJSON, req.RemoteKey, m.RemoteProperty)
		}
		val := gjson.GetBytes(payload, escapeDotsIfRequired(m.RemoteProperty, payload))
		if !val.Exists() {
			return nil, reason.New(reason.MappingNotFound, errMappingNotFound, m.RemoteProperty, req.RemoteKey)
		}
		values[m.TargetKey] = []byte(val.String())
	}
	return values, nil
}

// escapeDotsIfRequired prefers a literal key containing dots over a path.
func escapeDotsIfRequired(property string, payload []byte) string {
	if !strings.Contains(property, ".") {
		return property
	}
	escaped := strings.ReplaceAll(property, ".", `\.`)
	if gjson.GetBytes(payload, escaped).Exists() {
		return escaped
	}
	return property
}
