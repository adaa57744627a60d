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

// Package identity maps workload identities to the credential roles they may assume.
package identity

import (
	"context"
	"errors"

	ctrl "sigs.k8s.io/controller-runtime"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/reason"
)

// ErrIdentityNotMapped is returned when no role is associated with a workload.
// It is terminal for the requesting workload.
var ErrIdentityNotMapped = reason.Sentinel(reason.IdentityNotMapped)

var log = ctrl.Log.WithName("identity")

// RoleRef identifies the role a workload identity is allowed to assume.
type RoleRef = sfv1alpha1.RoleRef

// WorkloadIdentity is the local identity a workload presents.
type WorkloadIdentity struct {
	Namespace      string
	ServiceAccount string
}

func (w WorkloadIdentity) String() string {
	return w.Namespace + "/" + w.ServiceAccount
}

// Store resolves workload identities to roles.
// Implementations must be safe for concurrent use and must make
// external updates visible to new lookups without a restart.
type Store interface {
	Resolve(ctx context.Context, id WorkloadIdentity) (RoleRef, error)
}

func notMapped(id WorkloadIdentity) error {
	return reason.New(reason.IdentityNotMapped, "no role associated with %s", id)
}

// IsNotMapped reports whether err means the workload has no association.
func IsNotMapped(err error) bool {
	return errors.Is(err, ErrIdentityNotMapped)
}

// Chain tries each store in order. Only ErrIdentityNotMapped falls through
// to the next store; any other error is returned as is.
type Chain []Store

func (c Chain) Resolve(ctx context.Context, id WorkloadIdentity) (RoleRef, error) {
	for _, s := range c {
		role, err := s.Resolve(ctx, id)
		if err == nil {
			return role, nil
		}
		if !IsNotMapped(err) {
			return RoleRef{}, err
		}
	}
	return RoleRef{}, notMapped(id)
}
