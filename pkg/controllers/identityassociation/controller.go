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


// Package identityassociation publishes which IdentityAssociation is in
// effect for a workload identity.
package identityassociation

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/identity"
)

const (
	errGetAssociation = "could not get IdentityAssociation"
	errListSiblings   = "could not list IdentityAssociations for %s: %w"
	errPatchStatus    = "unable to patch status"
	msgSuperseded     = "association for %s is superseded by %s"
	msgActivated      = "association for %s is active, role %s"
)

// Reconciler reconciles an IdentityAssociation object.
type Reconciler struct {
	client.Client
	Log      logr.Logger
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder
}

// Reconcile marks the association active when it wins last-write-wins
// among all associations of the same workload identity, otherwise it
// records the winner and emits a warning.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := r.Log.WithValues("IdentityAssociation", req.Name)

	var ia sfv1alpha1.IdentityAssociation
	if err := r.Get(ctx, req.NamespacedName, &ia); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		log.Error(err, errGetAssociation)
		return ctrl.Result{}, err
	}
	if !ia.DeletionTimestamp.IsZero() {
		return ctrl.Result{}, nil
	}

	siblings, err := r.siblings(ctx, &ia)
	if err != nil {
		return ctrl.Result{}, err
	}
	winner := identity.Active(siblings)

	desired := sfv1alpha1.IdentityAssociationStatus{Active: true}
	if winner != nil && winner.Name != ia.Name {
		desired = sfv1alpha1.IdentityAssociationStatus{Active: false, SupersededBy: winner.Name}
	}
	if desired == ia.Status {
		return ctrl.Result{}, nil
	}

	p := client.MergeFrom(ia.DeepCopy())
	ia.Status = desired
	if err := r.Status().Patch(ctx, &ia, p); err != nil {
		log.Error(err, errPatchStatus)
		return ctrl.Result{}, err
	}

	if desired.Active {
		log.Info("identity association active", "workload", ia.WorkloadKey(), "role", ia.Spec.RoleRef.Name)
		r.Recorder.Event(&ia, corev1.EventTypeNormal, sfv1alpha1.ReasonActivated,
			fmt.Sprintf(msgActivated, ia.WorkloadKey(), ia.Spec.RoleRef.Name))
		return ctrl.Result{}, nil
	}
	log.Info("identity association superseded", "workload", ia.WorkloadKey(), "supersededBy", desired.SupersededBy)
	r.Recorder.Event(&ia, corev1.EventTypeWarning, sfv1alpha1.ReasonSuperseded,
		fmt.Sprintf(msgSuperseded, ia.WorkloadKey(), desired.SupersededBy))
	return ctrl.Result{}, nil
}

func (r *Reconciler) siblings(ctx context.Context, ia *sfv1alpha1.IdentityAssociation) ([]sfv1alpha1.IdentityAssociation, error) {
	var list sfv1alpha1.IdentityAssociationList
	if err := r.List(ctx, &list, client.MatchingFields{identity.IndexWorkload: ia.WorkloadKey()}); err != nil {
		return nil, fmt.Errorf(errListSiblings, ia.WorkloadKey(), err)
	}
	return list.Items, nil
}

// SetupWithManager returns a new controller builder that will be started by the provided Manager.
// identity.SetupIndex must have been called on the manager's field indexer.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager, opts controller.Options) error {
	if r.Recorder == nil {
		r.Recorder = mgr.GetEventRecorderFor("secretfed")
	}
	return ctrl.NewControllerManagedBy(mgr).
		WithOptions(opts).
		For(&sfv1alpha1.IdentityAssociation{}).
		// a change to one association can flip the status of its siblings
		Watches(
			&sfv1alpha1.IdentityAssociation{},
			handler.EnqueueRequestsFromMapFunc(r.findSiblings),
		).
		Complete(r)
}

func (r *Reconciler) findSiblings(ctx context.Context, obj client.Object) []reconcile.Request {
	ia, ok := obj.(*sfv1alpha1.IdentityAssociation)
	if !ok {
		return nil
	}
	siblings, err := r.siblings(ctx, ia)
	if err != nil {
		r.Log.Error(err, "unable to map identity association")
		return nil
	}
	requests := make([]reconcile.Request, 0, len(siblings))
	for i := range siblings {
		if siblings[i].Name == ia.Name {
			continue
		}
		requests = append(requests, reconcile.Request{NamespacedName: client.ObjectKeyFromObject(&siblings[i])})
	}
	return requests
}
