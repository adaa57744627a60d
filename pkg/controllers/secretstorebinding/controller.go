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


// Package secretstorebinding validates SecretStoreBindings and keeps them
// alive while SecretRequests use them.
package secretstorebinding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	ctrlmetrics "github.com/secretfed/secretfed/pkg/controllers/metrics"
	"github.com/secretfed/secretfed/pkg/controllers/secretrequest"
	"github.com/secretfed/secretfed/pkg/secretstore"
)

const (
	errGetBinding      = "could not get SecretStoreBinding"
	errListRequests    = "could not list SecretRequests: %w"
	errPatchStatus     = "unable to patch status"
	errUpdateFinalizer = "unable to update finalizers"
	errNotRegistered   = "provider %q is not available in this build"

	msgStoreValidated = "store validated"
	msgStoreInUse     = "deletion blocked, %d SecretRequests still use this binding"

	bindingFinalizer = "secretfed.io/secretstorebinding"
)

// ClientCache drops cached provider clients of a binding.
type ClientCache interface {
	Forget(binding *sfv1alpha1.SecretStoreBinding)
}

// Reconciler reconciles a SecretStoreBinding object.
type Reconciler struct {
	client.Client
	Log             logr.Logger
	Scheme          *runtime.Scheme
	Registry        *secretstore.Registry
	Clients         ClientCache
	RequeueInterval time.Duration
	Recorder        record.EventRecorder
}

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := r.Log.WithValues("SecretStoreBinding", req.NamespacedName)
	start := time.Now()

	var binding sfv1alpha1.SecretStoreBinding
	if err := r.Get(ctx, req.NamespacedName, &binding); err != nil {
		if apierrors.IsNotFound(err) {
			RemoveMetrics(req.Namespace, req.Name)
			return ctrl.Result{}, nil
		}
		log.Error(err, errGetBinding)
		return ctrl.Result{}, err
	}
	defer func() {
		observe(&binding, ctrlmetrics.ReconcileDurationKey, float64(time.Since(start)))
	}()

	refs, err := r.referencedBy(ctx, &binding)
	if err != nil {
		return ctrl.Result{}, err
	}

	if !binding.DeletionTimestamp.IsZero() {
		return r.handleDeletion(ctx, log, &binding, refs)
	}
	if controllerutil.AddFinalizer(&binding, bindingFinalizer) {
		if err := r.Update(ctx, &binding); err != nil {
			log.Error(err, errUpdateFinalizer)
			return ctrl.Result{}, err
		}
	}

	p := client.MergeFrom(binding.DeepCopy())
	defer func() {
		if err := r.Status().Patch(ctx, &binding, p); err != nil {
			log.Error(err, errPatchStatus)
		}
	}()

	binding.Status.ReferencedBy = refs
	observe(&binding, ReferencedByKey, float64(refs))

	if err := r.validate(&binding); err != nil {
		log.Error(err, "invalid binding")
		r.Recorder.Event(&binding, corev1.EventTypeWarning, sfv1alpha1.ReasonInvalidProvider, err.Error())
		cond := NewSecretStoreBindingCondition(sfv1alpha1.SecretStoreBindingReady, corev1.ConditionFalse, sfv1alpha1.ReasonInvalidProvider, err.Error())
		SetSecretStoreBindingCondition(&binding, *cond)
		return ctrl.Result{}, nil
	}

	cond := NewSecretStoreBindingCondition(sfv1alpha1.SecretStoreBindingReady, corev1.ConditionTrue, sfv1alpha1.ReasonStoreValid, msgStoreValidated)
	if current := GetSecretStoreBindingCondition(binding.Status, sfv1alpha1.SecretStoreBindingReady); current == nil || current.Status != corev1.ConditionTrue {
		r.Recorder.Event(&binding, corev1.EventTypeNormal, sfv1alpha1.ReasonStoreValid, msgStoreValidated)
	}
	SetSecretStoreBindingCondition(&binding, *cond)
	return ctrl.Result{RequeueAfter: r.RequeueInterval}, nil
}

// handleDeletion keeps the finalizer while requests still reference the
// binding. The SecretRequest watch brings us back once they are gone.
func (r *Reconciler) handleDeletion(ctx context.Context, log logr.Logger, binding *sfv1alpha1.SecretStoreBinding, refs int32) (ctrl.Result, error) {
	if refs > 0 {
		msg := fmt.Sprintf(msgStoreInUse, refs)
		log.Info("cannot remove finalizer, binding is in use", "referencedBy", refs)
		p := client.MergeFrom(binding.DeepCopy())
		binding.Status.ReferencedBy = refs
		cond := NewSecretStoreBindingCondition(sfv1alpha1.SecretStoreBindingReady, corev1.ConditionFalse, sfv1alpha1.ReasonStoreInUse, msg)
		SetSecretStoreBindingCondition(binding, *cond)
		r.Recorder.Event(binding, corev1.EventTypeWarning, sfv1alpha1.ReasonStoreInUse, msg)
		if err := r.Status().Patch(ctx, binding, p); err != nil {
			log.Error(err, errPatchStatus)
			return ctrl.Result{}, err
		}
		return ctrl.Result{}, nil
	}
	if r.Clients != nil {
		r.Clients.Forget(binding)
	}
	if controllerutil.RemoveFinalizer(binding, bindingFinalizer) {
		if err := r.Update(ctx, binding); err != nil {
			log.Error(err, errUpdateFinalizer)
			return ctrl.Result{}, err
		}
		log.Info("removed finalizer")
	}
	RemoveMetrics(binding.Namespace, binding.Name)
	return ctrl.Result{}, nil
}

func (r *Reconciler) validate(binding *sfv1alpha1.SecretStoreBinding) error {
	if err := sfv1alpha1.ValidateSecretStoreBinding(binding); err != nil {
		return err
	}
	registry := r.Registry
	if registry == nil {
		registry = secretstore.Default()
	}
	if _, ok := registry.Fetch(binding.Spec.Provider); !ok {
		return fmt.Errorf(errNotRegistered, binding.Spec.Provider)
	}
	return nil
}

func (r *Reconciler) referencedBy(ctx context.Context, binding *sfv1alpha1.SecretStoreBinding) (int32, error) {
	var list sfv1alpha1.SecretRequestList
	err := r.List(ctx, &list,
		client.InNamespace(binding.Namespace),
		client.MatchingFields{secretrequest.IndexBindingName: binding.Name})
	if err != nil {
		return 0, fmt.Errorf(errListRequests, err)
	}
	return int32(len(list.Items)), nil
}

// SetupWithManager returns a new controller builder that will be started by the provided Manager.
// secretrequest.SetupIndexes must have been called on the manager's field indexer.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager, opts controller.Options) error {
	if r.Recorder == nil {
		r.Recorder = mgr.GetEventRecorderFor("secretfed")
	}
	return ctrl.NewControllerManagedBy(mgr).
		WithOptions(opts).
		For(&sfv1alpha1.SecretStoreBinding{}).
		Watches(
			&sfv1alpha1.SecretRequest{},
			handler.EnqueueRequestsFromMapFunc(bindingForRequest),
		).
		Complete(r)
}

func bindingForRequest(_ context.Context, obj client.Object) []reconcile.Request {
	sr, ok := obj.(*sfv1alpha1.SecretRequest)
	if !ok || sr.Spec.SourceStoreRef.Name == "" {
		return nil
	}
	return []reconcile.Request{{NamespacedName: types.NamespacedName{
		Namespace: sr.Namespace,
		Name:      sr.Spec.SourceStoreRef.Name,
	}}}
}
