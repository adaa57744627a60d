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


package secretrequest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/tools/record"
	"k8s.io/client-go/util/flowcontrol"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	ctrlmetrics "github.com/secretfed/secretfed/pkg/controllers/metrics"
	"github.com/secretfed/secretfed/pkg/controllers/secretrequest/srmetrics"
	"github.com/secretfed/secretfed/pkg/materialize"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/utils"
)

const (
	errGetSR             = "could not get SecretRequest"
	errGetBinding        = "could not get SecretStoreBinding"
	errGetExistingSecret = "could not get existing secret"
	errPatchStatus       = "unable to patch status"
	errAddFinalizer      = "unable to add finalizer"
	errRemoveFinalizer   = "unable to remove finalizer"
	errSync              = "could not sync secret"
	errCreateSecret      = "could not create secret %s/%s"
	errUpdateSecret      = "could not update secret %s/%s"
	errDeleteSecret      = "could not delete secret"
	errReleaseKeys       = "could not release keys of secret %s/%s: %w"

	msgSynced  = "Secret was synced"
	msgCreated = "Created Secret"
	msgUpdated = "Updated Secret"
	msgDeleted = "Deleted Secret"
	msgRelease = "Released keys of Secret"

	secretRequestFinalizer = "secretfed.io/secretrequest"
	fieldOwner             = "secretfed.io/secretrequest"

	// IndexTargetName indexes SecretRequests by the Secret they write.
	IndexTargetName = ".spec.target.name"
	// IndexBindingName indexes SecretRequests by the binding they use.
	IndexBindingName = ".spec.sourceStoreRef.name"

	// refreshJitter spreads refreshes of requests created together.
	refreshJitter = 0.1
	// requeueShortly is used when a sync has to run again soon, e.g. after
	// its result was discarded.
	requeueShortly = time.Second
)

// Defaults.
const (
	DefaultRefreshInterval      = time.Hour
	DefaultInitialBackoff       = 5 * time.Second
	DefaultMaxBackoff           = 5 * time.Minute
	DefaultMaxTransientAttempts = 5
)

// Reconciler reconciles a SecretRequest object.
type Reconciler struct {
	client.Client
	// APIReader reads without the informer cache. It guards against writing
	// results computed for an outdated spec.
	APIReader    client.Reader
	// SecretReader, when set, reads target Secrets from a cache that only
	// holds Secrets labelled as managed.
	SecretReader client.Reader
	Log          logr.Logger
	Scheme       *runtime.Scheme
	Syncer       *Syncer
	Recorder     record.EventRecorder
	Clock        clock.Clock

	// RequeueInterval is the refresh interval of requests without spec.refreshInterval.
	RequeueInterval time.Duration
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	// MaxTransientAttempts bounds the attempts per refresh cycle.
	MaxTransientAttempts int32
	// Backoff tracks transient failures per request. Built from
	// InitialBackoff and MaxBackoff when nil.
	Backoff *flowcontrol.Backoff

	once sync.Once
}

func (r *Reconciler) setDefaults() {
	if r.Clock == nil {
		r.Clock = clock.RealClock{}
	}
	if r.APIReader == nil {
		r.APIReader = r.Client
	}
	if r.RequeueInterval <= 0 {
		r.RequeueInterval = DefaultRefreshInterval
	}
	if r.InitialBackoff <= 0 {
		r.InitialBackoff = DefaultInitialBackoff
	}
	if r.MaxBackoff <= 0 {
		r.MaxBackoff = DefaultMaxBackoff
	}
	if r.MaxTransientAttempts <= 0 {
		r.MaxTransientAttempts = DefaultMaxTransientAttempts
	}
	if r.Backoff == nil {
		r.Backoff = flowcontrol.NewBackOffWithJitter(r.InitialBackoff, r.MaxBackoff, refreshJitter)
		r.Backoff.Clock = r.Clock
	}
	if r.Recorder == nil {
		r.Recorder = &record.FakeRecorder{}
	}
}

// Reconcile drives a SecretRequest through Pending, Syncing, Synced and Failed.
// Transient failures are retried with backoff up to MaxTransientAttempts per
// cycle, every other failure waits for the next refresh or a spec change.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	r.once.Do(r.setDefaults)
	log := r.Log.WithValues("SecretRequest", req.NamespacedName)

	var sr sfv1alpha1.SecretRequest
	if err := r.Get(ctx, req.NamespacedName, &sr); err != nil {
		if apierrors.IsNotFound(err) {
			r.Syncer.cancel(req.NamespacedName)
			r.Backoff.DeleteEntry(req.NamespacedName.String())
			srmetrics.RemoveMetrics(req.Namespace, req.Name)
			return ctrl.Result{}, nil
		}
		log.Error(err, errGetSR)
		return ctrl.Result{}, err
	}

	if !sr.DeletionTimestamp.IsZero() {
		return r.finalize(ctx, log, &sr)
	}
	if controllerutil.AddFinalizer(&sr, secretRequestFinalizer) {
		if err := r.Update(ctx, &sr); err != nil {
			log.Error(err, errAddFinalizer)
			return ctrl.Result{}, err
		}
	}

	var binding *sfv1alpha1.SecretStoreBinding
	var b sfv1alpha1.SecretStoreBinding
	err := r.Get(ctx, types.NamespacedName{Namespace: sr.Namespace, Name: sr.Spec.SourceStoreRef.Name}, &b)
	switch {
	case err == nil:
		binding = &b
	case !apierrors.IsNotFound(err):
		log.Error(err, errGetBinding)
		return ctrl.Result{}, err
	}

	existing, err := r.getTarget(ctx, &sr)
	if err != nil {
		log.Error(err, errGetExistingSecret)
		return ctrl.Result{}, err
	}

	now := r.Clock.Now()
	if sr.Status.Phase == "" {
		p := client.MergeFrom(sr.DeepCopy())
		sr.Status.Phase = sfv1alpha1.PhasePending
		if err := r.Status().Patch(ctx, &sr, p); err != nil {
			log.Error(err, errPatchStatus)
			return ctrl.Result{}, err
		}
	}
	if !r.shouldSync(&sr, bindingGeneration(binding), existing, now) {
		next := r.untilNextSync(&sr, now)
		log.V(1).Info("skipping sync", "rv", getResourceVersion(&sr), "next", next)
		return ctrl.Result{RequeueAfter: next}, nil
	}
	return r.sync(ctx, log, &sr, binding, existing)
}

func (r *Reconciler) sync(ctx context.Context, log logr.Logger, sr *sfv1alpha1.SecretRequest, binding *sfv1alpha1.SecretStoreBinding, existing *corev1.Secret) (ctrl.Result, error) {
	key := client.ObjectKeyFromObject(sr)
	syncCtx, release, ok := r.Syncer.enter(ctx, key)
	if !ok {
		log.V(1).Info("sync already in progress")
		return ctrl.Result{RequeueAfter: requeueShortly}, nil
	}
	defer release()

	start := r.Clock.Now()
	if vec := srmetrics.GetCounterVec(srmetrics.SyncCallsKey); vec != nil {
		vec.With(ctrlmetrics.ObjectLabels(sr)).Inc()
	}
	defer func() {
		if vec := srmetrics.GetGaugeVec(ctrlmetrics.ReconcileDurationKey); vec != nil {
			vec.With(ctrlmetrics.ObjectLabels(sr)).Set(float64(r.Clock.Since(start)))
		}
	}()

	p := client.MergeFrom(sr.DeepCopy())
	if sr.Status.SyncedResourceVersion != getResourceVersion(sr) || sr.Status.FailureCount >= r.MaxTransientAttempts {
		// new cycle
		sr.Status.FailureCount = 0
	}
	sr.Status.Phase = sfv1alpha1.PhaseSyncing
	if err := r.Status().Patch(ctx, sr, p); err != nil {
		log.Error(err, errPatchStatus)
		return ctrl.Result{}, err
	}

	desired, err := r.Syncer.Sync(syncCtx, sr, binding, existing)
	if err == nil {
		var stale bool
		stale, err = r.isStale(ctx, sr)
		if err != nil {
			log.Error(err, errGetSR)
			return ctrl.Result{}, err
		}
		if stale {
			log.Info("SecretRequest changed during sync, discarding result")
			return ctrl.Result{RequeueAfter: requeueShortly}, nil
		}
		err = r.apply(syncCtx, sr, existing, desired)
	}
	if syncCtx.Err() != nil && ctx.Err() == nil {
		log.Info("sync cancelled")
		return ctrl.Result{RequeueAfter: requeueShortly}, nil
	}

	p = client.MergeFrom(sr.DeepCopy())
	now := r.Clock.Now()
	var result ctrl.Result
	if err != nil {
		result = r.markAsFailed(log, sr, binding, err, now)
	} else {
		result = r.markAsDone(log, sr, binding, now)
	}
	if err := r.Status().Patch(ctx, sr, p); err != nil {
		log.Error(err, errPatchStatus)
		return ctrl.Result{}, err
	}
	return result, nil
}

// isStale re-reads the request past the cache. The result of a sync is only
// written if the spec it was computed from is still current.
func (r *Reconciler) isStale(ctx context.Context, sr *sfv1alpha1.SecretRequest) (bool, error) {
	var fresh sfv1alpha1.SecretRequest
	if err := r.APIReader.Get(ctx, client.ObjectKeyFromObject(sr), &fresh); err != nil {
		if apierrors.IsNotFound(err) {
			return true, nil
		}
		return false, err
	}
	return fresh.Generation != sr.Generation || !fresh.DeletionTimestamp.IsZero(), nil
}

func (r *Reconciler) apply(ctx context.Context, sr *sfv1alpha1.SecretRequest, existing, desired *corev1.Secret) error {
	if existing == nil {
		if err := r.Create(ctx, desired, client.FieldOwner(fieldOwner)); err != nil {
			return reason.Wrapf(reason.ApplyFailed, err, errCreateSecret, desired.Namespace, desired.Name)
		}
		r.Recorder.Event(sr, corev1.EventTypeNormal, sfv1alpha1.ReasonCreated, msgCreated)
		return nil
	}
	if equality.Semantic.DeepEqual(existing, desired) {
		return nil
	}
	if err := r.Update(ctx, desired, client.FieldOwner(fieldOwner)); err != nil {
		return reason.Wrapf(reason.ApplyFailed, err, errUpdateSecret, desired.Namespace, desired.Name)
	}
	r.Recorder.Event(sr, corev1.EventTypeNormal, sfv1alpha1.ReasonUpdated, msgUpdated)
	return nil
}

func (r *Reconciler) markAsDone(log logr.Logger, sr *sfv1alpha1.SecretRequest, binding *sfv1alpha1.SecretStoreBinding, now time.Time) ctrl.Result {
	cond := NewSecretRequestCondition(sfv1alpha1.SecretRequestReady, corev1.ConditionTrue, sfv1alpha1.ConditionReasonSecretSynced, msgSynced)
	current := GetSecretRequestCondition(sr.Status, sfv1alpha1.SecretRequestReady)
	SetSecretRequestCondition(sr, *cond)

	sr.Status.Phase = sfv1alpha1.PhaseSynced
	sr.Status.LastSyncTime = &metav1.Time{Time: now}
	sr.Status.LastError = nil
	sr.Status.FailureCount = 0
	sr.Status.SyncedResourceVersion = getResourceVersion(sr)
	sr.Status.ObservedBindingGeneration = bindingGeneration(binding)
	r.Backoff.Reset(client.ObjectKeyFromObject(sr).String())

	if current == nil || current.Status != cond.Status {
		log.Info("reconciled secret")
	} else {
		log.V(1).Info("reconciled secret")
	}
	return r.scheduleRefresh(sr, now)
}

func (r *Reconciler) markAsFailed(log logr.Logger, sr *sfv1alpha1.SecretRequest, binding *sfv1alpha1.SecretStoreBinding, err error, now time.Time) ctrl.Result {
	code := reason.Of(err)
	log.Error(err, errSync, "reason", code, "class", code.Class())

	eventReason := sfv1alpha1.ReasonSyncFailed
	if code == reason.OwnershipConflict {
		eventReason = sfv1alpha1.ReasonOwnershipConflict
	}
	r.Recorder.Event(sr, corev1.EventTypeWarning, eventReason, err.Error())
	cond := NewSecretRequestCondition(sfv1alpha1.SecretRequestReady, corev1.ConditionFalse, sfv1alpha1.ConditionReasonSecretSyncedError, err.Error())
	SetSecretRequestCondition(sr, *cond)
	srmetrics.ObserveError(sr, string(code))

	sr.Status.Phase = sfv1alpha1.PhaseFailed
	sr.Status.LastError = &sfv1alpha1.SyncError{Reason: string(code), Message: err.Error()}
	sr.Status.SyncedResourceVersion = getResourceVersion(sr)
	sr.Status.ObservedBindingGeneration = bindingGeneration(binding)

	id := client.ObjectKeyFromObject(sr).String()
	if reason.Retryable(err) {
		sr.Status.FailureCount++
		if sr.Status.FailureCount < r.MaxTransientAttempts {
			r.Backoff.Next(id, now)
			delay := r.Backoff.Get(id)
			sr.Status.NextSyncTime = &metav1.Time{Time: now.Add(delay)}
			return ctrl.Result{RequeueAfter: delay}
		}
		log.Info("retry budget exhausted, waiting for the next refresh", "attempts", sr.Status.FailureCount)
	} else {
		sr.Status.FailureCount = 0
	}
	r.Backoff.Reset(id)
	return r.scheduleRefresh(sr, now)
}

func (r *Reconciler) scheduleRefresh(sr *sfv1alpha1.SecretRequest, now time.Time) ctrl.Result {
	interval := r.refreshInterval(sr)
	if interval == 0 {
		sr.Status.NextSyncTime = nil
		return ctrl.Result{}
	}
	delay := wait.Jitter(interval, refreshJitter)
	sr.Status.NextSyncTime = &metav1.Time{Time: now.Add(delay)}
	return ctrl.Result{RequeueAfter: delay}
}

// shouldSync reports whether a sync is due. It is due on spec or metadata
// changes, when the binding changed, when a synced target was modified out
// of band and once NextSyncTime has passed.
func (r *Reconciler) shouldSync(sr *sfv1alpha1.SecretRequest, bindingGen int64, existing *corev1.Secret, now time.Time) bool {
	if sr.Status.SyncedResourceVersion != getResourceVersion(sr) {
		return true
	}
	if sr.Status.ObservedBindingGeneration != bindingGen {
		return true
	}
	if sr.Status.Phase == sfv1alpha1.PhaseSynced && !isSecretValid(existing, sr) {
		return true
	}
	if sr.Status.Phase == sfv1alpha1.PhaseSyncing {
		// interrupted attempt
		return true
	}
	if sr.Status.NextSyncTime == nil {
		return false
	}
	return !now.Before(sr.Status.NextSyncTime.Time)
}

func (r *Reconciler) untilNextSync(sr *sfv1alpha1.SecretRequest, now time.Time) time.Duration {
	if sr.Status.NextSyncTime == nil {
		return 0
	}
	d := sr.Status.NextSyncTime.Sub(now)
	if d < requeueShortly {
		d = requeueShortly
	}
	return d
}

func (r *Reconciler) refreshInterval(sr *sfv1alpha1.SecretRequest) time.Duration {
	if sr.Spec.RefreshInterval != nil {
		return sr.Spec.RefreshInterval.Duration
	}
	return r.RequeueInterval
}

func (r *Reconciler) getTarget(ctx context.Context, sr *sfv1alpha1.SecretRequest) (*corev1.Secret, error) {
	var secret corev1.Secret
	key := types.NamespacedName{Namespace: sr.Namespace, Name: sr.TargetName()}
	var err error
	if r.SecretReader != nil {
		err = r.SecretReader.Get(ctx, key, &secret)
		// a Merge target may exist without the managed label
		if apierrors.IsNotFound(err) {
			err = r.APIReader.Get(ctx, key, &secret)
		}
	} else {
		err = r.Get(ctx, key, &secret)
	}
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &secret, nil
}

// finalize cancels a running sync and releases the target. Under Owner the
// Secret is deleted on a best effort basis, under Merge only the keys of
// this request are removed.
func (r *Reconciler) finalize(ctx context.Context, log logr.Logger, sr *sfv1alpha1.SecretRequest) (ctrl.Result, error) {
	key := client.ObjectKeyFromObject(sr)
	if r.Syncer.cancel(key) {
		log.Info("cancelled running sync")
	}
	if controllerutil.ContainsFinalizer(sr, secretRequestFinalizer) {
		if err := r.releaseTarget(ctx, log, sr); err != nil {
			return ctrl.Result{}, err
		}
		controllerutil.RemoveFinalizer(sr, secretRequestFinalizer)
		if err := r.Update(ctx, sr); err != nil {
			log.Error(err, errRemoveFinalizer)
			return ctrl.Result{}, err
		}
	}
	r.Backoff.DeleteEntry(key.String())
	srmetrics.RemoveMetrics(sr.Namespace, sr.Name)
	return ctrl.Result{}, nil
}

func (r *Reconciler) releaseTarget(ctx context.Context, log logr.Logger, sr *sfv1alpha1.SecretRequest) error {
	secret, err := r.getTarget(ctx, sr)
	if err != nil || secret == nil {
		return err
	}
	switch sr.CreationPolicy() {
	case sfv1alpha1.CreatePolicyMerge:
		released, _, err := materialize.Release(secret, sr.OwnerKey())
		if err != nil {
			return fmt.Errorf(errReleaseKeys, secret.Namespace, secret.Name, err)
		}
		if equality.Semantic.DeepEqual(secret, released) {
			return nil
		}
		if err := r.Update(ctx, released, client.FieldOwner(fieldOwner)); err != nil {
			return fmt.Errorf(errReleaseKeys, secret.Namespace, secret.Name, err)
		}
		r.Recorder.Event(sr, corev1.EventTypeNormal, sfv1alpha1.ReasonDeleted, msgRelease)
	default:
		owner := metav1.GetControllerOf(secret)
		if owner == nil || owner.UID != sr.UID {
			log.V(1).Info("target secret is not controlled by this request, keeping it")
			return nil
		}
		if err := r.Delete(ctx, secret); err != nil && !apierrors.IsNotFound(err) {
			log.Error(err, errDeleteSecret)
			return nil
		}
		r.Recorder.Event(sr, corev1.EventTypeNormal, sfv1alpha1.ReasonDeleted, msgDeleted)
	}
	return nil
}

func bindingGeneration(b *sfv1alpha1.SecretStoreBinding) int64 {
	if b == nil {
		return 0
	}
	return b.Generation
}

// getResourceVersion changes with the spec and with labels or annotations,
// which includes the force-sync annotation.
func getResourceVersion(sr *sfv1alpha1.SecretRequest) string {
	return fmt.Sprintf("%d-%s", sr.ObjectMeta.GetGeneration(), hashMeta(sr.ObjectMeta))
}

func hashMeta(m metav1.ObjectMeta) string {
	type meta struct {
		Annotations map[string]string
		Labels      map[string]string
	}
	return utils.ObjectHash(meta{
		Annotations: m.Annotations,
		Labels:      m.Labels,
	})
}

// isSecretValid checks that the target exists, that its data matches the
// hash written with it and that every declared key is still owned by sr.
func isSecretValid(existing *corev1.Secret, sr *sfv1alpha1.SecretRequest) bool {
	if existing == nil || existing.Annotations == nil {
		return false
	}
	if existing.Annotations[sfv1alpha1.AnnotationDataHash] != materialize.DataHash(existing.Data) {
		return false
	}
	owners, err := materialize.KeyOwners(existing)
	if err != nil {
		return false
	}
	for _, d := range sr.Spec.Data {
		if owners[d.TargetKey] != sr.OwnerKey() {
			return false
		}
	}
	return true
}

// TargetIndexer indexes a SecretRequest by its target Secret name.
func TargetIndexer(obj client.Object) []string {
	sr, ok := obj.(*sfv1alpha1.SecretRequest)
	if !ok {
		return nil
	}
	return []string{sr.TargetName()}
}

// BindingIndexer indexes a SecretRequest by its SecretStoreBinding name.
func BindingIndexer(obj client.Object) []string {
	sr, ok := obj.(*sfv1alpha1.SecretRequest)
	if !ok || sr.Spec.SourceStoreRef.Name == "" {
		return nil
	}
	return []string{sr.Spec.SourceStoreRef.Name}
}

// SetupIndexes registers the field indexes used by the controllers of this module.
func SetupIndexes(ctx context.Context, indexer client.FieldIndexer) error {
	if err := indexer.IndexField(ctx, &sfv1alpha1.SecretRequest{}, IndexTargetName, TargetIndexer); err != nil {
		return err
	}
	return indexer.IndexField(ctx, &sfv1alpha1.SecretRequest{}, IndexBindingName, BindingIndexer)
}

// SetupWithManager returns a new controller builder that will be started by the provided Manager.
// SetupIndexes must have been called on the manager's field indexer.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager, opts controller.Options) error {
	if r.Recorder == nil {
		r.Recorder = mgr.GetEventRecorderFor("secretfed")
	}
	r.once.Do(r.setDefaults)

	return ctrl.NewControllerManagedBy(mgr).
		WithOptions(opts).
		For(&sfv1alpha1.SecretRequest{}, builder.WithPredicates(r.cancelOnDelete())).
		// Owns cannot be used, Merge targets carry no owner reference
		Watches(
			&corev1.Secret{},
			handler.EnqueueRequestsFromMapFunc(r.findObjectsForSecret),
			builder.WithPredicates(predicate.ResourceVersionChangedPredicate{}),
			builder.OnlyMetadata,
		).
		Watches(
			&sfv1alpha1.SecretStoreBinding{},
			handler.EnqueueRequestsFromMapFunc(r.findObjectsForBinding),
			builder.WithPredicates(predicate.GenerationChangedPredicate{}),
		).
		Complete(r)
}

// cancelOnDelete aborts a running sync as soon as the watch sees the
// deletion, without waiting for the workqueue.
func (r *Reconciler) cancelOnDelete() predicate.Funcs {
	return predicate.Funcs{
		UpdateFunc: func(e event.UpdateEvent) bool {
			if !e.ObjectNew.GetDeletionTimestamp().IsZero() {
				r.Syncer.cancel(client.ObjectKeyFromObject(e.ObjectNew))
			}
			return true
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			r.Syncer.cancel(client.ObjectKeyFromObject(e.Object))
			return true
		},
	}
}

func (r *Reconciler) findObjectsForSecret(ctx context.Context, secret client.Object) []reconcile.Request {
	return r.requestsMatching(ctx, secret.GetNamespace(), IndexTargetName, secret.GetName())
}

func (r *Reconciler) findObjectsForBinding(ctx context.Context, binding client.Object) []reconcile.Request {
	return r.requestsMatching(ctx, binding.GetNamespace(), IndexBindingName, binding.GetName())
}

func (r *Reconciler) requestsMatching(ctx context.Context, namespace, index, value string) []reconcile.Request {
	var list sfv1alpha1.SecretRequestList
	if err := r.List(ctx, &list, client.InNamespace(namespace), client.MatchingFields{index: value}); err != nil {
		r.Log.Error(err, "unable to list SecretRequests", "index", index, "value", value)
		return []reconcile.Request{}
	}
	requests := make([]reconcile.Request, len(list.Items))
	for i := range list.Items {
		requests[i] = reconcile.Request{NamespacedName: client.ObjectKeyFromObject(&list.Items[i])}
	}
	return requests
}
