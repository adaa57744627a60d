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
	"encoding/json"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/record"
	"k8s.io/client-go/util/flowcontrol"
	testingclock "k8s.io/utils/clock/testing"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/event"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	fakeexchanger "github.com/secretfed/secretfed/pkg/broker/exchanger/fake"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/reason"
	"github.com/secretfed/secretfed/pkg/secretstore"
	fakestore "github.com/secretfed/secretfed/providers/fake"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	testNamespace = "apps"
	remoteKey     = "prod/db"
)

type harness struct {
	client     client.Client
	clock      *testingclock.FakeClock
	store      *fakestore.Provider
	identities *identity.MemoryStore
	exchanger  *fakeexchanger.Exchanger
	broker     *broker.Broker
	recorder   *record.FakeRecorder
	reconciler *Reconciler
}

func newHarness(objs ...client.Object) *harness {
	scheme := runtime.NewScheme()
	Expect(clientgoscheme.AddToScheme(scheme)).To(Succeed())
	Expect(sfv1alpha1.AddToScheme(scheme)).To(Succeed())

	c := fake.NewClientBuilder().
		WithScheme(scheme).
		WithStatusSubresource(&sfv1alpha1.SecretRequest{}, &sfv1alpha1.SecretStoreBinding{}).
		WithIndex(&sfv1alpha1.SecretRequest{}, IndexTargetName, TargetIndexer).
		WithIndex(&sfv1alpha1.SecretRequest{}, IndexBindingName, BindingIndexer).
		WithObjects(objs...).
		Build()

	clk := testingclock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	store := fakestore.New()
	store.SetSecret(remoteKey, "v1", `{"username":"app","password":"s3cr3t"}`)
	registry := secretstore.NewRegistry()
	Expect(registry.Add(store)).To(Succeed())

	identities := identity.NewMemoryStore()
	identities.Put(identity.WorkloadIdentity{Namespace: testNamespace, ServiceAccount: "default"},
		identity.RoleRef{Kind: sfv1alpha1.RoleKindFake, Name: "reader"})
	exchanger := fakeexchanger.New(clk, time.Hour)
	b := broker.New(identities, &fakeexchanger.TokenSource{},
		map[sfv1alpha1.RoleKind]broker.Exchanger{sfv1alpha1.RoleKindFake: exchanger},
		broker.WithClock(clk))

	opts := secretstore.DefaultOptions()
	opts.Backoff = wait.Backoff{Steps: 1}
	recorder := record.NewFakeRecorder(100)

	return &harness{
		client:     c,
		clock:      clk,
		store:      store,
		identities: identities,
		exchanger:  exchanger,
		broker:     b,
		recorder:   recorder,
		reconciler: &Reconciler{
			Client:               c,
			APIReader:            c,
			Log:                  ctrl.Log.WithName("controllers").WithName("SecretRequest"),
			Scheme:               scheme,
			Syncer:               NewSyncer(c, b, secretstore.NewClient(registry, opts, clk)),
			Recorder:             recorder,
			Clock:                clk,
			RequeueInterval:      time.Hour,
			MaxTransientAttempts: 3,
			Backoff:              flowcontrol.NewFakeBackOff(time.Second, 8*time.Second, clk),
		},
	}
}

func newBinding() *sfv1alpha1.SecretStoreBinding {
	return &sfv1alpha1.SecretStoreBinding{
		ObjectMeta: metav1.ObjectMeta{Name: "store", Namespace: testNamespace, UID: "binding-uid", Generation: 1},
		Spec:       sfv1alpha1.SecretStoreBindingSpec{Provider: sfv1alpha1.ProviderFake},
	}
}

func newRequest(name string, mutators ...func(*sfv1alpha1.SecretRequest)) *sfv1alpha1.SecretRequest {
	sr := &sfv1alpha1.SecretRequest{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: testNamespace, UID: types.UID(name + "-uid"), Generation: 1},
		Spec: sfv1alpha1.SecretRequestSpec{
			SourceStoreRef:  sfv1alpha1.SecretStoreBindingRef{Name: "store"},
			RemoteRef:       sfv1alpha1.RemoteRef{Key: remoteKey},
			RefreshInterval: &metav1.Duration{Duration: time.Hour},
			Data:            []sfv1alpha1.SecretRequestData{{TargetKey: "password", RemoteProperty: "password"}},
		},
	}
	for _, m := range mutators {
		m(sr)
	}
	return sr
}

func (h *harness) reconcile(name string) ctrl.Result {
	GinkgoHelper()
	res, err := h.reconciler.Reconcile(context.Background(), ctrl.Request{
		NamespacedName: types.NamespacedName{Namespace: testNamespace, Name: name},
	})
	Expect(err).NotTo(HaveOccurred())
	return res
}

func (h *harness) request(name string) *sfv1alpha1.SecretRequest {
	GinkgoHelper()
	var sr sfv1alpha1.SecretRequest
	Expect(h.client.Get(context.Background(), types.NamespacedName{Namespace: testNamespace, Name: name}, &sr)).To(Succeed())
	return &sr
}

func (h *harness) secret(name string) *corev1.Secret {
	GinkgoHelper()
	var s corev1.Secret
	Expect(h.client.Get(context.Background(), types.NamespacedName{Namespace: testNamespace, Name: name}, &s)).To(Succeed())
	return &s
}

func (h *harness) update(obj client.Object, mutate func()) {
	GinkgoHelper()
	Expect(h.client.Get(context.Background(), client.ObjectKeyFromObject(obj), obj)).To(Succeed())
	mutate()
	Expect(h.client.Update(context.Background(), obj)).To(Succeed())
}

var _ = Describe("SecretRequest controller", func() {
	var h *harness

	Context("on a successful sync", func() {
		BeforeEach(func() {
			h = newHarness(newBinding(), newRequest("db"))
		})

		It("creates an owned secret and schedules the next refresh", func() {
			res := h.reconcile("db")

			sr := h.request("db")
			Expect(sr.Status.Phase).To(Equal(sfv1alpha1.PhaseSynced))
			Expect(sr.Status.LastError).To(BeNil())
			Expect(sr.Finalizers).To(ContainElement(secretRequestFinalizer))
			Expect(sr.Status.SyncedResourceVersion).To(Equal(getResourceVersion(sr)))
			Expect(sr.Status.ObservedBindingGeneration).To(Equal(int64(1)))
			cond := GetSecretRequestCondition(sr.Status, sfv1alpha1.SecretRequestReady)
			Expect(cond).NotTo(BeNil())
			Expect(cond.Status).To(Equal(corev1.ConditionTrue))

			Expect(res.RequeueAfter).To(BeNumerically(">=", time.Hour))
			Expect(res.RequeueAfter).To(BeNumerically("<=", time.Hour+6*time.Minute))
			Expect(sr.Status.NextSyncTime).NotTo(BeNil())

			secret := h.secret("db")
			Expect(secret.Data).To(Equal(map[string][]byte{"password": []byte("s3cr3t")}))
			Expect(secret.Labels).To(HaveKeyWithValue(sfv1alpha1.LabelManaged, sfv1alpha1.LabelManagedValue))
			owner := metav1.GetControllerOf(secret)
			Expect(owner).NotTo(BeNil())
			Expect(owner.UID).To(Equal(sr.UID))
			Expect(h.recorder.Events).To(Receive(ContainSubstring(sfv1alpha1.ReasonCreated)))
		})

		It("does not fetch again before the refresh is due", func() {
			h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(1))

			h.clock.Step(30 * time.Minute)
			res := h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(1))
			Expect(res.RequeueAfter).To(BeNumerically(">", 29*time.Minute))

			h.clock.Step(2 * time.Hour)
			h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(2))
		})

		It("picks up a new remote version on refresh", func() {
			h.reconcile("db")
			h.store.SetSecret(remoteKey, "v2", `{"password":"rotated"}`)
			h.clock.Step(2 * time.Hour)
			h.reconcile("db")
			Expect(h.secret("db").Data["password"]).To(Equal([]byte("rotated")))
			Expect(h.recorder.Events).To(Receive(ContainSubstring(sfv1alpha1.ReasonCreated)))
			Expect(h.recorder.Events).To(Receive(ContainSubstring(sfv1alpha1.ReasonUpdated)))
		})

		It("re-syncs when the force-sync annotation changes", func() {
			h.reconcile("db")
			sr := h.request("db")
			sr.Annotations = map[string]string{sfv1alpha1.AnnotationForceSync: "1"}
			Expect(h.client.Update(context.Background(), sr)).To(Succeed())

			h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(2))
			h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(2))
		})

		It("restores a target secret that was edited out of band", func() {
			h.reconcile("db")
			secret := h.secret("db")
			secret.Data["password"] = []byte("tampered")
			Expect(h.client.Update(context.Background(), secret)).To(Succeed())

			h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(2))
			Expect(h.secret("db").Data["password"]).To(Equal([]byte("s3cr3t")))
		})

		It("re-syncs when the binding generation changes", func() {
			h.reconcile("db")
			b := newBinding()
			h.update(b, func() {
				b.Spec.Region = "eu-west-1"
				b.Generation = 2
			})

			h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(2))
			Expect(h.request("db").Status.ObservedBindingGeneration).To(Equal(int64(2)))
		})

		It("maps secrets and bindings back to their requests", func() {
			reqs := h.reconciler.findObjectsForSecret(context.Background(), &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: testNamespace},
			})
			Expect(reqs).To(HaveLen(1))
			Expect(reqs[0].Name).To(Equal("db"))

			reqs = h.reconciler.findObjectsForBinding(context.Background(), newBinding())
			Expect(reqs).To(HaveLen(1))
		})
	})

	Context("with non-retryable failures", func() {
		It("does not retry AccessDenied before the refresh interval", func() {
			h = newHarness(newBinding(), newRequest("db"))
			h.store.FailNext(remoteKey, reason.New(reason.AccessDenied, "role may not read %s", remoteKey))

			res := h.reconcile("db")
			sr := h.request("db")
			Expect(sr.Status.Phase).To(Equal(sfv1alpha1.PhaseFailed))
			Expect(sr.Status.LastError).NotTo(BeNil())
			Expect(sr.Status.LastError.Reason).To(Equal(string(reason.AccessDenied)))
			Expect(sr.Status.FailureCount).To(BeZero())
			Expect(res.RequeueAfter).To(BeNumerically(">=", time.Hour))
			Expect(h.recorder.Events).To(Receive(ContainSubstring(sfv1alpha1.ReasonSyncFailed)))
			Expect(h.broker.Len()).To(BeZero(), "the refused credential is not served again")

			for range 3 {
				h.clock.Step(15 * time.Minute)
				h.reconcile("db")
			}
			Expect(h.store.Calls()).To(Equal(1))

			h.clock.Step(time.Hour)
			h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(2))
			Expect(h.request("db").Status.Phase).To(Equal(sfv1alpha1.PhaseSynced))
			Expect(h.broker.Len()).To(Equal(1))
		})

		It("reports a missing property without writing anything", func() {
			h = newHarness(newBinding(), newRequest("db", func(sr *sfv1alpha1.SecretRequest) {
				sr.Spec.Data = []sfv1alpha1.SecretRequestData{{TargetKey: "token", RemoteProperty: "token"}}
			}))
			h.reconcile("db")

			Expect(h.request("db").Status.LastError.Reason).To(Equal(string(reason.MappingNotFound)))
			err := h.client.Get(context.Background(), types.NamespacedName{Namespace: testNamespace, Name: "db"}, &corev1.Secret{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("fails with IdentityNotMapped for an unknown service account", func() {
			h = newHarness(newBinding(), newRequest("db", func(sr *sfv1alpha1.SecretRequest) {
				sr.Spec.ServiceAccountName = "batch"
			}))
			h.reconcile("db")

			Expect(h.request("db").Status.LastError.Reason).To(Equal(string(reason.IdentityNotMapped)))
			Expect(h.store.Calls()).To(BeZero())
			Expect(h.exchanger.Calls()).To(BeZero())
		})

		It("fails with StoreNotFound and recovers once the binding exists", func() {
			h = newHarness(newRequest("db"))
			h.reconcile("db")
			Expect(h.request("db").Status.LastError.Reason).To(Equal(string(reason.StoreNotFound)))

			Expect(h.client.Create(context.Background(), newBinding())).To(Succeed())
			h.reconcile("db")
			Expect(h.request("db").Status.Phase).To(Equal(sfv1alpha1.PhaseSynced))
		})

		It("reports a key owned by another request as OwnershipConflict", func() {
			h = newHarness(newBinding(),
				newRequest("first", func(sr *sfv1alpha1.SecretRequest) {
					sr.Spec.Target = sfv1alpha1.SecretRequestTarget{Name: "shared", CreationPolicy: sfv1alpha1.CreatePolicyMerge}
				}),
				newRequest("second", func(sr *sfv1alpha1.SecretRequest) {
					sr.Spec.Target = sfv1alpha1.SecretRequestTarget{Name: "shared", CreationPolicy: sfv1alpha1.CreatePolicyMerge}
				}))
			h.reconcile("first")
			before := h.secret("shared")
			h.reconcile("second")

			Expect(h.request("first").Status.Phase).To(Equal(sfv1alpha1.PhaseSynced))
			Expect(h.request("second").Status.LastError.Reason).To(Equal(string(reason.OwnershipConflict)))
			after := h.secret("shared")
			Expect(after.Data).To(Equal(map[string][]byte{"password": []byte("s3cr3t")}))
			Expect(after.Annotations[sfv1alpha1.AnnotationKeyOwners]).To(Equal(`{"password":"apps/first"}`))
			Expect(after.ResourceVersion).To(Equal(before.ResourceVersion))
		})

		It("keeps the first owner's key when two Owner requests target the same key", func() {
			token := func(sr *sfv1alpha1.SecretRequest) {
				sr.Spec.Target = sfv1alpha1.SecretRequestTarget{Name: "shared"}
				sr.Spec.Data = []sfv1alpha1.SecretRequestData{{TargetKey: "token", RemoteProperty: "password"}}
			}
			h = newHarness(newBinding(), newRequest("first", token), newRequest("second", token))
			h.reconcile("first")
			before := h.secret("shared")
			h.store.SetSecret(remoteKey, "v2", `{"password":"rotated"}`)
			h.reconcile("second")

			Expect(h.request("first").Status.Phase).To(Equal(sfv1alpha1.PhaseSynced))
			second := h.request("second")
			Expect(second.Status.Phase).To(Equal(sfv1alpha1.PhaseFailed))
			Expect(second.Status.LastError.Reason).To(Equal(string(reason.OwnershipConflict)))

			after := h.secret("shared")
			Expect(after.Data).To(Equal(map[string][]byte{"token": []byte("s3cr3t")}))
			Expect(after.Annotations[sfv1alpha1.AnnotationKeyOwners]).To(Equal(`{"token":"apps/first"}`))
			Expect(after.OwnerReferences).To(HaveLen(1))
			Expect(after.OwnerReferences[0].UID).To(Equal(types.UID("first-uid")))
			Expect(after.ResourceVersion).To(Equal(before.ResourceVersion))
		})
	})

	Context("with transient failures", func() {
		BeforeEach(func() {
			h = newHarness(newBinding(), newRequest("db"))
		})

		It("retries with growing backoff and resets after success", func() {
			unavailable := reason.New(reason.Unavailable, "store is down")
			h.store.FailNext(remoteKey, unavailable, unavailable)

			res := h.reconcile("db")
			Expect(res.RequeueAfter).To(Equal(time.Second))
			sr := h.request("db")
			Expect(sr.Status.Phase).To(Equal(sfv1alpha1.PhaseFailed))
			Expect(sr.Status.FailureCount).To(Equal(int32(1)))

			// not due yet
			h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(1))

			h.clock.Step(time.Second)
			res = h.reconcile("db")
			Expect(res.RequeueAfter).To(Equal(2 * time.Second))
			Expect(h.request("db").Status.FailureCount).To(Equal(int32(2)))

			h.clock.Step(2 * time.Second)
			res = h.reconcile("db")
			Expect(res.RequeueAfter).To(BeNumerically(">=", time.Hour))
			sr = h.request("db")
			Expect(sr.Status.Phase).To(Equal(sfv1alpha1.PhaseSynced))
			Expect(sr.Status.FailureCount).To(BeZero())
			Expect(h.store.Calls()).To(Equal(3))
		})

		It("gives up after the attempt budget and starts clean on the next refresh", func() {
			unavailable := reason.New(reason.Unavailable, "store is down")
			h.store.FailNext(remoteKey, unavailable, unavailable, unavailable, unavailable)

			h.reconcile("db")
			h.clock.Step(time.Second)
			h.reconcile("db")
			h.clock.Step(2 * time.Second)
			res := h.reconcile("db")

			sr := h.request("db")
			Expect(sr.Status.FailureCount).To(Equal(int32(3)))
			Expect(res.RequeueAfter).To(BeNumerically(">=", time.Hour))
			Expect(h.store.Calls()).To(Equal(3))

			h.clock.Step(time.Minute)
			h.reconcile("db")
			Expect(h.store.Calls()).To(Equal(3))

			h.clock.Step(2 * time.Hour)
			res = h.reconcile("db")
			sr = h.request("db")
			Expect(sr.Status.FailureCount).To(Equal(int32(1)))
			Expect(res.RequeueAfter).To(Equal(time.Second))
		})
	})

	Context("with concurrent reconciles", func() {
		It("never runs more than one sync per request", func() {
			h = newHarness(newBinding(), newRequest("db"))
			h.reconcile("db")
			sr := h.request("db")
			sr.Annotations = map[string]string{sfv1alpha1.AnnotationForceSync: "now"}
			Expect(h.client.Update(context.Background(), sr)).To(Succeed())

			var mu sync.Mutex
			active, maxActive := 0, 0
			entered := make(chan struct{}, 1)
			unblock := make(chan struct{})
			h.reconciler.Syncer.OnEnter = func(types.NamespacedName) {
				mu.Lock()
				defer mu.Unlock()
				active++
				maxActive = max(maxActive, active)
			}
			h.store.FetchHook = func(context.Context, secretstore.Ref) error {
				entered <- struct{}{}
				<-unblock
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			}

			const workers = 5
			results := make(chan ctrl.Result, workers)
			for range workers {
				go func() {
					defer GinkgoRecover()
					results <- h.reconcile("db")
				}()
			}
			Eventually(entered).Should(Receive())
			for range workers - 1 {
				var res ctrl.Result
				Eventually(results).Should(Receive(&res))
				Expect(res.RequeueAfter).To(Equal(requeueShortly))
			}
			close(unblock)
			var res ctrl.Result
			Eventually(results).Should(Receive(&res))
			Expect(res.RequeueAfter).To(BeNumerically(">=", time.Hour))

			mu.Lock()
			defer mu.Unlock()
			Expect(maxActive).To(Equal(1))
			Expect(h.store.Calls()).To(Equal(2))
		})
	})

	Context("when the request changes during a sync", func() {
		It("discards the stale result and syncs again", func() {
			h = newHarness(newBinding(), newRequest("db"))
			once := sync.Once{}
			h.store.FetchHook = func(context.Context, secretstore.Ref) error {
				once.Do(func() {
					sr := h.request("db")
					sr.Spec.Data = append(sr.Spec.Data, sfv1alpha1.SecretRequestData{TargetKey: "username", RemoteProperty: "username"})
					sr.Generation++
					Expect(h.client.Update(context.Background(), sr)).To(Succeed())
				})
				return nil
			}

			res := h.reconcile("db")
			Expect(res.RequeueAfter).To(Equal(requeueShortly))
			err := h.client.Get(context.Background(), types.NamespacedName{Namespace: testNamespace, Name: "db"}, &corev1.Secret{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())

			h.reconcile("db")
			Expect(h.secret("db").Data).To(HaveKey("username"))
			Expect(h.request("db").Status.Phase).To(Equal(sfv1alpha1.PhaseSynced))
		})
	})

	Context("with static credentials", func() {
		It("uses the referenced secret instead of the broker", func() {
			binding := newBinding()
			binding.Spec.IdentityRef = &sfv1alpha1.IdentityRef{SecretRef: sfv1alpha1.SecretKeySelector{Name: "creds"}}
			creds := &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "creds", Namespace: testNamespace},
				Data:       map[string][]byte{"token": []byte("static-token")},
			}
			h = newHarness(binding, creds, newRequest("db"))
			h.reconcile("db")

			Expect(h.request("db").Status.Phase).To(Equal(sfv1alpha1.PhaseSynced))
			Expect(h.store.LastCredential().Token).To(Equal("static-token"))
			Expect(h.exchanger.Calls()).To(BeZero())
		})
	})

	Context("with a managed secret cache", func() {
		It("finds an unlabelled Merge target through the API reader", func() {
			shared := &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "shared", Namespace: testNamespace},
				Data:       map[string][]byte{"other": []byte("kept")},
			}
			h = newHarness(newBinding(), shared, newRequest("db", func(sr *sfv1alpha1.SecretRequest) {
				sr.Spec.Target = sfv1alpha1.SecretRequestTarget{Name: "shared", CreationPolicy: sfv1alpha1.CreatePolicyMerge}
			}))
			h.reconciler.SecretReader = fake.NewClientBuilder().WithScheme(h.reconciler.Scheme).Build()
			h.reconcile("db")

			Expect(h.request("db").Status.Phase).To(Equal(sfv1alpha1.PhaseSynced))
			secret := h.secret("shared")
			Expect(secret.Data).To(HaveKeyWithValue("other", []byte("kept")))
			Expect(secret.Data).To(HaveKeyWithValue("password", []byte("s3cr3t")))
		})
	})

	Context("on deletion", func() {
		It("deletes an owned target secret", func() {
			h = newHarness(newBinding(), newRequest("db"))
			h.reconcile("db")
			Expect(h.client.Delete(context.Background(), h.request("db"))).To(Succeed())

			h.reconcile("db")
			err := h.client.Get(context.Background(), types.NamespacedName{Namespace: testNamespace, Name: "db"}, &corev1.Secret{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
			err = h.client.Get(context.Background(), types.NamespacedName{Namespace: testNamespace, Name: "db"}, &sfv1alpha1.SecretRequest{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("only releases its own keys under Merge", func() {
			shared := &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "shared", Namespace: testNamespace},
				Data:       map[string][]byte{"other": []byte("kept")},
			}
			h = newHarness(newBinding(), shared, newRequest("db", func(sr *sfv1alpha1.SecretRequest) {
				sr.Spec.Target = sfv1alpha1.SecretRequestTarget{Name: "shared", CreationPolicy: sfv1alpha1.CreatePolicyMerge}
			}))
			h.reconcile("db")
			Expect(h.secret("shared").Data).To(HaveLen(2))

			Expect(h.client.Delete(context.Background(), h.request("db"))).To(Succeed())
			h.reconcile("db")

			secret := h.secret("shared")
			Expect(secret.Data).To(Equal(map[string][]byte{"other": []byte("kept")}))
			owners := map[string]string{}
			Expect(json.Unmarshal([]byte(secret.Annotations[sfv1alpha1.AnnotationKeyOwners]), &owners)).To(Succeed())
			Expect(owners).To(BeEmpty())
		})

		It("cancels a running sync when the watch sees the deletion", func() {
			h = newHarness()
			key := types.NamespacedName{Namespace: testNamespace, Name: "db"}
			ctx, release, ok := h.reconciler.Syncer.enter(context.Background(), key)
			Expect(ok).To(BeTrue())
			defer release()

			sr := newRequest("db")
			h.reconciler.cancelOnDelete().Delete(event.DeleteEvent{Object: sr})
			Expect(ctx.Done()).To(BeClosed())

			_, _, ok = h.reconciler.Syncer.enter(context.Background(), key)
			Expect(ok).To(BeFalse(), "the slot is held until the sync returns")
		})
	})
})
