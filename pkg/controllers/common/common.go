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


// Package common holds the wiring the SecretRequest, SecretStoreBinding and
// IdentityAssociation reconcilers share: the workqueue rate limiter and the
// label-filtered reader for Secrets the controller materialized.
package common

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/selection"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
)

// RateLimiterOptions bounds how fast failed requests are requeued and how
// many reconciles per second a controller may start overall.
type RateLimiterOptions struct {
	// FailureBaseDelay is the first per-request retry delay, doubled per failure.
	FailureBaseDelay time.Duration
	// FailureMaxDelay caps the per-request retry delay.
	FailureMaxDelay time.Duration
	// QPS and Burst size the token bucket shared by all requests of a controller.
	QPS   float64
	Burst int
}

// DefaultRateLimiterOptions keeps the queue well below the quota of most
// remote secret stores: 1s doubling to 7m per request, 10 qps overall.
func DefaultRateLimiterOptions() RateLimiterOptions {
	return RateLimiterOptions{
		FailureBaseDelay: time.Second,
		FailureMaxDelay:  7 * time.Minute,
		QPS:              10,
		Burst:            100,
	}
}

func (o RateLimiterOptions) withDefaults() RateLimiterOptions {
	d := DefaultRateLimiterOptions()
	if o.FailureBaseDelay <= 0 {
		o.FailureBaseDelay = d.FailureBaseDelay
	}
	if o.FailureMaxDelay < o.FailureBaseDelay {
		o.FailureMaxDelay = max(d.FailureMaxDelay, o.FailureBaseDelay)
	}
	if o.QPS <= 0 || o.Burst <= 0 {
		o.QPS, o.Burst = d.QPS, d.Burst
	}
	return o
}

// ManagedSecretSelector matches the Secrets written by the SecretRequest controller.
func ManagedSecretSelector() labels.Selector {
	req, _ := labels.NewRequirement(sfv1alpha1.LabelManaged, selection.Equals, []string{sfv1alpha1.LabelManagedValue})
	return labels.NewSelector().Add(*req)
}

// BuildManagedSecretClient returns a client that reads target Secrets from a
// cache holding only Secrets carrying the managed label. Merge targets created
// by someone else are not in it, so callers fall back to the API reader on NotFound.
func BuildManagedSecretClient(mgr ctrl.Manager, namespace string) (client.Client, error) {
	secretCacheOpts := cache.Options{
		HTTPClient: mgr.GetHTTPClient(),
		Scheme:     mgr.GetScheme(),
		Mapper:     mgr.GetRESTMapper(),
		ByObject: map[client.Object]cache.ByObject{
			&corev1.Secret{}: {
				Label: ManagedSecretSelector(),
			},
		},
		// reads of anything but Secrets fail instead of starting an informer
		ReaderFailOnMissingInformer: true,
	}
	if namespace != "" {
		secretCacheOpts.DefaultNamespaces = map[string]cache.Config{
			namespace: {},
		}
	}

	secretCache, err := cache.New(mgr.GetConfig(), secretCacheOpts)
	if err != nil {
		return nil, err
	}
	if _, err := secretCache.GetInformer(context.Background(), &corev1.Secret{}); err != nil {
		return nil, err
	}
	if err := mgr.Add(secretCache); err != nil {
		return nil, err
	}

	return client.New(mgr.GetConfig(), client.Options{
		HTTPClient: mgr.GetHTTPClient(),
		Scheme:     mgr.GetScheme(),
		Mapper:     mgr.GetRESTMapper(),
		Cache: &client.CacheOptions{
			Reader: secretCache,
		},
	})
}

// BuildRateLimiter returns the workqueue rate limiter of a reconciler: the
// longer of a per-request exponential delay and a controller wide token bucket.
// Zero fields of opts take the defaults.
func BuildRateLimiter(opts RateLimiterOptions) workqueue.TypedRateLimiter[reconcile.Request] {
	opts = opts.withDefaults()
	failureRateLimiter := workqueue.NewTypedItemExponentialFailureRateLimiter[reconcile.Request](opts.FailureBaseDelay, opts.FailureMaxDelay)
	totalRateLimiter := &workqueue.TypedBucketRateLimiter[reconcile.Request]{
		Limiter: rate.NewLimiter(rate.Limit(opts.QPS), opts.Burst),
	}
	return workqueue.NewTypedMaxOfRateLimiter[reconcile.Request](failureRateLimiter, totalRateLimiter)
}
