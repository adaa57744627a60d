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


package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/secretfed/secretfed/pkg/controllers/common"
	"github.com/secretfed/secretfed/pkg/controllers/identityassociation"
	ctrlmetrics "github.com/secretfed/secretfed/pkg/controllers/metrics"
	"github.com/secretfed/secretfed/pkg/controllers/secretrequest"
	"github.com/secretfed/secretfed/pkg/controllers/secretrequest/srmetrics"
	"github.com/secretfed/secretfed/pkg/controllers/secretstorebinding"
	"github.com/secretfed/secretfed/pkg/feature"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/scheduler"
	"github.com/secretfed/secretfed/pkg/secretstore"
)

var (
	enableLeaderElection       bool
	concurrent                 int
	namespace                  string
	requeueInterval            time.Duration
	bindingRequeueInterval     time.Duration
	initialBackoff             time.Duration
	maxBackoff                 time.Duration
	maxTransientAttempts       int32
	remoteCallTimeout          time.Duration
	enableSecretsCache         bool
	enableManagedSecretsCache  bool
	enableExtendedMetricLabels bool
	queueRateLimits            = common.DefaultRateLimiterOptions()
	controllerBrokerFlags      brokerFlags
)

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "reconciles SecretRequests, SecretStoreBindings and IdentityAssociations",
	Run:   runController,
}

func runController(_ *cobra.Command, _ []string) {
	feature.Initialize()
	ctrlmetrics.SetUpLabelNames(enableExtendedMetricLabels)
	srmetrics.SetUpMetrics()
	secretstorebinding.SetUpMetrics()

	cacheOpts := cache.Options{}
	if namespace != "" {
		cacheOpts.DefaultNamespaces = map[string]cache.Config{
			namespace: {},
		}
	}
	clientOpts := client.Options{}
	if !enableSecretsCache {
		// Secrets are read live unless caching is enabled
		clientOpts.Cache = &client.CacheOptions{
			DisableFor: []client.Object{&corev1.Secret{}},
		}
	}

	cfg := ctrl.GetConfigOrDie()
	mgr, err := ctrl.NewManager(cfg, ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: metricsAddr,
		},
		HealthProbeBindAddress: healthAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "secretfed-controller",
		Cache:                  cacheOpts,
		Client:                 clientOpts,
	})
	if err != nil {
		setupLog.Error(err, errCreateManager)
		os.Exit(1)
	}
	ctx := ctrl.SetupSignalHandler()

	if err := secretrequest.SetupIndexes(ctx, mgr.GetFieldIndexer()); err != nil {
		setupLog.Error(err, "unable to set up SecretRequest indexes")
		os.Exit(1)
	}
	if err := identity.SetupIndex(ctx, mgr.GetFieldIndexer()); err != nil {
		setupLog.Error(err, "unable to set up IdentityAssociation index")
		os.Exit(1)
	}

	sched := scheduler.New(ctrl.Log.WithName("scheduler"))
	if err := mgr.Add(sched); err != nil {
		setupLog.Error(err, "unable to add scheduler")
		os.Exit(1)
	}
	cs := kubernetes.NewForConfigOrDie(cfg)
	creds, err := newBroker(ctx, &controllerBrokerFlags, mgr.GetClient(), cs, sched)
	if err != nil {
		setupLog.Error(err, "unable to create credential broker")
		os.Exit(1)
	}

	storeOpts := secretstore.DefaultOptions()
	storeOpts.CallTimeout = remoteCallTimeout
	stores := secretstore.NewClient(secretstore.Default(), storeOpts, nil)

	var secretReader client.Reader
	if enableManagedSecretsCache && !enableSecretsCache {
		secretReader, err = common.BuildManagedSecretClient(mgr, namespace)
		if err != nil {
			setupLog.Error(err, "unable to create managed secret client")
			os.Exit(1)
		}
	}

	opts := controller.Options{
		MaxConcurrentReconciles: concurrent,
		RateLimiter:             common.BuildRateLimiter(queueRateLimits),
	}
	if err := (&secretrequest.Reconciler{
		Client:               mgr.GetClient(),
		APIReader:            mgr.GetAPIReader(),
		SecretReader:         secretReader,
		Log:                  ctrl.Log.WithName("controllers").WithName("SecretRequest"),
		Scheme:               mgr.GetScheme(),
		Syncer:               secretrequest.NewSyncer(mgr.GetClient(), creds, stores),
		RequeueInterval:      requeueInterval,
		InitialBackoff:       initialBackoff,
		MaxBackoff:           maxBackoff,
		MaxTransientAttempts: maxTransientAttempts,
	}).SetupWithManager(mgr, opts); err != nil {
		setupLog.Error(err, errCreateController, "controller", "SecretRequest")
		os.Exit(1)
	}
	if err := (&secretstorebinding.Reconciler{
		Client:          mgr.GetClient(),
		Log:             ctrl.Log.WithName("controllers").WithName("SecretStoreBinding"),
		Scheme:          mgr.GetScheme(),
		Registry:        secretstore.Default(),
		Clients:         stores,
		RequeueInterval: bindingRequeueInterval,
	}).SetupWithManager(mgr, controller.Options{RateLimiter: common.BuildRateLimiter(queueRateLimits)}); err != nil {
		setupLog.Error(err, errCreateController, "controller", "SecretStoreBinding")
		os.Exit(1)
	}
	if err := (&identityassociation.Reconciler{
		Client: mgr.GetClient(),
		Log:    ctrl.Log.WithName("controllers").WithName("IdentityAssociation"),
		Scheme: mgr.GetScheme(),
	}).SetupWithManager(mgr, controller.Options{RateLimiter: common.BuildRateLimiter(queueRateLimits)}); err != nil {
		setupLog.Error(err, errCreateController, "controller", "IdentityAssociation")
		os.Exit(1)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(controllerCmd)
	fs := controllerCmd.Flags()
	fs.StringVar(&metricsAddr, "metrics-addr", ":8080", "The address the metric endpoint binds to.")
	fs.StringVar(&healthAddr, "health-addr", ":8081", "The address the health endpoint binds to.")
	fs.BoolVar(&enableLeaderElection, "enable-leader-election", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	fs.IntVar(&concurrent, "concurrent", 1, "The number of concurrent SecretRequest reconciles.")
	fs.StringVar(&namespace, "namespace", "", "Watch SecretRequests and SecretStoreBindings in the provided namespace only.")
	fs.DurationVar(&requeueInterval, "requeue-interval", secretrequest.DefaultRefreshInterval, "Refresh interval of SecretRequests that do not set spec.refreshInterval.")
	fs.DurationVar(&bindingRequeueInterval, "binding-requeue-interval", 5*time.Minute, "Time duration between reconciling SecretStoreBindings.")
	fs.DurationVar(&initialBackoff, "initial-backoff", secretrequest.DefaultInitialBackoff, "First retry delay after a transient sync failure.")
	fs.DurationVar(&maxBackoff, "max-backoff", secretrequest.DefaultMaxBackoff, "Upper bound of the retry delay after transient sync failures.")
	fs.Int32Var(&maxTransientAttempts, "max-transient-attempts", secretrequest.DefaultMaxTransientAttempts, "Attempts per refresh cycle before a transient failure waits for the next refresh.")
	fs.DurationVar(&remoteCallTimeout, "remote-call-timeout", 15*time.Second, "Timeout of a single call to a secret store.")
	fs.BoolVar(&enableSecretsCache, "enable-secrets-caching", false, "Cache all Secrets of the cluster. Increases memory use.")
	fs.BoolVar(&enableManagedSecretsCache, "enable-managed-secrets-caching", true, "Cache the Secrets written by the controller.")
	fs.BoolVar(&enableExtendedMetricLabels, "enable-extended-metric-labels", false, "Add recommended kubernetes labels to metrics.")
	fs.DurationVar(&queueRateLimits.FailureBaseDelay, "queue-failure-base-delay", queueRateLimits.FailureBaseDelay, "First workqueue requeue delay of a failed reconcile, doubled per failure.")
	fs.DurationVar(&queueRateLimits.FailureMaxDelay, "queue-failure-max-delay", queueRateLimits.FailureMaxDelay, "Upper bound of the workqueue requeue delay of a failed reconcile.")
	fs.Float64Var(&queueRateLimits.QPS, "queue-qps", queueRateLimits.QPS, "Reconciles per second each controller may start.")
	fs.IntVar(&queueRateLimits.Burst, "queue-burst", queueRateLimits.Burst, "Burst of reconciles each controller may start.")
	controllerBrokerFlags.addFlags(fs)
}
