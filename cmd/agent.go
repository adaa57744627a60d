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
	"context"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/secretfed/secretfed/pkg/agent"
	"github.com/secretfed/secretfed/pkg/feature"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/scheduler"
)

var (
	agentAddr        string
	agentAudiences   []string
	agentBrokerFlags brokerFlags
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "serves federated AWS credentials to pods on the local node",
	Run:   runAgent,
}

func runAgent(_ *cobra.Command, _ []string) {
	feature.Initialize()

	cfg := ctrl.GetConfigOrDie()
	mgr, err := ctrl.NewManager(cfg, ctrl.Options{
		Scheme: scheme,
		Metrics: metricsserver.Options{
			BindAddress: metricsAddr,
		},
		HealthProbeBindAddress: healthAddr,
	})
	if err != nil {
		setupLog.Error(err, errCreateManager)
		os.Exit(1)
	}
	ctx := ctrl.SetupSignalHandler()
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
	creds, err := newBroker(ctx, &agentBrokerFlags, mgr.GetClient(), cs, sched)
	if err != nil {
		setupLog.Error(err, "unable to create credential broker")
		os.Exit(1)
	}

	srv := &agent.Server{
		Reviews:     cs.AuthenticationV1().TokenReviews(),
		Credentials: creds,
		Log:         ctrl.Log.WithName("agent"),
		Audiences:   agentAudiences,
	}
	if err := mgr.Add(manager.RunnableFunc(func(ctx context.Context) error {
		return srv.ListenAndServe(ctx, agentAddr)
	})); err != nil {
		setupLog.Error(err, "unable to add credential agent")
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

	setupLog.Info("starting credential agent")
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running agent")
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(agentCmd)
	fs := agentCmd.Flags()
	fs.StringVar(&metricsAddr, "metrics-addr", ":8080", "The address the metric endpoint binds to.")
	fs.StringVar(&healthAddr, "health-addr", ":8081", "The address the health endpoint binds to.")
	fs.StringVar(&agentAddr, "listen-addr", "169.254.170.23:80", "The address the credential endpoint binds to.")
	fs.StringSliceVar(&agentAudiences, "token-audiences", nil, "Audiences a caller token must carry. Empty accepts the API server default audience.")
	agentBrokerFlags.addFlags(fs)
}
