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
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/spf13/pflag"
	"k8s.io/client-go/kubernetes"
	"sigs.k8s.io/controller-runtime/pkg/client"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/broker"
	awsexchanger "github.com/secretfed/secretfed/pkg/broker/exchanger/aws"
	azureexchanger "github.com/secretfed/secretfed/pkg/broker/exchanger/azure"
	fakeexchanger "github.com/secretfed/secretfed/pkg/broker/exchanger/fake"
	gcpexchanger "github.com/secretfed/secretfed/pkg/broker/exchanger/gcp"
	"github.com/secretfed/secretfed/pkg/broker/token"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/scheduler"
)

const (
	jobBrokerRefresh = "broker-refresh"
	jobEKSPoll       = "eks-pod-identity-poll"
)

// brokerFlags are shared by every command that runs a broker.
type brokerFlags struct {
	refreshInterval time.Duration
	stsRegion       string
	eksCluster      string
	eksPollInterval time.Duration
	tokenExpiration time.Duration
}

func (f *brokerFlags) addFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&f.refreshInterval, "broker-refresh-interval", time.Minute, "Time between sweeps that refresh credentials close to expiry and evict idle ones.")
	fs.StringVar(&f.stsRegion, "aws-sts-region", "", "Region of the AWS STS endpoint used to assume roles. Empty uses the SDK default.")
	fs.StringVar(&f.eksCluster, "identity-eks-cluster", "", "Name of the EKS cluster whose pod identity associations map workload identities to roles. Disabled when empty.")
	fs.DurationVar(&f.eksPollInterval, "identity-eks-poll-interval", 5*time.Minute, "Time between polls of EKS pod identity associations.")
	fs.DurationVar(&f.tokenExpiration, "workload-token-expiration", time.Hour, "Requested lifetime of the ServiceAccount tokens presented to trust services.")
}

// newBroker wires identity stores, the workload token source and all
// exchangers into a broker and schedules its background jobs on sched.
func newBroker(ctx context.Context, f *brokerFlags, c client.Client, cs kubernetes.Interface, sched *scheduler.Scheduler) (*broker.Broker, error) {
	stores := identity.Chain{identity.NewKubeStore(c)}
	if f.eksCluster != "" {
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(f.stsRegion))
		if err != nil {
			return nil, fmt.Errorf("unable to load aws config for eks: %w", err)
		}
		poller := identity.NewEKSPoller(eks.NewFromConfig(cfg), f.eksCluster)
		sched.Schedule(jobEKSPoll, f.eksPollInterval, f.eksPollInterval, poller.Run)
		stores = append(stores, poller)
	}
	stores = append(stores, identity.NewAnnotationStore(c))

	sts, err := awsexchanger.New(ctx, f.stsRegion)
	if err != nil {
		return nil, err
	}
	tokens := token.New(cs.CoreV1())
	tokens.ExpirationSeconds = int64(f.tokenExpiration.Seconds())

	b := broker.New(stores, tokens, map[sfv1alpha1.RoleKind]broker.Exchanger{
		sfv1alpha1.RoleKindAWS:   sts,
		sfv1alpha1.RoleKindGCP:   gcpexchanger.New(),
		sfv1alpha1.RoleKindAzure: azureexchanger.New(),
		sfv1alpha1.RoleKindFake:  fakeexchanger.New(nil, fakeexchanger.DefaultLifetime),
	})
	sched.Schedule(jobBrokerRefresh, f.refreshInterval, f.refreshInterval, b.Refresh)
	return b, nil
}
