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

package identity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/go-logr/logr"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/metrics"
)

// EKSAPI is the subset of the EKS client used to read pod identity associations.
type EKSAPI interface {
	ListPodIdentityAssociations(ctx context.Context, params *eks.ListPodIdentityAssociationsInput, optFns ...func(*eks.Options)) (*eks.ListPodIdentityAssociationsOutput, error)
	DescribePodIdentityAssociation(ctx context.Context, params *eks.DescribePodIdentityAssociationInput, optFns ...func(*eks.Options)) (*eks.DescribePodIdentityAssociationOutput, error)
}

// EKSPoller mirrors the EKS Pod Identity associations of one cluster into a MemoryStore.
// It is driven by the scheduler, so new associations show up after one poll interval.
type EKSPoller struct {
	Client      EKSAPI
	ClusterName string
	Store       *MemoryStore
}

// NewEKSPoller creates a poller backed by its own MemoryStore.
func NewEKSPoller(client EKSAPI, clusterName string) *EKSPoller {
	return &EKSPoller{
		Client:      client,
		ClusterName: clusterName,
		Store:       NewMemoryStore(),
	}
}

// Resolve looks up the last polled state.
func (p *EKSPoller) Resolve(ctx context.Context, id WorkloadIdentity) (RoleRef, error) {
	return p.Store.Resolve(ctx, id)
}

// Poll reads all associations and swaps them into the store.
// On error the previous table is kept.
func (p *EKSPoller) Poll(ctx context.Context) error {
	roles := make(map[WorkloadIdentity]RoleRef)
	var next *string
	for {
		out, err := p.Client.ListPodIdentityAssociations(ctx, &eks.ListPodIdentityAssociationsInput{
			ClusterName: aws.String(p.ClusterName),
			NextToken:   next,
		})
		metrics.ObserveAPICall(constants.ProviderAWSEKS, constants.CallAWSEKSListPodIdentityAssociations, err)
		if err != nil {
			return fmt.Errorf("listing pod identity associations: %w", err)
		}
		for _, summary := range out.Associations {
			desc, err := p.Client.DescribePodIdentityAssociation(ctx, &eks.DescribePodIdentityAssociationInput{
				AssociationId: summary.AssociationId,
				ClusterName:   aws.String(p.ClusterName),
			})
			metrics.ObserveAPICall(constants.ProviderAWSEKS, constants.CallAWSEKSDescribePodIdentityAssociation, err)
			if err != nil {
				return fmt.Errorf("describing pod identity association %s: %w", aws.ToString(summary.AssociationId), err)
			}
			if desc.Association == nil || aws.ToString(desc.Association.RoleArn) == "" {
				continue
			}
			id := WorkloadIdentity{
				Namespace:      aws.ToString(summary.Namespace),
				ServiceAccount: aws.ToString(summary.ServiceAccount),
			}
			roles[id] = RoleRef{Kind: sfv1alpha1.RoleKindAWS, Name: aws.ToString(desc.Association.RoleArn)}
		}
		if aws.ToString(out.NextToken) == "" {
			break
		}
		next = out.NextToken
	}
	p.Store.Replace(roles)
	return nil
}

// Run is a scheduler job wrapper around Poll.
func (p *EKSPoller) Run(ctx context.Context, log logr.Logger) {
	if err := p.Poll(ctx); err != nil {
		log.Error(err, "unable to poll eks pod identity associations", "cluster", p.ClusterName)
		return
	}
	log.V(1).Info("polled eks pod identity associations", "cluster", p.ClusterName, "count", p.Store.Len())
}
