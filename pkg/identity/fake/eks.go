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

package fake

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
)

// Association is a pod identity association held by the fake.
type Association struct {
	ID             string
	Namespace      string
	ServiceAccount string
	RoleArn        string
}

// EKS serves pod identity associations from memory, PageSize per page.
type EKS struct {
	Associations []Association
	PageSize     int
	ListErr      error
}

func (f *EKS) ListPodIdentityAssociations(_ context.Context, in *eks.ListPodIdentityAssociationsInput, _ ...func(*eks.Options)) (*eks.ListPodIdentityAssociationsOutput, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	size := f.PageSize
	if size <= 0 {
		size = len(f.Associations)
	}
	start := 0
	if in.NextToken != nil {
		if _, err := fmt.Sscanf(*in.NextToken, "%d", &start); err != nil {
			return nil, err
		}
	}
	end := min(start+size, len(f.Associations))
	out := &eks.ListPodIdentityAssociationsOutput{}
	for _, a := range f.Associations[start:end] {
		out.Associations = append(out.Associations, ekstypes.PodIdentityAssociationSummary{
			AssociationId:  aws.String(a.ID),
			ClusterName:    in.ClusterName,
			Namespace:      aws.String(a.Namespace),
			ServiceAccount: aws.String(a.ServiceAccount),
		})
	}
	if end < len(f.Associations) {
		out.NextToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func (f *EKS) DescribePodIdentityAssociation(_ context.Context, in *eks.DescribePodIdentityAssociationInput, _ ...func(*eks.Options)) (*eks.DescribePodIdentityAssociationOutput, error) {
	for _, a := range f.Associations {
		if a.ID == aws.ToString(in.AssociationId) {
			return &eks.DescribePodIdentityAssociationOutput{
				Association: &ekstypes.PodIdentityAssociation{
					AssociationId:  aws.String(a.ID),
					Namespace:      aws.String(a.Namespace),
					ServiceAccount: aws.String(a.ServiceAccount),
					RoleArn:        aws.String(a.RoleArn),
				},
			}, nil
		}
	}
	return nil, &ekstypes.ResourceNotFoundException{Message: aws.String("association not found")}
}
