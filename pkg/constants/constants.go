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

package constants

const (
	ProviderAWSSM           = "AWS/SecretsManager"
	CallAWSSMGetSecretValue = "GetSecretValue"

	ProviderAWSPS         = "AWS/ParameterStore"
	CallAWSPSGetParameter = "GetParameter"

	ProviderAWSSTS                      = "AWS/STS"
	CallAWSSTSAssumeRoleWithWebIdentity = "AssumeRoleWithWebIdentity"

	ProviderAWSEKS                           = "AWS/EKS"
	CallAWSEKSListPodIdentityAssociations    = "ListPodIdentityAssociations"
	CallAWSEKSDescribePodIdentityAssociation = "DescribePodIdentityAssociation"

	ProviderAzureKV      = "Azure/KeyVault"
	CallAzureKVGetSecret = "GetSecret"

	ProviderAzureAD            = "Azure/EntraID"
	CallAzureADClientAssertion = "ClientAssertion"

	ProviderGCPSM                = "GCP/SecretManager"
	CallGCPSMAccessSecretVersion = "AccessSecretVersion"

	ProviderGCPSTS          = "GCP/STS"
	CallGCPSTSTokenExchange = "TokenExchange"

	ProviderKubernetes        = "Kubernetes"
	CallKubernetesCreateToken = "CreateToken"
	CallKubernetesTokenReview = "TokenReview"

	ProviderFake      = "Fake"
	CallFakeGetSecret = "GetSecret"
	CallFakeExchange  = "Exchange"

	StatusError   = "error"
	StatusSuccess = "success"
)
