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


// Package register provides explicit registration of all secret store providers.
package register

import (
	"github.com/secretfed/secretfed/pkg/secretstore"
	awsps "github.com/secretfed/secretfed/providers/aws/parameterstore"
	awssm "github.com/secretfed/secretfed/providers/aws/secretsmanager"
	azurekv "github.com/secretfed/secretfed/providers/azure/keyvault"
	"github.com/secretfed/secretfed/providers/fake"
	gcpsm "github.com/secretfed/secretfed/providers/gcp/secretmanager"
)

func init() {
	secretstore.Register(&awssm.Provider{})
	secretstore.Register(&awsps.Provider{})
	secretstore.Register(&gcpsm.Provider{})
	secretstore.Register(&azurekv.Provider{})
	secretstore.Register(fake.New())
}
