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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
	"github.com/secretfed/secretfed/pkg/secretstore"
)

var manifestFile string

var errInvalidManifests = errors.New("manifest validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "validates SecretRequest, SecretStoreBinding and IdentityAssociation manifests offline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := io.Reader(os.Stdin)
		if manifestFile != "-" {
			f, err := os.Open(manifestFile)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		invalid, err := validateManifests(in, cmd.OutOrStdout(), secretstore.Default())
		if err != nil {
			return err
		}
		if invalid > 0 {
			return errInvalidManifests
		}
		return nil
	},
}

// validateManifests checks every document of a multi document YAML stream
// and writes one result line per document. It returns the number of
// invalid documents.
func validateManifests(in io.Reader, out io.Writer, registry *secretstore.Registry) (int, error) {
	reader := utilyaml.NewYAMLReader(bufio.NewReader(in))
	invalid := 0
	for {
		doc, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return invalid, nil
		}
		if err != nil {
			return invalid, fmt.Errorf("unable to read manifest: %w", err)
		}
		if strings.TrimSpace(string(doc)) == "" {
			continue
		}
		name, err := validateDocument(doc, registry)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "%s: invalid: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "%s: valid\n", name)
	}
}

func validateDocument(doc []byte, registry *secretstore.Registry) (string, error) {
	var meta struct {
		Kind     string `json:"kind"`
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
	}
	if err := yaml.Unmarshal(doc, &meta); err != nil {
		return "<unknown>", err
	}
	name := meta.Kind + "/" + meta.Metadata.Name

	switch meta.Kind {
	case sfv1alpha1.SecretRequestKind:
		var sr sfv1alpha1.SecretRequest
		if err := yaml.UnmarshalStrict(doc, &sr); err != nil {
			return name, err
		}
		return name, sfv1alpha1.ValidateSecretRequest(&sr)
	case sfv1alpha1.SecretStoreBindingKind:
		var b sfv1alpha1.SecretStoreBinding
		if err := yaml.UnmarshalStrict(doc, &b); err != nil {
			return name, err
		}
		if err := sfv1alpha1.ValidateSecretStoreBinding(&b); err != nil {
			return name, err
		}
		if _, ok := registry.Fetch(b.Spec.Provider); !ok {
			return name, fmt.Errorf("provider %q is not registered", b.Spec.Provider)
		}
		return name, nil
	case sfv1alpha1.IdentityAssociationKind:
		var ia sfv1alpha1.IdentityAssociation
		if err := yaml.UnmarshalStrict(doc, &ia); err != nil {
			return name, err
		}
		if ia.Spec.Namespace == "" || ia.Spec.ServiceAccount == "" || ia.Spec.RoleRef.Name == "" {
			return name, errors.New("spec.namespace, spec.serviceAccount and spec.roleRef.name are required")
		}
		return name, nil
	default:
		return name, fmt.Errorf("unsupported kind %q", meta.Kind)
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&manifestFile, "file", "f", "-", "Manifest file to validate, - reads stdin.")
}
