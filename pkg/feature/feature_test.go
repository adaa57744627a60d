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


package feature

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsAreParsedBeforeInitialize(t *testing.T) {
	saved := features
	t.Cleanup(func() { features = saved })
	features = nil

	var endpoint, seen string
	fs := pflag.NewFlagSet("test-feature", pflag.ContinueOnError)
	fs.StringVar(&endpoint, "test-endpoint", "", "")
	Register(Feature{Flags: fs, Initialize: func() { seen = endpoint }})
	Register(Feature{})

	cmd := pflag.NewFlagSet("cmd", pflag.ContinueOnError)
	AddFlags(cmd)
	require.NoError(t, cmd.Parse([]string{"--test-endpoint=http://localhost:4566"}))
	Initialize()

	assert.Equal(t, "http://localhost:4566", seen)
	assert.Len(t, Features(), 2)
}
