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


// Package feature lets packages contribute command line flags that are
// parsed together with the command's own flags.
package feature

import (
	"sync"

	"github.com/spf13/pflag"
)

// Feature is a set of flags owned by a package. Initialize, when set, runs
// once after the flags have been parsed.
type Feature struct {
	Flags      *pflag.FlagSet
	Initialize func()
}

var (
	mu       sync.Mutex
	features []Feature
)

// Register adds a feature. It is meant to be called from init.
func Register(f Feature) {
	mu.Lock()
	defer mu.Unlock()
	features = append(features, f)
}

// Features returns all registered features.
func Features() []Feature {
	mu.Lock()
	defer mu.Unlock()
	return append([]Feature(nil), features...)
}

// AddFlags merges the flags of every registered feature into fs.
func AddFlags(fs *pflag.FlagSet) {
	for _, f := range Features() {
		if f.Flags != nil {
			fs.AddFlagSet(f.Flags)
		}
	}
}

// Initialize runs the Initialize func of every registered feature.
func Initialize() {
	for _, f := range Features() {
		if f.Initialize != nil {
			f.Initialize()
		}
	}
}
