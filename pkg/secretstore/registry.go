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


package secretstore

import (
	"fmt"
	"maps"
	"sync"

	sfv1alpha1 "github.com/secretfed/secretfed/apis/secretfed/v1alpha1"
)

// Registry holds providers by tag and provides thread-safe access.
type Registry struct {
	mu        sync.RWMutex
	providers map[sfv1alpha1.ProviderTag]Provider
}

// NewRegistry creates a new empty registry for testing or isolated use.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[sfv1alpha1.ProviderTag]Provider)}
}

// Add registers p. It fails if the tag is already taken.
func (r *Registry) Add(p Provider) error {
	tag := p.Describe().Tag
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[tag]; exists {
		return fmt.Errorf("provider %q already registered", tag)
	}
	r.providers[tag] = p
	return nil
}

// Fetch returns the provider for tag.
func (r *Registry) Fetch(tag sfv1alpha1.ProviderTag) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[tag]
	return p, ok
}

// List returns a copy of all registered providers.
func (r *Registry) List() map[sfv1alpha1.ProviderTag]Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.providers)
}

var globalRegistry = NewRegistry()

// Register adds p to the global registry. It panics on duplicate tags.
func Register(p Provider) {
	if err := globalRegistry.Add(p); err != nil {
		panic(fmt.Sprintf("error registering provider: %s", err.Error()))
	}
}

// Default returns the global registry.
func Default() *Registry {
	return globalRegistry
}
