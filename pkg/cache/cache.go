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


// Package cache holds provider clients so they can be reused across
// reconciles as long as the binding and its credential do not change.
// Clients are keyed per binding and identity, so requests of different
// workloads on one binding hold separate entries.
package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a generic lru cache that allows you to
// lookup values using a key and a version.
// Only a single version of a given key is held.
// A version mismatch is a cache miss and the stale entry is evicted.
// Evicted values are passed to the optional cleanup function.
type Cache[T any] struct {
	mu      sync.Mutex
	lru     *lru.Cache[Key, value[T]]
	cleanup func(client T)
}

// Key is the cache lookup key.
type Key struct {
	Namespace string
	Name      string
	Provider  string
	// Identity is the role the client authenticates as.
	Identity string
}

func (k Key) String() string {
	if k.Identity == "" {
		return fmt.Sprintf("%s/%s[%s]", k.Namespace, k.Name, k.Provider)
	}
	return fmt.Sprintf("%s/%s[%s]@%s", k.Namespace, k.Name, k.Provider, k.Identity)
}

type value[T any] struct {
	Version string
	Client  T
}

// New constructs a new lru cache with the desired size and cleanup func.
func New[T any](size int, cleanup func(client T)) (*Cache[T], error) {
	c := &Cache[T]{cleanup: cleanup}
	l, err := lru.NewWithEvict(size, func(_ Key, val value[T]) {
		c.close(val.Client)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create lru: %w", err)
	}
	c.lru = l
	return c, nil
}

// Must is New that panics on error.
func Must[T any](size int, cleanup func(client T)) *Cache[T] {
	c, err := New(size, cleanup)
	if err != nil {
		panic(err)
	}
	return c
}

// Get retrieves the value for key if it was added with version.
func (c *Cache[T]) Get(version string, key Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.lru.Get(key)
	if ok {
		if val.Version == version {
			return val.Client, true
		}
		c.lru.Remove(key)
	}
	var zero T
	return zero, false
}

// Add stores client under key/version and returns the client callers should use.
// A value already held for the same version wins and client is cleaned up.
// A value of another version is replaced and cleaned up.
func (c *Cache[T]) Add(version string, key Key, client T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.lru.Peek(key); ok {
		if old.Version == version {
			c.close(client)
			return old.Client
		}
		// Remove runs the eviction callback, Add on an existing key does not.
		c.lru.Remove(key)
	}
	c.lru.Add(key, value[T]{Version: version, Client: client})
	return client
}

// Remove evicts key.
func (c *Cache[T]) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// RemoveFunc evicts every key match returns true for.
func (c *Cache[T]) RemoveFunc(match func(Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		if match(key) {
			c.lru.Remove(key)
		}
	}
}

// Contains returns true if a value with the given key exists.
func (c *Cache[T]) Contains(key Key) bool {
	return c.lru.Contains(key)
}

func (c *Cache[T]) Len() int {
	return c.lru.Len()
}

// Purge evicts everything.
func (c *Cache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

func (c *Cache[T]) close(client T) {
	if c.cleanup != nil {
		c.cleanup(client)
	}
}
