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
	"maps"
	"sync"
)

// MemoryStore is an in-memory association table.
type MemoryStore struct {
	mu    sync.RWMutex
	roles map[WorkloadIdentity]RoleRef
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{roles: make(map[WorkloadIdentity]RoleRef)}
}

// Put associates id with role. A previous association is replaced
// and the replacement is logged as a warning.
func (m *MemoryStore) Put(id WorkloadIdentity, role RoleRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.roles[id]; ok && prev != role {
		log.Info("identity association superseded", "identity", id.String(), "previous", prev.Name, "role", role.Name)
	}
	m.roles[id] = role
}

// Delete removes the association for id.
func (m *MemoryStore) Delete(id WorkloadIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles, id)
}

// Replace swaps the whole table in one step.
func (m *MemoryStore) Replace(roles map[WorkloadIdentity]RoleRef) {
	next := make(map[WorkloadIdentity]RoleRef, len(roles))
	maps.Copy(next, roles)
	m.mu.Lock()
	m.roles = next
	m.mu.Unlock()
}

// Len returns the number of associations.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.roles)
}

func (m *MemoryStore) Resolve(_ context.Context, id WorkloadIdentity) (RoleRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	role, ok := m.roles[id]
	if !ok {
		return RoleRef{}, notMapped(id)
	}
	return role, nil
}
