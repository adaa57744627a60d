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

package broker

import (
	"context"

	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"

	"github.com/secretfed/secretfed/pkg/identity"
)

type refreshTarget struct {
	role      identity.RoleRef
	requester identity.WorkloadIdentity
}

// Refresh is the background sweep. It evicts expired or idle credentials,
// refreshes the due ones concurrently and waits for the refreshes it started.
// A failed refresh leaves the previous credential in place.
func (b *Broker) Refresh(ctx context.Context, log logr.Logger) {
	now := b.clock.Now()
	var due []refreshTarget

	b.mu.Lock()
	for role, e := range b.cache {
		switch {
		case !e.cred.Static() && !now.Before(e.cred.ExpiresAt):
			delete(b.cache, role)
		case b.cfg.IdleTTL > 0 && now.Sub(e.lastUsed) > b.cfg.IdleTTL:
			delete(b.cache, role)
		case b.dueForRefresh(e.cred, now):
			due = append(due, refreshTarget{role: role, requester: e.requester})
		}
	}
	cachedCredentials.Set(float64(len(b.cache)))
	b.mu.Unlock()

	results := make([]<-chan singleflight.Result, len(due))
	for i, t := range due {
		results[i] = b.group.DoChan(groupKey(t.role), func() (any, error) {
			return b.exchange(ctx, t.role, t.requester)
		})
	}
	for i, ch := range results {
		select {
		case res := <-ch:
			if res.Err != nil {
				refreshFailures.WithLabelValues(string(due[i].role.Kind)).Inc()
				log.Error(res.Err, "credential refresh failed, keeping cached credential", "role", due[i].role.Name)
			}
		case <-ctx.Done():
			return
		}
	}
	if len(due) > 0 {
		log.V(1).Info("refreshed credentials", "count", len(due))
	}
}
