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


package secretrequest

import (
	"context"
	"sync"

	"k8s.io/apimachinery/pkg/types"

	"github.com/secretfed/secretfed/pkg/controllers/secretrequest/srmetrics"
)

// inFlight allows at most one sync per request and lets a deletion observed
// by the watch cancel a sync that is still running.
type inFlight struct {
	mu      sync.Mutex
	running map[types.NamespacedName]context.CancelFunc
}

func newInFlight() *inFlight {
	return &inFlight{running: make(map[types.NamespacedName]context.CancelFunc)}
}

// enter returns a context that is cancelled by cancel(key) and a release
// func. ok is false if a sync for key is already running.
func (f *inFlight) enter(parent context.Context, key types.NamespacedName) (ctx context.Context, release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.running[key]; busy {
		return nil, nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	f.running[key] = cancel
	srmetrics.SyncStarted()
	return ctx, func() {
		f.mu.Lock()
		delete(f.running, key)
		f.mu.Unlock()
		cancel()
		srmetrics.SyncFinished()
	}, true
}

func (f *inFlight) cancel(key types.NamespacedName) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	cancel, ok := f.running[key]
	if ok {
		cancel()
	}
	return ok
}
