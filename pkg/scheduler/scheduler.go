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


// Package scheduler runs periodic background jobs inside the manager.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"
)

// Job is a unit of periodic work. It must return once ctx is done.
type Job func(ctx context.Context, log logr.Logger)

type job struct {
	fn       Job
	interval time.Duration
	timeout  time.Duration
	stop     context.CancelFunc
}

// Scheduler runs jobs on a fixed interval. It implements manager.Runnable;
// jobs scheduled before Start are launched when it starts.
type Scheduler struct {
	log        logr.Logger
	clock      clock.WithTicker
	leaderOnly bool

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]*job
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock.
func WithClock(c clock.WithTicker) Option {
	return func(s *Scheduler) { s.clock = c }
}

// LeaderOnly makes the manager start the scheduler on the elected leader only.
func LeaderOnly() Option {
	return func(s *Scheduler) { s.leaderOnly = true }
}

// New creates a new scheduler.
func New(log logr.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:   log,
		clock: clock.RealClock{},
		jobs:  map[string]*job{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule runs fn every interval, each run bounded by timeout. The job runs
// once right after it starts. Scheduling an existing key only takes effect
// when the new interval is shorter.
func (s *Scheduler) Schedule(key string, interval, timeout time.Duration, fn Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.jobs[key]; ok {
		if current.interval <= interval {
			return
		}
		if current.stop != nil {
			current.stop()
		}
	}
	j := &job{fn: fn, interval: interval, timeout: timeout}
	s.jobs[key] = j
	if s.ctx != nil {
		s.launch(key, j)
	}
	s.log.Info("scheduled job", "key", key, "interval", interval)
}

// Cancel stops a scheduled job.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[key]; ok {
		if j.stop != nil {
			j.stop()
		}
		delete(s.jobs, key)
		s.log.Info("canceled job", "key", key)
	}
}

// NeedLeaderElection implements manager.LeaderElectionRunnable.
func (s *Scheduler) NeedLeaderElection() bool { return s.leaderOnly }

// Start launches all jobs and blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info("starting scheduler")
	s.mu.Lock()
	s.ctx = ctx
	for key, j := range s.jobs {
		s.launch(key, j)
	}
	s.mu.Unlock()

	<-ctx.Done()

	s.mu.Lock()
	for _, j := range s.jobs {
		if j.stop != nil {
			j.stop()
		}
	}
	s.ctx = nil
	s.mu.Unlock()
	return nil
}

// launch must be called with s.mu held.
func (s *Scheduler) launch(key string, j *job) {
	ctx, cancel := context.WithCancel(s.ctx)
	j.stop = cancel
	log := s.log.WithValues("job", key)
	go func() {
		t := s.clock.NewTicker(j.interval)
		defer t.Stop()
		for {
			s.run(ctx, log, j)
			select {
			case <-t.C():
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Scheduler) run(parent context.Context, log logr.Logger, j *job) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, j.timeout)
	defer cancel()
	j.fn(ctx, log)
}
