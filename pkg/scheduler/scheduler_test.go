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


package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"
)

func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestJobRunsOnStartAndEveryInterval(t *testing.T) {
	clk := testclock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s := New(logr.Discard(), WithClock(clk))
	runs := make(chan struct{}, 10)
	s.Schedule("refresh", time.Minute, time.Second, func(context.Context, logr.Logger) {
		runs <- struct{}{}
	})
	startScheduler(t, s)

	receive(t, runs)
	require.Eventually(t, clk.HasWaiters, time.Second, 5*time.Millisecond)
	clk.Step(time.Minute)
	receive(t, runs)
}

func TestJobContextHasTimeout(t *testing.T) {
	s := New(logr.Discard())
	deadlines := make(chan bool, 1)
	s.Schedule("poll", time.Hour, time.Second, func(ctx context.Context, _ logr.Logger) {
		_, ok := ctx.Deadline()
		deadlines <- ok
	})
	startScheduler(t, s)

	select {
	case ok := <-deadlines:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestScheduleKeepsShorterInterval(t *testing.T) {
	s := New(logr.Discard())
	s.Schedule("k", time.Minute, time.Second, func(context.Context, logr.Logger) {})
	s.Schedule("k", time.Hour, time.Second, func(context.Context, logr.Logger) {})
	assert.Equal(t, time.Minute, s.jobs["k"].interval)

	s.Schedule("k", time.Second, time.Second, func(context.Context, logr.Logger) {})
	assert.Equal(t, time.Second, s.jobs["k"].interval)
}

func TestCancelStopsJob(t *testing.T) {
	clk := testclock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	s := New(logr.Discard(), WithClock(clk))
	var runs atomic.Int32
	first := make(chan struct{}, 1)
	s.Schedule("k", time.Minute, time.Second, func(context.Context, logr.Logger) {
		runs.Add(1)
		first <- struct{}{}
	})
	startScheduler(t, s)
	receive(t, first)
	require.Eventually(t, clk.HasWaiters, time.Second, 5*time.Millisecond)

	s.Cancel("k")
	clk.Step(time.Minute)
	assert.Never(t, func() bool { return runs.Load() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Empty(t, s.jobs)
}

func TestLeaderOnly(t *testing.T) {
	assert.False(t, New(logr.Discard()).NeedLeaderElection())
	assert.True(t, New(logr.Discard(), LeaderOnly()).NeedLeaderElection())
}

func receive(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}
