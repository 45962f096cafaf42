// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package supervisor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	dlog "github.com/dmuso/direclaw/internal/log"
	"github.com/dmuso/direclaw/internal/queue"
	"github.com/dmuso/direclaw/internal/state"
)

// defaultStopPollInterval is how often the supervisor checks for a
// supervisor.request file and for OS signal cancellation.
const defaultStopPollInterval = 500 * time.Millisecond

// Options configures a Supervisor's optional behavior.
type Options struct {
	// StopPollInterval overrides defaultStopPollInterval.
	StopPollInterval time.Duration
	// AuthSync, if set, runs once during Start before workers spawn
	// (spec.md §4.8 "run auth-sync").
	AuthSync func(ctx context.Context) error
}

// Supervisor owns the locked lifetime of a running orchestrator: the
// PID lock, crash recovery, worker goroutines, heartbeats, and the
// stop-request/signal shutdown path (spec.md §4.8).
type Supervisor struct {
	paths   *state.StatePaths
	workers []Worker
	opts    Options

	lock       *PIDLockHandle
	state      *State
	runtimeLog *dlog.NamedLogger

	stop stopFlag
	wg   sync.WaitGroup
}

// New builds a Supervisor for paths, running the given workers once
// started. It does not touch the filesystem until Start is called.
func New(paths *state.StatePaths, workers []Worker, opts Options) *Supervisor {
	if opts.StopPollInterval <= 0 {
		opts.StopPollInterval = defaultStopPollInterval
	}
	return &Supervisor{paths: paths, workers: workers, opts: opts}
}

// PIDLockHandle wraps the acquired lock so Stop can release it.
type PIDLockHandle struct {
	remove func() error
}

// Start acquires the PID lock, recovers any crash-interrupted queue
// entries, runs the auth-sync hook, spawns every worker, and blocks
// until Stop is called, a stop-request file appears, or ctx is
// cancelled. Once acquired, the lock is always released before
// returning. The stopped state is persisted after the workers exit; an
// error returned before the workers start leaves the state file as the
// last successful save wrote it.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.paths.Bootstrap(); err != nil {
		return fmt.Errorf("failed to bootstrap state tree: %w", err)
	}

	mgr, err := AcquireLock(s.paths.SupervisorLock, os.Getpid())
	if err != nil {
		return err
	}
	s.lock = &PIDLockHandle{remove: mgr.Remove}
	defer func() {
		if s.lock != nil {
			s.lock.remove()
		}
	}()

	runtimeLog, err := dlog.OpenNamed(s.paths.LogsDir, "runtime", dlog.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to open runtime log: %w", err)
	}
	s.runtimeLog = runtimeLog
	defer runtimeLog.Close()

	st, err := LoadState(s.paths.SupervisorState)
	if err != nil {
		return fmt.Errorf("failed to load supervisor state: %w", err)
	}
	s.state = st
	startedAt := time.Now().UTC()
	if err := s.state.MarkStarted(os.Getpid(), startedAt); err != nil {
		return fmt.Errorf("failed to persist supervisor state: %w", err)
	}
	s.runtimeLog.Logger.Info("supervisor started",
		dlog.Int("pid", os.Getpid()))

	report, err := queue.RecoverQueueProcessingPaths(queue.PathsFromStateRoot(s.paths.Root))
	if err != nil {
		s.runtimeLog.Logger.Error("queue recovery failed", dlog.Error(err))
	} else if len(report.Recovered) > 0 || len(report.DroppedDuplicates) > 0 {
		s.runtimeLog.Logger.Info("queue recovery completed",
			dlog.Int("recovered", len(report.Recovered)),
			dlog.Int("dropped_duplicates", len(report.DroppedDuplicates)))
	}

	if s.opts.AuthSync != nil {
		if err := s.opts.AuthSync(ctx); err != nil {
			s.runtimeLog.Logger.Error("auth sync failed", dlog.Error(err))
		}
	}

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	done := make(chan struct{})
	defer close(done)
	go pollStopRequest(s.paths.SupervisorRequest, s.opts.StopPollInterval, &s.stop, done)

	for _, w := range s.workers {
		s.wg.Add(1)
		go s.runWorker(workerCtx, w)
	}

	s.waitForStop(ctx)
	cancelWorkers()
	s.wg.Wait()

	lastErr := ""
	if ctxErr := ctx.Err(); ctxErr != nil {
		lastErr = ctxErr.Error()
	}
	if err := s.state.MarkStopped(time.Now().UTC(), lastErr); err != nil {
		s.runtimeLog.Logger.Error("failed to persist stopped state", dlog.Error(err))
	}
	s.runtimeLog.Logger.Info("supervisor stopped")
	return nil
}

// Stop requests a graceful shutdown from within the same process (for
// example a caught SIGTERM). It is equivalent to RequestStop but
// avoids the filesystem round trip.
func (s *Supervisor) Stop() {
	s.stop.set()
}

func (s *Supervisor) waitForStop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.StopPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.stop.stopped() {
				return
			}
		}
	}
}

func (s *Supervisor) runWorker(ctx context.Context, w Worker) {
	defer s.wg.Done()
	id := w.ID()
	if err := s.state.ReportHeartbeat(id, "starting"); err != nil {
		s.runtimeLog.Logger.Error("failed to report heartbeat", dlog.String("worker", id), dlog.Error(err))
	}

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.state.ReportHeartbeat(id, "stopped")
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				s.runtimeLog.Logger.Error("worker tick failed", dlog.String("worker", id), dlog.Error(err))
				s.state.ReportError(id, err)
				if isFatal(err) {
					s.state.ReportHeartbeat(id, "failed")
					return
				}
				continue
			}
			s.state.ReportHeartbeat(id, "running")
		}
	}
}
