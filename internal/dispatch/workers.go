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

package dispatch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmuso/direclaw/internal/scheduler"
)

// Default tick intervals for the two queue-facing workers, matching
// spec.md §4.8's named examples ("250 ms for queue processor, 1 s for
// dispatcher"). The cron tick shares the dispatcher's cadence; spec.md
// leaves its interval unspecified.
const (
	DefaultQueueProcessorInterval = 250 * time.Millisecond
	DefaultDispatcherInterval     = 1 * time.Second
	DefaultSchedulerTickInterval  = 1 * time.Second
	defaultClaimBatch             = 32
	defaultDispatchBatch          = 32
)

// QueueProcessorWorker claims incoming messages into the per-key
// scheduler. It satisfies internal/supervisor's Worker interface.
type QueueProcessorWorker struct {
	rt       *Runtime
	interval time.Duration
	batch    int
	watcher  *fsnotify.Watcher
}

// NewQueueProcessorWorker builds the queue-processor worker for rt,
// using DefaultQueueProcessorInterval and a fixed per-tick claim batch.
// It also starts an fsnotify watch on the incoming directory so claims
// happen as soon as a channel adapter writes a message rather than
// waiting out the poll interval; the ticker-driven Tick remains the
// backstop when the watch can't be established (directory not yet
// bootstrapped, inotify instance limits, and so on).
func NewQueueProcessorWorker(rt *Runtime) *QueueProcessorWorker {
	w := &QueueProcessorWorker{rt: rt, interval: DefaultQueueProcessorInterval, batch: defaultClaimBatch}
	w.watcher = watchIncoming(rt)
	return w
}

// watchIncoming starts a best-effort fsnotify watch on rt's incoming
// directory, claiming a batch as soon as a write/create/rename event
// fires there. A failed watch (missing directory, exhausted inotify
// instances) degrades silently to pure polling - spec.md §4.8's worker
// loop still claims on every Interval() tick regardless.
func watchIncoming(rt *Runtime) *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil
	}
	if err := watcher.Add(rt.queuePaths.Incoming); err != nil {
		watcher.Close()
		return nil
	}
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					rt.ClaimBatch(defaultClaimBatch)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return watcher
}

func (w *QueueProcessorWorker) ID() string             { return "queue_processor" }
func (w *QueueProcessorWorker) Interval() time.Duration { return w.interval }
func (w *QueueProcessorWorker) Tick(ctx context.Context) error {
	_, err := w.rt.ClaimBatch(w.batch)
	return err
}

// DispatcherWorker dequeues runnable claimed messages from the per-key
// scheduler and drives them through selection/resume and workflow
// execution. It satisfies internal/supervisor's Worker interface.
type DispatcherWorker struct {
	rt       *Runtime
	interval time.Duration
	batch    int
}

// NewDispatcherWorker builds the orchestrator-dispatcher worker for rt,
// using DefaultDispatcherInterval and a fixed per-tick dispatch batch.
func NewDispatcherWorker(rt *Runtime) *DispatcherWorker {
	return &DispatcherWorker{rt: rt, interval: DefaultDispatcherInterval, batch: defaultDispatchBatch}
}

func (w *DispatcherWorker) ID() string             { return "orchestrator_dispatcher" }
func (w *DispatcherWorker) Interval() time.Duration { return w.interval }

// Tick dispatches up to one batch of runnable messages. The runtime
// returns per-message processing errors without logging them; Tick only
// surfaces the first one so the supervisor's heartbeat records that a
// tick produced errors, without treating any single message failure as
// fatal to the worker loop.
func (w *DispatcherWorker) Tick(ctx context.Context) error {
	errs := w.rt.DispatchRunnable(ctx, w.batch)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// SchedulerWorker ticks the cron/interval scheduler, enqueueing
// synthetic incoming messages for due jobs. It satisfies
// internal/supervisor's Worker interface.
type SchedulerWorker struct {
	sched    *scheduler.Scheduler
	interval time.Duration
}

// NewSchedulerWorker builds the cron-scheduler tick worker, using
// DefaultSchedulerTickInterval.
func NewSchedulerWorker(sched *scheduler.Scheduler) *SchedulerWorker {
	return &SchedulerWorker{sched: sched, interval: DefaultSchedulerTickInterval}
}

func (w *SchedulerWorker) ID() string             { return "cron_scheduler" }
func (w *SchedulerWorker) Interval() time.Duration { return w.interval }
func (w *SchedulerWorker) Tick(ctx context.Context) error {
	return w.sched.Tick(time.Now().UTC())
}
