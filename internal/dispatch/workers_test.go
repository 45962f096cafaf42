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
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmuso/direclaw/internal/queue"
	"github.com/dmuso/direclaw/internal/scheduler"
	"github.com/dmuso/direclaw/internal/state"
)

func TestQueueProcessorWorkerIDAndInterval(t *testing.T) {
	rt := NewRuntime(state.New(t.TempDir()), fixtureConfigSource{}, t.TempDir(), nil)
	w := NewQueueProcessorWorker(rt)
	require.Equal(t, "queue_processor", w.ID())
	require.Equal(t, DefaultQueueProcessorInterval, w.Interval())
}

func TestQueueProcessorWorkerTickClaimsIncoming(t *testing.T) {
	root := t.TempDir()
	paths := state.New(root)
	require.NoError(t, paths.Bootstrap())

	rt := NewRuntime(paths, fixtureConfigSource{}, t.TempDir(), nil)
	queuePaths := queue.PathsFromStateRoot(root)

	_, err := queue.EnqueueIncoming(queuePaths, queue.IncomingMessage{
		Channel: "test", Message: "hi", MessageID: "msg-1", Timestamp: 1,
	})
	require.NoError(t, err)

	w := NewQueueProcessorWorker(rt)
	require.NoError(t, w.Tick(context.Background()))

	incoming, err := os.ReadDir(queuePaths.Incoming)
	require.NoError(t, err)
	require.Empty(t, incoming, "the message should have been claimed into processing")

	processing, err := os.ReadDir(queuePaths.Processing)
	require.NoError(t, err)
	require.Len(t, processing, 1)
}

func TestQueueProcessorWorkerWatchesIncomingDirectory(t *testing.T) {
	root := t.TempDir()
	paths := state.New(root)
	require.NoError(t, paths.Bootstrap())

	rt := NewRuntime(paths, fixtureConfigSource{}, t.TempDir(), nil)
	queuePaths := queue.PathsFromStateRoot(root)

	w := NewQueueProcessorWorker(rt)
	require.NotNil(t, w.watcher, "watch on an existing incoming directory should succeed")

	_, err := queue.EnqueueIncoming(queuePaths, queue.IncomingMessage{
		Channel: "test", Message: "hi", MessageID: "msg-watch", Timestamp: 1,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		processing, err := os.ReadDir(queuePaths.Processing)
		return err == nil && len(processing) == 1
	}, time.Second, 10*time.Millisecond, "fsnotify event should trigger a claim before the poll tick fires")
}

func TestQueueProcessorWorkerWatchDegradesWithoutIncomingDirectory(t *testing.T) {
	rt := NewRuntime(state.New(t.TempDir()), fixtureConfigSource{}, t.TempDir(), nil)
	w := NewQueueProcessorWorker(rt)
	require.Nil(t, w.watcher, "a missing incoming directory should degrade to pure polling")
}

func TestDispatcherWorkerIDAndInterval(t *testing.T) {
	rt := NewRuntime(state.New(t.TempDir()), fixtureConfigSource{}, t.TempDir(), nil)
	w := NewDispatcherWorker(rt)
	require.Equal(t, "orchestrator_dispatcher", w.ID())
	require.Equal(t, DefaultDispatcherInterval, w.Interval())
}

func TestDispatcherWorkerTickNoItemsIsNoop(t *testing.T) {
	root := t.TempDir()
	paths := state.New(root)
	require.NoError(t, paths.Bootstrap())

	rt := NewRuntime(paths, fixtureConfigSource{}, t.TempDir(), nil)
	w := NewDispatcherWorker(rt)
	require.NoError(t, w.Tick(context.Background()))
}

func TestSchedulerWorkerIDAndInterval(t *testing.T) {
	sched := scheduler.New(state.New(t.TempDir()), nil)
	w := NewSchedulerWorker(sched)
	require.Equal(t, "cron_scheduler", w.ID())
	require.Equal(t, DefaultSchedulerTickInterval, w.Interval())
}

func TestSchedulerWorkerTickWithNoJobsIsNoop(t *testing.T) {
	paths := state.New(t.TempDir())
	require.NoError(t, paths.Bootstrap())

	sched := scheduler.New(paths, nil)
	w := NewSchedulerWorker(sched)
	require.NoError(t, w.Tick(context.Background()))
}
