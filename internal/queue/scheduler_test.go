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

package queue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmuso/direclaw/internal/queue"
)

func TestSchedulerAllowsIndependentKeysWithoutReorderingSameKey(t *testing.T) {
	keyA := queue.OrderingKey{Kind: queue.OrderingKeyWorkflowRun, WorkflowRunID: "run-a"}
	keyB := queue.OrderingKey{Kind: queue.OrderingKeyWorkflowRun, WorkflowRunID: "run-b"}

	scheduler := queue.NewPerKeyScheduler[string]()
	scheduler.Enqueue(keyA, "a1")
	scheduler.Enqueue(keyA, "a2")
	scheduler.Enqueue(keyB, "b1")

	batch := scheduler.DequeueRunnable(2)
	require.Len(t, batch, 2)
	require.Equal(t, "a1", batch[0].Value)
	require.Equal(t, "b1", batch[1].Value)

	scheduler.Complete(keyB)
	blocked := scheduler.DequeueRunnable(2)
	require.Empty(t, blocked)

	scheduler.Complete(keyA)
	next := scheduler.DequeueRunnable(1)
	require.Len(t, next, 1)
	require.Equal(t, "a2", next[0].Value)
}

func TestScheduler_PendingAndActiveLen(t *testing.T) {
	key := queue.OrderingKey{Kind: queue.OrderingKeyMessage, MessageID: "m1"}
	scheduler := queue.NewPerKeyScheduler[int]()
	scheduler.Enqueue(key, 1)
	require.Equal(t, 1, scheduler.PendingLen())

	batch := scheduler.DequeueRunnable(1)
	require.Len(t, batch, 1)
	require.Equal(t, 0, scheduler.PendingLen())
	require.Equal(t, 1, scheduler.ActiveLen())

	scheduler.Complete(key)
	require.Equal(t, 0, scheduler.ActiveLen())
}

func TestScheduler_DrainPending(t *testing.T) {
	key := queue.OrderingKey{Kind: queue.OrderingKeyMessage, MessageID: "m1"}
	scheduler := queue.NewPerKeyScheduler[int]()
	scheduler.Enqueue(key, 1)
	scheduler.Enqueue(key, 2)

	drained := scheduler.DrainPending()
	require.Len(t, drained, 2)
	require.Equal(t, 0, scheduler.PendingLen())
}
