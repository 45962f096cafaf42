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

package scheduler

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmuso/direclaw/internal/state"
)

func newTestScheduler(t *testing.T) (*Scheduler, *state.StatePaths) {
	t.Helper()
	paths := state.New(t.TempDir())
	require.NoError(t, paths.Bootstrap())
	return New(paths, nil), paths
}

func TestTickDispatchesDueIntervalJob(t *testing.T) {
	sched, paths := newTestScheduler(t)
	now := mustTime(t, "2026-07-31T10:00:00Z")

	job := &Job{
		JobID:          "heartbeat-job",
		OrchestratorID: "eng",
		Schedule:       Schedule{Kind: ScheduleInterval, EverySeconds: 60},
		Target:         Target{Kind: TargetWorkflowStart, WorkflowID: "heartbeat"},
	}
	require.NoError(t, sched.CreateJob(job, now.Add(-2*time.Minute)))

	require.NoError(t, sched.Tick(now))

	entries, err := os.ReadDir(paths.QueueIncoming)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	reloaded, err := sched.Store().LoadJob("heartbeat-job")
	require.NoError(t, err)
	require.True(t, reloaded.NextRunAt.After(now))
}

func TestTickSkipsOverlapWhenDisallowed(t *testing.T) {
	sched, _ := newTestScheduler(t)
	now := mustTime(t, "2026-07-31T10:00:00Z")

	job := &Job{
		JobID:          "no-overlap-job",
		OrchestratorID: "eng",
		Schedule:       Schedule{Kind: ScheduleInterval, EverySeconds: 60},
		Target:         Target{Kind: TargetWorkflowStart, WorkflowID: "heartbeat"},
		AllowOverlap:   false,
	}
	require.NoError(t, sched.CreateJob(job, now.Add(-2*time.Minute)))

	st, err := sched.store.LoadSchedulerState()
	require.NoError(t, err)
	st.addActive(job.ExecutionID(job.NextRunAt))
	require.NoError(t, sched.store.SaveSchedulerState(st))

	require.NoError(t, sched.Tick(now))

	reloaded, err := sched.Store().LoadJob("no-overlap-job")
	require.NoError(t, err)
	require.Equal(t, job.NextRunAt, reloaded.NextRunAt)
}

func TestTickSkipMissedAdvancesWithoutDispatch(t *testing.T) {
	sched, paths := newTestScheduler(t)
	now := mustTime(t, "2026-07-31T10:00:00Z")

	job := &Job{
		JobID:          "skip-missed-job",
		OrchestratorID: "eng",
		Schedule:       Schedule{Kind: ScheduleInterval, EverySeconds: 60},
		Target:         Target{Kind: TargetWorkflowStart, WorkflowID: "heartbeat"},
		MisfirePolicy:  MisfireSkipMissed,
	}
	require.NoError(t, sched.CreateJob(job, now.Add(-1*time.Hour)))

	require.NoError(t, sched.Tick(now))

	entries, err := os.ReadDir(paths.QueueIncoming)
	require.NoError(t, err)
	require.Len(t, entries, 0)

	reloaded, err := sched.Store().LoadJob("skip-missed-job")
	require.NoError(t, err)
	require.True(t, reloaded.NextRunAt.After(now))
}

func TestPauseResumeRunNowDeleteLifecycle(t *testing.T) {
	sched, _ := newTestScheduler(t)
	now := mustTime(t, "2026-07-31T10:00:00Z")

	job := &Job{
		JobID:          "lifecycle-job",
		OrchestratorID: "eng",
		Schedule:       Schedule{Kind: ScheduleInterval, EverySeconds: 60},
		Target:         Target{Kind: TargetWorkflowStart, WorkflowID: "heartbeat"},
	}
	require.NoError(t, sched.CreateJob(job, now))

	require.NoError(t, sched.PauseJob(job.JobID))
	paused, err := sched.Store().LoadJob(job.JobID)
	require.NoError(t, err)
	require.Equal(t, JobPaused, paused.State)

	require.NoError(t, sched.ResumeJob(job.JobID, now))
	resumed, err := sched.Store().LoadJob(job.JobID)
	require.NoError(t, err)
	require.Equal(t, JobEnabled, resumed.State)

	require.NoError(t, sched.RunNow(job.JobID, now))

	jobs, err := sched.ListJobsForOrchestrator("eng")
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, sched.DeleteJob(job.JobID))
	jobs, err = sched.ListJobsForOrchestrator("eng")
	require.NoError(t, err)
	require.Len(t, jobs, 0)
}
