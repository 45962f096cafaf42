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
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dlog "github.com/dmuso/direclaw/internal/log"
	"github.com/dmuso/direclaw/internal/queue"
	"github.com/dmuso/direclaw/internal/state"
)

// TriggerEnvelope is the synthetic incoming message payload a dispatched
// job carries (spec.md §6 "Scheduled trigger envelope").
type TriggerEnvelope struct {
	JobID          string `json:"jobId"`
	ExecutionID    string `json:"executionId"`
	TriggeredAt    int64  `json:"triggeredAt"`
	OrchestratorID string `json:"orchestratorId"`
	TargetAction   string `json:"targetAction"`
	TargetRef      string `json:"targetRef,omitempty"`
}

// Scheduler runs the tick algorithm against a Store and enqueues
// synthetic incoming messages for due jobs.
type Scheduler struct {
	store       *Store
	queuePaths  queue.Paths
	logger      *slog.Logger
}

// New builds a Scheduler. logger should write to logs/runtime.log.
func New(paths *state.StatePaths, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:      NewStore(paths),
		queuePaths: queue.PathsFromStateRoot(paths.Root),
		logger:     logger,
	}
}

// Tick runs one pass of the scheduler tick algorithm (spec.md §4.7) at
// instant now over every enabled job.
func (s *Scheduler) Tick(now time.Time) error {
	st, err := s.store.LoadSchedulerState()
	if err != nil {
		return err
	}

	jobs, err := s.store.ListJobs("")
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if job.State != JobEnabled {
			continue
		}
		if job.NextRunAt.IsZero() || job.NextRunAt.After(now) {
			continue
		}
		s.tickJob(job, st, now)
	}

	st.LastTick = now
	return s.store.SaveSchedulerState(st)
}

func (s *Scheduler) tickJob(job *Job, st *SchedulerState, now time.Time) {
	if job.NextRunAt.Before(now) && job.MisfirePolicy == MisfireSkipMissed {
		next, ok := job.ComputeNextRunAt(now)
		if ok {
			job.NextRunAt = next
		} else {
			job.State = JobDisabled
		}
		_ = s.store.SaveJob(job)
		s.logger.Info("scheduler.misfire.skip_missed",
			dlog.String(dlog.JobIDKey, job.JobID),
			dlog.String(dlog.EventKey, "scheduler.misfire.skip_missed"))
		return
	}

	if !job.AllowOverlap && st.activeCountFor(job.JobID) > 0 {
		return
	}

	executionID := job.ExecutionID(job.NextRunAt)
	if st.hasExecution(executionID) || s.store.HasRunRecord(job.JobID, executionID) {
		s.logger.Info("scheduler dedup: skipped duplicate execution",
			dlog.String(dlog.JobIDKey, job.JobID),
			dlog.String(dlog.EventKey, "scheduler.trigger.skipped_duplicate"))
		s.advanceAndPersist(job, now)
		return
	}

	triggeredAt := job.NextRunAt
	env := TriggerEnvelope{
		JobID:          job.JobID,
		ExecutionID:    executionID,
		TriggeredAt:    triggeredAt.Unix(),
		OrchestratorID: job.OrchestratorID,
		TargetAction:   string(job.Target.Kind),
	}
	if job.Target.Kind == TargetWorkflowStart {
		env.TargetRef = job.Target.WorkflowID
	} else {
		env.TargetRef = job.Target.FunctionID
	}
	body, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("failed to marshal trigger envelope", dlog.Error(err))
		return
	}

	msg := queue.IncomingMessage{
		Channel:   "scheduler",
		Sender:    "scheduler",
		SenderID:  job.JobID,
		Message:   string(body),
		Timestamp: now.Unix(),
		MessageID: executionID,
	}
	if _, err := queue.EnqueueIncoming(s.queuePaths, msg); err != nil {
		s.logger.Error("failed to enqueue scheduled trigger",
			dlog.String(dlog.JobIDKey, job.JobID), dlog.Error(err))
		return
	}

	st.addActive(executionID)
	s.logger.Info("scheduler.trigger.dispatched",
		dlog.String(dlog.JobIDKey, job.JobID),
		dlog.String(dlog.EventKey, "scheduler.trigger.dispatched"))

	job.LastRunAt = now
	s.advanceAndPersist(job, now)
}

// advanceAndPersist advances job.NextRunAt past now and persists it. A
// `once` schedule that has no further occurrence moves to Disabled
// (spec.md §4.7: "For once schedules, exhaustion moves job state to
// disabled").
func (s *Scheduler) advanceAndPersist(job *Job, now time.Time) {
	next, ok := job.ComputeNextRunAt(now)
	if ok {
		job.NextRunAt = next
	} else if job.Schedule.Kind == ScheduleOnce {
		job.State = JobDisabled
	}
	_ = s.store.SaveJob(job)
}

// CompleteExecution records a dispatched execution's terminal result,
// moving it out of the active set and into history (spec.md §4.7 and
// §7's ScheduledExecutionCompletion: "Logged; does not affect other
// jobs").
func (s *Scheduler) CompleteExecution(jobID, executionID string, triggeredAt time.Time, result string) error {
	st, err := s.store.LoadSchedulerState()
	if err != nil {
		return err
	}
	st.completeActive(executionID)
	if err := s.store.SaveSchedulerState(st); err != nil {
		return err
	}
	s.logger.Info("scheduler.trigger.completed",
		dlog.String(dlog.JobIDKey, jobID),
		dlog.String(dlog.EventKey, "scheduler.trigger.completed"))
	return s.store.SaveRunRecord(RunRecord{
		JobID:       jobID,
		ExecutionID: executionID,
		TriggeredAt: triggeredAt,
		Result:      result,
	})
}

// Store exposes the underlying Store for job lifecycle commands
// (pause/resume/run-now/delete/list, SPEC_FULL.md §C.3).
func (s *Scheduler) Store() *Store { return s.store }

// newJobID generates a fresh random job id, used by the `schedule add`
// CLI command when the caller does not supply one explicitly.
func newJobID() string {
	return "job-" + uuid.New().String()
}
