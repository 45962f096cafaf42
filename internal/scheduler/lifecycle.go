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
	"fmt"
	"time"
)

// CreateJob validates and persists a new job, computing its first
// NextRunAt from the given schedule (SPEC_FULL.md §C.3, grounded on the
// original `orchestration/scheduler.rs` job lifecycle commands).
func (s *Scheduler) CreateJob(job *Job, now time.Time) error {
	if job.JobID == "" {
		job.JobID = newJobID()
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if job.State == "" {
		job.State = JobEnabled
	}
	if job.MisfirePolicy == "" {
		job.MisfirePolicy = MisfireFireOnceOnRecovery
	}
	job.CreatedAt = now
	if job.Schedule.Kind == ScheduleOnce {
		job.NextRunAt = job.Schedule.RunAt
	} else if next, ok := job.ComputeNextRunAt(now); ok {
		job.NextRunAt = next
	} else {
		return fmt.Errorf("schedule for job %s has no future occurrence", job.JobID)
	}
	return s.store.SaveJob(job)
}

// PauseJob moves an enabled job to Paused; a paused job is skipped by
// Tick but retains its NextRunAt.
func (s *Scheduler) PauseJob(jobID string) error {
	job, err := s.store.LoadJob(jobID)
	if err != nil {
		return err
	}
	if job.State == JobDeleted {
		return fmt.Errorf("job %s is deleted", jobID)
	}
	job.State = JobPaused
	return s.store.SaveJob(job)
}

// ResumeJob moves a paused job back to Enabled, recomputing NextRunAt if
// it has fallen into the past.
func (s *Scheduler) ResumeJob(jobID string, now time.Time) error {
	job, err := s.store.LoadJob(jobID)
	if err != nil {
		return err
	}
	if job.State == JobDeleted {
		return fmt.Errorf("job %s is deleted", jobID)
	}
	job.State = JobEnabled
	if job.NextRunAt.Before(now) {
		if next, ok := job.ComputeNextRunAt(now); ok {
			job.NextRunAt = next
		}
	}
	return s.store.SaveJob(job)
}

// RunNow dispatches jobID immediately regardless of NextRunAt: it sets
// NextRunAt to now and runs the normal tick path, so the overlap and
// dedup checks still apply and can skip the dispatch.
func (s *Scheduler) RunNow(jobID string, now time.Time) error {
	job, err := s.store.LoadJob(jobID)
	if err != nil {
		return err
	}
	if job.State == JobDeleted {
		return fmt.Errorf("job %s is deleted", jobID)
	}
	job.NextRunAt = now
	st, err := s.store.LoadSchedulerState()
	if err != nil {
		return err
	}
	s.tickJob(job, st, now)
	return s.store.SaveSchedulerState(st)
}

// DeleteJob moves jobID to the terminal Deleted state.
func (s *Scheduler) DeleteJob(jobID string) error {
	return s.store.DeleteJob(jobID)
}

// ListJobsForOrchestrator returns every non-deleted job owned by
// orchestratorID.
func (s *Scheduler) ListJobsForOrchestrator(orchestratorID string) ([]*Job, error) {
	jobs, err := s.store.ListJobs(orchestratorID)
	if err != nil {
		return nil, err
	}
	var out []*Job
	for _, j := range jobs {
		if j.State != JobDeleted {
			out = append(out, j)
		}
	}
	return out, nil
}
