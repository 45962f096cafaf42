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
	"regexp"
	"time"
)

// ScheduleKind names a job's schedule shape.
type ScheduleKind string

const (
	ScheduleOnce     ScheduleKind = "once"
	ScheduleInterval ScheduleKind = "interval"
	ScheduleCron     ScheduleKind = "cron"
)

// Schedule is a job's trigger definition (spec.md §3 "Scheduled job").
type Schedule struct {
	Kind ScheduleKind `json:"kind"`

	RunAt time.Time `json:"runAt,omitempty"`

	EverySeconds int64      `json:"everySeconds,omitempty"`
	AnchorAt     *time.Time `json:"anchorAt,omitempty"`

	CronExpression string `json:"cronExpression,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
}

// minIntervalSeconds and maxIntervalSeconds bound interval schedules
// (spec.md §8 boundary behaviors: 1 second .. 1 year validate).
const (
	minIntervalSeconds = 1
	maxIntervalSeconds = 31_536_000
)

// Validate checks a Schedule's invariants at job-create/update time
// (spec.md §4.7 "Validation").
func (s Schedule) Validate() error {
	switch s.Kind {
	case ScheduleOnce:
		if s.RunAt.IsZero() {
			return fmt.Errorf("once schedule requires run_at")
		}
	case ScheduleInterval:
		if s.EverySeconds < minIntervalSeconds || s.EverySeconds > maxIntervalSeconds {
			return fmt.Errorf("interval every_seconds must be between %d and %d, got %d", minIntervalSeconds, maxIntervalSeconds, s.EverySeconds)
		}
	case ScheduleCron:
		if _, err := ParseCron(s.CronExpression, s.Timezone); err != nil {
			return fmt.Errorf("invalid cron schedule: %w", err)
		}
	default:
		return fmt.Errorf("unknown schedule kind %q", s.Kind)
	}
	return nil
}

// TargetKind names a job's dispatch action.
type TargetKind string

const (
	TargetWorkflowStart TargetKind = "workflow_start"
	TargetCommandInvoke TargetKind = "command_invoke"
)

// Target is what a job dispatches when it fires (spec.md §3).
type Target struct {
	Kind       TargetKind     `json:"kind"`
	WorkflowID string         `json:"workflowId,omitempty"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	FunctionID string         `json:"functionId,omitempty"`
	Args       []string       `json:"args,omitempty"`
}

// Validate checks a Target's invariants (spec.md §4.7: "Target
// workflow_id / function_id must be non-empty").
func (t Target) Validate() error {
	switch t.Kind {
	case TargetWorkflowStart:
		if t.WorkflowID == "" {
			return fmt.Errorf("workflow_start target requires a non-empty workflow_id")
		}
	case TargetCommandInvoke:
		if t.FunctionID == "" {
			return fmt.Errorf("command_invoke target requires a non-empty function_id")
		}
	default:
		return fmt.Errorf("unknown target kind %q", t.Kind)
	}
	return nil
}

// JobState names a scheduled job's lifecycle state (spec.md §3: "a DAG
// rooted at enabled; deleted is terminal").
type JobState string

const (
	JobEnabled  JobState = "enabled"
	JobPaused   JobState = "paused"
	JobDisabled JobState = "disabled"
	JobDeleted  JobState = "deleted"
)

// MisfirePolicy names how a job handles a dispatch time that has
// already passed by the time the scheduler next ticks.
type MisfirePolicy string

const (
	MisfireFireOnceOnRecovery MisfirePolicy = "fire_once_on_recovery"
	MisfireSkipMissed         MisfirePolicy = "skip_missed"
)

// Job is a durable scheduled job (spec.md §3, persisted at
// automation/jobs/<job_id>.json).
type Job struct {
	JobID          string        `json:"jobId"`
	OrchestratorID string        `json:"orchestratorId"`
	Schedule       Schedule      `json:"schedule"`
	Target         Target        `json:"target"`
	State          JobState      `json:"state"`
	MisfirePolicy  MisfirePolicy `json:"misfirePolicy"`
	NextRunAt      time.Time     `json:"nextRunAt"`
	LastRunAt      time.Time     `json:"lastRunAt,omitempty"`
	LastResult     string        `json:"lastResult,omitempty"`
	AllowOverlap   bool          `json:"allowOverlap"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

var jobIDSanitizer = regexp.MustCompile(`[^A-Za-z0-9_\-]`)

// SanitizedID returns j.JobID with every character outside
// [A-Za-z0-9_-] replaced by "_", for use in execution ids and
// filenames.
func (j *Job) SanitizedID() string {
	return jobIDSanitizer.ReplaceAllString(j.JobID, "_")
}

// ExecutionID derives the dedup key for a dispatch at nextRunAt (spec.md
// §4.7: "execution_id = exec-<sanitized_job_id>-<next_run_at>").
func (j *Job) ExecutionID(nextRunAt time.Time) string {
	return fmt.Sprintf("exec-%s-%d", j.SanitizedID(), nextRunAt.Unix())
}

// Validate checks every invariant a job must satisfy before it is
// created or updated.
func (j *Job) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("job_id must be non-empty")
	}
	if err := j.Schedule.Validate(); err != nil {
		return err
	}
	if err := j.Target.Validate(); err != nil {
		return err
	}
	return nil
}

// ComputeNextRunAt advances the job's schedule strictly past after,
// matching the kind-specific advance rule.
func (j *Job) ComputeNextRunAt(after time.Time) (time.Time, bool) {
	switch j.Schedule.Kind {
	case ScheduleOnce:
		if j.Schedule.RunAt.After(after) {
			return j.Schedule.RunAt, true
		}
		return time.Time{}, false
	case ScheduleInterval:
		anchor := after
		if j.Schedule.AnchorAt != nil {
			anchor = *j.Schedule.AnchorAt
		}
		every := time.Duration(j.Schedule.EverySeconds) * time.Second
		if every <= 0 {
			return time.Time{}, false
		}
		next := anchor
		for !next.After(after) {
			next = next.Add(every)
		}
		return next, true
	case ScheduleCron:
		cron, err := ParseCron(j.Schedule.CronExpression, j.Schedule.Timezone)
		if err != nil {
			return time.Time{}, false
		}
		return cron.ComputeNextRunAt(after)
	default:
		return time.Time{}, false
	}
}
