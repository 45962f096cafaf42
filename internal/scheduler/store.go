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

// Package scheduler implements the durable cron/interval job scheduler
// (spec.md §4.7): job persistence, the tick algorithm, misfire policies,
// and deduplication via execution id.
package scheduler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dmuso/direclaw/internal/state"
	"github.com/dmuso/direclaw/pkg/direrr"
)

// maxRecentExecutionIDs caps the scheduler state's recent-execution
// list (spec.md §4.7: "Cap recent-execution-ids list at 2048 entries").
const maxRecentExecutionIDs = 2048

// SchedulerState is the scheduler worker's own persisted bookkeeping,
// at automation/scheduler_state.json.
type SchedulerState struct {
	RecentExecutionIDs []string  `json:"recentExecutionIds"`
	ActiveExecutions   []string  `json:"activeExecutions"`
	LastTick           time.Time `json:"lastTick"`
}

// hasExecution reports whether id is already known, either active or
// recently seen.
func (s *SchedulerState) hasExecution(id string) bool {
	for _, e := range s.ActiveExecutions {
		if e == id {
			return true
		}
	}
	for _, e := range s.RecentExecutionIDs {
		if e == id {
			return true
		}
	}
	return false
}

func (s *SchedulerState) addActive(id string) {
	s.ActiveExecutions = append(s.ActiveExecutions, id)
}

func (s *SchedulerState) completeActive(id string) {
	out := s.ActiveExecutions[:0]
	for _, e := range s.ActiveExecutions {
		if e != id {
			out = append(out, e)
		}
	}
	s.ActiveExecutions = out
	s.RecentExecutionIDs = append(s.RecentExecutionIDs, id)
	if len(s.RecentExecutionIDs) > maxRecentExecutionIDs {
		s.RecentExecutionIDs = s.RecentExecutionIDs[len(s.RecentExecutionIDs)-maxRecentExecutionIDs:]
	}
}

// activeCountFor reports how many active executions belong to jobID.
func (s *SchedulerState) activeCountFor(jobID string) int {
	n := 0
	prefix := "exec-" + jobIDSanitizer.ReplaceAllString(jobID, "_") + "-"
	for _, e := range s.ActiveExecutions {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// Store persists jobs, per-job run history, and scheduler state under
// the state root's automation subtree.
type Store struct {
	paths *state.StatePaths
}

// NewStore builds a Store rooted at paths.
func NewStore(paths *state.StatePaths) *Store {
	return &Store{paths: paths}
}

func (s *Store) runsDir() string {
	return filepath.Join(s.paths.Root, "automation", "runs")
}

func (s *Store) schedulerStatePath() string {
	return filepath.Join(s.paths.Root, "automation", "scheduler_state.json")
}

// SaveJob atomically persists a job, stamping UpdatedAt.
func (s *Store) SaveJob(job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	if err := os.MkdirAll(s.paths.AutomationJobsDir, 0o755); err != nil {
		return &direrr.IOError{Path: s.paths.AutomationJobsDir, Op: "mkdir", Err: err}
	}
	return writeJSONAtomic(s.paths.JobPath(job.JobID), job)
}

// LoadJob reads a single job by id.
func (s *Store) LoadJob(jobID string) (*Job, error) {
	path := s.paths.JobPath(jobID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &direrr.ConfigError{Key: jobID, Reason: "unknown scheduled job"}
		}
		return nil, &direrr.IOError{Path: path, Op: "read", Err: err}
	}
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, &direrr.ParseError{Path: path, Err: err}
	}
	return &job, nil
}

// ListJobs returns every persisted job for orchestratorID (or all jobs
// when orchestratorID is empty), sorted by job id.
func (s *Store) ListJobs(orchestratorID string) ([]*Job, error) {
	entries, err := os.ReadDir(s.paths.AutomationJobsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &direrr.IOError{Path: s.paths.AutomationJobsDir, Op: "readdir", Err: err}
	}
	var jobs []*Job
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		jobID := e.Name()[:len(e.Name())-len(".json")]
		job, err := s.LoadJob(jobID)
		if err != nil {
			continue
		}
		if orchestratorID != "" && job.OrchestratorID != orchestratorID {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].JobID < jobs[j].JobID })
	return jobs, nil
}

// DeleteJob marks a job Deleted rather than removing its file, per
// spec.md §3's "deleted is terminal" invariant.
func (s *Store) DeleteJob(jobID string) error {
	job, err := s.LoadJob(jobID)
	if err != nil {
		return err
	}
	job.State = JobDeleted
	return s.SaveJob(job)
}

// LoadSchedulerState reads the scheduler's own bookkeeping, returning a
// zero-value state if none has been persisted yet.
func (s *Store) LoadSchedulerState() (*SchedulerState, error) {
	raw, err := os.ReadFile(s.schedulerStatePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &SchedulerState{}, nil
		}
		return nil, &direrr.IOError{Path: s.schedulerStatePath(), Op: "read", Err: err}
	}
	var st SchedulerState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, &direrr.ParseError{Path: s.schedulerStatePath(), Err: err}
	}
	return &st, nil
}

// SaveSchedulerState persists the scheduler's bookkeeping.
func (s *Store) SaveSchedulerState(st *SchedulerState) error {
	dir := filepath.Join(s.paths.Root, "automation")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &direrr.IOError{Path: dir, Op: "mkdir", Err: err}
	}
	return writeJSONAtomic(s.schedulerStatePath(), st)
}

// RunRecord is a single dispatched execution's persisted history entry,
// at automation/runs/<job_id>/<triggered_at>-<execution_id>.json.
type RunRecord struct {
	JobID       string    `json:"jobId"`
	ExecutionID string    `json:"executionId"`
	TriggeredAt time.Time `json:"triggeredAt"`
	Result      string    `json:"result"`
}

// SaveRunRecord persists a job's dispatch history entry.
func (s *Store) SaveRunRecord(rec RunRecord) error {
	dir := filepath.Join(s.runsDir(), rec.JobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &direrr.IOError{Path: dir, Op: "mkdir", Err: err}
	}
	name := rec.TriggeredAt.UTC().Format("20060102T150405Z") + "-" + rec.ExecutionID + ".json"
	return writeJSONAtomic(filepath.Join(dir, name), rec)
}

// HasRunRecord reports whether a history entry already exists for
// executionID under jobID, used for dedup beyond the in-memory recent
// list (spec.md §4.7: "appears in recent executions or has a history
// record").
func (s *Store) HasRunRecord(jobID, executionID string) bool {
	dir := filepath.Join(s.runsDir(), jobID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if containsSubstr(e.Name(), executionID) {
			return true
		}
	}
	return false
}

func containsSubstr(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}

// writeJSONAtomic marshals v and writes it via temp-file-then-rename.
func writeJSONAtomic(path string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &direrr.ParseError{Path: path, Err: err}
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &direrr.IOError{Path: dir, Op: "create_temp", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return &direrr.IOError{Path: tmpPath, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &direrr.IOError{Path: tmpPath, Op: "fsync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &direrr.IOError{Path: tmpPath, Op: "close", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &direrr.IOError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
