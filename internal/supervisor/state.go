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

// Package supervisor owns the PID lock, worker lifecycle, stop
// signalling, crash recovery, and heartbeat reporting described in
// spec.md §4.8. It is the sole writer of the state root tree for the
// duration of its locked lifetime (spec.md §3 "Ownership").
package supervisor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmuso/direclaw/pkg/direrr"
)

// WorkerStatus is one worker's last-reported state.
type WorkerStatus struct {
	State         string    `json:"state"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	LastError     string    `json:"lastError,omitempty"`
}

// State is the supervisor's persisted status (spec.md §3 "Supervisor
// state"), written on every meaningful change.
type State struct {
	Running   bool                    `json:"running"`
	PID       int                     `json:"pid"`
	StartedAt time.Time               `json:"startedAt"`
	StoppedAt time.Time               `json:"stoppedAt,omitempty"`
	LastError string                  `json:"lastError,omitempty"`
	Workers   map[string]WorkerStatus `json:"workers"`

	mu   sync.Mutex `json:"-"`
	path string
}

// NewState builds a State persisted at path.
func NewState(path string) *State {
	return &State{Workers: map[string]WorkerStatus{}, path: path}
}

// LoadState reads a persisted State, returning a fresh zero State if
// none exists yet.
func LoadState(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(path), nil
		}
		return nil, &direrr.IOError{Path: path, Op: "read", Err: err}
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &direrr.ParseError{Path: path, Err: err}
	}
	s.path = path
	if s.Workers == nil {
		s.Workers = map[string]WorkerStatus{}
	}
	return &s, nil
}

// Save persists the state via temp-file-then-rename.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *State) saveLocked() error {
	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return &direrr.ParseError{Path: s.path, Err: err}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &direrr.IOError{Path: dir, Op: "mkdir", Err: err}
	}
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
	return os.Rename(tmpPath, s.path)
}

// MarkStarted records supervisor startup and persists.
func (s *State) MarkStarted(pid int, startedAt time.Time) error {
	s.mu.Lock()
	s.Running = true
	s.PID = pid
	s.StartedAt = startedAt
	s.LastError = ""
	s.mu.Unlock()
	return s.Save()
}

// MarkStopped records supervisor shutdown and persists.
func (s *State) MarkStopped(stoppedAt time.Time, lastErr string) error {
	s.mu.Lock()
	s.Running = false
	s.StoppedAt = stoppedAt
	s.LastError = lastErr
	s.mu.Unlock()
	return s.Save()
}

// ReportHeartbeat records a worker's heartbeat and persists.
func (s *State) ReportHeartbeat(workerID, state string) error {
	s.mu.Lock()
	s.Workers[workerID] = WorkerStatus{State: state, LastHeartbeat: time.Now().UTC()}
	s.mu.Unlock()
	return s.Save()
}

// ReportError records a worker's error without changing its lifecycle
// state, and persists.
func (s *State) ReportError(workerID string, err error) error {
	s.mu.Lock()
	ws := s.Workers[workerID]
	ws.LastError = err.Error()
	s.Workers[workerID] = ws
	s.mu.Unlock()
	return s.Save()
}
