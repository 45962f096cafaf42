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
	"errors"
	"fmt"

	"github.com/dmuso/direclaw/internal/lifecycle"
)

// ErrAlreadyRunning is returned by AcquireLock when a live supervisor
// already holds the lock (spec.md §4.8 "fail AlreadyRunning").
var ErrAlreadyRunning = errors.New("supervisor already running")

// OwnershipState is the externally observable ownership of the
// supervisor lock (spec.md §4.8 "Ownership states").
type OwnershipState string

const (
	OwnershipNotRunning OwnershipState = "not_running"
	OwnershipRunning    OwnershipState = "running"
	OwnershipStale      OwnershipState = "stale"
)

// Status reports the observed ownership of the PID lock at lockPath,
// independent of any persisted SupervisorState.
func Status(lockPath string) (OwnershipState, int, error) {
	mgr := lifecycle.NewPIDFileManager(lockPath)
	if !mgr.Exists() {
		return OwnershipNotRunning, 0, nil
	}
	pid, err := mgr.Read()
	if err != nil {
		return OwnershipNotRunning, 0, err
	}
	if lifecycle.IsProcessRunning(pid) {
		return OwnershipRunning, pid, nil
	}
	return OwnershipStale, pid, nil
}

// AcquireLock implements spec.md §4.8 start step (a): write the current
// pid to the lock file; if the file exists, probe the recorded pid —
// live means ErrAlreadyRunning, stale means clean it up and retry once.
func AcquireLock(lockPath string, pid int) (*lifecycle.PIDFileManager, error) {
	mgr := lifecycle.NewPIDFileManager(lockPath)
	err := mgr.Create(pid)
	if err == nil {
		return mgr, nil
	}
	if !errors.Is(err, lifecycle.ErrPIDFileExists) {
		return nil, fmt.Errorf("failed to acquire supervisor lock: %w", err)
	}

	state, existingPID, statusErr := Status(lockPath)
	if statusErr != nil {
		return nil, fmt.Errorf("failed to inspect existing supervisor lock: %w", statusErr)
	}
	if state == OwnershipRunning {
		return nil, fmt.Errorf("%w: pid %d", ErrAlreadyRunning, existingPID)
	}

	// Stale: remove and retry once.
	stale := lifecycle.NewPIDFileManager(lockPath)
	if err := stale.Remove(); err != nil {
		return nil, fmt.Errorf("failed to remove stale supervisor lock: %w", err)
	}
	mgr = lifecycle.NewPIDFileManager(lockPath)
	if err := mgr.Create(pid); err != nil {
		return nil, fmt.Errorf("failed to acquire supervisor lock after removing stale entry: %w", err)
	}
	return mgr, nil
}
