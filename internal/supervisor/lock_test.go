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
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusNotRunningWhenAbsent(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "supervisor.lock")
	state, pid, err := Status(lockPath)
	require.NoError(t, err)
	require.Equal(t, OwnershipNotRunning, state)
	require.Zero(t, pid)
}

func TestStatusStaleWhenPIDDead(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "supervisor.lock")
	// A PID astronomically unlikely to be alive in the test sandbox.
	require.NoError(t, os.WriteFile(lockPath, []byte("999999\n"), 0o600))

	state, pid, err := Status(lockPath)
	require.NoError(t, err)
	require.Equal(t, OwnershipStale, state)
	require.Equal(t, 999999, pid)
}

func TestStatusRunningWhenPIDLive(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "supervisor.lock")
	require.NoError(t, os.WriteFile(lockPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o600))

	state, pid, err := Status(lockPath)
	require.NoError(t, err)
	require.Equal(t, OwnershipRunning, state)
	require.Equal(t, os.Getpid(), pid)
}

func TestAcquireLockSucceedsWhenFree(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "supervisor.lock")
	mgr, err := AcquireLock(lockPath, os.Getpid())
	require.NoError(t, err)
	defer mgr.Remove()

	pid, err := mgr.Read()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)
}

func TestAcquireLockFailsWhenAlreadyRunning(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "supervisor.lock")
	mgr, err := AcquireLock(lockPath, os.Getpid())
	require.NoError(t, err)
	defer mgr.Remove()

	_, err = AcquireLock(lockPath, os.Getpid())
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestAcquireLockCleansUpStaleEntry(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "supervisor.lock")
	require.NoError(t, os.WriteFile(lockPath, []byte("999999\n"), 0o600))

	mgr, err := AcquireLock(lockPath, os.Getpid())
	require.NoError(t, err)
	defer mgr.Remove()

	pid, err := mgr.Read()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)
}
