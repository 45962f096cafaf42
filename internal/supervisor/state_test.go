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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadStateMissingReturnsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supervisor.state")
	st, err := LoadState(path)
	require.NoError(t, err)
	require.False(t, st.Running)
	require.Empty(t, st.Workers)
}

func TestStateMarkStartedAndStoppedRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supervisor.state")
	st := NewState(path)

	require.NoError(t, st.MarkStarted(1234, time.Now().UTC()))

	reloaded, err := LoadState(path)
	require.NoError(t, err)
	require.True(t, reloaded.Running)
	require.Equal(t, 1234, reloaded.PID)

	require.NoError(t, st.MarkStopped(time.Now().UTC(), "boom"))

	reloaded, err = LoadState(path)
	require.NoError(t, err)
	require.False(t, reloaded.Running)
	require.Equal(t, "boom", reloaded.LastError)
}

func TestStateHeartbeatAndErrorReporting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supervisor.state")
	st := NewState(path)

	require.NoError(t, st.ReportHeartbeat("queue", "running"))
	require.NoError(t, st.ReportError("queue", errors.New("disk full")))

	reloaded, err := LoadState(path)
	require.NoError(t, err)
	ws, ok := reloaded.Workers["queue"]
	require.True(t, ok)
	require.Equal(t, "running", ws.State)
	require.Equal(t, "disk full", ws.LastError)
}
