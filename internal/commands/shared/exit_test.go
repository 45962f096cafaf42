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

package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitErrorMessageWithoutCause(t *testing.T) {
	err := NewExitError(ExitNotFound, "workflow not found", nil)
	require.Equal(t, "workflow not found", err.Error())
	require.Nil(t, err.Unwrap())
}

func TestExitErrorMessageWithCause(t *testing.T) {
	cause := errors.New("file vanished")
	err := NewExitError(ExitFailed, "failed to load run", cause)
	require.Equal(t, "failed to load run: file vanished", err.Error())
	require.Equal(t, cause, err.Unwrap())
}

func TestExitErrorIsUnwrappable(t *testing.T) {
	cause := errors.New("underlying")
	err := NewExitError(ExitInvalidInput, "bad input", cause)
	require.True(t, errors.Is(err, cause))
}

func TestHandleExitErrorNilIsNoop(t *testing.T) {
	// HandleExitError calls os.Exit for a non-nil error, so only the nil
	// path is safe to exercise from within the test process.
	HandleExitError(nil)
}
