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
	"context"
	"time"
)

// Worker is one supervised unit of recurring work: the queue processor,
// the orchestrator dispatcher, the cron scheduler tick, and so on
// (spec.md §4.8 "Workers"). The supervisor calls Tick repeatedly at
// Interval() until stopped, reporting a heartbeat after every call.
type Worker interface {
	// ID names the worker for heartbeat and log correlation.
	ID() string
	// Interval is the delay between successive Tick calls.
	Interval() time.Duration
	// Tick performs one unit of work. A returned error is reported via
	// ReportError; if the error also satisfies the Fatal interface and
	// Fatal() is true, the worker's loop exits instead of continuing.
	Tick(ctx context.Context) error
}

// Fatal is implemented by errors that should stop a worker's loop
// rather than merely being logged and retried on the next tick.
type Fatal interface {
	error
	Fatal() bool
}

// FatalError wraps an error to mark it as fatal to the worker loop.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }
func (f *FatalError) Fatal() bool   { return true }

func isFatal(err error) bool {
	if fe, ok := err.(Fatal); ok {
		return fe.Fatal()
	}
	return false
}
