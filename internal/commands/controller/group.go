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

// Package controller implements the direclaw supervisor lifecycle
// commands: start, stop, restart, status, logs, doctor.
package controller

import "github.com/spf13/cobra"

// NewStartCommand, NewStopCommand, NewRestartCommand, NewStatusCommand,
// NewLogsCommand, and NewDoctorCommand are each defined in their own
// file. AddTo registers all six directly on the root command, matching
// spec.md §6's flat `direclaw start|stop|restart|status|logs|doctor`
// surface (no "controller" group prefix).
func AddTo(root *cobra.Command) {
	root.AddCommand(NewStartCommand())
	root.AddCommand(NewStopCommand())
	root.AddCommand(NewRestartCommand())
	root.AddCommand(NewStatusCommand())
	root.AddCommand(NewLogsCommand())
	root.AddCommand(NewDoctorCommand())
}
