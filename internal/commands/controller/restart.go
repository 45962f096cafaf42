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

package controller

import (
	"github.com/spf13/cobra"
)

// NewRestartCommand builds `direclaw restart`.
func NewRestartCommand() *cobra.Command {
	var timeout = defaultStopTimeout

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the direclaw supervisor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runStop(timeout); err != nil {
				return err
			}
			return runStart(false)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultStopTimeout, "How long to wait for the old supervisor to stop")
	return cmd
}
