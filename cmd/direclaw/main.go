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

// Command direclaw is the operator CLI: it controls the direclawd
// supervisor process and inspects/drives workflow runs, scheduled
// triggers, and configuration directly against the filesystem state
// root (no RPC server is involved).
package main

import (
	"github.com/dmuso/direclaw/internal/cli"
	"github.com/dmuso/direclaw/internal/commands/auth"
	"github.com/dmuso/direclaw/internal/commands/channel"
	"github.com/dmuso/direclaw/internal/commands/controller"
	"github.com/dmuso/direclaw/internal/commands/orchestrator"
	"github.com/dmuso/direclaw/internal/commands/send"
	"github.com/dmuso/direclaw/internal/commands/workflow"
)

// Version information (injected via ldflags at build time).
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	root := cli.NewRootCommand()
	controller.AddTo(root)
	root.AddCommand(send.NewCommand())
	root.AddCommand(workflow.NewGroupCommand())
	root.AddCommand(orchestrator.NewGroupCommand())
	root.AddCommand(orchestrator.NewAgentGroupCommand())
	root.AddCommand(channel.NewProfileGroupCommand())
	root.AddCommand(channel.NewChannelsGroupCommand())
	root.AddCommand(auth.NewGroupCommand())

	cli.HandleExitError(root.Execute())
}
