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

// Command direclawd is the supervised background process started by
// `direclaw start`: it bootstraps the state tree, loads configuration,
// and runs the queue processor, orchestrator dispatcher, and cron
// scheduler workers until asked to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmuso/direclaw/internal/config"
	"github.com/dmuso/direclaw/internal/dispatch"
	dlog "github.com/dmuso/direclaw/internal/log"
	"github.com/dmuso/direclaw/internal/scheduler"
	"github.com/dmuso/direclaw/internal/secrets"
	"github.com/dmuso/direclaw/internal/state"
	"github.com/dmuso/direclaw/internal/supervisor"
)

const keychainService = "direclaw"

func main() {
	var (
		stateRoot    string
		configPath   string
		workflowsDir string
	)
	flag.StringVar(&stateRoot, "state-root", "", "Path to the state root")
	flag.StringVar(&configPath, "config", "", "Path to the config file")
	flag.StringVar(&workflowsDir, "workflows-dir", "", "Path to the workflow definitions directory")
	flag.Parse()

	if stateRoot == "" || configPath == "" {
		fmt.Fprintln(os.Stderr, "direclawd: --state-root and --config are required")
		os.Exit(1)
	}

	logger := dlog.New(dlog.FromEnv())

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", dlog.Error(err))
		os.Exit(1)
	}

	paths := state.New(stateRoot)
	if err := paths.Bootstrap(); err != nil {
		logger.Error("failed to bootstrap state tree", dlog.Error(err))
		os.Exit(1)
	}

	src := config.DispatchSource{Config: cfg}
	rt := dispatch.NewRuntime(paths, src, workflowsDir, logger)
	sched := scheduler.New(paths, logger)

	workers := []supervisor.Worker{
		dispatch.NewQueueProcessorWorker(rt),
		dispatch.NewDispatcherWorker(rt),
		dispatch.NewSchedulerWorker(sched),
	}

	authSync := func(ctx context.Context) error {
		if len(cfg.Secrets) == 0 {
			return nil
		}
		provider := secrets.NewKeychainProvider(keychainService)
		return secrets.Sync(ctx, provider, paths.SecretsDir, cfg.Secrets)
	}

	sup := supervisor.New(paths, workers, supervisor.Options{AuthSync: authSync})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sup.Start(ctx); err != nil {
		logger.Error("supervisor exited with error", dlog.Error(err))
		os.Exit(1)
	}
}
