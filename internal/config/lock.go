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

package config

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"
)

const lockTimeout = 5 * time.Second

// FileLock is an exclusive flock held on the config file for the
// duration of a load-modify-save cycle.
type FileLock struct {
	file *os.File
}

// AcquireLock opens path (creating it if necessary) and blocks up to
// lockTimeout for an exclusive lock, so CLI commands that mutate config
// never race against each other or a running supervisor's own writers.
func AcquireLock(ctx context.Context, path string) (*FileLock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- syscall.Flock(int(file.Fd()), syscall.LOCK_EX)
	}()

	select {
	case err := <-done:
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to acquire config lock: %w", err)
		}
		return &FileLock{file: file}, nil
	case <-lockCtx.Done():
		file.Close()
		return nil, fmt.Errorf("config file locked by another process (timeout after %v)", lockTimeout)
	}
}

// Release releases the lock and closes the underlying file.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to release config lock: %w", err)
	}
	return l.file.Close()
}

// Mutate loads the config at path under an exclusive lock, passes it to
// fn, and writes the result back atomically before releasing the lock.
// fn's return error aborts the write.
func Mutate(ctx context.Context, path string, fn func(*Config) error) error {
	lock, err := AcquireLock(ctx, path)
	if err != nil {
		return err
	}
	defer lock.Release()

	cfg, err := Load(path)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return AtomicWrite(path, cfg)
}
