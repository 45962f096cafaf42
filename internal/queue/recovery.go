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

package queue

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type messageKey struct {
	channel   string
	messageID string
}

// ProcessingRecoveryReport is the outcome of a crash-recovery pass over the
// processing directory.
type ProcessingRecoveryReport struct {
	Recovered         []string
	DroppedDuplicates []string
}

// RecoverProcessingQueueEntries walks stateRoot's queue/processing
// directory and moves every entry back into incoming, deduplicating
// against both outgoing (already delivered) and earlier entries in this
// same pass (the same message claimed twice before a crash).
func RecoverProcessingQueueEntries(stateRoot string) ([]string, error) {
	paths := PathsFromStateRoot(stateRoot)
	report, err := RecoverQueueProcessingPaths(paths)
	if err != nil {
		return nil, err
	}
	return report.Recovered, nil
}

// RecoverQueueProcessingPaths performs the recovery pass described by
// RecoverProcessingQueueEntries, additionally reporting entries dropped
// as duplicates.
func RecoverQueueProcessingPaths(paths Paths) (ProcessingRecoveryReport, error) {
	var report ProcessingRecoveryReport

	outgoingKeys, err := collectOutgoingMessageKeys(paths)
	if err != nil {
		return report, err
	}

	entries, err := os.ReadDir(paths.Processing)
	if err != nil {
		return report, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(paths.Processing, entry.Name()))
	}
	sort.Strings(files)

	seen := make(map[messageKey]struct{})

	for index, processingPath := range files {
		key, ok, err := processingMessageKey(processingPath)
		if err != nil {
			return report, err
		}
		if ok {
			_, alreadyOutgoing := outgoingKeys[key]
			_, alreadySeen := seen[key]
			if alreadyOutgoing || alreadySeen {
				if err := os.Remove(processingPath); err != nil {
					return report, fmt.Errorf("failed to drop duplicate processing file %s: %w", processingPath, err)
				}
				report.DroppedDuplicates = append(report.DroppedDuplicates, processingPath)
				continue
			}
			seen[key] = struct{}{}
		}

		name := filepath.Base(processingPath)
		if strings.TrimSpace(name) == "" {
			name = "message.json"
		}
		target := filepath.Join(paths.Incoming, recoveredProcessingFilename(index, name))
		if err := os.Rename(processingPath, target); err != nil {
			return report, fmt.Errorf("failed to recover processing file %s: %w", processingPath, err)
		}
		report.Recovered = append(report.Recovered, target)
	}

	return report, nil
}

// recoveredProcessingFilename builds a stable, collision-resistant name
// for a recovered processing file: the pass index plus an 8-byte sha256
// prefix of the original filename.
func recoveredProcessingFilename(index int, name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		ext = "json"
	}
	digest := sha256.Sum256([]byte(name))
	hash := fmt.Sprintf("%x", digest[:8])
	return fmt.Sprintf("recovered_%d_%s.%s", index, hash, ext)
}

func processingMessageKey(processingPath string) (messageKey, bool, error) {
	raw, err := os.ReadFile(processingPath)
	if err != nil {
		return messageKey{}, false, fmt.Errorf("failed to read processing file %s: %w", processingPath, err)
	}
	var incoming IncomingMessage
	if err := json.Unmarshal(raw, &incoming); err != nil {
		return messageKey{}, false, nil
	}
	return messageKey{channel: incoming.Channel, messageID: incoming.MessageID}, true, nil
}

func collectOutgoingMessageKeys(paths Paths) (map[messageKey]struct{}, error) {
	keys := make(map[messageKey]struct{})

	entries, err := os.ReadDir(paths.Outgoing)
	if err != nil {
		if os.IsNotExist(err) {
			return keys, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(paths.Outgoing, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read outgoing file %s: %w", path, err)
		}
		var outgoing OutgoingMessage
		if err := json.Unmarshal(raw, &outgoing); err != nil {
			continue
		}
		keys[messageKey{channel: outgoing.Channel, messageID: outgoing.MessageID}] = struct{}{}
	}

	return keys, nil
}
