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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/dmuso/direclaw/pkg/direrr"
)

var requeueCounter uint64

// unique_requeue_name equivalent: builds a collision-free filename for a
// message moved back from processing to incoming.
func uniqueRequeueName(originalName string) string {
	ext := filepath.Ext(originalName)
	stem := strings.TrimSuffix(originalName, ext)
	if strings.TrimSpace(stem) == "" {
		stem = "message"
	}
	if ext == "" {
		ext = ".json"
	}
	counter := atomic.AddUint64(&requeueCounter, 1) - 1
	return fmt.Sprintf("%s_requeue_%d%s", stem, counter, ext)
}

// OutgoingFilename builds the filename an outgoing payload is written
// under. Heartbeats collapse to `<message_id>.json` so repeated heartbeats
// overwrite each other instead of accumulating; every other channel gets a
// channel/message/timestamp composite name.
func OutgoingFilename(channel, messageID string, timestamp int64) string {
	if channel == "heartbeat" {
		return sanitizeFilenameComponent(messageID) + ".json"
	}
	return fmt.Sprintf("%s_%s_%d.json",
		sanitizeFilenameComponent(channel),
		sanitizeFilenameComponent(messageID),
		timestamp,
	)
}

// IsValidQueueJSONFilename reports whether filename is a non-empty-stem
// ".json" file, the shape every queue entry must have.
func IsValidQueueJSONFilename(filename string) bool {
	if filepath.Ext(filename) != ".json" {
		return false
	}
	stem := strings.TrimSuffix(filepath.Base(filename), ".json")
	return strings.TrimSpace(stem) != ""
}

func sanitizeFilenameComponent(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

type incomingEntry struct {
	modTime int64
	path    string
	name    string
}

// sortedIncomingPaths lists the valid queue JSON files under incomingDir,
// oldest modification time first, ties broken by filename.
func sortedIncomingPaths(incomingDir string) ([]string, error) {
	entries, err := os.ReadDir(incomingDir)
	if err != nil {
		return nil, &direrr.IOError{Path: incomingDir, Op: "readdir", Err: err}
	}

	var found []incomingEntry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !IsValidQueueJSONFilename(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, incomingEntry{
			modTime: info.ModTime().UnixNano(),
			path:    filepath.Join(incomingDir, name),
			name:    name,
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].modTime != found[j].modTime {
			return found[i].modTime < found[j].modTime
		}
		return found[i].name < found[j].name
	})

	paths := make([]string, len(found))
	for i, e := range found {
		paths[i] = e.path
	}
	return paths, nil
}

// requeueProcessingFile moves a processing file back to incoming under a
// fresh collision-free name.
func requeueProcessingFile(paths Paths, processingPath string) (string, error) {
	name := filepath.Base(processingPath)
	incomingPath := filepath.Join(paths.Incoming, uniqueRequeueName(name))
	if err := os.Rename(processingPath, incomingPath); err != nil {
		return "", &direrr.IOError{Path: processingPath, Op: "rename", Err: err}
	}
	return incomingPath, nil
}

// ClaimOldest atomically claims the oldest valid incoming message by
// renaming it into processing, then reads, parses, and normalizes it. A
// file that disappears between listing and rename (raced by another
// worker) is skipped rather than treated as an error. A file that cannot
// be read or parsed after the rename succeeds is requeued under a fresh
// name so it is retried instead of stuck in processing forever.
func ClaimOldest(paths Paths) (*ClaimedMessage, error) {
	incomingPaths, err := sortedIncomingPaths(paths.Incoming)
	if err != nil {
		return nil, err
	}

	for _, incomingPath := range incomingPaths {
		name := filepath.Base(incomingPath)
		processingPath := filepath.Join(paths.Processing, name)

		err := os.Rename(incomingPath, processingPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, &direrr.IOError{Path: incomingPath, Op: "rename", Err: err}
		}

		raw, err := os.ReadFile(processingPath)
		if err != nil {
			if _, rqErr := requeueProcessingFile(paths, processingPath); rqErr != nil {
				return nil, rqErr
			}
			return nil, &direrr.IOError{Path: processingPath, Op: "read", Err: err}
		}

		var payload IncomingMessage
		if err := json.Unmarshal(raw, &payload); err != nil {
			if _, rqErr := requeueProcessingFile(paths, processingPath); rqErr != nil {
				return nil, rqErr
			}
			return nil, &direrr.ParseError{Path: processingPath, Err: err}
		}

		payload = NormalizeInboundPayload(payload)

		return &ClaimedMessage{
			IncomingPath:   incomingPath,
			ProcessingPath: processingPath,
			Payload:        payload,
		}, nil
	}

	return nil, nil
}

// appendQueueLog appends a line to <state_root>/logs/security.log, where
// state_root is derived from paths.Incoming (queue/incoming's
// grandparent). Failures are swallowed: logging is best-effort and must
// never block queue progress.
func appendQueueLog(paths Paths, line string) {
	root := filepath.Dir(filepath.Dir(paths.Incoming))
	if root == "" || root == "." {
		return
	}
	logPath := filepath.Join(root, "logs", "security.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line + "\n")
}

// CompleteSuccess normalizes the outgoing payload, writes it under
// paths.Outgoing, and removes the processing file that produced it. Any
// files omitted during normalization are recorded to security.log rather
// than silently dropped.
func CompleteSuccess(paths Paths, claimed *ClaimedMessage, outgoing OutgoingMessage) (string, error) {
	normalized, omitted := NormalizeOutgoingMessage(outgoing)
	if len(omitted) > 0 {
		appendQueueLog(paths, fmt.Sprintf(
			"outgoing message `%s` omitted invalid/unreadable files: %s",
			outgoing.MessageID, strings.Join(omitted, ", "),
		))
	}

	filename := OutgoingFilename(outgoing.Channel, outgoing.MessageID, outgoing.Timestamp)
	outPath := filepath.Join(paths.Outgoing, filename)

	body, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return "", &direrr.ParseError{Path: outPath, Err: err}
	}
	if err := os.WriteFile(outPath, body, 0o644); err != nil {
		return "", &direrr.IOError{Path: outPath, Op: "write", Err: err}
	}
	if err := os.Remove(claimed.ProcessingPath); err != nil {
		return "", &direrr.IOError{Path: claimed.ProcessingPath, Op: "remove", Err: err}
	}
	return outPath, nil
}

// RequeueFailure moves a claimed message's processing file back to
// incoming under a fresh name so it is retried.
func RequeueFailure(paths Paths, claimed *ClaimedMessage) (string, error) {
	return requeueProcessingFile(paths, claimed.ProcessingPath)
}

// EnqueueIncoming writes msg to the incoming directory under a sanitized
// `<channel>_<message_id>.json` name, via a temp-file-then-rename so a
// concurrently listing claimer never observes a partial write. Used by
// channel adapters and, internally, by the cron/interval scheduler to
// inject synthetic trigger messages (spec.md §4.7).
func EnqueueIncoming(paths Paths, msg IncomingMessage) (string, error) {
	name := fmt.Sprintf("%s_%s.json", sanitizeFilenameComponent(msg.Channel), sanitizeFilenameComponent(msg.MessageID))
	destPath := filepath.Join(paths.Incoming, name)

	body, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return "", &direrr.ParseError{Path: destPath, Err: err}
	}

	tmp, err := os.CreateTemp(paths.Incoming, ".tmp-*")
	if err != nil {
		return "", &direrr.IOError{Path: paths.Incoming, Op: "create_temp", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", &direrr.IOError{Path: tmpPath, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &direrr.IOError{Path: tmpPath, Op: "close", Err: err}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", &direrr.IOError{Path: destPath, Op: "rename", Err: err}
	}
	return destPath, nil
}
