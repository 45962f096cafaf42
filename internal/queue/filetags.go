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
	"os"
	"path/filepath"
	"strings"
)

const (
	inboundFileTagPrefix  = "[file:"
	outboundSendTagPrefix = "[send_file:"
)

// extractAbsoluteTags scans message for occurrences of "<prefix>...]" and
// returns the trimmed, absolute-path candidates found inside.
func extractAbsoluteTags(message, prefix string) []string {
	var tags []string
	rest := message
	for {
		idx := strings.Index(rest, prefix)
		if idx < 0 {
			break
		}
		afterPrefix := rest[idx+len(prefix):]
		closeIdx := strings.Index(afterPrefix, "]")
		if closeIdx < 0 {
			break
		}
		candidate := strings.TrimSpace(afterPrefix[:closeIdx])
		if isAbsolutePath(candidate) {
			tags = append(tags, candidate)
		}
		rest = afterPrefix[closeIdx+1:]
	}
	return tags
}

// ExtractInboundFileTags returns the absolute paths named by "[file: ...]"
// tags in message, in order of appearance.
func ExtractInboundFileTags(message string) []string {
	return extractAbsoluteTags(message, inboundFileTagPrefix)
}

// AppendInboundFileTags appends a "[file: ...]" tag for every absolute path
// in tags, one per line; it does not check which paths message already
// tags. NormalizeInboundPayload passes only the paths the message text
// doesn't already tag.
func AppendInboundFileTags(message string, tags []string) string {
	var missing []string
	for _, t := range tags {
		if isAbsolutePath(t) {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return message
	}

	lines := make([]string, len(missing))
	for i, t := range missing {
		lines[i] = "[file: " + t + "]"
	}
	appended := strings.Join(lines, "\n")

	if strings.TrimSpace(message) == "" {
		return appended
	}
	return message + "\n" + appended
}

// NormalizeInboundPayload merges payload.Files (filtered to absolute paths)
// with the file tags already present in payload.Message, re-appending to
// the message only the file paths that are missing as tags.
func NormalizeInboundPayload(payload IncomingMessage) IncomingMessage {
	existingTags := make(map[string]struct{})
	for _, t := range ExtractInboundFileTags(payload.Message) {
		existingTags[t] = struct{}{}
	}

	merged := make([]string, 0, len(payload.Files))
	seen := make(map[string]struct{})
	for _, f := range payload.Files {
		if !isAbsolutePath(f) {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		merged = append(merged, f)
	}

	var missing []string
	for _, f := range merged {
		if _, ok := existingTags[f]; !ok {
			missing = append(missing, f)
		}
	}

	out := payload
	out.Message = AppendInboundFileTags(payload.Message, missing)
	out.Files = merged
	return out
}

// stripSendFileTags scans message for "[send_file: ...]" tags, classifying
// each candidate path into files (absolute + readable) or omittedFiles
// (everything else), and returns the message text with the tags removed.
func stripSendFileTags(message string) (cleaned string, files, omittedFiles []string) {
	var b strings.Builder
	rest := message
	for {
		idx := strings.Index(rest, outboundSendTagPrefix)
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx])
		afterPrefix := rest[idx+len(outboundSendTagPrefix):]
		closeIdx := strings.Index(afterPrefix, "]")
		if closeIdx < 0 {
			// Unterminated tag: keep the remainder as-is.
			b.WriteString(rest[idx:])
			break
		}
		candidate := strings.TrimSpace(afterPrefix[:closeIdx])
		if isAbsoluteReadableFile(candidate) {
			files = append(files, candidate)
		} else {
			omittedFiles = append(omittedFiles, candidate)
		}
		rest = afterPrefix[closeIdx+1:]
	}
	return b.String(), files, omittedFiles
}

// truncateOutboundText truncates message to OutboundTruncateKeepChars
// characters (counted by rune, not byte) and appends
// OutboundTruncationSuffix when message exceeds OutboundMaxChars.
func truncateOutboundText(message string) string {
	runes := []rune(message)
	if len(runes) <= OutboundMaxChars {
		return message
	}
	return string(runes[:OutboundTruncateKeepChars]) + OutboundTruncationSuffix
}

// PrepareOutboundContent strips "[send_file: ...]" tags from message and
// truncates the remaining text, in that order.
func PrepareOutboundContent(message string) OutboundContent {
	cleaned, files, omitted := stripSendFileTags(message)
	return OutboundContent{
		Message:      truncateOutboundText(cleaned),
		Files:        files,
		OmittedFiles: omitted,
	}
}

// NormalizeOutgoingMessage merges outgoing.Files (filtered to absolute,
// readable files) with the files discovered by stripping "[send_file: ...]"
// tags out of the message text, deduplicating, and returns the normalized
// message plus the full list of paths omitted for being non-absolute or
// unreadable.
func NormalizeOutgoingMessage(outgoing OutgoingMessage) (OutgoingMessage, []string) {
	prepared := PrepareOutboundContent(outgoing.Message)

	seen := make(map[string]struct{})
	var merged []string
	var omitted []string

	for _, f := range outgoing.Files {
		if isAbsoluteReadableFile(f) {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				merged = append(merged, f)
			}
		} else {
			omitted = append(omitted, f)
		}
	}
	for _, f := range prepared.Files {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			merged = append(merged, f)
		}
	}
	omitted = append(omitted, prepared.OmittedFiles...)

	out := outgoing
	out.Message = prepared.Message
	out.Files = merged
	return out, omitted
}

func isAbsolutePath(path string) bool {
	return filepath.IsAbs(path)
}

func isAbsoluteReadableFile(path string) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
