// Package filex provides the small set of file helpers used by lendbot's
// file based message source: existence checks, directory creation and
// line oriented reading and appending.
//
// Package: filex
// Title: Line Oriented File Operations
// Description: Helpers for append-only, line-delimited files. ReadLinesFrom
//              supports tailing a file that another process keeps appending
//              to by returning the offset after the last complete line.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-25
// Modified: 2026-10-14
//
// Change History:
// - 2025-01-25 v0.1.0: Initial implementation with comprehensive file utilities
// - 2026-10-14 v0.2.0: Reduced to line oriented helpers, added ReadLinesFrom
//
// Usage:
//
//	lines, next, err := filex.ReadLinesFrom("inbox.jsonl", offset)
//	if err != nil {
//		return err
//	}
//	offset = next
//
//	err = filex.AppendLine("outbox.jsonl", `{"body":"ok"}`, 0644)
//
// A trailing line without a newline is treated as still being written and
// is left for the next call.
package filex
