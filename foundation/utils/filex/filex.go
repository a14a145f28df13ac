// File: filex.go
// Title: Line Oriented File Utilities
// Description: Implements existence checks, directory creation, appending
//              and offset based reading of line-delimited files.
// Author: msto63
// Version: v0.2.0
// Created: 2025-01-25
// Modified: 2026-10-14
//
// Change History:
// - 2025-01-25 v0.1.0: Initial implementation with comprehensive file utilities
// - 2026-10-14 v0.2.0: Reduced to line oriented helpers, added ReadLinesFrom

package filex

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// readBufferSize is the buffer size for ReadLinesFrom (64KB)
const readBufferSize = 64 * 1024

// ===============================
// File Existence
// ===============================

// Exists checks if a file or directory exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsFile checks if the path exists and is a regular file
func IsFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// EnsureDir creates the parent directory of path if it does not exist
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// ===============================
// Reading
// ===============================

// ReadLinesFrom reads the complete lines of a file starting at byte offset
// and returns them with the offset just after the last complete line.
// Empty lines are skipped. A missing file yields no lines and the same offset.
func ReadLinesFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.Size() < offset {
		// truncated or replaced, start over
		offset = 0
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("failed to seek in %s: %w", path, err)
	}

	reader := bufio.NewReaderSize(file, readBufferSize)
	var lines []string
	next := offset

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// partial line stays for the next read
				break
			}
			return nil, offset, fmt.Errorf("error reading lines from %s: %w", path, err)
		}
		next += int64(len(line))

		line = bytes.TrimRight(line, "\r\n")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, string(line))
	}

	return lines, next, nil
}

// ReadLines reads the whole file and returns its non-empty lines
func ReadLines(path string) ([]string, error) {
	lines, _, err := ReadLinesFrom(path, 0)
	return lines, err
}

// ===============================
// Writing
// ===============================

// AppendFile appends data to a file, creating it if necessary
func AppendFile(path string, data []byte, perm os.FileMode) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perm)
	if err != nil {
		return fmt.Errorf("failed to open file for append %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to append to file %s: %w", path, err)
	}

	return nil
}

// AppendLine appends a line to a file (adds newline automatically)
func AppendLine(path, line string, perm os.FileMode) error {
	return AppendFile(path, []byte(line+"\n"), perm)
}
