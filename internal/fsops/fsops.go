// Package fsops implements the simple read-only file tools: windowed
// line reads, file metadata, directory listings and directory sizing.
package fsops

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"fskit/internal/access"
	"fskit/internal/errors"
	"fskit/internal/logging"
)

// MaxReadBytes caps how much file content a single read returns.
const MaxReadBytes = 10 << 20

// Service executes the basic file operations inside the guard's sandbox.
type Service struct {
	guard  *access.Guard
	logger *logging.Logger
}

// NewService creates a file-operations service bound to guard.
func NewService(guard *access.Guard, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{guard: guard, logger: logger}
}

// LinesResult is a window of a text file.
type LinesResult struct {
	// Content holds the requested lines joined with \n.
	Content string `json:"content"`
	// StartLine is the 1-based first line returned.
	StartLine int `json:"startLine"`
	// EndLine is the 1-based last line returned, 0 when empty.
	EndLine int `json:"endLine"`
	// TotalLines is the line count of the whole file.
	TotalLines int `json:"totalLines"`
}

// ReadFileLines returns limit lines starting at the 1-based offset.
// offset 0 means line 1; limit 0 means the rest of the file. Windows
// line endings are normalized.
func (s *Service) ReadFileLines(path string, offset, limit int) (*LinesResult, error) {
	resolved, err := s.guard.Resolve(path, access.Read)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, errors.NewInvalidParameterError("offset", "must not be negative")
	}
	if limit < 0 {
		return nil, errors.NewInvalidParameterError("limit", "must not be negative")
	}

	info, err := os.Stat(resolved.Path)
	if err != nil {
		return nil, errors.NewOperationError("stat", err)
	}
	if info.IsDir() {
		return nil, errors.NewInvalidParameterError("path", "is a directory")
	}
	if info.Size() > MaxReadBytes {
		return nil, errors.New(errors.FileTooLarge,
			fmt.Sprintf("file exceeds %d bytes: %s", int64(MaxReadBytes), path))
	}

	data, err := os.ReadFile(resolved.Path)
	if err != nil {
		return nil, errors.NewPermissionDeniedError(path, err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	var lines []string
	if text != "" || len(data) > 0 {
		lines = strings.Split(text, "\n")
	}

	start := offset
	if start > 0 {
		start--
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := len(lines)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	window := lines[start:end]
	result := &LinesResult{
		Content:    strings.Join(window, "\n"),
		TotalLines: len(lines),
	}
	if len(window) > 0 {
		result.StartLine = start + 1
		result.EndLine = end
	}
	return result, nil
}

// FileInfo is the metadata returned by GetFileInfo.
type FileInfo struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	IsDir       bool      `json:"isDir"`
	IsSymlink   bool      `json:"isSymlink"`
	Modified    time.Time `json:"modified"`
	Permissions string    `json:"permissions"`
}

// GetFileInfo returns metadata for the file or directory at path.
func (s *Service) GetFileInfo(path string) (*FileInfo, error) {
	resolved, err := s.guard.Resolve(path, access.Read)
	if err != nil {
		return nil, err
	}

	info, err := os.Lstat(resolved.Path)
	if err != nil {
		return nil, errors.NewOperationError("stat", err)
	}

	return &FileInfo{
		Path:        resolved.Path,
		Size:        info.Size(),
		IsDir:       info.IsDir(),
		IsSymlink:   info.Mode()&fs.ModeSymlink != 0,
		Modified:    info.ModTime(),
		Permissions: fmt.Sprintf("%04o", info.Mode().Perm()),
	}, nil
}

// ListDirectory returns the immediate children of a directory, each
// prefixed with [DIR] or [FILE], sorted by name.
func (s *Service) ListDirectory(path string) ([]string, error) {
	resolved, err := s.guard.Resolve(path, access.Read)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(resolved.Path)
	if err != nil {
		return nil, errors.NewPermissionDeniedError(path, err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		prefix := "[FILE]"
		if e.IsDir() {
			prefix = "[DIR]"
		}
		out = append(out, prefix+" "+e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// DirSizeResult summarizes a directory subtree.
type DirSizeResult struct {
	Path       string `json:"path"`
	TotalBytes int64  `json:"totalBytes"`
	FileCount  int64  `json:"fileCount"`
	DirCount   int64  `json:"dirCount"`
	// Human is TotalBytes in human-readable form.
	Human string `json:"human"`
}

// DirSize sums the file sizes under path with a parallel walk. Symlinks
// are not followed.
func (s *Service) DirSize(ctx context.Context, path string) (*DirSizeResult, error) {
	resolved, err := s.guard.Resolve(path, access.Read)
	if err != nil {
		return nil, err
	}

	var bytes, files, dirs atomic.Int64
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, resolved.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p != resolved.Path {
				dirs.Add(1)
			}
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().IsRegular() {
			files.Add(1)
			bytes.Add(info.Size())
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewOperationError("directory size calculation", err)
	}

	total := bytes.Load()
	return &DirSizeResult{
		Path:       resolved.Path,
		TotalBytes: total,
		FileCount:  files.Load(),
		DirCount:   dirs.Load(),
		Human:      FormatBytes(total),
	}, nil
}

// FormatBytes renders a byte count with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
