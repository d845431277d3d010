package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fskit/internal/errors"
	"fskit/internal/search"
)

// Parameter extraction helpers. JSON numbers arrive as float64.

func stringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", errors.NewInvalidParameterError(name, "")
	}
	return v, nil
}

func optionalStringParam(params map[string]interface{}, name string) string {
	v, _ := params[name].(string)
	return v
}

func intParam(params map[string]interface{}, name string) int {
	if v, ok := params[name].(float64); ok {
		return int(v)
	}
	return 0
}

func boolParam(params map[string]interface{}, name string) bool {
	v, _ := params[name].(bool)
	return v
}

func stringSliceParam(params map[string]interface{}, name string) []string {
	raw, ok := params[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func outputFormat(params map[string]interface{}) string {
	if optionalStringParam(params, "output_format") == "json" {
		return "json"
	}
	return "text"
}

// textResult wraps plain text as an MCP tool result
func textResult(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	}
}

// jsonResult marshals v and wraps it as an MCP tool result
func jsonResult(v interface{}) (map[string]interface{}, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.NewOperationError("marshal response", err)
	}
	return textResult(string(data)), nil
}

// logCall logs a tool invocation under a fresh correlation id
func (s *Server) logCall(tool string, params map[string]interface{}) string {
	requestID := uuid.NewString()
	s.logger.Info("calling tool", map[string]interface{}{
		"tool":      tool,
		"params":    params,
		"requestId": requestID,
	})
	return requestID
}

func (s *Server) handleSearchFiles(params map[string]interface{}) (interface{}, error) {
	s.logCall("search_files", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	pat, err := stringParam(params, "pattern")
	if err != nil {
		return nil, err
	}

	paths, err := s.search.FindFiles(context.Background(), search.FindFilesQuery{
		Path:           path,
		Pattern:        pat,
		FileExtensions: stringSliceParam(params, "file_extensions"),
		Excludes:       stringSliceParam(params, "exclude_patterns"),
		MinBytes:       int64(intParam(params, "min_bytes")),
		MaxBytes:       int64(intParam(params, "max_bytes")),
		MaxDepth:       intParam(params, "max_depth"),
	})
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return textResult("No matches found"), nil
	}
	return textResult(strings.Join(paths, "\n")), nil
}

func (s *Server) handleSearchFilesContent(params map[string]interface{}) (interface{}, error) {
	s.logCall("search_files_content", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	pat, err := stringParam(params, "pattern")
	if err != nil {
		return nil, err
	}
	query, err := stringParam(params, "query")
	if err != nil {
		return nil, err
	}

	result, err := s.search.ContentSearch(context.Background(), search.ContentQuery{
		Path:     path,
		Text:     query,
		IsRegex:  boolParam(params, "is_regex"),
		Pattern:  pat,
		Excludes: stringSliceParam(params, "exclude_patterns"),
		MinBytes: int64(intParam(params, "min_bytes")),
		MaxBytes: int64(intParam(params, "max_bytes")),
	})
	if err != nil {
		return nil, err
	}

	if outputFormat(params) == "json" {
		return jsonResult(result)
	}
	return textResult(formatContentResult(result)), nil
}

// formatContentResult renders matches grouped by file with
// "  line:col: snippet" rows
func formatContentResult(result *search.ContentResult) string {
	if len(result.Matches) == 0 && len(result.Skipped) == 0 {
		return "No matches found"
	}

	var b strings.Builder
	lastPath := ""
	for _, m := range result.Matches {
		if m.Path != lastPath {
			if lastPath != "" {
				b.WriteString("\n")
			}
			b.WriteString(m.Path + "\n")
			lastPath = m.Path
		}
		fmt.Fprintf(&b, "  %d:%d: %s\n", m.Line, m.Column, m.Preview)
	}
	if len(result.Matches) == 0 {
		b.WriteString("No matches found\n")
	}
	if len(result.Skipped) > 0 {
		b.WriteString("\nSkipped:\n")
		for _, sk := range result.Skipped {
			fmt.Fprintf(&b, "  %s (%s)\n", sk.Path, sk.Reason)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Server) handleSearchCodeAST(params map[string]interface{}) (interface{}, error) {
	s.logCall("search_code_ast", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	pat, err := stringParam(params, "pattern")
	if err != nil {
		return nil, err
	}
	language, err := stringParam(params, "language")
	if err != nil {
		return nil, err
	}

	result, err := s.search.ASTSearch(context.Background(), search.ASTQuery{
		Path:           path,
		Pattern:        pat,
		Language:       language,
		FileExtensions: stringSliceParam(params, "file_extensions"),
		Excludes:       stringSliceParam(params, "exclude_patterns"),
		MaxLines:       intParam(params, "max_lines"),
	})
	if err != nil {
		return nil, err
	}

	if outputFormat(params) == "json" {
		return jsonResult(result)
	}
	return textResult(formatASTResult(result)), nil
}

func formatASTResult(result *search.ASTResult) string {
	if len(result.Files) == 0 {
		return "No matches found"
	}

	var b strings.Builder
	for i, file := range result.Files {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(file.Path + "\n")
		for _, m := range file.Matches {
			fmt.Fprintf(&b, "  %d:%d:\n", m.StartLine, m.StartCol)
			for _, line := range strings.Split(m.Text, "\n") {
				b.WriteString("    " + line + "\n")
			}
		}
	}
	if result.Truncated {
		b.WriteString("\n[result truncated: line budget reached]\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Server) handleFindDuplicateFiles(params map[string]interface{}) (interface{}, error) {
	s.logCall("find_duplicate_files", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	groups, err := s.search.FindDuplicates(context.Background(), search.DuplicatesQuery{
		Path:     path,
		Pattern:  optionalStringParam(params, "pattern"),
		Excludes: stringSliceParam(params, "exclude_patterns"),
		MinBytes: int64(intParam(params, "min_bytes")),
		MaxBytes: int64(intParam(params, "max_bytes")),
	})
	if err != nil {
		return nil, err
	}

	if outputFormat(params) == "json" {
		return jsonResult(groups)
	}

	if len(groups) == 0 {
		return textResult("No duplicate files found"), nil
	}
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Group %d (%d bytes, %d files):\n", i+1, g.Size, len(g.Paths))
		for _, p := range g.Paths {
			b.WriteString("  " + p + "\n")
		}
	}
	return textResult(strings.TrimRight(b.String(), "\n")), nil
}

func (s *Server) handleFindEmptyDirectories(params map[string]interface{}) (interface{}, error) {
	s.logCall("find_empty_directories", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	dirs, err := s.search.FindEmptyDirs(context.Background(), search.EmptyDirsQuery{
		Path:     path,
		Excludes: stringSliceParam(params, "exclude_patterns"),
	})
	if err != nil {
		return nil, err
	}

	if outputFormat(params) == "json" {
		return jsonResult(map[string]interface{}{"emptyDirectories": dirs})
	}
	if len(dirs) == 0 {
		return textResult("No empty directories found"), nil
	}
	return textResult(strings.Join(dirs, "\n")), nil
}

func (s *Server) handleDirectoryTree(params map[string]interface{}) (interface{}, error) {
	s.logCall("directory_tree", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	result, err := s.search.Tree(context.Background(), search.TreeQuery{
		Path:     path,
		MaxDepth: intParam(params, "max_depth"),
		Excludes: stringSliceParam(params, "exclude_patterns"),
	})
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(result.Nodes, "", "  ")
	if err != nil {
		return nil, errors.NewOperationError("marshal tree", err)
	}

	text := string(data)
	if result.Truncated {
		text += "\n[tree truncated at depth limit; raise max_depth to see more]"
	}
	return textResult(text), nil
}

func (s *Server) handleReadFileLines(params map[string]interface{}) (interface{}, error) {
	s.logCall("read_file_lines", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	result, err := s.fsops.ReadFileLines(path, intParam(params, "offset"), intParam(params, "limit"))
	if err != nil {
		return nil, err
	}
	return textResult(result.Content), nil
}

func (s *Server) handleGetFileInfo(params map[string]interface{}) (interface{}, error) {
	s.logCall("get_file_info", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	info, err := s.fsops.GetFileInfo(path)
	if err != nil {
		return nil, err
	}

	kind := "file"
	switch {
	case info.IsSymlink:
		kind = "symlink"
	case info.IsDir:
		kind = "directory"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "path: %s\n", info.Path)
	fmt.Fprintf(&b, "type: %s\n", kind)
	fmt.Fprintf(&b, "size: %d\n", info.Size)
	fmt.Fprintf(&b, "modified: %s\n", info.Modified.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "permissions: %s", info.Permissions)
	return textResult(b.String()), nil
}

func (s *Server) handleListDirectory(params map[string]interface{}) (interface{}, error) {
	s.logCall("list_directory", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	entries, err := s.fsops.ListDirectory(path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return textResult("(empty)"), nil
	}
	return textResult(strings.Join(entries, "\n")), nil
}

func (s *Server) handleCalculateDirectorySize(params map[string]interface{}) (interface{}, error) {
	s.logCall("calculate_directory_size", params)

	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	result, err := s.fsops.DirSize(context.Background(), path)
	if err != nil {
		return nil, err
	}

	if outputFormat(params) == "json" {
		return jsonResult(result)
	}
	text := fmt.Sprintf("%s: %s (%d bytes, %d files, %d directories)",
		result.Path, result.Human, result.TotalBytes, result.FileCount, result.DirCount)
	return textResult(text), nil
}

func (s *Server) handleListAllowedDirectories(params map[string]interface{}) (interface{}, error) {
	s.logCall("list_allowed_directories", params)
	return textResult(strings.Join(s.guard.List(), "\n")), nil
}
