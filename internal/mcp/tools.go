package mcp

// Tool represents an fskit tool exposed via MCP
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func excludeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Glob patterns for files and directories to skip. Bare names match as substrings.",
	}
}

func minBytesProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Ignore files smaller than this many bytes",
	}
}

func maxBytesProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Ignore files larger than this many bytes",
	}
}

func outputFormatProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"text", "json"},
		"default":     "text",
		"description": "Result format",
	}
}

// GetToolDefinitions returns all tool definitions
func (s *Server) GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "search_files",
			Description: "Find files by name under a directory. Patterns without a slash match file names (case-insensitive, doublestar globs, one level of {a,b} alternates); patterns with a slash match the relative path. Hidden files are skipped and .gitignore is honored.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty("Directory to search under (must be inside an allowed root)"),
					"pattern": pathProperty("Glob or substring pattern, e.g. '*.go' or 'config'"),
					"file_extensions": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "File extensions to include, e.g. [\"ts\", \"tsx\"]",
					},
					"exclude_patterns": excludeProperty(),
					"min_bytes":        minBytesProperty(),
					"max_bytes":        maxBytesProperty(),
					"max_depth": map[string]interface{}{
						"type":        "integer",
						"description": "Traversal depth limit (default 20)",
					},
				},
				"required": []string{"path", "pattern"},
			},
		},
		{
			Name:        "search_files_content",
			Description: "Search file contents for a literal string or regular expression. The 'pattern' glob selects which files are scanned; 'query' is the search term and does not use glob syntax. Always case-insensitive. Returns file, 1-based line and column, and a trimmed preview snippet. Binary files are reported as skipped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty("Directory to search under"),
					"pattern": pathProperty("Glob selecting which files to scan, e.g. '*.go' or '*.{js,ts}'"),
					"query":   pathProperty("Text or regex to find in file contents"),
					"is_regex": map[string]interface{}{
						"type":        "boolean",
						"default":     false,
						"description": "Interpret query as a regular expression",
					},
					"exclude_patterns": excludeProperty(),
					"min_bytes":        minBytesProperty(),
					"max_bytes":        maxBytesProperty(),
					"output_format":    outputFormatProperty(),
				},
				"required": []string{"path", "pattern", "query"},
			},
		},
		{
			Name:        "search_code_ast",
			Description: "Structural code search over syntax trees. The pattern is a source snippet where $NAME matches any single node, $$NAME matches a run of siblings, and a repeated $NAME must bind identical text. Supported languages: go, javascript, typescript, tsx, python, rust, java, c, cpp.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":    pathProperty("Directory to search under"),
					"pattern": pathProperty("Code snippet with $WILDCARD slots, e.g. 'foo($$ARGS)'"),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Language name or alias (go, ts, py, rs, ...)",
					},
					"file_extensions": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "File extensions to scan (default: the language's extensions)",
					},
					"exclude_patterns": excludeProperty(),
					"max_lines": map[string]interface{}{
						"type":        "integer",
						"description": "Cap on total matched source lines in the result (default 200)",
					},
					"output_format": outputFormatProperty(),
				},
				"required": []string{"path", "pattern", "language"},
			},
		},
		{
			Name:        "find_duplicate_files",
			Description: "Find files with byte-identical content. Candidates are narrowed by size, then a hash of the first 4KB, then a full content hash. Groups are reported in traversal order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":             pathProperty("Directory to scan"),
					"pattern":          pathProperty("Optional glob restricting which files are considered, e.g. '*.txt'"),
					"exclude_patterns": excludeProperty(),
					"min_bytes":        minBytesProperty(),
					"max_bytes":        maxBytesProperty(),
					"output_format":    outputFormatProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "find_empty_directories",
			Description: "Find directories containing no files, directly or transitively. OS junk files (.DS_Store, Thumbs.db) do not count as content.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":             pathProperty("Directory to scan"),
					"exclude_patterns": excludeProperty(),
					"output_format":    outputFormatProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "directory_tree",
			Description: "Compact JSON tree of a directory. Directory names end with '/', symlinks with '@'. Hidden entries are skipped and .gitignore is honored. Default depth 2; a warning notes when the depth limit truncated the tree.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Directory to render"),
					"max_depth": map[string]interface{}{
						"type":        "integer",
						"default":     2,
						"description": "Tree depth limit",
					},
					"exclude_patterns": excludeProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "read_file_lines",
			Description: "Read a window of lines from a text file. offset is the 1-based first line (0 means start), limit is the number of lines (0 means the rest).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("File to read"),
					"offset": map[string]interface{}{
						"type":        "integer",
						"description": "1-based first line",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Number of lines to return",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "get_file_info",
			Description: "Get metadata for a file or directory: size, type, modification time, permissions.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("File or directory to inspect"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "list_directory",
			Description: "List the immediate children of a directory with [DIR] and [FILE] prefixes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Directory to list"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "calculate_directory_size",
			Description: "Sum the sizes of all files under a directory with a parallel walk.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":          pathProperty("Directory to measure"),
					"output_format": outputFormatProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "list_allowed_directories",
			Description: "List the directories this server is allowed to access.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// RegisterTools wires every tool name to its handler
func (s *Server) RegisterTools() {
	s.tools["search_files"] = s.handleSearchFiles
	s.tools["search_files_content"] = s.handleSearchFilesContent
	s.tools["search_code_ast"] = s.handleSearchCodeAST
	s.tools["find_duplicate_files"] = s.handleFindDuplicateFiles
	s.tools["find_empty_directories"] = s.handleFindEmptyDirectories
	s.tools["directory_tree"] = s.handleDirectoryTree
	s.tools["read_file_lines"] = s.handleReadFileLines
	s.tools["get_file_info"] = s.handleGetFileInfo
	s.tools["list_directory"] = s.handleListDirectory
	s.tools["calculate_directory_size"] = s.handleCalculateDirectorySize
	s.tools["list_allowed_directories"] = s.handleListAllowedDirectories
}
