package mcp

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fskit/internal/access"
	"fskit/internal/fsops"
	"fskit/internal/search"
)

func newTestServer(t *testing.T, roots []string, opts Options) *Server {
	t.Helper()
	guardOpts := access.Options{DynamicRoots: opts.EnableRoots}
	guard, err := access.NewGuard(roots, guardOpts)
	require.NoError(t, err)
	searchSvc, err := search.NewService(guard, search.Options{})
	require.NoError(t, err)
	fsopsSvc := fsops.NewService(guard, nil)
	return NewServer(guard, searchSvc, fsopsSvc, opts)
}

func request(id interface{}, method string, params interface{}) *Message {
	return &Message{Jsonrpc: "2.0", Id: id, Method: method, Params: params}
}

// resultText extracts the text payload of a tool result
func resultText(t *testing.T, msg *Message) string {
	t.Helper()
	result, ok := msg.Result.(map[string]interface{})
	require.True(t, ok, "expected map result, got %#v", msg.Result)
	content, ok := result["content"].([]map[string]interface{})
	require.True(t, ok)
	require.NotEmpty(t, content)
	return content[0]["text"].(string)
}

func TestInitialize(t *testing.T) {
	srv := newTestServer(t, []string{t.TempDir()}, Options{Version: "0.4.0"})

	resp := srv.handleMessage(request(1, "initialize", map[string]interface{}{
		"capabilities": map[string]interface{}{
			"roots": map[string]interface{}{"listChanged": true},
		},
	}))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.Equal(t, "2024-11-05", result["protocolVersion"])
	info := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "fskit", info["name"])
	assert.Equal(t, "0.4.0", info["version"])
	assert.True(t, srv.roots.IsClientSupported())
}

func TestPing(t *testing.T) {
	srv := newTestServer(t, []string{t.TempDir()}, Options{})
	resp := srv.handleMessage(request(7, "ping", nil))
	require.NotNil(t, resp)
	assert.Nil(t, resp.Error)
}

func TestUnknownMethod(t *testing.T) {
	srv := newTestServer(t, []string{t.TempDir()}, Options{})
	resp := srv.handleMessage(request(1, "bogus/method", nil))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
}

func TestListTools(t *testing.T) {
	srv := newTestServer(t, []string{t.TempDir()}, Options{})
	resp := srv.handleMessage(request(2, "tools/list", nil))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	tools := result["tools"].([]Tool)
	assert.Len(t, tools, 11)

	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.Name] = true
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema["type"])
	}
	assert.True(t, names["search_files"])
	assert.True(t, names["search_code_ast"])
	assert.True(t, names["list_allowed_directories"])
}

func TestCallSearchFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "a.txt"), []byte("x"), 0644))

	srv := newTestServer(t, []string{root}, Options{})
	resp := srv.handleMessage(request(3, "tools/call", map[string]interface{}{
		"name": "search_files",
		"arguments": map[string]interface{}{
			"path":    root,
			"pattern": "*.txt",
		},
	}))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	text := resultText(t, resp)
	lines := strings.Split(text, "\n")
	assert.Len(t, lines, 2)
}

func TestCallToolOutsideSandbox(t *testing.T) {
	srv := newTestServer(t, []string{t.TempDir()}, Options{})
	resp := srv.handleMessage(request(4, "tools/call", map[string]interface{}{
		"name": "search_files",
		"arguments": map[string]interface{}{
			"path":    t.TempDir(),
			"pattern": "*",
		},
	}))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.Equal(t, true, result["isError"])
	assert.Contains(t, resultText(t, resp), "OUTSIDE_ALLOWED_ROOTS")
}

func TestCallUnknownTool(t *testing.T) {
	srv := newTestServer(t, []string{t.TempDir()}, Options{})
	resp := srv.handleMessage(request(5, "tools/call", map[string]interface{}{
		"name":      "write_file",
		"arguments": map[string]interface{}{},
	}))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
}

func TestCallListAllowedDirectories(t *testing.T) {
	root := t.TempDir()
	srv := newTestServer(t, []string{root}, Options{})

	resp := srv.handleMessage(request(6, "tools/call", map[string]interface{}{
		"name":      "list_allowed_directories",
		"arguments": map[string]interface{}{},
	}))
	require.NotNil(t, resp)

	canonical, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, canonical, resultText(t, resp))
}

func TestCallContentSearchJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("needle here\n"), 0644))

	srv := newTestServer(t, []string{root}, Options{})
	resp := srv.handleMessage(request(8, "tools/call", map[string]interface{}{
		"name": "search_files_content",
		"arguments": map[string]interface{}{
			"path":          root,
			"pattern":       "*.txt",
			"query":         "NEEDLE",
			"output_format": "json",
		},
	}))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var parsed search.ContentResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, resp)), &parsed))
	require.Len(t, parsed.Matches, 1)
	assert.Equal(t, 1, parsed.Matches[0].Line)
	assert.Equal(t, "needle here", parsed.Matches[0].Preview)
}

func TestContentSearchRequiresPattern(t *testing.T) {
	root := t.TempDir()
	srv := newTestServer(t, []string{root}, Options{})

	resp := srv.handleMessage(request(9, "tools/call", map[string]interface{}{
		"name": "search_files_content",
		"arguments": map[string]interface{}{
			"path":  root,
			"query": "needle",
		},
	}))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.Equal(t, true, result["isError"])
	assert.Contains(t, resultText(t, resp), "INVALID_PARAMETER")
}

func TestContentSearchMaxBytesExcludesFile(t *testing.T) {
	root := t.TempDir()
	big := strings.Repeat("padding line\n", 50) + "needle here\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte(big), 0644))

	srv := newTestServer(t, []string{root}, Options{})
	resp := srv.handleMessage(request(10, "tools/call", map[string]interface{}{
		"name": "search_files_content",
		"arguments": map[string]interface{}{
			"path":      root,
			"pattern":   "*.txt",
			"query":     "needle",
			"max_bytes": float64(5),
		},
	}))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	assert.Equal(t, "No matches found", resultText(t, resp))
}

func TestDuplicatesPatternFiltersGroups(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("same bytes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("same bytes"), 0644))

	srv := newTestServer(t, []string{root}, Options{})

	resp := srv.handleMessage(request(11, "tools/call", map[string]interface{}{
		"name": "find_duplicate_files",
		"arguments": map[string]interface{}{
			"path":    root,
			"pattern": "*.md",
		},
	}))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	assert.Equal(t, "No duplicate files found", resultText(t, resp))

	resp = srv.handleMessage(request(12, "tools/call", map[string]interface{}{
		"name": "find_duplicate_files",
		"arguments": map[string]interface{}{
			"path":    root,
			"pattern": "*.txt",
		},
	}))
	require.NotNil(t, resp)
	text := resultText(t, resp)
	assert.Contains(t, text, "a.txt")
	assert.Contains(t, text, "b.txt")
}

func TestNotificationsProduceNoResponse(t *testing.T) {
	srv := newTestServer(t, []string{t.TempDir()}, Options{})
	assert.Nil(t, srv.handleMessage(&Message{Jsonrpc: "2.0", Method: "notifications/initialized"}))
	assert.Nil(t, srv.handleMessage(&Message{Jsonrpc: "2.0", Method: "notifications/cancelled"}))
}

func TestRootsUpdateFlow(t *testing.T) {
	initial := t.TempDir()
	replacement := t.TempDir()

	srv := newTestServer(t, []string{initial}, Options{EnableRoots: true})
	var out bytes.Buffer
	srv.SetStdout(&out)

	// Client advertises roots support during initialize.
	srv.handleMessage(request(1, "initialize", map[string]interface{}{
		"capabilities": map[string]interface{}{
			"roots": map[string]interface{}{"listChanged": true},
		},
	}))

	// After initialized the server asks for roots/list.
	srv.handleMessage(&Message{Jsonrpc: "2.0", Method: "notifications/initialized"})

	var sent Message
	require.NoError(t, json.Unmarshal(out.Bytes(), &sent))
	assert.Equal(t, "roots/list", sent.Method)
	require.NotNil(t, sent.Id)

	// Deliver the client's answer; the guard swaps its sandbox roots.
	srv.handleMessage(&Message{
		Jsonrpc: "2.0",
		Id:      sent.Id,
		Result: map[string]interface{}{
			"roots": []interface{}{
				map[string]interface{}{"uri": "file://" + replacement},
			},
		},
	})

	canonical, err := filepath.EvalSymlinks(replacement)
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		roots := srv.guard.List()
		return len(roots) == 1 && roots[0] == canonical
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRootsIgnoredWhenDisabled(t *testing.T) {
	initial := t.TempDir()
	srv := newTestServer(t, []string{initial}, Options{EnableRoots: false})
	var out bytes.Buffer
	srv.SetStdout(&out)

	srv.handleMessage(request(1, "initialize", map[string]interface{}{
		"capabilities": map[string]interface{}{
			"roots": map[string]interface{}{},
		},
	}))
	srv.handleMessage(&Message{Jsonrpc: "2.0", Method: "notifications/initialized"})

	// No roots/list request goes out.
	assert.Empty(t, out.Bytes())
}

func TestStartMessageLoop(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.go"), []byte("package x\n"), 0644))

	srv := newTestServer(t, []string{root}, Options{Version: "0.4.0"})

	script := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search_files","arguments":{"path":"` + root + `","pattern":"*.go"}}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	srv.SetStdin(strings.NewReader(script))
	srv.SetStdout(&out)

	require.NoError(t, srv.Start())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// Three requests produce three responses; the notification none.
	require.Len(t, lines, 3)
	for _, line := range lines {
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(line), &msg))
		assert.Nil(t, msg.Error)
	}
}

func TestInvalidRootURIsRejected(t *testing.T) {
	assert.True(t, isValidRootURI("file:///home/user/project"))
	assert.False(t, isValidRootURI("https://example.com/x"))
	assert.False(t, isValidRootURI("file://host/share"))
	assert.False(t, isValidRootURI("file:///home/../etc"))
	assert.False(t, isValidRootURI("file://relative"))
}
