package mcp

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// rootsRequestTimeout bounds how long the server waits for the client to
// answer a roots/list request
const rootsRequestTimeout = 10 * time.Second

// Root represents a filesystem root provided by the MCP client
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// Path returns the filesystem path for this root
func (r *Root) Path() string {
	if !strings.HasPrefix(r.URI, "file://") {
		return r.URI
	}
	u, err := url.Parse(r.URI)
	if err != nil {
		return strings.TrimPrefix(r.URI, "file://")
	}
	return filepath.FromSlash(u.Path)
}

// ClientCapabilities represents capabilities reported by the MCP client
type ClientCapabilities struct {
	Roots *RootsCapability `json:"roots,omitempty"`
}

// RootsCapability indicates the client supports the roots feature
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// rootsManager tracks client roots and the pending server-to-client
// roots/list requests
type rootsManager struct {
	mu              sync.RWMutex
	roots           []Root
	clientSupported bool
	requestID       atomic.Int64
	pendingRequests sync.Map // map[int64]chan *Message
}

func newRootsManager() *rootsManager {
	return &rootsManager{}
}

// SetClientSupported marks whether the client supports roots
func (rm *rootsManager) SetClientSupported(supported bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.clientSupported = supported
}

// IsClientSupported returns whether the client supports roots
func (rm *rootsManager) IsClientSupported() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.clientSupported
}

// SetRoots stores the latest client roots
func (rm *rootsManager) SetRoots(roots []Root) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.roots = roots
}

// GetRoots returns a copy of the current roots
func (rm *rootsManager) GetRoots() []Root {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	if rm.roots == nil {
		return nil
	}
	out := make([]Root, len(rm.roots))
	copy(out, rm.roots)
	return out
}

// NextRequestID generates a unique id for server-to-client requests
func (rm *rootsManager) NextRequestID() int64 {
	return rm.requestID.Add(1)
}

// RegisterPendingRequest registers a pending request and returns the
// channel its response will arrive on
func (rm *rootsManager) RegisterPendingRequest(id int64) chan *Message {
	ch := make(chan *Message, 1)
	rm.pendingRequests.Store(id, ch)
	return ch
}

// ResolvePendingRequest delivers a client response to its waiter
func (rm *rootsManager) ResolvePendingRequest(id int64, msg *Message) bool {
	if ch, ok := rm.pendingRequests.LoadAndDelete(id); ok {
		ch.(chan *Message) <- msg
		return true
	}
	return false
}

// CancelPendingRequest drops a pending request after timeout or shutdown
func (rm *rootsManager) CancelPendingRequest(id int64) bool {
	if ch, ok := rm.pendingRequests.LoadAndDelete(id); ok {
		close(ch.(chan *Message))
		return true
	}
	return false
}

// parseClientCapabilities extracts client capabilities from initialize
// params
func parseClientCapabilities(params map[string]interface{}) *ClientCapabilities {
	caps := &ClientCapabilities{}

	capabilitiesRaw, ok := params["capabilities"].(map[string]interface{})
	if !ok {
		return caps
	}

	if rootsRaw, ok := capabilitiesRaw["roots"].(map[string]interface{}); ok {
		caps.Roots = &RootsCapability{}
		if listChanged, ok := rootsRaw["listChanged"].(bool); ok {
			caps.Roots.ListChanged = listChanged
		}
	}
	return caps
}

// isValidRootURI validates a root URI: file scheme, no hostname, absolute
// path, no traversal sequences
func isValidRootURI(uri string) bool {
	if !strings.HasPrefix(uri, "file://") {
		return false
	}
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	if u.Host != "" {
		return false
	}
	if strings.Contains(u.Path, "..") {
		return false
	}
	return filepath.IsAbs(u.Path)
}

// parseRootsResponse parses a roots/list result, dropping invalid entries
func parseRootsResponse(result interface{}) []Root {
	resultMap, ok := result.(map[string]interface{})
	if !ok {
		return nil
	}
	rootsRaw, ok := resultMap["roots"].([]interface{})
	if !ok {
		return nil
	}

	roots := make([]Root, 0, len(rootsRaw))
	for _, r := range rootsRaw {
		rootMap, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		root := Root{}
		if uri, ok := rootMap["uri"].(string); ok {
			root.URI = uri
		}
		if name, ok := rootMap["name"].(string); ok {
			root.Name = name
		}
		if root.URI != "" && isValidRootURI(root.URI) {
			roots = append(roots, root)
		}
	}
	return roots
}
