// Package mcp implements the stdio JSON-RPC server exposing the fskit
// tools to MCP clients. Logging goes to stderr; stdout carries protocol
// messages only.
package mcp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"fskit/internal/access"
	"fskit/internal/fsops"
	"fskit/internal/logging"
	"fskit/internal/search"
)

// ToolHandler executes one tool call
type ToolHandler func(params map[string]interface{}) (interface{}, error)

// Server is the MCP server
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	writeMu sync.Mutex

	logger  *logging.Logger
	version string

	guard  *access.Guard
	search *search.Service
	fsops  *fsops.Service

	tools map[string]ToolHandler
	roots *rootsManager

	// enableRoots gates whether client roots replace the sandbox roots.
	enableRoots bool
}

// Options configures a Server
type Options struct {
	Version     string
	EnableRoots bool
	Logger      *logging.Logger
}

// NewServer creates an MCP server over the given services
func NewServer(guard *access.Guard, searchSvc *search.Service, fsopsSvc *fsops.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	server := &Server{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		logger:      logger,
		version:     opts.Version,
		guard:       guard,
		search:      searchSvc,
		fsops:       fsopsSvc,
		tools:       make(map[string]ToolHandler),
		roots:       newRootsManager(),
		enableRoots: opts.EnableRoots,
	}
	server.RegisterTools()
	return server
}

// NewServerForCLI creates a minimal server for tool introspection. It
// cannot handle tool calls.
func NewServerForCLI() *Server {
	return &Server{}
}

// Start runs the message loop until EOF on stdin
func (s *Server) Start() error {
	s.logger.Info("MCP server starting", map[string]interface{}{
		"version":     s.version,
		"roots":       s.guard.List(),
		"enableRoots": s.enableRoots,
	})

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)", nil)
				return nil
			}
			s.logger.Error("error reading message", map[string]interface{}{
				"error": err.Error(),
			})
			if msg != nil && msg.Id != nil {
				_ = s.writeError(msg.Id, ParseError, fmt.Sprintf("Failed to parse message: %v", err))
			}
			continue
		}

		response := s.handleMessage(msg)
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("error writing response", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// SetStdin sets the input stream (for testing)
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing)
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}

// GetRoots returns the current client roots
func (s *Server) GetRoots() []Root {
	return s.roots.GetRoots()
}
