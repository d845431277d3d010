package mcp

import (
	"fmt"
	"time"
)

// handleMessage processes an incoming message and returns a response, or
// nil when none is due (notifications, client responses)
func (s *Server) handleMessage(msg *Message) *Message {
	if msg.IsResponse() {
		s.handleResponse(msg)
		return nil
	}
	if msg.IsRequest() {
		return s.handleRequest(msg)
	}
	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}
	return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: not a request or notification", nil)
}

func (s *Server) handleRequest(msg *Message) *Message {
	s.logger.Debug("handling request", map[string]interface{}{
		"method": msg.Method,
		"id":     msg.Id,
	})

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "tools/list":
		return s.handleListTools(msg)
	case "tools/call":
		return s.handleCallTool(msg)
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

func (s *Server) handleNotification(msg *Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("client initialized", nil)
		if s.enableRoots && s.roots.IsClientSupported() {
			s.requestRoots()
		}
	case "notifications/roots/list_changed":
		s.logger.Info("client roots changed, requesting update", nil)
		if s.enableRoots && s.roots.IsClientSupported() {
			s.requestRoots()
		}
	default:
		s.logger.Debug("unknown notification", map[string]interface{}{
			"method": msg.Method,
		})
	}
}

// handleResponse routes a client response to the pending server request
// that issued it
func (s *Server) handleResponse(msg *Message) {
	var id int64
	switch v := msg.Id.(type) {
	case float64:
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	default:
		s.logger.Warn("received response with non-numeric id", map[string]interface{}{
			"id": msg.Id,
		})
		return
	}

	if !s.roots.ResolvePendingRequest(id, msg) {
		s.logger.Warn("received response for unknown request", map[string]interface{}{
			"id": id,
		})
	}
}

func (s *Server) handleInitialize(msg *Message) *Message {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		params = make(map[string]interface{})
	}

	caps := parseClientCapabilities(params)
	if caps.Roots != nil {
		s.roots.SetClientSupported(true)
	}

	result := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    "fskit",
			"version": s.version,
		},
	}
	return NewResultMessage(msg.Id, result)
}

// requestRoots asks the client for its roots/list and, when the answer
// arrives, swaps the sandbox roots through the guard
func (s *Server) requestRoots() {
	id := s.roots.NextRequestID()
	responseCh := s.roots.RegisterPendingRequest(id)

	request := &Message{
		Jsonrpc: "2.0",
		Id:      id,
		Method:  "roots/list",
	}
	if err := s.writeMessage(request); err != nil {
		s.logger.Error("failed to send roots/list request", map[string]interface{}{
			"error": err.Error(),
		})
		s.roots.CancelPendingRequest(id)
		return
	}

	go func() {
		select {
		case msg, ok := <-responseCh:
			if !ok {
				return
			}
			if msg.Error != nil {
				if msg.Error.Code == MethodNotFound {
					s.roots.SetClientSupported(false)
					s.logger.Info("client does not support roots/list, disabling roots feature", nil)
				} else {
					s.logger.Warn("roots/list request failed", map[string]interface{}{
						"code":  msg.Error.Code,
						"error": msg.Error.Message,
					})
				}
				return
			}

			roots := parseRootsResponse(msg.Result)
			if roots == nil {
				s.logger.Warn("failed to parse roots/list response", nil)
				return
			}
			s.roots.SetRoots(roots)

			paths := make([]string, 0, len(roots))
			for _, r := range roots {
				paths = append(paths, r.Path())
			}
			if len(paths) == 0 {
				s.logger.Info("client sent empty roots list, keeping current sandbox", nil)
				return
			}
			if err := s.guard.ApplyRootsUpdate(paths); err != nil {
				s.logger.Warn("client roots rejected", map[string]interface{}{
					"error": err.Error(),
				})
				return
			}
			// Cached trees may point outside the new sandbox.
			s.search.PurgeCache()

		case <-time.After(rootsRequestTimeout):
			s.roots.CancelPendingRequest(id)
			s.logger.Warn("roots/list request timed out", map[string]interface{}{
				"timeout": rootsRequestTimeout.String(),
			})
		}
	}()
}

func (s *Server) handleListTools(msg *Message) *Message {
	return NewResultMessage(msg.Id, map[string]interface{}{
		"tools": s.GetToolDefinitions(),
	})
}

func (s *Server) handleCallTool(msg *Message) *Message {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}

	toolName, ok := params["name"].(string)
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "Missing tool name", nil)
	}
	toolParams, ok := params["arguments"].(map[string]interface{})
	if !ok {
		toolParams = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Unknown tool: %s", toolName), nil)
	}

	result, err := handler(toolParams)
	if err != nil {
		// Tool failures are successful JSON-RPC responses flagged with
		// isError, per the MCP tool contract.
		return NewResultMessage(msg.Id, errorResult(err))
	}
	return NewResultMessage(msg.Id, result)
}

// errorResult formats a tool failure as an MCP error result. ServiceError
// messages already carry their [CODE] prefix.
func errorResult(err error) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": err.Error()},
		},
		"isError": true,
	}
}
