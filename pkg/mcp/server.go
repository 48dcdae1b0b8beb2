/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mcp exposes the automation tasks as Model Context Protocol tools
// over JSON-RPC 2.0, on stdio or HTTP.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
	"github.com/carverauto/netrunner/pkg/security"
	"github.com/carverauto/netrunner/pkg/version"
)

var (
	errUnknownTool      = errors.New("unknown tool")
	errInvalidArguments = errors.New("invalid arguments")
	errUnknownTransport = errors.New("unknown transport")
)

// Config holds the tool surface settings.
type Config struct {
	Transport      string
	ListenAddr     string
	MaxConnections int
	// APIKey is required as a Bearer token on HTTP requests when set.
	APIKey         string
	AllowedOrigins []string
	// BackupRoot sandboxes backup directories; empty means the working directory.
	BackupRoot string
	BackupDir  string
}

// GetDefaultConfig returns the default MCP configuration
func GetDefaultConfig() *Config {
	return &Config{
		Transport:  models.TransportStdio,
		ListenAddr: "127.0.0.1:8080",
		BackupDir:  "backups",
	}
}

// ConfigFrom extracts the tool surface settings from the service config.
func ConfigFrom(cfg *models.ServiceConfig) *Config {
	return &Config{
		Transport:      cfg.MCP.Transport,
		ListenAddr:     cfg.MCP.ListenAddr,
		MaxConnections: cfg.MCP.MaxConnections,
		APIKey:         cfg.MCP.APIKey,
		AllowedOrigins: cfg.MCP.AllowedOrigins,
		BackupRoot:     cfg.Backup.Root,
		BackupDir:      cfg.Backup.Directory,
	}
}

// ToolHandler runs one tool with its raw JSON arguments.
type ToolHandler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// MCPTool represents an MCP tool that can be called
type MCPTool struct {
	Tool
	Handler ToolHandler
}

// Server is the MCP tool surface. It implements lifecycle.Service.
type Server struct {
	runner    TaskRunner
	validator *security.CommandValidator
	logger    logger.Logger
	config    *Config
	tools     map[string]MCPTool
	now       func() time.Time

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a server with every tool registered.
func NewServer(runner TaskRunner, validator *security.CommandValidator, config *Config, log logger.Logger) *Server {
	if config == nil {
		config = GetDefaultConfig()
	}

	if validator == nil {
		validator = security.NewCommandValidatorFrom(security.Blacklist{})
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	s := &Server{
		runner:    runner,
		validator: validator,
		logger:    log,
		config:    config,
		tools:     make(map[string]MCPTool),
		now:       time.Now,
	}

	s.registerInventoryTools()
	s.registerTaskTools()
	s.registerConfigTools()
	s.registerSystemTools()

	return s
}

func (s *Server) register(tool Tool, h ToolHandler) {
	s.tools[tool.Name] = MCPTool{Tool: tool, Handler: h}
}

// Tools lists the registered tools sorted by name.
func (s *Server) Tools() []Tool {
	out := make([]Tool, 0, len(s.tools))

	for _, t := range s.tools {
		out = append(out, t.Tool)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// HandleMessage decodes one JSON-RPC message and returns the encoded reply,
// or nil for notifications.
func (s *Server) HandleMessage(ctx context.Context, data []byte) []byte {
	var req JSONRPCRequest

	var resp *JSONRPCResponse

	if err := json.Unmarshal(data, &req); err != nil {
		resp = newErrorResponse(nil, codeParseError, "Parse error", err.Error())
	} else {
		resp = s.Handle(ctx, &req)
	}

	if resp == nil {
		return nil
	}

	out, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode MCP response")

		out, _ = json.Marshal(newErrorResponse(resp.ID, codeInternalError, "Internal error", err.Error()))
	}

	return out
}

// Handle dispatches a decoded request. Notifications yield nil.
func (s *Server) Handle(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	if req.JSONRPC != jsonRPCVersion {
		return newErrorResponse(req.ID, codeInvalidRequest, "Invalid Request", "jsonrpc must be \"2.0\"")
	}

	var resp *JSONRPCResponse

	switch req.Method {
	case methodInitialize:
		resp = newResponse(req.ID, s.initializeResult())
	case methodInitialized:
		return nil
	case methodPing:
		resp = newResponse(req.ID, map[string]interface{}{})
	case methodToolsList:
		resp = newResponse(req.ID, map[string]interface{}{"tools": s.Tools()})
	case methodToolsCall:
		resp = s.handleToolCall(ctx, req)
	default:
		resp = newErrorResponse(req.ID, codeMethodNotFound, "Method not found", fmt.Sprintf("Unknown method: %s", req.Method))
	}

	if req.isNotification() {
		return nil
	}

	return resp
}

func (*Server) initializeResult() map[string]interface{} {
	return map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    serverName,
			"version": version.GetVersion(),
		},
	}
}

func (s *Server) handleToolCall(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	var params ToolCallParams

	if err := json.Unmarshal(req.Params, &params); err != nil {
		return newErrorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	tool, ok := s.tools[params.Name]
	if !ok {
		return newErrorResponse(req.ID, codeInvalidParams, "Invalid params",
			fmt.Sprintf("%s: %s", errUnknownTool, params.Name))
	}

	start := s.now()

	out, err := tool.Handler(ctx, params.Arguments)

	s.logger.Debug().
		Str("tool", params.Name).
		Dur("elapsed", s.now().Sub(start)).
		Err(err).
		Msg("Tool call finished")

	if err != nil {
		if errors.Is(err, errInvalidArguments) {
			return newErrorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}

		return newErrorResponse(req.ID, codeInternalError, "Internal error", err.Error())
	}

	result, err := wrapResult(out)
	if err != nil {
		return newErrorResponse(req.ID, codeInternalError, "Internal error", err.Error())
	}

	return newResponse(req.ID, result)
}

// Start serves the configured transport until ctx ends or stdin closes.
func (s *Server) Start(ctx context.Context) error {
	switch s.config.Transport {
	case models.TransportStdio, "":
		return s.ServeStdio(ctx, stdin(), stdout())
	case models.TransportHTTP:
		return s.ServeHTTP(ctx)
	default:
		return fmt.Errorf("%w: %q", errUnknownTransport, s.config.Transport)
	}
}

// Stop stops the MCP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping MCP server")

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}
