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

package mcp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"
)

const (
	defaultReadTimeout       = 30 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	// Tool calls fan out to devices, so responses can take minutes.
	defaultWriteTimeout = 10 * time.Minute
	maxRequestBytes     = 4 << 20
)

// RegisterRoutes adds the MCP endpoint to the router
func (s *Server) RegisterRoutes(router *mux.Router) {
	// Add the single MCP endpoint that handles all JSON-RPC requests
	mcpRouter := router.PathPrefix("/mcp").Subrouter()
	mcpRouter.HandleFunc("", s.handleMCPRequest).Methods(http.MethodPost, http.MethodOptions)
	mcpRouter.HandleFunc("/", s.handleMCPRequest).Methods(http.MethodPost, http.MethodOptions)
}

// handleMCPRequest handles all MCP JSON-RPC requests
func (s *Server) handleMCPRequest(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w, r)
	w.Header().Set("Content-Type", "application/json")

	// Handle preflight requests
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)

		return
	}

	if !s.authorized(r) {
		s.logger.Warn().Str("remote", r.RemoteAddr).Msg("Rejected unauthenticated MCP request")
		w.Header().Set("WWW-Authenticate", `Bearer realm="netrunner"`)
		http.Error(w, "authentication required", http.StatusUnauthorized)

		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)

		return
	}

	out := s.HandleMessage(r.Context(), body)
	if out == nil {
		w.WriteHeader(http.StatusAccepted)

		return
	}

	if _, err := w.Write(out); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write MCP response")
	}
}

// setCORSHeaders answers browser clients only for configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || !slices.Contains(s.config.AllowedOrigins, origin) {
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id")
	w.Header().Add("Vary", "Origin")
}

// authorized checks the Bearer token against the configured API key. With
// no key configured every request is accepted.
func (s *Server) authorized(r *http.Request) bool {
	if s.config.APIKey == "" {
		return true
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.config.APIKey)) == 1
}

// ServeHTTP listens on the configured address until ctx ends.
func (s *Server) ServeHTTP(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}

	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}

	router := mux.NewRouter()
	s.RegisterRoutes(router)

	srv := &http.Server{
		Handler:           router,
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Int("max_connections", s.config.MaxConnections).
		Bool("api_key", s.config.APIKey != "").
		Msg("MCP HTTP transport listening")

	if s.config.APIKey == "" {
		s.logger.Warn().Msg("MCP HTTP transport has no api_key; any client that can reach it may run tools")
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultReadHeaderTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)

		return ctx.Err()
	}
}
