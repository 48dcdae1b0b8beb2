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

package main

import (
	"github.com/spf13/cobra"

	"github.com/carverauto/netrunner/pkg/lifecycle"
	"github.com/carverauto/netrunner/pkg/mcp"
	"github.com/carverauto/netrunner/pkg/models"
	"github.com/carverauto/netrunner/pkg/security"
)

type serveOptions struct {
	transport  string
	listenAddr string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the device tools over MCP (stdio or HTTP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(ctx, root.configPath)
			if err != nil {
				return err
			}

			opts.apply(cfg)

			if err := cfg.Validate(); err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			validator := security.NewCommandValidator(cfg.Security.BlacklistFile, component("security"))
			server := mcp.NewServer(a.runner, validator, mcp.ConfigFrom(cfg), component("mcp"))

			a.logger.Info().
				Str("transport", cfg.MCP.Transport).
				Str("inventory", cfg.Inventory.Source).
				Int("tools", len(server.Tools())).
				Msg("Starting netrunner MCP server")

			return lifecycle.Run(ctx, &lifecycle.ServerOptions{
				Service:     server,
				StopTimeout: shutdownTimeout,
				Logger:      a.logger,
			})
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "MCP transport: stdio or http (overrides config)")
	cmd.Flags().StringVar(&opts.listenAddr, "listen", "", "HTTP listen address (overrides config)")

	return cmd
}

func (o *serveOptions) apply(cfg *models.ServiceConfig) {
	if o.transport != "" {
		cfg.MCP.Transport = o.transport
	}

	if o.listenAddr != "" {
		cfg.MCP.ListenAddr = o.listenAddr
	}
}
