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
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/models"
	"github.com/carverauto/netrunner/pkg/results"
)

var errDevicesFailed = errors.New("task failed on some devices")

type runOptions struct {
	filters  models.DeviceFilters
	params   []string
	commands []string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run one task against the selected devices and print the result",
		Long: "Run one task against the selected devices and print the result as JSON.\n\n" +
			"Tasks: get_facts, get_interfaces, get_interfaces_ip, get_lldp_neighbors,\n" +
			"get_bgp_neighbors, get_config, send_command, send_config, ping, traceroute.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := engine.ParseKind(args[0])
			if err != nil {
				return err
			}

			params, err := parseParams(opts.params, opts.commands)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			cfg, err := loadConfig(ctx, root.configPath)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			out, err := a.runner.Execute(ctx, kind, &opts.filters, params)
			if err != nil {
				return err
			}

			return printResult(cmd.OutOrStdout(), out)
		},
	}

	addFilterFlags(cmd.Flags(), &opts.filters)
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "Task parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.commands, "command", "c", nil, "Config line for send_config (repeatable)")

	return cmd
}

func printResult(w io.Writer, out results.Aggregated) error {
	if err := printJSON(w, out); err != nil {
		return err
	}

	if failed := out.FailedCount(); failed > 0 {
		return fmt.Errorf("%w: %d of %d", errDevicesFailed, failed, len(out))
	}

	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	return nil
}
