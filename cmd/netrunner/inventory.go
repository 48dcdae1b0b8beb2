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
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/carverauto/netrunner/pkg/filter"
	"github.com/carverauto/netrunner/pkg/inventory"
	"github.com/carverauto/netrunner/pkg/models"
)

type inventoryOptions struct {
	filters models.DeviceFilters
	groups  bool
	details bool
}

func newInventoryCmd(root *rootOptions) *cobra.Command {
	opts := &inventoryOptions{}

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List inventory devices or groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(ctx, root.configPath)
			if err != nil {
				return err
			}

			// Listing never contacts devices, so event publishing is skipped.
			cfg.NATS = nil

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			snap, err := a.runner.Snapshot(ctx)
			if err != nil {
				return err
			}

			if opts.groups {
				return renderGroups(cmd.OutOrStdout(), inventory.GroupMembers(snap))
			}

			devices, err := filter.Apply(snap, &opts.filters)
			if err != nil {
				return err
			}

			if opts.details {
				return printJSON(cmd.OutOrStdout(), inventory.ListDevices(devices, true))
			}

			return renderDevices(cmd.OutOrStdout(), inventory.ListDevices(devices, false))
		},
	}

	addFilterFlags(cmd.Flags(), &opts.filters)
	cmd.Flags().BoolVar(&opts.groups, "groups", false, "List groups and their members instead of devices")
	cmd.Flags().BoolVar(&opts.details, "details", false, "Print devices as JSON including sanitized data")

	return cmd
}

func renderDevices(w io.Writer, listing inventory.Listing) error {
	data := pterm.TableData{{"Name", "Hostname", "Platform", "Groups"}}

	for _, d := range listing.Devices {
		data = append(data, []string{d.Name, d.Hostname, d.Platform, strings.Join(d.Groups, ",")})
	}

	return renderTable(w, data, fmt.Sprintf("%d devices", listing.TotalDevices))
}

func renderGroups(w io.Writer, groups map[string]inventory.GroupInfo) error {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}

	sort.Strings(names)

	data := pterm.TableData{{"Group", "Count", "Members"}}

	for _, name := range names {
		info := groups[name]
		data = append(data, []string{name, strconv.Itoa(info.Count), strings.Join(info.Members, ",")})
	}

	return renderTable(w, data, fmt.Sprintf("%d groups", len(groups)))
}

func renderTable(w io.Writer, data pterm.TableData, footer string) error {
	table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s\n%s\n", table, footer); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}

	return nil
}
