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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/carverauto/netrunner/pkg/backup"
	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/filter"
	"github.com/carverauto/netrunner/pkg/inventory"
	"github.com/carverauto/netrunner/pkg/models"
	"github.com/carverauto/netrunner/pkg/results"
)

const modelDeviceFilters = "DeviceFilters"

// execute runs a task and turns run-level errors into an error envelope.
func (s *Server) execute(
	ctx context.Context, kind engine.Kind, t *Targeting, params engine.Params,
) (interface{}, results.Aggregated, error) {
	filters, err := t.resolve()
	if err != nil {
		return nil, nil, err
	}

	out, err := s.runner.Execute(ctx, kind, filters, params)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidParams) {
			return nil, nil, fmt.Errorf("%w: %w", errInvalidArguments, err)
		}

		return results.NewErrorEnvelope(err.Error()), nil, nil
	}

	return out, out, nil
}

func (s *Server) registerInventoryTools() {
	s.register(Tool{
		Name:        "list_devices",
		Description: "List inventory devices with names, addresses, platforms and groups. Set details for sanitized inventory data.",
		InputSchema: schema(map[string]interface{}{
			"details": prop("boolean", "Include sanitized inventory data"),
			"filters": filtersSchema(),
		}),
	}, s.listDevices)

	s.register(Tool{
		Name:        "get_device_groups",
		Description: "List inventory groups with member counts.",
		InputSchema: schema(map[string]interface{}{}),
	}, s.getDeviceGroups)
}

func (s *Server) listDevices(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Details bool                  `json:"details"`
		Filters *models.DeviceFilters `json:"filters,omitempty"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	snap, err := s.runner.Snapshot(ctx)
	if err != nil {
		return results.NewErrorEnvelope(err.Error()), nil
	}

	devices, err := filter.Apply(snap, args.Filters)
	if err != nil {
		return results.NewErrorEnvelope(err.Error()), nil
	}

	return inventory.ListDevices(devices, args.Details), nil
}

func (s *Server) getDeviceGroups(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct{}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	snap, err := s.runner.Snapshot(ctx)
	if err != nil {
		return results.NewErrorEnvelope(err.Error()), nil
	}

	return map[string]interface{}{"groups": inventory.GroupMembers(snap)}, nil
}

func (s *Server) registerTaskTools() {
	s.register(Tool{
		Name:        "get_device_facts",
		Description: "Retrieve basic device information (vendor, model, OS version, uptime) over SNMP.",
		InputSchema: schema(targeted(map[string]interface{}{})),
	}, s.getter(engine.KindGetFacts))

	s.register(Tool{
		Name:        "get_interfaces",
		Description: "Retrieve interface state, speed, MTU and MAC address over SNMP.",
		InputSchema: schema(targeted(map[string]interface{}{
			"interface": prop("string", "Return only this interface"),
		})),
	}, s.getInterfaces)

	s.register(Tool{
		Name:        "get_lldp_neighbors",
		Description: "Retrieve LLDP neighbors per local interface over SNMP.",
		InputSchema: schema(targeted(map[string]interface{}{})),
	}, s.getter(engine.KindGetLLDPNeighbors))

	s.register(Tool{
		Name:        "get_bgp_neighbors",
		Description: "Retrieve BGP peers with AS numbers, state and uptime over SNMP. Set detail for counters and timers.",
		InputSchema: schema(targeted(map[string]interface{}{
			"neighbor": prop("string", "Return only this peer address"),
			"detail":   prop("boolean", "Include message counters, timers and last error"),
		})),
	}, s.getBGPNeighbors)

	s.register(Tool{
		Name:        "get_interfaces_ip",
		Description: "Retrieve IPv4 addresses and prefix lengths per interface over SNMP.",
		InputSchema: schema(targeted(map[string]interface{}{})),
	}, s.getter(engine.KindGetInterfacesIP))

	s.register(Tool{
		Name: "run_getters",
		Description: "Run several getters in one call. Results are keyed by device, then getter. Getters: " +
			strings.Join(getterNames(), ", ") + ".",
		InputSchema: schema(targeted(map[string]interface{}{
			"getters":         stringList("Getters to run"),
			"getters_options": prop("object", "Per-getter parameters, keyed by getter name"),
		}), "getters"),
	}, s.runGetters)

	s.register(Tool{
		Name:        "run_show_commands",
		Description: "Run read-only CLI commands over SSH. Results are keyed by command, then device.",
		InputSchema: schema(targeted(map[string]interface{}{
			"commands": stringList("Commands to run"),
		}), "commands"),
	}, s.runShowCommands)

	s.register(Tool{
		Name:        "ping",
		Description: "Ping a destination from a device.",
		InputSchema: schema(targeted(map[string]interface{}{
			"destination": prop("string", "Destination address or hostname"),
			"source":      prop("string", "Source address or interface"),
			"vrf":         prop("string", "VRF or routing instance"),
			"count":       prop("integer", "Echo requests to send (default 5)"),
			"size":        prop("integer", "Packet size (default 100)"),
			"timeout":     prop("integer", "Per-packet timeout in seconds (default 2)"),
			"ttl":         prop("integer", "TTL (default 255)"),
		}), "destination"),
	}, s.ping)

	s.register(Tool{
		Name:        "traceroute",
		Description: "Trace the path from a device to a destination.",
		InputSchema: schema(targeted(map[string]interface{}{
			"destination": prop("string", "Destination address or hostname"),
			"source":      prop("string", "Source address or interface"),
			"vrf":         prop("string", "VRF or routing instance"),
			"ttl":         prop("integer", "Maximum TTL (default 255)"),
			"timeout":     prop("integer", "Per-packet timeout in seconds (default 2)"),
		}), "destination"),
	}, s.traceroute)
}

func (s *Server) getter(kind engine.Kind) ToolHandler {
	return func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var args Targeting

		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}

		out, _, err := s.execute(ctx, kind, &args, engine.Params{})

		return out, err
	}
}

func (s *Server) getInterfaces(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Targeting
		Interface string `json:"interface,omitempty"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	params := engine.Params{}
	if args.Interface != "" {
		params["interface"] = args.Interface
	}

	out, _, err := s.execute(ctx, engine.KindGetInterfaces, &args.Targeting, params)

	return out, err
}

func (s *Server) runShowCommands(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Targeting
		Commands []string `json:"commands"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if err := checkCommands(args.Commands); err != nil {
		return nil, err
	}

	if cmd, reason := s.validator.ValidateAll(args.Commands); reason != "" {
		return rejected(cmd, reason), nil
	}

	out := make(map[string]interface{}, len(args.Commands))

	for _, cmd := range args.Commands {
		res, _, err := s.execute(ctx, engine.KindSendCommand, &args.Targeting, engine.Params{"command": cmd})
		if err != nil {
			return nil, err
		}

		out[cmd] = res
	}

	return out, nil
}

func rejected(cmd, reason string) results.ErrorEnvelope {
	env := results.NewErrorEnvelope(reason)
	env["command"] = cmd

	return env
}

func (s *Server) ping(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Targeting
		Destination string `json:"destination"`
		Source      string `json:"source,omitempty"`
		VRF         string `json:"vrf,omitempty"`
		Count       int    `json:"count,omitempty"`
		Size        int    `json:"size,omitempty"`
		Timeout     int    `json:"timeout,omitempty"`
		TTL         int    `json:"ttl,omitempty"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if err := s.checkCLIArguments(args.Destination, args.Source, args.VRF); err != nil {
		return nil, err
	}

	params := engine.Params{
		"destination": args.Destination,
		"source":      args.Source,
		"vrf":         args.VRF,
	}

	for key, v := range map[string]int{"count": args.Count, "size": args.Size, "timeout": args.Timeout, "ttl": args.TTL} {
		if v > 0 {
			params[key] = v
		}
	}

	out, _, err := s.execute(ctx, engine.KindPing, &args.Targeting, params)

	return out, err
}

func (s *Server) traceroute(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Targeting
		Destination string `json:"destination"`
		Source      string `json:"source,omitempty"`
		VRF         string `json:"vrf,omitempty"`
		TTL         int    `json:"ttl,omitempty"`
		Timeout     int    `json:"timeout,omitempty"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if err := s.checkCLIArguments(args.Destination, args.Source, args.VRF); err != nil {
		return nil, err
	}

	params := engine.Params{
		"destination": args.Destination,
		"source":      args.Source,
		"vrf":         args.VRF,
	}

	if args.TTL > 0 {
		params["ttl"] = args.TTL
	}

	if args.Timeout > 0 {
		params["timeout"] = args.Timeout
	}

	out, _, err := s.execute(ctx, engine.KindTraceroute, &args.Targeting, params)

	return out, err
}

// checkCLIArguments rejects values that would not stay a single word once
// spliced into a device command line, or that the blacklist refuses.
func (s *Server) checkCLIArguments(values ...string) error {
	for _, v := range values {
		if v == "" {
			continue
		}

		if strings.IndexFunc(v, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
			return fmt.Errorf("%w: %q must not contain whitespace or control characters", errInvalidArguments, v)
		}

		if reason := s.validator.Validate(v); reason != "" {
			return fmt.Errorf("%w: %q: %s", errInvalidArguments, v, reason)
		}
	}

	return nil
}

func (s *Server) getBGPNeighbors(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Targeting
		Neighbor string `json:"neighbor,omitempty"`
		Detail   bool   `json:"detail,omitempty"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	params := engine.Params{}
	if args.Neighbor != "" {
		params["neighbor"] = args.Neighbor
	}

	if args.Detail {
		params["detail"] = true
	}

	out, _, err := s.execute(ctx, engine.KindGetBGPNeighbors, &args.Targeting, params)

	return out, err
}

//nolint:gochecknoglobals // getter name table
var getterKinds = map[string]engine.Kind{
	"facts":          engine.KindGetFacts,
	"interfaces":     engine.KindGetInterfaces,
	"interfaces_ip":  engine.KindGetInterfacesIP,
	"lldp_neighbors": engine.KindGetLLDPNeighbors,
	"bgp_neighbors":  engine.KindGetBGPNeighbors,
	"config":         engine.KindGetConfig,
}

func getterNames() []string {
	names := make([]string, 0, len(getterKinds))
	for name := range getterKinds {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// runGetters fans out one task per getter and regroups the results by device.
// Names may carry a "get_" prefix.
func (s *Server) runGetters(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Targeting
		Getters        []string                 `json:"getters"`
		GettersOptions map[string]engine.Params `json:"getters_options,omitempty"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if len(args.Getters) == 0 {
		return nil, fmt.Errorf("%w: getters list cannot be empty", errInvalidArguments)
	}

	kinds := make([]engine.Kind, len(args.Getters))

	for i, name := range args.Getters {
		kind, ok := getterKinds[strings.TrimPrefix(name, "get_")]
		if !ok {
			return nil, fmt.Errorf("%w: unknown getter %q, available: %s",
				errInvalidArguments, name, strings.Join(getterNames(), ", "))
		}

		kinds[i] = kind
	}

	out := make(map[string]map[string]interface{})

	for i, name := range args.Getters {
		params := args.GettersOptions[name]
		if params == nil {
			params = args.GettersOptions[strings.TrimPrefix(name, "get_")]
		}

		if params == nil {
			params = engine.Params{}
		}

		env, agg, err := s.execute(ctx, kinds[i], &args.Targeting, params)
		if err != nil || agg == nil {
			return env, err
		}

		for host, v := range agg {
			if out[host] == nil {
				out[host] = make(map[string]interface{}, len(args.Getters))
			}

			out[host][name] = v
		}
	}

	return out, nil
}

func (s *Server) registerConfigTools() {
	s.register(Tool{
		Name:        "get_device_configs",
		Description: "Retrieve configuration text over SSH. source is running (default), startup, candidate or all.",
		InputSchema: schema(targeted(map[string]interface{}{
			"source": map[string]interface{}{
				"type": "string",
				"enum": []string{engine.RetrieveRunning, engine.RetrieveStartup, engine.RetrieveCandidate, engine.RetrieveAll},
			},
		})),
	}, s.getDeviceConfigs)

	s.register(Tool{
		Name:        "send_config_commands",
		Description: "Apply configuration lines over SSH inside the platform's configuration mode.",
		InputSchema: schema(targeted(map[string]interface{}{
			"commands": stringList("Configuration lines"),
			"save":     prop("boolean", "Save the configuration afterwards"),
		}), "commands"),
	}, s.sendConfigCommands)

	s.register(Tool{
		Name:        "backup_device_configs",
		Description: "Save running configurations to <path>/<device>_<timestamp>.cfg.",
		InputSchema: schema(targeted(map[string]interface{}{
			"path": prop("string", "Backup directory, relative to the backup root"),
		})),
	}, s.backupDeviceConfigs)
}

func (s *Server) getDeviceConfigs(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Targeting
		Source string `json:"source,omitempty"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if args.Source == "" {
		args.Source = engine.RetrieveRunning
	}

	out, agg, err := s.execute(ctx, engine.KindGetConfig, &args.Targeting, engine.Params{"retrieve": args.Source})
	if err != nil || agg == nil || args.Source == engine.RetrieveAll {
		return out, err
	}

	for host, v := range agg {
		if cfg, ok := v.(map[string]string); ok {
			agg[host] = cfg[args.Source]
		}
	}

	return agg, nil
}

func (s *Server) sendConfigCommands(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Targeting
		Commands []string `json:"commands"`
		Save     bool     `json:"save,omitempty"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if err := checkCommands(args.Commands); err != nil {
		return nil, err
	}

	if cmd, reason := s.validator.ValidateAll(args.Commands); reason != "" {
		return rejected(cmd, reason), nil
	}

	out, _, err := s.execute(ctx, engine.KindSendConfig, &args.Targeting, engine.Params{
		"commands": args.Commands,
		"save":     args.Save,
	})

	return out, err
}

func (s *Server) backupDeviceConfigs(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		Targeting
		Path string `json:"path,omitempty"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if args.Path == "" {
		args.Path = s.config.BackupDir
	}

	dir, err := backup.EnsureDirectory(s.config.BackupRoot, args.Path)
	if err != nil {
		return results.NewErrorEnvelope(err.Error()), nil
	}

	out, agg, err := s.execute(ctx, engine.KindGetConfig, &args.Targeting, engine.Params{"retrieve": engine.RetrieveRunning})
	if err != nil || agg == nil {
		return out, err
	}

	return backup.Save(agg, dir, s.now()), nil
}

func (s *Server) registerSystemTools() {
	s.register(Tool{
		Name:        "validate_params",
		Description: "Check parameters against a named model before calling a tool. Available models: DeviceFilters.",
		InputSchema: schema(map[string]interface{}{
			"model_name": prop("string", "Model to validate against"),
			"params":     prop("object", "Parameters to validate"),
		}, "model_name", "params"),
	}, s.validateParams)
}

func (*Server) validateParams(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var args struct {
		ModelName string          `json:"model_name"`
		Params    json.RawMessage `json:"params"`
	}

	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if args.ModelName != modelDeviceFilters {
		return map[string]interface{}{
			"valid": false,
			"error": fmt.Sprintf("Model '%s' not found. Available models: [%s]", args.ModelName, modelDeviceFilters),
		}, nil
	}

	var f models.DeviceFilters

	if err := decodeStrict(args.Params, &f); err != nil {
		return map[string]interface{}{
			"valid":   false,
			"error":   "Validation failed",
			"details": err.Error(),
		}, nil
	}

	return map[string]interface{}{"valid": true, "model": modelDeviceFilters}, nil
}
