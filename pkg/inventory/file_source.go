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

package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
)

var (
	ErrUnknownGroup = errors.New("unknown inventory group")
	ErrGroupCycle   = errors.New("inventory group cycle")
	errHostsFile    = errors.New("hosts file is required")
)

// hostEntry is one entry of hosts.yaml, groups.yaml or defaults.yaml.
// Zero values mean "not set here" and fall through to groups and defaults.
type hostEntry struct {
	Hostname string                 `yaml:"hostname"`
	Platform string                 `yaml:"platform"`
	Port     int                    `yaml:"port"`
	Username string                 `yaml:"username"`
	Password string                 `yaml:"password"`
	Groups   []string               `yaml:"groups"`
	Data     map[string]interface{} `yaml:"data"`
}

// FileSource reads a hosts/groups/defaults YAML inventory. The files are
// re-read on every Snapshot call so edits apply to the next request.
type FileSource struct {
	hostsFile    string
	groupsFile   string
	defaultsFile string
	logger       logger.Logger
}

// NewFileSource returns a FileSource. groupsFile and defaultsFile may be
// empty; missing optional files are treated as empty.
func NewFileSource(cfg *models.InventoryConfig, log logger.Logger) (*FileSource, error) {
	if cfg == nil || cfg.HostsFile == "" {
		return nil, errHostsFile
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	return &FileSource{
		hostsFile:    cfg.HostsFile,
		groupsFile:   cfg.GroupsFile,
		defaultsFile: cfg.DefaultsFile,
		logger:       log,
	}, nil
}

// Snapshot implements Source.
func (f *FileSource) Snapshot(_ context.Context) (*Snapshot, error) {
	hosts := make(map[string]hostEntry)
	if err := readYAML(f.hostsFile, true, &hosts); err != nil {
		return nil, err
	}

	groups := make(map[string]hostEntry)
	if err := readYAML(f.groupsFile, false, &groups); err != nil {
		return nil, err
	}

	var defaults hostEntry
	if err := readYAML(f.defaultsFile, false, &defaults); err != nil {
		return nil, err
	}

	snap, err := resolve(hosts, groups, &defaults)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().
		Int("hosts", len(snap.Hosts)).
		Int("groups", len(snap.Groups)).
		Msg("Loaded inventory snapshot from files")

	return snap, nil
}

func readYAML(path string, required bool, dst interface{}) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to read inventory file '%s': %w", path, err)
	}

	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse inventory file '%s': %w", path, err)
	}

	return nil
}

// resolve flattens inheritance: each attribute comes from the host, then the
// first group (in declared order, depth-first through parents) that sets it,
// then defaults.
func resolve(hosts, groups map[string]hostEntry, defaults *hostEntry) (*Snapshot, error) {
	snap := &Snapshot{
		Hosts:  make(map[string]models.Device, len(hosts)),
		Groups: make(map[string]Group, len(groups)),
	}

	for name, g := range groups {
		snap.Groups[name] = Group{Name: name, Parents: g.Groups, Data: g.Data}
	}

	for name := range hosts {
		h := hosts[name]

		chain, err := groupChain(h.Groups, groups)
		if err != nil {
			return nil, fmt.Errorf("host %s: %w", name, err)
		}

		layers := make([]*hostEntry, 0, len(chain)+2)
		layers = append(layers, &h)

		for _, g := range chain {
			entry := groups[g]
			layers = append(layers, &entry)
		}

		layers = append(layers, defaults)

		d := models.Device{
			Name:     name,
			Groups:   append([]string(nil), h.Groups...),
			Hostname: firstString(layers, func(e *hostEntry) string { return e.Hostname }),
			Platform: firstString(layers, func(e *hostEntry) string { return e.Platform }),
			Username: firstString(layers, func(e *hostEntry) string { return e.Username }),
			Password: firstString(layers, func(e *hostEntry) string { return e.Password }),
			Data:     mergeData(layers),
		}

		for _, l := range layers {
			if l.Port != 0 {
				d.Port = l.Port
				break
			}
		}

		if d.Hostname == "" {
			d.Hostname = name
		}

		if d.Groups == nil {
			d.Groups = []string{}
		}

		snap.Hosts[name] = d
	}

	return snap, nil
}

// groupChain expands direct groups depth-first through their parents,
// keeping the first occurrence of each group.
func groupChain(direct []string, groups map[string]hostEntry) ([]string, error) {
	var (
		out     []string
		seen    = make(map[string]bool)
		walking = make(map[string]bool)
		walk    func(name string) error
	)

	walk = func(name string) error {
		g, ok := groups[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownGroup, name)
		}

		if walking[name] {
			return fmt.Errorf("%w: %s", ErrGroupCycle, name)
		}

		if seen[name] {
			return nil
		}

		walking[name] = true
		seen[name] = true
		out = append(out, name)

		for _, parent := range g.Groups {
			if err := walk(parent); err != nil {
				return err
			}
		}

		walking[name] = false

		return nil
	}

	for _, name := range direct {
		if err := walk(name); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func firstString(layers []*hostEntry, get func(*hostEntry) string) string {
	for _, l := range layers {
		if v := get(l); v != "" {
			return v
		}
	}

	return ""
}

// mergeData overlays data maps so that earlier layers win per key.
func mergeData(layers []*hostEntry) map[string]interface{} {
	out := make(map[string]interface{})

	for i := len(layers) - 1; i >= 0; i-- {
		for k, v := range layers[i].Data {
			out[k] = v
		}
	}

	return out
}
