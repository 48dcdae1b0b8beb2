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

// Package backup writes retrieved device configurations to disk.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/carverauto/netrunner/pkg/results"
)

const (
	timestampLayout = "%Y%m%d_%H%M%S"
	fileExt         = ".cfg"

	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusFailed  = "failed"

	emptyConfigMessage = "Empty configuration content"
)

var (
	// ErrOutsideRoot is returned for a backup directory that escapes the root.
	ErrOutsideRoot = errors.New("backup directory must be within the root")
	// ErrInvalidHost is returned for a device name that is not a plain file name.
	ErrInvalidHost = errors.New("device name cannot be used as a backup file name")
)

// EnsureDirectory resolves dir against root (the working directory when
// empty), rejects anything outside root, and creates the directory.
func EnsureDirectory(root, dir string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}

		root = wd
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve backup root: %w", err)
	}

	dir = expandHome(dir)

	target := dir
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}

	target = filepath.Clean(target)

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, root)
	}

	if err := os.MkdirAll(target, 0o750); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	return target, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}

	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// FileName returns <host>_<YYYYmmdd_HHMMSS>.cfg.
func FileName(host string, now time.Time) string {
	return host + "_" + strftime.Format(timestampLayout, now) + fileExt
}

// WriteConfig writes content to dir and returns the file path.
func WriteConfig(host, content, dir string, now time.Time) (string, error) {
	if host == "" || host == "." || strings.Contains(host, "..") ||
		strings.ContainsAny(host, `/\`) || filepath.Base(host) != host {
		return "", fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}

	path := filepath.Join(dir, FileName(host, now))

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup for %s: %w", host, err)
	}

	return path, nil
}

// Status is the per-device outcome of a backup run.
type Status struct {
	Status  string      `json:"status"`
	Path    string      `json:"path,omitempty"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Save writes the running configuration of every successful device in a
// normalized get_config result.
func Save(res results.Aggregated, dir string, now time.Time) map[string]Status {
	out := make(map[string]Status, len(res))

	hosts := make([]string, 0, len(res))
	for host := range res {
		hosts = append(hosts, host)
	}

	sort.Strings(hosts)

	for _, host := range hosts {
		out[host] = saveOne(host, res[host], dir, now)
	}

	return out
}

func saveOne(host string, v interface{}, dir string, now time.Time) Status {
	if results.IsFailure(v) {
		return Status{Status: StatusFailed, Details: v}
	}

	running, ok := runningConfig(v)
	if !ok {
		return Status{Status: StatusFailed, Details: v}
	}

	if running == "" {
		return Status{Status: StatusWarning, Message: emptyConfigMessage}
	}

	path, err := WriteConfig(host, running, dir, now)
	if err != nil {
		return Status{Status: StatusFailed, Details: err.Error()}
	}

	return Status{Status: StatusSuccess, Path: path}
}

func runningConfig(v interface{}) (string, bool) {
	switch cfg := v.(type) {
	case map[string]string:
		return cfg["running"], true
	case map[string]interface{}:
		s, _ := cfg["running"].(string)
		return s, true
	default:
		return "", false
	}
}
