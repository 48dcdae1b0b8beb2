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

package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blacklistYAML = `
exact_commands:
  - Reload
  - write erase
keywords:
  - delete
  - format
disallowed_patterns:
  - "|"
  - ">"
  - ";"
`

func writeBlacklist(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "blacklist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestValidate(t *testing.T) {
	v := NewCommandValidator(writeBlacklist(t, blacklistYAML), nil)

	tests := []struct {
		cmd  string
		want string
	}{
		{"show version", ""},
		{"show run | include hostname", "Command contains disallowed pattern: '|'"},
		{"  RELOAD  ", "Command is explicitly blacklisted."},
		{"reload in 5", ""},
		{"Delete flash:old.bin", "Command contains blacklisted keyword: 'delete'"},
		{"show deleted-files", ""},
		{"show formatting", ""},
		{"format disk0:", "Command contains blacklisted keyword: 'format'"},
		{"write erase; reload", "Command contains disallowed pattern: ';'"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Validate(tt.cmd))
		})
	}
}

func TestValidateAll(t *testing.T) {
	v := NewCommandValidatorFrom(Blacklist{Keywords: []string{"shutdown"}})

	cmd, reason := v.ValidateAll([]string{"interface Gi0/1", "shutdown", "delete x"})
	assert.Equal(t, "shutdown", cmd)
	assert.Equal(t, "Command contains blacklisted keyword: 'shutdown'", reason)

	cmd, reason = v.ValidateAll([]string{"no shut"})
	assert.Empty(t, cmd)
	assert.Empty(t, reason)
}

func TestLoadBlacklistScalarValues(t *testing.T) {
	bl, err := LoadBlacklist(writeBlacklist(t, "Keywords: ERASE\nexact_commands: [Reload]\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"erase"}, bl.Keywords)
	assert.Equal(t, []string{"reload"}, bl.ExactCommands)
	assert.Empty(t, bl.DisallowedPatterns)
}

func TestUnusableBlacklistAllowsEverything(t *testing.T) {
	paths := map[string]string{
		"missing": filepath.Join(t.TempDir(), "nope.yaml"),
		"empty":   writeBlacklist(t, ""),
		"invalid": writeBlacklist(t, "keywords: [unclosed\n"),
	}

	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			v := NewCommandValidator(path, nil)

			assert.Empty(t, v.Validate("reload"))
			assert.Equal(t, Blacklist{ExactCommands: []string{}, Keywords: []string{}, DisallowedPatterns: []string{}}, v.Blacklist())
		})
	}
}
