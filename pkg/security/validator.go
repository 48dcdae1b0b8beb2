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

// Package security screens CLI commands against an operator blacklist.
package security

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/netrunner/pkg/logger"
)

const (
	keyExactCommands      = "exact_commands"
	keyKeywords           = "keywords"
	keyDisallowedPatterns = "disallowed_patterns"
)

// Blacklist holds lower-cased blacklist entries.
type Blacklist struct {
	ExactCommands      []string
	Keywords           []string
	DisallowedPatterns []string
}

// CommandValidator rejects commands matching the blacklist.
type CommandValidator struct {
	blacklist Blacklist
	keywords  []*regexp.Regexp
}

// NewCommandValidator loads the blacklist from path. A missing, empty or
// unparseable file leaves every list empty; the problem is logged.
func NewCommandValidator(path string, log logger.Logger) *CommandValidator {
	if log == nil {
		log = logger.NewTestLogger()
	}

	bl, err := LoadBlacklist(path)

	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn().Str("path", path).Msg("Blacklist file not found, command validation will be limited")
	case errors.Is(err, errEmptyBlacklist):
		log.Warn().Str("path", path).Msg("Blacklist file is empty, using default restrictions")
	case err != nil:
		log.Error().Err(err).Str("path", path).Msg("Failed to load command blacklist")
	default:
		log.Info().Str("path", path).Msg("Command blacklist loaded")
	}

	return NewCommandValidatorFrom(bl)
}

// NewCommandValidatorFrom builds a validator over an in-memory blacklist.
func NewCommandValidatorFrom(bl Blacklist) *CommandValidator {
	v := &CommandValidator{blacklist: Blacklist{
		ExactCommands:      lower(bl.ExactCommands),
		Keywords:           lower(bl.Keywords),
		DisallowedPatterns: lower(bl.DisallowedPatterns),
	}}

	for _, kw := range v.blacklist.Keywords {
		v.keywords = append(v.keywords, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
	}

	return v
}

var errEmptyBlacklist = errors.New("blacklist file is empty")

// LoadBlacklist reads a YAML blacklist. Scalar values are treated as
// one-element lists and everything is lower-cased.
func LoadBlacklist(path string) (Blacklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Blacklist{}, err
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Blacklist{}, fmt.Errorf("failed to parse blacklist %s: %w", path, err)
	}

	if raw == nil {
		return Blacklist{}, errEmptyBlacklist
	}

	lists := make(map[string][]string, len(raw))

	for k, v := range raw {
		lists[strings.ToLower(k)] = toList(v)
	}

	return Blacklist{
		ExactCommands:      lists[keyExactCommands],
		Keywords:           lists[keyKeywords],
		DisallowedPatterns: lists[keyDisallowedPatterns],
	}, nil
}

func toList(v interface{}) []string {
	switch typed := v.(type) {
	case nil:
		return nil
	case []interface{}:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, strings.ToLower(fmt.Sprint(item)))
		}

		return out
	default:
		return []string{strings.ToLower(fmt.Sprint(typed))}
	}
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}

	return out
}

// Blacklist returns the normalized blacklist.
func (v *CommandValidator) Blacklist() Blacklist {
	return v.blacklist
}

// Validate returns "" when cmd is allowed, otherwise the reason it is not.
func (v *CommandValidator) Validate(cmd string) string {
	c := strings.ToLower(strings.TrimSpace(cmd))

	for _, p := range v.blacklist.DisallowedPatterns {
		if strings.Contains(c, p) {
			return fmt.Sprintf("Command contains disallowed pattern: '%s'", p)
		}
	}

	for _, exact := range v.blacklist.ExactCommands {
		if c == exact {
			return "Command is explicitly blacklisted."
		}
	}

	for i, re := range v.keywords {
		if re.MatchString(c) {
			return fmt.Sprintf("Command contains blacklisted keyword: '%s'", v.blacklist.Keywords[i])
		}
	}

	return ""
}

// ValidateAll returns the first rejection among cmds, keyed by command.
func (v *CommandValidator) ValidateAll(cmds []string) (cmd, reason string) {
	for _, c := range cmds {
		if r := v.Validate(c); r != "" {
			return c, r
		}
	}

	return "", ""
}
