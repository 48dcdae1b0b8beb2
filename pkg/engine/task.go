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

package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/carverauto/netrunner/pkg/models"
)

// Kind identifies one of the automation tasks the engine can run.
type Kind string

const (
	KindGetFacts         Kind = "get_facts"
	KindGetInterfaces    Kind = "get_interfaces"
	KindGetLLDPNeighbors Kind = "get_lldp_neighbors"
	KindGetBGPNeighbors  Kind = "get_bgp_neighbors"
	KindGetInterfacesIP  Kind = "get_interfaces_ip"
	KindGetConfig        Kind = "get_config"
	KindSendCommand      Kind = "send_command"
	KindSendConfig       Kind = "send_config"
	KindPing             Kind = "ping"
	KindTraceroute       Kind = "traceroute"
)

// Kinds returns every supported task kind.
func Kinds() []Kind {
	return []Kind{
		KindGetFacts,
		KindGetInterfaces,
		KindGetLLDPNeighbors,
		KindGetBGPNeighbors,
		KindGetInterfacesIP,
		KindGetConfig,
		KindSendCommand,
		KindSendConfig,
		KindPing,
		KindTraceroute,
	}
}

// Valid reports whether k is a supported task kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}

	return false
}

// ParseKind converts a task name into a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, name)
	}

	return k, nil
}

// ConfigRetrieve values accepted by get_config.
const (
	RetrieveAll       = "all"
	RetrieveRunning   = "running"
	RetrieveStartup   = "startup"
	RetrieveCandidate = "candidate"
)

// ValidateParams checks the parameters a kind requires before any device is
// contacted.
func (k Kind) ValidateParams(p Params) error {
	switch k {
	case KindSendCommand:
		if p.String("command", "") == "" {
			return fmt.Errorf("%w: %s requires a non-empty 'command'", ErrInvalidParams, k)
		}
	case KindSendConfig:
		cmds, err := p.Strings("commands")
		if err != nil {
			return err
		}

		if len(cmds) == 0 {
			return fmt.Errorf("%w: %s requires a non-empty 'commands' list", ErrInvalidParams, k)
		}
	case KindGetConfig:
		switch p.String("retrieve", RetrieveAll) {
		case RetrieveAll, RetrieveRunning, RetrieveStartup, RetrieveCandidate:
		default:
			return fmt.Errorf("%w: retrieve must be one of all, running, startup, candidate", ErrInvalidParams)
		}
	case KindPing, KindTraceroute:
		if p.String("destination", "") == "" {
			return fmt.Errorf("%w: %s requires a 'destination'", ErrInvalidParams, k)
		}

		return checkTokens(p, "destination", "source", "vrf")
	case KindGetFacts, KindGetInterfaces, KindGetLLDPNeighbors, KindGetBGPNeighbors, KindGetInterfacesIP:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTask, string(k))
	}

	return nil
}

// checkTokens requires each named parameter to be a single CLI word, since
// drivers splice them into a command line.
func checkTokens(p Params, keys ...string) error {
	for _, key := range keys {
		v := p.String(key, "")

		if strings.IndexFunc(v, func(r rune) bool {
			return unicode.IsSpace(r) || unicode.IsControl(r)
		}) >= 0 {
			return fmt.Errorf("%w: %s must not contain whitespace or control characters", ErrInvalidParams, key)
		}
	}

	return nil
}

// Params carries task-specific keyword arguments.
type Params map[string]interface{}

// String returns the string value of key, or def when it is missing or empty.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}

	switch typed := v.(type) {
	case string:
		if typed == "" {
			return def
		}

		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// Int returns the integer value of key, or def when it is missing or not numeric.
func (p Params) Int(key string, def int) int {
	switch typed := p[key].(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case string:
		if n, err := strconv.Atoi(typed); err == nil {
			return n
		}
	}

	return def
}

// Bool returns the boolean value of key, or def.
func (p Params) Bool(key string, def bool) bool {
	switch typed := p[key].(type) {
	case bool:
		return typed
	case string:
		if b, err := strconv.ParseBool(typed); err == nil {
			return b
		}
	}

	return def
}

// Strings returns a string list stored under key. JSON-decoded []interface{}
// values are accepted as long as every element is a string.
func (p Params) Strings(key string) ([]string, error) {
	switch typed := p[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return typed, nil
	case string:
		return []string{typed}, nil
	case []interface{}:
		out := make([]string, 0, len(typed))

		for i, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] is not a string", ErrInvalidParams, key, i)
			}

			out = append(out, s)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a list of strings", ErrInvalidParams, key)
	}
}

// Handler runs one task against one device. The returned value becomes the
// payload of a single successful Result, unless it is a SubResults value.
type Handler func(ctx context.Context, device *models.Device, params Params) (interface{}, error)

// SubResults lets a handler record several results for one device. The
// device is failed when any of them failed.
type SubResults []Result
