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

package ssh

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedPlatform is returned for a device platform with no command table.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// PingOptions are the ping task parameters.
type PingOptions struct {
	Destination string
	Source      string
	VRF         string
	Count       int
	Size        int
	Timeout     int
	TTL         int
}

// TracerouteOptions are the traceroute task parameters.
type TracerouteOptions struct {
	Destination string
	Source      string
	VRF         string
	TTL         int
	Timeout     int
}

// platform holds the CLI dialect of one network OS.
type platform struct {
	running   string
	startup   string
	candidate string
	// configEnter and configExit wrap configuration lines.
	configEnter []string
	configExit  []string
	save        string
	ping        func(o *PingOptions) string
	traceroute  func(o *TracerouteOptions) string
}

//nolint:gochecknoglobals // fixed platform table
var platforms = map[string]*platform{
	"ios": {
		running:     "show running-config",
		startup:     "show startup-config",
		configEnter: []string{"terminal length 0", "configure terminal"},
		configExit:  []string{"end"},
		save:        "write memory",
		ping:        ciscoPing,
		traceroute:  iosTraceroute,
	},
	"iosxr": {
		running:     "show running-config",
		candidate:   "show configuration",
		configEnter: []string{"terminal length 0", "configure terminal"},
		configExit:  []string{"commit", "end"},
		ping:        ciscoPing,
		traceroute:  iosxrTraceroute,
	},
	"nxos": {
		running:     "show running-config",
		startup:     "show startup-config",
		configEnter: []string{"terminal length 0", "configure terminal"},
		configExit:  []string{"end"},
		save:        "copy running-config startup-config",
		ping:        nxosPing,
		traceroute:  nxosTraceroute,
	},
	"eos": {
		running:     "show running-config",
		startup:     "show startup-config",
		configEnter: []string{"terminal length 0", "configure"},
		configExit:  []string{"end"},
		save:        "write memory",
		ping:        eosPing,
		traceroute:  eosTraceroute,
	},
	"junos": {
		running:     "show configuration | no-more",
		candidate:   "show configuration | compare rollback 0 | no-more",
		configEnter: []string{"set cli screen-length 0", "configure"},
		configExit:  []string{"commit and-quit"},
		ping:        junosPing,
		traceroute:  junosTraceroute,
	},
}

//nolint:gochecknoglobals // platform aliases seen in inventories
var platformAliases = map[string]string{
	"cisco_ios":     "ios",
	"cisco_xe":      "ios",
	"iosxe":         "ios",
	"cisco_xr":      "iosxr",
	"cisco_nxos":    "nxos",
	"arista_eos":    "eos",
	"juniper":       "junos",
	"juniper_junos": "junos",
}

func lookupPlatform(name string) (*platform, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := platformAliases[key]; ok {
		key = alias
	}

	p, ok := platforms[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, name)
	}

	return p, nil
}

// Platforms returns the supported platform names.
func Platforms() []string {
	return []string{"eos", "ios", "iosxr", "junos", "nxos"}
}

func ciscoPing(o *PingOptions) string {
	var b strings.Builder

	b.WriteString("ping ")

	if o.VRF != "" {
		b.WriteString("vrf " + o.VRF + " ")
	}

	b.WriteString(o.Destination)
	b.WriteString(" repeat " + strconv.Itoa(o.Count))
	b.WriteString(" size " + strconv.Itoa(o.Size))
	b.WriteString(" timeout " + strconv.Itoa(o.Timeout))

	if o.Source != "" {
		b.WriteString(" source " + o.Source)
	}

	return b.String()
}

func nxosPing(o *PingOptions) string {
	cmd := fmt.Sprintf("ping %s count %d packet-size %d timeout %d", o.Destination, o.Count, o.Size, o.Timeout)

	if o.Source != "" {
		cmd += " source " + o.Source
	}

	if o.VRF != "" {
		cmd += " vrf " + o.VRF
	}

	return cmd
}

func eosPing(o *PingOptions) string {
	cmd := "ping "
	if o.VRF != "" {
		cmd += "vrf " + o.VRF + " "
	}

	cmd += fmt.Sprintf("%s repeat %d size %d", o.Destination, o.Count, o.Size)

	if o.Source != "" {
		cmd += " source " + o.Source
	}

	return cmd
}

func junosPing(o *PingOptions) string {
	cmd := fmt.Sprintf("ping %s count %d size %d ttl %d rapid", o.Destination, o.Count, o.Size, o.TTL)

	if o.Source != "" {
		cmd += " source " + o.Source
	}

	if o.VRF != "" {
		cmd += " routing-instance " + o.VRF
	}

	return cmd
}

func iosTraceroute(o *TracerouteOptions) string {
	cmd := "traceroute "
	if o.VRF != "" {
		cmd += "vrf " + o.VRF + " "
	}

	cmd += o.Destination

	if o.Source != "" {
		cmd += " source " + o.Source
	}

	return cmd + fmt.Sprintf(" ttl 1 %d timeout %d", o.TTL, o.Timeout)
}

func iosxrTraceroute(o *TracerouteOptions) string {
	cmd := "traceroute "
	if o.VRF != "" {
		cmd += "vrf " + o.VRF + " "
	}

	cmd += o.Destination

	if o.Source != "" {
		cmd += " source " + o.Source
	}

	return cmd + fmt.Sprintf(" maxttl %d timeout %d", o.TTL, o.Timeout)
}

func nxosTraceroute(o *TracerouteOptions) string {
	cmd := "traceroute " + o.Destination

	if o.Source != "" {
		cmd += " source " + o.Source
	}

	if o.VRF != "" {
		cmd += " vrf " + o.VRF
	}

	return cmd
}

func eosTraceroute(o *TracerouteOptions) string {
	cmd := "traceroute "
	if o.VRF != "" {
		cmd += "vrf " + o.VRF + " "
	}

	cmd += o.Destination

	if o.Source != "" {
		cmd += " -s " + o.Source
	}

	return cmd + fmt.Sprintf(" -m %d -w %d", o.TTL, o.Timeout)
}

func junosTraceroute(o *TracerouteOptions) string {
	cmd := fmt.Sprintf("traceroute %s ttl %d wait %d", o.Destination, o.TTL, o.Timeout)

	if o.Source != "" {
		cmd += " source " + o.Source
	}

	if o.VRF != "" {
		cmd += " routing-instance " + o.VRF
	}

	return cmd + " no-resolve"
}
