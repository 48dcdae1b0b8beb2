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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/engine"
)

const iosTrace = `Type escape sequence to abort.
Tracing the route to 192.0.2.9
VRF info: (vrf in name/id, vrf out name/id)
  1 10.0.0.1 [AS 65000] 1 msec 1 msec 0 msec
  2 *  *  *
  3 192.0.2.9 4 msec *  3 msec
`

const junosTrace = `traceroute to 192.0.2.9 (192.0.2.9), 30 hops max, 40 byte packets
 1  core-1.example.net (10.0.0.1)  0.512 ms  0.440 ms  0.398 ms
 2  192.0.2.9  1.201 ms  1.100 ms  1.050 ms
`

func TestTraceroute(t *testing.T) {
	sh := &fakeShell{outputs: map[string]string{
		"traceroute vrf MGMT 192.0.2.9 source Loopback0 ttl 1 255 timeout 2": iosTrace,
	}}

	out, err := driverWith(sh).Traceroute(context.Background(), device("ios"), engine.Params{
		"destination": "192.0.2.9",
		"source":      "Loopback0",
		"vrf":         "MGMT",
	})
	require.NoError(t, err)
	assert.True(t, sh.closed)

	hops := out.(map[string]map[int]*TracerouteHop)["success"]
	require.Len(t, hops, 3)

	assert.Equal(t, TracerouteReply{RTT: 1, IPAddress: "10.0.0.1", HostName: "10.0.0.1"}, hops[1].Replies[1])
	assert.Len(t, hops[1].Replies, 3)
	assert.Equal(t, "*", hops[2].Replies[3].IPAddress)
	assert.Equal(t, "*", hops[3].Replies[2].IPAddress)
	assert.InDelta(t, 3, hops[3].Replies[3].RTT, 0.001)
}

func TestParseTracerouteHostNames(t *testing.T) {
	hops, err := parseTraceroute(junosTrace)
	require.NoError(t, err)
	require.Len(t, hops, 2)

	assert.Equal(t, TracerouteReply{RTT: 0.512, IPAddress: "10.0.0.1", HostName: "core-1.example.net"}, hops[1].Replies[1])
	assert.Equal(t, "192.0.2.9", hops[2].Replies[3].IPAddress)
}

func TestTracerouteUnparseable(t *testing.T) {
	sh := &fakeShell{outputs: map[string]string{
		"traceroute 192.0.2.9 source lo0 vrf blue": "% Invalid input detected at '^' marker.\n",
	}}

	_, err := driverWith(sh).Traceroute(context.Background(), device("nxos"), engine.Params{
		"destination": "192.0.2.9",
		"source":      "lo0",
		"vrf":         "blue",
	})
	require.ErrorIs(t, err, ErrTracerouteOutput)
}

func TestTracerouteCommands(t *testing.T) {
	o := &TracerouteOptions{Destination: "1.1.1.1", Source: "lo0", VRF: "blue", TTL: 30, Timeout: 1}

	assert.Equal(t, "traceroute vrf blue 1.1.1.1 source lo0 maxttl 30 timeout 1", iosxrTraceroute(o))
	assert.Equal(t, "traceroute vrf blue 1.1.1.1 -s lo0 -m 30 -w 1", eosTraceroute(o))
	assert.Equal(t, "traceroute 1.1.1.1 ttl 30 wait 1 source lo0 routing-instance blue no-resolve", junosTraceroute(o))

	for name, p := range platforms {
		assert.NotNil(t, p.traceroute, name)
	}
}
