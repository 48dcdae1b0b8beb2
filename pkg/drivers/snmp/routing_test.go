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

package snmp

import (
	"context"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/models"
)

func ipAddress(name, value string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: name, Type: gosnmp.IPAddress, Value: value}
}

func counter(name string, value uint) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: name, Type: gosnmp.Counter32, Value: value}
}

func bgpPeer(column, addr string) string {
	return oidBGPPeerTable + "." + column + "." + addr
}

func bgpSession() *fakeSession {
	const up, down = "10.0.0.2", "10.0.0.6"

	return &fakeSession{
		get: []gosnmp.SnmpPDU{
			integer(oidBGPLocalAs, 65000),
			ipAddress(oidBGPIdentifier, "192.0.2.1"),
		},
		walk: []gosnmp.SnmpPDU{
			ipAddress(bgpPeer(colBGPPeerIdentifier, up), "10.255.0.2"),
			integer(bgpPeer(colBGPPeerState, up), 6),
			integer(bgpPeer(colBGPPeerAdminStatus, up), 2),
			ipAddress(bgpPeer(colBGPPeerLocalAddr, up), "10.0.0.1"),
			integer(bgpPeer(colBGPPeerRemoteAs, up), 65001),
			counter(bgpPeer(colBGPPeerInUpdates, up), 12),
			counter(bgpPeer(colBGPPeerTransitions, up), 3),
			gauge(bgpPeer(colBGPPeerEstablishedTime, up), 3600),
			integer(bgpPeer(colBGPPeerHoldTime, up), 180),
			{Name: bgpPeer(colBGPPeerLastError, up), Type: gosnmp.OctetString, Value: []byte{6, 2}},
			ipAddress(bgpPeer(colBGPPeerIdentifier, down), "0.0.0.0"),
			integer(bgpPeer(colBGPPeerState, down), 3),
			integer(bgpPeer(colBGPPeerAdminStatus, down), 1),
			integer(bgpPeer(colBGPPeerRemoteAs, down), 65002),
			gauge(bgpPeer(colBGPPeerEstablishedTime, down), 50),
		},
	}
}

func TestBGPNeighbors(t *testing.T) {
	s := bgpSession()

	out, err := driverWith(s).BGPNeighbors(context.Background(), &models.Device{Name: "edge-1"}, engine.Params{})
	require.NoError(t, err)
	assert.True(t, s.closed)

	global := out.(map[string]interface{})["global"].(map[string]interface{})
	assert.Equal(t, "192.0.2.1", global["router_id"])

	peers := global["peers"].(map[string]*BGPPeer)
	require.Len(t, peers, 2)

	up := peers["10.0.0.2"]
	assert.Equal(t, int64(65000), up.LocalAS)
	assert.Equal(t, int64(65001), up.RemoteAS)
	assert.Equal(t, "10.255.0.2", up.RemoteID)
	assert.True(t, up.IsUp)
	assert.True(t, up.IsEnabled)
	assert.InDelta(t, 3600, up.Uptime, 0.001)
	assert.Nil(t, up.Detail)

	down := peers["10.0.0.6"]
	assert.False(t, down.IsUp)
	assert.False(t, down.IsEnabled)
	assert.InDelta(t, -1, down.Uptime, 0.001)
}

func TestBGPNeighborsDetailForOnePeer(t *testing.T) {
	out, err := driverWith(bgpSession()).BGPNeighbors(context.Background(), &models.Device{Name: "edge-1"},
		engine.Params{"neighbor": "10.0.0.2", "detail": true})
	require.NoError(t, err)

	peers := out.(map[string]interface{})["global"].(map[string]interface{})["peers"].(map[string]*BGPPeer)
	require.Len(t, peers, 1)

	detail := peers["10.0.0.2"].Detail
	require.NotNil(t, detail)
	assert.Equal(t, "Established", detail.ConnectionState)
	assert.Equal(t, "10.0.0.1", detail.LocalAddress)
	assert.Equal(t, uint64(12), detail.InputUpdates)
	assert.Equal(t, uint64(3), detail.FlapCount)
	assert.Equal(t, 180, detail.HoldTime)
	assert.Equal(t, "6/2", detail.LastError)
}

func TestBGPNeighborsWithoutBGP(t *testing.T) {
	s := &fakeSession{get: []gosnmp.SnmpPDU{{Name: oidBGPLocalAs, Type: gosnmp.NoSuchObject}}}

	out, err := driverWith(s).BGPNeighbors(context.Background(), &models.Device{Name: "sw1"}, engine.Params{})
	require.NoError(t, err)

	global := out.(map[string]interface{})["global"].(map[string]interface{})
	assert.Equal(t, "", global["router_id"])
	assert.Empty(t, global["peers"])
}

func TestBGPNeighborsWalkFailure(t *testing.T) {
	s := &fakeSession{walkErrs: map[string]error{oidBGPPeerTable: errUnreachable}}

	_, err := driverWith(s).BGPNeighbors(context.Background(), &models.Device{Name: "r1"}, engine.Params{})
	require.ErrorIs(t, err, errUnreachable)
}

func TestInterfacesIP(t *testing.T) {
	s := &fakeSession{walk: []gosnmp.SnmpPDU{
		ipAddress(oidIPAddrTable+".1.10.0.0.1", "10.0.0.1"),
		integer(oidIPAddrTable+".2.10.0.0.1", 1),
		ipAddress(oidIPAddrTable+".3.10.0.0.1", "255.255.255.252"),
		integer(oidIPAddrTable+".2.10.1.0.1", 1),
		ipAddress(oidIPAddrTable+".3.10.1.0.1", "255.255.255.0"),
		integer(oidIPAddrTable+".2.192.0.2.1", 2),
		ipAddress(oidIPAddrTable+".3.192.0.2.1", "255.255.255.255"),
		integer(oidIPAddrTable+".2.198.51.100.1", 7),
		ipAddress(oidIPAddrTable+".3.198.51.100.1", "255.255.255.0"),
		octets(oidIfTable+".2.1", "GigabitEthernet0/0"),
		octets(oidIfTable+".2.2", "Loopback0"),
		octets(oidIfXTable+".1.1", "Gi0/0"),
	}}

	out, err := driverWith(s).InterfacesIP(context.Background(), &models.Device{Name: "r1"}, engine.Params{})
	require.NoError(t, err)
	assert.True(t, s.closed)

	ifaces := out.(map[string]map[string]map[string]IPAddress)
	require.Len(t, ifaces, 3)

	assert.Equal(t, map[string]IPAddress{
		"10.0.0.1": {PrefixLength: 30},
		"10.1.0.1": {PrefixLength: 24},
	}, ifaces["Gi0/0"]["ipv4"])
	assert.Equal(t, 32, ifaces["Loopback0"]["ipv4"]["192.0.2.1"].PrefixLength)
	assert.Contains(t, ifaces, "7")
}

func TestInterfacesIPWalkFailure(t *testing.T) {
	s := &fakeSession{walkErrs: map[string]error{oidIPAddrTable: errUnreachable}}

	_, err := driverWith(s).InterfacesIP(context.Background(), &models.Device{Name: "r1"}, engine.Params{})
	require.ErrorIs(t, err, errUnreachable)
}

func TestMaskLength(t *testing.T) {
	assert.Equal(t, 24, maskLength("255.255.255.0"))
	assert.Equal(t, 0, maskLength("255.0.255.0"))
	assert.Equal(t, 0, maskLength("not-a-mask"))
}
