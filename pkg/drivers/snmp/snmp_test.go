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
	"errors"
	"strings"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/models"
)

var errUnreachable = errors.New("request timeout (after 1 retries)")

type fakeSession struct {
	get      []gosnmp.SnmpPDU
	walk     []gosnmp.SnmpPDU
	walkErrs map[string]error
	closed   bool
}

func (f *fakeSession) Get(_ []string) (*gosnmp.SnmpPacket, error) {
	return &gosnmp.SnmpPacket{Variables: f.get}, nil
}

func (f *fakeSession) Walk(root string, fn gosnmp.WalkFunc) error {
	return f.BulkWalk(root, fn)
}

func (f *fakeSession) BulkWalk(root string, fn gosnmp.WalkFunc) error {
	if err := f.walkErrs[root]; err != nil {
		return err
	}

	for _, pdu := range f.walk {
		if strings.HasPrefix(pdu.Name, root+".") {
			if err := fn(pdu); err != nil {
				return err
			}
		}
	}

	return nil
}

func driverWith(s *fakeSession) *Driver {
	d := New(Options{}, nil)
	d.open = func(context.Context, *models.Device) (session, func(), error) {
		return s, func() { s.closed = true }, nil
	}

	return d
}

func octets(name, value string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: name, Type: gosnmp.OctetString, Value: []byte(value)}
}

func integer(name string, value int) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: name, Type: gosnmp.Integer, Value: value}
}

func gauge(name string, value uint) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: name, Type: gosnmp.Gauge32, Value: value}
}

func TestFacts(t *testing.T) {
	s := &fakeSession{get: []gosnmp.SnmpPDU{
		octets(oidSysDescr, "Cisco IOS Software, Version 15.9(3)M"),
		{Name: oidSysObjectID, Type: gosnmp.ObjectIdentifier, Value: ".1.3.6.1.4.1.9.1.2593"},
		{Name: oidSysUptime, Type: gosnmp.TimeTicks, Value: uint32(123456)},
		octets(oidSysName, "edge-1.lab.example"),
		octets(oidSysLocation, "AMS1"),
		{Name: oidSysContact, Type: gosnmp.NoSuchObject},
	}}

	out, err := driverWith(s).Facts(context.Background(), &models.Device{Name: "edge-1"}, nil)
	require.NoError(t, err)
	assert.True(t, s.closed)

	facts := out.(map[string]interface{})
	assert.Equal(t, "Cisco", facts["vendor"])
	assert.Equal(t, "edge-1", facts["hostname"])
	assert.Equal(t, "edge-1.lab.example", facts["fqdn"])
	assert.InDelta(t, 1234.56, facts["uptime"], 0.001)
	assert.Equal(t, "AMS1", facts["location"])
	assert.Equal(t, "", facts["contact"])
}

func TestFactsNoData(t *testing.T) {
	s := &fakeSession{get: []gosnmp.SnmpPDU{{Name: oidSysDescr, Type: gosnmp.NoSuchObject}}}

	_, err := driverWith(s).Facts(context.Background(), &models.Device{Name: "r1"}, nil)
	require.ErrorIs(t, err, ErrNoSNMPData)
}

func ifWalk() []gosnmp.SnmpPDU {
	return []gosnmp.SnmpPDU{
		octets(oidIfTable+".2.1", "GigabitEthernet0/0"),
		integer(oidIfTable+".4.1", 1500),
		gauge(oidIfTable+".5.1", 1_000_000_000),
		{Name: oidIfTable + ".6.1", Type: gosnmp.OctetString, Value: []byte{0x00, 0x1b, 0x54, 0xaa, 0xbb, 0xcc}},
		integer(oidIfTable+".7.1", 1),
		integer(oidIfTable+".8.1", 2),
		octets(oidIfTable+".2.2", "Loopback0"),
		integer(oidIfTable+".7.2", 1),
		integer(oidIfTable+".8.2", 1),
		octets(oidIfXTable+".1.1", "Gi0/0"),
		gauge(oidIfXTable+".15.1", 10_000),
		octets(oidIfXTable+".18.1", "uplink to core-1"),
	}
}

func TestInterfaces(t *testing.T) {
	s := &fakeSession{walk: ifWalk()}

	out, err := driverWith(s).Interfaces(context.Background(), &models.Device{Name: "r1"}, engine.Params{})
	require.NoError(t, err)

	ifaces := out.(map[string]*Interface)
	require.Len(t, ifaces, 2)

	gi := ifaces["Gi0/0"]
	require.NotNil(t, gi)
	assert.True(t, gi.IsEnabled)
	assert.False(t, gi.IsUp)
	assert.Equal(t, "uplink to core-1", gi.Description)
	assert.InDelta(t, 10000, gi.Speed, 0.001)
	assert.Equal(t, 1500, gi.MTU)
	assert.Equal(t, "00:1B:54:AA:BB:CC", gi.MACAddress)
	assert.InDelta(t, -1, gi.LastFlapped, 0.001)

	lo := ifaces["Loopback0"]
	require.NotNil(t, lo)
	assert.True(t, lo.IsUp)
}

func TestInterfacesNarrowedByName(t *testing.T) {
	s := &fakeSession{
		walk:     ifWalk(),
		walkErrs: map[string]error{oidIfXTable: errUnreachable},
	}

	out, err := driverWith(s).Interfaces(context.Background(), &models.Device{Name: "r1"},
		engine.Params{"interface": "GigabitEthernet0/0"})
	require.NoError(t, err, "ifXTable is optional")

	ifaces := out.(map[string]*Interface)
	require.Len(t, ifaces, 1)
	assert.InDelta(t, 1000, ifaces["GigabitEthernet0/0"].Speed, 0.001)
}

func TestInterfacesWalkFailure(t *testing.T) {
	s := &fakeSession{walkErrs: map[string]error{oidIfTable: errUnreachable}}

	_, err := driverWith(s).Interfaces(context.Background(), &models.Device{Name: "r1"}, engine.Params{})
	require.ErrorIs(t, err, errUnreachable)
}

func TestLLDPNeighbors(t *testing.T) {
	s := &fakeSession{walk: []gosnmp.SnmpPDU{
		octets(oidLLDPLocPortTable+".3.5", "Gi0/1"),
		octets(oidLLDPLocPortTable+".4.5", "GigabitEthernet0/1"),
		octets(oidLLDPLocPortTable+".3.6", "Gi0/2"),
		octets(oidLLDPRemTable+".9.0.5.1", "core-1"),
		octets(oidLLDPRemTable+".7.0.5.1", "Ethernet1"),
		octets(oidLLDPRemTable+".9.0.5.2", "core-2"),
		octets(oidLLDPRemTable+".8.0.5.2", "Ethernet2"),
		{Name: oidLLDPRemTable + ".7.0.6.1", Type: gosnmp.OctetString, Value: []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}},
		octets(oidLLDPRemTable+".9.0.7.1", ""),
	}}

	out, err := driverWith(s).LLDPNeighbors(context.Background(), &models.Device{Name: "r1"}, nil)
	require.NoError(t, err)

	neighbors := out.(map[string][]Neighbor)
	assert.Equal(t, []Neighbor{
		{Hostname: "core-1", Port: "Ethernet1"},
		{Hostname: "core-2", Port: "Ethernet2"},
	}, neighbors["GigabitEthernet0/1"])
	assert.Equal(t, []Neighbor{{Port: "DE:AD:BE:EF:00:01"}}, neighbors["Gi0/2"])
	assert.NotContains(t, neighbors, "7")
}

func TestConfigureVersion(t *testing.T) {
	tests := []struct {
		name      string
		data      map[string]interface{}
		version   gosnmp.SnmpVersion
		community string
		flags     gosnmp.SnmpV3MsgFlags
		wantErr   bool
	}{
		{name: "defaults", version: gosnmp.Version2c, community: "public"},
		{name: "v1", data: map[string]interface{}{"snmp_version": "1", "snmp_community": "ro"}, version: gosnmp.Version1, community: "ro"},
		{
			name: "v3 auth priv",
			data: map[string]interface{}{
				"snmp_version": "3", "snmp_user": "netops",
				"snmp_auth_protocol": "sha256", "snmp_auth_password": "a",
				"snmp_priv_protocol": "aes", "snmp_priv_password": "p",
			},
			version: gosnmp.Version3,
			flags:   gosnmp.AuthPriv,
		},
		{
			name:    "v3 auth only",
			data:    map[string]interface{}{"snmp_version": "v3", "snmp_auth_protocol": "sha"},
			version: gosnmp.Version3,
			flags:   gosnmp.AuthNoPriv,
		},
		{name: "bogus", data: map[string]interface{}{"snmp_version": "4"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &gosnmp.GoSNMP{}
			err := configureVersion(client, &models.Device{Name: "r1", Username: "admin", Data: tt.data})

			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedVersion)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.version, client.Version)
			assert.Equal(t, tt.community, client.Community)

			if tt.version == gosnmp.Version3 {
				assert.Equal(t, tt.flags, client.MsgFlags)
			}
		})
	}
}

func TestNewClientUsesDevicePort(t *testing.T) {
	d := New(Options{}, nil)

	client, err := d.newClient(context.Background(), &models.Device{
		Name:     "r1",
		Hostname: "192.0.2.1",
		Data:     map[string]interface{}{"snmp_port": 1161},
	})
	require.NoError(t, err)

	assert.Equal(t, "192.0.2.1", client.Target)
	assert.Equal(t, uint16(1161), client.Port)
	assert.Equal(t, defaultTimeout, client.Timeout)
}

func TestVendorFromObjectID(t *testing.T) {
	assert.Equal(t, "Juniper", vendorFromObjectID("1.3.6.1.4.1.2636.1.1.1.2.29"))
	assert.Equal(t, "enterprise-99999", vendorFromObjectID(".1.3.6.1.4.1.99999.1"))
	assert.Equal(t, "", vendorFromObjectID(".1.3.6.1.2.1"))
}
