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
	"fmt"
	"net"
	"strconv"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/models"
)

const (
	// BGP4-MIB
	oidBGPLocalAs    = ".1.3.6.1.2.1.15.2.0"
	oidBGPIdentifier = ".1.3.6.1.2.1.15.4.0"
	oidBGPPeerTable  = ".1.3.6.1.2.1.15.3.1"

	colBGPPeerIdentifier      = "1"
	colBGPPeerState           = "2"
	colBGPPeerAdminStatus     = "3"
	colBGPPeerLocalAddr       = "5"
	colBGPPeerLocalPort       = "6"
	colBGPPeerRemotePort      = "8"
	colBGPPeerRemoteAs        = "9"
	colBGPPeerInUpdates       = "10"
	colBGPPeerOutUpdates      = "11"
	colBGPPeerInTotalMessages = "12"
	colBGPPeerOutTotalMsgs    = "13"
	colBGPPeerLastError       = "14"
	colBGPPeerTransitions     = "15"
	colBGPPeerEstablishedTime = "16"
	colBGPPeerConnectRetry    = "17"
	colBGPPeerHoldTime        = "18"
	colBGPPeerKeepAlive       = "19"

	bgpStateEstablished = 6
	bgpAdminStart       = 2
	bgpLastErrorLength  = 2

	// IP-MIB ipAddrTable
	oidIPAddrTable      = ".1.3.6.1.2.1.4.20.1"
	colIPAdEntIfIndex   = "2"
	colIPAdEntNetMask   = "3"
	addressFamilyIPv4   = "ipv4"
	ifDescrColumnSuffix = "." + colIfDescr
	ifNameColumnSuffix  = "." + colIfName
)

//nolint:gochecknoglobals // bgpPeerState enumeration
var bgpStates = map[int64]string{
	1: "Idle",
	2: "Connect",
	3: "Active",
	4: "OpenSent",
	5: "OpenConfirm",
	6: "Established",
}

// BGPPeer is one bgpPeerTable row keyed by remote address.
type BGPPeer struct {
	LocalAS     int64          `json:"local_as"`
	RemoteAS    int64          `json:"remote_as"`
	RemoteID    string         `json:"remote_id"`
	IsUp        bool           `json:"is_up"`
	IsEnabled   bool           `json:"is_enabled"`
	Uptime      float64        `json:"uptime"`
	Description string         `json:"description"`
	Detail      *BGPPeerDetail `json:"detail,omitempty"`
}

// BGPPeerDetail carries the session counters and timers returned when the
// "detail" parameter is set.
type BGPPeerDetail struct {
	ConnectionState     string `json:"connection_state"`
	LocalAddress        string `json:"local_address"`
	LocalPort           int    `json:"local_port"`
	RemotePort          int    `json:"remote_port"`
	InputUpdates        uint64 `json:"input_updates"`
	OutputUpdates       uint64 `json:"output_updates"`
	InputMessages       uint64 `json:"input_messages"`
	OutputMessages      uint64 `json:"output_messages"`
	FlapCount           uint64 `json:"flap_count"`
	HoldTime            int    `json:"holdtime"`
	KeepAlive           int    `json:"keepalive"`
	ConnectRetryTimer   int    `json:"connect_retry"`
	LastError           string `json:"last_error"`
	established         bool
	adminStart          bool
	establishedDuration uint64
}

// BGPNeighbors walks the BGP4-MIB peer table. The "neighbor" parameter
// narrows the result to one remote address and "detail" adds counters.
func (d *Driver) BGPNeighbors(ctx context.Context, device *models.Device, params engine.Params) (interface{}, error) {
	s, closeFn, err := d.open(ctx, device)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	localAS, routerID := queryBGPLocal(s)

	peers := make(map[string]*BGPPeer)

	if err := walk(s, oidBGPPeerTable, func(pdu gosnmp.SnmpPDU) error {
		processBGPPeerPDU(pdu, peers)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to walk bgpPeerTable: %w", err)
	}

	only := params.String("neighbor", "")
	detail := params.Bool("detail", false)

	out := make(map[string]*BGPPeer, len(peers))

	for addr, p := range peers {
		if only != "" && addr != only {
			continue
		}

		p.LocalAS = localAS
		p.IsUp = p.Detail.established
		p.IsEnabled = p.Detail.adminStart

		if p.IsUp {
			p.Uptime = float64(p.Detail.establishedDuration)
		} else {
			p.Uptime = -1
		}

		if !detail {
			p.Detail = nil
		}

		out[addr] = p
	}

	return map[string]interface{}{
		"global": map[string]interface{}{
			"router_id": routerID,
			"peers":     out,
		},
	}, nil
}

// queryBGPLocal reads the local AS and BGP identifier. Agents without BGP
// answer noSuchObject, which leaves both zero.
func queryBGPLocal(s session) (localAS int64, routerID string) {
	result, err := s.Get([]string{oidBGPLocalAs, oidBGPIdentifier})
	if err != nil || result.Error != gosnmp.NoError {
		return 0, ""
	}

	for _, v := range result.Variables {
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance || v.Type == gosnmp.Null {
			continue
		}

		switch v.Name {
		case oidBGPLocalAs:
			localAS = gosnmp.ToBigInt(v.Value).Int64()
		case oidBGPIdentifier:
			routerID = pduString(v)
		}
	}

	return localAS, routerID
}

// processBGPPeerPDU handles bgpPeerEntry rows indexed by the remote address.
func processBGPPeerPDU(pdu gosnmp.SnmpPDU, peers map[string]*BGPPeer) {
	column, addr, ok := splitColumn(pdu.Name, oidBGPPeerTable)
	if !ok || net.ParseIP(addr) == nil {
		return
	}

	p, ok := peers[addr]
	if !ok {
		p = &BGPPeer{Detail: &BGPPeerDetail{}}
		peers[addr] = p
	}

	n := gosnmp.ToBigInt(pdu.Value)

	switch column {
	case colBGPPeerIdentifier:
		p.RemoteID = pduString(pdu)
	case colBGPPeerState:
		p.Detail.established = n.Int64() == bgpStateEstablished
		p.Detail.ConnectionState = bgpStates[n.Int64()]
	case colBGPPeerAdminStatus:
		p.Detail.adminStart = n.Int64() == bgpAdminStart
	case colBGPPeerLocalAddr:
		p.Detail.LocalAddress = pduString(pdu)
	case colBGPPeerLocalPort:
		p.Detail.LocalPort = int(n.Int64())
	case colBGPPeerRemotePort:
		p.Detail.RemotePort = int(n.Int64())
	case colBGPPeerRemoteAs:
		p.RemoteAS = n.Int64()
	case colBGPPeerInUpdates:
		p.Detail.InputUpdates = n.Uint64()
	case colBGPPeerOutUpdates:
		p.Detail.OutputUpdates = n.Uint64()
	case colBGPPeerInTotalMessages:
		p.Detail.InputMessages = n.Uint64()
	case colBGPPeerOutTotalMsgs:
		p.Detail.OutputMessages = n.Uint64()
	case colBGPPeerLastError:
		p.Detail.LastError = formatBGPError(pdu)
	case colBGPPeerTransitions:
		p.Detail.FlapCount = n.Uint64()
	case colBGPPeerEstablishedTime:
		p.Detail.establishedDuration = n.Uint64()
	case colBGPPeerConnectRetry:
		p.Detail.ConnectRetryTimer = int(n.Int64())
	case colBGPPeerHoldTime:
		p.Detail.HoldTime = int(n.Int64())
	case colBGPPeerKeepAlive:
		p.Detail.KeepAlive = int(n.Int64())
	}
}

// formatBGPError renders the two-octet NOTIFICATION code and subcode.
func formatBGPError(pdu gosnmp.SnmpPDU) string {
	b, ok := pdu.Value.([]byte)
	if !ok || len(b) != bgpLastErrorLength || (b[0] == 0 && b[1] == 0) {
		return ""
	}

	return fmt.Sprintf("%d/%d", b[0], b[1])
}

// IPAddress is one configured address on an interface.
type IPAddress struct {
	PrefixLength int `json:"prefix_length"`
}

// InterfacesIP walks ipAddrTable and groups the IPv4 addresses by interface
// name, resolving ifIndex through ifName and ifDescr.
func (d *Driver) InterfacesIP(ctx context.Context, device *models.Device, _ engine.Params) (interface{}, error) {
	s, closeFn, err := d.open(ctx, device)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	rows := make(map[string]*ipAddrRow)

	if err := walk(s, oidIPAddrTable, func(pdu gosnmp.SnmpPDU) error {
		processIPAddrPDU(pdu, rows)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to walk ipAddrTable: %w", err)
	}

	ifMap := make(map[int]*Interface)

	if err := walk(s, oidIfTable+ifDescrColumnSuffix, func(pdu gosnmp.SnmpPDU) error {
		processIfTablePDU(pdu, ifMap)
		return nil
	}); err != nil {
		d.logger.Debug().Err(err).Str("device", device.Name).Msg("ifDescr walk failed")
	}

	if err := walk(s, oidIfXTable+ifNameColumnSuffix, func(pdu gosnmp.SnmpPDU) error {
		processIfXTablePDU(pdu, ifMap)
		return nil
	}); err != nil {
		d.logger.Debug().Err(err).Str("device", device.Name).Msg("ifName walk failed")
	}

	return addressesByInterface(rows, ifMap), nil
}

type ipAddrRow struct {
	ifIndex      int
	prefixLength int
}

// processIPAddrPDU handles ipAddrEntry rows indexed by the address itself.
func processIPAddrPDU(pdu gosnmp.SnmpPDU, rows map[string]*ipAddrRow) {
	column, addr, ok := splitColumn(pdu.Name, oidIPAddrTable)
	if !ok || net.ParseIP(addr) == nil {
		return
	}

	r, ok := rows[addr]
	if !ok {
		r = &ipAddrRow{}
		rows[addr] = r
	}

	switch column {
	case colIPAdEntIfIndex:
		r.ifIndex = int(gosnmp.ToBigInt(pdu.Value).Int64())
	case colIPAdEntNetMask:
		r.prefixLength = maskLength(pduString(pdu))
	}
}

func maskLength(mask string) int {
	ip := net.ParseIP(mask).To4()
	if ip == nil {
		return 0
	}

	ones, bits := net.IPMask(ip).Size()
	if bits == 0 {
		return 0
	}

	return ones
}

func addressesByInterface(rows map[string]*ipAddrRow, ifMap map[int]*Interface) map[string]map[string]map[string]IPAddress {
	out := make(map[string]map[string]map[string]IPAddress)

	for addr, r := range rows {
		name := strconv.Itoa(r.ifIndex)

		if iface, ok := ifMap[r.ifIndex]; ok {
			switch {
			case iface.Name != "":
				name = iface.Name
			case iface.descr != "":
				name = iface.descr
			}
		}

		families, ok := out[name]
		if !ok {
			families = map[string]map[string]IPAddress{addressFamilyIPv4: {}}
			out[name] = families
		}

		families[addressFamilyIPv4][addr] = IPAddress{PrefixLength: r.prefixLength}
	}

	return out
}
