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
	"sort"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/models"
)

const (
	// System group
	oidSysDescr    = ".1.3.6.1.2.1.1.1.0"
	oidSysObjectID = ".1.3.6.1.2.1.1.2.0"
	oidSysUptime   = ".1.3.6.1.2.1.1.3.0"
	oidSysContact  = ".1.3.6.1.2.1.1.4.0"
	oidSysName     = ".1.3.6.1.2.1.1.5.0"
	oidSysLocation = ".1.3.6.1.2.1.1.6.0"

	// ifTable columns
	oidIfTable       = ".1.3.6.1.2.1.2.2.1"
	colIfDescr       = "2"
	colIfMtu         = "4"
	colIfSpeed       = "5"
	colIfPhysAddress = "6"
	colIfAdminStatus = "7"
	colIfOperStatus  = "8"

	// ifXTable columns
	oidIfXTable    = ".1.3.6.1.2.1.31.1.1.1"
	colIfName      = "1"
	colIfHighSpeed = "15"
	colIfAlias     = "18"

	// LLDP-MIB
	oidLLDPLocPortTable = ".1.0.8802.1.1.2.1.3.7.1"
	colLLDPLocPortID    = "3"
	colLLDPLocPortDesc  = "4"
	oidLLDPRemTable     = ".1.0.8802.1.1.2.1.4.1.1"
	colLLDPRemPortID    = "7"
	colLLDPRemPortDesc  = "8"
	colLLDPRemSysName   = "9"

	ifStatusUp        = 1
	macAddressLength  = 6
	ticksPerSecond    = 100
	bitsPerMegabit    = 1_000_000
	lldpRemIndexParts = 3
	enterprisesPrefix = ".1.3.6.1.4.1."
)

//nolint:gochecknoglobals // fixed enterprise number table
var enterpriseVendors = map[string]string{
	"9":     "Cisco",
	"2636":  "Juniper",
	"30065": "Arista",
	"2011":  "Huawei",
	"25506": "H3C",
	"6527":  "Nokia",
	"14988": "MikroTik",
	"41112": "Ubiquiti",
}

// Facts reads the system group.
func (d *Driver) Facts(ctx context.Context, device *models.Device, _ engine.Params) (interface{}, error) {
	s, closeFn, err := d.open(ctx, device)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return querySysInfo(s)
}

func querySysInfo(s session) (map[string]interface{}, error) {
	oids := []string{oidSysDescr, oidSysObjectID, oidSysUptime, oidSysContact, oidSysName, oidSysLocation}

	result, err := s.Get(oids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSNMPGetFailed, err)
	}

	if result.Error != gosnmp.NoError {
		return nil, fmt.Errorf("%w: %s", ErrSNMPError, result.Error)
	}

	facts := map[string]interface{}{
		"hostname":      "",
		"fqdn":          "",
		"vendor":        "",
		"os_version":    "",
		"uptime":        float64(0),
		"contact":       "",
		"location":      "",
		"object_id":     "",
		"model":         "",
		"serial_number": "",
	}

	found := false

	for _, v := range result.Variables {
		if v.Type == gosnmp.NoSuchObject || v.Type == gosnmp.NoSuchInstance || v.Type == gosnmp.Null {
			continue
		}

		found = true

		switch v.Name {
		case oidSysDescr:
			facts["os_version"] = pduString(v)
		case oidSysObjectID:
			oid := pduString(v)
			facts["object_id"] = oid
			facts["vendor"] = vendorFromObjectID(oid)
		case oidSysUptime:
			facts["uptime"] = float64(gosnmp.ToBigInt(v.Value).Uint64()) / ticksPerSecond
		case oidSysContact:
			facts["contact"] = pduString(v)
		case oidSysName:
			name := pduString(v)
			facts["fqdn"] = name
			facts["hostname"] = strings.SplitN(name, ".", 2)[0]
		case oidSysLocation:
			facts["location"] = pduString(v)
		}
	}

	if !found {
		return nil, ErrNoSNMPData
	}

	return facts, nil
}

func vendorFromObjectID(oid string) string {
	if !strings.HasPrefix(oid, ".") {
		oid = "." + oid
	}

	if !strings.HasPrefix(oid, enterprisesPrefix) {
		return ""
	}

	number := strings.SplitN(strings.TrimPrefix(oid, enterprisesPrefix), ".", 2)[0]
	if vendor, ok := enterpriseVendors[number]; ok {
		return vendor
	}

	return "enterprise-" + number
}

// Interface is the per-interface record returned by get_interfaces.
type Interface struct {
	Name        string  `json:"-"`
	IfIndex     int     `json:"if_index"`
	IsUp        bool    `json:"is_up"`
	IsEnabled   bool    `json:"is_enabled"`
	Description string  `json:"description"`
	Speed       float64 `json:"speed"`
	MTU         int     `json:"mtu"`
	MACAddress  string  `json:"mac_address"`
	LastFlapped float64 `json:"last_flapped"`
	descr       string
	highSpeed   uint64
}

// Interfaces walks ifTable and ifXTable. An "interface" parameter narrows the
// result to that interface name.
func (d *Driver) Interfaces(ctx context.Context, device *models.Device, params engine.Params) (interface{}, error) {
	s, closeFn, err := d.open(ctx, device)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	ifMap := make(map[int]*Interface)

	if err := walk(s, oidIfTable, func(pdu gosnmp.SnmpPDU) error {
		processIfTablePDU(pdu, ifMap)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to walk ifTable: %w", err)
	}

	if err := walk(s, oidIfXTable, func(pdu gosnmp.SnmpPDU) error {
		processIfXTablePDU(pdu, ifMap)
		return nil
	}); err != nil {
		d.logger.Debug().Err(err).Str("device", device.Name).Msg("ifXTable walk failed")
	}

	return interfacesByName(ifMap, params.String("interface", "")), nil
}

// splitColumn returns the table column and row index of a table PDU name.
func splitColumn(name, table string) (column, index string, ok bool) {
	rest := strings.TrimPrefix(strings.TrimPrefix(name, "."), strings.TrimPrefix(table, ".")+".")
	if rest == strings.TrimPrefix(name, ".") {
		return "", "", false
	}

	column, index, ok = strings.Cut(rest, ".")

	return column, index, ok
}

func ifEntry(ifMap map[int]*Interface, index string) *Interface {
	idx, err := strconv.Atoi(index)
	if err != nil {
		return nil
	}

	iface, ok := ifMap[idx]
	if !ok {
		iface = &Interface{IfIndex: idx, LastFlapped: -1}
		ifMap[idx] = iface
	}

	return iface
}

func processIfTablePDU(pdu gosnmp.SnmpPDU, ifMap map[int]*Interface) {
	column, index, ok := splitColumn(pdu.Name, oidIfTable)
	if !ok {
		return
	}

	iface := ifEntry(ifMap, index)
	if iface == nil {
		return
	}

	switch column {
	case colIfDescr:
		iface.descr = pduString(pdu)
	case colIfMtu:
		iface.MTU = int(gosnmp.ToBigInt(pdu.Value).Int64())
	case colIfSpeed:
		if iface.highSpeed == 0 {
			iface.Speed = float64(gosnmp.ToBigInt(pdu.Value).Uint64()) / bitsPerMegabit
		}
	case colIfPhysAddress:
		iface.MACAddress = formatMAC(pdu)
	case colIfAdminStatus:
		iface.IsEnabled = gosnmp.ToBigInt(pdu.Value).Int64() == ifStatusUp
	case colIfOperStatus:
		iface.IsUp = gosnmp.ToBigInt(pdu.Value).Int64() == ifStatusUp
	}
}

func processIfXTablePDU(pdu gosnmp.SnmpPDU, ifMap map[int]*Interface) {
	column, index, ok := splitColumn(pdu.Name, oidIfXTable)
	if !ok {
		return
	}

	iface := ifEntry(ifMap, index)
	if iface == nil {
		return
	}

	switch column {
	case colIfName:
		iface.Name = pduString(pdu)
	case colIfHighSpeed:
		if hs := gosnmp.ToBigInt(pdu.Value).Uint64(); hs > 0 {
			iface.highSpeed = hs
			iface.Speed = float64(hs)
		}
	case colIfAlias:
		iface.Description = pduString(pdu)
	}
}

func interfacesByName(ifMap map[int]*Interface, only string) map[string]*Interface {
	out := make(map[string]*Interface, len(ifMap))

	for _, iface := range ifMap {
		name := iface.Name
		if name == "" {
			name = iface.descr
		}

		if name == "" {
			name = strconv.Itoa(iface.IfIndex)
		}

		if only != "" && name != only {
			continue
		}

		iface.Name = name
		out[name] = iface
	}

	return out
}

// Neighbor is one LLDP neighbor seen on a local port.
type Neighbor struct {
	Hostname string `json:"hostname"`
	Port     string `json:"port"`
}

// LLDPNeighbors walks the LLDP remote table and groups neighbors by local
// port name.
func (d *Driver) LLDPNeighbors(ctx context.Context, device *models.Device, _ engine.Params) (interface{}, error) {
	s, closeFn, err := d.open(ctx, device)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	localPorts := make(map[string]string)

	if err := walk(s, oidLLDPLocPortTable, func(pdu gosnmp.SnmpPDU) error {
		processLocPortPDU(pdu, localPorts)
		return nil
	}); err != nil {
		d.logger.Debug().Err(err).Str("device", device.Name).Msg("lldpLocPortTable walk failed")
	}

	remotes := make(map[string]*lldpRemote)

	if err := walk(s, oidLLDPRemTable, func(pdu gosnmp.SnmpPDU) error {
		processRemTablePDU(pdu, remotes)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to walk lldpRemTable: %w", err)
	}

	return neighborsByPort(remotes, localPorts), nil
}

type lldpRemote struct {
	localPort string
	sysName   string
	portID    string
	portDesc  string
}

func processLocPortPDU(pdu gosnmp.SnmpPDU, localPorts map[string]string) {
	column, port, ok := splitColumn(pdu.Name, oidLLDPLocPortTable)
	if !ok {
		return
	}

	switch column {
	case colLLDPLocPortDesc:
		if desc := pduString(pdu); desc != "" {
			localPorts[port] = desc
		}
	case colLLDPLocPortID:
		if _, set := localPorts[port]; !set {
			localPorts[port] = formatLLDPID(pdu)
		}
	}
}

// processRemTablePDU handles lldpRemEntry rows indexed by
// timeMark.localPortNum.index.
func processRemTablePDU(pdu gosnmp.SnmpPDU, remotes map[string]*lldpRemote) {
	column, index, ok := splitColumn(pdu.Name, oidLLDPRemTable)
	if !ok {
		return
	}

	parts := strings.Split(index, ".")
	if len(parts) != lldpRemIndexParts {
		return
	}

	r, ok := remotes[index]
	if !ok {
		r = &lldpRemote{localPort: parts[1]}
		remotes[index] = r
	}

	switch column {
	case colLLDPRemPortID:
		r.portID = formatLLDPID(pdu)
	case colLLDPRemPortDesc:
		r.portDesc = pduString(pdu)
	case colLLDPRemSysName:
		r.sysName = pduString(pdu)
	}
}

func neighborsByPort(remotes map[string]*lldpRemote, localPorts map[string]string) map[string][]Neighbor {
	out := make(map[string][]Neighbor)

	keys := make([]string, 0, len(remotes))
	for k := range remotes {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		r := remotes[k]

		if r.sysName == "" && r.portID == "" {
			continue
		}

		local := localPorts[r.localPort]
		if local == "" {
			local = r.localPort
		}

		port := r.portID
		if port == "" {
			port = r.portDesc
		}

		out[local] = append(out[local], Neighbor{Hostname: r.sysName, Port: port})
	}

	return out
}

func pduString(pdu gosnmp.SnmpPDU) string {
	switch v := pdu.Value.(type) {
	case []byte:
		return strings.TrimRight(string(v), "\x00")
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func formatMAC(pdu gosnmp.SnmpPDU) string {
	b, ok := pdu.Value.([]byte)
	if !ok || len(b) != macAddressLength {
		return ""
	}

	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}

// formatLLDPID renders 6-byte IDs as MAC addresses and anything else as text.
func formatLLDPID(pdu gosnmp.SnmpPDU) string {
	if mac := formatMAC(pdu); mac != "" {
		return mac
	}

	return pduString(pdu)
}
