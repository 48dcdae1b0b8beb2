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

// Package snmp implements the read-only getters (facts, interfaces, LLDP
// neighbors) over SNMP.
package snmp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
)

const (
	defaultCommunity      = "public"
	defaultVersion        = "2c"
	defaultPort           = 161
	defaultTimeout        = 5 * time.Second
	defaultRetries        = 1
	defaultMaxRepetitions = 10
)

var (
	ErrUnsupportedVersion = errors.New("unsupported SNMP version")
	ErrSNMPGetFailed      = errors.New("SNMP get failed")
	ErrSNMPError          = errors.New("SNMP error")
	ErrNoSNMPData         = errors.New("no SNMP data returned")
)

// session is the part of *gosnmp.GoSNMP the getters use.
type session interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Walk(rootOid string, walkFn gosnmp.WalkFunc) error
	BulkWalk(rootOid string, walkFn gosnmp.WalkFunc) error
}

type openFunc func(ctx context.Context, device *models.Device) (session, func(), error)

// Options tunes SNMP requests. Zero values use defaults.
type Options struct {
	Timeout time.Duration
	Retries int
}

// Driver runs SNMP getters against one device per call. A fresh UDP session
// is opened and closed for every call.
type Driver struct {
	opts   Options
	logger logger.Logger
	open   openFunc
}

// New returns an SNMP driver.
func New(opts Options, log logger.Logger) *Driver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	d := &Driver{opts: opts, logger: log}
	d.open = d.dial

	return d
}

func (d *Driver) dial(ctx context.Context, device *models.Device) (session, func(), error) {
	client, err := d.newClient(ctx, device)
	if err != nil {
		return nil, nil, err
	}

	if err := client.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s:%d: %w", client.Target, client.Port, err)
	}

	closeFn := func() {
		if err := client.Conn.Close(); err != nil {
			d.logger.Debug().Err(err).Str("device", device.Name).Msg("Failed to close SNMP connection")
		}
	}

	return client, closeFn, nil
}

// newClient builds a gosnmp client from the device's snmp_* data keys.
func (d *Driver) newClient(ctx context.Context, device *models.Device) (*gosnmp.GoSNMP, error) {
	client := &gosnmp.GoSNMP{
		Context:            ctx,
		Target:             device.Hostname,
		Port:               uint16(device.DataInt("snmp_port", defaultPort)), //nolint:gosec // port range checked by config
		Timeout:            d.opts.Timeout,
		Retries:            d.opts.Retries,
		MaxOids:            gosnmp.MaxOids,
		MaxRepetitions:     defaultMaxRepetitions,
		ExponentialTimeout: true,
	}

	if err := configureVersion(client, device); err != nil {
		return nil, err
	}

	return client, nil
}

func configureVersion(client *gosnmp.GoSNMP, device *models.Device) error {
	version := strings.ToLower(device.DataString("snmp_version", defaultVersion))
	community := device.DataString("snmp_community", defaultCommunity)

	switch version {
	case "1", "v1":
		client.Version = gosnmp.Version1
		client.Community = community
	case "2c", "v2c", "2":
		client.Version = gosnmp.Version2c
		client.Community = community
	case "3", "v3":
		client.Version = gosnmp.Version3
		client.SecurityModel = gosnmp.UserSecurityModel

		usm := &gosnmp.UsmSecurityParameters{
			UserName: device.DataString("snmp_user", device.Username),
		}

		authSet := configureAuth(usm, device)
		privSet := configurePrivacy(usm, device)

		switch {
		case authSet && privSet:
			client.MsgFlags = gosnmp.AuthPriv
		case authSet:
			client.MsgFlags = gosnmp.AuthNoPriv
		default:
			client.MsgFlags = gosnmp.NoAuthNoPriv
		}

		client.SecurityParameters = usm
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}

	return nil
}

func configureAuth(usm *gosnmp.UsmSecurityParameters, device *models.Device) bool {
	protocols := map[string]gosnmp.SnmpV3AuthProtocol{
		"MD5":    gosnmp.MD5,
		"SHA":    gosnmp.SHA,
		"SHA224": gosnmp.SHA224,
		"SHA256": gosnmp.SHA256,
		"SHA384": gosnmp.SHA384,
		"SHA512": gosnmp.SHA512,
	}

	proto, ok := protocols[strings.ToUpper(device.DataString("snmp_auth_protocol", ""))]
	if !ok {
		return false
	}

	usm.AuthenticationProtocol = proto
	usm.AuthenticationPassphrase = device.DataString("snmp_auth_password", "")

	return true
}

func configurePrivacy(usm *gosnmp.UsmSecurityParameters, device *models.Device) bool {
	protocols := map[string]gosnmp.SnmpV3PrivProtocol{
		"DES":    gosnmp.DES,
		"AES":    gosnmp.AES,
		"AES192": gosnmp.AES192,
		"AES256": gosnmp.AES256,
	}

	proto, ok := protocols[strings.ToUpper(device.DataString("snmp_priv_protocol", ""))]
	if !ok {
		return false
	}

	usm.PrivacyProtocol = proto
	usm.PrivacyPassphrase = device.DataString("snmp_priv_password", "")

	return true
}

// walk uses GETBULK except for SNMPv1, which only supports GETNEXT.
func walk(s session, root string, fn gosnmp.WalkFunc) error {
	if c, ok := s.(*gosnmp.GoSNMP); ok && c.Version == gosnmp.Version1 {
		return s.Walk(root, fn)
	}

	return s.BulkWalk(root, fn)
}
