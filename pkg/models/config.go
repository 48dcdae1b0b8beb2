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

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/netrunner/pkg/logger"
)

// Duration accepts "30s" strings in JSON, YAML, TOML and env values.
type Duration = logger.Duration

const (
	InventorySourceFile     = "file"
	InventorySourcePostgres = "postgres"

	TransportStdio = "stdio"
	TransportHTTP  = "http"

	defaultWorkers       = 20
	defaultDeviceTimeout = 30 * time.Second
	defaultCallerTimeout = 120 * time.Second
	defaultListenAddr    = "127.0.0.1:8080"
	defaultDevicesTable  = "devices"
	defaultBackupDir     = "backups"
	defaultBlacklistFile = "conf/blacklist.yaml"
	defaultNATSSubject   = "events.netrunner.run"
	defaultNATSStream    = "NETRUNNER_EVENTS"
)

var (
	errUnknownInventorySource = errors.New("unknown inventory source")
	errHostsFileRequired      = errors.New("inventory.hosts_file is required for the file source")
	errPostgresRequired       = errors.New("inventory.postgres is required for the postgres source")
	errPostgresHostRequired   = errors.New("inventory.postgres host and database are required")
	errWorkersInvalid         = errors.New("engine.workers must be positive")
	errUnknownTransport       = errors.New("unknown mcp transport")
	errNATSURLRequired        = errors.New("nats url is required")
)

// ServiceConfig is the netrunner configuration file.
type ServiceConfig struct {
	Inventory InventoryConfig    `json:"inventory" yaml:"inventory" toml:"inventory"`
	Engine    EngineConfig       `json:"engine" yaml:"engine" toml:"engine"`
	Runner    RunnerConfig       `json:"runner" yaml:"runner" toml:"runner"`
	MCP       MCPConfig          `json:"mcp" yaml:"mcp" toml:"mcp"`
	Security  CommandPolicy      `json:"security" yaml:"security" toml:"security"`
	Backup    BackupConfig       `json:"backup" yaml:"backup" toml:"backup"`
	Drivers   DriversConfig      `json:"drivers" yaml:"drivers" toml:"drivers"`
	NATS      *NATSConfig        `json:"nats,omitempty" yaml:"nats,omitempty" toml:"nats,omitempty"`
	Logging   *logger.Config     `json:"logging,omitempty" yaml:"logging,omitempty" toml:"logging,omitempty"`
	Tracing   *logger.OTelConfig `json:"tracing,omitempty" yaml:"tracing,omitempty" toml:"tracing,omitempty"`
}

// InventoryConfig selects where device snapshots come from.
type InventoryConfig struct {
	Source       string          `json:"source" yaml:"source" toml:"source"`
	HostsFile    string          `json:"hosts_file" yaml:"hosts_file" toml:"hosts_file"`
	GroupsFile   string          `json:"groups_file,omitempty" yaml:"groups_file,omitempty" toml:"groups_file,omitempty"`
	DefaultsFile string          `json:"defaults_file,omitempty" yaml:"defaults_file,omitempty" toml:"defaults_file,omitempty"`
	Postgres     *PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty" toml:"postgres,omitempty"`
}

// PostgresConfig describes the inventory database and its pool.
type PostgresConfig struct {
	Host               string            `json:"host" yaml:"host" toml:"host"`
	Port               int               `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`
	Database           string            `json:"database" yaml:"database" toml:"database"`
	Username           string            `json:"username,omitempty" yaml:"username,omitempty" toml:"username,omitempty"`
	Password           string            `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
	SSLMode            string            `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty" toml:"ssl_mode,omitempty"`
	ApplicationName    string            `json:"application_name,omitempty" yaml:"application_name,omitempty" toml:"application_name,omitempty"`
	Table              string            `json:"table,omitempty" yaml:"table,omitempty" toml:"table,omitempty"`
	MaxConnections     int32             `json:"max_connections,omitempty" yaml:"max_connections,omitempty" toml:"max_connections,omitempty"`
	MinConnections     int32             `json:"min_connections,omitempty" yaml:"min_connections,omitempty" toml:"min_connections,omitempty"`
	MaxConnLifetime    Duration          `json:"max_conn_lifetime,omitempty" yaml:"max_conn_lifetime,omitempty" toml:"max_conn_lifetime,omitempty"`
	HealthCheckPeriod  Duration          `json:"health_check_period,omitempty" yaml:"health_check_period,omitempty" toml:"health_check_period,omitempty"`
	StatementTimeout   Duration          `json:"statement_timeout,omitempty" yaml:"statement_timeout,omitempty" toml:"statement_timeout,omitempty"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params,omitempty" yaml:"extra_runtime_params,omitempty" toml:"extra_runtime_params,omitempty"`
	CertDir            string            `json:"cert_dir,omitempty" yaml:"cert_dir,omitempty" toml:"cert_dir,omitempty"`
	TLS                *logger.TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty" toml:"tls,omitempty"`
}

// EngineConfig sizes the fan-out worker pool.
type EngineConfig struct {
	Workers       int      `json:"workers" yaml:"workers" toml:"workers"`
	DeviceTimeout Duration `json:"device_timeout" yaml:"device_timeout" toml:"device_timeout"`
}

// RunnerConfig bounds how long a tool call waits for a fan-out.
type RunnerConfig struct {
	CallerTimeout Duration `json:"caller_timeout" yaml:"caller_timeout" toml:"caller_timeout"`
}

// MCPConfig selects the tool surface transport. APIKey, when set, must be
// presented as a Bearer token on every HTTP request.
type MCPConfig struct {
	Transport      string   `json:"transport" yaml:"transport" toml:"transport"`
	ListenAddr     string   `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty" toml:"listen_addr,omitempty"`
	MaxConnections int      `json:"max_connections,omitempty" yaml:"max_connections,omitempty" toml:"max_connections,omitempty"`
	APIKey         string   `json:"api_key,omitempty" yaml:"api_key,omitempty" toml:"api_key,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty" toml:"allowed_origins,omitempty"`
}

// CommandPolicy points at the command blacklist.
type CommandPolicy struct {
	BlacklistFile string `json:"blacklist_file" yaml:"blacklist_file" toml:"blacklist_file"`
}

// BackupConfig controls where configuration backups land.
type BackupConfig struct {
	Root      string `json:"root,omitempty" yaml:"root,omitempty" toml:"root,omitempty"`
	Directory string `json:"directory" yaml:"directory" toml:"directory"`
}

// DriversConfig tunes the SNMP and SSH device drivers. Zero values use the
// driver defaults.
type DriversConfig struct {
	SNMPTimeout    Duration `json:"snmp_timeout,omitempty" yaml:"snmp_timeout,omitempty" toml:"snmp_timeout,omitempty"`
	SNMPRetries    int      `json:"snmp_retries,omitempty" yaml:"snmp_retries,omitempty" toml:"snmp_retries,omitempty"`
	SSHTimeout     Duration `json:"ssh_timeout,omitempty" yaml:"ssh_timeout,omitempty" toml:"ssh_timeout,omitempty"`
	KnownHostsFile string   `json:"known_hosts_file,omitempty" yaml:"known_hosts_file,omitempty" toml:"known_hosts_file,omitempty"`
}

// NATSConfig configures run-completed event publishing.
type NATSConfig struct {
	URL       string            `json:"url" yaml:"url" toml:"url"`
	Domain    string            `json:"domain,omitempty" yaml:"domain,omitempty" toml:"domain,omitempty"`
	Stream    string            `json:"stream,omitempty" yaml:"stream,omitempty" toml:"stream,omitempty"`
	Subject   string            `json:"subject,omitempty" yaml:"subject,omitempty" toml:"subject,omitempty"`
	CredsFile string            `json:"creds_file,omitempty" yaml:"creds_file,omitempty" toml:"creds_file,omitempty"`
	TLS       *logger.TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty" toml:"tls,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return errNATSURLRequired
	}

	return nil
}

// ApplyDefaults fills unset fields.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Inventory.Source == "" {
		c.Inventory.Source = InventorySourceFile
	}

	if c.Inventory.Postgres != nil && c.Inventory.Postgres.Table == "" {
		c.Inventory.Postgres.Table = defaultDevicesTable
	}

	if c.Engine.Workers == 0 {
		c.Engine.Workers = defaultWorkers
	}

	if c.Engine.DeviceTimeout == 0 {
		c.Engine.DeviceTimeout = Duration(defaultDeviceTimeout)
	}

	if c.Runner.CallerTimeout == 0 {
		c.Runner.CallerTimeout = Duration(defaultCallerTimeout)
	}

	if c.MCP.Transport == "" {
		c.MCP.Transport = TransportStdio
	}

	if c.MCP.ListenAddr == "" {
		c.MCP.ListenAddr = defaultListenAddr
	}

	if c.Security.BlacklistFile == "" {
		c.Security.BlacklistFile = defaultBlacklistFile
	}

	if c.Backup.Directory == "" {
		c.Backup.Directory = defaultBackupDir
	}

	if c.NATS != nil && c.NATS.Subject == "" {
		c.NATS.Subject = defaultNATSSubject
	}

	if c.NATS != nil && c.NATS.Stream == "" {
		c.NATS.Stream = defaultNATSStream
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}
}

// Validate implements config.Validator.
func (c *ServiceConfig) Validate() error {
	switch c.Inventory.Source {
	case InventorySourceFile:
		if c.Inventory.HostsFile == "" {
			return errHostsFileRequired
		}
	case InventorySourcePostgres:
		if c.Inventory.Postgres == nil {
			return errPostgresRequired
		}

		if c.Inventory.Postgres.Host == "" || c.Inventory.Postgres.Database == "" {
			return errPostgresHostRequired
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownInventorySource, c.Inventory.Source)
	}

	if c.Engine.Workers < 0 {
		return errWorkersInvalid
	}

	switch c.MCP.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("%w: %q", errUnknownTransport, c.MCP.Transport)
	}

	if c.NATS != nil {
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	}

	return nil
}
