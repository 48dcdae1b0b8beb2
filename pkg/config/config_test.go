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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadAndValidateFormats(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{
			name: "json",
			file: "netrunner.json",
			body: `{"inventory":{"hosts_file":"inv/hosts.yaml"},"engine":{"workers":5,"device_timeout":"10s"}}`,
		},
		{
			name: "yaml",
			file: "netrunner.yaml",
			body: "inventory:\n  hosts_file: inv/hosts.yaml\nengine:\n  workers: 5\n  device_timeout: 10s\n",
		},
		{
			name: "toml",
			file: "netrunner.toml",
			body: "[inventory]\nhosts_file = \"inv/hosts.yaml\"\n\n[engine]\nworkers = 5\ndevice_timeout = \"10s\"\n",
		},
	}

	t.Setenv("CONFIG_SOURCE", "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.body)

			var cfg models.ServiceConfig

			err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg)
			require.NoError(t, err)

			assert.Equal(t, "inv/hosts.yaml", cfg.Inventory.HostsFile)
			assert.Equal(t, 5, cfg.Engine.Workers)
			assert.Equal(t, models.Duration(10*time.Second), cfg.Engine.DeviceTimeout)
			assert.Equal(t, models.TransportStdio, cfg.MCP.Transport)
		})
	}
}

func TestFileLoaderRejectsUnknownFields(t *testing.T) {
	for _, tc := range []struct{ file, body string }{
		{"bad.json", `{"inventroy":{}}`},
		{"bad.yaml", "inventroy: {}\n"},
		{"bad.toml", "[inventroy]\nx = 1\n"},
	} {
		path := writeFile(t, tc.file, tc.body)

		var cfg models.ServiceConfig

		err := NewFileConfigLoader(nil).Load(context.Background(), path, &cfg)
		require.Error(t, err, tc.file)
	}
}

func TestFileLoaderErrors(t *testing.T) {
	var cfg models.ServiceConfig

	loader := NewFileConfigLoader(nil)

	require.ErrorIs(t, loader.Load(context.Background(), "", &cfg), errConfigPathRequired)
	require.Error(t, loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"), &cfg))
	require.ErrorIs(t, loader.Load(context.Background(), writeFile(t, "cfg.ini", "x=1"), &cfg), errUnsupportedExtension)
}

func TestEmptyYAMLFileFailsValidationNotDecoding(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	var cfg models.ServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), writeFile(t, "empty.yaml", ""), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hosts_file")
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "")
	t.Setenv("NETRUNNER_CONFIG_JSON", "")
	t.Setenv("NETRUNNER_INVENTORY_SOURCE", "postgres")
	t.Setenv("NETRUNNER_INVENTORY_HOSTS_FILE", "unused.yaml")
	t.Setenv("NETRUNNER_INVENTORY_POSTGRES_HOST", "db.internal")
	t.Setenv("NETRUNNER_INVENTORY_POSTGRES_DATABASE", "netbox")
	t.Setenv("NETRUNNER_INVENTORY_POSTGRES_MAX_CONNECTIONS", "8")
	t.Setenv("NETRUNNER_ENGINE_WORKERS", "7")
	t.Setenv("NETRUNNER_ENGINE_DEVICE_TIMEOUT", "45s")
	t.Setenv("NETRUNNER_MCP_TRANSPORT", "http")
	t.Setenv("NETRUNNER_NATS_URL", "nats://nats:4222")

	var cfg models.ServiceConfig

	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "", &cfg)
	require.NoError(t, err)

	assert.Equal(t, models.InventorySourcePostgres, cfg.Inventory.Source)
	require.NotNil(t, cfg.Inventory.Postgres)
	assert.Equal(t, "db.internal", cfg.Inventory.Postgres.Host)
	assert.Equal(t, int32(8), cfg.Inventory.Postgres.MaxConnections)
	assert.Equal(t, "devices", cfg.Inventory.Postgres.Table)
	assert.Equal(t, 7, cfg.Engine.Workers)
	assert.Equal(t, models.Duration(45*time.Second), cfg.Engine.DeviceTimeout)
	assert.Equal(t, models.TransportHTTP, cfg.MCP.Transport)
	require.NotNil(t, cfg.NATS)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
}

func TestEnvLoaderConfigJSON(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "NR_")
	t.Setenv("NR_CONFIG_JSON", `{"inventory":{"hosts_file":"/etc/netrunner/hosts.yaml"}}`)

	var cfg models.ServiceConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg))
	assert.Equal(t, "/etc/netrunner/hosts.yaml", cfg.Inventory.HostsFile)
	assert.Nil(t, cfg.NATS)
}

func TestEnvLoaderSkipsInvalidValues(t *testing.T) {
	t.Setenv("NETRUNNER_ENGINE_WORKERS", "many")
	t.Setenv("NETRUNNER_INVENTORY_HOSTS_FILE", "hosts.yaml")

	var cfg models.ServiceConfig

	require.NoError(t, NewEnvConfigLoader(nil, DefaultEnvPrefix).Load(context.Background(), "", &cfg))
	assert.Equal(t, 0, cfg.Engine.Workers)
	assert.Equal(t, "hosts.yaml", cfg.Inventory.HostsFile)
}

func TestEnvLoaderRequiresStructPointer(t *testing.T) {
	loader := NewEnvConfigLoader(nil, "X_")

	var notStruct int

	require.ErrorIs(t, loader.Load(context.Background(), "", nil), ErrDstMustBeNonNilPointer)
	require.ErrorIs(t, loader.Load(context.Background(), "", &notStruct), ErrDstMustBePointerToStruct)
}

func TestInvalidConfigSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg models.ServiceConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "x.json", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}
