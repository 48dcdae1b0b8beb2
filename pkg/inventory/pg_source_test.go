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

package inventory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
)

var errQueryFailed = errors.New("connection refused")

type fakeRows struct {
	rows   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                     { r.closed = true }
func (r *fakeRows) Err() error                                 { return r.err }
func (*fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (*fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (*fakeRows) RawValues() [][]byte                          { return nil }
func (*fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                     { return r.rows[r.idx-1], nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}

	r.idx++

	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]

	for i, d := range dest {
		if row[i] == nil {
			continue
		}

		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}

	return nil
}

type fakeQuerier struct {
	rows    *fakeRows
	err     error
	queries []string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, sql)

	if q.err != nil {
		return nil, q.err
	}

	return q.rows, nil
}

func TestPostgresSourceSnapshot(t *testing.T) {
	rows := &fakeRows{rows: [][]any{
		{"r1", "10.0.0.1", "ios", []string{"edge"}, int32(22), "admin", "secret", map[string]any{"site": "ams"}},
		{"r2", "", "nxos", nil, int32(0), "", "", map[string]any{}},
	}}
	db := &fakeQuerier{rows: rows}

	src := NewPostgresSource(db, "network devices", nil)

	snap, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len())
	assert.True(t, rows.closed)

	r1 := snap.Hosts["r1"]
	assert.Equal(t, "10.0.0.1", r1.Hostname)
	assert.Equal(t, 22, r1.Port)
	assert.Equal(t, "secret", r1.Password)
	assert.Equal(t, "ams", r1.Data["site"])

	r2 := snap.Hosts["r2"]
	assert.Equal(t, "r2", r2.Hostname)
	assert.Equal(t, []string{}, r2.Groups)

	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0], `FROM "network devices"`)
}

func TestDevicesQuerySchemaQualified(t *testing.T) {
	assert.Contains(t, devicesQuery("inventory.devices"), `FROM "inventory"."devices"`)
	assert.Contains(t, devicesQuery("devices"), `FROM "devices"`)
	assert.Contains(t, devicesQuery(`dev"ices`), `FROM "dev""ices"`)
}

func TestPostgresSourceErrors(t *testing.T) {
	_, err := NewPostgresSource(&fakeQuerier{err: errQueryFailed}, "devices", nil).
		Snapshot(context.Background())
	require.ErrorIs(t, err, errQueryFailed)

	rows := &fakeRows{err: errQueryFailed}
	_, err = NewPostgresSource(&fakeQuerier{rows: rows}, "devices", nil).
		Snapshot(context.Background())
	require.ErrorIs(t, err, errQueryFailed)
}

func TestPoolConfigFor(t *testing.T) {
	cfg := &models.PostgresConfig{
		Host:               "db.local",
		Database:           "inventory",
		Username:           "netrunner",
		Password:           "p@ss",
		ApplicationName:    "netrunner",
		MaxConnections:     8,
		MinConnections:     1,
		MaxConnLifetime:    models.Duration(time.Hour),
		StatementTimeout:   models.Duration(5 * time.Second),
		ExtraRuntimeParams: map[string]string{"search_path": "netops"},
	}

	pc, err := poolConfigFor(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.local", pc.ConnConfig.Host)
	assert.Equal(t, uint16(5432), pc.ConnConfig.Port)
	assert.Equal(t, "inventory", pc.ConnConfig.Database)
	assert.Equal(t, "netrunner", pc.ConnConfig.User)
	assert.Equal(t, "p@ss", pc.ConnConfig.Password)
	assert.Equal(t, int32(8), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
	assert.Equal(t, "5000", pc.ConnConfig.RuntimeParams["statement_timeout"])
	assert.Equal(t, "netops", pc.ConnConfig.RuntimeParams["search_path"])
	assert.Equal(t, "netrunner", pc.ConnConfig.RuntimeParams["application_name"])
	assert.Nil(t, pc.ConnConfig.TLSConfig)
}

func TestBuildTLSConfigRequiresAllFiles(t *testing.T) {
	_, err := buildTLSConfig(&models.PostgresConfig{TLS: &logger.TLSConfig{CertFile: "client.pem"}})
	require.ErrorIs(t, err, errPostgresTLSFiles)

	_, err = NewPool(context.Background(), nil, nil)
	require.ErrorIs(t, err, errPostgresConfigRequired)
}
