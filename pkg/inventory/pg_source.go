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
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
)

var (
	errPostgresConfigRequired = errors.New("postgres inventory config is required")
	errPostgresTLSFiles       = errors.New("postgres tls: cert_file, key_file, and ca_file are required")
	errPostgresCAAppend       = errors.New("postgres tls: unable to append CA certificate")
)

// Querier is the subset of *pgxpool.Pool the Postgres source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the device table on every Snapshot call.
type PostgresSource struct {
	db     Querier
	query  string
	logger logger.Logger
}

// NewPostgresSource builds a source over an existing pool or connection.
// The table name is quoted as an identifier.
func NewPostgresSource(db Querier, table string, log logger.Logger) *PostgresSource {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &PostgresSource{
		db:     db,
		query:  devicesQuery(table),
		logger: log,
	}
}

// devicesQuery quotes table per dot-separated part, so "inventory.devices"
// reads the devices table of the inventory schema.
func devicesQuery(table string) string {
	return `SELECT name,
		COALESCE(hostname, ''),
		COALESCE(platform, ''),
		COALESCE(groups, '{}'::text[]),
		COALESCE(port, 0),
		COALESCE(username, ''),
		COALESCE(password, ''),
		COALESCE(data, '{}'::jsonb)
	FROM ` + pgx.Identifier(strings.Split(table, ".")).Sanitize() + `
	ORDER BY name`
}

// Snapshot implements Source.
func (p *PostgresSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	rows, err := p.db.Query(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var devices []models.Device

	for rows.Next() {
		var (
			d    models.Device
			port int32
		)

		if err := rows.Scan(&d.Name, &d.Hostname, &d.Platform, &d.Groups, &port,
			&d.Username, &d.Password, &d.Data); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}

		d.Port = int(port)

		if d.Hostname == "" {
			d.Hostname = d.Name
		}

		if d.Groups == nil {
			d.Groups = []string{}
		}

		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inventory rows: %w", err)
	}

	p.logger.Debug().Int("hosts", len(devices)).Msg("Loaded inventory snapshot from postgres")

	return NewSnapshot(devices...), nil
}

// NewPool dials the inventory database and returns a pgx pool.
func NewPool(ctx context.Context, cfg *models.PostgresConfig, log logger.Logger) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, errPostgresConfigRequired
	}

	poolConfig, err := poolConfigFor(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to initialize pool: %w", err)
	}

	if log != nil {
		log.Info().
			Str("host", cfg.Host).
			Str("database", cfg.Database).
			Int32("max_conns", poolConfig.MaxConns).
			Msg("Connected to inventory database")
	}

	return pool, nil
}

func poolConfigFor(cfg *models.PostgresConfig) (*pgxpool.Config, error) {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	query := connURL.Query()

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)

	if cfg.ApplicationName != "" {
		query.Set("application_name", cfg.ApplicationName)
	}

	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	if cfg.MinConnections > 0 {
		poolConfig.MinConns = cfg.MinConnections
	}

	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime)
	}

	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = time.Duration(cfg.HealthCheckPeriod)
	}

	params := poolConfig.ConnConfig.RuntimeParams
	if params == nil {
		params = make(map[string]string)
		poolConfig.ConnConfig.RuntimeParams = params
	}

	for k, v := range cfg.ExtraRuntimeParams {
		if k != "" {
			params[k] = v
		}
	}

	if cfg.StatementTimeout > 0 {
		ms := time.Duration(cfg.StatementTimeout) / time.Millisecond
		params["statement_timeout"] = strconv.FormatInt(int64(ms), 10)
	}

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	if tlsConfig != nil {
		poolConfig.ConnConfig.TLSConfig = tlsConfig
	}

	return poolConfig, nil
}

func buildTLSConfig(cfg *models.PostgresConfig) (*tls.Config, error) {
	if cfg.TLS == nil {
		return nil, nil
	}

	resolve := func(path string) string {
		if path == "" || filepath.IsAbs(path) || cfg.CertDir == "" {
			return path
		}

		return filepath.Join(cfg.CertDir, path)
	}

	certFile := resolve(cfg.TLS.CertFile)
	keyFile := resolve(cfg.TLS.KeyFile)
	caFile := resolve(cfg.TLS.CAFile)

	if certFile == "" || keyFile == "" || caFile == "" {
		return nil, errPostgresTLSFiles
	}

	clientCert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("postgres tls: failed to load client keypair: %w", err)
	}

	caBytes, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("postgres tls: failed to read CA file: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caBytes) {
		return nil, errPostgresCAAppend
	}

	return &tls.Config{
		Certificates: []tls.Certificate{clientCert},
		RootCAs:      caPool,
		MinVersion:   tls.VersionTLS12,
		ServerName:   cfg.Host,
	}, nil
}
