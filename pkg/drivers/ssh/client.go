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

// Package ssh implements CLI tasks (config retrieval, show commands, config
// changes, ping) over SSH.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/carverauto/netrunner/pkg/models"
)

const (
	defaultSSHPort  = 22
	defaultTimeout  = 15 * time.Second
	terminalWidth   = 511
	terminalHeight  = 0
	terminalType    = "vt100"
	privateKeyField = "ssh_private_key_file"
)

var errNoCredentials = errors.New("no password or private key configured")

// shell is one authenticated connection to a device.
type shell interface {
	// Run executes a single exec-channel command.
	Run(ctx context.Context, cmd string) (string, error)
	// Script feeds lines to an interactive shell and returns its output.
	Script(ctx context.Context, lines []string) (string, error)
	Close() error
}

type dialFunc func(ctx context.Context, device *models.Device) (shell, error)

type sshShell struct {
	client *ssh.Client
}

func (o *Options) clientConfig(device *models.Device) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if keyFile := device.DataString(privateKeyField, ""); keyFile != "" {
		pem, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}

		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		auth = append(auth, ssh.PublicKeys(signer))
	}

	if device.Password != "" {
		password := device.Password
		auth = append(auth,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}

				return answers, nil
			}),
		)
	}

	if len(auth) == 0 {
		return nil, fmt.Errorf("%s: %w", device.Name, errNoCredentials)
	}

	hostKeyCallback, err := o.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            device.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         o.Timeout,
	}, nil
}

func (o *Options) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if o.KnownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // lab devices rotate keys; opt in with known_hosts_file
	}

	cb, err := knownhosts.New(o.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts: %w", err)
	}

	return cb, nil
}

func (d *Driver) dialDevice(ctx context.Context, device *models.Device) (shell, error) {
	cfg, err := d.opts.clientConfig(device)
	if err != nil {
		return nil, err
	}

	port := device.Port
	if port == 0 {
		port = defaultSSHPort
	}

	addr := net.JoinHostPort(device.Hostname, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: d.opts.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}

	return &sshShell{client: ssh.NewClient(c, chans, reqs)}, nil
}

// closeOnCancel closes the session when ctx ends before the returned stop
// function is called.
func closeOnCancel(ctx context.Context, sess *ssh.Session) (stop func()) {
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			_ = sess.Close()
		case <-done:
		}
	}()

	return func() { close(done) }
}

func (s *sshShell) Run(ctx context.Context, cmd string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer func() { _ = sess.Close() }()

	stop := closeOnCancel(ctx, sess)
	defer stop()

	out, err := sess.CombinedOutput(cmd)
	if err != nil {
		if ctx.Err() != nil {
			return string(out), ctx.Err()
		}

		return string(out), fmt.Errorf("command %q failed: %w", cmd, err)
	}

	return string(out), nil
}

func (s *sshShell) Script(ctx context.Context, lines []string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer func() { _ = sess.Close() }()

	stop := closeOnCancel(ctx, sess)
	defer stop()

	var buf bytes.Buffer

	sess.Stdout = &buf
	sess.Stderr = &buf

	stdin, err := sess.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stdin: %w", err)
	}

	modes := ssh.TerminalModes{ssh.ECHO: 0}
	if err := sess.RequestPty(terminalType, terminalHeight, terminalWidth, modes); err != nil {
		return "", fmt.Errorf("failed to request pty: %w", err)
	}

	if err := sess.Shell(); err != nil {
		return "", fmt.Errorf("failed to start shell: %w", err)
	}

	script := append(append([]string(nil), lines...), "exit")

	for _, line := range script {
		if _, err := fmt.Fprintln(stdin, line); err != nil {
			return buf.String(), fmt.Errorf("failed to send %q: %w", line, err)
		}
	}

	_ = stdin.Close()

	if err := sess.Wait(); err != nil {
		var missing *ssh.ExitMissingError
		if !errors.As(err, &missing) {
			if ctx.Err() != nil {
				return buf.String(), ctx.Err()
			}

			return buf.String(), fmt.Errorf("shell session failed: %w", err)
		}
	}

	return buf.String(), nil
}

func (s *sshShell) Close() error {
	return s.client.Close()
}
