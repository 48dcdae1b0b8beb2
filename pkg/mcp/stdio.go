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

package mcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
)

const maxStdioMessage = 16 << 20

//nolint:gochecknoglobals // swapped in tests
var (
	stdin  = func() io.Reader { return os.Stdin }
	stdout = func() io.Writer { return os.Stdout }
)

// ServeStdio reads newline-delimited JSON-RPC messages from r and writes one
// reply line per request to w. It returns nil when r reaches EOF.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxStdioMessage)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			msg := append([]byte(nil), line...)

			select {
			case lines <- msg:
			case <-ctx.Done():
				return
			}
		}

		readErr <- scanner.Err()
	}()

	s.logger.Info().Msg("MCP stdio transport ready")

	bw := bufio.NewWriter(w)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("failed to read stdin: %w", err)
					}
				default:
				}

				return nil
			}

			out := s.HandleMessage(ctx, msg)
			if out == nil {
				continue
			}

			if _, err := bw.Write(append(out, '\n')); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}

			if err := bw.Flush(); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
		}
	}
}
