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

package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/models"
)

const (
	defaultTracerouteTTL     = 255
	defaultTracerouteTimeout = 2
	timedOutReply            = "*"
)

var ErrTracerouteOutput = errors.New("unable to parse traceroute output")

// TracerouteReply is one answer within a hop. Timed out replies carry
// "*" as the address.
type TracerouteReply struct {
	RTT       float64 `json:"rtt"`
	IPAddress string  `json:"ip_address"`
	HostName  string  `json:"host_name"`
}

// TracerouteHop holds the replies of one TTL, numbered from 1.
type TracerouteHop struct {
	Replies map[int]TracerouteReply `json:"replies"`
}

// Traceroute traces the path to a destination and parses each hop line.
func (d *Driver) Traceroute(ctx context.Context, device *models.Device, params engine.Params) (interface{}, error) {
	opts := &TracerouteOptions{
		Destination: params.String("destination", ""),
		Source:      params.String("source", ""),
		VRF:         params.String("vrf", ""),
		TTL:         params.Int("ttl", defaultTracerouteTTL),
		Timeout:     params.Int("timeout", defaultTracerouteTimeout),
	}

	sh, p, err := d.connect(ctx, device)
	if err != nil {
		return nil, err
	}
	defer d.closeShell(device, sh)

	out, err := sh.Run(ctx, p.traceroute(opts))
	if err != nil {
		return nil, err
	}

	hops, err := parseTraceroute(out)
	if err != nil {
		return nil, err
	}

	return map[string]map[int]*TracerouteHop{"success": hops}, nil
}

// "  2 core-1.example.net (10.0.0.1)  0.512 ms  0.44 ms *"
// "  1 10.0.0.1 [AS 65000] 1 msec 1 msec 0 msec"
var hopLine = regexp.MustCompile(`^\s*(\d+)\s+(.+)$`)

func parseTraceroute(out string) (map[int]*TracerouteHop, error) {
	hops := make(map[int]*TracerouteHop)

	for _, line := range strings.Split(out, "\n") {
		m := hopLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}

		ttl, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		replies := parseHopReplies(strings.Fields(m[2]))
		if len(replies) == 0 {
			continue
		}

		hop, ok := hops[ttl]
		if !ok {
			hop = &TracerouteHop{Replies: make(map[int]TracerouteReply)}
			hops[ttl] = hop
		}

		for _, reply := range replies {
			hop.Replies[len(hop.Replies)+1] = reply
		}
	}

	if len(hops) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTracerouteOutput, firstLine(out))
	}

	return hops, nil
}

func parseHopReplies(fields []string) []TracerouteReply {
	var (
		replies []TracerouteReply
		addr    string
		host    string
	)

	for i := 0; i < len(fields); i++ {
		tok := fields[i]

		switch {
		case tok == timedOutReply:
			replies = append(replies, TracerouteReply{IPAddress: timedOutReply})
		case net.ParseIP(tok) != nil:
			addr, host = tok, tok
		case i+1 < len(fields) && isParenthesizedIP(fields[i+1]):
			host = tok
			addr = strings.Trim(fields[i+1], "()")
			i++
		case i+1 < len(fields) && (fields[i+1] == "ms" || fields[i+1] == "msec"):
			rtt, err := strconv.ParseFloat(tok, 64)
			if err != nil || addr == "" {
				continue
			}

			replies = append(replies, TracerouteReply{RTT: rtt, IPAddress: addr, HostName: host})
			i++
		}
	}

	return replies
}

func isParenthesizedIP(tok string) bool {
	return strings.HasPrefix(tok, "(") && strings.HasSuffix(tok, ")") &&
		net.ParseIP(strings.Trim(tok, "()")) != nil
}
