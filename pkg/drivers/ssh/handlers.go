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
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
)

const (
	defaultPingCount   = 5
	defaultPingSize    = 100
	defaultPingTimeout = 2
	defaultPingTTL     = 255

	subResultConfigure = "configure"
	subResultSave      = "save_config"
)

var (
	ErrUnsupportedRetrieve = errors.New("platform does not support this configuration source")
	ErrPingOutput          = errors.New("unable to parse ping output")
)

// Options tunes SSH sessions. Zero values use defaults.
type Options struct {
	Timeout time.Duration
	// KnownHostsFile enables host key checking when set.
	KnownHostsFile string
}

// Driver runs CLI tasks. Each call opens its own connection.
type Driver struct {
	opts   Options
	logger logger.Logger
	dial   dialFunc
}

// New returns an SSH driver.
func New(opts Options, log logger.Logger) *Driver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	d := &Driver{opts: opts, logger: log}
	d.dial = d.dialDevice

	return d
}

// connect resolves the platform before dialing so unsupported devices fail fast.
func (d *Driver) connect(ctx context.Context, device *models.Device) (shell, *platform, error) {
	p, err := lookupPlatform(device.Platform)
	if err != nil {
		return nil, nil, err
	}

	sh, err := d.dial(ctx, device)
	if err != nil {
		return nil, nil, err
	}

	return sh, p, nil
}

func (d *Driver) closeShell(device *models.Device, sh shell) {
	if err := sh.Close(); err != nil {
		d.logger.Debug().Err(err).Str("device", device.Name).Msg("Failed to close SSH connection")
	}
}

// GetConfig returns {running, startup, candidate}. Sources not requested or
// not supported by the platform are empty strings.
func (d *Driver) GetConfig(ctx context.Context, device *models.Device, params engine.Params) (interface{}, error) {
	retrieve := params.String("retrieve", engine.RetrieveAll)

	sh, p, err := d.connect(ctx, device)
	if err != nil {
		return nil, err
	}
	defer d.closeShell(device, sh)

	out := map[string]string{
		engine.RetrieveRunning:   "",
		engine.RetrieveStartup:   "",
		engine.RetrieveCandidate: "",
	}

	sources := []struct {
		name string
		cmd  string
	}{
		{engine.RetrieveRunning, p.running},
		{engine.RetrieveStartup, p.startup},
		{engine.RetrieveCandidate, p.candidate},
	}

	for _, src := range sources {
		if retrieve != engine.RetrieveAll && retrieve != src.name {
			continue
		}

		if src.cmd == "" {
			if retrieve == src.name {
				return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedRetrieve, src.name, device.Platform)
			}

			continue
		}

		text, err := sh.Run(ctx, src.cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to retrieve %s config: %w", src.name, err)
		}

		out[src.name] = text
	}

	return out, nil
}

// SendCommand runs one command and returns its raw output.
func (d *Driver) SendCommand(ctx context.Context, device *models.Device, params engine.Params) (interface{}, error) {
	cmd := params.String("command", "")

	sh, err := d.dial(ctx, device)
	if err != nil {
		return nil, err
	}
	defer d.closeShell(device, sh)

	return sh.Run(ctx, cmd)
}

// SendConfig applies configuration lines inside the platform's config mode.
// With save=true a second sub-result records the save command output.
func (d *Driver) SendConfig(ctx context.Context, device *models.Device, params engine.Params) (interface{}, error) {
	lines, err := params.Strings("commands")
	if err != nil {
		return nil, err
	}

	sh, p, err := d.connect(ctx, device)
	if err != nil {
		return nil, err
	}
	defer d.closeShell(device, sh)

	script := make([]string, 0, len(p.configEnter)+len(lines)+len(p.configExit))
	script = append(script, p.configEnter...)
	script = append(script, lines...)
	script = append(script, p.configExit...)

	out, err := sh.Script(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("failed to apply configuration: %w", err)
	}

	results := engine.SubResults{{Name: subResultConfigure, Result: out}}

	if !params.Bool("save", false) || p.save == "" {
		return results, nil
	}

	saved, err := sh.Run(ctx, p.save)

	save := engine.Result{Name: subResultSave, Result: saved}
	if err != nil {
		save.Failed = true
		save.Exception = err.Error()
	}

	return append(results, save), nil
}

// PingResult mirrors the success block of a ping.
type PingResult struct {
	ProbesSent int     `json:"probes_sent"`
	PacketLoss int     `json:"packet_loss"`
	RTTMin     float64 `json:"rtt_min"`
	RTTAvg     float64 `json:"rtt_avg"`
	RTTMax     float64 `json:"rtt_max"`
}

// Ping runs a ping from the device and parses the summary lines.
func (d *Driver) Ping(ctx context.Context, device *models.Device, params engine.Params) (interface{}, error) {
	opts := &PingOptions{
		Destination: params.String("destination", ""),
		Source:      params.String("source", ""),
		VRF:         params.String("vrf", ""),
		Count:       params.Int("count", defaultPingCount),
		Size:        params.Int("size", defaultPingSize),
		Timeout:     params.Int("timeout", defaultPingTimeout),
		TTL:         params.Int("ttl", defaultPingTTL),
	}

	sh, p, err := d.connect(ctx, device)
	if err != nil {
		return nil, err
	}
	defer d.closeShell(device, sh)

	out, err := sh.Run(ctx, p.ping(opts))
	if err != nil {
		return nil, err
	}

	res, err := parsePing(out, opts.Count)
	if err != nil {
		return nil, err
	}

	return map[string]*PingResult{"success": res}, nil
}

var (
	// Success rate is 100 percent (5/5), round-trip min/avg/max = 1/2/4 ms
	ciscoRate = regexp.MustCompile(`Success rate is (\d+) percent \((\d+)/(\d+)\)`)
	ciscoRTT  = regexp.MustCompile(`min/avg/max\s*=\s*([\d.]+)/([\d.]+)/([\d.]+)`)
	// 5 packets transmitted, 5 packets received, 0% packet loss
	unixRate = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received, ([\d.]+)% packet loss`)
	unixRTT  = regexp.MustCompile(`min/avg/max(?:/[a-z-]+)?\s*=\s*([\d.]+)/([\d.]+)/([\d.]+)`)
)

func parsePing(out string, count int) (*PingResult, error) {
	res := &PingResult{ProbesSent: count}

	switch {
	case ciscoRate.MatchString(out):
		m := ciscoRate.FindStringSubmatch(out)
		received, _ := strconv.Atoi(m[2])
		sent, _ := strconv.Atoi(m[3])
		res.ProbesSent = sent
		res.PacketLoss = sent - received

		if rtt := ciscoRTT.FindStringSubmatch(out); rtt != nil {
			res.RTTMin, res.RTTAvg, res.RTTMax = floats(rtt[1:])
		}
	case unixRate.MatchString(out):
		m := unixRate.FindStringSubmatch(out)
		sent, _ := strconv.Atoi(m[1])
		received, _ := strconv.Atoi(m[2])
		res.ProbesSent = sent
		res.PacketLoss = sent - received

		if rtt := unixRTT.FindStringSubmatch(out); rtt != nil {
			res.RTTMin, res.RTTAvg, res.RTTMax = floats(rtt[1:])
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrPingOutput, firstLine(out))
	}

	return res, nil
}

func floats(s []string) (a, b, c float64) {
	a, _ = strconv.ParseFloat(s[0], 64)
	b, _ = strconv.ParseFloat(s[1], 64)
	c, _ = strconv.ParseFloat(s[2], 64)

	return a, b, c
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		return line
	}

	return s
}
