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

// Package drivers binds the protocol drivers to engine task kinds.
package drivers

import (
	"fmt"

	"github.com/carverauto/netrunner/pkg/drivers/snmp"
	"github.com/carverauto/netrunner/pkg/drivers/ssh"
	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/logger"
)

// Options configures every driver.
type Options struct {
	SNMP snmp.Options
	SSH  ssh.Options
}

// Registrar is implemented by *engine.Engine.
type Registrar interface {
	Register(kind engine.Kind, h engine.Handler) error
}

// RegisterAll registers a handler for every task kind.
func RegisterAll(r Registrar, opts Options, log logger.Logger) error {
	snmpDriver := snmp.New(opts.SNMP, log)
	sshDriver := ssh.New(opts.SSH, log)

	handlers := map[engine.Kind]engine.Handler{
		engine.KindGetFacts:         snmpDriver.Facts,
		engine.KindGetInterfaces:    snmpDriver.Interfaces,
		engine.KindGetLLDPNeighbors: snmpDriver.LLDPNeighbors,
		engine.KindGetBGPNeighbors:  snmpDriver.BGPNeighbors,
		engine.KindGetInterfacesIP:  snmpDriver.InterfacesIP,
		engine.KindGetConfig:        sshDriver.GetConfig,
		engine.KindSendCommand:      sshDriver.SendCommand,
		engine.KindSendConfig:       sshDriver.SendConfig,
		engine.KindPing:             sshDriver.Ping,
		engine.KindTraceroute:       sshDriver.Traceroute,
	}

	for _, kind := range engine.Kinds() {
		h, ok := handlers[kind]
		if !ok {
			return fmt.Errorf("%w: %s", engine.ErrNoHandler, kind)
		}

		if err := r.Register(kind, h); err != nil {
			return fmt.Errorf("failed to register %s: %w", kind, err)
		}
	}

	return nil
}
