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

package drivers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/engine"
	"github.com/carverauto/netrunner/pkg/logger"
	"github.com/carverauto/netrunner/pkg/models"
)

type recorder map[engine.Kind]engine.Handler

func (r recorder) Register(kind engine.Kind, h engine.Handler) error {
	r[kind] = h
	return nil
}

func TestRegisterAllCoversEveryKind(t *testing.T) {
	r := recorder{}

	require.NoError(t, RegisterAll(r, Options{}, logger.NewTestLogger()))

	for _, kind := range engine.Kinds() {
		assert.NotNil(t, r[kind], kind)
	}

	assert.Contains(t, r, engine.KindGetBGPNeighbors)
	assert.Contains(t, r, engine.KindGetInterfacesIP)
	assert.Contains(t, r, engine.KindTraceroute)
}

func TestRegisterAllWiresEngine(t *testing.T) {
	eng := engine.New(engine.Config{}, logger.NewTestLogger())
	require.NoError(t, RegisterAll(eng, Options{}, nil))

	// An unsupported platform fails inside the handler, so the run still
	// produces one failed result per device.
	res, err := eng.Run(context.Background(),
		[]models.Device{{Name: "r1", Hostname: "192.0.2.1", Platform: "routeros", Password: "pw"}},
		engine.KindGetConfig, engine.Params{})
	require.NoError(t, err)
	require.Len(t, res["r1"], 1)
	assert.True(t, res["r1"][0].Failed)
	assert.Contains(t, res["r1"][0].Exception, "unsupported platform")
}
