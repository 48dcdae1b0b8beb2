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

package results

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/netrunner/pkg/engine"
)

func TestNormalizePreservesKeys(t *testing.T) {
	raw := engine.AggregatedResult{
		"R1": {{Name: "get_facts", Result: map[string]interface{}{"vendor": "cisco"}}},
		"R2": {{Name: "get_facts", Failed: true, Exception: "timeout after 30s"}},
		"R3": {},
	}

	out := Normalize(raw)

	require.Len(t, out, len(raw))

	for name := range raw {
		assert.Contains(t, out, name)
	}

	assert.Equal(t, 2, out.FailedCount())
}

func TestNormalizeUnwrapsFirstResultVerbatim(t *testing.T) {
	payload := map[string]interface{}{"vendor": "cisco", "uptime": 42}

	out := Normalize(engine.AggregatedResult{
		"R1": {
			{Name: "get_facts", Result: payload},
			{Name: "extra", Result: "dropped"},
		},
	})

	assert.Equal(t, payload, out["R1"])

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"R1":{"vendor":"cisco","uptime":42}}`, string(b))
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name string
		mr   engine.MultiResult
		want *Failure
	}{
		{
			name: "plain failure",
			mr:   engine.MultiResult{{Failed: true, Exception: "timeout after 30s"}},
			want: &Failure{Failed: true, Code: CodeTaskFailed, Exception: "timeout after 30s"},
		},
		{
			name: "with traceback",
			mr:   engine.MultiResult{{Failed: true, Exception: "boom", Traceback: "goroutine 1"}},
			want: &Failure{Failed: true, Code: CodeTaskFailed, Exception: "boom", Traceback: "goroutine 1"},
		},
		{
			name: "empty message",
			mr:   engine.MultiResult{{Failed: true}},
			want: &Failure{Failed: true, Code: CodeTaskFailed, Exception: unknownFailure},
		},
		{
			name: "later sub-result failed",
			mr:   engine.MultiResult{{Result: "ok"}, {Failed: true, Exception: "commit rejected"}},
			want: &Failure{Failed: true, Code: CodeTaskFailed, Exception: "commit rejected"},
		},
		{
			name: "no results",
			mr:   engine.MultiResult{},
			want: &Failure{Failed: true, Code: CodeEmptyResult, Exception: "no results returned"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(engine.AggregatedResult{"R1": tt.mr})["R1"]

			require.True(t, IsFailure(got))
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.(*Failure).Exception)
		})
	}
}

func TestFailureOmitsMissingTraceback(t *testing.T) {
	b, err := json.Marshal(&Failure{Failed: true, Code: CodeTaskFailed, Exception: "timeout"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"failed":true,"code":"task_failed","exception":"timeout"}`, string(b))
}

func TestErrorEnvelope(t *testing.T) {
	b, err := json.Marshal(NewErrorEnvelope("no devices matched"))
	require.NoError(t, err)

	assert.JSONEq(t, `{"error":"no devices matched"}`, string(b))
	assert.False(t, IsFailure("ok"))
}
