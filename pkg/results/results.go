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

// Package results flattens engine output into the per-device shape returned
// to callers.
package results

import "github.com/carverauto/netrunner/pkg/engine"

const (
	// CodeTaskFailed marks a device whose task returned an error.
	CodeTaskFailed = "task_failed"
	// CodeEmptyResult marks a device that produced no results at all.
	CodeEmptyResult = "empty_result"

	emptyResultMessage = "no results returned"
	unknownFailure     = "task failed without an error message"
)

// Failure is the uniform record for a device whose task failed.
type Failure struct {
	Failed    bool   `json:"failed"`
	Code      string `json:"code"`
	Exception string `json:"exception"`
	Traceback string `json:"traceback,omitempty"`
}

// Aggregated maps each targeted device to its success payload or a *Failure.
type Aggregated map[string]interface{}

// ErrorEnvelope is the single top-level error returned instead of a result.
type ErrorEnvelope map[string]string

// NewErrorEnvelope wraps msg as {"error": msg}.
func NewErrorEnvelope(msg string) ErrorEnvelope {
	return ErrorEnvelope{"error": msg}
}

// Normalize converts raw engine output. Successful devices yield the payload
// of their first result; any further sub-results are dropped. Failed devices
// yield a *Failure. The key set of the output equals the input's.
func Normalize(raw engine.AggregatedResult) Aggregated {
	out := make(Aggregated, len(raw))

	for name, mr := range raw {
		out[name] = normalizeOne(mr)
	}

	return out
}

func normalizeOne(mr engine.MultiResult) interface{} {
	if len(mr) == 0 {
		return &Failure{Failed: true, Code: CodeEmptyResult, Exception: emptyResultMessage}
	}

	if mr.Failed() {
		return failureFor(mr)
	}

	return mr[0].Result
}

// failureFor reports the first failed sub-result.
func failureFor(mr engine.MultiResult) *Failure {
	for i := range mr {
		if !mr[i].Failed {
			continue
		}

		msg := mr[i].Exception
		if msg == "" {
			msg = unknownFailure
		}

		return &Failure{
			Failed:    true,
			Code:      CodeTaskFailed,
			Exception: msg,
			Traceback: mr[i].Traceback,
		}
	}

	return &Failure{Failed: true, Code: CodeTaskFailed, Exception: unknownFailure}
}

// IsFailure reports whether a normalized value is a failure record.
func IsFailure(v interface{}) bool {
	f, ok := v.(*Failure)
	return ok && f != nil && f.Failed
}

// FailedCount counts failure records in a normalized result.
func (a Aggregated) FailedCount() int {
	n := 0

	for _, v := range a {
		if IsFailure(v) {
			n++
		}
	}

	return n
}
