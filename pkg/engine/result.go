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

package engine

import "sort"

// Result is the outcome of one task (or sub-task) on one device.
type Result struct {
	Name      string      `json:"name"`
	Host      string      `json:"host"`
	Result    interface{} `json:"result,omitempty"`
	Failed    bool        `json:"failed"`
	Exception string      `json:"exception,omitempty"`
	Traceback string      `json:"traceback,omitempty"`
}

// MultiResult is the ordered list of results for one device.
type MultiResult []Result

// Failed reports whether any result for the device failed.
func (m MultiResult) Failed() bool {
	for i := range m {
		if m[i].Failed {
			return true
		}
	}

	return false
}

// AggregatedResult maps device name to that device's results.
type AggregatedResult map[string]MultiResult

// FailedHosts returns the sorted names of devices with a failed result.
func (a AggregatedResult) FailedHosts() []string {
	out := make([]string, 0)

	for name, mr := range a {
		if mr.Failed() {
			out = append(out, name)
		}
	}

	sort.Strings(out)

	return out
}
