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

import "errors"

var (
	// ErrUnknownTask is returned for a task kind outside the supported set.
	ErrUnknownTask = errors.New("unknown task")
	// ErrNoHandler is returned when a known task kind has no registered handler.
	ErrNoHandler = errors.New("no handler registered for task")
	// ErrInvalidParams is returned when task parameters fail validation.
	ErrInvalidParams = errors.New("invalid task parameters")
	errDeviceTimeout = errors.New("timeout")
	errTaskPanicked  = errors.New("task panicked")
)
