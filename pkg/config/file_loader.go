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

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/carverauto/netrunner/pkg/logger"
)

var (
	errConfigPathRequired   = errors.New("config path is required")
	errUnsupportedExtension = errors.New("unsupported config file extension")
	errUnknownKeys          = errors.New("unknown keys")
)

// FileConfigLoader loads configuration from a local JSON, YAML or TOML file,
// chosen by extension.
type FileConfigLoader struct {
	logger logger.Logger
}

func NewFileConfigLoader(log logger.Logger) *FileConfigLoader {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &FileConfigLoader{logger: log}
}

// Load implements ConfigLoader.
func (f *FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	if path == "" {
		return errConfigPathRequired
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	if err := Decode(ext, data, dst); err != nil {
		return fmt.Errorf("failed to decode '%s': %w", path, err)
	}

	f.logger.Debug().Str("path", path).Str("format", ext).Msg("Loaded configuration file")

	return nil
}

// Decode unmarshals data according to a file extension such as ".yaml".
func Decode(ext string, data []byte, dst interface{}) error {
	switch ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()

		return dec.Decode(dst)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		return nil
	case ".toml":
		md, err := toml.Decode(string(data), dst)
		if err != nil {
			return err
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("%w: %v", errUnknownKeys, undecoded)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnsupportedExtension, ext)
	}
}
