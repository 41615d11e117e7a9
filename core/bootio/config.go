/*
   Copyright The bootadapter Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package bootio

import (
	"fmt"
	"os"

	"github.com/containerd/errdefs"
	"github.com/pelletier/go-toml/v2"
)

// Config describes how a loader provisions the adapter. The trust anchor is
// referenced by path here and loaded once at construction; after that the
// key is an immutable value held by the adapter, never re-read.
type Config struct {
	// TrustKeyPath points at the embedded trust anchor: the raw public key
	// blob compiled into (or shipped alongside) the boot image.
	TrustKeyPath string `toml:"trust_key_path"`

	// UnlockedOK records whether the owning loader tolerates booting an
	// unlocked device. The adapter only reports lock state; enforcement
	// stays with the loader, so this field is surfaced, not acted on.
	UnlockedOK bool `toml:"unlocked_ok"`
}

// LoadConfig reads adapter configuration from a TOML file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, err
	}
	defer f.Close()

	config := Config{}
	if err := toml.NewDecoder(f).Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal adapter TOML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate makes sure configuration fields are valid.
func (c *Config) Validate() error {
	if c.TrustKeyPath == "" {
		return fmt.Errorf("trust_key_path is required: %w", errdefs.ErrInvalidArgument)
	}
	return nil
}

// NewFromConfig loads the trust anchor named by cfg and builds an adapter
// over the given collaborators.
func NewFromConfig(cfg *Config, locator Locator, dev BlockDevice, opts ...Opt) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	key, err := os.ReadFile(cfg.TrustKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading trust anchor %q: %w", cfg.TrustKeyPath, err)
	}
	return New(locator, dev, key, opts...)
}
