// File created by olandr (c) 2025.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package notify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCookiePrefix starts the name of every cookie file.
const DefaultCookiePrefix = ".notify-cookie-"

// Config controls how roots are watched.
type Config struct {
	// Watcher forces the named watcher. Empty selects the best one available.
	Watcher string `yaml:"watcher"`

	// PreferSplitWatcher enables the split watcher: the root is watched on
	// its own and every top-level directory gets a recursive watcher.
	PreferSplitWatcher bool `yaml:"prefer_split_watcher"`

	// NotifyTimeout bounds a single wait of a root for notifications.
	NotifyTimeout time.Duration `yaml:"notify_timeout"`

	// Settle is how long a root keeps collecting changes after being woken
	// before it processes them.
	Settle time.Duration `yaml:"settle"`

	// EventBuffer is the capacity of the event channel of a root created by
	// Notify.WatchChan.
	EventBuffer int `yaml:"event_buffer"`

	// CookiePrefix starts the name of every cookie file.
	CookiePrefix string `yaml:"cookie_prefix"`
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		NotifyTimeout: 24 * time.Hour,
		Settle:        20 * time.Millisecond,
		EventBuffer:   512,
		CookiePrefix:  DefaultCookiePrefix,
	}
}

// Validate checks the configuration for values that can not work.
func (c Config) Validate() error {
	var errs []error
	if c.NotifyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("notify_timeout must be positive, got %v", c.NotifyTimeout))
	}
	if c.Settle < 0 {
		errs = append(errs, fmt.Errorf("settle must not be negative, got %v", c.Settle))
	}
	if c.EventBuffer < 0 {
		errs = append(errs, fmt.Errorf("event_buffer must not be negative, got %d", c.EventBuffer))
	}
	if c.CookiePrefix == "" {
		errs = append(errs, errors.New("cookie_prefix must not be empty"))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML configuration file. Keys missing from the file keep
// their DefaultConfig value.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), err
	}
	return DecodeConfig(data)
}

// DecodeConfig decodes a YAML configuration. Unknown keys are rejected.
func DecodeConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return DefaultConfig(), fmt.Errorf("invalid YAML config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
