/*
 * Copyright 2025 SREDiag Authors
 * Copyright 2023 CloudWeGo Authors
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

package exchange

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/srediag/shmx/internal/logging"
	"github.com/srediag/shmx/pkg/shm"
	"github.com/srediag/shmx/pkg/wire"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "SHMX"

const (
	defaultInboundName    = "shmx-inbound"
	defaultOutboundName   = "shmx-outbound"
	defaultMaxSegmentSize = 100 << 20
	defaultMaxPendingAge  = 5 * time.Minute
)

// Config is used to tune a channel or an endpoint.
type Config struct {
	// Dir holds the segment files.
	Dir string `envconfig:"DIR" default:"/dev/shm"`
	// InboundName is written by the host and read by the guest.
	InboundName string `envconfig:"INBOUND_NAME" default:"shmx-inbound"`
	// OutboundName is written by the guest and read by the host.
	OutboundName string `envconfig:"OUTBOUND_NAME" default:"shmx-outbound"`
	// MaxSegmentSize bounds header plus payload. Zero leaves only the
	// 32-bit size field as a limit.
	MaxSegmentSize int `envconfig:"MAX_SEGMENT_SIZE" default:"104857600"`
	// Mode is the permission of created segments.
	Mode os.FileMode `envconfig:"MODE" default:"0600"`
	// Exclusive fails an export when an unconsumed segment still holds the
	// name instead of overwriting it.
	Exclusive bool `envconfig:"EXCLUSIVE" default:"false"`
	// CheckFreeSpace rejects an export that does not fit the free space of Dir.
	CheckFreeSpace bool `envconfig:"CHECK_FREE_SPACE" default:"true"`
	// KeepOnMismatch leaves a segment in place when an import expected
	// another kind, so it can be imported again with the right expectation.
	KeepOnMismatch bool `envconfig:"KEEP_ON_MISMATCH" default:"false"`
	// MaxPendingAge is how long an exported segment may wait for its consumer
	// before readiness checks report it as dangling.
	MaxPendingAge time.Duration `envconfig:"MAX_PENDING_AGE" default:"5m"`
	// LogLevel is a level name or number, see internal/logging.
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`
}

// ErrInvalidConfig wraps every VerifyConfig failure.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Dir:            shm.DefaultDir,
		InboundName:    defaultInboundName,
		OutboundName:   defaultOutboundName,
		MaxSegmentSize: defaultMaxSegmentSize,
		Mode:           0600,
		CheckFreeSpace: true,
		MaxPendingAge:  defaultMaxPendingAge,
		LogLevel:       "warn",
	}
}

// LoadConfig reads SHMX_* environment variables over the defaults.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := VerifyConfig(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// VerifyConfig is used to verify the sanity of configuration.
func VerifyConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if config.Dir == "" {
		return fmt.Errorf("%w: empty segment directory", ErrInvalidConfig)
	}
	if err := shm.ValidateName(config.InboundName); err != nil {
		return fmt.Errorf("%w: inbound name: %w", ErrInvalidConfig, err)
	}
	if err := shm.ValidateName(config.OutboundName); err != nil {
		return fmt.Errorf("%w: outbound name: %w", ErrInvalidConfig, err)
	}
	if sameName(config.InboundName, config.OutboundName) {
		return fmt.Errorf("%w: inbound and outbound share the name %q", ErrInvalidConfig, config.InboundName)
	}
	if config.MaxSegmentSize < 0 || (config.MaxSegmentSize > 0 && config.MaxSegmentSize < wire.HeaderSize) {
		return fmt.Errorf("%w: MaxSegmentSize %d must be 0 or at least %d", ErrInvalidConfig, config.MaxSegmentSize, wire.HeaderSize)
	}
	if config.Mode&^os.ModePerm != 0 || config.Mode&0600 != 0600 {
		return fmt.Errorf("%w: mode %v must be permission bits including owner read/write", ErrInvalidConfig, config.Mode)
	}
	if config.MaxPendingAge < 0 {
		return fmt.Errorf("%w: negative MaxPendingAge %v", ErrInvalidConfig, config.MaxPendingAge)
	}
	if config.LogLevel != "" {
		if _, err := logging.ParseLevel(config.LogLevel); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func sameName(a, b string) bool {
	trim := func(s string) string {
		if len(s) > 0 && s[0] == '/' {
			return s[1:]
		}
		return s
	}
	return trim(a) == trim(b)
}
