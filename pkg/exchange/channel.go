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
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/srediag/shmx/internal/logging"
	"github.com/srediag/shmx/pkg/shm"
)

const instrumentationName = "github.com/srediag/shmx/pkg/exchange"

// Options carries the collaborators of a Channel or Endpoint. Every field is
// optional.
type Options struct {
	Logger *logging.Logger
	Tracer trace.Tracer
	// Meter feeds the segment counters of the Manager built from Config.
	Meter metric.Meter
	// Metrics receives exchange counters. Unregistered when nil.
	Metrics *Metrics
	// Tracker records exported segments until they are consumed.
	Tracker *Tracker
	// Manager replaces the one built from Config.
	Manager *shm.Manager
}

// Channel moves single values through one named segment. Export and Import
// may run in different processes; a Channel holds no per-value state.
type Channel struct {
	name    string
	config  Config
	mgr     *shm.Manager
	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *Metrics
	tracker *Tracker
}

// NewChannel returns a Channel over the segment called name.
func NewChannel(name string, config *Config, opts Options) (*Channel, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	if err := shm.ValidateName(name); err != nil {
		return nil, err
	}
	deps, err := resolveOptions(config, opts)
	if err != nil {
		return nil, err
	}
	return deps.channel(name, config), nil
}

// Name is the segment name without a leading slash.
func (c *Channel) Name() string {
	return c.name
}

// Manager is the segment manager used by c.
func (c *Channel) Manager() *shm.Manager {
	return c.mgr
}

func (o Options) channel(name string, config *Config) *Channel {
	name = strings.TrimPrefix(name, "/")
	return &Channel{
		name:    name,
		config:  *config,
		mgr:     o.Manager,
		logger:  o.Logger.Named(name),
		tracer:  o.Tracer,
		metrics: o.Metrics,
		tracker: o.Tracker,
	}
}

// resolveOptions fills the unset collaborators from config.
func resolveOptions(config *Config, opts Options) (Options, error) {
	if opts.Logger == nil {
		level := logging.LevelWarn
		if config.LogLevel != "" {
			level, _ = logging.ParseLevel(config.LogLevel)
		}
		logger, err := logging.New("shmx", level)
		if err != nil {
			return opts, err
		}
		opts.Logger = logger
	}
	if opts.Tracer == nil {
		opts.Tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}
	if opts.Metrics == nil {
		m, err := NewMetrics(nil)
		if err != nil {
			return opts, err
		}
		opts.Metrics = m
	}
	if opts.Manager == nil {
		mgr, err := shm.NewManager(shm.Options{
			Dir:            config.Dir,
			Mode:           config.Mode,
			Exclusive:      config.Exclusive,
			CheckFreeSpace: config.CheckFreeSpace,
			Logger:         opts.Logger,
			Meter:          opts.Meter,
			Tracer:         opts.Tracer,
		})
		if err != nil {
			return opts, err
		}
		opts.Manager = mgr
	}
	if opts.Tracker == nil {
		opts.Tracker = NewTracker()
	}
	return opts, nil
}
