// Copyright 2025 Veritrust Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package veritrust

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/veritrust-io/veritrust/ledger"
	"github.com/veritrust-io/veritrust/registry"
)

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	clock            ledger.Clock
	dataDir          string
	owner            string
	apiListenAddress string
	votingParams     registry.VotingParams
	tracing          bool
	tracingStdout    bool
	shutdownTimeout  time.Duration
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new veritrust config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		votingParams: registry.VotingParams{
			VotingPeriod: 86400,
			MinVotes:     3,
		},
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This will default to discarding log entries
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDataDir specifies the persistent storage directory. An empty value
// keeps all state in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithOwner specifies the address seeded as registry owner at first startup
func WithOwner(owner string) ConfigOptionFunc {
	return func(c *Config) {
		c.owner = owner
	}
}

// WithApiListenAddress specifies the listen address for the HTTP API
// (empty = disabled)
func WithApiListenAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = address
	}
}

// WithVotingParams specifies the voting parameters seeded at first startup
func WithVotingParams(params registry.VotingParams) ConfigOptionFunc {
	return func(c *Config) {
		c.votingParams = params
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithClock specifies the clock used to timestamp ledger transitions.
// This will default to the system clock
func WithClock(clock ledger.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithTracing enables tracing
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

func (n *Node) configValidate() error {
	if n.config.owner == "" {
		return errors.New("no owner address configured")
	}
	if n.config.votingParams.MinVotes == 0 {
		return errors.New("minimum vote count must be at least 1")
	}
	return nil
}
