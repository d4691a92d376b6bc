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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/veritrust-io/veritrust/api"
	"github.com/veritrust-io/veritrust/database"
	"github.com/veritrust-io/veritrust/event"
	"github.com/veritrust-io/veritrust/ledger"
	"github.com/veritrust-io/veritrust/registry"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	ledger        *ledger.Ledger
	trust         *registry.TrustRegistry
	articles      *registry.ArticleRegistry
	api           *api.Api
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// TrustRegistry returns the node's trust registry
func (n *Node) TrustRegistry() *registry.TrustRegistry {
	return n.trust
}

// ArticleRegistry returns the node's article registry
func (n *Node) ArticleRegistry() *registry.ArticleRegistry {
	return n.articles
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

func (n *Node) Run() error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir: n.config.dataDir,
		Logger:  n.config.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	// Load ledger
	l, err := ledger.NewLedger(
		ledger.LedgerConfig{
			Database:     n.db,
			EventBus:     n.eventBus,
			Logger:       n.config.logger,
			PromRegistry: n.config.promRegistry,
			Clock:        n.config.clock,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	n.ledger = l
	// Load registries
	n.trust = registry.NewTrustRegistry(
		registry.TrustRegistryConfig{
			Ledger:       n.ledger,
			Logger:       n.config.logger,
			PromRegistry: n.config.promRegistry,
		},
	)
	n.articles = registry.NewArticleRegistry(
		registry.ArticleRegistryConfig{
			Ledger:       n.ledger,
			Trust:        n.trust,
			Logger:       n.config.logger,
			PromRegistry: n.config.promRegistry,
		},
	)
	// Seed owner and voting parameters on first startup
	if err := n.trust.Initialize(n.config.owner); err != nil {
		return fmt.Errorf("failed to initialize trust registry: %w", err)
	}
	if err := n.articles.Initialize(n.config.owner, n.config.votingParams); err != nil {
		return fmt.Errorf("failed to initialize article registry: %w", err)
	}
	// Configure API (empty listen address = disabled)
	if n.config.apiListenAddress != "" {
		n.api = api.NewApi(
			api.ApiConfig{
				Logger:        n.config.logger,
				Trust:         n.trust,
				Articles:      n.articles,
				ListenAddress: n.config.apiListenAddress,
			},
		)
		if err := n.api.Start(); err != nil {
			return err
		}
	}

	// Wait for shutdown signal
	<-n.done
	return nil
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush state and close database
	n.config.logger.Debug("shutdown phase 2: flushing state")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
