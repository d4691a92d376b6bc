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

package registry_test

import (
	"crypto/sha256"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/veritrust-io/veritrust/database"
	"github.com/veritrust-io/veritrust/event"
	"github.com/veritrust-io/veritrust/ledger"
	"github.com/veritrust-io/veritrust/registry"
)

const (
	testOwner     = "addr_owner"
	testSubmitter = "addr_submitter"
	testPublisher = "addr_publisher"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	Trust    *registry.TrustRegistry
	Articles *registry.ArticleRegistry
	Ledger   *ledger.Ledger
	EventBus *event.EventBus
	Clock    *fakeClock
}

func newTestEnv(t *testing.T, params registry.VotingParams) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	eventBus := event.NewEventBus(nil)
	t.Cleanup(eventBus.Stop)
	clock := newFakeClock()
	l, err := ledger.NewLedger(ledger.LedgerConfig{
		Database: db,
		EventBus: eventBus,
		Clock:    clock,
	})
	require.NoError(t, err)
	trust := registry.NewTrustRegistry(registry.TrustRegistryConfig{
		Ledger: l,
	})
	require.NoError(t, trust.Initialize(testOwner))
	articles := registry.NewArticleRegistry(registry.ArticleRegistryConfig{
		Ledger: l,
		Trust:  trust,
	})
	require.NoError(t, articles.Initialize(testOwner, params))
	return &testEnv{
		Trust:    trust,
		Articles: articles,
		Ledger:   l,
		EventBus: eventBus,
		Clock:    clock,
	}
}

func testFingerprint(content string) registry.Fingerprint {
	return registry.Fingerprint(sha256.Sum256([]byte(content)))
}
