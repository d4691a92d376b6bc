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

package ledger_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/veritrust-io/veritrust/database"
	"github.com/veritrust-io/veritrust/event"
	"github.com/veritrust-io/veritrust/ledger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestLedger(t *testing.T) (*ledger.Ledger, *fakeClock) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l, err := ledger.NewLedger(ledger.LedgerConfig{
		Database: db,
		Clock:    clock,
	})
	require.NoError(t, err)
	return l, clock
}

func noopTransition(
	txn *database.Txn,
	pos ledger.Position,
) ([]ledger.Emit, error) {
	return nil, nil
}

func TestLedgerPositionsAreMonotonic(t *testing.T) {
	l, clock := newTestLedger(t)
	require.Zero(t, l.Position().Seq)
	for i := uint64(1); i <= 5; i++ {
		pos, err := l.Apply("test.noop", nil, noopTransition)
		require.NoError(t, err)
		require.Equal(t, i, pos.Seq)
		require.Positive(t, pos.Time)
		clock.Advance(time.Second)
	}
	require.Equal(t, uint64(5), l.Position().Seq)
}

func TestLedgerRejectedTransitionHasNoEffect(t *testing.T) {
	l, _ := newTestLedger(t)
	_, err := l.Apply("test.noop", nil, noopTransition)
	require.NoError(t, err)
	posBefore := l.Position()

	transitionErr := errors.New("precondition violated")
	_, err = l.Apply(
		"test.rejected",
		nil,
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			// Stage a blob write that must be rolled back
			if err := txn.Blob().Set([]byte("orphan"), []byte("x")); err != nil {
				return nil, err
			}
			return nil, transitionErr
		},
	)
	require.ErrorIs(t, err, transitionErr)
	require.Equal(t, posBefore, l.Position())

	records, err := l.Records(1, 0)
	require.NoError(t, err)
	require.Len(t, records, 1, "rejected transition must not be logged")
}

func TestLedgerAppendsRecords(t *testing.T) {
	l, clock := newTestLedger(t)
	type testPayload struct {
		Value string
	}
	_, err := l.Apply("test.first", testPayload{Value: "one"}, noopTransition)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = l.Apply("test.second", testPayload{Value: "two"}, noopTransition)
	require.NoError(t, err)

	records, err := l.Records(1, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, uint64(1), records[0].Seq)
	require.Equal(t, "test.first", records[0].Type)
	require.Equal(t, uint64(2), records[1].Seq)
	require.Equal(t, "test.second", records[1].Type)
	require.Equal(t, records[0].Time+60, records[1].Time)
}

func TestLedgerTimeNeverRunsBackwards(t *testing.T) {
	l, clock := newTestLedger(t)
	pos1, err := l.Apply("test.noop", nil, noopTransition)
	require.NoError(t, err)
	clock.Advance(-time.Hour)
	pos2, err := l.Apply("test.noop", nil, noopTransition)
	require.NoError(t, err)
	require.Equal(t, pos1.Time, pos2.Time)
}

func TestLedgerPublishesAfterCommit(t *testing.T) {
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	eventBus := event.NewEventBus(nil)
	t.Cleanup(eventBus.Stop)
	l, err := ledger.NewLedger(ledger.LedgerConfig{
		Database: db,
		EventBus: eventBus,
		Clock:    &fakeClock{now: time.Unix(1_700_000_000, 0)},
	})
	require.NoError(t, err)

	var testEvtType event.EventType = "test.event"
	_, evtCh := eventBus.Subscribe(testEvtType)
	_, err = l.Apply(
		"test.emitting",
		nil,
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			return []ledger.Emit{{Type: testEvtType, Data: pos.Seq}}, nil
		},
	)
	require.NoError(t, err)
	select {
	case evt := <-evtCh:
		require.Equal(t, uint64(1), evt.Data)
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}

	// Rejected transitions emit nothing
	_, err = l.Apply(
		"test.rejected",
		nil,
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			return []ledger.Emit{{Type: testEvtType, Data: pos.Seq}},
				errors.New("rejected")
		},
	)
	require.Error(t, err)
	select {
	case evt := <-evtCh:
		t.Fatalf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func rejectedCount(
	t *testing.T,
	reg *prometheus.Registry,
	transitionType string,
) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "veritrust_ledger_transitions_rejected_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetValue() == transitionType {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestLedgerCountsCommitFailureAsRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})
	require.NoError(t, db.Blob().Update(func(blobTxn *badger.Txn) error {
		return blobTxn.Set([]byte("contested"), []byte("seed"))
	}))
	l, err := ledger.NewLedger(ledger.LedgerConfig{
		Database:     db,
		Clock:        &fakeClock{now: time.Unix(1_700_000_000, 0)},
		PromRegistry: reg,
	})
	require.NoError(t, err)

	// Handler error path
	_, err = l.Apply(
		"test.rejected",
		nil,
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			return nil, errors.New("precondition violated")
		},
	)
	require.Error(t, err)
	require.Equal(t, float64(1), rejectedCount(t, reg, "test.rejected"))

	// Commit failure path: the handler reads a blob key that a competing
	// writer then updates, so the commit loses the conflict
	_, err = l.Apply(
		"test.conflicted",
		nil,
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			item, err := txn.Blob().Get([]byte("contested"))
			if err != nil {
				return nil, err
			}
			if _, err := item.ValueCopy(nil); err != nil {
				return nil, err
			}
			return nil, db.Blob().Update(func(blobTxn *badger.Txn) error {
				return blobTxn.Set([]byte("contested"), []byte("competing"))
			})
		},
	)
	require.ErrorIs(t, err, badger.ErrConflict)
	require.Equal(t, float64(1), rejectedCount(t, reg, "test.conflicted"))
	require.Zero(t, l.Position().Seq)
}

func TestLedgerRecoversPositionFromLog(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: tmpDir})
	require.NoError(t, err)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l, err := ledger.NewLedger(ledger.LedgerConfig{
		Database: db,
		Clock:    clock,
	})
	require.NoError(t, err)
	for range 3 {
		_, err := l.Apply("test.noop", nil, noopTransition)
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	lastPos := l.Position()
	require.NoError(t, db.Close())

	db2, err := database.New(&database.Config{DataDir: tmpDir})
	require.NoError(t, err)
	t.Cleanup(func() {
		db2.Close()
	})
	l2, err := ledger.NewLedger(ledger.LedgerConfig{
		Database: db2,
		Clock:    clock,
	})
	require.NoError(t, err)
	require.Equal(t, lastPos, l2.Position())
}
