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

package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/veritrust-io/veritrust/database"
	"github.com/veritrust-io/veritrust/event"
)

// ErrInvalidClock is returned when the configured clock produces a
// non-positive timestamp. Committed transitions always carry a strictly
// positive ledger time, which is what makes zero usable as the
// "does not exist" sentinel in registry state.
var ErrInvalidClock = errors.New("ledger clock must be strictly positive")

// Position identifies a committed transition: its sequence number in the
// global serialized order (1-based) and its ledger time in unix seconds.
type Position struct {
	Seq  uint64
	Time uint64
}

// Emit is an event to publish after a transition commits.
type Emit struct {
	Type event.EventType
	Data any
}

// TransitionFunc validates and applies a single state transition against
// the store handle it is given. Returning an error rejects the transition
// with no partial state change.
type TransitionFunc func(txn *database.Txn, pos Position) ([]Emit, error)

type LedgerConfig struct {
	Database     *database.Database
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Clock        Clock
}

// Ledger applies state transitions one at a time in a single global order.
// Each transition either commits fully (state mutation plus an appended
// transition log record plus its events) or is rejected with no effect.
type Ledger struct {
	config  LedgerConfig
	logger  *slog.Logger
	clock   Clock
	metrics struct {
		transitionsApplied  *prometheus.CounterVec
		transitionsRejected *prometheus.CounterVec
		position            prometheus.Gauge
	}
	mutex    sync.Mutex
	lastSeq  uint64
	lastTime uint64
}

func NewLedger(cfg LedgerConfig) (*Ledger, error) {
	if cfg.Database == nil {
		return nil, errors.New("no database provided")
	}
	l := &Ledger{
		config: cfg,
		logger: cfg.Logger,
		clock:  cfg.Clock,
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if l.clock == nil {
		l.clock = SystemClock()
	}
	if cfg.PromRegistry != nil {
		promRegistry := cfg.PromRegistry
		l.metrics.transitionsApplied = promauto.With(promRegistry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "veritrust_ledger_transitions_applied_total",
				Help: "total ledger transitions committed by type",
			},
			[]string{"type"},
		)
		l.metrics.transitionsRejected = promauto.With(promRegistry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "veritrust_ledger_transitions_rejected_total",
				Help: "total ledger transitions rejected by type",
			},
			[]string{"type"},
		)
		l.metrics.position = promauto.With(promRegistry).NewGauge(
			prometheus.GaugeOpts{
				Name: "veritrust_ledger_position",
				Help: "sequence number of the last committed transition",
			},
		)
	}
	if err := l.loadLastPosition(); err != nil {
		return nil, fmt.Errorf("failed to load ledger position: %w", err)
	}
	return l, nil
}

// Position returns the position of the last committed transition. A zero
// sequence means no transition has ever been committed.
func (l *Ledger) Position() Position {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return Position{Seq: l.lastSeq, Time: l.lastTime}
}

// Apply runs a single transition at the next ledger position. Transitions
// are fully serialized: each handler observes all previously committed
// state and nothing else. On handler error the transaction is rolled back
// and the error is surfaced verbatim to the caller.
func (l *Ledger) Apply(
	transitionType string,
	payload any,
	fn TransitionFunc,
) (Position, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	now := l.clock.Now().Unix()
	if now <= 0 {
		return Position{}, ErrInvalidClock
	}
	ts := uint64(now)
	// Ledger time never runs backwards, even if the wall clock does
	if ts < l.lastTime {
		ts = l.lastTime
	}
	pos := Position{Seq: l.lastSeq + 1, Time: ts}
	txn := l.config.Database.Transaction(true)
	emits, err := fn(txn, pos)
	if err != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			l.logger.Error(
				"transition rollback failed",
				"type", transitionType,
				"error", rbErr,
			)
		}
		if l.metrics.transitionsRejected != nil {
			l.metrics.transitionsRejected.WithLabelValues(transitionType).Inc()
		}
		return Position{}, err
	}
	if err := l.appendRecord(txn, pos, transitionType, payload); err != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			l.logger.Error(
				"transition rollback failed",
				"type", transitionType,
				"error", rbErr,
			)
		}
		if l.metrics.transitionsRejected != nil {
			l.metrics.transitionsRejected.WithLabelValues(transitionType).Inc()
		}
		return Position{}, fmt.Errorf("failed to append transition record: %w", err)
	}
	if err := txn.Commit(); err != nil {
		if l.metrics.transitionsRejected != nil {
			l.metrics.transitionsRejected.WithLabelValues(transitionType).Inc()
		}
		return Position{}, fmt.Errorf("failed to commit transition: %w", err)
	}
	l.lastSeq = pos.Seq
	l.lastTime = pos.Time
	if l.metrics.transitionsApplied != nil {
		l.metrics.transitionsApplied.WithLabelValues(transitionType).Inc()
	}
	if l.metrics.position != nil {
		l.metrics.position.Set(float64(pos.Seq))
	}
	l.logger.Debug(
		"transition committed",
		"type", transitionType,
		"seq", pos.Seq,
		"time", pos.Time,
	)
	// Publish after commit so subscribers only ever observe committed
	// transitions, exactly once each
	if l.config.EventBus != nil {
		for _, emit := range emits {
			l.config.EventBus.Publish(
				emit.Type,
				event.NewEvent(emit.Type, emit.Data),
			)
		}
	}
	return pos, nil
}

// View runs a read-only query against committed state. Queries never block
// the apply path and carry no freshness guarantee beyond "as of last commit"
func (l *Ledger) View(fn func(txn *database.Txn) error) error {
	txn := l.config.Database.Transaction(false)
	defer func() {
		if err := txn.Rollback(); err != nil {
			l.logger.Error("view rollback failed", "error", err)
		}
	}()
	return fn(txn)
}

func (l *Ledger) loadLastPosition() error {
	return l.config.Database.Blob().View(func(blobTxn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Reverse = true
		iterOpts.Prefix = []byte(logKeyPrefix)
		iter := blobTxn.NewIterator(iterOpts)
		defer iter.Close()
		// Seek past the largest possible sequence to land on the last record
		iter.Seek(logKey(^uint64(0)))
		if !iter.Valid() {
			return nil
		}
		record, err := decodeRecord(iter.Item())
		if err != nil {
			return err
		}
		l.lastSeq = record.Seq
		l.lastTime = record.Time
		if l.metrics.position != nil {
			l.metrics.position.Set(float64(record.Seq))
		}
		return nil
	})
}
