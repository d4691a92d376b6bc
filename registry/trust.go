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

package registry

import (
	"errors"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/veritrust-io/veritrust/database"
	"github.com/veritrust-io/veritrust/database/models"
	"github.com/veritrust-io/veritrust/ledger"
	"gorm.io/gorm"
)

const (
	addPublisherTransitionType       = "trust.add-publisher"
	removePublisherTransitionType    = "trust.remove-publisher"
	initTrustTransitionType          = "trust.init"
	transferTrustOwnerTransitionType = "trust.transfer-ownership"
)

type TrustRegistryConfig struct {
	Ledger       *ledger.Ledger
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// TrustRegistry is the owner-controlled set of publisher addresses whose
// submit-time attestations are treated as sufficient authority to verify
// an article without voting. Membership changes fail loudly when they
// would be no-ops, so a caller bug can't hide behind idempotency.
type TrustRegistry struct {
	config  TrustRegistryConfig
	logger  *slog.Logger
	metrics struct {
		publishersAdded   prometheus.Counter
		publishersRemoved prometheus.Counter
		trustedPublishers prometheus.Gauge
	}
}

func NewTrustRegistry(cfg TrustRegistryConfig) *TrustRegistry {
	t := &TrustRegistry{
		config: cfg,
		logger: cfg.Logger,
	}
	if t.logger == nil {
		t.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.PromRegistry != nil {
		promRegistry := cfg.PromRegistry
		t.metrics.publishersAdded = promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "veritrust_trust_publishers_added_total",
				Help: "total publishers added to the trust registry",
			},
		)
		t.metrics.publishersRemoved = promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "veritrust_trust_publishers_removed_total",
				Help: "total publishers removed from the trust registry",
			},
		)
		t.metrics.trustedPublishers = promauto.With(promRegistry).NewGauge(
			prometheus.GaugeOpts{
				Name: "veritrust_trust_publishers",
				Help: "current trusted publisher count",
			},
		)
	}
	return t
}

type initTrustPayload struct {
	Owner string
}

// Initialize seeds the owner capability at genesis. It is a no-op when an
// owner already exists: the configured owner only applies to a fresh
// ledger, it never displaces a transferred one.
func (t *TrustRegistry) Initialize(owner string) error {
	if owner == "" {
		return ErrZeroAddress
	}
	// The existence check runs inside the transition handler so racing
	// Initialize calls serialize through the ledger: exactly one seeds the
	// owner, the rest become no-ops
	var existing string
	_, err := t.config.Ledger.Apply(
		initTrustTransitionType,
		initTrustPayload{Owner: owner},
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			tx := txn.Metadata()
			var handlerErr error
			existing, handlerErr = ownerAddress(tx, models.ContractTrustRegistry)
			if handlerErr != nil {
				return nil, handlerErr
			}
			if existing != "" {
				return nil, errAlreadyInitialized
			}
			return nil, setOwner(tx, models.ContractTrustRegistry, owner)
		},
	)
	if errors.Is(err, errAlreadyInitialized) {
		if existing != owner {
			t.logger.Info(
				"trust registry owner already set, ignoring configured owner",
				"owner", existing,
			)
		}
		return nil
	}
	return err
}

// Owner returns the current owner capability holder
func (t *TrustRegistry) Owner() (string, error) {
	var owner string
	err := t.config.Ledger.View(func(txn *database.Txn) error {
		var viewErr error
		owner, viewErr = ownerAddress(
			txn.Metadata(),
			models.ContractTrustRegistry,
		)
		return viewErr
	})
	return owner, err
}

type transferOwnerPayload struct {
	Caller   string
	NewOwner string
}

// TransferOwnership hands the owner capability to a new address. Only the
// current holder may transfer, and never to an empty address.
func (t *TrustRegistry) TransferOwnership(
	caller string,
	newOwner string,
) (ledger.Position, error) {
	if newOwner == "" {
		return ledger.Position{}, ErrZeroAddress
	}
	return t.config.Ledger.Apply(
		transferTrustOwnerTransitionType,
		transferOwnerPayload{Caller: caller, NewOwner: newOwner},
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			tx := txn.Metadata()
			if err := requireOwner(tx, models.ContractTrustRegistry, caller); err != nil {
				return nil, err
			}
			return nil, setOwner(tx, models.ContractTrustRegistry, newOwner)
		},
	)
}

// IsTrusted reports whether an address is a trusted publisher. Pure
// lookup against committed state, callable by anyone
func (t *TrustRegistry) IsTrusted(address string) (bool, error) {
	var trusted bool
	err := t.config.Ledger.View(func(txn *database.Txn) error {
		var viewErr error
		trusted, viewErr = t.IsTrustedIn(txn, address)
		return viewErr
	})
	return trusted, err
}

// IsTrustedIn is the read-only trust-check capability handed to the
// article registry. It never mutates trust state.
func (t *TrustRegistry) IsTrustedIn(
	txn *database.Txn,
	address string,
) (bool, error) {
	if address == "" {
		return false, nil
	}
	var publisher models.TrustedPublisher
	result := txn.Metadata().
		Where("address = ?", address).
		First(&publisher)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, result.Error
	}
	return true, nil
}

type addPublisherPayload struct {
	Caller  string
	Address string
}

// AddPublisher grants publisher trust to an address. Owner-gated; fails
// with ErrAlreadyTrusted when the address is already a member.
func (t *TrustRegistry) AddPublisher(
	caller string,
	address string,
) (ledger.Position, error) {
	if address == "" {
		return ledger.Position{}, ErrZeroAddress
	}
	pos, err := t.config.Ledger.Apply(
		addPublisherTransitionType,
		addPublisherPayload{Caller: caller, Address: address},
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			tx := txn.Metadata()
			if err := requireOwner(tx, models.ContractTrustRegistry, caller); err != nil {
				return nil, err
			}
			trusted, err := t.IsTrustedIn(txn, address)
			if err != nil {
				return nil, err
			}
			if trusted {
				return nil, ErrAlreadyTrusted
			}
			publisher := models.TrustedPublisher{
				Address:  address,
				AddedAt:  pos.Time,
				Position: pos.Seq,
			}
			if result := tx.Create(&publisher); result.Error != nil {
				return nil, result.Error
			}
			return []ledger.Emit{
				{
					Type: PublisherAddedEventType,
					Data: PublisherAddedEvent{
						Address:  address,
						Position: pos.Seq,
					},
				},
			}, nil
		},
	)
	if err != nil {
		return ledger.Position{}, err
	}
	t.logger.Info(
		"publisher added",
		"component", "trust",
		"address", address,
		"seq", pos.Seq,
	)
	if t.metrics.publishersAdded != nil {
		t.metrics.publishersAdded.Inc()
		t.metrics.trustedPublishers.Inc()
	}
	return pos, nil
}

type removePublisherPayload struct {
	Caller  string
	Address string
}

// RemovePublisher revokes publisher trust. Owner-gated; fails with
// ErrNotTrusted when the address is not a member.
func (t *TrustRegistry) RemovePublisher(
	caller string,
	address string,
) (ledger.Position, error) {
	pos, err := t.config.Ledger.Apply(
		removePublisherTransitionType,
		removePublisherPayload{Caller: caller, Address: address},
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			tx := txn.Metadata()
			if err := requireOwner(tx, models.ContractTrustRegistry, caller); err != nil {
				return nil, err
			}
			trusted, err := t.IsTrustedIn(txn, address)
			if err != nil {
				return nil, err
			}
			if !trusted {
				return nil, ErrNotTrusted
			}
			result := tx.Where("address = ?", address).
				Delete(&models.TrustedPublisher{})
			if result.Error != nil {
				return nil, result.Error
			}
			return []ledger.Emit{
				{
					Type: PublisherRemovedEventType,
					Data: PublisherRemovedEvent{
						Address:  address,
						Position: pos.Seq,
					},
				},
			}, nil
		},
	)
	if err != nil {
		return ledger.Position{}, err
	}
	t.logger.Info(
		"publisher removed",
		"component", "trust",
		"address", address,
		"seq", pos.Seq,
	)
	if t.metrics.publishersRemoved != nil {
		t.metrics.publishersRemoved.Inc()
		t.metrics.trustedPublishers.Dec()
	}
	return pos, nil
}
