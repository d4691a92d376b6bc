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

// The article registry accepts votes from any address. Role gating (who is
// allowed to present as publisher or owner) lives in the external caller;
// the only trust distinction in the core is the submit-time auto-verify
// path. It also makes no liveness promise: if vote traffic stops before
// quorum, an article stays UnderReview indefinitely. There is no
// timeout-driven forced finalization.

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
	initArticleTransitionType     = "article.init"
	submitTransitionType          = "article.submit"
	voteTransitionType            = "article.vote"
	setVotingParamsTransitionType = "article.set-voting-params"
)

// Status is the review state of an article. UnderReview is the sole
// initial state; the other three are reachable only through finalization
// and are terminal.
type Status uint8

const (
	StatusUnderReview  Status = models.StatusUnderReview
	StatusVerifiedTrue Status = models.StatusVerifiedTrue
	StatusMarkedFake   Status = models.StatusMarkedFake
	StatusDisputed     Status = models.StatusDisputed
)

func (s Status) String() string {
	switch s {
	case StatusUnderReview:
		return "UnderReview"
	case StatusVerifiedTrue:
		return "VerifiedTrue"
	case StatusMarkedFake:
		return "MarkedFake"
	case StatusDisputed:
		return "Disputed"
	default:
		return "Unknown"
	}
}

// Article is the full record for one content fingerprint
type Article struct {
	ContentHash Fingerprint
	Uri         string
	Publisher   string
	Submitter   string
	CreatedAt   uint64
	Status      Status
	YesVotes    uint64
	NoVotes     uint64
	Finalized   bool
	FinalizedAt *uint64
}

// VotingParams is the finalization gate configuration
type VotingParams struct {
	VotingPeriod uint64
	MinVotes     uint64
}

// TrustChecker is the read-only trust-check capability the article
// registry holds into the trust registry. It is consulted only at submit
// time and can never mutate trust state.
type TrustChecker interface {
	IsTrustedIn(txn *database.Txn, address string) (bool, error)
}

type ArticleRegistryConfig struct {
	Ledger       *ledger.Ledger
	Trust        TrustChecker
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// ArticleRegistry stores one record per unique content fingerprint,
// accepts attestation votes from any caller, and deterministically
// finalizes a verdict once quorum and the voting window are both
// satisfied.
type ArticleRegistry struct {
	config  ArticleRegistryConfig
	logger  *slog.Logger
	metrics struct {
		submitted    prometheus.Counter
		autoVerified prometheus.Counter
		votes        prometheus.Counter
		finalized    *prometheus.CounterVec
	}
}

func NewArticleRegistry(cfg ArticleRegistryConfig) *ArticleRegistry {
	a := &ArticleRegistry{
		config: cfg,
		logger: cfg.Logger,
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.PromRegistry != nil {
		promRegistry := cfg.PromRegistry
		a.metrics.submitted = promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "veritrust_articles_submitted_total",
				Help: "total article submissions accepted",
			},
		)
		a.metrics.autoVerified = promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "veritrust_articles_auto_verified_total",
				Help: "total articles auto-verified by trusted publisher attestation",
			},
		)
		a.metrics.votes = promauto.With(promRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "veritrust_votes_total",
				Help: "total votes accepted",
			},
		)
		a.metrics.finalized = promauto.With(promRegistry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "veritrust_articles_finalized_total",
				Help: "total articles finalized by verdict",
			},
			[]string{"verdict"},
		)
	}
	return a
}

type initArticlePayload struct {
	Owner        string
	VotingPeriod uint64
	MinVotes     uint64
}

// Initialize seeds the owner capability and initial voting parameters at
// genesis. A no-op when the owner already exists.
func (a *ArticleRegistry) Initialize(
	owner string,
	params VotingParams,
) error {
	if owner == "" {
		return ErrZeroAddress
	}
	if params.MinVotes < 1 {
		return ErrInvalidParams
	}
	// The existence check runs inside the transition handler so racing
	// Initialize calls serialize through the ledger: exactly one creates
	// the VotingParams row
	_, err := a.config.Ledger.Apply(
		initArticleTransitionType,
		initArticlePayload{
			Owner:        owner,
			VotingPeriod: params.VotingPeriod,
			MinVotes:     params.MinVotes,
		},
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			tx := txn.Metadata()
			existing, err := ownerAddress(tx, models.ContractArticleRegistry)
			if err != nil {
				return nil, err
			}
			if existing != "" {
				return nil, errAlreadyInitialized
			}
			if err := setOwner(tx, models.ContractArticleRegistry, owner); err != nil {
				return nil, err
			}
			row := models.VotingParams{
				VotingPeriod: params.VotingPeriod,
				MinVotes:     params.MinVotes,
			}
			if result := tx.Create(&row); result.Error != nil {
				return nil, result.Error
			}
			return nil, nil
		},
	)
	if errors.Is(err, errAlreadyInitialized) {
		return nil
	}
	return err
}

type submitPayload struct {
	ContentHash []byte
	Uri         string
	Publisher   string
	Submitter   string
}

// Submit creates the article record for a content fingerprint. The
// fingerprint space is the identity space: a second submission for the
// same fingerprint fails with ErrDuplicateSubmission and leaves the
// original record untouched. When the claimed publisher is trusted, the
// article is finalized VerifiedTrue immediately, bypassing voting.
func (a *ArticleRegistry) Submit(
	submitter string,
	contentHash Fingerprint,
	uri string,
	claimedPublisher string,
) (ledger.Position, error) {
	if submitter == "" {
		return ledger.Position{}, ErrZeroAddress
	}
	autoVerified := false
	pos, err := a.config.Ledger.Apply(
		submitTransitionType,
		submitPayload{
			ContentHash: contentHash.Bytes(),
			Uri:         uri,
			Publisher:   claimedPublisher,
			Submitter:   submitter,
		},
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			tx := txn.Metadata()
			_, err := articleByHash(tx, contentHash)
			if err == nil {
				return nil, ErrDuplicateSubmission
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			article := models.Article{
				ContentHash:   contentHash.Bytes(),
				Uri:           uri,
				Publisher:     claimedPublisher,
				Submitter:     submitter,
				CreatedAt:     pos.Time,
				Status:        models.StatusUnderReview,
				AddedPosition: pos.Seq,
			}
			if claimedPublisher != "" {
				trusted, err := a.config.Trust.IsTrustedIn(txn, claimedPublisher)
				if err != nil {
					return nil, err
				}
				if trusted {
					article.Status = models.StatusVerifiedTrue
					article.Finalized = true
					finalizedAt := pos.Time
					article.FinalizedAt = &finalizedAt
					autoVerified = true
				}
			}
			if result := tx.Create(&article); result.Error != nil {
				return nil, result.Error
			}
			if autoVerified {
				return []ledger.Emit{
					{
						Type: PublisherAutoVerifiedEventType,
						Data: PublisherAutoVerifiedEvent{
							ContentHash: contentHash.String(),
							Uri:         uri,
							Publisher:   claimedPublisher,
							Submitter:   submitter,
							Position:    pos.Seq,
						},
					},
				}, nil
			}
			return []ledger.Emit{
				{
					Type: SubmittedEventType,
					Data: SubmittedEvent{
						ContentHash: contentHash.String(),
						Uri:         uri,
						Publisher:   claimedPublisher,
						Submitter:   submitter,
						Position:    pos.Seq,
					},
				},
			}, nil
		},
	)
	if err != nil {
		return ledger.Position{}, err
	}
	a.logger.Info(
		"article submitted",
		"component", "articles",
		"hash", contentHash.String(),
		"auto_verified", autoVerified,
		"seq", pos.Seq,
	)
	if a.metrics.submitted != nil {
		a.metrics.submitted.Inc()
		if autoVerified {
			a.metrics.autoVerified.Inc()
			a.metrics.finalized.WithLabelValues(StatusVerifiedTrue.String()).Inc()
		}
	}
	return pos, nil
}

type votePayload struct {
	ContentHash []byte
	Voter       string
	Support     bool
}

// Vote records one attestation per (article, voter) pair and runs the
// finalization check. Finalization requires both quorum and an elapsed
// voting window; reaching one without the other leaves the article
// UnderReview with its votes recorded.
func (a *ArticleRegistry) Vote(
	voter string,
	contentHash Fingerprint,
	support bool,
) (ledger.Position, error) {
	if voter == "" {
		return ledger.Position{}, ErrZeroAddress
	}
	var finalizedStatus *Status
	pos, err := a.config.Ledger.Apply(
		voteTransitionType,
		votePayload{
			ContentHash: contentHash.Bytes(),
			Voter:       voter,
			Support:     support,
		},
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			tx := txn.Metadata()
			article, err := articleByHash(tx, contentHash)
			if err != nil {
				return nil, err
			}
			if article.Finalized {
				return nil, ErrAlreadyFinalized
			}
			var existing models.Vote
			result := tx.Where(
				"content_hash = ? AND voter = ?",
				contentHash.Bytes(),
				voter,
			).First(&existing)
			if result.Error == nil {
				return nil, ErrDuplicateVote
			}
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, result.Error
			}
			vote := models.Vote{
				ContentHash: contentHash.Bytes(),
				Voter:       voter,
				Support:     support,
				VotedAt:     pos.Time,
				Position:    pos.Seq,
			}
			if result := tx.Create(&vote); result.Error != nil {
				return nil, result.Error
			}
			if support {
				article.YesVotes++
			} else {
				article.NoVotes++
			}
			emits := []ledger.Emit{
				{
					Type: VotedEventType,
					Data: VotedEvent{
						ContentHash: contentHash.String(),
						Voter:       voter,
						Support:     support,
						YesVotes:    article.YesVotes,
						NoVotes:     article.NoVotes,
						Position:    pos.Seq,
					},
				},
			}
			params, err := votingParams(tx)
			if err != nil {
				return nil, err
			}
			// Both gates are conjunctive: quorum without an elapsed
			// window does not finalize, and vice versa
			totalVotes := article.YesVotes + article.NoVotes
			if totalVotes >= params.MinVotes &&
				pos.Time >= article.CreatedAt+params.VotingPeriod {
				article.Finalized = true
				finalizedAt := pos.Time
				article.FinalizedAt = &finalizedAt
				article.Status = uint8(verdict(article.YesVotes, article.NoVotes))
				status := Status(article.Status)
				finalizedStatus = &status
				emits = append(emits, ledger.Emit{
					Type: FinalizedEventType,
					Data: FinalizedEvent{
						ContentHash: contentHash.String(),
						Status:      status,
						YesVotes:    article.YesVotes,
						NoVotes:     article.NoVotes,
						Position:    pos.Seq,
					},
				})
			}
			if result := tx.Save(article); result.Error != nil {
				return nil, result.Error
			}
			return emits, nil
		},
	)
	if err != nil {
		return ledger.Position{}, err
	}
	if finalizedStatus != nil {
		a.logger.Info(
			"article finalized",
			"component", "articles",
			"hash", contentHash.String(),
			"status", finalizedStatus.String(),
			"seq", pos.Seq,
		)
	}
	if a.metrics.votes != nil {
		a.metrics.votes.Inc()
		if finalizedStatus != nil {
			a.metrics.finalized.WithLabelValues(finalizedStatus.String()).Inc()
		}
	}
	return pos, nil
}

// verdict decides the terminal status by simple plurality
func verdict(yesVotes uint64, noVotes uint64) Status {
	switch {
	case yesVotes > noVotes:
		return StatusVerifiedTrue
	case noVotes > yesVotes:
		return StatusMarkedFake
	default:
		return StatusDisputed
	}
}

// GetArticle returns the full record for a content fingerprint, or
// ErrNotFound. Pure read, available to any caller.
func (a *ArticleRegistry) GetArticle(
	contentHash Fingerprint,
) (*Article, error) {
	var article *Article
	err := a.config.Ledger.View(func(txn *database.Txn) error {
		row, viewErr := articleByHash(txn.Metadata(), contentHash)
		if viewErr != nil {
			return viewErr
		}
		article = articleFromModel(row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}

// HasVoted reports whether a voter address already has a vote recorded
// for an article. Pure read.
func (a *ArticleRegistry) HasVoted(
	contentHash Fingerprint,
	voter string,
) (bool, error) {
	var voted bool
	err := a.config.Ledger.View(func(txn *database.Txn) error {
		var vote models.Vote
		result := txn.Metadata().Where(
			"content_hash = ? AND voter = ?",
			contentHash.Bytes(),
			voter,
		).First(&vote)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return result.Error
		}
		voted = true
		return nil
	})
	return voted, err
}

// VotingParams returns the current finalization gate configuration
func (a *ArticleRegistry) VotingParams() (VotingParams, error) {
	var params VotingParams
	err := a.config.Ledger.View(func(txn *database.Txn) error {
		row, viewErr := votingParams(txn.Metadata())
		if viewErr != nil {
			return viewErr
		}
		params = VotingParams{
			VotingPeriod: row.VotingPeriod,
			MinVotes:     row.MinVotes,
		}
		return nil
	})
	return params, err
}

type setVotingParamsPayload struct {
	Caller       string
	VotingPeriod uint64
	MinVotes     uint64
}

// SetVotingParams reconfigures the finalization gates. Owner-gated. The
// new values apply to all future finalization checks; already-finalized
// articles are never re-evaluated.
func (a *ArticleRegistry) SetVotingParams(
	caller string,
	params VotingParams,
) (ledger.Position, error) {
	if params.MinVotes < 1 {
		return ledger.Position{}, ErrInvalidParams
	}
	return a.config.Ledger.Apply(
		setVotingParamsTransitionType,
		setVotingParamsPayload{
			Caller:       caller,
			VotingPeriod: params.VotingPeriod,
			MinVotes:     params.MinVotes,
		},
		func(txn *database.Txn, pos ledger.Position) ([]ledger.Emit, error) {
			tx := txn.Metadata()
			if err := requireOwner(tx, models.ContractArticleRegistry, caller); err != nil {
				return nil, err
			}
			row, err := votingParams(tx)
			if err != nil {
				return nil, err
			}
			row.VotingPeriod = params.VotingPeriod
			row.MinVotes = params.MinVotes
			if result := tx.Save(row); result.Error != nil {
				return nil, result.Error
			}
			return nil, nil
		},
	)
}

func articleByHash(
	tx *gorm.DB,
	contentHash Fingerprint,
) (*models.Article, error) {
	var article models.Article
	result := tx.Where("content_hash = ?", contentHash.Bytes()).
		First(&article)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &article, nil
}

func votingParams(tx *gorm.DB) (*models.VotingParams, error) {
	var params models.VotingParams
	if result := tx.First(&params); result.Error != nil {
		return nil, result.Error
	}
	return &params, nil
}

func articleFromModel(row *models.Article) *Article {
	article := &Article{
		Uri:         row.Uri,
		Publisher:   row.Publisher,
		Submitter:   row.Submitter,
		CreatedAt:   row.CreatedAt,
		Status:      Status(row.Status),
		YesVotes:    row.YesVotes,
		NoVotes:     row.NoVotes,
		Finalized:   row.Finalized,
		FinalizedAt: row.FinalizedAt,
	}
	copy(article.ContentHash[:], row.ContentHash)
	return article
}
