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
	"github.com/veritrust-io/veritrust/event"
)

const (
	PublisherAddedEventType        event.EventType = "trust.publisher-added"
	PublisherRemovedEventType      event.EventType = "trust.publisher-removed"
	SubmittedEventType             event.EventType = "article.submitted"
	PublisherAutoVerifiedEventType event.EventType = "article.publisher-auto-verified"
	VotedEventType                 event.EventType = "article.voted"
	FinalizedEventType             event.EventType = "article.finalized"
)

type PublisherAddedEvent struct {
	Address  string
	Position uint64
}

type PublisherRemovedEvent struct {
	Address  string
	Position uint64
}

type SubmittedEvent struct {
	ContentHash string
	Uri         string
	Publisher   string
	Submitter   string
	Position    uint64
}

// PublisherAutoVerifiedEvent replaces SubmittedEvent when a trusted
// publisher attestation short-circuits the voting path at submit time.
// The two are mutually exclusive for any given submission.
type PublisherAutoVerifiedEvent struct {
	ContentHash string
	Uri         string
	Publisher   string
	Submitter   string
	Position    uint64
}

type VotedEvent struct {
	ContentHash string
	Voter       string
	Support     bool
	YesVotes    uint64
	NoVotes     uint64
	Position    uint64
}

type FinalizedEvent struct {
	ContentHash string
	Status      Status
	YesVotes    uint64
	NoVotes     uint64
	Position    uint64
}
