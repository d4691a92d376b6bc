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

import "errors"

// Every failure below is a synchronous rejection of the attempted
// transition with zero partial state change. The core never retries;
// callers decide what to do with a rejection.
var (
	ErrUnauthorized = errors.New(
		"caller does not hold the owner capability",
	)
	ErrAlreadyTrusted = errors.New(
		"address is already a trusted publisher",
	)
	ErrNotTrusted = errors.New(
		"address is not a trusted publisher",
	)
	ErrDuplicateSubmission = errors.New(
		"article already exists for content fingerprint",
	)
	ErrNotFound = errors.New(
		"no article exists for content fingerprint",
	)
	ErrAlreadyFinalized = errors.New(
		"article verdict is already finalized",
	)
	ErrDuplicateVote = errors.New(
		"voter has already voted on this article",
	)
	ErrZeroAddress = errors.New(
		"address must not be empty",
	)
	ErrInvalidParams = errors.New(
		"minimum vote count must be at least one",
	)
)

// errAlreadyInitialized aborts a genesis transition when an owner already
// exists. Never surfaced to callers: Initialize maps it to a clean no-op.
var errAlreadyInitialized = errors.New("registry already initialized")
