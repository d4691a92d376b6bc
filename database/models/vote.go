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

package models

// Vote represents a single attestation by a voter address on an article.
// The unique index enforces at most one vote per (article, voter) pair.
type Vote struct {
	ID          uint   `gorm:"primarykey"`
	ContentHash []byte `gorm:"uniqueIndex:idx_vote_unique,priority:1;size:32;not null"`
	Voter       string `gorm:"uniqueIndex:idx_vote_unique,priority:2;size:128;not null"`
	Support     bool   `gorm:"not null"`
	VotedAt     uint64 `gorm:"not null"`
	Position    uint64 `gorm:"index;not null"`
}

// TableName returns the table name
func (Vote) TableName() string {
	return "vote"
}
