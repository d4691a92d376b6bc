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

// VotingParams holds the finalization gate configuration. A single row is
// maintained; updates take effect for all future finalization checks and are
// never re-applied to already-finalized articles.
type VotingParams struct {
	ID           uint   `gorm:"primarykey"`
	VotingPeriod uint64 `gorm:"not null"` // seconds of ledger time
	MinVotes     uint64 `gorm:"not null"`
}

// TableName returns the table name
func (VotingParams) TableName() string {
	return "voting_params"
}
