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

// Status constants represent the review state of an article record.
const (
	StatusUnderReview  = 0
	StatusVerifiedTrue = 1
	StatusMarkedFake   = 2
	StatusDisputed     = 3
)

// Article represents one submitted content fingerprint and its attestation
// tallies. CreatedAt is ledger time and is always non-zero for a committed
// record; zero is the "does not exist" sentinel.
type Article struct {
	ID          uint   `gorm:"primarykey"`
	ContentHash []byte `gorm:"uniqueIndex;size:32;not null"`
	Uri         string `gorm:"size:2048"`
	Publisher   string `gorm:"size:128"`
	Submitter   string `gorm:"size:128;not null"`
	CreatedAt   uint64 `gorm:"not null;autoCreateTime:false"`
	Status      uint8  `gorm:"not null"`
	YesVotes    uint64 `gorm:"not null"`
	NoVotes     uint64 `gorm:"not null"`
	Finalized   bool   `gorm:"not null"`
	FinalizedAt *uint64
	AddedPosition uint64 `gorm:"index;not null"`
}

// TableName returns the table name
func (Article) TableName() string {
	return "article"
}
