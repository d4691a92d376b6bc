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

// TrustedPublisher represents membership in the trust registry. Presence of
// a row is the membership test.
type TrustedPublisher struct {
	ID       uint   `gorm:"primarykey"`
	Address  string `gorm:"uniqueIndex;size:128;not null"`
	AddedAt  uint64 `gorm:"not null"`
	Position uint64 `gorm:"index;not null"`
}

// TableName returns the table name
func (TrustedPublisher) TableName() string {
	return "trusted_publisher"
}
