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

// Contract name constants for owner capability rows.
const (
	ContractTrustRegistry   = "trust_registry"
	ContractArticleRegistry = "article_registry"
)

// ContractOwner holds the owner capability for a contract. Exactly one row
// per contract; the address is never empty once set.
type ContractOwner struct {
	ID       uint   `gorm:"primarykey"`
	Contract string `gorm:"uniqueIndex;size:64;not null"`
	Address  string `gorm:"size:128;not null"`
}

// TableName returns the table name
func (ContractOwner) TableName() string {
	return "contract_owner"
}
