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
	"fmt"

	"github.com/veritrust-io/veritrust/database/models"
	"gorm.io/gorm"
)

// Owner capability handling, shared by both registries. The check is an
// explicit stored-identity comparison at the top of each mutating
// operation. The owner row is never unset: transfer requires a non-empty
// recipient and only the current holder may perform it.

func ownerAddress(tx *gorm.DB, contract string) (string, error) {
	var owner models.ContractOwner
	result := tx.Where("contract = ?", contract).First(&owner)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return owner.Address, nil
}

func requireOwner(tx *gorm.DB, contract string, caller string) error {
	owner, err := ownerAddress(tx, contract)
	if err != nil {
		return err
	}
	if owner == "" || caller != owner {
		return ErrUnauthorized
	}
	return nil
}

func setOwner(tx *gorm.DB, contract string, address string) error {
	if address == "" {
		return ErrZeroAddress
	}
	var owner models.ContractOwner
	result := tx.Where("contract = ?", contract).First(&owner)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		owner = models.ContractOwner{Contract: contract, Address: address}
		if result := tx.Create(&owner); result.Error != nil {
			return fmt.Errorf("failed to create owner: %w", result.Error)
		}
		return nil
	}
	owner.Address = address
	if result := tx.Save(&owner); result.Error != nil {
		return fmt.Errorf("failed to update owner: %w", result.Error)
	}
	return nil
}
