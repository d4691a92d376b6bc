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
	"encoding/hex"
	"errors"
	"fmt"
)

// Fingerprint is a caller-computed 32-byte content digest. The registry
// treats it as an opaque unique key and never hashes content itself.
type Fingerprint [32]byte

var ErrInvalidFingerprint = errors.New(
	"content fingerprint must be 32 bytes",
)

func NewFingerprint(data []byte) (Fingerprint, error) {
	var f Fingerprint
	if len(data) != len(f) {
		return f, ErrInvalidFingerprint
	}
	copy(f[:], data)
	return f, nil
}

func FingerprintFromHex(s string) (Fingerprint, error) {
	var f Fingerprint
	data, err := hex.DecodeString(s)
	if err != nil {
		return f, fmt.Errorf("%w: %w", ErrInvalidFingerprint, err)
	}
	return NewFingerprint(data)
}

func (f Fingerprint) Bytes() []byte {
	return f[:]
}

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}
