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

package ledger

import (
	"encoding/binary"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/veritrust-io/veritrust/database"
)

const logKeyPrefix = "tlog"

// Record is one entry in the append-only transition log
type Record struct {
	Seq     uint64
	Time    uint64
	Type    string
	Payload cbor.RawMessage
}

func logKey(seq uint64) []byte {
	key := []byte(logKeyPrefix)
	key = binary.BigEndian.AppendUint64(key, seq)
	return key
}

func (l *Ledger) appendRecord(
	txn *database.Txn,
	pos Position,
	transitionType string,
	payload any,
) error {
	payloadCbor, err := cbor.Marshal(payload)
	if err != nil {
		return err
	}
	recordCbor, err := cbor.Marshal(Record{
		Seq:     pos.Seq,
		Time:    pos.Time,
		Type:    transitionType,
		Payload: payloadCbor,
	})
	if err != nil {
		return err
	}
	return txn.Blob().Set(logKey(pos.Seq), recordCbor)
}

func decodeRecord(item *badger.Item) (*Record, error) {
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var record Record
	if err := cbor.Unmarshal(value, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Records returns up to limit committed transition records starting at
// fromSeq in ledger order. A limit of zero or less means no limit
func (l *Ledger) Records(fromSeq uint64, limit int) ([]Record, error) {
	var ret []Record
	err := l.config.Database.Blob().View(func(blobTxn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(logKeyPrefix)
		iter := blobTxn.NewIterator(iterOpts)
		defer iter.Close()
		for iter.Seek(logKey(fromSeq)); iter.Valid(); iter.Next() {
			if limit > 0 && len(ret) >= limit {
				break
			}
			record, err := decodeRecord(iter.Item())
			if err != nil {
				return err
			}
			ret = append(ret, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
