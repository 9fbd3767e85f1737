// Package actionlog implements the Persistent Action Log: a one-slot durable
// store holding the id of the last successfully installed deployment
// (spec.md §4.1). The flash-backed key/value region the spec describes is
// modeled here by an embedded BadgerDB instance opened with synchronous
// writes, so Put is durable before it returns.
package actionlog

import (
	"encoding/binary"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// recordKey is the fixed key under which the last-installed action id lives.
var recordKey = []byte("last-installed-action-id")

// Log is the persistent, one-record action-id store.
type Log struct {
	db *badger.DB
}

// Open opens (creating if necessary) the action log at dir. Sync writes are
// enabled so Put durability matches the spec's "must be durable before
// returning ok" requirement.
func Open(dir string) (*Log, error) {
	opts := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open action log: %w", err)
	}
	return &Log{db: db}, nil
}

// Close releases the underlying store.
func (l *Log) Close() error {
	return l.db.Close()
}

// Get returns the last-installed action id. The second return value is
// false when the store has never been written (spec.md: "absent or zero
// means no prior install"); Get tolerates an uninitialized store and never
// returns an error for a missing key.
func (l *Log) Get() (int32, bool, error) {
	var id int32
	found := false

	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 4 {
				return fmt.Errorf("action log record has unexpected length %d", len(val))
			}
			id = int32(binary.LittleEndian.Uint32(val))
			found = id != 0
			return nil
		})
	})
	if err != nil {
		return 0, false, fmt.Errorf("get action log record: %w", err)
	}
	return id, found, nil
}

// Put durably writes id as the new last-installed action id.
func (l *Log) Put(id int32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(id))

	err := l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey, buf)
	})
	if err != nil {
		return fmt.Errorf("put action log record: %w", err)
	}
	return nil
}
