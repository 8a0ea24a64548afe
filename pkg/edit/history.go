// Copyright 2024 The Moviecore Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package edit implements the undo-aware edit operations (Copy, Paste,
// Cut, Delete, Move) and the History log backing them. The log's
// encode-key/bbolt-bucket-append-and-prune shape is grounded on
// log.DB (saveLog/Query), swapping "log entry keyed by timestamp" for
// "snapshot keyed by monotonic sequence number".
package edit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"moviecore/pkg/block"
)

const historyBucket = "snapshots"

// TrackSnapshot is one track's full block state at the moment a History
// entry was pushed.
type TrackSnapshot struct {
	TrackID string        `json:"trackId"`
	Blocks  []block.Block `json:"blocks"`
}

// Entry is one undoable operation: a user-visible label plus every
// affected track's pre-operation state.
type Entry struct {
	Seq   uint64          `json:"seq"`
	Label string          `json:"label"`
	Prev  []TrackSnapshot `json:"prev"`
}

// History is the single reversible-snapshot log every mutating edit
// operation pushes to before applying its change. Backed by bbolt so
// undo survives a crash mid-session, the way log.DB's append-only
// bucket survives a process restart.
type History struct {
	db      *bolt.DB
	nextSeq uint64
	maxKeys int
}

const defaultMaxEntries = 1000

// Open opens (creating if absent) a bbolt-backed History log at dbPath.
func Open(dbPath string) (*History, error) {
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open history database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(historyBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create history bucket: %w", err)
	}

	h := &History{db: db, maxKeys: defaultMaxEntries}
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		k, _ := b.Cursor().Last()
		if k != nil {
			h.nextSeq = binary.BigEndian.Uint64(k) + 1
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}

// Push records label and the pre-operation state of every track in prev,
// returning the new entry's sequence number (the Seq that Undo and Entries
// report for it). Undo always pops the most recent entry.
func (h *History) Push(label string, prev []TrackSnapshot) (uint64, error) {
	seq := h.nextSeq
	h.nextSeq++

	entry := Entry{Seq: seq, Label: label, Prev: prev}
	value, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("could not marshal history entry: %w", err)
	}

	err = h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		if b.Stats().KeyN >= h.maxKeys {
			if err := deleteFirstEntry(b); err != nil {
				return fmt.Errorf("could not prune oldest entry: %w", err)
			}
		}
		return b.Put(encodeSeq(seq), value)
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func deleteFirstEntry(b *bolt.Bucket) error {
	k, _ := b.Cursor().First()
	return b.Delete(k)
}

// Undo pops and returns the most recent entry, removing it from the log.
// The caller applies Prev's snapshots back onto the track tree; Undo
// itself performs no track mutation.
func (h *History) Undo() (Entry, bool, error) {
	var entry Entry
	found := false

	err := h.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		k, v := b.Cursor().Last()
		if k == nil {
			return nil
		}
		if err := json.Unmarshal(v, &entry); err != nil {
			return fmt.Errorf("could not unmarshal history entry: %w", err)
		}
		found = true
		return b.Delete(k)
	})
	if err != nil {
		return Entry{}, false, err
	}
	return entry, found, nil
}

// Entries returns every recorded entry, most recent last, up to limit (0
// means no limit), mirroring log.DB.Query's cursor-walk shape.
func (h *History) Entries(limit int) ([]Entry, error) {
	var entries []Entry
	err := h.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(historyBucket))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("could not unmarshal history entry: %w", err)
			}
			entries = append(entries, entry)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
		return nil
	})
	return entries, err
}

func encodeSeq(seq uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, seq)
	return out
}
