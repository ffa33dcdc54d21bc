package sysgraph

import (
	"bytes"
	"log"
	"math"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
)

// IteratorOpts is the options for reading. It describes the range of data to
// read.
type IteratorOpts struct {
	// From is the time to start reading the metrics forwards. The default
	// zero-value means to read from the earliest point.
	From time.Time
	// Till is the time to stop reading the metrics, inclusive. By default, the
	// zero-value is used, which would read up to the latest point. Till must
	// ALWAYS be after From.
	Till time.Time
	// Step, if non-zero, thins out the read: after each snapshot, the iterator
	// skips ahead to the first snapshot at least Step later.
	Step time.Duration
}

// Iterator is a forwards snapshot iterator.
type Iterator struct {
	tx *badger.Txn
	it *badger.Iterator

	// current state
	item  *badger.Item
	error error

	// constants
	begin []byte
	from  uint32
	till  uint32
	step  uint32
}

// newIterator creates a new iterator. See (*Database).Iterator.
func newIterator(db *badger.DB, opts IteratorOpts) (*Iterator, error) {
	if !opts.From.IsZero() && !opts.Till.IsZero() {
		if !opts.Till.After(opts.From) {
			return nil, errors.New("opts.Till should be after opts.From")
		}
	}

	if opts.Step < 0 {
		return nil, errors.New("opts.Step should not be negative")
	}

	i := Iterator{
		from: convertWithUnixZero(opts.From),
		till: convertWithUnixZero(opts.Till),
		step: uint32(opts.Step / time.Second),
	}

	// If till is 0, then we end at the end of time.
	if i.till == 0 {
		i.till = math.MaxUint32
	}

	i.begin = bkey(bPoints, unixToBE(i.from))

	i.tx = db.NewTransaction(false)
	i.it = i.tx.NewIterator(badger.IteratorOptions{
		Prefix:         bkey(bPoints),
		PrefetchValues: true,
		PrefetchSize:   100,
	})

	i.Rewind()

	return &i, nil
}

// Close closes the iterator.
func (i *Iterator) Close() error {
	i.it.Close()
	i.tx.Discard()
	return nil
}

// Err returns the error that stopped the iterator, if any.
func (i *Iterator) Err() error {
	return i.error
}

func (i *Iterator) setItem() {
	if i.it.Valid() {
		i.item = i.it.Item()
	} else {
		i.item = nil
	}
}

func (i *Iterator) itemTime() uint32 {
	key := bkeyTrim(i.item.Key(), bPoints)
	return readUnixBE(key)
}

func (i *Iterator) seek(t uint32) {
	i.it.Seek(bkey(bPoints, unixToBE(t)))
	i.setItem()
}

// isValid returns true if the iterator is still within range.
func (i *Iterator) isValid() bool {
	return i.item != nil && i.itemTime() <= i.till
}

// advance moves past the current item, honoring the step.
func (i *Iterator) advance() {
	if i.step <= 1 {
		i.it.Next()
		i.setItem()
		return
	}

	next := uint64(i.itemTime()) + uint64(i.step)
	if next > math.MaxUint32 {
		i.item = nil
		return
	}

	i.seek(uint32(next))
}

// Next reads the next item into the given snapshot pointer. If snapshot is nil,
// then the iterator is still moved, but no unmarshaling is done.
//
// False is returned if nothing is read and the iterator is done, otherwise true
// is.
func (i *Iterator) Next(snapshot *Snapshot) bool {
	if !i.isValid() {
		i.item = nil
		return false
	}

	if snapshot != nil {
		if !i.readSnapshot(snapshot) {
			i.item = nil
			return false
		}
	}

	i.advance()
	return true
}

func (i *Iterator) readSnapshot(snapshot *Snapshot) bool {
	// Unmarshal fail is a fatal error, so we invalidate everything.
	if err := i.item.Value(func(v []byte) error {
		return decodeSnapshot(v, snapshot)
	}); err != nil {
		i.error = errors.Wrapf(err, "cannot decode snapshot at %d", i.itemTime())
		log.Println("readSnapshot failed:", i.error)
		return false
	}

	// Update the timestamp.
	snapshot.time = i.itemTime()

	return true
}

// Remaining returns the number of remaining snapshots to read until either the
// database has nothing left or the requested range has been reached. The cursor
// position stays the same by the time this function returns.
func (i *Iterator) Remaining() int {
	if !i.isValid() {
		return 0
	}

	// Remember the current cursor position before we change it, because we'll
	// need to preserve this. We'll also have to copy the key, because the
	// iterator will reuse the same buffer.
	current := append([]byte(nil), i.item.Key()...)

	var total int
	for i.Next(nil) {
		total++
	}

	// Seek back to where we were.
	i.it.Seek(current)
	i.setItem()

	if i.item == nil || !bytes.Equal(i.item.Key(), current) {
		log.Panicf("Remaining: cannot seek back to last known key %d",
			readUnixBE(bkeyTrim(current, bPoints)))
	}

	return total
}

// ReadRemaining reads all of the iterator from the current position to the
// end.
func (i *Iterator) ReadRemaining() []Snapshot {
	snapshots := make([]Snapshot, 0, i.Remaining())

	for {
		var s Snapshot
		if !i.Next(&s) {
			break
		}
		snapshots = append(snapshots, s)
	}

	return snapshots
}

// Rewind resets the cursor back to the initial position.
func (i *Iterator) Rewind() {
	i.error = nil
	i.it.Rewind()
	i.seek(i.from)
}

// ReadAll is similar to ReadRemaining, except the cursor is rewound to the
// requested position "from" and read again.
func (i *Iterator) ReadAll() []Snapshot {
	i.Rewind()
	return i.ReadRemaining()
}

// Latest returns the most recent snapshot.
func (db *Database) Latest() (Snapshot, error) {
	var s Snapshot

	err := db.db.View(func(tx *badger.Txn) error {
		it := tx.NewIterator(badger.IteratorOptions{
			Prefix:  bkey(bPoints),
			Reverse: true,
		})
		defer it.Close()

		// Reverse iteration seeks to the largest key at or before the given
		// one, so seek past every possible timestamp.
		it.Seek(bkey(bPoints, unixToBE(math.MaxUint32), []byte{0xFF}))
		if !it.Valid() {
			return ErrUninitialized
		}

		item := it.Item()
		if err := item.Value(func(v []byte) error {
			return decodeSnapshot(v, &s)
		}); err != nil {
			return errors.Wrap(err, "cannot decode snapshot")
		}

		s.time = readUnixBE(bkeyTrim(item.Key(), bPoints))
		return nil
	})

	return s, err
}
