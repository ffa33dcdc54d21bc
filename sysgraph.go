// Package sysgraph stores system metric snapshots and problems, and extracts
// graphable series out of them.
package sysgraph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"git.unix.lgbt/diamondburned/sysgraph/internal/badgerlog"
)

// Version is the type for the version of the snapshot encoding.
type Version uint8

const (
	_ Version = iota
	Version1
)

// CurrentVersion is the version that snapshots will be written as.
const CurrentVersion = Version1

// 0xFE is a reserved CBOR initial byte, so it never starts a plain value.
const versionBytePrefix = 0xFE

// Convenient inaccurate time constants.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
)

var (
	// ErrReadOnly is returned when writing to a database opened read-only.
	ErrReadOnly = errors.New("database not writable")
	// ErrUninitialized is returned when the database has no snapshots. This
	// may happen when the database has never been updated before.
	ErrUninitialized = errors.New("database not initialized")
)

// Key prefixes.
const (
	bPoints = "p"
)

// Logger is the logger given to badger when opening a database.
var Logger badger.Logger = badgerlog.NewDefaultLogger()

// Snapshot describes a single snapshot of data.
type Snapshot struct {
	CPUs      []cpu.TimesStat
	Memory    mem.VirtualMemoryStat
	Swap      mem.SwapMemoryStat
	Network   []net.IOCountersStat
	Disks     []disk.UsageStat
	Temps     []host.TemperatureStat
	LoadAvgs  load.AvgStat
	HostStats load.MiscStat

	time uint32
}

func (s Snapshot) Time() time.Time { return time.Unix(s.UnixTime(), 0) }
func (s Snapshot) UnixTime() int64 { return int64(s.time) }

// WithTime returns a copy of the snapshot stamped with the given time.
func (s Snapshot) WithTime(t time.Time) Snapshot {
	s.time = convertWithUnixZero(t)
	return s
}

// Database describes a wrapped badger instance holding snapshots.
type Database struct {
	db *badger.DB
	ro bool
}

// Open opens a database directory. Databases must be closed once they're
// done.
func Open(path string, write bool) (*Database, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(Logger).
		WithReadOnly(!write).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "badger")
	}

	return &Database{db: db, ro: !write}, nil
}

// Close closes the database.
func (db *Database) Close() error {
	return db.db.Close()
}

// Update writes a snapshot into the database. A snapshot taken at the same
// second as an existing one replaces it.
func (db *Database) Update(snapshot Snapshot) error {
	if db.ro {
		return ErrReadOnly
	}

	v, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	err = db.db.Update(func(tx *badger.Txn) error {
		return tx.Set(bkey(bPoints, unixToBE(snapshot.time)), v)
	})
	if err != nil {
		return errors.Wrap(err, "failed to update db")
	}

	return nil
}

// gcBatchSize is the number of deletions per write batch flush.
const gcBatchSize = 1000

// GC deletes snapshots older than the given age and reclaims the space. Since
// this is a fairly expensive operation, it should only be called rarely.
func (db *Database) GC(age time.Duration) error {
	if db.ro {
		return ErrReadOnly
	}

	now := convertWithUnixZero(time.Now())
	sec := uint32(age / time.Second)

	return db.gc(now, sec)
}

func (db *Database) gc(now, sec uint32) error {
	// Everything at or before this key is deleted.
	before := bkey(bPoints, unixToBE(now-sec))

	for {
		keys, err := db.keysBefore(before, gcBatchSize)
		if err != nil {
			return err
		}

		if len(keys) == 0 {
			break
		}

		wb := db.db.NewWriteBatch()

		for _, k := range keys {
			if err := wb.Delete(k); err != nil {
				wb.Cancel()
				return errors.Wrap(err, "failed to delete key")
			}
		}

		if err := wb.Flush(); err != nil {
			return errors.Wrap(err, "failed to flush deletions")
		}

		if len(keys) < gcBatchSize {
			break
		}
	}

	// Rewrite value log files until there's nothing worth rewriting.
	for {
		if err := db.db.RunValueLogGC(0.5); err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return errors.Wrap(err, "value log GC failed")
		}
	}

	return nil
}

func (db *Database) keysBefore(before []byte, max int) ([][]byte, error) {
	var keys [][]byte

	err := db.db.View(func(tx *badger.Txn) error {
		it := tx.NewIterator(badger.IteratorOptions{
			Prefix:         bkey(bPoints),
			PrefetchValues: false,
		})
		defer it.Close()

		for it.Rewind(); it.Valid() && len(keys) < max; it.Next() {
			k := it.Item().KeyCopy(nil)
			if bytes.Compare(k, before) > 0 {
				break
			}
			keys = append(keys, k)
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan keys")
	}

	return keys, nil
}

// Iterator returns a new database iterator with second precision. The iterator
// must be closed after it's done.
func (db *Database) Iterator(opts IteratorOpts) (*Iterator, error) {
	return newIterator(db.db, opts)
}

func encodeSnapshot(snapshot Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(8192)
	buf.WriteByte(versionBytePrefix)
	buf.WriteByte(byte(CurrentVersion))

	if err := cbor.NewEncoder(&buf).Encode(snapshot); err != nil {
		return nil, errors.Wrap(err, "failed to marshal")
	}

	return buf.Bytes(), nil
}

func decodeSnapshot(b []byte, dst *Snapshot) error {
	if len(b) < 2 || b[0] != versionBytePrefix {
		return errors.New("missing version prefix")
	}

	switch version := Version(b[1]); version {
	case Version1:
		return cbor.Unmarshal(b[2:], dst)
	default:
		return fmt.Errorf("unknown version %d", version)
	}
}

// bkey joins a key prefix with its parts.
func bkey(prefix string, parts ...[]byte) []byte {
	n := len(prefix)
	for _, part := range parts {
		n += len(part)
	}

	k := make([]byte, 0, n)
	k = append(k, prefix...)
	for _, part := range parts {
		k = append(k, part...)
	}

	return k
}

func bkeyTrim(key []byte, prefix string) []byte {
	return key[len(prefix):]
}

func unixToBE(unix uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b[:], unix)
	return b
}

func readUnixBE(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

// convertWithUnixZero converts a time.Time to Unix, or if time.Time is zero,
// then 0 is returned.
func convertWithUnixZero(t time.Time) uint32 {
	if t.IsZero() {
		return 0
	}
	return uint32(t.Unix())
}
