package sysgraph

import (
	"encoding/binary"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"git.unix.lgbt/diamondburned/sysgraph/graph"
)

var problemsBucket = []byte("problems-v1")

var (
	// ErrProblemNotFound is returned when no problem has the given event ID.
	ErrProblemNotFound = errors.New("problem not found")
	// ErrProblemResolved is returned when resolving a resolved problem.
	ErrProblemResolved = errors.New("problem already resolved")
)

// problemRecord is the stored form of a problem. The event ID is the key.
type problemRecord struct {
	_ struct{} `cbor:",toarray"`

	Name         string
	Severity     graph.Severity
	Clock        int64
	RClock       int64
	REventID     uint64
	Acknowledges []ackRecord
}

type ackRecord struct {
	_ struct{} `cbor:",toarray"`

	Clock   int64
	Action  graph.AckAction
	Message string
}

func (r problemRecord) problem(eventID uint64) graph.Problem {
	p := graph.Problem{
		EventID:  eventID,
		Name:     r.Name,
		Severity: r.Severity,
		Clock:    r.Clock,
		RClock:   r.RClock,
		REventID: r.REventID,
	}

	if len(r.Acknowledges) > 0 {
		p.Acknowledges = make([]graph.Acknowledgement, len(r.Acknowledges))
		for i, ack := range r.Acknowledges {
			p.Acknowledges[i] = graph.Acknowledgement{
				Clock:   ack.Clock,
				Action:  ack.Action,
				Message: ack.Message,
			}
		}
	}

	return p
}

// ProblemDB stores problems in a bbolt database.
type ProblemDB struct {
	db *bbolt.DB
}

// OpenProblems opens a problem database file.
func OpenProblems(path string, write bool) (*ProblemDB, error) {
	mode := os.FileMode(0644)

	b, err := bbolt.Open(path, mode, &bbolt.Options{
		Timeout:      time.Minute,
		FreelistType: bbolt.FreelistArrayType,
		ReadOnly:     !write,
	})
	if err != nil {
		return nil, errors.Wrap(err, "bbolt")
	}

	return &ProblemDB{b}, nil
}

// Close closes the database.
func (db *ProblemDB) Close() error {
	return db.db.Close()
}

// Open records a new problem starting at clock and returns its event ID.
func (db *ProblemDB) Open(name string, severity graph.Severity, clock int64) (uint64, error) {
	var id uint64

	err := db.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(problemsBucket)
		if err != nil {
			return errors.Wrap(err, "failed to create bucket")
		}

		id, err = b.NextSequence()
		if err != nil {
			return errors.Wrap(err, "failed to allocate event ID")
		}

		return putProblem(b, id, problemRecord{
			Name:     name,
			Severity: severity,
			Clock:    clock,
		})
	})

	return id, err
}

// Resolve marks the problem as recovered at clock. The recovery gets its own
// event ID.
func (db *ProblemDB) Resolve(eventID uint64, clock int64) error {
	return db.update(eventID, func(b *bbolt.Bucket, r *problemRecord) error {
		if r.RClock != 0 || r.REventID != 0 {
			return ErrProblemResolved
		}

		if clock < r.Clock {
			return errors.Errorf("recovery time %d before problem time %d", clock, r.Clock)
		}

		rid, err := b.NextSequence()
		if err != nil {
			return errors.Wrap(err, "failed to allocate event ID")
		}

		r.RClock = clock
		r.REventID = rid
		return nil
	})
}

// Acknowledge appends an acknowledgement to the problem. An acknowledgement
// changing the severity must carry the new severity in its message.
func (db *ProblemDB) Acknowledge(eventID uint64, ack graph.Acknowledgement) error {
	if ack.Action == 0 {
		return errors.New("acknowledgement has no action")
	}

	return db.update(eventID, func(_ *bbolt.Bucket, r *problemRecord) error {
		if ack.Action&graph.AckSeverity != 0 {
			severity, err := graph.ParseSeverity(ack.Message)
			if err != nil {
				return err
			}
			r.Severity = severity
		}

		r.Acknowledges = append(r.Acknowledges, ackRecord{
			Clock:   ack.Clock,
			Action:  ack.Action,
			Message: ack.Message,
		})
		return nil
	})
}

// Problem returns the problem with the given event ID.
func (db *ProblemDB) Problem(eventID uint64) (graph.Problem, error) {
	var p graph.Problem

	err := db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(problemsBucket)
		if b == nil {
			return ErrProblemNotFound
		}

		r, err := getProblem(b, eventID)
		if err != nil {
			return err
		}

		p = r.problem(eventID)
		return nil
	})

	return p, err
}

// Range returns the problems overlapping the window [from, till], ordered by
// their start time.
func (db *ProblemDB) Range(from, till int64) ([]graph.Problem, error) {
	var problems []graph.Problem

	err := db.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(problemsBucket)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var r problemRecord
			if err := cbor.Unmarshal(v, &r); err != nil {
				return errors.Wrapf(err, "cannot decode problem %d", binary.BigEndian.Uint64(k))
			}

			if r.Clock > till {
				return nil
			}
			if r.RClock != 0 && r.RClock < from {
				return nil
			}

			problems = append(problems, r.problem(binary.BigEndian.Uint64(k)))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].Clock < problems[j].Clock
	})

	return problems, nil
}

func (db *ProblemDB) update(eventID uint64, fn func(*bbolt.Bucket, *problemRecord) error) error {
	return db.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(problemsBucket)
		if b == nil {
			return ErrProblemNotFound
		}

		r, err := getProblem(b, eventID)
		if err != nil {
			return err
		}

		if err := fn(b, &r); err != nil {
			return err
		}

		return putProblem(b, eventID, r)
	})
}

func getProblem(b *bbolt.Bucket, eventID uint64) (problemRecord, error) {
	var r problemRecord

	v := b.Get(eventKey(eventID))
	if v == nil {
		return r, ErrProblemNotFound
	}

	if err := cbor.Unmarshal(v, &r); err != nil {
		return r, errors.Wrapf(err, "cannot decode problem %d", eventID)
	}

	return r, nil
}

func putProblem(b *bbolt.Bucket, eventID uint64, r problemRecord) error {
	v, err := cbor.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "failed to marshal")
	}

	if err := b.Put(eventKey(eventID), v); err != nil {
		return errors.Wrap(err, "failed to put problem")
	}

	return nil
}

func eventKey(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}
