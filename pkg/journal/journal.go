package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// Record is one broadcast attempt. The protocol gives no confirmation
// beyond the ingress ack, so the journal is the only durable trail of
// what this client actually sent and when.
type Record struct {
	Identity    string    `json:"identity"`
	Asset       string    `json:"asset"`
	Action      string    `json:"action"`
	Price       int64     `json:"price"`
	Quantity    int64     `json:"quantity"`
	TargetTick  uint32    `json:"targetTick"`
	SubmittedAt time.Time `json:"submittedAt"`
	AckCode     int       `json:"ackCode"`
	Accepted    bool      `json:"accepted"`
}

// Journal is an append-only pebble store of submission records, keyed
// by target tick then sequence so a range scan reads in tick order.
type Journal struct {
	db *pebble.DB

	mu  sync.Mutex
	seq uint64
}

func Open(path string) (*Journal, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	j := &Journal{db: db}
	if err := j.restoreSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// restoreSeq resumes the sequence counter past any existing record so
// a restart cannot overwrite old keys at the same target tick.
func (j *Journal) restoreSeq() error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("s:"),
		UpperBound: []byte("s;"),
	})
	if err != nil {
		return fmt.Errorf("journal: iterator: %w", err)
	}
	defer iter.Close()

	for ok := iter.First(); ok; ok = iter.Next() {
		if key := iter.Key(); len(key) == 2+4+8 {
			if seq := binary.BigEndian.Uint64(key[6:]); seq >= j.seq {
				j.seq = seq + 1
			}
		}
	}
	return iter.Error()
}

func (j *Journal) Close() error { return j.db.Close() }

// key layout: s:<4-byte-tick><8-byte-seq>
func submissionKey(tick uint32, seq uint64) []byte {
	key := make([]byte, 2+4+8)
	copy(key, "s:")
	binary.BigEndian.PutUint32(key[2:], tick)
	binary.BigEndian.PutUint64(key[6:], seq)
	return key
}

// Append writes one record durably before returning.
func (j *Journal) Append(rec Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: encode record: %w", err)
	}

	j.mu.Lock()
	seq := j.seq
	j.seq++
	j.mu.Unlock()

	if err := j.db.Set(submissionKey(rec.TargetTick, seq), val, pebble.Sync); err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	return nil
}

// Recent returns up to limit records with the highest target ticks,
// newest first.
func (j *Journal) Recent(limit int) ([]Record, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("s:"),
		UpperBound: []byte("s;"),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: iterator: %w", err)
	}
	defer iter.Close()

	var out []Record
	for ok := iter.Last(); ok && len(out) < limit; ok = iter.Prev() {
		var rec Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("journal: decode record: %w", err)
		}
		out = append(out, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("journal: scan: %w", err)
	}
	return out, nil
}
