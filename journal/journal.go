// Package journal persists the stream of workshop status-changed events in
// an embedded Badger store, separate from the relational job state. The
// kanban view reads live status from the database; the journal exists for
// audit and for downstream consumers that want the history of moves.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/erhaops/workshop-core/repository/models"
	"github.com/google/uuid"
)

// StatusEvent is one recorded pipeline move.
type StatusEvent struct {
	ID    string                `json:"id"`
	JobID string                `json:"jobId"`
	From  models.WorkshopStatus `json:"from"`
	To    models.WorkshopStatus `json:"to"`
	At    time.Time             `json:"at"`
}

// Journal is an append-only event log keyed by job and wall-clock time.
type Journal struct {
	db *badger.DB
}

// Open opens (or creates) the journal at path.
func Open(path string) (*Journal, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordStatusChange appends one event. Keys sort by job then by time, so
// a prefix scan replays a single job's history in order.
func (j *Journal) RecordStatusChange(jobID string, from, to models.WorkshopStatus) error {
	event := StatusEvent{
		ID:    uuid.NewString(),
		JobID: jobID,
		From:  from,
		To:    to,
		At:    time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("job/%s/%020d/%s", jobID, event.At.UnixNano(), event.ID[:8])
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// ListForJob returns a job's status history, oldest first.
func (j *Journal) ListForJob(jobID string) ([]StatusEvent, error) {
	prefix := []byte(fmt.Sprintf("job/%s/", jobID))
	events := []StatusEvent{}
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var event StatusEvent
				if err := json.Unmarshal(val, &event); err != nil {
					return err
				}
				events = append(events, event)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
