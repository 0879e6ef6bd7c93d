// Package archive persists completed rounds so sessions can be inspected and
// replayed after the fact.
package archive

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one completed round as persisted.
type Record struct {
	ID        string
	SessionID string
	Turn      int
	State     string
	Plan      string
	Result    any
	Score     any
	Advice    string
	CreatedAt time.Time
}

// Filter limits List queries. Zero values match everything.
type Filter struct {
	SessionID string
	State     string
	Limit     int
}

// Store persists round records.
type Store interface {
	Save(ctx context.Context, record Record) error
	List(ctx context.Context, filter Filter) ([]Record, error)
}

// MemoryStore keeps records in memory. Suitable for tests and single-shot
// runs.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore returns an in-memory round store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends a record.
func (s *MemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, normalizeRecord(record))
	return nil
}

// List returns matching records, newest first.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if filter.SessionID != "" && rec.SessionID != filter.SessionID {
			continue
		}
		if filter.State != "" && rec.State != filter.State {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// normalizeRecord fills identity and timestamp defaults for a record.
func normalizeRecord(record Record) Record {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	} else {
		record.CreatedAt = record.CreatedAt.UTC()
	}
	return record
}

// encodeValue marshals an opaque round value (result or score) into JSON.
func encodeValue(value any) (string, error) {
	if value == nil {
		return "null", nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeValue parses a JSON round value.
func decodeValue(raw string) (any, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
