package inventory

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// IDGenerator returns a fresh opaque id. Ids only need to be unique and
// string-comparable.
type IDGenerator func() (string, error)

// NewUUIDv7 is the default IDGenerator. UUIDv7 embeds a millisecond
// timestamp plus random bits, so rapid sequential calls do not collide.
func NewUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate record id: %w", err)
	}
	return id.String(), nil
}

type Option func(*Repository)

func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Repository) {
		if gen != nil {
			r.newID = gen
		}
	}
}

const maxIDAttempts = 8

// Repository is an ordered collection of records, most recent first.
type Repository struct {
	records []AssetRecord
	newID   IDGenerator
}

func NewRepository(records []AssetRecord, opts ...Option) *Repository {
	r := &Repository{
		records: slices.Clone(records),
		newID:   NewUUIDv7,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create assigns a new id and inserts the record at the head.
func (r *Repository) Create(fields Fields) (AssetRecord, error) {
	id, err := r.uniqueID()
	if err != nil {
		return AssetRecord{}, err
	}
	record := AssetRecord{ID: id, Fields: fields}
	r.records = slices.Insert(r.records, 0, record)
	return record, nil
}

// Update replaces every field of the record with the given id, keeping
// its position.
func (r *Repository) Update(id string, fields Fields) (AssetRecord, error) {
	idx := r.indexOf(id)
	if idx < 0 {
		return AssetRecord{}, fmt.Errorf("%w: record %q", ErrNotFound, id)
	}
	record := AssetRecord{ID: id, Fields: fields}
	r.records[idx] = record
	return record, nil
}

func (r *Repository) Delete(id string) bool {
	idx := r.indexOf(id)
	if idx < 0 {
		return false
	}
	r.records = slices.Delete(r.records, idx, idx+1)
	return true
}

func (r *Repository) Find(id string) (AssetRecord, bool) {
	idx := r.indexOf(id)
	if idx < 0 {
		return AssetRecord{}, false
	}
	return r.records[idx], true
}

// Filter keeps collection order.
func (r *Repository) Filter(keep func(AssetRecord) bool) []AssetRecord {
	out := make([]AssetRecord, 0, len(r.records))
	for _, record := range r.records {
		if keep(record) {
			out = append(out, record)
		}
	}
	return out
}

func (r *Repository) All() []AssetRecord {
	return append(make([]AssetRecord, 0, len(r.records)), r.records...)
}

func (r *Repository) Len() int {
	return len(r.records)
}

func (r *Repository) Clone() *Repository {
	return &Repository{records: slices.Clone(r.records), newID: r.newID}
}

func (r *Repository) indexOf(id string) int {
	return slices.IndexFunc(r.records, func(record AssetRecord) bool {
		return record.ID == id
	})
}

func (r *Repository) uniqueID() (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := r.newID()
		if err != nil {
			return "", err
		}
		if id != "" && r.indexOf(id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("generate record id: no unique id after %d attempts", maxIDAttempts)
}
