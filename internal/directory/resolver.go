package directory

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ErrEmptyQuery rejects resolution calls carrying neither a unit id nor a
// name. That is a caller bug, unlike a miss, which is a routine outcome.
var ErrEmptyQuery = errors.New("resolve: query needs a unit id or a name")

// Query identifies a unit by id, name, or both.
type Query struct {
	UnitID string `json:"unit_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// Resolver decides the submission channel for a unit reference against the
// stored directory.
type Resolver struct {
	store *Store
	log   *zap.Logger
}

// NewResolver builds a resolver over the store.
func NewResolver(store *Store, log *zap.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// matcher is one lookup strategy. Strategies run in declaration order and
// the first hit short-circuits the rest.
type matcher struct {
	name  string
	match func(q Query, records []Record) *Record
}

var matchers = []matcher{
	{"unit-id", matchUnitID},
	{"exact-name", matchExactName},
	{"name-substring", matchNameSubstring},
}

// Resolve maps a unit reference to a submission channel.
//
// A match with a known address yields EMAIL plus that address; a match
// without one, or no match at all, yields PORTAL. A miss is never an
// error: the caller is always told how to proceed.
func (r *Resolver) Resolve(q Query) (Resolution, error) {
	if q.UnitID == "" && strings.TrimSpace(q.Name) == "" {
		return Resolution{}, ErrEmptyQuery
	}

	records, err := r.store.Records()
	if err != nil {
		return Resolution{}, err
	}

	for _, m := range matchers {
		rec := m.match(q, records)
		if rec == nil {
			continue
		}

		r.log.Debug("unit resolved",
			zap.String("strategy", m.name),
			zap.String("unit_id", rec.UnitID))

		if rec.HasEmail() {
			return Resolution{Channel: ChannelEmail, Record: rec, Email: rec.Email()}, nil
		}
		return Resolution{Channel: ChannelPortal, Record: rec}, nil
	}

	r.log.Debug("no unit matched, routing to portal",
		zap.String("unit_id", q.UnitID),
		zap.String("name", q.Name))
	return Resolution{Channel: ChannelPortal}, nil
}

func matchUnitID(q Query, records []Record) *Record {
	if q.UnitID == "" {
		return nil
	}
	for i := range records {
		if records[i].UnitID == q.UnitID {
			return &records[i]
		}
	}
	return nil
}

func matchExactName(q Query, records []Record) *Record {
	name := strings.TrimSpace(q.Name)
	if name == "" {
		return nil
	}
	for i := range records {
		if strings.EqualFold(records[i].Name, name) {
			return &records[i]
		}
	}
	return nil
}

// matchNameSubstring matches containment in either direction. Ties go to
// the first record in stored order: with both "FBI" and "FBI Field Office"
// in the directory, a query for "FBI Field" lands on whichever the
// directory lists first.
func matchNameSubstring(q Query, records []Record) *Record {
	name := strings.ToLower(strings.TrimSpace(q.Name))
	if name == "" {
		return nil
	}
	for i := range records {
		candidate := strings.ToLower(records[i].Name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, name) || strings.Contains(name, candidate) {
			return &records[i]
		}
	}
	return nil
}
