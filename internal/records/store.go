// Package records holds the per-run collection of contact records and the
// overlay merge that folds stage deltas into it.
package records

import (
	"strings"

	"github.com/dtb-digital/prospect-agent/internal/model"
)

// Store is an email-keyed collection of users that iterates in the order
// each email was first seen. It is owned by a single pipeline run and is
// not safe for concurrent mutation.
type Store struct {
	order []string
	byKey map[string]model.User
}

// New creates an empty Store.
func New() *Store {
	return &Store{byKey: make(map[string]model.User)}
}

// Key normalizes an email into the identity used by the store.
func Key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Apply merges each incoming record into the store. Records whose email
// already exists are overlaid field by field; new emails are appended.
// Records without an email cannot be keyed and are skipped. It returns the
// number of records that were skipped.
func (s *Store) Apply(incoming ...model.User) int {
	skipped := 0
	for _, u := range incoming {
		key := Key(u.Email)
		if key == "" {
			skipped++
			continue
		}
		existing, ok := s.byKey[key]
		if !ok {
			u.Email = key
			u.Sources = model.Sources(nil).Union(u.Sources)
			s.byKey[key] = u
			s.order = append(s.order, key)
			continue
		}
		s.byKey[key] = Merge(existing, u)
	}
	return skipped
}

// ClearProfile drops the intermediate raw profile from a record.
func (s *Store) ClearProfile(email string) {
	key := Key(email)
	u, ok := s.byKey[key]
	if !ok {
		return
	}
	u.Profile = nil
	s.byKey[key] = u
}

// Get returns the record for email.
func (s *Store) Get(email string) (model.User, bool) {
	u, ok := s.byKey[Key(email)]
	return u, ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.order)
}

// Users returns every record in first-seen order.
func (s *Store) Users() []model.User {
	out := make([]model.User, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}

// Filter returns the records matching pred in first-seen order.
func (s *Store) Filter(pred func(model.User) bool) []model.User {
	var out []model.User
	for _, k := range s.order {
		if u := s.byKey[k]; pred(u) {
			out = append(out, u)
		}
	}
	return out
}

// Tagged returns the records carrying tag.
func (s *Store) Tagged(tag string) []model.User {
	return s.Filter(func(u model.User) bool { return u.Sources.Has(tag) })
}

// CountTagged returns how many records carry tag.
func (s *Store) CountTagged(tag string) int {
	n := 0
	for _, k := range s.order {
		if s.byKey[k].Sources.Has(tag) {
			n++
		}
	}
	return n
}
