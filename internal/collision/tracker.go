// Package collision detects term-key hash collisions: two distinct terms
// whose 64-bit xxHash64 key happens to coincide. Collisions are expected to
// be vanishingly rare but must not corrupt an
// index silently — a level-0 entry or committed block is addressed purely
// by its key, so two colliding terms would otherwise merge into one
// postings list.
package collision

import (
	"github.com/SeekStorm/SeekStorm-sub001/errs"
)

// Tracker tracks term text seen for each term key and flags collisions: the
// same key produced by two different term texts.
type Tracker struct {
	terms        map[uint64]string // key → term text, for collision detection
	termList     []string          // ordered list, for diagnostics / disambiguation payloads
	hasCollision bool
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		terms:    make(map[uint64]string),
		termList: make([]string, 0),
	}
}

// TrackKey tracks a term key without its source text (used on the read path,
// where only the key is available). Returns errs.ErrHashCollision if the key
// was already registered — without the term text there is nothing to
// disambiguate with, so a second registration can only mean a genuine
// collision.
func (t *Tracker) TrackKey(key uint64) error {
	if _, exists := t.terms[key]; exists {
		return errs.ErrHashCollision
	}

	t.terms[key] = ""

	return nil
}

// TrackTerm tracks a term's text together with its key, as computed while
// indexing. Returns errs.ErrEmptyPosting-adjacent errs.ErrInvalidTerm for an
// empty term, or errs.ErrTermAlreadyTracked if the exact same term text was
// already tracked under this key.
//
// A hash collision (different text, same key) is not an error here: the
// flag is set so the caller can fall back to a disambiguation path (e.g.
// storing both term texts alongside the shared key), matching the
// teacher's collision-handling-without-erroring pattern.
func (t *Tracker) TrackTerm(term string, key uint64) error {
	if term == "" {
		return errs.ErrInvalidTerm
	}

	if existing, exists := t.terms[key]; exists {
		if existing != term {
			t.hasCollision = true
		} else {
			return errs.ErrTermAlreadyTracked
		}
	}

	t.terms[key] = term
	t.termList = append(t.termList, term)

	return nil
}

// HasCollision returns true if a collision has been detected.
func (t *Tracker) HasCollision() bool {
	return t.hasCollision
}

// Terms returns the ordered list of tracked term texts.
func (t *Tracker) Terms() []string {
	return t.termList
}

// Count returns the number of tracked terms.
func (t *Tracker) Count() int {
	return len(t.termList)
}

// Reset clears all tracked terms and collision state, preserving allocated
// capacity so the tracker can be reused across commits without
// reallocating its backing map/slice.
func (t *Tracker) Reset() {
	for k := range t.terms {
		delete(t.terms, k)
	}
	t.termList = t.termList[:0]
	t.hasCollision = false
}
