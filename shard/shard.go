package shard

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/internal/collision"
	"github.com/SeekStorm/SeekStorm-sub001/internal/hash"
	"github.com/SeekStorm/SeekStorm-sub001/internal/options"
	"github.com/SeekStorm/SeekStorm-sub001/level"
	"github.com/SeekStorm/SeekStorm-sub001/postings"
	"github.com/SeekStorm/SeekStorm-sub001/query"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

// commitArenaSize / commitArenaGrowth size the level-0 postings arena every
// shard's accumulator is built with.
const (
	commitArenaSize   = 1 << 20
	commitArenaGrowth = 1 << 18
)

// TermOccurrence is one term's per-field position list within a document
// about to be indexed. Tokenization, stemming, and n-gram folding happen
// upstream; a shard only ever sees already-resolved term keys and position
// lists.
type TermOccurrence struct {
	Term      string
	NgramType format.NgramType
	Fields    []postings.FieldPositions
}

// Shard owns one partition's append-only index file, its level-0
// accumulator, and the bookkeeping needed to assign block-local document
// ids, track tombstones, and trigger automatic hard commits at the
// 65536-document block boundary.
//
// Indexing, committing, deleting and Clear acquire Shard's write lock,
// since the level-0 accumulator is not internally synchronized; queries,
// counts and read-only accessors acquire its read lock.
type Shard struct {
	mu  sync.RWMutex
	sem *semaphore.Weighted

	path          string
	accessType    format.AccessType
	segmentBits   uint
	engine        endian.EndianEngine
	commitPermits int64

	schema    Schema
	store     *level.Store
	acc       *postings.Accumulator
	collision *collision.Tracker

	nextBlockLocalID uint16
	indexedDocCount  uint64
	positionsSum     uint64
	docLengthCodes   [][]byte

	tombstones map[uint64]struct{}
}

// OpenShard opens (creating if necessary) a shard's index file at path and
// recovers its indexed-document bookkeeping from the last committed level,
// if any.
//
// commitPermits bounds how many of this shard's commit/warmup operations
// may run concurrently; most deployments want 1 (commit and warmup are
// mutually exclusive passes over the same scratch buffers) but a shard that
// warms up mmap pages in the background while committing the next level can
// use 2.
func OpenShard(path string, schema Schema, accessType format.AccessType, segmentBits uint, engine endian.EndianEngine, commitPermits int64, opts ...Option) (*Shard, error) {
	if err := options.Apply(&schema, opts...); err != nil {
		return nil, err
	}

	store, err := level.OpenStore(path, segmentBits, accessType, engine)
	if err != nil {
		return nil, err
	}

	s := &Shard{
		sem:            semaphore.NewWeighted(commitPermits),
		path:           path,
		accessType:     accessType,
		segmentBits:    segmentBits,
		engine:         engine,
		commitPermits:  commitPermits,
		schema:         schema,
		store:          store,
		acc:            postings.NewAccumulator(commitArenaSize, commitArenaGrowth, engine, schema.SingleField, schema.LongestFieldID),
		collision:      collision.NewTracker(),
		docLengthCodes: newDocLengthCodes(schema.FieldCount),
		tombstones:     make(map[uint64]struct{}),
	}

	if n := len(store.Levels); n > 0 {
		last := store.Levels[n-1]
		s.indexedDocCount = last.IndexedDocCount
		s.positionsSum = last.PositionsSumNormalized
		s.nextBlockLocalID = uint16(last.IndexedDocCount % section.RoaringBlockSize)

		if last.Incomplete {
			header, err := store.LevelHeader(n - 1)
			if err != nil {
				store.Close()
				return nil, err
			}
			for i, codes := range header.DocumentLengthCodes {
				if i < len(s.docLengthCodes) {
					copy(s.docLengthCodes[i], codes)
				}
			}
		}
	}

	return s, nil
}

// newDocLengthCodes allocates a fresh per-field, per-block-local-docid
// length-code array, one RoaringBlockSize-byte slice per field.
func newDocLengthCodes(fieldCount int) [][]byte {
	codes := make([][]byte, fieldCount)
	for i := range codes {
		codes[i] = make([]byte, section.RoaringBlockSize)
	}

	return codes
}

// IndexDocument assigns the next shard-local document id, appends every
// term occurrence to the level-0 accumulator, and records the document's
// per-field length codes. If this document completes a 65536-document
// block, a hard commit runs automatically before IndexDocument returns.
func (s *Shard) IndexDocument(terms []TermOccurrence) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fieldLen := make(map[uint16]int)
	for _, t := range terms {
		for _, f := range t.Fields {
			fieldLen[f.FieldID] += len(f.Positions)
		}
	}
	if len(fieldLen) == 0 {
		return 0, errs.ErrEmptyPosting
	}

	blockLocal := s.nextBlockLocalID
	for _, t := range terms {
		if len(t.Fields) == 0 {
			continue
		}
		key := hash.TermKey(t.Term, t.NgramType)

		if _, exists := s.acc.Term(key); !exists {
			hadCollision := s.collision.HasCollision()
			if err := s.collision.TrackTerm(t.Term, key); err != nil {
				return 0, err
			}
			if s.collision.HasCollision() && !hadCollision {
				return 0, errs.ErrHashCollision
			}
		}

		if err := s.acc.IndexPosting(key, t.NgramType, blockLocal, t.Fields, false); err != nil {
			return 0, err
		}
	}

	docLen := 0
	for fieldID, n := range fieldLen {
		if int(fieldID) >= len(s.docLengthCodes) {
			return 0, errs.ErrTooManyFields
		}
		s.docLengthCodes[fieldID][blockLocal] = level.DocumentLengthCode(n)
		docLen += n
	}

	globalLocalID := s.indexedDocCount
	s.indexedDocCount++
	s.positionsSum += uint64(docLen)
	s.nextBlockLocalID++

	if s.nextBlockLocalID == 0 {
		if err := s.commitLocked(); err != nil {
			return globalLocalID, err
		}
	}

	return globalLocalID, nil
}

// Commit hard-commits the shard's current level-0 postings even if the
// block is not yet full, as required on index close and by an explicit
// caller-triggered commit.
func (s *Shard) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commitLocked()
}

// commitLocked must be called with mu held for writing. A redundant commit
// against an already-empty level 0 is a cheap no-op: it returns without
// writing anything, matching the monotonic/idempotent commit semantics a
// caller can always safely invoke.
func (s *Shard) commitLocked() error {
	if len(s.acc.Terms()) == 0 {
		return nil
	}

	ctx := context.Background()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)

	avgDocLength := 0.0
	if s.indexedDocCount > 0 {
		avgDocLength = float64(s.positionsSum) / float64(s.indexedDocCount)
	}

	docLengthCodes := s.docLengthCodes
	scoring := func(key uint64, term *postings.Level0Term) level.ScoreParams {
		return level.ScoreParams{
			K: s.schema.K, B: s.schema.B, Sigma: s.schema.Sigma,
			IDF:          1,
			AvgDocLength: avgDocLength,
			DocLengthCode: func(fieldID uint16, d uint16) byte {
				if int(fieldID) >= len(docLengthCodes) {
					return 0
				}

				return docLengthCodes[fieldID][d]
			},
			BoostField:     s.schema.BoostField,
			SingleField:    s.schema.SingleField,
			LongestFieldID: s.schema.LongestFieldID,
		}
	}

	if _, err := s.store.CommitLevel(s.acc, s.schema.LongestFieldID, s.docLengthCodes, s.indexedDocCount, s.positionsSum, scoring); err != nil {
		return err
	}

	// store.CommitLevel reset the accumulator's term map on success; the
	// collision tracker mirrors that so a term key freed by the reset isn't
	// mistaken for a stale collision on the next level.
	s.collision.Reset()
	s.docLengthCodes = newDocLengthCodes(s.schema.FieldCount)

	return nil
}

// Delete tombstones a shard-local document id. Tombstoned ids are excluded
// from every subsequent query and from the non-include-deleted iterator
// path, regardless of whether the id is still in level 0 or already
// committed.
func (s *Shard) Delete(localID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tombstones[localID] = struct{}{}
}

// Deleted reports whether localID has been tombstoned.
func (s *Shard) Deleted(localID uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tombstones[localID]
	return ok
}

// IndexedDocCount returns the shard's total indexed document count so far,
// including documents still only in level 0.
func (s *Shard) IndexedDocCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.indexedDocCount
}

// PlanAndSearch resolves must/should/mustNot term text against the shard's
// current state and runs the resulting query, all under a single read
// lock. Planning and searching share one lock acquisition because the
// store's mmap/RAM block source is swapped out (not synchronized) on
// commit: a planner built under one lock acquisition and searched under a
// second could straddle a commit and read torn byte-source state.
//
// Tombstoned documents are filtered out of topK's results after the
// executor runs, since deletes are shard-level and orthogonal to how a
// block was scored.
func (s *Shard) PlanAndSearch(must, should, mustNot []string, phrases [][]string, topK *query.TopK) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, err := query.NewPlanner(s.store, s.acc).Plan(must, should, mustNot, phrases)
	if err != nil {
		return err
	}

	exec := query.NewExecutor(s.store, s.acc, s.schema.K, s.schema.B, s.schema.Sigma, s.schema.BoostField)
	exec.Similarity = s.schema.Similarity
	if _, err := exec.Search(q, topK); err != nil {
		return err
	}

	if len(s.tombstones) == 0 {
		return nil
	}

	for _, r := range topK.Results() {
		localID := blockGlobalToLocalID(r.DocID)
		if _, dead := s.tombstones[localID]; dead {
			topK.Remove(r.DocID)
		}
	}

	return nil
}

// PlanAndCount resolves must/should/mustNot term text and returns the exact
// number of matching documents, without scoring or ranking them. It mirrors
// PlanAndSearch's single-read-lock discipline, but tombstones are applied
// inside the executor itself (via tombstoneBitmap) rather than filtered out
// of a result list afterward, since a Count query never builds one.
func (s *Shard) PlanAndCount(must, should, mustNot []string, phrases [][]string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, err := query.NewPlanner(s.store, s.acc).Plan(must, should, mustNot, phrases)
	if err != nil {
		return 0, err
	}

	exec := query.NewExecutor(s.store, s.acc, s.schema.K, s.schema.B, s.schema.Sigma, s.schema.BoostField)
	exec.ResultType = format.ResultCount
	exec.Similarity = s.schema.Similarity
	exec.TombstoneBitmap = s.tombstoneBitmap

	counter := query.NewTopK(0)
	if _, err := exec.Search(q, counter); err != nil {
		return 0, err
	}

	return counter.TotalCount(), nil
}

// tombstoneBitmap builds a dense BitmapBodySize-byte bitmap of levelIdx's
// tombstoned block-local docids, or returns nil if none fall in that level.
// levelIdx == len(s.store.Levels) addresses the pending level-0 block.
func (s *Shard) tombstoneBitmap(levelIdx int) []byte {
	if len(s.tombstones) == 0 {
		return nil
	}

	base := uint64(levelIdx) * section.RoaringBlockSize
	var bitmap []byte
	for localID := range s.tombstones {
		if localID < base || localID >= base+section.RoaringBlockSize {
			continue
		}
		if bitmap == nil {
			bitmap = make([]byte, section.BitmapBodySize)
		}
		blockLocal := localID - base
		bitmap[blockLocal/8] |= 1 << (blockLocal % 8)
	}

	return bitmap
}

// blockGlobalToLocalID converts an executor result's (blockID<<16|blockLocal)
// global id back into the shard-local document id used by tombstones and
// the iterator.
func blockGlobalToLocalID(globalID uint64) uint64 {
	blockID := globalID >> 16
	blockLocal := globalID & 0xffff
	return blockID*section.RoaringBlockSize + blockLocal
}

// Clear discards every indexed document and tombstone, truncating the
// shard's index file back to empty. It is the shard-local half of a
// coordinator-wide reindex-from-scratch operation.
func (s *Shard) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Close(); err != nil {
		return err
	}
	if err := os.Truncate(s.path, 0); err != nil {
		return err
	}

	store, err := level.OpenStore(s.path, s.segmentBits, s.accessType, s.engine)
	if err != nil {
		return err
	}

	s.store = store
	s.acc = postings.NewAccumulator(commitArenaSize, commitArenaGrowth, s.engine, s.schema.SingleField, s.schema.LongestFieldID)
	s.collision = collision.NewTracker()
	s.nextBlockLocalID = 0
	s.indexedDocCount = 0
	s.positionsSum = 0
	s.docLengthCodes = newDocLengthCodes(s.schema.FieldCount)
	s.tombstones = make(map[uint64]struct{})
	s.sem = semaphore.NewWeighted(s.commitPermits)

	return nil
}

// Close releases the shard's index file and mapped/owned bytes.
func (s *Shard) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Close()
}
