package shard

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/errs"
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/query"
)

// Coordinator routes documents across N independently locked shards by
// round-robin assignment, and fans queries out to every shard, merging
// their top-k heaps by score (ties broken by ascending global doc id).
type Coordinator struct {
	shards        []*Shard
	globalCounter atomic.Uint64
}

// Open creates or reopens N shard index files under dir (named
// "shard-<i>.idx") and recovers the round-robin document counter from their
// current indexed-document counts.
func Open(dir string, shardCount int, schema Schema, accessType format.AccessType, segmentBits uint, engine endian.EndianEngine, commitPermits int64, opts ...Option) (*Coordinator, error) {
	shards := make([]*Shard, 0, shardCount)

	for i := 0; i < shardCount; i++ {
		path := filepath.Join(dir, fmt.Sprintf("shard-%d.idx", i))
		s, err := OpenShard(path, schema, accessType, segmentBits, engine, commitPermits, opts...)
		if err != nil {
			for _, opened := range shards {
				opened.Close()
			}
			return nil, err
		}
		shards = append(shards, s)
	}

	var total uint64
	for _, s := range shards {
		total += s.IndexedDocCount()
	}

	c := &Coordinator{shards: shards}
	c.globalCounter.Store(total)

	return c, nil
}

// ShardCount returns N, the number of shards this coordinator routes over.
func (c *Coordinator) ShardCount() int {
	return len(c.shards)
}

// IndexDocument assigns the document the next global id (round-robin over
// shards) and indexes it on its selected shard.
//
// The global counter and a shard's own local counter advance independently:
// under concurrent callers targeting the same shard, whichever goroutine
// acquires that shard's write lock first gets the next local id, which can
// differ from strict global-counter order. Callers that need the
// local = global/N convention to hold exactly should serialize calls per
// shard (e.g. one ingest worker per shard).
func (c *Coordinator) IndexDocument(terms []TermOccurrence) (globalID uint64, err error) {
	n := uint64(len(c.shards))
	g := c.globalCounter.Add(1) - 1

	shardID := g % n
	if _, err := c.shards[shardID].IndexDocument(terms); err != nil {
		return 0, err
	}

	return g, nil
}

// localID splits a global document id into its owning shard index and the
// shard-local id within it.
func (c *Coordinator) localID(globalID uint64) (shardID int, local uint64, err error) {
	if len(c.shards) == 0 {
		return 0, 0, errs.ErrShardOutOfRange
	}

	n := uint64(len(c.shards))
	sid := globalID % n

	return int(sid), globalID / n, nil
}

// LocalID exposes the global-id routing formula (shard = g mod N, local =
// g / N) to callers that need to address a single shard directly, such as
// a document-store lookup keyed by the same (shard, local) pair.
func (c *Coordinator) LocalID(globalID uint64) (shardID int, local uint64, err error) {
	return c.localID(globalID)
}

// ClearAll discards every shard's indexed documents and tombstones,
// resetting the coordinator back to a freshly created state and rewinding
// the global document counter to zero.
func (c *Coordinator) ClearAll() error {
	for _, s := range c.shards {
		if err := s.Clear(); err != nil {
			return err
		}
	}

	c.globalCounter.Store(0)
	return nil
}

// Delete tombstones globalID on its owning shard.
func (c *Coordinator) Delete(globalID uint64) error {
	shardID, local, err := c.localID(globalID)
	if err != nil {
		return err
	}

	c.shards[shardID].Delete(local)
	return nil
}

// CommitAll hard-commits every shard concurrently.
func (c *Coordinator) CommitAll() error {
	var g errgroup.Group
	for _, s := range c.shards {
		s := s
		g.Go(s.Commit)
	}

	return g.Wait()
}

// GlobalResult is one scored document with its cross-shard global id.
type GlobalResult struct {
	DocID uint64
	Score float32
}

// Search plans must/should/mustNot term text against every shard
// concurrently, then merges each shard's top-k heap into one global
// ranking (descending score, ties broken by ascending doc id), truncated
// to k.
func (c *Coordinator) Search(must, should, mustNot []string, phrases [][]string, k int) ([]GlobalResult, error) {
	n := len(c.shards)
	perShard := make([][]query.Result, n)

	var g errgroup.Group
	for i, s := range c.shards {
		i, s := i, s
		g.Go(func() error {
			topK := query.NewTopK(k)
			if err := s.PlanAndSearch(must, should, mustNot, phrases, topK); err != nil {
				return err
			}
			perShard[i] = topK.Results()

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]GlobalResult, 0, k*n)
	shardNumber := uint64(n)
	for shardID, results := range perShard {
		for _, r := range results {
			local := blockGlobalToLocalID(r.DocID)
			merged = append(merged, GlobalResult{
				DocID: local*shardNumber + uint64(shardID),
				Score: r.Score,
			})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].DocID < merged[j].DocID
	})
	if len(merged) > k {
		merged = merged[:k]
	}

	return merged, nil
}

// Count plans must/should/mustNot term text against every shard
// concurrently and returns the total number of matching documents across
// the whole index, without scoring or ranking any of them.
func (c *Coordinator) Count(must, should, mustNot []string, phrases [][]string) (int, error) {
	counts := make([]int, len(c.shards))

	var g errgroup.Group
	for i, s := range c.shards {
		i, s := i, s
		g.Go(func() error {
			n, err := s.PlanAndCount(must, should, mustNot, phrases)
			if err != nil {
				return err
			}
			counts[i] = n

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return total, nil
}

// Close hard-commits and closes every shard.
func (c *Coordinator) Close() error {
	for _, s := range c.shards {
		if err := s.Commit(); err != nil {
			return err
		}
	}
	for _, s := range c.shards {
		if err := s.Close(); err != nil {
			return err
		}
	}

	return nil
}
