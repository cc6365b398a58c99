package query

import (
	"container/heap"
	"sort"
)

// Result is one scored document: DocID is the shard-global id
// (block_id<<16 | local_docid).
type Result struct {
	DocID uint64
	Score float32
}

// resultHeap is a container/heap min-heap ordered by ascending score, so
// the root is always the current top-k cutoff's weakest survivor.
type resultHeap []Result

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x interface{}) { *h = append(*h, x.(Result)) }
func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopK collects the top_k highest-scoring results seen so far, discarding
// the weakest survivor whenever a new one arrives once full. It also
// tracks each accepted docid's slot so a later, higher-scoring posting for
// the same document (e.g. matched under a second query term) replaces
// rather than duplicates it.
type TopK struct {
	k       int
	h       resultHeap
	indexOf map[uint64]int
	count   int
}

// NewTopK creates a collector retaining at most k results.
func NewTopK(k int) *TopK {
	return &TopK{k: k, indexOf: make(map[uint64]int)}
}

// AddCount accumulates n matching documents into the collector's running
// total. It is used by the ResultType=Count fast path instead of Offer,
// since a Count query never needs a ranked result to survive.
func (t *TopK) AddCount(n int) {
	t.count += n
}

// TotalCount returns the running total AddCount has accumulated so far.
func (t *TopK) TotalCount() int {
	return t.count
}

// Offer considers one candidate result, returning true if it was kept
// (inserted or used to replace a weaker existing entry for the same
// document).
func (t *TopK) Offer(docID uint64, score float32) bool {
	if idx, ok := t.indexOf[docID]; ok {
		if score <= t.h[idx].Score {
			return false
		}
		t.h[idx].Score = score
		heap.Fix(&t.h, idx)
		t.fixIndex()
		return true
	}

	if len(t.h) < t.k {
		t.indexOf[docID] = len(t.h)
		heap.Push(&t.h, Result{DocID: docID, Score: score})
		t.fixIndex()
		return true
	}

	if len(t.h) == 0 || score <= t.h[0].Score {
		return false
	}

	delete(t.indexOf, t.h[0].DocID)
	t.h[0] = Result{DocID: docID, Score: score}
	heap.Fix(&t.h, 0)
	t.indexOf[docID] = 0
	t.fixIndex()

	return true
}

// fixIndex rebuilds indexOf after a heap mutation may have reshuffled
// element positions. The heap is small (top_k), so a full rebuild is
// cheaper than tracking swaps through container/heap's internals.
func (t *TopK) fixIndex() {
	for i, r := range t.h {
		t.indexOf[r.DocID] = i
	}
}

// MinScore returns the current weakest survivor's score, the WAND pruning
// bound once the collector holds k results; ok is false until then.
func (t *TopK) MinScore() (score float32, ok bool) {
	if len(t.h) < t.k {
		return 0, false
	}

	return t.h[0].Score, true
}

// Len returns the number of results currently held.
func (t *TopK) Len() int { return len(t.h) }

// Remove drops docID from the collector, if present, for a caller applying
// a filter (e.g. tombstoned deletes) the executor itself doesn't know
// about.
func (t *TopK) Remove(docID uint64) {
	idx, ok := t.indexOf[docID]
	if !ok {
		return
	}

	heap.Remove(&t.h, idx)
	delete(t.indexOf, docID)
	t.fixIndex()
}

// Results returns a copy of the held results in descending-score order; the
// collector itself is left unchanged.
func (t *TopK) Results() []Result {
	out := make([]Result, len(t.h))
	copy(out, t.h)

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	return out
}
