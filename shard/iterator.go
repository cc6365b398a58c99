package shard

// IteratorResult is one page of a forward or backward document-id scan:
// Skip reports how many valid ids were actually skipped (which can be less
// than requested if the index ran out; when take is 0 or the index holds no
// ids, the requested skip is returned unchanged), and DocIDs holds the taken
// ids in ascending order.
type IteratorResult struct {
	Skip   int
	DocIDs []uint64
}

// Iterate walks every non-tombstoned (unless includeDeleted) global
// document id across all shards, without collecting anything into a
// top-k heap. It is the efficient sequential-access path for exports,
// conversion, and audits.
//
// docID, if non-nil, anchors the walk at that global id; otherwise it
// starts at the index's first id (take > 0) or last id (take < 0). take's
// sign selects direction; its magnitude is how many ids to return after
// skipping skip valid ids first. take == 0 returns an empty result.
//
// Because shards advance at different rates, simply counting 0..total can
// land on a global id no shard has assigned yet; Iterate only ever returns
// ids a shard has actually indexed.
func (c *Coordinator) Iterate(docID *uint64, skip int, take int, includeDeleted bool) IteratorResult {
	if take == 0 {
		return IteratorResult{Skip: skip}
	}

	n := uint64(len(c.shards))

	minID, maxID, ok := c.idRange(n)
	if !ok {
		return IteratorResult{Skip: skip}
	}

	forward := take > 0
	count := take
	if count < 0 {
		count = -count
	}

	var cur uint64
	switch {
	case docID != nil:
		if *docID < minID || *docID > maxID {
			return IteratorResult{Skip: skip}
		}
		cur = *docID
	case forward:
		cur = minID
	default:
		cur = maxID
	}

	results := make([]uint64, 0, count)
	skipped := 0

	for len(results) < count {
		if c.validID(cur, n, includeDeleted) {
			if skipped < skip {
				skipped++
			} else {
				results = append(results, cur)
			}
		}

		if !advanceID(&cur, forward, minID, maxID) {
			break
		}
	}

	return IteratorResult{Skip: skipped, DocIDs: results}
}

// idRange returns the smallest and largest global ids any shard has ever
// assigned, or ok=false if every shard is empty.
func (c *Coordinator) idRange(n uint64) (minID, maxID uint64, ok bool) {
	for shardID, s := range c.shards {
		cnt := s.IndexedDocCount()
		if cnt == 0 {
			continue
		}

		shardMax := uint64(shardID) + (cnt-1)*n
		if !ok {
			minID, maxID, ok = uint64(shardID), shardMax, true
			continue
		}
		if shardMax > maxID {
			maxID = shardMax
		}
	}

	return minID, maxID, ok
}

// validID reports whether global id g maps to a document its shard has
// actually indexed and (unless includeDeleted) has not tombstoned.
func (c *Coordinator) validID(g, n uint64, includeDeleted bool) bool {
	shardID := g % n
	local := g / n

	s := c.shards[shardID]
	if local >= s.IndexedDocCount() {
		return false
	}

	return includeDeleted || !s.Deleted(local)
}

// advanceID moves cur one step in the scan direction, returning false if
// doing so would cross the index's bound.
func advanceID(cur *uint64, forward bool, minID, maxID uint64) bool {
	if forward {
		if *cur >= maxID {
			return false
		}
		*cur++
		return true
	}

	if *cur <= minID {
		return false
	}
	*cur--
	return true
}
