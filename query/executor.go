package query

import (
	"github.com/SeekStorm/SeekStorm-sub001/codec"
	"github.com/SeekStorm/SeekStorm-sub001/docid"
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/level"
	"github.com/SeekStorm/SeekStorm-sub001/postings"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

// Executor runs a planned query block-at-a-time against one shard's
// committed levels and pending level-0 accumulator, scoring surviving
// documents with a BM25-like similarity and collecting the top-k into a
// TopK heap.
type Executor struct {
	Store *level.Store
	Acc   *postings.Accumulator

	K, B, Sigma float64
	BoostField  func(fieldID uint16) float64

	// Similarity selects whether phrase matches (Query.Phrases) only gate
	// which candidates survive (Bm25f) or additionally add a proximity
	// bonus to the surviving candidates' scores (Bm25fProximity).
	Similarity format.SimilarityType

	// ResultType selects between the default ranked Topk search and the
	// Count fast path, which skips scoring (and, when every matched
	// clause in a block used the Bitmap docid codec, skips decoding
	// position data at all).
	ResultType format.ResultType
	// TombstoneBitmap, if set, returns a dense RoaringBlockSize-bit
	// bitmap of tombstoned block-local docids for the given level index
	// (levelIdx == len(Store.Levels) addresses the pending level-0
	// block), or nil if that level has no tombstones. Only consulted in
	// Count mode: Topk queries are filtered by the caller after Offer,
	// per PlanAndSearch's existing contract.
	TombstoneBitmap func(levelIdx int) []byte
}

// NewExecutor creates an executor with the BM25 constants a shard's schema
// was configured with.
func NewExecutor(store *level.Store, acc *postings.Accumulator, k, b, sigma float64, boostField func(fieldID uint16) float64) *Executor {
	return &Executor{Store: store, Acc: acc, K: k, B: b, Sigma: sigma, BoostField: boostField}
}

// phraseMatches reports whether d satisfies every phrase clause in q: for
// each, some one field of d's postings carries the clause's words at
// strictly consecutive ascending positions, in order.
func phraseMatches(q *Query, decodedByKey map[uint64]blockPostings, d uint16) bool {
	for _, ph := range q.Phrases {
		if !onePhraseMatches(ph, decodedByKey, d) {
			return false
		}
	}

	return true
}

func onePhraseMatches(ph PhraseClause, decodedByKey map[uint64]blockPostings, d uint16) bool {
	if len(ph.Terms) == 0 {
		return true
	}

	first, ok := decodedByKey[ph.Terms[0].Key]
	if !ok {
		return false
	}
	firstFields, ok := first.byDoc[d]
	if !ok {
		return false
	}

	for _, ff := range firstFields {
		for _, startPos := range ff.Positions {
			if phraseStartsAt(ph, decodedByKey, d, ff.FieldID, startPos) {
				return true
			}
		}
	}

	return false
}

// phraseStartsAt reports whether ph's second-and-later words each occur in
// fieldID at the position immediately following the previous word, given
// the first word occurs at startPos.
func phraseStartsAt(ph PhraseClause, decodedByKey map[uint64]blockPostings, d uint16, fieldID uint16, startPos uint32) bool {
	for i := 1; i < len(ph.Terms); i++ {
		bp, ok := decodedByKey[ph.Terms[i].Key]
		if !ok {
			return false
		}
		fields, ok := bp.byDoc[d]
		if !ok {
			return false
		}

		want := startPos + uint32(i)
		found := false
		for _, f := range fields {
			if f.FieldID != fieldID {
				continue
			}
			for _, p := range f.Positions {
				if p == want {
					found = true
					break
				}
			}
			break
		}
		if !found {
			return false
		}
	}

	return true
}

// filterPhrases drops every candidate docid that doesn't satisfy all of
// q's phrase clauses.
func filterPhrases(q *Query, decodedByKey map[uint64]blockPostings, candidates []uint16) []uint16 {
	if len(q.Phrases) == 0 {
		return candidates
	}

	out := candidates[:0]
	for _, d := range candidates {
		if phraseMatches(q, decodedByKey, d) {
			out = append(out, d)
		}
	}

	return out
}

// phraseProximityScore sums every phrase clause's component-term IDFs as a
// flat bonus, rewarding an exact adjacent-order match proportionally to how
// rare its words are. Only called for candidates filterPhrases has already
// confirmed satisfy every phrase clause.
func phraseProximityScore(q *Query) float32 {
	var bonus float64
	for _, ph := range q.Phrases {
		for _, c := range ph.Terms {
			bonus += c.IDF
		}
	}

	return float32(bonus)
}

// blockPostings is one clause's decoded postings for a single block,
// indexed by block-local docid for O(1) lookup while scoring candidates.
type blockPostings struct {
	docids []uint16
	byDoc  map[uint16][]level.FieldPositions
}

func newBlockPostings(decoded []level.DecodedPosting) blockPostings {
	bp := blockPostings{
		docids: make([]uint16, len(decoded)),
		byDoc:  make(map[uint16][]level.FieldPositions, len(decoded)),
	}
	for i, dp := range decoded {
		bp.docids[i] = dp.DocID
		bp.byDoc[dp.DocID] = dp.Fields
	}

	return bp
}

func allClauses(q *Query) []Clause {
	out := make([]Clause, 0, len(q.Must)+len(q.Should))
	out = append(out, q.Must...)
	out = append(out, q.Should...)

	return out
}

// Search runs q against every committed level and the level-0 accumulator,
// in that order, feeding every match into topK. It returns the number of
// committed+pending blocks it actually decoded (blocks skipped by WAND
// pruning are not counted), mostly useful for tests and diagnostics.
func (e *Executor) Search(q *Query, topK *TopK) (int, error) {
	decodedBlocks := 0

	for levelIdx := range e.Store.Levels {
		decoded, err := e.searchLevel(q, levelIdx, topK)
		if err != nil {
			return decodedBlocks, err
		}
		if decoded {
			decodedBlocks++
		}
	}

	decoded, err := e.searchLevel0(q, topK)
	if err != nil {
		return decodedBlocks, err
	}
	if decoded {
		decodedBlocks++
	}

	return decodedBlocks, nil
}

// wandBound sums every matched clause's max_block_score for one block, the
// highest total score any posting in it could possibly achieve. If that
// bound can't beat the current top-k cutoff, the block is skipped without
// decoding any positions.
func wandBound(heads map[uint64]section.KeyHead) float32 {
	var bound float32
	for _, h := range heads {
		bound += h.MaxBlockScore
	}

	return bound
}

// levelScoreParams builds the BM25 constants shared by every clause scored
// against one committed level, reading its document-length codes and
// average document length from the level header.
func (e *Executor) levelScoreParams(levelIdx int) (level.ScoreParams, error) {
	header, err := e.Store.LevelHeader(levelIdx)
	if err != nil {
		return level.ScoreParams{}, err
	}

	return level.ScoreParams{
		K: e.K, B: e.B, Sigma: e.Sigma,
		AvgDocLength: header.AverageDocumentLength(),
		DocLengthCode: func(fieldID uint16, d uint16) byte {
			if int(fieldID) >= len(header.DocumentLengthCodes) {
				return 0
			}

			return header.DocumentLengthCodes[fieldID][d]
		},
		BoostField:     e.BoostField,
		SingleField:    e.Acc.SingleField,
		LongestFieldID: e.Acc.LongestFieldID,
	}, nil
}

func (e *Executor) searchLevel(q *Query, levelIdx int, topK *TopK) (bool, error) {
	heads := make(map[uint64]section.KeyHead)
	bodies := make(map[uint64][]byte)

	for _, c := range allClauses(q) {
		head, body, found, err := e.Store.LookupTerm(levelIdx, c.Key)
		if err != nil {
			return false, err
		}
		if !found {
			continue
		}
		heads[c.Key] = head
		bodies[c.Key] = body
	}

	if len(q.Must) > 0 {
		for _, c := range q.Must {
			if _, ok := heads[c.Key]; !ok {
				return false, nil
			}
		}
	} else if len(heads) == 0 {
		return false, nil
	}

	if e.ResultType == format.ResultCount {
		if n, ok := e.countBitmapFastPath(q, levelIdx, heads, bodies); ok {
			topK.AddCount(n)
			return true, nil
		}
	} else if len(q.Phrases) == 0 {
		if minScore, ok := topK.MinScore(); ok && wandBound(heads) <= minScore {
			return false, nil
		}
	}

	longestField := e.Acc.LongestFieldID

	decodedByKey := make(map[uint64]blockPostings, len(bodies))
	for key, body := range bodies {
		decoded, err := level.DecompressTerm(heads[key], body, e.Store.Engine, longestField)
		if err != nil {
			return false, err
		}
		decodedByKey[key] = newBlockPostings(decoded)
	}

	candidates := e.candidateDocids(q, decodedByKey)
	if len(candidates) == 0 {
		return true, nil
	}

	candidates = e.subtractMustNotCommitted(q, levelIdx, candidates)
	if len(candidates) == 0 {
		return true, nil
	}

	candidates = filterPhrases(q, decodedByKey, candidates)
	if len(candidates) == 0 {
		return true, nil
	}

	if e.ResultType == format.ResultCount {
		candidates = e.subtractTombstones(levelIdx, candidates)
		topK.AddCount(len(candidates))
		return true, nil
	}

	scoring, err := e.levelScoreParams(levelIdx)
	if err != nil {
		return false, err
	}

	blockID := uint32(levelIdx)
	for _, d := range candidates {
		total := e.scoreCandidate(q, decodedByKey, scoring, d)
		globalID := uint64(blockID)<<16 | uint64(d)
		topK.Offer(globalID, total)
	}

	return true, nil
}

// candidateDocids intersects every Must clause's decoded docids for this
// block (or unions Should clauses when there is no Must clause at all, a
// pure-OR query).
func (e *Executor) candidateDocids(q *Query, decodedByKey map[uint64]blockPostings) []uint16 {
	if len(q.Must) > 0 {
		var result []uint16
		for i, c := range q.Must {
			bp, ok := decodedByKey[c.Key]
			if !ok {
				return nil
			}
			if i == 0 {
				result = append([]uint16{}, bp.docids...)
				continue
			}
			result = docid.IntersectArrayArray(result, bp.docids)
		}

		return result
	}

	lists := make([][]uint16, 0, len(q.Should))
	for _, c := range q.Should {
		if bp, ok := decodedByKey[c.Key]; ok {
			lists = append(lists, bp.docids)
		}
	}

	return docid.Union(lists...)
}

// subtractMustNotCommitted removes any candidate docid present in a
// MustNot clause's postings for this committed level.
func (e *Executor) subtractMustNotCommitted(q *Query, levelIdx int, candidates []uint16) []uint16 {
	if len(q.MustNot) == 0 {
		return candidates
	}

	excluded := make(map[uint16]struct{})
	for _, c := range q.MustNot {
		head, body, found, err := e.Store.LookupTerm(levelIdx, c.Key)
		if err != nil || !found {
			continue
		}

		compressionType, docidBody := splitDocidBody(head, body)
		docids, err := docid.Decode(compressionType, docidBody, e.Store.Engine)
		if err != nil {
			continue
		}
		for _, d := range docids {
			excluded[d] = struct{}{}
		}
	}

	out := candidates[:0]
	for _, d := range candidates {
		if _, skip := excluded[d]; !skip {
			out = append(out, d)
		}
	}

	return out
}

// countBitmapFastPath answers a Count query for one committed block
// without decoding any position or field-vector data, when every Must and
// MustNot clause in the block used the dense Bitmap docid codec: it ANDs
// the raw bitmap bytes directly and counts the surviving bits.
// ok is false when the shape doesn't qualify (a Should clause, no Must
// clause, a phrase clause, or any clause compressed with Array/RLE instead
// of Bitmap), and
// the caller should fall back to the general decode-and-count path.
func (e *Executor) countBitmapFastPath(q *Query, levelIdx int, heads map[uint64]section.KeyHead, bodies map[uint64][]byte) (int, bool) {
	if len(q.Should) > 0 || len(q.Must) == 0 || len(q.Phrases) > 0 {
		return 0, false
	}

	bitmaps := make([][]byte, 0, len(q.Must))
	for _, c := range q.Must {
		compressionType, body := splitDocidBody(heads[c.Key], bodies[c.Key])
		if compressionType != format.CompressionBitmap {
			return 0, false
		}
		bitmaps = append(bitmaps, body)
	}

	notBitmaps := make([][]byte, 0, len(q.MustNot))
	for _, c := range q.MustNot {
		head, body, found, err := e.Store.LookupTerm(levelIdx, c.Key)
		if err != nil || !found {
			continue
		}
		compressionType, notBody := splitDocidBody(head, body)
		if compressionType != format.CompressionBitmap {
			return 0, false
		}
		notBitmaps = append(notBitmaps, notBody)
	}

	var tombstones []byte
	if e.TombstoneBitmap != nil {
		tombstones = e.TombstoneBitmap(levelIdx)
	}

	switch {
	case len(bitmaps) == 1 && len(notBitmaps) == 0 && tombstones == nil:
		return docid.CountBitmap(bitmaps[0]), true
	case len(bitmaps) == 2 && len(notBitmaps) == 0 && tombstones == nil:
		return docid.CountBitmapBitmapAnd(bitmaps[0], bitmaps[1]), true
	default:
		and := append([]byte(nil), bitmaps[0]...)
		for _, b := range bitmaps[1:] {
			andBitmapInPlace(and, b)
		}
		for _, nb := range notBitmaps {
			docid.SubtractBitmap(and, nb)
		}
		if tombstones != nil {
			docid.SubtractBitmap(and, tombstones)
		}

		return docid.CountBitmap(and), true
	}
}

// andBitmapInPlace intersects src into dst, byte by byte.
func andBitmapInPlace(dst, src []byte) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] &= src[i]
	}
}

// subtractTombstones removes any tombstoned block-local docid from
// candidates, using the Executor's TombstoneBitmap callback. It is the
// Count fast path's equivalent of PlanAndSearch's post-Offer tombstone
// filter, applied before AddCount since a Count query never builds a
// TopK result list to filter afterward.
func (e *Executor) subtractTombstones(levelIdx int, candidates []uint16) []uint16 {
	if e.TombstoneBitmap == nil {
		return candidates
	}
	tombstones := e.TombstoneBitmap(levelIdx)
	if tombstones == nil {
		return candidates
	}

	out := candidates[:0]
	for _, d := range candidates {
		if tombstones[d/8]&(1<<(d%8)) == 0 {
			out = append(out, d)
		}
	}

	return out
}

// splitDocidBody returns a term's compression type and docid-set body
// bytes, using its key head's packed body offset.
func splitDocidBody(head section.KeyHead, body []byte) (format.CompressionType, []byte) {
	compressionType, bodyOffset := section.UnpackCompressionTypePointer(head.CompressionTypePointer)
	if int(bodyOffset) > len(body) {
		return compressionType, nil
	}

	return compressionType, body[bodyOffset:]
}

// searchLevel0 matches q against the shard's not-yet-committed postings.
// There is no WAND pruning bound here: level 0 has not been through a
// compressor pass, so no max_block_score exists yet. Document-length
// normalization falls back to a neutral (zero) length quotient, since the
// level header carrying per-document length codes is only written at
// commit time.
func (e *Executor) searchLevel0(q *Query, topK *TopK) (bool, error) {
	singleField := e.Acc.SingleField
	longestField := e.Acc.LongestFieldID
	arena := e.Acc.Arena().Bytes()

	decodedByKey := make(map[uint64]blockPostings)
	for _, c := range allClauses(q) {
		term, ok := e.Acc.Term(c.Key)
		if !ok {
			continue
		}
		decoded := level.DecodeLevel0Postings(arena, term, e.Store.Engine, longestField)
		decodedByKey[c.Key] = newBlockPostings(decoded)
	}

	if len(q.Must) > 0 {
		for _, c := range q.Must {
			if _, ok := decodedByKey[c.Key]; !ok {
				return false, nil
			}
		}
	} else if len(decodedByKey) == 0 {
		return false, nil
	}

	candidates := e.candidateDocids(q, decodedByKey)
	if len(candidates) == 0 {
		return true, nil
	}

	if len(q.MustNot) > 0 {
		excluded := make(map[uint16]struct{})
		for _, c := range q.MustNot {
			term, ok := e.Acc.Term(c.Key)
			if !ok {
				continue
			}
			for _, dp := range level.DecodeLevel0Postings(arena, term, e.Store.Engine, longestField) {
				excluded[dp.DocID] = struct{}{}
			}
		}
		out := candidates[:0]
		for _, d := range candidates {
			if _, skip := excluded[d]; !skip {
				out = append(out, d)
			}
		}
		candidates = out
	}

	candidates = filterPhrases(q, decodedByKey, candidates)
	if len(candidates) == 0 {
		return true, nil
	}

	blockID := uint32(len(e.Store.Levels))

	if e.ResultType == format.ResultCount {
		candidates = e.subtractTombstones(int(blockID), candidates)
		topK.AddCount(len(candidates))
		return true, nil
	}

	scoring := level.ScoreParams{
		K: e.K, B: e.B, Sigma: e.Sigma,
		AvgDocLength:   0,
		DocLengthCode:  func(fieldID uint16, d uint16) byte { return 0 },
		BoostField:     e.BoostField,
		SingleField:    singleField,
		LongestFieldID: longestField,
	}

	for _, d := range candidates {
		total := e.scoreCandidate(q, decodedByKey, scoring, d)
		globalID := uint64(blockID)<<16 | uint64(d)
		topK.Offer(globalID, total)
	}

	return true, nil
}

// scoreCandidate sums every Must/Should clause's BM25 contribution for
// docid d, using whichever clauses actually have a decoded posting there
// (a Should clause that doesn't match contributes nothing, rather than
// disqualifying the document).
func (e *Executor) scoreCandidate(q *Query, decodedByKey map[uint64]blockPostings, scoring level.ScoreParams, d uint16) float32 {
	var total float32
	for _, c := range allClauses(q) {
		bp, ok := decodedByKey[c.Key]
		if !ok {
			continue
		}
		fields, ok := bp.byDoc[d]
		if !ok {
			continue
		}

		scoring.IDF = c.IDF
		codecFields := make([]codec.FieldPosting, len(fields))
		for i, f := range fields {
			codecFields[i] = codec.FieldPosting{FieldID: f.FieldID, TermFreq: uint32(len(f.Positions))}
		}
		total += level.ScorePosting(scoring, d, codecFields)
	}

	if e.Similarity == format.Bm25fProximity && len(q.Phrases) > 0 {
		total += phraseProximityScore(q)
	}

	return total
}
