package query

import (
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/internal/hash"
	"github.com/SeekStorm/SeekStorm-sub001/level"
	"github.com/SeekStorm/SeekStorm-sub001/postings"
	"github.com/SeekStorm/SeekStorm-sub001/section"
)

// Clause is one term occurrence within a query, already resolved to its
// on-disk key and scored with its IDF.
type Clause struct {
	Text         string
	Key          uint64
	NgramType    format.NgramType
	DocFrequency int
	IDF          float64
}

// PhraseClause is an ordered sequence of term clauses that must occur at
// strictly consecutive ascending positions within one field of a surviving
// document. Its component clauses are also folded into Query.Must, so the
// block-at-a-time intersection already restricts candidates to documents
// containing every phrase word; PhraseClause adds the adjacency check (and,
// under Bm25fProximity, a score bonus) on top of that.
type PhraseClause struct {
	Terms []Clause
}

// Query is a parsed Boolean expression: every Must clause is required
// (AND), every MustNot clause excludes a matching document (NOT), Should
// clauses are optional but contribute to score and break ties (OR), and
// every Phrases entry additionally requires its words to appear adjacent
// and in order. A bare list of terms with no explicit operators plans as
// all-Must.
type Query struct {
	Must    []Clause
	Should  []Clause
	MustNot []Clause
	Phrases []PhraseClause
}

// Planner resolves query text against one shard's store and level-0
// accumulator, computing each term's document frequency and IDF before the
// executor runs.
type Planner struct {
	Store *level.Store
	Acc   *postings.Accumulator
}

// NewPlanner builds a planner over one shard's committed store and
// pending level-0 accumulator.
func NewPlanner(store *level.Store, acc *postings.Accumulator) *Planner {
	return &Planner{Store: store, Acc: acc}
}

// totalDocCount returns the shard's current indexed document count,
// including documents still only in level 0.
func (p *Planner) totalDocCount() int {
	committed := 0
	if n := len(p.Store.Levels); n > 0 {
		committed = int(p.Store.Levels[n-1].IndexedDocCount)
	}

	terms := p.Acc.Terms()
	if len(terms) == 0 {
		return committed
	}

	// Level-0 documents take consecutive block-local ids after the committed
	// ones in the same block, so the highest id any term holds bounds them.
	maxLocal := 0
	for _, t := range terms {
		if int(t.MaxDocid) > maxLocal {
			maxLocal = int(t.MaxDocid)
		}
	}

	return committed - committed%section.RoaringBlockSize + maxLocal + 1
}

// resolveClause hashes text into a term key (or an n-gram key, for multi-
// word phrases folded into a single lookup) and computes its document
// frequency and IDF against the shard's current state.
func (p *Planner) resolveClause(text string, ngramType format.NgramType) (Clause, error) {
	key := hash.TermKey(text, ngramType)

	df, err := p.Store.TermDocFrequency(p.Acc, key)
	if err != nil {
		return Clause{}, err
	}

	return Clause{
		Text:         text,
		Key:          key,
		NgramType:    ngramType,
		DocFrequency: df,
		IDF:          InverseDocumentFrequency(p.totalDocCount(), df),
	}, nil
}

// Plan resolves a Boolean term query: must/should/mustNot are plain term
// text, each folded to a single-term key (NgramSingle). Multi-word phrase
// folding into bigram/trigram keys is the caller's responsibility (it
// picks the n-gram variant from adjacent term order before calling Plan).
//
// phrases is a list of ordered word sequences; each word resolves to its
// own single-term clause (same as a Must term) and the sequence as a whole
// becomes a PhraseClause, so the executor can both intersect on the words
// and check their position adjacency.
func (p *Planner) Plan(must, should, mustNot []string, phrases [][]string) (*Query, error) {
	q := &Query{}

	for _, t := range must {
		c, err := p.resolveClause(t, format.NgramSingle)
		if err != nil {
			return nil, err
		}
		q.Must = append(q.Must, c)
	}
	for _, t := range should {
		c, err := p.resolveClause(t, format.NgramSingle)
		if err != nil {
			return nil, err
		}
		q.Should = append(q.Should, c)
	}
	for _, t := range mustNot {
		c, err := p.resolveClause(t, format.NgramSingle)
		if err != nil {
			return nil, err
		}
		q.MustNot = append(q.MustNot, c)
	}
	for _, words := range phrases {
		terms := make([]Clause, 0, len(words))
		for _, w := range words {
			c, err := p.resolveClause(w, format.NgramSingle)
			if err != nil {
				return nil, err
			}
			terms = append(terms, c)
			q.Must = append(q.Must, c)
		}
		q.Phrases = append(q.Phrases, PhraseClause{Terms: terms})
	}

	return q, nil
}

// PlanNgram resolves a single clause keyed by an explicit n-gram variant,
// for callers that have already folded an adjacent term pair/triple into
// one key per the n-gram scheme.
func (p *Planner) PlanNgram(text string, ngramType format.NgramType) (Clause, error) {
	return p.resolveClause(text, ngramType)
}
