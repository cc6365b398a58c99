// Package seekstorm provides a convenient top-level wrapper around the
// shard, query, and docstore packages, covering the common case: open an
// index, submit JSON-like documents, search them, and fetch stored fields
// back by document id.
//
// # Basic usage
//
//	idx, err := seekstorm.Open("/var/lib/seekstorm/articles", seekstorm.Config{
//	    Fields: []seekstorm.FieldDef{
//	        {Name: "title", Indexed: true, Stored: true},
//	        {Name: "body", Indexed: true, Stored: true},
//	        {Name: "url", Indexed: false, Stored: true},
//	    },
//	    ShardCount: 4,
//	})
//	docID, err := idx.IndexDocument(map[string]any{
//	    "title": "introducing seekstorm",
//	    "body":  "a block-at-a-time full-text search engine core",
//	    "url":   "https://example.com/intro",
//	})
//	results, err := idx.Search(seekstorm.Query{Must: []string{"search", "engine"}}, 10)
//	doc, err := idx.GetDocument(results[0].DocID)
//
// For advanced, fine-grained control over index layout, scoring, and
// storage, use the shard, query, and docstore packages directly.
package seekstorm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/SeekStorm/SeekStorm-sub001/compress"
	"github.com/SeekStorm/SeekStorm-sub001/docstore"
	"github.com/SeekStorm/SeekStorm-sub001/endian"
	"github.com/SeekStorm/SeekStorm-sub001/format"
	"github.com/SeekStorm/SeekStorm-sub001/postings"
	"github.com/SeekStorm/SeekStorm-sub001/section"
	"github.com/SeekStorm/SeekStorm-sub001/shard"
)

// version is the library's release string, returned by Version.
const version = "0.1.0"

// Version returns the library's version string.
func Version() string { return version }

// FieldDef describes one schema field: its name, whether its text is
// tokenized and indexed for search, and whether its value is kept in the
// document store for retrieval.
type FieldDef struct {
	Name    string
	Indexed bool
	Stored  bool
}

// Config configures a new or reopened index.
type Config struct {
	Fields     []FieldDef
	ShardCount int

	// AccessType selects whether committed blocks are served from mmap or
	// loaded fully into RAM. Defaults to format.AccessMmap.
	AccessType format.AccessType
	// SegmentBits sizes each level's term-key segment table. Defaults to 11,
	// matching the teacher library's own default.
	SegmentBits uint
	// Engine selects the index file's byte order. Defaults to little-endian.
	Engine endian.EndianEngine
	// CommitPermits bounds concurrent commit/warmup operations per shard.
	// Defaults to 1.
	CommitPermits int64
	// DocStoreAlgo compresses stored document bodies. Defaults to
	// compress.AlgoZstd.
	DocStoreAlgo compress.Algorithm

	SchemaOpts []shard.Option
}

func (c Config) withDefaults() Config {
	if c.ShardCount <= 0 {
		c.ShardCount = 1
	}
	if c.SegmentBits == 0 {
		c.SegmentBits = 11
	}
	if c.Engine == nil {
		c.Engine = endian.GetLittleEndianEngine()
	}
	if c.CommitPermits <= 0 {
		c.CommitPermits = 1
	}
	if c.DocStoreAlgo == 0 {
		c.DocStoreAlgo = compress.AlgoZstd
	}

	return c
}

// Index is an open seekstorm index: a coordinator routing documents and
// queries across shards, and one document store per shard holding stored
// field values for retrieval.
type Index struct {
	coord  *shard.Coordinator
	docs   []*docstore.Store
	fields []FieldDef
	byName map[string]uint16
	cfg    Config
}

// Open creates (if the directory is empty) or reopens an index at dir.
func Open(dir string, cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("seekstorm: config must declare at least one field")
	}

	byName := make(map[string]uint16, len(cfg.Fields))
	singleField := len(cfg.Fields) == 1
	for i, f := range cfg.Fields {
		byName[f.Name] = uint16(i)
	}

	schema := shard.DefaultSchema(len(cfg.Fields), singleField, uint16(len(cfg.Fields)-1))

	coord, err := shard.Open(dir, cfg.ShardCount, schema, cfg.AccessType, cfg.SegmentBits, cfg.Engine, cfg.CommitPermits, cfg.SchemaOpts...)
	if err != nil {
		return nil, err
	}

	docs := make([]*docstore.Store, 0, cfg.ShardCount)
	for i := 0; i < cfg.ShardCount; i++ {
		path := filepath.Join(dir, fmt.Sprintf("shard-%d.docs", i))
		ds, err := docstore.Open(path, cfg.DocStoreAlgo, cfg.Engine)
		if err != nil {
			coord.Close()
			for _, opened := range docs {
				opened.Close()
			}
			return nil, err
		}
		docs = append(docs, ds)
	}

	return &Index{coord: coord, docs: docs, fields: cfg.Fields, byName: byName, cfg: cfg}, nil
}

// tokenize splits s into lowercase runs of letters and digits, the
// AsciiAlphabetic tokenization scheme: the simplest of the tokenizer
// choices an index schema can select, suitable for English-like text.
func tokenize(s string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// IndexDocument tokenizes every indexed field of doc, stores every stored
// field, and makes the document immediately searchable. It returns the
// document's cross-shard global id.
func (ix *Index) IndexDocument(doc map[string]any) (uint64, error) {
	// occ is keyed on (token, fieldID): a term occurring in two different
	// fields gets one FieldPositions entry per field, each with its own
	// ascending position counter, rather than one shared slot whose
	// positions would interleave across fields out of order.
	type occKey struct {
		token   string
		fieldID uint16
	}
	occ := make(map[occKey]*postings.FieldPositions)
	order := make([]string, 0, len(ix.fields))
	fieldsByToken := make(map[string][]occKey)

	for _, f := range ix.fields {
		if !f.Indexed {
			continue
		}
		text, _ := doc[f.Name].(string)
		if text == "" {
			continue
		}

		fieldID := ix.byName[f.Name]
		var pos uint32
		for _, tok := range tokenize(text) {
			k := occKey{token: tok, fieldID: fieldID}
			fp, ok := occ[k]
			if !ok {
				fp = &postings.FieldPositions{FieldID: fieldID}
				occ[k] = fp
				if len(fieldsByToken[tok]) == 0 {
					order = append(order, tok)
				}
				fieldsByToken[tok] = append(fieldsByToken[tok], k)
			}
			fp.Positions = append(fp.Positions, pos)
			pos++
		}
	}

	terms := make([]shard.TermOccurrence, 0, len(order))
	for _, tok := range order {
		keys := fieldsByToken[tok]
		fields := make([]postings.FieldPositions, len(keys))
		for i, k := range keys {
			fields[i] = *occ[k]
		}
		terms = append(terms, shard.TermOccurrence{
			Term:      tok,
			NgramType: format.NgramSingle,
			Fields:    fields,
		})
	}

	globalID, err := ix.coord.IndexDocument(terms)
	if err != nil {
		return 0, err
	}

	shardID, local, err := ix.coord.LocalID(globalID)
	if err != nil {
		return 0, err
	}
	blockLocal := uint16(local % section.RoaringBlockSize)

	stored := make(map[string]any, len(ix.fields))
	for _, f := range ix.fields {
		if f.Stored {
			if v, ok := doc[f.Name]; ok {
				stored[f.Name] = v
			}
		}
	}
	if err := ix.docs[shardID].Put(blockLocal, stored); err != nil {
		return globalID, err
	}

	if blockLocal == section.RoaringBlockSize-1 {
		if err := ix.docs[shardID].CommitLevel(); err != nil {
			return globalID, err
		}
	}

	return globalID, nil
}

// Query selects which terms a document must, may, or must not contain.
// Each entry of Phrases is an ordered word sequence that must additionally
// occur adjacent and in that order within one field; its words are also
// required to match individually, same as a Must term.
type Query struct {
	Must    []string
	Should  []string
	MustNot []string
	Phrases [][]string
}

// Result is one scored document.
type Result = shard.GlobalResult

// Search runs q against the index and returns its top k results, highest
// score first.
func (ix *Index) Search(q Query, k int) ([]Result, error) {
	return ix.coord.Search(q.Must, q.Should, q.MustNot, q.Phrases, k)
}

// Count runs q against the index and returns the number of matching
// documents, without scoring or ranking them. It is cheaper than Search
// when only the match count is needed: committed blocks whose Must and
// MustNot clauses all resolved to the dense Bitmap docid codec are counted
// by ANDing raw bitmap bytes, skipping position and field-vector decoding
// entirely.
func (ix *Index) Count(q Query) (int, error) {
	return ix.coord.Count(q.Must, q.Should, q.MustNot, q.Phrases)
}

// GetDocument retrieves docID's stored fields from the last committed
// level its shard has. It returns errs.ErrNotFound if the document hasn't
// reached a committed level yet (it is still only in level 0), since the
// document store only persists full, committed blocks.
func (ix *Index) GetDocument(docID uint64) (map[string]any, error) {
	shardID, local, err := ix.coord.LocalID(docID)
	if err != nil {
		return nil, err
	}

	levelIdx := int(local / section.RoaringBlockSize)
	blockLocal := uint16(local % section.RoaringBlockSize)

	raw, err := ix.docs[shardID].Get(levelIdx, blockLocal)
	if err != nil {
		return nil, err
	}

	return unmarshalDocument(raw)
}

// Delete tombstones docID so it is excluded from future searches and the
// export iterator.
func (ix *Index) Delete(docID uint64) error {
	return ix.coord.Delete(docID)
}

// Commit hard-commits every shard's level-0 postings and flushes every
// shard's pending document store level, even if their blocks are not yet
// full.
func (ix *Index) Commit() error {
	if err := ix.coord.CommitAll(); err != nil {
		return err
	}
	for _, ds := range ix.docs {
		if err := ds.CommitLevel(); err != nil {
			return err
		}
	}

	return nil
}

// Clear discards every indexed and stored document, resetting the index
// back to empty so it can be reindexed from scratch.
func (ix *Index) Clear() error {
	if err := ix.coord.ClearAll(); err != nil {
		return err
	}

	for i, ds := range ix.docs {
		path := ds.Path()
		if err := ds.Close(); err != nil {
			return err
		}
		if err := os.Truncate(path, 0); err != nil {
			return err
		}

		reopened, err := docstore.Open(path, ix.cfg.DocStoreAlgo, ix.cfg.Engine)
		if err != nil {
			return err
		}
		ix.docs[i] = reopened
	}

	return nil
}

// unmarshalDocument decodes a document store blob back into field values.
func unmarshalDocument(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Close commits and closes every shard and document store.
func (ix *Index) Close() error {
	if err := ix.Commit(); err != nil {
		return err
	}
	if err := ix.coord.Close(); err != nil {
		return err
	}
	for _, ds := range ix.docs {
		if err := ds.Close(); err != nil {
			return err
		}
	}

	return nil
}
