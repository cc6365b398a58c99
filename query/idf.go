// Package query implements the Boolean term planner, the block-at-a-time
// executor that walks committed and level-0 postings, and the top-k
// min-heap collecting scored results.
package query

import "math"

// InverseDocumentFrequency computes a term's BM25 IDF given the shard's
// total indexed document count and the term's document frequency. Terms
// occurring in every document score zero or slightly negative contribution
// from the log term alone; the "+1" inside the log keeps the result
// positive even when df approaches n.
func InverseDocumentFrequency(totalDocCount, docFrequency int) float64 {
	if totalDocCount == 0 {
		return 0
	}

	n := float64(totalDocCount)
	df := float64(docFrequency)

	return math.Log(((n-df+0.5)/(df+0.5)) + 1)
}
