// Package bm25 provides an in-process BM25 index for lexical scoring
// of small candidate sets during hybrid retrieval.
package bm25

import (
	"math"
	"strings"
)

// Default Okapi BM25 parameters.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Index holds term statistics for a fixed set of documents. It is
// built once per candidate set and discarded after scoring; scores are
// comparable only within the set the index was built from.
type Index struct {
	termFreqs  []map[string]int
	docFreqs   map[string]int
	docLengths []int
	avgDocLen  float64
	k1         float64
	b          float64
}

// NewIndex builds an index over the documents in the given order.
func NewIndex(documents []string) *Index {
	idx := &Index{
		termFreqs:  make([]map[string]int, len(documents)),
		docFreqs:   make(map[string]int),
		docLengths: make([]int, len(documents)),
		k1:         DefaultK1,
		b:          DefaultB,
	}

	total := 0
	for i, doc := range documents {
		terms := tokenize(doc)
		idx.docLengths[i] = len(terms)
		total += len(terms)

		freqs := make(map[string]int, len(terms))
		for _, term := range terms {
			freqs[term]++
		}
		idx.termFreqs[i] = freqs

		for term := range freqs {
			idx.docFreqs[term]++
		}
	}

	if len(documents) > 0 {
		idx.avgDocLen = float64(total) / float64(len(documents))
	}

	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.termFreqs)
}

// Scores returns the BM25 score of every indexed document against the
// query, aligned with the document order given to NewIndex.
func (idx *Index) Scores(query string) []float64 {
	scores := make([]float64, len(idx.termFreqs))

	for _, term := range tokenize(query) {
		df, ok := idx.docFreqs[term]
		if !ok {
			continue
		}
		idf := idx.idf(df)

		for i, freqs := range idx.termFreqs {
			tf, ok := freqs[term]
			if !ok {
				continue
			}
			scores[i] += idf * idx.tf(float64(tf), float64(idx.docLengths[i]))
		}
	}

	return scores
}

func (idx *Index) idf(df int) float64 {
	n := float64(len(idx.termFreqs))
	return math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

func (idx *Index) tf(tf, docLen float64) float64 {
	return (tf * (idx.k1 + 1)) / (tf + idx.k1*(1-idx.b+idx.b*(docLen/idx.avgDocLen)))
}

// tokenize lowercases, splits on whitespace and strips surrounding
// punctuation from each token.
func tokenize(text string) []string {
	words := strings.Fields(strings.ToLower(text))

	var tokens []string
	for _, word := range words {
		cleaned := strings.Trim(word, ".,!?;:\"'()[]{}#$%&*+-/<>=@\\^_`|~")
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}
