package expert

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// vectorizer is a capped-vocabulary TF-IDF indexer over short incident
// descriptions. The vocabulary keeps the most frequent terms up to the cap,
// ties resolved alphabetically, and document vectors are l2-normalized so
// cosine similarity reduces to a dot product.
type vectorizer struct {
	vocab map[string]int // term -> column
	idf   []float64
	docs  [][]float64
}

// newVectorizer fits the vocabulary and index over the given documents.
func newVectorizer(documents []string, maxTerms int) *vectorizer {
	tokenized := make([][]string, len(documents))
	counts := make(map[string]int)
	for i, doc := range documents {
		tokenized[i] = tokenize(doc)
		for _, term := range tokenized[i] {
			counts[term]++
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	sort.Strings(terms)

	v := &vectorizer{vocab: make(map[string]int, len(terms))}
	for i, term := range terms {
		v.vocab[term] = i
	}

	// Smoothed idf keeps unseen and ubiquitous terms finite.
	df := make([]int, len(terms))
	for _, tokens := range tokenized {
		seen := make(map[int]bool)
		for _, term := range tokens {
			if col, ok := v.vocab[term]; ok && !seen[col] {
				df[col] = df[col] + 1
				seen[col] = true
			}
		}
	}
	n := float64(len(documents))
	v.idf = make([]float64, len(terms))
	for i, d := range df {
		v.idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	v.docs = make([][]float64, len(documents))
	for i, tokens := range tokenized {
		v.docs[i] = v.vectorizeTokens(tokens)
	}
	return v
}

// similarities returns the cosine similarity of the query against every
// indexed document, in document order.
func (v *vectorizer) similarities(query string) []float64 {
	q := v.vectorizeTokens(tokenize(query))
	out := make([]float64, len(v.docs))
	for i, doc := range v.docs {
		out[i] = dot(q, doc)
	}
	return out
}

func (v *vectorizer) vectorizeTokens(tokens []string) []float64 {
	vec := make([]float64, len(v.vocab))
	for _, term := range tokens {
		if col, ok := v.vocab[term]; ok {
			vec[col] += v.idf[col]
		}
	}
	norm := 0.0
	for _, x := range vec {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// tokenize lowercases and splits on non-alphanumerics, dropping single-rune
// fragments.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
