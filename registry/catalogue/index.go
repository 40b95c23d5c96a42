package catalogue

import (
	"math"
	"sort"
)

// Embedder turns text into a fixed-length vector for similarity search.
// This is the one extension point SPEC_FULL.md leaves deliberately open:
// no vector/embedding client appears anywhere in the retrieved corpus, so
// the default implementation (HashEmbedder) is a stdlib-only stand-in —
// swap in a real provider by implementing this interface.
type Embedder interface {
	Embed(text string) []float64
}

type indexEntry struct {
	name   string
	vector []float64
}

// Index is a flat similarity index over "{name}: {description}" strings,
// keyed by tool name (spec.md §4.5). Point deletion isn't supported — the
// Catalogue rebuilds it via Remove, which is a full linear filter.
type Index struct {
	embedder Embedder
	entries  []indexEntry
}

// NewIndex builds an empty Index using embedder.
func NewIndex(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// Put (re)inserts name with the embedding of "{name}: {description}",
// replacing any existing entry for name.
func (ix *Index) Put(name, description string) {
	vec := ix.embedder.Embed(name + ": " + description)
	for i, e := range ix.entries {
		if e.name == name {
			ix.entries[i].vector = vec
			return
		}
	}
	ix.entries = append(ix.entries, indexEntry{name: name, vector: vec})
}

// Remove rebuilds the index without name.
func (ix *Index) Remove(name string) {
	out := ix.entries[:0]
	for _, e := range ix.entries {
		if e.name != name {
			out = append(out, e)
		}
	}
	ix.entries = out
}

// Search returns up to limit tool names ranked by cosine similarity to
// query's embedding, highest first.
func (ix *Index) Search(query string, limit int) []string {
	if len(ix.entries) == 0 {
		return nil
	}

	qvec := ix.embedder.Embed(query)
	type scored struct {
		name  string
		score float64
	}
	scores := make([]scored, 0, len(ix.entries))
	for _, e := range ix.entries {
		scores = append(scores, scored{name: e.name, score: cosineSimilarity(qvec, e.vector)})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score == scores[j].score {
			return scores[i].name < scores[j].name
		}
		return scores[i].score > scores[j].score
	})

	if limit > len(scores) {
		limit = len(scores)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = scores[i].name
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
