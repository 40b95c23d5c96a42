package catalogue

import (
	"hash/fnv"
	"strings"
)

const hashEmbedderDims = 64

// HashEmbedder is a deterministic, dependency-free stand-in Embedder: it
// hashes each token into one of hashEmbedderDims buckets and accumulates a
// bag-of-words vector, normalized by token count. It captures lexical
// overlap well enough to rank tool descriptions sensibly without a real
// embedding model — see DESIGN.md for why nothing else in this stack fits
// that role.
type HashEmbedder struct{}

var _ Embedder = HashEmbedder{}

// NewHashEmbedder returns the default Embedder.
func NewHashEmbedder() HashEmbedder {
	return HashEmbedder{}
}

func (HashEmbedder) Embed(text string) []float64 {
	vec := make([]float64, hashEmbedderDims)
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return vec
	}

	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		bucket := int(h.Sum32() % hashEmbedderDims)
		vec[bucket]++
	}

	for i := range vec {
		vec[i] /= float64(len(tokens))
	}
	return vec
}
