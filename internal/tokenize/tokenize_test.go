package tokenize

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func multiset(tokens []string) map[string]int {
	m := map[string]int{}
	for _, t := range tokens {
		m[t]++
	}
	return m
}

func TestTokenizeStabilityIngestVsQuery(t *testing.T) {
	text := "Hello world, hello World!"
	require.Equal(t, multiset(Tokenize(text)), multiset(Tokenize(text)))
}

func TestTokenizeHebrewAgeDigits(t *testing.T) {
	tokens := Tokenize("בן 30")
	sort.Strings(tokens)
	require.Equal(t, []string{"30", "בן"}, tokens, "both the Hebrew word and the digits must survive as separate tokens")
}

func TestTokenizeDropsShortLatinTokens(t *testing.T) {
	tokens := Tokenize("a an the dog")
	require.NotContains(t, tokens, "a")
	require.NotContains(t, tokens, "an")
	require.Contains(t, tokens, "the")
	require.Contains(t, tokens, "dog")
}

func TestTokenizeStripsFormatChars(t *testing.T) {
	withMarks := "hello​world"
	require.Equal(t, Tokenize("helloworld"), Tokenize(withMarks))
}

func TestDocumentAndQuerySparseVectorShareIndices(t *testing.T) {
	doc := DocumentSparseVector("the quick brown fox jumps over the lazy dog")
	query := QuerySparseVector("quick fox")

	docIdx := map[uint32]bool{}
	for _, i := range doc.Indices {
		docIdx[i] = true
	}
	for _, i := range query.Indices {
		require.True(t, docIdx[i], "query term index must appear among the document's indices for a matching doc")
	}
}
