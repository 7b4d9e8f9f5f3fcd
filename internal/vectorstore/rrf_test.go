package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rankOf(results []ScoredPoint, id uint64) int {
	for i, r := range results {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func TestFuseRRFMonotonicity(t *testing.T) {
	dense := rankedList{1, 2, 3}

	denseOnly := fuseRRF(dense)
	withSparse := fuseRRF(dense, rankedList{5, 6, 1})

	require.LessOrEqual(t, rankOf(withSparse, 1), rankOf(denseOnly, 1),
		"adding sparse evidence for a dense-ranked doc must never push it to a worse rank")
}

func TestFuseRRFOrdersByScore(t *testing.T) {
	results := fuseRRF(rankedList{10, 20, 30}, rankedList{20, 30, 10})
	require.Equal(t, uint64(20), results[0].ID, "doc ranked near the top of both lists should win fusion")
}

func TestFuseRRFDeterministicTieBreak(t *testing.T) {
	a := fuseRRF(rankedList{2, 1}, rankedList{1, 2})
	b := fuseRRF(rankedList{1, 2}, rankedList{2, 1})
	require.Equal(t, a, b)
	require.Equal(t, uint64(1), a[0].ID)
}

func TestFilterIntersectPreservesOrder(t *testing.T) {
	userFilter := Filter{}.Equals("chat_name", "family")
	intentFilter := Filter{}.In("person_ids", []string{"1", "2"})

	combined := Intersect(userFilter, intentFilter)
	require.Len(t, combined.Predicates, 2)
	require.Equal(t, "chat_name", combined.Predicates[0].Field)
	require.Equal(t, "person_ids", combined.Predicates[1].Field)
}
