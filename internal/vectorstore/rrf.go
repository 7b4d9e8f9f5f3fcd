package vectorstore

import "sort"

// rrfConstant is the reciprocal-rank-fusion smoothing constant,
// fixed at 60 per the fusion contract.
const rrfConstant = 60

// rankedList is one ranked result list (dense or sparse), point id in
// rank order, best first.
type rankedList []uint64

// fuseRRF combines any number of ranked lists into a single ranking by
// reciprocal rank fusion: score(d) = sum over lists containing d of
// 1/(60+rank(d)), 1-indexed rank. Points absent from a list contribute
// nothing from it. The result is sorted by descending fused score,
// ties broken by point id for determinism.
func fuseRRF(lists ...rankedList) []ScoredPoint {
	scores := map[uint64]float64{}
	order := []uint64{}
	for _, list := range lists {
		for i, id := range list {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(rrfConstant+i+1)
		}
	}

	out := make([]ScoredPoint, 0, len(order))
	for _, id := range order {
		out = append(out, ScoredPoint{ID: id, Score: scores[id]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
