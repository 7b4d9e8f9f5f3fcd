package vectorstore

import (
	"encoding/json"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// payloadToQdrant marshals a ChunkPayload to Qdrant's generic value
// map via a JSON round trip — simplest way to keep the payload schema
// in exactly one place (the struct tags above) without hand-writing a
// field-by-field converter that drifts from it.
func payloadToQdrant(p ChunkPayload) (map[string]*qdrant.Value, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var asMap map[string]interface{}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, err
	}
	return qdrant.NewValueMap(asMap)
}

func payloadFromQdrant(m map[string]*qdrant.Value) ChunkPayload {
	asMap := map[string]interface{}{}
	for k, v := range m {
		asMap[k] = v.AsInterface()
	}
	raw, err := json.Marshal(asMap)
	if err != nil {
		return ChunkPayload{}
	}
	var p ChunkPayload
	_ = json.Unmarshal(raw, &p)
	return p
}

// filterToQdrant translates an ordered Filter into Qdrant's AND-of
// conditions representation, preserving predicate order.
func filterToQdrant(f Filter) *qdrant.Filter {
	if len(f.Predicates) == 0 {
		return nil
	}
	must := make([]*qdrant.Condition, 0, len(f.Predicates))
	for _, pred := range f.Predicates {
		switch pred.Op {
		case OpEquals:
			must = append(must, qdrant.NewMatch(pred.Field, pred.Value))
		case OpIn:
			must = append(must, qdrant.NewMatchKeywords(pred.Field, pred.Values...))
		case OpNotIn:
			must = append(must, qdrant.NewMatchExceptKeywords(pred.Field, pred.Values...))
		case OpRange:
			r := &qdrant.Range{}
			if pred.GteTime != nil {
				v := timeToUnixFloat(*pred.GteTime)
				r.Gte = &v
			}
			if pred.LteTime != nil {
				v := timeToUnixFloat(*pred.LteTime)
				r.Lte = &v
			}
			must = append(must, qdrant.NewRange(pred.Field, r))
		}
	}
	return &qdrant.Filter{Must: must}
}

func timeToUnixFloat(t time.Time) float64 {
	return float64(t.Unix())
}
