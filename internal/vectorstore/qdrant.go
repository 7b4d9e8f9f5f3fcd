package vectorstore

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/pickeld/lucy/internal/logger"
	"github.com/qdrant/go-client/qdrant"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// Store is the process-wide adapter over the single Qdrant collection
// that holds every ingested chunk, regardless of source channel.
type Store struct {
	client         *qdrant.Client
	collectionName string
}

// Config configures the underlying Qdrant client connection.
type Config struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	CollectionName string
	DenseDimension  uint64
}

// NewStore connects to Qdrant and ensures the collection exists with
// both named vectors configured (dense cosine, sparse dot-product).
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}

	s := &Store{client: client, collectionName: cfg.CollectionName}
	if err := s.ensureCollection(ctx, cfg.DenseDimension); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context, denseDim uint64) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			denseVectorName: {
				Size:     denseDim,
				Distance: qdrant.Distance_Cosine,
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			sparseVectorName: {
				Modifier: qdrant.Modifier_None.Enum(),
			},
		}),
	})
}

// PointID deterministically hashes a source_id into the uint64 point
// id Qdrant stores under, so re-ingesting the same source_id always
// targets the same point.
func PointID(sourceID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sourceID))
	return h.Sum64()
}

// Upsert writes or overwrites a single point. Because the point id is
// a deterministic hash of the payload's SourceID, calling Upsert twice
// with the same SourceID and payload is idempotent.
func (s *Store) Upsert(ctx context.Context, p Point) error {
	payload, err := payloadToQdrant(p.Payload)
	if err != nil {
		return err
	}

	point := &qdrant.PointStruct{
		Id: qdrant.NewIDNum(p.ID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			denseVectorName:  qdrant.NewVector(p.Dense...),
			sparseVectorName: qdrant.NewVectorSparse(p.Sparse.Indices, p.Sparse.Values),
		}),
		Payload: payload,
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	return err
}

// UpsertBatch writes many points in a single round trip — used by the
// ingestion pipeline after chunking splits one source item into
// several chunks.
func (s *Store) UpsertBatch(ctx context.Context, points []Point) error {
	qpoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload, err := payloadToQdrant(p.Payload)
		if err != nil {
			return err
		}
		qpoints = append(qpoints, &qdrant.PointStruct{
			Id: qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				denseVectorName:  qdrant.NewVector(p.Dense...),
				sparseVectorName: qdrant.NewVectorSparse(p.Sparse.Indices, p.Sparse.Values),
			}),
			Payload: payload,
		})
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         qpoints,
	})
	return err
}

// Search runs dense and sparse queries against the collection and
// fuses their rankings via reciprocal rank fusion, truncating to k.
// The same filter applies identically to both sub-queries.
func (s *Store) Search(ctx context.Context, denseQuery []float32, sparseQuery SparseVec, k int, filter Filter) ([]ScoredPoint, error) {
	qFilter := filterToQdrant(filter)
	fetchLimit := uint64(k * 4)
	if fetchLimit < 50 {
		fetchLimit = 50
	}

	denseResp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQueryDense(denseQuery),
		Using:          qdrant.PtrOf(denseVectorName),
		Filter:         qFilter,
		Limit:          &fetchLimit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dense query: %w", err)
	}

	sparseResp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuerySparse(sparseQuery.Indices, sparseQuery.Values),
		Using:          qdrant.PtrOf(sparseVectorName),
		Filter:         qFilter,
		Limit:          &fetchLimit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("sparse query: %w", err)
	}

	payloads := map[uint64]ChunkPayload{}
	denseRanked := make(rankedList, 0, len(denseResp))
	for _, pt := range denseResp {
		id := pointIDFromQdrant(pt.Id)
		denseRanked = append(denseRanked, id)
		payloads[id] = payloadFromQdrant(pt.Payload)
	}
	sparseRanked := make(rankedList, 0, len(sparseResp))
	for _, pt := range sparseResp {
		id := pointIDFromQdrant(pt.Id)
		sparseRanked = append(sparseRanked, id)
		payloads[id] = payloadFromQdrant(pt.Payload)
	}

	fused := fuseRRF(denseRanked, sparseRanked)
	if len(fused) > k {
		fused = fused[:k]
	}
	for i := range fused {
		fused[i].Payload = payloads[fused[i].ID]
	}
	return fused, nil
}

// Scroll pages through every point matching filter, without vectors by
// default — used by bulk maintenance (backfills, re-indexing).
func (s *Store) Scroll(ctx context.Context, filter Filter, offset *uint64, limit uint32) ([]ChunkPayload, *uint64, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: s.collectionName,
		Filter:         filterToQdrant(filter),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	}
	if offset != nil {
		req.Offset = qdrant.NewIDNum(*offset)
	}

	points, err := s.client.Scroll(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	out := make([]ChunkPayload, 0, len(points))
	for _, p := range points {
		out = append(out, payloadFromQdrant(p.Payload))
	}

	var next *uint64
	if len(points) > 0 {
		id := pointIDFromQdrant(points[len(points)-1].Id)
		next = &id
	}
	return out, next, nil
}

// SetPayload partially updates the payload of the given points without
// touching their vectors.
func (s *Store) SetPayload(ctx context.Context, pointIDs []uint64, partial map[string]interface{}) error {
	ids := make([]*qdrant.PointId, 0, len(pointIDs))
	for _, id := range pointIDs {
		ids = append(ids, qdrant.NewIDNum(id))
	}
	qp, err := qdrant.NewValueMap(partial)
	if err != nil {
		return err
	}
	_, err = s.client.SetPayload(ctx, &qdrant.SetPayloadPoints{
		CollectionName: s.collectionName,
		Payload:        qp,
		PointsSelector: qdrant.NewPointsSelector(ids...),
	})
	return err
}

// DeleteByFilter removes every point matching filter.
func (s *Store) DeleteByFilter(ctx context.Context, filter Filter) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Points:         qdrant.NewPointsSelectorFilter(filterToQdrant(filter)),
	})
	return err
}

// DeleteByIDs removes specific points by id.
func (s *Store) DeleteByIDs(ctx context.Context, ids []uint64) error {
	qids := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		qids = append(qids, qdrant.NewIDNum(id))
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collectionName,
		Points:         qdrant.NewPointsSelector(qids...),
	})
	return err
}

// Stats is a small summary of collection health for /health and
// /rag/stats.
type Stats struct {
	PointsCount  uint64
	VectorsCount uint64
	Status       string
}

// CollectionStats reports point/vector counts and collection status.
func (s *Store) CollectionStats(ctx context.Context) (Stats, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Status: info.Status.String()}
	if info.PointsCount != nil {
		stats.PointsCount = *info.PointsCount
	}
	if info.VectorsCount != nil {
		stats.VectorsCount = *info.VectorsCount
	}
	return stats, nil
}

// HealthCheck is a cheap readiness probe used by the C6 health rollup.
func (s *Store) HealthCheck(ctx context.Context) error {
	_, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		logger.ErrorWithFields(ctx, err, map[string]interface{}{"component": "vectorstore"})
	}
	return err
}

func pointIDFromQdrant(id *qdrant.PointId) uint64 {
	if id == nil {
		return 0
	}
	return id.GetNum()
}
