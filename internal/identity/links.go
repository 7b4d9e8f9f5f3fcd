package identity

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// LinkPersonAsset upserts a person/asset/role link. Duplicates
// (matching on the unique person_id+asset_ref+role constraint) are
// silently ignored — calling it twice for the same triple is a no-op,
// which is what lets ingestion retries stay idempotent.
func (s *Store) LinkPersonAsset(ctx context.Context, personID uint64, assetType, assetRef string, role AssetRole, confidence float64) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&PersonAsset{}).
		Where("person_id = ? AND asset_ref = ? AND role = ?", personID, assetRef, role).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&PersonAsset{
		PersonID: personID, AssetType: assetType, AssetRef: assetRef,
		Role: role, Confidence: confidence, CreatedAt: time.Now(),
	}).Error
}

// LinkAssets upserts an edge between two assets. Duplicates on the
// unique src+dst+relation constraint are silently ignored.
func (s *Store) LinkAssets(ctx context.Context, srcAssetRef, dstAssetRef string, relation AssetEdgeRelation, provenance string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&AssetEdge{}).
		Where("src_asset_ref = ? AND dst_asset_ref = ? AND relation_type = ?", srcAssetRef, dstAssetRef, relation).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&AssetEdge{
		SrcAssetRef: srcAssetRef, DstAssetRef: dstAssetRef,
		RelationType: relation, Provenance: provenance, CreatedAt: time.Now(),
	}).Error
}

// LinkRelationship records a relationship edge between two persons,
// e.g. spouse or coworker. Unlike LinkPersonAsset/LinkAssets this is
// not deduplicated against an existing edge of the same type — a
// person can be linked to another through more than one source with
// the same relationship type, and each mention is independent
// evidence worth keeping.
func (s *Store) LinkRelationship(ctx context.Context, personA, personB uint64, relType string, confidence float64, sourceRef string) error {
	return s.db.WithContext(ctx).Create(&Relationship{
		PersonA: personA, PersonB: personB, Type: relType, Confidence: confidence, SourceRef: sourceRef, CreatedAt: time.Now(),
	}).Error
}

// AssetsOf returns the asset links for a person, optionally filtered
// to a single role.
func (s *Store) AssetsOf(ctx context.Context, personID uint64, role *AssetRole) ([]PersonAsset, error) {
	q := s.db.WithContext(ctx).Where("person_id = ?", personID)
	if role != nil {
		q = q.Where("role = ?", *role)
	}
	var links []PersonAsset
	err := q.Order("created_at DESC").Find(&links).Error
	return links, err
}

// RelationshipsOf does a breadth-first walk of the relationship graph
// from personID, up to depth (capped at 2 per the graph-expansion
// contract), and returns every relationship edge touched.
func (s *Store) RelationshipsOf(ctx context.Context, personID uint64, depth int) ([]Relationship, error) {
	if depth > 2 {
		depth = 2
	}
	if depth < 1 {
		depth = 1
	}

	visited := map[uint64]bool{personID: true}
	frontier := []uint64{personID}
	var out []Relationship

	for d := 0; d < depth; d++ {
		var next []uint64
		for _, pid := range frontier {
			var rels []Relationship
			if err := s.db.WithContext(ctx).
				Where("person_a = ? OR person_b = ?", pid, pid).
				Find(&rels).Error; err != nil {
				return nil, err
			}
			for _, r := range rels {
				out = append(out, r)
				other := r.PersonB
				if r.PersonB == pid {
					other = r.PersonA
				}
				if !visited[other] {
					visited[other] = true
					next = append(next, other)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return dedupRelationships(out), nil
}

func dedupRelationships(in []Relationship) []Relationship {
	seen := map[uint64]bool{}
	var out []Relationship
	for _, r := range in {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// NeighborsOf walks the asset-edge graph from assetRef up to depth
// (capped at 2), optionally restricted to a set of relation types,
// and returns every distinct neighbor asset ref reached.
func (s *Store) NeighborsOf(ctx context.Context, assetRef string, relationFilter []AssetEdgeRelation, depth int) ([]string, error) {
	if depth > 2 {
		depth = 2
	}
	if depth < 1 {
		depth = 1
	}

	visited := map[string]bool{assetRef: true}
	frontier := []string{assetRef}
	var neighbors []string

	for d := 0; d < depth; d++ {
		var next []string
		for _, ref := range frontier {
			q := s.db.WithContext(ctx).Where("src_asset_ref = ? OR dst_asset_ref = ?", ref, ref)
			if len(relationFilter) > 0 {
				q = q.Where("relation_type IN ?", relationFilter)
			}
			var edges []AssetEdge
			if err := q.Find(&edges).Error; err != nil {
				return nil, err
			}
			for _, e := range edges {
				other := e.DstAssetRef
				if e.DstAssetRef == ref {
					other = e.SrcAssetRef
				}
				if !visited[other] {
					visited[other] = true
					neighbors = append(neighbors, other)
					next = append(next, other)
				}
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return neighbors, nil
}

// RecordExtraction logs that identity extraction has already run for
// sourceRef, so a retried ingestion task never double-extracts facts.
// Returns (alreadyProcessed, error).
func (s *Store) RecordExtraction(ctx context.Context, sourceRef, sourceType string, factCount int) (bool, error) {
	var existing Extraction
	err := s.db.WithContext(ctx).Where("source_ref = ?", sourceRef).First(&existing).Error
	if err == nil {
		return true, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}
	err = s.db.WithContext(ctx).Create(&Extraction{
		SourceRef: sourceRef, SourceType: sourceType, FactCount: factCount, ExtractedAt: time.Now(),
	}).Error
	return false, err
}
