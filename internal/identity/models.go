// Package identity implements the identity and asset graph (spec
// component C3): a set of relational tables tracking known people,
// the time-invariant facts known about them, their relationships to
// each other, and the links between people and the assets (messages,
// documents, threads) the ingestion pipeline produces.
package identity

import "time"

// FactStatus is the lifecycle state of a Fact row.
type FactStatus string

const (
	FactStatusActive  FactStatus = "active"
	FactStatusRetired FactStatus = "retired"
)

// AssetRole is how a person relates to an asset.
type AssetRole string

const (
	RoleSender      AssetRole = "sender"
	RoleParticipant AssetRole = "participant"
	RoleMentioned   AssetRole = "mentioned"
)

// AssetEdgeRelation is the kind of edge between two assets.
type AssetEdgeRelation string

const (
	RelationThreadMember  AssetEdgeRelation = "thread_member"
	RelationAttachmentOf  AssetEdgeRelation = "attachment_of"
	RelationChunkOf       AssetEdgeRelation = "chunk_of"
	RelationReplyTo       AssetEdgeRelation = "reply_to"
	RelationReferences    AssetEdgeRelation = "references"
	RelationTranscriptOf  AssetEdgeRelation = "transcript_of"
)

// Person is a known individual, merged across every channel that has
// ever referenced them.
type Person struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	CanonicalName string `gorm:"index"`
	Aliases       string // JSON-encoded []string
	Phone         string `gorm:"index"`
	Email         string `gorm:"index"`
	ChannelIDs    string // JSON-encoded map[string]string, e.g. {"whatsapp": "972501234567@c.us"}
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Person) TableName() string { return "persons" }

// Fact is a time-invariant claim about a person, e.g. city or job —
// never an age or other time-varying value, which the extractor must
// never store directly.
type Fact struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	PersonID      uint64 `gorm:"index:idx_fact_person_key"`
	Key           string `gorm:"index:idx_fact_person_key"`
	Value         string
	Confidence    float64
	SourceType    string
	SourceRef     string
	SourceQuote   string
	Status        FactStatus `gorm:"index"`
	FirstSeen     time.Time
	LastConfirmed time.Time
}

func (Fact) TableName() string { return "facts" }

// Relationship links two persons, e.g. spouse or coworker.
type Relationship struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	PersonA    uint64 `gorm:"index"`
	PersonB    uint64 `gorm:"index"`
	Type       string
	Confidence float64
	SourceRef  string
	CreatedAt  time.Time
}

func (Relationship) TableName() string { return "relationships" }

// PersonAsset links a person to an asset they sent, participated in,
// or were mentioned in.
type PersonAsset struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	PersonID   uint64    `gorm:"uniqueIndex:idx_person_asset_role;index"`
	AssetType  string
	AssetRef   string    `gorm:"uniqueIndex:idx_person_asset_role"`
	Role       AssetRole `gorm:"uniqueIndex:idx_person_asset_role"`
	Confidence float64
	CreatedAt  time.Time
}

func (PersonAsset) TableName() string { return "person_assets" }

// AssetEdge connects two assets, e.g. an attachment to its parent
// message or a chunk to the document it was split from.
type AssetEdge struct {
	ID           uint64            `gorm:"primaryKey;autoIncrement"`
	SrcAssetRef  string            `gorm:"uniqueIndex:idx_asset_edge"`
	DstAssetRef  string            `gorm:"uniqueIndex:idx_asset_edge;index"`
	RelationType AssetEdgeRelation `gorm:"uniqueIndex:idx_asset_edge"`
	Provenance   string
	CreatedAt    time.Time
}

func (AssetEdge) TableName() string { return "asset_edges" }

// Extraction is the identity-extraction dedup log: one row per
// source_ref the extractor has already processed, so repeated
// delivery of the same ingestion task never re-extracts facts.
type Extraction struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	SourceRef   string `gorm:"uniqueIndex"`
	SourceType  string
	FactCount   int
	ExtractedAt time.Time
}

func (Extraction) TableName() string { return "extractions" }

// AllModels lists every GORM model owned by this package, for
// AutoMigrate callers.
func AllModels() []interface{} {
	return []interface{}{
		&Person{}, &Fact{}, &Relationship{}, &PersonAsset{}, &AssetEdge{}, &Extraction{},
	}
}
