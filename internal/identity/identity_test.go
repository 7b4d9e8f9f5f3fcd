package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(AllModels()...))
	return New(db)
}

func TestFindOrCreatePersonIdentifierCascade(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id1, err := s.FindOrCreatePerson(ctx, "Alice", Identifiers{Phone: "+1-555"})
	require.NoError(t, err)

	id2, err := s.FindOrCreatePerson(ctx, "A.", Identifiers{Phone: "+1-555"})
	require.NoError(t, err)
	require.Equal(t, id1, id2, "same phone number must resolve to the same person")

	p, err := s.GetPerson(ctx, id1)
	require.NoError(t, err)
	require.Contains(t, decodeAliases(p.Aliases), "A.", "second name variant should be recorded as an alias")
}

func TestFindOrCreatePersonAlwaysReturnsValidID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.FindOrCreatePerson(ctx, "Nobody Known", Identifiers{})
	require.NoError(t, err)
	require.NotZero(t, id)
}

func TestFindOrCreatePersonMergesOnIdentifierCollision(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id1, err := s.FindOrCreatePerson(ctx, "Bob", Identifiers{Phone: "+1-111"})
	require.NoError(t, err)
	id2, err := s.FindOrCreatePerson(ctx, "Bobby", Identifiers{Email: "bob@example.com"})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	// A later event ties both identifiers to the same call: phone
	// resolves to id1 first, email then resolves to id2 -> merge.
	merged, err := s.FindOrCreatePerson(ctx, "Bob", Identifiers{Phone: "+1-111", Email: "bob@example.com"})
	require.NoError(t, err)

	survivor := id1
	if id2 < id1 {
		survivor = id2
	}
	require.Equal(t, survivor, merged)

	// The absorbed person's row should be gone.
	other := id1
	if survivor == id1 {
		other = id2
	}
	_, err = s.GetPerson(ctx, other)
	require.Error(t, err)
}

func TestSetFactSupersedesOnHigherConfidence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	pid, err := s.FindOrCreatePerson(ctx, "Carol", Identifiers{})
	require.NoError(t, err)

	require.NoError(t, s.SetFact(ctx, pid, "city", "A", 0.6, "extractor", "msg-1", ""))
	require.NoError(t, s.SetFact(ctx, pid, "city", "B", 0.9, "extractor", "msg-2", ""))

	facts, err := s.FactsFor(ctx, pid)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Equal(t, "B", facts[0].Value)
}

func TestLinkPersonAssetIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	pid, err := s.FindOrCreatePerson(ctx, "Dana", Identifiers{})
	require.NoError(t, err)

	require.NoError(t, s.LinkPersonAsset(ctx, pid, "whatsapp_msg", "whatsapp:123", RoleSender, 1.0))
	require.NoError(t, s.LinkPersonAsset(ctx, pid, "whatsapp_msg", "whatsapp:123", RoleSender, 1.0))

	links, err := s.AssetsOf(ctx, pid, nil)
	require.NoError(t, err)
	require.Len(t, links, 1, "duplicate link calls must be a no-op")
}

func TestNeighborsOfRespectsDepthCap(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.LinkAssets(ctx, "a", "b", RelationThreadMember, "test"))
	require.NoError(t, s.LinkAssets(ctx, "b", "c", RelationThreadMember, "test"))
	require.NoError(t, s.LinkAssets(ctx, "c", "d", RelationThreadMember, "test"))

	neighbors, err := s.NeighborsOf(ctx, "a", nil, 2)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b", "c"}, neighbors, "depth 2 must reach c but not d")
}
