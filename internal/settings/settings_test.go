package settings

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
	require.NoError(t, db.AutoMigrate(&Setting{}))
	return New(db)
}

func TestRegisterDefaultsInsertOnlyIfMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	defs := []Default{
		{Key: "a", Value: "1", Category: "c", Type: TypeInt},
		{Key: "b", Value: "2", Category: "c", Type: TypeInt},
	}
	require.NoError(t, s.RegisterDefaults(ctx, defs))

	require.NoError(t, s.Set(ctx, "a", "99"))

	require.NoError(t, s.RegisterDefaults(ctx, defs))

	v, ok := s.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, "99", v, "RegisterDefaults must not overwrite a customized value")

	v, ok = s.Get(ctx, "b")
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestSetManyTransactional(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SetMany(ctx, map[string]string{"x": "1", "y": "2"}))

	v, ok := s.Get(ctx, "x")
	require.True(t, ok)
	require.Equal(t, "1", v)

	v, ok = s.Get(ctx, "y")
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestResetDefaultsScopedByCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	defs := []Default{
		{Key: "a", Value: "1", Category: "cat1", Type: TypeInt},
		{Key: "b", Value: "2", Category: "cat2", Type: TypeInt},
	}
	require.NoError(t, s.RegisterDefaults(ctx, defs))
	require.NoError(t, s.Set(ctx, "a", "changed"))
	require.NoError(t, s.Set(ctx, "b", "changed"))

	require.NoError(t, s.ResetDefaults(ctx, "cat1", defs))

	v, _ := s.Get(ctx, "a")
	require.Equal(t, "1", v)
	v, _ = s.Get(ctx, "b")
	require.Equal(t, "changed", v, "reset scoped to cat1 must not touch cat2")
}

func TestSeedFromEnvAppliesOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Setenv("LUCY_TEST_KEY", "from-env")
	defs := []Default{
		{Key: "k", Value: "default", Category: "c", Type: TypeText, EnvVar: "LUCY_TEST_KEY"},
	}
	require.NoError(t, s.RegisterDefaults(ctx, defs))
	require.NoError(t, s.SeedFromEnv(ctx, defs))

	v, ok := s.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "from-env", v)
}

func TestMaskForDisplay(t *testing.T) {
	require.Equal(t, "plain", MaskForDisplay(TypeText, "plain"))
	require.Equal(t, "sk-a…xyz", MaskForDisplay(TypeSecret, "sk-abcdefghxyz"))
	require.Equal(t, "****", MaskForDisplay(TypeSecret, "abcd"))
}

func TestGetByCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	defs := []Default{
		{Key: "a", Value: "1", Category: "cat1", Type: TypeInt},
		{Key: "b", Value: "2", Category: "cat2", Type: TypeInt},
	}
	require.NoError(t, s.RegisterDefaults(ctx, defs))

	rows, err := s.GetByCategory(ctx, "cat1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "a", rows[0].Key)
}
