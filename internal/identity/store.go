package identity

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Store is the process-wide handle onto the identity and asset graph.
// Vector-store-adapter-style: one instance per process, thread-safe,
// backed by the same database connection as the settings store.
type Store struct {
	db     *gorm.DB
	caches *resolverCaches

	locksMu sync.Mutex
	locks   map[uint64]*sync.Mutex
}

// New wraps an already-migrated *gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{
		db:     db,
		caches: newResolverCaches(),
		locks:  make(map[uint64]*sync.Mutex),
	}
}

// ClearCaches drops every resolver cache entry. Call this after a
// merge, a bulk import, or any manual person edit.
func (s *Store) ClearCaches() {
	s.caches.clear()
}

func (s *Store) lockFor(personID uint64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[personID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[personID] = m
	}
	return m
}

func decodeAliases(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func encodeAliases(aliases []string) string {
	b, _ := json.Marshal(aliases)
	return string(b)
}

func decodeChannelIDs(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func encodeChannelIDs(m map[string]string) string {
	b, _ := json.Marshal(m)
	return string(b)
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// GetPerson loads a person by id.
func (s *Store) GetPerson(ctx context.Context, id uint64) (*Person, error) {
	var p Person
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// touch bumps UpdatedAt on a person row inside an existing transaction.
func touch(tx *gorm.DB, id uint64) error {
	return tx.Model(&Person{}).Where("id = ?", id).Update("updated_at", time.Now()).Error
}
