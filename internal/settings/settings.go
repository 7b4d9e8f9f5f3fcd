// Package settings implements the typed key/value configuration store
// (spec component C1): built-in defaults seeded on first boot, an
// environment-variable overlay applied exactly once, and runtime
// get/set access for everything else in the process that needs a
// user-tunable knob without a redeploy.
package settings

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Type enumerates the rendering/validation hint carried alongside a
// setting's raw text value.
type Type string

const (
	TypeText   Type = "text"
	TypeSecret Type = "secret"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeBool   Type = "bool"
	TypeSelect Type = "select"
)

// Setting is a single row in the settings table.
type Setting struct {
	Key         string `gorm:"primaryKey;column:key"`
	Value       string `gorm:"column:value"`
	Category    string `gorm:"column:category;index"`
	Type        Type   `gorm:"column:type"`
	Description string `gorm:"column:description"`
	UpdatedAt   time.Time
}

func (Setting) TableName() string { return "settings" }

// AllModels lists the GORM models this package owns, for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{&Setting{}}
}

// Default describes a built-in setting known at compile time, used by
// RegisterDefaults to insert only-if-missing rows.
type Default struct {
	Key         string
	Value       string
	Category    string
	Type        Type
	Description string
	// EnvVar, when set, is the environment variable consulted during
	// SeedFromEnv to overlay this default on first boot.
	EnvVar string
}

// Store is the process-wide handle to the settings table. A single
// instance is constructed at startup and handed to every component
// that needs a tunable value (C2 pricing overrides, C5 chunk sizes,
// C8 default_k, and so on).
type Store struct {
	db *gorm.DB
	mu sync.RWMutex
}

// New wraps an already-migrated *gorm.DB in a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the raw stored value for key. ok is false if the key
// has never been set. Secret values are returned unmasked here —
// masking is a display-layer concern, applied by MaskForDisplay, not
// by Get.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row Setting
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error; err != nil {
		return "", false
	}
	return row.Value, true
}

// GetBool is a convenience reader for TypeBool settings; it returns
// false when the key is unset or its value is not "true", "1" or "yes".
func (s *Store) GetBool(ctx context.Context, key string) bool {
	v, ok := s.Get(ctx, key)
	if !ok {
		return false
	}
	return v == "true" || v == "1" || v == "yes"
}

// Set upserts a single key, bumping UpdatedAt. Category/Type/Description
// are only written when the row does not already exist, so that
// repeated Set calls from request handlers never clobber the metadata
// RegisterDefaults established.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(ctx, key, value)
}

func (s *Store) setLocked(ctx context.Context, key, value string) error {
	now := time.Now()
	var existing Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		row := Setting{Key: key, Value: value, Category: "custom", Type: TypeText, UpdatedAt: now}
		return s.db.WithContext(ctx).Create(&row).Error
	} else if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&Setting{}).Where("key = ?", key).
		Updates(map[string]interface{}{"value": value, "updated_at": now}).Error
}

// SetMany applies a batch of key/value updates in a single transaction.
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := &Store{db: tx}
		for k, v := range values {
			if err := txStore.setLocked(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByCategory lists every setting row in a category, ordered by key.
func (s *Store) GetByCategory(ctx context.Context, category string) ([]Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []Setting
	err := s.db.WithContext(ctx).Where("category = ?", category).Order("key").Find(&rows).Error
	return rows, err
}

// All lists every setting row, ordered by category then key.
func (s *Store) All(ctx context.Context) ([]Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []Setting
	err := s.db.WithContext(ctx).Order("category, key").Find(&rows).Error
	return rows, err
}

// ResetDefaults restores every setting in category back to its
// compile-time Default value. An empty category resets everything.
// Defaults not present in the table (never seeded) are skipped.
func (s *Store) ResetDefaults(ctx context.Context, category string, defaults []Default) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, d := range defaults {
			if category != "" && d.Category != category {
				continue
			}
			err := tx.Model(&Setting{}).Where("key = ?", d.Key).
				Updates(map[string]interface{}{"value": d.Value, "updated_at": now}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// RegisterDefaults inserts a row for every Default not already present
// in the table. Existing rows (including ones a user has already
// customized) are left untouched — this is additive, run on every
// boot so newly introduced settings appear without overwriting
// anything a prior boot or the user already set.
func (s *Store) RegisterDefaults(ctx context.Context, defaults []Default) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range defaults {
			var count int64
			if err := tx.Model(&Setting{}).Where("key = ?", d.Key).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			row := Setting{
				Key:         d.Key,
				Value:       d.Value,
				Category:    d.Category,
				Type:        d.Type,
				Description: d.Description,
				UpdatedAt:   time.Now(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedFromEnv overlays environment variables onto freshly-registered
// defaults. It runs immediately after RegisterDefaults and only writes
// a key whose stored value still equals its registered default, so a
// value already seeded on an earlier boot or edited by the user is
// left as it is and later changes to the env var are ignored.
func (s *Store) SeedFromEnv(ctx context.Context, defaults []Default) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range defaults {
		if d.EnvVar == "" {
			continue
		}
		v, ok := os.LookupEnv(d.EnvVar)
		if !ok || v == "" {
			continue
		}
		var current Setting
		if err := s.db.WithContext(ctx).Where("key = ?", d.Key).First(&current).Error; err == nil && current.Value != d.Value {
			continue
		}
		if err := s.setLocked(ctx, d.Key, v); err != nil {
			return err
		}
	}
	return nil
}

// MaskForDisplay renders a setting's value for API/UI consumption,
// masking secrets as "first4…last3". Non-secret types are returned
// unmodified; a secret of 8 characters or fewer is replaced entirely
// by asterisks.
func MaskForDisplay(t Type, value string) string {
	if t != TypeSecret {
		return value
	}
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + "…" + value[len(value)-3:]
}
