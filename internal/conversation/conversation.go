// Package conversation stores retrieval chat history: one row per
// conversation and one append-only row per message in it, threaded
// through C8's Condense step so a follow-up question can be rewritten
// standalone against what was asked before.
package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a single chat session a /rag/query call appends to.
type Conversation struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Conversation) TableName() string { return "conversations" }

// Message is one turn of a conversation, in send order.
type Message struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"index;index:idx_conv_seq"`
	Role           string // "user" or "assistant"
	Content        string
	CostUSD        float64
	Seq            int `gorm:"index:idx_conv_seq"`
	CreatedAt      time.Time
}

func (Message) TableName() string { return "conversation_messages" }

// AllModels lists the GORM models this package owns, for AutoMigrate.
// No foreign key is declared between the two tables; Store.Delete
// removes a conversation's messages itself.
func AllModels() []interface{} {
	return []interface{}{&Conversation{}, &Message{}}
}

// Store is the process-wide handle to conversation history.
type Store struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wraps an already-migrated *gorm.DB in a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db, locks: map[string]*sync.Mutex{}}
}

// lockFor returns the per-conversation append lock, creating it on
// first use — this is what gives message ordering the send-order
// guarantee the retrieval engine's Condense step relies on.
func (s *Store) lockFor(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	return l
}

// Create starts a new conversation, generating an id if none is
// supplied.
func (s *Store) Create(ctx context.Context, id, title string) (Conversation, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	c := Conversation{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}
	err := s.db.WithContext(ctx).Create(&c).Error
	return c, err
}

// Get fetches a conversation by id.
func (s *Store) Get(ctx context.Context, id string) (Conversation, error) {
	var c Conversation
	err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error
	return c, err
}

// List returns every conversation, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&out).Error
	return out, err
}

// Rename updates a conversation's title.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	return s.db.WithContext(ctx).Model(&Conversation{}).Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "updated_at": time.Now()}).Error
}

// Delete removes a conversation and every message in it, deleting the
// messages first and then the conversation row in one transaction.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Conversation{}, "id = ?", id).Error
	})
}

// Append adds a message to a conversation under its per-conversation
// lock, assigning the next sequence number and bumping the parent
// conversation's updated_at. Serializing appends here is what makes
// concurrent /rag/query calls against the same conversation observe
// each other's history in send order.
func (s *Store) Append(ctx context.Context, conversationID, role, content string, costUSD float64) (Message, error) {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	var m Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		tx.Model(&Message{}).Where("conversation_id = ?", conversationID).
			Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq)

		now := time.Now()
		m = Message{
			ConversationID: conversationID,
			Role:           role,
			Content:        content,
			CostUSD:        costUSD,
			Seq:            maxSeq + 1,
			CreatedAt:      now,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}

		var count int64
		tx.Model(&Conversation{}).Where("id = ?", conversationID).Count(&count)
		if count == 0 {
			if err := tx.Create(&Conversation{ID: conversationID, CreatedAt: now, UpdatedAt: now}).Error; err != nil {
				return err
			}
			return nil
		}
		return tx.Model(&Conversation{}).Where("id = ?", conversationID).
			Update("updated_at", now).Error
	})
	return m, err
}

// History returns up to limit most recent messages for conversationID
// in send order (oldest first). limit <= 0 means no limit.
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	q := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Message
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}
