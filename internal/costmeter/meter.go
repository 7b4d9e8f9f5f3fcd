package costmeter

import (
	"context"
	"sync"
	"time"

	"github.com/pickeld/lucy/internal/logger"
	"gorm.io/gorm"
)

// Event is one billable call, persisted append-only and mirrored into
// the in-memory ring buffer that backs SessionTotal.
type Event struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	Timestamp       time.Time `gorm:"index"`
	Provider        string
	Model           string
	Kind            Kind
	InTokens        int
	OutTokens       int
	TotalTokens     int
	CostUSD         float64
	ConversationID  string `gorm:"index"`
	RequestContext  string
}

func (Event) TableName() string { return "cost_events" }

// AllModels lists the GORM models this package owns, for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{&Event{}}
}

// CallResult is what an LLMCallObserver reports after a completed
// call: raw usage if the provider returned it, otherwise a best-effort
// token estimate the caller obtained via a tokenizer fallback.
type CallResult struct {
	Provider       string
	Model          string
	Kind           Kind
	InTokens       int
	OutTokens      int
	// AudioSeconds is set instead of token counts for Kind == KindWhisper.
	AudioSeconds float64
	// ImageCount is set instead of token counts for Kind == KindImage.
	ImageCount int
	// DocCount is set instead of token counts for Kind == KindRerank.
	DocCount       int
	ConversationID string
	RequestContext string
}

// LLMCallObserver is implemented by anything that wants to be told
// about every completed billable call. Meter is the only production
// implementation; tests can substitute a recording fake.
type LLMCallObserver interface {
	OnCallComplete(ctx context.Context, result CallResult)
}

// Meter is the process-wide cost-tracking singleton. One instance is
// constructed at startup and threaded through every model client via
// LLMCallObserver. Persistence runs outside the critical section so a
// slow or failing database never blocks the hot call path.
type Meter struct {
	db         *gorm.DB
	mu         sync.Mutex
	buf        []Event
	bufCap     int
	bufHead    int
	bufLen     int
	sessionBase float64
	total       float64
}

// NewMeter constructs a Meter backed by db with a ring buffer sized
// bufCap (oldest events are evicted once full).
func NewMeter(db *gorm.DB, bufCap int) *Meter {
	if bufCap <= 0 {
		bufCap = 10000
	}
	return &Meter{
		db:     db,
		buf:    make([]Event, bufCap),
		bufCap: bufCap,
	}
}

// OnCallComplete implements LLMCallObserver. It computes cost from the
// static pricing table, appends to the ring buffer under lock, updates
// the running total, then persists asynchronously — persistence
// failures are logged and swallowed, never propagated to the caller.
func (m *Meter) OnCallComplete(ctx context.Context, result CallResult) {
	key := resolveModelKey(result.Provider, result.Model)

	var cost float64
	switch result.Kind {
	case KindChat:
		cost = chatCost(key, result.InTokens, result.OutTokens)
	case KindEmbed:
		cost = embedCost(key, result.InTokens+result.OutTokens)
	case KindWhisper:
		cost = whisperCost(key, result.AudioSeconds)
	case KindImage:
		cost = imageCost(key, result.ImageCount)
	case KindRerank:
		cost = rerankCost(key, result.DocCount)
	}

	ev := Event{
		Timestamp:      time.Now(),
		Provider:       result.Provider,
		Model:          result.Model,
		Kind:           result.Kind,
		InTokens:       result.InTokens,
		OutTokens:      result.OutTokens,
		TotalTokens:    result.InTokens + result.OutTokens,
		CostUSD:        cost,
		ConversationID: result.ConversationID,
		RequestContext: result.RequestContext,
	}

	m.mu.Lock()
	m.buf[(m.bufHead+m.bufLen)%m.bufCap] = ev
	if m.bufLen < m.bufCap {
		m.bufLen++
	} else {
		m.bufHead = (m.bufHead + 1) % m.bufCap
	}
	m.total += cost
	m.mu.Unlock()

	go m.persist(ev)
}

func (m *Meter) persist(ev Event) {
	if m.db == nil {
		return
	}
	if err := m.db.Create(&ev).Error; err != nil {
		logger.ErrorWithFields(context.Background(), err, map[string]interface{}{
			"component": "costmeter",
			"provider":  ev.Provider,
			"model":     ev.Model,
		})
	}
}

// SessionTotal returns the cumulative cost tracked by this process
// since start. Callers wanting a per-query delta snapshot the value
// before and after an operation and subtract.
func (m *Meter) SessionTotal() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Snapshot returns an opaque marker usable with Delta to compute the
// cost incurred between two points in the call sequence — this is how
// C8 reports cost_usd for a single /rag/query.
func (m *Meter) Snapshot() float64 {
	return m.SessionTotal()
}

// Delta returns the cost incurred since snapshot was taken.
func (m *Meter) Delta(snapshot float64) float64 {
	return m.SessionTotal() - snapshot
}

// RecentEvents returns up to n most recent in-memory events, newest
// last. It never touches the database.
func (m *Meter) RecentEvents(n int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > m.bufLen {
		n = m.bufLen
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		idx := (m.bufHead + m.bufLen - n + i) % m.bufCap
		out[i] = m.buf[idx]
	}
	return out
}

// DailyTotal sums CostUSD for events persisted on the given day (server
// local time), reading from durable storage rather than the ring
// buffer so it reflects history beyond the buffer's retention.
func (m *Meter) DailyTotal(ctx context.Context, day time.Time) (float64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	var total float64
	err := m.db.WithContext(ctx).Model(&Event{}).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Select("COALESCE(SUM(cost_usd), 0)").Scan(&total).Error
	return total, err
}

// ConversationTotal sums CostUSD for all events tagged with conversationID.
func (m *Meter) ConversationTotal(ctx context.Context, conversationID string) (float64, error) {
	var total float64
	err := m.db.WithContext(ctx).Model(&Event{}).
		Where("conversation_id = ?", conversationID).
		Select("COALESCE(SUM(cost_usd), 0)").Scan(&total).Error
	return total, err
}
