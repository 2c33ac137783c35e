// Package interactions persists completion interactions and the analytics
// events derived from them. Persistence is best effort: nothing here ever
// fails a caller's request.
package interactions

import (
	"time"

	"github.com/google/uuid"
)

// EventTypeAIInteraction is the analytics event type written for every interaction.
const EventTypeAIInteraction = "ai_interaction"

// Entry is one completion interaction. Rows are append-only.
type Entry struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID      string    `gorm:"type:varchar(32);index" json:"request_id"`
	UserID         string    `gorm:"type:text;not null;index" json:"user_id"`
	Query          string    `gorm:"type:text;not null" json:"query"`
	Response       string    `gorm:"type:text" json:"response"`
	ProviderUsed   string    `gorm:"type:varchar(32);not null;index" json:"provider_used"`
	Feature        string    `gorm:"type:varchar(64)" json:"feature,omitempty"`
	Success        bool      `gorm:"not null" json:"success"`
	ErrorKind      string    `gorm:"type:varchar(32)" json:"error_kind,omitempty"`
	PromptTokens   int       `json:"prompt_tokens"`
	ResponseTokens int       `json:"response_tokens"`
	LatencyMs      int64     `json:"latency_ms"`
	Timestamp      time.Time `gorm:"column:created_at;not null;index" json:"timestamp"`
}

// TableName implements the GORM tabler interface.
func (Entry) TableName() string { return "ai_interactions" }

// AnalyticsEvent is the platform analytics row derived from an Entry.
type AnalyticsEvent struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"type:text;not null;index" json:"user_id"`
	EventType string    `gorm:"type:varchar(32);not null;index" json:"event_type"`
	Feature   string    `gorm:"type:varchar(64)" json:"feature,omitempty"`
	Provider  string    `gorm:"type:varchar(32)" json:"provider"`
	Success   bool      `json:"success"`
	Tokens    int       `json:"tokens"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (AnalyticsEvent) TableName() string { return "analytics_events" }

// NewAnalyticsEvent derives the analytics event for entry.
func NewAnalyticsEvent(entry *Entry) *AnalyticsEvent {
	return &AnalyticsEvent{
		ID:        uuid.NewString(),
		UserID:    entry.UserID,
		EventType: EventTypeAIInteraction,
		Feature:   entry.Feature,
		Provider:  entry.ProviderUsed,
		Success:   entry.Success,
		Tokens:    entry.PromptTokens + entry.ResponseTokens,
		CreatedAt: entry.Timestamp,
	}
}

// prepare fills the fields a caller may leave empty.
func (e *Entry) prepare() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}
