package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation represents a 1-on-1 dialog between a buyer and a seller.
// The participant pair is normalized (User1ID < User2ID) and carries a
// unique composite index, so the same two users can never own more than
// one conversation regardless of who initiated it.
type Conversation struct {
	// ID is the unique identifier for the conversation (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// User1ID is the lexicographically smaller participant ID.
	User1ID string `gorm:"type:text;not null;uniqueIndex:idx_conv_pair" json:"user1_id"`
	// User2ID is the lexicographically larger participant ID.
	User2ID string `gorm:"type:text;not null;uniqueIndex:idx_conv_pair" json:"user2_id"`

	// Unread1 counts messages User1 has not fetched yet. It is bumped
	// only by a send from User2 and zeroed only when User1 reads.
	Unread1 int64 `gorm:"not null;default:0" json:"unread1"`
	// Unread2 is the mirror counter for User2.
	Unread2 int64 `gorm:"not null;default:0" json:"unread2"`

	// LastMessageID references the most recent message, if any.
	LastMessageID *uint    `gorm:"index" json:"-"`
	LastMessage   *Message `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the ordering key for the conversation list.
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate — хук GORM, генерує UUID для розмови, якщо ID ще не встановлено.
func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// NormalizePair orders two participant IDs so that pair lookups and the
// unique index are independent of who initiated the conversation.
func NormalizePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the peer of userID, or "" if userID is not a
// participant.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.User1ID:
		return c.User2ID
	case c.User2ID:
		return c.User1ID
	}
	return ""
}

// UnreadFor returns the unread counter owned by userID.
func (c *Conversation) UnreadFor(userID string) int64 {
	switch userID {
	case c.User1ID:
		return c.Unread1
	case c.User2ID:
		return c.Unread2
	}
	return 0
}

// ConversationView is the wire shape of a conversation as clients see
// it: participants as a list and unread counters keyed by user ID.
type ConversationView struct {
	ID           string           `json:"id"`
	Participants []string         `json:"participants"`
	LastMessage  *Message         `json:"last_message,omitempty"`
	UnreadCounts map[string]int64 `json:"unread_counts"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// View будує ConversationView для REST-відповідей та realtime-подій.
func (c *Conversation) View() ConversationView {
	return ConversationView{
		ID:           c.ID,
		Participants: []string{c.User1ID, c.User2ID},
		LastMessage:  c.LastMessage,
		UnreadCounts: map[string]int64{
			c.User1ID: c.Unread1,
			c.User2ID: c.Unread2,
		},
		UpdatedAt: c.UpdatedAt,
	}
}
