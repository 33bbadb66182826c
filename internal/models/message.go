package models

import "gorm.io/gorm"

// Message represents a persisted chat entry in the PostgreSQL database.
// The embedded gorm.Model provides ID, CreatedAt, UpdatedAt, and DeletedAt
// fields; ID and CreatedAt serve as the message identity and ordering key.
// A message is append-only: once persisted, only the Read flag may change.
type Message struct {
	gorm.Model

	// ConversationID is the identifier of the conversation the message
	// belongs to.
	ConversationID string `gorm:"type:uuid;not null;index:idx_conv_msg" json:"conversation_id"`
	// SenderID is the ID of the participant who sent the message.
	SenderID string `gorm:"type:text;not null;index:idx_conv_msg" json:"sender_id"`
	// Text is the message body. May be empty when an attachment is set.
	Text string `gorm:"type:text" json:"text"`
	// AttachmentURL points at an uploaded file, if any.
	AttachmentURL string `gorm:"type:text" json:"attachment_url,omitempty"`
	// AttachmentKind is the attachment type (e.g. "image", "file").
	AttachmentKind string `gorm:"type:text" json:"attachment_kind,omitempty"`
	// Read is a best-effort per-message flag; the authoritative unread
	// state lives on the Conversation counters.
	Read bool `gorm:"not null;default:false" json:"read"`
}

// HasContent reports whether the message carries any payload at all.
func (m *Message) HasContent() bool {
	return m.Text != "" || m.AttachmentURL != ""
}
