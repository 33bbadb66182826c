package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq" // Необхідний для pq.StringArray
	"gorm.io/gorm"
)

// Listing is the boundary record of the marketplace listing service.
// The chat core only reads it to resolve a listing to its seller when a
// buyer starts a conversation from a listing page.
type Listing struct {
	ID         string         `gorm:"primaryKey" json:"id"`
	SellerID   string         `gorm:"type:text;not null;index" json:"seller_id"`
	Title      string         `gorm:"type:text;not null" json:"title"`
	PriceCents int64          `json:"price_cents"`
	Tags       pq.StringArray `gorm:"type:text[]" json:"tags"` // Теги для пошуку
	CreatedAt  time.Time      `json:"created_at"`
}

// BeforeCreate генерує UUID для оголошення, якщо ID ще не встановлено.
func (l *Listing) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return
}
