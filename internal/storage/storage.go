package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"unimarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrSelfConversation is returned when a user tries to start a
	// conversation with themselves.
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
	// ErrConversationNotFound is returned when the referenced
	// conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrListingNotFound is returned when the referenced listing does
	// not exist.
	ErrListingNotFound = errors.New("listing not found")
)

// eventsBus is the Redis Pub/Sub channel all realtime envelopes travel on.
const eventsBus = "chat:events"

type Storage interface {
	FindOrCreateConversation(userA, userB string) (*models.Conversation, error)
	GetConversationByID(id string) (*models.Conversation, error)
	ListConversationsFor(userID string) ([]models.Conversation, error)

	TouchLastMessage(conversationID string, messageID uint) error
	IncrementUnread(conversationID, forUserID string) error
	ResetUnread(conversationID, forUserID string) error

	SaveMessage(msg *models.Message) error
	ListMessages(conversationID string) ([]models.Message, error)
	MarkMessagesRead(conversationID, readerID string) error

	GetListingSellerID(listingID string) (string, error)

	PublishEvent(channel string, ev models.Event) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// FindOrCreateConversation шукає розмову між двома користувачами
// (незалежно від порядку) або атомарно створює нову з нульовими
// лічильниками. Другий з двох конкурентних creators впирається в
// унікальний індекс пари та отримує запис переможця.
func (s *Service) FindOrCreateConversation(userA, userB string) (*models.Conversation, error) {
	if userA == userB {
		return nil, ErrSelfConversation
	}
	u1, u2 := models.NormalizePair(userA, userB)

	var conv models.Conversation
	err := s.DB.Preload("LastMessage").
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("ERROR: Failed to look up conversation for %s/%s: %v", u1, u2, err)
		return nil, err
	}

	conv = models.Conversation{User1ID: u1, User2ID: u2}
	if createErr := s.DB.Create(&conv).Error; createErr != nil {
		// Ймовірно, програли гонку створення — перечитуємо.
		var existing models.Conversation
		if err := s.DB.Where("user1_id = ? AND user2_id = ?", u1, u2).First(&existing).Error; err != nil {
			log.Printf("ERROR: Failed to create conversation for %s/%s: %v", u1, u2, createErr)
			return nil, createErr
		}
		return &existing, nil
	}
	return &conv, nil
}

// GetConversationByID повертає розмову з підвантаженим останнім повідомленням.
func (s *Service) GetConversationByID(id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.DB.Preload("LastMessage").Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get conversation %s: %v", id, err)
		return nil, err
	}
	return &conv, nil
}

// ListConversationsFor повертає всі розмови користувача,
// відсортовані за останньою активністю.
func (s *Service) ListConversationsFor(userID string) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := s.DB.Preload("LastMessage").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("updated_at desc").
		Find(&convs).Error
	if err != nil {
		log.Printf("ERROR: Failed to list conversations for %s: %v", userID, err)
		return nil, err
	}
	return convs, nil
}

// TouchLastMessage встановлює вказівник останнього повідомлення та
// піднімає розмову нагору списку (updated_at).
func (s *Service) TouchLastMessage(conversationID string, messageID uint) error {
	res := s.DB.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_message_id": messageID,
			"updated_at":      gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// IncrementUnread атомарно збільшує лічильник непрочитаного для
// forUserID одним цільовим UPDATE, без read-modify-write з боку
// застосунку — два конкурентні senders не втрачають оновлень.
func (s *Service) IncrementUnread(conversationID, forUserID string) error {
	res := s.DB.Exec(`
        UPDATE conversations
        SET unread1 = CASE WHEN user1_id = ? THEN unread1 + 1 ELSE unread1 END,
            unread2 = CASE WHEN user2_id = ? THEN unread2 + 1 ELSE unread2 END
        WHERE id = ? AND (user1_id = ? OR user2_id = ?)`,
		forUserID, forUserID, conversationID, forUserID, forUserID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ResetUnread атомарно скидає лічильник непрочитаного для forUserID.
// Викликається лише з read path: отримання історії — єдиний механізм
// повернення лічильника до нуля.
func (s *Service) ResetUnread(conversationID, forUserID string) error {
	res := s.DB.Exec(`
        UPDATE conversations
        SET unread1 = CASE WHEN user1_id = ? THEN 0 ELSE unread1 END,
            unread2 = CASE WHEN user2_id = ? THEN 0 ELSE unread2 END
        WHERE id = ? AND (user1_id = ? OR user2_id = ?)`,
		forUserID, forUserID, conversationID, forUserID, forUserID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// SaveMessage зберігає повідомлення в PostgreSQL. ID та CreatedAt
// заповнюються GORM під час запису — це єдиний авторитетний годинник
// для впорядкування повідомлень (ніколи не з боку клієнта).
func (s *Service) SaveMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for conversation %s: %v", msg.ConversationID, err)
		return err
	}
	return nil
}

// ListMessages отримує історію повідомлень розмови за зростанням часу.
// Нічиї за created_at вирішуються порядком вставки (id).
func (s *Service) ListMessages(conversationID string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.Where("conversation_id = ?", conversationID).
		Order("created_at asc, id asc").
		Find(&msgs).Error
	if err != nil {
		log.Printf("ERROR: Failed to get messages for conversation %s: %v", conversationID, err)
		return nil, err
	}
	return msgs, nil
}

// MarkMessagesRead позначає прочитаними всі повідомлення, адресовані
// readerID. Best-effort: авторитетний стан живе в лічильниках розмови.
func (s *Service) MarkMessagesRead(conversationID, readerID string) error {
	return s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read = ?", conversationID, readerID, false).
		UpdateColumn("read", true).Error
}

// GetListingSellerID розв'язує ідентифікатор оголошення в ID продавця.
func (s *Service) GetListingSellerID(listingID string) (string, error) {
	var listing models.Listing
	err := s.DB.Where("id = ?", listingID).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrListingNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get listing %s: %v", listingID, err)
		return "", err
	}
	return listing.SellerID, nil
}

// PublishEvent публікує realtime-подію в Redis Pub/Sub. Викликається
// лише ПІСЛЯ успішних durable-записів.
func (s *Service) PublishEvent(channel string, ev models.Event) error {
	env := models.Envelope{Channel: channel, Event: ev}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, eventsBus, payload).Err()
}

// SubscribeEvents підписується на шину подій. Кожен інстанс шлюзу
// слухає її та маршрутизує envelope'и у свої локальні кімнати.
func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, eventsBus)
}
