package chathub

import (
	"errors"
	"log"

	"unimarket/backend/internal/models"
	"unimarket/backend/internal/storage"
)

var (
	// ErrNotParticipant is returned when a user touches a conversation
	// they do not belong to. No store mutation or broadcast happens.
	ErrNotParticipant = errors.New("user is not a participant of this conversation")
	// ErrEmptyMessage is returned when a send carries neither text nor
	// an attachment.
	ErrEmptyMessage = errors.New("message must contain text or an attachment")
)

// DeliveryService — координатор запису. Гарантує порядок: усі durable-
// записи відбуваються ДО публікації realtime-подій, тому клієнт ніколи
// не побачить broadcast повідомлення, якого немає в сховищі.
type DeliveryService struct {
	Storage storage.Storage
}

func NewDeliveryService(s storage.Storage) *DeliveryService {
	return &DeliveryService{Storage: s}
}

// StartConversation знаходить або створює розмову між двома користувачами.
func (d *DeliveryService) StartConversation(initiatorID, participantID string) (*models.Conversation, error) {
	return d.Storage.FindOrCreateConversation(initiatorID, participantID)
}

// StartFromListing розв'язує оголошення в його продавця та делегує
// у StartConversation. Межа із зовнішнім listing-сервісом.
func (d *DeliveryService) StartFromListing(initiatorID, listingID string) (*models.Conversation, error) {
	sellerID, err := d.Storage.GetListingSellerID(listingID)
	if err != nil {
		return nil, err
	}
	return d.Storage.FindOrCreateConversation(initiatorID, sellerID)
}

// SendMessage — шлях запису повідомлення:
//  1. перевірка учасництва (без side effects при відмові);
//  2. durable-запис повідомлення;
//  3. оновлення вказівника останнього повідомлення;
//  4. інкремент непрочитаного для співрозмовника;
//  5. new_message у кімнату розмови;
//  6. conversation_update в особисті кімнати ОБОХ учасників.
//
// Помилка на кроках 2–4 перериває все до будь-якого broadcast. Помилка
// публікації (5–6) лише логів: durable-стан уже коректний, а клієнт
// добере його через REST.
func (d *DeliveryService) SendMessage(conversationID, senderID, text, attachmentURL, attachmentKind string) (*models.Message, error) {
	conv, err := d.Storage.GetConversationByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		AttachmentURL:  attachmentURL,
		AttachmentKind: attachmentKind,
	}
	if !msg.HasContent() {
		return nil, ErrEmptyMessage
	}

	if err := d.Storage.SaveMessage(msg); err != nil {
		return nil, err
	}
	if err := d.Storage.TouchLastMessage(conv.ID, msg.ID); err != nil {
		return nil, err
	}
	if err := d.Storage.IncrementUnread(conv.ID, conv.OtherParticipant(senderID)); err != nil {
		return nil, err
	}

	d.publish(models.ConversationChannel(conv.ID), models.Event{
		Type:           models.EventNewMessage,
		ConversationID: conv.ID,
		Message:        msg,
	})

	// Перечитуємо розмову, щоб події несли свіжі лічильники та lastMessage.
	updated, err := d.Storage.GetConversationByID(conv.ID)
	if err != nil {
		log.Printf("WARNING: Failed to reload conversation %s for update events: %v", conv.ID, err)
		return msg, nil
	}
	view := updated.View()
	for _, participantID := range view.Participants {
		d.publish(models.UserChannel(participantID), models.Event{
			Type:           models.EventConversationUpdate,
			ConversationID: updated.ID,
			Conversation:   &view,
		})
	}

	return msg, nil
}

// FetchMessages повертає історію розмови для її учасника. Side effect
// читання: лічильник непрочитаного читача скидається — це єдиний
// механізм його обнулення.
func (d *DeliveryService) FetchMessages(conversationID, requesterID string) ([]models.Message, error) {
	conv, err := d.Storage.GetConversationByID(conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requesterID) {
		return nil, ErrNotParticipant
	}

	msgs, err := d.Storage.ListMessages(conv.ID)
	if err != nil {
		return nil, err
	}

	if err := d.Storage.ResetUnread(conv.ID, requesterID); err != nil {
		log.Printf("WARNING: Failed to reset unread for %s in %s: %v", requesterID, conv.ID, err)
	}
	// Прапорець read на повідомленнях — best-effort.
	if err := d.Storage.MarkMessagesRead(conv.ID, requesterID); err != nil {
		log.Printf("WARNING: Failed to mark messages read in %s: %v", conv.ID, err)
	}

	return msgs, nil
}

// publish — fire-and-forget: невдала публікація деградує до "цей peer
// не отримав live-оновлення", а не до помилки запиту.
func (d *DeliveryService) publish(channel string, ev models.Event) {
	if err := d.Storage.PublishEvent(channel, ev); err != nil {
		log.Printf("WARNING: Failed to publish %s to %s: %v", ev.Type, channel, err)
	}
}
