package handler

import (
	"errors"
	"net/http"

	"unimarket/backend/internal/chathub"
	"unimarket/backend/internal/models"
	"unimarket/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type startConversationRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

type attachmentPayload struct {
	URL  string `json:"url" binding:"required"`
	Kind string `json:"kind"`
}

type sendMessageRequest struct {
	Text       string             `json:"text"`
	Attachment *attachmentPayload `json:"attachment"`
}

// ListConversations — GET /conversations: розмови користувача за
// останньою активністю.
func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.Storage.ListConversationsFor(currentUser(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}

	views := make([]models.ConversationView, 0, len(convs))
	for i := range convs {
		views = append(views, convs[i].View())
	}
	c.JSON(http.StatusOK, gin.H{"conversations": views})
}

// GetConversationMessages — GET /conversations/:id: історія повідомлень.
// Side effect: скидає лічильник непрочитаного читача.
func (h *Handler) GetConversationMessages(c *gin.Context) {
	msgs, err := h.Delivery.FetchMessages(c.Param("id"), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// StartConversation — POST /conversations: find-or-create розмови з
// указаним користувачем.
func (h *Handler) StartConversation(c *gin.Context) {
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "participant_id is required"})
		return
	}

	conv, err := h.Delivery.StartConversation(currentUser(c), req.ParticipantID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv.View())
}

// StartConversationFromListing — POST /conversations/listing/:listingId:
// розмова з продавцем оголошення.
func (h *Handler) StartConversationFromListing(c *gin.Context) {
	conv, err := h.Delivery.StartFromListing(currentUser(c), c.Param("listingId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv.View())
}

// SendMessage — POST /conversations/:id/messages: durable-запис і
// realtime-розсилка через Delivery Coordinator.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message payload"})
		return
	}

	var attURL, attKind string
	if req.Attachment != nil {
		attURL = req.Attachment.URL
		attKind = req.Attachment.Kind
	}

	msg, err := h.Delivery.SendMessage(c.Param("id"), currentUser(c), req.Text, attURL, attKind)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// abortWithError відображає доменні помилки на HTTP-статуси.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrSelfConversation), errors.Is(err, chathub.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chathub.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrConversationNotFound), errors.Is(err, storage.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
