package chathub_test

import (
	"unimarket/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) FindOrCreateConversation(userA, userB string) (*models.Conversation, error) {
	args := m.Called(userA, userB)
	conv, _ := args.Get(0).(*models.Conversation)
	return conv, args.Error(1)
}

func (m *MockStorage) GetConversationByID(id string) (*models.Conversation, error) {
	args := m.Called(id)
	conv, _ := args.Get(0).(*models.Conversation)
	return conv, args.Error(1)
}

func (m *MockStorage) ListConversationsFor(userID string) ([]models.Conversation, error) {
	args := m.Called(userID)
	convs, _ := args.Get(0).([]models.Conversation)
	return convs, args.Error(1)
}

func (m *MockStorage) TouchLastMessage(conversationID string, messageID uint) error {
	args := m.Called(conversationID, messageID)
	return args.Error(0)
}

func (m *MockStorage) IncrementUnread(conversationID, forUserID string) error {
	args := m.Called(conversationID, forUserID)
	return args.Error(0)
}

func (m *MockStorage) ResetUnread(conversationID, forUserID string) error {
	args := m.Called(conversationID, forUserID)
	return args.Error(0)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) ListMessages(conversationID string) ([]models.Message, error) {
	args := m.Called(conversationID)
	msgs, _ := args.Get(0).([]models.Message)
	return msgs, args.Error(1)
}

func (m *MockStorage) MarkMessagesRead(conversationID, readerID string) error {
	args := m.Called(conversationID, readerID)
	return args.Error(0)
}

func (m *MockStorage) GetListingSellerID(listingID string) (string, error) {
	args := m.Called(listingID)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) PublishEvent(channel string, ev models.Event) error {
	args := m.Called(channel, ev)
	return args.Error(0)
}
