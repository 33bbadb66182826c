package chathub_test

import (
	"errors"
	"testing"
	"time"

	"unimarket/backend/internal/chathub"
	"unimarket/backend/internal/models"
	"unimarket/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func pairConversation() *models.Conversation {
	return &models.Conversation{ID: "conv1", User1ID: "user_A", User2ID: "user_B"}
}

// callIndex returns the position of the first mock call with the given
// method name, or -1.
func callIndex(m *MockStorage, method string) int {
	for i, call := range m.Calls {
		if call.Method == method {
			return i
		}
	}
	return -1
}

func TestSendMessage_DurableWritesHappenBeforeBroadcast(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetConversationByID", "conv1").Return(pairConversation(), nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			msg := args.Get(0).(*models.Message)
			msg.ID = 7
			msg.CreatedAt = time.Now()
		}).Return(nil)
	storageMock.On("TouchLastMessage", "conv1", uint(7)).Return(nil)
	storageMock.On("IncrementUnread", "conv1", "user_B").Return(nil)
	storageMock.On("PublishEvent", mock.AnythingOfType("string"), mock.AnythingOfType("models.Event")).Return(nil)

	d := chathub.NewDeliveryService(storageMock)
	msg, err := d.SendMessage("conv1", "user_A", "hi", "", "")

	assert.NoError(t, err)
	assert.Equal(t, uint(7), msg.ID)
	assert.Equal(t, "user_A", msg.SenderID)

	storageMock.AssertExpectations(t)

	// Broadcast happens strictly after every durable write.
	publishAt := callIndex(storageMock, "PublishEvent")
	assert.Greater(t, publishAt, callIndex(storageMock, "SaveMessage"))
	assert.Greater(t, publishAt, callIndex(storageMock, "TouchLastMessage"))
	assert.Greater(t, publishAt, callIndex(storageMock, "IncrementUnread"))

	// new_message у кімнату + conversation_update обом учасникам.
	var channels []string
	for _, call := range storageMock.Calls {
		if call.Method == "PublishEvent" {
			channels = append(channels, call.Arguments.String(0))
		}
	}
	assert.ElementsMatch(t, []string{"conv:conv1", "user:user_A", "user:user_B"}, channels)
}

func TestSendMessage_NonParticipantRejectedWithoutSideEffects(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetConversationByID", "conv1").Return(pairConversation(), nil)

	d := chathub.NewDeliveryService(storageMock)
	_, err := d.SendMessage("conv1", "user_C", "hi", "", "")

	assert.ErrorIs(t, err, chathub.ErrNotParticipant)
	storageMock.AssertNotCalled(t, "SaveMessage", mock.Anything)
	storageMock.AssertNotCalled(t, "IncrementUnread", mock.Anything, mock.Anything)
	storageMock.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
}

func TestSendMessage_EmptyPayloadRejected(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetConversationByID", "conv1").Return(pairConversation(), nil)

	d := chathub.NewDeliveryService(storageMock)
	_, err := d.SendMessage("conv1", "user_A", "", "", "")

	assert.ErrorIs(t, err, chathub.ErrEmptyMessage)
	storageMock.AssertNotCalled(t, "SaveMessage", mock.Anything)
}

func TestSendMessage_AttachmentOnlyIsAllowed(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetConversationByID", "conv1").Return(pairConversation(), nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.Message")).Return(nil)
	storageMock.On("TouchLastMessage", "conv1", mock.AnythingOfType("uint")).Return(nil)
	storageMock.On("IncrementUnread", "conv1", "user_A").Return(nil)
	storageMock.On("PublishEvent", mock.AnythingOfType("string"), mock.AnythingOfType("models.Event")).Return(nil)

	d := chathub.NewDeliveryService(storageMock)
	msg, err := d.SendMessage("conv1", "user_B", "", "https://cdn.example/img.png", "image")

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img.png", msg.AttachmentURL)
	assert.Equal(t, "image", msg.AttachmentKind)
}

func TestSendMessage_StoreFailureProducesNoBroadcast(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetConversationByID", "conv1").Return(pairConversation(), nil)
	storageMock.On("SaveMessage", mock.AnythingOfType("*models.Message")).
		Return(errors.New("connection refused"))

	d := chathub.NewDeliveryService(storageMock)
	_, err := d.SendMessage("conv1", "user_A", "hi", "", "")

	assert.Error(t, err)
	storageMock.AssertNotCalled(t, "TouchLastMessage", mock.Anything, mock.Anything)
	storageMock.AssertNotCalled(t, "IncrementUnread", mock.Anything, mock.Anything)
	storageMock.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
}

func TestFetchMessages_ResetsUnreadForReaderOnly(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetConversationByID", "conv1").Return(pairConversation(), nil)
	history := []models.Message{
		{ConversationID: "conv1", SenderID: "user_A", Text: "hi"},
		{ConversationID: "conv1", SenderID: "user_B", Text: "hello"},
	}
	storageMock.On("ListMessages", "conv1").Return(history, nil)
	storageMock.On("ResetUnread", "conv1", "user_B").Return(nil)
	storageMock.On("MarkMessagesRead", "conv1", "user_B").Return(nil)

	d := chathub.NewDeliveryService(storageMock)
	msgs, err := d.FetchMessages("conv1", "user_B")

	assert.NoError(t, err)
	assert.Equal(t, history, msgs)
	storageMock.AssertCalled(t, "ResetUnread", "conv1", "user_B")
	storageMock.AssertNotCalled(t, "ResetUnread", "conv1", "user_A")
}

func TestFetchMessages_NonParticipantRejected(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetConversationByID", "conv1").Return(pairConversation(), nil)

	d := chathub.NewDeliveryService(storageMock)
	_, err := d.FetchMessages("conv1", "user_C")

	assert.ErrorIs(t, err, chathub.ErrNotParticipant)
	storageMock.AssertNotCalled(t, "ListMessages", mock.Anything)
	storageMock.AssertNotCalled(t, "ResetUnread", mock.Anything, mock.Anything)
}

func TestStartFromListing_ResolvesSeller(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetListingSellerID", "lst1").Return("user_B", nil)
	storageMock.On("FindOrCreateConversation", "user_A", "user_B").Return(pairConversation(), nil)

	d := chathub.NewDeliveryService(storageMock)
	conv, err := d.StartFromListing("user_A", "lst1")

	assert.NoError(t, err)
	assert.Equal(t, "conv1", conv.ID)
}

func TestStartFromListing_UnknownListing(t *testing.T) {
	storageMock := new(MockStorage)
	storageMock.On("GetListingSellerID", "ghost").Return("", storage.ErrListingNotFound)

	d := chathub.NewDeliveryService(storageMock)
	_, err := d.StartFromListing("user_A", "ghost")

	assert.ErrorIs(t, err, storage.ErrListingNotFound)
	storageMock.AssertNotCalled(t, "FindOrCreateConversation", mock.Anything, mock.Anything)
}
