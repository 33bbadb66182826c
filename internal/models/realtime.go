package models

// Realtime event types exchanged over the WebSocket connection.
const (
	// server → client
	EventOnlineUsers        = "online_users"
	EventUserOnline         = "user_online"
	EventUserOffline        = "user_offline"
	EventNewMessage         = "new_message"
	EventConversationUpdate = "conversation_update"

	// client → server (typing/stop_typing are relayed back to the room)
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventTyping            = "typing"
	EventStopTyping        = "stop_typing"
)

// Event is the single wire envelope for all realtime traffic. Type is
// the discriminator; the remaining fields are filled per event type.
type Event struct {
	Type           string            `json:"type"`
	ConversationID string            `json:"conversation_id,omitempty"`
	SenderID       string            `json:"sender_id,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	Users          []string          `json:"users,omitempty"`
	Message        *Message          `json:"message,omitempty"`
	Conversation   *ConversationView `json:"conversation,omitempty"`
}

// Envelope carries an Event through the Redis fan-out bus together with
// its destination: "conv:<id>" for a conversation room, "user:<id>" for
// a personal room, "broadcast" for every connection.
type Envelope struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
}

// ConversationChannel names the fan-out destination of a conversation room.
func ConversationChannel(conversationID string) string { return "conv:" + conversationID }

// UserChannel names the fan-out destination of a user's personal room.
func UserChannel(userID string) string { return "user:" + userID }

// BroadcastChannel addresses every connected client.
const BroadcastChannel = "broadcast"
