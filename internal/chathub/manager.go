package chathub

import (
	"log"
	"strings"
	"time"

	"unimarket/backend/internal/config"
	"unimarket/backend/internal/models"
	"unimarket/backend/internal/storage"
)

// typingKey ідентифікує індикатор "друкує..." в межах однієї розмови.
type typingKey struct {
	ConversationID string
	UserID         string
}

// ManagerService — шлюз realtime-з'єднань. Єдина goroutine Run()
// володіє станом кімнат та typing-таймерів; весь доступ іде через
// канали, тому блокування не потрібні.
type ManagerService struct {
	Presence *PresenceRegistry

	// rooms: ConversationID → активні з'єднання в кімнаті.
	rooms map[string]map[Client]bool

	// Channels
	RegisterCh   chan Client
	UnregisterCh chan Client
	InboundCh    chan InboundEvent
	PubSubCh     chan models.Envelope

	typingTimers    map[typingKey]*time.Timer
	typingExpiredCh chan typingKey
	// TypingExpiry — серверний TTL індикатора набору. Виставляється до
	// запуску Run().
	TypingExpiry time.Duration

	Storage storage.Storage
}

// NewManagerService створює шлюз із власним Presence Registry.
func NewManagerService(s storage.Storage) *ManagerService {
	return &ManagerService{
		Presence:        NewPresenceRegistry(),
		rooms:           make(map[string]map[Client]bool),
		RegisterCh:      make(chan Client),
		UnregisterCh:    make(chan Client),
		InboundCh:       make(chan InboundEvent),
		PubSubCh:        make(chan models.Envelope, 64),
		typingTimers:    make(map[typingKey]*time.Timer),
		typingExpiredCh: make(chan typingKey, 64),
		TypingExpiry:    config.TypingExpiry,
		Storage:         s,
	}
}

// Run — головний диспетчер шлюзу.
func (m *ManagerService) Run() {
	for {
		select {
		case c := <-m.RegisterCh:
			m.handleRegister(c)
		case c := <-m.UnregisterCh:
			m.handleUnregister(c)
		case in := <-m.InboundCh:
			m.handleInbound(in)
		case env := <-m.PubSubCh:
			m.route(env)
		case key := <-m.typingExpiredCh:
			m.handleTypingExpired(key)
		}
	}
}

// handleRegister реєструє автентифіковане з'єднання. Last-connection-wins:
// старіше з'єднання того ж користувача закривається і виганяється з кімнат.
func (m *ManagerService) handleRegister(c Client) {
	userID := c.GetUserID()
	replaced := m.Presence.Register(userID, c)
	if replaced != nil {
		m.removeFromRooms(replaced)
		replaced.Close()
	}

	// Гідратація нового клієнта поточним станом присутності.
	m.send(c, models.Event{Type: models.EventOnlineUsers, Users: m.Presence.Snapshot()})

	// Анонс лише при переході offline → online: при заміні з'єднання
	// користувач і так не переставав бути онлайн.
	if replaced == nil {
		for _, peer := range m.Presence.Clients() {
			if peer != c {
				m.send(peer, models.Event{Type: models.EventUserOnline, UserID: userID})
			}
		}
	}
	log.Printf("Client registered: %s", userID)
}

// handleUnregister прибирає з'єднання. Завдяки stale-close guard
// запізнілий close старого з'єднання не чіпає запис новішого.
func (m *ManagerService) handleUnregister(c Client) {
	userID := c.GetUserID()
	m.removeFromRooms(c)

	if m.Presence.Unregister(userID, c) {
		m.clearTypingFor(userID)
		for _, peer := range m.Presence.Clients() {
			m.send(peer, models.Event{Type: models.EventUserOffline, UserID: userID})
		}
		log.Printf("Client unregistered: %s", userID)
	}
	c.Close()
}

// handleInbound обробляє події, які видає клієнт.
func (m *ManagerService) handleInbound(in InboundEvent) {
	c := in.Client
	ev := in.Event

	switch ev.Type {
	case models.EventJoinConversation:
		m.joinRoom(c, ev.ConversationID)
	case models.EventLeaveConversation:
		m.leaveRoom(c, ev.ConversationID)
	case models.EventTyping:
		m.relayTyping(c, ev.ConversationID, true)
	case models.EventStopTyping:
		m.relayTyping(c, ev.ConversationID, false)
	default:
		log.Printf("Unknown inbound event %q from %s", ev.Type, c.GetUserID())
	}
}

// joinRoom додає з'єднання до кімнати розмови. Вступ дозволено лише
// учасникам розмови; чужий join мовчки відкидається.
func (m *ManagerService) joinRoom(c Client, conversationID string) {
	if conversationID == "" {
		return
	}
	conv, err := m.Storage.GetConversationByID(conversationID)
	if err != nil {
		log.Printf("Join rejected: conversation %s: %v", conversationID, err)
		return
	}
	if !conv.HasParticipant(c.GetUserID()) {
		log.Printf("Join rejected: %s is not a participant of %s", c.GetUserID(), conversationID)
		return
	}
	if m.rooms[conversationID] == nil {
		m.rooms[conversationID] = make(map[Client]bool)
	}
	m.rooms[conversationID][c] = true
}

func (m *ManagerService) leaveRoom(c Client, conversationID string) {
	if members, ok := m.rooms[conversationID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(m.rooms, conversationID)
		}
	}
}

// removeFromRooms виганяє з'єднання з усіх кімнат (disconnect або заміна).
func (m *ManagerService) removeFromRooms(c Client) {
	for conversationID, members := range m.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(m.rooms, conversationID)
			}
		}
	}
}

// relayTyping ретранслює індикатор набору в кімнату розмови. Шлюз сам
// не дебаунсить (це контракт клієнта), але тримає серверний TTL, щоб
// зниклий клієнт не лишав співрозмовнику вічне "Typing…".
func (m *ManagerService) relayTyping(c Client, conversationID string, typing bool) {
	if conversationID == "" {
		return
	}
	userID := c.GetUserID()
	key := typingKey{ConversationID: conversationID, UserID: userID}

	eventType := models.EventStopTyping
	if typing {
		eventType = models.EventTyping
		if t, ok := m.typingTimers[key]; ok {
			t.Stop()
		}
		m.typingTimers[key] = time.AfterFunc(m.TypingExpiry, func() {
			select {
			case m.typingExpiredCh <- key:
			default:
			}
		})
	} else {
		if t, ok := m.typingTimers[key]; ok {
			t.Stop()
			delete(m.typingTimers, key)
		}
	}

	m.broadcastRoom(conversationID, models.Event{
		Type:           eventType,
		ConversationID: conversationID,
		SenderID:       userID,
	}, c)
}

// handleTypingExpired гасить завислий індикатор, якщо stop_typing так
// і не прийшов.
func (m *ManagerService) handleTypingExpired(key typingKey) {
	if _, ok := m.typingTimers[key]; !ok {
		return
	}
	delete(m.typingTimers, key)
	m.broadcastRoom(key.ConversationID, models.Event{
		Type:           models.EventStopTyping,
		ConversationID: key.ConversationID,
		SenderID:       key.UserID,
	}, nil)
}

// clearTypingFor гасить усі індикатори користувача при відключенні.
func (m *ManagerService) clearTypingFor(userID string) {
	for key, t := range m.typingTimers {
		if key.UserID != userID {
			continue
		}
		t.Stop()
		delete(m.typingTimers, key)
		m.broadcastRoom(key.ConversationID, models.Event{
			Type:           models.EventStopTyping,
			ConversationID: key.ConversationID,
			SenderID:       userID,
		}, nil)
	}
}

// route доставляє envelope з шини подій у локальні кімнати цього інстансу.
func (m *ManagerService) route(env models.Envelope) {
	switch {
	case env.Channel == models.BroadcastChannel:
		for _, c := range m.Presence.Clients() {
			m.send(c, env.Event)
		}
	case strings.HasPrefix(env.Channel, "user:"):
		if c, ok := m.Presence.Get(strings.TrimPrefix(env.Channel, "user:")); ok {
			m.send(c, env.Event)
		}
	case strings.HasPrefix(env.Channel, "conv:"):
		m.broadcastRoom(strings.TrimPrefix(env.Channel, "conv:"), env.Event, nil)
	default:
		log.Printf("Unroutable envelope channel %q", env.Channel)
	}
}

func (m *ManagerService) broadcastRoom(conversationID string, ev models.Event, except Client) {
	for c := range m.rooms[conversationID] {
		if c != except {
			m.send(c, ev)
		}
	}
}

// send — fire-and-forget доставка одному клієнту. Переповнений буфер
// повільного клієнта означає втрачену realtime-подію, не більше:
// авторитетний стан завжди доступний через durable read path.
func (m *ManagerService) send(c Client, ev models.Event) {
	select {
	case c.GetSendChannel() <- ev:
	default:
		log.Printf("Dropping %s event for slow client %s", ev.Type, c.GetUserID())
	}
}
