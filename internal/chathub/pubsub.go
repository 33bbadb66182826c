package chathub

import (
	"encoding/json"
	"log"

	"unimarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// ListenEvents слухає шину подій Redis та передає envelope'и в головний
// цикл шлюзу. Через шину проходять УСІ події Delivery Coordinator, тому
// порядок "durable write → broadcast" однаковий для будь-якої кількості
// інстансів шлюзу.
func (m *ManagerService) ListenEvents(pubsub *redis.PubSub) {
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env models.Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("Error unmarshalling bus envelope: %v", err)
			continue
		}
		m.PubSubCh <- env
	}
}
