package handler

import (
	"unimarket/backend/internal/chathub"
	"unimarket/backend/internal/storage"
)

// Handler тримає посилання на шлюз, координатор доставки та сховище.
type Handler struct {
	Hub       *chathub.ManagerService
	Delivery  *chathub.DeliveryService
	Storage   storage.Storage
	JWTSecret []byte
}

func NewHandler(hub *chathub.ManagerService, delivery *chathub.DeliveryService, s storage.Storage, jwtSecret []byte) *Handler {
	return &Handler{
		Hub:       hub,
		Delivery:  delivery,
		Storage:   s,
		JWTSecret: jwtSecret,
	}
}
