package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"unimarket/backend/internal/api/handler"
	"unimarket/backend/internal/chathub"
	"unimarket/backend/internal/config"
	"unimarket/backend/internal/models"
	"unimarket/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupDependencies() (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	dsn := getEnv("DATABASE_DSN",
		"host=localhost user=user password=password dbname=unimarketdb port=5432 sslmode=disable")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: "",
		DB:       0,
	})

	// Перевірка з'єднання Redis
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	// 3. Міграції
	err = db.AutoMigrate(
		&models.Conversation{},
		&models.Message{},
		&models.Listing{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting UniMarket chat backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET не встановлено!")
	}

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	// 2. Шлюз realtime-з'єднань та координатор доставки
	hub := chathub.NewManagerService(s)
	delivery := chathub.NewDeliveryService(s)

	// 3. Запуск основних Goroutines
	go hub.Run()                             // Головний диспетчер
	go hub.ListenEvents(s.SubscribeEvents()) // Слухач шини подій

	// 4. Налаштування Gin та роутингу
	r := gin.Default()
	h := handler.NewHandler(hub, delivery, s, []byte(jwtSecret))

	r.GET("/ws", h.ServeWebSocket) // WebSocket Upgrade (токен на handshake)

	api := r.Group("/", h.AuthRequired())
	{
		api.GET("/conversations", h.ListConversations)
		api.GET("/conversations/:id", h.GetConversationMessages)
		api.POST("/conversations", h.StartConversation)
		api.POST("/conversations/listing/:listingId", h.StartConversationFromListing)
		api.POST("/conversations/:id/messages", h.SendMessage)
	}

	// Запуск HTTP-сервера
	server := &http.Server{
		Addr:           getEnv("ADDR", ":8080"),
		Handler:        r,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	log.Fatal(server.ListenAndServe())
}
