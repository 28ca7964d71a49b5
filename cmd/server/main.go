package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"clubchat/internal/chat"
	"clubchat/internal/club"
	"clubchat/internal/config"
	"clubchat/internal/db"
	authMiddleware "clubchat/internal/middleware"
	"clubchat/internal/storage"
	"clubchat/internal/user"
)

func main() {
	addr := flag.String("addr", ":8080", "http service address")
	flag.Parse()

	cfg := config.Load()
	if cfg.DatabaseDSN == "" {
		log.Fatal("❌ DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET is not set")
	}

	// Platform layer: Postgres, Redis, object storage.
	database, err := db.NewDatabase(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("❌ Failed to connect to DB: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database Schema Initialized")

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	blobs, err := storage.NewDiskStore(cfg.FileDir, cfg.PublicBase)
	if err != nil {
		log.Fatalf("❌ Failed to init object storage: %v", err)
	}

	// Identity feature.
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService, blobs)

	// Club / membership feature.
	clubRepo := club.NewRepository(database.Conn)
	clubHandler := club.NewHandler(clubRepo, blobs)

	// Chat feature: feed, store adapter, selector, websocket sessions.
	feed := chat.NewRedisFeed(redisClient)
	chatRepo := chat.NewRepository(database.Conn, feed)
	selector := chat.NewSelector(clubRepo)
	chatHandler := chat.NewHandler(chatRepo, feed, selector, blobs, clubRepo)

	auth := authMiddleware.NewAuthMiddleware(userService)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	// Public routes.
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(blobs.Root()))))

	// Protected routes.
	r.Group(func(r chi.Router) {
		r.Use(auth.Handle)

		r.Get("/ws", chatHandler.ServeWs)

		r.Get("/api/users/search", userHandler.SearchUsers)
		r.Get("/api/users/{id}/profile", userHandler.GetProfile)
		r.Post("/api/users/avatar", userHandler.UploadAvatar)

		r.Get("/api/messages", chatHandler.GetHistory)
		r.Delete("/api/messages/{id}", chatHandler.DeleteMessage)

		r.Route("/api/clubs", func(r chi.Router) {
			r.Post("/", clubHandler.CreateClub)
			r.Get("/", clubHandler.ListClubs)

			r.Route("/{clubID}", func(r chi.Router) {
				r.Get("/", clubHandler.GetClub)
				r.Patch("/", clubHandler.UpdateClub)
				r.Put("/images", clubHandler.SetImages)

				r.Get("/channels", clubHandler.ListChannels)
				r.Post("/channels", clubHandler.CreateChannel)
				r.Delete("/channels/{channelID}", clubHandler.DeleteChannel)

				r.Get("/members", clubHandler.ListMembers)
				r.Post("/members", clubHandler.Join)
				r.Delete("/members", clubHandler.Leave)
				r.Delete("/members/{userID}", clubHandler.RemoveMember)
				r.Patch("/members/{userID}/role", clubHandler.SetRole)
			})
		})
	})

	log.Printf("🚀 Server starting on %s", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal(err)
	}
}
