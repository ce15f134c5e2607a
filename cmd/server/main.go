package main

import (
	"fmt"
	"log"
	"net/http"

	"word-party/internal/config"
	"word-party/internal/db"
	"word-party/internal/server"

	"github.com/redis/go-redis/v9"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	conn, err := db.Open()
	if err != nil {
		log.Printf("running without database: %v", err)
		conn = nil
	}
	if conn != nil {
		if err := db.Configure(conn, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeSeconds); err != nil {
			log.Fatalf("database configuration failed: %v", err)
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatalf("database migration failed: %v", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	srv := server.New(conn, redisClient, cfg)
	defer srv.Close()
	if err := srv.LoadReferenceData(); err != nil {
		log.Fatalf("failed to load reference data: %v", err)
	}

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("word-party server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
