package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	userauth "github.com/statusdeck/go-userauth"
)

func main() {
	cfg := userauth.LoadConfig()

	client := redis.NewClient(&redis.Options{
		Addr: cfg.GetRedisAddr(),
		DB:   cfg.GetRedisDB(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis connection failed (%s): %v", cfg.GetRedisAddr(), err)
	}
	log.Printf("redis connection established: %s (db %d)", cfg.GetRedisAddr(), cfg.GetRedisDB())

	store := userauth.NewRedisCredentialStore(client).
		WithPrefixes(cfg.GetUserKeyPrefix(), cfg.GetEmailKeyPrefix(), cfg.GetResetKeyPrefix())

	codec := userauth.NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetIssuer(), nil)

	controller := userauth.NewAuthController(store, codec,
		userauth.WithSessionValidity(time.Duration(cfg.GetTokenExpiration())*time.Hour),
		userauth.WithResetValidity(cfg.GetResetTokenValidity()),
	)

	app := fiber.New(fiber.Config{
		AppName: "user-auth",
	})

	userauth.RegisterAuthRoutes(app, controller)

	go func() {
		if err := app.Listen(cfg.GetListenAddr()); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if err := client.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}
}
