package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dice-game-server/internal/config"
	"dice-game-server/internal/handlers"
	"dice-game-server/internal/logger"
	"dice-game-server/internal/middleware"
	"dice-game-server/internal/services"
)

// seedUsers are the startup accounts; there is no dynamic registration.
var seedUsers = map[string]string{
	"testuser1": "password123",
	"testuser2": "password123",
	"alice":     "alicepass",
	"bob":       "bobpass",
	"charlie":   "charliepass",
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	users := services.NewUserRegistry()
	if err := users.SeedUsers(seedUsers, cfg.DefaultBalance); err != nil {
		zlog.Fatal("failed to seed users", zap.Error(err))
	}

	sessions := services.NewSessionStore(cfg.SessionTimeout)
	rooms := services.NewRoomRegistry(cfg.RoomCount, cfg.RoomCapacity, cfg.MinBet, cfg.MaxBet)
	engine := services.NewRoundEngine(users, rooms, services.CryptoRoller{}, cfg.MaxBetsPerRound, zlog)

	housekeeper := services.NewHousekeeper(sessions, engine, cfg.CleanupInterval, cfg.StaleRoundTimeout, zlog)
	housekeeper.Start()

	limiter := middleware.NewConnLimiter(cfg.MaxConnections)
	dispatcher := handlers.NewDispatcher(sessions, users, rooms, engine, zlog)

	tcpServer := handlers.NewTCPServer(dispatcher, limiter, zlog)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.TCPPort)
		if err := tcpServer.ListenAndServe(addr); err != nil {
			zlog.Fatal("tcp server failed", zap.Error(err))
		}
	}()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	wsHandler := handlers.NewWebSocketHandler(dispatcher, limiter, zlog)
	router.GET("/ws", wsHandler.HandleWebSocket)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": limiter.Active(),
			"sessions":    sessions.Count(),
		})
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.WSPort),
		Handler: router,
	}
	go func() {
		zlog.Info("websocket server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("websocket server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")

	tcpServer.Shutdown()
	housekeeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zlog.Warn("http shutdown error", zap.Error(err))
	}

	zlog.Info("shutdown complete")
}
