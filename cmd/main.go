package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"questledger/internal/config"
	"questledger/internal/handlers"
	"questledger/internal/services"
)

func main() {
	// 1. Load configuration and initialize logging
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	defer logger.Init("questledger", cfg.LogVerbose, false, io.Discard).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize the Quest Service
	questService := services.NewQuestService(cfg.InitialTreasury)

	// 3. Initialize the HTTP Handler
	httpHandler := handlers.NewHTTPHandler(questService)

	// 4. Set up the Gin router
	r := gin.Default()

	// 5. Register public routes (before middleware)
	httpHandler.RegisterPublicRoutes(r)

	// 6. Group routes that require tenant identification and apply middleware
	tenantRoutes := r.Group("/")
	tenantRoutes.Use(httpHandler.TenantMiddleware())
	httpHandler.RegisterTenantRoutes(tenantRoutes)

	// 7. Start the background sweeper that settles ended quests
	if cfg.AutoSettle {
		go services.NewSweeper(questService, cfg.SettleInterval).Run(ctx)
		logger.Infof("Settlement sweeper running every %s", cfg.SettleInterval)
	}

	// 8. Run the server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Shutdown: %v", err)
		}
	}()

	logger.Infof("Server starting on %s", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("Failed to run server: %v", err)
		return
	}
	logger.Info("Server stopped.")
}
