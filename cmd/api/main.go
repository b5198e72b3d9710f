package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/osamusic/med-regulatory/internal/app"
	"github.com/osamusic/med-regulatory/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
