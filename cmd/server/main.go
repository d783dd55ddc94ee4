package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/IT-Nick/proctor/internal/app"
	"github.com/IT-Nick/proctor/internal/infra/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetPrefix("[proctor] ")
	log.Println("app starting")

	application, err := app.NewApp(config.Path())
	if err != nil {
		log.Fatalf("failed to create app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("server stopped: %v", err)
		}
	case <-ctx.Done():
		log.Println("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
