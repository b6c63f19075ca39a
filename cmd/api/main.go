package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bidtide/auction-backend/internal/config"
	"github.com/bidtide/auction-backend/internal/db"
	"github.com/bidtide/auction-backend/internal/mail"
	"github.com/bidtide/auction-backend/internal/realtime"
	"github.com/bidtide/auction-backend/internal/server"
	"github.com/bidtide/auction-backend/internal/sweeper"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err).Fatal("config load failed")
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		log.WithField("error", err).Fatal("db connect failed")
	}
	if err := db.Migrate(conn); err != nil {
		log.WithField("error", err).Fatal("db migrate failed")
	}

	hub := realtime.NewHub()
	mailer := mail.NewLogMailer()

	srv, err := server.New(conn, cfg, hub, mailer)
	if err != nil {
		log.WithField("error", err).Fatal("server init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sw := sweeper.New(srv.AuctionRepo(), srv.Settlement(), mailer, cfg.SweepInterval)
	go sw.Run(ctx)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("starting server")
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		log.WithField("error", err).Fatal("server stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithField("error", err).Error("shutdown failed")
		}
	}
}
