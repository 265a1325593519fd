package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathanlei/messagely/internal/config"
	"github.com/jonathanlei/messagely/internal/core"
	"github.com/jonathanlei/messagely/internal/db"
	"github.com/jonathanlei/messagely/internal/gateway"
	httpapi "github.com/jonathanlei/messagely/internal/http"
	"github.com/jonathanlei/messagely/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()

	rootCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Error("migrate", "err", err)
		os.Exit(1)
	}

	pool, err := db.Connect(rootCtx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	users := store.NewPostgresUsers(pool)
	messages := store.NewPostgresMessages(pool)

	var gw gateway.Client = gateway.NewDummy()
	if cfg.TwilioAccountSID != "" {
		gw = gateway.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	} else {
		log.Warn("no TWILIO_ACCOUNT_SID set, using dummy gateway")
	}

	pipeline := core.NewPipeline(users, messages, gw, core.PipelineOptions{
		SendTimeout:   cfg.GatewaySendTimeout,
		InsertRetries: cfg.InsertRetries,
		InsertBackoff: cfg.InsertBackoff,
	}, log)

	srv := httpapi.NewServer(core.NewUsers(users), messages, pipeline, []byte(cfg.SecretKey), cfg.TokenValidity, log)
	srv.Ready = pool.Ping

	server := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("HTTP listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	<-rootCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
