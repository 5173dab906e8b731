package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scald/internal/config"
	"scald/internal/database"
	"scald/internal/logging"
	"scald/internal/model"
	"scald/internal/notify"
	"scald/internal/remote/google"
	"scald/internal/server"
	"scald/internal/store"
	syncer "scald/internal/sync"
	"scald/internal/view"
	ws "scald/internal/websocket"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	calendarStore := store.NewCalendarStore(db)
	eventStore := store.NewEventStore(db)

	hub := ws.NewHub(logger.With("component", "websocket"))

	var notifier *notify.Notifier
	if cfg.NATS.URL != "" {
		notifier, err = notify.New(cfg.NATS.URL, cfg.NATS.Subject, logger.With("component", "notify"))
		if err != nil {
			log.Fatalf("failed to connect notifier: %v", err)
		}
		defer notifier.Close()
	}

	tokens, err := google.NewTokenManager(cfg.Google.CredentialsFile, cfg.Google.TokenFile, logger.With("component", "token"))
	if err != nil {
		log.Fatalf("failed to load google credentials: %v", err)
	}

	source := google.NewSource(logger.With("component", "google"))
	reconciler := syncer.NewReconciler(calendarStore, eventStore, logger.With("component", "reconciler"))

	onSync := func(calendars []model.Calendar) {
		ids := make([]string, 0, len(calendars))
		for _, c := range calendars {
			ids = append(ids, c.ID)
		}
		hub.Broadcast(ws.SyncCompleted(ids))

		if notifier != nil {
			if _, err := notifier.PublishDue(context.Background(), calendars, time.Now()); err != nil {
				logger.Warn("publishing due events failed", "error", err)
			}
		}
	}

	// The renewer delivers refreshed tokens back into the poller; the first
	// poll cycle bootstraps the credential through the same path.
	var poller *syncer.Poller
	renewer := google.NewRenewer(tokens, func(credential string) {
		poller.SupplyCredential(credential)
	}, logger.With("component", "renewer"))

	poller = syncer.NewPoller(syncer.Config{
		Interval:     cfg.Poll.Interval,
		InitialDelay: cfg.Poll.InitialDelay,
		Lookback:     cfg.Poll.Lookback,
	}, source, reconciler, renewer, onSync, logger.With("component", "poller"))

	viewSvc := view.NewService(calendarStore, eventStore, func(e model.Event) {
		hub.Broadcast(ws.EventCleared(e.ID, e.CalendarID))
	}, logger.With("component", "view"))

	srv := server.New(viewSvc, poller, hub, logger)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	poller.Start(context.Background())

	go func() {
		fmt.Printf("scald listening on %s\n", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	poller.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
