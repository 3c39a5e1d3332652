package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"posync/internal/config"
	"posync/internal/conn"
	"posync/internal/domain"
	"posync/internal/httpapi"
	"posync/internal/router"
	"posync/internal/state"
	"posync/internal/store"
	"posync/internal/util"
)

func main() {
	cfgPath := "config/posync.yaml"
	if p := os.Getenv("POSYNC_CONFIG"); p != "" {
		cfgPath = p
	} else if _, err := os.Stat(cfgPath); err != nil {
		cfgPath = ""
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("posync exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	r := router.New(logger)
	st := state.New(logger)
	unbind := st.Bind(r)
	defer unbind()

	var snapshots *store.SQLiteStore
	if cfg.Storage.SQLitePath != "" {
		var err error
		snapshots, err = store.NewSQLiteStore(cfg.Storage.SQLitePath, 0)
		if err != nil {
			return err
		}
		defer snapshots.Close()

		snap, err := snapshots.LoadSnapshot(ctx)
		switch {
		case errors.Is(err, store.ErrNoSnapshot):
			logger.Info("no snapshot to restore")
		case err != nil:
			return err
		default:
			st.Restore(snap)
			logger.Info("restored snapshot", "taken_at", snap.UpdatedAt)
		}
	}

	ledger := store.NewParquetLedger(cfg.Storage.DataDir)
	recorder := store.NewRecorder(ledger, cfg.Storage.SnapshotInterval, 256, logger)
	r.Subscribe(domain.MsgOrderCompleted, func(payload json.RawMessage) error {
		var o domain.CompletedOrder
		if err := json.Unmarshal(payload, &o); err != nil {
			return err
		}
		recorder.Record(store.EntryFromOrder(o, time.Now()))
		return nil
	})

	header := http.Header{}
	if cfg.Sync.AuthToken != "" {
		header.Set("Authorization", "Bearer "+cfg.Sync.AuthToken)
	}
	mgr := conn.New(r, conn.Options{
		BaseDelay:   cfg.Sync.BaseDelay,
		MaxAttempts: cfg.Sync.MaxAttempts,
		DialTimeout: cfg.Sync.DialTimeout,
		SendBuffer:  cfg.Sync.SendBuffer,
		Dialer:      conn.WebSocketDialer{ReadLimit: cfg.Sync.ReadLimit, Header: header},
		Logger:      logger,
	})
	r.Subscribe(domain.TopicError, func(payload json.RawMessage) error {
		var ev conn.LifecycleEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return err
		}
		if ev.Exhausted {
			logger.Error("sync connection gave up; POST /api/reconnect to retry", "attempts", ev.ReconnectAttempts, "error", ev.Error)
		}
		return nil
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           httpapi.NewServer(mgr, st, ledger, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return recorder.Run(gctx)
	})

	if snapshots != nil {
		g.Go(func() error {
			return snapshotLoop(gctx, snapshots, st, cfg.Storage.SnapshotInterval, logger)
		})
	}

	mgr.Connect(cfg.Sync.URL)
	logger.Info("sync started", "url", cfg.Sync.URL)

	<-gctx.Done()
	mgr.Disconnect()
	return g.Wait()
}

// snapshotLoop persists the state store every interval and once more on
// shutdown.
func snapshotLoop(ctx context.Context, s store.SnapshotStore, st *state.Store, interval time.Duration, logger *slog.Logger) error {
	log := logger.With("component", "snapshots")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.SaveSnapshot(ctx, st.Snapshot()); err != nil {
				log.Warn("saving snapshot", "error", err)
			}
		case <-ctx.Done():
			if err := s.SaveSnapshot(context.Background(), st.Snapshot()); err != nil {
				return err
			}
			log.Info("final snapshot saved")
			return nil
		}
	}
}
