package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/planner/internal/backup"
	"github.com/dukerupert/planner/internal/changefeed"
	"github.com/dukerupert/planner/internal/config"
	"github.com/dukerupert/planner/internal/database"
	"github.com/dukerupert/planner/internal/feedback"
	"github.com/dukerupert/planner/internal/integrity"
	"github.com/dukerupert/planner/internal/kv"
	"github.com/dukerupert/planner/internal/logging"
	"github.com/dukerupert/planner/internal/metrics"
	"github.com/dukerupert/planner/internal/model"
	"github.com/dukerupert/planner/internal/seed"
	"github.com/dukerupert/planner/internal/stats"
	"github.com/dukerupert/planner/internal/status"
	"github.com/dukerupert/planner/internal/store"
)

func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("planner stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	kvs, closeKV, err := openKV(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()

	hub := changefeed.NewHub(logger)
	stores := store.New(kvs, store.Options{Logger: logger, Hub: hub})
	mgr := integrity.NewManager(stores, integrity.WithLogger(logger))
	gate := feedback.NewGate(stores, feedback.WithLogger(logger))

	if err := prepare(ctx, cfg, stores, mgr, gate, logger); err != nil {
		return err
	}

	reconciler := status.NewReconciler(stores.Events,
		status.WithInterval(cfg.SweepInterval),
		status.WithLogger(logger))
	reconciler.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)

	changes := hub.Subscribe(64)
	g.Go(func() error {
		defer changes.Close()
		for {
			select {
			case <-gctx.Done():
				return nil
			case msg := <-changes.C:
				logger.Debug("change", "type", msg.Type, "id", msg.ID)
			}
		}
	})

	if cfg.SnapshotInterval > 0 {
		autosaver := backup.NewAutosaver(stores, hub,
			backup.WithAutosaveInterval(cfg.SnapshotInterval),
			backup.WithAutosaveLogger(logger))
		g.Go(func() error { return autosaver.Run(gctx) })
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:         cfg.MetricsAddr,
			Handler:      metricsMux(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("planner running", "backend", cfg.Backend, "sweep_interval", cfg.SweepInterval)
	err = g.Wait()

	logger.Info("shutting down")
	reconciler.Stop()
	if berr := writeBackups(context.Background(), cfg, stores, logger); berr != nil {
		err = errors.Join(err, berr)
	}
	return err
}

func openKV(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemory(), func() {}, nil
	case config.BackendRedis:
		client, err := kv.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewRedis(client, cfg.RedisPrefix), func() { client.Close() }, nil
	default:
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return kv.NewSQLite(db), func() { db.Close() }, nil
	}
}

// prepare restores the last encrypted snapshot into an empty store, then
// seeds demo data and repairs dangling references when configured to.
func prepare(ctx context.Context, cfg *config.Config, stores *store.Stores, mgr *integrity.Manager, gate *feedback.Gate, logger *slog.Logger) error {
	if cfg.BackupPath != "" && seed.Empty(ctx, stores) {
		snap, err := backup.ReadEncrypted(cfg.BackupPath, cfg.BackupPassphrase)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return fmt.Errorf("read backup: %w", err)
		default:
			if err := backup.Restore(ctx, stores, snap); err != nil {
				return err
			}
			logger.Info("restored snapshot", "path", cfg.BackupPath, "generated_at", snap.GeneratedAt)
		}
	}

	if cfg.Seed && seed.Empty(ctx, stores) {
		if _, err := seed.Generate(ctx, stores, mgr, gate, seed.Options{Seed: cfg.SeedSalt, Logger: logger}); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		snap, err := backup.Take(ctx, stores, time.Now())
		if err != nil {
			return err
		}
		if err := backup.Save(ctx, stores.KV, snap); err != nil {
			return err
		}
	}

	if cfg.RepairOnStart {
		report, err := mgr.Repair(ctx)
		if err != nil {
			return fmt.Errorf("repair: %w", err)
		}
		logger.Info("repair finished", "changed", report.Changed(),
			"dangling_feedbacks", report.DanglingFeedbacks, "dangling_invitations", report.DanglingInvitations)
	}

	counts := stats.NewEngine(stores).EventsByStatus(ctx)
	logger.Info("events loaded",
		"upcoming", counts[model.EventUpcoming], "in_progress", counts[model.EventInProgress],
		"completed", counts[model.EventCompleted], "cancelled", counts[model.EventCancelled])
	return nil
}

func writeBackups(ctx context.Context, cfg *config.Config, stores *store.Stores, logger *slog.Logger) error {
	if cfg.BackupPath == "" && !cfg.BackupS3.Enabled() {
		return nil
	}
	snap, err := backup.Take(ctx, stores, time.Now())
	if err != nil {
		return err
	}

	if cfg.BackupPath != "" {
		if err := backup.WriteEncrypted(cfg.BackupPath, snap, cfg.BackupPassphrase); err != nil {
			return err
		}
		logger.Info("wrote snapshot", "path", cfg.BackupPath)
	}

	if cfg.BackupS3.Enabled() {
		remote, err := backup.NewRemote(cfg.BackupS3)
		if err != nil {
			return err
		}
		uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		key, err := remote.Upload(uploadCtx, snap, cfg.BackupPassphrase)
		if err != nil {
			return err
		}
		logger.Info("uploaded snapshot", "bucket", cfg.BackupS3.Bucket, "key", key)
	}
	return nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}
