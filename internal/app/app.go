package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syncwatch/server/internal/controller"
	connInmemory "github.com/syncwatch/server/internal/repository/connection/inmemory"
	roomInmemory "github.com/syncwatch/server/internal/repository/room/inmemory"
	"github.com/syncwatch/server/internal/service/room"
	"github.com/syncwatch/server/pkg/ctxlogger"
	"github.com/syncwatch/server/pkg/playback"
)

type AppConfig struct {
	Host           string  `json:"host"`
	Port           int     `json:"port"`
	LogLevel       string  `json:"log_level"`
	MembersLimit   int     `json:"members_limit"`
	SyncIntervalMs int     `json:"sync_interval_ms"`
	DriftInSync    float64 `json:"drift_in_sync"`
	DriftHardSeek  float64 `json:"drift_hard_seek"`
	DriftRateNudge float64 `json:"drift_rate_nudge"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.MembersLimit < 1 {
		return fmt.Errorf("members limit must be greater than 0")
	}
	if cfg.SyncIntervalMs < 1 {
		return fmt.Errorf("sync interval must be greater than 0")
	}
	if cfg.DriftInSync <= 0 || cfg.DriftHardSeek <= cfg.DriftInSync {
		return fmt.Errorf("drift thresholds must satisfy 0 < in-sync < hard-seek")
	}
	if cfg.DriftRateNudge <= 0 || cfg.DriftRateNudge >= 1 {
		return fmt.Errorf("drift rate nudge must be in (0, 1)")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}
	logger := slog.New(&h)

	roomRepo := roomInmemory.NewRepo(cfg.MembersLimit)
	connRepo := connInmemory.NewRepo()
	roomService := room.NewService(roomRepo, connRepo, &room.Config{
		SyncInterval: time.Duration(cfg.SyncIntervalMs) * time.Millisecond,
		Thresholds: playback.Thresholds{
			InSyncWithin: cfg.DriftInSync,
			HardSeekAt:   cfg.DriftHardSeek,
			RateNudge:    cfg.DriftRateNudge,
		},
	}, logger)
	defer roomService.Close()

	controller := controller.NewController(roomService, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: controller.GetMux(),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.InfoContext(shutdownCtx, "shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
