package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/habitloop/habitloop/internal/api"
	"github.com/habitloop/habitloop/internal/app/lifecycle"
	"github.com/habitloop/habitloop/internal/app/progression"
	"github.com/habitloop/habitloop/internal/app/rating"
	"github.com/habitloop/habitloop/internal/app/streak"
	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/health"
	_ "github.com/habitloop/habitloop/internal/infra/metrics" // Register Prometheus metrics
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// rolloverTick is how often the scheduler checks for day and month
// boundaries. Cheap enough to run often; boundary work is idempotent.
const rolloverTick = time.Minute

// Daemon is the core HabitLoop runtime. It wires together all services.
type Daemon struct {
	Config  Config
	DB      *sqlite.DB
	Engine  *progression.Engine
	Server  *api.Server
	Health  *health.Checker
	Version string
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New(version string) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg, version)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, version string) (*Daemon, error) {
	dataDir := cfg.Data.Dir
	if dataDir == "" {
		dataDir = habitloopHome()
	}
	db, err := sqlite.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	engCfg := progression.DefaultConfig()
	engCfg.WindowDays = cfg.Progression.WindowDays
	engCfg.CacheTTL = cfg.CacheTTL()
	engCfg.Rating = ratingConfig(cfg.Progression)
	engCfg.Streak = streakConfig(cfg.Streak)
	engCfg.Retry = retryConfig(cfg.Progression)

	eng := progression.New(db, engCfg)

	srv := api.NewServer(eng, version)
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	checker := health.NewChecker(db, dataDir)
	srv.SetHealth(checker)

	return &Daemon{
		Config:  cfg,
		DB:      db,
		Engine:  eng,
		Server:  srv,
		Health:  checker,
		Version: version,
	}, nil
}

// ratingConfig overlays the config file's progression knobs onto the
// default tables.
func ratingConfig(p ProgressionConfig) rating.Config {
	cfg := rating.DefaultConfig()
	if p.SuccessPct > 0 {
		cfg.SuccessPct = p.SuccessPct
	}
	if p.PartialPct > 0 {
		cfg.PartialPct = p.PartialPct
	}
	if p.FailuresForDemotion > 0 {
		cfg.FailuresForDemotion = p.FailuresForDemotion
	}
	if p.HistoryMonths > 0 {
		cfg.HistoryMonths = p.HistoryMonths
	}
	return cfg
}

func streakConfig(s StreakConfig) streak.Config {
	cfg := streak.DefaultConfig()
	if s.CompletionThreshold > 0 {
		cfg.CompletionThreshold = s.CompletionThreshold
	}
	if s.TierThresholds[0] > 0 {
		cfg.TierThresholds = s.TierThresholds
	}
	return cfg
}

func retryConfig(p ProgressionConfig) lifecycle.RetryConfig {
	cfg := lifecycle.DefaultRetryConfig()
	if p.MaxRetries > 0 {
		cfg.MaxRetries = p.MaxRetries
	}
	return cfg
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Month/day rollover scheduler
	go d.runScheduler(ctx)

	// Health checker
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("HabitLoop serving on http://%s\n", addr)
	if d.Config.API.Metrics {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// runScheduler closes finished months, starts new ones, and keeps the
// streak fresh across day boundaries. All boundary work is idempotent, so
// a missed tick or a restart mid-month self-corrects on the next pass.
func (d *Daemon) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(rolloverTick)
	defer ticker.Stop()

	lastMonth := time.Now().Format(domain.MonthFormat)
	lastDay := time.Now().Format(domain.DayFormat)

	// Make sure the current month is running on startup.
	if _, err := d.Engine.StartMonth(ctx, lastMonth); err != nil {
		log.Printf("[daemon] start month %s: %v", lastMonth, err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := time.Now()
		day := now.Format(domain.DayFormat)
		month := now.Format(domain.MonthFormat)

		if day != lastDay {
			lastDay = day
			if _, err := d.Engine.Streaks.Refresh(ctx); err != nil {
				log.Printf("[daemon] streak refresh: %v", err)
			}
			// Last day of the month: pre-generate next month's challenge
			// so the boundary promotes it instead of generating cold.
			if now.AddDate(0, 0, 1).Format(domain.MonthFormat) != month {
				if _, err := d.Engine.PreviewNext(ctx, month); err != nil {
					log.Printf("[daemon] preview next month: %v", err)
				}
			}
		}

		if month != lastMonth {
			if _, err := d.Engine.CloseMonth(ctx, lastMonth); err != nil &&
				!errors.Is(err, domain.ErrChallengeNotFound) && !errors.Is(err, domain.ErrMonthClosed) {
				log.Printf("[daemon] close month %s: %v", lastMonth, err)
			}
			if _, err := d.Engine.StartMonth(ctx, month); err != nil {
				log.Printf("[daemon] start month %s: %v", month, err)
			}
			lastMonth = month
		}
	}
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
