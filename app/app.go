package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"twse-attention-radar/cache"
	"twse-attention-radar/config"
	"twse-attention-radar/database"
	"twse-attention-radar/database/market"
	models "twse-attention-radar/database/models_pkg"
	"twse-attention-radar/database/records"
	"twse-attention-radar/database/summary"
	"twse-attention-radar/sources"
)

// App represents the main application
type App struct {
	config    *config.Config
	db        *database.Database
	raw       *database.DB
	redis     *cache.RedisClient
	runner    *Runner
	scheduler *Scheduler
	loc       *time.Location
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		// No tzdata on the host, Taiwan has no DST so a fixed zone is exact
		loc = time.FixedZone("CST", 8*3600)
	}
	return &App{
		config: cfg,
		loc:    loc,
	}
}

// Start wires the application and either runs one scan immediately, or
// starts the daily schedule and blocks until a shutdown signal.
func (a *App) Start(runOnce bool) error {
	// 1. Database Connection
	fmt.Println("🗄️  Connecting to database...")

	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}

	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	// Raw connection for the COPY bulk-append path. Optional: without it
	// appends fall back to batched inserts.
	raw, err := database.NewConnection(database.Config{
		Host:     a.config.DatabaseHost,
		Port:     a.config.DatabasePort,
		User:     a.config.DatabaseUser,
		Password: a.config.DatabasePassword,
		DBName:   a.config.DatabaseName,
	})
	if err != nil {
		log.Printf("⚠️  Bulk-append connection unavailable: %v", err)
	} else {
		a.raw = raw
	}

	// 2. Redis Connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(
		a.config.RedisHost,
		a.config.RedisPort,
		a.config.RedisPassword,
	)
	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Feed caching disabled.")
	} else {
		a.redis = redisClient
	}

	// 3. External clients
	finmind := sources.NewFinMindClient(a.config.FinMindTokens)
	twse := sources.NewTWSEClient()
	tpex := sources.NewTPExClient()
	yahoo := sources.NewYahooClient()

	// 4. Repositories and the scan runner
	var rawConn *sql.DB
	if a.raw != nil {
		rawConn = a.raw.GetConn()
	}
	recordsRepo := records.NewRepository(db.DB(), rawConn)
	summaryRepo := summary.NewRepository(db.DB())
	marketRepo := market.NewRepository(db.DB())
	feeds := cache.NewFeedCache(a.redis)

	scanCfg := a.config.Scan
	monitor := NewMarketMonitor(finmind, marketRepo, scanCfg.MarketCloseHour, scanCfg.MarketCloseMin)
	monitor.now = a.localNow

	a.runner = NewRunner(a.config, finmind, twse, tpex, yahoo, recordsRepo, summaryRepo, feeds, monitor)
	a.runner.now = a.localNow

	if runOnce {
		ctx, cancel := signalContext()
		defer cancel()
		err := a.runner.Run(ctx)
		if err == nil {
			printScanReport(summaryRepo, marketRepo)
		}
		a.closeAll()
		return err
	}

	// 5. Daily schedule
	scheduler, err := NewScheduler(scanCfg.Schedule, a.loc, a.runner)
	if err != nil {
		a.closeAll()
		return fmt.Errorf("invalid scan schedule %q: %w", scanCfg.Schedule, err)
	}
	a.scheduler = scheduler
	a.scheduler.Start()
	log.Printf("✅ Daily scan scheduled (%s, Asia/Taipei).", scanCfg.Schedule)

	return a.gracefulShutdown()
}

func (a *App) localNow() time.Time {
	return time.Now().In(a.loc)
}

// ParseStockParam parses a CODE:MARKET:SHARES triple from the command line.
func ParseStockParam(s string) (models.StockParam, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return models.StockParam{}, fmt.Errorf("want CODE:MARKET:SHARES, got %q", s)
	}
	code := strings.TrimSpace(parts[0])
	marketType := strings.TrimSpace(parts[1])
	if code == "" || marketType == "" {
		return models.StockParam{}, fmt.Errorf("code and market must not be empty in %q", s)
	}
	shares, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return models.StockParam{}, fmt.Errorf("bad share count in %q: %w", s, err)
	}
	return models.StockParam{Code: code, MarketType: marketType, Shares: shares}, nil
}

// SaveParam upserts one curated stock parameter row. A maintenance path so
// the params table can be edited from the command line instead of psql.
func (a *App) SaveParam(p models.StockParam) error {
	dbPort, err := strconv.Atoi(a.config.DatabasePort)
	if err != nil {
		return fmt.Errorf("invalid database port: %w", err)
	}
	db, err := database.Connect(
		a.config.DatabaseHost,
		dbPort,
		a.config.DatabaseName,
		a.config.DatabaseUser,
		a.config.DatabasePassword,
	)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	if err := summary.NewRepository(db.DB()).SaveParam(p); err != nil {
		return err
	}
	log.Printf("✅ Saved parameters for %s (%s, %d shares).", p.Code, p.MarketType, p.Shares)
	return nil
}

// gracefulShutdown blocks until an interrupt, then stops the schedule and
// closes connections with a timeout.
func (a *App) gracefulShutdown() error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if a.scheduler != nil {
			a.scheduler.Stop()
		}
		a.closeAll()
		close(done)
	}()

	select {
	case <-done:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}

func (a *App) closeAll() {
	if a.raw != nil {
		if err := a.raw.Close(); err != nil {
			log.Printf("Error closing bulk-append connection: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		} else {
			fmt.Println("✅ Database connection closed")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis: %v", err)
		} else {
			fmt.Println("✅ Redis connection closed")
		}
	}
}

// signalContext returns a context cancelled by SIGINT/SIGTERM, so a one-shot
// run can stop between stocks.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
