package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/moodmap/internal/auth"
	"github.com/hitoshi/moodmap/internal/config"
	"github.com/hitoshi/moodmap/internal/database"
	"github.com/hitoshi/moodmap/internal/geocode"
	"github.com/hitoshi/moodmap/internal/handler"
	"github.com/hitoshi/moodmap/internal/logger"
	"github.com/hitoshi/moodmap/internal/metrics"
	"github.com/hitoshi/moodmap/internal/middleware"
	"github.com/hitoshi/moodmap/internal/mood"
	"github.com/hitoshi/moodmap/internal/repository"
	"github.com/hitoshi/moodmap/internal/security"
	"github.com/hitoshi/moodmap/internal/user"
	"github.com/hitoshi/moodmap/internal/worker/cleanup"
)

// dbPingTimeout は起動時のDB疎通確認のタイムアウト。
const dbPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映して再設定
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		var rest []string
		if len(args) > 1 {
			rest = args[1:]
		}
		return runMigrate(cfg, rest)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// newMetricsRegistry はアプリケーションメトリクスとGo/プロセスメトリクスを登録したレジストリを返す。
func newMetricsRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// newGeocodeClient はSSRF対策済みHTTPクライアントを使う逆ジオコーディングクライアントを生成する。
func newGeocodeClient(cfg *config.Config, mc metrics.MetricsCollector) (*geocode.Client, error) {
	guard := security.NewOutboundGuard()
	if err := guard.ValidateEndpoint(cfg.GeocodeURL); err != nil {
		return nil, fmt.Errorf("invalid GEOCODE_URL: %w", err)
	}

	clientCfg := geocode.DefaultClientConfig()
	clientCfg.Endpoint = cfg.GeocodeURL
	clientCfg.APIInterval = cfg.GeocodeAPIInterval

	return geocode.NewClient(guard.NewSafeClient(cfg.GeocodeTimeout), slog.Default(), clientCfg, mc), nil
}

// rateLimiterConfig はreq/min単位の設定値をreq/secのレート制限設定に変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rl.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitMoodPost > 0 {
		rl.MoodPostRate = rate.Limit(float64(cfg.RateLimitMoodPost) / 60.0)
		rl.MoodPostBurst = cfg.RateLimitMoodPost
	}
	return rl
}

// newServerHandler は全依存関係をワイヤリングしてAPIのhttp.Handlerを構築する。
func newServerHandler(cfg *config.Config, db *sql.DB) (http.Handler, error) {
	// 1. メトリクス
	reg, collector := newMetricsRegistry()

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	moodRepo := repository.NewPostgresMoodRepo(db)

	// 3. 外部サービス
	geocoder, err := newGeocodeClient(cfg, collector)
	if err != nil {
		return nil, err
	}

	// 4. ドメインサービスの初期化
	authService := auth.NewService(userRepo, sessionRepo, auth.ServiceConfig{
		SessionMaxAge:           cfg.SessionMaxAge,
		GeneratedPasswordLength: cfg.GeneratedPasswordLength,
	})
	moodService := mood.NewService(moodRepo, security.NewTextSanitizer(), nil, collector)
	userService := user.NewService(userRepo, sessionRepo, moodRepo)

	// 5. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterConfig(cfg)),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:  slog.Default(),
		Metrics: collector,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		AuthService: handler.NewAuthServiceAdapter(authService),
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		MoodService: moodService,
		Geocoder:    geocoder,
		UserService: userService,
	}

	return handler.NewRouter(deps), nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	router, err := newServerHandler(cfg, db)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// workerJobs はワーカーモードで実行するジョブ群。
type workerJobs struct {
	geocodeBatch *geocode.BatchJob
	cleanup      *cleanup.CleanupJob
	registry     *prometheus.Registry
}

// newWorkerJobs はワーカーのジョブを組み立てる。
func newWorkerJobs(cfg *config.Config, db *sql.DB) (*workerJobs, error) {
	reg, collector := newMetricsRegistry()

	sessionRepo := repository.NewPostgresSessionRepo(db)
	moodRepo := repository.NewPostgresMoodRepo(db)

	geocoder, err := newGeocodeClient(cfg, collector)
	if err != nil {
		return nil, err
	}

	batch := geocode.NewBatchJob(moodRepo, geocoder, slog.Default(), geocode.BatchConfig{
		BatchInterval: cfg.GeocodeBatchInterval,
		MaxPerCycle:   cfg.GeocodeMaxPerCycle,
	})

	cleanupJob := cleanup.NewCleanupJob(sessionRepo, moodRepo, slog.Default(), collector)
	cleanupJob.RetentionDays = cfg.MoodRetentionDays

	return &workerJobs{
		geocodeBatch: batch,
		cleanup:      cleanupJob,
		registry:     reg,
	}, nil
}

// runWorker はワーカーモードで起動する。
// 逆ジオコーディングバッチとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	jobs, err := newWorkerJobs(cfg, db)
	if err != nil {
		return err
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// ワーカーのメトリクスは別ポートで公開する
	if cfg.WorkerMetricsPort != "" {
		metricsServer := &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           metrics.SetupMetricsRoute(jobs.registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("worker metrics server error", slog.String("error", err.Error()))
			}
		}()
		defer metricsServer.Close()
	}

	slog.Info("worker starting",
		slog.Duration("geocode_interval", cfg.GeocodeBatchInterval),
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("mood_retention_days", cfg.MoodRetentionDays),
	)

	// 逆ジオコーディングバッチジョブをバックグラウンドで起動
	go jobs.geocodeBatch.Start(ctx)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	jobs.cleanup.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 引数なしの場合はすべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config, args []string) error {
	action, steps, err := ParseMigrateArgs(args)
	if err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("action", string(action)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action {
	case MigrateDown:
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		slog.Info("database migrations rolled back", slog.Int("steps", steps))
	case MigrateVersion:
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("database migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
	}

	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
