package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/planneredu/internal/config"
	"github.com/hitoshi/planneredu/internal/database"
	"github.com/hitoshi/planneredu/internal/handler"
	"github.com/hitoshi/planneredu/internal/locale"
	"github.com/hitoshi/planneredu/internal/logger"
	"github.com/hitoshi/planneredu/internal/metrics"
	"github.com/hitoshi/planneredu/internal/middleware"
	"github.com/hitoshi/planneredu/internal/snapshot"
	"github.com/hitoshi/planneredu/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ったJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandCleanup:
		return runCleanup(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. 変更イベントのブローカー
	broker, err := newBroker(ctx, cfg)
	if err != nil {
		return err
	}

	// 3. メトリクス
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 4. ロケール
	locales, err := locale.NewRegistry(cfg.DefaultLocale)
	if err != nil {
		return fmt.Errorf("failed to load locales: %w", err)
	}

	// 5. ドメインサービス
	svc := newServices(db, cfg, broker, collector)

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitCalendar),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Auth: middleware.AuthConfig{
			Secret: []byte(cfg.JWTSecret),
			Issuer: cfg.JWTIssuer,
		},
		RateLimiter:    rateLimiter,
		Metrics:        collector,
		Logger:         slog.Default(),
		MetricsHandler: metrics.Handler(reg),
		HealthCheck: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			return broker.Ping(ctx)
		},

		Locales: locales,
		Events:  broker,

		ComponentService:  svc.component,
		LessonService:     svc.lesson,
		ResourceService:   svc.resource,
		EvaluationService: svc.evaluation,
		CalendarService:   svc.calendar,
		AccountService:    handler.NewAccountServiceAdapter(svc.account),
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 保持期間を過ぎた休日の削除ジョブをCLEANUP_INTERVAL間隔で実行する。
// ctxがキャンセルされるとシャットダウンする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	job, closeFn, err := openCleanupJob(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("holiday_retention_days", job.RetentionDays),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runCleanup は休日クリーンアップを1回だけ実行する。
func runCleanup(ctx context.Context, cfg *config.Config) error {
	job, closeFn, err := openCleanupJob(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	return job.Run(ctx)
}

// openCleanupJob はworker/cleanupコマンド共通のDB接続・発行先・ジョブを組み立てる。
// 返された関数で接続を閉じる。
func openCleanupJob(ctx context.Context, cfg *config.Config) (*cleanup.CleanupJob, func(), error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("database connection established (worker)")

	// ワーカーは変更イベントを購読しないため、発行先はRedis（設定時）のみ
	var publisher snapshot.Publisher = snapshot.NopPublisher{}
	closeFn := func() { db.Close() }
	if cfg.RedisURL != "" {
		client, err := snapshot.NewRedisClient(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		publisher = snapshot.NewRedisBroker(client, nil, slog.Default())
		closeFn = func() {
			client.Close()
			db.Close()
		}
	}

	svc := newServices(db, cfg, publisher, metrics.NopCollector{})
	return cleanup.NewCleanupJob(svc.calendar, slog.Default(), cfg.HolidayRetentionDays), closeFn, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
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
