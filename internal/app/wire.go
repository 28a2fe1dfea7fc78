package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/planneredu/internal/account"
	"github.com/hitoshi/planneredu/internal/calendar"
	"github.com/hitoshi/planneredu/internal/component"
	"github.com/hitoshi/planneredu/internal/config"
	"github.com/hitoshi/planneredu/internal/database"
	"github.com/hitoshi/planneredu/internal/evaluation"
	"github.com/hitoshi/planneredu/internal/lesson"
	"github.com/hitoshi/planneredu/internal/metrics"
	"github.com/hitoshi/planneredu/internal/repository"
	"github.com/hitoshi/planneredu/internal/resource"
	"github.com/hitoshi/planneredu/internal/security"
	"github.com/hitoshi/planneredu/internal/snapshot"
)

// services はHTTPサーバーとワーカーで共有するドメインサービスの集合。
type services struct {
	component  *component.Service
	lesson     *lesson.Service
	resource   *resource.Service
	evaluation *evaluation.Service
	calendar   *calendar.Service
	account    *account.Service
}

// newServices はリポジトリとドメインサービスを構築する。
func newServices(db *sql.DB, cfg *config.Config, publisher snapshot.Publisher, collector metrics.MetricsCollector) *services {
	// リポジトリ
	folderRepo := repository.NewPostgresFolderRepo(db)
	componentRepo := repository.NewPostgresComponentRepo(db)
	lessonRepo := repository.NewPostgresLessonRepo(db)
	resourceRepo := repository.NewPostgresResourceRepo(db)
	evaluationRepo := repository.NewPostgresEvaluationRepo(db)
	holidayRepo := repository.NewPostgresHolidayRepo(db)

	// セキュリティ
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewHTMLSanitizer()

	previewer := resource.NewPreviewer(ssrfGuard, sanitizer, collector, cfg.PreviewTimeout, cfg.PreviewMaxSize)
	componentService := component.NewService(folderRepo, componentRepo, lessonRepo, sanitizer, publisher)

	return &services{
		component:  componentService,
		lesson:     lesson.NewService(lessonRepo, componentRepo, resourceRepo, sanitizer, publisher),
		resource:   resource.NewService(resourceRepo, ssrfGuard, sanitizer, previewer, publisher),
		evaluation: evaluation.NewService(evaluationRepo, componentRepo, publisher),
		// カレンダーの適用はコンポーネントサービス経由で保存する
		calendar: calendar.NewService(holidayRepo, componentRepo, lessonRepo, componentService, collector, publisher),
		account: account.NewService(account.Repositories{
			Folders:     folderRepo,
			Components:  componentRepo,
			Lessons:     lessonRepo,
			Resources:   resourceRepo,
			Evaluations: evaluationRepo,
			Holidays:    holidayRepo,
		}),
	}
}

// openDatabase はプール設定を適用したDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// eventBroker はHTTPサーバーが使う変更イベントのブローカー。
type eventBroker interface {
	snapshot.Broker
	Ping(ctx context.Context) error
}

// memoryBroker はRedisを使わない単一インスタンス構成のブローカー。
type memoryBroker struct {
	*snapshot.MemoryBroker
}

func (memoryBroker) Ping(context.Context) error { return nil }

// newBroker はREDIS_URLが設定されていればRedis経由、なければプロセス内のブローカーを返す。
// Redisの中継goroutineはctxの終了とともに停止する。
func newBroker(ctx context.Context, cfg *config.Config) (eventBroker, error) {
	local := snapshot.NewMemoryBroker(snapshot.DefaultBufferSize)
	if cfg.RedisURL == "" {
		slog.Info("using in-process snapshot broker")
		return memoryBroker{local}, nil
	}

	client, err := snapshot.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	broker := snapshot.NewRedisBroker(client, local, slog.Default())
	go func() {
		defer client.Close()
		if err := broker.Run(ctx); err != nil {
			slog.Error("snapshot relay stopped", slog.String("error", err.Error()))
		}
	}()
	return broker, nil
}
