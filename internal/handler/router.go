package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/planneredu/internal/metrics"
	"github.com/hitoshi/planneredu/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	Auth              middleware.AuthConfig
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	Logger            *slog.Logger

	// MetricsHandler が設定されている場合は GET /metrics で公開する。
	MetricsHandler http.Handler
	// HealthCheck は GET /health で呼ばれる。nilの場合は常に正常とみなす。
	HealthCheck func(ctx context.Context) error

	Locales           LocaleResolver
	Events            EventSubscriber
	HeartbeatInterval time.Duration

	ComponentService  ComponentServiceInterface
	LessonService     LessonServiceInterface
	ResourceService   ResourceServiceInterface
	EvaluationService EvaluationServiceInterface
	CalendarService   CalendarServiceInterface
	AccountService    AccountServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → CORS → SecurityHeaders
//	  /api/*: Auth → RateLimit(General)
//	  カレンダー生成: RateLimit(Calendar)
//
// /health と /metrics は認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	componentHandler := NewComponentHandler(deps.ComponentService)
	lessonHandler := NewLessonHandler(deps.LessonService)
	resourceHandler := NewResourceHandler(deps.ResourceService)
	evaluationHandler := NewEvaluationHandler(deps.EvaluationService)
	calendarHandler := NewCalendarHandler(deps.CalendarService, deps.Locales)
	accountHandler := NewAccountHandler(deps.AccountService)
	eventsHandler := NewEventsHandler(deps.Events, deps.HeartbeatInterval)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler(deps.HealthCheck))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.Auth))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		calendarLimit := deps.RateLimiter.CalendarMiddleware()

		r.Get("/events", eventsHandler.Stream)

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", componentHandler.ListFolders)
			r.Post("/", componentHandler.CreateFolder)
			r.Put("/{id}", componentHandler.RenameFolder)
			r.Delete("/{id}", componentHandler.DeleteFolder)
		})

		r.Route("/components", func(r chi.Router) {
			r.Get("/", componentHandler.ListComponents)
			r.Post("/", componentHandler.CreateComponent)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", componentHandler.GetComponent)
				r.Put("/", componentHandler.UpdateComponent)
				r.Delete("/", componentHandler.DeleteComponent)
				r.Get("/progress", componentHandler.GetProgress)
				r.With(calendarLimit).Post("/calendar", calendarHandler.GenerateForComponent)
				r.Get("/calendar.ics", calendarHandler.ExportICS)
				r.Get("/evaluations/summary", evaluationHandler.Summary)
			})
		})

		r.Route("/lessons", func(r chi.Router) {
			r.Get("/", lessonHandler.ListLessons)
			r.Post("/", lessonHandler.CreateLesson)
			r.Get("/{id}", lessonHandler.GetLesson)
			r.Put("/{id}", lessonHandler.UpdateLesson)
			r.Delete("/{id}", lessonHandler.DeleteLesson)
		})

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", resourceHandler.ListResources)
			r.Post("/", resourceHandler.CreateResource)
			r.Post("/preview", resourceHandler.PreviewResource)
			r.Get("/{id}", resourceHandler.GetResource)
			r.Put("/{id}", resourceHandler.UpdateResource)
			r.Delete("/{id}", resourceHandler.DeleteResource)
		})

		r.Route("/evaluations", func(r chi.Router) {
			r.Get("/", evaluationHandler.ListEvaluations)
			r.Post("/", evaluationHandler.CreateEvaluation)
			r.Get("/{id}", evaluationHandler.GetEvaluation)
			r.Put("/{id}", evaluationHandler.UpdateEvaluation)
			r.Delete("/{id}", evaluationHandler.DeleteEvaluation)
		})

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", calendarHandler.ListHolidays)
			r.Post("/", calendarHandler.CreateHoliday)
			r.Delete("/{id}", calendarHandler.DeleteHoliday)
		})

		r.With(calendarLimit).Post("/calendar/generate", calendarHandler.Generate)

		r.Get("/account/export", accountHandler.Export)
		r.Delete("/account", accountHandler.Withdraw)

		r.Get("/format/duration", FormatDuration)
	})

	return r
}

// healthHandler はヘルスチェックのハンドラーを返す。
// GET /health
func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
