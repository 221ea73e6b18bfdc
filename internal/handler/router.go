package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/moodmap/internal/metrics"
	"github.com/hitoshi/moodmap/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 気分投稿
	MoodService MoodServiceInterface

	// 逆ジオコーディング
	Geocoder ReverseGeocoder

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → SecurityHeaders → CORS → CSRF(/api, csrf-token除く)
//	  公開ルート:   PublicRateLimit(IP単位) [→ OptionalSession]
//	  認証ルート:   Session → RateLimit(General) [→ RateLimit(MoodPost)]
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	moodHandler := NewMoodHandler(deps.MoodService)
	geocodeHandler := NewGeocodeHandler(deps.Geocoder)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 運用エンドポイント ---
	r.Get("/health", Health(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// トークン発行自体はCSRF検証の対象外
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			// --- 認証不要のルート（IP単位のレート制限） ---
			r.Group(func(r chi.Router) {
				r.Use(deps.RateLimiter.PublicMiddleware())

				r.Route("/auth", func(r chi.Router) {
					r.Post("/register", authHandler.Register)
					r.Post("/login", authHandler.Login)
					r.Post("/logout", authHandler.Logout)
					r.Get("/me", authHandler.Me)
				})

				r.With(middleware.NewOptionalSessionMiddleware(deps.SessionFinder)).Get("/moods", moodHandler.ListMoods)
				r.Get("/area-mood", moodHandler.AreaMood)
				r.Get("/events", moodHandler.Events)
				r.Get("/trends", moodHandler.Trends)
			})

			// --- 認証が必要なルート ---
			// ミドルウェアスタック: Session → RateLimit(General)
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
				r.Use(deps.RateLimiter.GeneralMiddleware())

				// POST /api/moods - 気分投稿（投稿専用レート制限を追加）
				r.With(deps.RateLimiter.MoodPostMiddleware()).Post("/moods", moodHandler.CreateMood)
				r.Delete("/moods/{id}", moodHandler.DeleteMood)
				r.Get("/user-moods", moodHandler.ListUserMoods)

				r.Get("/reverse-geocode", geocodeHandler.ReverseGeocode)

				r.Delete("/users/me", userHandler.Withdraw)
			})
		})
	})

	return r
}
