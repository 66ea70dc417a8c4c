package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/profilescope/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter // nilの場合/analyzeのレート制限なし

	Analyzer       ProfileAnalyzer
	Detector       LinkDetector
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nilの場合/metricsを公開しない
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → RequestID → Logging → Recovery → SecurityHeaders → CORS
//
// レート制限は外部APIを呼び出すPOST /analyzeにのみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	pageHandler := NewPageHandler()
	analyzeHandler := NewAnalyzeHandler(deps.Analyzer, deps.Logger)
	linkHandler := NewLinkHandler(deps.Detector)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	r.Get("/", pageHandler.Index)

	if deps.RateLimiter != nil {
		r.With(deps.RateLimiter.Middleware()).Post("/analyze", analyzeHandler.Analyze)
	} else {
		r.Post("/analyze", analyzeHandler.Analyze)
	}

	r.Get("/api/accounts/{username}/links", linkHandler.GetLinks)

	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	return r
}
