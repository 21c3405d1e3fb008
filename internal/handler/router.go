package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/studentms/internal/middleware"
	"github.com/hitoshi/studentms/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator     *middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// メトリクス（nilの場合は計測と/metricsを無効化する）
	Metrics        middleware.HTTPRecorder
	MetricsHandler http.Handler

	// サービス
	AuthService    AuthServiceInterface
	UserService    UserServiceInterface
	StudentService StudentServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → CORS → Logging → Metrics → RateLimit(/api)
//
// /health と /metrics はレート制限の外に配置する。
// レート制限のキーは接続元アドレスとし、X-Forwarded-For等のヘッダーは信用しない。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	// サブルーターにも引き継がれるよう、ルート定義より前に設定する
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	authn := deps.Authenticator
	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	studentHandler := NewStudentHandler(deps.StudentService)

	// --- 認証不要・レート制限外のルート ---
	r.Get("/health", Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(authn.Middleware()).Get("/me", authHandler.Me)
		})

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware())

			// ユーザー管理
			r.Route("/users", func(r chi.Router) {
				r.Put("/me", userHandler.UpdateMe)
				r.With(authn.RequireRole(model.RoleAdmin)).Patch("/{id}/role", userHandler.ChangeRole)
			})

			// 学生名簿（管理者のみ）
			r.Route("/students", func(r chi.Router) {
				r.Use(authn.RequireRole(model.RoleAdmin))

				r.Post("/", studentHandler.Create)
				r.Get("/", studentHandler.List)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", studentHandler.Get)
					r.Put("/", studentHandler.Update)
					r.Delete("/", studentHandler.Delete)
				})
			})
		})
	})

	return r
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status string `json:"status"`
}

// Health は死活監視用のエンドポイント。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError(r.URL.Path))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, &model.APIError{
		Code:     "METHOD_NOT_ALLOWED",
		Message:  "Method not allowed",
		Category: "system",
		Action:   "Check the HTTP method for this endpoint.",
	})
}
