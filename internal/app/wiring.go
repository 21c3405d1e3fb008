package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/studentms/internal/auth"
	"github.com/hitoshi/studentms/internal/config"
	"github.com/hitoshi/studentms/internal/handler"
	"github.com/hitoshi/studentms/internal/metrics"
	"github.com/hitoshi/studentms/internal/middleware"
	"github.com/hitoshi/studentms/internal/repository"
	"github.com/hitoshi/studentms/internal/security"
	"github.com/hitoshi/studentms/internal/student"
	"github.com/hitoshi/studentms/internal/user"
)

// profilePictureTimeout はプロフィール画像の到達確認のタイムアウト。
const profilePictureTimeout = 5 * time.Second

// Registry はメトリクスの登録と収集の両方を行うレジストリ。
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// Services はリクエスト処理に必要なサービス群。
type Services struct {
	Tokens   *auth.TokenService
	Store    *user.Store
	Auth     *auth.Service
	Users    *user.Service
	Students *student.Service
}

// NewServices はリポジトリと設定からサービス群を構築する。
func NewServices(cfg *config.Config, users repository.UserRepository, students repository.StudentRepository) (*Services, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create password hasher: %w", err)
	}

	store := user.NewStore(users, hasher)
	sanitizer := security.NewTextSanitizer()
	pictures := security.NewURLGuard(cfg.ProfilePictureCheck, profilePictureTimeout)

	return &Services{
		Tokens:   tokens,
		Store:    store,
		Auth:     auth.NewService(store, tokens, cfg.AdminSecret),
		Users:    user.NewService(store, sanitizer, pictures),
		Students: student.NewService(students, store, sanitizer),
	}, nil
}

// NewHandler はサービス群からミドルウェアチェーン込みのHTTPハンドラーを構築する。
// 返される停止関数はレートリミッターのバックグラウンド処理を止める。
func NewHandler(cfg *config.Config, svc *Services, reg Registry, logger *slog.Logger) (http.Handler, func()) {
	collector := metrics.NewCollector(reg)
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Window: cfg.RateLimitWindow,
		Max:    cfg.RateLimitMax,
	}, collector)

	router := handler.NewRouter(&handler.RouterDeps{
		Authenticator:     middleware.NewAuthenticator(svc.Tokens, svc.Store, collector),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		Logger:            logger,

		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),

		AuthService:    handler.NewAuthServiceAdapter(svc.Auth, collector),
		UserService:    svc.Users,
		StudentService: svc.Students,
	})

	return router, limiter.Stop
}
