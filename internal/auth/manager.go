// Package auth は登録・ログイン・ログアウトとメンバー限定ページの保護を提供します。
package auth

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/members-portal/internal/audit"
	"github.com/yourusername/members-portal/internal/config"
	"github.com/yourusername/members-portal/internal/session"
	"github.com/yourusername/members-portal/internal/users"
)

// lookupLimit は同じメールアドレスの重複を検出できれば十分な取得件数です。
const lookupLimit = 2

// Manager は認証処理と依存先をまとめた構造体です。
type Manager struct {
	cfg     *config.Config
	users   users.Store
	limiter AttemptLimiter
	audit   audit.Recorder
	session session.Config
	logger  *log.Logger
}

// NewManager は認証マネージャーを作成します。
// limiter が nil の場合はプロセス内の制限を、recorder が nil の場合は記録なしを使います。
func NewManager(cfg *config.Config, store users.Store, limiter AttemptLimiter, recorder audit.Recorder, logger *log.Logger) *Manager {
	if limiter == nil {
		limiter = NewMemoryLimiter(PolicyFromConfig(cfg))
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		cfg:     cfg,
		users:   store,
		limiter: limiter,
		audit:   recorder,
		session: SessionConfig(cfg),
		logger:  logger,
	}
}

// SessionConfig は設定からセッションクッキーの設定を作ります。
func SessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		MaxAge: cfg.SessionMaxAge(),
		Secure: cfg.GinMode == gin.ReleaseMode,
	}
}

// PolicyFromConfig は設定からログイン試行制限のポリシーを作ります。
func PolicyFromConfig(cfg *config.Config) LimitPolicy {
	return LimitPolicy{
		MaxAttempts:  cfg.LoginMaxAttempts,
		Window:       time.Duration(cfg.LoginWindowMinutes) * time.Minute,
		LockDuration: time.Duration(cfg.LoginLockMinutes) * time.Minute,
	}
}

func (m *Manager) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cfg.BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (m *Manager) record(c *gin.Context, kind audit.Kind, email, name string) {
	m.audit.Record(context.WithoutCancel(c.Request.Context()), audit.NewEvent(kind, email, name, c.ClientIP()))
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, audit.Event) {}
