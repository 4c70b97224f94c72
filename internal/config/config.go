// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // HTTPサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// MongoDB設定
	MongoScheme   string // 接続スキーム（mongodb+srv または mongodb）
	MongoHost     string // ホスト名（ポートを含めてもよい）
	MongoUser     string // 接続ユーザー
	MongoPassword string // 接続パスワード
	MongoDatabase string // ユーザー情報を保存するデータベース名

	// セッション設定
	MongoSessionSecret string // セッションクッキーの暗号化に使う秘密鍵
	NodeSessionSecret  string // セッションクッキーの署名に使う秘密鍵
	SessionExpireMin   int    // セッションの有効期限（分）

	// 認証設定
	BcryptCost         int    // パスワードハッシュのコスト
	LoginLimiter       string // ログイン試行制限の保存先 (memory, redis)
	LoginMaxAttempts   int    // ロックまでの失敗回数
	LoginWindowMinutes int    // 失敗回数を数える期間（分）
	LoginLockMinutes   int    // ロック期間（分）

	// 監査ログ/キュー設定
	QueueRedisURL string // Asynq・試行制限用Redis接続URL
	AuditEnabled  bool   // 認証イベントを記録するかどうか

	// 静的ファイル
	PublicDir string // 公開ディレクトリ
}

// Load は環境変数から設定を読み込みます。
// .env.local / .env ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local / .env を読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "3000"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		// MongoDB設定
		MongoScheme:   getEnv("MONGODB_SCHEME", "mongodb+srv"),
		MongoHost:     getEnv("MONGODB_HOST", ""),
		MongoUser:     getEnv("MONGODB_USER", ""),
		MongoPassword: getEnv("MONGODB_PASSWORD", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", ""),

		// セッション設定
		MongoSessionSecret: getEnv("MONGODB_SESSION_SECRET", ""),
		NodeSessionSecret:  getEnv("NODE_SESSION_SECRET", ""),
		SessionExpireMin:   getEnvAsInt("SESSION_EXPIRE_MINUTES", 60),

		// 認証設定
		BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
		LoginLimiter:       getEnv("LOGIN_LIMITER", "memory"),
		LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindowMinutes: getEnvAsInt("LOGIN_WINDOW_MINUTES", 15),
		LoginLockMinutes:   getEnvAsInt("LOGIN_LOCK_MINUTES", 10),

		// 監査ログ/キュー設定
		QueueRedisURL: getEnv("QUEUE_REDIS_URL", "redis://127.0.0.1:6379/0"),
		AuditEnabled:  getEnvAsBool("AUDIT_ENABLED", false),

		// 静的ファイル
		PublicDir: getEnv("PUBLIC_DIR", "./public"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err == nil {
			return
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(filepath.Join(parent, name)); err == nil {
			return
		}
	}
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	switch c.LoginLimiter {
	case "memory", "redis":
	default:
		return fmt.Errorf("LOGIN_LIMITER must be memory or redis, got %q", c.LoginLimiter)
	}
	if c.SessionExpireMin <= 0 {
		return fmt.Errorf("SESSION_EXPIRE_MINUTES must be positive")
	}

	// ローカル開発では接続情報は任意
	// 本番環境では厳格にチェックする
	if c.GinMode == "release" {
		if c.MongoHost == "" {
			return fmt.Errorf("MONGODB_HOST is required in release mode")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("MONGODB_DATABASE is required in release mode")
		}
		if c.MongoSessionSecret == "" {
			return fmt.Errorf("MONGODB_SESSION_SECRET is required in release mode")
		}
		if c.NodeSessionSecret == "" {
			return fmt.Errorf("NODE_SESSION_SECRET is required in release mode")
		}
		if (c.LoginLimiter == "redis" || c.AuditEnabled) && c.QueueRedisURL == "" {
			return fmt.Errorf("QUEUE_REDIS_URL is required in release mode")
		}
	}

	return nil
}

// MongoURI は接続文字列を組み立てます。ユーザー名とパスワードはエスケープされます。
func (c *Config) MongoURI() string {
	u := url.URL{
		Scheme: c.MongoScheme,
		Host:   c.MongoHost,
		Path:   "/",
	}
	if c.MongoUser != "" {
		u.User = url.UserPassword(c.MongoUser, c.MongoPassword)
	}
	return u.String()
}

// SessionMaxAge はセッションの有効期限を返します。
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionExpireMin) * time.Minute
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
