// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourusername/members-portal/internal/auth"
	"github.com/yourusername/members-portal/internal/config"
	"github.com/yourusername/members-portal/internal/pages"
	"github.com/yourusername/members-portal/internal/session"
	"github.com/yourusername/members-portal/internal/storage"
	"github.com/yourusername/members-portal/internal/users"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// MongoDB への接続（ユーザー・セッション・監査ログで共有）
	mongoClient, err := connectMongo(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Printf("Failed to disconnect MongoDB: %v", err)
		}
	}()
	userDB := mongoClient.Database(cfg.MongoDatabase)

	deps, err := setupSupport(cfg, userDB)
	if err != nil {
		log.Fatalf("Failed to set up background services: %v", err)
	}
	defer deps.Close()

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	tmpl, err := pages.Templates()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}
	router.SetHTMLTemplate(tmpl)

	// セッションストアの設定（MongoDB に保存し、TTL で自動削除）
	keyPairs, generated, err := session.Keys(cfg.NodeSessionSecret, cfg.MongoSessionSecret)
	if err != nil {
		log.Fatalf("Failed to prepare session keys: %v", err)
	}
	if generated {
		log.Printf("NODE_SESSION_SECRET is not set; using a random key (sessions will not survive restarts)")
	}
	store := session.NewMongoStore(mongoClient, auth.SessionConfig(cfg), keyPairs...)
	router.Use(sessions.Sessions(session.CookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	assets, err := storage.NewLocal(cfg.PublicDir)
	if err != nil {
		log.Fatalf("Failed to resolve public dir: %v", err)
	}
	log.Printf("Serving public files from %s", assets.Root())

	authManager := auth.NewManager(cfg, users.NewMongoStore(userDB), deps.limiter, deps.recorder, log.Default())
	setupRoutes(router, authManager, pages.NewHandlers(assets, log.Default()))

	// サーバーの起動
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting server on %s (mode: %s)", srv.Addr, cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}

func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI()))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "members-portal",
		"version": "0.1.0",
	})
}

// pageMethods はページを受け付けるメソッドです。HEAD も GET と同じ応答（本文なし）を返します。
var pageMethods = []string{http.MethodGet, http.MethodHead}

// setupRoutes はページと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, authManager *auth.Manager, h *pages.Handlers) {
	router.Match(pageMethods, "/health", handleHealth)

	router.Match(pageMethods, "/", h.Home)
	router.Match(pageMethods, "/about", h.About)
	router.Match(pageMethods, "/signup", h.SignupForm)
	router.Match(pageMethods, "/login", h.LoginForm)

	router.POST("/submitUser", authManager.Signup)
	router.POST("/loggingin", authManager.Login)
	// ログイン後のリダイレクト先は大文字小文字どちらでも受け付ける
	router.Match(pageMethods, "/loggedin", authManager.LoggedIn)
	router.Match(pageMethods, "/loggedIn", authManager.LoggedIn)
	router.Match(pageMethods, "/logout", authManager.Logout)

	router.Match(pageMethods, "/members", authManager.RequireMember("/"), h.Members)

	// 公開ディレクトリのファイル、なければ 404
	router.NoRoute(h.NotFound)
}
