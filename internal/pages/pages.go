// Package pages は HTML ページの描画と静的ファイルの配信を提供します。
package pages

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log"
	"math/rand/v2"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/members-portal/internal/session"
	"github.com/yourusername/members-portal/internal/storage"
)

// テンプレート名
const (
	TemplateHome            = "home.html"
	TemplateAbout           = "about.html"
	TemplateSignup          = "signup.html"
	TemplateLogin           = "login.html"
	TemplateLoginFailed     = "login_failed.html"
	TemplateTooManyAttempts = "too_many_attempts.html"
	TemplateMembers         = "members.html"
	TemplateNotFound        = "not_found.html"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates は埋め込みテンプレートをパースして返します。
// html/template により差し込む値はすべて文脈に応じてエスケープされます。
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// Handlers はページ表示用のハンドラー群です。
type Handlers struct {
	assets *storage.Local
	seed   func() uint64
	logger *log.Logger
}

// NewHandlers は Handlers を作成します。assets が nil の場合は静的ファイルを配信しません。
func NewHandlers(assets *storage.Local, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		assets: assets,
		seed:   rand.Uint64,
		logger: logger,
	}
}

type homeView struct {
	Member *session.Member
}

// Home は GET / のハンドラーです。
func (h *Handlers) Home(c *gin.Context) {
	view := homeView{}
	if member, ok := session.Current(c); ok {
		view.Member = &member
	}
	c.HTML(http.StatusOK, TemplateHome, view)
}

// About は GET /about のハンドラーです。
func (h *Handlers) About(c *gin.Context) {
	c.HTML(http.StatusOK, TemplateAbout, gin.H{"Color": c.Query("color")})
}

// SignupForm は GET /signup のハンドラーです。
func (h *Handlers) SignupForm(c *gin.Context) {
	c.HTML(http.StatusOK, TemplateSignup, nil)
}

// LoginForm は GET /login のハンドラーです。
func (h *Handlers) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, TemplateLogin, nil)
}

type membersView struct {
	Member session.Member
	Image  ImageID
}

// Members は GET /members のハンドラーです。
// auth.RequireMember が載せたメンバーを使うため、必ずその後ろに登録します。
func (h *Handlers) Members(c *gin.Context) {
	member, ok := session.MemberFromContext(c)
	if !ok {
		h.logger.Printf("members page reached without a verified member path=%s", c.Request.URL.Path)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	image := Pick(h.seed())
	c.HTML(http.StatusOK, TemplateMembers, membersView{Member: member, Image: image})
}

// NotFound は未登録のパスに対するハンドラーです。
// GET/HEAD で公開ディレクトリにファイルがあればそれを返し、なければ 404 ページを返します。
func (h *Handlers) NotFound(c *gin.Context) {
	if h.assets != nil && (c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead) {
		asset, err := h.assets.Lookup(c.Request.URL.Path)
		switch {
		case err == nil:
			c.Header("Content-Type", asset.ContentType)
			c.File(asset.Path)
			return
		case errors.Is(err, fs.ErrNotExist), errors.Is(err, storage.ErrOutsideRoot):
		default:
			h.logger.Printf("static lookup failed path=%s: %v", c.Request.URL.Path, err)
		}
	}
	c.HTML(http.StatusNotFound, TemplateNotFound, nil)
}
