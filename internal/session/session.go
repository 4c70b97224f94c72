// Package session はログイン状態をセッションに読み書きする処理を提供します。
package session

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CookieName はセッションクッキーの名前です。
const CookieName = "members_session"

// contextKey は確認済みメンバーを gin.Context に載せるキーです。
const contextKey = "session.member"

const (
	keyAuthenticated = "authenticated"
	keyName          = "name"
	keyEmail         = "email"
)

// Member はセッションに保存されたログイン中ユーザーです。
type Member struct {
	Name  string
	Email string
}

// Config はクッキー属性と有効期限の設定です。
type Config struct {
	MaxAge time.Duration
	Secure bool
}

// Options は maxAge 秒のクッキー属性を返します。
func (cfg Config) Options(maxAge int) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// DefaultOptions はストアに設定する既定のクッキー属性を返します。
func (cfg Config) DefaultOptions() sessions.Options {
	return cfg.Options(int(cfg.MaxAge.Seconds()))
}

// Authenticate はセッションをログイン済みにして保存します。
// 有効期限は保存した時点から cfg.MaxAge です。
func Authenticate(c *gin.Context, cfg Config, member Member) error {
	s := sessions.Default(c)
	s.Set(keyAuthenticated, true)
	s.Set(keyName, member.Name)
	s.Set(keyEmail, member.Email)
	s.Options(cfg.DefaultOptions())
	return s.Save()
}

// Current はログイン中のユーザーを返します。未ログインなら ok=false です。
func Current(c *gin.Context) (Member, bool) {
	s := sessions.Default(c)
	authenticated, _ := s.Get(keyAuthenticated).(bool)
	if !authenticated {
		return Member{}, false
	}
	name, _ := s.Get(keyName).(string)
	email, _ := s.Get(keyEmail).(string)
	return Member{Name: name, Email: email}, true
}

// Destroy はセッションを破棄し、ストア上のデータとクッキーを削除します。
func Destroy(c *gin.Context, cfg Config) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(cfg.Options(-1))
	return s.Save()
}

// SetMember は確認済みのメンバーを後続のハンドラー向けに gin.Context に載せます。
func SetMember(c *gin.Context, member Member) {
	c.Set(contextKey, member)
}

// MemberFromContext は SetMember で載せたメンバーを返します。
func MemberFromContext(c *gin.Context) (Member, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return Member{}, false
	}
	member, ok := v.(Member)
	return member, ok
}
