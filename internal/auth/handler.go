package auth

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/members-portal/internal/audit"
	"github.com/yourusername/members-portal/internal/pages"
	"github.com/yourusername/members-portal/internal/session"
	"github.com/yourusername/members-portal/internal/users"
)

// Signup は POST /submitUser のハンドラーです。
func (m *Manager) Signup(c *gin.Context) {
	input, err := BindSignup(c)
	if err != nil {
		m.logger.Printf("signup rejected: %v", err)
		c.Redirect(http.StatusFound, "/signup")
		return
	}

	hash, err := m.hashPassword(input.Password)
	if err != nil {
		m.internalError(c, "hash password", err)
		return
	}

	user := &users.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
	}
	if err := m.users.Insert(c.Request.Context(), user); err != nil {
		m.internalError(c, "insert user", err)
		return
	}
	m.logger.Printf("inserted user id=%s", user.ID)

	if err := session.Authenticate(c, m.session, session.Member{Name: user.Name, Email: user.Email}); err != nil {
		m.internalError(c, "save session", err)
		return
	}
	m.record(c, audit.KindSignup, user.Email, user.Name)

	c.Redirect(http.StatusFound, "/members")
}

// Login は POST /loggingin のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	retryAfter, err := m.limiter.CheckLock(ctx, ip)
	if err != nil {
		// 制限の保存先に障害があってもログイン自体は止めない
		m.logger.Printf("login limiter unavailable: %v", err)
	}
	if retryAfter > 0 {
		m.record(c, audit.KindLoginThrottled, "", "")
		// Retry-After は秒数またはHTTP-Date形式が推奨されているため秒数で返す
		c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(retryAfter.Seconds())), 10))
		c.HTML(http.StatusTooManyRequests, pages.TemplateTooManyAttempts, gin.H{
			"RetryAfterMinutes": int(math.Ceil(retryAfter.Minutes())),
		})
		return
	}

	input, err := BindLogin(c)
	if err != nil {
		m.logger.Printf("login rejected: %v", err)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	found, err := m.users.FindByEmail(ctx, input.Email, lookupLimit)
	if err != nil {
		m.internalError(c, "find user", err)
		return
	}
	if len(found) != 1 {
		m.logger.Printf("login rejected: %d users match email", len(found))
		m.recordFailure(c, ip, input.Email)
		c.Redirect(http.StatusFound, "/login")
		return
	}
	user := found[0]

	if !verifyPassword(user.PasswordHash, input.Password) {
		m.recordFailure(c, ip, input.Email)
		c.HTML(http.StatusOK, pages.TemplateLoginFailed, nil)
		return
	}

	if err := m.limiter.Reset(ctx, ip); err != nil {
		m.logger.Printf("failed to reset login attempts ip=%s: %v", ip, err)
	}
	if err := session.Authenticate(c, m.session, session.Member{Name: user.Name, Email: input.Email}); err != nil {
		m.internalError(c, "save session", err)
		return
	}
	m.record(c, audit.KindLoginSucceeded, input.Email, user.Name)

	c.Redirect(http.StatusFound, "/loggedIn")
}

// LoggedIn は GET /loggedin のハンドラーです。
func (m *Manager) LoggedIn(c *gin.Context) {
	if _, ok := session.Current(c); !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.Redirect(http.StatusFound, "/members")
}

// Logout は GET /logout のハンドラーです。
func (m *Manager) Logout(c *gin.Context) {
	member, wasMember := session.Current(c)
	if err := session.Destroy(c, m.session); err != nil {
		m.logger.Printf("failed to destroy session: %v", err)
	}
	if wasMember {
		m.record(c, audit.KindLogout, member.Email, member.Name)
	}
	c.Redirect(http.StatusFound, "/")
}

func (m *Manager) recordFailure(c *gin.Context, ip, email string) {
	left, err := m.limiter.RecordFailure(c.Request.Context(), ip)
	if err != nil {
		m.logger.Printf("failed to record login failure ip=%s: %v", ip, err)
	} else if left == 0 {
		m.logger.Printf("login locked ip=%s", ip)
	}
	m.record(c, audit.KindLoginFailed, email, "")
}

func (m *Manager) internalError(c *gin.Context, op string, err error) {
	m.logger.Printf("%s failed: %v", op, err)
	c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
