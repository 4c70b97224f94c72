package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/members-portal/internal/session"
)

// RequireMember はログイン済みセッションを要求するミドルウェアを返します。
// 未ログインなら redirectTo へリダイレクトして処理を打ち切ります。
// ログイン済みなら session.MemberFromContext で後続からメンバーを参照できます。
func (m *Manager) RequireMember(redirectTo string) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := session.Current(c)
		if !ok {
			c.Redirect(http.StatusFound, redirectTo)
			c.Abort()
			return
		}
		session.SetMember(c, member)
		c.Next()
	}
}
