// Package users はユーザー情報の保存と検索を提供します。
package users

import (
	"context"
	"errors"
)

// ErrInvalidUser は保存できないユーザー情報を渡したときに返されます。
var ErrInvalidUser = errors.New("users: name, email and password hash are required")

// User は登録済みユーザーを表します。
// PasswordHash は bcrypt でハッシュ化済みの値で、平文は保持しません。
type User struct {
	ID           string `bson:"_id,omitempty"`
	Name         string `bson:"name"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password"`
}

// Store はユーザーの永続化を担います。
//
// メールアドレスの一意性は保証しません。同じメールアドレスで複数回登録すると
// 複数件が保存され、FindByEmail はそのまま複数件を返します。
type Store interface {
	Insert(ctx context.Context, user *User) error
	// FindByEmail は一致するユーザーを最大 limit 件返します（limit<=0 は無制限）。
	FindByEmail(ctx context.Context, email string, limit int) ([]User, error)
}

func validate(user *User) error {
	if user == nil || user.Name == "" || user.Email == "" || user.PasswordHash == "" {
		return ErrInvalidUser
	}
	return nil
}
