package users

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore はプロセス内にユーザーを保持する Store 実装です。
// ローカル開発とテストで利用します。
type MemoryStore struct {
	mu    sync.Mutex
	seq   int
	users []User
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert はユーザーを追加します。
func (s *MemoryStore) Insert(ctx context.Context, user *User) error {
	if err := validate(user); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	user.ID = strconv.Itoa(s.seq)
	s.users = append(s.users, *user)
	return nil
}

// FindByEmail はメールアドレスが一致するユーザーを登録順に返します。
func (s *MemoryStore) FindByEmail(ctx context.Context, email string, limit int) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []User
	for _, u := range s.users {
		if u.Email != email {
			continue
		}
		found = append(found, u)
		if limit > 0 && len(found) >= limit {
			break
		}
	}
	return found, nil
}

// All は保存済みのユーザーをすべて返します。
func (s *MemoryStore) All() []User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}
