// Package audit は認証イベントの非同期記録を提供します。
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind は認証イベントの種別を表します。
type Kind string

const (
	KindSignup         Kind = "signup"
	KindLoginSucceeded Kind = "login_succeeded"
	KindLoginFailed    Kind = "login_failed"
	KindLoginThrottled Kind = "login_throttled"
	KindLogout         Kind = "logout"
)

// Event は1件の認証イベントです。
type Event struct {
	ID         string    `json:"id" bson:"_id"`
	Kind       Kind      `json:"kind" bson:"kind"`
	Email      string    `json:"email,omitempty" bson:"email,omitempty"`
	Name       string    `json:"name,omitempty" bson:"name,omitempty"`
	ClientIP   string    `json:"clientIp,omitempty" bson:"clientIp,omitempty"`
	OccurredAt time.Time `json:"occurredAt" bson:"occurredAt"`
}

// NewEvent は ID と発生時刻を採番したイベントを作成します。
func NewEvent(kind Kind, email, name, clientIP string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Email:      email,
		Name:       name,
		ClientIP:   clientIP,
		OccurredAt: time.Now().UTC(),
	}
}

// Recorder はイベントを受け付けます。記録の失敗はリクエスト処理に影響させません。
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Sink はイベントを永続化します。
type Sink interface {
	Save(ctx context.Context, event Event) error
}
