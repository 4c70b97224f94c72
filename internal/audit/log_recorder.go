package audit

import (
	"context"
	"log"
)

// LogRecorder はキューを使わずイベントをログに出力する Recorder です。
// Redis を用意しないローカル開発で利用します。
type LogRecorder struct {
	logger *log.Logger
}

// NewLogRecorder は LogRecorder を作成します。
func NewLogRecorder(logger *log.Logger) *LogRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &LogRecorder{logger: logger}
}

// Record はイベントを1行のログとして出力します。
func (r *LogRecorder) Record(ctx context.Context, event Event) {
	r.logger.Printf("audit kind=%s email=%q ip=%s at=%s", event.Kind, event.Email, event.ClientIP, event.OccurredAt.Format("2006-01-02T15:04:05Z07:00"))
}
