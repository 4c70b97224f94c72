package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

const (
	taskTypeEvent = "audit:event"
	queueName     = "audit"

	// defaultEnqueueTimeout はリクエスト処理中にキュー投入を待つ上限です。
	defaultEnqueueTimeout = 2 * time.Second
)

// Manager はイベントを Asynq キューに投入し、ワーカーで Sink に保存します。
type Manager struct {
	client         *asynq.Client
	server         *asynq.Server
	mux            *asynq.ServeMux
	sink           Sink
	enqueueTimeout time.Duration
	logger         *log.Logger
}

// NewManager は Manager を初期化します。
func NewManager(redisURL string, sink Sink, logger *log.Logger) (*Manager, error) {
	if sink == nil {
		return nil, errors.New("sink is nil")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		client:         client,
		server:         server,
		mux:            mux,
		sink:           sink,
		enqueueTimeout: defaultEnqueueTimeout,
		logger:         logger,
	}
	mux.HandleFunc(taskTypeEvent, manager.handleEventTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Printf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown() error {
	m.server.Shutdown()
	return m.client.Close()
}

// Record はイベントをキューに投入します。失敗はログに残すだけです。
// Redis が応答しなくても enqueueTimeout を超えて呼び出し元を待たせません。
func (m *Manager) Record(ctx context.Context, event Event) {
	task, err := newEventTask(event)
	if err != nil {
		m.logger.Printf("failed to build audit task kind=%s: %v", event.Kind, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.enqueueTimeout)
	defer cancel()
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.TaskID(event.ID)); err != nil {
		m.logger.Printf("failed to enqueue audit event kind=%s: %v", event.Kind, err)
	}
}

func newEventTask(event Event) (*asynq.Task, error) {
	if event.ID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskTypeEvent, body, asynq.Queue(queueName)), nil
}

func (m *Manager) handleEventTask(ctx context.Context, task *asynq.Task) error {
	var event Event
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		// 壊れたペイロードは再試行しても直らない
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if event.ID == "" || event.Kind == "" {
		return fmt.Errorf("%w: missing id or kind in payload", asynq.SkipRetry)
	}
	return m.sink.Save(ctx, event)
}
