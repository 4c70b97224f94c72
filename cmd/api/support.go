package main

import (
	"context"
	"fmt"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yourusername/members-portal/internal/audit"
	"github.com/yourusername/members-portal/internal/auth"
	"github.com/yourusername/members-portal/internal/config"
)

// supportServices は Redis を使う補助機能（試行制限と監査ログ）をまとめます。
type supportServices struct {
	limiter  auth.AttemptLimiter
	recorder audit.Recorder
	closers  []func() error
}

func (s *supportServices) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Printf("Failed to close support service: %v", err)
		}
	}
}

func setupSupport(cfg *config.Config, db *mongo.Database) (*supportServices, error) {
	deps := &supportServices{
		recorder: audit.NewLogRecorder(log.Default()),
	}

	if cfg.LoginLimiter == "redis" {
		rdb, err := newRedisClient(cfg.QueueRedisURL)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, rdb.Close)
		deps.limiter = auth.NewRedisLimiter(rdb, auth.PolicyFromConfig(cfg))
	}

	if cfg.AuditEnabled {
		manager, err := audit.NewManager(cfg.QueueRedisURL, audit.NewMongoSink(db), log.Default())
		if err != nil {
			deps.Close()
			return nil, err
		}
		manager.StartWorkers()
		deps.closers = append(deps.closers, manager.Shutdown)
		deps.recorder = manager
	}

	return deps, nil
}

func newRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return rdb, nil
}
