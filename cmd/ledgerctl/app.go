package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"affiliate-ledger/config"
	"affiliate-ledger/internal/database"
	"affiliate-ledger/internal/services/ledger/service"
)

var errRedisRequired = errors.New("this command needs Redis")

type app struct {
	cfg       config.Config
	log       *slog.Logger
	openDB    func(context.Context) (*gorm.DB, error)
	openRedis func(context.Context) (*redis.Client, error)
}

type session struct {
	ledger *service.Ledger
	queue  *service.RedisOverrideQueue
	close  func()
}

// open builds a Ledger against the configured database. Redis adapters are
// attached when Redis answers; needRedis turns its absence into an error.
func (a *app) open(ctx context.Context, needRedis bool) (*session, error) {
	db, err := a.openDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := database.MigrateLedgerDB(db); err != nil {
		return nil, err
	}

	rules, err := config.LoadRules(a.cfg.Ledger.RulesFile)
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithLogger(a.log),
		service.WithRetry(a.cfg.Ledger.MaxAttempts, a.cfg.Ledger.RetryBaseDelay),
		service.WithAutoApproveAfter(a.cfg.Ledger.AutoApproveAfter),
	}

	s := &session{close: func() {}}
	client, err := a.openRedis(ctx)
	switch {
	case err == nil:
		s.queue = service.NewRedisOverrideQueue(client)
		opts = append(opts,
			service.WithNotifier(service.NewRedisNotifier(client)),
			service.WithOverrideQueue(s.queue),
			service.WithSummaryCache(service.NewRedisSummaryCache(client, a.log)))
		s.close = func() { client.Close() }
	case needRedis:
		return nil, fmt.Errorf("%w: %v", errRedisRequired, err)
	default:
		a.log.Warn("redis unavailable, running without notifications or cache", "error", err)
	}

	s.ledger = service.New(db, rules, opts...)
	return s, nil
}
