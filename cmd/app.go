package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"virtualexpo/config"
	"virtualexpo/internal/adapters/cache"
	"virtualexpo/internal/adapters/email"
	"virtualexpo/internal/adapters/kafka"
	"virtualexpo/internal/domain"
	"virtualexpo/internal/repository/postgres"
	"virtualexpo/internal/services"
)

const auditFlushTimeout = 10 * time.Second

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// app is the wired lifecycle core shared by serve and tick.
type app struct {
	db       *sql.DB
	events   domain.EventLifecycleService
	sessions domain.SessionLifecycleService
	closers  []io.Closer
	logger   *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.db, err = postgres.Open(ctx, cfg.DBUrl, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.db)
	logger.Info("connected to database")

	sinks := []domain.AuditSink{postgres.NewAuditRepository(a.db)}

	if cfg.Kafka.Enabled {
		publisher := kafka.NewTransitionPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		a.closers = append(a.closers, publisher)
		sinks = append(sinks, publisher)
		logger.Info("streaming lifecycle transitions", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	if len(cfg.Email.NotifyTo) > 0 {
		mailer, err := email.NewMailer(email.MailerConfig{
			Provider:    cfg.Email.Provider,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
			SES: email.SESConfig{
				Region:             cfg.Email.AWSRegion,
				AccessKeyID:        cfg.Email.AWSAccessKeyID,
				SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
				InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
			},
			SendTimeout: cfg.AuditTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create mailer: %w", err)
		}
		sinks = append(sinks, services.NewLifecycleNotifier(mailer, email.NewTemplateRenderer(), cfg.Email.NotifyTo, logger))
	}

	var liveCache domain.LiveSessionCache
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		liveCache = cache.NewLiveSessionCache(client, cfg.Redis.TTL)
		logger.Info("live session cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL.String())
	}

	// Registered last so Close drains queued entries before the sinks shut down.
	auditSink := services.NewAsyncAuditSink(services.NewFanoutAuditSink(sinks...), cfg.AuditQueueSize, cfg.AuditTimeout, logger)
	a.closers = append(a.closers, closerFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), auditFlushTimeout)
		defer cancel()
		return auditSink.Close(ctx)
	}))
	timeouts := services.Timeouts{Store: cfg.StoreOpTimeout, Audit: cfg.AuditTimeout}
	eventRepo := postgres.NewEventRepository(a.db)

	a.events = services.NewEventLifecycleService(eventRepo, auditSink, logger, timeouts)
	a.sessions = services.NewSessionLifecycleService(eventRepo, postgres.NewSessionRepository(a.db), liveCache, auditSink, logger, timeouts, nil)
	return a, nil
}

// Close releases connections in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func runMigrations(cfg *config.Config, logger *slog.Logger, down bool) (err error) {
	m, err := postgres.NewMigrator(cfg.DBUrl, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, m.Close())
	}()
	if down {
		return m.Down()
	}
	return m.Up()
}
