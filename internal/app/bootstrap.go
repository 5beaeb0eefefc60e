// Package app assembles the process from configuration: stores, verifier,
// services and the HTTP engine. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"blood-donation-api/internal/checkout"
	"blood-donation-api/internal/core/auth"
	"blood-donation-api/internal/core/cache"
	"blood-donation-api/internal/core/config"
	"blood-donation-api/internal/core/database"
	"blood-donation-api/internal/core/mq"
	"blood-donation-api/internal/domain"
	"blood-donation-api/internal/events"
	"blood-donation-api/internal/repo"
	"blood-donation-api/internal/service"
	"blood-donation-api/internal/transport/http/router"
)

const mqDialAttempts = 5

type App struct {
	Cfg  *config.Config
	Log  *zap.Logger
	DB   *gorm.DB
	Auth auth.Verifier

	Cache  *cache.Cache
	Broker *mq.RabbitMQ

	Users    *service.UserService
	Requests *service.RequestService
	Payments *service.PaymentService
	Stats    *service.StatsService
}

func OpenDB(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                l,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DB.Driver, err)
	}
	return db, nil
}

// LocalTokens returns the HS256 issuer/verifier used in local auth mode.
func LocalTokens(cfg config.Auth) *auth.LocalVerifier {
	return &auth.LocalVerifier{
		Secret: []byte(cfg.Secret),
		Issuer: cfg.Issuer,
		TTL:    time.Duration(cfg.TokenTTLMin) * time.Minute,
	}
}

func NewVerifier(cfg config.Auth) auth.Verifier {
	if cfg.Mode == "local" {
		return LocalTokens(cfg)
	}
	return auth.NewFirebaseVerifier(cfg.FirebaseProjectID, cfg.JWKSURL, nil)
}

// New opens every configured backend and wires the services. Redis and
// RabbitMQ are optional; the database is not.
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: l, Auth: NewVerifier(cfg.Auth)}

	db, err := OpenDB(cfg, l)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	if cfg.Redis.Enabled {
		a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, time.Duration(cfg.Redis.TTLSec)*time.Second)
		if err := a.Cache.Ping(ctx); err != nil {
			l.Warn("redis unreachable, caching disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = a.Cache.Close()
			a.Cache = nil
		}
	}

	var publisher domain.EventPublisher = events.Noop{}
	if cfg.MQ.Enabled {
		b, err := mq.Dial(ctx, cfg.MQ.URL, mqDialAttempts, l)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := b.DeclareTopic(cfg.MQ.Exchange); err != nil {
			b.Close()
			a.Close()
			return nil, err
		}
		a.Broker = b
		publisher = events.NewAMQPPublisher(b, cfg.MQ.Exchange, l)
	}

	var provider domain.CheckoutProvider
	if cfg.Stripe.SecretKey != "" {
		provider = checkout.NewStripe(checkout.Options{
			SecretKey:  cfg.Stripe.SecretKey,
			Currency:   cfg.Stripe.Currency,
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
		})
	} else {
		l.Warn("stripe.secret_key not set, checkout endpoints will fail")
	}

	users := repo.NewUserRepo(db)
	requests := repo.NewRequestRepo(db)
	payments := repo.NewPaymentRepo(db)

	a.Users = service.NewUserService(service.UserDeps{
		Users:  users,
		Events: publisher,
		Cache:  a.Cache,
		Log:    l,
	})
	a.Requests = service.NewRequestService(service.RequestDeps{
		Requests:  requests,
		Users:     users,
		Lifecycle: domain.Lifecycle{Strict: cfg.Lifecycle.Strict},
		Events:    publisher,
		Cache:     a.Cache,
		Log:       l,
	})
	a.Payments = service.NewPaymentService(service.PaymentDeps{
		Payments: payments,
		Provider: provider,
		Events:   publisher,
		Cache:    a.Cache,
		Log:      l,
	})
	a.Stats = service.NewStatsService(users, requests, payments, a.Cache)
	return a, nil
}

func (a *App) Engine() *gin.Engine {
	return router.NewAPIEngine(router.Deps{
		Log:          a.Log,
		Verifier:     a.Auth,
		Users:        a.Users,
		Requests:     a.Requests,
		Payments:     a.Payments,
		Stats:        a.Stats,
		Limits:       a.Cfg.Limits,
		EnforceRoles: a.Cfg.Auth.EnforceRoles,
		Ready:        a.Ready,
	})
}

// Ready pings the database and, when configured, Redis.
func (a *App) Ready(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return errors.Join(sqlDB.PingContext(ctx), a.Cache.Ping(ctx))
}

// Close releases backends in reverse order of opening.
func (a *App) Close() {
	if a.Broker != nil {
		a.Broker.Close()
	}
	if err := a.Cache.Close(); err != nil {
		a.Log.Warn("redis close", zap.Error(err))
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			a.Log.Warn("database close", zap.Error(err))
		}
	}
}
