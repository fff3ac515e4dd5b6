package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard/api"
	"taskboard/domain"
	"taskboard/notify"
	"taskboard/seed"
	"taskboard/storage"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rc *redis.Client
	if cfg.RedisConn != "" {
		rc = redis.NewClient(storage.ParseRedisOptions(cfg.RedisConn))
		defer rc.Close()
	}

	slot, closeSlot, err := openSlot(ctx, cfg, rc)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeSlot()
	if cfg.CacheTTL > 0 {
		slot = storage.NewCachedSlot(slot, rc, cfg.CacheTTL)
	}

	broker := notify.NewBroker()
	sinks := []notify.Sink{broker}
	if cfg.NotifyChannel != "" {
		sinks = append(sinks, notify.NewRedisSink(rc, cfg.NotifyChannel))
	}
	if cfg.NotifyQueue != "" {
		qs, err := notify.NewQueueSink(cfg.StorageConn, cfg.NotifyQueue)
		if err != nil {
			log.Fatalf("notify queue: %v", err)
		}
		sinks = append(sinks, qs)
	}
	dispatcher := notify.NewDispatcher(cfg.Notify, logger, sinks...)
	defer dispatcher.Close()

	gateway := storage.NewGateway(slot, cfg.StorageKey)
	store := domain.NewStore(gateway, dispatcher)
	var src domain.SeedSource
	if cfg.SeedURL != "" {
		src = seed.New(cfg.SeedURL)
	}
	ready := store.Bootstrap(ctx, src)

	auth, err := newAuth(cfg)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	e := api.New(store, broker, auth, logger)
	// open streams hold their connections until the broker lets them go
	e.Server.RegisterOnShutdown(broker.Close)
	go func() {
		<-ready
		log.WithFields(log.Fields{
			"backend": cfg.Backend,
			"key":     gateway.Key(),
			"tasks":   len(store.Tasks()),
		}).Info("board ready")
	}()

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
}

func openSlot(ctx context.Context, cfg config, rc *redis.Client) (storage.Slot, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case backendRedis:
		return storage.NewRedisSlot(rc), noop, nil
	case backendTable:
		s, err := storage.NewTableSlot(cfg.StorageConn, cfg.tableName())
		return s, noop, err
	case backendMySQL:
		s, err := storage.OpenMySQLSlot(ctx, cfg.MySQLDSN, cfg.tableName())
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := storage.NewFileSlot(cfg.StorageDir)
		return s, noop, err
	}
}

// newAuth returns a nil Authenticator when auth is disabled.
func newAuth(cfg config) (api.Authenticator, error) {
	switch cfg.AuthMode {
	case authHS:
		return api.NewSharedSecretAuth([]byte(cfg.AuthSecret), cfg.AuthOwner), nil
	case authJWKS:
		jwks, err := keyfunc.Get(cfg.AuthJWKSURL, keyfunc.Options{})
		if err != nil {
			return nil, err
		}
		return api.NewJWKSAuth(jwks, cfg.AuthAudience, cfg.AuthIssuer, cfg.AuthOwner, cfg.JWKSCacheTTL), nil
	}
	return nil, nil
}
