package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/httpapi"
	"github.com/uniligue/bet-engine/internal/httpapi/ws"
	"github.com/uniligue/bet-engine/internal/ledger"
	"github.com/uniligue/bet-engine/internal/notify"
	"github.com/uniligue/bet-engine/internal/odds"
	"github.com/uniligue/bet-engine/internal/registry"
	"github.com/uniligue/bet-engine/internal/shared/cache"
	"github.com/uniligue/bet-engine/internal/shared/config"
	"github.com/uniligue/bet-engine/internal/shared/db"
	"github.com/uniligue/bet-engine/internal/shared/kafka"
	"github.com/uniligue/bet-engine/internal/shared/logger"
	"github.com/uniligue/bet-engine/internal/shared/metrics"
	"github.com/uniligue/bet-engine/internal/wager"
	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	placedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer placedWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()
	oddsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsUpdates)
	defer oddsWriter.Close()

	matches := registry.NewPostgres(pg)
	oddsStore := odds.NewPostgres(pg)
	oddsCache := odds.NewRedisCache(redisClient, 60*time.Second)
	points := ledger.NewPostgres(pg)
	bets := wager.NewPostgres(pg)
	notifications := notify.NewPostgres(pg)

	broadcaster := odds.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	calc := &odds.Calculator{
		Log:     log,
		Matches: matches,
		Store:   oddsStore,
		Cache:   oddsCache,
		Pub:     odds.NewKafkaPublisher(oddsWriter),
		Source:  "betting-api",
		OnUpdated: func(ev events.OddsUpdate) {
			bctx, bcancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer bcancel()
			if err := broadcaster.Broadcast(bctx, ev); err != nil {
				log.Warn("ws broadcast publish failed", zap.Error(err))
			}
		},
	}

	engine := &wager.Engine{
		Log:     log,
		Store:   bets,
		Matches: matches,
		Odds:    oddsStore,
		Pub:     wager.NewKafkaPublisher(placedWriter, settledWriter),
	}

	hub := ws.NewHub(func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log, redisClient, cfg.RedisPubSubChannel, hub)

	api := &httpapi.API{
		Log:           log,
		Validate:      validator.New(),
		Matches:       matches,
		Odds:          oddsStore,
		OddsCache:     oddsCache,
		Calc:          calc,
		Engine:        engine,
		Bets:          bets,
		Points:        points,
		Notifications: notifications,
		Hub:           hub,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	defer metricsSrv.Close()

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: withCORS(api.Router()),
	}

	go func() {
		<-ctx.Done()
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutCancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Info("betting-api listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("http server failed", zap.Error(err))
	}
	log.Info("betting-api stopped")
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
