package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/odds"
	"github.com/uniligue/bet-engine/internal/registry"
	"github.com/uniligue/bet-engine/internal/shared/cache"
	"github.com/uniligue/bet-engine/internal/shared/config"
	"github.com/uniligue/bet-engine/internal/shared/db"
	"github.com/uniligue/bet-engine/internal/shared/kafka"
	"github.com/uniligue/bet-engine/internal/shared/logger"
	"github.com/uniligue/bet-engine/internal/shared/metrics"
	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

// odds-worker mantém as odds frescas sem depender de request:
//   - ciclo completo (default 1h) recalcula todas as partidas abertas;
//   - ciclo curto recalcula só as partidas com pressão de apostas acumulada.
func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

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

	oddsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsUpdates)
	defer oddsWriter.Close()

	matches := registry.NewPostgres(pg)
	oddsStore := odds.NewPostgres(pg)
	oddsCache := odds.NewRedisCache(redisClient, 60*time.Second)
	broadcaster := odds.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel)

	recomputed := prometheus.NewCounter(prometheus.CounterOpts{Name: "odds_worker_recomputed_total", Help: "partidas recalculadas"})
	cycleErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "odds_worker_errors_total", Help: "erros por ciclo"}, []string{"cycle"})
	prometheus.MustRegister(recomputed, cycleErrors)

	calc := &odds.Calculator{
		Log:     log,
		Matches: matches,
		Store:   oddsStore,
		Cache:   oddsCache,
		Pub:     odds.NewKafkaPublisher(oddsWriter),
		Source:  "odds-worker",
		OnUpdated: func(ev events.OddsUpdate) {
			recomputed.Inc()
			bctx, bcancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer bcancel()
			if err := broadcaster.Broadcast(bctx, ev); err != nil {
				log.Warn("ws broadcast publish failed", zap.Error(err))
			}
		},
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("odds-worker started",
		zap.Duration("refreshInterval", cfg.OddsRefreshInterval),
		zap.Int("pressureMinBets", cfg.OddsPressureMinBets),
	)

	fullTicker := time.NewTicker(cfg.OddsRefreshInterval)
	defer fullTicker.Stop()
	pressureTicker := time.NewTicker(time.Minute)
	defer pressureTicker.Stop()

	// primeira passada na subida, sem esperar o ticker
	runFull(ctx, log, calc, cycleErrors)

	for {
		select {
		case <-ctx.Done():
			log.Info("odds-worker stopped")
			return
		case <-fullTicker.C:
			runFull(ctx, log, calc, cycleErrors)
		case <-pressureTicker.C:
			n, err := calc.RecomputePressured(ctx, cfg.OddsPressureMinBets)
			if err != nil {
				log.Warn("pressure recompute failed", zap.Error(err))
				cycleErrors.WithLabelValues("pressure").Inc()
				continue
			}
			if n > 0 {
				log.Info("pressure recompute", zap.Int("matches", n))
			}
		}
	}
}

func runFull(ctx context.Context, log *zap.Logger, calc *odds.Calculator, cycleErrors *prometheus.CounterVec) {
	n, err := calc.RecomputeUpcoming(ctx, 1000)
	if err != nil {
		log.Warn("full recompute failed", zap.Error(err))
		cycleErrors.WithLabelValues("full").Inc()
		return
	}
	log.Info("full recompute", zap.Int("matches", n))
}
