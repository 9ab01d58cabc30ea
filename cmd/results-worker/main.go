package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/notify"
	"github.com/uniligue/bet-engine/internal/odds"
	"github.com/uniligue/bet-engine/internal/registry"
	"github.com/uniligue/bet-engine/internal/results"
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

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchResults, "results-worker")
	defer reader.Close()

	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchResultsDLQ)
	defer dlqWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()
	oddsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsUpdates)
	defer oddsWriter.Close()

	matches := registry.NewPostgres(pg)
	oddsStore := odds.NewPostgres(pg)
	oddsCache := odds.NewRedisCache(redisClient, 60*time.Second)
	bets := wager.NewPostgres(pg)
	notifications := notify.NewPostgres(pg)
	broadcaster := odds.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel)

	calc := &odds.Calculator{
		Log:     log,
		Matches: matches,
		Store:   oddsStore,
		Cache:   oddsCache,
		Pub:     odds.NewKafkaPublisher(oddsWriter),
		Source:  "results-worker",
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
		Pub:     wager.NewKafkaPublisher(nil, settledWriter),
	}

	// Métricas do ciclo de resultados
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "results_messages_consumed_total", Help: "mensagens consumidas"})
	applied := prometheus.NewCounter(prometheus.CounterOpts{Name: "results_applied_total", Help: "resultados que mudaram alguma partida"})
	settledC := prometheus.NewCounter(prometheus.CounterOpts{Name: "results_settlements_total", Help: "partidas que dispararam liquidação"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "results_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, applied, settledC, errorsBy)

	proc := &results.Processor{
		Log:           log,
		Reader:        reader,
		DLQ:           dlqWriter,
		Matches:       matches,
		Engine:        engine,
		Odds:          calc,
		Bettors:       bets,
		Notifications: notifications,

		OnConsumed: func() { consumed.Inc() },
		OnApplied:  func() { applied.Inc() },
		OnSettled:  func() { settledC.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// varredura de catch-up: pega grupos cujo gatilho de liquidação se perdeu
	go sweepLoop(ctx, log, cfg.SettlementSweepInterval, bets, engine)

	log.Info("results-worker started",
		zap.String("consume", cfg.TopicMatchResults),
		zap.String("dlq", cfg.TopicMatchResultsDLQ),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("results-worker stopped")
}

func sweepLoop(ctx context.Context, log *zap.Logger, interval time.Duration, bets *wager.Postgres, engine *wager.Engine) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := bets.StaleActiveGroupIDs(ctx, 500)
			if err != nil {
				log.Warn("sweep lookup failed", zap.Error(err))
				continue
			}
			for _, id := range ids {
				if _, err := engine.SettleGroup(ctx, id); err != nil {
					log.Warn("sweep settle failed", zap.String("groupId", id), zap.Error(err))
				}
			}
			if len(ids) > 0 {
				log.Info("sweep pass", zap.Int("groups", len(ids)))
			}
		}
	}
}
