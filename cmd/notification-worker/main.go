package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/uniligue/bet-engine/internal/notify"
	"github.com/uniligue/bet-engine/internal/shared/config"
	"github.com/uniligue/bet-engine/internal/shared/db"
	"github.com/uniligue/bet-engine/internal/shared/kafka"
	"github.com/uniligue/bet-engine/internal/shared/logger"
	"github.com/uniligue/bet-engine/internal/shared/metrics"
	"github.com/uniligue/bet-engine/pkg/contracts/events"
)

// notification-worker materializa eventos bet_settled em notificações.
// A entrega (push, e-mail) fica fora daqui: outra equipe consome a tabela.
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

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetSettled, "notification-worker")
	defer reader.Close()

	store := notify.NewPostgres(pg)

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "notify_messages_consumed_total", Help: "mensagens consumidas"})
	created := prometheus.NewCounter(prometheus.CounterOpts{Name: "notify_created_total", Help: "notificações gravadas"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "notify_duplicates_total", Help: "liquidações já notificadas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "notify_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, created, duplicates, errorsBy)

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	defer metricsSrv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("notification-worker started", zap.String("consume", cfg.TopicBetSettled))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("notification-worker stopped")
				return
			}
			log.Warn("kafka read failed", zap.Error(err))
			errorsBy.WithLabelValues("read").Inc()
			time.Sleep(500 * time.Millisecond)
			continue
		}
		consumed.Inc()

		var ev events.BetSettled
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.Warn("invalid message", zap.Error(err))
			errorsBy.WithLabelValues("decode").Inc()
			continue
		}

		n, err := notify.FromSettlement(ev)
		if err != nil {
			log.Warn("unmapped settlement", zap.String("groupId", ev.GroupID), zap.Error(err))
			errorsBy.WithLabelValues("map").Inc()
			continue
		}

		inserted, err := store.Insert(ctx, n)
		if err != nil {
			log.Error("notification insert failed", zap.String("groupId", ev.GroupID), zap.Error(err))
			errorsBy.WithLabelValues("insert").Inc()
			continue
		}
		if !inserted {
			// reentrega do Kafka ou gatilho duplicado; o índice único segura
			duplicates.Inc()
			continue
		}
		created.Inc()
		log.Info("notification created",
			zap.String("userId", n.UserID),
			zap.String("type", string(n.Type)),
			zap.String("betId", n.BetID),
		)
	}
}
