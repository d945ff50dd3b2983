package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ekyc/internal/ledger"
	"ekyc/internal/platform/config"
	kafkaconsumer "ekyc/internal/platform/kafka/consumer"
	"ekyc/internal/platform/kafka/producer"
	audit "ekyc/pkg/platform/audit"
	auditconsumer "ekyc/pkg/platform/audit/consumer"
	kafkasink "ekyc/pkg/platform/audit/publishers/kafka"
	"ekyc/pkg/platform/audit/publishers/ops"
	"ekyc/pkg/platform/audit/publishers/security"
	"ekyc/pkg/platform/audit/store/failover"
	auditmem "ekyc/pkg/platform/audit/store/memory"
	auditpg "ekyc/pkg/platform/audit/store/postgres"
	"ekyc/pkg/platform/audit/worker"
	"ekyc/pkg/platform/circuit"
)

// auditStack holds the audit pipeline: the sink the outbox relay delivers to,
// the out-of-transaction security and ops publishers, and an optional Kafka
// consumer that materializes the stream into Postgres.
type auditStack struct {
	sink     audit.Store
	security *security.Publisher
	ops      *ops.Tracker
	relay    *worker.Relay
	consumer *kafkaconsumer.Consumer
	closers  []func()
}

func buildAudit(ctx context.Context, cfg config.Server, store ledger.Store, logger *slog.Logger) (*auditStack, error) {
	a := &auditStack{}

	var pg *auditpg.Store
	if cfg.Audit.PostgresDSN != "" {
		var err error
		pg, err = auditpg.Open(ctx, cfg.Audit.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = pg.Close() })
	}

	var prod *producer.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		var err error
		prod, err = producer.New(producer.Config{Brokers: cfg.Kafka.Brokers, ClientID: "ekyc-server"}, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, prod.Close)
	}

	switch cfg.Audit.Sink {
	case config.AuditSinkPostgres:
		a.sink = pg
	case config.AuditSinkKafka:
		sink := kafkasink.New(prod, cfg.Kafka.TopicPrefix)
		if err := prod.EnsureTopics(ctx, 3, 1, sink.Topics()...); err != nil {
			logger.Warn("could not ensure audit topics, relying on broker auto-create", "error", err)
		}
		var fallback audit.Store = auditmem.NewInMemoryStore()
		if pg != nil {
			fallback = pg
		} else {
			logger.Warn("kafka audit sink has no postgres fallback, failover events stay in memory")
		}
		a.sink = failover.New(sink, fallback, circuit.New("audit-kafka"), logger)
	default:
		a.sink = auditmem.NewInMemoryStore()
	}

	a.security = security.New(a.sink, security.WithLogger(logger))
	a.closers = append(a.closers, func() { _ = a.security.Close() })

	sampler := ops.NewSampler(cfg.Audit.OpsSampleRate)
	a.ops = ops.New(a.sink,
		ops.WithSampler(sampler),
		ops.WithCircuitBreaker(ops.NewCircuitBreaker(5, 30*time.Second)),
		ops.WithMetrics(ops.NewMetrics()),
		ops.WithLogger(logger),
	)

	a.relay = worker.NewRelay(store, a.sink,
		worker.WithInterval(cfg.Audit.RelayInterval),
		worker.WithBatchSize(cfg.Audit.RelayBatchSize),
		worker.WithLogger(logger),
	)

	if cfg.Audit.ConsumeToStore {
		router := auditconsumer.NewRouter(cfg.Kafka.TopicPrefix, logger)
		router.Route(audit.CategoryCompliance, auditconsumer.NewComplianceHandler(pg, logger))
		router.Route(audit.CategorySecurity, auditconsumer.NewEventHandler(pg, logger))
		router.Route(audit.CategoryOperations, auditconsumer.NewEventHandler(pg, logger))

		c, err := kafkaconsumer.New(kafkaconsumer.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topics:  router.Topics(),
		}, router, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.consumer = c
		a.closers = append(a.closers, c.Close)
	}
	return a, nil
}

// close releases resources in reverse order of creation.
func (a *auditStack) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
