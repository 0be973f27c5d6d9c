package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rentcal/internal/app/calsync"
	"rentcal/internal/app/commands"
	calendarapp "rentcal/internal/app/handlers/calendar"
	"rentcal/internal/app/middleware"
	appoutbox "rentcal/internal/app/outbox"
	"rentcal/internal/app/policies"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/session"
	"rentcal/internal/domain/calendar"
	"rentcal/internal/domain/shared/datekey"
	"rentcal/internal/infra/broker/kafka"
	rediscache "rentcal/internal/infra/cache/redis"
	"rentcal/internal/infra/config"
	mongodb "rentcal/internal/infra/db/mongo"
	"rentcal/internal/infra/db/postgres"
	ginserver "rentcal/internal/infra/http/gin"
	"rentcal/internal/infra/inbox"
	"rentcal/internal/infra/obs"
	infraoutbox "rentcal/internal/infra/outbox"
	"rentcal/internal/infra/storage/memory"
	"rentcal/internal/infra/validation"
)

const consumerName = "rentcal-invalidation"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Default()
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	if cfgErr != nil {
		logger.Warn("using fallback configuration", "error", cfgErr)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if path := os.Getenv("PERIODS_FIXTURES"); path != "" {
		if err := app.loadPeriodFixtures(ctx, path, logger); err != nil {
			logger.Warn("period fixtures load failed", "error", err, "path", path)
		}
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: app.metrics}, app.health, app.handlers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.worker.Run(gctx)
	})
	if app.consumer != nil {
		g.Go(func() error {
			return app.consumer.Run(gctx, []string{infraoutbox.TopicFor(cfg.KafkaTopicPrefix, "calendar.committed")})
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if err := app.flusher.Close(shutdownCtx); err != nil {
			logger.Error("pending commits not flushed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("service stopped with error", "error", err)
		stop()
		app.close(logger)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	health   obs.HealthHandlers
	metrics  *obs.Metrics
	flusher  *calsync.Flusher
	worker   *infraoutbox.Worker
	consumer *kafka.Consumer
	seedable *memory.PeriodStore
	closers  []func(context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		metrics: obs.NewMetrics(),
		health:  obs.HealthHandlers{Checks: make(map[string]policies.Pinger), Timeout: 2 * time.Second},
	}

	var mongoClient *mongodb.Client
	if cfg.UsesMongo() {
		c, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		mongoClient = c
		app.health.Checks["mongo"] = c
		app.closers = append(app.closers, c.Close)
	}

	remote, err := app.remoteStore(ctx, cfg, mongoClient)
	if err != nil {
		return nil, err
	}
	cache := app.localCache(cfg)

	coord := calsync.NewCoordinator(remote, cache, logger, app.metrics)

	var (
		box        appoutbox.Outbox
		queue      infraoutbox.Queue
		dedupe     kafka.Inbox
		idempStore middleware.IdempotencyStore
	)
	if mongoClient != nil {
		store, err := infraoutbox.NewStore(ctx, mongoClient.DB)
		if err != nil {
			return nil, fmt.Errorf("outbox store: %w", err)
		}
		box, queue = store, store
		in, err := inbox.NewStore(ctx, mongoClient.DB, consumerName)
		if err != nil {
			return nil, fmt.Errorf("inbox store: %w", err)
		}
		dedupe = in
		idem, err := mongodb.NewIdempotencyStore(ctx, mongoClient.DB, cfg.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("idempotency store: %w", err)
		}
		idempStore = idem
	} else {
		mem := memory.NewOutbox()
		box, queue = mem, mem
		dedupe = memory.NewInbox()
		idempStore = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}

	svc := session.NewService(session.Options{
		Store:       memory.NewSessionStore(),
		Coordinator: coord,
		Outbox:      box,
		Encoder:     appoutbox.JSONEventEncoder{Headers: map[string]string{"source": "rentcal"}},
		Clock:       func() time.Time { return time.Now().In(cfg.Location) },
		DefaultCost: cfg.DefaultCost,
		Logger:      logger,
	})
	app.flusher = calsync.NewFlusher(cfg.CommitDebounce, cfg.CommitTimeout, svc.Commit, logger)

	invalidation := &kafka.InvalidationHandler{Sessions: svc, Inbox: dedupe, Logger: logger}
	var producer infraoutbox.Producer = kafka.Loopback{Handler: invalidation}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, "rentcal", nil)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		producer = p
		app.closers = append(app.closers, func(context.Context) error { return p.Close() })

		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, invalidation, logger)
		if err != nil {
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		app.consumer = consumer
		app.closers = append(app.closers, func(context.Context) error { return consumer.Close() })
	}
	app.worker = &infraoutbox.Worker{
		Queue:       queue,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	calendarapp.Register(commandBus, queryBus, calendarapp.Deps{
		Sessions:  svc,
		Scheduler: app.flusher,
		Logger:    logger,
	})

	v := validation.New()
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(v),
		middleware.Idempotency(idempStore, nil, nil),
		middleware.OutboxFlush(box),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus, middleware.QueryValidation(v))

	app.handlers = ginserver.Handlers{
		Calendar: ginserver.CalendarHandler{
			Commands: commandBusWithMiddleware,
			Queries:  queryBusWithMiddleware,
			Logger:   logger,
		},
		Metrics: app.metrics.Handler(),
	}
	return app, nil
}

func (a *application) remoteStore(ctx context.Context, cfg config.Config, mongoClient *mongodb.Client) (policies.RemoteStore, error) {
	switch cfg.RemoteStore {
	case config.RemotePostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		store := postgres.NewPeriodStore(db)
		a.health.Checks["postgres"] = store
		return store, nil
	case config.RemoteMongo:
		store, err := mongodb.NewPeriodStore(ctx, mongoClient.DB)
		if err != nil {
			return nil, fmt.Errorf("mongo period store: %w", err)
		}
		return store, nil
	default:
		store := memory.NewPeriodStore()
		a.seedable = store
		return store, nil
	}
}

func (a *application) localCache(cfg config.Config) policies.LocalCache {
	if cfg.LocalCache != config.CacheRedis {
		return memory.NewCache()
	}
	client := rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	c := rediscache.New(client, cfg.RedisKeyPrefix, 0)
	a.health.Checks["redis"] = c
	return c
}

// close releases clients in reverse order of acquisition. It is safe to call
// more than once.
func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("client close failed", "error", err)
		}
	}
	a.closers = nil
}

type periodFixture struct {
	EntityID string `json:"entity_id"`
	Date     string `json:"date"`
	Price    int64  `json:"price"`
}

// loadPeriodFixtures seeds the in-memory remote store. Other stores are left
// alone.
func (a *application) loadPeriodFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	if a.seedable == nil {
		logger.Info("period fixtures ignored for persistent remote store", "path", path)
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("period fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("period fixtures file empty", "path", path)
		return nil
	}

	var fixtures []periodFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	recs := make([]calendar.SyncRecord, 0, len(fixtures))
	for _, fx := range fixtures {
		d, err := datekey.Parse(fx.Date)
		if err != nil || fx.EntityID == "" || fx.Price < 0 {
			logger.Warn("skipping period fixture", "entity_id", fx.EntityID, "date", fx.Date)
			continue
		}
		recs = append(recs, calendar.SyncRecord{EntityID: fx.EntityID, Date: d, Price: fx.Price})
	}
	if err := a.seedable.InsertMany(ctx, recs); err != nil {
		return fmt.Errorf("seed periods: %w", err)
	}
	logger.Info("period fixtures loaded", "records", len(recs), "path", path)
	return nil
}
