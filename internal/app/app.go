package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NouvelleRive/nouvelle-rive-sub001/internal/cfg"
	v1Grpc "github.com/NouvelleRive/nouvelle-rive-sub001/internal/delivery/v1/grpc"
	v1Http "github.com/NouvelleRive/nouvelle-rive-sub001/internal/delivery/v1/http"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/infrastructure/channels/marketplace"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/infrastructure/channels/pos"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/infrastructure/kafka"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/infrastructure/metrics"
	minioInfra "github.com/NouvelleRive/nouvelle-rive-sub001/internal/infrastructure/minio"
	s3Repo "github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/minio"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/pgdb"
	pgdbConv "github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/pgdb/converter"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/repository/redis"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/clients"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/closer"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/postgres"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/telemetry"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const healthProbePeriod = 10 * time.Second

// App — собранный сервис: серверы, фоновые воркеры и порядок их остановки.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer
	worker  *kafka.OutboxWorker

	// отменяет фоновые горутины: outbox-воркер и health-пробы gRPC
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// NewApp подключается к зависимостям и собирает сценарии. Ресурсы, открытые до ошибки,
// закрываются здесь же.
func NewApp(cfg *config.Config, log logger.Logger) (_ *App, err error) {
	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(cfg.Reconciliation.ShutdownTimeout),
	}
	a.bgCtx, a.bgCancel = context.WithCancel(context.Background())

	defer func() {
		if err != nil {
			a.bgCancel()
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Reconciliation.ShutdownTimeout)
			defer cancel()
			if cerr := a.closer.Close(ctx); cerr != nil {
				log.Warnf("cleanup after failed start: %v", cerr)
			}
		}
	}()

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	shutdownTracer, err := telemetry.Setup(initCtx, cfg.Telemetry)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("tracer", closer.Func(shutdownTracer))

	db, err := initPGDB(initCtx, log, cfg)
	if err != nil {
		return nil, err
	}
	a.closer.Add("postgres", db.Close)

	redisClient := clients.NewRedisClient(cfg.Redis)
	a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })
	if err := redisClient.Ping(initCtx); err != nil {
		log.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// Репозитории
	productRepo := pgdb.NewProductRepo(db.Pool, pgdbConv.ProductConverter{})
	saleRepo := pgdb.NewSaleRepo(db.Pool, pgdbConv.SaleConverter{})
	orderRepo := pgdb.NewOrderRepo(db.Pool, pgdbConv.OrderConverter{})
	depositorRepo := pgdb.NewDepositorRepo(db.Pool)
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.OutboxEventConverter{})

	depositorCache := redis.NewDepositorCacheRepo(redisClient, cfg.Redis, log)
	eventStore := redis.NewEventStore(redisClient, cfg.Redis)
	sessions := redis.NewCheckoutSessionRepo(redisClient, cfg.Redis)

	trm := tr.NewManager(db.Pool)
	mtr := metrics.New()
	loc := cfg.Reconciliation.Location

	archive, err := a.initArchive(initCtx, loc)
	if err != nil {
		return nil, err
	}

	// Каналы
	var (
		catalog   usecase.POSCatalog
		delisters []usecase.ChannelDelister
	)
	if cfg.POS.AccessToken != "" {
		posClient := pos.NewClient(cfg.POS, log)
		catalog = posClient
		delisters = append(delisters, posClient)
	} else {
		log.Warnf("POS access token is not set, POS delisting and catalog lookups are disabled")
	}
	if cfg.Marketplace.AccessToken != "" {
		delisters = append(delisters, marketplace.NewClient(cfg.Marketplace, log))
	} else {
		log.Warnf("marketplace access token is not set, marketplace delisting is disabled")
	}

	dispatcher := usecase.NewDelistingDispatcher(cfg.Reconciliation.DelistTimeout, mtr, log, delisters...)
	a.closer.Add("delisting", dispatcher.Wait)

	// Сценарии
	registry := usecase.NewDepositorRegistry(depositorRepo, depositorCache, cfg.Redis.DepositorTTL, log)
	engine := usecase.NewDispositionEngine(
		productRepo,
		saleRepo,
		outboxRepo,
		trm,
		registry,
		mtr,
		log,
		cfg.Reconciliation.DispositionAttempts,
	)

	ingestUC := usecase.NewIngestUseCase(engine, dispatcher, productRepo, saleRepo, outboxRepo, eventStore, catalog, trm, mtr, log)
	saleUC := usecase.NewSaleUseCase(saleRepo, productRepo, outboxRepo, engine, dispatcher, archive, catalog, trm, registry, mtr, log)
	importUC := usecase.NewImportUseCase(saleRepo, productRepo, outboxRepo, trm, registry, mtr, log, loc, cfg.Reconciliation.ImportMaxRows)
	dedupeUC := usecase.NewDedupeUseCase(saleRepo, outboxRepo, archive, trm, mtr, log, loc, cfg.Reconciliation.DedupeBatchSize)

	promo := usecase.NewPromotionCalculator(orderRepo, usecase.PromotionRules{
		DeliveryFee:     cfg.Promotion.DeliveryFee,
		DiscountPercent: cfg.Promotion.DiscountPercent,
		MinPriorOrders:  cfg.Promotion.MinPriorOrders,
	}, loc)
	checkoutUC := usecase.NewCheckoutUseCase(productRepo, orderRepo, sessions, eventStore, promo, engine, dispatcher, log, cfg.Storefront.CheckoutURL)

	// Outbox -> Kafka
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(log, cfg.Kafka)
		a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })

		if err := producer.EnsureTopic(10 * time.Second); err != nil {
			log.Warnf("failed to ensure kafka topic %s: %v", cfg.Kafka.Topic, err)
		}

		a.worker = kafka.NewOutboxWorker(outboxRepo, log, producer, db.Dsn, cfg.Kafka.OutboxBatchSize, cfg.Kafka.OutboxPollPeriod)
		a.closer.Add("outbox worker", func(ctx context.Context) error {
			return waitOrTimeout(ctx, a.worker.Wait)
		})
	} else {
		log.Warnf("KAFKA_BROKERS is not set, sale events stay in the outbox table")
	}

	healthChecks := []v1Http.HealthCheck{
		{Name: "postgres", Check: db.Ping},
		{Name: "redis", Check: redisClient.Ping},
	}

	r := chi.NewRouter()
	v1Http.NewRouter(r, log).Init(v1Http.Deps{
		Ingest:    ingestUC,
		Sales:     saleUC,
		Import:    importUC,
		Dedupe:    dedupeUC,
		Checkout:  checkoutUC,
		Snapshots: registry,
		Secrets: v1Http.WebhookSecrets{
			POS:                    cfg.POS.WebhookSecret,
			Marketplace:            cfg.Marketplace.WebhookSecret,
			Storefront:             cfg.Storefront.WebhookSecret,
			MarketplaceToken:       cfg.Marketplace.VerificationToken,
			MarketplaceEndpointURL: cfg.Marketplace.EndpointURL,
		},
		Location:     loc,
		MaxBodyBytes: cfg.Http.MaxBodyBytes,
		Metrics:      mtr.Handler(),
		Observer:     mtr,
		HealthChecks: healthChecks,
	})

	a.grpcSrv = v1Grpc.NewGRPCServer(cfg.Grpc, func(ctx context.Context) error {
		for _, hc := range healthChecks {
			if err := hc.Check(ctx); err != nil {
				return e.Wrap(hc.Name, err)
			}
		}
		return nil
	}, healthProbePeriod, log)
	a.closer.Add("grpc server", a.grpcSrv.Stop)

	a.httpSrv = v1Http.NewServer(r, cfg.Http)
	a.closer.Add("http server", a.httpSrv.Stop)

	return a, nil
}

// Run запускает серверы и блокируется до сигнала остановки или фатальной ошибки сервера.
func (a *App) Run() error {
	log := a.logger

	if a.worker != nil {
		a.worker.Start(a.bgCtx)
	}
	go a.grpcSrv.Watch(a.bgCtx)

	errCh := make(chan error, 2)
	go func() {
		log.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			errCh <- e.Wrap("grpc server", err)
		}
	}()
	go func() {
		log.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- e.Wrap("http server", err)
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		log.Errorf(appErr, "server fatal error")
	case sig := <-shutdown:
		log.Infof("Received %s, stopping gracefully...", sig)
	}

	// === Graceful shutdown ===
	// серверы перестают принимать запросы, затем дожидаемся снятий с продажи и outbox
	a.bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Reconciliation.ShutdownTimeout)
	defer cancel()

	if err := a.closer.Close(ctx); err != nil {
		log.Errorf(err, "shutdown finished with errors")
		if appErr == nil {
			appErr = err
		}
	}

	log.Infof("Application shutdown complete")
	_ = log.Sync()

	return appErr
}

// initArchive возвращает архив удалённых продаж или nil, если MinIO не настроен.
func (a *App) initArchive(ctx context.Context, loc *time.Location) (usecase.ArchiveInfra, error) {
	if !a.cfg.Minio.Enabled {
		a.logger.Warnf("MINIO_ENDPOINT is not set, sale archiving is disabled: dedupe apply and sale deletion will be refused")
		return nil, nil
	}

	minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
	if err != nil {
		a.logger.Errorf(err, "failed to initialize minio client")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := clients.EnsureBucket(ctx, minioClient, a.cfg.Minio.BucketName); err != nil {
		a.logger.Errorf(err, "failed to initialize MinIO bucket")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	repo := s3Repo.NewArchiveRepo(minioClient, a.cfg.Minio)
	return minioInfra.NewArchiveInfrastructure(repo, a.cfg.Minio.MaxRetries, loc, a.logger), nil
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger, cfg.Db.MigrationsURL); err != nil {
		logger.Errorf(err, "failed to run migrations")
		_ = db.Close(ctx)
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

// waitOrTimeout ждёт wait, но не дольше ctx.
func waitOrTimeout(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
