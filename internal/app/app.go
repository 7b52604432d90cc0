package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/storefront-sync/internal/cfg"
	v1Http "github.com/DRSN-tech/storefront-sync/internal/delivery/v1/http"
	"github.com/DRSN-tech/storefront-sync/internal/infrastructure/broadcast"
	"github.com/DRSN-tech/storefront-sync/internal/infrastructure/kafka"
	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	s3Repo "github.com/DRSN-tech/storefront-sync/internal/repository/minio"
	"github.com/DRSN-tech/storefront-sync/internal/repository/pgdb"
	"github.com/DRSN-tech/storefront-sync/internal/repository/redis"
	"github.com/DRSN-tech/storefront-sync/internal/usecase"
	"github.com/DRSN-tech/storefront-sync/pkg/clients"
	"github.com/DRSN-tech/storefront-sync/pkg/closer"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/DRSN-tech/storefront-sync/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
	forcedTimeout   = 5 * time.Second
)

// App — процесс админки, витрины или обеих сразу (APP_ROLE).
// Каждая роль — отдельный контекст выполнения со своим экземпляром шины.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	httpSrv *v1Http.Server

	catalog *usecase.CatalogUseCase
	mirror  *usecase.MirrorUseCase
	cart    *usecase.CartUseCase

	storeSubs []usecase.Subscriber
}

func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		closer: closer.NewCloser(forcedTimeout),
	}

	if err := a.init(); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := a.closer.Close(shutdownCtx); cerr != nil {
			logger.Warnf("cleanup after failed start: %v", cerr)
		}
		return nil, err
	}

	return a, nil
}

func (a *App) init() error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	redisClient := clients.NewRedisClient(a.cfg.Redis)
	a.closer.AddFunc("redis", redisClient.Close)
	if err := redisClient.Ping(ctx); err != nil {
		a.logger.Errorf(err, "failed to connect to redis")
		return e.Wrap(whereami.WhereAmI(), err)
	}

	store, err := a.initStore(ctx, redisClient)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	var (
		storeBus  *broadcast.Bus
		storeChan *kafka.WindowChannel
	)
	if a.cfg.App.HasStorefront() {
		storeBus = broadcast.NewBus(redisClient, a.cfg.Sync.Channel, a.logger.With("role", "storefront"))
		a.closer.AddFunc("storefront bus", storeBus.Close)
		a.storeSubs = append(a.storeSubs, storeBus)

		if a.cfg.Kafka != nil {
			storeChan = kafka.NewWindowChannel(a.logger.With("role", "storefront"), a.cfg.Kafka, storeBus.ContextID(), "")
			if err := storeChan.EnsureTopic(startupTimeout); err != nil {
				a.logger.Errorf(err, "failed to ensure window channel topic")
				return e.Wrap(whereami.WhereAmI(), err)
			}
			a.closer.AddFunc("storefront window channel", storeChan.Close)
			a.storeSubs = append(a.storeSubs, storeChan)
		}

		a.logger.Infof("storefront context id: %s", storeBus.ContextID())
	}

	var catalogUC usecase.CatalogUC
	if a.cfg.App.HasAdmin() {
		catalog, err := a.initCatalog(ctx, redisClient, store, storeBus)
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		a.catalog = catalog
		catalogUC = catalog
	}

	var (
		storefrontUC usecase.StorefrontUC
		cartUC       usecase.CartUC
	)
	if a.cfg.App.HasStorefront() {
		a.mirror = usecase.NewMirrorUC(store, a.logger.With("component", "mirror"))
		if err := a.mirror.Refresh(ctx); err != nil {
			a.logger.Errorf(err, "initial storefront refresh failed")
			return e.Wrap(whereami.WhereAmI(), err)
		}

		a.cart = usecase.NewCartUC(store, a.logger.With("component", "cart"))
		if err := a.cart.Load(ctx); err != nil {
			a.logger.Errorf(err, "failed to load cart")
			return e.Wrap(whereami.WhereAmI(), err)
		}

		storefrontUC = a.mirror
		cartUC = a.cart
	}

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, a.logger)
	router.Init(catalogUC, storefrontUC, cartUC)

	a.httpSrv = v1Http.NewServer(r, a.cfg.Http)
	a.closer.Add("http server", a.httpSrv.Stop)

	return nil
}

// initStore выбирает бэкенд хранилища по STORE_DRIVER.
func (a *App) initStore(ctx context.Context, redisClient *clients.RedisClient) (*keyed.Store, error) {
	switch a.cfg.Store.Driver {
	case config.DriverRedis:
		return keyed.NewStore(redis.NewKVRepo(redisClient), a.cfg.Store.Namespace, a.logger), nil
	case config.DriverPostgres:
		db, err := initPGDB(ctx, a.logger, a.cfg)
		if err != nil {
			return nil, err
		}
		a.closer.AddFunc("postgres", func() error {
			db.Close()
			return nil
		})
		return keyed.NewStore(pgdb.NewKVRepo(db.Pool), a.cfg.Store.Namespace, a.logger), nil
	default:
		return nil, e.Wrap(a.cfg.Store.Driver, e.ErrUnknownStoreDriver)
	}
}

// initCatalog собирает каталог админки со своей шиной, прямым каналом к opener и выгрузкой в MinIO.
func (a *App) initCatalog(
	ctx context.Context,
	redisClient *clients.RedisClient,
	store *keyed.Store,
	storeBus *broadcast.Bus,
) (*usecase.CatalogUseCase, error) {
	log := a.logger.With("role", "admin")

	adminBus := broadcast.NewBus(redisClient, a.cfg.Sync.Channel, log)
	a.closer.AddFunc("admin bus", adminBus.Close)

	var opener usecase.OpenerNotifier
	if a.cfg.Kafka != nil {
		target := a.cfg.App.OpenerID
		if target == "" && storeBus != nil {
			target = storeBus.ContextID()
		}
		if target != "" {
			ch := kafka.NewWindowChannel(log, a.cfg.Kafka, adminBus.ContextID(), target)
			a.closer.AddFunc("admin window channel", ch.Close)
			opener = ch
		}
	}

	var exports usecase.ExportRepository
	if a.cfg.Minio != nil {
		minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
		if err != nil {
			log.Errorf(err, "failed to initialize minio client")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		if err := clients.EnsureBucket(ctx, minioClient, a.cfg.Minio.BucketName); err != nil {
			log.Errorf(err, "failed to initialize MinIO bucket")
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		exports = s3Repo.NewExportRepo(minioClient, a.cfg.Minio)
	}

	catalog := usecase.NewCatalogUC(store, adminBus, opener, exports, log.With("component", "catalog"))
	if err := catalog.Load(ctx); err != nil {
		log.Errorf(err, "failed to load catalog")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := catalog.AutoSyncOnLoad(ctx); err != nil {
		log.Warnf("auto sync on load failed: %v", err)
	}

	return catalog, nil
}

// Run запускает фоновые подписки и HTTP-сервер и ждёт сигнала остановки.
func (a *App) Run() error {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	a.closer.AddFunc("background workers", func() error {
		bgCancel()
		return nil
	})

	if a.mirror != nil {
		if err := a.mirror.Listen(bgCtx, a.storeSubs...); err != nil {
			a.logger.Errorf(err, "failed to subscribe storefront")
			a.shutdown()
			return e.Wrap(whereami.WhereAmI(), err)
		}
		go a.mirror.RunPolling(bgCtx, a.cfg.Sync.PollInterval, a.cfg.Sync.PollJitter)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s, role: %s", a.cfg.Http.Port, a.cfg.App.Role)
		if err := a.httpSrv.Run(); err != nil {
			a.logger.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	a.shutdown()
	return appErr
}

func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
		return
	}
	a.logger.Infof("Application shutdown complete")
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
