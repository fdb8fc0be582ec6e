package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/edibox/internal/content"
	"github.com/allisson/edibox/internal/database"
	"github.com/allisson/edibox/internal/edi"
	"github.com/allisson/edibox/internal/intake"
	"github.com/allisson/edibox/internal/lock"
	transactionHTTP "github.com/allisson/edibox/internal/transaction/http"
	transactionRepository "github.com/allisson/edibox/internal/transaction/repository"
	transactionService "github.com/allisson/edibox/internal/transaction/service"
	transactionUseCase "github.com/allisson/edibox/internal/transaction/usecase"
	"github.com/allisson/edibox/internal/transmission"
)

// Supported values for LOCK_DRIVER.
const (
	lockDriverLocal = "local"
	lockDriverRedis = "redis"
)

// ContentStore returns the blob-backed content store.
func (c *Container) ContentStore() (*content.Store, error) {
	var err error
	c.contentStoreInit.Do(func() {
		c.contentStore, err = c.initContentStore()
		if err != nil {
			c.initErrors["contentStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["contentStore"]; exists {
		return nil, storedErr
	}
	return c.contentStore, nil
}

// Locker returns the per-transaction locker selected by LOCK_DRIVER.
func (c *Container) Locker() (lock.Locker, error) {
	var err error
	c.lockerInit.Do(func() {
		c.locker, err = c.initLocker()
		if err != nil {
			c.initErrors["locker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["locker"]; exists {
		return nil, storedErr
	}
	return c.locker, nil
}

// RedisClient returns the Redis client used by the redis lock driver.
func (c *Container) RedisClient() redis.UniversalClient {
	c.redisClientInit.Do(func() {
		c.redisClient = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{c.config.RedisAddr},
			Password: c.config.RedisPassword,
			DB:       c.config.RedisDB,
		})
	})
	return c.redisClient
}

// Transmitter returns the outbound staging transmitter.
func (c *Container) Transmitter() (*transmission.BlobTransmitter, error) {
	var err error
	c.transmitterInit.Do(func() {
		c.transmitter, err = c.initTransmitter()
		if err != nil {
			c.initErrors["transmitter"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transmitter"]; exists {
		return nil, storedErr
	}
	return c.transmitter, nil
}

// HistorySigner returns the history signer, or nil when HISTORY_SIGNING_KEY is not set.
func (c *Container) HistorySigner() (*transactionService.HistorySigner, error) {
	var err error
	c.historySignerInit.Do(func() {
		c.historySigner, err = c.initHistorySigner()
		if err != nil {
			c.initErrors["historySigner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["historySigner"]; exists {
		return nil, storedErr
	}
	return c.historySigner, nil
}

// TransactionRepository returns the transaction repository based on database driver.
func (c *Container) TransactionRepository() (transactionUseCase.TransactionRepository, error) {
	var err error
	c.transactionRepositoryInit.Do(func() {
		c.transactionRepository, err = c.initTransactionRepository()
		if err != nil {
			c.initErrors["transactionRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transactionRepository"]; exists {
		return nil, storedErr
	}
	return c.transactionRepository, nil
}

// HistoryRepository returns the history repository based on database driver.
func (c *Container) HistoryRepository() (transactionUseCase.HistoryRepository, error) {
	var err error
	c.historyRepositoryInit.Do(func() {
		c.historyRepository, err = c.initHistoryRepository()
		if err != nil {
			c.initErrors["historyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["historyRepository"]; exists {
		return nil, storedErr
	}
	return c.historyRepository, nil
}

// LifecycleUseCase returns the transaction lifecycle use case.
func (c *Container) LifecycleUseCase() (transactionUseCase.LifecycleUseCase, error) {
	var err error
	c.lifecycleUseCaseInit.Do(func() {
		c.lifecycleUseCase, err = c.initLifecycleUseCase()
		if err != nil {
			c.initErrors["lifecycleUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["lifecycleUseCase"]; exists {
		return nil, storedErr
	}
	return c.lifecycleUseCase, nil
}

// TransactionHandler returns the HTTP handler for transaction operations.
func (c *Container) TransactionHandler() (*transactionHTTP.TransactionHandler, error) {
	var err error
	c.transactionHandlerInit.Do(func() {
		c.transactionHandler, err = c.initTransactionHandler()
		if err != nil {
			c.initErrors["transactionHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transactionHandler"]; exists {
		return nil, storedErr
	}
	return c.transactionHandler, nil
}

// EDIHandler returns the HTTP handler for stateless EDI operations.
func (c *Container) EDIHandler() *transactionHTTP.EDIHandler {
	c.ediHandlerInit.Do(func() {
		c.ediHandler = transactionHTTP.NewEDIHandler(edi.NewGenerator(), c.Logger())
	})
	return c.ediHandler
}

// MaintenanceWorker returns the worker that recovers stuck sends and purges discarded transactions.
func (c *Container) MaintenanceWorker() (*transactionUseCase.MaintenanceWorker, error) {
	var err error
	c.maintenanceWorkerInit.Do(func() {
		c.maintenanceWorker, err = c.initMaintenanceWorker()
		if err != nil {
			c.initErrors["maintenanceWorker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["maintenanceWorker"]; exists {
		return nil, storedErr
	}
	return c.maintenanceWorker, nil
}

// IntakeWatcher returns the intake directory watcher, or nil when INTAKE_WATCH_DIR is not set.
func (c *Container) IntakeWatcher() (*intake.Watcher, error) {
	var err error
	c.intakeWatcherInit.Do(func() {
		c.intakeWatcher, err = c.initIntakeWatcher()
		if err != nil {
			c.initErrors["intakeWatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["intakeWatcher"]; exists {
		return nil, storedErr
	}
	return c.intakeWatcher, nil
}

// initContentStore opens the content bucket.
func (c *Container) initContentStore() (*content.Store, error) {
	store, err := content.Open(context.Background(), c.config.ContentStoreURL, int64(c.config.ContentMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to open content store: %w", err)
	}
	return store, nil
}

// initLocker creates the locker for the configured lock driver.
func (c *Container) initLocker() (lock.Locker, error) {
	switch c.config.LockDriver {
	case lockDriverLocal, "":
		return lock.NewKeyedMutex(), nil
	case lockDriverRedis:
		return lock.NewRedisLocker(c.RedisClient(), c.config.LockTTL, c.config.LockWaitTimeout, c.Logger()), nil
	default:
		return nil, fmt.Errorf("unsupported lock driver: %s", c.config.LockDriver)
	}
}

// initTransmitter opens the outbound staging bucket.
func (c *Container) initTransmitter() (*transmission.BlobTransmitter, error) {
	maxRetries := c.config.SendMaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	transmitter, err := transmission.Open(
		context.Background(),
		c.config.OutboundStagingURL,
		transmission.Config{
			MaxRetries:      uint64(maxRetries),
			InitialInterval: c.config.SendRetryInterval,
		},
		c.Logger(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open transmitter: %w", err)
	}
	return transmitter, nil
}

// initHistorySigner unwraps the signing key through the configured KMS keeper.
func (c *Container) initHistorySigner() (*transactionService.HistorySigner, error) {
	if !c.config.SigningEnabled() {
		return nil, nil
	}
	if c.config.HistorySigningKeyURI == "" {
		return nil, fmt.Errorf("HISTORY_SIGNING_KEY_URI is required when HISTORY_SIGNING_KEY is set")
	}

	signer, err := transactionService.NewKeyLoader().LoadSigner(
		context.Background(),
		c.config.HistorySigningKeyURI,
		c.config.HistorySigningKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load history signing key: %w", err)
	}
	return signer, nil
}

// initTransactionRepository creates the transaction repository based on the database driver.
func (c *Container) initTransactionRepository() (transactionUseCase.TransactionRepository, error) {
	if c.config.DBDriver == database.DriverMemory {
		return transactionRepository.NewMemoryTransactionRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for transaction repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return transactionRepository.NewPostgreSQLTransactionRepository(db), nil
	case database.DriverMySQL:
		return transactionRepository.NewMySQLTransactionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initHistoryRepository creates the history repository based on the database driver.
func (c *Container) initHistoryRepository() (transactionUseCase.HistoryRepository, error) {
	if c.config.DBDriver == database.DriverMemory {
		return transactionRepository.NewMemoryHistoryRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for history repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return transactionRepository.NewPostgreSQLHistoryRepository(db), nil
	case database.DriverMySQL:
		return transactionRepository.NewMySQLHistoryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initLifecycleUseCase creates the lifecycle use case with all its dependencies.
func (c *Container) initLifecycleUseCase() (transactionUseCase.LifecycleUseCase, error) {
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for lifecycle use case: %w", err)
	}

	transactions, err := c.TransactionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction repository for lifecycle use case: %w", err)
	}

	history, err := c.HistoryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get history repository for lifecycle use case: %w", err)
	}

	store, err := c.ContentStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get content store for lifecycle use case: %w", err)
	}

	locker, err := c.Locker()
	if err != nil {
		return nil, fmt.Errorf("failed to get locker for lifecycle use case: %w", err)
	}

	transmitter, err := c.Transmitter()
	if err != nil {
		return nil, fmt.Errorf("failed to get transmitter for lifecycle use case: %w", err)
	}

	historySigner, err := c.HistorySigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get history signer for lifecycle use case: %w", err)
	}

	// A nil *HistorySigner must not reach the use case as a non-nil interface.
	var signer transactionUseCase.HistorySigner
	if historySigner != nil {
		signer = historySigner
	}

	useCase := transactionUseCase.NewLifecycleUseCase(
		txManager,
		transactions,
		history,
		store,
		locker,
		transmitter,
		signer,
		c.config.SendTimeout,
		logger,
	)
	useCase = transactionUseCase.NewLifecycleUseCaseWithLogging(useCase, logger)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for lifecycle use case: %w", err)
		}
		useCase = transactionUseCase.NewLifecycleUseCaseWithMetrics(useCase, businessMetrics)
	}

	return useCase, nil
}

// initTransactionHandler creates the transaction HTTP handler with all its dependencies.
func (c *Container) initTransactionHandler() (*transactionHTTP.TransactionHandler, error) {
	lifecycle, err := c.LifecycleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get lifecycle use case for transaction handler: %w", err)
	}
	return transactionHTTP.NewTransactionHandler(lifecycle, c.Logger()), nil
}

// initMaintenanceWorker creates the maintenance worker.
func (c *Container) initMaintenanceWorker() (*transactionUseCase.MaintenanceWorker, error) {
	lifecycle, err := c.LifecycleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get lifecycle use case for maintenance worker: %w", err)
	}

	return transactionUseCase.NewMaintenanceWorker(transactionUseCase.WorkerConfig{
		Interval:       c.config.WorkerInterval,
		StuckAfter:     c.config.ProcessingStuckAfter,
		PurgeAfterDays: c.config.PurgeDiscardedAfterDays,
	}, lifecycle, c.Logger()), nil
}

// initIntakeWatcher creates the intake watcher when a watch directory is configured.
func (c *Container) initIntakeWatcher() (*intake.Watcher, error) {
	if c.config.IntakeWatchDir == "" {
		return nil, nil
	}

	lifecycle, err := c.LifecycleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get lifecycle use case for intake watcher: %w", err)
	}

	watcher, err := intake.NewWatcher(intake.Config{
		Dir:      c.config.IntakeWatchDir,
		Settle:   c.config.IntakeSettle,
		MaxBytes: int64(c.config.ContentMaxBytes),
	}, lifecycle, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create intake watcher: %w", err)
	}
	return watcher, nil
}
