package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/api"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/bank"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/config"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/database"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/esign"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/lock"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/logging"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/notify"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/scheduler"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/secret"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/service"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/storage"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/version"
)

// spvCacheTTL is how long resolved SPV configuration stays cached.
const spvCacheTTL = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logging.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logging.Component("server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	schemaVersion, err := database.Migrate(ctx, db)
	if err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	log.WithFields(logrus.Fields{
		"path":           cfg.Database.Path,
		"schema_version": schemaVersion,
		"app_version":    version.Version,
	}).Info("connected to database")

	box, err := secret.New(cfg.Secrets.BankDataKey)
	if err != nil {
		log.WithError(err).Fatal("BANK_DATA_KEY must hold a valid fernet key")
	}

	// External collaborators. Each has a local fallback for development.
	var store storage.Store
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			PresignTTL:      cfg.Storage.PresignTTL,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to configure document store")
		}
		store = s3Store
	} else {
		log.Warn("S3_BUCKET not set, agreements are kept in memory")
		store = storage.NewMemoryStore("http://" + cfg.Server.Addr + "/documents")
	}

	var notifier notify.Notifier
	if cfg.Notifications.RabbitMQURL != "" {
		pub, err := notify.NewPublisher(cfg.Notifications.RabbitMQURL, cfg.Notifications.Queue)
		if err != nil {
			log.WithError(err).Fatal("failed to connect notification queue")
		}
		defer pub.Close()
		notifier = pub
	} else {
		log.Warn("RABBITMQ_URL not set, notifications are logged only")
		notifier = notify.NewLogNotifier(logging.Component("notify"))
	}

	var locker lock.Locker
	if cfg.Lock.RedisAddr != "" {
		rl, err := lock.NewRedisLocker(ctx, cfg.Lock.RedisAddr, cfg.Lock.RedisPassword)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to Redis")
		}
		defer rl.Close()
		locker = rl
	} else {
		log.Warn("REDIS_ADDR not set, batch locks are process-local")
		locker = lock.NewLocalLocker()
	}

	bankClient := bank.NewHTTPClient(cfg.Bank.BaseURL, cfg.Bank.APIKey, cfg.Bank.RateLimit, cfg.Bank.Timeout, logging.Component("bank"))
	esignClient := esign.NewHTTPClient(cfg.ESign.BaseURL, cfg.ESign.APIKey, cfg.ESign.WebhookSecret, cfg.ESign.Timeout)

	// Create repositories
	spvRepo := repository.NewSPVRepository(db)
	ledgerRepo := repository.NewShareLedgerRepository(db)
	distRepo := repository.NewDistributionRepository(db)
	bankRepo := repository.NewBankAccountRepository(db, box)

	// Create services
	events := service.NewEvents(repository.NewAuditRepository(db), notifier, logging.Component("events"))
	spvService := service.NewSPVService(spvRepo, cfg.Distribution.DefaultFaceValue, spvCacheTTL)
	signingService := service.NewSigningService(
		spvService,
		ledgerRepo,
		repository.NewSigningRepository(db),
		store,
		esignClient,
		events,
		logging.Component("signing"),
	)
	allocationService := service.NewAllocationService(
		db,
		repository.NewPaymentRepository(db),
		ledgerRepo,
		spvService,
		signingService,
		events,
		logging.Component("allocation"),
	)
	distributionService := service.NewDistributionService(
		db,
		spvRepo,
		distRepo,
		[]service.ShareholderSource{
			service.NewLedgerSource(ledgerRepo),
			service.NewCapTableSource(repository.NewCapTableRepository(db)),
		},
		cfg.Distribution.DefaultTDSRate,
		events,
		logging.Component("distribution"),
	)
	approvalService := service.NewApprovalService(distRepo, events, logging.Component("approval"))
	payoutService := service.NewPayoutService(
		distRepo,
		bankRepo,
		bankClient,
		locker,
		cfg.Lock.BatchTTL,
		events,
		logging.Component("payout"),
	)
	projectService := service.NewProjectService(repository.NewProjectRepository(db), events, logging.Component("project"))

	sched := scheduler.New(logging.Component("scheduler"))
	if err := sched.AddSigningExpiry(cfg.Scheduler.SigningExpirySweep, signingService); err != nil {
		log.WithError(err).Fatal("failed to schedule signing expiry")
	}
	sched.Start()

	// Create router
	router := api.NewRouter(api.Services{
		System:       service.NewSystemService(db),
		Allocation:   allocationService,
		Signing:      signingService,
		Distribution: distributionService,
		Approval:     approvalService,
		Payout:       payoutService,
		Project:      projectService,
	}, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // payout batches wait on the bank
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	sched.Stop(shutdownCtx)

	log.Info("server exited")
}
