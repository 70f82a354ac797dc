package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"chatpay.backend/internal/config"
	"chatpay.backend/internal/domain/repositories"
	"chatpay.backend/internal/infrastructure/blockchain"
	"chatpay.backend/internal/infrastructure/jobs"
	"chatpay.backend/internal/infrastructure/models"
	infrarepos "chatpay.backend/internal/infrastructure/repositories"
	"chatpay.backend/internal/usecases"
	"chatpay.backend/pkg/keystore"
	"chatpay.backend/pkg/logger"
	"chatpay.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	}
	getStdDB   = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
	newChainDB = blockchain.NewEVMClient
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := loadCfg()

	// Initialize Logger
	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	// Connect to database using GORM
	dsn := cfg.Database.URL()
	db, err := openDB(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("⚠️ Database not available: %v", err)
	} else {
		log.Println("✅ Connected to PostgreSQL via GORM")
	}

	if err := db.AutoMigrate(
		&models.Wallet{},
		&models.WalletBalance{},
		&models.Asset{},
		&models.Transaction{},
		&models.NonceRecord{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize repositories
	walletRepo := infrarepos.NewWalletRepository(db)
	assetRepo := infrarepos.NewAssetRepository(db)
	txRepo := infrarepos.NewTransactionRepository(db)
	nonceRepo := infrarepos.NewNonceRecordRepository(db)
	uow := infrarepos.NewUnitOfWork(db)

	// Pick the nonce lease backend. Redis leases expire server-side; the
	// SQL backend needs the cleanup job to sweep leases of dead holders.
	var lockStore repositories.LockStore
	var lockCleaner repositories.ExpiredLockCleaner
	switch cfg.Nonce.LockBackend {
	case "redis":
		if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		logger.Info(context.Background(), "Redis initialized")
		lockStore = redis.NewLockStore()
	case "postgres":
		sqlLocks := infrarepos.NewNonceLockStore(db)
		lockStore = sqlLocks
		lockCleaner = sqlLocks
	default:
		return fmt.Errorf("unknown nonce lock backend %q", cfg.Nonce.LockBackend)
	}

	// Initialize blockchain client
	chainClient, err := newChainDB(cfg.Blockchain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to chain RPC: %w", err)
	}
	defer chainClient.Close()
	pricer := blockchain.NewGasPricer(chainClient)
	submitter := blockchain.NewSubmitter(chainClient, pricer)

	// Initialize keystore
	if cfg.Wallet.KeystoreSecret == "" {
		return fmt.Errorf("WALLET_KEYSTORE_SECRET is required")
	}
	keys, err := keystore.New(cfg.Wallet.KeystoreSecret, cfg.Wallet.KeystoreSalt)
	if err != nil {
		return fmt.Errorf("failed to initialize keystore: %w", err)
	}

	dailyLimit, err := decimal.NewFromString(cfg.Wallet.DefaultDailyLimitUSD)
	if err != nil {
		return fmt.Errorf("invalid WALLET_DAILY_LIMIT_USD: %w", err)
	}

	// Initialize usecases
	nonceCoordinator := usecases.NewNonceCoordinator(
		nonceRepo, lockStore, lockCleaner, chainClient,
		cfg.Nonce.LeaseTTL, cfg.Nonce.AcquireAttempts, cfg.Nonce.AcquireBackoff,
	)
	ledger := usecases.NewBalanceLedger(walletRepo)
	txService := usecases.NewWalletTransactionService(
		walletRepo, assetRepo, txRepo, uow,
		nonceCoordinator, ledger, submitter, keys,
		blockchain.GasTier(cfg.Blockchain.GasTier), dailyLimit,
	)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cleanupJob *jobs.NonceLockCleanupJob
	if lockCleaner != nil {
		cleanupJob = jobs.NewNonceLockCleanupJob(nonceCoordinator, cfg.Nonce.CleanupInterval)
		go cleanupJob.Start(ctx)
	}

	// Expose Prometheus metrics plus operator diagnostics. This is not the
	// service API; callers embed the usecases directly.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("GET /ops/wallets/{id}/nonce", func(w http.ResponseWriter, r *http.Request) {
			walletID, err := uuid.Parse(r.PathValue("id"))
			if err != nil {
				http.Error(w, "invalid wallet id", http.StatusBadRequest)
				return
			}
			info, err := txService.GetNonceInfo(r.Context(), walletID)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(info)
		})
		mux.HandleFunc("POST /ops/nonce/sync", func(w http.ResponseWriter, r *http.Request) {
			address := r.URL.Query().Get("address")
			if address == "" {
				http.Error(w, "address is required", http.StatusBadRequest)
				return
			}
			record, err := nonceCoordinator.Sync(r.Context(), address)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(record)
		})
		if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil {
			logger.Error(ctx, "metrics listener stopped", zap.Error(err))
		}
	}()

	log.Println("🚀 Wallet transaction service started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")
	if cleanupJob != nil {
		cleanupJob.Stop()
	}
	cancel()
	return nil
}
