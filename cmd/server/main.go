// Command server is the single HTTP binary for the verifiable-credential
// presentation service: it wires every component package
// (pkg/orchestrator, pkg/verifier, pkg/store, ...) behind the gin router
// internal/api builds, using an envconfig-driven Config, a zap logger
// built once and threaded down, gin.New()+gin.Recovery(), and a graceful
// shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/verza/zkcreds/internal/api"
	"github.com/verza/zkcreds/internal/config"
	"github.com/verza/zkcreds/pkg/blockchain"
	"github.com/verza/zkcreds/pkg/instances"
	"github.com/verza/zkcreds/pkg/kms"
	"github.com/verza/zkcreds/pkg/orchestrator"
	"github.com/verza/zkcreds/pkg/prover"
	"github.com/verza/zkcreds/pkg/registry"
	"github.com/verza/zkcreds/pkg/scriptgen"
	"github.com/verza/zkcreds/pkg/security"
	"github.com/verza/zkcreds/pkg/store"
	"github.com/verza/zkcreds/pkg/sync"
	"github.com/verza/zkcreds/pkg/verifier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := buildLogger(cfg.Env)
	defer logger.Sync()

	db, err := store.New(cfg.StoreConfig(), logger)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	migrator, err := store.NewMigrator(db, logger)
	if err != nil {
		logger.Fatal("build migrator", zap.Error(err))
	}
	if err := migrator.Apply(context.Background()); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	reg, prv := mustBuildChainCollaborators(cfg, logger)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	}

	srv := &api.Server{
		Logger:        logger,
		Orchestrator:  orchestrator.New(prv, redisClient, logger),
		Verifier:      verifier.New(prv, reg),
		Prover:        prv,
		Store:         db,
		Registry:      reg,
		Materialiser:  instances.New(db, logger),
		Synchroniser:  sync.New(db, reg, cfg.Chain.AccountID, logger),
		ScriptGen:     scriptgen.New(&scriptgen.StaticClient{Err: errUnconfiguredScriptGen}),
		IssuerAccount: cfg.Chain.AccountID,
		RateLimiter:   security.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("starting zkcreds server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exiting")
}

func buildLogger(env string) *zap.Logger {
	if env == "dev" {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return logger
}

// errUnconfiguredScriptGen is returned by the placeholder scriptgen client
// this binary wires in by default: the LLM call behind /holder/genscript
// is treated as an external collaborator, so no real provider is wired
// here. Deployments that want /holder/genscript to work replace this
// with a real scriptgen.Client implementation.
var errUnconfiguredScriptGen = &scriptGenUnconfiguredError{}

type scriptGenUnconfiguredError struct{}

func (*scriptGenUnconfiguredError) Error() string {
	return "no script generation provider is configured for this deployment"
}

// mustBuildChainCollaborators builds the EVM-backed registry client and the
// prover this process seals receipts with. The registry's mutating calls
// sign with the wallet private key; the prover signs through the KMS key
// named by cfg.ProverKeyID, a separate signing identity.
func mustBuildChainCollaborators(cfg *config.Config, logger *zap.Logger) (registry.Registry, prover.Prover) {
	privateKey, err := cfg.Chain.LoadWalletPrivateKey()
	if err != nil {
		logger.Fatal("load wallet private key", zap.Error(err))
	}

	chainClient, err := blockchain.NewClient(cfg.Chain.BlockchainClientConfig(privateKey), logger)
	if err != nil {
		logger.Fatal("build blockchain client", zap.Error(err))
	}

	reg, err := registry.NewEthRegistry(chainClient, cfg.Chain.RegistryAddress, logger)
	if err != nil {
		logger.Fatal("build registry client", zap.Error(err))
	}

	kmsClient, err := kms.NewFactory().Create(logger, cfg.KMS)
	if err != nil {
		logger.Fatal("build kms client", zap.Error(err))
	}

	prv, err := prover.NewKMSProver(context.Background(), kmsClient, cfg.ProverKeyID)
	if err != nil {
		logger.Fatal("build prover", zap.Error(err))
	}

	return reg, prv
}
