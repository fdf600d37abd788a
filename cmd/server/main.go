package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"veil/internal/events"
	"veil/internal/fhe"
	"veil/internal/oracle"
	oraclehandler "veil/internal/oracle/handler"
	"veil/internal/oracle/ledger"
	"veil/internal/oracle/loopback"
	"veil/internal/platform/config"
	"veil/internal/platform/httpserver"
	"veil/internal/platform/locks"
	"veil/internal/platform/logger"
	"veil/internal/platform/metrics"
	"veil/internal/platform/middleware"
	platformredis "veil/internal/platform/redis"
	"veil/internal/record"
	recordhandler "veil/internal/record/handler"
	"veil/internal/simulation"
	simulationhandler "veil/internal/simulation/handler"
	"veil/pkg/domain"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Record store: postgres when configured, in-memory otherwise.
	var recordStore record.Store = record.NewInMemoryStore()
	if cfg.DatabaseURL != "" {
		db, err := record.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		pg := record.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			log.Error("postgres migration failed", "error", err.Error())
			os.Exit(1)
		}
		recordStore = pg
		log.Info("record store: postgres")
	} else {
		log.Info("record store: in-memory")
	}

	// Request ledger: redis when configured for the cross-replica atomic
	// consume guarantee, in-memory otherwise.
	var requestLedger ledger.Ledger = ledger.NewInMemory()
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer redisClient.Close()
		requestLedger = ledger.NewRedis(redisClient.Client)
		log.Info("oracle request ledger: redis")
	} else {
		log.Info("oracle request ledger: in-memory")
	}

	// Completion events: kafka behind an async worker when configured,
	// in-memory fan-out otherwise.
	async := events.NewAsyncPublisher(256)
	var delegate events.Publisher = events.NewMemoryPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer kafka.Close()
		delegate = kafka
		log.Info("completion events: kafka", "topic", cfg.KafkaTopic)
	} else {
		log.Info("completion events: in-memory")
	}

	proofs := oracle.NewJWTProofService(cfg.OracleProofKey)
	recordLocks := locks.NewPerRecord()
	algebra := fhe.NewPlaintextAlgebra()

	// The loopback oracle answers requests itself in development mode.
	var loop *loopback.Oracle
	serviceLedger := requestLedger
	if cfg.LoopbackOracle {
		loop = loopback.New(requestLedger, algebra, proofs, nil, log)
		serviceLedger = loop
		log.Info("loopback oracle enabled")
	}

	records := record.NewService(recordStore, serviceLedger, recordLocks, async, m, log)
	simulations := simulation.NewService(
		simulation.NewInMemoryStore(), recordStore, algebra, serviceLedger, recordLocks, async, m, log)
	callbacks := oraclehandler.New(serviceLedger, proofs, records, simulations, m, log)
	if loop != nil {
		loop.SetCallback(func(ctx context.Context, requestID domain.RequestID, cleartexts []uint32, proof []byte) error {
			_, err := callbacks.OnOracleCallback(ctx, requestID, cleartexts, proof)
			return err
		})
	}

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.ContentTypeJSON)
	recordhandler.New(records, log).Register(router)
	simulationhandler.New(simulations, log).Register(router)
	callbacks.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return events.NewWorker(async, delegate, log).Run(gctx)
	})
	group.Go(func() error {
		log.Info("starting veil", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}
