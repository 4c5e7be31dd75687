// Package bootstrap assembles the fleet services from configuration. The HTTP
// server and fleetctl both start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/config"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/services"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/db"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/events"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/lock"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/memory"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/reasoning"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Repositories groups the storage ports so tests can inject their own.
type Repositories struct {
	Workers   ports.WorkerRepository
	Tasks     ports.TaskRepository
	Cycles    ports.CycleRepository
	Proposals ports.ProposalRepository
	Metrics   ports.MetricRepository
	Audit     ports.AuditRepository
}

type Services struct {
	Config *config.Config
	Logger *logger.Logger
	Repos  Repositories
	Hub    *events.Hub

	Registry  ports.WorkerRegistry
	Router    ports.CapabilityRouter
	Tasks     ports.TaskService
	Queue     ports.QueueManager
	Evolution ports.EvolutionEngine
	Proposals ports.ProposalService
	Heartbeat ports.HeartbeatSampler

	database *gorm.DB
	redis    *redis.Client
}

// Open connects storage according to cfg and builds the services.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Services, error) {
	var (
		repos    Repositories
		database *gorm.DB
	)

	switch cfg.Database.Driver {
	case "memory":
		repos = MemoryRepositories(log)
		log.Info("using in-memory storage")
	case "postgres", "":
		conn, err := db.NewPostgresConnection(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.RunMigrations(conn); err != nil {
			_ = db.Close(conn)
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database connection established")
		database = conn
		repos = Repositories{
			Workers:   db.NewWorkerRepository(conn, log),
			Tasks:     db.NewTaskRepository(conn, log),
			Cycles:    db.NewCycleRepository(conn, log),
			Proposals: db.NewProposalRepository(conn, log),
			Metrics:   db.NewMetricRepository(conn, log),
			Audit:     db.NewAuditRepository(conn, log),
		}
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	var (
		locker ports.Locker = lock.NewLocalLocker()
		rdb    *redis.Client
	)
	// cleanup releases what was opened so far when a later step fails.
	cleanup := func() {
		opened := &Services{Logger: log, database: database, redis: rdb}
		opened.Close()
	}

	if cfg.Redis.Enabled {
		client, err := lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			cleanup()
			return nil, err
		}
		rdb = client
		locker = lock.NewRedisLocker(client, log)
		log.Infow("redis locks enabled", "addr", cfg.Redis.Addr)
	}

	var reasoner ports.ReasoningService
	if cfg.Reasoning.Provider == "gemini" {
		svc, err := reasoning.NewGeminiService(ctx, cfg.Reasoning, log.Named("reasoning"))
		if err != nil {
			log.Warnw("reasoning service unavailable, heuristic updates only", "error", err)
		} else {
			reasoner = svc
		}
	}

	table, err := routingTable(cfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	s := Build(cfg, log, repos, locker, reasoner, table)
	s.database = database
	s.redis = rdb

	if err := s.SeedFleet(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// MemoryRepositories returns repositories over one shared in-memory store.
func MemoryRepositories(log *logger.Logger) Repositories {
	store := memory.NewStore()
	return Repositories{
		Workers:   memory.NewWorkerRepository(store),
		Tasks:     memory.NewTaskRepository(store),
		Cycles:    memory.NewCycleRepository(store),
		Proposals: memory.NewProposalRepository(store),
		Metrics:   memory.NewMetricRepository(store),
		Audit:     memory.NewAuditRepository(store, log),
	}
}

// Build wires the services over already-open storage. reasoner may be nil.
func Build(cfg *config.Config, log *logger.Logger, repos Repositories, locker ports.Locker, reasoner ports.ReasoningService, table *domain.RoutingTable) *Services {
	hub := events.NewHub(0, log.Named("events"))

	registry := services.NewWorkerRegistry(services.WorkerRegistryConfig{
		Repository: repos.Workers,
		Logger:     log,
	})
	router := services.NewCapabilityRouter(services.CapabilityRouterConfig{
		Registry: registry,
		Table:    table,
		Logger:   log,
	})
	tasks := services.NewTaskService(services.TaskServiceConfig{
		Repository: repos.Tasks,
		Logger:     log,
	})
	executor := services.NewSimulatedExecutor(services.SimulatedExecutorConfig{
		Latency:     cfg.Queue.SimulatedLatency,
		FailureRate: cfg.Queue.FailureRate,
		Seed:        cfg.Queue.Seed,
	})
	queue := services.NewQueueManager(services.QueueManagerConfig{
		Tasks:            repos.Tasks,
		Registry:         registry,
		Router:           router,
		Executor:         executor,
		Events:           hub,
		Logger:           log,
		BatchSize:        cfg.Queue.BatchSize,
		MaxBatchSize:     cfg.Queue.MaxBatchSize,
		MaxBatchDuration: cfg.Queue.MaxBatchDuration,
	})

	signal := services.NewTaskOutcomeSignal(repos.Tasks)
	proposer := services.ProposerConfig{
		Reasoning: reasoner,
		Timeout:   cfg.Reasoning.Timeout,
		MaxDelta:  cfg.Evolution.MaxDelta,
		FallbackDelta: map[domain.Cadence]float64{
			domain.CadenceMicro:     cfg.Evolution.FallbackDelta.Micro,
			domain.CadenceTactical:  cfg.Evolution.FallbackDelta.Tactical,
			domain.CadenceStrategic: cfg.Evolution.FallbackDelta.Strategic,
		},
		Logger: log,
	}
	evolution := services.NewEvolutionEngine(services.EvolutionEngineConfig{
		Registry: registry,
		Signal:   signal,
		Cycles:   repos.Cycles,
		Audit:    repos.Audit,
		Locker:   locker,
		Events:   hub,
		Proposer: proposer,
		Selection: services.SelectionLimits{
			MicroCap:           cfg.Evolution.MicroCap,
			TacticalPool:       cfg.Evolution.TacticalPool,
			TacticalPerGroup:   cfg.Evolution.TacticalPerGroup,
			StrategicCap:       cfg.Evolution.StrategicCap,
			StrategicThreshold: cfg.Evolution.StrategicThreshold,
		},
		LockTTL:          cfg.Evolution.LockTTL,
		MaxCycleDuration: cfg.Evolution.MaxCycleDuration,
		Logger:           log,
	})
	proposals := services.NewProposalService(services.ProposalServiceConfig{
		Proposals: repos.Proposals,
		Registry:  registry,
		Signal:    signal,
		Audit:     repos.Audit,
		Locker:    locker,
		Events:    hub,
		Proposer:  proposer,
		LockTTL:   cfg.Evolution.LockTTL,
		Logger:    log,
	})
	heartbeat := services.NewHeartbeatSampler(services.HeartbeatSamplerConfig{
		Registry:            registry,
		Metrics:             repos.Metrics,
		Events:              hub,
		Logger:              log,
		Seed:                cfg.Heartbeat.Seed,
		WarningThreshold:    cfg.Heartbeat.WarningThreshold,
		RecoveryThreshold:   cfg.Heartbeat.RecoveryThreshold,
		RecoveryProbability: cfg.Heartbeat.RecoveryProbability,
	})

	return &Services{
		Config:    cfg,
		Logger:    log,
		Repos:     repos,
		Hub:       hub,
		Registry:  registry,
		Router:    router,
		Tasks:     tasks,
		Queue:     queue,
		Evolution: evolution,
		Proposals: proposals,
		Heartbeat: heartbeat,
	}
}

// SeedFleet upserts the configured fleet file by worker name. Existing
// workers are left untouched.
func (s *Services) SeedFleet(ctx context.Context) error {
	path := s.Config.Fleet.SeedPath
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		s.Logger.Warnw("fleet seed file not found, skipping", "path", path)
		return nil
	}
	seeds, err := config.LoadFleetSeed(path)
	if err != nil {
		return err
	}
	created, err := s.Registry.Seed(ctx, config.SeedWorkers(seeds))
	if err != nil {
		return err
	}
	s.Logger.Infow("fleet seeded", "path", path, "workers", len(seeds), "created", created)
	return nil
}

func (s *Services) Close() {
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.Logger.Errorf("failed to close redis client: %v", err)
		}
	}
	if s.database != nil {
		if err := db.Close(s.database); err != nil {
			s.Logger.Errorf("failed to close database connection: %v", err)
		}
	}
}

func routingTable(cfg *config.Config) (*domain.RoutingTable, error) {
	var table domain.RoutingTable
	if cfg.Routing.TablePath != "" {
		loaded, err := config.LoadRoutingTable(cfg.Routing.TablePath)
		if err != nil {
			return nil, err
		}
		table = *loaded
	} else {
		table = services.DefaultRoutingTable()
	}
	if cfg.Routing.DefaultWorker != "" {
		table.DefaultWorker = cfg.Routing.DefaultWorker
	}
	return &table, nil
}
