package reducer

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/canopy-network/liquidityx/app/reducer/activity"
	"github.com/canopy-network/liquidityx/app/reducer/types"
	"github.com/canopy-network/liquidityx/app/reducer/workflow"
	"github.com/canopy-network/liquidityx/pkg/config"
	dbreducer "github.com/canopy-network/liquidityx/pkg/db/reducer"
	"github.com/canopy-network/liquidityx/pkg/logging"
	"github.com/canopy-network/liquidityx/pkg/metrics"
	"github.com/canopy-network/liquidityx/pkg/redis"
	"github.com/canopy-network/liquidityx/pkg/rpc"
	"github.com/canopy-network/liquidityx/pkg/temporal"
	"github.com/canopy-network/liquidityx/pkg/utils"
	"github.com/canopy-network/liquidityx/pkg/utxo"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.temporal.io/sdk/worker"
	temporalworkflow "go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

type App struct {
	Config         config.Config
	Worker         worker.Worker
	TemporalClient *temporal.Client
	Cron           *cron.Cron
	Server         *http.Server
	Logger         *zap.Logger

	ready   atomic.Bool
	closers []func() error
}

// Initialize wires the reducer worker from the environment. Any failure here
// is fatal.
func Initialize(ctx context.Context) *App {
	logger, err := logging.NewService("reducer")
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	logger = logger.With(zap.String("pipeline", cfg.PipelineID))
	app := &App{Config: cfg, Logger: logger}

	var rc *redis.Client
	if needsRedis(cfg) {
		if rc, err = redis.NewClient(ctx, logger); err != nil {
			logger.Fatal("Unable to connect to Redis", zap.Error(err))
		}
		app.closers = append(app.closers, rc.Close)
	}

	var store dbreducer.Store
	if cfg.HasSink(config.SinkClickHouse) {
		db, err := dbreducer.New(ctx, logger, cfg.PipelineID, "reducer")
		if err != nil {
			logger.Fatal("Unable to initialize reducer database", zap.Error(err))
		}
		store = db
		app.closers = append(app.closers, db.Close)
	}

	sinks, err := NewSinks(cfg, rc, store, logger)
	if err != nil {
		logger.Fatal("Unable to set up sinks", zap.Error(err))
	}

	utxoStore, closeStore, err := NewUtxoStore(cfg, rc, logger)
	if err != nil {
		logger.Fatal("Unable to open UTXO store", zap.Error(err))
	}
	app.closers = append(app.closers, closeStore)

	reducers, markers, err := NewReducers(cfg, logger)
	if err != nil {
		logger.Fatal("Unable to build reducers", zap.Error(err))
	}

	rpcOpts := rpc.OptsFromEnv()
	if magic, err := rpc.ValidateEndpoints(ctx, rpcOpts.Endpoints, logger); err != nil {
		logger.Warn("RPC endpoint validation failed", zap.Error(err))
	} else {
		logger.Info("RPC endpoints validated", zap.Uint32("network_magic", magic))
	}
	rpcClient := rpc.NewHTTP(rpcOpts)

	lookupPool := pond.NewPool(utils.EnvInt("UTXO_LOOKUP_PARALLELISM", 8))
	app.closers = append(app.closers, func() error { lookupPool.StopAndWait(); return nil })

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	activityContext := &activity.Context{
		Logger:   logger,
		Pipeline: cfg.PipelineID,
		Reducers: reducers,
		Resolver: utxo.NewResolver(utxoStore, rpcClient, lookupPool, utxo.ResolverConfig{
			Action:      cfg.Missing,
			LookupChunk: cfg.LookupChunk,
		}, logger),
		Tracker:     utxo.NewTracker(utxoStore, markers, logger),
		Applier:     sinks.Applier,
		Progress:    sinks.Progress,
		RPC:         rpcClient,
		Metrics:     metrics.New(reg),
		StartHeight: cfg.StartHeight,
	}
	workflowContext := &workflow.Context{
		Pipeline:        cfg.PipelineID,
		MaxBlocks:       uint64(cfg.MaxBlocksPerScan),
		ActivityContext: activityContext,
	}

	temporalClient, err := temporal.NewClient(ctx, logger, temporal.ConfigFromEnv(cfg.PipelineID))
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}
	if err := temporalClient.EnsureNamespace(ctx, utils.EnvDuration("TEMPORAL_RETENTION", 72*time.Hour)); err != nil {
		logger.Fatal("Unable to ensure temporal namespace", zap.Error(err))
	}
	app.TemporalClient = temporalClient

	// Heights are reduced one at a time, so a small worker is enough.
	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.ReduceQueue(),
		worker.Options{
			MaxConcurrentWorkflowTaskPollers:   4,
			MaxConcurrentActivityTaskPollers:   4,
			MaxConcurrentActivityExecutionSize: 16,
			WorkerStopTimeout:                  time.Minute,
		},
	)
	wkr.RegisterWorkflowWithOptions(workflowContext.HeadScan, temporalworkflow.RegisterOptions{Name: workflow.HeadScanWorkflowName})
	wkr.RegisterWorkflowWithOptions(workflowContext.ReduceBlockWorkflow, temporalworkflow.RegisterOptions{Name: workflow.ReduceBlockWorkflowName})
	wkr.RegisterActivity(activityContext.GetLatestHead)
	wkr.RegisterActivity(activityContext.GetLastReduced)
	wkr.RegisterActivity(activityContext.ReduceBlock)
	wkr.RegisterActivity(activityContext.RecordReduced)
	app.Worker = wkr

	if err := app.SetupScheduler(ctx); err != nil {
		logger.Fatal("Unable to set up head scan schedule", zap.Error(err))
	}
	app.SetupServer(reg)
	return app
}

// SetupScheduler starts a head scan on every HEADSCAN_CRON tick. The scan has a
// fixed workflow ID, so ticks that land while one is running are absorbed.
func (a *App) SetupScheduler(ctx context.Context) error {
	a.Cron = cron.New(cron.WithParser(config.CronParser()), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	_, err := a.Cron.AddFunc(a.Config.HeadScanCron, func() {
		rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := a.TemporalClient.StartHeadScan(rctx, workflow.HeadScanWorkflowName, types.HeadScanInput{}); err != nil {
			a.Logger.Warn("Unable to start head scan", zap.Error(err))
		}
	})
	return err
}

// SetupServer exposes health probes and metrics on METRICS_ADDR.
func (a *App) SetupServer(reg *prometheus.Registry) {
	r := mux.NewRouter()
	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if a.ready.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods("GET")

	a.Server = &http.Server{Addr: a.Config.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
}

// Start runs the worker, the scheduler and the ops server until ctx is done.
func (a *App) Start(ctx context.Context) {
	if err := a.Worker.Start(); err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("Ops server stopped", zap.Error(err))
		}
	}()
	a.Cron.Start()
	a.ready.Store(true)
	a.Logger.Info("Reducer started",
		zap.String("queue", a.TemporalClient.ReduceQueue()),
		zap.String("cron", a.Config.HeadScanCron),
		zap.Int("reducers", len(a.Config.Reducers)))

	<-ctx.Done()
	a.Stop()
}

// Stop drains the scheduler and the worker, then releases connections.
func (a *App) Stop() {
	a.ready.Store(false)
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
	if a.Worker != nil {
		a.Worker.Stop()
	}
	if a.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.Server.Shutdown(shutdownCtx)
		cancel()
	}
	if a.TemporalClient != nil {
		a.TemporalClient.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Close failed", zap.Error(err))
		}
	}
	a.Logger.Info("さようなら!")
}
