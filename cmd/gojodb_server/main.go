package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/sushant-115/gojodb/core/indexing/btree"
	"github.com/sushant-115/gojodb/core/storage_engine/eviction"
	"github.com/sushant-115/gojodb/pkg/logger"
	"github.com/sushant-115/gojodb/pkg/telemetry"

	"go.uber.org/zap"
)

var (
	dataDir          = flag.String("data_dir", "/tmp/gojodb_eviction_node", "Directory holding this node's B-tree file")
	nodeID           = flag.String("node_id", "node1", "Unique ID for the node")
	httpAddr         = flag.String("http_addr", "127.0.0.1:8080", "HTTP bind address for health checks")
	metricsPort      = flag.Int("metrics_port", 9090, "Port exposing the Prometheus /metrics endpoint")
	pageSize         = flag.Int("page_size", DefaultPageSize, "B-tree page size in bytes")
	poolSize         = flag.Int("pool_size", DefaultBufferPoolSize, "Buffer pool frame count")
	degree           = flag.Int("degree", 64, "B-tree node degree")
	evictionInterval = flag.Duration("eviction_interval", 5*time.Second, "How often the eviction sweep walks the tree's root")
	logLevel         = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat        = flag.String("log_format", "console", "Log format: console or json")

	zlogger *zap.Logger

	// Global wait group to manage graceful shutdown of goroutines.
	globalWG sync.WaitGroup
)

const (
	DefaultPageSize       = 4096
	DefaultBufferPoolSize = 100
)

func main() {
	flag.Parse()

	var err error
	zlogger, err = logger.New(logger.Config{Level: *logLevel, Format: *logFormat, OutputFile: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Can't initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zlogger.Sync()

	zlogger.Info("Starting GojoDB eviction node",
		zap.String("nodeID", *nodeID),
		zap.String("dataDir", *dataDir),
		zap.String("httpAddr", *httpAddr),
		zap.Int("metricsPort", *metricsPort),
		zap.Int("pageSize", *pageSize),
		zap.Int("poolSize", *poolSize),
		zap.Duration("evictionInterval", *evictionInterval),
	)

	tel, telShutdown, err := telemetry.New(telemetry.Config{
		Enabled:          true,
		ServiceName:      "gojodb-eviction-" + *nodeID,
		PrometheusPort:   *metricsPort,
		TraceSampleRatio: 1.0,
	})
	if err != nil {
		zlogger.Fatal("CRITICAL: failed to initialize telemetry", zap.Error(err))
	}

	node, err := newEvictionNode(*dataDir, *degree, *pageSize, *poolSize, tel, zlogger)
	if err != nil {
		zlogger.Fatal("CRITICAL: failed to initialize eviction node", zap.Error(err))
	}

	globalWG.Add(1)
	stopSweep := make(chan struct{})
	go node.runEvictionSweep(stopSweep, *evictionInterval)

	globalWG.Add(1)
	httpServer := startHTTPServer(*httpAddr)

	stopChan := make(chan struct{})
	setupSignalHandling(stopChan, func() {
		close(stopSweep)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zlogger.Warn("HTTP server shutdown error", zap.Error(err))
		}
		if err := telShutdown(shutdownCtx); err != nil {
			zlogger.Warn("telemetry shutdown error", zap.Error(err))
		}
		if err := node.Close(); err != nil {
			zlogger.Warn("eviction node close error", zap.Error(err))
		}
	})

	<-stopChan
	globalWG.Wait()
	zlogger.Info("GojoDB eviction node shut down gracefully.")
}

// evictionNode bundles the on-disk B-tree, its eviction-core adapter, and
// the orchestrator driving real page retirement against it.
type evictionNode struct {
	bt      *btree.BTree[string, string]
	et      *btree.EvictionTree[string, string]
	orch    *eviction.Orchestrator
	session *eviction.Session
	hazards *eviction.HazardTable
	cfg     eviction.OrchestratorConfig
	logger  *zap.Logger
}

func newEvictionNode(dir string, degree, pageSize, poolSize int, tel *telemetry.Telemetry, logger *zap.Logger) (*evictionNode, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dbPath := filepath.Join(dir, "eviction_store.gdb")

	order := func(a, b string) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
	kvSerializer := btree.KeyValueSerializer[string, string]{
		SerializeKey:     func(s string) ([]byte, error) { return []byte(s), nil },
		DeserializeKey:   func(b []byte) (string, error) { return string(b), nil },
		SerializeValue:   func(s string) ([]byte, error) { return []byte(s), nil },
		DeserializeValue: func(b []byte) (string, error) { return string(b), nil },
	}

	var bt *btree.BTree[string, string]
	var err error
	if _, statErr := os.Stat(dbPath); statErr == nil {
		bt, err = btree.OpenBTreeFile[string, string](dbPath, order, kvSerializer, poolSize, pageSize)
	} else {
		bt, err = btree.NewBTreeFile[string, string](dbPath, degree, order, kvSerializer, poolSize, pageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("open btree file: %w", err)
	}

	et := btree.NewEvictionTree(bt)

	metrics, err := eviction.NewMetrics(tel.Meter)
	if err != nil {
		return nil, fmt.Errorf("register eviction metrics: %w", err)
	}

	cfg := eviction.DefaultOrchestratorConfig()

	hazards := eviction.NewHazardTable()
	session := eviction.NewSession(cfg.HazardSlotsPerSession)
	hazards.Register(session)

	orch := eviction.NewOrchestrator(et.Collaborators(), hazards, metrics, logger)

	return &evictionNode{
		bt:      bt,
		et:      et,
		orch:    orch,
		session: session,
		hazards: hazards,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// runEvictionSweep is the node's eviction-server goroutine: periodically
// it brings the tree's root page into memory through the adapter's
// read-path stand-in and hands it to the orchestrator, the same way a
// cache-pressure-driven sweep would pick a victim off the LRU queue. A
// real cache would pick arbitrary victim pages under memory pressure;
// here the root is the only page this demo driver can always reach, so
// every sweep re-reads it and then tries to retire it.
func (n *evictionNode) runEvictionSweep(stop <-chan struct{}, interval time.Duration) {
	defer globalWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.sweepOnce()
		}
	}
}

func (n *evictionNode) sweepOnce() {
	page, err := n.et.TrackRoot(eviction.RowLeaf)
	if err != nil {
		n.logger.Warn("eviction sweep: failed to track root page", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.SpinYieldBudget)
	defer cancel()

	if err := n.orch.Evict(ctx, n.session, page, eviction.SingleThreaded); err != nil {
		n.logger.Debug("eviction sweep: root page not evicted this round", zap.Error(err))
		return
	}
	n.logger.Debug("eviction sweep: root page retired", zap.Uint64("page_id", page.ID()))
}

func (n *evictionNode) Close() error {
	return n.bt.Close()
}

func startHTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		defer globalWG.Done()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlogger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	return srv
}

func setupSignalHandling(stopChan chan struct{}, onSignal func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		zlogger.Info("Received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		onSignal()
		close(stopChan)
	}()
}
