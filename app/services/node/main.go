package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/utxochain/app/services/node/handlers"
	"github.com/ardanlabs/utxochain/business/sys/metrics"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/boltdb"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/ardanlabs/utxochain/foundation/blockchain/worker"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// The listening port of the node is the only positional argument.
	cfg := struct {
		conf.Version
		Args conf.Args
		Web  struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			Host            string        `conf:"default:0.0.0.0"`
			PublicOffset    int           `conf:"default:1000"`
			DebugOffset     int           `conf:"default:2000"`
		}
		State struct {
			MinerName       string `conf:"help:name of the miner key file, defaults to node<port>"`
			DBPath          string `conf:"default:zblock/blocks"`
			Storage         string `conf:"default:disk,help:disk or bolt"`
			SelectStrategy  string `conf:"default:fee,help:fee or fifo"`
			MineEmptyBlocks bool   `conf:"default:true"`
			GenesisFile     string `conf:"default:zblock/genesis.json"`
		}
		Peers struct {
			Host              string        `conf:"default:localhost"`
			MinPort           int           `conf:"default:8080"`
			MaxPort           int           `conf:"default:8089"`
			DialTimeout       time.Duration `conf:"default:5s"`
			DiscoveryInterval time.Duration `conf:"default:10s"`
			SyncInterval      time.Duration `conf:"default:10s"`
			MiningInterval    time.Duration `conf:"default:1s"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "utxo ledger node: node [flags] <port>",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	port, err := strconv.Atoi(cfg.Args.Num(0))
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("a valid listening port is required, got %q", cfg.Args.Num(0))
	}

	if cfg.State.MinerName == "" {
		cfg.State.MinerName = fmt.Sprintf("node%d", port)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build, "port", port)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// The node can't validate anything without working signatures.
	if err := signature.SelfTest(); err != nil {
		return fmt.Errorf("crypto self test: %w", err)
	}

	gen, err := genesis.LoadOrDefault(cfg.State.GenesisFile)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}
	log.Infow("startup", "status", "genesis", "difficulty", gen.Difficulty, "reward", gen.MiningReward, "genesis_reward", gen.GenesisReward)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for addresses. The
	// names come from the file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for address, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "address", address)
	}

	// The miner key is credited with the rewards and the fees. It is created
	// on the first start of the node.
	privateKey, exists := ns.PrivateKey(cfg.State.MinerName)
	if !exists {
		if privateKey, err = ns.Create(cfg.State.MinerName); err != nil {
			return fmt.Errorf("unable to create miner key: %w", err)
		}
		log.Infow("startup", "status", "miner key created", "name", cfg.State.MinerName)
	}
	miner := wallet.FromKey(privateKey)

	// =========================================================================
	// Blockchain Support

	blobs, err := openBlobs(cfg.State.Storage, cfg.State.DBPath, port)
	if err != nil {
		return err
	}

	registry := wallet.NewRegistry()
	registry.Add(port, miner)

	// The blockchain packages accept a function of this signature to allow the
	// application to log. For now, these raw messages are sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Publish(s)
	}

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		MinerAddress:    miner.Address,
		Port:            port,
		Genesis:         gen,
		Store:           storage.New(blobs),
		Wallets:         registry,
		SelectStrategy:  cfg.State.SelectStrategy,
		MineEmptyBlocks: cfg.State.MineEmptyBlocks,
		EvHandler:       ev,
	})
	if err != nil {
		blobs.Close()
		return err
	}
	defer func() {
		if err := st.Shutdown(); err != nil {
			log.Errorw("shutdown", "status", "state shutdown", "ERROR", err)
		}
	}()

	if err := st.Bootstrap(); err != nil {
		return fmt.Errorf("bootstrapping chain: %w", err)
	}

	// The worker package implements the different workflows such as mining,
	// transaction and block sharing, and peer updates. The worker will
	// register itself with the state.
	wrk, err := worker.Run(st, worker.Config{
		ListenAddr: net.JoinHostPort(cfg.Web.Host, strconv.Itoa(port)),
		Range: peer.Range{
			Host:    cfg.Peers.Host,
			MinPort: cfg.Peers.MinPort,
			MaxPort: cfg.Peers.MaxPort,
		},
		DialTimeout:       cfg.Peers.DialTimeout,
		DiscoveryInterval: cfg.Peers.DiscoveryInterval,
		SyncInterval:      cfg.Peers.SyncInterval,
		MiningInterval:    cfg.Peers.MiningInterval,
		EvHandler:         ev,
	})
	if err != nil {
		return err
	}

	metrics.RegisterNode(nodeMetrics{state: st, worker: wrk})

	// =========================================================================
	// Start Debug Service

	debugHost := net.JoinHostPort(cfg.Web.Host, strconv.Itoa(port+cfg.Web.DebugOffset))
	log.Infow("startup", "status", "debug v1 router started", "host", debugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(debugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", debugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Peers:    wrk,
		NS:       ns,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         net.JoinHostPort(cfg.Web.Host, strconv.Itoa(port+cfg.Web.PublicOffset)),
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Close()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// openBlobs opens the configured storage backend. Every port keeps its own
// files under the db path.
func openBlobs(backend string, dbPath string, port int) (storage.Blobs, error) {
	switch backend {
	case "disk":
		d, err := disk.New(fmt.Sprintf("%s/%d", dbPath, port))
		if err != nil {
			return nil, fmt.Errorf("opening disk storage: %w", err)
		}
		return d, nil

	case "bolt":
		if err := os.MkdirAll(dbPath, 0755); err != nil {
			return nil, fmt.Errorf("creating bolt folder: %w", err)
		}
		b, err := boltdb.New(fmt.Sprintf("%s/%d.db", dbPath, port))
		if err != nil {
			return nil, fmt.Errorf("opening bolt storage: %w", err)
		}
		return b, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

// nodeMetrics feeds the node gauges from the state and the worker.
type nodeMetrics struct {
	state  *state.State
	worker *worker.Worker
}

func (n nodeMetrics) Height() int        { return n.state.QueryStatus().Height }
func (n nodeMetrics) MempoolLength() int { return n.state.QueryMempoolLength() }
func (n nodeMetrics) PeerCount() int     { return n.worker.PeerCount() }
