// Command idioms-server runs one server-rank process of the idioms
// cluster: it owns a partition of the distributed affix index, serves
// the twelve-tag wire protocol, participates in heartbeat-driven
// failure detection and bully leader election, and acts as recovery
// coordinator when asked. Structure grounded on
// froz-husain-PairDB/storage-node/cmd/storage/main.go's
// config-then-services-then-serve-then-signal-shutdown shape.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sashank1508/idioms/internal/cluster/election"
	"github.com/sashank1508/idioms/internal/cluster/fault"
	"github.com/sashank1508/idioms/internal/cluster/server"
	"github.com/sashank1508/idioms/internal/cluster/wire"
	"github.com/sashank1508/idioms/internal/config"
	"github.com/sashank1508/idioms/internal/dart"
	"github.com/sashank1508/idioms/internal/metrics"
)

// electionPortOffset separates the bully algorithm's tiny control
// channel from each rank's data-plane listener.
const electionPortOffset = 10000

func main() {
	configPath := flag.String("config", "./idioms.yaml", "path to the cluster config file")
	rankOverride := flag.Int("rank", -1, "override the rank set in the config file (>=1 for a server)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idioms-server: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *rankOverride >= 0 {
		cfg.Rank = *rankOverride
	}
	if cfg.IsClient() {
		fmt.Fprintln(os.Stderr, "idioms-server: rank 0 is the client role, run idioms-client instead")
		os.Exit(1)
	}

	log, err := newLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idioms-server: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	serverID := cfg.ServerID()
	s := server.New(serverID, cfg.Cluster.BaseDataDir, cfg.Cluster.SuffixMode, log)
	s.Table = dart.NewBuilder(cfg.Cluster.NumServers, cfg.Cluster.ReplicationRatio).Table()

	if err := s.Recover(); err != nil {
		log.Info("no prior checkpoint to recover from", zap.Int("server", serverID), zap.Error(err))
	}

	mtx := metrics.New()
	startMetricsServer(cfg, log)

	addr := cfg.Transport.Addresses[serverID]
	handler := instrumentedDispatch(s, mtx, log)
	log.Info("server starting",
		zap.Int("rank", cfg.Rank),
		zap.Int("serverID", serverID),
		zap.String("addr", addr),
		zap.String("transport", cfg.Transport.Kind))
	go serveTransport(cfg, addr, handler, log)

	controlAddrs, err := election.ControlAddrs(cfg.Transport.Addresses, electionPortOffset)
	if err != nil {
		log.Fatal("failed to derive election control addresses", zap.Error(err))
	}
	elect := election.New(cfg.Rank, cfg.Cluster.NumServers+1,
		election.NewTCPSend(controlAddrs, cfg.Rank, cfg.Transport.DialTimeout, log))
	if closer, err := election.Serve(controlAddrs[serverID], elect, log); err != nil {
		log.Warn("election control listener failed to start", zap.Error(err))
	} else {
		defer closer.Close()
	}

	faults := fault.NewManager(cfg.Cluster.NumServers)
	peerTransport := wire.NewTCPTransport(log)
	pingPeer := func(peerID int) {
		if peerID == serverID {
			return
		}
		_, err := peerTransport.SendAndReceive(cfg.Transport.Addresses[peerID], wire.TagHeartbeat,
			&wire.HeartbeatMessage{SenderID: serverID, TimestampMs: time.Now().UnixMilli()})
		if err != nil {
			log.Debug("heartbeat to peer failed", zap.Int("peer", peerID), zap.Error(err))
			return
		}
		faults.RecordHeartbeat(peerID)
	}

	stop := make(chan struct{})
	go faults.Run(cfg.Transport.HeartbeatPeriod, stop, pingPeer, func(tr fault.Transition) {
		log.Info("peer server status change",
			zap.Int("peer", tr.ServerID), zap.String("from", tr.From.String()), zap.String("to", tr.To.String()))
		mtx.ServerStatus.WithLabelValues(fmt.Sprint(tr.ServerID)).Set(float64(tr.To))
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down", zap.Int("serverID", serverID))
	close(stop)
	if err := s.Checkpoint(); err != nil {
		log.Error("final checkpoint failed", zap.Error(err))
	}
}

func serveTransport(cfg *config.Config, addr string, handler wire.Handler, log *zap.Logger) {
	var err error
	if cfg.Transport.Kind == "grpc" {
		err = wire.NewGRPCTransport(log).Serve(addr, handler)
	} else {
		err = wire.NewTCPTransport(log).Listen(addr, handler)
	}
	if err != nil {
		log.Fatal("transport listen failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

func startMetricsServer(cfg *config.Config, log *zap.Logger) {
	if !cfg.Metrics.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	go func() {
		if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}

// instrumentedDispatch wraps Server.Dispatch with query metrics and a
// per-request correlation id for log tracing, grounded on the
// request-id pattern in froz-husain-PairDB's gateway middleware. The
// id never touches the wire; it only threads through this process's
// logs.
func instrumentedDispatch(s *server.Server, mtx *metrics.Metrics, log *zap.Logger) wire.Handler {
	return func(env *wire.Envelope) (wire.Tag, interface{}, error) {
		requestID := uuid.New().String()
		start := time.Now()
		tag, payload, err := s.Dispatch(env)
		if err != nil {
			log.Warn("dispatch failed", zap.String("requestID", requestID), zap.Uint32("tag", uint32(env.Tag)), zap.Error(err))
		}
		if env.Tag == wire.TagQuery {
			mtx.QueriesTotal.WithLabelValues("server").Inc()
			mtx.QueryDuration.WithLabelValues("server").Observe(time.Since(start).Seconds())
		}
		return tag, payload, err
	}
}
