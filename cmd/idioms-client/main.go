// Command idioms-client runs the rank-0 client process: it resolves
// keys and queries through the DART router (optionally wrapped in the
// adaptive popularity router), issues create/delete/search requests
// against the cluster over the configured transport, and runs its own
// heartbeat loop against every server so it can skip a confirmed-down
// replica. Structure mirrors cmd/idioms-server/main.go's
// config-then-services-then-serve shape.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sashank1508/idioms/internal/cluster"
	"github.com/sashank1508/idioms/internal/cluster/client"
	"github.com/sashank1508/idioms/internal/cluster/fault"
	"github.com/sashank1508/idioms/internal/cluster/wire"
	"github.com/sashank1508/idioms/internal/config"
	"github.com/sashank1508/idioms/internal/dart"
	"github.com/sashank1508/idioms/internal/popularity"
)

func main() {
	configPath := flag.String("config", "./idioms.yaml", "path to the cluster config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idioms-client: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.IsClient() {
		fmt.Fprintln(os.Stderr, "idioms-client: rank must be 0, run idioms-server for rank >= 1")
		os.Exit(1)
	}

	log, err := newLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "idioms-client: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	table := dart.NewBuilder(cfg.Cluster.NumServers, cfg.Cluster.ReplicationRatio).Table()
	router := buildRouter(cfg, table)
	transport := buildTransport(cfg, log)
	faults := fault.NewManager(cfg.Cluster.NumServers)
	members := cluster.NewMembership(cfg.Transport.Addresses, faults)

	manager := client.NewManager()
	c := client.New(cfg.Transport.Addresses, router, transport, faults, log)
	id := manager.Register(c)
	log.Info("client ready", zap.Int64("clientID", id), zap.Int("servers", cfg.Cluster.NumServers))

	stop := make(chan struct{})
	go faults.Run(cfg.Transport.HeartbeatPeriod, stop, func(serverID int) {
		c.SendHeartbeat(serverID, time.Now().UnixMilli())
	}, func(tr fault.Transition) {
		log.Info("server status change",
			zap.Int("server", tr.ServerID), zap.String("from", tr.From.String()), zap.String("to", tr.To.String()))
		if tr.To == fault.ConfirmedDown {
			dispatchRecovery(members, transport, tr.ServerID, log)
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go runREPL(c, log, done)

	select {
	case <-sigCh:
	case <-done:
	}
	close(stop)
}

// dispatchRecovery runs the client's side of §4.E's failure-handling
// flow once a server is ConfirmedDown: it picks the lowest-ranked
// Active server as recovery coordinator via Membership, tells it which
// server failed, and logs the resulting membership once the
// coordinator replies. The coordinator itself (server.Server.RunRecovery)
// plans and applies the virtual-node reassignments; this function only
// drives the client-side selection Membership.SelectCoordinator/
// ParticipantsExcluding exist for, replacing what used to be an ad-hoc
// address lookup straight into cfg.Transport.Addresses.
func dispatchRecovery(members *cluster.Membership, transport client.Transport, failedServerID int, log *zap.Logger) {
	coordinatorID, ok := members.SelectCoordinator()
	if !ok {
		log.Warn("no active server available to coordinate recovery", zap.Int("failed", failedServerID))
		return
	}
	participants := members.ParticipantsExcluding(coordinatorID)
	log.Info("dispatching recovery",
		zap.Int("failed", failedServerID), zap.Int("coordinator", coordinatorID), zap.Ints("participants", participants))

	addr, ok := members.Address(coordinatorID)
	if !ok {
		return
	}
	env, err := transport.SendAndReceive(addr, wire.TagRecoveryRequest, &wire.RecoveryRequestMessage{
		FailedServerID: failedServerID, CoordinatorID: coordinatorID,
	})
	if err != nil {
		log.Warn("recovery request failed", zap.Int("coordinator", coordinatorID), zap.Error(err))
		return
	}
	rc, ok := env.Payload.(*wire.RecoveryCompleteMessage)
	if !ok {
		return
	}
	log.Info("recovery complete",
		zap.Int("failed", rc.FailedServerID), zap.Bool("success", rc.Success), zap.Any("members", members.Members()))
}

// buildRouter wraps table in the adaptive popularity router when the
// config enables it, otherwise returns table itself: both satisfy
// client.Router.
func buildRouter(cfg *config.Config, table *dart.Table) client.Router {
	if !cfg.Cluster.AdaptiveEnabled {
		return table
	}
	tracker := popularity.NewTracker(table.ReplicationFactor(), cfg.Cluster.MaxReplicationFactor,
		cfg.Cluster.PopularityThreshold, cfg.Cluster.PopularityDecay)
	return popularity.NewAdaptiveRouter(table, tracker, true)
}

// buildTransport returns a client.Transport over the configured wire
// kind. GRPCTransport.SendAndReceive takes a context the TCP transport
// has no equivalent parameter for, so the grpc case is wrapped in a
// tiny adapter that supplies context.Background() rather than
// reshaping client.Transport's signature around one transport's needs.
func buildTransport(cfg *config.Config, log *zap.Logger) client.Transport {
	if cfg.Transport.Kind == "grpc" {
		return grpcClientAdapter{t: wire.NewGRPCTransport(log)}
	}
	return wire.NewTCPTransport(log)
}

type grpcClientAdapter struct {
	t *wire.GRPCTransport
}

func (a grpcClientAdapter) SendAndReceive(addr string, tag wire.Tag, msg interface{}) (*wire.Envelope, error) {
	return a.t.SendAndReceive(context.Background(), addr, tag, msg)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// runREPL reads create/delete/search commands from stdin until EOF or
// "quit", closing done when it returns so main can shut the heartbeat
// loop down cleanly either way.
//
//	create <key> <value> <objectID>
//	delete <key> <value> <objectID>
//	search <query>
func runREPL(c *client.Client, log *zap.Logger, done chan struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		switch fields[0] {
		case "quit", "exit":
			return
		case "create", "delete":
			args := strings.Fields(fields[1])
			if len(args) != 3 {
				fmt.Println("usage: create|delete <key> <value> <objectID>")
				continue
			}
			objectID, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				fmt.Println("objectID must be an integer")
				continue
			}
			if fields[0] == "create" {
				err = c.CreateMDIndex(args[0], args[1], objectID)
			} else {
				err = c.DeleteMDIndex(args[0], args[1], objectID)
			}
			if err != nil {
				log.Warn("mutation had at least one replica failure", zap.Error(err))
			}
			fmt.Println("ok")
		case "search":
			if len(fields) != 2 {
				fmt.Println("usage: search <queryString>")
				continue
			}
			fmt.Println(c.MDSearch(fields[1]))
		default:
			fmt.Println("commands: create <key> <value> <objectID> | delete <key> <value> <objectID> | search <query> | quit")
		}
	}
}
