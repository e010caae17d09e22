// Package server implements the per-process server loop: local index
// ownership, the dispatch switch over the wire taxonomy, and
// checkpoint/recover of that index, grounded on the teacher's
// TCPMsgRing.handle dispatch loop generalized from raw message bytes
// to the wire package's typed Envelope.
package server

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sashank1508/idioms/internal/affixindex"
	"github.com/sashank1508/idioms/internal/cluster/fault"
	"github.com/sashank1508/idioms/internal/cluster/wire"
	"github.com/sashank1508/idioms/internal/dart"
	"github.com/sashank1508/idioms/internal/errs"
	"github.com/sashank1508/idioms/internal/query"
)

// Server owns one partition of the distributed index: a local
// affixindex.Index plus the data directory its checkpoints live
// under.
type Server struct {
	ID          int
	BaseDataDir string
	SuffixMode  bool

	// Table is the shared DART router this server mutates when it acts
	// as a recovery coordinator. A server dispatching RecoveryRequest
	// without a Table set simply reports failure, since it has nothing
	// to reassign.
	Table *dart.Table

	index   *affixindex.Index
	running atomic.Bool
	log     *zap.Logger
}

// New builds a Server for id, ready to dispatch requests. running
// starts true; Shutdown flips it false.
func New(id int, baseDataDir string, suffixMode bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	index := affixindex.New(suffixMode)
	index.SetLogger(logger)
	s := &Server{
		ID:          id,
		BaseDataDir: baseDataDir,
		SuffixMode:  suffixMode,
		index:       index,
		log:         logger,
	}
	s.running.Store(true)
	return s
}

// Running reports whether this server's main loop should keep
// accepting requests.
func (s *Server) Running() bool {
	return s.running.Load()
}

// Index exposes the underlying index for tests and for wiring a
// popularity-aware query path in front of Dispatch.
func (s *Server) Index() *affixindex.Index {
	return s.index
}

// Dispatch is the server's request handler, suitable for passing
// directly as a wire.Handler to a transport's Listen/Serve. It folds
// canHandleQuery into executeQuery per the design's redesign flag: a
// query that matches nothing simply returns an empty result set.
func (s *Server) Dispatch(env *wire.Envelope) (wire.Tag, interface{}, error) {
	switch env.Tag {
	case wire.TagCreateIndex:
		msg := env.Payload.(*wire.CreateIndexMessage)
		s.index.AddRecord(msg.Key, msg.Value, msg.ObjectID)
		return wire.TagResponse, &wire.ResponseMessage{Success: true}, nil

	case wire.TagDeleteIndex:
		msg := env.Payload.(*wire.DeleteIndexMessage)
		removed := s.index.RemoveRecord(msg.Key, msg.Value, msg.ObjectID)
		return wire.TagResponse, &wire.ResponseMessage{Success: removed}, nil

	case wire.TagQuery:
		msg := env.Payload.(*wire.QueryMessage)
		results, err := query.Execute(s.index, msg.QueryStr)
		if err != nil {
			return wire.TagErrorResponse, &wire.ErrorResponseMessage{ErrorMessage: err.Error()}, nil
		}
		return wire.TagResponse, &wire.ResponseMessage{Success: true, Results: results}, nil

	case wire.TagCheckpoint:
		ok := s.Checkpoint() == nil
		return wire.TagResponse, &wire.ResponseMessage{Success: ok}, nil

	case wire.TagRecover:
		ok := s.Recover() == nil
		return wire.TagResponse, &wire.ResponseMessage{Success: ok}, nil

	case wire.TagShutdown:
		s.running.Store(false)
		return wire.TagResponse, &wire.ResponseMessage{Success: true}, nil

	case wire.TagHeartbeat:
		msg := env.Payload.(*wire.HeartbeatMessage)
		return wire.TagHeartbeat, &wire.HeartbeatMessage{SenderID: s.ID, TimestampMs: msg.TimestampMs}, nil

	case wire.TagRecoveryRequest:
		msg := env.Payload.(*wire.RecoveryRequestMessage)
		success := s.RunRecovery(msg.FailedServerID)
		return wire.TagRecoveryComplete, &wire.RecoveryCompleteMessage{FailedServerID: msg.FailedServerID, Success: success}, nil

	default:
		return wire.TagErrorResponse, &wire.ErrorResponseMessage{
			ErrorMessage: "server does not handle this message tag",
		}, errs.New(errs.CodeTopology, "unhandled tag on server dispatch")
	}
}

// RunRecovery acts out this server's turn as recovery coordinator for
// failedServerID: it plans which virtual nodes the failed server owned
// and reassigns each to its next live ring replica, mutating Table in
// place. It reports whether every virtual node could be reassigned,
// per the design's RecoveryComplete(success) contract. Actually moving
// the failed server's records onto their new owners is out of scope
// for the twelve-tag wire taxonomy, which carries no bulk-transfer
// message; queries against the new owner return only what it already
// held as a replica.
func (s *Server) RunRecovery(failedServerID int) bool {
	if s.Table == nil {
		s.log.Warn("recovery requested but server has no table", zap.Int("server", s.ID))
		return false
	}
	plan := fault.PlanRecovery(s.Table, failedServerID, s.ID)
	for _, r := range plan.Reassignments {
		if !r.CanReassign {
			s.log.Warn("could not find a replacement server for virtual node",
				zap.Int("vnode", r.VNodeID), zap.Int("failedServer", failedServerID))
			continue
		}
		s.Table.Reassign(r.VNodeID, r.ToServer)
	}
	return plan.Succeeded()
}

// Checkpoint persists the local index to
// <BaseDataDir>/server_<ID>/index.dat. A failure is logged and
// returned as an I/O error; the in-memory index is unaffected either
// way, per the design's checkpoint-failure semantics.
func (s *Server) Checkpoint() error {
	path, err := indexPath(s.BaseDataDir, s.ID)
	if err != nil {
		s.log.Warn("checkpoint failed", zap.Int("server", s.ID), zap.Error(err))
		return err
	}
	snapshot := s.index.Snapshot()
	if err := saveIndex(path, s.ID, s.SuffixMode, snapshot); err != nil {
		s.log.Warn("checkpoint failed", zap.Int("server", s.ID), zap.Error(err))
		return err
	}
	return nil
}

// Recover rebuilds the local index by replaying every checkpointed
// record via AddRecord. It refuses (without mutating the live index)
// if the checkpoint's stored server id doesn't match this server's.
func (s *Server) Recover() error {
	path, err := indexPath(s.BaseDataDir, s.ID)
	if err != nil {
		return err
	}
	snapshot, err := loadIndex(path, s.ID)
	if err != nil {
		s.log.Warn("recover refused", zap.Int("server", s.ID), zap.Error(err))
		return err
	}
	s.index = affixindex.New(s.SuffixMode)
	s.index.SetLogger(s.log)
	s.index.Restore(snapshot)
	return nil
}
