package server

import (
	"os"
	"testing"

	"github.com/sashank1508/idioms/internal/cluster/wire"
	"github.com/sashank1508/idioms/internal/dart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchCreateThenQuery(t *testing.T) {
	s := New(1, t.TempDir(), false, nil)

	tag, msg, err := s.Dispatch(&wire.Envelope{
		Tag:     wire.TagCreateIndex,
		Payload: &wire.CreateIndexMessage{Key: "StageX", Value: "300.00", ObjectID: 1002},
	})
	require.NoError(t, err)
	assert.Equal(t, wire.TagResponse, tag)
	assert.True(t, msg.(*wire.ResponseMessage).Success)

	tag, msg, err = s.Dispatch(&wire.Envelope{
		Tag:     wire.TagQuery,
		Payload: &wire.QueryMessage{QueryStr: "StageX=300.00"},
	})
	require.NoError(t, err)
	assert.Equal(t, wire.TagResponse, tag)
	resp := msg.(*wire.ResponseMessage)
	assert.True(t, resp.Success)
	assert.Equal(t, []int64{1002}, resp.Results)
}

func TestDispatchQueryWithNoMatchIsEmptyNotError(t *testing.T) {
	s := New(1, t.TempDir(), false, nil)
	_, msg, err := s.Dispatch(&wire.Envelope{
		Tag:     wire.TagQuery,
		Payload: &wire.QueryMessage{QueryStr: "Nope=Nothing"},
	})
	require.NoError(t, err)
	resp := msg.(*wire.ResponseMessage)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Results)
}

func TestDispatchDeleteThenQueryReturnsEmpty(t *testing.T) {
	s := New(1, t.TempDir(), false, nil)
	s.Index().AddRecord("StageX", "300.00", 1002)

	tag, msg, err := s.Dispatch(&wire.Envelope{
		Tag:     wire.TagDeleteIndex,
		Payload: &wire.DeleteIndexMessage{Key: "StageX", Value: "300.00", ObjectID: 1002},
	})
	require.NoError(t, err)
	assert.Equal(t, wire.TagResponse, tag)
	assert.True(t, msg.(*wire.ResponseMessage).Success)

	_, msg, _ = s.Dispatch(&wire.Envelope{
		Tag:     wire.TagQuery,
		Payload: &wire.QueryMessage{QueryStr: "StageX=300.00"},
	})
	assert.Empty(t, msg.(*wire.ResponseMessage).Results)
}

func TestDispatchShutdownStopsRunning(t *testing.T) {
	s := New(1, t.TempDir(), false, nil)
	require.True(t, s.Running())
	_, _, err := s.Dispatch(&wire.Envelope{Tag: wire.TagShutdown, Payload: &wire.ShutdownMessage{}})
	require.NoError(t, err)
	assert.False(t, s.Running())
}

func TestCheckpointAndRecoverRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(2, dir, true, nil)
	s.Index().AddRecord("FILE_PATH", "/data/488nm.tif", 1001)
	s.Index().AddRecord("FILE_PATH", "/data/561nm.tif", 1002)

	require.NoError(t, s.Checkpoint())

	fresh := New(2, dir, true, nil)
	require.NoError(t, fresh.Recover())

	results, err := fresh.Index().ExecuteQuery("*PATH=*tif")
	require.NoError(t, err)
	assert.Equal(t, []int64{1001, 1002}, results)
}

func TestRecoverRefusesOnServerIDMismatch(t *testing.T) {
	dir := t.TempDir()
	s := New(5, dir, false, nil)
	s.Index().AddRecord("k", "v", 1)
	require.NoError(t, s.Checkpoint())

	other := New(6, dir, false, nil)
	err := other.Recover()
	assert.Error(t, err)
}

func TestCheckpointFailureLeavesIndexUnaffected(t *testing.T) {
	// A data directory that cannot be created (its parent is a file,
	// not a directory) forces Checkpoint to fail with an I/O error.
	blocker := t.TempDir() + "/blocker"
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := New(1, blocker, false, nil)
	s.Index().AddRecord("k", "v", 1)

	err := s.Checkpoint()
	assert.Error(t, err)

	results, qerr := s.Index().ExecuteQuery("k=v")
	require.NoError(t, qerr)
	assert.Equal(t, []int64{1}, results)
}

func TestDispatchRecoveryRequestReassignsFailedServersVNodes(t *testing.T) {
	table := dart.NewBuilder(4, 0.25).Table()
	s := New(0, t.TempDir(), false, nil)
	s.Table = table

	var failedServer int
	for _, vn := range table.VirtualNodes() {
		failedServer = table.ServerForVirtualNode(vn.ID)
		break
	}

	tag, msg, err := s.Dispatch(&wire.Envelope{
		Tag:     wire.TagRecoveryRequest,
		Payload: &wire.RecoveryRequestMessage{FailedServerID: failedServer, CoordinatorID: s.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, wire.TagRecoveryComplete, tag)
	resp := msg.(*wire.RecoveryCompleteMessage)
	assert.True(t, resp.Success)

	for _, vn := range table.VirtualNodes() {
		assert.NotEqual(t, failedServer, table.ServerForVirtualNode(vn.ID))
	}
}

func TestDispatchRecoveryRequestWithoutTableFails(t *testing.T) {
	s := New(0, t.TempDir(), false, nil)
	tag, msg, err := s.Dispatch(&wire.Envelope{
		Tag:     wire.TagRecoveryRequest,
		Payload: &wire.RecoveryRequestMessage{FailedServerID: 1, CoordinatorID: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, wire.TagRecoveryComplete, tag)
	assert.False(t, msg.(*wire.RecoveryCompleteMessage).Success)
}
