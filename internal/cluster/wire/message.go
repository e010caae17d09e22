// Package wire implements the cluster's binary-framed message taxonomy
// and the transports that carry it: the default TCP transport adapted
// from the teacher's TCPMsgRing, and a gRPC transport offered as an
// alternative (see grpc_transport.go).
package wire

// Tag is the leading type discriminator for a wire message. The design
// pins every tag to an explicit uint32 on the wire (never sizeof(enum),
// which is platform-specific) per the design notes' third open
// question.
type Tag uint32

const (
	TagCreateIndex      Tag = 1
	TagDeleteIndex      Tag = 2
	TagQuery            Tag = 3
	TagCheckpoint       Tag = 4
	TagRecover          Tag = 5
	TagShutdown         Tag = 6
	TagResponse         Tag = 7
	TagErrorResponse    Tag = 8
	TagHeartbeat        Tag = 9
	TagServerFailure    Tag = 10
	TagRecoveryRequest  Tag = 11
	TagRecoveryComplete Tag = 12
)

// Channel groups message tags into the semantic channels the design
// uses to let recipients select by channel rather than by tag.
type Channel int

const (
	ChannelAdmin  Channel = 1
	ChannelIndex  Channel = 2
	ChannelQuery  Channel = 3
	ChannelResult Channel = 4
	ChannelFault  Channel = 5
)

// ChannelOf returns the semantic channel a tag belongs to.
func ChannelOf(tag Tag) Channel {
	switch tag {
	case TagCheckpoint, TagRecover, TagShutdown:
		return ChannelAdmin
	case TagCreateIndex, TagDeleteIndex:
		return ChannelIndex
	case TagQuery:
		return ChannelQuery
	case TagResponse, TagErrorResponse:
		return ChannelResult
	case TagHeartbeat, TagServerFailure, TagRecoveryRequest, TagRecoveryComplete:
		return ChannelFault
	default:
		return ChannelIndex
	}
}

// CreateIndexMessage is tag 1: key, value, objectId.
type CreateIndexMessage struct {
	Key      string
	Value    string
	ObjectID int64
}

// DeleteIndexMessage is tag 2: key, value, objectId.
type DeleteIndexMessage struct {
	Key      string
	Value    string
	ObjectID int64
}

// QueryMessage is tag 3: queryStr.
type QueryMessage struct {
	QueryStr string
}

// CheckpointMessage is tag 4, with no fields.
type CheckpointMessage struct{}

// RecoverMessage is tag 5, with no fields.
type RecoverMessage struct{}

// ShutdownMessage is tag 6, with no fields.
type ShutdownMessage struct{}

// ResponseMessage is tag 7: success, results.
type ResponseMessage struct {
	Success bool
	Results []int64
}

// ErrorResponseMessage is tag 8: errorMessage.
type ErrorResponseMessage struct {
	ErrorMessage string
}

// HeartbeatMessage is tag 9: senderId, timestampMs.
type HeartbeatMessage struct {
	SenderID    int
	TimestampMs int64
}

// ServerFailureMessage is tag 10: failedServerId.
type ServerFailureMessage struct {
	FailedServerID int
}

// RecoveryRequestMessage is tag 11: failedServerId, coordinatorId.
type RecoveryRequestMessage struct {
	FailedServerID int
	CoordinatorID  int
}

// RecoveryCompleteMessage is tag 12: failedServerId, success.
type RecoveryCompleteMessage struct {
	FailedServerID int
	Success        bool
}
