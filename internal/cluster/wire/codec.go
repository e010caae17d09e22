package wire

import (
	"encoding/binary"
	"io"

	"github.com/sashank1508/idioms/internal/errs"
)

// writeUint32 / writeUint64 / writeString / writeInt64Slice implement the
// "size | bytes" / "size | elements" framing, pinned to fixed-width
// big-endian integers: sizes are uint64, and vector elements are written
// as 64-bit values, not 32-bit ones.

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeString(w io.Writer, s string) error {
	if err := writeUint64(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func writeInt64Slice(w io.Writer, vs []int64) error {
	if err := writeUint64(w, uint64(len(vs))); err != nil {
		return err
	}
	for _, v := range vs {
		if err := writeUint64(w, uint64(v)); err != nil {
			return err
		}
	}
	return nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func readString(r io.Reader) (string, error) {
	size, err := readUint64(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readInt64Slice(r io.Reader) ([]int64, error) {
	size, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	out := make([]int64, size)
	for i := range out {
		v, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		out[i] = int64(v)
	}
	return out, nil
}

// Envelope pairs a tag with its decoded payload, as produced by Decode
// and consumed by a server loop's dispatch switch.
type Envelope struct {
	Tag     Tag
	Payload interface{}
}

// Encode writes tag followed by the body of msg to w, in the format
// required by its tag. It is the sole place that knows the field order
// for every message type in the taxonomy.
func Encode(w io.Writer, tag Tag, msg interface{}) error {
	if err := writeUint32(w, uint32(tag)); err != nil {
		return errs.Wrap(errs.CodeTransport, "write tag", err)
	}
	var err error
	switch m := msg.(type) {
	case *CreateIndexMessage:
		err = encodeCreateOrDelete(w, m.Key, m.Value, m.ObjectID)
	case *DeleteIndexMessage:
		err = encodeCreateOrDelete(w, m.Key, m.Value, m.ObjectID)
	case *QueryMessage:
		err = writeString(w, m.QueryStr)
	case *CheckpointMessage, *RecoverMessage, *ShutdownMessage:
		err = nil
	case *ResponseMessage:
		err = encodeResponse(w, m)
	case *ErrorResponseMessage:
		err = writeString(w, m.ErrorMessage)
	case *HeartbeatMessage:
		err = encodeHeartbeat(w, m)
	case *ServerFailureMessage:
		err = writeUint64(w, uint64(m.FailedServerID))
	case *RecoveryRequestMessage:
		err = encodeRecoveryRequest(w, m)
	case *RecoveryCompleteMessage:
		err = encodeRecoveryComplete(w, m)
	default:
		return errs.New(errs.CodeTransport, "unknown message type for encode")
	}
	if err != nil {
		return errs.Wrap(errs.CodeTransport, "write message body", err)
	}
	return nil
}

func encodeCreateOrDelete(w io.Writer, key, value string, objectID int64) error {
	if err := writeString(w, key); err != nil {
		return err
	}
	if err := writeString(w, value); err != nil {
		return err
	}
	return writeUint64(w, uint64(objectID))
}

func encodeResponse(w io.Writer, m *ResponseMessage) error {
	success := uint32(0)
	if m.Success {
		success = 1
	}
	if err := writeUint32(w, success); err != nil {
		return err
	}
	return writeInt64Slice(w, m.Results)
}

func encodeHeartbeat(w io.Writer, m *HeartbeatMessage) error {
	if err := writeUint64(w, uint64(m.SenderID)); err != nil {
		return err
	}
	return writeUint64(w, uint64(m.TimestampMs))
}

func encodeRecoveryRequest(w io.Writer, m *RecoveryRequestMessage) error {
	if err := writeUint64(w, uint64(m.FailedServerID)); err != nil {
		return err
	}
	return writeUint64(w, uint64(m.CoordinatorID))
}

func encodeRecoveryComplete(w io.Writer, m *RecoveryCompleteMessage) error {
	if err := writeUint64(w, uint64(m.FailedServerID)); err != nil {
		return err
	}
	success := uint32(0)
	if m.Success {
		success = 1
	}
	return writeUint32(w, success)
}

// Decode reads a tag and its type-specific body from r and returns the
// decoded Envelope.
func Decode(r io.Reader) (*Envelope, error) {
	tagVal, err := readUint32(r)
	if err != nil {
		return nil, err // EOF/connection close, not wrapped so callers can check io.EOF
	}
	tag := Tag(tagVal)

	var payload interface{}
	switch tag {
	case TagCreateIndex:
		payload, err = decodeCreateOrDelete(r, func(k, v string, id int64) interface{} {
			return &CreateIndexMessage{Key: k, Value: v, ObjectID: id}
		})
	case TagDeleteIndex:
		payload, err = decodeCreateOrDelete(r, func(k, v string, id int64) interface{} {
			return &DeleteIndexMessage{Key: k, Value: v, ObjectID: id}
		})
	case TagQuery:
		var s string
		s, err = readString(r)
		payload = &QueryMessage{QueryStr: s}
	case TagCheckpoint:
		payload = &CheckpointMessage{}
	case TagRecover:
		payload = &RecoverMessage{}
	case TagShutdown:
		payload = &ShutdownMessage{}
	case TagResponse:
		payload, err = decodeResponse(r)
	case TagErrorResponse:
		var s string
		s, err = readString(r)
		payload = &ErrorResponseMessage{ErrorMessage: s}
	case TagHeartbeat:
		payload, err = decodeHeartbeat(r)
	case TagServerFailure:
		var v uint64
		v, err = readUint64(r)
		payload = &ServerFailureMessage{FailedServerID: int(v)}
	case TagRecoveryRequest:
		payload, err = decodeRecoveryRequest(r)
	case TagRecoveryComplete:
		payload, err = decodeRecoveryComplete(r)
	default:
		return nil, errs.New(errs.CodeTransport, "unknown message tag on wire")
	}
	if err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "read message body", err)
	}
	return &Envelope{Tag: tag, Payload: payload}, nil
}

func decodeCreateOrDelete(r io.Reader, build func(string, string, int64) interface{}) (interface{}, error) {
	key, err := readString(r)
	if err != nil {
		return nil, err
	}
	value, err := readString(r)
	if err != nil {
		return nil, err
	}
	id, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return build(key, value, int64(id)), nil
}

func decodeResponse(r io.Reader) (*ResponseMessage, error) {
	successVal, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	results, err := readInt64Slice(r)
	if err != nil {
		return nil, err
	}
	return &ResponseMessage{Success: successVal != 0, Results: results}, nil
}

func decodeHeartbeat(r io.Reader) (*HeartbeatMessage, error) {
	senderID, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	ts, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &HeartbeatMessage{SenderID: int(senderID), TimestampMs: int64(ts)}, nil
}

func decodeRecoveryRequest(r io.Reader) (*RecoveryRequestMessage, error) {
	failed, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	coord, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &RecoveryRequestMessage{FailedServerID: int(failed), CoordinatorID: int(coord)}, nil
}

func decodeRecoveryComplete(r io.Reader) (*RecoveryCompleteMessage, error) {
	failed, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	successVal, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	return &RecoveryCompleteMessage{FailedServerID: int(failed), Success: successVal != 0}, nil
}
