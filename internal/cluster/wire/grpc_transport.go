package wire

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/sashank1508/idioms/internal/errs"
)

// This file implements the same Tag/Envelope taxonomy from codec.go
// as an alternate transport over a single bidirectional gRPC stream,
// per idioms.proto's Cluster.Exchange RPC. Each Frame carries exactly
// the bytes Encode/Decode would read off a raw socket, so a server can
// run either transport against the same Handler.
//
// Frame is represented on the wire by wrapperspb.BytesValue, a
// well-known protobuf message, which lets the transport use real
// proto marshaling without a protoc code-generation step.

const clusterServiceName = "idioms.Cluster"
const exchangeMethodName = "/idioms.Cluster/Exchange"

var exchangeStreamDesc = grpc.StreamDesc{
	StreamName:    "Exchange",
	ServerStreams: true,
	ClientStreams: true,
}

// GRPCTransport adapts Handler-based dispatch (shared with TCPTransport)
// onto a bidi-streaming gRPC service, wiring google.golang.org/grpc and
// google.golang.org/protobuf per the design's alternate-transport goal.
type GRPCTransport struct {
	log    *zap.Logger
	server *grpc.Server

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewGRPCTransport builds a transport that can both Dial out and,
// once Serve is called, accept the Exchange stream.
func NewGRPCTransport(logger *zap.Logger) *GRPCTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCTransport{
		log:   logger,
		conns: make(map[string]*grpc.ClientConn),
	}
}

func (t *GRPCTransport) serviceDesc(handler Handler) *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: clusterServiceName,
		HandlerType: (*any)(nil),
		Streams: []grpc.StreamDesc{
			{
				StreamName:    "Exchange",
				ServerStreams: true,
				ClientStreams: true,
				Handler: func(srv interface{}, stream grpc.ServerStream) error {
					return t.serve(stream, handler)
				},
			},
		},
		Metadata: "idioms.proto",
	}
}

func (t *GRPCTransport) serve(stream grpc.ServerStream, handler Handler) error {
	for {
		frame := &wrapperspb.BytesValue{}
		if err := stream.RecvMsg(frame); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		env, err := Decode(bytes.NewReader(frame.Value))
		if err != nil {
			t.log.Warn("failed to decode frame", zap.Error(err))
			continue
		}
		respTag, respMsg, err := handler(env)
		if err != nil {
			respTag, respMsg = TagErrorResponse, &ErrorResponseMessage{ErrorMessage: err.Error()}
		}
		if respMsg == nil {
			continue
		}
		var buf bytes.Buffer
		if err := Encode(&buf, respTag, respMsg); err != nil {
			t.log.Warn("failed to encode response frame", zap.Error(err))
			continue
		}
		if err := stream.SendMsg(&wrapperspb.BytesValue{Value: buf.Bytes()}); err != nil {
			return err
		}
	}
}

// Serve starts the gRPC server listening on addr and blocks
// until the server is stopped. Registration is done by hand since
// there is no protoc-generated service registrar for Cluster.
func (t *GRPCTransport) Serve(addr string, handler Handler) error {
	server := grpc.NewServer()
	server.RegisterService(t.serviceDesc(handler), nil)
	t.server = server

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errs.Wrap(errs.CodeTransport, "listen on "+addr, err)
	}
	return server.Serve(lis)
}

// Stop gracefully shuts down the gRPC server started by Serve.
func (t *GRPCTransport) Stop() {
	if t.server != nil {
		t.server.GracefulStop()
	}
}

func (t *GRPCTransport) getConn(addr string) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.conns[addr]; ok {
		return c, nil
	}
	cc, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "dial "+addr, err)
	}
	t.conns[addr] = cc
	return cc, nil
}

// SendAndReceive reuses (or dials) the client connection to addr, opens
// a new Exchange stream on it for this call, writes one envelope, and
// blocks for the single response frame.
func (t *GRPCTransport) SendAndReceive(ctx context.Context, addr string, tag Tag, msg interface{}) (*Envelope, error) {
	cc, err := t.getConn(addr)
	if err != nil {
		return nil, err
	}
	stream, err := cc.NewStream(ctx, &exchangeStreamDesc, exchangeMethodName)
	if err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "open stream to "+addr, err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, tag, msg); err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&wrapperspb.BytesValue{Value: buf.Bytes()}); err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "send frame to "+addr, err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "close send to "+addr, err)
	}
	resp := &wrapperspb.BytesValue{}
	if err := stream.RecvMsg(resp); err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "receive frame from "+addr, err)
	}
	env, err := Decode(bytes.NewReader(resp.Value))
	if err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "decode response from "+addr, err)
	}
	return env, nil
}
