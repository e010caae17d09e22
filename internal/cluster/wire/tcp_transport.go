package wire

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sashank1508/idioms/internal/errs"
)

const (
	defaultChunkSize = 16 * 1024
	defaultTimeout   = 2 * time.Second
)

// Handler processes one decoded envelope read off a connection and
// returns the response tag/payload to write back, or a nil payload if
// the connection should simply keep listening without replying.
type Handler func(env *Envelope) (Tag, interface{}, error)

// conn wraps a net.Conn with the timeout reader/writer pair and a
// mutex so a single connection is never written to concurrently,
// mirroring the teacher's ringConn.
type conn struct {
	sync.Mutex
	nc     net.Conn
	reader *timeoutReader
	writer *timeoutWriter
}

func newConn(nc net.Conn, chunkSize int, timeout time.Duration) *conn {
	return &conn{
		nc:     nc,
		reader: newTimeoutReader(nc, chunkSize, timeout),
		writer: newTimeoutWriter(nc, chunkSize, timeout),
	}
}

// TCPTransport is the default cluster transport: a length-framed
// binary protocol over persistent TCP connections, adapted from the
// teacher's TCPMsgRing connection-pooling and accept-loop design.
type TCPTransport struct {
	ChunkSize int
	Timeout   time.Duration

	log *zap.Logger

	mu    sync.Mutex
	conns map[string]*conn

	listener net.Listener
}

// NewTCPTransport builds a transport ready to Dial out and, once
// Listen is called, accept incoming connections.
func NewTCPTransport(logger *zap.Logger) *TCPTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TCPTransport{
		ChunkSize: defaultChunkSize,
		Timeout:   defaultTimeout,
		log:       logger,
		conns:     make(map[string]*conn),
	}
}

// Send writes tag/msg to addr, opening and caching a connection if one
// isn't already pooled, exactly as TCPMsgRing.msgToNode does.
func (t *TCPTransport) Send(addr string, tag Tag, msg interface{}) error {
	c, err := t.getConn(addr)
	if err != nil {
		return err
	}
	c.Lock()
	defer c.Unlock()
	if err := Encode(c.writer, tag, msg); err != nil {
		return err
	}
	if err := c.writer.Flush(); err != nil {
		return errs.Wrap(errs.CodeTransport, "flush connection to "+addr, err)
	}
	return nil
}

// SendAndReceive writes a request and blocks for a single response
// envelope on the same connection, used for request/response channels
// like Query and the admin channel.
func (t *TCPTransport) SendAndReceive(addr string, tag Tag, msg interface{}) (*Envelope, error) {
	c, err := t.getConn(addr)
	if err != nil {
		return nil, err
	}
	c.Lock()
	defer c.Unlock()
	if err := Encode(c.writer, tag, msg); err != nil {
		return nil, err
	}
	if err := c.writer.Flush(); err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "flush connection to "+addr, err)
	}
	env, err := Decode(c.reader)
	if err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "read response from "+addr, err)
	}
	return env, nil
}

func (t *TCPTransport) getConn(addr string) (*conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.conns[addr]; ok {
		return c, nil
	}
	nc, err := net.DialTimeout("tcp", addr, t.Timeout)
	if err != nil {
		return nil, errs.Wrap(errs.CodeTransport, "dial "+addr, err)
	}
	c := newConn(nc, t.ChunkSize, t.Timeout)
	t.conns[addr] = c
	return c, nil
}

// dropConn removes a dead connection from the pool so the next Send
// redials, mirroring what the teacher's handle() does implicitly by
// closing the conn on error.
func (t *TCPTransport) dropConn(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, addr)
}

// Listen starts accepting connections on addr, dispatching every
// decoded envelope to handler and writing back whatever tag/payload it
// returns. It blocks until the listener is closed.
func (t *TCPTransport) Listen(addr string, handler Handler) error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return errs.Wrap(errs.CodeTransport, "resolve "+addr, err)
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return errs.Wrap(errs.CodeTransport, "listen on "+addr, err)
	}
	t.listener = ln
	for {
		nc, err := ln.AcceptTCP()
		if err != nil {
			if t.listener == nil {
				return nil // Close() called
			}
			t.log.Warn("accept failed", zap.Error(err))
			continue
		}
		go t.handle(nc, handler)
	}
}

// Close stops accepting new connections. In-flight connections are
// left to finish their current request.
func (t *TCPTransport) Close() error {
	if t.listener == nil {
		return nil
	}
	ln := t.listener
	t.listener = nil
	return ln.Close()
}

func (t *TCPTransport) handle(nc net.Conn, handler Handler) {
	c := newConn(nc, t.ChunkSize, t.Timeout)
	addr := nc.RemoteAddr().String()
	defer nc.Close()
	for {
		env, err := Decode(c.reader)
		if err != nil {
			t.log.Debug("connection closed", zap.String("remote", addr), zap.Error(err))
			return
		}
		respTag, respMsg, err := handler(env)
		if err != nil {
			t.log.Warn("handler error", zap.String("remote", addr), zap.Error(err))
			respTag, respMsg = TagErrorResponse, &ErrorResponseMessage{ErrorMessage: err.Error()}
		}
		if respMsg == nil {
			continue // handler chose not to reply
		}
		c.Lock()
		encErr := Encode(c.writer, respTag, respMsg)
		if encErr == nil {
			encErr = c.writer.Flush()
		}
		c.Unlock()
		if encErr != nil {
			t.log.Warn("failed writing response", zap.String("remote", addr), zap.Error(encErr))
			return
		}
	}
}
