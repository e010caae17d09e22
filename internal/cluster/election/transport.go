package election

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ControlAddr derives a rank's election control address from its
// data-plane address by adding offset to the port, so the bully
// side-channel never collides with the data-plane listener.
func ControlAddr(dataAddr string, offset int) (string, error) {
	host, portStr, err := net.SplitHostPort(dataAddr)
	if err != nil {
		return "", err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("election: non-numeric port in %q: %w", dataAddr, err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+offset)), nil
}

// ControlAddrs applies ControlAddr to every address in dataAddrs.
func ControlAddrs(dataAddrs []string, offset int) ([]string, error) {
	out := make([]string, len(dataAddrs))
	for i, a := range dataAddrs {
		addr, err := ControlAddr(a, offset)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

// NewTCPSend returns a Send that dials addrs[destRank-1] (rank r's
// address lives at index r-1, since rank 0 is always the client and
// never a bully participant) and writes a single 8-byte control frame
// (msgType, sourceRank). Bully messages ride their own tiny control
// connection rather than the fixed twelve-tag data-plane taxonomy,
// since that taxonomy is a closed set the design holds unchanged.
func NewTCPSend(addrs []string, selfRank int, dialTimeout time.Duration, log *zap.Logger) Send {
	if log == nil {
		log = zap.NewNop()
	}
	return func(msgType MessageType, destRank int) {
		if destRank < 1 || destRank > len(addrs) {
			return
		}
		addr := addrs[destRank-1]
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err != nil {
			log.Warn("election: dial failed", zap.Int("destRank", destRank), zap.Error(err))
			return
		}
		defer conn.Close()
		var frame [8]byte
		binary.BigEndian.PutUint32(frame[0:4], uint32(msgType))
		binary.BigEndian.PutUint32(frame[4:8], uint32(selfRank))
		if _, err := conn.Write(frame[:]); err != nil {
			log.Warn("election: write failed", zap.Int("destRank", destRank), zap.Error(err))
		}
	}
}

// Serve listens on addr and feeds every incoming control frame into
// e.HandleMessage, one goroutine per connection.
func Serve(addr string, e *Election, log *zap.Logger) (io.Closer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				var frame [8]byte
				if _, err := io.ReadFull(conn, frame[:]); err != nil {
					return
				}
				msgType := MessageType(binary.BigEndian.Uint32(frame[0:4]))
				sourceRank := int(binary.BigEndian.Uint32(frame[4:8]))
				e.HandleMessage(msgType, sourceRank)
			}()
		}
	}()
	return ln, nil
}
