package wire

import (
	"bufio"
	"net"
	"time"
)

// timeoutReader is a bufio.Reader that reads in chunks and returns a
// timeout error if a chunk isn't read within timeout, adapted from the
// teacher's TimeoutReader: deadlines are only set when the buffer must
// actually hit the network, so a fully-buffered read never blocks on
// SetReadDeadline.
type timeoutReader struct {
	timeout time.Duration
	reader  *bufio.Reader
	conn    net.Conn
}

func newTimeoutReader(conn net.Conn, chunkSize int, timeout time.Duration) *timeoutReader {
	return &timeoutReader{
		timeout: timeout,
		reader:  bufio.NewReaderSize(conn, chunkSize),
		conn:    conn,
	}
}

func (r *timeoutReader) Read(p []byte) (n int, err error) {
	deadline := r.reader.Buffered() == 0
	if deadline {
		r.conn.SetReadDeadline(time.Now().Add(r.timeout))
	}
	n, err = r.reader.Read(p)
	if deadline {
		r.conn.SetReadDeadline(time.Time{})
	}
	return n, err
}

func (r *timeoutReader) ReadByte() (byte, error) {
	deadline := r.reader.Buffered() == 0
	if deadline {
		r.conn.SetReadDeadline(time.Now().Add(r.timeout))
	}
	b, err := r.reader.ReadByte()
	if deadline {
		r.conn.SetReadDeadline(time.Time{})
	}
	return b, err
}

// timeoutWriter is the write-side counterpart of timeoutReader.
type timeoutWriter struct {
	timeout time.Duration
	writer  *bufio.Writer
	conn    net.Conn
}

func newTimeoutWriter(conn net.Conn, chunkSize int, timeout time.Duration) *timeoutWriter {
	return &timeoutWriter{
		timeout: timeout,
		writer:  bufio.NewWriterSize(conn, chunkSize),
		conn:    conn,
	}
}

func (w *timeoutWriter) Write(p []byte) (n int, err error) {
	deadline := len(p) > w.writer.Available()
	if deadline {
		w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	n, err = w.writer.Write(p)
	if deadline {
		w.conn.SetWriteDeadline(time.Time{})
	}
	return n, err
}

func (w *timeoutWriter) WriteByte(c byte) error {
	deadline := w.writer.Available() <= 0
	if deadline {
		w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	err := w.writer.WriteByte(c)
	if deadline {
		w.conn.SetWriteDeadline(time.Time{})
	}
	return err
}

func (w *timeoutWriter) Flush() error {
	w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	err := w.writer.Flush()
	w.conn.SetWriteDeadline(time.Time{})
	return err
}
