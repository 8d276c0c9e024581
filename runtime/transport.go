package runtime

import (
	"bufio"
	"chatterm/contract"
	"chatterm/errors"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

var _ contract.LineConn = (*LineConn)(nil)

// LineConn frames a net.Conn as newline-delimited text.
// Writes are serialized so concurrent broadcasts never interleave inside a line.
type LineConn struct {
	conn         net.Conn
	scanner      *bufio.Scanner
	writeTimeout time.Duration
	wmu          sync.Mutex
}

func NewLineConn(conn net.Conn, maxLineLength int, writeTimeout time.Duration) *LineConn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, min(maxLineLength, 4096)), maxLineLength)
	return &LineConn{conn: conn, scanner: scanner, writeTimeout: writeTimeout}
}

// ReadLine blocks until a full line arrives. The peer closing the stream
// surfaces as io.EOF wrapped in errors.ErrTransport.
func (c *LineConn) ReadLine() (string, error) {
	if c.scanner.Scan() {
		return strings.TrimSuffix(c.scanner.Text(), "\r"), nil
	}
	err := c.scanner.Err()
	switch {
	case err == nil:
		err = io.EOF
	case stderrors.Is(err, bufio.ErrTooLong):
		err = errors.ErrLineTooLong
	}
	return "", fmt.Errorf("%w: read: %w", errors.ErrTransport, err)
}

func (c *LineConn) WriteLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("%w: deadline: %w", errors.ErrTransport, err)
		}
	}
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		return fmt.Errorf("%w: write: %w", errors.ErrTransport, err)
	}
	return nil
}

// Close is safe to call more than once.
func (c *LineConn) Close() error {
	err := c.conn.Close()
	if err != nil && !stderrors.Is(err, net.ErrClosed) && !stderrors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}

func (c *LineConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
