package handlers

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"

	"dice-game-server/internal/middleware"
	"dice-game-server/internal/protocol"
)

// TCPServer accepts raw TCP clients speaking the framed protocol. The
// envelope is self-delimiting, so the stream carries frames back to back.
type TCPServer struct {
	dispatcher *Dispatcher
	limiter    *middleware.ConnLimiter
	logger     *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

func NewTCPServer(dispatcher *Dispatcher, limiter *middleware.ConnLimiter, logger *zap.Logger) *TCPServer {
	return &TCPServer{
		dispatcher: dispatcher,
		limiter:    limiter,
		logger:     logger,
	}
}

// ListenAndServe accepts connections until Shutdown closes the listener.
func (s *TCPServer) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("tcp server listening", zap.String("addr", addr))

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Listener closed during shutdown.
			s.wg.Wait()
			return nil
		}

		if !s.limiter.Acquire() {
			s.logger.Warn("connection refused: at capacity", zap.String("remote", conn.RemoteAddr().String()))
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.limiter.Release()
			s.dispatcher.Serve(newTCPFrameConn(conn))
		}()
	}
}

// Shutdown stops accepting new connections. Connections already being
// served run until their clients disconnect.
func (s *TCPServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
}

// tcpFrameConn adapts a net.Conn to the FrameConn interface.
type tcpFrameConn struct {
	conn   net.Conn
	reader *bufio.Reader
	broken bool
}

func newTCPFrameConn(conn net.Conn) *tcpFrameConn {
	return &tcpFrameConn{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (t *tcpFrameConn) ReadFrame() (uint32, []byte, error) {
	if t.broken {
		return 0, nil, io.EOF
	}
	commandID, payload, err := protocol.ReadFrame(t.reader)
	if err != nil {
		var decodeErr *protocol.DecodeError
		if errors.As(err, &decodeErr) {
			// A bad header desyncs the byte stream; let the dispatcher
			// report the error, then end the connection on the next read.
			t.broken = true
		}
	}
	return commandID, payload, err
}

func (t *tcpFrameConn) WriteFrame(frame []byte) error {
	_, err := t.conn.Write(frame)
	return err
}

func (t *tcpFrameConn) Close() error {
	return t.conn.Close()
}

func (t *tcpFrameConn) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
