// internal/transport/server.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FrameHandler consumes received frames.
type FrameHandler interface {
	HandleFrame(ctx context.Context, f Frame) error
}

// FrameHandlerFunc adapts a function to FrameHandler.
type FrameHandlerFunc func(ctx context.Context, f Frame) error

func (fn FrameHandlerFunc) HandleFrame(ctx context.Context, f Frame) error { return fn(ctx, f) }

// Server receives one frame per connection and hands it to a FrameHandler.
type Server struct {
	handler     FrameHandler
	maxBytes    uint32
	readTimeout time.Duration
	logger      *zap.Logger
}

func NewServer(handler FrameHandler, maxBytes uint32, readTimeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes == 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &Server{handler: handler, maxBytes: maxBytes, readTimeout: readTimeout, logger: logger.Named("receiver")}
}

// Listen binds addr for Serve.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind screenshot listener %s: %w", addr, err)
	}
	return ln, nil
}

// Serve accepts connections until ctx is cancelled, then waits for in-flight
// handlers. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	s.logger.Info("Receiving screenshots", zap.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("Accept failed", zap.Error(err))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}

	f, err := ReadFrame(conn, s.maxBytes)
	if err != nil {
		s.logger.Warn("Dropping unreadable frame", zap.String("remote", remote), zap.Error(err))
		return
	}
	if err := s.handler.HandleFrame(ctx, f); err != nil {
		s.logger.Error("Frame handler failed", zap.String("remote", remote), zap.String("frame_id", f.Meta.FrameID), zap.Error(err))
		return
	}
	s.logger.Info("Frame received",
		zap.String("remote", remote),
		zap.String("frame_id", f.Meta.FrameID),
		zap.String("event", f.Meta.VMEvent),
		zap.Int("bytes", len(f.Image)),
	)
}
