// internal/stability/control.go
package stability

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"
)

// ControlAck is the fixed reply to every control connection.
const ControlAck = "ok\n"

// ErrBadCommand is returned by ParseCommand for anything it cannot act on.
var ErrBadCommand = errors.New("bad control command")

// ControlRequest is the single-line JSON wire form of a command. The editor
// historically sent "ms" instead of "ttl_ms"; both are accepted.
type ControlRequest struct {
	Cmd   string `json:"cmd"`
	TTLms *int64 `json:"ttl_ms,omitempty"`
	Ms    *int64 `json:"ms,omitempty"`
}

// ParseCommand decodes one request line.
func ParseCommand(line []byte, defaultTTL time.Duration) (Command, error) {
	var req ControlRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrBadCommand, err)
	}
	switch strings.ToLower(strings.TrimSpace(req.Cmd)) {
	case "mute":
		ttl := defaultTTL
		switch {
		case req.TTLms != nil:
			ttl = time.Duration(*req.TTLms) * time.Millisecond
		case req.Ms != nil:
			ttl = time.Duration(*req.Ms) * time.Millisecond
		}
		if ttl < 0 {
			ttl = 0
		}
		return Command{Kind: CmdMute, TTL: ttl}, nil
	case "unmute":
		return Command{Kind: CmdUnmute}, nil
	case "capture_now":
		return Command{Kind: CmdCaptureNow}, nil
	}
	return Command{}, fmt.Errorf("%w: unknown cmd %q", ErrBadCommand, req.Cmd)
}

// CommandSink receives parsed commands. Monitor implements it.
type CommandSink interface {
	Submit(cmd Command) bool
}

// ControlConfig tunes the listener.
type ControlConfig struct {
	ReadTimeout     time.Duration
	AcceptRate      float64
	AcceptBurst     int
	DefaultMuteTTL  time.Duration
	MaxCommandBytes int64
}

func DefaultControlConfig() ControlConfig {
	return ControlConfig{
		ReadTimeout:     2 * time.Second,
		AcceptRate:      20,
		AcceptBurst:     5,
		DefaultMuteTTL:  120 * time.Second,
		MaxCommandBytes: 4096,
	}
}

// ControlServer accepts one connection at a time, reads one command line,
// forwards it and always acknowledges.
type ControlServer struct {
	cfg     ControlConfig
	sink    CommandSink
	logger  *zap.Logger
	limiter *rate.Limiter
}

func NewControlServer(cfg ControlConfig, sink CommandSink, logger *zap.Logger) *ControlServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ControlServer{
		cfg:     cfg,
		sink:    sink,
		logger:  logger.Named("control"),
		limiter: rate.NewLimiter(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst),
	}
}

// Listen binds addr. A bind failure is a setup error for the caller.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind control listener %s: %w", addr, err)
	}
	return ln, nil
}

// Serve handles connections on ln until ctx is cancelled. It closes ln.
func (s *ControlServer) Serve(ctx context.Context, ln net.Listener) error {
	ln = netutil.LimitListener(ln, 1)
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	s.logger.Info("Listening for control commands", zap.String("addr", ln.Addr().String()))

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil
		}
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("Accept failed", zap.Error(err))
			continue
		}
		s.handle(conn)
	}
}

func (s *ControlServer) handle(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	_ = conn.SetDeadline(time.Now().Add(s.cfg.ReadTimeout))
	r := bufio.NewReader(io.LimitReader(conn, s.cfg.MaxCommandBytes))
	line, err := r.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		s.logger.Warn("Failed to read control command", zap.String("remote", remote), zap.Error(err))
	} else if cmd, perr := ParseCommand(line, s.cfg.DefaultMuteTTL); perr != nil {
		s.logger.Warn("Ignoring malformed control command", zap.String("remote", remote), zap.Error(perr))
	} else if !s.sink.Submit(cmd) {
		s.logger.Warn("Control command dropped", zap.String("remote", remote), zap.Stringer("cmd", cmd.Kind))
	} else {
		s.logger.Info("Control command accepted", zap.String("remote", remote), zap.Stringer("cmd", cmd.Kind))
	}

	if _, err := io.WriteString(conn, ControlAck); err != nil {
		s.logger.Debug("Failed to acknowledge", zap.String("remote", remote), zap.Error(err))
	}
}
