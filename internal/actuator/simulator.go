package actuator

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xkilldash9x/auroch/api/schemas"
	"github.com/xkilldash9x/auroch/internal/plan"
)

// Simulator stands in for the physical actuator: it accepts action lists,
// tracks where the cursor would end up, and replies without moving anything.
type Simulator struct {
	mu       sync.Mutex
	cursor   schemas.Point
	received int
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewSimulator(start schemas.Point, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		cursor: start,
		logger: logger.Named("simulator"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Cursor is the simulated pointer position.
func (s *Simulator) Cursor() schemas.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Received counts accepted lists.
func (s *Simulator) Received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

// Apply runs a decoded list against the simulated state and returns the reply.
func (s *Simulator) Apply(actions []schemas.LowLevelAction) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pause float64
	for _, a := range actions {
		switch a.Kind {
		case schemas.KindRelMove:
			s.cursor.X += a.DX
			s.cursor.Y += a.DY
		case schemas.KindPause:
			pause += a.Seconds
		}
		s.logger.Debug("Simulated", zap.String("cmd", a.PiCommand()))
	}
	s.received++
	s.logger.Info("Simulated action list",
		zap.Int("actions", len(actions)),
		zap.Int("x", s.cursor.X), zap.Int("y", s.cursor.Y),
		zap.Duration("would_take", time.Duration(pause*float64(time.Second))),
	)
	return fmt.Sprintf("ok %d", len(actions))
}

// ServeHTTP handles one request/reply exchange per message until the peer closes.
func (s *Simulator) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(s.handle(msg))); err != nil {
			return
		}
	}
}

// ServeZMQ answers requests on a listening REP socket until ctx is done.
func (s *Simulator) ServeZMQ(ctx context.Context, rep zmq4.Socket) error {
	for {
		msg, err := rep.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Debug("Receive failed", zap.Error(err))
			continue
		}
		if err := rep.Send(zmq4.NewMsgString(s.handle(msg.Bytes()))); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("Reply failed", zap.Error(err))
		}
	}
}

func (s *Simulator) handle(msg []byte) string {
	actions, err := plan.DecodeLog(msg)
	if err != nil {
		s.logger.Warn("Rejected action list", zap.Error(err))
		return "error: " + err.Error()
	}
	return s.Apply(actions)
}
