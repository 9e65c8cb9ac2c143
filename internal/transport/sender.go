package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/xkilldash9x/auroch/internal/stability"
	"go.uber.org/zap"
)

// Sender dials the host receiver once per frame.
type Sender struct {
	Addr     string
	Timeout  time.Duration
	MaxBytes uint32
	logger   *zap.Logger
}

func NewSender(addr string, timeout time.Duration, maxBytes uint32, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes == 0 {
		maxBytes = DefaultMaxFrameBytes
	}
	return &Sender{Addr: addr, Timeout: timeout, MaxBytes: maxBytes, logger: logger.Named("sender")}
}

// Send writes one frame on a fresh connection.
func (s *Sender) Send(ctx context.Context, f Frame) error {
	d := net.Dialer{Timeout: s.Timeout}
	conn, err := d.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("dial screenshot host %s: %w", s.Addr, err)
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(s.Timeout))

	if err := WriteFrame(conn, f, s.MaxBytes); err != nil {
		return fmt.Errorf("send frame %s: %w", f.Meta.FrameID, err)
	}
	s.logger.Debug("Frame sent", zap.String("frame_id", f.Meta.FrameID), zap.Int("bytes", len(f.Image)))
	return nil
}

// Publish adapts a detector shot into a frame and sends it.
func (s *Sender) Publish(ctx context.Context, shot stability.Shot) error {
	return s.Send(ctx, FrameFromShot(shot))
}

// FrameFromShot stamps a shot with a fresh frame id.
func FrameFromShot(shot stability.Shot) Frame {
	return Frame{
		Meta: Metadata{
			FrameID: uuid.NewString(),
			VMEvent: shot.Event.VMEvent(),
			Hash:    stability.FormatHash(shot.Hash),
			TsMs:    shot.At.UnixMilli(),
		},
		Image: shot.Image,
	}
}
