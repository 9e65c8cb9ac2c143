// internal/stability/monitor.go
package stability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CommandKind enumerates control commands.
type CommandKind int

const (
	CmdMute CommandKind = iota
	CmdUnmute
	CmdCaptureNow
)

func (k CommandKind) String() string {
	switch k {
	case CmdMute:
		return "mute"
	case CmdUnmute:
		return "unmute"
	case CmdCaptureNow:
		return "capture_now"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is delivered to the sampling loop through Monitor.Submit.
type Command struct {
	Kind CommandKind
	TTL  time.Duration
}

// Shot is one published frame.
type Shot struct {
	Image []byte
	Hash  uint64
	Event EventKind
	At    time.Time
}

// Publisher delivers shots to the consumer.
type Publisher interface {
	Publish(ctx context.Context, shot Shot) error
}

// MonitorConfig controls the sampling cadence.
type MonitorConfig struct {
	Interval      time.Duration
	MutedPoll     time.Duration
	RetryDelay    time.Duration
	CommandBuffer int
}

// DefaultMonitorConfig samples twice a second and retries after 5s.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:      500 * time.Millisecond,
		MutedPoll:     200 * time.Millisecond,
		RetryDelay:    5 * time.Second,
		CommandBuffer: 16,
	}
}

func (c MonitorConfig) Validate() error {
	if c.Interval <= 0 || c.MutedPoll <= 0 || c.RetryDelay <= 0 {
		return errors.New("monitor intervals must be > 0")
	}
	if c.CommandBuffer < 1 {
		return errors.New("command buffer must be >= 1")
	}
	return nil
}

// Monitor is the sampling loop. It exclusively owns its Detector; other
// goroutines reach it only through Submit.
type Monitor struct {
	cfg       MonitorConfig
	det       *Detector
	capturer  Capturer
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	cmds chan Command
	wake chan struct{}

	pending     *Shot
	captureOwed bool
}

// NewMonitor validates both configs and builds a monitor.
func NewMonitor(cfg MonitorConfig, detCfg DetectorConfig, capturer Capturer, publisher Publisher, logger *zap.Logger) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := detCfg.Validate(); err != nil {
		return nil, err
	}
	if capturer == nil || publisher == nil {
		return nil, errors.New("monitor requires a capturer and a publisher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		cfg:       cfg,
		capturer:  capturer,
		publisher: publisher,
		logger:    logger.Named("monitor"),
		now:       time.Now,
		cmds:      make(chan Command, cfg.CommandBuffer),
		wake:      make(chan struct{}, 1),
	}
	m.det = NewDetector(detCfg, m.now())
	return m, nil
}

// Submit queues a command without blocking. It returns false when the
// queue is full and the command was dropped.
func (m *Monitor) Submit(cmd Command) bool {
	select {
	case m.cmds <- cmd:
	default:
		m.logger.Warn("Command queue full, dropping command", zap.Stringer("cmd", cmd.Kind))
		return false
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// Run samples until ctx is cancelled. Failures are logged and retried; they
// never end the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("Sampling loop started",
		zap.Duration("interval", m.cfg.Interval),
		zap.Stringer("mode", m.det.State().Mode),
	)
	for {
		delay := m.tick(ctx)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("Sampling loop stopped")
			return nil
		case <-m.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// tick runs one cycle and returns how long to wait before the next one.
func (m *Monitor) tick(ctx context.Context) time.Duration {
	now := m.now()
	m.drainCommands(now)

	if m.pending != nil {
		if err := m.publish(ctx, *m.pending); err != nil {
			return m.cfg.RetryDelay
		}
		m.pending = nil
	}

	if m.captureOwed {
		img, hash, err := m.sample(ctx)
		if err != nil {
			return m.cfg.RetryDelay
		}
		m.captureOwed = false
		dec := m.det.CaptureNow(hash, m.now())
		if !m.emit(ctx, dec, img) {
			return m.cfg.RetryDelay
		}
		return m.cfg.Interval
	}

	if m.det.Muted(now) {
		return m.cfg.MutedPoll
	}

	img, hash, err := m.sample(ctx)
	if err != nil {
		return m.cfg.RetryDelay
	}
	dec := m.det.Observe(hash, m.now())
	m.logger.Debug("Sample observed",
		zap.String("hash", FormatHash(hash)),
		zap.Stringer("mode", dec.Mode),
		zap.String("reason", dec.Reason),
	)
	if dec.Emit() && !m.emit(ctx, dec, img) {
		return m.cfg.RetryDelay
	}
	return m.cfg.Interval
}

func (m *Monitor) drainCommands(now time.Time) {
	for {
		select {
		case cmd := <-m.cmds:
			m.apply(cmd, now)
		default:
			return
		}
	}
}

func (m *Monitor) apply(cmd Command, now time.Time) {
	switch cmd.Kind {
	case CmdMute:
		m.det.Mute(cmd.TTL, now)
		if m.pending != nil && m.pending.Event == EventChanged {
			m.logger.Info("Dropping unsent change shot due to mute")
			m.pending = nil
		}
		m.logger.Info("Muted", zap.Duration("ttl", cmd.TTL))
	case CmdUnmute:
		m.det.Unmute()
		m.logger.Info("Unmuted")
	case CmdCaptureNow:
		m.captureOwed = true
		m.logger.Info("Capture requested")
	}
}

func (m *Monitor) sample(ctx context.Context) ([]byte, uint64, error) {
	img, err := m.capturer.Capture(ctx)
	if err != nil {
		m.logger.Error("Screen capture failed, backing off", zap.Error(err), zap.Duration("retry_in", m.cfg.RetryDelay))
		return nil, 0, err
	}
	hash, err := DHashBytes(img)
	if err != nil {
		m.logger.Error("Hashing capture failed, backing off", zap.Error(err), zap.Duration("retry_in", m.cfg.RetryDelay))
		return nil, 0, err
	}
	return img, hash, nil
}

// emit publishes a decision. On failure the shot is kept for the next tick.
func (m *Monitor) emit(ctx context.Context, dec Decision, img []byte) bool {
	shot := Shot{Image: img, Hash: dec.Hash, Event: dec.Event, At: m.now()}
	if err := m.publish(ctx, shot); err != nil {
		m.pending = &shot
		return false
	}
	return true
}

func (m *Monitor) publish(ctx context.Context, shot Shot) error {
	if err := m.publisher.Publish(ctx, shot); err != nil {
		m.logger.Error("Publishing shot failed, will retry",
			zap.Error(err),
			zap.String("event", shot.Event.VMEvent()),
			zap.Duration("retry_in", m.cfg.RetryDelay),
		)
		return err
	}
	m.logger.Info("Shot published",
		zap.String("event", shot.Event.VMEvent()),
		zap.String("hash", FormatHash(shot.Hash)),
		zap.Int("bytes", len(shot.Image)),
	)
	return nil
}
