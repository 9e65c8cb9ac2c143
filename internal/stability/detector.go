// internal/stability/detector.go
package stability

import (
	"errors"
	"fmt"
	"time"
)

// Mode is the detector's top-level state.
type Mode int

const (
	ModeMuted Mode = iota
	ModeTracking
	ModeCandidate
	ModeQuarantine
)

func (m Mode) String() string {
	switch m {
	case ModeMuted:
		return "MUTED"
	case ModeTracking:
		return "TRACKING"
	case ModeCandidate:
		return "CANDIDATE"
	case ModeQuarantine:
		return "QUARANTINE"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// EventKind says whether a decision should be published and why.
type EventKind int

const (
	EventNone EventKind = iota
	// EventChanged: the screen moved to a new state and held it.
	EventChanged
	// EventManual: an explicit capture request.
	EventManual
)

// VMEvent returns the wire tag used in screenshot metadata.
func (k EventKind) VMEvent() string {
	switch k {
	case EventChanged:
		return "change_send"
	case EventManual:
		return "manual_capture"
	}
	return ""
}

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventChanged:
		return "changed"
	case EventManual:
		return "manual"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Decision is the outcome of feeding one hash or command to the detector.
type Decision struct {
	Event  EventKind
	Hash   uint64
	Mode   Mode
	Reason string
}

// Emit reports whether the decision asks for a publish.
func (d Decision) Emit() bool { return d.Event != EventNone }

// DetectorConfig holds the stability thresholds.
type DetectorConfig struct {
	StableConsec  int
	StableMin     time.Duration
	QuarantineMax time.Duration
	// HashTolerance is the Hamming distance at or below which two hashes are
	// considered the same screen.
	HashTolerance int
	// StartMuted begins in MUTED for StartupMuteTTL.
	StartMuted     bool
	StartupMuteTTL time.Duration
}

// DefaultDetectorConfig returns the deployed thresholds. Startup is muted for
// a year, i.e. until the first explicit unmute.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		StableConsec:   3,
		StableMin:      800 * time.Millisecond,
		QuarantineMax:  6 * time.Second,
		HashTolerance:  0,
		StartMuted:     true,
		StartupMuteTTL: 365 * 24 * time.Hour,
	}
}

func (c DetectorConfig) Validate() error {
	var errs []error
	if c.StableConsec < 1 {
		errs = append(errs, errors.New("stable_consec must be >= 1"))
	}
	if c.StableMin < 0 {
		errs = append(errs, errors.New("stable_min must be >= 0"))
	}
	if c.QuarantineMax <= 0 {
		errs = append(errs, errors.New("quarantine_max must be > 0"))
	}
	if c.HashTolerance < 0 || c.HashTolerance > 64 {
		errs = append(errs, errors.New("hash_tolerance must be in [0,64]"))
	}
	if c.StartMuted && c.StartupMuteTTL <= 0 {
		errs = append(errs, errors.New("startup_mute_ttl must be > 0 when start_muted is set"))
	}
	return errors.Join(errs...)
}

// State is a snapshot of the detector.
type State struct {
	Mode               Mode
	Baseline           uint64
	HasBaseline        bool
	Candidate          uint64
	CandidateCount     int
	CandidateStart     time.Time
	QuarantineDeadline time.Time
	MutedUntil         time.Time
}

// Detector is the screen-stability state machine. It is not safe for
// concurrent use; the Monitor goroutine owns it.
type Detector struct {
	cfg DetectorConfig
	st  State
}

// NewDetector creates a detector whose startup mute, if any, runs from now.
func NewDetector(cfg DetectorConfig, now time.Time) *Detector {
	d := &Detector{cfg: cfg}
	d.st.Mode = ModeTracking
	if cfg.StartMuted {
		d.st.Mode = ModeMuted
		d.st.MutedUntil = now.Add(cfg.StartupMuteTTL)
	}
	return d
}

// State returns a copy of the current state.
func (d *Detector) State() State { return d.st }

// Muted reports whether comparisons are suppressed at now.
func (d *Detector) Muted(now time.Time) bool {
	return d.st.Mode == ModeMuted && now.Before(d.st.MutedUntil)
}

func (d *Detector) same(a, b uint64) bool {
	return Hamming(a, b) <= d.cfg.HashTolerance
}

func (d *Detector) clearTracking() {
	d.st.Candidate = 0
	d.st.CandidateCount = 0
	d.st.CandidateStart = time.Time{}
	d.st.QuarantineDeadline = time.Time{}
}

func (d *Detector) decision(ev EventKind, hash uint64, reason string) Decision {
	return Decision{Event: ev, Hash: hash, Mode: d.st.Mode, Reason: reason}
}

// Observe feeds one sampled hash taken at now.
func (d *Detector) Observe(hash uint64, now time.Time) Decision {
	if d.st.Mode == ModeMuted {
		if now.Before(d.st.MutedUntil) {
			return d.decision(EventNone, hash, "muted")
		}
		d.st.Mode = ModeTracking
		d.st.MutedUntil = time.Time{}
		d.clearTracking()
	}

	if !d.st.HasBaseline {
		d.st.Baseline = hash
		d.st.HasBaseline = true
		d.st.Mode = ModeTracking
		return d.decision(EventNone, hash, "initial baseline")
	}

	switch d.st.Mode {
	case ModeTracking:
		if d.same(hash, d.st.Baseline) {
			return d.decision(EventNone, hash, "unchanged")
		}
		d.startCandidate(hash, now)
		return d.promote(now)

	case ModeCandidate:
		switch {
		case d.same(hash, d.st.Candidate):
			d.st.CandidateCount++
		case d.same(hash, d.st.Baseline):
			d.st.Mode = ModeTracking
			d.clearTracking()
			return d.decision(EventNone, hash, "reverted to baseline")
		default:
			d.startCandidate(hash, now)
		}
		return d.promote(now)

	case ModeQuarantine:
		if !now.Before(d.st.QuarantineDeadline) {
			d.adopt(hash)
			return d.decision(EventNone, hash, "quarantine expired")
		}
		if d.same(hash, d.st.Candidate) {
			d.st.CandidateCount++
		} else {
			d.st.Candidate = hash
			d.st.CandidateCount = 1
		}
		if d.st.CandidateCount >= d.cfg.StableConsec {
			d.adopt(d.st.Candidate)
			return d.decision(EventNone, hash, "quarantine settled")
		}
		return d.decision(EventNone, hash, "settling")
	}
	return d.decision(EventNone, hash, "unreachable")
}

func (d *Detector) startCandidate(hash uint64, now time.Time) {
	d.st.Mode = ModeCandidate
	d.st.Candidate = hash
	d.st.CandidateCount = 1
	d.st.CandidateStart = now
}

// promote emits once the candidate has been seen often enough for long enough.
func (d *Detector) promote(now time.Time) Decision {
	if d.st.CandidateCount < d.cfg.StableConsec || now.Sub(d.st.CandidateStart) < d.cfg.StableMin {
		return d.decision(EventNone, d.st.Candidate, "candidate")
	}
	emitted := d.st.Candidate
	d.st.Mode = ModeQuarantine
	d.st.QuarantineDeadline = now.Add(d.cfg.QuarantineMax)
	// Settling needs StableConsec fresh samples; the emitted frame is not one.
	d.st.Candidate = 0
	d.st.CandidateCount = 0
	d.st.CandidateStart = now
	return d.decision(EventChanged, emitted, "changed and stable")
}

func (d *Detector) adopt(hash uint64) {
	d.st.Baseline = hash
	d.st.HasBaseline = true
	d.st.Mode = ModeTracking
	d.clearTracking()
}

// Mute suppresses comparison and emission until now+ttl.
func (d *Detector) Mute(ttl time.Duration, now time.Time) {
	d.st.Mode = ModeMuted
	d.st.MutedUntil = now.Add(ttl)
	d.clearTracking()
}

// Unmute re-arms comparison against the preserved baseline. It never emits.
func (d *Detector) Unmute() {
	d.st.Mode = ModeTracking
	d.st.MutedUntil = time.Time{}
	d.clearTracking()
}

// CaptureNow emits hash unconditionally and adopts it as the baseline. An
// active mute stays in force.
func (d *Detector) CaptureNow(hash uint64, now time.Time) Decision {
	muted := d.Muted(now)
	d.st.Baseline = hash
	d.st.HasBaseline = true
	d.clearTracking()
	if muted {
		d.st.Mode = ModeMuted
	} else {
		d.st.Mode = ModeTracking
		d.st.MutedUntil = time.Time{}
	}
	return d.decision(EventManual, hash, "capture requested")
}
