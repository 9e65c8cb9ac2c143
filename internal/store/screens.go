// internal/store/screens.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/auroch/internal/transport"
	"go.uber.org/zap"
)

const (
	currentRunFile = "current_run.txt"
	latestFile     = "latest.json"
	eventsFile     = "events.jsonl"
	runIDLayout    = "20060102_150405"
)

// ErrNoRun is returned when no run folder has been created under the root yet.
var ErrNoRun = errors.New("no current screenshot run")

// Pointer is the content of latest.json.
type Pointer struct {
	LatestIndex int64  `json:"latest_index"`
	Path        string `json:"path"`
}

// Event is one line of events.jsonl and one row of the index.
type Event struct {
	RunID   string `json:"run_id"`
	FrameID string `json:"frame_id"`
	VMEvent string `json:"vm_event"`
	Hash    string `json:"hash"`
	TsMs    int64  `json:"ts_ms"`
	SentMs  int64  `json:"sent_ms"`
	Path    string `json:"path"`
	Bytes   int    `json:"bytes"`
}

// RunStore persists received screenshots into the current run folder.
type RunStore struct {
	mu        sync.Mutex
	root      string
	runID     string
	dir       string
	lastIndex int64
	index     *Index
	logger    *zap.Logger
	now       func() time.Time
}

// OpenRunStore resolves the current run under root, creating one when
// current_run.txt is missing or names a folder that no longer exists.
// index may be nil.
func OpenRunStore(root string, index *Index, logger *zap.Logger) (*RunStore, error) {
	return openRunStore(root, index, logger, time.Now)
}

func openRunStore(root string, index *Index, logger *zap.Logger, now func() time.Time) (*RunStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create screens root: %w", err)
	}
	runID, dir, err := ensureRun(root, now())
	if err != nil {
		return nil, err
	}
	s := &RunStore{
		root:   root,
		runID:  runID,
		dir:    dir,
		index:  index,
		logger: logger.Named("screens").With(zap.String("run_id", runID)),
		now:    now,
	}
	if p, err := readPointer(filepath.Join(dir, latestFile)); err == nil {
		s.lastIndex = p.LatestIndex
	}
	s.logger.Info("Screenshot run ready", zap.String("dir", dir))
	return s, nil
}

func ensureRun(root string, now time.Time) (string, string, error) {
	cur := filepath.Join(root, currentRunFile)
	if b, err := os.ReadFile(cur); err == nil {
		id := strings.TrimSpace(string(b))
		if id != "" {
			d := filepath.Join(root, id)
			if st, err := os.Stat(d); err == nil && st.IsDir() {
				return id, d, nil
			}
		}
	}
	id := now.Format(runIDLayout)
	d := filepath.Join(root, id)
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", "", fmt.Errorf("create run folder: %w", err)
	}
	if err := os.WriteFile(cur, []byte(id), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", currentRunFile, err)
	}
	return id, d, nil
}

func (s *RunStore) RunID() string { return s.runID }
func (s *RunStore) Dir() string   { return s.dir }

// HandleFrame stores a received frame.
func (s *RunStore) HandleFrame(ctx context.Context, f transport.Frame) error {
	_, err := s.Save(ctx, f)
	return err
}

// Save writes the image, advances latest.json, appends to events.jsonl and
// indexes the shot. The latest index never goes backwards, so two frames in
// the same millisecond still get distinct files.
func (s *RunStore) Save(ctx context.Context, f transport.Frame) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UnixMilli()
	if ts <= s.lastIndex {
		ts = s.lastIndex + 1
	}
	path, err := filepath.Abs(filepath.Join(s.dir, fmt.Sprintf("shot_%d.png", ts)))
	if err != nil {
		return Event{}, err
	}
	if err := os.WriteFile(path, f.Image, 0o644); err != nil {
		return Event{}, fmt.Errorf("write screenshot: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, latestFile), Pointer{LatestIndex: ts, Path: path}); err != nil {
		return Event{}, err
	}
	s.lastIndex = ts

	ev := Event{
		RunID:   s.runID,
		FrameID: f.Meta.FrameID,
		VMEvent: f.Meta.VMEvent,
		Hash:    f.Meta.Hash,
		TsMs:    ts,
		SentMs:  f.Meta.TsMs,
		Path:    path,
		Bytes:   len(f.Image),
	}
	if err := s.appendEvent(ev); err != nil {
		s.logger.Warn("Could not append event", zap.Error(err))
	}
	if s.index != nil {
		if err := s.index.Record(ctx, ev); err != nil {
			s.logger.Warn("Could not index screenshot", zap.Error(err))
		}
	}
	return ev, nil
}

func (s *RunStore) appendEvent(ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	fh, err := os.OpenFile(filepath.Join(s.dir, eventsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()
	_, err = fh.Write(append(b, '\n'))
	return err
}

// writeAtomic replaces path via rename so readers never see a partial file.
func writeAtomic(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readPointer(path string) (Pointer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pointer{}, err
	}
	var p Pointer
	if err := json.Unmarshal(b, &p); err != nil {
		return Pointer{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return p, nil
}

// CurrentRun returns the run id and folder named by current_run.txt.
func CurrentRun(root string) (string, string, error) {
	b, err := os.ReadFile(filepath.Join(root, currentRunFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", "", ErrNoRun
		}
		return "", "", err
	}
	id := strings.TrimSpace(string(b))
	if id == "" {
		return "", "", ErrNoRun
	}
	return id, filepath.Join(root, id), nil
}

// Latest reads latest.json of the current run.
func Latest(root string) (Pointer, error) {
	_, dir, err := CurrentRun(root)
	if err != nil {
		return Pointer{}, err
	}
	p, err := readPointer(filepath.Join(dir, latestFile))
	if errors.Is(err, os.ErrNotExist) {
		return Pointer{}, ErrNoRun
	}
	return p, err
}
