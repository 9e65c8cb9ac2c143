// internal/plan/actionlog.go
package plan

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/xkilldash9x/auroch/api/schemas"
)

const (
	logPrefix     = "sent_plan_"
	logTimeLayout = "20060102_150405"
	zstdSuffix    = ".zst"
)

// LogPath returns the audit log path for a send happening at now.
func LogPath(dir string, now time.Time, compress bool) string {
	name := logPrefix + now.Format(logTimeLayout) + ".json"
	if compress {
		name += zstdSuffix
	}
	return filepath.Join(dir, name)
}

// EncodeLog renders actions as the indented JSON tuple array the actuator consumes.
func EncodeLog(actions []schemas.LowLevelAction) ([]byte, error) {
	if actions == nil {
		actions = []schemas.LowLevelAction{}
	}
	return jsonc.MarshalIndent(actions, "", "  ")
}

// DecodeLog parses a JSON tuple array. Any malformed element fails the whole log.
func DecodeLog(data []byte) ([]schemas.LowLevelAction, error) {
	var actions []schemas.LowLevelAction
	if err := jsonc.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("decode action log: %w", err)
	}
	for i, a := range actions {
		if a.Kind == "" {
			return nil, fmt.Errorf("decode action log: element %d: %w", i, schemas.ErrInvalidLowLevel)
		}
	}
	return actions, nil
}

// WriteLog persists actions to path, zstd-compressed when path ends in .zst.
// The directory is created if needed.
func WriteLog(path string, actions []schemas.LowLevelAction) error {
	data, err := EncodeLog(actions)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if !strings.HasSuffix(path, zstdSuffix) {
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}
	w := bufio.NewWriter(enc)
	if _, err := w.Write(data); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadLog loads a log written by WriteLog.
func ReadLog(path string) ([]schemas.LowLevelAction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, zstdSuffix) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read action log %s: %w", path, err)
	}
	return DecodeLog(data)
}

// HumanLog renders one line per action with running position and sleep
// totals, starting from the cursor position start.
func HumanLog(actions []schemas.LowLevelAction, start schemas.Point) []string {
	lines := []string{fmt.Sprintf("Start Position: (%d, %d)", start.X, start.Y)}
	pos := start
	totalSleep := 0.0
	for i, a := range actions {
		step := i + 1
		switch a.Kind {
		case schemas.KindRelMove:
			pos.X += a.DX
			pos.Y += a.DY
			lines = append(lines, fmt.Sprintf("  - Step %d: REL_MOVE by (%d, %d) -> New Pos: (%d, %d)", step, a.DX, a.DY, pos.X, pos.Y))
		case schemas.KindPause:
			totalSleep += a.Seconds
			lines = append(lines, fmt.Sprintf("  - Step %d: PAUSE for %.4fs (Total Sleep: %.2fs)", step, a.Seconds, totalSleep))
		case schemas.KindMouseBtn:
			lines = append(lines, fmt.Sprintf("  - Step %d: MOUSE_BTN %s %s", step, a.Button, strings.ToUpper(string(a.Phase))))
		case schemas.KindKey:
			lines = append(lines, fmt.Sprintf("  - Step %d: KEY %s (code=%d, mod=%d)", step, strings.ToUpper(string(a.Phase)), a.Code, a.Modifier))
		case schemas.KindScroll:
			lines = append(lines, fmt.Sprintf("  - Step %d: SCROLL by (%d)", step, a.Direction))
		}
	}
	return lines
}

// PiCommands renders the pipe-delimited console lines.
func PiCommands(actions []schemas.LowLevelAction) []string {
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.PiCommand())
	}
	return out
}

// WriteHumanReport writes the titled human-readable log to w.
func WriteHumanReport(w io.Writer, actions []schemas.LowLevelAction, start schemas.Point) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "--- AUROCH Action Plan Log ---")
	fmt.Fprintf(&buf, "Total Steps: %d\n\n", len(actions))
	buf.WriteString(strings.Join(HumanLog(actions, start), "\n"))
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
