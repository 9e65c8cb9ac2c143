package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/auroch/internal/transport"
)

func fixedClock(ms ...int64) func() time.Time {
	i := 0
	return func() time.Time {
		v := ms[i]
		if i < len(ms)-1 {
			i++
		}
		return time.UnixMilli(v)
	}
}

func frame(id, event string) transport.Frame {
	return transport.Frame{
		Meta:  transport.Metadata{FrameID: id, VMEvent: event, Hash: "00000000000000ff", TsMs: 42},
		Image: []byte("image-" + id),
	}
}

func TestOpenRunStore_CreatesAndReusesRun(t *testing.T) {
	root := t.TempDir()
	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)

	s1, err := openRunStore(root, nil, zaptest.NewLogger(t), func() time.Time { return created })
	require.NoError(t, err)
	assert.Equal(t, "20250304_050607", s1.RunID())

	b, err := os.ReadFile(filepath.Join(root, currentRunFile))
	require.NoError(t, err)
	assert.Equal(t, "20250304_050607", string(b))

	s2, err := openRunStore(root, nil, zaptest.NewLogger(t), func() time.Time { return created.Add(time.Hour) })
	require.NoError(t, err)
	assert.Equal(t, s1.RunID(), s2.RunID(), "an existing run folder is reused")

	require.NoError(t, os.RemoveAll(s1.Dir()))
	s3, err := openRunStore(root, nil, zaptest.NewLogger(t), func() time.Time { return created.Add(time.Hour) })
	require.NoError(t, err)
	assert.Equal(t, "20250304_060607", s3.RunID(), "a vanished run folder starts a new run")
}

func TestRunStore_SaveUpdatesLatest(t *testing.T) {
	root := t.TempDir()
	s, err := openRunStore(root, nil, zaptest.NewLogger(t), fixedClock(1000, 5000, 5000, 4000))
	require.NoError(t, err)

	_, err = Latest(root)
	assert.ErrorIs(t, err, ErrNoRun)

	ev1, err := s.Save(context.Background(), frame("a", "change_send"))
	require.NoError(t, err)
	ev2, err := s.Save(context.Background(), frame("b", "manual_capture"))
	require.NoError(t, err)
	ev3, err := s.Save(context.Background(), frame("c", "change_send"))
	require.NoError(t, err)

	assert.Equal(t, int64(5000), ev1.TsMs)
	assert.Equal(t, int64(5001), ev2.TsMs, "same millisecond still advances")
	assert.Equal(t, int64(5002), ev3.TsMs, "clock going backwards never lowers the index")
	assert.Equal(t, "shot_5002.png", filepath.Base(ev3.Path))
	assert.Equal(t, int64(42), ev3.SentMs)

	p, err := Latest(root)
	require.NoError(t, err)
	assert.Equal(t, Pointer{LatestIndex: 5002, Path: ev3.Path}, p)

	img, err := os.ReadFile(ev2.Path)
	require.NoError(t, err)
	assert.Equal(t, "image-b", string(img))
}

func TestRunStore_ResumesIndexFromLatest(t *testing.T) {
	root := t.TempDir()
	s, err := openRunStore(root, nil, zaptest.NewLogger(t), fixedClock(9000))
	require.NoError(t, err)
	_, err = s.Save(context.Background(), frame("a", "change_send"))
	require.NoError(t, err)

	again, err := openRunStore(root, nil, zaptest.NewLogger(t), fixedClock(10, 10))
	require.NoError(t, err)
	ev, err := again.Save(context.Background(), frame("b", "change_send"))
	require.NoError(t, err)
	assert.Equal(t, int64(9001), ev.TsMs)
}

func TestRunStore_IndexesShots(t *testing.T) {
	root := t.TempDir()
	idx, err := OpenIndex(filepath.Join(root, "index", "shots.db"))
	require.NoError(t, err)
	defer idx.Close()

	s, err := openRunStore(root, idx, zaptest.NewLogger(t), fixedClock(100, 200, 300, 400))
	require.NoError(t, err)
	ctx := context.Background()
	for _, f := range []transport.Frame{frame("a", "change_send"), frame("b", "manual_capture"), frame("c", "change_send")} {
		require.NoError(t, s.HandleFrame(ctx, f))
	}

	n, err := idx.Count(ctx, s.RunID(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = idx.Count(ctx, s.RunID(), "change_send")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recent, err := idx.Recent(ctx, s.RunID(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].FrameID)
	assert.Equal(t, "b", recent[1].FrameID)
	assert.Equal(t, len("image-c"), recent[0].Bytes)
}

func TestOpenIndex_EmptyPath(t *testing.T) {
	_, err := OpenIndex("")
	assert.Error(t, err)
}

func TestFollow_DeliversEvents(t *testing.T) {
	root := t.TempDir()
	s, err := openRunStore(root, nil, zaptest.NewLogger(t), fixedClock(1, 2, 3))
	require.NoError(t, err)
	_, err = s.Save(context.Background(), frame("a", "change_send"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan Event, 4)
	done := make(chan error, 1)
	errStop := errors.New("enough")
	go func() {
		done <- Follow(ctx, root, FollowOptions{FromStart: true, Poll: true}, zaptest.NewLogger(t), func(ev Event) error {
			got <- ev
			if ev.FrameID == "b" {
				return errStop
			}
			return nil
		})
	}()

	select {
	case first := <-got:
		assert.Equal(t, "a", first.FrameID)
	case <-ctx.Done():
		t.Fatal("follow did not replay the existing event")
	}

	_, err = s.Save(context.Background(), frame("b", "manual_capture"))
	require.NoError(t, err)

	select {
	case ev := <-got:
		assert.Equal(t, "b", ev.FrameID)
		assert.Equal(t, "manual_capture", ev.VMEvent)
	case <-ctx.Done():
		t.Fatal("follow did not deliver the appended event")
	}
	assert.ErrorIs(t, <-done, errStop)
}

func TestFollow_NoRun(t *testing.T) {
	err := Follow(context.Background(), t.TempDir(), FollowOptions{}, nil, func(Event) error { return nil })
	assert.ErrorIs(t, err, ErrNoRun)
}
