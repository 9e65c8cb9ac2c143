package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/auroch/internal/stability"
)

func sampleFrame() Frame {
	return Frame{
		Meta: Metadata{
			FrameID: "3b1f0c2e-7d7e-4a57-9f0a-2f6b1c9d8e11",
			VMEvent: "change_send",
			Hash:    "00ff00ff00ff00ff",
			TsMs:    1734567890123,
		},
		Image: []byte("\x89PNG fake image bytes"),
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := sampleFrame()
	require.NoError(t, WriteFrame(&buf, want, DefaultMaxFrameBytes))

	got, err := ReadFrame(&buf, DefaultMaxFrameBytes)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFrame_WireLayout(t *testing.T) {
	var buf bytes.Buffer
	f := sampleFrame()
	require.NoError(t, WriteFrame(&buf, f, DefaultMaxFrameBytes))

	raw := buf.Bytes()
	outer := binary.BigEndian.Uint32(raw[:4])
	assert.Equal(t, len(raw)-4, int(outer))

	metaLen := binary.BigEndian.Uint32(raw[4:8])
	meta := string(raw[8 : 8+metaLen])
	assert.Contains(t, meta, `"vm_event":"change_send"`)
	assert.Contains(t, meta, `"ts_ms":1734567890123`)
	assert.Equal(t, f.Image, raw[8+metaLen:])
}

func TestReadFrame_RejectsOversize(t *testing.T) {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], 1<<20)
	_, err := ReadFrame(bytes.NewReader(hdr[:]), 1024)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	var buf bytes.Buffer
	err = WriteFrame(&buf, sampleFrame(), 16)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Zero(t, buf.Len(), "nothing is written for a rejected frame")
}

func TestReadFrame_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, sampleFrame(), DefaultMaxFrameBytes))
	cut := buf.Bytes()[:buf.Len()-5]

	_, err := ReadFrame(bytes.NewReader(cut), DefaultMaxFrameBytes)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadFrame(bytes.NewReader(nil), DefaultMaxFrameBytes)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodePayload_Malformed(t *testing.T) {
	_, err := DecodePayload([]byte{0, 0})
	assert.ErrorIs(t, err, ErrBadFrame)

	_, err = DecodePayload([]byte{0, 0, 0, 9, '{', '}'})
	assert.ErrorIs(t, err, ErrBadFrame)

	_, err = DecodePayload([]byte{0, 0, 0, 2, 'n', 'o'})
	assert.ErrorIs(t, err, ErrBadFrame)
}

func FuzzReadFrame(f *testing.F) {
	var buf bytes.Buffer
	_ = WriteFrame(&buf, sampleFrame(), DefaultMaxFrameBytes)
	f.Add(buf.Bytes())
	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		limit, err := c.GetUint32()
		if err != nil {
			return
		}
		rest, err := c.GetBytes()
		if err != nil {
			return
		}
		fr, err := ReadFrame(bytes.NewReader(rest), limit%4096)
		if err == nil {
			assert.LessOrEqual(t, len(fr.Image), len(rest))
		}
	})
}

type collectingHandler struct {
	mu     sync.Mutex
	frames []Frame
	got    chan struct{}
}

func newCollectingHandler() *collectingHandler {
	return &collectingHandler{got: make(chan struct{}, 16)}
}

func (h *collectingHandler) HandleFrame(ctx context.Context, f Frame) error {
	h.mu.Lock()
	h.frames = append(h.frames, f)
	h.mu.Unlock()
	h.got <- struct{}{}
	return nil
}

func (h *collectingHandler) wait(t *testing.T, n int) []Frame {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-h.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d of %d frames", i, n)
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Frame(nil), h.frames...)
}

func startServer(t *testing.T, h FrameHandler) (string, func()) {
	t.Helper()
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(h, 1<<20, time.Second, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	return ln.Addr().String(), func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("receiver did not stop")
		}
	}
}

func TestSenderToServer(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newCollectingHandler()
	addr, stop := startServer(t, h)
	defer stop()

	sender := NewSender(addr, time.Second, 0, zaptest.NewLogger(t))
	at := time.UnixMilli(1734567890123)
	shot := stability.Shot{Image: []byte("png"), Hash: 0xabc, Event: stability.EventManual, At: at}
	require.NoError(t, sender.Publish(context.Background(), shot))
	require.NoError(t, sender.Send(context.Background(), sampleFrame()))

	frames := h.wait(t, 2)
	require.Len(t, frames, 2)

	var manual Frame
	for _, f := range frames {
		if f.Meta.VMEvent == "manual_capture" {
			manual = f
		}
	}
	assert.Equal(t, "0000000000000abc", manual.Meta.Hash)
	assert.Equal(t, int64(1734567890123), manual.Meta.TsMs)
	assert.Equal(t, []byte("png"), manual.Image)
	_, err := uuid.Parse(manual.Meta.FrameID)
	assert.NoError(t, err)
}

func TestServer_DropsGarbageAndKeepsServing(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newCollectingHandler()
	addr, stop := startServer(t, h)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], 1<<30)
	_, _ = conn.Write(hdr[:])
	_ = conn.Close()

	sender := NewSender(addr, time.Second, 0, zaptest.NewLogger(t))
	require.NoError(t, sender.Send(context.Background(), sampleFrame()))
	frames := h.wait(t, 1)
	assert.Equal(t, sampleFrame().Meta, frames[0].Meta)
}

func TestSender_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	sender := NewSender(addr, 200*time.Millisecond, 0, nil)
	assert.Error(t, sender.Send(context.Background(), sampleFrame()))
}

func TestFrameHandlerFunc(t *testing.T) {
	var seen string
	h := FrameHandlerFunc(func(ctx context.Context, f Frame) error {
		seen = f.Meta.FrameID
		return nil
	})
	require.NoError(t, h.HandleFrame(context.Background(), sampleFrame()))
	assert.Equal(t, sampleFrame().Meta.FrameID, seen)
}
