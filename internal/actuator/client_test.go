package actuator

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/auroch/api/schemas"
)

func wsAddr(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestEndpoint(t *testing.T) {
	cases := []struct {
		addr string
		in   Transport
		want Transport
		url  string
	}{
		{"10.0.0.2:5555", TransportWebsocket, TransportWebsocket, "ws://10.0.0.2:5555/"},
		{" 10.0.0.2:5555/ ", TransportWebsocket, TransportWebsocket, "ws://10.0.0.2:5555/"},
		{"ws://pi.local:9000/act", TransportZMQ, TransportWebsocket, "ws://pi.local:9000/act"},
		{"10.0.0.2:5555", TransportZMQ, TransportZMQ, "tcp://10.0.0.2:5555"},
		{"tcp://pi.local:5555/", TransportWebsocket, TransportZMQ, "tcp://pi.local:5555"},
	}
	for _, tc := range cases {
		got, url := Endpoint(tc.addr, tc.in)
		assert.Equal(t, tc.want, got, tc.addr)
		assert.Equal(t, tc.url, url, tc.addr)
	}
}

func TestParseTransport(t *testing.T) {
	for in, want := range map[string]Transport{"": TransportZMQ, "ZMQ": TransportZMQ, " websocket ": TransportWebsocket, "ws": TransportWebsocket} {
		got, err := ParseTransport(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseTransport("carrier-pigeon")
	require.Error(t, err)
}

func TestClient_SendAgainstSimulator(t *testing.T) {
	sim := NewSimulator(schemas.Point{X: 100, Y: 100}, zaptest.NewLogger(t))
	srv := httptest.NewServer(sim)
	defer srv.Close()

	c := NewClient(wsAddr(srv), TransportWebsocket, 2*time.Second, zaptest.NewLogger(t))
	actions := []schemas.LowLevelAction{
		schemas.RelMove(10, -5),
		schemas.Pause(0.25),
		schemas.MouseBtn(schemas.ButtonLeft, schemas.PhasePress),
		schemas.MouseBtn(schemas.ButtonLeft, schemas.PhaseRelease),
		schemas.RelMove(-3, 2),
	}
	reply, err := c.Send(context.Background(), actions)
	require.NoError(t, err)
	assert.Equal(t, "ok 5", reply)
	assert.Equal(t, schemas.Point{X: 107, Y: 97}, sim.Cursor())
	assert.Equal(t, 1, sim.Received())

	reply, err = c.Send(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok 0", reply)
	assert.Equal(t, 2, sim.Received())
}

func TestClient_SendsOneTextMessage(t *testing.T) {
	got := make(chan string, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		mt, msg, err := conn.ReadMessage()
		if err != nil || mt != websocket.TextMessage {
			return
		}
		got <- string(msg)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("done"))
	}))
	defer srv.Close()

	c := NewClient(wsAddr(srv), TransportWebsocket, 2*time.Second, zaptest.NewLogger(t))
	reply, err := c.Send(context.Background(), []schemas.LowLevelAction{schemas.Scroll(-1), schemas.Key(0x04, schemas.ModShift, schemas.PhasePress)})
	require.NoError(t, err)
	assert.Equal(t, "done", reply)

	body := <-got
	assert.JSONEq(t, `[["SCROLL",[-1]],["KEY",[4,2,"press"]]]`, body)
}

func TestClient_Unavailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	for _, tr := range []Transport{TransportWebsocket, TransportZMQ} {
		c := NewClient(addr, tr, 300*time.Millisecond, nil)
		_, err = c.Send(context.Background(), []schemas.LowLevelAction{schemas.Pause(0.1)})
		assert.ErrorIs(t, err, ErrActuatorUnavailable, string(tr))
	}
}

func TestClient_TimesOutWaitingForReply(t *testing.T) {
	up := websocket.Upgrader{}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(wsAddr(srv), TransportWebsocket, 200*time.Millisecond, zaptest.NewLogger(t))
	start := time.Now()
	_, err := c.Send(context.Background(), []schemas.LowLevelAction{schemas.Pause(0.1)})
	assert.ErrorIs(t, err, ErrActuatorUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSimulator_RejectsMalformedList(t *testing.T) {
	sim := NewSimulator(schemas.Point{}, zaptest.NewLogger(t))
	srv := httptest.NewServer(sim)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wsAddr(srv)+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[["TELEPORT",[1,2]]]`)))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(reply), "error: "), string(reply))
	assert.Zero(t, sim.Received())
}
