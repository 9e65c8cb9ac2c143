package actuator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

func (c *Client) exchangeWS(ctx context.Context, body []byte) ([]byte, error) {
	deadline, _ := ctx.Deadline()

	d := websocket.Dialer{HandshakeTimeout: c.timeout}
	conn, resp, err := d.DialContext(ctx, c.url, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrActuatorUnavailable, c.url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return nil, fmt.Errorf("%w: write: %v", ErrActuatorUnavailable, err)
	}

	_ = conn.SetReadDeadline(deadline)
	_, reply, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: read reply: %v", ErrActuatorUnavailable, err)
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"), time.Now().Add(time.Second))
	return reply, nil
}
