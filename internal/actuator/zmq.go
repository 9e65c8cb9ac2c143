package actuator

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// exchangeZMQ opens a fresh REQ socket per send so a lost reply never leaves
// the socket stuck in its send/recv lockstep.
func (c *Client) exchangeZMQ(ctx context.Context, body []byte) ([]byte, error) {
	sock := zmq4.NewReq(ctx,
		zmq4.WithDialerTimeout(c.timeout),
		zmq4.WithDialerMaxRetries(0),
	)
	defer sock.Close()

	if err := sock.Dial(c.url); err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrActuatorUnavailable, c.url, err)
	}
	if err := sock.Send(zmq4.NewMsg(body)); err != nil {
		return nil, fmt.Errorf("%w: send: %v", ErrActuatorUnavailable, err)
	}

	type result struct {
		msg zmq4.Msg
		err error
	}
	done := make(chan result, 1)
	go func() {
		msg, err := sock.Recv()
		done <- result{msg, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: read reply: %v", ErrActuatorUnavailable, r.err)
		}
		return r.msg.Bytes(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: read reply: %v", ErrActuatorUnavailable, ctx.Err())
	}
}
