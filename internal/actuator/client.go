// internal/actuator/client.go
package actuator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/auroch/api/schemas"
	"github.com/xkilldash9x/auroch/internal/plan"
)

// ErrActuatorUnavailable wraps every dial, write or read failure of a send.
var ErrActuatorUnavailable = errors.New("actuator unavailable")

// Transport selects how an action list reaches the actuator.
type Transport string

const (
	// TransportZMQ is a REQ socket against the device's REP endpoint.
	TransportZMQ Transport = "zmq"
	// TransportWebsocket is used by the simulator and by ws:// addresses.
	TransportWebsocket Transport = "websocket"
)

// ParseTransport accepts "zmq" or "websocket" in any case; empty means zmq.
func ParseTransport(s string) (Transport, error) {
	switch Transport(strings.ToLower(strings.TrimSpace(s))) {
	case "", TransportZMQ:
		return TransportZMQ, nil
	case TransportWebsocket, "ws":
		return TransportWebsocket, nil
	}
	return "", fmt.Errorf("unknown actuator transport %q", s)
}

// Client performs one request/reply exchange per Send.
type Client struct {
	transport Transport
	url       string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClient accepts host:port, a tcp:// endpoint or a ws:// URL. An explicit
// scheme wins over transport.
func NewClient(address string, transport Transport, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	t, url := Endpoint(address, transport)
	return &Client{transport: t, url: url, timeout: timeout, logger: logger.Named("actuator")}
}

// Endpoint normalizes an actuator address for the transport it resolves to.
func Endpoint(address string, transport Transport) (Transport, string) {
	a := strings.TrimSpace(address)
	switch {
	case strings.HasPrefix(a, "ws://"), strings.HasPrefix(a, "wss://"):
		return TransportWebsocket, a
	case strings.HasPrefix(a, "tcp://"):
		return TransportZMQ, strings.TrimSuffix(a, "/")
	case transport == TransportWebsocket:
		return TransportWebsocket, "ws://" + strings.TrimSuffix(a, "/") + "/"
	default:
		return TransportZMQ, "tcp://" + strings.TrimSuffix(a, "/")
	}
}

func (c *Client) URL() string { return c.url }

func (c *Client) Transport() Transport { return c.transport }

// Send delivers the whole list as one message and returns the reply.
// There is no retry; the caller decides.
func (c *Client) Send(ctx context.Context, actions []schemas.LowLevelAction) (string, error) {
	body, err := plan.EncodeLog(actions)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Info("Sending to actuator",
		zap.String("url", c.url),
		zap.String("transport", string(c.transport)),
		zap.Int("actions", len(actions)),
	)
	var reply []byte
	if c.transport == TransportWebsocket {
		reply, err = c.exchangeWS(ctx, body)
	} else {
		reply, err = c.exchangeZMQ(ctx, body)
	}
	if err != nil {
		return "", err
	}

	c.logger.Info("Actuator replied", zap.String("reply", string(reply)))
	return string(reply), nil
}
