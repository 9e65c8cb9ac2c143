package stability

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"
)

// SendControl delivers one command to a control listener and returns the
// trimmed acknowledgement.
func SendControl(ctx context.Context, addr string, req ControlRequest, timeout time.Duration) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("dial control %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return "", fmt.Errorf("send control command: %w", err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return "", fmt.Errorf("read control reply: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// MuteRequest builds a mute request with the given TTL.
func MuteRequest(ttl time.Duration) ControlRequest {
	ms := ttl.Milliseconds()
	return ControlRequest{Cmd: "mute", TTLms: &ms}
}
