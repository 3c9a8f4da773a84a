package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dmitrijs2005/punchclock/internal/models"
	"github.com/dmitrijs2005/punchclock/internal/netx"
	"github.com/dmitrijs2005/punchclock/internal/protocol"
)

type Client interface {
	Send(ctx context.Context, e models.ClockEvent) (protocol.Response, error)
}

// TCPClient opens one connection per Send.
type TCPClient struct {
	addr    string
	timeout time.Duration
	dialer  *net.Dialer
}

func NewTCPClient(addr string, timeout time.Duration) *TCPClient {
	return &TCPClient{
		addr:    addr,
		timeout: timeout,
		dialer:  &net.Dialer{Timeout: timeout},
	}
}

// Send delivers e and waits for the server's reply. The whole exchange is
// bounded by the client timeout and by ctx.
func (c *TCPClient) Send(ctx context.Context, e models.ClockEvent) (protocol.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := protocol.EncodeRequest(conn, protocol.NewRequest(e)); err != nil {
		return protocol.Response{}, fmt.Errorf("%w: send: %w", ErrUnavailable, err)
	}

	resp, err := protocol.ReadResponse(conn)
	if err != nil {
		if netx.IsTimeout(err) {
			return protocol.Response{}, fmt.Errorf("%w: no reply: %w", ErrUnavailable, err)
		}
		return protocol.Response{}, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return resp, nil
}
