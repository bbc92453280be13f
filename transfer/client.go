package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/charmbracelet/log"

	"github.com/moyoez/gcomserver-go/codec"
	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/types"
)

// ErrRejected is returned when the server answers a request with anything
// other than a successful reply.
var ErrRejected = errors.New("request rejected by server")

// Client plays the device side of the protocol: it pushes one or more groups
// of raw data objects to a server.
type Client struct {
	conn   io.ReadWriteCloser
	codec  *codec.Codec
	nextID uint16
	log    *log.Logger
}

// Dial connects to a server at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", types.ErrIO, addr, err)
	}
	return NewClient(conn), nil
}

func NewClient(conn io.ReadWriteCloser) *Client {
	return &Client{conn: conn, codec: codec.New(), log: tool.NewLogger("client")}
}

func (c *Client) Close() error { return c.conn.Close() }

// call sends a request for cmd and waits for its reply.
func (c *Client) call(cmd types.Command, count int) (types.ElementSet, error) {
	c.nextID++
	req, err := codec.Request(cmd, c.nextID, count)
	if err != nil {
		return nil, err
	}
	if err := c.codec.WriteMessage(c.conn, cmd, req); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", cmd, err)
	}
	_, reply, err := c.codec.ReadMessage(c.conn)
	if err != nil {
		if errors.Is(err, types.ErrEndOfInput) {
			return nil, fmt.Errorf("%w: server closed the connection after %s", ErrRejected, cmd)
		}
		return nil, fmt.Errorf("failed to read %s reply: %w", cmd, err)
	}
	if !codec.IsSuccessReply(cmd, reply) {
		return nil, fmt.Errorf("%w: %s", ErrRejected, cmd)
	}
	if id, ok := codec.Lookup(reply, codec.TagRespondingTo); ok && uint16(id) != c.nextID {
		return nil, fmt.Errorf("%w: %s reply answers message %d, sent %d", types.ErrProtocol, cmd, id, c.nextID)
	}
	return reply, nil
}

// BeginGroup announces a group of count objects.
func (c *Client) BeginGroup(count int) error {
	reply, err := c.call(types.CommandBeginGroup, count)
	if err != nil {
		return err
	}
	if n, ok := codec.Lookup(reply, codec.TagNumberOfObjects); ok && n != count {
		return fmt.Errorf("%w: server acknowledged %d objects, announced %d", types.ErrProtocol, n, count)
	}
	return nil
}

func (c *Client) Ready() error {
	_, err := c.call(types.CommandReady, 0)
	return err
}

// SendObject sends SEND and, once acknowledged, the raw data object frame.
func (c *Client) SendObject(raw []byte) error {
	if _, err := c.call(types.CommandSend, 0); err != nil {
		return err
	}
	if _, err := c.conn.Write(raw); err != nil {
		return fmt.Errorf("%w: write data object: %w", types.ErrIO, err)
	}
	return nil
}

func (c *Client) EndGroup() error {
	_, err := c.call(types.CommandEndGroup, 0)
	return err
}

// Cancel abandons the current group.
func (c *Client) Cancel() error {
	_, err := c.call(types.CommandCancel, 0)
	return err
}

// SendGroup transfers objects as one group. If ctx is cancelled between
// objects the group is cancelled on the server before returning.
func (c *Client) SendGroup(ctx context.Context, objects [][]byte) error {
	if len(objects) == 0 {
		return fmt.Errorf("invalid parameters: no objects to send")
	}
	if err := c.BeginGroup(len(objects)); err != nil {
		return err
	}
	for i, raw := range objects {
		if ctx.Err() != nil {
			if err := c.Cancel(); err != nil {
				c.log.Warnf("[Client] Failed to cancel group: %v", err)
			}
			return fmt.Errorf("send cancelled: %w", ctx.Err())
		}
		if err := c.Ready(); err != nil {
			return err
		}
		if err := c.SendObject(raw); err != nil {
			return err
		}
		c.log.Debugf("[Client] Sent data object %d (%d bytes)", i, len(raw))
	}
	if err := c.EndGroup(); err != nil {
		return err
	}
	c.log.Infof("[Client] Group of %d objects sent", len(objects))
	return nil
}
