package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oukeidos/transpop/internal/apperrors"
	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/events"
	"github.com/oukeidos/transpop/internal/logger"
	"github.com/oukeidos/transpop/internal/version"
)

// Client is a UI-side connection to a Server. It invokes commands on the
// backend, receives the backend's events and sends events back.
type Client struct {
	conn    *conn
	inbound *events.Bus

	mu      sync.Mutex
	pending map[string]chan Frame
	err     error
	done    chan struct{}
}

var (
	_ command.Invoker = (*Client)(nil)
	_ events.Source   = (*Client)(nil)
	_ events.Emitter  = (*Client)(nil)
)

// Dial connects to a Server at url, e.g. ws://127.0.0.1:47810/ipc.
func Dial(ctx context.Context, url string) (*Client, error) {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, apperrors.New(apperrors.KindUnavailable,
			fmt.Sprintf("Backend is not reachable at %s. Is `transpop serve` running?", url),
			err)
	}
	c := &Client{
		conn:    newConn(ws),
		inbound: events.NewBus(),
		pending: make(map[string]chan Frame),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	var err error
	for {
		var f Frame
		f, err = c.conn.read()
		if errors.Is(err, errBadFrame) {
			logger.Warn("Dropping malformed bridge frame", "error", err)
			continue
		}
		if err != nil {
			break
		}
		switch f.Type {
		case FrameResult:
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			delete(c.pending, f.ID)
			c.mu.Unlock()
			if ok {
				ch <- f
			}
		case FrameEvent:
			payload, perr := decodePayload(f.Payload)
			if perr != nil {
				logger.Warn("Dropping event with malformed payload", "event", f.Event, "error", perr)
				continue
			}
			_ = c.inbound.Emit(f.Event, payload)
		default:
			logger.Warn("Ignoring bridge frame", "frame_type", f.Type)
		}
	}
	c.fail(err)
}

func (c *Client) fail(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = apperrors.New(apperrors.KindUnavailable, "Connection to the backend was lost.", cause)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	close(c.done)
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) call(ctx context.Context, name string, args any) (Frame, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s args: %w", name, err)
	}
	id := uuid.NewString()
	ch := make(chan Frame, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return Frame{}, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.conn.write(Frame{ID: id, Type: FrameInvoke, Command: name, Args: raw}); err != nil {
		c.forget(id)
		return Frame{}, apperrors.New(apperrors.KindUnavailable, "Failed to reach the backend.", err)
	}

	select {
	case f, ok := <-ch:
		if !ok {
			c.mu.Lock()
			err := c.err
			c.mu.Unlock()
			return Frame{}, err
		}
		return f, f.Error.err()
	case <-ctx.Done():
		c.forget(id)
		return Frame{}, ctx.Err()
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) Invoke(ctx context.Context, name string, req command.Request) (string, error) {
	f, err := c.call(ctx, name, req)
	if err != nil {
		return "", err
	}
	if f.Result == nil {
		return "", apperrors.New(apperrors.KindValidation, "Backend sent an empty result.", nil)
	}
	return *f.Result, nil
}

func (c *Client) SaveSettings(ctx context.Context, req command.SaveRequest) error {
	_, err := c.call(ctx, command.SaveSettings, req)
	return err
}

// Listen subscribes to events broadcast by the backend.
func (c *Client) Listen(name string, h events.Handler) (events.Unsubscribe, error) {
	return c.inbound.Listen(name, h)
}

// Emit sends an event to the backend.
func (c *Client) Emit(name string, payload any) error {
	f, err := eventFrame(name, payload)
	if err != nil {
		return err
	}
	return c.conn.write(f)
}

func (c *Client) Close() error {
	err := c.conn.close()
	<-c.done
	return err
}
