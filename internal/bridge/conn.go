package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// conn serialises writes; gorilla connections allow one concurrent writer.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func newConn(ws *websocket.Conn) *conn {
	ws.SetReadLimit(MaxFrameBytes)
	return &conn{ws: ws}
}

func (c *conn) write(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) read() (Frame, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			return Frame{}, fmt.Errorf("%w: %v", errBadFrame, err)
		}
		return f, nil
	}
}

func (c *conn) close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}
