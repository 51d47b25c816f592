package cdp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jwriter"
	"github.com/oxtoacart/bpool"

	"github.com/mosaicrun/remotebrowser/log"
)

const wsWriteBufferPoolSize = 2

// connection is the websocket transport under Client. It only knows how to
// read and write cdproto messages; correlation happens a level up.
type connection struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	bufPool *bpool.BufferPool
	logger  *log.Logger
	wsURL   string

	closeOnce sync.Once
	closeErr  error
}

func newConnection(ctx context.Context, wsURL string, logger *log.Logger) (*connection, error) {
	wd := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1 << 20,
		WriteBufferSize:  1 << 20,
		Proxy:            http.ProxyFromEnvironment,
	}

	ws, _, err := wd.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dialing CDP websocket %q: %w", wsURL, err)
	}

	return &connection{
		ws:      ws,
		bufPool: bpool.NewBufferPool(wsWriteBufferPoolSize),
		logger:  logger,
		wsURL:   wsURL,
	}, nil
}

func (c *connection) readMessage() (*cdproto.Message, error) {
	_, buf, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading CDP message: %w", err)
	}

	msg := new(cdproto.Message)
	if err := easyjson.Unmarshal(buf, msg); err != nil {
		return nil, fmt.Errorf("decoding CDP message: %w", err)
	}
	return msg, nil
}

func (c *connection) writeMessage(msg *cdproto.Message) error {
	var encoder jwriter.Writer
	msg.MarshalEasyJSON(&encoder)
	if err := encoder.Error; err != nil {
		return fmt.Errorf("encoding CDP message: %w", err)
	}

	buf := c.bufPool.Get()
	defer c.bufPool.Put(buf)
	if _, err := encoder.DumpTo(buf); err != nil {
		return fmt.Errorf("buffering CDP message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		return fmt.Errorf("writing CDP message: %w", err)
	}
	return nil
}

// Close closes the websocket, attempting a polite close handshake first.
func (c *connection) Close() error {
	c.closeOnce.Do(func() {
		c.logger.Debugf("cdp:connection", "closing wsURL:%q", c.wsURL)

		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
