// Package cdp implements the Chrome DevTools Protocol client used to drive
// a remote browser session over its vendor-provided websocket endpoint.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/mailru/easyjson"

	"github.com/mosaicrun/remotebrowser/cdp/domains"
	"github.com/mosaicrun/remotebrowser/log"
)

var _ cdp.Executor = &Client{}

// ErrClientClosed is returned by Execute after Close.
var ErrClientClosed = errors.New("CDP client is closed")

// Client manages CDP communication with the browser.
type Client struct {
	ctx    context.Context
	logger *log.Logger

	Browser   domains.Browser
	Page      domains.Page
	Runtime   domains.Runtime
	Input     domains.Input
	Network   domains.Network
	Emulation domains.Emulation
	Target    domains.Target

	conn    *connection
	msgID   int64
	sendCh  chan *cdproto.Message
	errorCh chan error
	done    chan struct{}

	closeOnce sync.Once

	msgSubsMu sync.Mutex
	msgSubs   map[int64]chan *cdproto.Message

	watcher *eventWatcher
	wsURL   string
}

// NewClient returns a new Client that is unusable until a CDP connection is
// established with Connect.
func NewClient(ctx context.Context, logger *log.Logger) *Client {
	c := &Client{
		ctx:     ctx,
		logger:  logger,
		sendCh:  make(chan *cdproto.Message, 32), // buffered to avoid blocking in Execute
		errorCh: make(chan error, 1),
		done:    make(chan struct{}),
		msgSubs: make(map[int64]chan *cdproto.Message),
		watcher: newEventWatcher(ctx, logger),
	}

	c.Browser = domains.NewBrowser(c)
	c.Page = domains.NewPage(c)
	c.Runtime = domains.NewRuntime(c)
	c.Input = domains.NewInput(c)
	c.Network = domains.NewNetwork(c)
	c.Emulation = domains.NewEmulation(c)
	c.Target = domains.NewTarget(c)

	return c
}

// Connect to the browser that exposes a CDP API at wsURL.
func (c *Client) Connect(ctx context.Context, wsURL string) (err error) {
	if c.wsURL != "" {
		return fmt.Errorf("CDP connection already established to %q", c.wsURL)
	}

	if c.conn, err = newConnection(ctx, wsURL, c.logger); err != nil {
		return err
	}
	c.logger.Infof("cdp", "established CDP connection to %q", wsURL)
	c.wsURL = wsURL

	go c.recvLoop()
	go c.sendLoop()

	return nil
}

// Close terminates the CDP connection. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Execute implements cdp.Executor: it performs a synchronous CDP command
// round trip. When the context carries a session ID (WithSessionID) the
// message is routed to that target instead of the browser target.
func (c *Client) Execute(
	ctx context.Context, method string, params easyjson.Marshaler, res easyjson.Unmarshaler,
) error {
	c.logger.Debugf("cdp:Execute", "wsURL:%q method:%q", c.wsURL, method)

	id := atomic.AddInt64(&c.msgID, 1)

	recvCh := make(chan *cdproto.Message, 1)
	c.msgSubsMu.Lock()
	c.msgSubs[id] = recvCh
	c.msgSubsMu.Unlock()
	defer func() {
		c.msgSubsMu.Lock()
		delete(c.msgSubs, id)
		c.msgSubsMu.Unlock()
	}()

	var buf []byte
	if params != nil {
		var err error
		if buf, err = easyjson.Marshal(params); err != nil {
			return fmt.Errorf("encoding %q params: %w", method, err)
		}
	}
	msg := &cdproto.Message{
		ID:     id,
		Method: cdproto.MethodType(method),
		Params: buf,
	}
	if sid := GetSessionID(ctx); sid != "" {
		msg.SessionID = target.SessionID(sid)
	}

	select {
	case c.sendCh <- msg:
	case err := <-c.errorCh:
		return err
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	}

	select {
	case resp := <-recvCh:
		if resp.Error != nil {
			return resp.Error
		}
		if res != nil {
			return easyjson.Unmarshal(resp.Result, res)
		}
		return nil
	case err := <-c.errorCh:
		return err
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// Subscribe returns a channel notified on the given CDP events for the
// session in ctx, and a cancel function that unsubscribes it.
func (c *Client) Subscribe(
	ctx context.Context, events ...cdproto.MethodType,
) (<-chan *Event, func()) {
	return c.watcher.subscribe(GetSessionID(ctx), events...)
}

func (c *Client) recvLoop() {
	for {
		msg, err := c.conn.readMessage()
		if err != nil {
			select {
			case <-c.done:
			case <-c.ctx.Done():
			default:
				c.logger.Errorf("cdp:recvLoop", "wsURL:%q err:%v", c.wsURL, err)
				select {
				case c.errorCh <- err:
				default:
				}
			}
			return
		}

		switch {
		case msg.Method != "":
			evt, err := cdproto.UnmarshalMessage(msg)
			if err != nil {
				c.logger.Errorf("cdp", "unmarshaling CDP event %q: %v", msg.Method, err)
				continue
			}
			c.watcher.notify(&Event{
				Name:      msg.Method,
				Data:      evt,
				SessionID: string(msg.SessionID),
			})
		case msg.ID > 0:
			c.msgSubsMu.Lock()
			ch, ok := c.msgSubs[msg.ID]
			if ok {
				delete(c.msgSubs, msg.ID)
			}
			c.msgSubsMu.Unlock()
			if !ok {
				c.logger.Debugf("cdp:recvLoop", "wsURL:%q dropping reply to unknown ID %d", c.wsURL, msg.ID)
				continue
			}
			select {
			case ch <- msg:
			case <-c.done:
				return
			case <-c.ctx.Done():
				return
			}
		default:
			c.logger.Warnf("cdp", "ignoring malformed incoming CDP message: %#v", msg)
		}
	}
}

func (c *Client) sendLoop() {
	for {
		select {
		case msg := <-c.sendCh:
			if err := c.conn.writeMessage(msg); err != nil {
				select {
				case c.errorCh <- err:
				default:
				}
			}
		case <-c.done:
			c.logger.Debugf("cdp:sendLoop", "wsURL:%q done", c.wsURL)
			return
		case <-c.ctx.Done():
			c.logger.Debugf("cdp:sendLoop", "wsURL:%q ctx err:%v", c.wsURL, c.ctx.Err())
			_ = c.conn.Close()
			return
		}
	}
}
