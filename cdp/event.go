package cdp

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto"

	"github.com/mosaicrun/remotebrowser/log"
)

// Event is a CDP event received from the browser. Data holds the decoded
// cdproto event struct.
type Event struct {
	Name      cdproto.MethodType
	Data      any
	SessionID string
}

type eventSub struct {
	ch        chan *Event
	sessionID string
	events    map[cdproto.MethodType]struct{}
}

type eventWatcher struct {
	ctx    context.Context
	logger *log.Logger

	subsMu sync.Mutex
	subs   map[*eventSub]struct{}
}

func newEventWatcher(ctx context.Context, logger *log.Logger) *eventWatcher {
	return &eventWatcher{
		ctx:    ctx,
		logger: logger,
		subs:   make(map[*eventSub]struct{}),
	}
}

func (w *eventWatcher) subscribe(sessionID string, events ...cdproto.MethodType) (<-chan *Event, func()) {
	sub := &eventSub{
		ch:        make(chan *Event, 16),
		sessionID: sessionID,
		events:    make(map[cdproto.MethodType]struct{}, len(events)),
	}
	for _, evt := range events {
		sub.events[evt] = struct{}{}
	}

	w.subsMu.Lock()
	w.subs[sub] = struct{}{}
	w.subsMu.Unlock()

	cancel := func() {
		w.subsMu.Lock()
		defer w.subsMu.Unlock()
		if _, ok := w.subs[sub]; ok {
			delete(w.subs, sub)
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

func (w *eventWatcher) notify(evt *Event) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()

	for sub := range w.subs {
		if _, ok := sub.events[evt.Name]; !ok {
			continue
		}
		if sub.sessionID != "" && sub.sessionID != evt.SessionID {
			continue
		}
		select {
		case sub.ch <- evt:
		case <-w.ctx.Done():
			return
		default:
			w.logger.Warnf("cdp:watcher", "subscriber too slow, dropping event %s", evt.Name)
		}
	}
}
