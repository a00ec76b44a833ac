// Package slackbot connects the router to Slack over Socket Mode.
package slackbot

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sync"
	"time"

	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/zulandar/switchboard/internal/router"
)

const (
	// baseBackoff is the initial backoff duration for reconnection.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff for reconnection.
	maxBackoff = 2 * time.Minute
	// maxReconnectAttempts limits reconnection retries before giving up.
	maxReconnectAttempts = 10
)

// Handler receives converted inbound events. Satisfied by the router's
// Dispatcher.
type Handler interface {
	Handle(ctx context.Context, raw router.RawEvent)
}

// socketClient abstracts the Socket Mode client methods we use.
type socketClient interface {
	Run() error
	EventsChan() chan socketmode.Event
	Ack(req socketmode.Request, payload ...interface{})
}

// realSocketClient wraps *socketmode.Client to implement socketClient.
type realSocketClient struct {
	client *socketmode.Client
}

func (r *realSocketClient) Run() error                        { return r.client.Run() }
func (r *realSocketClient) EventsChan() chan socketmode.Event { return r.client.Events }
func (r *realSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	r.client.Ack(req, payload...)
}

// Bot pumps Socket Mode events into the dispatcher. Each event is handled
// in its own goroutine; the bot imposes no ordering across events, matching
// Slack's own delivery semantics.
type Bot struct {
	socket     socketClient
	handler    Handler
	out        io.Writer
	mu         sync.Mutex
	cancelFunc context.CancelFunc

	baseBackoff  time.Duration
	maxBackoff   time.Duration
	maxReconnect int
}

// BotOpts holds parameters for creating a Bot.
type BotOpts struct {
	Socket  *socketmode.Client
	Handler Handler
	Out     io.Writer // defaults to os.Stdout

	// For testing: inject a mock socket client instead of the real one.
	SocketClient socketClient
}

// New creates a Bot.
func New(opts BotOpts) (*Bot, error) {
	if opts.Socket == nil && opts.SocketClient == nil {
		return nil, fmt.Errorf("slackbot: socket client is required")
	}
	if opts.Handler == nil {
		return nil, fmt.Errorf("slackbot: handler is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	b := &Bot{
		handler:      opts.Handler,
		out:          out,
		baseBackoff:  baseBackoff,
		maxBackoff:   maxBackoff,
		maxReconnect: maxReconnectAttempts,
	}
	if opts.SocketClient != nil {
		b.socket = opts.SocketClient
	} else {
		b.socket = &realSocketClient{client: opts.Socket}
	}
	return b, nil
}

// Run starts the Socket Mode connection and the event pump, blocking until
// the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancelFunc = cancel
	b.mu.Unlock()

	go b.runWithReconnect(runCtx)
	b.pumpEvents(runCtx)
}

// Close stops the event pump.
func (b *Bot) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancelFunc != nil {
		b.cancelFunc()
	}
}

// runWithReconnect runs the Socket Mode client and retries with exponential
// backoff when Run() returns an error (e.g., reconnection failure).
func (b *Bot) runWithReconnect(ctx context.Context) {
	for attempt := 0; attempt < b.maxReconnect; attempt++ {
		err := b.socket.Run()
		if err == nil {
			return // clean shutdown
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * b.baseBackoff
		if wait > b.maxBackoff {
			wait = b.maxBackoff
		}

		log.Printf("slackbot: socket mode disconnected (attempt %d/%d): %v — reconnecting in %v",
			attempt+1, b.maxReconnect, err, wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
	log.Printf("slackbot: socket mode exhausted %d reconnection attempts, giving up", b.maxReconnect)
}

// pumpEvents reads Socket Mode events and hands them to the dispatcher.
func (b *Bot) pumpEvents(ctx context.Context) {
	events := b.socket.EventsChan()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			b.handleSocketEvent(ctx, evt)
		}
	}
}

// handleSocketEvent processes a single Socket Mode event.
func (b *Bot) handleSocketEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		// Ack first: Slack redelivers unacked envelopes, and the router's
		// own duplicate behavior is respond-twice by design.
		if evt.Request != nil {
			b.socket.Ack(*evt.Request)
		}
		b.handleEventsAPI(ctx, eventsAPIEvent)

	case socketmode.EventTypeConnecting:
		fmt.Fprintf(b.out, "slackbot: connecting to Socket Mode...\n")

	case socketmode.EventTypeConnected:
		fmt.Fprintf(b.out, "slackbot: connected to Socket Mode\n")

	case socketmode.EventTypeConnectionError:
		log.Printf("slackbot: connection error: %v", evt.Data)

	case socketmode.EventTypeDisconnect:
		log.Printf("slackbot: server requested disconnect, will reconnect")
	}
}

// handleEventsAPI converts Events API callbacks and dispatches each in its
// own goroutine. Filtering (self-messages, other bots, subtypes with no
// author) is the routing policy's job, not the transport's.
func (b *Bot) handleEventsAPI(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		go b.handler.Handle(ctx, MessageRawEvent(ev))
	case *slackevents.AppMentionEvent:
		go b.handler.Handle(ctx, MentionRawEvent(ev))
	}
}

// MessageRawEvent converts a Slack message event into a router payload.
func MessageRawEvent(ev *slackevents.MessageEvent) router.RawEvent {
	return router.RawEvent{
		Type:        "message",
		UserID:      ev.User,
		BotID:       ev.BotID,
		MessageTS:   ev.TimeStamp,
		ThreadTS:    ev.ThreadTimeStamp,
		ChannelID:   ev.Channel,
		ChannelType: ev.ChannelType,
		Text:        ev.Text,
		Blocks:      ev.Blocks,
	}
}

// MentionRawEvent converts an app_mention event. Mention payloads carry no
// channel_type or rich blocks; the mention itself is recovered from the
// text during normalization.
func MentionRawEvent(ev *slackevents.AppMentionEvent) router.RawEvent {
	return router.RawEvent{
		Type:      "app_mention",
		UserID:    ev.User,
		MessageTS: ev.TimeStamp,
		ThreadTS:  ev.ThreadTimeStamp,
		ChannelID: ev.Channel,
		Text:      ev.Text,
	}
}
