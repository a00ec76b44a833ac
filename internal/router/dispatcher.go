package router

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/zulandar/switchboard/internal/registry"
)

// Platform is the surface the dispatcher needs from the chat platform:
// a lightweight reaction for acknowledgement and a threaded text reply.
type Platform interface {
	AddReaction(ctx context.Context, channelID, emoji, timestamp string) error
	PostMessage(ctx context.Context, channelID, text, threadTS string) error
}

// HistoryFetcher reconstructs bounded conversation history for a thread.
// Implementations fail closed to an empty slice on transport errors.
type HistoryFetcher interface {
	Fetch(ctx context.Context, channelID, threadTS, beforeTS string, limit int) []HistoryEntry
}

// Responder is the external conversational-response backend. Any concrete
// backend (LLM client, rule engine, human-in-the-loop queue) satisfies it.
type Responder interface {
	Respond(ctx context.Context, text string, history []HistoryEntry) (string, error)
}

// Outcome describes one handled event for the audit trail.
type Outcome struct {
	Event     Event
	Decision  Decision
	Responded bool
	Elapsed   time.Duration
}

// Recorder receives routing outcomes. Recording is advisory; failures are
// logged and never affect the response cycle.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Dispatcher orchestrates the response cycle for inbound events. Handle
// never panics and never returns an error: every failure downgrades to
// "do less" (skip the acknowledgement, skip history, send the fallback
// text) rather than aborting the event.
type Dispatcher struct {
	policy    *Policy
	registry  registry.Registry
	platform  Platform
	fetcher   HistoryFetcher
	responder Responder
	recorder  Recorder // optional
	out       io.Writer

	threadTTL          time.Duration
	maxHistory         int
	terminationKeyword string
	fallbackMessage    string
	closingMessage     string
	ackEmoji           string
	responseTimeout    time.Duration
}

// DispatcherOpts holds parameters for creating a Dispatcher.
type DispatcherOpts struct {
	Policy    *Policy
	Registry  registry.Registry
	Platform  Platform
	Fetcher   HistoryFetcher
	Responder Responder
	Recorder  Recorder  // optional audit trail
	Out       io.Writer // defaults to os.Stdout

	ThreadTTL          time.Duration
	MaxHistory         int
	TerminationKeyword string
	FallbackMessage    string
	ClosingMessage     string
	AckEmoji           string
	ResponseTimeout    time.Duration
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOpts) (*Dispatcher, error) {
	if opts.Policy == nil {
		return nil, fmt.Errorf("router: dispatcher: policy is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("router: dispatcher: registry is required")
	}
	if opts.Platform == nil {
		return nil, fmt.Errorf("router: dispatcher: platform is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("router: dispatcher: history fetcher is required")
	}
	if opts.Responder == nil {
		return nil, fmt.Errorf("router: dispatcher: responder is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	d := &Dispatcher{
		policy:             opts.Policy,
		registry:           opts.Registry,
		platform:           opts.Platform,
		fetcher:            opts.Fetcher,
		responder:          opts.Responder,
		recorder:           opts.Recorder,
		out:                out,
		threadTTL:          opts.ThreadTTL,
		maxHistory:         opts.MaxHistory,
		terminationKeyword: opts.TerminationKeyword,
		fallbackMessage:    opts.FallbackMessage,
		closingMessage:     opts.ClosingMessage,
		ackEmoji:           opts.AckEmoji,
		responseTimeout:    opts.ResponseTimeout,
	}
	if d.threadTTL <= 0 {
		d.threadTTL = time.Hour
	}
	if d.fallbackMessage == "" {
		d.fallbackMessage = "Sorry, I couldn't come up with an answer. Please try again."
	}
	if d.closingMessage == "" {
		d.closingMessage = "Okay, closing this thread."
	}
	if d.ackEmoji == "" {
		d.ackEmoji = "eyes"
	}
	if d.responseTimeout <= 0 {
		d.responseTimeout = time.Minute
	}
	return d, nil
}

// Handle routes a single inbound event through the full cycle:
// normalize → decide → activate (new threads) → acknowledge → history →
// respond → reply. An Ignore decision performs no platform call at all.
func (d *Dispatcher) Handle(ctx context.Context, raw RawEvent) {
	start := time.Now()
	ev := Normalize(raw)

	decision := d.policy.Decide(ctx, ev)
	if decision == Ignore {
		fmt.Fprintf(d.out, "router: ignore [ch=%s ts=%s user=%s bot=%s]\n",
			ev.ChannelID, ev.MessageTS, ev.UserID, ev.BotID)
		d.record(ctx, ev, decision, false, time.Since(start))
		return
	}

	// Termination keyword closes a supervised thread. Terminal for this
	// thread's supervision; a later mention or DM may re-open it.
	if decision == ContinueSupervision && d.isTermination(ev.Text) {
		fmt.Fprintf(d.out, "router: close [ch=%s thread=%s]\n", ev.ChannelID, ev.ThreadTS)
		d.post(ctx, ev, d.closingMessage)
		if err := d.registry.Deactivate(ctx, ev.ThreadTS); err != nil {
			log.Printf("router: deactivate %s: %v", ev.ThreadTS, err)
		}
		d.record(ctx, ev, decision, true, time.Since(start))
		return
	}

	// Activate before the acknowledgement so a concurrent duplicate
	// delivery on another worker already sees the thread supervised.
	if decision == NewSupervision {
		if err := d.registry.Activate(ctx, ev.ThreadTS, d.threadTTL); err != nil {
			log.Printf("router: activate %s: %v", ev.ThreadTS, err)
		}
	}

	if err := d.platform.AddReaction(ctx, ev.ChannelID, d.ackEmoji, ev.MessageTS); err != nil {
		log.Printf("router: add reaction [ch=%s ts=%s]: %v", ev.ChannelID, ev.MessageTS, err)
	}

	var history []HistoryEntry
	if ev.IsThreadReply() {
		history = d.fetcher.Fetch(ctx, ev.ChannelID, ev.ThreadTS, ev.MessageTS, d.maxHistory)
	}

	reply := d.respond(ctx, ev.Text, history)
	d.post(ctx, ev, reply)

	elapsed := time.Since(start)
	fmt.Fprintf(d.out, "router: %s [ch=%s thread=%s user=%s] handled in %v\n",
		decision, ev.ChannelID, ev.ThreadTS, ev.UserID, elapsed)
	d.record(ctx, ev, decision, true, elapsed)
}

// respond invokes the backend with the configured timeout. A failure or an
// empty answer substitutes the fallback message: once the acknowledgement
// went out the user must receive some reply, never silence and never a raw
// error.
func (d *Dispatcher) respond(ctx context.Context, text string, history []HistoryEntry) string {
	callCtx, cancel := context.WithTimeout(ctx, d.responseTimeout)
	defer cancel()

	reply, err := d.responder.Respond(callCtx, text, history)
	if err != nil {
		log.Printf("router: backend respond: %v", err)
		return d.fallbackMessage
	}
	if strings.TrimSpace(reply) == "" {
		log.Printf("router: backend returned empty response")
		return d.fallbackMessage
	}
	return reply
}

// post sends a threaded reply, logging failures.
func (d *Dispatcher) post(ctx context.Context, ev Event, text string) {
	if err := d.platform.PostMessage(ctx, ev.ChannelID, text, ev.ThreadTS); err != nil {
		log.Printf("router: post message [ch=%s thread=%s]: %v", ev.ChannelID, ev.ThreadTS, err)
	}
}

// isTermination reports whether the text matches the termination keyword,
// case-insensitively after trimming.
func (d *Dispatcher) isTermination(text string) bool {
	if d.terminationKeyword == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(text), d.terminationKeyword)
}

// record forwards the outcome to the recorder, if any.
func (d *Dispatcher) record(ctx context.Context, ev Event, decision Decision, responded bool, elapsed time.Duration) {
	if d.recorder == nil {
		return
	}
	err := d.recorder.Record(ctx, Outcome{
		Event:     ev,
		Decision:  decision,
		Responded: responded,
		Elapsed:   elapsed,
	})
	if err != nil {
		log.Printf("router: record outcome: %v", err)
	}
}
